// Package sender implements the email sender action: it looks up SMTP
// credentials for a named account, builds a multipart MIME message, and
// hands it to the account's delivery provider.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/openops/mail-actions/internal/config"
	"github.com/openops/mail-actions/internal/email"
	"github.com/openops/mail-actions/internal/provider"
	"github.com/openops/mail-actions/internal/provider/ses"
	smtpprovider "github.com/openops/mail-actions/internal/provider/smtp"
	"github.com/openops/mail-actions/internal/provider/stdout"
)

// Input holds the fields of one send invocation. Address fields are trusted
// as already normalized, typically by the header processor.
type Input struct {
	From       string
	To         string
	Cc         string
	References string
	InReplyTo  string
	Subject    string
	Account    string
	Text       string
	HTML       string
	Images     []string
}

// Send looks up the named account, builds the message (reading any image
// files from disk), and delivers it through the account's provider. Any
// configuration, file-read, or transport failure propagates to the caller;
// there is no retry at this level.
func Send(ctx context.Context, cfg *config.Config, in Input) error {
	account, err := cfg.Account(in.Account)
	if err != nil {
		return err
	}

	msg, err := BuildMessage(in)
	if err != nil {
		return err
	}

	prov, err := providerFor(ctx, account)
	if err != nil {
		return err
	}

	slog.Info("sending email",
		"account", in.Account,
		"provider", prov.Name(),
		"to", msg.To,
		"cc", msg.Cc,
		"images", len(msg.Images),
	)

	return prov.Send(ctx, msg)
}

// BuildMessage assembles the outbound message from the input fields, loading
// each image path from the local filesystem.
func BuildMessage(in Input) (*email.Message, error) {
	msg := &email.Message{
		From:       in.From,
		To:         in.To,
		Cc:         in.Cc,
		References: in.References,
		InReplyTo:  in.InReplyTo,
		Subject:    in.Subject,
		TextBody:   in.Text,
		HTMLBody:   in.HTML,
	}

	for _, path := range in.Images {
		img, err := loadImage(path)
		if err != nil {
			return nil, err
		}
		msg.Images = append(msg.Images, img)
	}

	return msg, nil
}

// loadImage reads an image file and determines its content type by sniffing
// the bytes, falling back to the file extension when sniffing does not yield
// an image type.
func loadImage(path string) (email.Image, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return email.Image{}, fmt.Errorf("failed to read image %s: %w", path, err)
	}

	name := filepath.Base(path)
	contentType := http.DetectContentType(content)
	if !strings.HasPrefix(contentType, "image/") {
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		contentType = "image/" + ext
	}

	return email.Image{
		Name:        name,
		ContentType: contentType,
		Content:     content,
	}, nil
}

// providerFor selects the delivery backend for the account. An empty
// provider field means plain SMTP.
func providerFor(ctx context.Context, account config.AccountConfig) (provider.Provider, error) {
	switch account.Provider {
	case "", "smtp":
		return smtpprovider.New(smtpprovider.Config{
			Server:             account.Server,
			Port:               account.Port,
			Username:           account.Username,
			Password:           account.Password,
			CAFile:             account.TLS.CAFile,
			InsecureSkipVerify: account.TLS.InsecureSkipVerify,
		}), nil

	case "ses":
		return ses.New(ctx, ses.Config{
			Region:          account.SES.Region,
			AccessKeyID:     account.SES.AccessKeyID,
			SecretAccessKey: account.SES.SecretAccessKey,
		})

	case "stdout":
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", account.Provider)
	}
}
