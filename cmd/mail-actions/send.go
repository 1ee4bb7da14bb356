package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openops/mail-actions/internal/sender"
)

var (
	sendInput sender.Input
	textFile  string
	htmlFile  string
)

var sendEmailCmd = &cobra.Command{
	Use:   "send-email",
	Short: "Compose and transmit a multipart MIME email",
	Long: `Builds a multipart/related message from the given text, HTML and inline
image inputs and transmits it using the credentials of the named account from
the configuration. Any configuration, file-read or transport failure exits
with a non-zero status.`,
	RunE: runSendEmail,
}

func init() {
	flags := sendEmailCmd.Flags()
	flags.StringVar(&sendInput.From, "from", "", "From address of the sender")
	flags.StringVar(&sendInput.To, "to", "", "comma-space-separated To addresses")
	flags.StringVar(&sendInput.Cc, "cc", "", "comma-space-separated Cc addresses")
	flags.StringVar(&sendInput.References, "references", "", "References header value")
	flags.StringVar(&sendInput.InReplyTo, "in-reply-to", "", "In-Reply-To header value")
	flags.StringVar(&sendInput.Subject, "subject", "", "message subject")
	flags.StringVar(&sendInput.Account, "account", os.Getenv("MAIL_ACTIONS_ACCOUNT"),
		"name of the configured account to send with")
	flags.StringVar(&sendInput.Text, "text", "", "plain text body")
	flags.StringVar(&textFile, "text-file", "", "read the plain text body from this file")
	flags.StringVar(&sendInput.HTML, "html", "", "HTML body")
	flags.StringVar(&htmlFile, "html-file", "", "read the HTML body from this file")
	flags.StringArrayVar(&sendInput.Images, "image", nil,
		"path of an inline image to attach (repeatable)")
	rootCmd.AddCommand(sendEmailCmd)
}

func runSendEmail(cmd *cobra.Command, args []string) error {
	if textFile != "" {
		data, err := os.ReadFile(textFile)
		if err != nil {
			return fmt.Errorf("failed to read text body file: %w", err)
		}
		sendInput.Text = string(data)
	}
	if htmlFile != "" {
		data, err := os.ReadFile(htmlFile)
		if err != nil {
			return fmt.Errorf("failed to read html body file: %w", err)
		}
		sendInput.HTML = string(data)
	}

	if err := sender.Send(cmd.Context(), cfg, sendInput); err != nil {
		slog.Error("send failed", "account", sendInput.Account, "error", err)
		return err
	}
	return nil
}
