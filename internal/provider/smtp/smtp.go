// Package smtp implements a Provider that transmits messages through an
// authenticated STARTTLS SMTP session.
package smtp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/openops/mail-actions/internal/address"
	"github.com/openops/mail-actions/internal/email"
	clienttls "github.com/openops/mail-actions/internal/tls"
)

// dialTimeout bounds the initial TCP connect. Subsequent protocol steps have
// no timeout of their own.
const dialTimeout = 20 * time.Second

// Config holds the connection settings for one SMTP account.
type Config struct {
	Server             string
	Port               int
	Username           string
	Password           string
	CAFile             string
	InsecureSkipVerify bool
}

// Provider sends messages over a single SMTP session per call. Sessions are
// not pooled or reused.
type Provider struct {
	cfg Config
}

// New creates a Provider for the given account settings.
func New(cfg Config) *Provider {
	return &Provider{cfg: cfg}
}

// Send opens a connection to the configured server, upgrades it with
// STARTTLS, authenticates, and transmits the serialized message to the
// envelope recipients. The connection is released on every path; Quit is the
// clean close on success.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	// The envelope wants bare addr-specs; the header fields carry formatted
	// "Name <addr>" tokens that go-smtp would write into RCPT TO verbatim.
	headerRecipients := msg.Recipients()
	recipients := make([]string, 0, len(headerRecipients))
	for _, r := range headerRecipients {
		recipients = append(recipients, address.Parse(r).Addr)
	}
	envelopeFrom := address.Parse(msg.From).Addr

	tlsConfig, err := clienttls.ClientConfig(p.cfg.Server, p.cfg.CAFile, p.cfg.InsecureSkipVerify)
	if err != nil {
		return fmt.Errorf("failed to build TLS config: %w", err)
	}

	addr := net.JoinHostPort(p.cfg.Server, strconv.Itoa(p.cfg.Port))
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	client := smtp.NewClient(conn)
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("STARTTLS failed: %w", err)
	}
	if err := client.Auth(sasl.NewPlainClient("", p.cfg.Username, p.cfg.Password)); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if err := client.SendMail(envelopeFrom, recipients, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	slog.Debug("message sent",
		"server", addr,
		"from", envelopeFrom,
		"recipients", len(recipients),
	)

	return client.Quit()
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}
