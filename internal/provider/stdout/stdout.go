// Package stdout implements a Provider that prints emails to standard output.
// It serves as a dry-run delivery backend for accounts under test.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openops/mail-actions/internal/email"
)

// Provider prints email messages to stdout in a human-readable format.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the message to stdout in a readable format.
// It always returns nil (success).
func (p *Provider) Send(_ context.Context, msg *email.Message) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("From: %s\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\n", msg.To))

	if msg.Cc != "" {
		b.WriteString(fmt.Sprintf("Cc: %s\n", msg.Cc))
	}

	b.WriteString(fmt.Sprintf("Subject: %s\n", msg.Subject))
	b.WriteString(fmt.Sprintf("Envelope recipients: %s\n", strings.Join(msg.Recipients(), ", ")))
	b.WriteString("Body:\n")

	body := msg.TextBody
	if body == "" {
		body = msg.HTMLBody
	}
	b.WriteString(body + "\n")

	if len(msg.Images) > 0 {
		images := make([]string, 0, len(msg.Images))
		for _, img := range msg.Images {
			images = append(images, fmt.Sprintf("%s (%s, %s)", img.Name, img.ContentType, formatSize(len(img.Content))))
		}
		b.WriteString(fmt.Sprintf("Inline images: %s\n", strings.Join(images, ", ")))
	}

	b.WriteString("========================================\n")

	_, err := fmt.Fprint(p.writer, b.String())
	if err != nil {
		// Log the write error but still return nil since the provider
		// contract says stdout always succeeds conceptually
		return nil
	}

	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
