// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/openops/mail-actions/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider handles the actual transmission of a built message to the
// target service (SMTP relay, AWS SES, stdout for dry runs).
type Provider interface {
	// Send delivers an email message through this provider.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *email.Message) error

	// Name returns the human-readable name of this provider.
	Name() string
}
