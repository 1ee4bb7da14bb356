package stdout

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/openops/mail-actions/internal/email"
)

func TestName(t *testing.T) {
	t.Parallel()
	p := New()
	if got := p.Name(); got != "stdout" {
		t.Errorf("Name(): got %q, want %q", got, "stdout")
	}
}

func TestSendPrintsMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:     "Bob <bob@y.com>",
		To:       "Alice <alice@x.com>",
		Cc:       "<audit@x.com>",
		Subject:  "Test Subject",
		TextBody: "Hello, World!",
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"From: Bob <bob@y.com>",
		"To: Alice <alice@x.com>",
		"Cc: <audit@x.com>",
		"Subject: Test Subject",
		"Hello, World!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSendEnvelopeRecipients(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From: "bob@y.com",
		To:   "a@x.com, b@x.com",
		Cc:   "c@x.com",
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "Envelope recipients: a@x.com, b@x.com, c@x.com") {
		t.Errorf("output missing envelope recipients:\n%s", buf.String())
	}
}

func TestSendEmptyCcOmitted(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{From: "bob@y.com", To: "alice@x.com", HTMLBody: "<p>hi</p>"}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "Cc:") {
		t.Errorf("output should omit empty Cc:\n%s", out)
	}
	if !strings.Contains(out, "<p>hi</p>") {
		t.Errorf("output missing HTML fallback body:\n%s", out)
	}
}

func TestSendListsInlineImages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From: "bob@y.com",
		To:   "alice@x.com",
		Images: []email.Image{
			{Name: "logo.png", ContentType: "image/png", Content: make([]byte, 2048)},
		},
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "logo.png (image/png, 2.0 KB)") {
		t.Errorf("output missing image listing:\n%s", buf.String())
	}
}
