// Package email defines the outbound message model and its MIME serialization.
package email

import "strings"

// Message is a fully normalized outbound email. Header fields are trusted as
// given; the header processor (or another caller) is responsible for
// normalization.
type Message struct {
	From       string
	To         string
	Cc         string
	References string
	InReplyTo  string
	Subject    string
	TextBody   string
	HTMLBody   string
	Images     []Image
}

// Image is an inline image attached to the message root and referenced from
// HTML content via cid:<name>.
type Image struct {
	Name        string
	ContentType string
	Content     []byte
}

// Recipients returns the SMTP envelope recipient list: the union of the To
// and Cc header address lists, split on ", ".
func (m *Message) Recipients() []string {
	var out []string
	for _, field := range []string{m.To, m.Cc} {
		if field == "" {
			continue
		}
		for _, addr := range strings.Split(field, ", ") {
			if addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}
