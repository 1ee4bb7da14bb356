package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// preamble is shown by mail clients that do not understand MIME.
const preamble = "This is a multi-part message in MIME format."

// Bytes serializes the message as a multipart/related MIME document: a nested
// multipart/alternative part carrying the optional plain-text and HTML
// bodies, followed by one inline part per image tagged with a Content-ID
// matching its name.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "Subject", m.Subject)
	writeHeader(&buf, "From", m.From)
	writeHeader(&buf, "To", m.To)
	if m.Cc != "" {
		writeHeader(&buf, "Cc", m.Cc)
	}
	if m.References != "" {
		writeHeader(&buf, "References", m.References)
	}
	if m.InReplyTo != "" {
		writeHeader(&buf, "In-Reply-To", m.InReplyTo)
	}
	writeHeader(&buf, "MIME-Version", "1.0")

	related := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/related; boundary=%q\r\n\r\n", related.Boundary())
	buf.WriteString(preamble + "\r\n")

	altBody, altBoundary, err := buildAlternative(m.TextBody, m.HTMLBody)
	if err != nil {
		return nil, err
	}
	altHeader := make(textproto.MIMEHeader)
	altHeader.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", altBoundary))
	altPart, err := related.CreatePart(altHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create alternative part: %w", err)
	}
	if _, err := altPart.Write(altBody); err != nil {
		return nil, fmt.Errorf("failed to write alternative part: %w", err)
	}

	for _, img := range m.Images {
		imgHeader := make(textproto.MIMEHeader)
		imgHeader.Set("Content-Type", img.ContentType)
		imgHeader.Set("Content-Transfer-Encoding", "base64")
		imgHeader.Set("Content-ID", fmt.Sprintf("<%s>", img.Name))

		part, err := related.CreatePart(imgHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write([]byte(encodeBase64WithLineBreaks(img.Content))); err != nil {
			return nil, fmt.Errorf("failed to write image part: %w", err)
		}
	}

	if err := related.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}

// buildAlternative writes the multipart/alternative body holding the
// plain-text and HTML sub-parts. Either, both, or neither may be present; an
// empty alternative container is still emitted so the message shape is
// stable.
func buildAlternative(textBody, htmlBody string) ([]byte, string, error) {
	var buf bytes.Buffer
	alt := multipart.NewWriter(&buf)

	if textBody != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Type", "text/plain; charset=UTF-8")
		part, err := alt.CreatePart(hdr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create text part: %w", err)
		}
		if _, err := part.Write([]byte(textBody)); err != nil {
			return nil, "", fmt.Errorf("failed to write text part: %w", err)
		}
	}
	if htmlBody != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Type", "text/html; charset=UTF-8")
		part, err := alt.CreatePart(hdr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create html part: %w", err)
		}
		if _, err := part.Write([]byte(htmlBody)); err != nil {
			return nil, "", fmt.Errorf("failed to write html part: %w", err)
		}
	}

	if err := alt.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close alternative part: %w", err)
	}
	return buf.Bytes(), alt.Boundary(), nil
}

// writeHeader emits a single header line with CRLF termination.
func writeHeader(buf *bytes.Buffer, name, value string) {
	fmt.Fprintf(buf, "%s: %s\r\n", name, value)
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line
// breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
