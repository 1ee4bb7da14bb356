// Package headers implements the header processor action: it turns raw email
// headers into normalized recipient lists while enforcing sender allow-lists
// and mandatory CC rules.
package headers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/openops/mail-actions/internal/address"
)

// Recognized header names. Matching is case-sensitive.
const (
	headerTo          = "To"
	headerFrom        = "From"
	headerCc          = "Cc"
	headerDeliveredTo = "Delivered-To"
	headerReferences  = "References"
	headerMessageID   = "Message-Id"
)

// ErrSenderRejected is returned by Process when an allow-list is configured
// and no From address matches it.
var ErrSenderRejected = errors.New("sender not permitted")

// ErrNoSelfAddress is returned when result assembly finds no Delivered-To
// address to act as the reply-from identity.
var ErrNoSelfAddress = errors.New("no delivered-to address in headers")

// Header is a single raw (name, value) header pair.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UnmarshalJSON accepts either the object form {"name": ..., "value": ...} or
// the pair form ["Name", "value"] that workflow runners commonly emit.
func (h *Header) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var pair []string
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("header pair must have 2 elements, got %d", len(pair))
		}
		h.Name, h.Value = pair[0], pair[1]
		return nil
	}

	type plain Header
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*h = Header(p)
	return nil
}

// Request holds the inputs of one header processor invocation. The policy
// fields are optional; empty slices disable the corresponding rule.
type Request struct {
	Headers        []Header
	EnforceCC      []string
	AllowedDomains []string
	AllowedUsers   []string
}

// Result is the normalized output handed back to the workflow runner.
type Result struct {
	To         string `json:"to"`
	From       string `json:"from"`
	Cc         string `json:"cc"`
	References string `json:"references"`
	InReplyTo  string `json:"in_reply_to"`
}

// Parsed holds the intermediate address sets extracted from raw headers.
type Parsed struct {
	To         *address.Set
	From       *address.Set
	Cc         *address.Set
	Self       *address.Set
	References string
	InReplyTo  string
}

// ParseHeaders walks the header list once, collecting To/From/Cc/Delivered-To
// addresses into sets, concatenating References values, and capturing the
// last Message-Id as the in-reply-to id. A captured message id is appended to
// the references string.
func ParseHeaders(hs []Header) Parsed {
	p := Parsed{
		To:   address.NewSet(),
		From: address.NewSet(),
		Cc:   address.NewSet(),
		Self: address.NewSet(),
	}

	for _, h := range hs {
		switch h.Name {
		case headerTo, headerFrom, headerCc, headerDeliveredTo:
			for _, segment := range strings.Split(h.Value, ",") {
				if strings.TrimSpace(segment) == "" {
					continue
				}
				a := address.Parse(segment)
				switch h.Name {
				case headerFrom:
					p.From.Add(a)
				case headerTo:
					p.To.Add(a)
				case headerCc:
					p.Cc.Add(a)
				case headerDeliveredTo:
					p.Self.Add(a)
				}
			}
		case headerReferences:
			p.References += h.Value
		case headerMessageID:
			p.InReplyTo = h.Value
		}
	}

	if p.InReplyTo != "" {
		p.References = p.References + " " + p.InReplyTo
	}
	return p
}

// CheckAllowed reports whether any From address is permitted by the
// allow-lists. Entries are regular-expression fragments, not literals:
// domains are matched as `@<entry>$` against the email address, users as
// `^<entry>$`. Callers wanting literal matching must escape metacharacters
// themselves.
func CheckAllowed(from *address.Set, allowedDomains, allowedUsers []string) (bool, error) {
	for _, domain := range allowedDomains {
		re, err := regexp.Compile("@" + domain + "$")
		if err != nil {
			return false, fmt.Errorf("invalid allowed domain pattern %q: %w", domain, err)
		}
		for _, a := range from.Addresses() {
			if re.MatchString(a.Addr) {
				return true, nil
			}
		}
	}
	for _, user := range allowedUsers {
		re, err := regexp.Compile("^" + user + "$")
		if err != nil {
			return false, fmt.Errorf("invalid allowed user pattern %q: %w", user, err)
		}
		for _, a := range from.Addresses() {
			if re.MatchString(a.Addr) {
				return true, nil
			}
		}
	}
	return false, nil
}

// AddEnforcedCC adds each mandatory address to cc unless an address with the
// same email address (display name ignored) already appears in to, cc, or
// from, checked in that order. Re-running with the same inputs is a no-op.
func AddEnforcedCC(enforceCC []string, to, cc, from *address.Set) *address.Set {
	for _, raw := range enforceCC {
		a := address.Parse(raw)
		if to.ContainsAddr(a.Addr) || cc.ContainsAddr(a.Addr) || from.ContainsAddr(a.Addr) {
			continue
		}
		cc.Add(a)
	}
	return cc
}

// Results assembles the final result strings. Addresses the system received
// the message at (the self set) are removed from to, then the from set is
// merged into to so the original sender joins the outgoing recipients. The
// first self address becomes the reply-from identity.
func Results(p Parsed) (Result, error) {
	for _, self := range p.Self.Addresses() {
		for _, to := range p.To.Addresses() {
			if self.Addr == to.Addr {
				p.To.Remove(to)
			}
		}
	}
	p.To.Union(p.From)

	selfAddrs := p.Self.Addresses()
	if len(selfAddrs) == 0 {
		return Result{}, ErrNoSelfAddress
	}

	return Result{
		To:         p.To.Format(),
		From:       selfAddrs[0].String(),
		Cc:         p.Cc.Format(),
		References: p.References,
		InReplyTo:  p.InReplyTo,
	}, nil
}

// Process runs the full pipeline: parse, allow-list enforcement when any
// policy is configured, enforced CC injection, result assembly. An allow-list
// miss is reported as ErrSenderRejected wrapped with the formatted sender so
// callers can treat rejection as an ordinary outcome.
func Process(req Request) (Result, error) {
	p := ParseHeaders(req.Headers)

	if len(req.AllowedDomains) > 0 || len(req.AllowedUsers) > 0 {
		ok, err := CheckAllowed(p.From, req.AllowedDomains, req.AllowedUsers)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			sender := ""
			if froms := p.From.Addresses(); len(froms) > 0 {
				sender = froms[0].String()
			}
			slog.Info("sender not permitted", "sender", sender)
			return Result{}, fmt.Errorf("%w: %s", ErrSenderRejected, sender)
		}
	}

	if len(req.EnforceCC) > 0 {
		p.Cc = AddEnforcedCC(req.EnforceCC, p.To, p.Cc, p.From)
	}

	return Results(p)
}
