// Package address provides lenient email address parsing and ordered address sets.
package address

import (
	"net/mail"
	"strings"
)

// Address is a (display name, email address) pair. Two addresses are the same
// set member only when both fields match; comparisons that ignore the display
// name use ContainsAddr.
type Address struct {
	Name string
	Addr string
}

// Parse extracts an Address from an RFC 2822-style "Name <addr>" string or a
// bare "addr" string. Parsing is lenient and never fails: malformed input
// degrades to an empty display name and a best-effort address.
func Parse(s string) Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}
	}

	if a, err := mail.ParseAddress(s); err == nil {
		return Address{Name: a.Name, Addr: a.Address}
	}

	// Best-effort fallback: pull the address out of angle brackets if present,
	// otherwise treat the whole string as the address.
	if open := strings.IndexByte(s, '<'); open >= 0 {
		if end := strings.IndexByte(s[open:], '>'); end > 0 {
			name := strings.Trim(strings.TrimSpace(s[:open]), `"`)
			return Address{
				Name: name,
				Addr: strings.TrimSpace(s[open+1 : open+end]),
			}
		}
	}
	return Address{Addr: s}
}

// String renders the address as "Name <addr>", or "<addr>" when the display
// name is empty.
func (a Address) String() string {
	return (&mail.Address{Name: a.Name, Address: a.Addr}).String()
}

// Set is an insertion-ordered set of addresses keyed by the full
// (name, address) pair. The zero value is not usable; call NewSet.
type Set struct {
	order []Address
	seen  map[Address]struct{}
}

// NewSet creates an empty Set, optionally seeded with the given addresses.
func NewSet(addrs ...Address) *Set {
	s := &Set{seen: make(map[Address]struct{})}
	for _, a := range addrs {
		s.Add(a)
	}
	return s
}

// Add inserts the address if an identical (name, address) pair is not already
// present.
func (s *Set) Add(a Address) {
	if _, ok := s.seen[a]; ok {
		return
	}
	s.seen[a] = struct{}{}
	s.order = append(s.order, a)
}

// Contains reports whether the exact (name, address) pair is in the set.
func (s *Set) Contains(a Address) bool {
	_, ok := s.seen[a]
	return ok
}

// ContainsAddr reports whether any member has the given email address,
// ignoring display names.
func (s *Set) ContainsAddr(addr string) bool {
	for _, a := range s.order {
		if a.Addr == addr {
			return true
		}
	}
	return false
}

// Remove deletes the exact (name, address) pair if present.
func (s *Set) Remove(a Address) {
	if _, ok := s.seen[a]; !ok {
		return
	}
	delete(s.seen, a)
	for i, existing := range s.order {
		if existing == a {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Union adds every member of other to the set.
func (s *Set) Union(other *Set) {
	for _, a := range other.order {
		s.Add(a)
	}
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.order)
}

// Addresses returns the members in insertion order.
func (s *Set) Addresses() []Address {
	out := make([]Address, len(s.order))
	copy(out, s.order)
	return out
}

// Format renders the set as a comma-space-joined list of formatted addresses.
func (s *Set) Format() string {
	parts := make([]string, 0, len(s.order))
	for _, a := range s.order {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}
