package headers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openops/mail-actions/internal/address"
)

func TestParseHeadersBasic(t *testing.T) {
	t.Parallel()

	p := ParseHeaders([]Header{
		{Name: "From", Value: "Alice <alice@a.com>"},
		{Name: "To", Value: "Bob <bob@b.com>"},
	})

	assert.Equal(t, 1, p.From.Len())
	assert.Equal(t, 1, p.To.Len())
	assert.Equal(t, 0, p.Cc.Len())
	assert.Equal(t, 0, p.Self.Len())
	assert.True(t, p.From.Contains(address.Address{Name: "Alice", Addr: "alice@a.com"}))
	assert.True(t, p.To.Contains(address.Address{Name: "Bob", Addr: "bob@b.com"}))
}

func TestParseHeadersCommaSplitAndDuplicates(t *testing.T) {
	t.Parallel()

	p := ParseHeaders([]Header{
		{Name: "To", Value: "Bob <bob@b.com>, Carol <carol@c.com>"},
		{Name: "To", Value: "Bob <bob@b.com>"},
		{Name: "Cc", Value: "dave@d.com"},
	})

	assert.Equal(t, 2, p.To.Len())
	assert.Equal(t, 1, p.Cc.Len())
}

func TestParseHeadersCaseSensitiveNames(t *testing.T) {
	t.Parallel()

	// Lowercase names are not recognized.
	p := ParseHeaders([]Header{
		{Name: "to", Value: "bob@b.com"},
		{Name: "FROM", Value: "alice@a.com"},
	})

	assert.Equal(t, 0, p.To.Len())
	assert.Equal(t, 0, p.From.Len())
}

func TestParseHeadersReferencesAndMessageID(t *testing.T) {
	t.Parallel()

	p := ParseHeaders([]Header{
		{Name: "References", Value: "<one@x>"},
		{Name: "References", Value: " <two@x>"},
		{Name: "Message-Id", Value: "<three@x>"},
	})

	assert.Equal(t, "<three@x>", p.InReplyTo)
	assert.Equal(t, "<one@x> <two@x> <three@x>", p.References)
}

func TestParseHeadersMessageIDWithoutReferences(t *testing.T) {
	t.Parallel()

	p := ParseHeaders([]Header{
		{Name: "Message-Id", Value: "<id@x>"},
	})

	assert.Equal(t, "<id@x>", p.InReplyTo)
	assert.Equal(t, " <id@x>", p.References)
}

func TestCheckAllowedDomains(t *testing.T) {
	t.Parallel()

	from := address.NewSet(address.Address{Addr: "user@corp.com"})

	ok, err := CheckAllowed(from, []string{"corp.com"}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckAllowed(from, []string{"other.com"}, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckAllowedUsers(t *testing.T) {
	t.Parallel()

	from := address.NewSet(address.Address{Addr: "user@corp.com"})

	ok, err := CheckAllowed(from, nil, []string{"user@corp.com"})
	require.NoError(t, err)
	assert.True(t, ok)

	// Full-string anchoring: a prefix match is not enough.
	ok, err = CheckAllowed(from, nil, []string{"user@corp"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckAllowedEntriesAreRegexpFragments(t *testing.T) {
	t.Parallel()

	from := address.NewSet(address.Address{Addr: "user@corpxcom"})

	// Unescaped dot matches any character.
	ok, err := CheckAllowed(from, []string{"corp.com"}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = CheckAllowed(from, []string{"corp.com("}, nil)
	assert.Error(t, err)
}

func TestAddEnforcedCCPriorityOrder(t *testing.T) {
	t.Parallel()

	to := address.NewSet(address.Address{Name: "Bob", Addr: "bob@b.com"})
	cc := address.NewSet()
	from := address.NewSet(address.Address{Addr: "alice@a.com"})

	// Already in to (display name ignored), already in from, and new.
	got := AddEnforcedCC([]string{"bob@b.com", "alice@a.com", "audit@a.com"}, to, cc, from)

	assert.Equal(t, 1, got.Len())
	assert.True(t, got.Contains(address.Address{Addr: "audit@a.com"}))
}

func TestAddEnforcedCCIdempotent(t *testing.T) {
	t.Parallel()

	to := address.NewSet()
	cc := address.NewSet()
	from := address.NewSet()
	enforce := []string{"audit@a.com", "legal@a.com"}

	once := AddEnforcedCC(enforce, to, cc, from)
	wantLen := once.Len()
	twice := AddEnforcedCC(enforce, to, once, from)

	assert.Equal(t, wantLen, twice.Len())
}

func TestResultsSelfDeduplication(t *testing.T) {
	t.Parallel()

	p := ParseHeaders([]Header{
		{Name: "From", Value: "A <a@x.com>"},
		{Name: "To", Value: "B <b@y.com>"},
		{Name: "Delivered-To", Value: "B <b@y.com>"},
	})

	result, err := Results(p)
	require.NoError(t, err)

	assert.Contains(t, result.To, "A <a@x.com>")
	assert.NotContains(t, result.To, "B <b@y.com>")
	assert.Equal(t, "B <b@y.com>", result.From)
}

func TestResultsEmptySelfSet(t *testing.T) {
	t.Parallel()

	p := ParseHeaders([]Header{
		{Name: "From", Value: "a@x.com"},
		{Name: "To", Value: "b@y.com"},
	})

	_, err := Results(p)
	assert.ErrorIs(t, err, ErrNoSelfAddress)
}

func TestProcessEndToEnd(t *testing.T) {
	t.Parallel()

	result, err := Process(Request{
		Headers: []Header{
			{Name: "From", Value: "Alice <alice@a.com>"},
			{Name: "To", Value: "Bob <bob@b.com>"},
			{Name: "Delivered-To", Value: "Bob <bob@b.com>"},
		},
		EnforceCC: []string{"audit@a.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice <alice@a.com>", result.To)
	assert.Equal(t, "<audit@a.com>", result.Cc)
	assert.Equal(t, "Bob <bob@b.com>", result.From)
	assert.Empty(t, result.References)
	assert.Empty(t, result.InReplyTo)
}

func TestProcessRejectsDisallowedSender(t *testing.T) {
	t.Parallel()

	_, err := Process(Request{
		Headers: []Header{
			{Name: "From", Value: "Mallory <mallory@evil.com>"},
			{Name: "To", Value: "bob@b.com"},
			{Name: "Delivered-To", Value: "bob@b.com"},
		},
		AllowedDomains: []string{`corp\.com`},
	})

	require.ErrorIs(t, err, ErrSenderRejected)
	assert.Contains(t, err.Error(), "mallory@evil.com")
}

func TestProcessNoPolicySkipsAllowListCheck(t *testing.T) {
	t.Parallel()

	result, err := Process(Request{
		Headers: []Header{
			{Name: "From", Value: "anyone@anywhere.com"},
			{Name: "To", Value: "bob@b.com"},
			{Name: "Delivered-To", Value: "bob@b.com"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, result.To, "anyone@anywhere.com")
}

func TestProcessPassesThroughReferences(t *testing.T) {
	t.Parallel()

	result, err := Process(Request{
		Headers: []Header{
			{Name: "From", Value: "alice@a.com"},
			{Name: "To", Value: "bob@b.com"},
			{Name: "Delivered-To", Value: "bob@b.com"},
			{Name: "References", Value: "<r1@x>"},
			{Name: "Message-Id", Value: "<m1@x>"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "<r1@x> <m1@x>", result.References)
	assert.Equal(t, "<m1@x>", result.InReplyTo)
}

func TestHeaderUnmarshalJSON(t *testing.T) {
	t.Parallel()

	var fromPairs []Header
	err := json.Unmarshal([]byte(`[["From", "a@x.com"], ["To", "b@y.com"]]`), &fromPairs)
	require.NoError(t, err)
	require.Len(t, fromPairs, 2)
	assert.Equal(t, Header{Name: "From", Value: "a@x.com"}, fromPairs[0])

	var fromObjects []Header
	err = json.Unmarshal([]byte(`[{"name": "From", "value": "a@x.com"}]`), &fromObjects)
	require.NoError(t, err)
	require.Len(t, fromObjects, 1)
	assert.Equal(t, Header{Name: "From", Value: "a@x.com"}, fromObjects[0])

	var bad []Header
	err = json.Unmarshal([]byte(`[["From"]]`), &bad)
	assert.Error(t, err)
}
