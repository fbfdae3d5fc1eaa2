package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapabilityService(t *testing.T) *CapabilityService {
	t.Helper()
	svc, err := NewCapabilityService("cap-secret", 600*time.Second)
	require.NoError(t, err)
	return svc
}

func TestCapabilityService_RoundTrip(t *testing.T) {
	svc := newCapabilityService(t)

	tok, err := svc.Grant("documents/u-1/doc-1.pdf")
	require.NoError(t, err)

	key, ok := svc.Redeem(tok)
	require.True(t, ok)
	assert.Equal(t, "documents/u-1/doc-1.pdf", key)
}

func TestCapabilityService_EmptyKey(t *testing.T) {
	svc := newCapabilityService(t)

	_, err := svc.Grant("")
	require.Error(t, err)
}

func TestCapabilityService_Expiry(t *testing.T) {
	svc := newCapabilityService(t)

	issued := time.Now()
	svc.now = func() time.Time { return issued }
	tok, err := svc.Grant("documents/u-1/doc-1.pdf")
	require.NoError(t, err)

	// Valid at exactly issuedAt+600s.
	svc.now = func() time.Time { return issued.Add(600 * time.Second) }
	_, ok := svc.Redeem(tok)
	assert.True(t, ok)

	// Invalid one second later.
	svc.now = func() time.Time { return issued.Add(601 * time.Second) }
	_, ok = svc.Redeem(tok)
	assert.False(t, ok)
}

func TestCapabilityService_TamperedBody(t *testing.T) {
	svc := newCapabilityService(t)

	tok, err := svc.Grant("documents/u-1/doc-1.pdf")
	require.NoError(t, err)

	body, sig, ok := strings.Cut(tok, ".")
	require.True(t, ok)

	mutated := []byte(body)
	if mutated[0] == 'A' {
		mutated[0] = 'B'
	} else {
		mutated[0] = 'A'
	}
	_, ok = svc.Redeem(string(mutated) + "." + sig)
	assert.False(t, ok)
}

func TestCapabilityService_ForgedWithoutSecret(t *testing.T) {
	svc := newCapabilityService(t)
	forger, err := NewCapabilityService("guessed-secret", 600*time.Second)
	require.NoError(t, err)

	tok, err := forger.Grant("documents/u-2/private.pdf")
	require.NoError(t, err)

	_, ok := svc.Redeem(tok)
	assert.False(t, ok)
}

func TestCapabilityService_Garbage(t *testing.T) {
	svc := newCapabilityService(t)

	for _, raw := range []string{"", "noseparator", ".", "a.", ".b", "not-base64!.sig"} {
		_, ok := svc.Redeem(raw)
		assert.False(t, ok, "token %q", raw)
	}
}
