package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	a := New(LDAPConfig{}, []byte("test-signing-key"), time.Minute)

	token, err := a.Issue(User{Username: "alovelace", Email: "alovelace@example.com", FullName: "Ada Lovelace"})
	require.NoError(t, err)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alovelace", claims.Subject)
	require.Equal(t, "alovelace@example.com", claims.Email)
	require.True(t, claims.HasScope("policies:write"))
	require.False(t, claims.HasScope("not:a:real:scope"))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := New(LDAPConfig{}, []byte("secret-a"), time.Minute)
	verifier := New(LDAPConfig{}, []byte("secret-b"), time.Minute)

	token, err := issuer.Issue(User{Username: "mallory"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	// New replaces a non-positive TTL with the 60-minute default, so build
	// the authenticator directly to mint an already-expired token.
	a := &Authenticator{secret: []byte("test-signing-key"), tokenTTL: -time.Minute}

	token, err := a.Issue(User{Username: "grace"})
	require.NoError(t, err)

	_, err = a.Verify(token)
	require.Error(t, err)
}
