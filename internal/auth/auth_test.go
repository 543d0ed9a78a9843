package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcprouter/internal/store"
)

func newValidator(t *testing.T) (*Validator, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewValidator(s), s
}

func TestValidateMissingToken(t *testing.T) {
	v, _ := newValidator(t)
	_, err := v.Validate(context.Background(), "nope")
	require.ErrorIs(t, err, ErrTokenMissing)
}

func TestValidateExpiredToken(t *testing.T) {
	v, s := newValidator(t)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, s.CreateToken(context.Background(), &store.Token{
		ID: "t1", ClientID: "c1", ExpiresAt: &past,
	}))

	_, err := v.Validate(context.Background(), "t1")
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateForServerDenied(t *testing.T) {
	v, s := newValidator(t)
	require.NoError(t, s.CreateToken(context.Background(), &store.Token{
		ID: "t1", ClientID: "c1", ServerAccess: map[string]bool{"s1": true},
	}))

	_, err := v.ValidateForServer(context.Background(), "t1", "s2")
	require.ErrorIs(t, err, ErrServerDenied)

	tok, err := v.ValidateForServer(context.Background(), "t1", "s1")
	require.NoError(t, err)
	require.Equal(t, "c1", tok.ClientID)
}

func TestValidateRevokedToken(t *testing.T) {
	v, s := newValidator(t)
	require.NoError(t, s.CreateToken(context.Background(), &store.Token{ID: "t1", ClientID: "c1"}))
	require.NoError(t, s.RevokeToken(context.Background(), "t1"))

	_, err := v.Validate(context.Background(), "t1")
	require.ErrorIs(t, err, ErrTokenRevoked)
}
