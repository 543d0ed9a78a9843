// Package auth implements the token validator and server-scoped auth check of
// spec.md §4.9, backed by internal/store.
package auth

import (
	"context"
	"errors"
	"time"

	"mcprouter/internal/store"
)

var (
	ErrTokenMissing = errors.New("auth: token not found")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenRevoked = errors.New("auth: token revoked")
	ErrServerDenied = errors.New("auth: token not authorized for server")
)

// Validator authenticates bearer tokens against the store. It never logs the
// raw token value.
type Validator struct {
	store *store.Store
	now   func() time.Time
}

func NewValidator(s *store.Store) *Validator {
	return &Validator{store: s, now: time.Now}
}

// Validate looks up tokenID and rejects it if missing, expired, or revoked.
func (v *Validator) Validate(ctx context.Context, tokenID string) (*store.Token, error) {
	tok, err := v.store.GetToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenMissing
		}
		return nil, err
	}
	if tok.Revoked {
		return nil, ErrTokenRevoked
	}
	if tok.Expired(v.now()) {
		return nil, ErrTokenExpired
	}
	_ = v.store.TouchToken(ctx, tokenID, v.now())
	return tok, nil
}

// ValidateForServer additionally requires serverAccess[serverID] == true.
func (v *Validator) ValidateForServer(ctx context.Context, tokenID, serverID string) (*store.Token, error) {
	tok, err := v.Validate(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if !tok.AllowedForServer(serverID) {
		return nil, ErrServerDenied
	}
	return tok, nil
}
