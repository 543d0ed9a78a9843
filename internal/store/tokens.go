package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Token is an opaque bearer credential scoped to a set of servers.
type Token struct {
	ID           string
	ClientID     string
	Name         string
	IssuedAt     time.Time
	ExpiresAt    *time.Time
	LastUsedAt   *time.Time
	Revoked      bool
	Scopes       []string
	ServerAccess map[string]bool
}

// Expired reports whether the token is past its expiry, if any.
func (t *Token) Expired(at time.Time) bool {
	return t.ExpiresAt != nil && at.After(*t.ExpiresAt)
}

// AllowedForServer reports whether the token may be used against serverID.
// Absence or an explicit false both mean denied, per spec.
func (t *Token) AllowedForServer(serverID string) bool {
	return t.ServerAccess[serverID]
}

func (s *Store) CreateToken(ctx context.Context, t *Token) error {
	scopes, err := json.Marshal(t.Scopes)
	if err != nil {
		return err
	}
	access, err := json.Marshal(t.ServerAccess)
	if err != nil {
		return err
	}
	t.IssuedAt = now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tokens (id, client_id, name, issued_at, expires_at, scopes, server_access)
		VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.ClientID, t.Name, t.IssuedAt, nullTime(t.ExpiresAt), string(scopes), string(access))
	return err
}

func (s *Store) GetToken(ctx context.Context, id string) (*Token, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, client_id, name, issued_at, expires_at, last_used_at,
		revoked, scopes, server_access FROM tokens WHERE id=?`, id)
	return scanToken(row)
}

func (s *Store) TouchToken(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tokens SET last_used_at=? WHERE id=?`, at, id)
	return err
}

func (s *Store) RevokeToken(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tokens SET revoked=1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Store) ListTokens(ctx context.Context, clientID string) ([]*Token, error) {
	var rows *sql.Rows
	var err error
	if clientID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT id, client_id, name, issued_at, expires_at, last_used_at,
			revoked, scopes, server_access FROM tokens ORDER BY issued_at DESC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT id, client_id, name, issued_at, expires_at, last_used_at,
			revoked, scopes, server_access FROM tokens WHERE client_id=? ORDER BY issued_at DESC`, clientID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanToken(row rowScanner) (*Token, error) {
	var t Token
	var expires, lastUsed sql.NullTime
	var revoked int
	var scopesJSON, accessJSON string
	if err := row.Scan(&t.ID, &t.ClientID, &t.Name, &t.IssuedAt, &expires, &lastUsed,
		&revoked, &scopesJSON, &accessJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if expires.Valid {
		t.ExpiresAt = &expires.Time
	}
	if lastUsed.Valid {
		t.LastUsedAt = &lastUsed.Time
	}
	t.Revoked = revoked != 0
	if err := json.Unmarshal([]byte(scopesJSON), &t.Scopes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(accessJSON), &t.ServerAccess); err != nil {
		return nil, err
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
