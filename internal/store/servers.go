package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Transport identifies how the router talks to a downstream MCP server.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
	TransportSSE   Transport = "sse"
)

// ServerStatus is the lifecycle state of a server descriptor.
type ServerStatus string

const (
	ServerStopped  ServerStatus = "stopped"
	ServerStarting ServerStatus = "starting"
	ServerRunning  ServerStatus = "running"
	ServerStopping ServerStatus = "stopping"
	ServerError    ServerStatus = "error"
)

// Server is a downstream MCP server descriptor.
type Server struct {
	ID              string
	Name            string
	Slug            string
	Transport       Transport
	Command         string
	Args            []string
	Env             map[string]string
	URL             string
	Headers         map[string]string
	TimeoutSeconds  int
	Status          ServerStatus
	ToolPrefix      string
	AutoStart       bool
	ProjectID       string
	ToolPermissions map[string]bool
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var ErrNotFound = errors.New("store: not found")

func (s *Store) CreateServer(ctx context.Context, srv *Server) error {
	if srv.ID == "" {
		return fmt.Errorf("server id required")
	}
	args, err := json.Marshal(srv.Args)
	if err != nil {
		return err
	}
	env, err := json.Marshal(srv.Env)
	if err != nil {
		return err
	}
	headers, err := json.Marshal(srv.Headers)
	if err != nil {
		return err
	}
	perms, err := json.Marshal(srv.ToolPermissions)
	if err != nil {
		return err
	}
	srv.CreatedAt = now()
	srv.UpdatedAt = srv.CreatedAt
	if srv.Status == "" {
		srv.Status = ServerStopped
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO servers (id, name, slug, transport, command, args, env, url, headers, timeout_seconds, status,
			tool_prefix, auto_start, project_id, tool_permissions, last_error, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		srv.ID, srv.Name, srv.Slug, string(srv.Transport), srv.Command, string(args), string(env),
		srv.URL, string(headers), srv.TimeoutSeconds, string(srv.Status), srv.ToolPrefix, boolToInt(srv.AutoStart),
		nullString(srv.ProjectID), string(perms), srv.LastError, srv.CreatedAt, srv.UpdatedAt)
	return err
}

func (s *Store) UpdateServerStatus(ctx context.Context, id string, status ServerStatus, lastErr string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE servers SET status=?, last_error=?, updated_at=? WHERE id=?`,
		string(status), lastErr, now(), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

const serverColumns = `id, name, slug, transport, command, args, env, url, headers, timeout_seconds, status,
		tool_prefix, auto_start, project_id, tool_permissions, last_error, created_at, updated_at`

func (s *Store) GetServer(ctx context.Context, id string) (*Server, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE id=?`, id)
	return scanServer(row)
}

func (s *Store) GetServerBySlug(ctx context.Context, slug string) (*Server, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE slug=?`, slug)
	return scanServer(row)
}

func (s *Store) ListServers(ctx context.Context) ([]*Server, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, srv)
	}
	return out, rows.Err()
}

func (s *Store) DeleteServer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE id=?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServer(row rowScanner) (*Server, error) {
	var srv Server
	var transport, status, argsJSON, envJSON, headersJSON, permsJSON string
	var projectID sql.NullString
	var autoStart int
	if err := row.Scan(&srv.ID, &srv.Name, &srv.Slug, &transport, &srv.Command, &argsJSON, &envJSON,
		&srv.URL, &headersJSON, &srv.TimeoutSeconds, &status, &srv.ToolPrefix, &autoStart, &projectID,
		&permsJSON, &srv.LastError, &srv.CreatedAt, &srv.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	srv.Transport = Transport(transport)
	srv.Status = ServerStatus(status)
	srv.AutoStart = autoStart != 0
	srv.ProjectID = projectID.String
	if err := json.Unmarshal([]byte(argsJSON), &srv.Args); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(envJSON), &srv.Env); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(headersJSON), &srv.Headers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(permsJSON), &srv.ToolPermissions); err != nil {
		return nil, err
	}
	return &srv, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
