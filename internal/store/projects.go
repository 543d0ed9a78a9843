package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Project scopes a set of servers and workspaces under one resolvable identity.
type Project struct {
	ID           string
	Slug         string
	Name         string
	Description  string
	RootPath     string
	ServerIDs    []string
	WorkspaceIDs []string
	Active       bool
	Settings     map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	serverIDs, err := json.Marshal(p.ServerIDs)
	if err != nil {
		return err
	}
	workspaceIDs, err := json.Marshal(p.WorkspaceIDs)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return err
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, slug, name, description, root_path, server_ids, workspace_ids, active, settings, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Slug, p.Name, p.Description, p.RootPath, string(serverIDs), string(workspaceIDs),
		boolToInt(p.Active), string(settings), p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, slug, name, description, root_path, server_ids,
		workspace_ids, active, settings, created_at, updated_at FROM projects WHERE id=?`, id)
	return scanProject(row)
}

func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, slug, name, description, root_path, server_ids,
		workspace_ids, active, settings, created_at, updated_at FROM projects WHERE slug=?`, slug)
	return scanProject(row)
}

func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, slug, name, description, root_path, server_ids,
		workspace_ids, active, settings, created_at, updated_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var active int
	var serverIDs, workspaceIDs, settings string
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.RootPath, &serverIDs,
		&workspaceIDs, &active, &settings, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Active = active != 0
	if err := json.Unmarshal([]byte(serverIDs), &p.ServerIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(workspaceIDs), &p.WorkspaceIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(settings), &p.Settings); err != nil {
		return nil, err
	}
	return &p, nil
}
