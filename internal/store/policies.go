package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

type PolicyScope string

const (
	ScopeGlobal    PolicyScope = "global"
	ScopeWorkspace PolicyScope = "workspace"
	ScopeServer    PolicyScope = "server"
	ScopeClient    PolicyScope = "client"
)

type ResourceType string

const (
	ResourceTool     ResourceType = "tool"
	ResourceResource ResourceType = "resource"
	ResourceServer   ResourceType = "server"
)

type PolicyAction string

const (
	ActionAllow           PolicyAction = "allow"
	ActionDeny            PolicyAction = "deny"
	ActionRequireApproval PolicyAction = "require_approval"
)

type ConditionOp string

const (
	OpEquals      ConditionOp = "equals"
	OpContains    ConditionOp = "contains"
	OpMatches     ConditionOp = "matches"
	OpGreaterThan ConditionOp = "greater_than"
	OpLessThan    ConditionOp = "less_than"
)

// Condition is a single field/op/value triple evaluated against request metadata.
type Condition struct {
	Field string      `json:"field"`
	Op    ConditionOp `json:"op"`
	Value any         `json:"value"`
}

// Policy is one rule in the policy engine.
type Policy struct {
	ID           string
	Name         string
	Scope        PolicyScope
	ScopeID      string
	ResourceType ResourceType
	Pattern      string
	Action       PolicyAction
	Priority     int
	Conditions   []Condition
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *Store) CreatePolicy(ctx context.Context, p *Policy) error {
	var condJSON sql.NullString
	if len(p.Conditions) > 0 {
		b, err := json.Marshal(p.Conditions)
		if err != nil {
			return err
		}
		condJSON = sql.NullString{String: string(b), Valid: true}
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policies (id, name, scope, scope_id, resource_type, pattern, action, priority, conditions, enabled, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, string(p.Scope), nullString(p.ScopeID), string(p.ResourceType), p.Pattern,
		string(p.Action), p.Priority, condJSON, boolToInt(p.Enabled), p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) DeletePolicy(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE id=?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// ListEnabledPolicies returns every enabled rule whose resourceType matches; the
// policy evaluator filters further by scope/pattern/conditions in-process.
func (s *Store) ListEnabledPolicies(ctx context.Context, resourceType ResourceType) ([]*Policy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, scope, scope_id, resource_type, pattern, action,
		priority, conditions, enabled, created_at, updated_at FROM policies WHERE enabled=1 AND resource_type=?`,
		string(resourceType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListPolicies(ctx context.Context) ([]*Policy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, scope, scope_id, resource_type, pattern, action,
		priority, conditions, enabled, created_at, updated_at FROM policies ORDER BY priority DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPolicy(row rowScanner) (*Policy, error) {
	var p Policy
	var scope, resourceType, action string
	var scopeID, condJSON sql.NullString
	var enabled int
	if err := row.Scan(&p.ID, &p.Name, &scope, &scopeID, &resourceType, &p.Pattern, &action,
		&p.Priority, &condJSON, &enabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Scope = PolicyScope(scope)
	p.ScopeID = scopeID.String
	p.ResourceType = ResourceType(resourceType)
	p.Action = PolicyAction(action)
	p.Enabled = enabled != 0
	if condJSON.Valid && condJSON.String != "" {
		if err := json.Unmarshal([]byte(condJSON.String), &p.Conditions); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
