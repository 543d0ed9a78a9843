package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalExpired  ApprovalStatus = "expired"
)

// Approval is a persisted record of a require_approval policy verdict.
type Approval struct {
	ID            string
	ClientID      string
	ServerID      string
	ToolName      string
	ToolArguments map[string]any
	PolicyRuleID  string
	Status        ApprovalStatus
	RequestedAt   time.Time
	RespondedAt   *time.Time
	RespondedBy   string
	ResponseNote  string
	ExpiresAt     time.Time
}

func (s *Store) CreateApproval(ctx context.Context, a *Approval) error {
	args, err := json.Marshal(a.ToolArguments)
	if err != nil {
		return err
	}
	a.RequestedAt = now()
	if a.Status == "" {
		a.Status = ApprovalPending
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO approvals (id, client_id, server_id, tool_name, tool_arguments, policy_rule_id, status, requested_at, expires_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.ClientID, a.ServerID, a.ToolName, string(args), a.PolicyRuleID, string(a.Status),
		a.RequestedAt, a.ExpiresAt)
	return err
}

// ResolveApproval transitions a pending approval to a terminal state. It fails with
// ErrInvalidState if the approval is not currently pending.
func (s *Store) ResolveApproval(ctx context.Context, id string, status ApprovalStatus, respondedBy, note string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE approvals SET status=?, responded_at=?, responded_by=?, response_note=?
		WHERE id=? AND status=?`,
		string(status), at, respondedBy, note, id, string(ApprovalPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidState
	}
	return nil
}

var ErrInvalidState = errors.New("store: approval not pending")

func (s *Store) GetApproval(ctx context.Context, id string) (*Approval, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, client_id, server_id, tool_name, tool_arguments,
		policy_rule_id, status, requested_at, responded_at, responded_by, response_note, expires_at
		FROM approvals WHERE id=?`, id)
	return scanApproval(row)
}

func (s *Store) ListApprovals(ctx context.Context, status ApprovalStatus) ([]*Approval, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT id, client_id, server_id, tool_name, tool_arguments,
			policy_rule_id, status, requested_at, responded_at, responded_by, response_note, expires_at
			FROM approvals ORDER BY requested_at DESC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT id, client_id, server_id, tool_name, tool_arguments,
			policy_rule_id, status, requested_at, responded_at, responded_by, response_note, expires_at
			FROM approvals WHERE status=? ORDER BY requested_at DESC`, string(status))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListExpiredPending returns pending approvals whose expiry has passed, used by
// approval.Queue.CleanupExpired to catch records orphaned by a process restart.
func (s *Store) ListExpiredPending(ctx context.Context, at time.Time) ([]*Approval, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, client_id, server_id, tool_name, tool_arguments,
		policy_rule_id, status, requested_at, responded_at, responded_by, response_note, expires_at
		FROM approvals WHERE status=? AND expires_at<?`, string(ApprovalPending), at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanApproval(row rowScanner) (*Approval, error) {
	var a Approval
	var status, argsJSON string
	var respondedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.ClientID, &a.ServerID, &a.ToolName, &argsJSON, &a.PolicyRuleID,
		&status, &a.RequestedAt, &respondedAt, &a.RespondedBy, &a.ResponseNote, &a.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Status = ApprovalStatus(status)
	if respondedAt.Valid {
		a.RespondedAt = &respondedAt.Time
	}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &a.ToolArguments); err != nil {
			return nil, err
		}
	}
	return &a, nil
}
