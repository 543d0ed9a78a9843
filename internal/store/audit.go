package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

type AuditEventType string

const (
	AuditToolCall         AuditEventType = "tool.call"
	AuditToolError        AuditEventType = "tool.error"
	AuditTokenValidate    AuditEventType = "token.validate"
	AuditPolicyEvaluate   AuditEventType = "policy.evaluate"
	AuditApprovalRequest  AuditEventType = "approval.request"
	AuditApprovalResolved AuditEventType = "approval.resolved"
	AuditServerStart      AuditEventType = "server.start"
	AuditServerStop       AuditEventType = "server.stop"
	AuditServerCrash      AuditEventType = "server.crash"
)

// AuditEvent is an append-only record of a pipeline outcome or lifecycle event.
type AuditEvent struct {
	ID         string
	Type       AuditEventType
	ClientID   string
	ServerID   string
	ToolName   string
	Success    bool
	DurationMs int64
	Metadata   map[string]any
	Timestamp  time.Time
}

// AppendAuditEvent inserts a new event. Rows are never updated or deleted by
// ordinary operation, enforcing the append-only invariant at the call-site level.
func (s *Store) AppendAuditEvent(ctx context.Context, e *AuditEvent) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, type, client_id, server_id, tool_name, success, duration_ms, metadata, timestamp)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID, string(e.Type), e.ClientID, e.ServerID, e.ToolName, boolToInt(e.Success),
		e.DurationMs, string(meta), e.Timestamp)
	return err
}

// ListAuditEvents returns the most recent events, newest first, bounded by limit.
func (s *Store) ListAuditEvents(ctx context.Context, limit int) ([]*AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, client_id, server_id, tool_name, success,
		duration_ms, metadata, timestamp FROM audit_events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AuditEvent
	for rows.Next() {
		e, err := scanAuditEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanAuditEvent(row rowScanner) (*AuditEvent, error) {
	var e AuditEvent
	var eventType string
	var success int
	var metaJSON string
	if err := row.Scan(&e.ID, &eventType, &e.ClientID, &e.ServerID, &e.ToolName, &success,
		&e.DurationMs, &metaJSON, &e.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e.Type = AuditEventType(eventType)
	e.Success = success != 0
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			return nil, err
		}
	}
	return &e, nil
}
