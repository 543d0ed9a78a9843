// Package audit is the append-only sink every pipeline stage writes through:
// one row in internal/store per terminal outcome, mirrored to the teacher's
// structured [AUDIT] log line via pkg/logging.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mcprouter/internal/store"
	"mcprouter/pkg/logging"
)

// Sink records audit events to the store and the structured log.
type Sink struct {
	store *store.Store
	now   func() time.Time
}

func NewSink(s *store.Store) *Sink {
	return &Sink{store: s, now: time.Now}
}

// Record writes one audit event. success/failure outcome is mirrored to
// logging.Audit so operators can grep [AUDIT] lines without a DB query.
func (s *Sink) Record(ctx context.Context, e store.AuditEvent) error {
	e.ID = uuid.NewString()
	e.Timestamp = s.now()

	outcome := "success"
	var errMsg string
	if !e.Success {
		outcome = "failure"
		if e.Metadata != nil {
			if v, ok := e.Metadata["error"].(string); ok {
				errMsg = v
			}
		}
	}

	logging.Audit(logging.AuditEvent{
		Action:  string(e.Type),
		Outcome: outcome,
		UserID:  logging.TruncateSessionID(e.ClientID),
		Target:  fmt.Sprintf("%s/%s", e.ServerID, e.ToolName),
		Details: fmt.Sprintf("duration_ms=%d", e.DurationMs),
		Error:   errMsg,
	})

	if err := s.store.AppendAuditEvent(ctx, &e); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Tail returns the most recent audit events, newest first.
func (s *Sink) Tail(ctx context.Context, limit int) ([]*store.AuditEvent, error) {
	return s.store.ListAuditEvents(ctx, limit)
}
