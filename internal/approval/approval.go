// Package approval implements the approval rendezvous of spec.md §4.6: a
// pending map with wait/notify and timeout, backed by internal/store for
// durability across the process's lifetime.
package approval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"mcprouter/internal/store"
	"mcprouter/pkg/logging"
)

// Outcome is what a waiter receives once an approval reaches a terminal state.
type Outcome struct {
	Approved bool
	Reason   string
}

type waiter struct {
	resolved     chan Outcome
	timeoutTimer *time.Timer
	once         sync.Once
}

func (w *waiter) resolve(o Outcome) {
	w.once.Do(func() {
		if w.timeoutTimer != nil {
			w.timeoutTimer.Stop()
		}
		w.resolved <- o
		close(w.resolved)
	})
}

// Queue is the approval rendezvous: one Waiter per pending approval id.
type Queue struct {
	store *store.Store

	mu      sync.Mutex
	waiters map[string]*waiter

	now func() time.Time
}

func NewQueue(s *store.Store) *Queue {
	return &Queue{
		store:   s,
		waiters: make(map[string]*waiter),
		now:     time.Now,
	}
}

// PendingCount reports the number of approvals currently awaiting a
// response in this process, for operator-facing metrics.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}

// Open creates a pending approval record, arms its expiry timer, and returns it.
func (q *Queue) Open(ctx context.Context, clientID, serverID, toolName, policyRuleID string, args map[string]any, timeout time.Duration) (*store.Approval, error) {
	a := &store.Approval{
		ID:            uuid.NewString(),
		ClientID:      clientID,
		ServerID:      serverID,
		ToolName:      toolName,
		ToolArguments: args,
		PolicyRuleID:  policyRuleID,
		Status:        store.ApprovalPending,
		ExpiresAt:     q.now().Add(timeout),
	}
	if err := q.store.CreateApproval(ctx, a); err != nil {
		return nil, fmt.Errorf("create approval: %w", err)
	}

	w := &waiter{resolved: make(chan Outcome, 1)}
	q.mu.Lock()
	q.waiters[a.ID] = w
	q.mu.Unlock()

	w.timeoutTimer = time.AfterFunc(timeout, func() {
		q.expire(a.ID, "expired")
	})

	return a, nil
}

// storePollInterval bounds how long a cross-process approval.respond (the CLI
// writing straight to the store from a separate process than the one running
// Wait) can take to unblock a waiting tool call.
const storePollInterval = 500 * time.Millisecond

// Wait blocks until the approval is resolved, the caller's context is done, or
// the caller-supplied timeout elapses — whichever happens first. The record's
// own expiry (armed in Open) composes independently and may resolve it sooner.
//
// In addition to the in-memory waiter channel (which resolves immediately
// when Respond/Cancel run in this process), Wait polls the store on an
// interval so a decision recorded by a separate process — the CLI's
// `approval respond`, writing straight to internal/store rather than going
// through this Queue — still unblocks the call.
func (q *Queue) Wait(ctx context.Context, id string, timeout time.Duration) (Outcome, error) {
	q.mu.Lock()
	w, ok := q.waiters[id]
	q.mu.Unlock()
	if !ok {
		return Outcome{}, fmt.Errorf("approval %s: no pending waiter", id)
	}

	var callerTimeout <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		callerTimeout = t.C
	}

	poll := time.NewTicker(storePollInterval)
	defer poll.Stop()

	for {
		select {
		case o := <-w.resolved:
			return o, nil
		case <-callerTimeout:
			return Outcome{Approved: false, Reason: "timeout"}, nil
		case <-ctx.Done():
			q.Cancel(id)
			return Outcome{Approved: false, Reason: "cancelled"}, ctx.Err()
		case <-poll.C:
			if o, resolved := q.pollExternalResolution(ctx, id); resolved {
				return o, nil
			}
		}
	}
}

// pollExternalResolution checks whether an approval reached a terminal state
// in the store without going through this Queue's Respond/Cancel (i.e. from
// another process), and if so resolves the local waiter to match.
func (q *Queue) pollExternalResolution(ctx context.Context, id string) (Outcome, bool) {
	a, err := q.store.GetApproval(ctx, id)
	if err != nil || a.Status == store.ApprovalPending {
		return Outcome{}, false
	}

	q.mu.Lock()
	w, ok := q.waiters[id]
	if ok {
		delete(q.waiters, id)
	}
	q.mu.Unlock()

	o := Outcome{Approved: a.Status == store.ApprovalApproved, Reason: string(a.Status)}
	if ok {
		w.resolve(o)
	}
	return o, true
}

// Respond resolves a pending approval with an operator decision. It fails with
// store.ErrInvalidState if the approval has already reached a terminal state.
func (q *Queue) Respond(ctx context.Context, id string, approved bool, respondedBy, note string) error {
	status := store.ApprovalRejected
	if approved {
		status = store.ApprovalApproved
	}
	if err := q.store.ResolveApproval(ctx, id, status, respondedBy, note, q.now()); err != nil {
		return err
	}

	q.mu.Lock()
	w := q.waiters[id]
	delete(q.waiters, id)
	q.mu.Unlock()

	if w != nil {
		w.resolve(Outcome{Approved: approved})
	}
	return nil
}

// Cancel transitions a pending approval to expired with reason=cancelled,
// reusing the expired status per SPEC_FULL.md's Open Question decision.
func (q *Queue) Cancel(id string) {
	q.expire(id, "cancelled")
}

func (q *Queue) expire(id, reason string) {
	q.mu.Lock()
	w, ok := q.waiters[id]
	if ok {
		delete(q.waiters, id)
	}
	q.mu.Unlock()
	if !ok {
		return
	}

	ctx := context.Background()
	if err := q.store.ResolveApproval(ctx, id, store.ApprovalExpired, "", reason, q.now()); err != nil {
		logging.Warn("Approval", "failed to mark %s expired: %v", id, err)
	}
	w.resolve(Outcome{Approved: false, Reason: reason})
}

// CleanupExpired scans for pending records whose expiry already passed without
// an in-memory waiter — the restart-recovery boundary spec.md §4.6 names.
func (q *Queue) CleanupExpired(ctx context.Context) (int, error) {
	expired, err := q.store.ListExpiredPending(ctx, q.now())
	if err != nil {
		return 0, err
	}
	for _, a := range expired {
		if err := q.store.ResolveApproval(ctx, a.ID, store.ApprovalExpired, "", "expired", q.now()); err != nil {
			logging.Warn("Approval", "cleanup: failed to expire %s: %v", a.ID, err)
		}
	}
	return len(expired), nil
}
