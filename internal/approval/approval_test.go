package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcprouter/internal/store"
)

func newQueue(t *testing.T) *Queue {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewQueue(s)
}

func TestApproveResolvesWaiter(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	a, err := q.Open(ctx, "c1", "s1", "dangerous_op", "p1", nil, time.Minute)
	require.NoError(t, err)

	done := make(chan Outcome, 1)
	go func() {
		o, err := q.Wait(ctx, a.ID, 0)
		require.NoError(t, err)
		done <- o
	}()

	require.NoError(t, q.Respond(ctx, a.ID, true, "operator", "looks fine"))

	select {
	case o := <-done:
		require.True(t, o.Approved)
	case <-time.After(time.Second):
		t.Fatal("waiter never resolved")
	}
}

func TestRespondAfterTerminalFails(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	a, err := q.Open(ctx, "c1", "s1", "dangerous_op", "p1", nil, time.Minute)
	require.NoError(t, err)
	require.NoError(t, q.Respond(ctx, a.ID, true, "operator", ""))

	err = q.Respond(ctx, a.ID, false, "operator", "too late")
	require.ErrorIs(t, err, store.ErrInvalidState)
}

func TestWaitTimesOutAsExpired(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	a, err := q.Open(ctx, "c1", "s1", "dangerous_op", "p1", nil, 20*time.Millisecond)
	require.NoError(t, err)

	o, err := q.Wait(ctx, a.ID, time.Second)
	require.NoError(t, err)
	require.False(t, o.Approved)
	require.Equal(t, "expired", o.Reason)

	got, err := q.store.GetApproval(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, store.ApprovalExpired, got.Status)
}

func TestWaitResolvesFromExternalStoreWrite(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	a, err := q.Open(ctx, "c1", "s1", "dangerous_op", "p1", nil, time.Minute)
	require.NoError(t, err)

	done := make(chan Outcome, 1)
	go func() {
		o, err := q.Wait(ctx, a.ID, 0)
		require.NoError(t, err)
		done <- o
	}()

	// Simulate a separate process (the CLI) resolving the approval by
	// writing straight to the store, bypassing this Queue's Respond.
	require.NoError(t, q.store.ResolveApproval(ctx, a.ID, store.ApprovalApproved, "operator", "via cli", time.Now()))

	select {
	case o := <-done:
		require.True(t, o.Approved)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never resolved via store poll")
	}
}

func TestCancelBeforeResponseThenLateRespondFails(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	a, err := q.Open(ctx, "c1", "s1", "dangerous_op", "p1", nil, time.Minute)
	require.NoError(t, err)

	done := make(chan Outcome, 1)
	go func() {
		o, _ := q.Wait(ctx, a.ID, 0)
		done <- o
	}()

	q.Cancel(a.ID)

	select {
	case o := <-done:
		require.False(t, o.Approved)
		require.Equal(t, "cancelled", o.Reason)
	case <-time.After(time.Second):
		t.Fatal("waiter never resolved")
	}

	err = q.Respond(ctx, a.ID, true, "operator", "")
	require.ErrorIs(t, err, store.ErrInvalidState)
}
