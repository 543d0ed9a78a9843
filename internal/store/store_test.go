package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestServerCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	srv := &Server{
		ID:        "s1",
		Name:      "Filesystem",
		Slug:      "filesystem",
		Transport: TransportStdio,
		Command:   "mcp-fs",
		Args:      []string{"--root", "/tmp"},
		Env:       map[string]string{"FOO": "bar"},
		AutoStart: true,
	}
	require.NoError(t, s.CreateServer(ctx, srv))

	got, err := s.GetServerBySlug(ctx, "filesystem")
	require.NoError(t, err)
	require.Equal(t, "s1", got.ID)
	require.True(t, got.AutoStart)
	require.Equal(t, []string{"--root", "/tmp"}, got.Args)

	require.NoError(t, s.UpdateServerStatus(ctx, "s1", ServerRunning, ""))
	got, err = s.GetServer(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, ServerRunning, got.Status)

	list, err := s.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteServer(ctx, "s1"))
	_, err = s.GetServer(ctx, "s1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTokenServerAccess(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tok := &Token{
		ID:           "t1",
		ClientID:     "c1",
		ServerAccess: map[string]bool{"s1": true, "s2": false},
	}
	require.NoError(t, s.CreateToken(ctx, tok))

	got, err := s.GetToken(ctx, "t1")
	require.NoError(t, err)
	require.True(t, got.AllowedForServer("s1"))
	require.False(t, got.AllowedForServer("s2"))
	require.False(t, got.AllowedForServer("s3")) // absent key denies

	require.NoError(t, s.RevokeToken(ctx, "t1"))
	got, err = s.GetToken(ctx, "t1")
	require.NoError(t, err)
	require.True(t, got.Revoked)
}

func TestApprovalLifecycleIsFinalOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &Approval{
		ID:       "a1",
		ClientID: "c1",
		ServerID: "s1",
		ToolName: "dangerous_op",
	}
	require.NoError(t, s.CreateApproval(ctx, a))

	require.NoError(t, s.ResolveApproval(ctx, "a1", ApprovalApproved, "operator", "ok", a.RequestedAt))

	// second resolution must fail: approval already terminal
	err := s.ResolveApproval(ctx, "a1", ApprovalRejected, "operator", "too late", a.RequestedAt)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestAuditEventsAppendOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendAuditEvent(ctx, &AuditEvent{
		ID: "e1", Type: AuditToolCall, ClientID: "c1", ServerID: "s1", ToolName: "read_file", Success: true,
	}))
	require.NoError(t, s.AppendAuditEvent(ctx, &AuditEvent{
		ID: "e2", Type: AuditToolCall, ClientID: "c1", ServerID: "s1", ToolName: "write_file", Success: false,
		Metadata: map[string]any{"error": "denied by policy"},
	}))

	events, err := s.ListAuditEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "e2", events[0].ID) // newest first
}
