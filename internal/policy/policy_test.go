package policy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcprouter/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEvaluateDefaultDeny(t *testing.T) {
	s := newStore(t)
	e := NewEvaluator(s)

	d, err := e.Evaluate(context.Background(), Context{
		ServerID: "s1", ResourceType: store.ResourceTool, ResourceName: "read_file",
	})
	require.NoError(t, err)
	require.Equal(t, ActionDeny, d.Action)
	require.Empty(t, d.RuleID)
}

func TestEvaluateGlobDenyWins(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreatePolicy(ctx, &store.Policy{
		ID: "p1", Scope: store.ScopeGlobal, ResourceType: store.ResourceTool,
		Pattern: "write_*", Action: store.ActionDeny, Priority: 10, Enabled: true,
	}))

	e := NewEvaluator(s)
	d, err := e.Evaluate(ctx, Context{ServerID: "s1", ResourceType: store.ResourceTool, ResourceName: "write_file"})
	require.NoError(t, err)
	require.Equal(t, ActionDeny, d.Action)
	require.Equal(t, "p1", d.RuleID)

	d, err = e.Evaluate(ctx, Context{ServerID: "s1", ResourceType: store.ResourceTool, ResourceName: "read_file"})
	require.NoError(t, err)
	require.Equal(t, ActionDeny, d.Action) // no matching rule -> default deny
	require.Empty(t, d.RuleID)
}

func TestEvaluateTieBreakPriorityThenUpdatedAtThenID(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePolicy(ctx, &store.Policy{
		ID: "p-b", Scope: store.ScopeGlobal, ResourceType: store.ResourceTool,
		Pattern: "dangerous_*", Action: store.ActionDeny, Priority: 20, Enabled: true,
	}))
	time.Sleep(time.Millisecond)
	require.NoError(t, s.CreatePolicy(ctx, &store.Policy{
		ID: "p-a", Scope: store.ScopeGlobal, ResourceType: store.ResourceTool,
		Pattern: "dangerous_*", Action: store.ActionRequireApproval, Priority: 20, Enabled: true,
	}))

	e := NewEvaluator(s)
	d, err := e.Evaluate(ctx, Context{ServerID: "s1", ResourceType: store.ResourceTool, ResourceName: "dangerous_op"})
	require.NoError(t, err)
	// equal priority -> most recently updated wins ("p-a" created later)
	require.Equal(t, "p-a", d.RuleID)
	require.Equal(t, ActionRequireApproval, d.Action)
}

func TestEvaluateConditions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreatePolicy(ctx, &store.Policy{
		ID: "p1", Scope: store.ScopeGlobal, ResourceType: store.ResourceTool,
		Pattern: "*", Action: store.ActionDeny, Priority: 5, Enabled: true,
		Conditions: []store.Condition{{Field: "size", Op: store.OpGreaterThan, Value: 1000.0}},
	}))

	e := NewEvaluator(s)
	d, err := e.Evaluate(ctx, Context{
		ServerID: "s1", ResourceType: store.ResourceTool, ResourceName: "read_file",
		Metadata: map[string]any{"size": 500.0},
	})
	require.NoError(t, err)
	require.Equal(t, ActionDeny, d.Action)
	require.Empty(t, d.RuleID) // condition false -> rule not a candidate -> default deny

	d, err = e.Evaluate(ctx, Context{
		ServerID: "s1", ResourceType: store.ResourceTool, ResourceName: "read_file",
		Metadata: map[string]any{"size": 5000.0},
	})
	require.NoError(t, err)
	require.Equal(t, "p1", d.RuleID)
}
