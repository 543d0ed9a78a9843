// Package policy implements the request pipeline's policy-evaluation stage:
// scope and glob matching, condition triples, and deterministic tie-break over
// the persisted policy rule set.
package policy

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"mcprouter/internal/store"
)

// Context is the subject of one policy evaluation.
type Context struct {
	ClientID     string
	ServerID     string
	WorkspaceID  string
	ResourceType store.ResourceType
	ResourceName string
	Metadata     map[string]any
}

// Decision is the outcome of evaluating the rule set against a Context.
type Decision struct {
	Action PolicyAction
	RuleID string
	Reason string
}

type PolicyAction = store.PolicyAction

const (
	ActionAllow           = store.ActionAllow
	ActionDeny            = store.ActionDeny
	ActionRequireApproval = store.ActionRequireApproval
)

// Evaluator evaluates policy rules against a request context.
type Evaluator struct {
	store *store.Store
}

func NewEvaluator(s *store.Store) *Evaluator {
	return &Evaluator{store: s}
}

// Evaluate implements spec.md §4.5's five-step algorithm: gather candidates by
// scope+resourceType, filter by glob pattern, filter by conditions, sort by
// priority desc / updatedAt desc / id asc, and take the first rule's action.
// No matching rule yields a closed-by-default Decision{Action: deny}.
func (e *Evaluator) Evaluate(ctx context.Context, reqCtx Context) (Decision, error) {
	rules, err := e.store.ListEnabledPolicies(ctx, reqCtx.ResourceType)
	if err != nil {
		return Decision{}, fmt.Errorf("list policies: %w", err)
	}

	candidates := make([]*store.Policy, 0, len(rules))
	for _, r := range rules {
		if !scopeMatches(r, reqCtx) {
			continue
		}
		matched, err := filepath.Match(r.Pattern, reqCtx.ResourceName)
		if err != nil || !matched {
			continue
		}
		if !conditionsMatch(r.Conditions, reqCtx.Metadata) {
			continue
		}
		candidates = append(candidates, r)
	}

	if len(candidates) == 0 {
		return Decision{Action: ActionDeny, Reason: "no matching policy rule (default deny)"}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})

	winner := candidates[0]
	return Decision{Action: winner.Action, RuleID: winner.ID}, nil
}

func scopeMatches(r *store.Policy, reqCtx Context) bool {
	if r.Scope == store.ScopeGlobal {
		return true
	}
	switch r.Scope {
	case store.ScopeServer:
		return r.ScopeID == reqCtx.ServerID
	case store.ScopeClient:
		return r.ScopeID == reqCtx.ClientID
	case store.ScopeWorkspace:
		return r.ScopeID == reqCtx.WorkspaceID
	default:
		return false
	}
}

func conditionsMatch(conditions []store.Condition, metadata map[string]any) bool {
	for _, c := range conditions {
		if !conditionMatch(c, metadata[c.Field]) {
			return false
		}
	}
	return true
}

func conditionMatch(c store.Condition, actual any) bool {
	switch c.Op {
	case store.OpEquals:
		return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", c.Value)
	case store.OpContains:
		s, ok := actual.(string)
		if !ok {
			return false
		}
		sub, ok := c.Value.(string)
		if !ok {
			return false
		}
		return strings.Contains(s, sub)
	case store.OpMatches:
		s, ok := actual.(string)
		if !ok {
			return false
		}
		pattern, ok := c.Value.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	case store.OpGreaterThan:
		af, aok := toFloat(actual)
		bf, bok := toFloat(c.Value)
		return aok && bok && af > bf
	case store.OpLessThan:
		af, aok := toFloat(actual)
		bf, bok := toFloat(c.Value)
		return aok && bok && af < bf
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
