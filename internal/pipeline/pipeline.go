// Package pipeline implements the request pipeline of spec.md §4.5: the fixed
// seven-stage sequence every tool call runs through between a client's bearer
// token and a downstream dispatch. Resource and prompt requests are not
// routed through it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mcprouter/internal/api"
	"mcprouter/internal/approval"
	"mcprouter/internal/auth"
	"mcprouter/internal/policy"
	"mcprouter/internal/ratelimit"
	"mcprouter/internal/store"
	"mcprouter/pkg/logging"
)

// Dispatcher performs the actual downstream call once a request clears every
// gating stage. Implemented by the aggregator against the live client registry.
type Dispatcher interface {
	CallTool(ctx context.Context, serverID, toolName string, args map[string]any) (*api.ToolCallResult, error)
}

// Config tunes the pipeline's defaults; per-key overrides live in the rate
// limiter and policy store themselves.
type Config struct {
	DefaultRateLimit       ratelimit.Config
	ApprovalDefaultTimeout time.Duration

	// Yolo skips the policy-evaluate and approval stages entirely (every
	// call is allowed, no require_approval rendezvous), the operator escape
	// hatch for local/single-user use. Off by default.
	Yolo bool
}

// Pipeline wires every stage together and runs one call end to end.
type Pipeline struct {
	store      *store.Store
	validator  *auth.Validator
	limiter    *ratelimit.Limiter
	evaluator  *policy.Evaluator
	approvals  *approval.Queue
	audit      AuditRecorder
	dispatcher Dispatcher
	cfg        Config
	now        func() time.Time
}

// AuditRecorder is the narrow interface the pipeline needs from internal/audit.
type AuditRecorder interface {
	Record(ctx context.Context, e store.AuditEvent) error
}

func New(s *store.Store, validator *auth.Validator, limiter *ratelimit.Limiter, evaluator *policy.Evaluator,
	approvals *approval.Queue, audit AuditRecorder, dispatcher Dispatcher, cfg Config) *Pipeline {
	return &Pipeline{
		store:      s,
		validator:  validator,
		limiter:    limiter,
		evaluator:  evaluator,
		approvals:  approvals,
		audit:      audit,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Call runs the full pipeline for one tool call and returns its result or a
// typed *api.Error. Exactly one audit event is written regardless of outcome.
func (p *Pipeline) Call(ctx context.Context, req api.ToolCallRequest) (*api.ToolCallResult, error) {
	started := p.now()
	audit := store.AuditEvent{
		Type:     store.AuditToolCall,
		ClientID: "",
		ServerID: req.ServerID,
		ToolName: req.ToolName,
	}

	result, pipelineErr := p.run(ctx, req, &audit)

	audit.DurationMs = p.now().Sub(started).Milliseconds()
	audit.Success = pipelineErr == nil
	if pipelineErr != nil {
		if audit.Metadata == nil {
			audit.Metadata = map[string]any{}
		}
		audit.Metadata["error"] = pipelineErr.Error()
	}
	if err := p.audit.Record(ctx, audit); err != nil {
		logging.Warn("Pipeline", "failed to record audit event: %v", err)
	}

	return result, pipelineErr
}

// WhoamiResult is the resolved identity/scope the router.whoami built-in
// reports, per spec.md §4.10's memory-primitive tools.
type WhoamiResult struct {
	ClientID  string
	ProjectID string
}

// Whoami runs the authenticate and resolve-project stages only (no rate
// limit, policy, approval, or dispatch) and reports what they resolved to.
// It is a memory primitive: it never reaches a downstream server, but it
// still writes exactly one audit event, per spec.md §4.10.
func (p *Pipeline) Whoami(ctx context.Context, tokenID, projectID string) (*WhoamiResult, error) {
	started := p.now()
	audit := store.AuditEvent{Type: store.AuditToolCall, ToolName: "router.whoami"}

	result, pipelineErr := p.runWhoami(ctx, tokenID, projectID, &audit)

	audit.DurationMs = p.now().Sub(started).Milliseconds()
	audit.Success = pipelineErr == nil
	if pipelineErr != nil {
		if audit.Metadata == nil {
			audit.Metadata = map[string]any{}
		}
		audit.Metadata["error"] = pipelineErr.Error()
	}
	if err := p.audit.Record(ctx, audit); err != nil {
		logging.Warn("Pipeline", "failed to record audit event: %v", err)
	}

	return result, pipelineErr
}

func (p *Pipeline) runWhoami(ctx context.Context, tokenID, projectID string, audit *store.AuditEvent) (*WhoamiResult, error) {
	tok, err := p.validator.Validate(ctx, tokenID)
	if err != nil {
		return nil, p.authFailure(ctx, err)
	}
	audit.ClientID = tok.ClientID

	if projectID == "" {
		return &WhoamiResult{ClientID: tok.ClientID}, nil
	}

	proj, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NewError(api.KindProjectNotFound, "project not found")
		}
		return nil, api.Wrap(api.KindInternalError, "failed to resolve project", err)
	}
	if !proj.Active {
		return nil, api.NewError(api.KindProjectInactive, "project is inactive")
	}

	return &WhoamiResult{ClientID: tok.ClientID, ProjectID: proj.ID}, nil
}

func (p *Pipeline) run(ctx context.Context, req api.ToolCallRequest, audit *store.AuditEvent) (*api.ToolCallResult, error) {
	// Stage 1: authenticate.
	tok, err := p.validator.ValidateForServer(ctx, req.TokenID, req.ServerID)
	if err != nil {
		return nil, p.authFailure(ctx, err)
	}
	audit.ClientID = tok.ClientID

	// Stage 2: resolve project (optional).
	var workspaceID string
	if req.ProjectID != "" {
		proj, err := p.store.GetProject(ctx, req.ProjectID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, api.NewError(api.KindProjectNotFound, "project not found")
			}
			return nil, api.Wrap(api.KindInternalError, "failed to resolve project", err)
		}
		if !proj.Active {
			return nil, api.NewError(api.KindProjectInactive, "project is inactive")
		}
		workspaceID = proj.ID
	}

	// Stage 3: rate-limit.
	key := fmt.Sprintf("tool:%s:%s", tok.ClientID, req.ServerID)
	rl := p.limiter.Consume(key, 1)
	if !rl.Allowed {
		return nil, api.NewError(api.KindRateLimit, "rate limit exceeded").
			WithData(map[string]any{"retryAfter": rl.RetryAfter.Milliseconds()})
	}

	// Stage 4: policy evaluate (and stage 5: approval), skipped entirely in
	// yolo mode.
	if !p.cfg.Yolo {
		decision, err := p.evaluator.Evaluate(ctx, policy.Context{
			ClientID:     tok.ClientID,
			ServerID:     req.ServerID,
			WorkspaceID:  workspaceID,
			ResourceType: store.ResourceTool,
			ResourceName: req.ToolName,
			Metadata:     req.Arguments,
		})
		if err != nil {
			return nil, api.Wrap(api.KindInternalError, "policy evaluation failed", err)
		}

		switch decision.Action {
		case policy.ActionDeny:
			return nil, api.NewError(api.KindPolicyDeny, "denied by policy").
				WithData(map[string]any{"ruleId": decision.RuleID})
		case policy.ActionRequireApproval:
			if err := p.awaitApproval(ctx, tok.ClientID, req, decision.RuleID); err != nil {
				return nil, err
			}
		}
	}

	// Stage 6: dispatch.
	result, err := p.dispatcher.CallTool(ctx, req.ServerID, req.ToolName, req.Arguments)
	if err != nil {
		return nil, p.dispatchFailure(err)
	}

	// Stage 7: audit happens in Call once run() returns.
	return result, nil
}

func (p *Pipeline) awaitApproval(ctx context.Context, clientID string, req api.ToolCallRequest, ruleID string) error {
	timeout := p.cfg.ApprovalDefaultTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	a, err := p.approvals.Open(ctx, clientID, req.ServerID, req.ToolName, ruleID, req.Arguments, timeout)
	if err != nil {
		return api.Wrap(api.KindInternalError, "failed to open approval", err)
	}

	outcome, err := p.approvals.Wait(ctx, a.ID, timeout)
	if err != nil && ctx.Err() != nil {
		return api.NewError(api.KindApprovalEnd, "approval cancelled").WithData(map[string]any{"reason": "cancelled"})
	}
	if !outcome.Approved {
		reason := outcome.Reason
		if reason == "" {
			reason = "rejected"
		}
		if reason == "expired" || reason == "timeout" {
			return api.NewError(api.KindApprovalTimeout, "approval timed out").WithData(map[string]any{"reason": reason})
		}
		return api.NewError(api.KindApprovalEnd, "approval rejected").WithData(map[string]any{"reason": reason})
	}
	return nil
}

func (p *Pipeline) authFailure(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrTokenMissing), errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenRevoked):
		return api.NewError(api.KindAuthError, "invalid or expired token")
	case errors.Is(err, auth.ErrServerDenied):
		return api.NewError(api.KindAuthError, "token not authorized for server")
	default:
		return api.Wrap(api.KindInternalError, "token validation failed", err)
	}
}

func (p *Pipeline) dispatchFailure(err error) error {
	var pipelineErr *api.Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr
	}
	return api.Wrap(api.KindTransportError, "server unavailable", err)
}
