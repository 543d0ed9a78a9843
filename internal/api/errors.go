// Package api holds the typed error-kind registry shared by the pipeline and
// the front-end: every pipeline-stage failure implements Kind() so the wire
// layer maps it onto a JSON-RPC error code without matching on message text.
package api

import "fmt"

// Kind identifies which pipeline stage produced a failure, per spec.md §7.
type Kind string

const (
	KindInputError      Kind = "input-error"
	KindAuthError       Kind = "auth-error"
	KindProjectNotFound Kind = "project-not-found"
	KindProjectInactive Kind = "project-inactive"
	KindPolicyDeny      Kind = "policy-deny"
	KindApprovalEnd     Kind = "approval-end-state"
	KindApprovalTimeout Kind = "approval-timeout"
	KindRateLimit       Kind = "rate-limit"
	KindRemoteError     Kind = "remote-error"
	KindTransportError  Kind = "transport-error"
	KindNotFound        Kind = "not-found"
	KindInternalError   Kind = "internal-error"
)

// JSONRPCCode returns the application-level JSON-RPC error code for the kind,
// per spec.md §6's registry.
func (k Kind) JSONRPCCode() int {
	switch k {
	case KindAuthError:
		return -32001
	case KindNotFound:
		return -32002
	case KindPolicyDeny:
		return -32003
	case KindApprovalEnd:
		return -32004
	case KindApprovalTimeout:
		return -32005
	case KindTransportError:
		return -32006
	case KindRateLimit:
		return -32029
	case KindInputError:
		return -32602
	case KindInternalError:
		return -32603
	default:
		return -32000
	}
}

// Error is a pipeline-stage failure carrying its Kind, a wire-safe message,
// and optional structured data (e.g. retryAfter, ruleId) attached to the
// JSON-RPC error's data field.
type Error struct {
	Kind    Kind
	Message string
	Data    map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a pipeline Error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a pipeline Error that also carries the underlying cause (logged,
// never surfaced to the client per spec.md §7's "never leaked" rule).
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithData attaches structured data (e.g. {"retryAfter": 1500}) and returns e
// for chaining.
func (e *Error) WithData(data map[string]any) *Error {
	e.Data = data
	return e
}

// NotFoundError is a lighter-weight variant used for CLI/config lookups that
// do not flow through the pipeline's JSON-RPC error mapping.
type NotFoundError struct {
	ResourceType string
	ResourceName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.ResourceType, e.ResourceName)
}

func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, ResourceName: resourceName}
}
