// Package agent defines the collaborator contracts for model-backed
// chat agents and a registry resolving agent ids to implementations.
package agent

import (
	"context"

	"github.com/chatkit-ai/chatkit/pkg/types"
)

// InvokeRequest carries one request to an agent backend.
type InvokeRequest struct {
	SessionID  string
	RequestID  string
	Message    types.RequestMessage
	Regenerate bool

	// History is the bounded, normalized conversation so far.
	History []types.ChatTurn
}

// Result is the settled outcome of an invocation. Backend failures are
// reported through ErrorDetails rather than an error so the turn can
// complete and render the failure inline.
type Result struct {
	ErrorDetails *types.ErrorDetails
}

// ProgressFunc receives incremental output while an invocation streams.
type ProgressFunc func(types.Progress)

// Invoker is one chat agent backend. Invoke must call onProgress zero or
// more times before returning and must stop emitting promptly once ctx
// is canceled.
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest, onProgress ProgressFunc) (*Result, error)

	// Followups suggests next user messages after a completed turn.
	Followups(ctx context.Context, sessionID string) ([]types.Followup, error)
}
