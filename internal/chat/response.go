package chat

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/chatkit-ai/chatkit/internal/logging"
	"github.com/chatkit-ai/chatkit/pkg/types"
)

// Response is the mutable, progressively accumulated output of one
// assistant turn. All mutation goes through UpdateContent and the
// terminal operations; readers always observe a response between
// mutations, never mid-mutation.
type Response struct {
	mu sync.Mutex

	requestID string
	sessionID string
	agentID   string

	parts    []types.Part
	contents []types.Part
	text     string

	isComplete bool
	isCanceled bool

	errorDetails *types.ErrorDetails
	followups    []types.Followup

	onDidChange *emitter[struct{}]
}

func newResponse(requestID, sessionID, agentID string) *Response {
	return &Response{
		requestID:   requestID,
		sessionID:   sessionID,
		agentID:     agentID,
		onDidChange: newEmitter[struct{}](),
	}
}

// hydrateResponse reconstructs a response from a persisted snapshot.
// Hydrated responses are always complete; persisted turns are never
// resumed mid-stream.
func hydrateResponse(requestID, sessionID, agentID string, snap types.ResponseSnapshot) *Response {
	return &Response{
		requestID:    requestID,
		sessionID:    sessionID,
		agentID:      agentID,
		parts:        snap.ResponseParts,
		contents:     snap.ResponseContents,
		text:         snap.ResponseText,
		isComplete:   true,
		isCanceled:   snap.IsCanceled,
		errorDetails: snap.ErrorDetails,
		followups:    snap.Followups,
		onDidChange:  newEmitter[struct{}](),
	}
}

// RequestID returns the id of the owning request.
func (r *Response) RequestID() string { return r.requestID }

// SessionID returns the id of the owning session.
func (r *Response) SessionID() string { return r.sessionID }

// AgentID returns the target agent of the turn.
func (r *Response) AgentID() string { return r.agentID }

// Parts returns the raw accumulated parts in emission order.
func (r *Response) Parts() []types.Part {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Part(nil), r.parts...)
}

// Contents returns the coalesced, display-ready parts.
func (r *Response) Contents() []types.Part {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Part(nil), r.contents...)
}

// Text returns the flattened projection of all parts.
func (r *Response) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// IsComplete reports whether the turn has finished (or been canceled).
func (r *Response) IsComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isComplete
}

// IsCanceled reports whether the turn was canceled. Canceled implies
// complete.
func (r *Response) IsCanceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isCanceled
}

// ErrorDetails returns the backend failure attached to the turn, if any.
func (r *Response) ErrorDetails() *types.ErrorDetails {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorDetails
}

// Followups returns the suggestions offered after completion, if any.
func (r *Response) Followups() []types.Followup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Followup(nil), r.followups...)
}

// OnDidChange subscribes to change notifications and returns an
// unsubscribe function.
func (r *Response) OnDidChange(fn func()) func() {
	return r.onDidChange.subscribe(func(struct{}) { fn() })
}

// UpdateContent applies one progress event to the accumulated parts and
// rederives the text and coalesced views. With quiet set the change
// notification is suppressed, which callers use to batch the UI update
// when an async resolution settles.
func (r *Response) UpdateContent(progress types.Progress, quiet bool) error {
	r.mu.Lock()

	if r.isComplete {
		r.mu.Unlock()
		return ErrResponseComplete
	}

	switch p := progress.(type) {
	case types.ContentProgress:
		r.appendMarkdownLocked(types.Markdown{Value: p.Text})
	case types.MarkdownProgress:
		r.appendMarkdownLocked(p.Content)
	case types.ReasoningProgress:
		r.appendReasoningLocked(p.Text)
	case types.AsyncProgress:
		part := &types.AsyncPart{ID: newPartID(), Kind: types.PartKindAsync, Content: p.Placeholder}
		r.parts = append(r.parts, part)
		if p.Resolved != nil {
			go r.awaitResolution(part.ID, p.Resolved, quiet)
		}
	case types.TreeDataProgress:
		r.parts = append(r.parts, &types.TreeDataPart{ID: newPartID(), Kind: types.PartKindTreeData, Data: p.Data})
	case types.ComponentProgress:
		r.parts = append(r.parts, &types.ComponentPart{
			ID:        newPartID(),
			Kind:      types.PartKindComponent,
			Component: p.Component,
			Value:     p.Value,
		})
	case types.ToolCallProgress:
		r.upsertToolCallLocked(p.Call)
	default:
		r.mu.Unlock()
		return fmt.Errorf("unhandled progress kind %q", progress.ProgressKind())
	}

	r.refreshLocked()
	r.mu.Unlock()

	if !quiet {
		r.onDidChange.fire(struct{}{})
	}
	return nil
}

// appendMarkdownLocked appends md to a trailing markdown part, or pushes
// a new one when the last part is of a different kind.
func (r *Response) appendMarkdownLocked(md types.Markdown) {
	if n := len(r.parts); n > 0 {
		if last, ok := r.parts[n-1].(*types.MarkdownPart); ok {
			last.Content = last.Content.Append(md)
			return
		}
	}
	r.parts = append(r.parts, &types.MarkdownPart{ID: newPartID(), Kind: types.PartKindMarkdown, Content: md})
}

// appendReasoningLocked appends a chain-of-thought delta to a trailing
// reasoning part, or pushes a new one. A leading <think> tag is stripped
// when the delta opens a new part; deltas continuing an existing part
// are appended verbatim.
func (r *Response) appendReasoningLocked(text string) {
	if n := len(r.parts); n > 0 {
		if last, ok := r.parts[n-1].(*types.ReasoningPart); ok {
			last.Content += text
			return
		}
	}
	text = strings.TrimPrefix(text, "<think>")
	r.parts = append(r.parts, &types.ReasoningPart{ID: newPartID(), Kind: types.PartKindReasoning, Content: text})
}

// upsertToolCallLocked replaces the payload of an existing part with the
// same call id, or pushes a new part.
func (r *Response) upsertToolCallLocked(call types.ToolCall) {
	for _, part := range r.parts {
		if tc, ok := part.(*types.ToolCallPart); ok && tc.Call.ID == call.ID {
			tc.Call = call
			return
		}
	}
	r.parts = append(r.parts, &types.ToolCallPart{ID: newPartID(), Kind: types.PartKindToolCall, Call: call})
}

// awaitResolution waits for an async resolution and lands it at the
// reserved part, located by identity rather than position so ordering
// survives any number of parts pushed in the meantime.
func (r *Response) awaitResolution(partID string, resolved <-chan types.AsyncValue, quiet bool) {
	value, ok := <-resolved
	if !ok {
		return
	}

	r.mu.Lock()
	if r.isComplete {
		r.mu.Unlock()
		logging.Debug().
			Str("requestID", r.requestID).
			Str("partID", partID).
			Msg("async resolution arrived after completion, dropped")
		return
	}

	replaced := false
	for i, part := range r.parts {
		if part.PartID() == partID {
			r.parts[i] = resolvedPart(partID, value)
			replaced = true
			break
		}
	}
	if replaced {
		r.refreshLocked()
	}
	r.mu.Unlock()

	// A reset between reservation and settlement removes the
	// placeholder; the stale resolution is dropped.
	if replaced && !quiet {
		r.onDidChange.fire(struct{}{})
	}
}

// resolvedPart coerces a settled async value to a part. Strings and
// markdown values become markdown parts; any other part is used as-is.
func resolvedPart(partID string, value types.AsyncValue) types.Part {
	switch {
	case value.Part != nil:
		return value.Part
	case value.Markdown != nil:
		return &types.MarkdownPart{ID: partID, Kind: types.PartKindMarkdown, Content: *value.Markdown}
	default:
		return &types.MarkdownPart{ID: partID, Kind: types.PartKindMarkdown, Content: types.Markdown{Value: value.Text}}
	}
}

// refreshLocked rederives text and contents from parts.
func (r *Response) refreshLocked() {
	projections := make([]string, 0, len(r.parts))
	for _, part := range r.parts {
		switch p := part.(type) {
		case *types.MarkdownPart:
			projections = append(projections, p.Content.Value)
		case *types.AsyncPart:
			projections = append(projections, p.Content)
		case *types.ToolCallPart:
			projections = append(projections, p.Call.Function.Name)
		default:
			projections = append(projections, "")
		}
	}
	r.text = strings.Join(projections, "\n\n")
	r.contents = coalesce(r.parts)
}

// coalesce folds parts left to right, merging every run of consecutive
// markdown parts into one part that keeps the trust flag of the first in
// the run. Other kinds pass through unchanged and in place. Running the
// fold on an already-coalesced sequence is a no-op.
func coalesce(parts []types.Part) []types.Part {
	out := make([]types.Part, 0, len(parts))
	for _, part := range parts {
		md, ok := part.(*types.MarkdownPart)
		if !ok {
			out = append(out, part)
			continue
		}
		if n := len(out); n > 0 {
			if prev, ok := out[n-1].(*types.MarkdownPart); ok {
				out[n-1] = &types.MarkdownPart{ID: prev.ID, Kind: types.PartKindMarkdown, Content: prev.Content.Append(md.Content)}
				continue
			}
		}
		out = append(out, &types.MarkdownPart{ID: md.ID, Kind: types.PartKindMarkdown, Content: md.Content})
	}
	return out
}

// Complete marks the turn finished and notifies.
func (r *Response) Complete() {
	r.mu.Lock()
	r.isComplete = true
	r.mu.Unlock()

	r.onDidChange.fire(struct{}{})
}

// Cancel marks the turn canceled (and therefore complete) and notifies.
// Canceling an already-completed turn is a no-op.
func (r *Response) Cancel() {
	r.mu.Lock()
	if r.isComplete {
		r.mu.Unlock()
		return
	}
	r.isComplete = true
	r.isCanceled = true
	r.mu.Unlock()

	r.onDidChange.fire(struct{}{})
}

// Reset returns the response to its empty, incomplete state for a
// regenerate cycle reusing the same request.
func (r *Response) Reset() {
	r.mu.Lock()
	r.parts = nil
	r.contents = nil
	r.text = ""
	r.isComplete = false
	r.isCanceled = false
	r.errorDetails = nil
	r.followups = nil
	r.mu.Unlock()

	r.onDidChange.fire(struct{}{})
}

// SetErrorDetails attaches backend failure details and notifies.
func (r *Response) SetErrorDetails(details *types.ErrorDetails) {
	r.mu.Lock()
	r.errorDetails = details
	r.mu.Unlock()

	r.onDidChange.fire(struct{}{})
}

// SetFollowups attaches post-completion suggestions and notifies.
func (r *Response) SetFollowups(followups []types.Followup) {
	r.mu.Lock()
	r.followups = append([]types.Followup(nil), followups...)
	r.mu.Unlock()

	r.onDidChange.fire(struct{}{})
}

// Snapshot captures the public state for persistence.
func (r *Response) Snapshot() types.ResponseSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return types.ResponseSnapshot{
		IsCanceled:       r.isCanceled,
		ResponseText:     r.text,
		ResponseContents: append(types.PartList(nil), r.contents...),
		ResponseParts:    append(types.PartList(nil), r.parts...),
		ErrorDetails:     r.errorDetails,
		Followups:        append([]types.Followup(nil), r.followups...),
	}
}

// Dispose drops all change listeners.
func (r *Response) Dispose() {
	r.onDidChange.dispose()
}

func newPartID() string {
	return ulid.Make().String()
}
