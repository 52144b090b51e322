package chat

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chatkit-ai/chatkit/internal/logging"
	"github.com/chatkit-ai/chatkit/pkg/types"
)

// requestCounter feeds request id suffixes. Process-wide so ids stay
// unique even when a session is cleared and recreated within one run.
var requestCounter atomic.Uint64

// Session owns the ordered request list and the conversation history
// side-store for one chat thread. Sessions are bound to the model they
// were created under; the manager enforces the binding at send time.
type Session struct {
	id string

	mu       sync.Mutex
	modelID  string
	requests []*Request
	byID     map[string]*Request

	history *History

	onDidChange *emitter[string]
}

func newSession(id, modelID string) *Session {
	return &Session{
		id:          id,
		modelID:     modelID,
		byID:        make(map[string]*Request),
		history:     newHistory(),
		onDidChange: newEmitter[string](),
	}
}

// hydrateSession reconstructs a session and its completed requests from
// a persisted snapshot.
func hydrateSession(snap types.SessionSnapshot) *Session {
	s := &Session{
		id:          snap.SessionID,
		modelID:     snap.ModelID,
		byID:        make(map[string]*Request),
		history:     hydrateHistory(snap.History),
		onDidChange: newEmitter[string](),
	}
	for _, rs := range snap.Requests {
		req := hydrateRequest(s.id, rs)
		s.requests = append(s.requests, req)
		s.byID[req.ID()] = req
		s.forward(req)
	}
	return s
}

// forward re-emits a request's response changes as session changes keyed
// by request id.
func (s *Session) forward(req *Request) {
	id := req.ID()
	req.Response().OnDidChange(func() {
		s.onDidChange.fire(id)
	})
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ModelID returns the model the session is bound to.
func (s *Session) ModelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelID
}

// SetModelID rebinds the session, typically during rehydration of
// legacy snapshots that never recorded a model.
func (s *Session) SetModelID(modelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelID = modelID
}

// History returns the conversation side-store.
func (s *Session) History() *History { return s.history }

// OnDidChange subscribes to response changes across all requests of the
// session. The listener receives the request id that changed.
func (s *Session) OnDidChange(fn func(requestID string)) func() {
	return s.onDidChange.subscribe(fn)
}

// CreateRequest appends a new request with a fresh id of the form
// "{sessionID}_request_{n}".
func (s *Session) CreateRequest(message types.RequestMessage) *Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("%s_request_%d", s.id, requestCounter.Add(1))
	req := newRequest(id, s.id, message)
	s.requests = append(s.requests, req)
	s.byID[id] = req
	s.forward(req)
	return req
}

// Request returns the request with the given id, if present.
func (s *Session) Request(id string) (*Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.byID[id]
	return req, ok
}

// Requests returns all requests in creation order.
func (s *Session) Requests() []*Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Request(nil), s.requests...)
}

// LatestRequest returns the most recently created request, if any.
func (s *Session) LatestRequest() (*Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return nil, false
	}
	return s.requests[len(s.requests)-1], true
}

// AcceptResponseProgress routes a progress event to the named request's
// response. Unrecognized progress kinds are logged and dropped so an
// agent emitting a newer event vocabulary degrades gracefully instead of
// failing the turn.
func (s *Session) AcceptResponseProgress(requestID string, progress types.Progress, quiet bool) error {
	req, ok := s.Request(requestID)
	if !ok {
		return fmt.Errorf("request not found: %s", requestID)
	}

	if _, raw := progress.(types.RawProgress); raw {
		logging.Warn().
			Str("sessionID", s.id).
			Str("requestID", requestID).
			Str("kind", progress.ProgressKind()).
			Msg("unknown progress kind, dropped")
		return nil
	}

	return req.Response().UpdateContent(progress, quiet)
}

// MessageHistory derives normalized turns from completed requests, for
// re-submission to a model. Only completed, non-canceled turns
// contribute. limit caps the number of most recent request groups (one
// user/assistant exchange each); zero or negative means no cap.
func (s *Session) MessageHistory(limit int) []types.ChatTurn {
	s.mu.Lock()
	requests := append([]*Request(nil), s.requests...)
	s.mu.Unlock()

	groups := make([][]types.ChatTurn, 0, len(requests))
	for _, req := range requests {
		resp := req.Response()
		if !resp.IsComplete() || resp.IsCanceled() {
			continue
		}

		// Parts translate in emission order: text parts become
		// assistant turns, tool calls become a paired tool-call and
		// tool-result turn, structural parts are skipped.
		group := []types.ChatTurn{{Role: types.RoleUser, Content: req.Message().Prompt}}
		for _, part := range resp.Parts() {
			switch p := part.(type) {
			case *types.MarkdownPart:
				if p.Content.Value != "" {
					group = append(group, types.ChatTurn{Role: types.RoleAssistant, Content: p.Content.Value})
				}
			case *types.AsyncPart:
				if p.Content != "" {
					group = append(group, types.ChatTurn{Role: types.RoleAssistant, Content: p.Content})
				}
			case *types.ToolCallPart:
				group = append(group,
					types.ChatTurn{
						Role: types.RoleAssistant,
						ToolCall: &types.ToolCallTurn{
							CallID: p.Call.ID,
							Name:   p.Call.Function.Name,
							Args:   parseJSONObject(p.Call.Function.Arguments),
						},
					},
					types.ChatTurn{
						Role: types.RoleTool,
						ToolResult: &types.ToolResultTurn{
							CallID: p.Call.ID,
							Name:   p.Call.Function.Name,
							Result: parseJSONObject(p.Call.Result),
						},
					},
				)
			}
		}
		groups = append(groups, group)
	}

	if limit > 0 && len(groups) > limit {
		groups = groups[len(groups)-limit:]
	}

	var turns []types.ChatTurn
	for _, g := range groups {
		turns = append(turns, g...)
	}
	return turns
}

// Snapshot captures the session for persistence.
func (s *Session) Snapshot() types.SessionSnapshot {
	s.mu.Lock()
	requests := append([]*Request(nil), s.requests...)
	modelID := s.modelID
	s.mu.Unlock()

	snap := types.SessionSnapshot{
		SessionID: s.id,
		ModelID:   modelID,
		History:   s.history.Snapshot(),
	}
	for _, req := range requests {
		snap.Requests = append(snap.Requests, req.Snapshot())
	}
	return snap
}

// Dispose releases all listeners held by the session and its requests.
func (s *Session) Dispose() {
	s.mu.Lock()
	requests := append([]*Request(nil), s.requests...)
	s.mu.Unlock()

	for _, req := range requests {
		req.Dispose()
	}
	s.onDidChange.dispose()
}
