package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	"github.com/chatkit-ai/chatkit/internal/agent"
	"github.com/chatkit-ai/chatkit/internal/event"
	"github.com/chatkit-ai/chatkit/internal/logging"
	"github.com/chatkit-ai/chatkit/pkg/types"
)

// Settings is the live configuration the manager re-reads on every send,
// so changing the model or window takes effect immediately.
type Settings interface {
	ModelID() string
	ContextWindow() int
}

// Manager owns the bounded session store and drives request turns end to
// end: single-flight per session, streaming progress, cancellation, and
// debounced persistence. At most one request streams per session at a
// time; a second send while one is in flight is a silent no-op.
type Manager struct {
	settings  Settings
	agents    *agent.Registry
	bus       *event.Bus
	persister *Persister

	mu       sync.Mutex
	store    *lru.Cache[string, *Session]
	inflight map[string]*flight
}

// flight tracks one in-progress request turn.
type flight struct {
	requestID string
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	// stopCancelWatch detaches the watcher that flips the response to
	// canceled when ctx ends. Safe to call more than once.
	stopCancelWatch func() bool
}

// NewManager creates a manager holding at most limit sessions. When the
// store overflows, the least recently used session is disposed; its
// persisted snapshot, if any, survives for later rehydration.
func NewManager(settings Settings, agents *agent.Registry, bus *event.Bus, persister *Persister, limit int) (*Manager, error) {
	m := &Manager{
		settings:  settings,
		agents:    agents,
		bus:       bus,
		persister: persister,
		inflight:  make(map[string]*flight),
	}

	store, err := lru.NewWithEvict(limit, func(id string, s *Session) {
		m.onEvict(id, s)
	})
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	m.store = store
	return m, nil
}

// onEvict runs for both capacity eviction and explicit removal. The
// caller holds m.mu in both cases.
func (m *Manager) onEvict(id string, s *Session) {
	if f, ok := m.inflight[id]; ok {
		f.cancel()
		delete(m.inflight, id)
	}
	s.Dispose()
}

// StartSession creates a session bound to the current model and returns
// it.
func (m *Manager) StartSession() *Session {
	s := newSession(ulid.Make().String(), m.settings.ModelID())

	m.mu.Lock()
	m.store.Add(s.ID(), s)
	m.mu.Unlock()

	m.bus.Publish(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{SessionID: s.ID()}})
	logging.Info().Str("sessionID", s.ID()).Str("model", s.ModelID()).Msg("session started")
	return s
}

// Session returns the session with the given id and marks it recently
// used.
func (m *Manager) Session(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Get(id)
}

// Sessions returns all live sessions, least recently used first.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, m.store.Len())
	for _, id := range m.store.Keys() {
		if s, ok := m.store.Peek(id); ok {
			out = append(out, s)
		}
	}
	return out
}

// SendRequest runs one full request turn against the session's agent,
// blocking until the response completes or is canceled. It returns the
// created request, or (nil, nil) when the session already has a request
// in flight. ErrModelChanged is returned, and session.error published,
// when the configured model no longer matches the session's binding; no
// request is created in that case.
func (m *Manager) SendRequest(ctx context.Context, sessionID string, message types.RequestMessage) (*Request, error) {
	s, ok := m.Session(sessionID)
	if !ok {
		return nil, ErrUnknownSession
	}

	if model := m.settings.ModelID(); model != s.ModelID() {
		m.bus.Publish(event.Event{Type: event.SessionError, Data: event.SessionErrorData{
			SessionID: sessionID,
			Message:   fmt.Sprintf("model changed from %s to %s; clear the session to continue", s.ModelID(), model),
		}})
		return nil, ErrModelChanged
	}

	invoker, err := m.agents.Get(message.AgentID)
	if err != nil {
		return nil, err
	}

	history := s.MessageHistory(m.settings.ContextWindow())

	m.mu.Lock()
	if _, busy := m.inflight[sessionID]; busy {
		m.mu.Unlock()
		logging.Debug().Str("sessionID", sessionID).Msg("request already in flight, ignoring send")
		return nil, nil
	}
	req := s.CreateRequest(message)
	f := m.beginFlightLocked(ctx, sessionID, req)
	m.mu.Unlock()

	m.runTurn(f, s, req, invoker, agent.InvokeRequest{
		SessionID: sessionID,
		RequestID: req.ID(),
		Message:   message,
		History:   history,
	})
	return req, nil
}

// Regenerate reruns the session's latest request: the response is reset
// and the turn replayed against the agent. Like SendRequest it is a
// silent no-op while a request is in flight.
func (m *Manager) Regenerate(ctx context.Context, sessionID string) (*Request, error) {
	s, ok := m.Session(sessionID)
	if !ok {
		return nil, ErrUnknownSession
	}

	if model := m.settings.ModelID(); model != s.ModelID() {
		m.bus.Publish(event.Event{Type: event.SessionError, Data: event.SessionErrorData{
			SessionID: sessionID,
			Message:   fmt.Sprintf("model changed from %s to %s; clear the session to continue", s.ModelID(), model),
		}})
		return nil, ErrModelChanged
	}

	req, ok := s.LatestRequest()
	if !ok {
		return nil, errors.New("no request to regenerate")
	}

	invoker, err := m.agents.Get(req.Message().AgentID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, busy := m.inflight[sessionID]; busy {
		m.mu.Unlock()
		return nil, nil
	}
	req.Response().Reset()
	f := m.beginFlightLocked(ctx, sessionID, req)
	m.mu.Unlock()

	// The regenerated turn must not see its own previous answer.
	history := s.MessageHistory(m.settings.ContextWindow())

	m.runTurn(f, s, req, invoker, agent.InvokeRequest{
		SessionID:  sessionID,
		RequestID:  req.ID(),
		Message:    req.Message(),
		Regenerate: true,
		History:    history,
	})
	return req, nil
}

// beginFlightLocked registers the single-flight slot for a turn. Caller
// holds m.mu.
func (m *Manager) beginFlightLocked(ctx context.Context, sessionID string, req *Request) *flight {
	turnCtx, cancel := context.WithCancel(ctx)
	f := &flight{requestID: req.ID(), cancel: cancel, done: make(chan struct{})}
	m.inflight[sessionID] = f

	// Cancellation, from CancelRequest, eviction, or the parent context,
	// marks the response canceled. The stop below is called on the
	// normal completion path so finishing a turn never trips it.
	f.stopCancelWatch = context.AfterFunc(turnCtx, func() {
		req.Response().Cancel()
	})
	f.ctx = turnCtx
	return f
}

// runTurn drives one invocation to completion. It owns releasing the
// single-flight slot.
func (m *Manager) runTurn(f *flight, s *Session, req *Request, invoker agent.Invoker, ireq agent.InvokeRequest) {
	resp := req.Response()
	sessionID := s.ID()

	unsubscribe := resp.OnDidChange(func() {
		m.bus.Publish(event.Event{Type: event.ResponseUpdated, Data: event.ResponseUpdatedData{
			SessionID: sessionID,
			RequestID: req.ID(),
		}})
	})

	m.bus.Publish(event.Event{Type: event.RequestStarted, Data: event.RequestStartedData{
		SessionID: sessionID,
		RequestID: req.ID(),
	}})

	defer func() {
		f.stopCancelWatch()
		f.cancel()
		unsubscribe()
		close(f.done)

		m.mu.Lock()
		if cur, ok := m.inflight[sessionID]; ok && cur == f {
			delete(m.inflight, sessionID)
		}
		m.mu.Unlock()
	}()

	onProgress := func(p types.Progress) {
		if f.ctx.Err() != nil {
			return
		}
		if err := s.AcceptResponseProgress(req.ID(), p, false); err != nil {
			logging.Debug().Err(err).
				Str("sessionID", sessionID).
				Str("requestID", req.ID()).
				Msg("progress dropped")
		}
	}

	result, err := invoker.Invoke(f.ctx, ireq, onProgress)

	if f.ctx.Err() != nil || resp.IsCanceled() {
		resp.Cancel()
		m.bus.Publish(event.Event{Type: event.RequestCanceled, Data: event.RequestCanceledData{
			SessionID: sessionID,
			RequestID: req.ID(),
		}})
		m.schedulePersist(s)
		return
	}

	// Detach the cancel watch before completing, so the deferred cancel
	// of a finished turn does not flip it to canceled.
	f.stopCancelWatch()

	switch {
	case err != nil:
		resp.SetErrorDetails(&types.ErrorDetails{Message: err.Error(), ResponseIsIncomplete: true})
	case result != nil && result.ErrorDetails != nil:
		resp.SetErrorDetails(result.ErrorDetails)
	}
	resp.Complete()

	if resp.ErrorDetails() == nil {
		// The turn context is still live here; it lets the caller or a
		// shutdown abort a slow follow-up fetch.
		if followups, ferr := invoker.Followups(f.ctx, sessionID); ferr == nil && len(followups) > 0 {
			resp.SetFollowups(followups)
		}

		m.recordExchange(s, req, resp, ireq.Regenerate)
	}

	m.bus.Publish(event.Event{Type: event.RequestCompleted, Data: event.RequestCompletedData{
		SessionID: sessionID,
		RequestID: req.ID(),
	}})
	m.schedulePersist(s)
}

// recordExchange lands the finished turn in the history store. A
// regenerated turn rewrites its earlier assistant entry in place and
// bumps the regeneration count instead of appending a duplicate pair.
func (m *Manager) recordExchange(s *Session, req *Request, resp *Response, regenerate bool) {
	history := s.History()

	if regenerate {
		if id, ok := history.EntryIDByRequest(req.ID(), types.RoleAssistant); ok {
			regenerations := 1
			if prior, ok := history.EntryAdditional(id); ok {
				// Counts read back as float64 after a persistence
				// round trip.
				switch n := prior["regenerations"].(type) {
				case int:
					regenerations = n + 1
				case float64:
					regenerations = int(n) + 1
				}
			}
			history.SetEntryContent(id, resp.Text())
			history.SetEntryAdditional(id, map[string]any{"regenerations": regenerations})
			return
		}
		// The original turn failed or was canceled before it was
		// recorded; record the pair now.
	}

	history.Add(req.Message().Prompt, map[string]any{"role": types.RoleUser, "requestId": req.ID()})
	history.Add(resp.Text(), map[string]any{
		"role":      types.RoleAssistant,
		"requestId": req.ID(),
		"agentId":   req.Message().AgentID,
	})
}

// CancelRequest cancels the session's in-flight request, if any. The
// response is marked canceled immediately; progress still in transit is
// dropped.
func (m *Manager) CancelRequest(sessionID string) error {
	m.mu.Lock()
	_, exists := m.store.Peek(sessionID)
	f, busy := m.inflight[sessionID]
	m.mu.Unlock()

	if !exists {
		return ErrUnknownSession
	}
	if !busy {
		return nil
	}

	f.cancel()
	return nil
}

// ClearSession cancels any in-flight request, removes the session from
// the store and from persistence, and publishes session.cleared.
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	_, exists := m.store.Peek(sessionID)
	if !exists {
		m.mu.Unlock()
		return ErrUnknownSession
	}
	// Remove triggers the evict callback, which cancels any in-flight
	// request and disposes the session.
	m.store.Remove(sessionID)
	m.mu.Unlock()

	if err := m.persister.Delete(ctx, sessionID); err != nil {
		logging.Warn().Err(err).Str("sessionID", sessionID).Msg("failed to delete persisted session")
	}

	m.bus.Publish(event.Event{Type: event.SessionCleared, Data: event.SessionClearedData{SessionID: sessionID}})
	return nil
}

// Rehydrate loads persisted sessions into the store. Snapshots with an
// empty history are skipped; they never accumulated a finished exchange
// worth restoring. Hydrated responses are always complete.
func (m *Manager) Rehydrate(ctx context.Context) error {
	snaps, err := m.persister.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	restored := 0
	for _, snap := range snaps {
		if len(snap.History.Messages) == 0 {
			continue
		}
		s := hydrateSession(snap)
		if s.ModelID() == "" {
			s.SetModelID(m.settings.ModelID())
		}

		m.mu.Lock()
		m.store.Add(s.ID(), s)
		m.mu.Unlock()
		restored++
	}

	logging.Info().Int("count", restored).Msg("sessions rehydrated")
	return nil
}

// Flush forces any pending persistence writes now.
func (m *Manager) Flush(ctx context.Context) {
	m.persister.Flush(ctx)
}

// Close cancels all in-flight requests, flushes persistence, and
// disposes every session.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	for _, f := range m.inflight {
		f.cancel()
	}
	flights := make([]*flight, 0, len(m.inflight))
	for _, f := range m.inflight {
		flights = append(flights, f)
	}
	m.mu.Unlock()

	for _, f := range flights {
		<-f.done
	}

	m.persister.Close(ctx)

	m.mu.Lock()
	m.store.Purge()
	m.mu.Unlock()
}

// schedulePersist marks the session dirty for the debounced writer.
func (m *Manager) schedulePersist(s *Session) {
	m.persister.Schedule(s)
}
