package chat

import (
	"github.com/chatkit-ai/chatkit/pkg/types"
)

// Request pairs one user message with its accumulating response for the
// lifetime of the turn, including regenerate cycles that reuse the same
// request id.
type Request struct {
	id      string
	message types.RequestMessage

	response *Response
}

func newRequest(id, sessionID string, message types.RequestMessage) *Request {
	return &Request{
		id:       id,
		message:  message,
		response: newResponse(id, sessionID, message.AgentID),
	}
}

// hydrateRequest reconstructs a request and its completed response from
// a persisted snapshot.
func hydrateRequest(sessionID string, snap types.RequestSnapshot) *Request {
	return &Request{
		id:       snap.RequestID,
		message:  snap.Message,
		response: hydrateResponse(snap.RequestID, sessionID, snap.Message.AgentID, snap.Response),
	}
}

// ID returns the request id.
func (q *Request) ID() string { return q.id }

// Message returns the originating user message.
func (q *Request) Message() types.RequestMessage { return q.message }

// Response returns the response aggregate for this turn.
func (q *Request) Response() *Response { return q.response }

// Snapshot captures the request and its response for persistence.
func (q *Request) Snapshot() types.RequestSnapshot {
	return types.RequestSnapshot{
		RequestID: q.id,
		Message:   q.message,
		Response:  q.response.Snapshot(),
	}
}

// Dispose releases the response's listeners.
func (q *Request) Dispose() {
	q.response.Dispose()
}
