package types

// ResponseSnapshot is the persisted public state of a response. Hydrated
// responses are always complete; persisted turns are never resumed
// mid-stream.
type ResponseSnapshot struct {
	IsCanceled       bool          `json:"isCanceled"`
	ResponseText     string        `json:"responseText"`
	ResponseContents PartList      `json:"responseContents"`
	ResponseParts    PartList      `json:"responseParts"`
	ErrorDetails     *ErrorDetails `json:"errorDetails,omitempty"`
	Followups        []Followup    `json:"followups,omitempty"`
}

// RequestSnapshot pairs a request's message with its response snapshot.
type RequestSnapshot struct {
	RequestID string           `json:"requestId"`
	Message   RequestMessage   `json:"message"`
	Response  ResponseSnapshot `json:"response"`
}

// HistoryEntrySnapshot is one persisted conversation-history entry.
type HistoryEntrySnapshot struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Additional map[string]any `json:"additional,omitempty"`
}

// HistorySnapshot is the persisted conversation-history side-store.
type HistorySnapshot struct {
	Additional map[string]any         `json:"additional,omitempty"`
	Messages   []HistoryEntrySnapshot `json:"messages"`
}

// SessionSnapshot is the persisted form of one session. Sessions with an
// empty history are skipped during rehydration.
type SessionSnapshot struct {
	SessionID string            `json:"sessionId"`
	ModelID   string            `json:"modelId,omitempty"`
	History   HistorySnapshot   `json:"history"`
	Requests  []RequestSnapshot `json:"requests"`
}
