package event

// SessionCreatedData is the payload of session.created.
type SessionCreatedData struct {
	SessionID string `json:"sessionId"`
}

// SessionClearedData is the payload of session.cleared.
type SessionClearedData struct {
	SessionID string `json:"sessionId"`
}

// SessionErrorData is the payload of session.error. It reports
// recoverable conditions such as a model change mid-session.
type SessionErrorData struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// RequestStartedData is the payload of request.started.
type RequestStartedData struct {
	SessionID string `json:"sessionId"`
	RequestID string `json:"requestId"`
}

// RequestCompletedData is the payload of request.completed.
type RequestCompletedData struct {
	SessionID string `json:"sessionId"`
	RequestID string `json:"requestId"`
}

// RequestCanceledData is the payload of request.canceled.
type RequestCanceledData struct {
	SessionID string `json:"sessionId"`
	RequestID string `json:"requestId"`
}

// ResponseUpdatedData is the payload of response.updated, fired as a
// response accumulates progress.
type ResponseUpdatedData struct {
	SessionID string `json:"sessionId"`
	RequestID string `json:"requestId"`
}
