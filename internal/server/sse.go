// SSE Implementation Note:
// This file contains a custom Server-Sent Events (SSE) implementation
// rather than using a third-party package like r3labs/sse. The format is
// a handful of lines, it integrates directly with the internal event
// bus, and it supports session-based filtering; an SSE framework would
// add weight without covering either need.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// SSEHeartbeatInterval is the interval for SSE heartbeats.
	SSEHeartbeatInterval = 30 * time.Second
)

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &sseWriter{w: w, flusher: flusher, rc: rc}, nil
}

// writeEvent writes one SSE event and flushes it.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, jsonData)
	if err != nil {
		return err
	}

	// ResponseController flushes through middleware wrappers; fall back
	// to the plain flusher if it cannot.
	if flushErr := s.rc.Flush(); flushErr != nil {
		s.flusher.Flush()
	}

	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// wireSessionID pulls the session id out of a raw event payload. Every
// session-scoped payload carries a sessionId field.
func wireSessionID(data json.RawMessage) string {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.SessionID
}

// allEvents handles GET /event. Events are consumed off the bus
// transport; with ?sessionID= only events for that session are
// streamed, otherwise the client sees everything.
func (srv *Server) allEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Subscribe before the connected handshake so nothing published in
	// between is missed.
	events, err := srv.bus.Stream(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	if err := sse.writeEvent("server.connected", map[string]any{}); err != nil {
		return
	}

	filterSessionID := r.URL.Query().Get("sessionID")

	heartbeat := time.NewTicker(SSEHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.writeHeartbeat()
		case e, ok := <-events:
			if !ok {
				return
			}
			if filterSessionID != "" && wireSessionID(e.Data) != filterSessionID {
				continue
			}
			if err := sse.writeEvent(string(e.Type), e.Data); err != nil {
				return
			}
		}
	}
}
