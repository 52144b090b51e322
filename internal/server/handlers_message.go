package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatkit-ai/chatkit/internal/chat"
	"github.com/chatkit-ai/chatkit/pkg/types"
)

// SendMessageRequest is the request body for POST /session/{id}/message.
type SendMessageRequest struct {
	Prompt  string   `json:"prompt"`
	AgentID string   `json:"agentId,omitempty"`
	Command string   `json:"command,omitempty"`
	Images  []string `json:"images,omitempty"`
}

// sendMessage handles POST /session/{sessionID}/message. It blocks until
// the turn completes; clients follow live progress on /event. A 202 with
// accepted=false means another request was already streaming and this
// one was ignored.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if body.Prompt == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "prompt is required")
		return
	}
	if body.AgentID == "" {
		body.AgentID = "default"
	}

	req, err := s.manager.SendRequest(r.Context(), sessionID, types.RequestMessage{
		Prompt:  body.Prompt,
		AgentID: body.AgentID,
		Command: body.Command,
		Images:  body.Images,
	})
	if err != nil {
		s.writeSendError(w, err)
		return
	}
	if req == nil {
		writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": false})
		return
	}

	writeJSON(w, http.StatusOK, req.Snapshot())
}

// regenerate handles POST /session/{sessionID}/regenerate
func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	req, err := s.manager.Regenerate(r.Context(), sessionID)
	if err != nil {
		s.writeSendError(w, err)
		return
	}
	if req == nil {
		writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": false})
		return
	}

	writeJSON(w, http.StatusOK, req.Snapshot())
}

// cancelRequest handles POST /session/{sessionID}/cancel
func (s *Server) cancelRequest(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.manager.CancelRequest(sessionID); err != nil {
		if errors.Is(err, chat.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeSuccess(w)
}

func (s *Server) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrUnknownSession):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
	case errors.Is(err, chat.ErrModelChanged):
		writeError(w, http.StatusConflict, ErrCodeModelChanged, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}
