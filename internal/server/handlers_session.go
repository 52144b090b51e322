package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chatkit-ai/chatkit/internal/chat"
	"github.com/chatkit-ai/chatkit/pkg/types"
)

// SessionInfo is the wire summary of a live session.
type SessionInfo struct {
	SessionID string `json:"sessionId"`
	ModelID   string `json:"modelId"`
	Requests  int    `json:"requests"`
}

func sessionInfo(s *chat.Session) SessionInfo {
	return SessionInfo{
		SessionID: s.ID(),
		ModelID:   s.ModelID(),
		Requests:  len(s.Requests()),
	}
}

// listSessions handles GET /session
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.manager.Sessions()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sessionInfo(sess))
	}
	writeJSON(w, http.StatusOK, infos)
}

// createSession handles POST /session
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.manager.StartSession()
	writeJSON(w, http.StatusOK, sessionInfo(sess))
}

// getSession handles GET /session/{sessionID}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, ok := s.manager.Session(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// clearSession handles DELETE /session/{sessionID}
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.manager.ClearSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, chat.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeSuccess(w)
}

// getHistory handles GET /session/{sessionID}/history
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, ok := s.manager.Session(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	limit := s.settings.ContextWindow()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	turns := sess.MessageHistory(limit)
	if turns == nil {
		turns = []types.ChatTurn{}
	}
	writeJSON(w, http.StatusOK, turns)
}
