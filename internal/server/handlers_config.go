package server

import (
	"encoding/json"
	"net/http"
)

// ConfigView is the wire form of the mutable runtime settings.
type ConfigView struct {
	Model         string `json:"model"`
	ContextWindow int    `json:"contextWindow"`
}

// ConfigPatch carries partial settings updates.
type ConfigPatch struct {
	Model         *string `json:"model,omitempty"`
	ContextWindow *int    `json:"contextWindow,omitempty"`
}

// getConfig handles GET /config
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfigView{
		Model:         s.settings.ModelID(),
		ContextWindow: s.settings.ContextWindow(),
	})
}

// updateConfig handles PATCH /config. Changing the model takes effect on
// the next send; sessions bound to the old model will refuse requests
// until cleared.
func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var patch ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if patch.Model != nil {
		s.settings.SetModelID(*patch.Model)
	}
	if patch.ContextWindow != nil {
		if *patch.ContextWindow < 0 {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "contextWindow must not be negative")
			return
		}
		s.settings.SetContextWindow(*patch.ContextWindow)
	}

	writeJSON(w, http.StatusOK, ConfigView{
		Model:         s.settings.ModelID(),
		ContextWindow: s.settings.ContextWindow(),
	})
}

// listAgents handles GET /agent
func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	names := s.agents.Names()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}
