package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.clearSession)

			r.Get("/history", s.getHistory)
			r.Post("/message", s.sendMessage)
			r.Post("/regenerate", s.regenerate)
			r.Post("/cancel", s.cancelRequest)
		})
	})

	// Event streaming (SSE)
	r.Get("/event", s.allEvents)

	r.Route("/config", func(r chi.Router) {
		r.Get("/", s.getConfig)
		r.Patch("/", s.updateConfig)
	})

	r.Get("/agent", s.listAgents)
}
