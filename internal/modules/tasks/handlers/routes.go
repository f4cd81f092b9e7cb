package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all task routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.HandleExecute)
		r.Get("/history", h.HandleHistory)
		r.Delete("/history", h.HandleClearHistory)
	})
}
