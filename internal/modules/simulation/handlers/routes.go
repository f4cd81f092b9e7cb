package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulation", func(r chi.Router) {
		r.Post("/start", h.HandleStart)
		r.Post("/stop", h.HandleStop)
		r.Post("/reset", h.HandleReset)
		r.Get("/status", h.HandleStatus)
		r.Get("/performance", h.HandlePerformance)
	})
	r.Get("/algorithms", h.HandleAlgorithms)
}
