package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all quantum routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/quantum", func(r chi.Router) {
		r.Get("/qubits", h.HandleGetQubits)
		r.Post("/qubits", h.HandleCreateQubits)
		r.Get("/qubits/{id}", h.HandleGetQubit)
		r.Post("/gate", h.HandleApplyGate)
		r.Post("/entangle", h.HandleEntangle)
		r.Post("/measure", h.HandleMeasure)
	})
}
