package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all memory routes. Addresses may contain slashes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/memory", func(r chi.Router) {
		r.Get("/stats", h.HandleStats)
		r.Get("/accesses", h.HandleAccesses)
		r.Get("/*", h.HandleRead)
		r.Put("/*", h.HandleWrite)
	})
}
