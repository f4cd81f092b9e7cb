// Package handlers provides HTTP handlers for the tiered cache.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/modules/simulation"
)

const defaultAccessLimit = 50

// Handler handles cache HTTP requests
type Handler struct {
	core *simulation.Core
	log  zerolog.Logger
}

// NewHandler creates a new memory handler
func NewHandler(core *simulation.Core, log zerolog.Logger) *Handler {
	return &Handler{
		core: core,
		log:  log.With().Str("handler", "memory").Logger(),
	}
}

// WriteRequest is the body of PUT /api/memory/{address}
type WriteRequest struct {
	Payload interface{} `json:"payload"`
}

// HandleStats handles GET /api/memory/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.core.CacheStats())
}

// HandleAccesses handles GET /api/memory/accesses?limit=N
func (h *Handler) HandleAccesses(w http.ResponseWriter, r *http.Request) {
	limit := defaultAccessLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, domain.Invalid("limit", "must be a positive integer"))
			return
		}
		limit = parsed
	}
	h.writeData(w, http.StatusOK, h.core.CacheAccesses(limit))
}

// HandleRead handles GET /api/memory/{address}
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.CacheRead(chi.URLParam(r, "*"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !result.Hit {
		h.writeError(w, domain.ErrNotFound)
		return
	}
	h.writeData(w, http.StatusOK, result)
}

// HandleWrite handles PUT /api/memory/{address}
func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	var req WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.core.CacheWrite(chi.URLParam(r, "*"), req.Payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, result)
}

// writeData wraps data in the standard response envelope
func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeError maps err onto a status code and an error body
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Memory request failed")
	}
	h.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  domain.Code(err),
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
