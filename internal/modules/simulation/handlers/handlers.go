// Package handlers provides HTTP handlers for the simulation lifecycle.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/modules/simulation"
)

// Handler handles simulation HTTP requests
type Handler struct {
	core *simulation.Core
	log  zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(core *simulation.Core, log zerolog.Logger) *Handler {
	return &Handler{
		core: core,
		log:  log.With().Str("handler", "simulation").Logger(),
	}
}

// HandleStart handles POST /api/simulation/start
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req simulation.RunConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg, err := h.core.Start(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"status": "started",
		"config": cfg,
	})
}

// HandleStop handles POST /api/simulation/stop
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	stats, err := h.core.Stop()
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"status": "stopped",
		"stats":  stats,
	})
}

// HandleReset handles POST /api/simulation/reset
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.core.Reset()
	h.writeData(w, http.StatusOK, map[string]interface{}{"status": "reset"})
}

// HandleStatus handles GET /api/simulation/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.core.Status())
}

// HandlePerformance handles GET /api/simulation/performance?limit=N
func (h *Handler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, domain.Invalid("limit", "must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	h.writeData(w, http.StatusOK, h.core.Performance(limit))
}

// HandleAlgorithms handles GET /api/algorithms
func (h *Handler) HandleAlgorithms(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.core.Algorithms())
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
		h.log.Error().Err(err).Msg("Simulation request failed")
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
