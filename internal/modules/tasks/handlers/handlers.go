// Package handlers provides HTTP handlers for hybrid task execution.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/modules/simulation"
	"github.com/aristath/qhybrid/internal/modules/tasks"
)

// Handler handles task HTTP requests
type Handler struct {
	core *simulation.Core
	log  zerolog.Logger
}

// NewHandler creates a new tasks handler
func NewHandler(core *simulation.Core, log zerolog.Logger) *Handler {
	return &Handler{
		core: core,
		log:  log.With().Str("handler", "tasks").Logger(),
	}
}

// HandleExecute handles POST /api/tasks
//
// A failed task still answers with its execution record so callers can see
// what ran before the failure.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var task tasks.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.core.ExecuteTask(task)
	if err != nil {
		status := domain.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("task_id", rec.ID).Msg("Task failed")
		}
		h.writeJSON(w, status, map[string]interface{}{
			"error":  err.Error(),
			"code":   domain.Code(err),
			"record": rec,
		})
		return
	}

	h.writeData(w, http.StatusOK, rec)
}

// HandleHistory handles GET /api/tasks/history?limit=N
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, domain.Invalid("limit", "must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	history := h.core.History(limit)
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"records": history,
		"count":   len(history),
	})
}

// HandleClearHistory handles DELETE /api/tasks/history
func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	h.core.ClearHistory()
	h.log.Info().Msg("Execution history cleared")
	w.WriteHeader(http.StatusNoContent)
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
	h.writeJSON(w, domain.HTTPStatus(err), map[string]string{
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
