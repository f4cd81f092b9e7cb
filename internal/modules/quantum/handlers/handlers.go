// Package handlers provides HTTP handlers for qubit operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/modules/quantum"
	"github.com/aristath/qhybrid/internal/modules/simulation"
)

// Handler handles quantum HTTP requests
type Handler struct {
	core *simulation.Core
	log  zerolog.Logger
}

// NewHandler creates a new quantum handler
func NewHandler(core *simulation.Core, log zerolog.Logger) *Handler {
	return &Handler{
		core: core,
		log:  log.With().Str("handler", "quantum").Logger(),
	}
}

// CreateQubitsRequest allocates qubits. IDs wins over Count when both are set;
// Alpha and Beta default to |0⟩.
type CreateQubitsRequest struct {
	Count int                `json:"count"`
	IDs   []int              `json:"ids,omitempty"`
	Alpha *quantum.Amplitude `json:"alpha,omitempty"`
	Beta  *quantum.Amplitude `json:"beta,omitempty"`
}

// GateRequest applies a gate to one qubit
type GateRequest struct {
	QubitID   int     `json:"qubit_id"`
	Gate      string  `json:"gate"`
	Angle     float64 `json:"angle,omitempty"`
	Phase     float64 `json:"phase,omitempty"`
	ControlID *int    `json:"control_id,omitempty"`
}

// EntangleRequest pairs two qubits
type EntangleRequest struct {
	Qubit1 int `json:"qubit1"`
	Qubit2 int `json:"qubit2"`
}

// MeasureRequest collapses one qubit
type MeasureRequest struct {
	QubitID int `json:"qubit_id"`
}

// HandleGetQubits handles GET /api/quantum/qubits
func (h *Handler) HandleGetQubits(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.core.Qubits())
}

// HandleGetQubit handles GET /api/quantum/qubits/{id}
func (h *Handler) HandleGetQubit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, domain.Invalid("id", "must be an integer"))
		return
	}

	state, err := h.core.Qubit(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, state)
}

// HandleCreateQubits handles POST /api/quantum/qubits
func (h *Handler) HandleCreateQubits(w http.ResponseWriter, r *http.Request) {
	var req CreateQubitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.IDs) == 0 && req.Count <= 0 {
		h.writeError(w, domain.Invalid("count", "must be greater than 0"))
		return
	}

	rule := quantum.ZeroState()
	if req.Alpha != nil || req.Beta != nil {
		var alpha, beta complex128
		if req.Alpha != nil {
			alpha = req.Alpha.Complex()
		}
		if req.Beta != nil {
			beta = req.Beta.Complex()
		}
		rule = quantum.Amplitudes(alpha, beta)
	}

	states, err := h.core.CreateQubits(req.Count, req.IDs, rule)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Debug().Int("created", len(states)).Msg("Qubits created")
	h.writeData(w, http.StatusCreated, states)
}

// HandleApplyGate handles POST /api/quantum/gate
func (h *Handler) HandleApplyGate(w http.ResponseWriter, r *http.Request) {
	var req GateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	gate, err := quantum.ParseGate(req.Gate, quantum.GateParams{
		Angle:   req.Angle,
		Phase:   req.Phase,
		Control: req.ControlID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	state, err := h.core.ApplyGate(req.QubitID, gate)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"gate":  gate.Name(),
		"qubit": state,
	})
}

// HandleEntangle handles POST /api/quantum/entangle
func (h *Handler) HandleEntangle(w http.ResponseWriter, r *http.Request) {
	var req EntangleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	link, err := h.core.Entangle(req.Qubit1, req.Qubit2)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, link)
}

// HandleMeasure handles POST /api/quantum/measure
func (h *Handler) HandleMeasure(w http.ResponseWriter, r *http.Request) {
	var req MeasureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.core.Measure(req.QubitID)
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
		h.log.Error().Err(err).Msg("Quantum request failed")
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
