package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qhybrid/internal/events"
	"github.com/aristath/qhybrid/internal/modules/memory"
	"github.com/aristath/qhybrid/internal/modules/simulation"
)

func setupTestRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	core, err := simulation.NewCore(simulation.Options{
		MaxQubits:     8,
		CoherenceTime: time.Second,
		Cache:         memory.Config{Tier1Capacity: 4, Tier2Capacity: 8, Tier3Capacity: 16, MemorySize: 32},
		HistoryLimit:  5,
		Seed:          5,
	}, events.NewBus(logger), logger)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		NewHandler(core, logger).RegisterRoutes(r)
	})
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	}
	return w, response
}

func TestHandleExecute_Classical(t *testing.T) {
	router := setupTestRouter(t)

	w, response := doRequest(t, router, "POST", "/api/tasks", map[string]interface{}{
		"type": "reduce",
		"data": map[string]interface{}{"operation": "product", "values": []float64{2, 3, 4}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	record := response["data"].(map[string]interface{})
	assert.Equal(t, "completed", record["status"])
	assert.Equal(t, 24.0, record["result"])
	assert.NotEmpty(t, record["id"])
	assert.Contains(t, record, "memory")
}

func TestHandleExecute_Search(t *testing.T) {
	router := setupTestRouter(t)

	w, response := doRequest(t, router, "POST", "/api/tasks", map[string]interface{}{
		"type": "quantum-search",
		"data": map[string]interface{}{"search_space": []string{"a", "b", "c", "d"}, "target": "b"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	record := response["data"].(map[string]interface{})
	result := record["result"].(map[string]interface{})
	assert.Equal(t, 2.0, result["qubits"])
	assert.Greater(t, record["quantum_ops"], 0.0)
}

func TestHandleExecute_Failure(t *testing.T) {
	router := setupTestRouter(t)

	w, response := doRequest(t, router, "POST", "/api/tasks", map[string]interface{}{
		"type": "quantum-search",
		"data": map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", response["code"])
	record := response["record"].(map[string]interface{})
	assert.Equal(t, "failed", record["status"])

	w, _ = doRequest(t, router, "POST", "/api/tasks", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHistory(t *testing.T) {
	router := setupTestRouter(t)
	for i := 0; i < 7; i++ {
		doRequest(t, router, "POST", "/api/tasks", map[string]interface{}{
			"type": "reduce",
			"data": map[string]interface{}{"operation": "sum", "values": []float64{float64(i)}},
		})
	}

	w, response := doRequest(t, router, "GET", "/api/tasks/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, 5.0, data["count"])

	w, response = doRequest(t, router, "GET", "/api/tasks/history?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := response["data"].(map[string]interface{})["records"].([]interface{})
	require.Len(t, records, 2)
	assert.Equal(t, 6.0, records[1].(map[string]interface{})["result"])

	w, _ = doRequest(t, router, "GET", "/api/tasks/history?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, router, "DELETE", "/api/tasks/history", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, response = doRequest(t, router, "GET", "/api/tasks/history", nil)
	assert.Equal(t, 0.0, response["data"].(map[string]interface{})["count"])
}
