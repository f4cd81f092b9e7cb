package tasks

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/modules/memory"
	"github.com/aristath/qhybrid/internal/modules/quantum"
)

func setupExecutor(t *testing.T, maxQubits, historyLimit int) (*Executor, *memory.Cache) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	cache, err := memory.New(memory.Config{
		Tier1Capacity: 32,
		Tier2Capacity: 128,
		Tier3Capacity: 512,
		MemorySize:    1024,
	}, log)
	require.NoError(t, err)

	engine := quantum.NewEngine(rand.New(rand.NewSource(7)))
	executor := NewExecutor(Config{
		MaxQubits:     maxQubits,
		CoherenceTime: time.Second,
		HistoryLimit:  historyLimit,
	}, engine, cache, log)
	return executor, cache
}

func TestExecute_UnknownTypeFallsBackToClassical(t *testing.T) {
	executor, cache := setupExecutor(t, 16, 0)

	rec, err := executor.Execute(Task{
		Type: "UNKNOWN",
		Data: Data{Operation: "SUM", Values: []float64{1, 2, 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, 6.0, rec.Result)
	assert.Equal(t, int64(0), rec.QuantumOps)
	assert.Greater(t, rec.ClassicalOps, int64(0))
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(3), rec.CacheWrites)
	assert.Equal(t, int64(3), rec.CacheReads)
	assert.Equal(t, 3, cache.Stats().BackingEntries)
	assert.Equal(t, 3, rec.Memory.CacheEntries)
	assert.Equal(t, 0, rec.Memory.QubitsAllocated)
}

func TestExecute_ClassicalReductions(t *testing.T) {
	executor, _ := setupExecutor(t, 16, 0)

	rec, err := executor.Execute(Task{Type: "classical", Data: Data{Operation: "product", Values: []float64{2, 3, 4}}})
	require.NoError(t, err)
	assert.Equal(t, 24.0, rec.Result)

	rec, err = executor.Execute(Task{Type: "classical", Data: Data{
		Operation: "matrix-multiply",
		MatrixA:   [][]float64{{1, 2}, {3, 4}},
		MatrixB:   [][]float64{{5, 6}, {7, 8}},
	}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{19, 22}, {43, 50}}, rec.Result)
	assert.Equal(t, int64(8), rec.ClassicalOps)
}

func TestExecute_ClassicalValidation(t *testing.T) {
	executor, _ := setupExecutor(t, 16, 0)

	testCases := []struct {
		name string
		data Data
	}{
		{"missing operation", Data{Values: []float64{1}}},
		{"unknown operation", Data{Operation: "median", Values: []float64{1}}},
		{"missing values", Data{Operation: "sum"}},
		{"ragged matrix", Data{Operation: "matmul", MatrixA: [][]float64{{1, 2}, {3}}, MatrixB: [][]float64{{1}, {2}}}},
		{"shape mismatch", Data{Operation: "matmul", MatrixA: [][]float64{{1, 2}}, MatrixB: [][]float64{{1, 2}}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := executor.Execute(Task{Type: "classical", Data: tc.data})
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestExecute_FailureIsRecorded(t *testing.T) {
	executor, _ := setupExecutor(t, 16, 0)

	rec, err := executor.Execute(Task{Type: ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.Error)

	history := executor.History(0)
	require.Len(t, history, 1)
	assert.Equal(t, StatusFailed, history[0].Status)
	assert.Equal(t, rec.ID, history[0].ID)
}

func TestExecute_QuantumSearch(t *testing.T) {
	executor, _ := setupExecutor(t, 16, 0)
	space := []interface{}{"a", "b", "c", "d", "e"}

	rec, err := executor.Execute(Task{Type: TypeQuantumSearch, Data: Data{SearchSpace: space, Target: "c"}})
	require.NoError(t, err)

	result, ok := rec.Result.(SearchResult)
	require.True(t, ok)
	assert.Equal(t, 3, result.Qubits)
	assert.Equal(t, 1, result.Iterations)
	assert.GreaterOrEqual(t, result.Index, 0)
	assert.Less(t, result.Index, len(space))
	assert.Equal(t, space[result.Index], result.Value)
	assert.Equal(t, result.Value == "c", result.Found)
	assert.Len(t, result.Bitstring, 3)
	// 3 hadamards, 1 oracle+diffusion round of 6 gates, 3 measurements
	assert.Equal(t, int64(12), rec.QuantumOps)
	assert.Equal(t, 3, rec.Memory.QubitsAllocated)
}

func TestExecute_QuantumSearchRejectsOversizedSpace(t *testing.T) {
	executor, _ := setupExecutor(t, 2, 0)
	space := make([]interface{}, 16)

	_, err := executor.Execute(Task{Type: TypeQuantumSearch, Data: Data{SearchSpace: space}})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = executor.Execute(Task{Type: TypeQuantumSearch})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExecute_HybridOptimization(t *testing.T) {
	executor, _ := setupExecutor(t, 2, 0)
	bounds := []Bound{{Min: 0, Max: 10}, {Min: -1, Max: 1}, {Min: 5, Max: 6}}

	rec, err := executor.Execute(Task{Type: TypeHybridOptimization, Data: Data{
		Variables: []float64{2, 0, 5.5},
		Bounds:    bounds,
	}})
	require.NoError(t, err)

	result, ok := rec.Result.(OptimizationResult)
	require.True(t, ok)
	assert.Equal(t, 2, result.Qubits, "limited by available qubits")
	assert.Equal(t, annealingSweeps, result.Sweeps)
	require.Len(t, result.Solution, 3)
	for i, v := range result.Solution {
		assert.GreaterOrEqual(t, v, bounds[i].Min)
		assert.LessOrEqual(t, v, bounds[i].Max)
	}
	assert.Equal(t, 5.5, result.Solution[2], "variables without a qubit keep their value")

	energy := 0.0
	for i, v := range result.Solution {
		energy += v * float64(i+1)
	}
	assert.InDelta(t, energy, result.Energy, 1e-9)
	assert.Greater(t, rec.QuantumOps, int64(annealingSweeps))
	assert.Equal(t, int64(2), rec.CacheWrites)
}

func TestExecute_HybridOptimizationValidation(t *testing.T) {
	executor, _ := setupExecutor(t, 4, 0)

	_, err := executor.Execute(Task{Type: TypeHybridOptimization})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = executor.Execute(Task{Type: TypeHybridOptimization, Data: Data{
		Variables: []float64{1, 2},
		Bounds:    []Bound{{Min: 0, Max: 1}},
	}})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = executor.Execute(Task{Type: TypeHybridOptimization, Data: Data{
		Variables: []float64{1},
		Bounds:    []Bound{{Min: 2, Max: 1}},
	}})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExecute_QuantumSimulation(t *testing.T) {
	executor, _ := setupExecutor(t, 4, 0)

	rec, err := executor.Execute(Task{Type: TypeQuantumSimulation, Data: Data{Particles: 6, TimeSteps: 5}})
	require.NoError(t, err)

	result, ok := rec.Result.(SimulationResult)
	require.True(t, ok)
	assert.Equal(t, 4, result.Particles)
	assert.Equal(t, 5, result.TimeSteps)
	assert.Equal(t, 2, result.EntangledPairs)
	require.Len(t, result.Outcomes, 4)
	for _, o := range result.Outcomes {
		assert.Contains(t, []int{0, 1}, o)
	}
	assert.Equal(t, 1-result.Outcomes[0], result.Outcomes[1], "pair partners measure opposite")
	assert.Equal(t, 1-result.Outcomes[2], result.Outcomes[3], "pair partners measure opposite")

	_, err = executor.Execute(Task{Type: TypeQuantumSimulation})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExecute_QuantumSimulationTimeStepsAreCapped(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	cache, err := memory.New(memory.Config{
		Tier1Capacity: 4,
		Tier2Capacity: 8,
		Tier3Capacity: 16,
		MemorySize:    64,
	}, log)
	require.NoError(t, err)
	engine := quantum.NewEngine(rand.New(rand.NewSource(7)))
	executor := NewExecutor(Config{MaxQubits: 4, CoherenceTime: time.Second, MaxTimeSteps: 50}, engine, cache, log)

	rec, err := executor.Execute(Task{Type: TypeQuantumSimulation, Data: Data{Particles: 2, TimeSteps: 50}})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)

	rec, err = executor.Execute(Task{Type: TypeQuantumSimulation, Data: Data{Particles: 64, TimeSteps: 1_000_000_000}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Zero(t, rec.QuantumOps)

	var verr domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "time_steps", verr.Field)
}

func TestNewExecutor_DefaultTimeStepCap(t *testing.T) {
	executor, _ := setupExecutor(t, 4, 0)
	assert.Equal(t, DefaultMaxTimeSteps, executor.cfg.MaxTimeSteps)

	_, err := executor.Execute(Task{Type: TypeQuantumSimulation, Data: Data{Particles: 1, TimeSteps: DefaultMaxTimeSteps + 1}})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExecute_ParallelComputation(t *testing.T) {
	executor, _ := setupExecutor(t, 4, 0)
	inputs := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	rec, err := executor.Execute(Task{Type: TypeParallelComputation, Data: Data{SubTasks: inputs}})
	require.NoError(t, err)

	results, ok := rec.Result.([]SubTaskResult)
	require.True(t, ok)
	require.Len(t, results, len(inputs))

	var quantumRuns, classicalRuns int64
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		switch res.Mode {
		case "quantum":
			quantumRuns++
			assert.Contains(t, []float64{0, 1}, res.Value)
		case "classical":
			classicalRuns++
			assert.Equal(t, inputs[i]*2, res.Value)
		default:
			t.Fatalf("unexpected mode %q", res.Mode)
		}
	}
	assert.Equal(t, classicalRuns, rec.ClassicalOps)
	assert.GreaterOrEqual(t, rec.QuantumOps, 2*quantumRuns)
	assert.Equal(t, int64(len(inputs)), rec.CacheWrites)
}

func TestExecute_HistoryLimitAndClear(t *testing.T) {
	executor, _ := setupExecutor(t, 4, 3)

	var ids []string
	for i := 0; i < 5; i++ {
		rec, err := executor.Execute(Task{Type: "classical", Data: Data{Operation: "sum", Values: []float64{float64(i)}}})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	history := executor.History(0)
	require.Len(t, history, 3)
	assert.Equal(t, ids[2], history[0].ID)
	assert.Equal(t, ids[4], history[2].ID)

	last := executor.History(2)
	require.Len(t, last, 2)
	assert.Equal(t, ids[3], last[0].ID)

	executor.ClearHistory()
	assert.Empty(t, executor.History(0))
	assert.Equal(t, 0, executor.HistoryLen())
}

func TestHistory_Prune(t *testing.T) {
	h := NewHistory(0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		h.Append(ExecutionRecord{ID: string(rune('a' + i)), StartedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	removed := h.Prune(base.Add(2 * time.Hour))
	assert.Equal(t, 2, removed)
	require.Equal(t, 2, h.Len())
	assert.Equal(t, "c", h.Last(0)[0].ID)
}
