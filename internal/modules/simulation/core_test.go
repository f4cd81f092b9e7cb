package simulation

import (
	"errors"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/events"
	"github.com/aristath/qhybrid/internal/modules/memory"
	"github.com/aristath/qhybrid/internal/modules/quantum"
	"github.com/aristath/qhybrid/internal/modules/tasks"
)

func testOptions() Options {
	return Options{
		MaxQubits:       16,
		CoherenceTime:   time.Second,
		DecoherenceRate: 0.001,
		Cache: memory.Config{
			Tier1Capacity: 4,
			Tier2Capacity: 8,
			Tier3Capacity: 16,
			MemorySize:    64,
		},
		HistoryLimit: 10,
		Seed:         42,
	}
}

func setupTestCore(t *testing.T) (*Core, *events.Bus) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	core, err := NewCore(testOptions(), bus, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if core.IsRunning() {
			_, _ = core.Stop()
		}
	})
	return core, bus
}

func TestNewCore_Validation(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"zero max qubits", func(o *Options) { o.MaxQubits = 0 }},
		{"zero coherence time", func(o *Options) { o.CoherenceTime = 0 }},
		{"negative decoherence rate", func(o *Options) { o.DecoherenceRate = -1 }},
		{"bad cache capacity", func(o *Options) { o.Cache.Tier2Capacity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.modify(&opts)
			_, err := NewCore(opts, events.NewBus(log), log)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestCore_CreateAndMeasureCountsOps(t *testing.T) {
	core, _ := setupTestCore(t)

	states, err := core.CreateQubits(2, nil, quantum.ZeroState())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, 0, states[0].ID)
	assert.Equal(t, 1, states[1].ID)

	after, err := core.ApplyGate(0, quantum.PauliX{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, after.Prob1, 1e-12)

	result, err := core.Measure(0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Outcome)

	snapshot := core.Status().Metrics
	assert.Equal(t, int64(2), snapshot.QuantumOps)
}

func TestCore_CreateWithExplicitIDs(t *testing.T) {
	core, _ := setupTestCore(t)

	states, err := core.CreateQubits(0, []int{3, 7}, quantum.ZeroState())
	require.NoError(t, err)
	assert.Equal(t, 3, states[0].ID)
	assert.Equal(t, 7, states[1].ID)

	_, err = core.CreateQubits(0, []int{16}, quantum.ZeroState())
	assert.True(t, errors.Is(err, domain.ErrInvalidIndex))
}

func TestCore_EntangleThenMeasureForcesPartner(t *testing.T) {
	core, _ := setupTestCore(t)
	_, err := core.CreateQubits(2, nil, quantum.ZeroState())
	require.NoError(t, err)

	link, err := core.Entangle(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, link.A)
	assert.Equal(t, 1, link.B)

	result, err := core.Measure(0)
	require.NoError(t, err)
	require.NotNil(t, result.PartnerOutcome)
	assert.Equal(t, 1-result.Outcome, *result.PartnerOutcome)

	state := core.Qubits()
	assert.Len(t, state.Links, 1)
	assert.Equal(t, 2, state.Stats.Entangled)
	assert.Equal(t, int64(1), core.Status().Metrics.EntanglementEvents)
}

func TestCore_GateOnMissingQubit(t *testing.T) {
	core, _ := setupTestCore(t)

	_, err := core.ApplyGate(5, quantum.Hadamard{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = core.Qubit(99)
	assert.True(t, errors.Is(err, domain.ErrInvalidIndex))
}

func TestCore_CacheRoundTrip(t *testing.T) {
	core, _ := setupTestCore(t)

	_, err := core.CacheWrite("answer", 42)
	require.NoError(t, err)

	result, err := core.CacheRead("answer")
	require.NoError(t, err)
	assert.True(t, result.Hit)
	assert.Equal(t, memory.TierL1, result.Tier)
	assert.EqualValues(t, 42, result.Payload)

	stats := core.CacheStats()
	assert.Equal(t, int64(1), stats.Reads)
	assert.Equal(t, int64(1), stats.Writes)
	assert.Len(t, core.CacheAccesses(10), 2)

	snapshot := core.Status().Metrics
	assert.Equal(t, int64(1), snapshot.CacheReads)
	assert.Equal(t, int64(1), snapshot.CacheWrites)
}

func TestCore_ExecuteTaskFeedsMetricsAndEvents(t *testing.T) {
	core, bus := setupTestCore(t)
	ch, unsubscribe := bus.Subscribe(events.TaskExecuted)
	defer unsubscribe()

	rec, err := core.ExecuteTask(tasks.Task{
		Type: "reduce",
		Data: tasks.Data{Operation: tasks.OpSum, Values: []float64{1, 2, 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 6.0, rec.Result)

	event := <-ch
	data, ok := event.Data.(*events.TaskExecutedData)
	require.True(t, ok)
	assert.Equal(t, rec.ID, data.TaskID)
	assert.Equal(t, string(tasks.StatusCompleted), data.Status)

	snapshot := core.Status().Metrics
	assert.Equal(t, int64(1), snapshot.TasksExecuted)
	assert.Equal(t, int64(0), snapshot.TasksFailed)
	assert.Equal(t, int64(3), snapshot.CacheWrites)
	assert.Equal(t, rec.ClassicalOps, snapshot.ClassicalOps)

	_, err = core.ExecuteTask(tasks.Task{})
	require.Error(t, err)
	assert.Equal(t, int64(1), core.Status().Metrics.TasksFailed)
	assert.Len(t, core.History(0), 2)

	core.ClearHistory()
	assert.Empty(t, core.History(0))
}

func TestCore_FailedTaskEmitsError(t *testing.T) {
	core, bus := setupTestCore(t)
	ch, unsubscribe := bus.Subscribe(events.ErrorOccurred)
	defer unsubscribe()

	rec, err := core.ExecuteTask(tasks.Task{Type: "reduce", Data: tasks.Data{Operation: "median"}})
	require.Error(t, err)

	event := <-ch
	data, ok := event.Data.(*events.ErrorEventData)
	require.True(t, ok)
	assert.Equal(t, "simulation", event.Module)
	assert.Equal(t, err.Error(), data.Error)
	assert.Equal(t, rec.ID, data.Context["task_id"])
	assert.Equal(t, "reduce", data.Context["type"])
}

func TestCore_RefreshGauges(t *testing.T) {
	core, _ := setupTestCore(t)
	_, err := core.CreateQubits(3, nil, quantum.ZeroState())
	require.NoError(t, err)

	qubitsGauge.Set(-1)
	core.RefreshGauges()

	var m dto.Metric
	require.NoError(t, qubitsGauge.Write(&m))
	assert.Equal(t, 3.0, m.GetGauge().GetValue())
}

func TestCore_TasksDoNotTouchLiveRegister(t *testing.T) {
	core, _ := setupTestCore(t)
	_, err := core.CreateQubits(2, nil, quantum.ZeroState())
	require.NoError(t, err)

	_, err = core.ExecuteTask(tasks.Task{
		Type: tasks.TypeQuantumSearch,
		Data: tasks.Data{SearchSpace: []interface{}{"a", "b", "c", "d"}, Target: "c"},
	})
	require.NoError(t, err)

	state := core.Qubits()
	assert.Len(t, state.Qubits, 2)
	for _, q := range state.Qubits {
		assert.InDelta(t, 1.0, q.Prob0, 1e-12)
	}
}

func TestCore_AlgorithmsSortedByKey(t *testing.T) {
	core, _ := setupTestCore(t)

	list := core.Algorithms()
	require.Len(t, list, 4)
	assert.Equal(t, "optimization", list[0].Key)
	assert.Equal(t, "variational", list[3].Key)
}
