package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDataInterface(t *testing.T) {
	testCases := []struct {
		data     EventData
		expected EventType
	}{
		{&SimulationStartedData{}, SimulationStarted},
		{&SimulationStoppedData{}, SimulationStopped},
		{&SimulationResetData{}, SimulationReset},
		{&StepCompletedData{}, StepCompleted},
		{&StepDegradedData{}, StepDegraded},
		{&TaskExecutedData{}, TaskExecuted},
		{&StatusReportedData{}, StatusReported},
		{&ErrorEventData{}, ErrorOccurred},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.data.EventType())
	}
	assert.Len(t, AllEventTypes, len(testCases))
}

func TestEvent_JSONRestoresTypedData(t *testing.T) {
	event := Event{
		Type:      StepCompleted,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Module:    "simulation",
		Data: &StepCompletedData{
			Step:            12,
			Operation:       "diffusion",
			StepTimeMs:      0.4,
			Coherence:       0.92,
			Fidelity:        0.81,
			ActiveQubits:    8,
			EntangledQubits: 2,
		},
	}

	jsonData, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"operation":"diffusion"`)

	var decoded Event
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, StepCompleted, decoded.Type)
	assert.Equal(t, "simulation", decoded.Module)

	data, ok := decoded.Data.(*StepCompletedData)
	require.True(t, ok)
	assert.Equal(t, int64(12), data.Step)
	assert.Equal(t, 8, data.ActiveQubits)
}

func TestEvent_UnknownTypeFallsBackToGeneric(t *testing.T) {
	var decoded Event
	err := json.Unmarshal([]byte(`{"type":"CUSTOM","module":"x","data":{"k":"v"}}`), &decoded)
	require.NoError(t, err)

	data, ok := decoded.Data.(*GenericEventData)
	require.True(t, ok)
	assert.Equal(t, EventType("CUSTOM"), data.EventType())
	assert.Equal(t, "v", data.Data["k"])
}

func TestBus_DeliversToMatchingSubscribers(t *testing.T) {
	bus := NewBus(zerolog.New(nil).Level(zerolog.Disabled))

	all, unsubscribeAll := bus.Subscribe()
	defer unsubscribeAll()
	tasks, unsubscribeTasks := bus.Subscribe(TaskExecuted)
	defer unsubscribeTasks()

	bus.Emit("simulation", &SimulationStartedData{Qubits: 4})
	bus.Emit("tasks", &TaskExecutedData{TaskID: "abc"})

	first := <-all
	assert.Equal(t, SimulationStarted, first.Type)
	second := <-all
	assert.Equal(t, TaskExecuted, second.Type)

	onlyTask := <-tasks
	assert.Equal(t, "abc", onlyTask.Data.(*TaskExecutedData).TaskID)
	assert.Len(t, tasks, 0)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(zerolog.New(nil).Level(zerolog.Disabled))

	ch, unsubscribe := bus.Subscribe()
	assert.Equal(t, 1, bus.Subscribers())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, bus.Subscribers())

	_, open := <-ch
	assert.False(t, open)

	assert.NotPanics(t, func() {
		bus.EmitError("simulation", errors.New("boom"), nil)
	})
}

func TestBus_DropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus(zerolog.New(nil).Level(zerolog.Disabled))
	ch, unsubscribe := bus.Subscribe(StepCompleted)
	defer unsubscribe()

	for i := 0; i < subscriberBufferSize+10; i++ {
		bus.Emit("simulation", &StepCompletedData{Step: int64(i)})
	}

	assert.Len(t, ch, subscriberBufferSize)
}
