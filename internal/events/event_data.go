package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// SimulationStartedData contains data for SimulationStarted events
type SimulationStartedData struct {
	Qubits         int    `json:"qubits"`
	MemorySize     int    `json:"memory_size"`
	StepIntervalMs int64  `json:"step_interval_ms"`
	Algorithm      string `json:"algorithm,omitempty"`
	HybridMode     bool   `json:"hybrid_mode"`
}

// EventType returns the event type for SimulationStartedData
func (d *SimulationStartedData) EventType() EventType {
	return SimulationStarted
}

// SimulationStoppedData contains data for SimulationStopped events
type SimulationStoppedData struct {
	StepCount     int64   `json:"step_count"`
	DegradedSteps int64   `json:"degraded_steps"`
	DurationMs    float64 `json:"duration_ms"`
	AverageStepMs float64 `json:"average_step_ms"`
}

// EventType returns the event type for SimulationStoppedData
func (d *SimulationStoppedData) EventType() EventType {
	return SimulationStopped
}

// SimulationResetData contains data for SimulationReset events
type SimulationResetData struct {
	WasRunning bool `json:"was_running"`
}

// EventType returns the event type for SimulationResetData
func (d *SimulationResetData) EventType() EventType {
	return SimulationReset
}

// StepCompletedData contains data for StepCompleted events
type StepCompletedData struct {
	Step            int64   `json:"step"`
	Operation       string  `json:"operation"`
	StepTimeMs      float64 `json:"step_time_ms"`
	Coherence       float64 `json:"coherence"`
	Fidelity        float64 `json:"fidelity"`
	ActiveQubits    int     `json:"active_qubits"`
	EntangledQubits int     `json:"entangled_qubits"`
}

// EventType returns the event type for StepCompletedData
func (d *StepCompletedData) EventType() EventType {
	return StepCompleted
}

// StepDegradedData contains data for StepDegraded events
type StepDegradedData struct {
	Step  int64  `json:"step"`
	Error string `json:"error"`
}

// EventType returns the event type for StepDegradedData
func (d *StepDegradedData) EventType() EventType {
	return StepDegraded
}

// TaskExecutedData contains data for TaskExecuted events
type TaskExecutedData struct {
	TaskID       string  `json:"task_id"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	DurationMs   float64 `json:"duration_ms"`
	QuantumOps   int64   `json:"quantum_ops"`
	ClassicalOps int64   `json:"classical_ops"`
	Error        string  `json:"error,omitempty"`
}

// EventType returns the event type for TaskExecutedData
func (d *TaskExecutedData) EventType() EventType {
	return TaskExecuted
}

// StatusReportedData contains data for StatusReported events
type StatusReportedData struct {
	Running      bool    `json:"running"`
	StepCount    int64   `json:"step_count"`
	Qubits       int     `json:"qubits"`
	Coherence    float64 `json:"coherence"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	HistorySize  int     `json:"history_size"`
}

// EventType returns the event type for StatusReportedData
func (d *StatusReportedData) EventType() EventType {
	return StatusReported
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// Event is a published event with typed data
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// UnmarshalJSON restores the typed data based on the event type
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		e.Data = nil
		return nil
	}

	var eventData EventData
	switch aux.Type {
	case SimulationStarted:
		eventData = &SimulationStartedData{}
	case SimulationStopped:
		eventData = &SimulationStoppedData{}
	case SimulationReset:
		eventData = &SimulationResetData{}
	case StepCompleted:
		eventData = &StepCompletedData{}
	case StepDegraded:
		eventData = &StepDegradedData{}
	case TaskExecuted:
		eventData = &TaskExecutedData{}
	case StatusReported:
		eventData = &StatusReportedData{}
	case ErrorOccurred:
		eventData = &ErrorEventData{}
	default:
		eventData = &GenericEventData{Type: aux.Type}
	}

	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}
