// Package events provides the in-process event bus used to stream simulation
// activity to subscribers.
package events

// EventType represents different event types
type EventType string

const (
	SimulationStarted EventType = "SIMULATION_STARTED"
	SimulationStopped EventType = "SIMULATION_STOPPED"
	SimulationReset   EventType = "SIMULATION_RESET"
	StepCompleted     EventType = "STEP_COMPLETED"
	StepDegraded      EventType = "STEP_DEGRADED"
	TaskExecuted      EventType = "TASK_EXECUTED"
	StatusReported    EventType = "STATUS_REPORTED"
	ErrorOccurred     EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type the bus carries
var AllEventTypes = []EventType{
	SimulationStarted,
	SimulationStopped,
	SimulationReset,
	StepCompleted,
	StepDegraded,
	TaskExecuted,
	StatusReported,
	ErrorOccurred,
}
