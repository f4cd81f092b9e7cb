package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/qhybrid/internal/events"
	"github.com/aristath/qhybrid/internal/modules/simulation"
)

// StatusSource reports the simulation status and refreshes its exported gauges
type StatusSource interface {
	Status() simulation.Status
	RefreshGauges()
}

// StatusReportJob refreshes the simulation gauges, logs a status summary and
// publishes it on the event bus
type StatusReportJob struct {
	source StatusSource
	bus    *events.Bus
	log    zerolog.Logger
}

// NewStatusReportJob creates a new status report job
func NewStatusReportJob(source StatusSource, bus *events.Bus, log zerolog.Logger) *StatusReportJob {
	return &StatusReportJob{
		source: source,
		bus:    bus,
		log:    log.With().Str("job", "status_report").Logger(),
	}
}

// Name returns the job name
func (j *StatusReportJob) Name() string {
	return "status_report"
}

// Run executes the status report
func (j *StatusReportJob) Run() error {
	j.source.RefreshGauges()
	status := j.source.Status()

	j.log.Info().
		Bool("running", status.Running).
		Int64("step_count", status.StepCount).
		Int64("degraded_steps", status.DegradedSteps).
		Int("qubits", status.Quantum.Qubits).
		Float64("coherence", status.Quantum.AvgCoherence).
		Float64("cache_hit_rate", status.CacheHitRate).
		Int("history_size", status.HistorySize).
		Msg("Simulation status")

	j.bus.Emit("scheduler", &events.StatusReportedData{
		Running:      status.Running,
		StepCount:    status.StepCount,
		Qubits:       status.Quantum.Qubits,
		Coherence:    status.Quantum.AvgCoherence,
		CacheHitRate: status.CacheHitRate,
		HistorySize:  status.HistorySize,
	})
	return nil
}
