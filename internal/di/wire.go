package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/qhybrid/internal/config"
	"github.com/aristath/qhybrid/internal/events"
	"github.com/aristath/qhybrid/internal/modules/memory"
	"github.com/aristath/qhybrid/internal/modules/simulation"
	"github.com/aristath/qhybrid/internal/scheduler"
)

// Wire initializes all dependencies and returns a fully configured container.
// The maintenance scheduler is created with its jobs registered but is not
// started.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	bus := events.NewBus(log)

	core, err := simulation.NewCore(simulation.Options{
		MaxQubits:       cfg.MaxQubits,
		CoherenceTime:   cfg.CoherenceTime,
		DecoherenceRate: cfg.DecoherenceRate,
		Cache: memory.Config{
			Tier1Capacity: cfg.Tier1Capacity,
			Tier2Capacity: cfg.Tier2Capacity,
			Tier3Capacity: cfg.Tier3Capacity,
			MemorySize:    cfg.DefaultMemorySize,
		},
		HistoryLimit: cfg.HistoryLimit,
		MaxTimeSteps: cfg.MaxTimeSteps,
		Seed:         cfg.Seed,
	}, bus, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize simulation core: %w", err)
	}

	container := &Container{
		EventBus:  bus,
		Core:      core,
		Scheduler: scheduler.New(log),
	}

	jobs, err := RegisterJobs(container, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, jobs, nil
}

// RegisterJobs creates the maintenance jobs and schedules them
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{
		StatusReport:     scheduler.NewStatusReportJob(container.Core, container.EventBus, log),
		HistoryRetention: scheduler.NewHistoryRetentionJob(container.Core, cfg.HistoryRetention, log),
	}

	if err := container.Scheduler.AddJob(cfg.StatusReportSchedule, jobs.StatusReport); err != nil {
		return nil, fmt.Errorf("status report job: %w", err)
	}
	if err := container.Scheduler.AddJob(cfg.RetentionSchedule, jobs.HistoryRetention); err != nil {
		return nil, fmt.Errorf("history retention job: %w", err)
	}
	return jobs, nil
}
