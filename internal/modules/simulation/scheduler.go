package simulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/events"
	"github.com/aristath/qhybrid/internal/modules/quantum"
	"github.com/aristath/qhybrid/internal/utils"
)

const (
	minStepInterval = time.Millisecond
	slowTickWarning = 250 * time.Millisecond
)

// RunConfig is the input of Start. Zero MemorySize falls back to the
// configured default.
type RunConfig struct {
	Qubits         int    `json:"qubits"`
	MemorySize     int    `json:"memory_size"`
	StepIntervalMs int64  `json:"step_interval_ms"`
	Algorithm      string `json:"algorithm,omitempty"`
	HybridMode     bool   `json:"hybrid_mode"`
}

// Interval returns the step interval as a duration.
func (rc RunConfig) Interval() time.Duration {
	return time.Duration(rc.StepIntervalMs) * time.Millisecond
}

// RunStats is returned by Stop.
type RunStats struct {
	DurationMs    float64         `json:"duration_ms"`
	StepCount     int64           `json:"step_count"`
	DegradedSteps int64           `json:"degraded_steps"`
	AverageStepMs float64         `json:"average_step_ms"`
	MaxStepMs     float64         `json:"max_step_ms"`
	Metrics       MetricsSnapshot `json:"metrics"`
}

// Status is a point-in-time view of the simulation.
type Status struct {
	Running          bool                  `json:"running"`
	StepCount        int64                 `json:"step_count"`
	DegradedSteps    int64                 `json:"degraded_steps"`
	RuntimeMs        float64               `json:"runtime_ms"`
	CurrentAlgorithm string                `json:"current_algorithm,omitempty"`
	Config           *RunConfig            `json:"config,omitempty"`
	Metrics          MetricsSnapshot       `json:"metrics"`
	Performance      *PerformanceSample    `json:"performance,omitempty"`
	Quantum          quantum.RegisterStats `json:"quantum"`
	HistorySize      int                   `json:"history_size"`
	CacheHitRate     float64               `json:"cache_hit_rate"`
}

// Start resets the register and cache, allocates cfg.Qubits randomized qubits
// and begins ticking every cfg.StepIntervalMs milliseconds.
func (c *Core) Start(cfg RunConfig) (RunConfig, error) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return RunConfig{}, domain.ErrAlreadyRunning
	}
	cfg, err := c.prepareRun(cfg)
	if err != nil {
		c.mu.Unlock()
		return RunConfig{}, err
	}

	c.running = true
	c.startedAt = c.now()
	c.stoppedAt = time.Time{}
	c.lastTick = c.startedAt
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(cfg.Interval(), c.stop, c.done)
	c.updateGauges()
	c.mu.Unlock()

	c.log.Info().
		Int("qubits", cfg.Qubits).
		Int64("step_interval_ms", cfg.StepIntervalMs).
		Str("algorithm", cfg.Algorithm).
		Bool("hybrid_mode", cfg.HybridMode).
		Msg("Simulation started")
	c.bus.Emit(moduleName, &events.SimulationStartedData{
		Qubits:         cfg.Qubits,
		MemorySize:     cfg.MemorySize,
		StepIntervalMs: cfg.StepIntervalMs,
		Algorithm:      cfg.Algorithm,
		HybridMode:     cfg.HybridMode,
	})
	return cfg, nil
}

// prepareRun validates cfg and resets the state a run starts from. Callers hold mu.
func (c *Core) prepareRun(cfg RunConfig) (RunConfig, error) {
	var errs domain.ValidationErrors
	if cfg.Qubits < 1 || cfg.Qubits > c.register.MaxQubits() {
		errs = append(errs, domain.ValidationError{
			Field:   "qubits",
			Message: fmt.Sprintf("must be in [1, %d]", c.register.MaxQubits()),
		})
	}
	if cfg.Interval() < minStepInterval {
		errs = append(errs, domain.ValidationError{Field: "step_interval_ms", Message: "must be at least 1"})
	}
	if cfg.MemorySize < 0 {
		errs = append(errs, domain.ValidationError{Field: "memory_size", Message: "must not be negative"})
	}
	if cfg.MemorySize == 0 {
		cfg.MemorySize = c.defaultMemory
	}

	c.algorithm = nil
	if cfg.Algorithm != "" {
		algo, err := c.catalog.Get(cfg.Algorithm)
		switch {
		case err != nil:
			errs = append(errs, domain.ValidationError{Field: "algorithm", Message: fmt.Sprintf("unknown algorithm %q", cfg.Algorithm)})
		case cfg.Qubits < algo.MinQubits:
			errs = append(errs, domain.ValidationError{
				Field:   "qubits",
				Message: fmt.Sprintf("algorithm %s needs at least %d qubits", algo.Key, algo.MinQubits),
			})
		default:
			c.algorithm = &algo
		}
	}
	if len(errs) > 0 {
		c.algorithm = nil
		return RunConfig{}, errs
	}

	c.register.Reset()
	if _, err := c.register.Create(cfg.Qubits, quantum.RandomReal(c.engine.Rand())); err != nil {
		return RunConfig{}, err
	}
	if err := c.cache.Reset(cfg.MemorySize); err != nil {
		return RunConfig{}, err
	}

	c.initParams(cfg.Qubits)
	c.config = cfg
	c.stepCount = 0
	c.degradedSteps = 0
	c.stepTimes.Reset()
	return cfg, nil
}

// Stop halts future ticks and returns aggregate stats. An in-flight tick
// completes first.
func (c *Core) Stop() (RunStats, error) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	return c.stopRun()
}

// stopRun requires lifeMu. It releases mu while waiting for the loop so the
// in-flight tick can finish.
func (c *Core) stopRun() (RunStats, error) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return RunStats{}, domain.ErrNotRunning
	}
	c.running = false
	c.stoppedAt = c.now()
	stop, done := c.stop, c.done
	c.mu.Unlock()

	close(stop)
	<-done

	c.mu.Lock()
	stats := RunStats{
		DurationMs:    durationMs(c.stoppedAt.Sub(c.startedAt)),
		StepCount:     c.stepCount,
		DegradedSteps: c.degradedSteps,
		AverageStepMs: durationMs(c.stepTimes.AvgDuration),
		MaxStepMs:     durationMs(c.stepTimes.MaxDuration),
		Metrics:       c.metrics.Snapshot(),
	}
	c.stepTimes.LogMetrics(c.log)
	c.updateGauges()
	c.mu.Unlock()

	c.log.Info().
		Int64("step_count", stats.StepCount).
		Int64("degraded_steps", stats.DegradedSteps).
		Float64("duration_ms", stats.DurationMs).
		Msg("Simulation stopped")
	c.bus.Emit(moduleName, &events.SimulationStoppedData{
		StepCount:     stats.StepCount,
		DegradedSteps: stats.DegradedSteps,
		DurationMs:    stats.DurationMs,
		AverageStepMs: stats.AverageStepMs,
	})
	return stats, nil
}

// Reset stops a running simulation and clears every counter, the execution
// history, the register and the cache.
func (c *Core) Reset() {
	defer utils.OperationTimer("simulation_reset", c.log)()

	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	_, err := c.stopRun()
	wasRunning := err == nil

	c.mu.Lock()
	c.register.Reset()
	if err := c.cache.Reset(c.defaultMemory); err != nil {
		c.log.Error().Err(err).Msg("Failed to reset tiered cache")
	}
	c.executor.ClearHistory()
	c.metrics.Reset()
	c.config = RunConfig{}
	c.algorithm = nil
	c.params = nil
	c.stepCount = 0
	c.degradedSteps = 0
	c.startedAt = time.Time{}
	c.stoppedAt = time.Time{}
	c.stepTimes.Reset()
	c.updateGauges()
	c.mu.Unlock()

	c.log.Info().Bool("was_running", wasRunning).Msg("Simulation reset")
	c.bus.Emit(moduleName, &events.SimulationResetData{WasRunning: wasRunning})
}

// Status reports the run state, counters and register summary.
func (c *Core) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		Running:       c.running,
		StepCount:     c.stepCount,
		DegradedSteps: c.degradedSteps,
		Metrics:       c.metrics.Snapshot(),
		Quantum:       c.register.Stats(),
		HistorySize:   c.executor.HistoryLen(),
		CacheHitRate:  c.cache.Stats().OverallHitRate,
	}
	if c.algorithm != nil {
		s.CurrentAlgorithm = c.algorithm.Key
	}
	if !c.startedAt.IsZero() {
		cfg := c.config
		s.Config = &cfg
		end := c.stoppedAt
		if c.running {
			end = c.now()
		}
		s.RuntimeMs = durationMs(end.Sub(c.startedAt))
	}
	if latest, ok := c.metrics.Latest(); ok {
		s.Performance = &latest
	}
	return s
}

// IsRunning reports whether ticks are being issued.
func (c *Core) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// loop issues ticks until stop is closed. The timer is re-armed only after a
// tick returns, so ticks never overlap.
func (c *Core) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			c.tick()
			timer.Reset(interval)
		}
	}
}

// tick runs one step, decoheres every qubit and records a performance sample.
// Failures and panics mark the step degraded; the loop keeps going.
func (c *Core) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	timer := utils.NewTimer("simulation_tick", slowTickWarning, c.log)
	now := c.now()
	elapsedMs := durationMs(now.Sub(c.lastTick))
	c.lastTick = now
	c.stepCount++
	step := c.stepCount

	operation, err := c.safeStep(step, elapsedMs)
	elapsed := timer.Stop()
	c.stepTimes.Record(elapsed)

	stats := c.register.Stats()
	sample := PerformanceSample{
		Step:            step,
		At:              now,
		Operation:       operation,
		StepTimeMs:      durationMs(elapsed),
		Coherence:       stats.AvgCoherence,
		Fidelity:        stats.Fidelity,
		ActiveQubits:    stats.Qubits,
		EntangledQubits: stats.Entangled,
		Degraded:        err != nil,
	}
	c.metrics.record(sample)
	c.updateGauges()

	if err != nil {
		c.degradedSteps++
		c.log.Error().Err(err).Int64("step", step).Msg("Simulation step degraded")
		c.bus.Emit(moduleName, &events.StepDegradedData{Step: step, Error: err.Error()})
		return
	}
	c.bus.Emit(moduleName, &events.StepCompletedData{
		Step:            step,
		Operation:       operation,
		StepTimeMs:      sample.StepTimeMs,
		Coherence:       sample.Coherence,
		Fidelity:        sample.Fidelity,
		ActiveQubits:    sample.ActiveQubits,
		EntangledQubits: sample.EntangledQubits,
	})
}

func (c *Core) safeStep(step int64, elapsedMs float64) (operation string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %d panicked: %v", step, r)
		}
	}()

	operation, stepErr := c.executeStep(step)
	decoherenceErr := c.decohereAll(elapsedMs)
	return operation, errors.Join(stepErr, decoherenceErr)
}

// decohereAll applies the fixed decoherence rate to every qubit.
func (c *Core) decohereAll(elapsedMs float64) error {
	var count int64
	for _, id := range c.register.IDs() {
		event, err := c.engine.Decohere(c.register, id, c.decoherenceRate, elapsedMs)
		if err != nil {
			return err
		}
		if event {
			count++
		}
	}
	c.metrics.addCoherenceEvents(count)
	return nil
}
