// Package simulation owns the live simulation state and drives it: a qubit
// register evolved by periodic ticks, the tiered cache, the algorithm catalog
// and the task executor, all behind one lock.
package simulation

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/events"
	"github.com/aristath/qhybrid/internal/modules/algorithms"
	"github.com/aristath/qhybrid/internal/modules/memory"
	"github.com/aristath/qhybrid/internal/modules/quantum"
	"github.com/aristath/qhybrid/internal/modules/tasks"
	"github.com/aristath/qhybrid/internal/utils"
)

const moduleName = "simulation"

// Options configures a Core.
type Options struct {
	MaxQubits       int
	CoherenceTime   time.Duration
	DecoherenceRate float64
	Cache           memory.Config
	HistoryLimit    int
	// MaxTimeSteps caps simulation tasks; 0 uses the executor default.
	MaxTimeSteps int
	// Seed seeds the random source; 0 seeds from the clock.
	Seed int64
}

// Core is the simulation facade. Every operation, including each tick, runs
// while holding mu, so ticks and external calls never interleave. lifeMu
// serializes Start, Stop and Reset.
type Core struct {
	mu sync.Mutex

	register        *quantum.Register
	engine          *quantum.Engine
	cache           *memory.Cache
	catalog         *algorithms.Catalog
	executor        *tasks.Executor
	metrics         *Metrics
	decoherenceRate float64
	defaultMemory   int

	running       bool
	config        RunConfig
	algorithm     *algorithms.Algorithm
	params        []float64
	stepCount     int64
	degradedSteps int64
	startedAt     time.Time
	stoppedAt     time.Time
	lastTick      time.Time
	stepTimes     utils.PerformanceMetrics

	lifeMu sync.Mutex
	stop   chan struct{}
	done   chan struct{}

	bus *events.Bus
	now func() time.Time
	log zerolog.Logger
}

// NewCore builds the simulation state from opts.
func NewCore(opts Options, bus *events.Bus, log zerolog.Logger) (*Core, error) {
	if opts.MaxQubits <= 0 {
		return nil, domain.Invalid("max_qubits", "must be greater than 0")
	}
	if opts.CoherenceTime <= 0 {
		return nil, domain.Invalid("coherence_time", "must be greater than 0")
	}
	if opts.DecoherenceRate < 0 {
		return nil, domain.Invalid("decoherence_rate", "must not be negative")
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine := quantum.NewEngine(rand.New(rand.NewSource(seed)))

	cache, err := memory.New(opts.Cache, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create tiered cache: %w", err)
	}

	c := &Core{
		register:        quantum.NewRegister(opts.MaxQubits, opts.CoherenceTime),
		engine:          engine,
		cache:           cache,
		catalog:         algorithms.NewCatalog(),
		metrics:         NewMetrics(),
		decoherenceRate: opts.DecoherenceRate,
		defaultMemory:   opts.Cache.MemorySize,
		bus:             bus,
		stepTimes:       utils.PerformanceMetrics{OperationName: "simulation_tick"},
		now:             time.Now,
		log:             log.With().Str("component", moduleName).Logger(),
	}
	c.executor = tasks.NewExecutor(tasks.Config{
		MaxQubits:     opts.MaxQubits,
		CoherenceTime: opts.CoherenceTime,
		HistoryLimit:  opts.HistoryLimit,
		MaxTimeSteps:  opts.MaxTimeSteps,
	}, engine, cache, log)

	c.log.Info().
		Int("max_qubits", opts.MaxQubits).
		Dur("coherence_time", opts.CoherenceTime).
		Int64("seed", seed).
		Msg("Simulation core initialized")
	return c, nil
}

// QuantumState is the full register view returned to callers.
type QuantumState struct {
	Qubits []quantum.QubitState       `json:"qubits"`
	Links  []quantum.EntanglementLink `json:"links"`
	Stats  quantum.RegisterStats      `json:"stats"`
}

// CreateQubits allocates qubits, at explicit ids when given, otherwise count
// qubits at the lowest free ids.
func (c *Core) CreateQubits(count int, ids []int, rule quantum.InitRule) ([]quantum.QubitState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(ids) > 0 {
		if err := c.register.CreateWithIDs(ids, rule); err != nil {
			return nil, err
		}
	} else {
		created, err := c.register.Create(count, rule)
		if err != nil {
			return nil, err
		}
		ids = created
	}

	states := make([]quantum.QubitState, 0, len(ids))
	for _, id := range ids {
		s, err := c.register.State(id)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	c.updateGauges()
	return states, nil
}

// Qubits returns every qubit, link and aggregate stat.
func (c *Core) Qubits() QuantumState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return QuantumState{
		Qubits: c.register.States(),
		Links:  c.register.Links(),
		Stats:  c.register.Stats(),
	}
}

// Qubit returns one qubit.
func (c *Core) Qubit(id int) (quantum.QubitState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.register.State(id)
}

// ApplyGate applies g to qubit id and returns the qubit afterwards.
func (c *Core) ApplyGate(id int, g quantum.Gate) (quantum.QubitState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.apply(id, g); err != nil {
		return quantum.QubitState{}, err
	}
	return c.register.State(id)
}

// Entangle links two qubits.
func (c *Core) Entangle(id1, id2 int) (quantum.EntanglementLink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entangle(id1, id2)
}

// Measure collapses qubit id.
func (c *Core) Measure(id int) (quantum.MeasurementResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.measure(id)
}

// CacheRead reads address from the tiered cache.
func (c *Core) CacheRead(address string) (memory.ReadResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.cache.Read(address)
	if err != nil {
		return memory.ReadResult{}, err
	}
	c.metrics.addCacheReads(1)
	return result, nil
}

// CacheWrite writes payload at address.
func (c *Core) CacheWrite(address string, payload interface{}) (memory.WriteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.cache.Write(address, payload)
	if err != nil {
		return memory.WriteResult{}, err
	}
	c.metrics.addCacheWrites(1)
	return result, nil
}

// CacheStats returns tiered cache statistics.
func (c *Core) CacheStats() memory.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cache.Stats()
}

// CacheAccesses returns up to n of the most recent cache accesses.
func (c *Core) CacheAccesses(n int) []memory.AccessLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cache.RecentAccesses(n)
}

// ExecuteTask runs a one-shot task. Its operation counts feed the metrics.
func (c *Core) ExecuteTask(task tasks.Task) (tasks.ExecutionRecord, error) {
	rec, err := c.executeTask(task)

	c.bus.Emit(moduleName, &events.TaskExecutedData{
		TaskID:       rec.ID,
		Type:         task.Type,
		Status:       string(rec.Status),
		DurationMs:   durationMs(rec.Duration),
		QuantumOps:   rec.QuantumOps,
		ClassicalOps: rec.ClassicalOps,
		Error:        rec.Error,
	})
	if err != nil {
		c.bus.EmitError(moduleName, err, map[string]interface{}{
			"task_id": rec.ID,
			"type":    task.Type,
		})
	}
	return rec, err
}

func (c *Core) executeTask(task tasks.Task) (tasks.ExecutionRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.executor.Execute(task)
	c.metrics.addQuantumOps(rec.QuantumOps)
	c.metrics.addClassicalOps(rec.ClassicalOps)
	c.metrics.addCacheReads(rec.CacheReads)
	c.metrics.addCacheWrites(rec.CacheWrites)
	c.metrics.addTask(err != nil)
	return rec, err
}

// History returns up to limit of the newest execution records, oldest first.
func (c *Core) History(limit int) []tasks.ExecutionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.executor.History(limit)
}

// ClearHistory drops every execution record.
func (c *Core) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.executor.ClearHistory()
}

// PruneHistory drops execution records older than maxAge.
func (c *Core) PruneHistory(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.executor.Prune(maxAge)
}

// Algorithms lists the catalog.
func (c *Core) Algorithms() []algorithms.Algorithm {
	return c.catalog.List()
}

// Performance returns up to n of the newest performance samples.
func (c *Core) Performance(n int) []PerformanceSample {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.metrics.History(n)
}

// apply, measure and entangle count operations; callers hold mu.

func (c *Core) apply(id int, g quantum.Gate) error {
	if err := c.engine.Apply(c.register, id, g); err != nil {
		return err
	}
	c.metrics.addQuantumOps(1)
	return nil
}

func (c *Core) measure(id int) (quantum.MeasurementResult, error) {
	result, err := c.engine.Measure(c.register, id)
	if err != nil {
		return quantum.MeasurementResult{}, err
	}
	c.metrics.addQuantumOps(1)
	return result, nil
}

func (c *Core) entangle(id1, id2 int) (quantum.EntanglementLink, error) {
	link, err := c.engine.Entangle(c.register, id1, id2)
	if err != nil {
		return quantum.EntanglementLink{}, err
	}
	c.metrics.addQuantumOps(1)
	c.metrics.addEntanglementEvent()
	return link, nil
}

// RefreshGauges recomputes the exported register, cache and running gauges.
func (c *Core) RefreshGauges() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.updateGauges()
}

// updateGauges requires mu.
func (c *Core) updateGauges() {
	stats := c.register.Stats()
	qubitsGauge.Set(float64(stats.Qubits))
	coherenceGauge.Set(stats.AvgCoherence)
	fidelityGauge.Set(stats.Fidelity)
	cacheHitRateGauge.Set(c.cache.Stats().OverallHitRate)
	if c.running {
		runningGauge.Set(1)
	} else {
		runningGauge.Set(0)
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
