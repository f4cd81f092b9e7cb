package tasks

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/modules/memory"
	"github.com/aristath/qhybrid/internal/modules/quantum"
	"github.com/aristath/qhybrid/internal/utils"
)

const (
	annealingSweeps  = 100
	defaultTimeSteps = 10
	slowTaskWarning  = 5 * time.Second

	// DefaultMaxTimeSteps bounds a simulation task when Config.MaxTimeSteps is unset.
	DefaultMaxTimeSteps = 10000
)

// Config configures the executor.
type Config struct {
	// MaxQubits bounds every scratch register.
	MaxQubits     int
	CoherenceTime time.Duration
	// HistoryLimit caps the execution history (0 = unbounded).
	HistoryLimit int
	// MaxTimeSteps caps the time_steps of a simulation task.
	MaxTimeSteps int
}

// Executor dispatches tasks synchronously. Every task gets its own scratch
// register so it never disturbs the live simulation register. Classical data
// goes through the shared tiered cache.
//
// Executor is not safe for concurrent use. The simulation core serializes access.
type Executor struct {
	cfg     Config
	engine  *quantum.Engine
	cache   *memory.Cache
	history *History
	now     func() time.Time
	log     zerolog.Logger
}

// NewExecutor creates an executor bound to the engine and cache.
func NewExecutor(cfg Config, engine *quantum.Engine, cache *memory.Cache, log zerolog.Logger) *Executor {
	if cfg.MaxTimeSteps <= 0 {
		cfg.MaxTimeSteps = DefaultMaxTimeSteps
	}
	return &Executor{
		cfg:     cfg,
		engine:  engine,
		cache:   cache,
		history: NewHistory(cfg.HistoryLimit),
		now:     time.Now,
		log:     log.With().Str("component", "task_executor").Logger(),
	}
}

// Execute runs the task and appends its record to the history. On failure the
// record is appended with status failed before the error is returned.
func (e *Executor) Execute(task Task) (ExecutionRecord, error) {
	timer := utils.NewTimer("task_"+task.Type, slowTaskWarning, e.log)

	rec := ExecutionRecord{
		ID:        uuid.New().String(),
		Task:      task,
		StartedAt: e.now(),
	}
	run := &taskRun{
		id:           rec.ID,
		engine:       e.engine,
		cache:        e.cache,
		register:     quantum.NewRegister(e.cfg.MaxQubits, e.cfg.CoherenceTime),
		maxTimeSteps: e.cfg.MaxTimeSteps,
	}

	result, err := e.dispatch(run, task)

	rec.Duration = timer.Stop()
	rec.QuantumOps = run.quantumOps
	rec.ClassicalOps = run.classicalOps
	rec.CacheReads = run.cacheReads
	rec.CacheWrites = run.cacheWrites
	rec.Memory = e.snapshot(run.register.Len())

	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		e.history.Append(rec)
		e.log.Warn().
			Err(err).
			Str("task_id", rec.ID).
			Str("type", task.Type).
			Msg("Task failed")
		return rec, err
	}

	rec.Status = StatusCompleted
	rec.Result = result
	e.history.Append(rec)
	e.log.Debug().
		Str("task_id", rec.ID).
		Str("type", task.Type).
		Int64("quantum_ops", rec.QuantumOps).
		Int64("classical_ops", rec.ClassicalOps).
		Msg("Task completed")
	return rec, nil
}

// History returns up to limit of the newest records, oldest first.
func (e *Executor) History(limit int) []ExecutionRecord {
	return e.history.Last(limit)
}

// ClearHistory drops every record.
func (e *Executor) ClearHistory() {
	e.history.Clear()
}

// HistoryLen returns the number of records held.
func (e *Executor) HistoryLen() int {
	return e.history.Len()
}

// Prune drops records older than maxAge.
func (e *Executor) Prune(maxAge time.Duration) int {
	return e.history.Prune(e.now().Add(-maxAge))
}

func (e *Executor) dispatch(run *taskRun, task Task) (interface{}, error) {
	switch strings.TrimSpace(task.Type) {
	case "":
		return nil, domain.Invalid("type", "required")
	case TypeQuantumSearch:
		return run.search(task.Data)
	case TypeHybridOptimization:
		return run.optimize(task.Data)
	case TypeQuantumSimulation:
		return run.simulate(task.Data)
	case TypeParallelComputation:
		return run.parallel(task.Data)
	default:
		return run.classical(task.Data)
	}
}

func (e *Executor) snapshot(qubits int) MemorySnapshot {
	stats := e.cache.Stats()
	snap := MemorySnapshot{
		QubitsAllocated: qubits,
		CacheEntries:    stats.BackingEntries,
		CacheBytes:      stats.StoredBytes,
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	snap.HeapAllocBytes = ms.HeapAlloc

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfo(); err == nil {
			snap.ProcessRSSBytes = info.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.SystemUsedPercent = vm.UsedPercent
	} else {
		e.log.Debug().Err(err).Msg("Failed to read system memory")
	}
	return snap
}

// taskRun is the scratch state of one Execute call.
type taskRun struct {
	id       string
	engine   *quantum.Engine
	cache    *memory.Cache
	register *quantum.Register

	maxTimeSteps int

	quantumOps   int64
	classicalOps int64
	cacheReads   int64
	cacheWrites  int64
}

func (r *taskRun) allocate(n int) ([]int, error) {
	if n > r.register.MaxQubits() {
		return nil, domain.Invalid("qubits", "task needs %d qubits, only %d available", n, r.register.MaxQubits())
	}
	return r.register.Create(n, quantum.ZeroState())
}

func (r *taskRun) apply(id int, g quantum.Gate) error {
	r.quantumOps++
	return r.engine.Apply(r.register, id, g)
}

func (r *taskRun) applyAll(ids []int, g quantum.Gate) error {
	for _, id := range ids {
		if err := r.apply(id, g); err != nil {
			return err
		}
	}
	return nil
}

func (r *taskRun) measure(id int) (int, error) {
	r.quantumOps++
	result, err := r.engine.Measure(r.register, id)
	if err != nil {
		return 0, err
	}
	return result.Outcome, nil
}

func (r *taskRun) measureAll(ids []int) ([]int, error) {
	outcomes := make([]int, len(ids))
	for i, id := range ids {
		outcome, err := r.measure(id)
		if err != nil {
			return nil, err
		}
		outcomes[i] = outcome
	}
	return outcomes, nil
}

func (r *taskRun) store(key string, payload interface{}) error {
	r.cacheWrites++
	if _, err := r.cache.Write(r.address(key), payload); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (r *taskRun) load(key string) (interface{}, error) {
	r.cacheReads++
	result, err := r.cache.Read(r.address(key))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !result.Hit {
		return nil, fmt.Errorf("task data %s: %w", key, domain.ErrNotFound)
	}
	return result.Payload, nil
}

func (r *taskRun) address(key string) string {
	return "task/" + r.id + "/" + key
}

func (r *taskRun) rand() float64 {
	return r.engine.Rand().Float64()
}

// bitstring renders outcomes most significant qubit first.
func bitstring(outcomes []int) string {
	var b strings.Builder
	for i := len(outcomes) - 1; i >= 0; i-- {
		b.WriteString(strconv.Itoa(outcomes[i]))
	}
	return b.String()
}

func qubitsFor(size int) int {
	if size <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(size))))
}
