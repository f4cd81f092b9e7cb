// Package tasks runs one-shot hybrid tasks that combine scratch qubits with the
// shared classical cache and keeps an execution history.
package tasks

import (
	"time"
)

// Task types with a dedicated quantum path. Any other non-empty type runs on
// the classical path.
const (
	TypeQuantumSearch       = "quantum-search"
	TypeHybridOptimization  = "hybrid-optimization"
	TypeQuantumSimulation   = "quantum-simulation"
	TypeParallelComputation = "parallel-computation"
)

// Classical reductions.
const (
	OpSum            = "sum"
	OpProduct        = "product"
	OpMatrixMultiply = "matrix_multiply"
)

// Bound is the closed interval a hybrid-optimization variable is clamped to.
type Bound struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Data carries the inputs of every task type. Each type reads only its own fields.
type Data struct {
	// quantum-search
	SearchSpace []interface{} `json:"search_space,omitempty"`
	Target      interface{}   `json:"target,omitempty"`

	// hybrid-optimization
	Variables []float64 `json:"variables,omitempty"`
	Bounds    []Bound   `json:"bounds,omitempty"`

	// quantum-simulation
	Particles int `json:"particles,omitempty"`
	TimeSteps int `json:"time_steps,omitempty"`

	// parallel-computation
	SubTasks []float64 `json:"sub_tasks,omitempty"`

	// classical
	Operation string      `json:"operation,omitempty"`
	Values    []float64   `json:"values,omitempty"`
	MatrixA   [][]float64 `json:"matrix_a,omitempty"`
	MatrixB   [][]float64 `json:"matrix_b,omitempty"`
}

// Task is a request to the executor.
type Task struct {
	Type string `json:"type"`
	Data Data   `json:"data"`
}

// Status of an execution record.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// MemorySnapshot captures memory use at the end of a task.
type MemorySnapshot struct {
	QubitsAllocated   int     `json:"qubits_allocated"`
	CacheEntries      int     `json:"cache_entries"`
	CacheBytes        int64   `json:"cache_bytes"`
	HeapAllocBytes    uint64  `json:"heap_alloc_bytes"`
	ProcessRSSBytes   uint64  `json:"process_rss_bytes"`
	SystemUsedPercent float64 `json:"system_used_percent"`
}

// ExecutionRecord is the audit entry for one Execute call.
type ExecutionRecord struct {
	ID           string         `json:"id"`
	Task         Task           `json:"task"`
	Status       Status         `json:"status"`
	Result       interface{}    `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	Duration     time.Duration  `json:"duration_ns"`
	QuantumOps   int64          `json:"quantum_ops"`
	ClassicalOps int64          `json:"classical_ops"`
	CacheReads   int64          `json:"cache_reads"`
	CacheWrites  int64          `json:"cache_writes"`
	Memory       MemorySnapshot `json:"memory"`
}

// SearchResult is returned by quantum-search.
type SearchResult struct {
	Index      int         `json:"index"`
	Value      interface{} `json:"value"`
	Found      bool        `json:"found"`
	Bitstring  string      `json:"bitstring"`
	Qubits     int         `json:"qubits"`
	Iterations int         `json:"iterations"`
}

// OptimizationResult is returned by hybrid-optimization.
type OptimizationResult struct {
	Solution     []float64 `json:"solution"`
	Energy       float64   `json:"energy"`
	Measurements []int     `json:"measurements"`
	Qubits       int       `json:"qubits"`
	Sweeps       int       `json:"sweeps"`
}

// SimulationResult is returned by quantum-simulation.
type SimulationResult struct {
	Particles      int       `json:"particles"`
	TimeSteps      int       `json:"time_steps"`
	EntangledPairs int       `json:"entangled_pairs"`
	Outcomes       []int     `json:"outcomes"`
	Prob1          []float64 `json:"prob1"`
}

// SubTaskResult is one entry of a parallel-computation result.
type SubTaskResult struct {
	Index int     `json:"index"`
	Mode  string  `json:"mode"`
	Input float64 `json:"input"`
	Value float64 `json:"value"`
}
