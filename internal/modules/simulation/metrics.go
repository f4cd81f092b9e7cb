package simulation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/stat"
)

// performanceHistorySize caps the performance history; the oldest sample is
// dropped first.
const performanceHistorySize = 1000

var (
	quantumOpsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qhybrid_quantum_ops_total",
		Help: "Total number of gate applications, measurements and entanglements.",
	})

	classicalOpsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qhybrid_classical_ops_total",
		Help: "Total number of classical operations.",
	})

	cacheOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qhybrid_cache_operations_total",
			Help: "Total number of tiered cache operations.",
		},
		[]string{"op"},
	)

	coherenceEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qhybrid_coherence_events_total",
		Help: "Total number of decoherence applications to superposed qubits.",
	})

	entanglementEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qhybrid_entanglement_events_total",
		Help: "Total number of entanglement links created.",
	})

	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qhybrid_tasks_total",
			Help: "Total number of executed hybrid tasks.",
		},
		[]string{"status"},
	)

	stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qhybrid_steps_total",
			Help: "Total number of scheduler ticks.",
		},
		[]string{"result"},
	)

	stepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "qhybrid_step_duration_seconds",
		Help:    "Scheduler tick duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})

	runningGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qhybrid_running",
		Help: "1 while the simulation is running.",
	})

	qubitsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qhybrid_qubits",
		Help: "Number of allocated qubits.",
	})

	coherenceGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qhybrid_coherence",
		Help: "Average register coherence.",
	})

	fidelityGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qhybrid_fidelity",
		Help: "Aggregate register fidelity.",
	})

	cacheHitRateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qhybrid_cache_hit_rate",
		Help: "Overall tiered cache hit rate.",
	})
)

func init() {
	prometheus.MustRegister(
		quantumOpsTotal,
		classicalOpsTotal,
		cacheOpsTotal,
		coherenceEventsTotal,
		entanglementEventsTotal,
		tasksTotal,
		stepsTotal,
		stepDuration,
		runningGauge,
		qubitsGauge,
		coherenceGauge,
		fidelityGauge,
		cacheHitRateGauge,
	)
}

// PerformanceSample is recorded after every tick.
type PerformanceSample struct {
	Step            int64     `json:"step"`
	At              time.Time `json:"at"`
	Operation       string    `json:"operation"`
	StepTimeMs      float64   `json:"step_time_ms"`
	Coherence       float64   `json:"coherence"`
	Fidelity        float64   `json:"fidelity"`
	ActiveQubits    int       `json:"active_qubits"`
	EntangledQubits int       `json:"entangled_qubits"`
	Degraded        bool      `json:"degraded,omitempty"`
}

// MetricsSnapshot is a copy of the counters.
type MetricsSnapshot struct {
	QuantumOps         int64   `json:"quantum_ops"`
	ClassicalOps       int64   `json:"classical_ops"`
	CacheReads         int64   `json:"cache_reads"`
	CacheWrites        int64   `json:"cache_writes"`
	CoherenceEvents    int64   `json:"coherence_events"`
	EntanglementEvents int64   `json:"entanglement_events"`
	TasksExecuted      int64   `json:"tasks_executed"`
	TasksFailed        int64   `json:"tasks_failed"`
	Samples            int     `json:"samples"`
	AvgStepTimeMs      float64 `json:"avg_step_time_ms"`
	AvgCoherence       float64 `json:"avg_coherence"`
}

// Metrics holds the monotonically increasing counters and the capped
// performance history. Counters are mirrored to Prometheus.
type Metrics struct {
	quantumOps         int64
	classicalOps       int64
	cacheReads         int64
	cacheWrites        int64
	coherenceEvents    int64
	entanglementEvents int64
	tasksExecuted      int64
	tasksFailed        int64
	history            []PerformanceSample
}

// NewMetrics creates empty metrics.
func NewMetrics() *Metrics {
	return &Metrics{history: make([]PerformanceSample, 0, performanceHistorySize)}
}

func (m *Metrics) addQuantumOps(n int64) {
	m.quantumOps += n
	quantumOpsTotal.Add(float64(n))
}

func (m *Metrics) addClassicalOps(n int64) {
	m.classicalOps += n
	classicalOpsTotal.Add(float64(n))
}

func (m *Metrics) addCacheReads(n int64) {
	m.cacheReads += n
	cacheOpsTotal.WithLabelValues("read").Add(float64(n))
}

func (m *Metrics) addCacheWrites(n int64) {
	m.cacheWrites += n
	cacheOpsTotal.WithLabelValues("write").Add(float64(n))
}

func (m *Metrics) addCoherenceEvents(n int64) {
	m.coherenceEvents += n
	coherenceEventsTotal.Add(float64(n))
}

func (m *Metrics) addEntanglementEvent() {
	m.entanglementEvents++
	entanglementEventsTotal.Inc()
}

func (m *Metrics) addTask(failed bool) {
	m.tasksExecuted++
	status := "completed"
	if failed {
		m.tasksFailed++
		status = "failed"
	}
	tasksTotal.WithLabelValues(status).Inc()
}

// record appends a sample, dropping the oldest beyond the cap.
func (m *Metrics) record(s PerformanceSample) {
	if len(m.history) >= performanceHistorySize {
		copy(m.history, m.history[1:])
		m.history = m.history[:len(m.history)-1]
	}
	m.history = append(m.history, s)

	result := "ok"
	if s.Degraded {
		result = "degraded"
	}
	stepsTotal.WithLabelValues(result).Inc()
	stepDuration.Observe(s.StepTimeMs / 1000)
}

// Latest returns the most recent sample, if any.
func (m *Metrics) Latest() (PerformanceSample, bool) {
	if len(m.history) == 0 {
		return PerformanceSample{}, false
	}
	return m.history[len(m.history)-1], true
}

// History returns up to n of the newest samples, oldest first. n <= 0 returns all.
func (m *Metrics) History(n int) []PerformanceSample {
	if n <= 0 || n > len(m.history) {
		n = len(m.history)
	}
	return append([]PerformanceSample(nil), m.history[len(m.history)-n:]...)
}

// Snapshot copies the counters and summarizes the history.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		QuantumOps:         m.quantumOps,
		ClassicalOps:       m.classicalOps,
		CacheReads:         m.cacheReads,
		CacheWrites:        m.cacheWrites,
		CoherenceEvents:    m.coherenceEvents,
		EntanglementEvents: m.entanglementEvents,
		TasksExecuted:      m.tasksExecuted,
		TasksFailed:        m.tasksFailed,
		Samples:            len(m.history),
	}
	if len(m.history) > 0 {
		stepTimes := make([]float64, len(m.history))
		coherence := make([]float64, len(m.history))
		for i, sample := range m.history {
			stepTimes[i] = sample.StepTimeMs
			coherence[i] = sample.Coherence
		}
		s.AvgStepTimeMs = stat.Mean(stepTimes, nil)
		s.AvgCoherence = stat.Mean(coherence, nil)
	}
	return s
}

// Reset clears counters and history. Prometheus counters keep their totals.
func (m *Metrics) Reset() {
	*m = Metrics{history: make([]PerformanceSample, 0, performanceHistorySize)}
}
