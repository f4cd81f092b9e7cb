// Package quantum implements the simulated qubit register and the gate engine
// that mutates it.
package quantum

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/qhybrid/internal/domain"
)

// Register owns every qubit of a simulation. Qubits live in a flat slice;
// ids map to slots and entanglement partners are slot indices.
//
// Register is not safe for concurrent use. The simulation core serializes
// access to it.
type Register struct {
	maxQubits     int
	coherenceTime time.Duration
	qubits        []Qubit
	slots         map[int]int
	links         []EntanglementLink
	now           func() time.Time
}

// RegisterStats summarizes the register.
type RegisterStats struct {
	Qubits          int     `json:"qubits"`
	Superposed      int     `json:"superposed"`
	Entangled       int     `json:"entangled"`
	Links           int     `json:"links"`
	Measurements    int     `json:"measurements"`
	AvgCoherence    float64 `json:"avg_coherence"`
	Fidelity        float64 `json:"fidelity"`
	MaxQubits       int     `json:"max_qubits"`
	CoherenceTimeMs float64 `json:"coherence_time_ms"`
}

// NewRegister creates an empty register accepting ids in [0, maxQubits).
func NewRegister(maxQubits int, coherenceTime time.Duration) *Register {
	return &Register{
		maxQubits:     maxQubits,
		coherenceTime: coherenceTime,
		slots:         make(map[int]int),
		now:           time.Now,
	}
}

// SetClock replaces the time source (tests).
func (r *Register) SetClock(now func() time.Time) {
	r.now = now
}

// MaxQubits returns the configured id range.
func (r *Register) MaxQubits() int {
	return r.maxQubits
}

// Len returns the number of allocated qubits.
func (r *Register) Len() int {
	return len(r.qubits)
}

// Create allocates count qubits using the lowest free ids and returns those ids.
func (r *Register) Create(count int, rule InitRule) ([]int, error) {
	if count <= 0 {
		return nil, domain.Invalid("count", "must be greater than 0 (got %d)", count)
	}
	if len(r.qubits)+count > r.maxQubits {
		return nil, fmt.Errorf("allocating %d qubits with %d of %d in use: %w",
			count, len(r.qubits), r.maxQubits, domain.ErrInvalidIndex)
	}

	ids := make([]int, 0, count)
	for id := 0; len(ids) < count; id++ {
		if _, taken := r.slots[id]; !taken {
			ids = append(ids, id)
		}
	}
	if err := r.CreateWithIDs(ids, rule); err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateWithIDs allocates qubits with explicit ids. Nothing is allocated if any
// id is out of range, duplicated, or already taken.
func (r *Register) CreateWithIDs(ids []int, rule InitRule) error {
	if len(ids) == 0 {
		return domain.Invalid("ids", "at least one id is required")
	}
	if rule == nil {
		rule = ZeroState()
	}

	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if err := r.checkRange(id); err != nil {
			return err
		}
		if _, taken := r.slots[id]; taken || seen[id] {
			return fmt.Errorf("qubit %d already exists: %w", id, domain.ErrInvalidIndex)
		}
		seen[id] = true
	}

	now := r.now()
	created := make([]Qubit, 0, len(ids))
	for _, id := range ids {
		alpha, beta, err := rule()
		if err != nil {
			return err
		}
		q := Qubit{
			ID:            id,
			Alpha:         alpha,
			Beta:          beta,
			CreatedAt:     now,
			LastUpdate:    now,
			CoherenceTime: r.coherenceTime,
			partner:       noPartner,
		}
		q.normalize()
		q.Phase = phaseOf(q.Beta)
		created = append(created, q)
	}

	for _, q := range created {
		r.slots[q.ID] = len(r.qubits)
		r.qubits = append(r.qubits, q)
	}
	return nil
}

// Get returns a copy of the qubit with the given id.
func (r *Register) Get(id int) (Qubit, error) {
	q, err := r.qubit(id)
	if err != nil {
		return Qubit{}, err
	}
	return q.clone(), nil
}

// Exists reports whether a qubit with the given id is allocated.
func (r *Register) Exists(id int) bool {
	_, ok := r.slots[id]
	return ok
}

// IDs returns the allocated ids in ascending order.
func (r *Register) IDs() []int {
	ids := make([]int, 0, len(r.qubits))
	for _, q := range r.qubits {
		ids = append(ids, q.ID)
	}
	sort.Ints(ids)
	return ids
}

// PartnerOf returns the id of the qubit entangled with id, if any.
func (r *Register) PartnerOf(id int) (int, bool, error) {
	q, err := r.qubit(id)
	if err != nil {
		return 0, false, err
	}
	if q.partner == noPartner {
		return 0, false, nil
	}
	return r.qubits[q.partner].ID, true, nil
}

// Links returns a copy of the entanglement links.
func (r *Register) Links() []EntanglementLink {
	return append([]EntanglementLink(nil), r.links...)
}

// State returns a snapshot of one qubit.
func (r *Register) State(id int) (QubitState, error) {
	q, err := r.qubit(id)
	if err != nil {
		return QubitState{}, err
	}
	return r.snapshot(q, r.now()), nil
}

// States returns snapshots of every qubit ordered by id.
func (r *Register) States() []QubitState {
	now := r.now()
	states := make([]QubitState, 0, len(r.qubits))
	for i := range r.qubits {
		states = append(states, r.snapshot(&r.qubits[i], now))
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

func (r *Register) snapshot(q *Qubit, now time.Time) QubitState {
	s := QubitState{
		ID:           q.ID,
		Alpha:        NewAmplitude(q.Alpha),
		Beta:         NewAmplitude(q.Beta),
		Prob0:        q.Prob0(),
		Prob1:        q.Prob1(),
		Phase:        q.Phase,
		Superposed:   q.IsSuperposed(),
		Entangled:    q.Entangled,
		Measurements: len(q.Measurements),
		Coherence:    q.Coherence(now),
		LastUpdate:   q.LastUpdate,
	}
	if q.partner != noPartner {
		partnerID := r.qubits[q.partner].ID
		s.PartnerID = &partnerID
	}
	if n := len(q.Measurements); n > 0 {
		last := q.Measurements[n-1].Outcome
		s.LastOutcome = &last
	}
	return s
}

// Stats aggregates coherence, fidelity and entanglement counts.
//
// Average coherence is the mean of exp(−Δt/T) over qubits; fidelity is the
// product of exp(−Δt/(10T)). Both are zero for an empty register.
func (r *Register) Stats() RegisterStats {
	stats := RegisterStats{
		Qubits:          len(r.qubits),
		Links:           len(r.links),
		MaxQubits:       r.maxQubits,
		CoherenceTimeMs: float64(r.coherenceTime) / float64(time.Millisecond),
	}
	if len(r.qubits) == 0 {
		return stats
	}

	now := r.now()
	coherence := make([]float64, len(r.qubits))
	fidelity := 1.0
	for i := range r.qubits {
		q := &r.qubits[i]
		coherence[i] = q.Coherence(now)
		fidelity *= q.Fidelity(now)
		if q.IsSuperposed() {
			stats.Superposed++
		}
		if q.Entangled {
			stats.Entangled++
		}
		stats.Measurements += len(q.Measurements)
	}
	stats.AvgCoherence = stat.Mean(coherence, nil)
	stats.Fidelity = fidelity
	return stats
}

// Reset removes every qubit and entanglement link. Calling it on an empty
// register is a no-op.
func (r *Register) Reset() {
	r.qubits = nil
	r.links = nil
	r.slots = make(map[int]int)
}

func (r *Register) checkRange(id int) error {
	if id < 0 || id >= r.maxQubits {
		return fmt.Errorf("qubit %d outside [0, %d): %w", id, r.maxQubits, domain.ErrInvalidIndex)
	}
	return nil
}

// qubit returns a pointer into the slot slice. The pointer stays valid until
// the next allocation.
func (r *Register) qubit(id int) (*Qubit, error) {
	if err := r.checkRange(id); err != nil {
		return nil, err
	}
	slot, ok := r.slots[id]
	if !ok {
		return nil, fmt.Errorf("qubit %d: %w", id, domain.ErrNotFound)
	}
	return &r.qubits[slot], nil
}
