package quantum

import (
	"math"

	"github.com/aristath/qhybrid/internal/domain"
)

// MeasurementResult is the outcome of a measurement together with the
// probabilities the qubit had before it collapsed.
type MeasurementResult struct {
	QubitID        int     `json:"qubit_id"`
	Outcome        int     `json:"outcome"`
	Prob0          float64 `json:"prob0"`
	Prob1          float64 `json:"prob1"`
	PartnerID      *int    `json:"partner_id,omitempty"`
	PartnerOutcome *int    `json:"partner_outcome,omitempty"`
}

// Entangle pairs two qubits. Both are set to a fixed correlated configuration,
// the first to (1/√2, 1/√2) and the second to (1/√2, −1/√2), and reference
// each other as partners. Measuring either one later forces the other into
// the opposite basis state.
func (e *Engine) Entangle(r *Register, id1, id2 int) (EntanglementLink, error) {
	if id1 == id2 {
		return EntanglementLink{}, domain.Invalid("qubits", "cannot entangle qubit %d with itself", id1)
	}
	q1, err := r.qubit(id1)
	if err != nil {
		return EntanglementLink{}, err
	}
	q2, err := r.qubit(id2)
	if err != nil {
		return EntanglementLink{}, err
	}
	if q1.Entangled {
		return EntanglementLink{}, domain.Invalid("qubits", "qubit %d is already entangled", id1)
	}
	if q2.Entangled {
		return EntanglementLink{}, domain.Invalid("qubits", "qubit %d is already entangled", id2)
	}

	amp := complex(1/math.Sqrt2, 0)
	q1.Alpha, q1.Beta = amp, amp
	q2.Alpha, q2.Beta = amp, -amp
	q1.Entangled, q2.Entangled = true, true
	q1.partner, q2.partner = r.slots[id2], r.slots[id1]
	r.touch(q1)
	r.touch(q2)
	q1.Phase = phaseOf(q1.Beta)
	q2.Phase = phaseOf(q2.Beta)

	link := EntanglementLink{A: id1, B: id2, CreatedAt: r.now()}
	r.links = append(r.links, link)
	return link, nil
}

// Measure collapses qubit id to a basis state chosen with probabilities |α|²
// and |β|². An entangled partner is forced into the complementary basis state.
func (e *Engine) Measure(r *Register, id int) (MeasurementResult, error) {
	q, err := r.qubit(id)
	if err != nil {
		return MeasurementResult{}, err
	}

	prob0, prob1 := q.Prob0(), q.Prob1()
	total := prob0 + prob1
	if total <= 0 {
		prob0, prob1, total = 1, 0, 1
	}

	outcome := 1
	if e.rng.Float64() < prob0/total {
		outcome = 0
	}

	now := r.now()
	q.setBasis(outcome)
	q.LastUpdate = now
	q.Measurements = append(q.Measurements, Measurement{Outcome: outcome, At: now})

	result := MeasurementResult{
		QubitID: id,
		Outcome: outcome,
		Prob0:   prob0,
		Prob1:   prob1,
	}

	if q.Entangled && q.partner != noPartner {
		partner := &r.qubits[q.partner]
		partnerOutcome := 1 - outcome
		partner.setBasis(partnerOutcome)
		partner.LastUpdate = now
		partnerID := partner.ID
		result.PartnerID = &partnerID
		result.PartnerOutcome = &partnerOutcome
	}

	return result, nil
}

// Decohere scales both amplitudes of a superposed qubit by
// exp(−elapsedMs·rate/1000) and renormalizes. Basis states are left alone.
// It reports whether the qubit was superposed, i.e. whether a coherence event
// happened.
func (e *Engine) Decohere(r *Register, id int, rate, elapsedMs float64) (bool, error) {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return false, domain.Invalid("rate", "must be finite and non-negative")
	}
	if math.IsNaN(elapsedMs) || math.IsInf(elapsedMs, 0) {
		return false, domain.Invalid("elapsed_ms", "must be finite")
	}
	q, err := r.qubit(id)
	if err != nil {
		return false, err
	}
	if !q.IsSuperposed() {
		return false, nil
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}

	factor := complex(math.Exp(-elapsedMs*rate/1000), 0)
	q.Alpha *= factor
	q.Beta *= factor
	q.normalize()
	return true, nil
}
