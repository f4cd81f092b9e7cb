package quantum

import (
	"math"
	"math/cmplx"
	"math/rand"
	"time"

	"github.com/aristath/qhybrid/internal/domain"
)

const (
	// noPartner marks a qubit without an entangled partner slot.
	noPartner = -1

	// amplitudeEpsilon is the squared magnitude below which an amplitude counts as zero.
	amplitudeEpsilon = 1e-9

	// normTolerance is how far |α|²+|β|² may drift from 1 before renormalization.
	normTolerance = 1e-12
)

// Measurement is one recorded measurement outcome.
type Measurement struct {
	Outcome int       `json:"outcome"`
	At      time.Time `json:"at"`
}

// Qubit holds the amplitude state of a single simulated qubit.
//
// Entanglement is modeled as a back-reference to the partner's slot in the
// owning Register, never as a pointer; the Register owns every Qubit.
type Qubit struct {
	ID            int
	Alpha         complex128 // |0⟩ amplitude
	Beta          complex128 // |1⟩ amplitude
	Phase         float64
	Entangled     bool
	Measurements  []Measurement
	CreatedAt     time.Time
	LastUpdate    time.Time
	CoherenceTime time.Duration

	partner int
}

// Prob0 returns |α|².
func (q *Qubit) Prob0() float64 {
	return sqMag(q.Alpha)
}

// Prob1 returns |β|².
func (q *Qubit) Prob1() float64 {
	return sqMag(q.Beta)
}

// IsSuperposed reports whether both amplitudes are non-zero.
func (q *Qubit) IsSuperposed() bool {
	return q.Prob0() > amplitudeEpsilon && q.Prob1() > amplitudeEpsilon
}

// Coherence returns exp(−Δt/T) where Δt is the time since the last update.
func (q *Qubit) Coherence(now time.Time) float64 {
	return decay(now.Sub(q.LastUpdate), q.CoherenceTime)
}

// Fidelity returns exp(−Δt/(10T)).
func (q *Qubit) Fidelity(now time.Time) float64 {
	return decay(now.Sub(q.LastUpdate), 10*q.CoherenceTime)
}

func (q *Qubit) setBasis(outcome int) {
	if outcome == 0 {
		q.Alpha, q.Beta = 1, 0
	} else {
		q.Alpha, q.Beta = 0, 1
	}
	q.Phase = 0
}

// normalize restores |α|²+|β|² = 1. A zero vector collapses to |0⟩.
func (q *Qubit) normalize() {
	norm := sqMag(q.Alpha) + sqMag(q.Beta)
	if norm < amplitudeEpsilon*amplitudeEpsilon {
		q.setBasis(0)
		return
	}
	if math.Abs(norm-1) <= normTolerance {
		return
	}
	scale := complex(1/math.Sqrt(norm), 0)
	q.Alpha *= scale
	q.Beta *= scale
}

func (q *Qubit) clone() Qubit {
	c := *q
	c.Measurements = append([]Measurement(nil), q.Measurements...)
	return c
}

// EntanglementLink records a symmetric pairing between two qubits.
type EntanglementLink struct {
	A         int       `json:"a"`
	B         int       `json:"b"`
	CreatedAt time.Time `json:"created_at"`
}

// Amplitude is the JSON-friendly form of a complex amplitude.
type Amplitude struct {
	Real      float64 `json:"real"`
	Imaginary float64 `json:"imaginary"`
}

// NewAmplitude converts a complex128 into an Amplitude.
func NewAmplitude(c complex128) Amplitude {
	return Amplitude{Real: real(c), Imaginary: imag(c)}
}

// Complex converts the amplitude back into a complex128.
func (a Amplitude) Complex() complex128 {
	return complex(a.Real, a.Imaginary)
}

// QubitState is a read-only snapshot of a qubit for callers outside the package.
type QubitState struct {
	ID           int       `json:"id"`
	Alpha        Amplitude `json:"alpha"`
	Beta         Amplitude `json:"beta"`
	Prob0        float64   `json:"prob0"`
	Prob1        float64   `json:"prob1"`
	Phase        float64   `json:"phase"`
	Superposed   bool      `json:"superposed"`
	Entangled    bool      `json:"entangled"`
	PartnerID    *int      `json:"partner_id,omitempty"`
	Measurements int       `json:"measurements"`
	LastOutcome  *int      `json:"last_outcome,omitempty"`
	Coherence    float64   `json:"coherence"`
	LastUpdate   time.Time `json:"last_update"`
}

// InitRule produces the initial (α, β) pair for a newly created qubit.
type InitRule func() (alpha, beta complex128, err error)

// ZeroState initializes qubits deterministically to |0⟩.
func ZeroState() InitRule {
	return func() (complex128, complex128, error) {
		return 1, 0, nil
	}
}

// Amplitudes initializes qubits to a caller-supplied pair, normalized on use.
func Amplitudes(alpha, beta complex128) InitRule {
	return func() (complex128, complex128, error) {
		norm := sqMag(alpha) + sqMag(beta)
		if norm < amplitudeEpsilon*amplitudeEpsilon {
			return 0, 0, domain.Invalid("amplitudes", "alpha and beta cannot both be zero")
		}
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			return 0, 0, domain.Invalid("amplitudes", "alpha and beta must be finite")
		}
		scale := complex(1/math.Sqrt(norm), 0)
		return alpha * scale, beta * scale, nil
	}
}

// RandomReal draws α uniformly in [0,1] and sets β = √(1−α²).
func RandomReal(rng *rand.Rand) InitRule {
	return func() (complex128, complex128, error) {
		a := rng.Float64()
		return complex(a, 0), complex(math.Sqrt(1-a*a), 0), nil
	}
}

func sqMag(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

func decay(elapsed, constant time.Duration) float64 {
	if constant <= 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return math.Exp(-float64(elapsed) / float64(constant))
}

func phaseOf(c complex128) float64 {
	if c == 0 {
		return 0
	}
	return cmplx.Phase(c)
}
