package quantum

import (
	"math"
	"math/cmplx"
	"math/rand"
	"strings"

	"github.com/aristath/qhybrid/internal/domain"
)

// Gate is a closed set of single-qubit gate kinds. Every implementation lives
// in this package and Engine.Apply matches them exhaustively.
type Gate interface {
	Name() string
	isGate()
}

// Hadamard maps α, β to (α+β)/√2, (α−β)/√2.
type Hadamard struct{}

// PauliX swaps α and β.
type PauliX struct{}

// PauliZ negates β.
type PauliZ struct{}

// Rotation mixes α and β with cos/sin of half the angle.
type Rotation struct {
	Angle float64
}

// ControlledPhase multiplies the target's β by e^{iφ} when the control's β is non-zero.
type ControlledPhase struct {
	Control int
	Phase   float64
}

func (Hadamard) Name() string        { return "hadamard" }
func (PauliX) Name() string          { return "pauli_x" }
func (PauliZ) Name() string          { return "pauli_z" }
func (Rotation) Name() string        { return "rotation" }
func (ControlledPhase) Name() string { return "controlled_phase" }

func (Hadamard) isGate()        {}
func (PauliX) isGate()          {}
func (PauliZ) isGate()          {}
func (Rotation) isGate()        {}
func (ControlledPhase) isGate() {}

// GateParams carries the optional parameters of a gate request.
type GateParams struct {
	Angle   float64
	Phase   float64
	Control *int
}

// ParseGate resolves a wire name into a Gate. Unknown names are rejected.
func ParseGate(name string, params GateParams) (Gate, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hadamard", "h":
		return Hadamard{}, nil
	case "pauli_x", "paulix", "x", "not":
		return PauliX{}, nil
	case "pauli_z", "pauliz", "z":
		return PauliZ{}, nil
	case "rotation", "rotate", "ry":
		return Rotation{Angle: params.Angle}, nil
	case "controlled_phase", "cphase", "cp":
		if params.Control == nil {
			return nil, domain.Invalid("control_id", "required for controlled_phase")
		}
		return ControlledPhase{Control: *params.Control, Phase: params.Phase}, nil
	case "":
		return nil, domain.Invalid("gate", "required")
	default:
		return nil, domain.Invalid("gate", "unknown gate %q", name)
	}
}

// Engine applies gates, entanglement, measurement and decoherence to register
// entries. It holds no qubit state of its own; the random source drives
// measurement outcomes.
type Engine struct {
	rng *rand.Rand
}

// NewEngine creates an engine drawing measurement outcomes from rng.
func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng}
}

// Rand exposes the engine's random source so callers share one stream.
func (e *Engine) Rand() *rand.Rand {
	return e.rng
}

// Apply dispatches a gate onto qubit id.
func (e *Engine) Apply(r *Register, id int, g Gate) error {
	switch g := g.(type) {
	case Hadamard:
		return e.Hadamard(r, id)
	case PauliX:
		return e.PauliX(r, id)
	case PauliZ:
		return e.PauliZ(r, id)
	case Rotation:
		return e.Rotate(r, id, g.Angle)
	case ControlledPhase:
		_, err := e.ControlledPhase(r, g.Control, id, g.Phase)
		return err
	default:
		return domain.Invalid("gate", "unsupported gate %T", g)
	}
}

// Hadamard creates (or undoes) superposition.
func (e *Engine) Hadamard(r *Register, id int) error {
	q, err := r.qubit(id)
	if err != nil {
		return err
	}
	alpha, beta := q.Alpha, q.Beta
	q.Alpha = (alpha + beta) / math.Sqrt2
	q.Beta = (alpha - beta) / math.Sqrt2
	r.touch(q)
	return nil
}

// PauliX swaps the amplitudes.
func (e *Engine) PauliX(r *Register, id int) error {
	q, err := r.qubit(id)
	if err != nil {
		return err
	}
	q.Alpha, q.Beta = q.Beta, q.Alpha
	r.touch(q)
	return nil
}

// PauliZ flips the sign of β.
func (e *Engine) PauliZ(r *Register, id int) error {
	q, err := r.qubit(id)
	if err != nil {
		return err
	}
	q.Beta = -q.Beta
	r.touch(q)
	return nil
}

// Rotate applies [[cos θ/2, −sin θ/2], [sin θ/2, cos θ/2]] and records the
// resulting phase of β.
func (e *Engine) Rotate(r *Register, id int, angle float64) error {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return domain.Invalid("angle", "must be finite")
	}
	q, err := r.qubit(id)
	if err != nil {
		return err
	}
	c := complex(math.Cos(angle/2), 0)
	s := complex(math.Sin(angle/2), 0)
	alpha, beta := q.Alpha, q.Beta
	q.Alpha = c*alpha - s*beta
	q.Beta = s*alpha + c*beta
	r.touch(q)
	q.Phase = phaseOf(q.Beta)
	return nil
}

// ControlledPhase rotates the target's β by phase when the control has a
// non-zero β. It reports whether the phase was applied.
func (e *Engine) ControlledPhase(r *Register, controlID, targetID int, phase float64) (bool, error) {
	if controlID == targetID {
		return false, domain.Invalid("control_id", "must differ from the target qubit")
	}
	if math.IsNaN(phase) || math.IsInf(phase, 0) {
		return false, domain.Invalid("phase", "must be finite")
	}
	control, err := r.qubit(controlID)
	if err != nil {
		return false, err
	}
	target, err := r.qubit(targetID)
	if err != nil {
		return false, err
	}
	if control.Prob1() <= amplitudeEpsilon {
		return false, nil
	}
	target.Beta *= cmplx.Exp(complex(0, phase))
	r.touch(target)
	target.Phase = phaseOf(target.Beta)
	return true, nil
}

// touch renormalizes a mutated qubit and refreshes its update time.
func (r *Register) touch(q *Qubit) {
	q.normalize()
	q.LastUpdate = r.now()
}
