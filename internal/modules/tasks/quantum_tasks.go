package tasks

import (
	"math"
	"reflect"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/modules/quantum"
)

// search runs Grover-style amplitude amplification over the search space and
// interprets the measured bitstring as an index into it.
func (r *taskRun) search(d Data) (SearchResult, error) {
	size := len(d.SearchSpace)
	if size == 0 {
		return SearchResult{}, domain.Invalid("search_space", "required")
	}

	ids, err := r.allocate(qubitsFor(size))
	if err != nil {
		return SearchResult{}, err
	}
	if err := r.applyAll(ids, quantum.Hadamard{}); err != nil {
		return SearchResult{}, err
	}

	iterations := int(math.Floor(math.Pi / 4 * math.Sqrt(float64(size))))
	for i := 0; i < iterations; i++ {
		// oracle
		if err := r.applyAll(ids, quantum.PauliZ{}); err != nil {
			return SearchResult{}, err
		}
		// diffusion
		if err := r.applyAll(ids, quantum.Hadamard{}); err != nil {
			return SearchResult{}, err
		}
	}

	outcomes, err := r.measureAll(ids)
	if err != nil {
		return SearchResult{}, err
	}

	index := 0
	for i, outcome := range outcomes {
		index |= outcome << i
	}
	index %= size
	r.classicalOps++

	value := d.SearchSpace[index]
	return SearchResult{
		Index:      index,
		Value:      value,
		Found:      d.Target != nil && reflect.DeepEqual(value, d.Target),
		Bitstring:  bitstring(outcomes),
		Qubits:     len(ids),
		Iterations: iterations,
	}, nil
}

// optimize encodes each variable's position within its bound as a rotation,
// anneals the register with shrinking random rotations, measures, and turns
// each bit into a step of ±half the bound width from the original value.
func (r *taskRun) optimize(d Data) (OptimizationResult, error) {
	vars := d.Variables
	if len(vars) == 0 {
		return OptimizationResult{}, domain.Invalid("variables", "required")
	}
	for i, v := range vars {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return OptimizationResult{}, domain.Invalid("variables", "value %d is not finite", i)
		}
	}
	bounds, err := resolveBounds(vars, d.Bounds)
	if err != nil {
		return OptimizationResult{}, err
	}

	normalized := make([]float64, len(vars))
	for i, v := range vars {
		normalized[i] = 0.5
		if span := bounds[i].Max - bounds[i].Min; span > 0 {
			normalized[i] = clamp((v-bounds[i].Min)/span, 0, 1)
		}
	}
	r.classicalOps += int64(len(vars))
	if err := r.store("preprocessed", normalized); err != nil {
		return OptimizationResult{}, err
	}

	n := len(vars)
	if limit := r.register.MaxQubits(); n > limit {
		n = limit
	}
	ids, err := r.allocate(n)
	if err != nil {
		return OptimizationResult{}, err
	}
	for i, id := range ids {
		if err := r.apply(id, quantum.Rotation{Angle: math.Pi * normalized[i]}); err != nil {
			return OptimizationResult{}, err
		}
	}

	for sweep := 0; sweep < annealingSweeps; sweep++ {
		temperature := 1 - float64(sweep)/float64(annealingSweeps-1)
		for _, id := range ids {
			angle := temperature * math.Pi * (r.rand() - 0.5)
			if err := r.apply(id, quantum.Rotation{Angle: angle}); err != nil {
				return OptimizationResult{}, err
			}
		}
	}

	measurements, err := r.measureAll(ids)
	if err != nil {
		return OptimizationResult{}, err
	}

	solution := make([]float64, len(vars))
	weights := make([]float64, len(vars))
	for i, v := range vars {
		bit := 0.5
		if i < len(measurements) {
			bit = float64(measurements[i])
		}
		solution[i] = clamp(v+(bit-0.5)*(bounds[i].Max-bounds[i].Min), bounds[i].Min, bounds[i].Max)
		weights[i] = float64(i + 1)
	}
	r.classicalOps += 2 * int64(len(vars))

	energy := floats.Dot(solution, weights)
	if err := r.store("solution", solution); err != nil {
		return OptimizationResult{}, err
	}

	return OptimizationResult{
		Solution:     solution,
		Energy:       energy,
		Measurements: measurements,
		Qubits:       len(ids),
		Sweeps:       annealingSweeps,
	}, nil
}

// simulate puts every particle qubit in superposition, entangles adjacent
// pairs and evolves them with a rotation whose angle grows with time.
func (r *taskRun) simulate(d Data) (SimulationResult, error) {
	if d.Particles <= 0 {
		return SimulationResult{}, domain.Invalid("particles", "must be greater than 0")
	}
	steps := d.TimeSteps
	switch {
	case steps < 0:
		return SimulationResult{}, domain.Invalid("time_steps", "must not be negative")
	case steps > r.maxTimeSteps:
		return SimulationResult{}, domain.Invalid("time_steps", "must not exceed %d", r.maxTimeSteps)
	case steps == 0:
		steps = defaultTimeSteps
	}

	n := d.Particles
	if limit := r.register.MaxQubits(); n > limit {
		n = limit
	}
	ids, err := r.allocate(n)
	if err != nil {
		return SimulationResult{}, err
	}
	if err := r.applyAll(ids, quantum.Hadamard{}); err != nil {
		return SimulationResult{}, err
	}

	pairs := 0
	for i := 0; i+1 < len(ids); i += 2 {
		r.quantumOps++
		if _, err := r.engine.Entangle(r.register, ids[i], ids[i+1]); err != nil {
			return SimulationResult{}, err
		}
		pairs++
	}

	for step := 1; step <= steps; step++ {
		angle := math.Pi / 2 * float64(step) / float64(steps)
		if err := r.applyAll(ids, quantum.Rotation{Angle: angle}); err != nil {
			return SimulationResult{}, err
		}
	}

	prob1 := make([]float64, len(ids))
	for i, id := range ids {
		q, err := r.register.Get(id)
		if err != nil {
			return SimulationResult{}, err
		}
		prob1[i] = q.Prob1()
	}

	outcomes, err := r.measureAll(ids)
	if err != nil {
		return SimulationResult{}, err
	}

	return SimulationResult{
		Particles:      n,
		TimeSteps:      steps,
		EntangledPairs: pairs,
		Outcomes:       outcomes,
		Prob1:          prob1,
	}, nil
}

// parallel stores each sub-task and resolves it either with a quantum coin
// flip or a classical doubling, chosen at random.
func (r *taskRun) parallel(d Data) ([]SubTaskResult, error) {
	if len(d.SubTasks) == 0 {
		return nil, domain.Invalid("sub_tasks", "required")
	}

	coin := -1
	results := make([]SubTaskResult, 0, len(d.SubTasks))
	for i, input := range d.SubTasks {
		if err := r.store("subtask/"+strconv.Itoa(i), input); err != nil {
			return nil, err
		}

		res := SubTaskResult{Index: i, Input: input}
		if r.rand() < 0.5 {
			if coin < 0 {
				ids, err := r.allocate(1)
				if err != nil {
					return nil, err
				}
				coin = ids[0]
			}
			outcome, err := r.flip(coin)
			if err != nil {
				return nil, err
			}
			res.Mode = "quantum"
			res.Value = float64(outcome)
		} else {
			r.classicalOps++
			res.Mode = "classical"
			res.Value = input * 2
		}
		results = append(results, res)
	}
	return results, nil
}

// flip measures a fresh superposition and returns the coin qubit to |0⟩.
func (r *taskRun) flip(id int) (int, error) {
	if err := r.apply(id, quantum.Hadamard{}); err != nil {
		return 0, err
	}
	outcome, err := r.measure(id)
	if err != nil {
		return 0, err
	}
	if outcome == 1 {
		if err := r.apply(id, quantum.PauliX{}); err != nil {
			return 0, err
		}
	}
	return outcome, nil
}

func resolveBounds(vars []float64, given []Bound) ([]Bound, error) {
	bounds := make([]Bound, len(vars))
	if len(given) == 0 {
		span := Bound{Min: floats.Min(vars), Max: floats.Max(vars)}
		for i := range bounds {
			bounds[i] = span
		}
		return bounds, nil
	}
	if len(given) != len(vars) {
		return nil, domain.Invalid("bounds", "expected %d bounds, got %d", len(vars), len(given))
	}
	for i, b := range given {
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || b.Min > b.Max {
			return nil, domain.Invalid("bounds", "bound %d is not a valid interval", i)
		}
		bounds[i] = b
	}
	return bounds, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
