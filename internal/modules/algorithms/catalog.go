// Package algorithms holds the fixed table of algorithm scripts the simulation
// scheduler can run step by step.
package algorithms

import (
	"fmt"
	"sort"

	"github.com/aristath/qhybrid/internal/domain"
)

// StepKind is the operation a step performs on the register.
type StepKind string

const (
	StepSuperposeAll    StepKind = "superpose_all"
	StepOracle          StepKind = "oracle"
	StepDiffusion       StepKind = "diffusion"
	StepEntanglePairs   StepKind = "entangle_pairs"
	StepPhaseLadder     StepKind = "phase_ladder"
	StepCostLayer       StepKind = "cost_layer"
	StepMixerLayer      StepKind = "mixer_layer"
	StepParameterUpdate StepKind = "parameter_update"
	StepMeasureAll      StepKind = "measure_all"
)

// Step is one named stage of an algorithm.
type Step struct {
	Name string   `json:"name"`
	Kind StepKind `json:"kind"`
}

// Algorithm describes a repeating script of steps.
type Algorithm struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
	CycleLength int    `json:"cycle_length"`
	MinQubits   int    `json:"min_qubits"`
}

// StepAt returns the step executed on the given tick.
func (a Algorithm) StepAt(stepCount int64) Step {
	return a.Steps[int(stepCount%int64(a.CycleLength))]
}

func (a Algorithm) clone() Algorithm {
	a.Steps = append([]Step(nil), a.Steps...)
	return a
}

var table = []Algorithm{
	{
		Key:         "search",
		Name:        "Grover search",
		Description: "Amplitude amplification over an unstructured search space",
		Steps: []Step{
			{Name: "initialize superposition", Kind: StepSuperposeAll},
			{Name: "oracle phase flip", Kind: StepOracle},
			{Name: "diffusion", Kind: StepDiffusion},
			{Name: "measure", Kind: StepMeasureAll},
		},
		MinQubits: 2,
	},
	{
		Key:         "optimization",
		Name:        "QAOA",
		Description: "Alternating cost and mixer layers with classical parameter updates",
		Steps: []Step{
			{Name: "initialize superposition", Kind: StepSuperposeAll},
			{Name: "cost hamiltonian", Kind: StepCostLayer},
			{Name: "mixer hamiltonian", Kind: StepMixerLayer},
			{Name: "update parameters", Kind: StepParameterUpdate},
			{Name: "measure", Kind: StepMeasureAll},
		},
		MinQubits: 2,
	},
	{
		Key:         "transform",
		Name:        "Quantum Fourier transform",
		Description: "Hadamard layer followed by a ladder of controlled phase rotations",
		Steps: []Step{
			{Name: "hadamard layer", Kind: StepSuperposeAll},
			{Name: "controlled rotations", Kind: StepPhaseLadder},
			{Name: "measure", Kind: StepMeasureAll},
		},
		MinQubits: 3,
	},
	{
		Key:         "variational",
		Name:        "Variational eigensolver",
		Description: "Parameterized ansatz with entangling layer and energy estimation",
		Steps: []Step{
			{Name: "prepare ansatz", Kind: StepSuperposeAll},
			{Name: "entangling layer", Kind: StepEntanglePairs},
			{Name: "parameter rotation", Kind: StepParameterUpdate},
			{Name: "energy measurement", Kind: StepMeasureAll},
		},
		MinQubits: 2,
	},
}

// Catalog is a read-only lookup of algorithms by key.
type Catalog struct {
	byKey map[string]Algorithm
}

// NewCatalog builds the catalog from the built-in table.
func NewCatalog() *Catalog {
	c := &Catalog{byKey: make(map[string]Algorithm, len(table))}
	for _, a := range table {
		a = a.clone()
		a.CycleLength = len(a.Steps)
		c.byKey[a.Key] = a
	}
	return c
}

// Get returns the algorithm registered under key.
func (c *Catalog) Get(key string) (Algorithm, error) {
	a, ok := c.byKey[key]
	if !ok {
		return Algorithm{}, fmt.Errorf("algorithm %q: %w", key, domain.ErrNotFound)
	}
	return a.clone(), nil
}

// List returns every algorithm sorted by key.
func (c *Catalog) List() []Algorithm {
	list := make([]Algorithm, 0, len(c.byKey))
	for _, a := range c.byKey {
		list = append(list, a.clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list
}
