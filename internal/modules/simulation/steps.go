package simulation

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/aristath/qhybrid/internal/modules/algorithms"
	"github.com/aristath/qhybrid/internal/modules/quantum"
)

// Probabilities of the extra operations of a free-running hybrid step.
const (
	measureProbability  = 0.1
	entangleProbability = 0.05
	parameterStep       = 0.1 * math.Pi
)

// executeStep runs the algorithm step due on this tick, or a random hybrid
// operation when no algorithm is selected. step is the already incremented
// step counter, so the first tick runs step 1 of the cycle.
func (c *Core) executeStep(step int64) (string, error) {
	if c.register.Len() == 0 {
		return "idle", nil
	}
	if c.algorithm != nil {
		s := c.algorithm.StepAt(step)
		return string(s.Kind), c.runAlgorithmStep(s.Kind)
	}
	return c.randomStep()
}

func (c *Core) runAlgorithmStep(kind algorithms.StepKind) error {
	ids := c.register.IDs()

	switch kind {
	case algorithms.StepSuperposeAll, algorithms.StepDiffusion:
		return c.applyAll(ids, quantum.Hadamard{})

	case algorithms.StepOracle:
		return c.applyAll(ids, quantum.PauliZ{})

	case algorithms.StepEntanglePairs:
		for i := 0; i+1 < len(ids); i += 2 {
			if c.isEntangled(ids[i]) || c.isEntangled(ids[i+1]) {
				continue
			}
			if _, err := c.entangle(ids[i], ids[i+1]); err != nil {
				return err
			}
		}
		return nil

	case algorithms.StepPhaseLadder:
		for i := range ids {
			for j := i + 1; j < len(ids); j++ {
				phase := math.Pi / math.Pow(2, float64(j-i))
				if err := c.controlledPhase(ids[j], ids[i], phase); err != nil {
					return err
				}
			}
		}
		return nil

	case algorithms.StepCostLayer:
		for i := 0; i+1 < len(ids); i++ {
			if err := c.controlledPhase(ids[i], ids[i+1], c.param(i)); err != nil {
				return err
			}
		}
		return nil

	case algorithms.StepMixerLayer:
		for i, id := range ids {
			if err := c.apply(id, quantum.Rotation{Angle: 2 * c.param(i)}); err != nil {
				return err
			}
		}
		return nil

	case algorithms.StepParameterUpdate:
		rng := c.engine.Rand()
		for i := range c.params {
			c.params[i] += parameterStep * (rng.Float64() - 0.5)
		}
		c.metrics.addClassicalOps(int64(len(c.params)))
		for i, id := range ids {
			if err := c.apply(id, quantum.Rotation{Angle: c.param(i)}); err != nil {
				return err
			}
		}
		return nil

	case algorithms.StepMeasureAll:
		outcomes := make([]int, 0, len(ids))
		for _, id := range ids {
			result, err := c.measure(id)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, result.Outcome)
		}
		if c.config.HybridMode {
			return c.storeOutcomes(outcomes)
		}
		return nil

	default:
		return fmt.Errorf("unsupported step kind %q", kind)
	}
}

// randomStep applies a random gate to a random qubit, occasionally measures
// or entangles, and counts a classical operation in hybrid mode.
func (c *Core) randomStep() (string, error) {
	rng := c.engine.Rand()
	ids := c.register.IDs()

	target := ids[rng.Intn(len(ids))]
	g := randomGate(rng, ids, target)
	if err := c.apply(target, g); err != nil {
		return g.Name(), err
	}
	operation := g.Name()

	if rng.Float64() < measureProbability {
		if _, err := c.measure(ids[rng.Intn(len(ids))]); err != nil {
			return operation, err
		}
		operation += "+measure"
	}

	if rng.Float64() < entangleProbability {
		var free []int
		for _, id := range ids {
			if !c.isEntangled(id) {
				free = append(free, id)
			}
		}
		if len(free) >= 2 {
			rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
			if _, err := c.entangle(free[0], free[1]); err != nil {
				return operation, err
			}
			operation += "+entangle"
		}
	}

	if c.config.HybridMode {
		c.metrics.addClassicalOps(1)
	}
	return operation, nil
}

func randomGate(rng *rand.Rand, ids []int, target int) quantum.Gate {
	switch rng.Intn(5) {
	case 0:
		return quantum.Hadamard{}
	case 1:
		return quantum.PauliX{}
	case 2:
		return quantum.PauliZ{}
	case 3:
		return quantum.Rotation{Angle: rng.Float64() * 2 * math.Pi}
	default:
		if len(ids) < 2 {
			return quantum.Hadamard{}
		}
		control := ids[rng.Intn(len(ids))]
		for control == target {
			control = ids[rng.Intn(len(ids))]
		}
		return quantum.ControlledPhase{Control: control, Phase: rng.Float64() * math.Pi}
	}
}

func (c *Core) applyAll(ids []int, g quantum.Gate) error {
	for _, id := range ids {
		if err := c.apply(id, g); err != nil {
			return err
		}
	}
	return nil
}

func (c *Core) controlledPhase(control, target int, phase float64) error {
	return c.apply(target, quantum.ControlledPhase{Control: control, Phase: phase})
}

func (c *Core) isEntangled(id int) bool {
	_, ok, err := c.register.PartnerOf(id)
	return err == nil && ok
}

// storeOutcomes writes the measured bitstring to the classical cache.
func (c *Core) storeOutcomes(outcomes []int) error {
	address := fmt.Sprintf("simulation/measurements/%d", c.stepCount)
	if _, err := c.cache.Write(address, outcomes); err != nil {
		return err
	}
	c.metrics.addCacheWrites(1)
	c.metrics.addClassicalOps(1)
	return nil
}

func (c *Core) initParams(n int) {
	rng := c.engine.Rand()
	c.params = make([]float64, n)
	for i := range c.params {
		c.params[i] = rng.Float64() * math.Pi
	}
}

func (c *Core) param(i int) float64 {
	if len(c.params) == 0 {
		return 0
	}
	return c.params[i%len(c.params)]
}
