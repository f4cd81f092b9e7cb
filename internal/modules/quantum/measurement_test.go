package quantum

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qhybrid/internal/domain"
)

func TestMeasure_HadamardSamplesEvenly(t *testing.T) {
	reg, _ := newTestRegister(t, 2)
	engine := NewEngine(rand.New(rand.NewSource(2024)))

	const samples = 4000
	ones := 0
	for i := 0; i < samples; i++ {
		reg.Reset()
		_, err := reg.Create(1, Amplitudes(1, 0))
		require.NoError(t, err)
		require.NoError(t, engine.Hadamard(reg, 0))

		result, err := engine.Measure(reg, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, result.Prob0, 1e-12)
		assert.InDelta(t, 0.5, result.Prob1, 1e-12)
		ones += result.Outcome
	}

	assert.InDelta(t, 0.5, float64(ones)/samples, 0.05)
}

func TestMeasure_CollapsesAndRecords(t *testing.T) {
	reg, _ := newTestRegister(t, 2)
	engine := NewEngine(rand.New(rand.NewSource(5)))
	require.NoError(t, reg.CreateWithIDs([]int{0}, Amplitudes(0.6, 0.8)))

	result, err := engine.Measure(reg, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.36, result.Prob0, 1e-12)
	assert.InDelta(t, 0.64, result.Prob1, 1e-12)
	assert.Nil(t, result.PartnerID)

	q, err := reg.Get(0)
	require.NoError(t, err)
	assert.False(t, q.IsSuperposed())
	require.Len(t, q.Measurements, 1)
	assert.Equal(t, result.Outcome, q.Measurements[0].Outcome)
	if result.Outcome == 0 {
		assert.Equal(t, complex128(1), q.Alpha)
	} else {
		assert.Equal(t, complex128(1), q.Beta)
	}
}

func TestMeasure_BasisStateIsDeterministic(t *testing.T) {
	reg, _ := newTestRegister(t, 2)
	engine := NewEngine(rand.New(rand.NewSource(5)))
	require.NoError(t, reg.CreateWithIDs([]int{0}, Amplitudes(0, 1)))

	for i := 0; i < 20; i++ {
		result, err := engine.Measure(reg, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Outcome)
	}
}

func TestEntangle_SetsSymmetricLink(t *testing.T) {
	reg, _ := newTestRegister(t, 4)
	engine := NewEngine(rand.New(rand.NewSource(1)))
	_, err := reg.Create(2, ZeroState())
	require.NoError(t, err)

	link, err := engine.Entangle(reg, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, link.A)
	assert.Equal(t, 1, link.B)

	p0, ok, err := reg.PartnerOf(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, p0)

	p1, ok, err := reg.PartnerOf(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, p1)

	q0, _ := reg.Get(0)
	q1, _ := reg.Get(1)
	assert.True(t, q0.Entangled)
	assert.True(t, q1.Entangled)
	assert.InDelta(t, 1/math.Sqrt2, real(q0.Beta), 1e-12)
	assert.InDelta(t, -1/math.Sqrt2, real(q1.Beta), 1e-12)
	assert.Len(t, reg.Links(), 1)
}

func TestEntangle_Rejections(t *testing.T) {
	reg, _ := newTestRegister(t, 4)
	engine := NewEngine(rand.New(rand.NewSource(1)))
	_, err := reg.Create(3, ZeroState())
	require.NoError(t, err)

	_, err = engine.Entangle(reg, 1, 1)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = engine.Entangle(reg, 0, 3)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = engine.Entangle(reg, 0, 1)
	require.NoError(t, err)
	_, err = engine.Entangle(reg, 1, 2)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Len(t, reg.Links(), 1)
}

func TestMeasure_ForcesPartnerIntoComplement(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		reg, _ := newTestRegister(t, 4)
		engine := NewEngine(rand.New(rand.NewSource(seed)))
		_, err := reg.Create(2, ZeroState())
		require.NoError(t, err)
		_, err = engine.Entangle(reg, 0, 1)
		require.NoError(t, err)

		result, err := engine.Measure(reg, 0)
		require.NoError(t, err)
		require.NotNil(t, result.PartnerID)
		assert.Equal(t, 1, *result.PartnerID)
		assert.Equal(t, 1-result.Outcome, *result.PartnerOutcome)

		partner, err := reg.Get(1)
		require.NoError(t, err)
		if result.Outcome == 0 {
			assert.Equal(t, complex128(0), partner.Alpha)
			assert.Equal(t, complex128(1), partner.Beta)
		} else {
			assert.Equal(t, complex128(1), partner.Alpha)
			assert.Equal(t, complex128(0), partner.Beta)
		}
	}
}

func TestDecohere(t *testing.T) {
	t.Run("superposed qubit stays normalized", func(t *testing.T) {
		reg, _ := newTestRegister(t, 2)
		engine := NewEngine(rand.New(rand.NewSource(1)))
		require.NoError(t, reg.CreateWithIDs([]int{0}, Amplitudes(0.6, 0.8)))

		event, err := engine.Decohere(reg, 0, 0.001, 250)
		require.NoError(t, err)
		assert.True(t, event)
		assertNormalized(t, reg)
	})

	t.Run("basis state is untouched", func(t *testing.T) {
		reg, _ := newTestRegister(t, 2)
		engine := NewEngine(rand.New(rand.NewSource(1)))
		_, err := reg.Create(1, ZeroState())
		require.NoError(t, err)

		event, err := engine.Decohere(reg, 0, 0.5, 1000)
		require.NoError(t, err)
		assert.False(t, event)

		q, _ := reg.Get(0)
		assert.Equal(t, complex128(1), q.Alpha)
	})

	t.Run("negative rate is rejected", func(t *testing.T) {
		reg, _ := newTestRegister(t, 2)
		engine := NewEngine(rand.New(rand.NewSource(1)))
		_, err := reg.Create(1, ZeroState())
		require.NoError(t, err)

		_, err = engine.Decohere(reg, 0, -1, 10)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("non-finite inputs are rejected", func(t *testing.T) {
		reg, _ := newTestRegister(t, 2)
		engine := NewEngine(rand.New(rand.NewSource(1)))
		_, err := reg.Create(1, ZeroState())
		require.NoError(t, err)
		require.NoError(t, engine.Hadamard(reg, 0))

		tests := []struct {
			name      string
			rate      float64
			elapsedMs float64
		}{
			{"nan elapsed", 0.001, math.NaN()},
			{"infinite elapsed", 0.001, math.Inf(1)},
			{"infinite rate", math.Inf(1), 10},
		}
		for _, tt := range tests {
			_, err := engine.Decohere(reg, 0, tt.rate, tt.elapsedMs)
			assert.True(t, errors.Is(err, domain.ErrValidation), tt.name)
		}

		q, _ := reg.Get(0)
		assert.False(t, math.IsNaN(real(q.Alpha)))
		assert.False(t, math.IsNaN(real(q.Beta)))
		assertNormalized(t, reg)
	})
}
