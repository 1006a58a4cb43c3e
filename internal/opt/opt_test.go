package opt

import (
	"math"
	"testing"

	"github.com/FlavioCFOliveira/digitnet/internal/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSet(t *testing.T, values ...float64) *params.Set {
	t.Helper()
	s, err := params.New("relu", 2, 1)
	require.NoError(t, err)
	ts := s.Tensors()
	copy(ts[0], values)
	if len(values) > 2 {
		ts[1][0] = values[2]
	}
	return s
}

// TestSGDUpdate tests params - lr * gradients.
func TestSGDUpdate(t *testing.T) {
	p := newSet(t, 1.0, 2.0, 3.0)
	g := newSet(t, 0.1, 0.2, 0.3)

	require.NoError(t, NewSGD(0.1).Update(p, g))

	ts := p.Tensors()
	assert.InDeltaSlice(t, []float64{0.99, 1.98}, ts[0], 1e-12)
	assert.InDelta(t, 2.97, ts[1][0], 1e-12)
}

func TestSGDShapeMismatch(t *testing.T) {
	p := newSet(t)
	g, err := params.New("relu", 3, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, NewSGD(0.1).Update(p, g), params.ErrShapeMismatch)
}

// TestAdamFirstStep checks the first update moves each parameter by about
// lr against the sign of its gradient.
func TestAdamFirstStep(t *testing.T) {
	p := newSet(t, 1.0, -1.0, 0.5)
	g := newSet(t, 0.5, -2.0, 1e-3)

	a := NewAdam(0.01)
	require.NoError(t, a.Update(p, g))

	ts := p.Tensors()
	assert.InDelta(t, 0.99, ts[0][0], 1e-6)
	assert.InDelta(t, -0.99, ts[0][1], 1e-6)
	assert.InDelta(t, 0.49, ts[1][0], 1e-4)
	assert.Equal(t, 1, a.Step())
}

// TestAdamZeroGradientIsNoOp checks the degenerate bias-correction case.
func TestAdamZeroGradientIsNoOp(t *testing.T) {
	p := newSet(t, 0.3, -0.7, 1.1)
	before := p.Clone()

	a := NewAdam(0.01)
	require.NoError(t, a.Update(p, p.ZerosLike()))

	for i, ts := range p.Tensors() {
		assert.Equal(t, before.Tensors()[i], ts)
	}
	assert.Equal(t, 1, a.Step())
}

// TestAdamMatchesReference replays three steps against a scalar reference.
func TestAdamMatchesReference(t *testing.T) {
	const lr, b1, b2, eps = 0.01, 0.9, 0.999, 1e-7
	grads := []float64{0.3, -0.1, 0.25}

	p := newSet(t, 1.0)
	a := NewAdam(lr)

	want, m, v := 1.0, 0.0, 0.0
	for step, gv := range grads {
		require.NoError(t, a.Update(p, newSet(t, gv)))

		n := float64(step + 1)
		lrT := lr * math.Sqrt(1-math.Pow(b2, n)) / (1 - math.Pow(b1, n))
		m += (1 - b1) * (gv - m)
		v += (1 - b2) * (gv*gv - v)
		want -= lrT * m / (math.Sqrt(v) + eps)

		assert.InDelta(t, want, p.Tensors()[0][0], 1e-12, "step %d", step+1)
	}
	assert.Equal(t, 3, a.Step())

	moments, _ := a.Moments()
	assert.InDelta(t, m, moments[0][0], 1e-12)
}

func TestAdamStepIncrementsByOne(t *testing.T) {
	p := newSet(t, 1, 1, 1)
	a := NewAdam(0.001)
	for i := 1; i <= 5; i++ {
		require.NoError(t, a.Update(p, newSet(t, 0.1, 0.1, 0.1)))
		assert.Equal(t, i, a.Step())
	}
}

func TestAdamFreshOptimizerHasNoState(t *testing.T) {
	a := NewAdam(0.001)
	m, v := a.Moments()
	assert.Nil(t, m)
	assert.Nil(t, v)
	assert.Zero(t, a.Step())
	assert.Equal(t, 0.9, a.Beta1)
	assert.Equal(t, 0.999, a.Beta2)
}

func TestAdamStableForTinyGradients(t *testing.T) {
	p := newSet(t, 1, 1, 1)
	a := NewAdam(0.01)
	require.NoError(t, a.Update(p, newSet(t, 1e-300, -1e-300, 0)))
	for _, ts := range p.Tensors() {
		for _, v := range ts {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}

func TestAdamRejectsDifferentNetwork(t *testing.T) {
	a := NewAdam(0.01)
	require.NoError(t, a.Update(newSet(t), newSet(t)))

	other, err := params.New("relu", 2, 3, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, a.Update(other, other.ZerosLike()), params.ErrShapeMismatch)
}

func TestNew(t *testing.T) {
	o, err := New("adam", 0.01)
	require.NoError(t, err)
	assert.IsType(t, &Adam{}, o)

	o, err = New("sgd", 0.01)
	require.NoError(t, err)
	assert.IsType(t, &SGD{}, o)

	_, err = New("rmsprop", 0.01)
	assert.Error(t, err)
}

func TestStepLR(t *testing.T) {
	a := NewAdam(1.0)
	s := NewStepLR(a, 2, 0.5)
	s.Step()
	assert.Equal(t, 1.0, a.LR())
	s.Step()
	assert.Equal(t, 0.5, a.LR())
	s.Step()
	s.Step()
	assert.Equal(t, 0.25, a.LR())
}

func TestExponentialLR(t *testing.T) {
	sgd := NewSGD(1.0)
	s := NewExponentialLR(sgd, 0.9)
	s.Step()
	s.Step()
	assert.InDelta(t, 0.81, sgd.LR(), 1e-12)
}

func TestNewScheduler(t *testing.T) {
	a := NewAdam(0.1)

	s, err := NewScheduler("", a, 0, 0)
	require.NoError(t, err)
	s.Step()
	assert.Equal(t, 0.1, a.LR())

	_, err = NewScheduler("step", a, 0, 0.5)
	assert.Error(t, err)

	s, err = NewScheduler("exponential", a, 0, 0.5)
	require.NoError(t, err)
	s.Step()
	assert.InDelta(t, 0.05, a.LR(), 1e-12)

	_, err = NewScheduler("cosine", a, 0, 0)
	assert.Error(t, err)
}
