package loss

import (
	"math"
	"testing"

	"github.com/FlavioCFOliveira/digitnet/internal/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSoftmaxCrossEntropyUniform(t *testing.T) {
	var sce SoftmaxCrossEntropy
	logits := mat.NewDense(2, 4, nil)

	l, err := sce.Forward(logits, []int{0, 3})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(4), l, 1e-6)
}

func TestSoftmaxCrossEntropyConfident(t *testing.T) {
	var sce SoftmaxCrossEntropy
	logits := mat.NewDense(1, 3, []float64{0, 50, 0})

	l, err := sce.Forward(logits, []int{1})
	require.NoError(t, err)
	assert.Less(t, l, 1e-6)

	l, err = sce.Forward(logits, []int{0})
	require.NoError(t, err)
	assert.Greater(t, l, 10.0)
	assert.False(t, math.IsInf(l, 0))
}

func TestSoftmaxCrossEntropyRejectsBadLabels(t *testing.T) {
	var sce SoftmaxCrossEntropy
	logits := mat.NewDense(2, 3, nil)

	_, err := sce.Forward(logits, []int{0})
	assert.Error(t, err)

	_, err = sce.Forward(logits, []int{0, 3})
	assert.Error(t, err)

	_, err = sce.Forward(logits, []int{-1, 0})
	assert.Error(t, err)
}

// TestBackwardMatchesNumericGradient compares the analytic gradient with
// central differences on every logit.
func TestBackwardMatchesNumericGradient(t *testing.T) {
	data := []float64{0.2, -0.4, 1.3, 0.7, 0.1, -2.0}
	labels := []int{2, 0}
	logits := mat.NewDense(2, 3, data)

	var sce SoftmaxCrossEntropy
	_, err := sce.Forward(logits, labels)
	require.NoError(t, err)
	grad := sce.Backward()

	const h = 1e-5
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			plus := mat.DenseCopyOf(logits)
			plus.Set(i, j, plus.At(i, j)+h)
			minus := mat.DenseCopyOf(logits)
			minus.Set(i, j, minus.At(i, j)-h)

			var a, b SoftmaxCrossEntropy
			lp, _ := a.Forward(plus, labels)
			lm, _ := b.Forward(minus, labels)
			assert.InDelta(t, (lp-lm)/(2*h), grad.At(i, j), 1e-5, "logit (%d,%d)", i, j)
		}
	}
}

func TestBackwardBatchOfOne(t *testing.T) {
	var sce SoftmaxCrossEntropy
	_, err := sce.Forward(mat.NewDense(1, 2, nil), []int{1})
	require.NoError(t, err)
	g := sce.Backward()
	assert.InDelta(t, 0.5, g.At(0, 0), 1e-12)
	assert.InDelta(t, -0.5, g.At(0, 1), 1e-12)
}

func TestCrossEntropyEmpty(t *testing.T) {
	assert.Zero(t, CrossEntropy(mat.NewDense(1, 1, nil), nil))
}

func TestL2(t *testing.T) {
	p, err := params.New("relu", 2, 1)
	require.NoError(t, err)
	p.Layers[0].W.Set(0, 0, 3)
	p.Layers[0].W.Set(1, 0, 4)
	p.Layers[0].B.SetVec(0, 100)

	assert.Zero(t, L2(p, 0))
	assert.InDelta(t, 0.5*0.1*25, L2(p, 0.1), 1e-12)
}
