package infer

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/FlavioCFOliveira/digitnet/internal/dataset"
	"github.com/FlavioCFOliveira/digitnet/internal/imaging"
	"github.com/FlavioCFOliveira/digitnet/internal/net"
	"github.com/FlavioCFOliveira/digitnet/internal/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func newClassifier(t *testing.T, options ...Option) *Classifier {
	t.Helper()
	cfg := net.DefaultConfig()
	cfg.Hidden = []int{32, 16}
	n, err := net.New(cfg, rand.New(rand.NewPCG(7, 11)))
	require.NoError(t, err)
	c, err := New(n, options...)
	require.NoError(t, err)
	return c
}

func strokeImage() *imaging.Image {
	im := imaging.New(28, 28)
	for y := 6; y < 22; y++ {
		im.Set(y, 13, 255)
		im.Set(y, 14, 255)
	}
	return im
}

func assertDistribution(t *testing.T, p Prediction) {
	t.Helper()
	assert.Len(t, p.Probabilities, Classes)
	for _, v := range p.Probabilities {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.False(t, math.IsNaN(v))
	}
	assert.InDelta(t, 1.0, floats.Sum(p.Probabilities[:]), 1e-6)
	assert.Equal(t, floats.MaxIdx(p.Probabilities[:]), p.Label)
	assert.Equal(t, p.Probabilities[p.Label], p.Confidence())
}

func TestPredictReturnsDistribution(t *testing.T) {
	c := newClassifier(t)
	p, err := c.Predict(strokeImage())
	require.NoError(t, err)
	assertDistribution(t, p)
}

func TestPredictIsDeterministic(t *testing.T) {
	c := newClassifier(t)
	a, err := c.Predict(strokeImage())
	require.NoError(t, err)
	b, err := c.Predict(strokeImage())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPredictAllZeroImage(t *testing.T) {
	c := newClassifier(t)
	p, err := c.Predict(imaging.New(28, 28))
	require.NoError(t, err)
	assertDistribution(t, p)
}

func TestPredictResizesLargeImages(t *testing.T) {
	c := newClassifier(t, WithInvert(true))
	im := imaging.New(280, 280)
	for i := range im.Pix {
		im.Pix[i] = 255
	}
	p, err := c.Predict(im)
	require.NoError(t, err)
	assertDistribution(t, p)
}

func TestPredictRejectsInvalidImage(t *testing.T) {
	c := newClassifier(t)
	_, err := c.Predict(&imaging.Image{})
	assert.ErrorIs(t, err, imaging.ErrInvalidImage)
}

func TestModelNotLoaded(t *testing.T) {
	var nilClassifier *Classifier
	for name, c := range map[string]*Classifier{"nil": nilClassifier, "zero": {}} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Predict(strokeImage())
			assert.ErrorIs(t, err, ErrModelNotLoaded)
			_, err = c.PredictFeatures(make([]float64, 784))
			assert.ErrorIs(t, err, ErrModelNotLoaded)
			_, err = c.ConfidenceScores(strokeImage())
			assert.ErrorIs(t, err, ErrModelNotLoaded)
			_, err = c.Evaluate(dataset.Synthetic(5, rand.New(rand.NewPCG(1, 1))), 1, rand.New(rand.NewPCG(1, 1)))
			assert.ErrorIs(t, err, ErrModelNotLoaded)
		})
	}

	_, err := New(nil)
	assert.ErrorIs(t, err, ErrModelNotLoaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestLoadRoundTrip(t *testing.T) {
	c := newClassifier(t)
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, c.Network().Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	want, err := c.Predict(strokeImage())
	require.NoError(t, err)
	got, err := loaded.Predict(strokeImage())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadRejectsWrongArchitecture(t *testing.T) {
	set, err := params.New("relu", 4, 3)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "small.gob")
	require.NoError(t, set.Save(path))

	_, err = Load(path)
	assert.ErrorIs(t, err, params.ErrShapeMismatch)
	assert.NotErrorIs(t, err, ErrModelNotFound)
}

func TestScoreTiesResolveToLowestLabel(t *testing.T) {
	p, err := score(make([]float64, Classes))
	require.NoError(t, err)
	assert.Equal(t, 0, p.Label)
	for _, v := range p.Probabilities {
		assert.InDelta(t, 0.1, v, 1e-12)
	}

	logits := []float64{0, 3, 1, 3, 0, 0, 0, 0, 0, 0}
	p, err = score(logits)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Label)
}

func TestScoreLargeLogits(t *testing.T) {
	logits := []float64{1000, 999, 0, 0, 0, 0, 0, 0, 0, -1000}
	p, err := score(logits)
	require.NoError(t, err)
	assertDistribution(t, p)
	assert.Equal(t, 0, p.Label)
}

func TestScoreRejectsNonFinite(t *testing.T) {
	logits := make([]float64, Classes)
	logits[3] = math.NaN()
	_, err := score(logits)
	assert.ErrorIs(t, err, ErrNumerical)

	logits[3] = math.Inf(1)
	_, err = score(logits)
	assert.ErrorIs(t, err, ErrNumerical)

	_, err = score([]float64{1, 2})
	assert.ErrorIs(t, err, params.ErrShapeMismatch)
}

func TestTopK(t *testing.T) {
	p, err := score([]float64{0, 5, 1, 5, 2, 0, 0, 0, 0, 0})
	require.NoError(t, err)

	top := p.TopK(3)
	require.Len(t, top, 3)
	assert.Equal(t, 1, top[0].Label)
	assert.Equal(t, 3, top[1].Label)
	assert.Equal(t, 4, top[2].Label)

	assert.Len(t, p.TopK(20), Classes)
	assert.Empty(t, p.TopK(-1))
}

func TestConfidenceScores(t *testing.T) {
	c := newClassifier(t)
	scores, err := c.ConfidenceScores(strokeImage())
	require.NoError(t, err)
	require.Len(t, scores, Classes)
	sum := 0.0
	for i, s := range scores {
		assert.Equal(t, i, s.Label)
		sum += s.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestPredictFeaturesWrongLength(t *testing.T) {
	c := newClassifier(t)
	_, err := c.PredictFeatures(make([]float64, 10))
	assert.ErrorIs(t, err, net.ErrBadBatch)
}

func TestEvaluate(t *testing.T) {
	c := newClassifier(t)
	ds := dataset.Synthetic(20, rand.New(rand.NewPCG(3, 4)))

	ev, err := c.Evaluate(ds, 10, rand.New(rand.NewPCG(5, 6)))
	require.NoError(t, err)
	require.Len(t, ev.Samples, 10)

	correct := 0
	seen := map[int]bool{}
	for _, s := range ev.Samples {
		assert.False(t, seen[s.Index], "image %d evaluated twice", s.Index)
		seen[s.Index] = true
		assert.Equal(t, ds.Labels[s.Index], s.Label)
		assertDistribution(t, s.Prediction)
		if s.Correct() {
			correct++
		}
	}
	assert.Equal(t, correct, ev.Correct)
	assert.InDelta(t, float64(correct)/10, ev.Accuracy(), 1e-12)

	_, err = c.Evaluate(&dataset.Set{}, 3, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, dataset.ErrFormat)

	ev, err = c.Evaluate(ds, 100, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Len(t, ev.Samples, ds.Len())

	ev, err = c.Evaluate(ds, 0, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Zero(t, ev.Accuracy())
}
