// Package infer classifies digit images with a trained network.
package infer

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"

	"github.com/FlavioCFOliveira/digitnet/internal/activations"
	"github.com/FlavioCFOliveira/digitnet/internal/imaging"
	"github.com/FlavioCFOliveira/digitnet/internal/net"
	"github.com/FlavioCFOliveira/digitnet/internal/params"
	"gonum.org/v1/gonum/floats"
)

// Classes is the number of digit classes.
const Classes = 10

var (
	// ErrModelNotFound is returned by Load when the parameter file is missing.
	ErrModelNotFound = errors.New("infer: model file not found")

	// ErrModelNotLoaded is returned when predicting without a network.
	ErrModelNotLoaded = errors.New("infer: model not loaded")

	// ErrNumerical is returned when the network output is not finite.
	ErrNumerical = errors.New("infer: non-finite network output")
)

// Score is the probability assigned to one label.
type Score struct {
	Label       int
	Probability float64
}

// Prediction is the result of classifying one image.
type Prediction struct {
	Label         int
	Probabilities [Classes]float64
}

// Confidence returns the probability of the predicted label.
func (p Prediction) Confidence() float64 {
	return p.Probabilities[p.Label]
}

// Scores returns every (label, probability) pair in label order.
func (p Prediction) Scores() []Score {
	out := make([]Score, Classes)
	for i, v := range p.Probabilities {
		out[i] = Score{Label: i, Probability: v}
	}
	return out
}

// TopK returns the k most probable labels, highest first. Equal
// probabilities keep label order.
func (p Prediction) TopK(k int) []Score {
	s := p.Scores()
	sort.SliceStable(s, func(i, j int) bool { return s[i].Probability > s[j].Probability })
	if k < 0 {
		k = 0
	}
	if k > len(s) {
		k = len(s)
	}
	return s[:k]
}

// Classifier wraps a trained network together with the preprocessing
// applied to incoming images.
type Classifier struct {
	network *net.Network
	opts    imaging.Options
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithInvert makes the classifier invert images after scaling, for dark
// strokes drawn on a light background.
func WithInvert(invert bool) Option {
	return func(c *Classifier) { c.opts.Invert = invert }
}

// New wraps an in-memory network. It must map 784 features to 10 classes.
func New(network *net.Network, options ...Option) (*Classifier, error) {
	if network == nil {
		return nil, ErrModelNotLoaded
	}
	if err := network.Params().Expect(imaging.Rows*imaging.Cols, Classes); err != nil {
		return nil, err
	}
	c := &Classifier{network: network}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

// Load reads a parameter file written by training.
// A missing file is reported as ErrModelNotFound; shape problems as
// params.ErrShapeMismatch.
func Load(path string, options ...Option) (*Classifier, error) {
	network, err := net.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: please train the model first", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return New(network, options...)
}

// Network returns the wrapped network.
func (c *Classifier) Network() *net.Network {
	if c == nil {
		return nil
	}
	return c.network
}

// Predict preprocesses img and classifies it.
func (c *Classifier) Predict(img *imaging.Image) (Prediction, error) {
	if c == nil || c.network == nil {
		return Prediction{}, ErrModelNotLoaded
	}
	features, err := imaging.Preprocess(img, c.opts)
	if err != nil {
		return Prediction{}, err
	}
	return c.PredictFeatures(features)
}

// PredictFeatures classifies an already preprocessed feature vector.
func (c *Classifier) PredictFeatures(features []float64) (Prediction, error) {
	if c == nil || c.network == nil {
		return Prediction{}, ErrModelNotLoaded
	}
	logits, err := c.network.PredictOne(features)
	if err != nil {
		return Prediction{}, err
	}
	return score(logits)
}

// ConfidenceScores returns the probability of every label for img.
func (c *Classifier) ConfidenceScores(img *imaging.Image) ([]Score, error) {
	p, err := c.Predict(img)
	if err != nil {
		return nil, err
	}
	return p.Scores(), nil
}

// score converts logits into a Prediction with a max-shifted softmax.
// Ties in the arg-max resolve to the lowest label.
func score(logits []float64) (Prediction, error) {
	if len(logits) != Classes {
		return Prediction{}, fmt.Errorf("%w: %d outputs, want %d", params.ErrShapeMismatch, len(logits), Classes)
	}
	for _, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Prediction{}, fmt.Errorf("%w: logits %v", ErrNumerical, logits)
		}
	}
	probs := activations.Softmax(logits)

	var p Prediction
	copy(p.Probabilities[:], probs)
	p.Label = floats.MaxIdx(probs)
	return p, nil
}
