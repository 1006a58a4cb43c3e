// Package net provides the feed-forward classification network.
package net

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/FlavioCFOliveira/digitnet/internal/activations"
	"github.com/FlavioCFOliveira/digitnet/internal/layer"
	"github.com/FlavioCFOliveira/digitnet/internal/loss"
	"github.com/FlavioCFOliveira/digitnet/internal/params"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrBadBatch is returned when a batch does not fit the network: wrong
// width, mismatched label count, empty batch or out-of-range labels.
var ErrBadBatch = errors.New("net: malformed batch")

// Config describes the network architecture.
type Config struct {
	InputSize  int
	Hidden     []int
	OutputSize int
	Activation string

	// WeightDecay is the L2 coefficient lambda. Zero disables it.
	WeightDecay float64

	// WeightInitStd overrides the He/Xavier scale when > 0.
	WeightInitStd float64
}

// DefaultConfig returns 784 -> 100x6 -> 10 with ReLU.
func DefaultConfig() Config {
	return Config{
		InputSize:  784,
		Hidden:     []int{100, 100, 100, 100, 100, 100},
		OutputSize: 10,
		Activation: "relu",
	}
}

// Sizes returns [input, hidden..., output].
func (c Config) Sizes() []int {
	sizes := make([]int, 0, len(c.Hidden)+2)
	sizes = append(sizes, c.InputSize)
	sizes = append(sizes, c.Hidden...)
	return append(sizes, c.OutputSize)
}

// Network is a stack of dense layers. Hidden layers use the configured
// activation; the output layer emits raw logits.
type Network struct {
	set         *params.Set
	layers      []*layer.Dense
	weightDecay float64
}

// New creates a network with freshly initialised weights drawn from rng.
func New(cfg Config, rng *rand.Rand) (*Network, error) {
	act, err := activations.ByName(cfg.Activation)
	if err != nil {
		return nil, err
	}
	set, err := params.New(act.Name(), cfg.Sizes()...)
	if err != nil {
		return nil, err
	}
	for _, l := range set.Layers {
		std := cfg.WeightInitStd
		if std <= 0 {
			std = layer.InitStd(act, l.In())
		}
		layer.InitNormal(l, std, rng)
	}
	return FromParams(set, cfg.WeightDecay)
}

// FromParams wraps an existing parameter set. The network takes ownership
// of set; callers must not mutate it concurrently.
func FromParams(set *params.Set, weightDecay float64) (*Network, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	act, err := activations.ByName(set.Activation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", params.ErrShapeMismatch, err)
	}
	n := &Network{set: set, weightDecay: weightDecay}
	last := len(set.Layers) - 1
	for i, p := range set.Layers {
		if i == last {
			n.layers = append(n.layers, layer.NewDense(p, activations.Linear{}))
			continue
		}
		n.layers = append(n.layers, layer.NewDense(p, act))
	}
	return n, nil
}

// Params returns the parameter set owned by the network.
func (n *Network) Params() *params.Set {
	return n.set
}

// InputSize returns the expected feature vector length.
func (n *Network) InputSize() int {
	return n.set.InputSize()
}

// OutputSize returns the number of classes.
func (n *Network) OutputSize() int {
	return n.set.OutputSize()
}

// WeightDecay returns the L2 coefficient used by Loss and Gradient.
func (n *Network) WeightDecay() float64 {
	return n.weightDecay
}

// Predict returns the logits for every row of x. It panics if x does not
// have InputSize columns; use PredictOne or Accuracy for unchecked input.
func (n *Network) Predict(x *mat.Dense) *mat.Dense {
	curr := x
	for _, l := range n.layers {
		curr = l.Forward(curr)
	}
	return curr
}

// PredictOne returns the logits for a single feature vector.
func (n *Network) PredictOne(features []float64) ([]float64, error) {
	if len(features) != n.InputSize() {
		return nil, fmt.Errorf("%w: feature vector has %d values, want %d", ErrBadBatch, len(features), n.InputSize())
	}
	x := mat.NewDense(1, len(features), append([]float64(nil), features...))
	return n.Predict(x).RawRowView(0), nil
}

// Loss returns the mean softmax cross-entropy plus the L2 penalty.
func (n *Network) Loss(x *mat.Dense, labels []int) (float64, error) {
	if err := n.checkBatch(x, labels); err != nil {
		return 0, err
	}
	var sce loss.SoftmaxCrossEntropy
	l, err := sce.Forward(n.Predict(x), labels)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadBatch, err)
	}
	return l + loss.L2(n.set, n.weightDecay), nil
}

// Gradient runs a forward and backward pass and returns dL/dparams with the
// same shapes as Params(), together with the batch loss.
func (n *Network) Gradient(x *mat.Dense, labels []int) (*params.Set, float64, error) {
	if err := n.checkBatch(x, labels); err != nil {
		return nil, 0, err
	}
	var sce loss.SoftmaxCrossEntropy
	l, err := sce.Forward(n.Predict(x), labels)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrBadBatch, err)
	}
	l += loss.L2(n.set, n.weightDecay)

	grad := sce.Backward()
	for i := len(n.layers) - 1; i >= 0; i-- {
		grad = n.layers[i].Backward(grad)
	}

	g := &params.Set{Activation: n.set.Activation, Layers: make([]params.Layer, len(n.layers))}
	for i, d := range n.layers {
		gw, gb := d.Gradients()
		w := mat.DenseCopyOf(gw)
		if n.weightDecay != 0 {
			w.Add(w, scaled(n.weightDecay, n.set.Layers[i].W))
		}
		g.Layers[i] = params.Layer{W: w, B: mat.VecDenseCopyOf(gb)}
	}
	return g, l, nil
}

func scaled(f float64, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Scale(f, m)
	return &out
}

// Accuracy returns the share of rows whose arg-max logit equals the label.
// Ties resolve to the lowest class index. An empty batch scores 0.
func (n *Network) Accuracy(x *mat.Dense, labels []int) (float64, error) {
	if x == nil && len(labels) == 0 {
		return 0, nil
	}
	if err := n.checkBatch(x, labels); err != nil {
		return 0, err
	}
	logits := n.Predict(x)
	correct := 0
	for i, l := range labels {
		if floats.MaxIdx(logits.RawRowView(i)) == l {
			correct++
		}
	}
	return float64(correct) / float64(len(labels)), nil
}

func (n *Network) checkBatch(x *mat.Dense, labels []int) error {
	if x == nil || len(labels) == 0 {
		return fmt.Errorf("%w: empty batch", ErrBadBatch)
	}
	r, c := x.Dims()
	if r != len(labels) {
		return fmt.Errorf("%w: %d rows but %d labels", ErrBadBatch, r, len(labels))
	}
	if c != n.InputSize() {
		return fmt.Errorf("%w: %d features, want %d", ErrBadBatch, c, n.InputSize())
	}
	for i, l := range labels {
		if l < 0 || l >= n.OutputSize() {
			return fmt.Errorf("%w: label %d at row %d outside [0, %d)", ErrBadBatch, l, i, n.OutputSize())
		}
	}
	return nil
}

// Save saves the network parameters to a file using gob encoding.
// Optimizer state is not saved.
func (n *Network) Save(filename string) error {
	return n.set.Save(filename)
}

// Encode writes the network parameters to w.
func (n *Network) Encode(w io.Writer) error {
	return n.set.Encode(w)
}

// Load loads a network from a file written by Save.
func Load(filename string) (*Network, error) {
	set, err := params.Load(filename)
	if err != nil {
		return nil, err
	}
	return FromParams(set, 0)
}

// Decode reads a network written by Encode.
func Decode(r io.Reader) (*Network, error) {
	set, err := params.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromParams(set, 0)
}
