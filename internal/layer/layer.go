// Package layer provides the fully connected layer used by the network.
package layer

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/FlavioCFOliveira/digitnet/internal/activations"
	"github.com/FlavioCFOliveira/digitnet/internal/params"
	"gonum.org/v1/gonum/mat"
)

// Layer is a differentiable transform over a batch of row vectors.
type Layer interface {
	Forward(x *mat.Dense) *mat.Dense
	Backward(grad *mat.Dense) *mat.Dense
}

// Dense is a fully connected layer: act(x·W + b).
// W and B are shared with the params.Layer it was built from, so in-place
// optimizer updates are visible without copying.
type Dense struct {
	w   *mat.Dense
	b   *mat.VecDense
	act activations.Activation

	// Cached for Backward
	input  *mat.Dense
	preAct *mat.Dense

	gradW *mat.Dense
	gradB *mat.VecDense
}

// NewDense wraps the given parameters. A nil act means no activation.
func NewDense(p params.Layer, act activations.Activation) *Dense {
	if act == nil {
		act = activations.Linear{}
	}
	return &Dense{
		w:     p.W,
		b:     p.B,
		act:   act,
		gradW: mat.NewDense(p.In(), p.Out(), nil),
		gradB: mat.NewVecDense(p.Out(), nil),
	}
}

// Forward computes act(x·W + b) for every row of x.
func (d *Dense) Forward(x *mat.Dense) *mat.Dense {
	n, in := x.Dims()
	if in != d.InSize() {
		panic(fmt.Sprintf("layer: input has %d columns, want %d", in, d.InSize()))
	}

	var z mat.Dense
	z.Mul(x, d.w)
	bias := d.b.RawVector().Data
	for i := 0; i < n; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}

	d.input = x
	d.preAct = &z
	if _, ok := d.act.(activations.Linear); ok {
		return mat.DenseCopyOf(&z)
	}
	return activations.Apply(d.act, &z)
}

// Backward takes dL/d(output), stores dL/dW and dL/db, and returns dL/dx.
func (d *Dense) Backward(grad *mat.Dense) *mat.Dense {
	if d.input == nil {
		panic("layer: Backward called before Forward")
	}

	// dz = grad ⊙ act'(z)
	dz := grad
	if _, ok := d.act.(activations.Linear); !ok {
		var tmp mat.Dense
		tmp.MulElem(grad, activations.ApplyDerivative(d.act, d.preAct))
		dz = &tmp
	}

	d.gradW.Mul(d.input.T(), dz)

	n, out := dz.Dims()
	gb := d.gradB.RawVector().Data
	for j := 0; j < out; j++ {
		gb[j] = 0
	}
	for i := 0; i < n; i++ {
		for j, v := range dz.RawRowView(i) {
			gb[j] += v
		}
	}

	var dx mat.Dense
	dx.Mul(dz, d.w.T())
	return &dx
}

// Gradients returns the weight and bias gradients of the last Backward call.
func (d *Dense) Gradients() (*mat.Dense, *mat.VecDense) {
	return d.gradW, d.gradB
}

// InSize returns the input size of the layer.
func (d *Dense) InSize() int {
	r, _ := d.w.Dims()
	return r
}

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int {
	_, c := d.w.Dims()
	return c
}

// Activation returns the activation function used by this layer.
func (d *Dense) Activation() activations.Activation {
	return d.act
}

// InitStd returns the default weight scale for an activation:
// He (sqrt(2/fanIn)) for ReLU, Xavier (sqrt(1/fanIn)) otherwise.
func InitStd(act activations.Activation, fanIn int) float64 {
	if _, ok := act.(activations.ReLU); ok {
		return math.Sqrt(2.0 / float64(fanIn))
	}
	return math.Sqrt(1.0 / float64(fanIn))
}

// InitNormal fills W with N(0, std²) samples drawn from rng and zeroes B.
func InitNormal(p params.Layer, std float64, rng *rand.Rand) {
	w := p.W.RawMatrix().Data
	for i := range w {
		w[i] = rng.NormFloat64() * std
	}
	b := p.B.RawVector().Data
	for i := range b {
		b[i] = 0
	}
}
