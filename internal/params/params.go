// Package params holds the trainable parameters of a feed-forward network.
package params

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmpty is returned for a parameter set without layers.
	ErrEmpty = errors.New("params: empty parameter set")

	// ErrShapeMismatch is returned when layer shapes do not chain or do not
	// match the shapes they are compared against.
	ErrShapeMismatch = errors.New("params: shape mismatch")
)

// Layer is the affine transform of one network layer.
// W has shape [in, out] and B has length out.
type Layer struct {
	W *mat.Dense
	B *mat.VecDense
}

// In returns the layer input size.
func (l Layer) In() int {
	r, _ := l.W.Dims()
	return r
}

// Out returns the layer output size.
func (l Layer) Out() int {
	_, c := l.W.Dims()
	return c
}

// Set is an ordered list of layers indexed by position, plus the name of the
// activation applied after every layer except the last.
type Set struct {
	Activation string
	Layers     []Layer
}

// New allocates a zero-valued set for the given layer sizes.
// sizes = [input, hidden..., output].
func New(activation string, sizes ...int) (*Set, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("%w: need at least input and output size, got %v", ErrEmpty, sizes)
	}
	s := &Set{Activation: activation, Layers: make([]Layer, len(sizes)-1)}
	for i := 0; i < len(sizes)-1; i++ {
		if sizes[i] <= 0 || sizes[i+1] <= 0 {
			return nil, fmt.Errorf("%w: non-positive layer size in %v", ErrShapeMismatch, sizes)
		}
		s.Layers[i] = Layer{
			W: mat.NewDense(sizes[i], sizes[i+1], nil),
			B: mat.NewVecDense(sizes[i+1], nil),
		}
	}
	return s, nil
}

// Len returns the number of layers.
func (s *Set) Len() int {
	return len(s.Layers)
}

// InputSize returns the expected feature vector length.
func (s *Set) InputSize() int {
	if len(s.Layers) == 0 {
		return 0
	}
	return s.Layers[0].In()
}

// OutputSize returns the number of output classes.
func (s *Set) OutputSize() int {
	if len(s.Layers) == 0 {
		return 0
	}
	return s.Layers[len(s.Layers)-1].Out()
}

// Sizes returns [input, hidden..., output].
func (s *Set) Sizes() []int {
	if len(s.Layers) == 0 {
		return nil
	}
	sizes := make([]int, 0, len(s.Layers)+1)
	sizes = append(sizes, s.Layers[0].In())
	for _, l := range s.Layers {
		sizes = append(sizes, l.Out())
	}
	return sizes
}

// Count returns the total number of scalar parameters.
func (s *Set) Count() int {
	n := 0
	for _, l := range s.Layers {
		n += l.In()*l.Out() + l.Out()
	}
	return n
}

// Validate checks that every layer is present, that each bias matches its
// weight columns and that consecutive layers chain.
func (s *Set) Validate() error {
	if s == nil || len(s.Layers) == 0 {
		return ErrEmpty
	}
	for i, l := range s.Layers {
		if l.W == nil || l.B == nil {
			return fmt.Errorf("%w: layer %d has nil weights or biases", ErrShapeMismatch, i)
		}
		if l.B.Len() != l.Out() {
			return fmt.Errorf("%w: layer %d bias length %d, weight columns %d", ErrShapeMismatch, i, l.B.Len(), l.Out())
		}
		if i > 0 && s.Layers[i-1].Out() != l.In() {
			return fmt.Errorf("%w: layer %d input %d does not match layer %d output %d",
				ErrShapeMismatch, i, l.In(), i-1, s.Layers[i-1].Out())
		}
	}
	return nil
}

// Expect validates s and checks its input and output sizes.
func (s *Set) Expect(in, out int) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.InputSize() != in || s.OutputSize() != out {
		return fmt.Errorf("%w: network is %d->%d, want %d->%d",
			ErrShapeMismatch, s.InputSize(), s.OutputSize(), in, out)
	}
	return nil
}

// SameShape reports an error unless s and o have identical layer shapes.
func (s *Set) SameShape(o *Set) error {
	if len(s.Layers) != len(o.Layers) {
		return fmt.Errorf("%w: %d layers vs %d", ErrShapeMismatch, len(s.Layers), len(o.Layers))
	}
	for i := range s.Layers {
		a, b := s.Layers[i], o.Layers[i]
		if a.In() != b.In() || a.Out() != b.Out() || a.B.Len() != b.B.Len() {
			return fmt.Errorf("%w: layer %d is %dx%d vs %dx%d",
				ErrShapeMismatch, i, a.In(), a.Out(), b.In(), b.Out())
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	c := &Set{Activation: s.Activation, Layers: make([]Layer, len(s.Layers))}
	for i, l := range s.Layers {
		c.Layers[i] = Layer{W: mat.DenseCopyOf(l.W), B: mat.VecDenseCopyOf(l.B)}
	}
	return c
}

// ZerosLike returns a set of the same shape filled with zeros.
func (s *Set) ZerosLike() *Set {
	z := &Set{Activation: s.Activation, Layers: make([]Layer, len(s.Layers))}
	for i, l := range s.Layers {
		z.Layers[i] = Layer{
			W: mat.NewDense(l.In(), l.Out(), nil),
			B: mat.NewVecDense(l.Out(), nil),
		}
	}
	return z
}

// Tensors returns the raw backing slices in a fixed order:
// W0, B0, W1, B1, ... Mutating them mutates the set.
func (s *Set) Tensors() [][]float64 {
	out := make([][]float64, 0, 2*len(s.Layers))
	for _, l := range s.Layers {
		out = append(out, rawDense(l.W), l.B.RawVector().Data)
	}
	return out
}

// rawDense returns the backing data of a dense matrix. Matrices built by this
// package always have Stride == Cols so the slice is contiguous.
func rawDense(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride != raw.Cols {
		c := mat.DenseCopyOf(m)
		*m = *c
		raw = m.RawMatrix()
	}
	return raw.Data[:raw.Rows*raw.Cols]
}
