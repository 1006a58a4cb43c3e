// Package activations provides activation functions and the stable softmax.
package activations

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Activation is an element-wise activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) from the pre-activation input x
	Derivative(x float64) float64

	// Name is the identifier stored alongside persisted parameters
	Name() string
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func (r ReLU) Name() string { return "relu" }

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

func (s Sigmoid) Name() string { return "sigmoid" }

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

func (t Tanh) Name() string { return "tanh" }

// Linear is the identity activation used on the output layer.
type Linear struct{}

// Activate returns x unchanged
func (l Linear) Activate(x float64) float64 { return x }

// Derivative returns 1
func (l Linear) Derivative(x float64) float64 { return 1 }

func (l Linear) Name() string { return "linear" }

// ByName returns the activation registered under name.
// An empty name selects ReLU.
func ByName(name string) (Activation, error) {
	switch name {
	case "", "relu":
		return ReLU{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "tanh":
		return Tanh{}, nil
	case "linear":
		return Linear{}, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}

// Softmax returns exp(x) / sum(exp(x)) as a new slice.
// The maximum is subtracted before exponentiating so large logits cannot overflow.
func Softmax(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	copy(out, x)
	softmaxInPlace(out)
	return out
}

func softmaxInPlace(x []float64) {
	floats.AddConst(-floats.Max(x), x)
	for i := range x {
		x[i] = math.Exp(x[i])
	}
	floats.Scale(1/floats.Sum(x), x)
}

// SoftmaxRows applies Softmax to every row of m and returns a new matrix.
func SoftmaxRows(m mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(m)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		softmaxInPlace(out.RawRowView(i))
	}
	return out
}

// Apply maps act over every element of m into a new matrix.
func Apply(act Activation, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return act.Activate(v) }, m)
	return &out
}

// ApplyDerivative maps act' over every element of m into a new matrix.
func ApplyDerivative(act Activation, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return act.Derivative(v) }, m)
	return &out
}
