// Package opt provides optimization algorithms.
package opt

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/digitnet/internal/params"
)

// Optimizer updates network parameters in place from their gradients.
type Optimizer interface {
	// Update applies one optimization step: params -= f(gradients)
	Update(p, g *params.Set) error
}

// LearningRater exposes the learning rate to schedulers.
type LearningRater interface {
	LR() float64
	SetLR(lr float64)
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LearningRate float64
}

// NewSGD creates a plain gradient descent optimizer.
func NewSGD(learningRate float64) *SGD {
	return &SGD{LearningRate: learningRate}
}

// Update computes params = params - lr * gradients
func (s *SGD) Update(p, g *params.Set) error {
	if err := p.SameShape(g); err != nil {
		return err
	}
	gs := g.Tensors()
	for ti, ps := range p.Tensors() {
		for i := range ps {
			ps[i] -= s.LearningRate * gs[ti][i]
		}
	}
	return nil
}

func (s *SGD) LR() float64      { return s.LearningRate }
func (s *SGD) SetLR(lr float64) { s.LearningRate = lr }

// Adam optimizer.
//
// Per step t:
//
//	lr_t = lr * sqrt(1 - beta2^t) / (1 - beta1^t)
//	m   += (1 - beta1) * (g - m)
//	v   += (1 - beta2) * (g² - v)
//	p   -= lr_t * m / (sqrt(v) + eps)
//
// Moments are allocated on the first Update with the shape of the
// parameters and are never persisted.
type Adam struct {
	LearningRate float64
	Beta1        float64 // Exponential decay rate for first moment
	Beta2        float64 // Exponential decay rate for second moment
	Epsilon      float64 // Small constant for numerical stability

	t int
	m [][]float64
	v [][]float64
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
	}
}

// Update applies one Adam step to p using g and advances the step count.
func (a *Adam) Update(p, g *params.Set) error {
	if err := p.SameShape(g); err != nil {
		return err
	}
	ps, gs := p.Tensors(), g.Tensors()
	if a.m == nil {
		a.m = make([][]float64, len(ps))
		a.v = make([][]float64, len(ps))
		for i, t := range ps {
			a.m[i] = make([]float64, len(t))
			a.v[i] = make([]float64, len(t))
		}
	} else if len(a.m) != len(ps) {
		return fmt.Errorf("%w: optimizer tracks %d tensors, got %d", params.ErrShapeMismatch, len(a.m), len(ps))
	}

	a.t++
	t := float64(a.t)
	lrT := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))

	for ti := range ps {
		pt, gt, m, v := ps[ti], gs[ti], a.m[ti], a.v[ti]
		if len(m) != len(pt) {
			return fmt.Errorf("%w: tensor %d has %d values, moments have %d", params.ErrShapeMismatch, ti, len(pt), len(m))
		}
		for i, grad := range gt {
			m[i] += (1 - a.Beta1) * (grad - m[i])
			v[i] += (1 - a.Beta2) * (grad*grad - v[i])
			pt[i] -= lrT * m[i] / (math.Sqrt(v[i]) + a.Epsilon)
		}
	}
	return nil
}

// Step returns the number of updates applied so far.
func (a *Adam) Step() int {
	return a.t
}

// Moments returns the first and second moment buffers in params.Set
// tensor order. They are nil before the first Update.
func (a *Adam) Moments() (m, v [][]float64) {
	return a.m, a.v
}

func (a *Adam) LR() float64      { return a.LearningRate }
func (a *Adam) SetLR(lr float64) { a.LearningRate = lr }

// New returns the optimizer registered under name.
func New(name string, learningRate float64) (Optimizer, error) {
	switch name {
	case "", "adam":
		return NewAdam(learningRate), nil
	case "sgd":
		return NewSGD(learningRate), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}
