// Package loss provides the classification loss used for training.
package loss

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/digitnet/internal/activations"
	"github.com/FlavioCFOliveira/digitnet/internal/params"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Epsilon keeps log() finite when a class probability underflows to zero.
const Epsilon = 1e-7

// SoftmaxCrossEntropy combines a row-wise softmax with the mean
// cross-entropy against integer class labels.
type SoftmaxCrossEntropy struct {
	probs  *mat.Dense
	labels []int
}

// Forward computes the mean cross-entropy of softmax(logits) against labels.
// The probabilities are kept for Backward.
func (s *SoftmaxCrossEntropy) Forward(logits mat.Matrix, labels []int) (float64, error) {
	r, c := logits.Dims()
	if r != len(labels) {
		return 0, fmt.Errorf("loss: %d rows but %d labels", r, len(labels))
	}
	for i, l := range labels {
		if l < 0 || l >= c {
			return 0, fmt.Errorf("loss: label %d at row %d outside [0, %d)", l, i, c)
		}
	}
	s.probs = activations.SoftmaxRows(logits)
	s.labels = labels
	return CrossEntropy(s.probs, labels), nil
}

// Probabilities returns the softmax output of the last Forward call.
func (s *SoftmaxCrossEntropy) Probabilities() *mat.Dense {
	return s.probs
}

// Backward returns dL/dlogits = (softmax - onehot) / batch.
func (s *SoftmaxCrossEntropy) Backward() *mat.Dense {
	r, _ := s.probs.Dims()
	grad := mat.DenseCopyOf(s.probs)
	for i, l := range s.labels {
		grad.Set(i, l, grad.At(i, l)-1)
	}
	grad.Scale(1/float64(r), grad)
	return grad
}

// CrossEntropy computes the mean of -log(p[label]) over the rows of probs.
func CrossEntropy(probs mat.Matrix, labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	var sum float64
	for i, l := range labels {
		sum -= math.Log(probs.At(i, l) + Epsilon)
	}
	return sum / float64(len(labels))
}

// L2 returns 0.5 * lambda * sum(W^2) over every weight matrix in p.
// Biases are not regularised.
func L2(p *params.Set, lambda float64) float64 {
	if lambda == 0 {
		return 0
	}
	var sum float64
	for _, l := range p.Layers {
		raw := l.W.RawMatrix().Data
		sum += floats.Dot(raw, raw)
	}
	return 0.5 * lambda * sum
}
