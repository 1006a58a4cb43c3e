// Package dataset loads labeled digit images.
//
// Images are flattened row-major into 784 values scaled to [0, 1]; labels
// are class indices in [0, 9].
package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

const (
	// Rows and Cols are the canonical image dimensions.
	Rows = 28
	Cols = 28

	// Features is the length of a flattened image.
	Features = Rows * Cols

	// Classes is the number of digit labels.
	Classes = 10
)

// ErrFormat is returned for files that are not valid digit datasets.
var ErrFormat = errors.New("dataset: invalid format")

// Set holds images and labels as parallel slices.
type Set struct {
	Images [][]float64
	Labels []int
}

// Len returns the number of samples.
func (s *Set) Len() int {
	return len(s.Labels)
}

// Validate checks that images and labels line up, every image has
// Features values and every label is in range.
func (s *Set) Validate() error {
	if len(s.Images) != len(s.Labels) {
		return fmt.Errorf("%w: %d images but %d labels", ErrFormat, len(s.Images), len(s.Labels))
	}
	for i, img := range s.Images {
		if len(img) != Features {
			return fmt.Errorf("%w: image %d has %d values, want %d", ErrFormat, i, len(img), Features)
		}
		if l := s.Labels[i]; l < 0 || l >= Classes {
			return fmt.Errorf("%w: label %d at index %d outside [0, %d)", ErrFormat, l, i, Classes)
		}
	}
	return nil
}

// Limit returns the first n samples. n <= 0 or n >= Len returns s unchanged.
// The returned set shares storage with s.
func (s *Set) Limit(n int) *Set {
	if n <= 0 || n >= s.Len() {
		return s
	}
	return &Set{Images: s.Images[:n], Labels: s.Labels[:n]}
}

// Batch gathers the samples at idx into a matrix with one image per row.
func (s *Set) Batch(idx []int) (*mat.Dense, []int) {
	width := len(s.Images[idx[0]])
	data := make([]float64, 0, len(idx)*width)
	labels := make([]int, len(idx))
	for i, j := range idx {
		data = append(data, s.Images[j]...)
		labels[i] = s.Labels[j]
	}
	return mat.NewDense(len(idx), width, data), labels
}

// Matrix returns every sample as one batch.
func (s *Set) Matrix() (*mat.Dense, []int) {
	idx := make([]int, s.Len())
	for i := range idx {
		idx[i] = i
	}
	return s.Batch(idx)
}

// Sample draws n indices uniformly with replacement.
func (s *Set) Sample(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(s.Len())
	}
	return idx
}

// SampleDistinct draws min(n, Len) distinct indices in random order.
func (s *Set) SampleDistinct(n int, rng *rand.Rand) []int {
	return rng.Perm(s.Len())[:min(max(n, 0), s.Len())]
}
