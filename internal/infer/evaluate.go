package infer

import (
	"fmt"
	"math/rand/v2"

	"github.com/FlavioCFOliveira/digitnet/internal/dataset"
)

// Sample is the outcome of classifying one dataset image.
type Sample struct {
	Index      int
	Label      int
	Prediction Prediction
}

// Correct reports whether the predicted label matches the dataset label.
func (s Sample) Correct() bool {
	return s.Prediction.Label == s.Label
}

// Evaluation summarises Evaluate.
type Evaluation struct {
	Correct int
	Samples []Sample
}

// Accuracy returns Correct divided by the number of samples, or 0 when
// nothing was evaluated.
func (e Evaluation) Accuracy() float64 {
	if len(e.Samples) == 0 {
		return 0
	}
	return float64(e.Correct) / float64(len(e.Samples))
}

// Evaluate classifies n distinct images drawn at random from ds, or every
// image when n exceeds its size. Dataset images are already preprocessed,
// so they go straight to the network.
func (c *Classifier) Evaluate(ds *dataset.Set, n int, rng *rand.Rand) (Evaluation, error) {
	if c == nil || c.network == nil {
		return Evaluation{}, ErrModelNotLoaded
	}
	if ds == nil || ds.Len() == 0 {
		return Evaluation{}, fmt.Errorf("%w: empty dataset", dataset.ErrFormat)
	}
	if n <= 0 {
		return Evaluation{}, nil
	}

	var ev Evaluation
	for _, i := range ds.SampleDistinct(n, rng) {
		p, err := c.PredictFeatures(ds.Images[i])
		if err != nil {
			return ev, fmt.Errorf("sample %d: %w", i, err)
		}
		s := Sample{Index: i, Label: ds.Labels[i], Prediction: p}
		if s.Correct() {
			ev.Correct++
		}
		ev.Samples = append(ev.Samples, s)
	}
	return ev, nil
}
