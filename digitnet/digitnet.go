// Package digitnet is the public entry point for training and running the
// handwritten digit classifier.
package digitnet

import (
	"context"
	"image"
	"math/rand/v2"

	"github.com/FlavioCFOliveira/digitnet/internal/dataset"
	"github.com/FlavioCFOliveira/digitnet/internal/imaging"
	"github.com/FlavioCFOliveira/digitnet/internal/infer"
	"github.com/FlavioCFOliveira/digitnet/internal/train"
)

// Re-export common types for easier access
type (
	Classifier  = infer.Classifier
	Prediction  = infer.Prediction
	Score       = infer.Score
	Evaluation  = infer.Evaluation
	Image       = imaging.Image
	Dataset     = dataset.Set
	Config      = train.Config
	Overrides   = train.Overrides
	Report      = train.Report
	EpochReport = train.EpochReport
	Callback    = train.Callback
)

// Errors
var (
	ErrModelNotFound  = infer.ErrModelNotFound
	ErrModelNotLoaded = infer.ErrModelNotLoaded
	ErrInvalidImage   = imaging.ErrInvalidImage
	ErrConfig         = train.ErrConfig
	ErrPersist        = train.ErrPersist
)

// Configuration
func DefaultConfig() *Config {
	return train.DefaultConfig()
}

func LoadConfig(path string) (*Config, error) {
	return train.LoadConfig(path)
}

// Train fits a new network on trainSet, reporting accuracy on evalSet after
// every epoch, and saves it to cfg.Output.
func Train(ctx context.Context, cfg *Config, trainSet, evalSet *Dataset, callbacks ...Callback) (*Report, error) {
	t, err := train.New(cfg, train.WithCallbacks(callbacks...))
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, trainSet, evalSet)
}

// Callbacks
func LogCallback(every int) Callback {
	return train.NewLogCallback(nil, every)
}

func CSVCallback(filename string) *train.CSVCallback {
	return train.NewCSVCallback(filename, false)
}

// Datasets
func LoadMNIST(dir string) (trainSet, testSet *Dataset, err error) {
	return dataset.LoadMNIST(dir)
}

func LoadCSV(filename string, limit int) (*Dataset, error) {
	return dataset.LoadCSV(filename, limit)
}

func Synthetic(n int, rng *rand.Rand) *Dataset {
	return dataset.Synthetic(n, rng)
}

// Images
func NewImage(h, w int) *Image {
	return imaging.New(h, w)
}

func ImageFromRows(rows [][]float64) (*Image, error) {
	return imaging.FromRows(rows)
}

func ImageFrom(src image.Image) (*Image, error) {
	return imaging.FromImage(src)
}

// Model Persistence

// Load reads a trained model. Set invert for dark strokes on a light
// background.
func Load(filename string, invert bool) (*Classifier, error) {
	return infer.Load(filename, infer.WithInvert(invert))
}
