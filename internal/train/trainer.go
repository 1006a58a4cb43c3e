package train

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/FlavioCFOliveira/digitnet/internal/dataset"
	"github.com/FlavioCFOliveira/digitnet/internal/net"
	"github.com/FlavioCFOliveira/digitnet/internal/opt"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrPersist is returned when the trained parameters cannot be saved.
	ErrPersist = errors.New("train: failed to save parameters")

	// ErrNumerical is returned when a batch loss is NaN or infinite.
	ErrNumerical = errors.New("train: non-finite loss")
)

// Trainer runs mini-batch training of one network.
type Trainer struct {
	cfg       *Config
	network   *net.Network
	optimizer opt.Optimizer
	rng       *rand.Rand
	callbacks []Callback
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithCallbacks registers callbacks in call order.
func WithCallbacks(callbacks ...Callback) Option {
	return func(t *Trainer) { t.callbacks = append(t.callbacks, callbacks...) }
}

// WithNetwork trains n instead of a freshly initialised network.
func WithNetwork(n *net.Network) Option {
	return func(t *Trainer) { t.network = n }
}

// New validates cfg and builds the network, optimizer and scheduler it
// describes. Weight initialisation and batch sampling share one generator
// seeded from cfg.Seed.
func New(cfg *Config, options ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Trainer{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
	for _, o := range options {
		o(t)
	}

	if t.network == nil {
		n, err := net.New(cfg.Network(), t.rng)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		t.network = n
	}

	o, err := opt.New(cfg.Optimizer, cfg.LearningRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	t.optimizer = o

	s, err := opt.NewScheduler(cfg.Scheduler.Kind, o, cfg.Scheduler.StepSize, cfg.Scheduler.Gamma)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if _, constant := s.(opt.Constant); !constant {
		t.callbacks = append(t.callbacks, NewSchedulerCallback(s))
	}
	return t, nil
}

// Network returns the network being trained.
func (t *Trainer) Network() *net.Network {
	return t.network
}

// Optimizer returns the optimizer driving the run.
func (t *Trainer) Optimizer() opt.Optimizer {
	return t.optimizer
}

// Run trains for exactly cfg.Epochs epochs and saves the parameters to
// cfg.Output.
//
// Each epoch takes max(len(train)/batch, 1) steps; every step samples a
// batch uniformly with replacement. After each epoch the accuracy on the
// full train and eval sets is recorded. eval may be empty.
//
// Cancelling ctx stops between steps without saving. A save failure
// returns ErrPersist together with the report of the finished run.
func (t *Trainer) Run(ctx context.Context, train, eval *dataset.Set) (*Report, error) {
	if train == nil || train.Len() == 0 {
		return nil, fmt.Errorf("%w: empty training set", dataset.ErrFormat)
	}
	if err := train.Validate(); err != nil {
		return nil, err
	}
	if eval == nil {
		eval = &dataset.Set{}
	}
	if err := eval.Validate(); err != nil {
		return nil, err
	}
	train = train.Limit(t.cfg.TrainLimit)

	start := time.Now()
	report := &Report{RunID: uuid.NewString(), OutputPath: t.cfg.Output}
	for _, cb := range t.callbacks {
		cb.OnTrainBegin(report)
	}
	defer func() {
		report.Elapsed = time.Since(start)
		for _, cb := range t.callbacks {
			cb.OnTrainEnd(report)
		}
	}()

	trainX, trainY := train.Matrix()
	var evalX *mat.Dense
	var evalY []int
	if eval.Len() > 0 {
		evalX, evalY = eval.Matrix()
	}

	iters := max(train.Len()/t.cfg.BatchSize, 1)
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		epochStart := time.Now()
		var sum float64
		for i := 0; i < iters; i++ {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			l, err := t.step(train)
			if err != nil {
				return report, fmt.Errorf("epoch %d step %d: %w", epoch, i+1, err)
			}
			sum += l
		}

		trainAcc, err := t.network.Accuracy(trainX, trainY)
		if err != nil {
			return report, fmt.Errorf("epoch %d: train accuracy: %w", epoch, err)
		}
		evalAcc, err := t.network.Accuracy(evalX, evalY)
		if err != nil {
			return report, fmt.Errorf("epoch %d: eval accuracy: %w", epoch, err)
		}
		e := EpochReport{
			Epoch:         epoch,
			TrainAccuracy: trainAcc,
			EvalAccuracy:  evalAcc,
			Loss:          sum / float64(iters),
			Duration:      time.Since(epochStart),
		}
		report.Epochs = append(report.Epochs, e)
		for _, cb := range t.callbacks {
			cb.OnEpochEnd(e)
		}
	}

	if err := t.network.Save(t.cfg.Output); err != nil {
		report.OutputPath = ""
		return report, fmt.Errorf("%w: %s: %w", ErrPersist, t.cfg.Output, err)
	}
	return report, nil
}

// step runs one forward/backward pass on a sampled batch and applies the
// optimizer.
func (t *Trainer) step(train *dataset.Set) (float64, error) {
	x, y := train.Batch(train.Sample(t.cfg.BatchSize, t.rng))
	g, l, err := t.network.Gradient(x, y)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(l) || math.IsInf(l, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNumerical, l)
	}
	if err := t.optimizer.Update(t.network.Params(), g); err != nil {
		return 0, err
	}
	return l, nil
}
