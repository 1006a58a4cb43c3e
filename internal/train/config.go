// Package train fits a digit classification network and saves its
// parameters.
package train

import (
	"errors"
	"fmt"
	"os"

	"github.com/FlavioCFOliveira/digitnet/internal/net"
	"gopkg.in/yaml.v3"
)

// ErrConfig is returned for configurations that cannot be run.
var ErrConfig = errors.New("train: invalid config")

// SchedulerConfig selects a learning rate schedule.
type SchedulerConfig struct {
	Kind     string  `yaml:"kind"`
	StepSize int     `yaml:"step_size"`
	Gamma    float64 `yaml:"gamma"`
}

// Config captures the knobs of a training run.
type Config struct {
	Epochs       int             `yaml:"epochs"`
	BatchSize    int             `yaml:"batch_size"`
	LearningRate float64         `yaml:"learning_rate"`
	Optimizer    string          `yaml:"optimizer"`
	Hidden       []int           `yaml:"hidden"`
	Activation   string          `yaml:"activation"`
	WeightDecay  float64         `yaml:"weight_decay"`
	TrainLimit   int             `yaml:"train_limit"`
	Seed         uint64          `yaml:"seed"`
	Output       string          `yaml:"output"`
	Scheduler    SchedulerConfig `yaml:"scheduler"`
	LogEvery     int             `yaml:"log_every_epoch"` // 0 logs every epoch
	HistoryCSV   string          `yaml:"history_csv"`
}

// Overrides captures CLI supplied values. Zero values leave the config
// untouched.
type Overrides struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	TrainLimit   int
	Seed         uint64
	Output       string
	HistoryCSV   string
}

// DefaultConfig returns 50 epochs of Adam at 0.01 over 300 examples in
// batches of 100, on a 784 -> 100x6 -> 10 ReLU network.
func DefaultConfig() *Config {
	return &Config{
		Epochs:       50,
		BatchSize:    100,
		LearningRate: 0.01,
		Optimizer:    "adam",
		Hidden:       net.DefaultConfig().Hidden,
		Activation:   "relu",
		TrainLimit:   300,
		Seed:         1,
		Output:       "trained_model.gob",
		Scheduler:    SchedulerConfig{Kind: "constant"},
		LogEvery:     1,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.TrainLimit > 0 {
		c.TrainLimit = o.TrainLimit
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.HistoryCSV != "" {
		c.HistoryCSV = o.HistoryCSV
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrConfig)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("%w: epochs must be > 0 (got %d)", ErrConfig, c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be > 0 (got %d)", ErrConfig, c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning_rate must be > 0 (got %g)", ErrConfig, c.LearningRate)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("%w: weight_decay must be >= 0 (got %g)", ErrConfig, c.WeightDecay)
	}
	if c.TrainLimit < 0 {
		return fmt.Errorf("%w: train_limit must be >= 0 (got %d)", ErrConfig, c.TrainLimit)
	}
	for i, h := range c.Hidden {
		if h <= 0 {
			return fmt.Errorf("%w: hidden[%d] must be > 0 (got %d)", ErrConfig, i, h)
		}
	}
	switch c.Optimizer {
	case "adam", "sgd":
	default:
		return fmt.Errorf("%w: unknown optimizer %q", ErrConfig, c.Optimizer)
	}
	switch c.Activation {
	case "relu", "sigmoid", "tanh":
	default:
		return fmt.Errorf("%w: unknown activation %q", ErrConfig, c.Activation)
	}
	switch c.Scheduler.Kind {
	case "", "none", "constant":
	case "step", "exponential":
		if c.Scheduler.Kind == "step" && c.Scheduler.StepSize <= 0 {
			return fmt.Errorf("%w: scheduler.step_size must be > 0 (got %d)", ErrConfig, c.Scheduler.StepSize)
		}
		if g := c.Scheduler.Gamma; g <= 0 || g > 1 {
			return fmt.Errorf("%w: scheduler.gamma must be in (0, 1] (got %g)", ErrConfig, g)
		}
	default:
		return fmt.Errorf("%w: unknown scheduler %q", ErrConfig, c.Scheduler.Kind)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output path is empty", ErrConfig)
	}
	if c.LogEvery < 0 {
		return fmt.Errorf("%w: log_every_epoch must be >= 0 (got %d)", ErrConfig, c.LogEvery)
	}
	return nil
}

// Network returns the architecture described by c.
func (c *Config) Network() net.Config {
	cfg := net.DefaultConfig()
	cfg.Hidden = append([]int(nil), c.Hidden...)
	cfg.Activation = c.Activation
	cfg.WeightDecay = c.WeightDecay
	return cfg
}
