package opt

import "fmt"

// Scheduler adjusts the learning rate once per epoch.
type Scheduler interface {
	Step()
}

// Constant leaves the learning rate unchanged.
type Constant struct{}

func (Constant) Step() {}

// StepLR multiplies the learning rate by gamma every stepSize epochs.
type StepLR struct {
	optimizer LearningRater
	stepSize  int
	gamma     float64
	lastEpoch int
}

func NewStepLR(optimizer LearningRater, stepSize int, gamma float64) *StepLR {
	return &StepLR{
		optimizer: optimizer,
		stepSize:  stepSize,
		gamma:     gamma,
	}
}

func (s *StepLR) Step() {
	s.lastEpoch++
	if s.stepSize > 0 && s.lastEpoch%s.stepSize == 0 {
		s.optimizer.SetLR(s.optimizer.LR() * s.gamma)
	}
}

// ExponentialLR multiplies the learning rate by gamma every epoch.
type ExponentialLR struct {
	optimizer LearningRater
	gamma     float64
}

func NewExponentialLR(optimizer LearningRater, gamma float64) *ExponentialLR {
	return &ExponentialLR{
		optimizer: optimizer,
		gamma:     gamma,
	}
}

func (s *ExponentialLR) Step() {
	s.optimizer.SetLR(s.optimizer.LR() * s.gamma)
}

// NewScheduler builds a scheduler by kind: "" (or "none", "constant"),
// "step" or "exponential".
func NewScheduler(kind string, o Optimizer, stepSize int, gamma float64) (Scheduler, error) {
	if kind == "" || kind == "none" || kind == "constant" {
		return Constant{}, nil
	}
	lr, ok := o.(LearningRater)
	if !ok {
		return nil, fmt.Errorf("optimizer %T has no learning rate to schedule", o)
	}
	switch kind {
	case "step":
		if stepSize <= 0 {
			return nil, fmt.Errorf("step scheduler needs step_size > 0 (got %d)", stepSize)
		}
		return NewStepLR(lr, stepSize, gamma), nil
	case "exponential":
		return NewExponentialLR(lr, gamma), nil
	default:
		return nil, fmt.Errorf("unknown scheduler %q", kind)
	}
}
