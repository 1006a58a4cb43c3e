package train

import "time"

// EpochReport summarises one epoch.
type EpochReport struct {
	Epoch         int
	TrainAccuracy float64
	EvalAccuracy  float64

	// Loss is the mean batch loss over the epoch.
	Loss     float64
	Duration time.Duration
}

// Report is the outcome of a training run.
type Report struct {
	RunID      string
	Epochs     []EpochReport
	OutputPath string
	Elapsed    time.Duration
}

// Last returns the final epoch report, or the zero value before any epoch
// has finished.
func (r *Report) Last() EpochReport {
	if len(r.Epochs) == 0 {
		return EpochReport{}
	}
	return r.Epochs[len(r.Epochs)-1]
}

// Gap returns the final training accuracy minus the final evaluation
// accuracy.
func (r *Report) Gap() float64 {
	last := r.Last()
	return last.TrainAccuracy - last.EvalAccuracy
}
