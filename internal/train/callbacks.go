package train

import (
	"log"

	"github.com/FlavioCFOliveira/digitnet/internal/opt"
)

// Callback observes a training run.
type Callback interface {
	OnTrainBegin(r *Report)
	OnEpochEnd(e EpochReport)
	OnTrainEnd(r *Report)
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(r *Report)   {}
func (BaseCallback) OnEpochEnd(e EpochReport) {}
func (BaseCallback) OnTrainEnd(r *Report)     {}

// SchedulerCallback steps a learning rate scheduler after every epoch.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnEpochEnd(e EpochReport) {
	c.scheduler.Step()
}

// LogCallback logs per-epoch accuracies.
type LogCallback struct {
	BaseCallback
	Logger   *log.Logger
	Interval int
}

// NewLogCallback logs every interval epochs to logger, or to the standard
// logger when logger is nil.
func NewLogCallback(logger *log.Logger, interval int) *LogCallback {
	if logger == nil {
		logger = log.Default()
	}
	return &LogCallback{Logger: logger, Interval: interval}
}

func (c *LogCallback) OnTrainBegin(r *Report) {
	c.Logger.Printf("run %s: training, output %s", r.RunID, r.OutputPath)
}

func (c *LogCallback) OnEpochEnd(e EpochReport) {
	if c.Interval > 1 && e.Epoch%c.Interval != 0 {
		return
	}
	c.Logger.Printf("epoch: %d, train acc: %.4f, test acc: %.4f, loss: %.6f",
		e.Epoch, e.TrainAccuracy, e.EvalAccuracy, e.Loss)
}

func (c *LogCallback) OnTrainEnd(r *Report) {
	if len(r.Epochs) == 0 {
		return
	}
	c.Logger.Printf("run %s: %d epochs in %s, gap %.4f", r.RunID, len(r.Epochs), r.Elapsed, r.Gap())
}
