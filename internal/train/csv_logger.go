package train

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CSVCallback writes one history row per epoch to a CSV file.
type CSVCallback struct {
	BaseCallback
	Filename string
	Append   bool

	file   *os.File
	writer *csv.Writer
	runID  string
	start  time.Time
	err    error
}

// NewCSVCallback creates a new CSVCallback.
func NewCSVCallback(filename string, append bool) *CSVCallback {
	return &CSVCallback{
		Filename: filename,
		Append:   append,
	}
}

// Err returns the first error hit while writing the history.
func (c *CSVCallback) Err() error {
	return c.err
}

func (c *CSVCallback) OnTrainBegin(r *Report) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		c.err = fmt.Errorf("open history %s: %w", c.Filename, err)
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.runID = r.RunID
	c.start = time.Now()

	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.write([]string{"run_id", "epoch", "loss", "train_acc", "test_acc", "time_seconds"})
	}
}

func (c *CSVCallback) OnEpochEnd(e EpochReport) {
	if c.writer == nil {
		return
	}
	c.write([]string{
		c.runID,
		strconv.Itoa(e.Epoch),
		strconv.FormatFloat(e.Loss, 'f', 6, 64),
		strconv.FormatFloat(e.TrainAccuracy, 'f', 4, 64),
		strconv.FormatFloat(e.EvalAccuracy, 'f', 4, 64),
		strconv.FormatFloat(time.Since(c.start).Seconds(), 'f', 2, 64),
	})
}

func (c *CSVCallback) OnTrainEnd(r *Report) {
	if c.file == nil {
		return
	}
	c.writer.Flush()
	if err := c.file.Close(); err != nil && c.err == nil {
		c.err = fmt.Errorf("close history %s: %w", c.Filename, err)
	}
	c.file = nil
	c.writer = nil
}

func (c *CSVCallback) write(record []string) {
	if err := c.writer.Write(record); err != nil && c.err == nil {
		c.err = fmt.Errorf("write history: %w", err)
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil && c.err == nil {
		c.err = fmt.Errorf("write history: %w", err)
	}
}
