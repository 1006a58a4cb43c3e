// Command train fits the digit classifier and saves its parameters.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/FlavioCFOliveira/digitnet/internal/dataset"
	"github.com/FlavioCFOliveira/digitnet/internal/train"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults when empty)")
	data := flag.String("data", "", "MNIST directory or Kaggle-style CSV file")
	synthetic := flag.Int("synthetic", 0, "Train on N synthetic digits instead of -data")
	epochs := flag.Int("epochs", 0, "Number of epochs")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	lr := flag.Float64("lr", 0, "Learning rate")
	limit := flag.Int("limit", 0, "Use only the first N training examples")
	seed := flag.Uint64("seed", 0, "PRNG seed")
	output := flag.String("output", "", "Where to save the trained parameters")
	history := flag.String("history", "", "Write per-epoch history to this CSV file")

	flag.Parse()

	cfg := train.DefaultConfig()
	if *cfgPath != "" {
		var err error
		if cfg, err = train.LoadConfig(*cfgPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	cfg.ApplyOverrides(train.Overrides{
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		LearningRate: *lr,
		TrainLimit:   *limit,
		Seed:         *seed,
		Output:       *output,
		HistoryCSV:   *history,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	trainSet, evalSet, err := loadData(*data, *synthetic, cfg.Seed)
	if err != nil {
		log.Fatalf("failed to load data: %v", err)
	}
	log.Printf("train=%d eval=%d epochs=%d batch=%d lr=%g", trainSet.Limit(cfg.TrainLimit).Len(),
		evalSet.Len(), cfg.Epochs, cfg.BatchSize, cfg.LearningRate)

	callbacks := []train.Callback{train.NewLogCallback(nil, cfg.LogEvery)}
	var csvLog *train.CSVCallback
	if cfg.HistoryCSV != "" {
		csvLog = train.NewCSVCallback(cfg.HistoryCSV, false)
		callbacks = append(callbacks, csvLog)
	}

	t, err := train.New(cfg, train.WithCallbacks(callbacks...))
	if err != nil {
		log.Fatalf("failed to build trainer: %v", err)
	}
	t.Network().Summary(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := t.Run(ctx, trainSet, evalSet)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	if csvLog != nil && csvLog.Err() != nil {
		log.Printf("history not written: %v", csvLog.Err())
	}

	last := report.Last()
	fmt.Printf("Final train accuracy: %.4f, test accuracy: %.4f\n", last.TrainAccuracy, last.EvalAccuracy)
	fmt.Printf("Model saved to %s\n", report.OutputPath)
}

func loadData(path string, synthetic int, seed uint64) (*dataset.Set, *dataset.Set, error) {
	switch {
	case synthetic > 0:
		rng := rand.New(rand.NewPCG(seed, seed+1))
		return dataset.Synthetic(synthetic, rng), dataset.Synthetic(max(synthetic/5, 10), rng), nil
	case path == "":
		return nil, nil, errors.New("either -data or -synthetic is required")
	case strings.HasSuffix(path, ".csv"):
		all, err := dataset.LoadCSV(path, 0)
		if err != nil {
			return nil, nil, err
		}
		trainSet, evalSet := all.Split(0.8)
		return trainSet, evalSet, nil
	default:
		return dataset.LoadMNIST(path)
	}
}
