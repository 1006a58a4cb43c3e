// Command predict classifies digit images with a trained model.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"math/rand/v2"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/FlavioCFOliveira/digitnet/internal/dataset"
	"github.com/FlavioCFOliveira/digitnet/internal/imaging"
	"github.com/FlavioCFOliveira/digitnet/internal/infer"
)

func main() {
	model := flag.String("model", "trained_model.gob", "Path to trained parameters")
	invert := flag.Bool("invert", false, "Invert images drawn dark on a light background")
	top := flag.Int("top", 3, "Show the N most probable labels")
	mnistDir := flag.String("mnist", "", "Evaluate random samples from this MNIST directory instead")
	n := flag.Int("n", 10, "Number of MNIST samples with -mnist")
	seed := flag.Uint64("seed", 1, "PRNG seed for -mnist sampling")

	flag.Parse()

	c, err := infer.Load(*model, infer.WithInvert(*invert))
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}

	if *mnistDir != "" {
		evaluate(c, *mnistDir, *n, *seed)
		return
	}
	if flag.NArg() == 0 {
		log.Fatal("no images given; pass image paths or -mnist dir")
	}

	failed := false
	for _, path := range flag.Args() {
		p, err := predictFile(c, path)
		if err != nil {
			log.Printf("%s: %v", path, err)
			failed = true
			continue
		}
		fmt.Printf("%s: %d (confidence %.4f)\n", path, p.Label, p.Confidence())
		fmt.Printf("  top: %s\n", formatTop(p.TopK(*top)))
	}
	if failed {
		os.Exit(1)
	}
}

func predictFile(c *infer.Classifier, path string) (infer.Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return infer.Prediction{}, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return infer.Prediction{}, fmt.Errorf("decode: %w", err)
	}
	img, err := imaging.FromImage(src)
	if err != nil {
		return infer.Prediction{}, err
	}
	return c.Predict(img)
}

func evaluate(c *infer.Classifier, dir string, n int, seed uint64) {
	_, test, err := dataset.LoadMNIST(dir)
	if err != nil {
		log.Fatalf("failed to load MNIST: %v", err)
	}
	ev, err := c.Evaluate(test, n, rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
	for _, s := range ev.Samples {
		mark := "ok"
		if !s.Correct() {
			mark = "MISS"
		}
		fmt.Printf("#%-5d true=%d predicted=%d confidence=%.4f %s\n",
			s.Index, s.Label, s.Prediction.Label, s.Prediction.Confidence(), mark)
	}
	fmt.Printf("Correct: %d/%d (%.2f%%)\n", ev.Correct, len(ev.Samples), ev.Accuracy()*100)
}

func formatTop(scores []infer.Score) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%d=%.4f", s.Label, s.Probability)
	}
	return strings.Join(parts, " ")
}
