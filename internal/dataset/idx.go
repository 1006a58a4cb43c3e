package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	imageMagic = 2051
	labelMagic = 2049
)

// MNIST file names looked up by LoadMNIST, with or without a .gz suffix.
const (
	TrainImages = "train-images-idx3-ubyte"
	TrainLabels = "train-labels-idx1-ubyte"
	TestImages  = "t10k-images-idx3-ubyte"
	TestLabels  = "t10k-labels-idx1-ubyte"
)

// LoadMNIST loads the training and test sets from the standard IDX files in dir.
func LoadMNIST(dir string) (train, test *Set, err error) {
	train, err = LoadIDX(locate(dir, TrainImages), locate(dir, TrainLabels))
	if err != nil {
		return nil, nil, fmt.Errorf("load training set: %w", err)
	}
	test, err = LoadIDX(locate(dir, TestImages), locate(dir, TestLabels))
	if err != nil {
		return nil, nil, fmt.Errorf("load test set: %w", err)
	}
	return train, test, nil
}

func locate(dir, name string) string {
	plain := filepath.Join(dir, name)
	if _, err := os.Stat(plain); err == nil {
		return plain
	}
	return plain + ".gz"
}

// LoadIDX reads an IDX image file and its label file. Files ending in .gz
// are decompressed transparently. Pixels are scaled from 0-255 to [0, 1].
func LoadIDX(imagesPath, labelsPath string) (*Set, error) {
	images, err := readIDXImages(imagesPath)
	if err != nil {
		return nil, err
	}
	labels, err := readIDXLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("%w: %d images but %d labels", ErrFormat, len(images), len(labels))
	}

	s := &Set{Images: make([][]float64, len(images)), Labels: make([]int, len(labels))}
	for i, img := range images {
		s.Images[i] = normalize(img)
		s.Labels[i] = int(labels[i])
	}
	return s, s.Validate()
}

func normalize(px []byte) []float64 {
	out := make([]float64, len(px))
	for i, p := range px {
		out[i] = float64(p) / 255.0
	}
	return out
}

func open(filename string) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(filename, ".gz") {
		return file, nil
	}
	gz, err := gzip.NewReader(bufio.NewReader(file))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, filename, err)
	}
	return readCloser{Reader: gz, close: func() error {
		gz.Close()
		return file.Close()
	}}, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// readIDXImages reads an image file in IDX format.
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255)
//
// Only 28x28 images are accepted. Images are read one at a time, so a
// header claiming more images than the file holds fails at the first
// missing one.
func readIDXImages(filename string) ([][]byte, error) {
	r, err := open(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	br := bufio.NewReader(r)

	var header [4]uint32
	if err := binary.Read(br, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %s: read header: %v", ErrFormat, filename, err)
	}
	if header[0] != imageMagic {
		return nil, fmt.Errorf("%w: %s: magic %d, want %d", ErrFormat, filename, header[0], imageMagic)
	}
	if header[2] != Rows || header[3] != Cols {
		return nil, fmt.Errorf("%w: %s: images are %dx%d, want %dx%d", ErrFormat, filename, header[2], header[3], Rows, Cols)
	}

	numImages := int(header[1])
	var images [][]byte
	for i := 0; i < numImages; i++ {
		img := make([]byte, Features)
		if _, err := io.ReadFull(br, img); err != nil {
			return nil, fmt.Errorf("%w: %s: image %d of %d: %v", ErrFormat, filename, i, numImages, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// readIDXLabels reads a label file in IDX format.
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func readIDXLabels(filename string) ([]byte, error) {
	r, err := open(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	br := bufio.NewReader(r)

	var header [2]uint32
	if err := binary.Read(br, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %s: read header: %v", ErrFormat, filename, err)
	}
	if header[0] != labelMagic {
		return nil, fmt.Errorf("%w: %s: magic %d, want %d", ErrFormat, filename, header[0], labelMagic)
	}

	labels, err := io.ReadAll(io.LimitReader(br, int64(header[1])))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: labels: %v", ErrFormat, filename, err)
	}
	if len(labels) != int(header[1]) {
		return nil, fmt.Errorf("%w: %s: %d labels, header says %d", ErrFormat, filename, len(labels), header[1])
	}
	return labels, nil
}

// WriteIDX writes s as an IDX image file and label file, the inverse of
// LoadIDX. Pixel values are rounded back to 0-255.
func WriteIDX(s *Set, imagesPath, labelsPath string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := writeFile(imagesPath, func(w io.Writer) error {
		header := [4]uint32{imageMagic, uint32(s.Len()), Rows, Cols}
		if err := binary.Write(w, binary.BigEndian, header); err != nil {
			return err
		}
		px := make([]byte, Features)
		for _, img := range s.Images {
			for i, v := range img {
				px[i] = byte(clamp(v)*255 + 0.5)
			}
			if _, err := w.Write(px); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	return writeFile(labelsPath, func(w io.Writer) error {
		header := [2]uint32{labelMagic, uint32(s.Len())}
		if err := binary.Write(w, binary.BigEndian, header); err != nil {
			return err
		}
		labels := make([]byte, s.Len())
		for i, l := range s.Labels {
			labels[i] = byte(l)
		}
		_, err := w.Write(labels)
		return err
	})
}

func writeFile(filename string, fn func(io.Writer) error) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	var w io.Writer = file
	var gz *gzip.Writer
	if strings.HasSuffix(filename, ".gz") {
		gz = gzip.NewWriter(file)
		w = gz
	}
	bw := bufio.NewWriter(w)
	if err := fn(bw); err != nil {
		file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			file.Close()
			return err
		}
	}
	return file.Close()
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
