package params

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
)

// blob is the on-disk form of a Set. Matrices are stored as gonum binary
// payloads keyed by their position in Layers.
type blob struct {
	Activation string
	Layers     []blobLayer
}

type blobLayer struct {
	W []byte
	B []byte
}

// Encode writes the set to w using gob encoding.
func (s *Set) Encode(w io.Writer) error {
	if err := s.Validate(); err != nil {
		return err
	}
	b := blob{Activation: s.Activation, Layers: make([]blobLayer, len(s.Layers))}
	for i, l := range s.Layers {
		wb, err := l.W.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal weights of layer %d: %w", i, err)
		}
		bb, err := l.B.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal biases of layer %d: %w", i, err)
		}
		b.Layers[i] = blobLayer{W: wb, B: bb}
	}
	if err := gob.NewEncoder(w).Encode(b); err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	return nil
}

// Decode reads a set written by Encode and validates its shapes.
func Decode(r io.Reader) (*Set, error) {
	var b blob
	if err := gob.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	s := &Set{Activation: b.Activation, Layers: make([]Layer, len(b.Layers))}
	for i, bl := range b.Layers {
		var w mat.Dense
		if err := w.UnmarshalBinary(bl.W); err != nil {
			return nil, fmt.Errorf("failed to read weights of layer %d: %w", i, err)
		}
		var v mat.VecDense
		if err := v.UnmarshalBinary(bl.B); err != nil {
			return nil, fmt.Errorf("failed to read biases of layer %d: %w", i, err)
		}
		s.Layers[i] = Layer{W: &w, B: &v}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the set to a file through a temporary file and a rename.
func (s *Set) Save(filename string) error {
	tmp := filename + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := s.Encode(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Load reads a set from a file. A missing file is reported with an error
// satisfying errors.Is(err, fs.ErrNotExist).
func Load(filename string) (*Set, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}
