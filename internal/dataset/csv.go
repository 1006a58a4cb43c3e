package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// LoadCSV loads digits from a Kaggle-style CSV file:
//
//	label,pixel0,pixel1,...,pixel783
//	5,0,0,12,...,0
//
// The header row is skipped. limit > 0 stops after that many samples.
// Pixels are scaled from 0-255 to [0, 1].
func LoadCSV(filename string, limit int) (*Set, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = Features + 1
	reader.ReuseRecord = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: csv file is empty", ErrFormat)
		}
		return nil, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}

	s := &Set{}
	for row := 1; limit <= 0 || s.Len() < limit; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrFormat, row, err)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid label at row %d: %v", ErrFormat, row, err)
		}
		img := make([]float64, Features)
		for j, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to parse value at row %d, col %d: %v", ErrFormat, row, j+1, err)
			}
			img[j] = v / 255.0
		}
		s.Images = append(s.Images, img)
		s.Labels = append(s.Labels, label)
	}

	if s.Len() == 0 {
		return nil, fmt.Errorf("%w: csv file has no data rows", ErrFormat)
	}
	return s, s.Validate()
}

// Split splits the set into two based on the given ratio (0.0 to 1.0).
// The halves share storage with s.
func (s *Set) Split(ratio float64) (*Set, *Set) {
	if ratio <= 0 {
		return &Set{}, s
	}
	if ratio >= 1 {
		return s, &Set{}
	}

	splitIdx := int(float64(s.Len()) * ratio)
	return &Set{Images: s.Images[:splitIdx], Labels: s.Labels[:splitIdx]},
		&Set{Images: s.Images[splitIdx:], Labels: s.Labels[splitIdx:]}
}
