package dataset

import "math/rand/v2"

// digitPatterns are 5x3 glyphs, one per class, read row by row.
var digitPatterns = [Classes][15]float64{
	{1, 1, 1, 1, 0, 1, 1, 0, 1, 1, 0, 1, 1, 1, 1},
	{0, 1, 0, 1, 1, 0, 0, 1, 0, 0, 1, 0, 1, 1, 1},
	{1, 1, 1, 0, 0, 1, 1, 1, 1, 1, 0, 0, 1, 1, 1},
	{1, 1, 1, 0, 0, 1, 0, 1, 1, 0, 0, 1, 1, 1, 1},
	{1, 0, 1, 1, 0, 1, 1, 1, 1, 0, 0, 1, 0, 0, 1},
	{1, 1, 1, 1, 0, 0, 1, 1, 1, 0, 0, 1, 1, 1, 1},
	{1, 1, 1, 1, 0, 0, 1, 1, 1, 1, 0, 1, 1, 1, 1},
	{1, 1, 1, 0, 0, 1, 0, 1, 0, 0, 1, 0, 0, 1, 0},
	{1, 1, 1, 1, 0, 1, 1, 1, 1, 1, 0, 1, 1, 1, 1},
	{1, 1, 1, 1, 0, 1, 1, 1, 1, 0, 0, 1, 1, 1, 1},
}

// Synthetic generates n 28x28 digit-like images. Sample i has label i%10;
// each glyph cell is scaled to a 5x4 block at a small random offset with
// additive noise, and values are clamped to [0, 1].
func Synthetic(n int, rng *rand.Rand) *Set {
	const (
		glyphRows, glyphCols = 5, 3
		cellH, cellW         = 4, 5
	)
	s := &Set{Images: make([][]float64, n), Labels: make([]int, n)}
	for i := 0; i < n; i++ {
		digit := i % Classes
		img := make([]float64, Features)
		offY := 2 + rng.IntN(Rows-glyphRows*cellH-3)
		offX := 4 + rng.IntN(Cols-glyphCols*cellW-7)

		for gy := 0; gy < glyphRows; gy++ {
			for gx := 0; gx < glyphCols; gx++ {
				if digitPatterns[digit][gy*glyphCols+gx] == 0 {
					continue
				}
				for sy := 0; sy < cellH; sy++ {
					for sx := 0; sx < cellW; sx++ {
						y := offY + gy*cellH + sy
						x := offX + gx*cellW + sx
						img[y*Cols+x] = 1
					}
				}
			}
		}
		for j := range img {
			img[j] = clamp(img[j] + (rng.Float64()-0.5)*0.1)
		}
		s.Images[i] = img
		s.Labels[i] = digit
	}
	return s
}
