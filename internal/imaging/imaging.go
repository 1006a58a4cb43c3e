// Package imaging turns raster images into network feature vectors.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidImage is returned for empty, ragged or out-of-range images.
var ErrInvalidImage = errors.New("imaging: invalid image")

// MaxIntensity is the largest accepted sample value.
const MaxIntensity = 255.0

// Image is a single-channel grid of intensities stored row-major.
// Values are either normalised to [0, 1] or on the 0-255 scale.
type Image struct {
	H, W int
	Pix  []float64
}

// New returns a zero-filled h x w image.
func New(h, w int) *Image {
	return &Image{H: h, W: w, Pix: make([]float64, h*w)}
}

// FromFlat wraps row-major data. The slice is copied.
func FromFlat(h, w int, data []float64) (*Image, error) {
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, h, w)
	}
	if len(data) != h*w {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrInvalidImage, len(data), h, w)
	}
	im := &Image{H: h, W: w, Pix: append([]float64(nil), data...)}
	return im, im.Validate()
}

// FromRows builds an image from a slice of equally long rows.
func FromRows(rows [][]float64) (*Image, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	im := New(len(rows), len(rows[0]))
	for y, row := range rows {
		if len(row) != im.W {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidImage, y, len(row), im.W)
		}
		copy(im.Pix[y*im.W:], row)
	}
	return im, im.Validate()
}

// FromImage converts any image to grayscale intensities on the 0-255 scale.
func FromImage(src image.Image) (*Image, error) {
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	im := New(b.Dy(), b.Dx())
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			g := color.Gray16Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			im.Pix[y*im.W+x] = float64(g.Y) / 257
		}
	}
	return im, nil
}

// FromGray converts an 8-bit grayscale image.
func FromGray(src *image.Gray) (*Image, error) {
	return FromImage(src)
}

// At returns the intensity at row y, column x.
func (im *Image) At(y, x int) float64 {
	return im.Pix[y*im.W+x]
}

// Set stores v at row y, column x.
func (im *Image) Set(y, x int, v float64) {
	im.Pix[y*im.W+x] = v
}

// Validate checks dimensions and that every value is finite and within
// [0, MaxIntensity].
func (im *Image) Validate() error {
	if im == nil || im.H <= 0 || im.W <= 0 {
		return fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	if len(im.Pix) != im.H*im.W {
		return fmt.Errorf("%w: %d values for %dx%d", ErrInvalidImage, len(im.Pix), im.H, im.W)
	}
	for i, v := range im.Pix {
		if math.IsNaN(v) || v < 0 || v > MaxIntensity {
			return fmt.Errorf("%w: value %v at (%d,%d)", ErrInvalidImage, v, i/im.W, i%im.W)
		}
	}
	return nil
}

// Max returns the largest intensity.
func (im *Image) Max() float64 {
	return floats.Max(im.Pix)
}

// Normalized reports whether the image already lies in [0, 1]. This only
// looks at the maximum, so a very dark 0-255 image is also reported as
// normalised.
func (im *Image) Normalized() bool {
	return im.Max() <= 1
}

// Scale returns the intensity of full white: 1 for normalised images and
// 255 otherwise.
func (im *Image) Scale() float64 {
	if im.Normalized() {
		return 1
	}
	return MaxIntensity
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	return &Image{H: im.H, W: im.W, Pix: append([]float64(nil), im.Pix...)}
}

// Invert returns scale - v for every pixel, turning dark strokes on a
// light background into light strokes on a dark one.
func (im *Image) Invert() *Image {
	return im.invert(im.Scale())
}

func (im *Image) invert(scale float64) *Image {
	out := im.Clone()
	for i, v := range out.Pix {
		out.Pix[i] = scale - v
	}
	return out
}

// Resize returns the image resampled to h x w with a Catmull-Rom filter,
// keeping the receiver's intensity scale.
func (im *Image) Resize(h, w int) *Image {
	return im.resize(h, w, im.Scale())
}

func (im *Image) resize(h, w int, scale float64) *Image {
	if h == im.H && w == im.W {
		return im.Clone()
	}
	src := im.gray16(scale)
	dst := image.NewGray16(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := New(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*w+x] = float64(dst.Gray16At(x, y).Y) / math.MaxUint16 * scale
		}
	}
	return out
}

// gray16 maps [0, scale] onto the full 16-bit range.
func (im *Image) gray16(scale float64) *image.Gray16 {
	g := image.NewGray16(image.Rect(0, 0, im.W, im.H))
	k := math.MaxUint16 / scale
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			v := math.Round(im.Pix[y*im.W+x] * k)
			if v > math.MaxUint16 {
				v = math.MaxUint16
			}
			g.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}
	return g
}

// Image renders the intensities as an 8-bit grayscale image.
func (im *Image) Image() *image.Gray {
	scale := im.Scale()
	g := image.NewGray(image.Rect(0, 0, im.W, im.H))
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			g.SetGray(x, y, color.Gray{Y: uint8(math.Round(im.At(y, x) / scale * 255))})
		}
	}
	return g
}
