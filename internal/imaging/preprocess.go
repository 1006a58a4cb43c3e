package imaging

// Canonical input size of the network.
const (
	Rows = 28
	Cols = 28
)

// Options control Preprocess.
type Options struct {
	// Rows and Cols override the canonical 28x28 target when > 0.
	Rows, Cols int

	// Invert flips intensities after scaling, for dark-on-light drawings.
	Invert bool
}

func (o Options) size() (int, int) {
	h, w := o.Rows, o.Cols
	if h <= 0 {
		h = Rows
	}
	if w <= 0 {
		w = Cols
	}
	return h, w
}

// Preprocess turns img into a feature vector:
//  1. validate the image;
//  2. detect the intensity range from the maximum value (see Normalized);
//  3. resize to the target size with Catmull-Rom;
//  4. scale into [0, 1], skipping the division for normalised input;
//  5. optionally invert;
//  6. flatten row-major.
//
// img is not modified.
func Preprocess(img *Image, opts Options) ([]float64, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	scale := img.Scale()
	h, w := opts.size()

	resized := img.resize(h, w, scale)
	features := resized.Pix
	if scale != 1 {
		for i := range features {
			features[i] /= scale
		}
	}
	if opts.Invert {
		for i := range features {
			features[i] = 1 - features[i]
		}
	}
	return features, nil
}
