// Package metrics provides image comparison and segmentation scoring
// metrics.
package metrics

import (
	"errors"
	"fmt"

	"github.com/voxim-io/voxim/imaging"
	"github.com/voxim-io/voxim/imaging/filters"
)

// ErrDataRangeRequired is returned when no data range is supplied; for
// float images the range cannot be guessed from the data type.
var ErrDataRangeRequired = errors.New("data range must be specified")

// WindowSizeError reports a comparison window that does not fit the inputs
// or is not odd.
type WindowSizeError struct {
	WinSize int
	Width   int
	Height  int
}

func (e *WindowSizeError) Error() string {
	if e.WinSize%2 == 0 {
		return fmt.Sprintf("window size must be odd, got %d", e.WinSize)
	}
	return fmt.Sprintf("window size %d exceeds image extent %dx%d",
		e.WinSize, e.Width, e.Height)
}

// SSIMOptions controls StructuralSimilarity. The zero value of each field
// selects the conventional default.
type SSIMOptions struct {
	// WinSize is the side length of the sliding comparison window. It must
	// be odd. Zero selects 7, or the Gaussian window size when
	// GaussianWeights is set.
	WinSize int
	// DataRange is the distance between the minimum and maximum possible
	// pixel value. It must be set.
	DataRange float64
	// K1 and K2 are the algorithm's stabilization constants; zero selects
	// 0.01 and 0.03.
	K1, K2 float64
	// GaussianWeights weights each patch with a normalized Gaussian of
	// width Sigma instead of a uniform window.
	GaussianWeights bool
	// Sigma is the Gaussian width; zero selects 1.5.
	Sigma float64
	// PopulationCovariance normalizes covariances by N rather than N-1,
	// matching Wang et al. 2004.
	PopulationCovariance bool
}

const gaussianTruncate = 3.5

func (o *SSIMOptions) normalized() (SSIMOptions, error) {
	opts := SSIMOptions{}
	if o != nil {
		opts = *o
	}
	if opts.K1 == 0 {
		opts.K1 = 0.01
	}
	if opts.K2 == 0 {
		opts.K2 = 0.03
	}
	if opts.Sigma == 0 {
		opts.Sigma = 1.5
	}
	if opts.K1 < 0 || opts.K2 < 0 || opts.Sigma < 0 {
		return opts, errors.New("K1, K2 and sigma must be positive")
	}
	if opts.WinSize == 0 {
		if opts.GaussianWeights {
			radius := int(gaussianTruncate*opts.Sigma + 0.5)
			opts.WinSize = 2*radius + 1
		} else {
			opts.WinSize = 7
		}
	}
	if opts.DataRange <= 0 {
		return opts, ErrDataRangeRequired
	}
	return opts, nil
}

// StructuralSimilarity computes the mean structural similarity index
// between two images.
func StructuralSimilarity(im1, im2 *imaging.Image, opts *SSIMOptions) (float64, error) {
	mean, _, err := ssim(im1, im2, opts, false)
	return mean, err
}

// StructuralSimilarityFull computes the mean structural similarity index
// and the full per-pixel similarity map.
func StructuralSimilarityFull(im1, im2 *imaging.Image, opts *SSIMOptions) (float64, *imaging.Image, error) {
	return ssim(im1, im2, opts, true)
}

func ssim(im1, im2 *imaging.Image, options *SSIMOptions, full bool) (float64, *imaging.Image, error) {
	if err := imaging.CheckSameSize(im1, im2); err != nil {
		return 0, nil, err
	}
	opts, err := options.normalized()
	if err != nil {
		return 0, nil, err
	}

	w, h := im1.Width(), im1.Height()
	if opts.WinSize%2 == 0 || opts.WinSize > w || opts.WinSize > h {
		return 0, nil, &WindowSizeError{WinSize: opts.WinSize, Width: w, Height: h}
	}

	filter := func(img *imaging.Image) *imaging.Image {
		if opts.GaussianWeights {
			return filters.GaussianTruncate(img, opts.Sigma, gaussianTruncate)
		}
		return filters.Uniform(img, opts.WinSize)
	}

	np := float64(opts.WinSize * opts.WinSize)
	covNorm := 1.0
	if !opts.PopulationCovariance {
		covNorm = np / (np - 1)
	}

	ux := filter(im1)
	uy := filter(im2)
	uxx := filter(multiplyImages(im1, im1))
	uyy := filter(multiplyImages(im2, im2))
	uxy := filter(multiplyImages(im1, im2))

	c1 := (opts.K1 * opts.DataRange) * (opts.K1 * opts.DataRange)
	c2 := (opts.K2 * opts.DataRange) * (opts.K2 * opts.DataRange)

	similarity := imaging.New(w, h)
	for i := range similarity.Data() {
		mx := ux.Data()[i]
		my := uy.Data()[i]
		vx := covNorm * (uxx.Data()[i] - mx*mx)
		vy := covNorm * (uyy.Data()[i] - my*my)
		vxy := covNorm * (uxy.Data()[i] - mx*my)

		a1 := 2*mx*my + c1
		a2 := 2*vxy + c2
		b1 := mx*mx + my*my + c1
		b2 := vx + vy + c2
		similarity.Data()[i] = (a1 * a2) / (b1 * b2)
	}

	// ignore a filter-radius strip around the edges
	pad := (opts.WinSize - 1) / 2
	var sum float64
	var count int
	for y := pad; y < h-pad; y++ {
		for x := pad; x < w-pad; x++ {
			sum += similarity.At(x, y)
			count++
		}
	}
	mean := sum / float64(count)

	if !full {
		return mean, nil, nil
	}
	return mean, similarity, nil
}

func multiplyImages(a, b *imaging.Image) *imaging.Image {
	out := imaging.New(a.Width(), a.Height())
	for i := range out.Data() {
		out.Data()[i] = a.Data()[i] * b.Data()[i]
	}
	return out
}
