// Package measure computes scalar properties of images.
package measure

import (
	"fmt"
	"math"

	"github.com/voxim-io/voxim/imaging"
	"github.com/voxim-io/voxim/imaging/filters"
)

// DefaultBlurFilterSize is the re-blurring filter width used when none is
// given. It must stay constant to compare results between images.
const DefaultBlurFilterSize = 11

// ImageTooSmallError reports an image without enough interior pixels for
// the requested measurement.
type ImageTooSmallError struct {
	Width  int
	Height int
}

func (e *ImageTooSmallError) Error() string {
	return fmt.Sprintf("image %dx%d is too small", e.Width, e.Height)
}

// BlurEffect computes a no-reference metric for the strength of blur in an
// image following Crete et al. 2007: 0 means no blur, 1 means maximal
// blur. The image is re-blurred with an hSize-tap mean filter per axis and
// the loss of Sobel gradient is measured; the result is the maximum over
// both axes. A non-positive hSize selects DefaultBlurFilterSize.
func BlurEffect(img *imaging.Image, hSize int) (float64, error) {
	perAxis, err := BlurEffectPerAxis(img, hSize)
	if err != nil {
		return 0, err
	}
	return math.Max(perAxis[0], perAxis[1]), nil
}

// BlurEffectPerAxis computes the blur metric separately along the vertical
// and horizontal axis, in that order.
func BlurEffectPerAxis(img *imaging.Image, hSize int) ([2]float64, error) {
	if hSize <= 0 {
		hSize = DefaultBlurFilterSize
	}
	w, h := img.Width(), img.Height()
	if w < 4 || h < 4 {
		return [2]float64{}, &ImageTooSmallError{Width: w, Height: h}
	}

	var out [2]float64
	for i, axis := range []filters.Axis{filters.AxisY, filters.AxisX} {
		blurred := filters.Uniform1D(img, hSize, axis)
		sharpGrad := filters.SobelAxis(img, axis)
		blurGrad := filters.SobelAxis(blurred, axis)

		// the border strip is skipped; the Sobel response there is
		// dominated by reflection
		var m1, m2 float64
		for y := 2; y < h-1; y++ {
			for x := 2; x < w-1; x++ {
				sharp := math.Abs(sharpGrad.At(x, y))
				blur := math.Abs(blurGrad.At(x, y))
				loss := sharp - blur
				if loss < 0 {
					loss = 0
				}
				m1 += sharp
				m2 += loss
			}
		}
		if m1 == 0 {
			out[i] = 0
			continue
		}
		out[i] = math.Abs(m1-m2) / m1
	}
	return out, nil
}
