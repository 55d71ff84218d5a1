// Package transform provides multi-scale image transforms.
package transform

import (
	"fmt"
	"math"

	"github.com/voxim-io/voxim/imaging"
	"github.com/voxim-io/voxim/imaging/filters"
)

// InvalidScaleError reports a pyramid scale factor of at most 1.
type InvalidScaleError struct {
	Scale float64
}

func (e *InvalidScaleError) Error() string {
	return fmt.Sprintf("scale factor must be greater than 1, got %g", e.Scale)
}

// defaultSigma is the smoothing width automatically derived from the scale
// factor; it covers more than 99% of the Gaussian distribution.
func defaultSigma(scale float64) float64 {
	return 2 * scale / 6
}

// PyramidReduce smooths and then downsamples an image. A non-positive
// sigma derives the smoothing width from the scale factor.
func PyramidReduce(img *imaging.Image, downscale, sigma float64) (*imaging.Image, error) {
	if downscale <= 1 {
		return nil, &InvalidScaleError{Scale: downscale}
	}
	if sigma <= 0 {
		sigma = defaultSigma(downscale)
	}

	outW := int(math.Ceil(float64(img.Width()) / downscale))
	outH := int(math.Ceil(float64(img.Height()) / downscale))
	smoothed := filters.Gaussian(img, sigma)
	return resize(smoothed, outW, outH), nil
}

// PyramidExpand upsamples and then smooths an image. A non-positive sigma
// derives the smoothing width from the scale factor.
func PyramidExpand(img *imaging.Image, upscale, sigma float64) (*imaging.Image, error) {
	if upscale <= 1 {
		return nil, &InvalidScaleError{Scale: upscale}
	}
	if sigma <= 0 {
		sigma = defaultSigma(upscale)
	}

	outW := int(math.Ceil(float64(img.Width()) * upscale))
	outH := int(math.Ceil(float64(img.Height()) * upscale))
	resized := resize(img, outW, outH)
	return filters.Gaussian(resized, sigma), nil
}

// maxLayers bounds the number of reductions possible before the largest
// dimension collapses to a single pixel.
func maxLayers(img *imaging.Image, downscale float64) int {
	maxDim := float64(img.Width())
	if float64(img.Height()) > maxDim {
		maxDim = float64(img.Height())
	}
	return int(math.Ceil(math.Log(maxDim) / math.Log(downscale)))
}

// PyramidGaussian builds a Gaussian pyramid: the original image followed
// by successive reductions. maxLayer bounds the number of reduced layers;
// a negative value keeps reducing until the image stops shrinking.
func PyramidGaussian(img *imaging.Image, maxLayer int, downscale, sigma float64) ([]*imaging.Image, error) {
	if downscale <= 1 {
		return nil, &InvalidScaleError{Scale: downscale}
	}
	if maxLayer < 0 || maxLayer > maxLayers(img, downscale) {
		maxLayer = maxLayers(img, downscale)
	}

	layers := []*imaging.Image{img.Clone()}
	current := img
	for layer := 0; layer < maxLayer; layer++ {
		reduced, err := PyramidReduce(current, downscale, sigma)
		if err != nil {
			return nil, err
		}
		if imaging.SameSize(reduced, current) {
			break
		}
		layers = append(layers, reduced)
		current = reduced
	}
	return layers, nil
}

// PyramidLaplacian builds a Laplacian pyramid: each layer is the
// difference between an image and its smoothed version, at successively
// smaller scales.
func PyramidLaplacian(img *imaging.Image, maxLayer int, downscale, sigma float64) ([]*imaging.Image, error) {
	if downscale <= 1 {
		return nil, &InvalidScaleError{Scale: downscale}
	}
	if sigma <= 0 {
		sigma = defaultSigma(downscale)
	}
	if maxLayer < 0 || maxLayer > maxLayers(img, downscale) {
		maxLayer = maxLayers(img, downscale)
	}

	smoothed := filters.Gaussian(img, sigma)
	layers := []*imaging.Image{subtract(img, smoothed)}

	for layer := 0; layer < maxLayer; layer++ {
		outW := int(math.Ceil(float64(smoothed.Width()) / downscale))
		outH := int(math.Ceil(float64(smoothed.Height()) / downscale))
		resized := resize(smoothed, outW, outH)
		smoothed = filters.Gaussian(resized, sigma)
		layers = append(layers, subtract(resized, smoothed))
		if outW == 1 && outH == 1 {
			break
		}
	}
	return layers, nil
}

func subtract(a, b *imaging.Image) *imaging.Image {
	out := imaging.New(a.Width(), a.Height())
	for i := range out.Data() {
		out.Data()[i] = a.Data()[i] - b.Data()[i]
	}
	return out
}

// resize scales the image to the given dimensions with bilinear
// interpolation, sampling at pixel centers.
func resize(img *imaging.Image, outW, outH int) *imaging.Image {
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	if outW == img.Width() && outH == img.Height() {
		return img.Clone()
	}

	out := imaging.New(outW, outH)
	scaleX := float64(img.Width()) / float64(outW)
	scaleY := float64(img.Height()) / float64(outH)

	for y := 0; y < outH; y++ {
		srcY := (float64(y)+0.5)*scaleY - 0.5
		y0 := int(math.Floor(srcY))
		fy := srcY - float64(y0)
		y1 := clampIndex(y0+1, img.Height())
		y0 = clampIndex(y0, img.Height())

		for x := 0; x < outW; x++ {
			srcX := (float64(x)+0.5)*scaleX - 0.5
			x0 := int(math.Floor(srcX))
			fx := srcX - float64(x0)
			x1 := clampIndex(x0+1, img.Width())
			x0 = clampIndex(x0, img.Width())

			top := img.At(x0, y0)*(1-fx) + img.At(x1, y0)*fx
			bottom := img.At(x0, y1)*(1-fx) + img.At(x1, y1)*fx
			out.Set(x, y, top*(1-fy)+bottom*fy)
		}
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
