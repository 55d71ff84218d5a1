// Package filters provides spatial and Fourier-domain filters over
// grayscale images.
package filters

import (
	"math"

	"github.com/voxim-io/voxim/imaging"
)

// Axis selects the direction of a one-dimensional operation.
type Axis int

const (
	// AxisY runs along rows (the vertical direction).
	AxisY Axis = 0
	// AxisX runs along columns (the horizontal direction).
	AxisX Axis = 1
)

// reflectIndex maps an out-of-range index back into [0, n) by reflecting
// about the array edges, repeating the edge sample.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i = ((i % period) + period) % period
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// Uniform1D applies a mean filter of the given size along one axis.
// Borders reflect.
func Uniform1D(img *imaging.Image, size int, axis Axis) *imaging.Image {
	if size <= 1 {
		return img.Clone()
	}

	w, h := img.Width(), img.Height()
	out := imaging.New(w, h)
	lo := -(size / 2)
	norm := 1 / float64(size)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := 0; k < size; k++ {
				if axis == AxisY {
					sum += img.At(x, reflectIndex(y+lo+k, h))
				} else {
					sum += img.At(reflectIndex(x+lo+k, w), y)
				}
			}
			out.Set(x, y, sum*norm)
		}
	}
	return out
}

// Uniform applies a size x size mean filter, implemented separably.
func Uniform(img *imaging.Image, size int) *imaging.Image {
	return Uniform1D(Uniform1D(img, size, AxisY), size, AxisX)
}

// SobelAxis computes the Sobel derivative along one axis: a [1 0 -1]/2
// difference along the axis smoothed by [1 2 1]/4 across it.
func SobelAxis(img *imaging.Image, axis Axis) *imaging.Image {
	smoothed := convolve1D(img, []float64{0.25, 0.5, 0.25}, otherAxis(axis))
	return convolve1D(smoothed, []float64{0.5, 0, -0.5}, axis)
}

// SobelMagnitude computes the gradient magnitude from the per-axis Sobel
// derivatives.
func SobelMagnitude(img *imaging.Image) *imaging.Image {
	gy := SobelAxis(img, AxisY)
	gx := SobelAxis(img, AxisX)
	out := imaging.New(img.Width(), img.Height())
	data := out.Data()
	for i := range data {
		data[i] = math.Hypot(gy.Data()[i], gx.Data()[i])
	}
	return out
}

// Gaussian smooths the image with a Gaussian of the given sigma, with the
// kernel truncated at 4 standard deviations.
func Gaussian(img *imaging.Image, sigma float64) *imaging.Image {
	return GaussianTruncate(img, sigma, 4)
}

// GaussianTruncate smooths with a Gaussian whose kernel radius is
// round(truncate*sigma). Borders reflect. A non-positive sigma returns a
// copy of the input.
func GaussianTruncate(img *imaging.Image, sigma, truncate float64) *imaging.Image {
	if sigma <= 0 {
		return img.Clone()
	}

	radius := int(truncate*sigma + 0.5)
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	return convolve1D(convolve1D(img, kernel, AxisY), kernel, AxisX)
}

func otherAxis(axis Axis) Axis {
	if axis == AxisY {
		return AxisX
	}
	return AxisY
}

// convolve1D correlates the image with a centered odd-length kernel along
// one axis, reflecting at borders.
func convolve1D(img *imaging.Image, kernel []float64, axis Axis) *imaging.Image {
	w, h := img.Width(), img.Height()
	out := imaging.New(w, h)
	radius := len(kernel) / 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k, coef := range kernel {
				offset := k - radius
				if axis == AxisY {
					sum += coef * img.At(x, reflectIndex(y+offset, h))
				} else {
					sum += coef * img.At(reflectIndex(x+offset, w), y)
				}
			}
			out.Set(x, y, sum)
		}
	}
	return out
}
