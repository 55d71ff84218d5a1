// Package registration estimates geometric transforms between images.
package registration

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/voxim-io/voxim/imaging"
	"github.com/voxim-io/voxim/imaging/internal/fourier"
)

// Normalization selects how the cross-power spectrum is normalized.
type Normalization string

const (
	// NormalizationPhase divides out the spectrum magnitude, keeping only
	// phase. Robust to illumination differences, sensitive to noise.
	NormalizationPhase Normalization = "phase"
	// NormalizationNone uses the unnormalized cross-correlation.
	NormalizationNone Normalization = "none"
)

// ErrUnknownNormalization is returned for a Normalization value other than
// phase or none.
var ErrUnknownNormalization = errors.New(`normalization must be "phase" or "none"`)

// Shift is a translation in pixels, axis order (y, x).
type Shift struct {
	Y float64
	X float64
}

// Options controls PhaseCrossCorrelation.
type Options struct {
	// UpsampleFactor refines the estimate to 1/UpsampleFactor of a pixel
	// by an upsampled DFT around the coarse peak. Values below 2 disable
	// refinement.
	UpsampleFactor int
	// Normalization defaults to NormalizationPhase.
	Normalization Normalization
}

// Result is the estimated registration.
type Result struct {
	// Shift moves the moving image onto the reference image.
	Shift Shift
	// Error is the translation-invariant normalized RMS error between the
	// two images.
	Error float64
	// PhaseDiff is the global phase difference; it is zero when both
	// images are non-negative.
	PhaseDiff float64
}

// PhaseCrossCorrelation estimates the translation between two images of
// the same shape by cross-correlating them in the Fourier domain,
// optionally refining the peak with a matrix-multiply DFT on an upsampled
// neighborhood.
func PhaseCrossCorrelation(reference, moving *imaging.Image, opts *Options) (Result, error) {
	if err := imaging.CheckSameSize(reference, moving); err != nil {
		return Result{}, err
	}

	normalization := NormalizationPhase
	upsample := 1
	if opts != nil {
		if opts.Normalization != "" {
			normalization = opts.Normalization
		}
		if opts.UpsampleFactor > 1 {
			upsample = opts.UpsampleFactor
		}
	}
	if normalization != NormalizationPhase && normalization != NormalizationNone {
		return Result{}, ErrUnknownNormalization
	}

	w, h := reference.Width(), reference.Height()
	srcFreq := fourier.FFT2(toComplex(reference))
	targetFreq := fourier.FFT2(toComplex(moving))

	product := make([][]complex128, h)
	for y := 0; y < h; y++ {
		product[y] = make([]complex128, w)
		for x := 0; x < w; x++ {
			v := srcFreq[y][x] * cmplx.Conj(targetFreq[y][x])
			if normalization == NormalizationPhase {
				floor := 100 * machineEpsilon
				if mag := cmplx.Abs(v); mag > floor {
					v /= complex(mag, 0)
				} else {
					v /= complex(floor, 0)
				}
			}
			product[y][x] = v
		}
	}

	crossCorrelation := fourier.IFFT2(product)
	maxY, maxX := argmaxAbs(crossCorrelation)

	shiftY := wrapShift(maxY, h)
	shiftX := wrapShift(maxX, w)

	var ccMax complex128
	var srcAmp, targetAmp float64

	if upsample == 1 {
		ccMax = crossCorrelation[maxY][maxX]
		srcAmp = sumSquaredMagnitude(srcFreq) / float64(h*w)
		targetAmp = sumSquaredMagnitude(targetFreq) / float64(h*w)
	} else {
		factor := float64(upsample)
		shiftY = math.Round(shiftY*factor) / factor
		shiftX = math.Round(shiftX*factor) / factor

		regionSize := int(math.Ceil(factor * 1.5))
		dftShift := float64(regionSize / 2)

		conjProduct := make([][]complex128, h)
		for y := range product {
			conjProduct[y] = make([]complex128, w)
			for x, v := range product[y] {
				conjProduct[y][x] = cmplx.Conj(v)
			}
		}
		region := upsampledDFT(conjProduct, regionSize, factor,
			dftShift-shiftY*factor, dftShift-shiftX*factor)
		for y := range region {
			for x := range region[y] {
				region[y][x] = cmplx.Conj(region[y][x])
			}
		}

		regionY, regionX := argmaxAbs(region)
		ccMax = region[regionY][regionX]
		shiftY += (float64(regionY) - dftShift) / factor
		shiftX += (float64(regionX) - dftShift) / factor

		srcAmp = sumSquaredMagnitude(srcFreq)
		targetAmp = sumSquaredMagnitude(targetFreq)
	}

	// a single row or column cannot shift along its own axis
	if h == 1 {
		shiftY = 0
	}
	if w == 1 {
		shiftX = 0
	}

	return Result{
		Shift:     Shift{Y: shiftY, X: shiftX},
		Error:     translationError(ccMax, srcAmp, targetAmp),
		PhaseDiff: math.Atan2(imag(ccMax), real(ccMax)),
	}, nil
}

var machineEpsilon = math.Nextafter(1, 2) - 1

func toComplex(img *imaging.Image) [][]complex128 {
	h, w := img.Height(), img.Width()
	out := make([][]complex128, h)
	for y := 0; y < h; y++ {
		out[y] = make([]complex128, w)
		for x := 0; x < w; x++ {
			out[y][x] = complex(img.At(x, y), 0)
		}
	}
	return out
}

func argmaxAbs(data [][]complex128) (int, int) {
	bestY, bestX := 0, 0
	best := -1.0
	for y := range data {
		for x := range data[y] {
			if mag := cmplx.Abs(data[y][x]); mag > best {
				best = mag
				bestY, bestX = y, x
			}
		}
	}
	return bestY, bestX
}

// wrapShift maps a correlation peak index to a signed shift.
func wrapShift(index, size int) float64 {
	if float64(index) > float64(size/2) {
		return float64(index - size)
	}
	return float64(index)
}

func sumSquaredMagnitude(data [][]complex128) float64 {
	var sum float64
	for y := range data {
		for _, v := range data[y] {
			re, im := real(v), imag(v)
			sum += re*re + im*im
		}
	}
	return sum
}

// translationError is the translation invariant normalized RMS error, per
// Fienup 1997.
func translationError(ccMax complex128, srcAmp, targetAmp float64) float64 {
	err := complex(1, 0) - ccMax*cmplx.Conj(ccMax)/complex(srcAmp*targetAmp, 0)
	return math.Sqrt(cmplx.Abs(err))
}

// upsampledDFT evaluates the DFT of data on a regionSize x regionSize grid
// upsampled by factor, offset so the grid is centered on the shift
// estimate. Matrix multiplication avoids zero-padding the full transform.
func upsampledDFT(data [][]complex128, regionSize int, factor, offsetY, offsetX float64) [][]complex128 {
	h := len(data)
	w := len(data[0])

	kernelX := dftKernel(regionSize, w, factor, offsetX)
	temp := make([][]complex128, h)
	for y := 0; y < h; y++ {
		temp[y] = make([]complex128, regionSize)
		for j := 0; j < regionSize; j++ {
			var sum complex128
			for x := 0; x < w; x++ {
				sum += kernelX[j][x] * data[y][x]
			}
			temp[y][j] = sum
		}
	}

	kernelY := dftKernel(regionSize, h, factor, offsetY)
	out := make([][]complex128, regionSize)
	for i := 0; i < regionSize; i++ {
		out[i] = make([]complex128, regionSize)
		for j := 0; j < regionSize; j++ {
			var sum complex128
			for y := 0; y < h; y++ {
				sum += kernelY[i][y] * temp[y][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func dftKernel(regionSize, n int, factor, offset float64) [][]complex128 {
	freqs := fourier.Freq(n, factor)
	kernel := make([][]complex128, regionSize)
	for i := 0; i < regionSize; i++ {
		kernel[i] = make([]complex128, n)
		for k := 0; k < n; k++ {
			angle := -2 * math.Pi * (float64(i) - offset) * freqs[k]
			kernel[i][k] = cmplx.Exp(complex(0, angle))
		}
	}
	return kernel
}
