package filters

import (
	"errors"
	"math"

	"github.com/voxim-io/voxim/imaging"
	"github.com/voxim-io/voxim/imaging/internal/fourier"
)

// eps is the smallest magnitude a transfer-function coefficient is allowed
// to have before inversion.
var eps = math.Nextafter(1, 2) - 1

// ErrNilImpulseResponse is returned when a filter is constructed without an
// impulse response function.
var ErrNilImpulseResponse = errors.New("impulse response must not be nil")

// ImpulseResponse yields the filter value at a (row, col) offset from the
// filter center.
type ImpulseResponse func(r, c float64) float64

// LPIFilter2D is a two-dimensional linear position-invariant filter. The
// transfer function is cached, so applying the same filter to images of a
// fixed shape pays the setup cost once.
type LPIFilter2D struct {
	impulseResponse ImpulseResponse

	cache  [][]complex128
	cacheH int
	cacheW int
}

// NewLPIFilter2D builds a filter from the given impulse response.
func NewLPIFilter2D(impulseResponse ImpulseResponse) (*LPIFilter2D, error) {
	if impulseResponse == nil {
		return nil, ErrNilImpulseResponse
	}
	return &LPIFilter2D{impulseResponse: impulseResponse}, nil
}

// prepare returns the filter and data transforms, both on the padded
// (2M-1) x (2N-1) grid.
func (f *LPIFilter2D) prepare(data *imaging.Image) (F, G [][]complex128) {
	dh, dw := data.Height(), data.Width()

	// filter dimensions must be uneven
	fh, fw := dh, dw
	if fh%2 == 0 {
		fh++
	}
	if fw%2 == 0 {
		fw++
	}
	oh, ow := 2*dh-1, 2*dw-1

	if f.cache == nil || f.cacheH != oh || f.cacheW != ow {
		impulse := make([][]complex128, oh)
		for y := range impulse {
			impulse[y] = make([]complex128, ow)
		}
		cy := float64(fh-1) / 2
		cx := float64(fw-1) / 2
		for y := 0; y < fh; y++ {
			for x := 0; x < fw; x++ {
				impulse[y][x] = complex(f.impulseResponse(float64(y)-cy, float64(x)-cx), 0)
			}
		}
		f.cache = fourier.FFT2(impulse)
		f.cacheH, f.cacheW = oh, ow
	}

	padded := make([][]complex128, oh)
	for y := range padded {
		padded[y] = make([]complex128, ow)
	}
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			padded[y][x] = complex(data.At(x, y), 0)
		}
	}

	return f.cache, fourier.FFT2(padded)
}

// Apply filters the data, returning the magnitude of the result.
func (f *LPIFilter2D) Apply(data *imaging.Image) *imaging.Image {
	F, G := f.prepare(data)
	product := multiply(F, G)
	return centerMagnitude(fourier.IFFT2(product), data.Width(), data.Height())
}

// FilterForward applies a filter described by its impulse response.
func FilterForward(data *imaging.Image, impulseResponse ImpulseResponse) (*imaging.Image, error) {
	filter, err := NewLPIFilter2D(impulseResponse)
	if err != nil {
		return nil, err
	}
	return filter.Apply(data), nil
}

// FilterInverse applies the filter in reverse, restoring data that was
// previously filtered with the same impulse response. maxGain bounds the
// inverse transfer function so zeros in the forward filter do not blow up;
// a non-positive value defaults to 2.
func FilterInverse(data *imaging.Image, impulseResponse ImpulseResponse, maxGain float64) (*imaging.Image, error) {
	filter, err := NewLPIFilter2D(impulseResponse)
	if err != nil {
		return nil, err
	}
	if maxGain <= 0 {
		maxGain = 2
	}

	F, G := filter.prepare(data)
	inverse := make([][]complex128, len(F))
	for y := range F {
		inverse[y] = make([]complex128, len(F[y]))
		for x, v := range F[y] {
			v = minLimit(v)
			v = 1 / v
			if mag := magnitude(v); mag > maxGain {
				v = v / complex(mag, 0) * complex(maxGain, 0)
			}
			inverse[y][x] = v
		}
	}

	restored := fourier.IFFTShift2(fourier.IFFT2(multiply(G, inverse)))
	return centerMagnitude(restored, data.Width(), data.Height()), nil
}

// Wiener applies minimum mean square error (Wiener) restoration. K is the
// ratio between the noise and signal power spectra.
func Wiener(data *imaging.Image, impulseResponse ImpulseResponse, K float64) (*imaging.Image, error) {
	filter, err := NewLPIFilter2D(impulseResponse)
	if err != nil {
		return nil, err
	}

	F, G := filter.prepare(data)
	restore := make([][]complex128, len(F))
	for y := range F {
		restore[y] = make([]complex128, len(F[y]))
		for x, v := range F[y] {
			v = minLimit(v)
			magSqr := magnitude(v)
			magSqr *= magSqr
			restore[y][x] = 1 / v * complex(magSqr/(magSqr+K), 0)
		}
	}

	restored := fourier.IFFTShift2(fourier.IFFT2(multiply(G, restore)))
	return centerMagnitude(restored, data.Width(), data.Height()), nil
}

func minLimit(v complex128) complex128 {
	mag := magnitude(v)
	if mag >= eps {
		return v
	}
	if mag == 0 {
		return complex(eps, 0)
	}
	return v / complex(mag, 0) * complex(eps, 0)
}

func magnitude(v complex128) float64 {
	return math.Hypot(real(v), imag(v))
}

func multiply(a, b [][]complex128) [][]complex128 {
	out := make([][]complex128, len(a))
	for y := range a {
		out[y] = make([]complex128, len(a[y]))
		for x := range a[y] {
			out[y][x] = a[y][x] * b[y][x]
		}
	}
	return out
}

// centerMagnitude extracts a width x height region from the center of the
// padded result, taking the magnitude of each element.
func centerMagnitude(data [][]complex128, width, height int) *imaging.Image {
	startY := (len(data)-height)/2 + 1
	startX := (len(data[0])-width)/2 + 1
	out := imaging.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.Set(x, y, magnitude(data[startY+y][startX+x]))
		}
	}
	return out
}
