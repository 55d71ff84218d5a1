// Package fourier implements the discrete Fourier transforms used by the
// filter and registration packages. Power-of-two lengths run through an
// iterative radix-2 Cooley-Tukey; everything else goes through Bluestein's
// chirp-z algorithm so arbitrary image extents work.
package fourier

import (
	"math"
	"math/cmplx"
)

// FFT returns the forward discrete Fourier transform of x.
func FFT(x []complex128) []complex128 {
	return transform(x)
}

// IFFT returns the inverse discrete Fourier transform of x, scaled by 1/n.
func IFFT(x []complex128) []complex128 {
	n := len(x)
	if n == 0 {
		return nil
	}
	conj := make([]complex128, n)
	for i, v := range x {
		conj[i] = cmplx.Conj(v)
	}
	out := transform(conj)
	scale := complex(1/float64(n), 0)
	for i, v := range out {
		out[i] = cmplx.Conj(v) * scale
	}
	return out
}

// FFT2 transforms a height x width matrix, rows first then columns.
func FFT2(data [][]complex128) [][]complex128 {
	return transform2(data, FFT)
}

// IFFT2 is the inverse of FFT2.
func IFFT2(data [][]complex128) [][]complex128 {
	return transform2(data, IFFT)
}

// Freq returns the sample frequencies for an n-point transform with the
// given spacing, ordered the way the transform output is.
func Freq(n int, spacing float64) []float64 {
	out := make([]float64, n)
	scale := 1 / (spacing * float64(n))
	half := (n - 1) / 2
	for i := 0; i <= half; i++ {
		out[i] = float64(i) * scale
	}
	for i := half + 1; i < n; i++ {
		out[i] = float64(i-n) * scale
	}
	return out
}

// IFFTShift2 undoes a 2D fftshift, moving the centered zero-frequency
// element back to the origin.
func IFFTShift2(data [][]complex128) [][]complex128 {
	h := len(data)
	if h == 0 {
		return data
	}
	w := len(data[0])
	shiftY := h / 2
	shiftX := w / 2
	out := make([][]complex128, h)
	for y := 0; y < h; y++ {
		out[y] = make([]complex128, w)
		for x := 0; x < w; x++ {
			out[y][x] = data[(y+shiftY)%h][(x+shiftX)%w]
		}
	}
	return out
}

func transform2(data [][]complex128, fn func([]complex128) []complex128) [][]complex128 {
	h := len(data)
	if h == 0 {
		return nil
	}
	w := len(data[0])

	rows := make([][]complex128, h)
	for y := 0; y < h; y++ {
		rows[y] = fn(data[y])
	}

	out := make([][]complex128, h)
	for y := range out {
		out[y] = make([]complex128, w)
	}
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = rows[y][x]
		}
		res := fn(col)
		for y := 0; y < h; y++ {
			out[y][x] = res[y]
		}
	}
	return out
}

func transform(x []complex128) []complex128 {
	n := len(x)
	switch {
	case n == 0:
		return nil
	case n == 1:
		return []complex128{x[0]}
	case n&(n-1) == 0:
		out := make([]complex128, n)
		copy(out, x)
		radix2(out)
		return out
	default:
		return bluestein(x)
	}
}

// radix2 computes an in-place forward FFT for power-of-two lengths.
func radix2(x []complex128) {
	n := len(x)

	// bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		angle := -2 * math.Pi / float64(size)
		wStep := cmplx.Exp(complex(0, angle))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			half := size / 2
			for k := 0; k < half; k++ {
				even := x[start+k]
				odd := x[start+k+half] * w
				x[start+k] = even + odd
				x[start+k+half] = even - odd
				w *= wStep
			}
		}
	}
}

// bluestein computes a forward FFT of arbitrary length as a convolution.
func bluestein(x []complex128) []complex128 {
	n := len(x)
	m := 1
	for m < 2*n-1 {
		m <<= 1
	}

	chirp := make([]complex128, n)
	for k := 0; k < n; k++ {
		// k^2 mod 2n keeps the angle argument small
		phase := -math.Pi * float64((k*k)%(2*n)) / float64(n)
		chirp[k] = cmplx.Exp(complex(0, phase))
	}

	a := make([]complex128, m)
	for k := 0; k < n; k++ {
		a[k] = x[k] * chirp[k]
	}

	b := make([]complex128, m)
	b[0] = cmplx.Conj(chirp[0])
	for k := 1; k < n; k++ {
		b[k] = cmplx.Conj(chirp[k])
		b[m-k] = b[k]
	}

	fa := make([]complex128, m)
	copy(fa, a)
	radix2(fa)
	fb := make([]complex128, m)
	copy(fb, b)
	radix2(fb)
	for i := range fa {
		fa[i] *= fb[i]
	}
	conv := IFFT(fa)

	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		out[k] = conv[k] * chirp[k]
	}
	return out
}
