// Package imaging provides a float64 grayscale image buffer shared by the
// filter, metric and registration packages.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Image represents a rectangular grayscale pixel buffer. Values are
// float64 and row-major; most operations treat the nominal range as
// [0, 1] but nothing enforces it.
type Image struct {
	width  int
	height int
	data   []float64
}

// SizeMismatchError reports two images whose dimensions differ where they
// were required to match.
type SizeMismatchError struct {
	Width0, Height0 int
	Width1, Height1 int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("images must have the same dimensions: %dx%d vs %dx%d",
		e.Width0, e.Height0, e.Width1, e.Height1)
}

// New creates a new image with the given dimensions, filled with zeros.
func New(width, height int) *Image {
	return &Image{
		width:  width,
		height: height,
		data:   make([]float64, width*height),
	}
}

// Width returns the width of the image.
func (p *Image) Width() int {
	return p.width
}

// Height returns the height of the image.
func (p *Image) Height() int {
	return p.height
}

// Data returns the raw row-major pixel data.
func (p *Image) Data() []float64 {
	return p.data
}

// At returns the value of a single pixel. Out-of-bounds reads return 0.
func (p *Image) At(x, y int) float64 {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return 0
	}
	return p.data[y*p.width+x]
}

// Set sets the value of a single pixel. Out-of-bounds writes are ignored.
func (p *Image) Set(x, y int, v float64) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	p.data[y*p.width+x] = v
}

// Clone returns a deep copy of the image.
func (p *Image) Clone() *Image {
	out := New(p.width, p.height)
	copy(out.data, p.data)
	return out
}

// Fill sets every pixel to v.
func (p *Image) Fill(v float64) {
	for i := range p.data {
		p.data[i] = v
	}
}

// SameSize reports whether both images have identical dimensions.
func SameSize(a, b *Image) bool {
	return a.width == b.width && a.height == b.height
}

// CheckSameSize returns a SizeMismatchError when the dimensions differ.
func CheckSameSize(a, b *Image) error {
	if !SameSize(a, b) {
		return &SizeMismatchError{
			Width0: a.width, Height0: a.height,
			Width1: b.width, Height1: b.height,
		}
	}
	return nil
}

// MinMax returns the smallest and largest pixel value.
func (p *Image) MinMax() (float64, float64) {
	if len(p.data) == 0 {
		return 0, 0
	}
	min, max := p.data[0], p.data[0]
	for _, v := range p.data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Sum returns the sum of all pixel values.
func (p *Image) Sum() float64 {
	var s float64
	for _, v := range p.data {
		s += v
	}
	return s
}

// Mean returns the average pixel value, or 0 for an empty image.
func (p *Image) Mean() float64 {
	if len(p.data) == 0 {
		return 0
	}
	return p.Sum() / float64(len(p.data))
}

// ToGray converts the image to an image.Gray, clamping values to [0, 1].
func (p *Image) ToGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, p.width, p.height))
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			v := p.data[y*p.width+x]
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(v * 255))})
		}
	}
	return img
}

// FromGray creates an image from an image.Gray, scaling values to [0, 1].
func FromGray(img *image.Gray) *Image {
	bounds := img.Bounds()
	out := New(bounds.Dx(), bounds.Dy())
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			g := img.GrayAt(bounds.Min.X+x, bounds.Min.Y+y)
			out.data[y*out.width+x] = float64(g.Y) / 255
		}
	}
	return out
}

// FromImage creates a grayscale image from any image.Image using the
// standard luma conversion.
func FromImage(img image.Image) *Image {
	bounds := img.Bounds()
	out := New(bounds.Dx(), bounds.Dy())
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			luma := 0.2125*float64(r) + 0.7154*float64(g) + 0.0721*float64(b)
			out.data[y*out.width+x] = luma / 65535
		}
	}
	return out
}
