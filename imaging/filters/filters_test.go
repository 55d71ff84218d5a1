package filters

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxim-io/voxim/imaging"
)

func constantImage(w, h int, v float64) *imaging.Image {
	img := imaging.New(w, h)
	img.Fill(v)
	return img
}

func rampX(w, h int) *imaging.Image {
	img := imaging.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, float64(x))
		}
	}
	return img
}

func TestReflectIndex(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 5, 0},
		{4, 5, 4},
		{-1, 5, 0},
		{-2, 5, 1},
		{5, 5, 4},
		{6, 5, 3},
		{-1, 1, 0},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, reflectIndex(test.i, test.n), "reflect(%d, %d)", test.i, test.n)
	}
}

func TestUniformPreservesConstant(t *testing.T) {
	img := constantImage(6, 5, 0.7)
	out := Uniform(img, 3)
	for _, v := range out.Data() {
		assert.InDelta(t, 0.7, v, 1e-12)
	}
}

func TestUniform1DAveragesAlongAxisOnly(t *testing.T) {
	img := rampX(5, 3)

	// averaging along Y leaves a pure x-ramp unchanged
	outY := Uniform1D(img, 3, AxisY)
	for i, v := range img.Data() {
		assert.InDelta(t, v, outY.Data()[i], 1e-12)
	}

	// along X the interior is still the ramp, only borders are pulled in
	outX := Uniform1D(img, 3, AxisX)
	assert.InDelta(t, 2.0, outX.At(2, 1), 1e-12)
	assert.InDelta(t, (0.0+0.0+1.0)/3, outX.At(0, 1), 1e-12)
}

func TestUniformSizeOneIsIdentity(t *testing.T) {
	img := rampX(4, 4)
	out := Uniform(img, 1)
	assert.Equal(t, img.Data(), out.Data())
}

func TestSobelAxisOnRamp(t *testing.T) {
	img := rampX(7, 7)

	gx := SobelAxis(img, AxisX)
	// interior derivative of a unit ramp has magnitude 1
	assert.InDelta(t, 1.0, math.Abs(gx.At(3, 3)), 1e-12)

	gy := SobelAxis(img, AxisY)
	assert.InDelta(t, 0.0, gy.At(3, 3), 1e-12)
}

func TestSobelMagnitudeIsZeroOnConstant(t *testing.T) {
	out := SobelMagnitude(constantImage(5, 5, 0.3))
	for _, v := range out.Data() {
		assert.InDelta(t, 0, v, 1e-12)
	}
}

func TestGaussianPreservesConstant(t *testing.T) {
	out := Gaussian(constantImage(9, 9, 0.4), 1.5)
	for _, v := range out.Data() {
		assert.InDelta(t, 0.4, v, 1e-9)
	}
}

func TestGaussianReducesNoiseVariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	img := imaging.New(32, 32)
	for i := range img.Data() {
		img.Data()[i] = rng.Float64()
	}

	smoothed := Gaussian(img, 2)

	variance := func(p *imaging.Image) float64 {
		mean := p.Mean()
		var s float64
		for _, v := range p.Data() {
			s += (v - mean) * (v - mean)
		}
		return s / float64(len(p.Data()))
	}

	assert.Less(t, variance(smoothed), variance(img)/2)
}

func TestGaussianNonPositiveSigmaIsIdentity(t *testing.T) {
	img := rampX(4, 4)
	out := Gaussian(img, 0)
	assert.Equal(t, img.Data(), out.Data())
}
