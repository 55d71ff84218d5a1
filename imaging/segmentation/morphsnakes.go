// Package segmentation implements morphological snakes: active contour
// evolution built from binary erosions and dilations instead of PDE
// solvers.
package segmentation

import (
	"math"
	"sort"

	"github.com/voxim-io/voxim/imaging"
	"github.com/voxim-io/voxim/imaging/filters"
)

// The four 3x3 line footprints the curvature operator erodes and dilates
// with: main diagonal, vertical, anti-diagonal, horizontal.
var lineFootprints = [4][][2]int{
	{{-1, -1}, {0, 0}, {1, 1}},
	{{-1, 0}, {0, 0}, {1, 0}},
	{{1, -1}, {0, 0}, {-1, 1}},
	{{0, -1}, {0, 0}, {0, 1}},
}

// fullFootprint is the 3x3 square used by the balloon force.
var fullFootprint = [][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 0}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// CheckerboardLevelSet creates a binary checkerboard level set. A
// non-positive squareSize defaults to 5.
func CheckerboardLevelSet(width, height, squareSize int) *imaging.Image {
	if squareSize <= 0 {
		squareSize = 5
	}
	out := imaging.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if ((y/squareSize)&1)^((x/squareSize)&1) == 1 {
				out.Set(x, y, 1)
			}
		}
	}
	return out
}

// DiskLevelSet creates a binary disk level set centered on the image. A
// non-positive radius defaults to 3/8 of the smaller dimension.
func DiskLevelSet(width, height int, radius float64) *imaging.Image {
	if radius <= 0 {
		smaller := width
		if height < smaller {
			smaller = height
		}
		radius = float64(smaller) * 3.0 / 8.0
	}
	cx := float64(width / 2)
	cy := float64(height / 2)

	out := imaging.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if radius-math.Hypot(float64(y)-cy, float64(x)-cx) > 0 {
				out.Set(x, y, 1)
			}
		}
	}
	return out
}

// InverseGaussianGradient inverts the Gaussian gradient magnitude of the
// image into (0, 1]: flat areas map close to 1, borders close to 0. The
// result is the usual preprocessing input for
// MorphologicalGeodesicActiveContour. alpha controls the steepness of the
// inversion; non-positive values default to 100. A non-positive sigma
// defaults to 5.
func InverseGaussianGradient(img *imaging.Image, alpha, sigma float64) *imaging.Image {
	if alpha <= 0 {
		alpha = 100
	}
	if sigma <= 0 {
		sigma = 5
	}

	smoothed := filters.GaussianTruncate(img, sigma, 4)
	gy, gx := gradient(smoothed)

	out := imaging.New(img.Width(), img.Height())
	for i := range out.Data() {
		norm := math.Hypot(gy.Data()[i], gx.Data()[i])
		out.Data()[i] = 1 / math.Sqrt(1+alpha*norm)
	}
	return out
}

// ChanVeseOptions controls MorphologicalChanVese. Zero values select the
// conventional defaults.
type ChanVeseOptions struct {
	// InitLevelSet seeds the evolution; nil selects a checkerboard.
	InitLevelSet *imaging.Image
	// Smoothing is the number of curvature smoothing passes per
	// iteration; values around 1-4 are reasonable. Zero selects 1.
	Smoothing int
	// Lambda1 and Lambda2 weight the outer and inner region terms. Zero
	// selects 1.
	Lambda1, Lambda2 float64
}

// MorphologicalChanVese segments objects without clear borders by evolving
// a level set so the inside and outside intensities separate (active
// contours without edges, Márquez-Neila et al. 2014).
func MorphologicalChanVese(img *imaging.Image, numIter int, opts *ChanVeseOptions) (*imaging.Image, error) {
	options := ChanVeseOptions{}
	if opts != nil {
		options = *opts
	}
	if options.Smoothing == 0 {
		options.Smoothing = 1
	}
	if options.Lambda1 == 0 {
		options.Lambda1 = 1
	}
	if options.Lambda2 == 0 {
		options.Lambda2 = 1
	}

	init := options.InitLevelSet
	if init == nil {
		init = CheckerboardLevelSet(img.Width(), img.Height(), 5)
	}
	if err := imaging.CheckSameSize(img, init); err != nil {
		return nil, err
	}

	u := binarize(init)
	curvature := &curvatureOperator{}

	for iter := 0; iter < numIter; iter++ {
		var insideSum, insideArea, outsideSum, outsideArea float64
		for i, v := range u.Data() {
			if v > 0 {
				insideSum += img.Data()[i]
				insideArea++
			} else {
				outsideSum += img.Data()[i]
				outsideArea++
			}
		}
		c0 := outsideSum / (outsideArea + 1e-8)
		c1 := insideSum / (insideArea + 1e-8)

		gy, gx := gradient(u)
		for i := range u.Data() {
			absDu := math.Abs(gy.Data()[i]) + math.Abs(gx.Data()[i])
			d1 := img.Data()[i] - c1
			d2 := img.Data()[i] - c0
			aux := absDu * (options.Lambda1*d1*d1 - options.Lambda2*d2*d2)
			if aux < 0 {
				u.Data()[i] = 1
			} else if aux > 0 {
				u.Data()[i] = 0
			}
		}

		for s := 0; s < options.Smoothing; s++ {
			u = curvature.apply(u)
		}
	}
	return u, nil
}

// GeodesicOptions controls MorphologicalGeodesicActiveContour.
type GeodesicOptions struct {
	// InitLevelSet seeds the evolution; nil selects a centered disk.
	InitLevelSet *imaging.Image
	// Smoothing is the number of curvature smoothing passes per
	// iteration. Zero selects 1.
	Smoothing int
	// Threshold marks image values considered borders, where the contour
	// stops. Negative values select the 40th percentile of the image.
	Threshold float64
	// Balloon inflates (positive) or shrinks (negative) the contour in
	// areas where the gradient is too weak to guide it.
	Balloon float64
}

// MorphologicalGeodesicActiveContour segments objects with visible but
// noisy or broken borders. The input is a preprocessed image such as the
// output of InverseGaussianGradient, with values near zero at borders.
func MorphologicalGeodesicActiveContour(gimg *imaging.Image, numIter int, opts *GeodesicOptions) (*imaging.Image, error) {
	options := GeodesicOptions{Threshold: -1}
	if opts != nil {
		options = *opts
	}
	if options.Smoothing == 0 {
		options.Smoothing = 1
	}
	if options.Threshold < 0 {
		options.Threshold = percentile(gimg.Data(), 40)
	}

	init := options.InitLevelSet
	if init == nil {
		init = DiskLevelSet(gimg.Width(), gimg.Height(), 0)
	}
	if err := imaging.CheckSameSize(gimg, init); err != nil {
		return nil, err
	}

	gradY, gradX := gradient(gimg)

	var balloonMask []bool
	if options.Balloon != 0 {
		cutoff := options.Threshold / math.Abs(options.Balloon)
		balloonMask = make([]bool, len(gimg.Data()))
		for i, v := range gimg.Data() {
			balloonMask[i] = v > cutoff
		}
	}

	u := binarize(init)
	curvature := &curvatureOperator{}

	for iter := 0; iter < numIter; iter++ {
		if options.Balloon != 0 {
			var aux *imaging.Image
			if options.Balloon > 0 {
				aux = binaryDilation(u, fullFootprint)
			} else {
				aux = binaryErosion(u, fullFootprint)
			}
			for i, inside := range balloonMask {
				if inside {
					u.Data()[i] = aux.Data()[i]
				}
			}
		}

		gy, gx := gradient(u)
		for i := range u.Data() {
			aux := gradY.Data()[i]*gy.Data()[i] + gradX.Data()[i]*gx.Data()[i]
			if aux > 0 {
				u.Data()[i] = 1
			} else if aux < 0 {
				u.Data()[i] = 0
			}
		}

		for s := 0; s < options.Smoothing; s++ {
			u = curvature.apply(u)
		}
	}
	return u, nil
}

// curvatureOperator smooths a binary level set, alternating between
// sup-of-infs followed by inf-of-sups and the reverse on every call so
// neither bias wins.
type curvatureOperator struct {
	flip bool
}

func (c *curvatureOperator) apply(u *imaging.Image) *imaging.Image {
	defer func() { c.flip = !c.flip }()
	if c.flip {
		return infSup(supInf(u))
	}
	return supInf(infSup(u))
}

// supInf erodes with every line footprint and keeps the pointwise
// maximum.
func supInf(u *imaging.Image) *imaging.Image {
	out := imaging.New(u.Width(), u.Height())
	for _, footprint := range lineFootprints {
		eroded := binaryErosion(u, footprint[:])
		for i, v := range eroded.Data() {
			if v > out.Data()[i] {
				out.Data()[i] = v
			}
		}
	}
	return out
}

// infSup dilates with every line footprint and keeps the pointwise
// minimum.
func infSup(u *imaging.Image) *imaging.Image {
	out := imaging.New(u.Width(), u.Height())
	out.Fill(1)
	for _, footprint := range lineFootprints {
		dilated := binaryDilation(u, footprint[:])
		for i, v := range dilated.Data() {
			if v < out.Data()[i] {
				out.Data()[i] = v
			}
		}
	}
	return out
}

// binaryErosion treats pixels outside the image as background.
func binaryErosion(u *imaging.Image, footprint [][2]int) *imaging.Image {
	w, h := u.Width(), u.Height()
	out := imaging.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			keep := true
			for _, offset := range footprint {
				ny, nx := y+offset[0], x+offset[1]
				if ny < 0 || ny >= h || nx < 0 || nx >= w || u.At(nx, ny) == 0 {
					keep = false
					break
				}
			}
			if keep {
				out.Set(x, y, 1)
			}
		}
	}
	return out
}

func binaryDilation(u *imaging.Image, footprint [][2]int) *imaging.Image {
	w, h := u.Width(), u.Height()
	out := imaging.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for _, offset := range footprint {
				ny, nx := y+offset[0], x+offset[1]
				if ny >= 0 && ny < h && nx >= 0 && nx < w && u.At(nx, ny) != 0 {
					out.Set(x, y, 1)
					break
				}
			}
		}
	}
	return out
}

func binarize(levelSet *imaging.Image) *imaging.Image {
	out := imaging.New(levelSet.Width(), levelSet.Height())
	for i, v := range levelSet.Data() {
		if v > 0 {
			out.Data()[i] = 1
		}
	}
	return out
}

// gradient returns central-difference derivatives along y and x, with
// one-sided differences at the borders.
func gradient(img *imaging.Image) (gy, gx *imaging.Image) {
	w, h := img.Width(), img.Height()
	gy = imaging.New(w, h)
	gx = imaging.New(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case h == 1:
				gy.Set(x, y, 0)
			case y == 0:
				gy.Set(x, y, img.At(x, 1)-img.At(x, 0))
			case y == h-1:
				gy.Set(x, y, img.At(x, h-1)-img.At(x, h-2))
			default:
				gy.Set(x, y, (img.At(x, y+1)-img.At(x, y-1))/2)
			}

			switch {
			case w == 1:
				gx.Set(x, y, 0)
			case x == 0:
				gx.Set(x, y, img.At(1, y)-img.At(0, y))
			case x == w-1:
				gx.Set(x, y, img.At(w-1, y)-img.At(w-2, y))
			default:
				gx.Set(x, y, (img.At(x+1, y)-img.At(x-1, y))/2)
			}
		}
	}
	return gy, gx
}

// percentile computes the q-th percentile with linear interpolation.
func percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
