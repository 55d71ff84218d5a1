package metrics

import (
	"fmt"
	"math"

	"github.com/voxim-io/voxim/imaging"
)

// NotBinaryError reports a mask whose pixels are not all 0 or 1.
type NotBinaryError struct {
	Name string
}

func (e *NotBinaryError) Error() string {
	return fmt.Sprintf("%s array is not binary", e.Name)
}

// NegativeValueError reports an intensity image with negative pixels where
// only non-negative values are meaningful.
type NegativeValueError struct {
	Name string
}

func (e *NegativeValueError) Error() string {
	return fmt.Sprintf("%s contains negative values", e.Name)
}

func checkBinary(name string, mask *imaging.Image) error {
	for _, v := range mask.Data() {
		if v != 0 && v != 1 {
			return &NotBinaryError{Name: name}
		}
	}
	return nil
}

func checkNonNegative(name string, img *imaging.Image) error {
	for _, v := range img.Data() {
		if v < 0 {
			return &NegativeValueError{Name: name}
		}
	}
	return nil
}

// checkRoi validates an optional region-of-interest mask against the image
// dimensions.
func checkRoi(img, roi *imaging.Image) error {
	if roi == nil {
		return nil
	}
	if err := imaging.CheckSameSize(img, roi); err != nil {
		return err
	}
	return checkBinary("roi", roi)
}

// PearsonCorrCoeff computes Pearson's correlation coefficient between the
// pixel intensities of two images. An optional binary roi restricts the
// computation to a region of interest.
func PearsonCorrCoeff(img0, img1, roi *imaging.Image) (float64, error) {
	if err := imaging.CheckSameSize(img0, img1); err != nil {
		return 0, err
	}
	if err := checkRoi(img0, roi); err != nil {
		return 0, err
	}

	var sum0, sum1 float64
	var n float64
	forEachRoiPixel(img0, roi, func(i int) {
		sum0 += img0.Data()[i]
		sum1 += img1.Data()[i]
		n++
	})
	if n == 0 {
		return 0, nil
	}
	mean0, mean1 := sum0/n, sum1/n

	var cov, var0, var1 float64
	forEachRoiPixel(img0, roi, func(i int) {
		d0 := img0.Data()[i] - mean0
		d1 := img1.Data()[i] - mean1
		cov += d0 * d1
		var0 += d0 * d0
		var1 += d1 * d1
	})
	if var0 == 0 || var1 == 0 {
		return 0, nil
	}
	return cov / math.Sqrt(var0*var1), nil
}

// MandersColocCoeff computes Manders' colocalization coefficient: the
// fraction of total image intensity that lies inside the binary mask.
// Intensities must be non-negative.
func MandersColocCoeff(img, mask, roi *imaging.Image) (float64, error) {
	if err := imaging.CheckSameSize(img, mask); err != nil {
		return 0, err
	}
	if err := checkBinary("mask", mask); err != nil {
		return 0, err
	}
	if err := checkRoi(img, roi); err != nil {
		return 0, err
	}
	if err := checkNonNegative("image", img); err != nil {
		return 0, err
	}

	var total, inside float64
	forEachRoiPixel(img, roi, func(i int) {
		v := img.Data()[i]
		total += v
		if mask.Data()[i] != 0 {
			inside += v
		}
	})
	if total == 0 {
		return 0, nil
	}
	return inside / total, nil
}

// MandersOverlapCoeff computes Manders' overlap coefficient between two
// non-negative intensity images.
func MandersOverlapCoeff(img0, img1, roi *imaging.Image) (float64, error) {
	if err := imaging.CheckSameSize(img0, img1); err != nil {
		return 0, err
	}
	if err := checkRoi(img0, roi); err != nil {
		return 0, err
	}
	if err := checkNonNegative("first image", img0); err != nil {
		return 0, err
	}
	if err := checkNonNegative("second image", img1); err != nil {
		return 0, err
	}

	var cross, sq0, sq1 float64
	forEachRoiPixel(img0, roi, func(i int) {
		v0 := img0.Data()[i]
		v1 := img1.Data()[i]
		cross += v0 * v1
		sq0 += v0 * v0
		sq1 += v1 * v1
	})
	if sq0 == 0 || sq1 == 0 {
		return 0, nil
	}
	return cross / math.Sqrt(sq0*sq1), nil
}

// IntersectionCoeff computes the fraction of the first mask's area that
// overlaps the second mask.
func IntersectionCoeff(mask0, mask1, roi *imaging.Image) (float64, error) {
	if err := imaging.CheckSameSize(mask0, mask1); err != nil {
		return 0, err
	}
	if err := checkBinary("first mask", mask0); err != nil {
		return 0, err
	}
	if err := checkBinary("second mask", mask1); err != nil {
		return 0, err
	}
	if err := checkRoi(mask0, roi); err != nil {
		return 0, err
	}

	var area, overlap float64
	forEachRoiPixel(mask0, roi, func(i int) {
		if mask0.Data()[i] != 0 {
			area++
			if mask1.Data()[i] != 0 {
				overlap++
			}
		}
	})
	if area == 0 {
		return 0, nil
	}
	return overlap / area, nil
}

func forEachRoiPixel(img, roi *imaging.Image, fn func(i int)) {
	for i := range img.Data() {
		if roi != nil && roi.Data()[i] == 0 {
			continue
		}
		fn(i)
	}
}
