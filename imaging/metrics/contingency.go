package metrics

import (
	"github.com/voxim-io/voxim/imaging"
)

// LabelPair is a key in a contingency table: a label in the reference
// segmentation paired with a label in the test segmentation.
type LabelPair struct {
	TrueLabel int
	TestLabel int
}

// ContingencyOptions controls ContingencyTable.
type ContingencyOptions struct {
	// IgnoreLabels lists reference labels whose pixels are not counted.
	IgnoreLabels []int
	// Normalize divides every count by the number of counted pixels.
	Normalize bool
}

// ContingencyTable counts label co-occurrences between two segmentations
// of the same scene. Pixel values are truncated to integer labels. The
// entry for {i, j} is the number of pixels labeled i in imTrue and j in
// imTest.
func ContingencyTable(imTrue, imTest *imaging.Image, opts *ContingencyOptions) (map[LabelPair]float64, error) {
	if err := imaging.CheckSameSize(imTrue, imTest); err != nil {
		return nil, err
	}

	ignore := map[int]bool{}
	normalize := false
	if opts != nil {
		normalize = opts.Normalize
		for _, label := range opts.IgnoreLabels {
			ignore[label] = true
		}
	}

	table := make(map[LabelPair]float64)
	var counted float64
	for i := range imTrue.Data() {
		trueLabel := int(imTrue.Data()[i])
		if ignore[trueLabel] {
			continue
		}
		testLabel := int(imTest.Data()[i])
		table[LabelPair{TrueLabel: trueLabel, TestLabel: testLabel}]++
		counted++
	}

	if normalize && counted > 0 {
		for pair := range table {
			table[pair] /= counted
		}
	}
	return table, nil
}
