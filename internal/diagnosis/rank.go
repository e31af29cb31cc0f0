package diagnosis

import (
	"fmt"
	"sort"
	"strings"
)

// CropDelimiter separates the crop from the condition in a label.
const CropDelimiter = "___"

// Rank zips scores with labels and orders them by descending score.
// Exact ties keep their input order.
func Rank(scores []float64, labels LabelList) ([]Prediction, error) {
	if len(scores) != len(labels) {
		return nil, fmt.Errorf("%w: %d scores, %d labels", ErrLengthMismatch, len(scores), len(labels))
	}
	if len(scores) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientClasses, len(scores))
	}

	ranked := make([]Prediction, len(scores))
	for i, score := range scores {
		ranked[i] = Prediction{Label: labels[i], Score: score, Index: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked, nil
}

// ExtractCrop returns the crop part of a label. Labels without the delimiter are their own crop.
func ExtractCrop(label string) string {
	crop, _, _ := strings.Cut(label, CropDelimiter)
	return crop
}

// DisplayName turns a raw label into a human readable name by replacing every underscore.
func DisplayName(label string) string {
	return strings.ReplaceAll(label, "_", " ")
}
