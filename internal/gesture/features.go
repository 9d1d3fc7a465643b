// Package gesture provides the trigger gesture classifier, its trainer and the one-shot detector.
package gesture

import (
	"github.com/ayusman/kagebunshin/internal/detector"
)

// InputSize is the length of a two-hand feature vector: right hand first, then left.
const InputSize = 2 * detector.FeatureSize

// Extract concatenates the normalized right and left hand features.
// Returns false if either hand is absent; no partial vector is ever produced.
func Extract(right, left *detector.HandLandmarks) ([]float64, bool) {
	r, ok := right.Features()
	if !ok {
		return nil, false
	}
	l, ok := left.Features()
	if !ok {
		return nil, false
	}

	out := make([]float64, 0, InputSize)
	out = append(out, r...)
	out = append(out, l...)
	return out, true
}
