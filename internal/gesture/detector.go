package gesture

import (
	"github.com/ayusman/kagebunshin/internal/detector"
	"github.com/ayusman/kagebunshin/internal/logging"
)

// DefaultThreshold is the probability the classifier must exceed to trigger.
// It is deliberately near certain so casual hand movement does not fire the effect.
const DefaultThreshold = 0.999

// ConfidenceFunc receives the classifier probability as a percentage.
type ConfidenceFunc func(percent float64)

// Detector turns a pair of hand poses into a trigger decision.
type Detector struct {
	classifier   Classifier
	threshold    float64
	onConfidence ConfidenceFunc
}

// NewDetector creates a Detector. A threshold outside (0, 1) falls back to DefaultThreshold.
func NewDetector(c Classifier, threshold float64) *Detector {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Detector{
		classifier: c,
		threshold:  threshold,
	}
}

// OnConfidence sets the callback that receives every computed probability.
func (d *Detector) OnConfidence(fn ConfidenceFunc) {
	d.onConfidence = fn
}

// Threshold returns the trigger threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Ready reports whether the underlying classifier can score.
func (d *Detector) Ready() bool {
	return d.classifier != nil && d.classifier.Ready()
}

// Evaluate reports whether the two hands form the trigger gesture.
// It fails closed: a missing hand, an unready classifier or a prediction error yield false.
func (d *Detector) Evaluate(right, left *detector.HandLandmarks) bool {
	p, ok := d.Score(right, left)
	return ok && p > d.threshold
}

// Score returns the classifier probability for the two hands.
// ok is false when no score could be produced.
func (d *Detector) Score(right, left *detector.HandLandmarks) (p float64, ok bool) {
	if !d.Ready() {
		return 0, false
	}

	features, ok := Extract(right, left)
	if !ok {
		return 0, false
	}

	p, err := d.classifier.Predict(features)
	if err != nil {
		logging.Warn(logging.Fields{"error": err.Error()}, "gesture prediction failed")
		return 0, false
	}

	if d.onConfidence != nil {
		d.onConfidence(p * 100)
	}

	return p, true
}
