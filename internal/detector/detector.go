package detector

import "gocv.io/x/gocv"

// Detector defines the interface for landmark and segmentation providers.
type Detector interface {
	// Detect analyzes a video frame and returns the hands and person mask found in it.
	// A hand that is not visible is left nil in the result.
	Detect(frame *gocv.Mat) (*Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Result is the per-frame output of a Detector.
type Result struct {
	Right *HandLandmarks
	Left  *HandLandmarks

	// Mask is a single channel 8-bit foreground mask the size of the frame.
	// Nil when segmentation produced nothing for this frame.
	Mask *gocv.Mat
}

// BothHands reports whether both hands are present.
func (r *Result) BothHands() bool {
	return r != nil && r.Right != nil && r.Left != nil
}

// Close releases the mask held by the result.
func (r *Result) Close() error {
	if r == nil || r.Mask == nil {
		return nil
	}
	err := r.Mask.Close()
	r.Mask = nil
	return err
}

// Config holds configuration options for hand detection and segmentation.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ModelComplexity selects the holistic landmark model (0, 1 or 2).
	ModelComplexity int

	// SegmentationModel selects the selfie segmentation model (0 general, 1 landscape).
	SegmentationModel int

	// ScriptPath overrides the location of the MediaPipe service script.
	ScriptPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:          2,
		MinConfidence:     0.5,
		MinTrackingConf:   0.5,
		ModelComplexity:   1,
		SegmentationModel: 1,
	}
}

// assignHands sorts detected hands into right and left slots by handedness.
// Only the first hand of each side is kept.
func assignHands(hands []HandLandmarks) (right, left *HandLandmarks) {
	for i := range hands {
		h := hands[i]
		switch h.Handedness {
		case "Right":
			if right == nil {
				right = &h
			}
		case "Left":
			if left == nil {
				left = &h
			}
		}
	}
	return right, left
}
