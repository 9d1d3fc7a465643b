package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	right *HandLandmarks
	left  *HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect. Either may be nil.
func (m *MockDetector) SetHands(right, left *HandLandmarks) {
	m.right = right
	m.left = left
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured hands or error. The mask is always nil.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &Result{Right: m.right, Left: m.left}, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// RightSealLandmarks returns the right hand of the clone seal: index and middle
// fingers extended upward, ring and pinky curled, thumb folded over them.
func RightSealLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.97,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.55, Y: 0.80, Z: 0.0}

	// Thumb folded across the palm
	landmarks.Points[ThumbCMC] = Point3D{X: 0.52, Y: 0.76, Z: -0.01}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}
	landmarks.Points[ThumbIP] = Point3D{X: 0.49, Y: 0.69, Z: -0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.50, Y: 0.67, Z: -0.04}

	// Index extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.52, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.51, Y: 0.57, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.51, Y: 0.50, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.51, Y: 0.44, Z: 0.0}

	// Middle extended upward
	landmarks.Points[MiddleMCP] = Point3D{X: 0.55, Y: 0.67, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.55, Y: 0.55, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.55, Y: 0.47, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.55, Y: 0.40, Z: 0.0}

	// Ring curled
	landmarks.Points[RingMCP] = Point3D{X: 0.58, Y: 0.68, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.58, Y: 0.66, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.57, Y: 0.69, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.56, Y: 0.71, Z: -0.02}

	// Pinky curled
	landmarks.Points[PinkyMCP] = Point3D{X: 0.61, Y: 0.70, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.61, Y: 0.68, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.60, Y: 0.70, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.59, Y: 0.72, Z: -0.02}

	return landmarks
}

// LeftSealLandmarks returns the left hand of the clone seal, mirroring the right
// hand about x = 0.5 and crossing it in front.
func LeftSealLandmarks() HandLandmarks {
	right := RightSealLandmarks()
	landmarks := HandLandmarks{
		Handedness: "Left",
		Score:      0.96,
	}
	for i, p := range right.Points {
		landmarks.Points[i] = Point3D{X: 1 - p.X, Y: p.Y - 0.03, Z: p.Z - 0.01}
	}
	return landmarks
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm gesture.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}
