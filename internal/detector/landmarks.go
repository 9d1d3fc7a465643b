// Package detector provides hand landmark and person segmentation types for the jutsu effect.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FeatureSize is the length of a single-hand feature vector (x, y, z per landmark).
const FeatureSize = NumLandmarks * 3

// degenerateScale is the wrist to middle MCP distance below which a hand is treated as collapsed.
const degenerateScale = 1e-9

// FingerChains lists the landmark chains from the wrist out to each finger tip.
var FingerChains = [5][5]int{
	{Wrist, ThumbCMC, ThumbMCP, ThumbIP, ThumbTip},
	{Wrist, IndexMCP, IndexPIP, IndexDIP, IndexTip},
	{Wrist, MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
	{Wrist, RingMCP, RingPIP, RingDIP, RingTip},
	{Wrist, PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
}

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FeatureVector is a wrist-relative, scale-normalized hand pose flattened as x0,y0,z0,x1,...
type FeatureVector []float64

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Scale returns the wrist to middle finger MCP distance used to normalize the hand.
// A collapsed or non-finite distance yields 1 so normalization never divides by zero.
func (h *HandLandmarks) Scale() float64 {
	scale := distance3D(h.Points[Wrist], h.Points[MiddleMCP])
	if scale < degenerateScale || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 1
	}
	return scale
}

// Features converts the hand into a FeatureSize vector with the wrist at the origin
// and the wrist to middle MCP distance scaled to 1.
// Returns false when the hand is absent.
func (h *HandLandmarks) Features() (FeatureVector, bool) {
	if h == nil {
		return nil, false
	}

	wrist := h.Points[Wrist]
	scale := h.Scale()

	out := make(FeatureVector, 0, FeatureSize)
	for i := 0; i < NumLandmarks; i++ {
		p := h.Points[i]
		out = append(out,
			finite((p.X-wrist.X)/scale),
			finite((p.Y-wrist.Y)/scale),
			finite((p.Z-wrist.Z)/scale),
		)
	}

	return out, true
}

// finite maps NaN and infinities to zero.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
