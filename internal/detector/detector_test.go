package detector

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

// sampleHand builds a hand with wrist at (wx, wy, wz) and a deterministic spread of joints.
func sampleHand(wx, wy, wz float64) HandLandmarks {
	hand := HandLandmarks{Handedness: "Right", Score: 0.9}
	for i := 0; i < NumLandmarks; i++ {
		hand.Points[i] = Point3D{
			X: wx + float64(i)*0.011 - float64(i%3)*0.004,
			Y: wy - float64(i)*0.007 + float64(i%4)*0.003,
			Z: wz + float64(i%5)*0.002,
		}
	}
	return hand
}

func TestHandLandmarks_Features(t *testing.T) {
	t.Run("wrist at origin after normalization", func(t *testing.T) {
		hand := sampleHand(100.0, 200.0, 50.0)

		features, ok := hand.Features()
		if !ok {
			t.Fatal("expected features for a present hand")
		}

		for i := 0; i < 3; i++ {
			if math.Abs(features[i]) > epsilon {
				t.Errorf("expected wrist component %d to be 0, got %f", i, features[i])
			}
		}
	})

	t.Run("produces 63 values", func(t *testing.T) {
		hand := sampleHand(0.5, 0.5, 0)

		features, _ := hand.Features()

		if len(features) != FeatureSize || FeatureSize != 63 {
			t.Errorf("expected %d values, got %d", FeatureSize, len(features))
		}
	})

	t.Run("distance from wrist to middle MCP is 1.0", func(t *testing.T) {
		hand := HandLandmarks{}
		hand.Points[Wrist] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Points[MiddleMCP] = Point3D{X: 13.0, Y: 24.0, Z: 5.0} // distance = 5.0

		features, _ := hand.Features()

		mx, my, mz := features[MiddleMCP*3], features[MiddleMCP*3+1], features[MiddleMCP*3+2]
		distance := math.Sqrt(mx*mx + my*my + mz*mz)
		if math.Abs(distance-1.0) > epsilon {
			t.Errorf("expected distance from wrist to middle MCP to be 1.0, got %f", distance)
		}
	})

	t.Run("small hands are scaled up not clamped", func(t *testing.T) {
		hand := HandLandmarks{}
		hand.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}
		hand.Points[MiddleMCP] = Point3D{X: 0.5, Y: 0.7}

		if got := hand.Scale(); math.Abs(got-0.1) > epsilon {
			t.Errorf("expected scale 0.1, got %f", got)
		}
	})

	t.Run("nil hand is unavailable", func(t *testing.T) {
		var hand *HandLandmarks

		features, ok := hand.Features()

		if ok || features != nil {
			t.Error("expected no features for nil input")
		}
	})

	t.Run("zero scale falls back to one", func(t *testing.T) {
		hand := HandLandmarks{}
		hand.Points[Wrist] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Points[MiddleMCP] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Points[IndexTip] = Point3D{X: 12.0, Y: 23.0, Z: 5.0}

		if hand.Scale() != 1 {
			t.Fatalf("expected scale 1, got %f", hand.Scale())
		}

		features, _ := hand.Features()
		for i, v := range features {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("value %d is not finite: %f", i, v)
			}
		}
		if math.Abs(features[IndexTip*3]-2.0) > epsilon || math.Abs(features[IndexTip*3+1]-3.0) > epsilon {
			t.Errorf("expected translated-only index tip (2,3), got (%f,%f)", features[IndexTip*3], features[IndexTip*3+1])
		}
	})

	t.Run("non-finite coordinates never leak", func(t *testing.T) {
		hand := sampleHand(0.5, 0.5, 0)
		hand.Points[PinkyTip].X = math.Inf(1)

		features, _ := hand.Features()
		for i, v := range features {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("value %d is not finite: %f", i, v)
			}
		}
	})
}

func TestHandLandmarks_FeaturesInvariance(t *testing.T) {
	base := sampleHand(0.4, 0.6, -0.02)
	want, _ := base.Features()

	t.Run("translation", func(t *testing.T) {
		offsets := []Point3D{{X: 0.3, Y: -0.2, Z: 0.1}, {X: -5, Y: 7, Z: 2}, {X: 1e-3}}
		for _, off := range offsets {
			moved := base
			for i := range moved.Points {
				moved.Points[i].X += off.X
				moved.Points[i].Y += off.Y
				moved.Points[i].Z += off.Z
			}

			got, _ := moved.Features()
			for i := range want {
				if math.Abs(got[i]-want[i]) > 1e-6 {
					t.Fatalf("offset %+v: value %d differs: %f vs %f", off, i, got[i], want[i])
				}
			}
		}
	})

	t.Run("uniform scale about the wrist", func(t *testing.T) {
		wrist := base.Points[Wrist]
		for _, k := range []float64{0.25, 2, 17.5} {
			scaled := base
			for i, p := range base.Points {
				scaled.Points[i] = Point3D{
					X: wrist.X + (p.X-wrist.X)*k,
					Y: wrist.Y + (p.Y-wrist.Y)*k,
					Z: wrist.Z + (p.Z-wrist.Z)*k,
				}
			}

			got, _ := scaled.Features()
			for i := range want {
				if math.Abs(got[i]-want[i]) > 1e-6 {
					t.Fatalf("k=%f: value %d differs: %f vs %f", k, i, got[i], want[i])
				}
			}
		}
	})
}

func TestAssignHands(t *testing.T) {
	right := RightSealLandmarks()
	left := LeftSealLandmarks()
	extra := OpenPalmLandmarks()

	r, l := assignHands([]HandLandmarks{left, right, extra})

	if r == nil || r.Score != right.Score {
		t.Errorf("expected first right hand to be kept, got %+v", r)
	}
	if l == nil || l.Handedness != "Left" {
		t.Errorf("expected left hand, got %+v", l)
	}

	r, l = assignHands(nil)
	if r != nil || l != nil {
		t.Error("expected no hands from empty input")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns no hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		result, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result.BothHands() || result.Right != nil || result.Left != nil {
			t.Errorf("expected no hands, got %+v", result)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		right := RightSealLandmarks()
		left := LeftSealLandmarks()
		mock.SetHands(&right, &left)

		result, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !result.BothHands() {
			t.Error("expected both hands")
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		result, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if result != nil {
			t.Errorf("expected nil result when error is set, got %v", result)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestSealLandmarks(t *testing.T) {
	right := RightSealLandmarks()
	left := LeftSealLandmarks()

	t.Run("handedness", func(t *testing.T) {
		if right.Handedness != "Right" || left.Handedness != "Left" {
			t.Errorf("unexpected handedness %s/%s", right.Handedness, left.Handedness)
		}
	})

	t.Run("index and middle extended", func(t *testing.T) {
		for _, h := range []HandLandmarks{right, left} {
			if h.Points[IndexMCP].Y-h.Points[IndexTip].Y < 0.2 {
				t.Errorf("%s index finger should be extended", h.Handedness)
			}
			if h.Points[MiddleMCP].Y-h.Points[MiddleTip].Y < 0.2 {
				t.Errorf("%s middle finger should be extended", h.Handedness)
			}
		}
	})

	t.Run("ring and pinky curled", func(t *testing.T) {
		for _, h := range []HandLandmarks{right, left} {
			if h.Points[RingMCP].Y-h.Points[RingTip].Y > 0.15 {
				t.Errorf("%s ring finger should be curled", h.Handedness)
			}
			if h.Points[PinkyMCP].Y-h.Points[PinkyTip].Y > 0.15 {
				t.Errorf("%s pinky finger should be curled", h.Handedness)
			}
		}
	})

	t.Run("result Close without mask", func(t *testing.T) {
		r := &Result{Right: &right}
		if err := r.Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
