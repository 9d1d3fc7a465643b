package capture

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewCamera_Defaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantFPS int
		want    Options
	}{
		{
			name:    "zero options",
			opts:    Options{},
			wantFPS: DefaultFPS,
			want:    Options{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS},
		},
		{
			name:    "explicit size and rate",
			opts:    Options{DeviceID: 2, Width: 1280, Height: 720, FPS: 12, Mirror: true},
			wantFPS: 12,
			want:    Options{DeviceID: 2, Width: 1280, Height: 720, FPS: 12, Mirror: true},
		},
		{
			name:    "negative values fall back",
			opts:    Options{Width: -1, Height: -1, FPS: -30},
			wantFPS: DefaultFPS,
			want:    Options{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.opts).(*cameraImpl)

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
			if cam.opts != tt.want {
				t.Errorf("options = %+v, want %+v", cam.opts, tt.want)
			}
			if cam.IsOpen() {
				t.Error("camera should not be open before Open()")
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(Options{})

	cam.SetFPS(10)
	if got := cam.FPS(); got != 10 {
		t.Errorf("FPS() = %d, want 10", got)
	}

	// Non-positive rates keep the previous value.
	for _, fps := range []int{0, -5} {
		cam.SetFPS(fps)
		if got := cam.FPS(); got != 10 {
			t.Errorf("SetFPS(%d): FPS() = %d, want 10", fps, got)
		}
	}
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(Options{})

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on a closed camera = %v, want nil", err)
	}
}

func TestCamera_MissingVideoFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(Options{File: filepath.Join(t.TempDir(), "missing.mp4")})
	if err := cam.Open(); err == nil {
		cam.Close()
		t.Skip("backend opened a missing file")
	}
	if cam.IsOpen() {
		t.Error("camera should stay closed when the file cannot be opened")
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(Options{Mirror: true})
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned empty mat")
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}
