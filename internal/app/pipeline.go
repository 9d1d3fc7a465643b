package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/kagebunshin/internal/capture"
	"github.com/ayusman/kagebunshin/internal/detector"
	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/recorder"
	"github.com/ayusman/kagebunshin/internal/render"
	"github.com/ayusman/kagebunshin/internal/session"
)

// Keys handled by the preview window.
const (
	keyReset  = 'r'
	keyQuit   = 'q'
	keyEscape = 27
)

var badgeStyle = render.TextStyle{
	Color:     color.RGBA{R: 0xff, G: 0x40, B: 0x40, A: 0xff},
	Scale:     0.9,
	Thickness: 2,
}

// runPipeline is the frame loop:
//  1. read a frame from the camera
//  2. detect hands and the person mask
//  3. feed the recorder
//  4. tick and compose the session on the loop goroutine
//  5. publish the frame to the stream and the preview window
//
// It returns nil when ctx ends, the camera runs dry or the user quits.
func (a *App) runPipeline(ctx context.Context) error {
	var window *gocv.Window
	if a.settings.Render.Window {
		window = gocv.NewWindow(a.settings.Render.WindowName)
		defer window.Close()
	}

	var surface *render.MatSurface
	defer func() {
		if surface != nil {
			surface.Close()
		}
	}()

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.resetCh:
			if err := a.loop.Reset(ctx); err != nil {
				return stopErr(err)
			}
			continue
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if errors.Is(err, capture.ErrNoFrames) {
			logging.Info(nil, "camera has no more frames")
			return nil
		}
		if err != nil {
			logging.Warn(logging.Fields{"error": err}, "error reading frame")
			continue
		}

		if surface == nil || !sameSize(surface, frame) {
			if surface != nil {
				surface.Close()
			}
			surface = render.NewMatSurface(frame.Cols(), frame.Rows())
		}

		out, err := a.processFrame(ctx, frame, surface)
		if err != nil {
			frame.Close()
			return stopErr(err)
		}

		if window != nil {
			window.IMShow(*out)
			if quit := a.handleKey(window.WaitKey(1)); quit {
				frame.Close()
				return nil
			}
		}
		frame.Close()
	}
}

// processFrame runs one frame through detection and the session and returns
// the Mat to display. The result is the composited surface, or frame itself
// while the effect is disabled.
func (a *App) processFrame(ctx context.Context, frame *gocv.Mat, surface *render.MatSurface) (*gocv.Mat, error) {
	start := time.Now()
	now := a.clock()

	if !a.IsEnabled() {
		a.publish(*frame)
		return frame, nil
	}

	res := a.detect(frame)
	defer res.Close()

	a.recorder.Capture(res.Right, res.Left, now)
	rec := a.recorder.Poll(now)

	var person image.Image
	if res.Mask != nil {
		cut, err := render.Cutout(*frame, *res.Mask)
		if err != nil {
			logging.Warn(logging.Fields{"error": err}, "failed to cut out person")
		} else {
			defer cut.Close()
			person = cut
		}
	}

	composeStart := time.Now()
	f, err := a.loop.Submit(ctx, session.FrameRequest{
		Now: now,
		Input: session.Input{
			Right:  res.Right,
			Left:   res.Left,
			Width:  frame.Cols(),
			Height: frame.Rows(),
		},
		Surface:    surface,
		Background: &render.MatImage{Mat: *frame},
		Person:     person,
	})
	if err != nil {
		return nil, err
	}
	a.metrics.ObserveStage("compose", time.Since(composeStart))
	a.metrics.SetParticles(f.Particles)

	drawBadge(surface, rec)

	a.publish(*surface.Mat())
	a.metrics.ObserveStage("frame", time.Since(start))
	return surface.Mat(), nil
}

// publish hands the output frame to the stream.
func (a *App) publish(m gocv.Mat) {
	if err := a.frames.Encode(m); err != nil {
		logging.Warn(logging.Fields{"error": err}, "failed to encode stream frame")
	}
}

// detect never fails: a detector error counts as a frame with nothing in it.
func (a *App) detect(frame *gocv.Mat) *detector.Result {
	start := time.Now()
	res, err := a.detector.Detect(frame)
	a.metrics.ObserveStage("detect", time.Since(start))
	if err != nil {
		a.metrics.DetectionError()
		logging.Warn(logging.Fields{"error": err}, "error detecting hands")
		return &detector.Result{}
	}
	if res == nil {
		return &detector.Result{}
	}
	return res
}

// handleKey applies a preview window key press and reports whether to quit.
func (a *App) handleKey(key int) bool {
	switch key {
	case keyReset:
		a.RequestReset()
	case keyQuit, keyEscape:
		logging.Info(nil, "quit requested from preview window")
		return true
	}
	return false
}

// drawBadge writes the recorder countdown or recording badge in the top left corner.
func drawBadge(s render.Surface, st recorder.Status) {
	if st.Badge == "" {
		return
	}
	s.SetText(st.Badge, render.Point{X: 20, Y: 40}, badgeStyle)
}

func sameSize(s *render.MatSurface, m *gocv.Mat) bool {
	w, h := s.Size()
	return w == m.Cols() && h == m.Rows()
}

// stopErr maps a loop shutdown to a clean exit.
func stopErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, session.ErrStopped) {
		return nil
	}
	return err
}
