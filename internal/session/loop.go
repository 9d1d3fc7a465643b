package session

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/ayusman/kagebunshin/internal/render"
)

// ErrStopped is returned when a command is sent to a loop that is not running.
var ErrStopped = errors.New("session loop stopped")

// FrameRequest is one camera frame to tick and draw.
type FrameRequest struct {
	Now   time.Time
	Input Input
	// Surface receives the composited frame. When nil the frame is ticked only.
	Surface    render.Surface
	Background image.Image
	Person     image.Image
}

type command struct {
	run  func(s *Session)
	done chan struct{}
}

// Loop serializes every access to a Session on one goroutine. Frames, resets and
// status reads are units on the same queue, so a reset never interleaves with a frame.
type Loop struct {
	session    *Session
	compositor *render.Compositor
	clock      func() time.Time

	cmds    chan command
	stopped chan struct{}
}

// NewLoop creates a Loop for s. Call Run to start processing.
func NewLoop(s *Session, c *render.Compositor) *Loop {
	return &Loop{
		session:    s,
		compositor: c,
		clock:      time.Now,
		cmds:       make(chan command),
		stopped:    make(chan struct{}),
	}
}

// Run processes commands until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-l.cmds:
			cmd.run(l.session)
			close(cmd.done)
		}
	}
}

// do runs fn on the loop goroutine and waits for it to finish. Cancelling ctx only
// abandons a command that has not been picked up yet; once Run holds it, do waits
// for it to complete so fn never outlives the caller's resources.
func (l *Loop) do(ctx context.Context, fn func(s *Session)) error {
	cmd := command{run: fn, done: make(chan struct{})}

	select {
	case l.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrStopped
	}

	<-cmd.done
	return nil
}

// Submit ticks the session with req and, when req.Surface is set, composes the frame.
func (l *Loop) Submit(ctx context.Context, req FrameRequest) (Frame, error) {
	var f Frame
	err := l.do(ctx, func(s *Session) {
		f = s.Tick(req.Now, req.Input)
		if req.Surface != nil && l.compositor != nil {
			s.Compose(l.compositor, req.Surface, f, req.Background, req.Person)
		}
		f.Particles = s.Pool().Len()
	})
	return f, err
}

// Reset clears the session between frames.
func (l *Loop) Reset(ctx context.Context) error {
	return l.do(ctx, func(s *Session) {
		s.Reset(l.clock())
	})
}

// Status reads a snapshot of the session between frames.
func (l *Loop) Status(ctx context.Context) (Status, error) {
	var st Status
	err := l.do(ctx, func(s *Session) {
		st = s.Status(l.clock())
	})
	return st, err
}
