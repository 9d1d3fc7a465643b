// Package recorder captures labeled two-hand samples after a short countdown.
package recorder

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/kagebunshin/internal/detector"
	"github.com/ayusman/kagebunshin/internal/gesture"
	"github.com/ayusman/kagebunshin/internal/logging"
)

// Default timings.
const (
	DefaultCountdown = 3 * time.Second
	DefaultDuration  = 4 * time.Second
)

// ErrUnknownLabel is returned by Start for a label other than clone_sign or not_sign.
var ErrUnknownLabel = errors.New("unknown label")

// State is the recorder phase.
type State string

const (
	StateIdle      State = "idle"
	StateCountdown State = "countdown"
	StateRecording State = "recording"
)

// Saver persists the vectors of a finished run.
type Saver interface {
	Create(sessionID, label string, vectors [][]float64) error
}

// Options configures the recorder timings.
type Options struct {
	Countdown time.Duration
	Duration  time.Duration
}

// Run describes a finished recording.
type Run struct {
	SessionID string `json:"session_id"`
	Label     string `json:"label"`
	Samples   int    `json:"samples"`
	Cancelled bool   `json:"cancelled"`
	Err       error  `json:"-"`

	vectors [][]float64
}

// Status is the recorder state at a point in time.
type Status struct {
	State     State          `json:"state"`
	Label     string         `json:"label,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Remaining int            `json:"remaining"`
	Badge     string         `json:"badge,omitempty"`
	Captured  int            `json:"captured"`
	Counts    map[string]int `json:"counts"`
}

// Recorder runs countdown then recording sessions. It is polled with the frame
// clock rather than driven by timers. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	opts  Options
	saver Saver

	state     State
	label     string
	sessionID string
	start     time.Time
	buffer    [][]float64
	counts    map[string]int

	onComplete func(Run)
}

// New creates an idle Recorder. A nil saver keeps samples in memory only.
func New(saver Saver, opts Options) *Recorder {
	if opts.Countdown <= 0 {
		opts.Countdown = DefaultCountdown
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	return &Recorder{
		opts:   opts,
		saver:  saver,
		state:  StateIdle,
		counts: map[string]int{gesture.LabelCloneSign: 0, gesture.LabelNotSign: 0},
	}
}

// OnComplete sets a callback run after every finished or cancelled run.
func (r *Recorder) OnComplete(fn func(Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = fn
}

// Start begins a countdown for label, cancelling any running session.
// It returns the new session id.
func (r *Recorder) Start(label string, now time.Time) (string, error) {
	if !gesture.ValidLabel(label) {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}

	r.mu.Lock()
	prev := r.stop(true)
	r.state = StateCountdown
	r.label = label
	r.sessionID = uuid.NewString()
	r.start = now
	r.buffer = nil
	id := r.sessionID
	r.mu.Unlock()

	r.flush(prev)
	logging.Info(logging.Fields{"label": label, "session": id}, "recording countdown started")
	return id, nil
}

// Capture records the two hands if a recording is in progress. Frames with a
// missing hand are ignored.
func (r *Recorder) Capture(right, left *detector.HandLandmarks, now time.Time) bool {
	r.mu.Lock()
	done := r.advance(now)
	captured := false
	if r.state == StateRecording {
		if v, ok := gesture.Extract(right, left); ok {
			r.buffer = append(r.buffer, v)
			r.counts[r.label]++
			captured = true
		}
	}
	r.mu.Unlock()

	r.flush(done)
	return captured
}

// Poll advances the recorder to now and returns its status.
func (r *Recorder) Poll(now time.Time) Status {
	r.mu.Lock()
	done := r.advance(now)
	st := r.status(now)
	r.mu.Unlock()

	r.flush(done)
	return st
}

// Cancel stops any session. Samples captured so far are kept.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	run := r.stop(true)
	r.mu.Unlock()

	r.flush(run)
}

// advance moves through the phases. It returns a finished run to flush, if any.
func (r *Recorder) advance(now time.Time) *Run {
	if r.state == StateCountdown && !now.Before(r.start.Add(r.opts.Countdown)) {
		r.state = StateRecording
		r.start = r.start.Add(r.opts.Countdown)
		logging.Info(logging.Fields{"label": r.label, "session": r.sessionID}, "recording started")
	}
	if r.state == StateRecording && !now.Before(r.start.Add(r.opts.Duration)) {
		return r.stop(false)
	}
	return nil
}

// stop returns the recorder to idle. Only a run that reached recording yields a Run.
func (r *Recorder) stop(cancelled bool) *Run {
	var run *Run
	if r.state == StateRecording {
		run = &Run{
			SessionID: r.sessionID,
			Label:     r.label,
			Samples:   len(r.buffer),
			Cancelled: cancelled,
			vectors:   r.buffer,
		}
	}
	r.state = StateIdle
	r.label = ""
	r.sessionID = ""
	r.buffer = nil
	return run
}

// flush persists a finished run outside the lock and notifies the callback.
func (r *Recorder) flush(run *Run) {
	if run == nil {
		return
	}

	if r.saver != nil && len(run.vectors) > 0 {
		if err := r.saver.Create(run.SessionID, run.Label, run.vectors); err != nil {
			run.Err = fmt.Errorf("save samples: %w", err)
			logging.Error(logging.Fields{"session": run.SessionID, "error": err.Error()}, "failed to save samples")
		}
	}
	run.vectors = nil

	logging.Info(logging.Fields{
		"label":     run.Label,
		"session":   run.SessionID,
		"samples":   run.Samples,
		"cancelled": run.Cancelled,
	}, "recording finished")

	r.mu.Lock()
	fn := r.onComplete
	r.mu.Unlock()
	if fn != nil {
		fn(*run)
	}
}

func (r *Recorder) status(now time.Time) Status {
	st := Status{
		State:     r.state,
		Label:     r.label,
		SessionID: r.sessionID,
		Captured:  len(r.buffer),
		Counts:    make(map[string]int, len(r.counts)),
	}
	for k, v := range r.counts {
		st.Counts[k] = v
	}

	switch r.state {
	case StateCountdown:
		st.Remaining = ceilSeconds(r.start.Add(r.opts.Countdown).Sub(now))
		st.Badge = fmt.Sprintf("GET READY... %d", st.Remaining)
	case StateRecording:
		st.Remaining = ceilSeconds(r.start.Add(r.opts.Duration).Sub(now))
		st.Badge = fmt.Sprintf("REC %ds", st.Remaining)
	}
	return st
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
