// Package session ties gesture detection, the clone timeline and the smoke pool
// together into a per-frame tick.
package session

import (
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/kagebunshin/internal/detector"
	"github.com/ayusman/kagebunshin/internal/gesture"
	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/render"
	"github.com/ayusman/kagebunshin/internal/smoke"
	"github.com/ayusman/kagebunshin/internal/timeline"
)

// Smoke placement relative to a clone.
const (
	// SmokeLift raises the puffs above the clone's center.
	SmokeLift = 40.0
	// SmokeSpread is the horizontal offset of each of the two puffs.
	SmokeSpread = 15.0
)

// Input is what the frame loop knows about the current camera frame.
type Input struct {
	Right  *detector.HandLandmarks
	Left   *detector.HandLandmarks
	Width  int
	Height int
}

// Frame is the state to draw for one tick.
type Frame struct {
	Now       time.Time
	Triggered bool
	// Actors are the active clones in draw order.
	Actors []timeline.Actor
	Right  *detector.HandLandmarks
	Left   *detector.HandLandmarks
	// Spawned is the number of particles spawned by this tick.
	Spawned int
	// Particles is the live particle count after the frame was composed.
	// Only Loop.Submit fills it in.
	Particles int
}

// Status is a point in time snapshot of the session.
type Status struct {
	Ready        bool          `json:"ready"`
	Triggered    bool          `json:"triggered"`
	TriggeredAt  *time.Time    `json:"triggered_at,omitempty"`
	Elapsed      time.Duration `json:"elapsed_ns"`
	Confidence   float64       `json:"confidence"`
	Threshold    float64       `json:"threshold"`
	TotalActors  int           `json:"total_actors"`
	ActiveActors int           `json:"active_actors"`
	Particles    int           `json:"particles"`
	Toggled      bool          `json:"toggled"`
	JutsuID      string        `json:"jutsu_id,omitempty"`
}

// Session owns the state of one jutsu run. It is not safe for concurrent use;
// Loop confines it to a single goroutine.
type Session struct {
	detector *gesture.Detector
	timeline *timeline.Engine
	pool     *smoke.Pool
	sink     Sink

	toggled    bool
	confidence float64
	jutsuID    string
	// now is the time of the tick being evaluated.
	now time.Time
}

// New creates a Session. A nil sink discards events.
func New(d *gesture.Detector, tl *timeline.Engine, pool *smoke.Pool, sink Sink) *Session {
	if sink == nil {
		sink = discard{}
	}
	s := &Session{
		detector: d,
		timeline: tl,
		pool:     pool,
		sink:     sink,
	}
	d.OnConfidence(s.onConfidence)
	return s
}

func (s *Session) onConfidence(percent float64) {
	s.confidence = percent
	s.sink.Publish(Event{Type: EventConfidence, At: s.now, Confidence: percent})
}

// Tick advances the session to now. Detection only runs while untriggered.
func (s *Session) Tick(now time.Time, in Input) Frame {
	s.now = now
	if !s.timeline.Triggered() && s.detector.Ready() {
		if s.detector.Evaluate(in.Right, in.Left) && s.timeline.Trigger(now) {
			s.jutsuID = uuid.NewString()
			logging.Info(logging.Fields{"jutsu_id": s.jutsuID, "confidence": s.confidence}, "jutsu triggered")
			s.sink.Publish(Event{Type: EventTriggered, At: now, JutsuID: s.jutsuID, Confidence: s.confidence})
		}
	}

	spawned := 0
	if s.timeline.Triggered() {
		if !s.toggled {
			s.toggled = true
			s.sink.Publish(Event{Type: EventToggle, At: now, JutsuID: s.jutsuID})
		}

		for _, a := range s.timeline.Activate(now) {
			cx := a.X + float64(in.Width)/2
			cy := a.Y + float64(in.Height)/2 - SmokeLift
			s.pool.Spawn(cx-SmokeSpread, cy, a.Scale, now)
			s.pool.Spawn(cx+SmokeSpread, cy, a.Scale, now)
			spawned += 2

			logging.Debug(logging.Fields{"actor": a.Index, "delay": a.Delay}, "clone activated")
			s.sink.Publish(Event{Type: EventActor, At: now, JutsuID: s.jutsuID, Actor: a.Index, Particles: s.pool.Len()})
		}
	}

	return Frame{
		Now:       now,
		Triggered: s.timeline.Triggered(),
		Actors:    s.timeline.Active(now),
		Right:     in.Right,
		Left:      in.Left,
		Spawned:   spawned,
	}
}

// Compose draws f onto surf. It advances the smoke pool as a side effect.
func (s *Session) Compose(c *render.Compositor, surf render.Surface, f Frame, background, person image.Image) {
	c.Compose(surf, render.Scene{
		Background: background,
		Person:     person,
		Triggered:  f.Triggered,
		Actors:     f.Actors,
		Particles:  s.pool,
		Now:        f.Now,
		Right:      f.Right,
		Left:       f.Left,
	})
}

// Reset clears the latch, every actor flag, the smoke pool and the status toggle.
func (s *Session) Reset(now time.Time) {
	s.timeline.Reset()
	s.pool.Reset()
	s.toggled = false
	s.confidence = 0
	id := s.jutsuID
	s.jutsuID = ""

	logging.Info(logging.Fields{"jutsu_id": id}, "jutsu reset")
	s.sink.Publish(Event{Type: EventReset, At: now, JutsuID: id})
}

// Status returns a snapshot of the session at now.
func (s *Session) Status(now time.Time) Status {
	st := Status{
		Ready:        s.detector.Ready(),
		Triggered:    s.timeline.Triggered(),
		Elapsed:      s.timeline.Elapsed(now),
		Confidence:   s.confidence,
		Threshold:    s.detector.Threshold(),
		TotalActors:  len(s.timeline.Actors()),
		ActiveActors: len(s.timeline.Active(now)),
		Particles:    s.pool.Len(),
		Toggled:      s.toggled,
		JutsuID:      s.jutsuID,
	}
	if ts, ok := s.timeline.TriggeredAt(); ok {
		st.TriggeredAt = &ts
	}
	return st
}

// Timeline exposes the clone timeline for inspection.
func (s *Session) Timeline() *timeline.Engine {
	return s.timeline
}

// Pool exposes the smoke pool for inspection.
func (s *Session) Pool() *smoke.Pool {
	return s.pool
}
