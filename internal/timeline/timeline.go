// Package timeline sequences clone actors relative to the moment the jutsu was triggered.
package timeline

import (
	"sort"
	"time"
)

// ActorConfig is the immutable placement of one clone.
type ActorConfig struct {
	// X and Y offset the clone from the original, in output pixels.
	X float64 `json:"x"`
	Y float64 `json:"y"`
	// Scale is the render scale of the clone.
	Scale float64 `json:"scale"`
	// Delay is how long after the trigger the clone appears.
	Delay time.Duration `json:"delay"`
}

// Actor is a clone in the running session.
type Actor struct {
	ActorConfig
	// Index is the position of the actor in the formation.
	Index int
	// SmokeSpawned is set once the actor's smoke burst has been emitted.
	SmokeSpawned bool
}

// Engine holds the trigger latch and the actor formation.
// It is not safe for concurrent use; the owning session serializes access.
type Engine struct {
	triggered   bool
	triggeredAt time.Time
	actors      []Actor
}

// New creates an Engine for the given formation. The formation order is preserved.
func New(formation []ActorConfig) *Engine {
	actors := make([]Actor, len(formation))
	for i, cfg := range formation {
		actors[i] = Actor{ActorConfig: cfg, Index: i}
	}
	return &Engine{actors: actors}
}

// Trigger latches the engine at now. Calls while already triggered are no-ops and
// never move the trigger time. Returns true only for the call that latched.
func (e *Engine) Trigger(now time.Time) bool {
	if e.triggered {
		return false
	}
	e.triggered = true
	e.triggeredAt = now
	return true
}

// Triggered reports whether the latch is set.
func (e *Engine) Triggered() bool {
	return e.triggered
}

// TriggeredAt returns the trigger time and whether it is set.
func (e *Engine) TriggeredAt() (time.Time, bool) {
	return e.triggeredAt, e.triggered
}

// Elapsed returns the time since the trigger, or zero when untriggered.
func (e *Engine) Elapsed(now time.Time) time.Duration {
	if !e.triggered {
		return 0
	}
	return now.Sub(e.triggeredAt)
}

// Activate flags and returns, in formation order, every actor whose delay has
// elapsed and whose smoke has not yet been spawned. Each actor is returned at most
// once per session.
func (e *Engine) Activate(now time.Time) []Actor {
	if !e.triggered {
		return nil
	}

	elapsed := now.Sub(e.triggeredAt)

	var activated []Actor
	for i := range e.actors {
		a := &e.actors[i]
		if a.SmokeSpawned || elapsed < a.Delay {
			continue
		}
		a.SmokeSpawned = true
		activated = append(activated, *a)
	}
	return activated
}

// Active returns every actor whose delay has elapsed, sorted by descending delay
// so later clones are drawn first and earlier ones land on top.
func (e *Engine) Active(now time.Time) []Actor {
	if !e.triggered {
		return nil
	}

	elapsed := now.Sub(e.triggeredAt)

	var active []Actor
	for _, a := range e.actors {
		if elapsed >= a.Delay {
			active = append(active, a)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Delay > active[j].Delay
	})
	return active
}

// Done reports whether every actor has been activated.
func (e *Engine) Done() bool {
	if !e.triggered {
		return false
	}
	for _, a := range e.actors {
		if !a.SmokeSpawned {
			return false
		}
	}
	return true
}

// Actors returns a copy of the formation with current flags.
func (e *Engine) Actors() []Actor {
	out := make([]Actor, len(e.actors))
	copy(out, e.actors)
	return out
}

// Reset clears the latch, the trigger time and every actor flag.
func (e *Engine) Reset() {
	e.triggered = false
	e.triggeredAt = time.Time{}
	for i := range e.actors {
		e.actors[i].SmokeSpawned = false
	}
}
