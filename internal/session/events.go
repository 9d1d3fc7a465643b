package session

import "time"

// EventType names a status notification.
type EventType string

// Event types published by a Session.
const (
	// EventConfidence carries the classifier probability as a percentage.
	EventConfidence EventType = "confidence"
	// EventTriggered is published once when the gesture latches.
	EventTriggered EventType = "triggered"
	// EventActor is published when a clone appears.
	EventActor EventType = "actor"
	// EventToggle is the one-way status toggle of the first triggered frame.
	EventToggle EventType = "toggle"
	// EventReset is published after a reset.
	EventReset EventType = "reset"
)

// Event is a one-way status notification. Consumers never feed state back.
type Event struct {
	Type EventType `json:"type"`
	At   time.Time `json:"at"`
	// JutsuID identifies the run an event belongs to. It is empty for
	// confidence events and for resets of an untriggered session.
	JutsuID    string  `json:"jutsu_id,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Actor      int     `json:"actor"`
	Particles  int     `json:"particles,omitempty"`
}

// Sink receives session events. Publish is called on the session goroutine and
// must not block.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Publish implements Sink.
func (f SinkFunc) Publish(e Event) {
	f(e)
}

type multiSink []Sink

func (m multiSink) Publish(e Event) {
	for _, s := range m {
		s.Publish(e)
	}
}

// Sinks fans events out to every non-nil sink in order.
func Sinks(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type discard struct{}

func (discard) Publish(Event) {}
