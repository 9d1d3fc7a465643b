package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/session"
	"github.com/ayusman/kagebunshin/internal/store"
)

const journalQueueSize = 64

// jutsuWriter is the part of the jutsu repository the journal writes to.
type jutsuWriter interface {
	Create(j *store.Jutsu) error
	AddActor(id string) error
	MarkReset(id string, at time.Time) error
}

// journal records every jutsu run in the store. Publish only queues; Run does
// the writes off the frame loop.
type journal struct {
	repo    jutsuWriter
	queue   chan session.Event
	dropped atomic.Int64
}

func newJournal(repo jutsuWriter, size int) *journal {
	return &journal{
		repo:  repo,
		queue: make(chan session.Event, size),
	}
}

// Publish implements session.Sink.
func (j *journal) Publish(e session.Event) {
	if e.JutsuID == "" {
		return
	}
	switch e.Type {
	case session.EventTriggered, session.EventActor, session.EventReset:
	default:
		return
	}

	select {
	case j.queue <- e:
	default:
		j.dropped.Add(1)
		logging.Warn(logging.Fields{"event": e.Type, "jutsu_id": e.JutsuID}, "jutsu journal full, event dropped")
	}
}

// Run writes queued events until ctx is cancelled, then drains what is left.
func (j *journal) Run(ctx context.Context) {
	for {
		select {
		case e := <-j.queue:
			j.write(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-j.queue:
					j.write(e)
				default:
					return
				}
			}
		}
	}
}

func (j *journal) write(e session.Event) {
	var err error
	switch e.Type {
	case session.EventTriggered:
		err = j.repo.Create(&store.Jutsu{
			ID:          e.JutsuID,
			TriggeredAt: e.At,
			Confidence:  e.Confidence,
		})
	case session.EventActor:
		err = j.repo.AddActor(e.JutsuID)
	case session.EventReset:
		err = j.repo.MarkReset(e.JutsuID, e.At)
	}
	if err != nil {
		logging.Error(logging.Fields{"event": e.Type, "jutsu_id": e.JutsuID, "error": err}, "failed to journal jutsu event")
	}
}
