package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/kagebunshin/internal/session"
	"github.com/ayusman/kagebunshin/internal/store"
)

type fakeJutsus struct {
	mu      sync.Mutex
	created []store.Jutsu
	actors  map[string]int
	resets  map[string]time.Time
	err     error
}

func newFakeJutsus() *fakeJutsus {
	return &fakeJutsus{actors: map[string]int{}, resets: map[string]time.Time{}}
}

func (f *fakeJutsus) Create(j *store.Jutsu) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *j)
	return f.err
}

func (f *fakeJutsus) AddActor(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actors[id]++
	return f.err
}

func (f *fakeJutsus) MarkReset(id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[id] = at
	return f.err
}

func TestJournal(t *testing.T) {
	repo := newFakeJutsus()
	j := newJournal(repo, 16)

	at := time.Unix(1000, 0)
	j.Publish(session.Event{Type: session.EventConfidence, Confidence: 12})
	j.Publish(session.Event{Type: session.EventTriggered, At: at, JutsuID: "j1", Confidence: 99.9})
	j.Publish(session.Event{Type: session.EventToggle, At: at, JutsuID: "j1"})
	j.Publish(session.Event{Type: session.EventActor, At: at, JutsuID: "j1", Actor: 0})
	j.Publish(session.Event{Type: session.EventActor, At: at, JutsuID: "j1", Actor: 1})
	j.Publish(session.Event{Type: session.EventReset, At: at.Add(time.Second), JutsuID: "j1"})
	// Reset of an untriggered session carries no id.
	j.Publish(session.Event{Type: session.EventReset, At: at})

	assert.Len(t, j.queue, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Run(ctx)

	require.Len(t, repo.created, 1)
	assert.Equal(t, "j1", repo.created[0].ID)
	assert.Equal(t, 99.9, repo.created[0].Confidence)
	assert.True(t, repo.created[0].TriggeredAt.Equal(at))
	assert.Equal(t, 2, repo.actors["j1"])
	assert.True(t, repo.resets["j1"].Equal(at.Add(time.Second)))
}

func TestJournal_FullQueueDrops(t *testing.T) {
	repo := newFakeJutsus()
	repo.err = errors.New("disk full")
	j := newJournal(repo, 1)

	j.Publish(session.Event{Type: session.EventTriggered, JutsuID: "a"})
	j.Publish(session.Event{Type: session.EventTriggered, JutsuID: "b"})
	assert.Equal(t, int64(1), j.dropped.Load())

	// Write errors are logged, not fatal.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Run(ctx)
	assert.Len(t, repo.created, 1)
}

func TestStopErr(t *testing.T) {
	assert.NoError(t, stopErr(context.Canceled))
	assert.NoError(t, stopErr(session.ErrStopped))

	boom := errors.New("boom")
	assert.Equal(t, boom, stopErr(boom))
}

func TestRequestResetCollapses(t *testing.T) {
	a := &App{resetCh: make(chan struct{}, 1)}
	a.RequestReset()
	a.RequestReset()
	assert.Len(t, a.resetCh, 1)

	assert.False(t, a.handleKey(keyReset))
	assert.True(t, a.handleKey(keyQuit))
	assert.True(t, a.handleKey(keyEscape))
	assert.False(t, a.handleKey(-1))
}
