package plugin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ayusman/kagebunshin/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRunner struct {
	mu   sync.Mutex
	reqs map[string][]*Request
	err  error
}

func (r *fakeRunner) Execute(_ context.Context, p *Plugin, req *Request) (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reqs == nil {
		r.reqs = map[string][]*Request{}
	}
	r.reqs[p.Manifest.Name] = append(r.reqs[p.Manifest.Name], req)
	if r.err != nil {
		return nil, r.err
	}
	return &Response{Success: true}, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	writeManifest(t, dir, Manifest{Name: "notify", Executable: "notify"})
	writeManifest(t, dir, Manifest{Name: "counter", Executable: "counter", Events: []session.EventType{session.EventActor}})

	m := NewManager(dir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	return m
}

func TestDispatcher_Deliver(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDispatcher(newTestManager(t), runner, 0)

	results := make(chan Result, 8)
	d.OnResult(func(r Result) { results <- r })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Publish(session.Event{Type: session.EventConfidence, Confidence: 99})
	d.Publish(session.Event{Type: session.EventTriggered, JutsuID: "j1"})
	d.Publish(session.Event{Type: session.EventActor, JutsuID: "j1", Actor: 3})

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r.Err != nil {
				t.Errorf("unexpected error for %s: %v", r.Plugin, r.Err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	cancel()
	<-done

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if n := len(runner.reqs["notify"]); n != 1 {
		t.Fatalf("expected 1 request for notify, got %d", n)
	}
	if got := runner.reqs["notify"][0]; got.Event != session.EventTriggered || got.JutsuID != "j1" {
		t.Errorf("unexpected notify request %+v", got)
	}
	if n := len(runner.reqs["counter"]); n != 1 || runner.reqs["counter"][0].Actor != 3 {
		t.Errorf("expected one actor request for counter, got %+v", runner.reqs["counter"])
	}
}

func TestDispatcher_ReportsErrors(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exec failed")}
	d := NewDispatcher(newTestManager(t), runner, 1)

	var got []Result
	d.OnResult(func(r Result) { got = append(got, r) })

	d.deliver(context.Background(), session.Event{Type: session.EventReset})
	if len(got) != 1 || got[0].Err == nil || got[0].Plugin != "notify" {
		t.Fatalf("expected one failed delivery to notify, got %+v", got)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(newTestManager(t), &fakeRunner{}, 1)

	d.Publish(session.Event{Type: session.EventTriggered})
	d.Publish(session.Event{Type: session.EventReset})
	d.Publish(session.Event{Type: session.EventConfidence})

	if n := d.Dropped(); n != 1 {
		t.Errorf("expected 1 dropped event, got %d", n)
	}
}
