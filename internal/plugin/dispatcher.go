package plugin

import (
	"context"
	"sync"

	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/session"
)

// DefaultQueueSize bounds the events waiting for delivery.
const DefaultQueueSize = 64

// Runner executes a single plugin request.
type Runner interface {
	Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error)
}

// Result reports one delivery.
type Result struct {
	Plugin   string
	Event    session.EventType
	Response *Response
	Err      error
}

// Dispatcher delivers session events to subscribed plugins on its own
// goroutine. Publish never blocks; events are dropped when the queue is full.
type Dispatcher struct {
	manager *Manager
	runner  Runner
	queue   chan session.Event

	mu       sync.Mutex
	onResult func(Result)
	dropped  int
}

// NewDispatcher creates a Dispatcher. Call Run to start delivery.
func NewDispatcher(manager *Manager, runner Runner, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		manager: manager,
		runner:  runner,
		queue:   make(chan session.Event, queueSize),
	}
}

// OnResult registers a callback invoked after each delivery.
func (d *Dispatcher) OnResult(fn func(Result)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onResult = fn
}

// Publish implements session.Sink.
func (d *Dispatcher) Publish(e session.Event) {
	if e.Type == session.EventConfidence {
		return
	}
	select {
	case d.queue <- e:
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		logging.Warn(logging.Fields{"event": e.Type}, "plugin queue full, dropping event")
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Run delivers queued events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.queue:
			d.deliver(ctx, e)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e session.Event) {
	for _, p := range d.manager.Subscribers(e.Type) {
		resp, err := d.runner.Execute(ctx, p, NewRequest(p, e))

		fields := logging.Fields{"plugin": p.Manifest.Name, "event": e.Type}
		switch {
		case err != nil:
			fields["error"] = err
			logging.Error(fields, "plugin execution failed")
		case !resp.Success:
			fields["error"] = resp.Error
			logging.Warn(fields, "plugin reported failure")
		default:
			logging.Debug(fields, "plugin executed")
		}

		d.mu.Lock()
		fn := d.onResult
		d.mu.Unlock()
		if fn != nil {
			fn(Result{Plugin: p.Manifest.Name, Event: e.Type, Response: resp, Err: err})
		}
	}
}
