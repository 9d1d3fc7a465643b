// Package tray provides the system tray menu: enable toggle, reset, a live
// readout of the gesture confidence and clone count, and quit.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/kagebunshin/internal/session"
)

// Tray represents the system tray application. It implements session.Sink.
type Tray struct {
	onToggle    func(enabled bool)
	onReset     func()
	onDashboard func()
	onQuit      func()
	enabled     bool
	mu          sync.RWMutex

	readout readout
	dirty   chan struct{}

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuConfidence *systray.MenuItem
	menuStatus     *systray.MenuItem
}

// readout is the state shown in the disabled info items.
type readout struct {
	confidence float64
	triggered  bool
	clones     int
	total      int
}

func (r readout) confidenceTitle() string {
	return fmt.Sprintf("Confidence: %.2f%%", r.confidence)
}

func (r readout) statusTitle() string {
	if !r.triggered {
		return "Status: waiting for seal"
	}
	return fmt.Sprintf("Status: %d/%d clones", r.clones, r.total)
}

// New creates a Tray, enabled by default, for a formation of total clones.
func New(total int) *Tray {
	return &Tray{
		enabled: true,
		readout: readout{total: total},
		dirty:   make(chan struct{}, 1),
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnReset sets the callback for the "Reset Jutsu" item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnDashboard sets the callback for the dashboard item. The item is only
// shown when a callback is set before Run.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Kage Bunshin")
	systray.SetTooltip("Shadow clone webcam effect")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem("● Enabled", "Toggle the clone effect")
	menuReset := systray.AddMenuItem("Reset Jutsu", "Dispel the clones and wait for the seal again")
	systray.AddSeparator()

	t.menuConfidence = systray.AddMenuItem(t.readout.confidenceTitle(), "Clone seal confidence")
	t.menuConfidence.Disable()
	t.menuStatus = systray.AddMenuItem(t.readout.statusTitle(), "Jutsu status")
	t.menuStatus.Disable()
	systray.AddSeparator()

	var dashboardCh <-chan struct{}
	if t.onDashboard != nil {
		dashboardCh = systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser").ClickedCh
		systray.AddSeparator()
	}
	t.mu.Unlock()

	menuQuit := systray.AddMenuItem("Quit", "Quit Kage Bunshin")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReset.ClickedCh:
				t.handleCallback(func() func() { return t.onReset })
			case <-dashboardCh:
				t.handleCallback(func() func() { return t.onDashboard })
			case <-t.dirty:
				t.refresh()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if enabled {
		t.menuToggle.SetTitle("● Enabled")
	} else {
		t.menuToggle.SetTitle("○ Disabled")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleCallback(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.handleCallback(func() func() { return t.onQuit })
	systray.Quit()
}

// Publish implements session.Sink. It only records the new readout; the menu
// goroutine applies it.
func (t *Tray) Publish(e session.Event) {
	t.mu.Lock()
	switch e.Type {
	case session.EventConfidence:
		t.readout.confidence = e.Confidence
	case session.EventTriggered:
		t.readout.triggered = true
		t.readout.clones = 0
	case session.EventActor:
		t.readout.clones++
	case session.EventReset:
		t.readout = readout{total: t.readout.total}
	default:
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	select {
	case t.dirty <- struct{}{}:
	default:
	}
}

func (t *Tray) refresh() {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuConfidence != nil {
		t.menuConfidence.SetTitle(t.readout.confidenceTitle())
	}
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(t.readout.statusTitle())
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
