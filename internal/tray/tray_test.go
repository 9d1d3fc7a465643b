package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/kagebunshin/internal/session"
)

func TestTray_Readout(t *testing.T) {
	tr := New(16)
	assert.True(t, tr.IsEnabled())
	assert.Equal(t, "Confidence: 0.00%", tr.readout.confidenceTitle())
	assert.Equal(t, "Status: waiting for seal", tr.readout.statusTitle())

	tr.Publish(session.Event{Type: session.EventConfidence, Confidence: 99.951})
	tr.Publish(session.Event{Type: session.EventTriggered})
	tr.Publish(session.Event{Type: session.EventActor, Actor: 0})
	tr.Publish(session.Event{Type: session.EventActor, Actor: 1})

	assert.Equal(t, "Confidence: 99.95%", tr.readout.confidenceTitle())
	assert.Equal(t, "Status: 2/16 clones", tr.readout.statusTitle())

	tr.Publish(session.Event{Type: session.EventReset})
	assert.Equal(t, "Status: waiting for seal", tr.readout.statusTitle())
	assert.Equal(t, 16, tr.readout.total)
}

func TestTray_PublishNeverBlocks(t *testing.T) {
	tr := New(16)
	for i := 0; i < 100; i++ {
		tr.Publish(session.Event{Type: session.EventConfidence, Confidence: float64(i)})
	}
	assert.Len(t, tr.dirty, 1)

	// Toggle events carry nothing for the menu.
	<-tr.dirty
	tr.Publish(session.Event{Type: session.EventToggle})
	assert.Len(t, tr.dirty, 0)

	// No menu yet: refresh is a no-op.
	tr.refresh()
}
