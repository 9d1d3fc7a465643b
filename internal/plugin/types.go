// Package plugin runs external hook executables when jutsu events happen.
//
// A plugin lives in its own directory with a plugin.json manifest. The
// executable receives one Request as JSON on stdin and answers with a Response
// on stdout.
package plugin

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/kagebunshin/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ManifestFile is the manifest name looked up in every plugin directory.
const ManifestFile = "plugin.json"

// DefaultEvents are delivered to plugins whose manifest lists none.
var DefaultEvents = []session.EventType{session.EventTriggered, session.EventReset}

// Manifest describes a plugin's metadata and the events it subscribes to.
type Manifest struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Executable  string              `json:"executable"`
	Events      []session.EventType `json:"events,omitempty"`
	Config      jsoniter.RawMessage `json:"config,omitempty"`
}

// Subscribes reports whether the plugin wants events of type t. Confidence
// events are never delivered; they arrive every frame.
func (m Manifest) Subscribes(t session.EventType) bool {
	if t == session.EventConfidence {
		return false
	}
	events := m.Events
	if len(events) == 0 {
		events = DefaultEvents
	}
	for _, e := range events {
		if e == t {
			return true
		}
	}
	return false
}

// Request is sent to a plugin for one event.
type Request struct {
	Event      session.EventType   `json:"event"`
	At         time.Time           `json:"at"`
	JutsuID    string              `json:"jutsu_id,omitempty"`
	Actor      int                 `json:"actor"`
	Particles  int                 `json:"particles,omitempty"`
	Confidence float64             `json:"confidence,omitempty"`
	Config     jsoniter.RawMessage `json:"config,omitempty"`
}

// NewRequest builds the request for e, attaching the plugin's own config.
func NewRequest(p *Plugin, e session.Event) *Request {
	return &Request{
		Event:      e.Type,
		At:         e.At,
		JutsuID:    e.JutsuID,
		Actor:      e.Actor,
		Particles:  e.Particles,
		Confidence: e.Confidence,
		Config:     p.Manifest.Config,
	}
}

// Response is what a plugin writes to stdout.
type Response struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
