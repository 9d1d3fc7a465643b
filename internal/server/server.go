// Package server provides the HTTP control surface: status, reset, the
// composited MJPEG stream, the websocket event feed and the training API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/metrics"
	"github.com/ayusman/kagebunshin/internal/plugin"
	"github.com/ayusman/kagebunshin/internal/recorder"
	"github.com/ayusman/kagebunshin/internal/server/api"
	"github.com/ayusman/kagebunshin/internal/session"
	"github.com/ayusman/kagebunshin/internal/store"
	"github.com/ayusman/kagebunshin/internal/training"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultStreamFPS caps the MJPEG stream.
const DefaultStreamFPS = 15

// Controller is the part of the session loop the server drives.
type Controller interface {
	Status(ctx context.Context) (session.Status, error)
	Reset(ctx context.Context) error
}

// Config holds the server dependencies. Nil fields disable their routes.
type Config struct {
	StaticDir  string
	Controller Controller
	Frames     *FrameBuffer
	StreamFPS  int
	Hub        *Hub
	Metrics    *metrics.Metrics
	Store      *store.Store
	Recorder   *recorder.Recorder
	Training   *training.Service
	Plugins    *plugin.Manager
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.StreamFPS == 0 {
		config.StreamFPS = DefaultStreamFPS
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Controller != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/reset", s.handleReset)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames, s.config.StreamFPS))
		s.mux.Handle("/api/snapshot", SnapshotHandler{frames: s.config.Frames})
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/events", s.config.Hub)
	}

	if s.config.Metrics != nil {
		s.config.Metrics.RegisterHandlers(s.mux)
	}

	if s.config.Recorder != nil {
		s.mux.Handle("/api/recorder", api.NewRecorderHandler(s.config.Recorder))
	}

	if s.config.Store != nil {
		samples := api.NewSamplesHandler(s.config.Store)
		s.mux.Handle("/api/samples", samples)
		s.mux.Handle("/api/samples/", samples)
		s.mux.Handle("/api/dataset", samples)

		jutsus := api.NewJutsusHandler(s.config.Store)
		s.mux.Handle("/api/jutsus", jutsus)
		s.mux.Handle("/api/jutsus/", jutsus)

		if s.config.Training != nil {
			models := api.NewModelsHandler(s.config.Store, s.config.Training)
			s.mux.Handle("/api/models", models)
			s.mux.Handle("/api/models/", models)
		}
	}

	if s.config.Plugins != nil {
		s.mux.HandleFunc("/api/plugins", s.handlePlugins)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Warn(logging.Fields{"error": err}, "failed to encode response")
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleStatus handles GET requests to /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, err := s.config.Controller.Status(r.Context())
	if err != nil {
		s.loopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleReset handles POST requests to /api/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.config.Controller.Reset(r.Context()); err != nil {
		s.loopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) loopError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrStopped) {
		http.Error(w, "Session stopped", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

type pluginResponse struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Events      []session.EventType `json:"events"`
}

// handlePlugins handles GET requests to /api/plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	plugins := s.config.Plugins.List()
	out := make([]pluginResponse, 0, len(plugins))
	for _, p := range plugins {
		events := p.Manifest.Events
		if len(events) == 0 {
			events = plugin.DefaultEvents
		}
		out = append(out, pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Events:      events,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plugins": out})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		// Streams end with ctx so Shutdown does not wait on them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info(logging.Fields{"addr": addr}, "http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.config.Hub != nil {
		s.config.Hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
