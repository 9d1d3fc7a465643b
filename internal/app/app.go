// Package app wires camera, detection, the jutsu session and every status
// consumer into the running effect.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/kagebunshin/internal/capture"
	"github.com/ayusman/kagebunshin/internal/config"
	"github.com/ayusman/kagebunshin/internal/detector"
	"github.com/ayusman/kagebunshin/internal/gesture"
	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/metrics"
	"github.com/ayusman/kagebunshin/internal/plugin"
	"github.com/ayusman/kagebunshin/internal/recorder"
	"github.com/ayusman/kagebunshin/internal/render"
	"github.com/ayusman/kagebunshin/internal/server"
	"github.com/ayusman/kagebunshin/internal/session"
	"github.com/ayusman/kagebunshin/internal/smoke"
	"github.com/ayusman/kagebunshin/internal/store"
	"github.com/ayusman/kagebunshin/internal/timeline"
	"github.com/ayusman/kagebunshin/internal/training"
	"github.com/ayusman/kagebunshin/internal/tray"
)

// SpriteCacheTTL is how long decoded smoke frames stay cached.
const SpriteCacheTTL = 10 * time.Minute

// Config holds the application dependencies. Settings is required; the other
// fields override what New would otherwise build from Settings.
type Config struct {
	Settings *config.Config
	Store    *store.Store
	Camera   capture.Camera
	Detector detector.Detector
	Loader   smoke.FrameLoader
	// Tray receives events and drives toggle and reset when set.
	Tray  *tray.Tray
	Clock func() time.Time
}

// App is the main application that runs the clone effect.
type App struct {
	settings *config.Config
	store    *store.Store
	camera   capture.Camera
	detector detector.Detector
	clock    func() time.Time

	classifier *gesture.ModelClassifier
	training   *training.Service
	recorder   *recorder.Recorder
	session    *session.Session
	loop       *session.Loop
	frames     *server.FrameBuffer
	hub        *server.Hub
	metrics    *metrics.Metrics
	plugins    *plugin.Manager
	dispatcher *plugin.Dispatcher
	journal    *journal
	tray       *tray.Tray

	enabled bool
	mu      sync.RWMutex
	resetCh chan struct{}
}

// New builds the pipeline from config.
func New(config Config) (*App, error) {
	cfg := config.Settings
	if cfg == nil {
		return nil, errors.New("app: settings are required")
	}

	a := &App{
		settings: cfg,
		store:    config.Store,
		camera:   config.Camera,
		detector: config.Detector,
		clock:    config.Clock,
		tray:     config.Tray,
		enabled:  true,
		resetCh:  make(chan struct{}, 1),
	}
	if a.clock == nil {
		a.clock = time.Now
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(capture.Options{
			DeviceID: cfg.Camera.DeviceID,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
			Mirror:   cfg.Camera.File == "",
			File:     cfg.Camera.File,
		})
	}
	if a.detector == nil {
		a.detector = newDetector(cfg)
	}

	m, err := metrics.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	a.metrics = m

	a.classifier = a.loadClassifier()

	formation, err := cfg.Formation()
	if err != nil {
		return nil, err
	}

	loader := config.Loader
	if loader == nil {
		loader = smoke.NewCachedLoader(smoke.FileLoader{}, SpriteCacheTTL)
	}
	seed := cfg.Smoke.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	pool := smoke.NewPool(cfg.SmokeSettings(), loader, rand.New(rand.NewSource(seed)))

	var saver recorder.Saver
	if a.store != nil {
		saver = a.store.Samples()
	}
	a.recorder = recorder.New(saver, cfg.RecorderSettings())
	a.recorder.OnComplete(func(run recorder.Run) {
		a.metrics.SamplesRecorded(run.Label, run.Samples)
	})

	a.frames = server.NewFrameBuffer(cfg.Render.JPEGQuality)
	a.hub = server.NewHub(cfg.Server.ConfidenceRate)

	a.plugins = plugin.NewManager(cfg.Hooks.Dir)
	if err := a.plugins.Discover(); err != nil {
		logging.Warn(logging.Fields{"dir": cfg.Hooks.Dir, "error": err}, "hook discovery failed")
	}
	a.dispatcher = plugin.NewDispatcher(a.plugins, plugin.NewExecutor(cfg.Hooks.Timeout), plugin.DefaultQueueSize)

	sinks := []session.Sink{a.metrics, a.hub, a.dispatcher}
	if a.store != nil {
		a.journal = newJournal(a.store.Jutsus(), journalQueueSize)
		sinks = append(sinks, a.journal)
	}
	if a.tray != nil {
		sinks = append(sinks, a.tray)
		a.tray.OnToggle(a.SetEnabled)
		a.tray.OnReset(a.RequestReset)
	}

	det := gesture.NewDetector(a.classifier, cfg.Gesture.Threshold)
	a.session = session.New(det, timeline.New(formation), pool, session.Sinks(sinks...))

	compositorOpts := render.DefaultCompositorOptions()
	compositorOpts.Skeleton = cfg.Render.Skeleton
	compositorOpts.Watermark = cfg.Render.Watermark
	a.loop = session.NewLoop(a.session, render.NewCompositor(compositorOpts))

	return a, nil
}

// newDetector tries MediaPipe first and falls back to the mock detector.
func newDetector(cfg *config.Config) detector.Detector {
	if cfg.Detector.Mock {
		logging.Info(nil, "using mock detector")
		return detector.NewMockDetector()
	}
	mp, err := detector.NewMediaPipeDetector(cfg.DetectorSettings())
	if err != nil {
		logging.Warn(logging.Fields{"error": err}, "MediaPipe not available, using mock detector")
		return detector.NewMockDetector()
	}
	logging.Info(nil, "using MediaPipe hand detection and segmentation")
	return mp
}

// loadClassifier prefers an explicit model file, then the active model in the
// store. Without either the classifier stays not ready and the effect never fires.
func (a *App) loadClassifier() *gesture.ModelClassifier {
	cfg := a.settings
	if cfg.Gesture.ModelPath != "" {
		c := gesture.LoadClassifier(cfg.Gesture.ModelPath)
		if a.store != nil {
			a.training = training.NewService(a.store, c, training.Options{
				Train:     cfg.TrainSettings(),
				ModelPath: cfg.Gesture.ModelPath,
			})
		}
		return c
	}

	c := gesture.NewModelClassifier()
	if a.store == nil {
		logging.Warn(nil, "no store and no model file: gesture detection disabled")
		return c
	}

	a.training = training.NewService(a.store, c, training.Options{Train: cfg.TrainSettings()})
	m, err := a.training.Restore()
	switch {
	case errors.Is(err, store.ErrNotFound):
		logging.Warn(nil, "no trained model yet: record samples and train to enable the jutsu")
	case err != nil:
		logging.Error(logging.Fields{"error": err}, "failed to restore active model")
	default:
		logging.Info(logging.Fields{"model": m.ID, "accuracy": m.Accuracy}, "restored active model")
	}
	return c
}

// SetEnabled turns the effect on or off. A disabled app passes frames through.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	logging.Info(logging.Fields{"enabled": enabled}, "effect toggled")
}

// IsEnabled returns whether the effect is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// RequestReset asks the pipeline to reset the session before its next frame.
// It never blocks; repeated requests collapse into one.
func (a *App) RequestReset() {
	select {
	case a.resetCh <- struct{}{}:
	default:
	}
}

// Server builds the HTTP server over this app's components.
func (a *App) Server() *server.Server {
	return server.New(server.Config{
		StaticDir:  a.settings.Server.StaticDir,
		Controller: a.loop,
		Frames:     a.frames,
		Hub:        a.hub,
		Metrics:    a.metrics,
		Store:      a.store,
		Recorder:   a.recorder,
		Training:   a.training,
		Plugins:    a.plugins,
	})
}

// Run opens the camera and runs the pipeline until ctx is cancelled or the
// camera runs out of frames. Every background goroutine has exited on return.
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			logging.Warn(logging.Fields{"error": err}, "error closing camera")
		}
		if err := a.detector.Close(); err != nil {
			logging.Warn(logging.Fields{"error": err}, "error closing detector")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.loop.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		a.dispatcher.Run(gctx)
		return nil
	})
	if a.journal != nil {
		g.Go(func() error {
			a.journal.Run(gctx)
			return nil
		})
	}
	if a.settings.Server.Enabled {
		srv := a.Server()
		g.Go(func() error {
			return srv.Run(gctx, a.settings.Server.Addr)
		})
	}
	g.Go(func() error {
		defer cancel()
		return a.runPipeline(gctx)
	})

	logging.Info(logging.Fields{
		"camera_fps": a.camera.FPS(),
		"hooks":      len(a.plugins.List()),
		"ready":      a.classifier.Ready(),
	}, "pipeline started")

	err := g.Wait()
	logging.Info(logging.Fields{"dropped_hook_events": a.dispatcher.Dropped(), "dropped_ws_messages": a.hub.Dropped()}, "pipeline stopped")
	return err
}

// Loop returns the session loop.
func (a *App) Loop() *session.Loop {
	return a.loop
}

// Frames returns the buffer holding the latest composited frame.
func (a *App) Frames() *server.FrameBuffer {
	return a.frames
}

// Hub returns the websocket event hub.
func (a *App) Hub() *server.Hub {
	return a.hub
}

// Recorder returns the sample recorder.
func (a *App) Recorder() *recorder.Recorder {
	return a.recorder
}

// Classifier returns the live gesture classifier.
func (a *App) Classifier() *gesture.ModelClassifier {
	return a.classifier
}

// PluginManager returns the hook manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.plugins
}

// Metrics returns the application metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}
