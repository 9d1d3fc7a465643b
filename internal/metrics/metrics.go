// Package metrics exposes Prometheus collectors for the jutsu pipeline.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/kagebunshin/internal/session"
)

const namespace = "kagebunshin"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	confidence      prometheus.Gauge
	triggers        prometheus.Counter
	resets          prometheus.Counter
	activations     prometheus.Counter
	particles       prometheus.Gauge
	frameDuration   *prometheus.HistogramVec
	detectionErrors prometheus.Counter
	recordedSamples *prometheus.CounterVec
}

// NewMetrics creates and registers every collector.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		confidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gesture_confidence_percent",
			Help:      "Last classifier probability for the trigger gesture, as a percentage",
		}),
		triggers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Number of times the jutsu was triggered",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Number of session resets",
		}),
		activations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clone_activations_total",
			Help:      "Number of clones that appeared",
		}),
		particles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "smoke_particles",
			Help:      "Live smoke particles",
		}),
		frameDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time spent per pipeline stage for one frame",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.02, 0.033, 0.05, 0.1, 0.25},
		}, []string{"stage"}),
		detectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_errors_total",
			Help:      "Frames dropped because landmark detection failed",
		}),
		recordedSamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorded_samples_total",
			Help:      "Samples captured by the recorder",
		}, []string{"label"}),
	}

	collectors := []prometheus.Collector{
		m.confidence, m.triggers, m.resets, m.activations, m.particles,
		m.frameDuration, m.detectionErrors, m.recordedSamples,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RegisterHandlers registers the metrics endpoint with mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", m.Handler())
}

// Publish implements session.Sink.
func (m *Metrics) Publish(e session.Event) {
	switch e.Type {
	case session.EventConfidence:
		m.confidence.Set(e.Confidence)
	case session.EventTriggered:
		m.triggers.Inc()
	case session.EventActor:
		m.activations.Inc()
		m.particles.Set(float64(e.Particles))
	case session.EventReset:
		m.resets.Inc()
		m.confidence.Set(0)
		m.particles.Set(0)
	}
}

// SetParticles records the live particle count.
func (m *Metrics) SetParticles(n int) {
	m.particles.Set(float64(n))
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.frameDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// DetectionError counts a failed detection.
func (m *Metrics) DetectionError() {
	m.detectionErrors.Inc()
}

// SamplesRecorded counts n samples captured under label.
func (m *Metrics) SamplesRecorded(label string, n int) {
	m.recordedSamples.WithLabelValues(label).Add(float64(n))
}
