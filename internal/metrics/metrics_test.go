package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/kagebunshin/internal/session"
)

func TestMetrics_Publish(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Publish(session.Event{Type: session.EventConfidence, Confidence: 99.5})
	m.Publish(session.Event{Type: session.EventTriggered})
	m.Publish(session.Event{Type: session.EventActor, Particles: 2})
	m.Publish(session.Event{Type: session.EventActor, Particles: 4})
	m.Publish(session.Event{Type: session.EventToggle})

	assert.Equal(t, 99.5, testutil.ToFloat64(m.confidence))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.triggers))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activations))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.particles))

	m.Publish(session.Event{Type: session.EventReset})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resets))
	assert.Zero(t, testutil.ToFloat64(m.confidence))
	assert.Zero(t, testutil.ToFloat64(m.particles))
}

func TestMetrics_Handler(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.ObserveStage("detect", 12*time.Millisecond)
	m.DetectionError()
	m.SamplesRecorded("clone_sign", 3)

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, name := range []string{
		"kagebunshin_frame_duration_seconds",
		"kagebunshin_detection_errors_total 1",
		`kagebunshin_recorded_samples_total{label="clone_sign"} 3`,
	} {
		assert.True(t, strings.Contains(text, name), "missing %s", name)
	}
}
