package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/kagebunshin/internal/detector"
	"github.com/ayusman/kagebunshin/internal/gesture"
)

type memSaver struct {
	mu    sync.Mutex
	runs  map[string][][]float64
	label map[string]string
	err   error
}

func newMemSaver() *memSaver {
	return &memSaver{runs: map[string][][]float64{}, label: map[string]string{}}
}

func (s *memSaver) Create(sessionID, label string, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.runs[sessionID] = vectors
	s.label[sessionID] = label
	return nil
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func hands() (*detector.HandLandmarks, *detector.HandLandmarks) {
	r := detector.RightSealLandmarks()
	l := detector.LeftSealLandmarks()
	return &r, &l
}

func TestRecorder_Lifecycle(t *testing.T) {
	saver := newMemSaver()
	rec := New(saver, Options{})
	right, left := hands()

	var runs []Run
	rec.OnComplete(func(r Run) { runs = append(runs, r) })

	id, err := rec.Start(gesture.LabelCloneSign, at(0))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	st := rec.Poll(at(0))
	assert.Equal(t, StateCountdown, st.State)
	assert.Equal(t, 3, st.Remaining)
	assert.Equal(t, "GET READY... 3", st.Badge)

	// Countdown frames are not captured.
	assert.False(t, rec.Capture(right, left, at(1500)))
	assert.Equal(t, 2, rec.Poll(at(1500)).Remaining)

	assert.True(t, rec.Capture(right, left, at(3000)))
	st = rec.Poll(at(3100))
	assert.Equal(t, StateRecording, st.State)
	assert.Equal(t, "REC 4s", st.Badge)

	// A single hand is ignored.
	assert.False(t, rec.Capture(right, nil, at(3200)))
	assert.True(t, rec.Capture(right, left, at(6999)))
	assert.Equal(t, 2, rec.Poll(at(6999)).Captured)

	// Recording ends at 7s, before this frame is captured.
	assert.False(t, rec.Capture(right, left, at(7000)))

	st = rec.Poll(at(7000))
	assert.Equal(t, StateIdle, st.State)
	assert.Empty(t, st.Badge)
	assert.Equal(t, 2, st.Counts[gesture.LabelCloneSign])

	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].SessionID)
	assert.Equal(t, 2, runs[0].Samples)
	assert.False(t, runs[0].Cancelled)
	assert.NoError(t, runs[0].Err)

	require.Len(t, saver.runs[id], 2)
	assert.Len(t, saver.runs[id][0], gesture.InputSize)
	assert.Equal(t, gesture.LabelCloneSign, saver.label[id])
}

func TestRecorder_StartCancelsRunning(t *testing.T) {
	saver := newMemSaver()
	rec := New(saver, Options{Countdown: time.Second, Duration: 2 * time.Second})
	right, left := hands()

	first, err := rec.Start(gesture.LabelCloneSign, at(0))
	require.NoError(t, err)
	rec.Capture(right, left, at(1500))

	second, err := rec.Start(gesture.LabelNotSign, at(1600))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// The interrupted run keeps what it captured.
	assert.Len(t, saver.runs[first], 1)

	st := rec.Poll(at(1600))
	assert.Equal(t, StateCountdown, st.State)
	assert.Equal(t, gesture.LabelNotSign, st.Label)
}

func TestRecorder_Cancel(t *testing.T) {
	saver := newMemSaver()
	rec := New(saver, Options{})

	rec.Start(gesture.LabelNotSign, at(0))
	rec.Cancel()

	assert.Equal(t, StateIdle, rec.Poll(at(100)).State)
	assert.Empty(t, saver.runs)

	// Cancelling while idle is harmless.
	rec.Cancel()
}

func TestRecorder_UnknownLabel(t *testing.T) {
	rec := New(nil, Options{})

	_, err := rec.Start("peace", at(0))
	assert.True(t, errors.Is(err, ErrUnknownLabel))
	assert.Equal(t, StateIdle, rec.Poll(at(0)).State)
}

func TestRecorder_SaveError(t *testing.T) {
	saver := newMemSaver()
	saver.err = errors.New("disk full")
	rec := New(saver, Options{Countdown: time.Millisecond, Duration: time.Second})
	right, left := hands()

	var got Run
	rec.OnComplete(func(r Run) { got = r })

	rec.Start(gesture.LabelCloneSign, at(0))
	rec.Capture(right, left, at(10))
	rec.Poll(at(2000))

	assert.Error(t, got.Err)
	assert.Equal(t, 1, got.Samples)
}

func TestRecorder_SkippedFramesFinishRun(t *testing.T) {
	rec := New(nil, Options{})
	right, left := hands()

	var runs []Run
	rec.OnComplete(func(r Run) { runs = append(runs, r) })

	rec.Start(gesture.LabelCloneSign, at(0))
	// A single late poll walks through both phases.
	assert.False(t, rec.Capture(right, left, at(60000)))
	require.Len(t, runs, 1)
	assert.Zero(t, runs[0].Samples)
}
