package training

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/kagebunshin/internal/gesture"
	"github.com/ayusman/kagebunshin/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *store.Store, n int) {
	t.Helper()
	var pos, neg [][]float64
	for i := 0; i < n; i++ {
		p := make([]float64, gesture.InputSize)
		q := make([]float64, gesture.InputSize)
		p[0], q[0] = 1, -1
		pos = append(pos, p)
		neg = append(neg, q)
	}
	require.NoError(t, s.Samples().Create("seed", gesture.LabelCloneSign, pos))
	require.NoError(t, s.Samples().Create("seed", gesture.LabelNotSign, neg))
}

func TestService_Train(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, 8)

	classifier := gesture.NewModelClassifier()
	modelPath := filepath.Join(t.TempDir(), "model.json")
	svc := NewService(s, classifier, Options{
		Train:     gesture.TrainOptions{Epochs: 100, LearningRate: 0.5, Seed: 3},
		ModelPath: modelPath,
	})

	var epochs int
	svc.OnEpoch(func(epoch, total int, _ float64) { epochs = epoch })

	m, err := svc.Train(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 100, epochs)
	assert.Equal(t, 8, m.Positive)
	assert.Equal(t, 8, m.Negative)
	assert.True(t, classifier.Ready())

	active, err := s.Models().Active()
	require.NoError(t, err)
	assert.Equal(t, m.ID, active.ID)

	fromFile, err := gesture.LoadModel(modelPath)
	require.NoError(t, err)
	assert.Equal(t, gesture.InputSize, fromFile.InputSize)

	pos := make([]float64, gesture.InputSize)
	pos[0] = 1
	p, err := classifier.Predict(pos)
	require.NoError(t, err)
	assert.Greater(t, p, 0.5)
}

func TestService_TrainNotEnoughSamples(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, 2)

	classifier := gesture.NewModelClassifier()
	_, err := NewService(s, classifier, Options{}).Train(context.Background())
	assert.True(t, errors.Is(err, gesture.ErrNotEnoughSamples))
	assert.False(t, classifier.Ready())
}

func TestService_ActivateAndRestore(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, 6)

	svc := NewService(s, nil, Options{Train: gesture.TrainOptions{Epochs: 5}})
	first, err := svc.Train(context.Background())
	require.NoError(t, err)
	_, err = svc.Train(context.Background())
	require.NoError(t, err)

	_, err = svc.Activate(first.ID)
	require.NoError(t, err)

	classifier := gesture.NewModelClassifier()
	restored, err := NewService(s, classifier, Options{}).Restore()
	require.NoError(t, err)
	assert.Equal(t, first.ID, restored.ID)
	assert.True(t, classifier.Ready())

	_, err = svc.Activate("missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestService_RestoreEmpty(t *testing.T) {
	_, err := NewService(newTestStore(t), nil, Options{}).Restore()
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
