// Package training turns recorded samples into the live gesture model.
package training

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/kagebunshin/internal/gesture"
	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/store"
)

// ErrBusy is returned when a training run is already in progress.
var ErrBusy = errors.New("training already in progress")

// Options configures a Service.
type Options struct {
	Train gesture.TrainOptions
	// ModelPath, when set, receives a copy of every activated model so the
	// next start can load it without the database.
	ModelPath string
}

// Service trains models from the sample store and swaps them into the
// classifier.
type Service struct {
	store      *store.Store
	classifier *gesture.ModelClassifier
	opts       Options

	running sync.Mutex
	onEpoch gesture.EpochFunc
}

// NewService creates a Service. classifier may be nil for offline training.
func NewService(s *store.Store, classifier *gesture.ModelClassifier, opts Options) *Service {
	return &Service{store: s, classifier: classifier, opts: opts}
}

// OnEpoch sets the progress callback used by subsequent runs.
func (s *Service) OnEpoch(fn gesture.EpochFunc) {
	s.onEpoch = fn
}

// Train fits a model on every stored sample, saves it and makes it active.
func (s *Service) Train(ctx context.Context) (*store.Model, error) {
	if !s.running.TryLock() {
		return nil, ErrBusy
	}
	defer s.running.Unlock()

	ds, err := s.store.Samples().Dataset()
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	trainer := gesture.NewTrainer(s.opts.Train)
	if s.onEpoch != nil {
		trainer.OnEpoch(s.onEpoch)
	}

	result, err := trainer.Train(ctx, ds)
	if err != nil {
		return nil, err
	}

	doc, err := result.Model.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}

	m := &store.Model{
		ID:       uuid.NewString(),
		Name:     result.Model.Name,
		Document: doc,
		Positive: result.Positive,
		Negative: result.Negative,
		Accuracy: result.Accuracy,
	}
	if err := s.store.Models().Create(m); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	logging.Info(logging.Fields{
		"model":    m.ID,
		"accuracy": m.Accuracy,
		"positive": m.Positive,
		"negative": m.Negative,
	}, "gesture model trained")

	if err := s.activate(m, result.Model); err != nil {
		return nil, err
	}
	return m, nil
}

// Activate makes the stored model id the live one.
func (s *Service) Activate(id string) (*store.Model, error) {
	m, err := s.store.Models().GetByID(id)
	if err != nil {
		return nil, err
	}
	decoded, err := m.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", id, err)
	}
	if err := s.activate(m, decoded); err != nil {
		return nil, err
	}
	return m, nil
}

// Restore loads the active model from the store into the classifier. It
// returns store.ErrNotFound when nothing has been trained yet.
func (s *Service) Restore() (*store.Model, error) {
	m, err := s.store.Models().Active()
	if err != nil {
		return nil, err
	}
	decoded, err := m.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", m.ID, err)
	}
	if s.classifier != nil {
		s.classifier.SetModel(decoded)
	}
	return m, nil
}

func (s *Service) activate(m *store.Model, model *gesture.Model) error {
	if err := s.store.Models().SetActive(m.ID); err != nil {
		return fmt.Errorf("failed to activate model: %w", err)
	}
	if s.opts.ModelPath != "" {
		if err := gesture.SaveModel(s.opts.ModelPath, model); err != nil {
			logging.Warn(logging.Fields{"path": s.opts.ModelPath, "error": err}, "failed to write model file")
		}
	}
	if s.classifier != nil {
		s.classifier.SetModel(model)
	}
	return nil
}
