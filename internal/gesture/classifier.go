package gesture

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/kagebunshin/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInputSize is returned when a feature vector does not match the model input.
var ErrInputSize = errors.New("feature vector size does not match model input")

// ErrNotReady is returned by Predict when no model is loaded.
var ErrNotReady = errors.New("classifier not ready")

// Classifier scores a two-hand feature vector with the probability of the trigger gesture.
type Classifier interface {
	// Ready reports whether a model is loaded and Predict can be called.
	Ready() bool
	// Predict returns a probability in [0, 1].
	Predict(features []float64) (float64, error)
}

// Activation names supported by dense layers.
const (
	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
)

// Layer is a fully connected layer. Weights are indexed [output][input].
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// Model is a small feed-forward network ending in a single sigmoid unit.
type Model struct {
	Name      string  `json:"name"`
	InputSize int     `json:"input_size"`
	Layers    []Layer `json:"layers"`
}

// Validate checks that layer shapes chain from InputSize down to a single output.
func (m *Model) Validate() error {
	if m.InputSize <= 0 {
		return fmt.Errorf("invalid input size %d", m.InputSize)
	}
	if len(m.Layers) == 0 {
		return errors.New("model has no layers")
	}

	in := m.InputSize
	for i, l := range m.Layers {
		if len(l.Weights) == 0 {
			return fmt.Errorf("layer %d has no units", i)
		}
		if len(l.Bias) != len(l.Weights) {
			return fmt.Errorf("layer %d has %d biases for %d units", i, len(l.Bias), len(l.Weights))
		}
		for j, row := range l.Weights {
			if len(row) != in {
				return fmt.Errorf("layer %d unit %d has %d weights, expected %d", i, j, len(row), in)
			}
		}
		switch l.Activation {
		case ActivationLinear, ActivationReLU, ActivationSigmoid, "":
		default:
			return fmt.Errorf("layer %d has unknown activation %q", i, l.Activation)
		}
		in = len(l.Weights)
	}

	if in != 1 {
		return fmt.Errorf("model has %d outputs, expected 1", in)
	}
	return nil
}

// Predict runs the forward pass and returns the single output clamped to [0, 1].
func (m *Model) Predict(features []float64) (float64, error) {
	if len(features) != m.InputSize {
		return 0, fmt.Errorf("%w: got %d, expected %d", ErrInputSize, len(features), m.InputSize)
	}

	x := features
	for _, l := range m.Layers {
		out := make([]float64, len(l.Weights))
		for j, row := range l.Weights {
			sum := l.Bias[j]
			for k, w := range row {
				sum += w * x[k]
			}
			out[j] = activate(l.Activation, sum)
		}
		x = out
	}

	p := x[0]
	if math.IsNaN(p) {
		return 0, nil
	}
	return math.Max(0, math.Min(1, p)), nil
}

func activate(name string, v float64) float64 {
	switch name {
	case ActivationReLU:
		return math.Max(0, v)
	case ActivationSigmoid:
		return sigmoid(v)
	default:
		return v
	}
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

// Marshal encodes the model as JSON.
func (m *Model) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalModel decodes and validates a JSON model.
func UnmarshalModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	return &m, nil
}

// LoadModel reads a JSON model from disk.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return UnmarshalModel(data)
}

// SaveModel writes the model as JSON to path.
func SaveModel(path string, m *Model) error {
	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ModelClassifier is a Classifier backed by a swappable Model.
// It stays not ready until a valid model is set.
type ModelClassifier struct {
	mu    sync.RWMutex
	model *Model
}

// NewModelClassifier returns a classifier with no model loaded.
func NewModelClassifier() *ModelClassifier {
	return &ModelClassifier{}
}

// LoadClassifier loads the model at path. A load failure is logged and leaves the
// classifier permanently not ready rather than failing the caller.
func LoadClassifier(path string) *ModelClassifier {
	c := NewModelClassifier()
	m, err := LoadModel(path)
	if err != nil {
		logging.Error(logging.Fields{"path": path, "error": err.Error()}, "failed to load gesture model")
		return c
	}
	if m.InputSize != InputSize {
		logging.Error(logging.Fields{"path": path, "input_size": m.InputSize}, "gesture model has wrong input size")
		return c
	}
	c.SetModel(m)
	logging.Info(logging.Fields{"path": path, "name": m.Name}, "gesture model loaded")
	return c
}

// SetModel swaps the active model. A nil model makes the classifier not ready.
func (c *ModelClassifier) SetModel(m *Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = m
}

// Model returns the active model or nil.
func (c *ModelClassifier) Model() *Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Ready reports whether a model is loaded.
func (c *ModelClassifier) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// Predict scores features with the active model.
func (c *ModelClassifier) Predict(features []float64) (float64, error) {
	c.mu.RLock()
	m := c.model
	c.mu.RUnlock()

	if m == nil {
		return 0, ErrNotReady
	}
	return m.Predict(features)
}
