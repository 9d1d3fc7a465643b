package gesture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// MinSamplesPerLabel is the minimum number of samples of each label needed to train.
const MinSamplesPerLabel = 5

// ErrNotEnoughSamples is returned when either label has fewer than MinSamplesPerLabel samples.
var ErrNotEnoughSamples = errors.New("need at least 5 samples of each label")

// TrainOptions controls the trainer.
type TrainOptions struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
	Name         string
	// Hidden lists the widths of ReLU layers before the sigmoid output.
	// Empty trains plain logistic regression.
	Hidden []int
}

// DefaultTrainOptions returns the trainer defaults.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Epochs:       50,
		BatchSize:    16,
		LearningRate: 0.05,
		Seed:         1,
		Name:         "clone-sign",
	}
}

// EpochFunc is called after each epoch with the 1-based epoch number and training accuracy.
type EpochFunc func(epoch, total int, accuracy float64)

// Trainer fits a sigmoid output, optionally behind ReLU layers, over the two-hand
// feature vectors by minimizing cross-entropy.
type Trainer struct {
	opts    TrainOptions
	onEpoch EpochFunc
}

// NewTrainer creates a Trainer. Zero option fields take their defaults.
func NewTrainer(opts TrainOptions) *Trainer {
	def := DefaultTrainOptions()
	if opts.Epochs <= 0 {
		opts.Epochs = def.Epochs
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = def.LearningRate
	}
	if opts.Name == "" {
		opts.Name = def.Name
	}
	for _, h := range opts.Hidden {
		if h <= 0 {
			opts.Hidden = nil
			break
		}
	}
	return &Trainer{opts: opts}
}

// OnEpoch sets the per-epoch progress callback.
func (t *Trainer) OnEpoch(fn EpochFunc) {
	t.onEpoch = fn
}

// Result is the outcome of a training run.
type Result struct {
	Model    *Model
	Accuracy float64
	Positive int
	Negative int
}

// Train fits a model to the dataset. The context is checked between epochs.
func (t *Trainer) Train(ctx context.Context, data *Dataset) (*Result, error) {
	pos, neg := data.Counts()
	if pos < MinSamplesPerLabel || neg < MinSamplesPerLabel {
		return nil, fmt.Errorf("%w: have %d %s and %d %s", ErrNotEnoughSamples, pos, LabelCloneSign, neg, LabelNotSign)
	}

	xs := make([][]float64, 0, pos+neg)
	ys := make([]float64, 0, pos+neg)
	for _, v := range data.CloneSign {
		xs = append(xs, v)
		ys = append(ys, 1)
	}
	for _, v := range data.NotSign {
		xs = append(xs, v)
		ys = append(ys, 0)
	}

	rng := rand.New(rand.NewSource(t.opts.Seed))
	order := rng.Perm(len(xs))

	layers := t.initLayers(rng)
	grads := zeroLayers(layers)

	var accuracy float64
	for epoch := 1; epoch <= t.opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for start := 0; start < len(order); start += t.opts.BatchSize {
			end := min(start+t.opts.BatchSize, len(order))

			clearLayers(grads)
			for _, idx := range order[start:end] {
				backprop(layers, grads, forward(layers, xs[idx]), ys[idx])
			}

			step := t.opts.LearningRate / float64(end-start)
			for i := range layers {
				for j, row := range layers[i].Weights {
					for k := range row {
						row[k] -= step * grads[i].Weights[j][k]
					}
					layers[i].Bias[j] -= step * grads[i].Bias[j]
				}
			}
		}

		accuracy = scoreAccuracy(layers, xs, ys)
		if t.onEpoch != nil {
			t.onEpoch(epoch, t.opts.Epochs, accuracy)
		}
	}

	model := &Model{
		Name:      t.opts.Name,
		InputSize: InputSize,
		Layers:    layers,
	}

	return &Result{
		Model:    model,
		Accuracy: accuracy,
		Positive: pos,
		Negative: neg,
	}, nil
}

// initLayers allocates the network. A lone output layer starts at zero; deeper
// networks get He initialized weights so the ReLU units do not start dead.
func (t *Trainer) initLayers(rng *rand.Rand) []Layer {
	sizes := append(append([]int{InputSize}, t.opts.Hidden...), 1)
	layers := make([]Layer, len(sizes)-1)
	for i := range layers {
		in, out := sizes[i], sizes[i+1]
		l := Layer{
			Weights:    make([][]float64, out),
			Bias:       make([]float64, out),
			Activation: ActivationReLU,
		}
		if i == len(layers)-1 {
			l.Activation = ActivationSigmoid
		}
		scale := math.Sqrt(2 / float64(in))
		for j := range l.Weights {
			l.Weights[j] = make([]float64, in)
			if len(layers) == 1 {
				continue
			}
			for k := range l.Weights[j] {
				l.Weights[j][k] = rng.NormFloat64() * scale
			}
		}
		layers[i] = l
	}
	return layers
}

func zeroLayers(layers []Layer) []Layer {
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i].Weights = make([][]float64, len(l.Weights))
		for j, row := range l.Weights {
			out[i].Weights[j] = make([]float64, len(row))
		}
		out[i].Bias = make([]float64, len(l.Bias))
	}
	return out
}

func clearLayers(layers []Layer) {
	for _, l := range layers {
		for _, row := range l.Weights {
			clear(row)
		}
		clear(l.Bias)
	}
}

// forward returns the input followed by every layer's output.
func forward(layers []Layer, x []float64) [][]float64 {
	acts := make([][]float64, len(layers)+1)
	acts[0] = x
	for i, l := range layers {
		out := make([]float64, len(l.Weights))
		for j, row := range l.Weights {
			sum := l.Bias[j]
			for k, w := range row {
				sum += w * acts[i][k]
			}
			out[j] = activate(l.Activation, sum)
		}
		acts[i+1] = out
	}
	return acts
}

// backprop adds one sample's cross-entropy gradient to grads. With a sigmoid
// output the output delta is simply p - y.
func backprop(layers, grads []Layer, acts [][]float64, y float64) {
	delta := []float64{acts[len(acts)-1][0] - y}
	for i := len(layers) - 1; i >= 0; i-- {
		var prev []float64
		if i > 0 {
			prev = make([]float64, len(acts[i]))
		}
		for j, row := range layers[i].Weights {
			d := delta[j]
			if d == 0 {
				continue
			}
			grads[i].Bias[j] += d
			for k, w := range row {
				grads[i].Weights[j][k] += d * acts[i][k]
				if prev != nil {
					prev[k] += d * w
				}
			}
		}
		for k := range prev {
			if acts[i][k] <= 0 {
				prev[k] = 0
			}
		}
		delta = prev
	}
}

func scoreAccuracy(layers []Layer, xs [][]float64, ys []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	correct := 0
	for i, x := range xs {
		acts := forward(layers, x)
		p := acts[len(acts)-1][0]
		if (p >= 0.5) == (ys[i] >= 0.5) {
			correct++
		}
	}
	return float64(correct) / float64(len(xs))
}
