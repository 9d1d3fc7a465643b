package gesture

import (
	"fmt"
	"io"
)

// Sample labels used by the recorder and the trainer.
const (
	LabelCloneSign = "clone_sign"
	LabelNotSign   = "not_sign"
)

// ValidLabel reports whether label is one of the known sample labels.
func ValidLabel(label string) bool {
	return label == LabelCloneSign || label == LabelNotSign
}

// Dataset holds labeled two-hand feature vectors.
// Its JSON form is the gesture-data.json export format.
type Dataset struct {
	CloneSign [][]float64 `json:"clone_sign"`
	NotSign   [][]float64 `json:"not_sign"`
}

// Add appends a vector under label.
func (d *Dataset) Add(label string, features []float64) error {
	if len(features) != InputSize {
		return fmt.Errorf("%w: got %d, expected %d", ErrInputSize, len(features), InputSize)
	}
	switch label {
	case LabelCloneSign:
		d.CloneSign = append(d.CloneSign, features)
	case LabelNotSign:
		d.NotSign = append(d.NotSign, features)
	default:
		return fmt.Errorf("unknown label %q", label)
	}
	return nil
}

// Merge appends all samples of other.
func (d *Dataset) Merge(other *Dataset) {
	if other == nil {
		return
	}
	d.CloneSign = append(d.CloneSign, other.CloneSign...)
	d.NotSign = append(d.NotSign, other.NotSign...)
}

// Counts returns the number of positive and negative samples.
func (d *Dataset) Counts() (positive, negative int) {
	return len(d.CloneSign), len(d.NotSign)
}

// Len returns the total sample count.
func (d *Dataset) Len() int {
	return len(d.CloneSign) + len(d.NotSign)
}

// Export writes the dataset as JSON.
func (d *Dataset) Export(w io.Writer) error {
	out := *d
	if out.CloneSign == nil {
		out.CloneSign = [][]float64{}
	}
	if out.NotSign == nil {
		out.NotSign = [][]float64{}
	}
	if err := json.NewEncoder(w).Encode(&out); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return nil
}

// ImportDataset reads a JSON dataset. Vectors of the wrong size are rejected.
func ImportDataset(r io.Reader) (*Dataset, error) {
	var d Dataset
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	for i, v := range d.CloneSign {
		if len(v) != InputSize {
			return nil, fmt.Errorf("%s sample %d: %w", LabelCloneSign, i, ErrInputSize)
		}
	}
	for i, v := range d.NotSign {
		if len(v) != InputSize {
			return nil, fmt.Errorf("%s sample %d: %w", LabelNotSign, i, ErrInputSize)
		}
	}
	return &d, nil
}
