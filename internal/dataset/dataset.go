package dataset

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
)

var (
	ErrMismatchedLengths = errors.New("inputs and outputs have different lengths")
	ErrInvalidSplit      = errors.New("invalid split ratio")
	ErrInvalidSequence   = errors.New("invalid sequence")
)

type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type Sample struct {
	Features []Feature `json:"features"`
}

func NewSample(values ...float64) Sample {
	features := make([]Feature, len(values))
	for i, v := range values {
		features[i] = Feature{Name: fmt.Sprintf("x%d", i), Value: v}
	}
	return Sample{Features: features}
}

// Values returns the feature values in order.
func (s Sample) Values() []float64 {
	out := make([]float64, len(s.Features))
	for i, f := range s.Features {
		out[i] = f.Value
	}
	return out
}

type Target struct {
	Values []float64 `json:"values"`
}

func Single(v float64) Target {
	return Target{Values: []float64{v}}
}

// Dataset pairs samples with their expected targets. It is read-only after
// construction and safe to share across runs.
type Dataset struct {
	Inputs  []Sample
	Outputs []Target
}

func New(inputs []Sample, outputs []Target) (Dataset, error) {
	if len(inputs) != len(outputs) {
		return Dataset{}, fmt.Errorf("%w: inputs=%d outputs=%d", ErrMismatchedLengths, len(inputs), len(outputs))
	}
	return Dataset{Inputs: inputs, Outputs: outputs}, nil
}

func (d Dataset) Len() int {
	return len(d.Inputs)
}

func (d Dataset) NumFeatures() int {
	if len(d.Inputs) == 0 {
		return 0
	}
	return len(d.Inputs[0].Features)
}

func (d Dataset) NumOutputs() int {
	if len(d.Outputs) == 0 {
		return 0
	}
	return len(d.Outputs[0].Values)
}

// Fingerprint hashes every feature value and target value, so two datasets
// share a fingerprint only when their contents are bit-identical.
func (d Dataset) Fingerprint() string {
	h := sha1.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	put(uint64(len(d.Inputs)))
	for _, s := range d.Inputs {
		put(uint64(len(s.Features)))
		for _, f := range s.Features {
			put(math.Float64bits(f.Value))
		}
	}
	put(uint64(len(d.Outputs)))
	for _, t := range d.Outputs {
		put(uint64(len(t.Values)))
		for _, v := range t.Values {
			put(math.Float64bits(v))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Split keeps the first ratio*Len samples for training and returns the rest as
// the test set. Order is preserved.
func (d Dataset) Split(ratio float64) (Dataset, Dataset, error) {
	if ratio <= 0 || ratio >= 1 || math.IsNaN(ratio) {
		return Dataset{}, Dataset{}, fmt.Errorf("%w: %f", ErrInvalidSplit, ratio)
	}
	cut := int(math.Round(float64(d.Len()) * ratio))
	if cut <= 0 || cut >= d.Len() {
		return Dataset{}, Dataset{}, fmt.Errorf("%w: %f leaves an empty partition of %d samples", ErrInvalidSplit, ratio, d.Len())
	}
	train := Dataset{Inputs: d.Inputs[:cut:cut], Outputs: d.Outputs[:cut:cut]}
	test := Dataset{Inputs: d.Inputs[cut:], Outputs: d.Outputs[cut:]}
	return train, test, nil
}
