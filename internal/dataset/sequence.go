package dataset

import (
	"fmt"
	"math"
)

// SequenceGenerator produces evenly spaced values.
type SequenceGenerator struct{}

// Generate returns start, start+step, ... up to end. Values are computed as
// start+i*step to avoid accumulating rounding error.
func (SequenceGenerator) Generate(start, end, step float64, inclusive bool) ([]float64, error) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: step must be > 0, got %f", ErrInvalidSequence, step)
	}
	if end < start {
		return nil, fmt.Errorf("%w: end %f before start %f", ErrInvalidSequence, end, start)
	}

	const tolerance = 1e-9
	out := make([]float64, 0, int((end-start)/step)+1)
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if inclusive {
			if v > end+tolerance*step {
				break
			}
		} else if v >= end-tolerance*step {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

// FromFunction builds a single-feature, single-target dataset by applying f to
// every x.
func FromFunction(xs []float64, name string, f func(float64) float64) Dataset {
	inputs := make([]Sample, len(xs))
	outputs := make([]Target, len(xs))
	for i, x := range xs {
		inputs[i] = Sample{Features: []Feature{{Name: name, Value: x}}}
		outputs[i] = Single(f(x))
	}
	return Dataset{Inputs: inputs, Outputs: outputs}
}
