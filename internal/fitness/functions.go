package fitness

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"lgp/internal/dataset"
)

// UndefinedFitness is the score of programs whose error cannot be computed.
// Lower fitness is better, so undefined programs always lose.
var UndefinedFitness = math.Inf(1)

var ErrUnknownFunction = errors.New("unknown fitness function")

// Function scores program outputs against targets; lower is better. The
// outputs slice holds one output vector per sample.
type Function func(outputs [][]float64, targets []dataset.Target) float64

const classificationThreshold = 0.5

func MSE(outputs [][]float64, targets []dataset.Target) float64 {
	sum, n := squaredErrors(outputs, targets)
	if n == 0 {
		return UndefinedFitness
	}
	return normalize(sum / float64(n))
}

func SSE(outputs [][]float64, targets []dataset.Target) float64 {
	sum, n := squaredErrors(outputs, targets)
	if n == 0 {
		return UndefinedFitness
	}
	return normalize(sum)
}

func RMSE(outputs [][]float64, targets []dataset.Target) float64 {
	return normalize(math.Sqrt(MSE(outputs, targets)))
}

func MAE(outputs [][]float64, targets []dataset.Target) float64 {
	sum, n := 0.0, 0
	for i, out := range outputs {
		for k, v := range targets[i].Values {
			sum += math.Abs(out[k] - v)
			n++
		}
	}
	if n == 0 {
		return UndefinedFitness
	}
	return normalize(sum / float64(n))
}

// ClassificationError is the fraction of samples with at least one output on
// the wrong side of the 0.5 threshold.
func ClassificationError(outputs [][]float64, targets []dataset.Target) float64 {
	if len(outputs) == 0 {
		return UndefinedFitness
	}
	wrong := 0
	for i, out := range outputs {
		for k, v := range targets[i].Values {
			if (out[k] >= classificationThreshold) != (v >= classificationThreshold) {
				wrong++
				break
			}
		}
	}
	return float64(wrong) / float64(len(outputs))
}

func squaredErrors(outputs [][]float64, targets []dataset.Target) (float64, int) {
	sum, n := 0.0, 0
	for i, out := range outputs {
		for k, v := range targets[i].Values {
			d := out[k] - v
			sum += d * d
			n++
		}
	}
	return sum, n
}

func normalize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return UndefinedFitness
	}
	return v
}

var functions = map[string]Function{
	"mse":            MSE,
	"sse":            SSE,
	"rmse":           RMSE,
	"mae":            MAE,
	"classification": ClassificationError,
}

func Resolve(name string) (Function, error) {
	fn, ok := functions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return fn, nil
}

func Names() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
