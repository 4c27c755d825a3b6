package lgp

import (
	"errors"
	"fmt"
	"sort"

	"lgp/internal/dataset"
)

var ErrUnknownProblem = errors.New("unknown problem")

// Problem is a named symbolic regression target with its training data.
type Problem struct {
	Name        string
	Description string
	Dataset     func() (dataset.Dataset, error)
}

var problems = map[string]Problem{
	"quadratic": {
		Name:        "quadratic",
		Description: "x^2 + 2x + 2 over [-10, 10] step 0.5",
		Dataset: func() (dataset.Dataset, error) {
			return sampled(-10, 10, 0.5, func(x float64) float64 { return x*x + 2*x + 2 })
		},
	},
	"sextic": {
		Name:        "sextic",
		Description: "x^6 - 2x^4 + x^2 over [-1, 1] step 0.1",
		Dataset: func() (dataset.Dataset, error) {
			return sampled(-1, 1, 0.1, func(x float64) float64 {
				x2 := x * x
				return x2*x2*x2 - 2*x2*x2 + x2
			})
		},
	},
}

func sampled(start, end, step float64, f func(float64) float64) (dataset.Dataset, error) {
	xs, err := dataset.SequenceGenerator{}.Generate(start, end, step, true)
	if err != nil {
		return dataset.Dataset{}, err
	}
	return dataset.FromFunction(xs, "x", f), nil
}

func ResolveProblem(name string) (Problem, error) {
	p, ok := problems[name]
	if !ok {
		return Problem{}, fmt.Errorf("%w: %s", ErrUnknownProblem, name)
	}
	return p, nil
}

// Problems lists the built-in problem names in sorted order.
func Problems() []string {
	out := make([]string, 0, len(problems))
	for name := range problems {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
