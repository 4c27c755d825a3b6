package fitness

import (
	"context"
	"errors"
	"fmt"

	"lgp/internal/dataset"
	"lgp/internal/program"
)

var (
	ErrEmptyDataset         = errors.New("dataset has no samples")
	ErrInvalidOutputMapping = errors.New("program outputs do not match targets")
)

// Context evaluates a program over a dataset. Implementations must be pure and
// safe for concurrent use.
type Context interface {
	Evaluate(ctx context.Context, p program.Program, ds dataset.Dataset) (float64, error)
}

// SingleOutputContext scores programs with exactly one output register.
type SingleOutputContext struct {
	Function     Function
	DefaultValue float64
}

func NewSingleOutputContext(fn Function, defaultValue float64) *SingleOutputContext {
	return &SingleOutputContext{Function: fn, DefaultValue: defaultValue}
}

func (c *SingleOutputContext) Evaluate(ctx context.Context, p program.Program, ds dataset.Dataset) (float64, error) {
	if len(p.OutputRegisters) != 1 {
		return UndefinedFitness, fmt.Errorf("%w: single output context needs 1 output register, program has %d", ErrInvalidOutputMapping, len(p.OutputRegisters))
	}
	return evaluate(ctx, c.Function, c.DefaultValue, p, ds)
}

// MultipleOutputContext scores programs whose output registers line up with
// each target vector.
type MultipleOutputContext struct {
	Function     Function
	DefaultValue float64
}

func NewMultipleOutputContext(fn Function, defaultValue float64) *MultipleOutputContext {
	return &MultipleOutputContext{Function: fn, DefaultValue: defaultValue}
}

func (c *MultipleOutputContext) Evaluate(ctx context.Context, p program.Program, ds dataset.Dataset) (float64, error) {
	return evaluate(ctx, c.Function, c.DefaultValue, p, ds)
}

func evaluate(ctx context.Context, fn Function, defaultValue float64, p program.Program, ds dataset.Dataset) (float64, error) {
	if err := ctx.Err(); err != nil {
		return UndefinedFitness, err
	}
	if ds.Len() == 0 {
		return UndefinedFitness, ErrEmptyDataset
	}
	if fn == nil {
		return UndefinedFitness, fmt.Errorf("%w: nil function", ErrUnknownFunction)
	}
	for i, target := range ds.Outputs {
		if len(target.Values) != len(p.OutputRegisters) {
			return UndefinedFitness, fmt.Errorf("%w: sample %d has %d targets, program has %d outputs", ErrInvalidOutputMapping, i, len(target.Values), len(p.OutputRegisters))
		}
	}

	regs, err := program.NewRegisterSet(p.Layout, p.Constants, defaultValue)
	if err != nil {
		return UndefinedFitness, err
	}
	effective := p.Effective()
	outputs := make([][]float64, ds.Len())
	for i, sample := range ds.Inputs {
		if err := regs.Load(sample.Values()); err != nil {
			return UndefinedFitness, fmt.Errorf("sample %d: %w", i, err)
		}
		program.Run(effective, regs)
		outputs[i] = p.Outputs(regs)
	}
	return normalize(fn(outputs, ds.Outputs)), nil
}
