package fitness

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lgp/internal/dataset"
	"lgp/internal/program"
)

func squareProgram(t *testing.T) program.Program {
	t.Helper()
	mul, err := program.ResolveOperation("mul")
	require.NoError(t, err)
	return program.Program{
		Instructions:    []program.Instruction{program.NewInstruction(mul, 1, 0, 0)},
		OutputRegisters: []int{1},
		Layout:          program.Layout{Inputs: 1, Calculations: 2},
	}
}

func squareDataset(t *testing.T) dataset.Dataset {
	t.Helper()
	xs, err := dataset.SequenceGenerator{}.Generate(-2, 2, 0.5, true)
	require.NoError(t, err)
	return dataset.FromFunction(xs, "x", func(x float64) float64 { return x * x })
}

func TestPerfectProgramScoresZero(t *testing.T) {
	ctx := NewSingleOutputContext(MSE, 1)
	score, err := ctx.Evaluate(context.Background(), squareProgram(t), squareDataset(t))
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestEvaluationIsBitIdentical(t *testing.T) {
	p := squareProgram(t)
	add, err := program.ResolveOperation("add")
	require.NoError(t, err)
	p.Instructions = append(p.Instructions, program.NewInstruction(add, 1, 1, 0))
	ds := squareDataset(t)

	ctx := NewSingleOutputContext(MSE, 1)
	first, err := ctx.Evaluate(context.Background(), p, ds)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ctx.Evaluate(context.Background(), p, ds)
		require.NoError(t, err)
		require.Equal(t, math.Float64bits(first), math.Float64bits(again))
	}
}

func TestContextErrors(t *testing.T) {
	p := squareProgram(t)
	_, err := NewSingleOutputContext(MSE, 1).Evaluate(context.Background(), p, dataset.Dataset{})
	require.ErrorIs(t, err, ErrEmptyDataset)

	multi := p.Clone()
	multi.OutputRegisters = []int{1, 2}
	_, err = NewSingleOutputContext(MSE, 1).Evaluate(context.Background(), multi, squareDataset(t))
	require.ErrorIs(t, err, ErrInvalidOutputMapping)

	_, err = NewMultipleOutputContext(MSE, 1).Evaluate(context.Background(), multi, squareDataset(t))
	require.ErrorIs(t, err, ErrInvalidOutputMapping)
}

func TestMultipleOutputContext(t *testing.T) {
	p := squareProgram(t)
	p.OutputRegisters = []int{1, 2}
	ds, err := dataset.New(
		[]dataset.Sample{dataset.NewSample(2), dataset.NewSample(3)},
		[]dataset.Target{{Values: []float64{4, 1}}, {Values: []float64{9, 1}}},
	)
	require.NoError(t, err)

	score, err := NewMultipleOutputContext(SSE, 1).Evaluate(context.Background(), p, ds)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestFunctions(t *testing.T) {
	outputs := [][]float64{{1}, {3}}
	targets := []dataset.Target{dataset.Single(0), dataset.Single(1)}

	assert.Equal(t, 2.5, MSE(outputs, targets))
	assert.Equal(t, 5.0, SSE(outputs, targets))
	assert.Equal(t, 1.5, MAE(outputs, targets))
	assert.InDelta(t, math.Sqrt(2.5), RMSE(outputs, targets), 1e-12)
	assert.Equal(t, 0.5, ClassificationError(outputs, targets))
	assert.True(t, math.IsInf(MSE(nil, nil), 1))

	_, err := Resolve("nope")
	require.ErrorIs(t, err, ErrUnknownFunction)
	fn, err := Resolve("mse")
	require.NoError(t, err)
	assert.Equal(t, 2.5, fn(outputs, targets))
}

func TestCachedContextMatchesInner(t *testing.T) {
	inner := NewSingleOutputContext(MSE, 1)
	cached, err := NewCachedContext(inner, 8)
	require.NoError(t, err)

	p := squareProgram(t)
	sub, err := program.ResolveOperation("sub")
	require.NoError(t, err)
	p.Instructions = append(p.Instructions, program.NewInstruction(sub, 1, 1, 0))
	ds := squareDataset(t)

	want, err := inner.Evaluate(context.Background(), p, ds)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		got, err := cached.Evaluate(context.Background(), p, ds)
		require.NoError(t, err)
		assert.Equal(t, math.Float64bits(want), math.Float64bits(got))
	}
	assert.Equal(t, 1, cached.Len())
}

func TestCachedContextSeparatesDatasetsSharingInputs(t *testing.T) {
	add, err := program.ResolveOperation("add")
	require.NoError(t, err)
	double := program.Program{
		Instructions:    []program.Instruction{program.NewInstruction(add, 1, 0, 0)},
		OutputRegisters: []int{1},
		Layout:          program.Layout{Inputs: 1, Calculations: 2},
	}

	inputs := []dataset.Sample{dataset.NewSample(1), dataset.NewSample(2)}
	exact, err := dataset.New(inputs, []dataset.Target{dataset.Single(2), dataset.Single(4)})
	require.NoError(t, err)
	zeros, err := dataset.New(inputs, []dataset.Target{dataset.Single(0), dataset.Single(0)})
	require.NoError(t, err)

	inner := NewSingleOutputContext(MSE, 1)
	cached, err := NewCachedContext(inner, 8)
	require.NoError(t, err)

	got, err := cached.Evaluate(context.Background(), double, exact)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	want, err := inner.Evaluate(context.Background(), double, zeros)
	require.NoError(t, err)
	require.Equal(t, 10.0, want)
	got, err = cached.Evaluate(context.Background(), double, zeros)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 2, cached.Len())
}
