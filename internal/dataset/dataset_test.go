package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsMismatchedLengths(t *testing.T) {
	_, err := New([]Sample{NewSample(1), NewSample(2)}, []Target{Single(1)})
	require.ErrorIs(t, err, ErrMismatchedLengths)

	ds, err := New([]Sample{NewSample(1, 2)}, []Target{Single(3)})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, 2, ds.NumFeatures())
	assert.Equal(t, 1, ds.NumOutputs())
	assert.Equal(t, []float64{1, 2}, ds.Inputs[0].Values())
}

func TestSequenceGeneratorInclusive(t *testing.T) {
	xs, err := SequenceGenerator{}.Generate(-10, 10, 0.5, true)
	require.NoError(t, err)
	require.Len(t, xs, 41)
	assert.Equal(t, -10.0, xs[0])
	assert.Equal(t, 10.0, xs[len(xs)-1])

	xs, err = SequenceGenerator{}.Generate(0, 1, 0.25, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75}, xs)
}

func TestSequenceGeneratorRejectsBadStep(t *testing.T) {
	_, err := SequenceGenerator{}.Generate(0, 1, 0, true)
	require.ErrorIs(t, err, ErrInvalidSequence)
	_, err = SequenceGenerator{}.Generate(1, 0, 0.1, true)
	require.ErrorIs(t, err, ErrInvalidSequence)
}

func TestFromFunctionAndSplit(t *testing.T) {
	xs, err := SequenceGenerator{}.Generate(0, 9, 1, true)
	require.NoError(t, err)
	ds := FromFunction(xs, "x", func(x float64) float64 { return 2 * x })
	require.Equal(t, 10, ds.Len())
	assert.Equal(t, 18.0, ds.Outputs[9].Values[0])

	train, test, err := ds.Split(0.8)
	require.NoError(t, err)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.Equal(t, 8.0, test.Inputs[0].Features[0].Value)

	_, _, err = ds.Split(1)
	require.ErrorIs(t, err, ErrInvalidSplit)
}

func TestFingerprintCoversInputsAndTargets(t *testing.T) {
	inputs := []Sample{NewSample(1), NewSample(2)}
	a, err := New(inputs, []Target{Single(2), Single(4)})
	require.NoError(t, err)
	b, err := New(inputs, []Target{Single(0), Single(0)})
	require.NoError(t, err)
	c, err := New([]Sample{NewSample(1), NewSample(2)}, []Target{Single(2), Single(4)})
	require.NoError(t, err)

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), c.Fingerprint())

	train, test, err := a.Split(0.5)
	require.NoError(t, err)
	assert.NotEqual(t, train.Fingerprint(), test.Fingerprint())
}
