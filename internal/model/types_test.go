package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreJSON(t *testing.T) {
	cases := []struct {
		name  string
		score Score
		want  string
	}{
		{name: "finite", score: 1.5, want: `1.5`},
		{name: "positive infinity", score: Score(math.Inf(1)), want: `"+Inf"`},
		{name: "negative infinity", score: Score(math.Inf(-1)), want: `"-Inf"`},
		{name: "nan", score: Score(math.NaN()), want: `"NaN"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.score)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(data))

			var back Score
			require.NoError(t, json.Unmarshal(data, &back))
			if math.IsNaN(float64(tc.score)) {
				assert.True(t, math.IsNaN(float64(back)))
				return
			}
			assert.Equal(t, tc.score, back)
		})
	}
}

func TestScoreRejectsUnknownText(t *testing.T) {
	var s Score
	assert.Error(t, json.Unmarshal([]byte(`"huge"`), &s))
}

func TestStatisticsRecordEncodesUndefinedFitness(t *testing.T) {
	rec := StatisticsRecord{Generation: 1, BestFitness: 0.5, MeanFitness: Score(math.Inf(1))}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mean_fitness":"+Inf"`)
}
