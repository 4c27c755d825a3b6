package evo

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GenerationStatistics is the snapshot recorded after each generation.
type GenerationStatistics struct {
	Generation            int     `json:"generation"`
	BestFitness           float64 `json:"best_fitness"`
	MeanFitness           float64 `json:"mean_fitness"`
	WorstFitness          float64 `json:"worst_fitness"`
	StdDevFitness         float64 `json:"stddev_fitness"`
	BestEverFitness       float64 `json:"best_ever_fitness"`
	MeanEffectiveLength   float64 `json:"mean_effective_length"`
	MinEffectiveLength    float64 `json:"min_effective_length"`
	MedianEffectiveLength float64 `json:"median_effective_length"`
	MaxEffectiveLength    float64 `json:"max_effective_length"`
	MeanProgramLength     float64 `json:"mean_program_length"`
	Evaluations           int     `json:"evaluations"`
}

// Metric is one named statistic.
type Metric struct {
	Key   string
	Value float64
}

// Data returns the snapshot as ordered key/value pairs.
func (s GenerationStatistics) Data() []Metric {
	return []Metric{
		{Key: "generation", Value: float64(s.Generation)},
		{Key: "best_fitness", Value: s.BestFitness},
		{Key: "mean_fitness", Value: s.MeanFitness},
		{Key: "worst_fitness", Value: s.WorstFitness},
		{Key: "stddev_fitness", Value: s.StdDevFitness},
		{Key: "best_ever_fitness", Value: s.BestEverFitness},
		{Key: "mean_effective_length", Value: s.MeanEffectiveLength},
		{Key: "min_effective_length", Value: s.MinEffectiveLength},
		{Key: "median_effective_length", Value: s.MedianEffectiveLength},
		{Key: "max_effective_length", Value: s.MaxEffectiveLength},
		{Key: "mean_program_length", Value: s.MeanProgramLength},
		{Key: "evaluations", Value: float64(s.Evaluations)},
	}
}

// summarizeGeneration computes fitness moments over finite scores only; worst
// fitness keeps undefined scores visible.
func summarizeGeneration(individuals []Individual, generation int, bestEver float64, evaluations int) GenerationStatistics {
	out := GenerationStatistics{
		Generation:      generation,
		BestEverFitness: bestEver,
		Evaluations:     evaluations,
	}
	if len(individuals) == 0 {
		return out
	}

	finite := make([]float64, 0, len(individuals))
	effective := make([]float64, len(individuals))
	lengths := make([]float64, len(individuals))
	out.BestFitness = math.Inf(1)
	out.WorstFitness = math.Inf(-1)
	for i, ind := range individuals {
		out.BestFitness = math.Min(out.BestFitness, ind.Fitness)
		out.WorstFitness = math.Max(out.WorstFitness, ind.Fitness)
		if !math.IsInf(ind.Fitness, 0) && !math.IsNaN(ind.Fitness) {
			finite = append(finite, ind.Fitness)
		}
		effective[i] = float64(len(ind.Program.EffectiveIndices()))
		lengths[i] = float64(ind.Program.Len())
	}

	switch len(finite) {
	case 0:
		out.MeanFitness = math.Inf(1)
	case 1:
		out.MeanFitness = finite[0]
	default:
		out.MeanFitness, out.StdDevFitness = stat.MeanStdDev(finite, nil)
	}

	sort.Float64s(effective)
	out.MeanEffectiveLength = stat.Mean(effective, nil)
	out.MinEffectiveLength = floats.Min(effective)
	out.MaxEffectiveLength = floats.Max(effective)
	out.MedianEffectiveLength = stat.Quantile(0.5, stat.Empirical, effective, nil)
	out.MeanProgramLength = stat.Mean(lengths, nil)
	return out
}
