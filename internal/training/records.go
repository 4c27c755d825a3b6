package training

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"lgp/internal/config"
	"lgp/internal/evo"
	"lgp/internal/model"
	"lgp/internal/program"
	"lgp/internal/storage"
)

// EvolutionID names the evolution record of a run within a training.
func EvolutionID(trainingID string, run int) string {
	return fmt.Sprintf("%s-%d", trainingID, run)
}

// persist stores every evolution and then the training that lists them.
func persist(ctx context.Context, store storage.Store, cfg config.Configuration, result Result) error {
	training, evolutions, err := Records(cfg, result)
	if err != nil {
		return err
	}
	for _, ev := range evolutions {
		if err := store.SaveEvolution(ctx, ev); err != nil {
			return fmt.Errorf("save evolution %s: %w", ev.ID, err)
		}
	}
	return store.SaveTraining(ctx, training)
}

// Records converts a training result into its persistent form. Failed runs
// get a failure entry and no evolution record.
func Records(cfg config.Configuration, result Result) (model.TrainingRecord, []model.EvolutionRecord, error) {
	rawConfig, err := json.Marshal(cfg)
	if err != nil {
		return model.TrainingRecord{}, nil, fmt.Errorf("encode configuration: %w", err)
	}
	baseSeed := result.BaseSeed
	training := model.TrainingRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              result.ID,
		CreatedAtUTC:    result.CreatedAt,
		Runs:            len(result.Evolutions),
		BaseSeed:        &baseSeed,
		Config:          rawConfig,
		BestFitness:     model.Score(math.Inf(1)),
	}

	failed := make(map[int]struct{}, len(result.Failures))
	for _, f := range result.Failures {
		failed[f.Run] = struct{}{}
		training.Failures = append(training.Failures, model.FailureRecord{Run: f.Run, Error: f.Err.Error()})
	}

	evolutions := make([]model.EvolutionRecord, 0, len(result.Evolutions))
	for run, ev := range result.Evolutions {
		if _, ok := failed[run]; ok {
			continue
		}
		rec := EvolutionRecord(result.ID, ev)
		evolutions = append(evolutions, rec)
		training.EvolutionIDs = append(training.EvolutionIDs, rec.ID)
		if rec.BestFitness < training.BestFitness {
			training.BestFitness = rec.BestFitness
		}
	}
	return training, evolutions, nil
}

func EvolutionRecord(trainingID string, ev evo.EvolutionResult) model.EvolutionRecord {
	rec := model.EvolutionRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              EvolutionID(trainingID, ev.Run),
		TrainingID:      trainingID,
		Run:             ev.Run,
		Seed:            ev.Seed,
		BestFitness:     model.Score(ev.Best.Fitness),
		BestProgram:     ProgramRecord(ev.Best.Program),
		Generations:     ev.Generations,
		Evaluations:     ev.Evaluations,
		Stopped:         ev.Stopped,
		DurationMS:      ev.Duration.Milliseconds(),
		Statistics:      make([]model.StatisticsRecord, len(ev.Statistics)),
	}
	if !ev.Best.Evaluated {
		rec.BestFitness = model.Score(math.Inf(1))
	}
	for i, s := range ev.Statistics {
		rec.Statistics[i] = StatisticsRecord(s)
	}
	return rec
}

func ProgramRecord(p program.Program) model.ProgramRecord {
	return model.ProgramRecord{
		Fingerprint:     p.Fingerprint(),
		Length:          p.Len(),
		EffectiveLength: len(p.EffectiveIndices()),
		Source:          p.String(),
		Effective:       p.EffectiveString(),
		Constants:       append([]float64(nil), p.Constants...),
	}
}

func StatisticsRecord(s evo.GenerationStatistics) model.StatisticsRecord {
	return model.StatisticsRecord{
		Generation:            s.Generation,
		BestFitness:           model.Score(s.BestFitness),
		MeanFitness:           model.Score(s.MeanFitness),
		WorstFitness:          model.Score(s.WorstFitness),
		StdDevFitness:         model.Score(s.StdDevFitness),
		BestEverFitness:       model.Score(s.BestEverFitness),
		MeanEffectiveLength:   s.MeanEffectiveLength,
		MinEffectiveLength:    s.MinEffectiveLength,
		MedianEffectiveLength: s.MedianEffectiveLength,
		MaxEffectiveLength:    s.MaxEffectiveLength,
		MeanProgramLength:     s.MeanProgramLength,
		Evaluations:           s.Evaluations,
	}
}
