package storage

import (
	"context"

	"lgp/internal/model"
)

// Store defines the persistence operations for training results.
type Store interface {
	Init(ctx context.Context) error
	SaveTraining(ctx context.Context, training model.TrainingRecord) error
	GetTraining(ctx context.Context, id string) (model.TrainingRecord, bool, error)
	// ListTrainings returns every training, oldest first.
	ListTrainings(ctx context.Context) ([]model.TrainingRecord, error)
	SaveEvolution(ctx context.Context, evolution model.EvolutionRecord) error
	GetEvolution(ctx context.Context, id string) (model.EvolutionRecord, bool, error)
}
