package storage

import (
	"context"
	"errors"
	"sync"

	"lgp/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	trainings   map[string]model.TrainingRecord
	evolutions  map[string]model.EvolutionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.trainings = make(map[string]model.TrainingRecord)
	s.evolutions = make(map[string]model.EvolutionRecord)
	return nil
}

func (s *MemoryStore) SaveTraining(_ context.Context, training model.TrainingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.trainings[training.ID] = copyTraining(training)
	return nil
}

func (s *MemoryStore) GetTraining(_ context.Context, id string) (model.TrainingRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	training, ok := s.trainings[id]
	if !ok {
		return model.TrainingRecord{}, false, nil
	}
	return copyTraining(training), true, nil
}

func (s *MemoryStore) ListTrainings(_ context.Context) ([]model.TrainingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TrainingRecord, 0, len(s.trainings))
	for _, training := range s.trainings {
		out = append(out, copyTraining(training))
	}
	sortTrainings(out)
	return out, nil
}

func (s *MemoryStore) SaveEvolution(_ context.Context, evolution model.EvolutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.evolutions[evolution.ID] = copyEvolution(evolution)
	return nil
}

func (s *MemoryStore) GetEvolution(_ context.Context, id string) (model.EvolutionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evolution, ok := s.evolutions[id]
	if !ok {
		return model.EvolutionRecord{}, false, nil
	}
	return copyEvolution(evolution), true, nil
}

func copyTraining(t model.TrainingRecord) model.TrainingRecord {
	t.EvolutionIDs = append([]string(nil), t.EvolutionIDs...)
	t.Failures = append([]model.FailureRecord(nil), t.Failures...)
	t.Config = append([]byte(nil), t.Config...)
	if t.BaseSeed != nil {
		seed := *t.BaseSeed
		t.BaseSeed = &seed
	}
	return t
}

func copyEvolution(e model.EvolutionRecord) model.EvolutionRecord {
	e.Statistics = append([]model.StatisticsRecord(nil), e.Statistics...)
	e.BestProgram.Constants = append([]float64(nil), e.BestProgram.Constants...)
	return e
}
