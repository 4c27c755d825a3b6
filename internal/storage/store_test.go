package storage

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"lgp/internal/model"
)

func sampleTraining(id string, created time.Time) model.TrainingRecord {
	seed := int64(42)
	return model.TrainingRecord{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		CreatedAtUTC:    created,
		Runs:            2,
		BaseSeed:        &seed,
		Config:          []byte(`{"population_size":4}`),
		EvolutionIDs:    []string{id + "-0", id + "-1"},
		BestFitness:     0.5,
		Failures:        []model.FailureRecord{{Run: 1, Error: "boom"}},
	}
}

func sampleEvolution(id, trainingID string) model.EvolutionRecord {
	return model.EvolutionRecord{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		TrainingID:      trainingID,
		Run:             0,
		Seed:            7,
		BestFitness:     model.Score(math.Inf(1)),
		BestProgram: model.ProgramRecord{
			Fingerprint: "abc",
			Length:      3,
			Source:      "r[1] = r[0] + r[2]",
			Constants:   []float64{0, 1},
		},
		Generations: 1,
		Statistics: []model.StatisticsRecord{
			{Generation: 1, BestFitness: 1, MeanFitness: model.Score(math.Inf(1)), WorstFitness: model.Score(math.Inf(1))},
		},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	later := sampleTraining("b-training", base.Add(time.Minute))
	earlier := sampleTraining("a-training", base)
	for _, training := range []model.TrainingRecord{later, earlier} {
		if err := store.SaveTraining(ctx, training); err != nil {
			t.Fatalf("save training %s: %v", training.ID, err)
		}
	}

	got, ok, err := store.GetTraining(ctx, "a-training")
	if err != nil {
		t.Fatalf("get training: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted training")
	}
	if got.Runs != 2 || got.BaseSeed == nil || *got.BaseSeed != 42 || len(got.EvolutionIDs) != 2 || len(got.Failures) != 1 {
		t.Fatalf("unexpected training: %+v", got)
	}
	if !got.CreatedAtUTC.Equal(base) {
		t.Fatalf("created time changed: %v", got.CreatedAtUTC)
	}

	if _, ok, err := store.GetTraining(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing training, ok=%v err=%v", ok, err)
	}

	list, err := store.ListTrainings(ctx)
	if err != nil {
		t.Fatalf("list trainings: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a-training" || list[1].ID != "b-training" {
		t.Fatalf("expected trainings oldest first, got %+v", list)
	}

	evolution := sampleEvolution("a-training-0", "a-training")
	if err := store.SaveEvolution(ctx, evolution); err != nil {
		t.Fatalf("save evolution: %v", err)
	}
	gotEvolution, ok, err := store.GetEvolution(ctx, "a-training-0")
	if err != nil {
		t.Fatalf("get evolution: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted evolution")
	}
	if !math.IsInf(float64(gotEvolution.BestFitness), 1) {
		t.Fatalf("undefined best fitness not preserved: %v", gotEvolution.BestFitness)
	}
	if gotEvolution.BestProgram.Source != evolution.BestProgram.Source || len(gotEvolution.Statistics) != 1 {
		t.Fatalf("unexpected evolution: %+v", gotEvolution)
	}
	if _, ok, err := store.GetEvolution(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing evolution, ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	training := sampleTraining("t1", time.Now().UTC())
	if err := store.SaveTraining(ctx, training); err != nil {
		t.Fatalf("save training: %v", err)
	}
	training.EvolutionIDs[0] = "mutated"

	got, _, err := store.GetTraining(ctx, "t1")
	if err != nil {
		t.Fatalf("get training: %v", err)
	}
	if got.EvolutionIDs[0] != "t1-0" {
		t.Fatalf("store shares caller slices: %v", got.EvolutionIDs)
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveTraining(context.Background(), sampleTraining("t1", time.Now())); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store := NewBadgerStore(BadgerOptions{InMemory: true})
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := NewBadgerStore(BadgerOptions{Path: dir, SyncWrites: true})
	if err := first.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := first.SaveTraining(ctx, sampleTraining("t1", time.Now().UTC())); err != nil {
		t.Fatalf("save training: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := NewBadgerStore(BadgerOptions{Path: dir})
	if err := second.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })
	if _, ok, err := second.GetTraining(ctx, "t1"); err != nil || !ok {
		t.Fatalf("expected training after reopen, ok=%v err=%v", ok, err)
	}
}

func TestBadgerStoreRequiresInit(t *testing.T) {
	store := NewBadgerStore(BadgerOptions{InMemory: true})
	if _, _, err := store.GetTraining(context.Background(), "t1"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}
