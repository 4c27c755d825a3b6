package lgp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lgp/internal/config"
	"lgp/internal/dataset"
	"lgp/internal/stats"
	"lgp/internal/training"
)

func smallConfig() config.Configuration {
	cfg := config.Default()
	cfg.InitialMinimumProgramLength = 2
	cfg.InitialMaximumProgramLength = 8
	cfg.MinimumProgramLength = 1
	cfg.MaximumProgramLength = 20
	cfg.PopulationSize = 20
	cfg.Generations = 5
	cfg.NumOffspring = 4
	cfg.StoppingCriterion = -1
	return cfg
}

func seed(v int64) *int64 {
	return &v
}

func TestClientTrainTrainingsAndShow(t *testing.T) {
	base := t.TempDir()
	client, err := New(Options{StoreKind: "memory", ArtifactsDir: filepath.Join(base, "artifacts")})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	var updates int
	csvPath := filepath.Join(base, "stats.csv")
	summary, err := client.Train(context.Background(), TrainRequest{
		Config:     smallConfig(),
		Problem:    "quadratic",
		Runs:       2,
		BaseSeed:   seed(42),
		Workers:    2,
		CSVPath:    csvPath,
		OnProgress: func(training.Progress) { updates++ },
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if summary.TrainingID == "" || summary.Runs != 2 || summary.BestRun < 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.BestProgram == "" || summary.EffectiveProgram == "" {
		t.Fatal("expected best program rendering")
	}
	if updates != 2 {
		t.Fatalf("expected 2 progress updates, got %d", updates)
	}

	file, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()
	rows, err := stats.ReadStatisticsCSV(file)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 2 runs x 5 generations, got %d rows", len(rows))
	}
	if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, "summary.json")); err != nil {
		t.Fatalf("expected summary artifact: %v", err)
	}

	items, err := client.Trainings(context.Background())
	if err != nil {
		t.Fatalf("trainings: %v", err)
	}
	if len(items) != 1 || items[0].ID != summary.TrainingID || items[0].BestFitness != summary.BestFitness {
		t.Fatalf("unexpected trainings: %+v", items)
	}

	detail, err := client.Show(context.Background(), summary.TrainingID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if len(detail.Evolutions) != 2 || detail.Evolutions[0].Run != 0 || detail.Evolutions[1].Run != 1 {
		t.Fatalf("unexpected evolutions: %+v", detail.Evolutions)
	}
}

func TestClientTrainRejectsNegativeRuns(t *testing.T) {
	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	summary, err := client.Train(context.Background(), TrainRequest{Config: smallConfig(), Runs: -3, BaseSeed: seed(1)})
	if !errors.Is(err, training.ErrInvalidRunCount) {
		t.Fatalf("expected ErrInvalidRunCount, got %v", err)
	}
	if summary.Runs != 0 {
		t.Fatalf("expected no runs, got %d", summary.Runs)
	}
	items, err := client.Trainings(context.Background())
	if err != nil {
		t.Fatalf("trainings: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected nothing stored, got %+v", items)
	}
}

func TestClientTrainSummarizesEveryRun(t *testing.T) {
	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	summary, err := client.Train(context.Background(), TrainRequest{
		Config:     smallConfig(),
		Runs:       3,
		BaseSeed:   seed(5),
		Sequential: true,
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if len(summary.RunResults) != 3 {
		t.Fatalf("expected 3 run results, got %d", len(summary.RunResults))
	}
	var total float64
	for i, run := range summary.RunResults {
		if run.Run != i || run.Failed {
			t.Fatalf("unexpected run result %d: %+v", i, run)
		}
		if run.Seed != training.DeriveSeed(5, i) {
			t.Fatalf("run %d: seed %d, want %d", i, run.Seed, training.DeriveSeed(5, i))
		}
		if run.Generations != 5 || run.Stopped {
			t.Fatalf("run %d: unexpected result %+v", i, run)
		}
		if run.BestFitness < summary.BestFitness {
			t.Fatalf("run %d beats the overall best: %v < %v", i, run.BestFitness, summary.BestFitness)
		}
		total += run.BestFitness
	}
	if want := total / 3; summary.AverageBestFitness != want {
		t.Fatalf("average best fitness %v, want %v", summary.AverageBestFitness, want)
	}
	if summary.FinalStatistics == nil || summary.FinalStatistics.Generation != 5 {
		t.Fatalf("expected final statistics of the last run, got %+v", summary.FinalStatistics)
	}
}

func TestClientShowMissingTraining(t *testing.T) {
	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Show(context.Background(), "nope"); !errors.Is(err, ErrTrainingNotFound) {
		t.Fatalf("expected ErrTrainingNotFound, got %v", err)
	}
}

func TestClientTrainRejectsMismatchedDataset(t *testing.T) {
	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ds, err := dataset.New(
		[]dataset.Sample{dataset.NewSample(1, 2)},
		[]dataset.Target{dataset.Single(3)},
	)
	if err != nil {
		t.Fatalf("new dataset: %v", err)
	}
	_, err = client.Train(context.Background(), TrainRequest{Config: smallConfig(), Dataset: &ds})
	if !errors.Is(err, config.ErrConfigurationInvalid) {
		t.Fatalf("expected ErrConfigurationInvalid, got %v", err)
	}
}

func TestClientTrainWithTestDataset(t *testing.T) {
	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	problem, err := ResolveProblem("sextic")
	if err != nil {
		t.Fatalf("resolve problem: %v", err)
	}
	ds, err := problem.Dataset()
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	train, test, err := ds.Split(0.75)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	summary, err := client.Train(context.Background(), TrainRequest{
		Config:      smallConfig(),
		Dataset:     &train,
		TestDataset: &test,
		BaseSeed:    seed(1),
		Sequential:  true,
		CacheSize:   128,
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if summary.TestFitness == nil {
		t.Fatal("expected test fitness")
	}
}

func TestResolveProblem(t *testing.T) {
	for _, name := range Problems() {
		p, err := ResolveProblem(name)
		if err != nil {
			t.Fatalf("resolve %s: %v", name, err)
		}
		ds, err := p.Dataset()
		if err != nil {
			t.Fatalf("%s dataset: %v", name, err)
		}
		if ds.Len() == 0 || ds.NumFeatures() != 1 {
			t.Fatalf("%s: unexpected dataset shape", name)
		}
	}
	quadratic, _ := ResolveProblem("quadratic")
	ds, _ := quadratic.Dataset()
	if ds.Len() != 41 {
		t.Fatalf("expected 41 quadratic samples, got %d", ds.Len())
	}
	if _, err := ResolveProblem("cubic"); !errors.Is(err, ErrUnknownProblem) {
		t.Fatalf("expected ErrUnknownProblem, got %v", err)
	}
}
