package lgp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"lgp/internal/config"
	"lgp/internal/dataset"
	"lgp/internal/environment"
	"lgp/internal/evo"
	"lgp/internal/fitness"
	"lgp/internal/model"
	"lgp/internal/stats"
	"lgp/internal/storage"
	"lgp/internal/training"
)

const (
	defaultDBPath  = "lgp.db"
	defaultProblem = "quadratic"
)

var ErrTrainingNotFound = errors.New("training not found")

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	Logger       *slog.Logger
}

type Client struct {
	store        storage.Store
	initialized  bool
	artifactsDir string
	logger       *slog.Logger
}

// ModuleOptions tunes the module set returned by DefaultModules.
type ModuleOptions = evo.ModuleOptions

// DefaultModules wires every module role of the steady-state model.
func DefaultModules(opts ModuleOptions) *environment.Modules {
	return evo.DefaultModules(opts)
}

// TrainRequest describes one training. Dataset, when set, replaces the named
// problem's data.
type TrainRequest struct {
	Config      config.Configuration
	Problem     string
	Dataset     *dataset.Dataset
	TestDataset *dataset.Dataset
	Runs        int
	BaseSeed    *int64
	Workers     int
	Sequential  bool
	FailFast    bool
	CacheSize   int
	CSVPath     string
	OnProgress  func(training.Progress)
}

type TrainSummary struct {
	TrainingID         string
	Runs               int
	BaseSeed           int64
	BestRun            int
	BestFitness        float64
	AverageBestFitness float64
	TestFitness        *float64
	BestProgram        string
	EffectiveProgram   string
	Evaluations        int
	RunResults         []RunSummary
	// FinalStatistics is the last generation of the highest-numbered
	// successful run.
	FinalStatistics *evo.GenerationStatistics
	Failures        []training.RunError
	ArtifactsDir    string
	Duration        time.Duration
}

// RunSummary is the outcome of one run in run order.
type RunSummary struct {
	Run             int
	Seed            int64
	Failed          bool
	BestFitness     float64
	EffectiveLength int
	Generations     int
	Stopped         bool
}

type TrainingItem struct {
	ID           string
	CreatedAtUTC time.Time
	Runs         int
	BestFitness  float64
	Failures     int
}

type TrainingDetail struct {
	Training   model.TrainingRecord
	Evolutions []model.EvolutionRecord
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: opts.ArtifactsDir,
		logger:       logger,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	if err := c.Init(ctx); err != nil {
		return TrainSummary{}, err
	}
	if req.Runs == 0 {
		req.Runs = 1
	}

	ds, err := requestDataset(req)
	if err != nil {
		return TrainSummary{}, err
	}
	cfg := req.Config
	if cfg.NumFeatures != ds.NumFeatures() || cfg.NumOutputs != ds.NumOutputs() {
		return TrainSummary{}, fmt.Errorf("%w: dataset has %d features and %d outputs, configuration expects %d and %d",
			config.ErrConfigurationInvalid, ds.NumFeatures(), ds.NumOutputs(), cfg.NumFeatures, cfg.NumOutputs)
	}

	env, err := environment.New(cfg,
		environment.WithLogger(c.logger),
		environment.WithModules(DefaultModules(ModuleOptions{FitnessCacheSize: req.CacheSize})),
	)
	if err != nil {
		return TrainSummary{}, err
	}
	steady, err := evo.NewSteadyState(env)
	if err != nil {
		return TrainSummary{}, err
	}

	opts := training.Options{
		Runs:       req.Runs,
		BaseSeed:   req.BaseSeed,
		Workers:    req.Workers,
		FailFast:   req.FailFast,
		Logger:     c.logger,
		Store:      c.store,
		OnProgress: req.OnProgress,
	}
	var trainer training.Trainer
	if req.Sequential {
		trainer, err = training.NewSequentialTrainer(env, steady, opts)
	} else {
		trainer, err = training.NewDistributedTrainer(env, steady, opts)
	}
	if err != nil {
		return TrainSummary{}, err
	}

	result, err := trainer.Train(ctx, ds)
	if err != nil {
		return summarize(result), err
	}
	summary := summarize(result)

	if req.TestDataset != nil {
		if best, ok := result.Best(); ok {
			score, err := steady.Evaluate(ctx, best.Best.Program, *req.TestDataset)
			if err != nil {
				return summary, fmt.Errorf("evaluate test dataset: %w", err)
			}
			summary.TestFitness = &score
		}
	}

	if req.CSVPath != "" || c.artifactsDir != "" {
		record, evolutions, err := training.Records(cfg, result)
		if err != nil {
			return summary, err
		}
		if req.CSVPath != "" {
			if err := writeCSV(req.CSVPath, evolutions); err != nil {
				return summary, fmt.Errorf("write statistics csv: %w", err)
			}
		}
		if c.artifactsDir != "" {
			dir, err := stats.WriteArtifacts(c.artifactsDir, record, evolutions)
			if err != nil {
				return summary, fmt.Errorf("write artifacts: %w", err)
			}
			summary.ArtifactsDir = dir
		}
	}
	return summary, nil
}

// Trainings lists stored trainings, newest first.
func (c *Client) Trainings(ctx context.Context) ([]TrainingItem, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	records, err := c.store.ListTrainings(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TrainingItem, 0, len(records))
	for _, r := range records {
		out = append(out, TrainingItem{
			ID:           r.ID,
			CreatedAtUTC: r.CreatedAtUTC,
			Runs:         r.Runs,
			BestFitness:  float64(r.BestFitness),
			Failures:     len(r.Failures),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAtUTC.After(out[j].CreatedAtUTC) })
	return out, nil
}

// Show loads a training with its evolutions in run order.
func (c *Client) Show(ctx context.Context, id string) (TrainingDetail, error) {
	if id == "" {
		return TrainingDetail{}, errors.New("training id is required")
	}
	if err := c.Init(ctx); err != nil {
		return TrainingDetail{}, err
	}
	record, ok, err := c.store.GetTraining(ctx, id)
	if err != nil {
		return TrainingDetail{}, err
	}
	if !ok {
		return TrainingDetail{}, fmt.Errorf("%w: %s", ErrTrainingNotFound, id)
	}

	detail := TrainingDetail{Training: record}
	for _, evID := range record.EvolutionIDs {
		ev, ok, err := c.store.GetEvolution(ctx, evID)
		if err != nil {
			return TrainingDetail{}, err
		}
		if !ok {
			return TrainingDetail{}, fmt.Errorf("training %s references missing evolution %s", id, evID)
		}
		detail.Evolutions = append(detail.Evolutions, ev)
	}
	sort.Slice(detail.Evolutions, func(i, j int) bool { return detail.Evolutions[i].Run < detail.Evolutions[j].Run })
	return detail, nil
}

func requestDataset(req TrainRequest) (dataset.Dataset, error) {
	if req.Dataset != nil {
		return *req.Dataset, nil
	}
	name := req.Problem
	if name == "" {
		name = defaultProblem
	}
	problem, err := ResolveProblem(name)
	if err != nil {
		return dataset.Dataset{}, err
	}
	return problem.Dataset()
}

func summarize(result training.Result) TrainSummary {
	summary := TrainSummary{
		TrainingID:         result.ID,
		Runs:               len(result.Evolutions),
		BaseSeed:           result.BaseSeed,
		BestRun:            -1,
		BestFitness:        fitness.UndefinedFitness,
		AverageBestFitness: fitness.UndefinedFitness,
		Failures:           result.Failures,
		Duration:           result.Duration,
	}
	failed := make(map[int]bool, len(result.Failures))
	for _, f := range result.Failures {
		failed[f.Run] = true
	}

	var (
		total  float64
		scored int
	)
	for i, ev := range result.Evolutions {
		summary.Evaluations += ev.Evaluations
		run := RunSummary{Run: i, Seed: training.DeriveSeed(result.BaseSeed, i), Failed: failed[i], BestFitness: fitness.UndefinedFitness}
		if !run.Failed {
			run.Generations = ev.Generations
			run.Stopped = ev.Stopped
			if ev.Best.Evaluated {
				run.BestFitness = ev.Best.Fitness
				run.EffectiveLength = len(ev.Best.Program.Effective())
				total += ev.Best.Fitness
				scored++
			}
			if n := len(ev.Statistics); n > 0 {
				final := ev.Statistics[n-1]
				summary.FinalStatistics = &final
			}
		}
		summary.RunResults = append(summary.RunResults, run)
	}
	if scored > 0 {
		summary.AverageBestFitness = total / float64(scored)
	}
	if best, ok := result.Best(); ok {
		summary.BestRun = best.Run
		summary.BestFitness = best.Best.Fitness
		summary.BestProgram = best.Best.Program.String()
		summary.EffectiveProgram = best.Best.Program.EffectiveString()
	}
	return summary
}

func writeCSV(path string, evolutions []model.EvolutionRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := stats.WriteStatisticsCSV(file, evolutions); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
