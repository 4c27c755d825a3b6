package training

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lgp/internal/dataset"
	"lgp/internal/environment"
	"lgp/internal/evo"
	"lgp/internal/storage"
)

var (
	ErrInvalidRunCount = errors.New("number of runs must be at least 1")
	ErrModelRequired   = errors.New("model is required")
)

// Trainer performs several independent evolutions of one model.
type Trainer interface {
	Train(ctx context.Context, ds dataset.Dataset) (Result, error)
}

// Options configures a trainer. BaseSeed falls back to the configuration
// seed and then to the clock; per-run seeds are derived from it.
type Options struct {
	Runs       int
	BaseSeed   *int64
	Workers    int
	FailFast   bool
	Logger     *slog.Logger
	Store      storage.Store
	// OnProgress calls are serialized and must not block.
	OnProgress func(Progress)
}

// Progress is reported once per finished run.
type Progress struct {
	Run         int
	Completed   int
	Total       int
	BestFitness float64
	Err         error
}

func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return 100 * float64(p.Completed) / float64(p.Total)
}

// RunError reports a failed run.
type RunError struct {
	Run int
	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %d: %v", e.Run, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Result aggregates the runs of one training in run order. Failed runs leave
// a zero entry in Evolutions and a RunError in Failures.
type Result struct {
	ID         string
	BaseSeed   int64
	CreatedAt  time.Time
	Evolutions []evo.EvolutionResult
	Failures   []RunError
	Duration   time.Duration
}

// Succeeded returns the results of the runs that did not fail.
func (r Result) Succeeded() []evo.EvolutionResult {
	failed := make(map[int]struct{}, len(r.Failures))
	for _, f := range r.Failures {
		failed[f.Run] = struct{}{}
	}
	out := make([]evo.EvolutionResult, 0, len(r.Evolutions))
	for i, ev := range r.Evolutions {
		if _, ok := failed[i]; !ok {
			out = append(out, ev)
		}
	}
	return out
}

// Best returns the fittest best-ever individual over all successful runs.
func (r Result) Best() (evo.EvolutionResult, bool) {
	var (
		best  evo.EvolutionResult
		found bool
	)
	for _, ev := range r.Succeeded() {
		if !ev.Best.Evaluated {
			continue
		}
		if !found || ev.Best.Fitness < best.Best.Fitness {
			best, found = ev, true
		}
	}
	return best, found
}

// DeriveSeed mixes the base seed and run index with FNV-64a.
func DeriveSeed(base int64, run int) int64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(base))
	binary.LittleEndian.PutUint64(buf[8:], uint64(run))
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}

type trainer struct {
	env   *environment.Environment
	model evo.Model
	opts  Options
}

// DistributedTrainer runs evolutions concurrently on a bounded pool.
type DistributedTrainer struct {
	trainer
}

// SequentialTrainer runs evolutions one after another.
type SequentialTrainer struct {
	trainer
}

func NewDistributedTrainer(env *environment.Environment, model evo.Model, opts Options) (*DistributedTrainer, error) {
	t, err := newTrainer(env, model, opts)
	if err != nil {
		return nil, err
	}
	if t.opts.Workers <= 0 {
		t.opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &DistributedTrainer{trainer: t}, nil
}

func NewSequentialTrainer(env *environment.Environment, model evo.Model, opts Options) (*SequentialTrainer, error) {
	t, err := newTrainer(env, model, opts)
	if err != nil {
		return nil, err
	}
	t.opts.Workers = 1
	return &SequentialTrainer{trainer: t}, nil
}

func newTrainer(env *environment.Environment, model evo.Model, opts Options) (trainer, error) {
	if opts.Runs < 1 {
		return trainer{}, fmt.Errorf("%w: got %d", ErrInvalidRunCount, opts.Runs)
	}
	if model == nil {
		return trainer{}, ErrModelRequired
	}
	if env == nil {
		return trainer{}, fmt.Errorf("%w: environment is required", evo.ErrNotInitialised)
	}
	if opts.Logger == nil {
		opts.Logger = env.Logger()
	}
	return trainer{env: env, model: model, opts: opts}, nil
}

func (t *trainer) Train(ctx context.Context, ds dataset.Dataset) (Result, error) {
	return t.execute(ctx, ds, nil)
}

// TrainAsync starts the training in the background.
func (t *trainer) TrainAsync(ctx context.Context, ds dataset.Dataset) *Job {
	return startJob(ctx, t, ds)
}

func (t *trainer) baseSeed() int64 {
	if t.opts.BaseSeed != nil {
		return *t.opts.BaseSeed
	}
	if seed := t.env.Config().Seed; seed != nil {
		return *seed
	}
	return time.Now().UnixNano()
}

// execute runs every evolution. controls, when set, holds one control channel
// per run.
func (t *trainer) execute(ctx context.Context, ds dataset.Dataset, controls []chan evo.MonitorCommand) (Result, error) {
	runs := t.opts.Runs
	result := Result{
		ID:         uuid.NewString(),
		BaseSeed:   t.baseSeed(),
		CreatedAt:  time.Now().UTC(),
		Evolutions: make([]evo.EvolutionResult, runs),
	}
	logger := t.opts.Logger.With(slog.String("training_id", result.ID))
	logger.Info("training_started",
		slog.Int("runs", runs),
		slog.Int("workers", t.opts.Workers),
		slog.Int64("base_seed", result.BaseSeed),
	)
	started := time.Now()

	var g *errgroup.Group
	runCtx := ctx
	if t.opts.FailFast {
		g, runCtx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	g.SetLimit(t.opts.Workers)

	var (
		mu        sync.Mutex
		completed int
		failures  []RunError
	)
	for run := 0; run < runs; run++ {
		var control <-chan evo.MonitorCommand
		if controls != nil {
			control = controls[run]
		}
		g.Go(func() error {
			seed := DeriveSeed(result.BaseSeed, run)
			ev, err := t.model.Clone().Train(runCtx, ds, evo.RunOptions{
				Seed:              seed,
				Control:           control,
				Logger:            logger.With(slog.Int("run", run)),
				EvaluationWorkers: t.env.Config().Workers,
			})
			ev.Run = run

			mu.Lock()
			result.Evolutions[run] = ev
			completed++
			progress := Progress{Run: run, Completed: completed, Total: runs, BestFitness: ev.Best.Fitness, Err: err}
			if err != nil {
				failures = append(failures, RunError{Run: run, Err: err})
			}
			if t.opts.OnProgress != nil {
				t.opts.OnProgress(progress)
			}
			mu.Unlock()

			if err != nil {
				logger.Error("run_failed", slog.Int("run", run), slog.Int64("seed", seed), slog.String("error", err.Error()))
			} else {
				logger.Info("run_complete",
					slog.Int("run", run),
					slog.Float64("best_fitness", ev.Best.Fitness),
					slog.Int("generations", ev.Generations),
				)
			}
			if err != nil && t.opts.FailFast {
				return &RunError{Run: run, Err: err}
			}
			return nil
		})
	}
	waitErr := g.Wait()

	sortFailures(failures)
	result.Failures = failures
	result.Duration = time.Since(started)

	if t.opts.Store != nil {
		if err := persist(ctx, t.opts.Store, t.env.Config(), result); err != nil {
			return result, fmt.Errorf("persist training %s: %w", result.ID, err)
		}
	}
	if waitErr != nil {
		return result, waitErr
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(failures) == runs {
		return result, fmt.Errorf("all %d runs failed: %w", runs, &failures[0])
	}

	logger.Info("training_complete",
		slog.Int("failures", len(failures)),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func sortFailures(failures []RunError) {
	sort.Slice(failures, func(i, j int) bool { return failures[i].Run < failures[j].Run })
}
