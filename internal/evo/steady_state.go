package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lgp/internal/config"
	"lgp/internal/dataset"
	"lgp/internal/environment"
	"lgp/internal/fitness"
	"lgp/internal/program"
)

var (
	ErrNotInitialised = errors.New("model not initialised")
	ErrModelRunning   = errors.New("model is already running")
	ErrNotTrained     = errors.New("model has not been trained")
)

// MonitorCommand controls a running model between generations.
type MonitorCommand string

const (
	CommandPause    MonitorCommand = "pause"
	CommandContinue MonitorCommand = "continue"
	CommandStop     MonitorCommand = "stop"
)

type State int

const (
	Uninitialized State = iota
	Initialized
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Model is an evolutionary model that can be trained and cloned for
// independent runs.
type Model interface {
	Train(ctx context.Context, ds dataset.Dataset, opts RunOptions) (EvolutionResult, error)
	Test(ctx context.Context, ds dataset.Dataset) (float64, error)
	Evaluate(ctx context.Context, p program.Program, ds dataset.Dataset) (float64, error)
	Clone() Model
	State() State
}

// RunOptions configures one Train call. Control is polled between
// generations.
type RunOptions struct {
	Seed              int64
	Control           <-chan MonitorCommand
	Logger            *slog.Logger
	OnGeneration      func(GenerationStatistics)
	EvaluationWorkers int
}

// EvolutionResult is the outcome of one run.
type EvolutionResult struct {
	Run             int
	Seed            int64
	Best            Individual
	Statistics      []GenerationStatistics
	FinalPopulation []Individual
	Generations     int
	Evaluations     int
	Stopped         bool
	Duration        time.Duration
}

type components struct {
	programs   program.ProgramGenerator
	selector   Selector
	recombiner Recombiner
	macro      Mutator
	micro      Mutator
	fitness    fitness.Context
}

func resolveComponents(env *environment.Environment) (components, error) {
	var (
		parts components
		err   error
	)
	// Every role must be registered, including ones only other modules consume.
	if _, err = environment.Resolve[program.InstructionGenerator](env, environment.InstructionGenerator); err != nil {
		return components{}, err
	}
	if parts.programs, err = environment.Resolve[program.ProgramGenerator](env, environment.ProgramGenerator); err != nil {
		return components{}, err
	}
	if parts.selector, err = environment.Resolve[Selector](env, environment.SelectionOperator); err != nil {
		return components{}, err
	}
	if parts.recombiner, err = environment.Resolve[Recombiner](env, environment.RecombinationOperator); err != nil {
		return components{}, err
	}
	if parts.macro, err = environment.Resolve[Mutator](env, environment.MacroMutationOperator); err != nil {
		return components{}, err
	}
	if parts.micro, err = environment.Resolve[Mutator](env, environment.MicroMutationOperator); err != nil {
		return components{}, err
	}
	if parts.fitness, err = environment.Resolve[fitness.Context](env, environment.FitnessContext); err != nil {
		return components{}, err
	}
	return parts, nil
}

// SteadyState replaces a few individuals per generation. The zero value is
// uninitialized.
type SteadyState struct {
	mu    sync.Mutex
	state State
	env   *environment.Environment
	parts components
	best  *Individual
}

func NewSteadyState(env *environment.Environment) (*SteadyState, error) {
	m := &SteadyState{}
	if err := m.Initialise(env); err != nil {
		return nil, err
	}
	return m, nil
}

// Initialise binds the model to env and resolves every module it needs.
func (m *SteadyState) Initialise(env *environment.Environment) error {
	if env == nil {
		return fmt.Errorf("%w: environment is required", ErrNotInitialised)
	}
	parts, err := resolveComponents(env)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Running {
		return ErrModelRunning
	}
	m.env = env
	m.parts = parts
	m.state = Initialized
	m.best = nil
	return nil
}

func (m *SteadyState) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Clone returns an independent model bound to the same environment. Operators
// and fitness contexts are stateless and shared.
func (m *SteadyState) Clone() Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Uninitialized {
		return &SteadyState{}
	}
	return &SteadyState{state: Initialized, env: m.env, parts: m.parts}
}

// Best returns the best-ever individual of the last run.
func (m *SteadyState) Best() (Individual, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.best == nil {
		return Individual{}, false
	}
	return *m.best, true
}

// Test scores the best-ever program of the last run on ds.
func (m *SteadyState) Test(ctx context.Context, ds dataset.Dataset) (float64, error) {
	m.mu.Lock()
	state, best := m.state, m.best
	m.mu.Unlock()

	if state == Uninitialized {
		return fitness.UndefinedFitness, ErrNotInitialised
	}
	if best == nil {
		return fitness.UndefinedFitness, ErrNotTrained
	}
	return m.Evaluate(ctx, best.Program, ds)
}

// Evaluate scores p on ds with the model's fitness context. Trainers run
// clones, so callers holding only the prototype use this to score a run's best
// program on held-out data.
func (m *SteadyState) Evaluate(ctx context.Context, p program.Program, ds dataset.Dataset) (float64, error) {
	m.mu.Lock()
	state, fc := m.state, m.parts.fitness
	m.mu.Unlock()

	if state == Uninitialized {
		return fitness.UndefinedFitness, ErrNotInitialised
	}
	return fc.Evaluate(ctx, p, ds)
}

// Train runs one evolution. Context cancellation returns the partial result
// with ctx.Err(); CommandStop returns it with Stopped set.
func (m *SteadyState) Train(ctx context.Context, ds dataset.Dataset, opts RunOptions) (EvolutionResult, error) {
	m.mu.Lock()
	switch m.state {
	case Uninitialized:
		m.mu.Unlock()
		return EvolutionResult{}, ErrNotInitialised
	case Running:
		m.mu.Unlock()
		return EvolutionResult{}, ErrModelRunning
	}
	m.state = Running
	env, parts := m.env, m.parts
	m.mu.Unlock()

	logger := opts.Logger
	if logger == nil {
		logger = env.Logger()
	}
	cfg := env.Config()
	workers := opts.EvaluationWorkers
	if workers <= 0 {
		workers = 1
	}

	ctx, span := tracer.Start(ctx, "evo.SteadyState.Train",
		trace.WithAttributes(
			attribute.Int64("seed", opts.Seed),
			attribute.Int("population_size", cfg.PopulationSize),
			attribute.Int("generations", cfg.Generations),
		),
	)
	defer span.End()
	runsActive.Inc()
	defer runsActive.Dec()

	r := &run{
		cfg:          cfg,
		parts:        parts,
		rng:          rand.New(rand.NewSource(opts.Seed)),
		ds:           ds,
		workers:      workers,
		logger:       logger,
		control:      opts.Control,
		onGeneration: opts.OnGeneration,
	}
	started := time.Now()
	result, err := r.execute(ctx)
	result.Seed = opts.Seed
	result.Duration = time.Since(started)

	m.mu.Lock()
	m.state = Terminated
	if result.Best.Evaluated {
		best := result.Best
		m.best = &best
	}
	m.mu.Unlock()

	span.SetAttributes(
		attribute.Int("generations_completed", result.Generations),
		attribute.Int("evaluations", result.Evaluations),
		attribute.Bool("stopped", result.Stopped),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		return result, err
	}
	runBestFitness.Observe(result.Best.Fitness)
	span.SetStatus(codes.Ok, "run complete")
	return result, nil
}

// run is the per-invocation state of Train. It is confined to one goroutine
// apart from the evaluation worker pool, which only reads programs.
type run struct {
	cfg          config.Configuration
	parts        components
	rng          *rand.Rand
	ds           dataset.Dataset
	workers      int
	logger       *slog.Logger
	control      <-chan MonitorCommand
	onGeneration func(GenerationStatistics)

	population  *Population
	best        Individual
	stats       []GenerationStatistics
	evaluations int
	nextID      int
}

func (r *run) result(stopped bool) EvolutionResult {
	out := EvolutionResult{
		Best:        r.best,
		Statistics:  r.stats,
		Generations: len(r.stats),
		Evaluations: r.evaluations,
		Stopped:     stopped,
	}
	if r.population != nil {
		out.FinalPopulation = r.population.Snapshot()
	}
	return out
}

func (r *run) execute(ctx context.Context) (EvolutionResult, error) {
	individuals := make([]Individual, r.cfg.PopulationSize)
	for i := range individuals {
		individuals[i] = newIndividual(r.newID(0), r.parts.programs.Generate(r.rng), 0)
	}
	r.population = NewPopulation(individuals)
	if err := r.evaluatePending(ctx); err != nil {
		return r.result(false), err
	}
	r.logger.Debug("population_initialised",
		slog.Int("population_size", r.population.Len()),
		slog.Float64("best_fitness", r.best.Fitness),
	)

	for gen := 1; gen <= r.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return r.result(false), err
		}
		stop, err := r.awaitControl(ctx)
		if err != nil {
			return r.result(false), err
		}
		if stop {
			r.logger.Info("run_stopped", slog.Int("generation", gen-1))
			return r.result(true), nil
		}

		if err := r.step(ctx, gen); err != nil {
			return r.result(false), err
		}
		stats := summarizeGeneration(r.population.Snapshot(), gen, r.best.Fitness, r.evaluations)
		r.stats = append(r.stats, stats)
		generationsTotal.Inc()
		if r.onGeneration != nil {
			r.onGeneration(stats)
		}

		if r.best.Fitness <= r.cfg.StoppingCriterion {
			r.logger.Info("stopping_criterion_reached",
				slog.Int("generation", gen),
				slog.Float64("best_fitness", r.best.Fitness),
			)
			break
		}
	}
	return r.result(false), nil
}

// step runs selection, variation, evaluation and replacement for one
// generation. Operator failures make the generation a no-op.
func (r *run) step(ctx context.Context, gen int) error {
	pool := r.population.Snapshot()
	sel, err := r.parts.selector.Select(r.rng, pool)
	if err != nil || len(sel.Parents) != len(sel.Vacated) {
		if err == nil {
			err = fmt.Errorf("selection returned %d parents for %d vacated slots", len(sel.Parents), len(sel.Vacated))
		}
		r.logger.Warn("selection_skipped", slog.Int("generation", gen), slog.String("error", err.Error()))
		operatorNoopsTotal.WithLabelValues(r.parts.selector.Name()).Inc()
		r.population.age()
		return nil
	}

	offspring := r.vary(pool, sel.Parents)
	scores, err := evaluatePrograms(ctx, r.parts.fitness, offspring, r.ds, r.workers)
	if err != nil {
		return fmt.Errorf("generation %d: evaluate offspring: %w", gen, err)
	}
	r.evaluations += len(offspring)

	r.population.age()
	for i, slot := range sel.Vacated {
		child := newIndividual(r.newID(gen), offspring[i], gen)
		child.Fitness = scores[i]
		child.Evaluated = true
		r.population.Replace(slot, child)
		r.observe(child)
	}
	return nil
}

// vary turns parent slots into offspring programs: pairwise crossover, then
// macro and micro mutation, each applied with its configured rate.
func (r *run) vary(pool []Individual, parents []int) []program.Program {
	offspring := make([]program.Program, 0, len(parents))
	for i := 0; i < len(parents); i += 2 {
		mother := pool[parents[i]].Program
		if i+1 == len(parents) {
			offspring = append(offspring, mother.Clone())
			break
		}
		father := pool[parents[i+1]].Program
		if r.rng.Float64() < r.cfg.CrossoverRate {
			a, b := r.parts.recombiner.Combine(r.rng, mother, father)
			offspring = append(offspring, a, b)
		} else {
			offspring = append(offspring, mother.Clone(), father.Clone())
		}
	}

	for i := range offspring {
		if r.rng.Float64() < r.cfg.MacroMutationRate {
			offspring[i] = r.parts.macro.Mutate(r.rng, offspring[i])
		}
		if r.rng.Float64() < r.cfg.MicroMutationRate {
			offspring[i] = r.parts.micro.Mutate(r.rng, offspring[i])
		}
	}
	return offspring
}

func (r *run) evaluatePending(ctx context.Context) error {
	pending := r.population.Unevaluated()
	programs := make([]program.Program, len(pending))
	for i, slot := range pending {
		programs[i] = r.population.At(slot).Program
	}
	scores, err := evaluatePrograms(ctx, r.parts.fitness, programs, r.ds, r.workers)
	if err != nil {
		return fmt.Errorf("evaluate initial population: %w", err)
	}
	r.evaluations += len(pending)
	for i, slot := range pending {
		r.population.Score(slot, scores[i])
		r.observe(r.population.At(slot))
	}
	return nil
}

// observe keeps the best-ever individual independent of population membership.
func (r *run) observe(ind Individual) {
	if !r.best.Evaluated || ind.Fitness < r.best.Fitness {
		r.best = ind
	}
}

// awaitControl drains one pending command. A pause blocks until continue,
// stop, channel close or context cancellation.
func (r *run) awaitControl(ctx context.Context) (bool, error) {
	if r.control == nil {
		return false, nil
	}
	select {
	case cmd, ok := <-r.control:
		if !ok {
			r.control = nil
			return false, nil
		}
		switch cmd {
		case CommandStop:
			return true, nil
		case CommandPause:
			r.logger.Info("run_paused")
			return r.waitResume(ctx)
		}
	default:
	}
	return false, nil
}

func (r *run) waitResume(ctx context.Context) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case cmd, ok := <-r.control:
			if !ok {
				r.control = nil
				return false, nil
			}
			switch cmd {
			case CommandContinue:
				r.logger.Info("run_resumed")
				return false, nil
			case CommandStop:
				return true, nil
			}
		}
	}
}

func (r *run) newID(gen int) string {
	r.nextID++
	return fmt.Sprintf("g%d-i%d", gen, r.nextID)
}
