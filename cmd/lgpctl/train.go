package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"lgp/internal/config"
	"lgp/internal/training"
	"lgp/pkg/lgp"
)

type trainFlags struct {
	configPath   string
	problem      string
	runs         int
	seed         int64
	workers      int
	sequential   bool
	failFast     bool
	cacheSize    int
	generations  int
	population   int
	csvPath      string
	artifactsDir string
	metricsAddr  string
}

func (c *cli) newTrainCmd() *cobra.Command {
	var f trainFlags
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Evolve programs for a problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runTrain(cmd, f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML or JSON configuration file")
	fs.StringVar(&f.problem, "problem", "quadratic", "built-in problem name")
	fs.IntVar(&f.runs, "runs", 1, "number of independent runs")
	fs.Int64Var(&f.seed, "seed", 0, "base seed; runs derive their own seeds from it")
	fs.IntVar(&f.workers, "workers", 0, "concurrent runs (0 uses GOMAXPROCS)")
	fs.BoolVar(&f.sequential, "sequential", false, "train runs one after another")
	fs.BoolVar(&f.failFast, "fail-fast", false, "cancel remaining runs after the first failure")
	fs.IntVar(&f.cacheSize, "cache-size", 0, "fitness cache entries shared by all runs (0 disables)")
	fs.IntVar(&f.generations, "generations", 0, "override configured generations")
	fs.IntVar(&f.population, "population", 0, "override configured population size")
	fs.StringVar(&f.csvPath, "csv", "", "write per-generation statistics to this CSV file")
	fs.StringVar(&f.artifactsDir, "artifacts-dir", "", "write summary artifacts under this directory")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while training")
	return cmd
}

func (c *cli) runTrain(cmd *cobra.Command, f trainFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.generations > 0 {
		cfg.Generations = f.generations
	}
	if f.population > 0 {
		cfg.PopulationSize = f.population
	}

	problem, err := lgp.ResolveProblem(f.problem)
	if err != nil {
		return err
	}
	ds, err := problem.Dataset()
	if err != nil {
		return err
	}
	cfg.NumFeatures = ds.NumFeatures()
	cfg.NumOutputs = ds.NumOutputs()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if f.metricsAddr != "" {
		shutdown, err := c.serveMetrics(f.metricsAddr)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	client, err := c.newClient(f.artifactsDir)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	req := lgp.TrainRequest{
		Config:     cfg,
		Problem:    problem.Name,
		Dataset:    &ds,
		Runs:       f.runs,
		Workers:    f.workers,
		Sequential: f.sequential,
		FailFast:   f.failFast,
		CacheSize:  f.cacheSize,
		CSVPath:    f.csvPath,
		OnProgress: progressPrinter(out),
	}
	if cmd.Flags().Changed("seed") {
		seed := f.seed
		req.BaseSeed = &seed
	}

	summary, err := client.Train(ctx, req)
	if err != nil {
		return err
	}
	printSummary(out, summary)
	return nil
}

func progressPrinter(out io.Writer) func(training.Progress) {
	return func(p training.Progress) {
		if p.Err != nil {
			fmt.Fprintf(out, "run=%d failed progress=%.0f%% err=%v\n", p.Run, p.Percent(), p.Err)
			return
		}
		fmt.Fprintf(out, "run=%d best_fitness=%.6g progress=%.0f%%\n", p.Run, p.BestFitness, p.Percent())
	}
}

func printSummary(out io.Writer, s lgp.TrainSummary) {
	fmt.Fprintf(out, "training_id=%s runs=%d base_seed=%d\n", s.TrainingID, s.Runs, s.BaseSeed)
	for _, r := range s.RunResults {
		if r.Failed {
			fmt.Fprintf(out, "result run=%d seed=%d failed\n", r.Run, r.Seed)
			continue
		}
		fmt.Fprintf(out, "result run=%d seed=%d best_fitness=%.6g effective_length=%d generations=%d stopped=%t\n",
			r.Run, r.Seed, r.BestFitness, r.EffectiveLength, r.Generations, r.Stopped)
	}
	if s.BestRun >= 0 {
		fmt.Fprintf(out, "best_run=%d best_fitness=%.6g average_best_fitness=%.6g\n", s.BestRun, s.BestFitness, s.AverageBestFitness)
	}
	if s.TestFitness != nil {
		fmt.Fprintf(out, "test_fitness=%.6g\n", *s.TestFitness)
	}
	if st := s.FinalStatistics; st != nil {
		fmt.Fprintf(out, "final_statistics generation=%d best=%.6g mean=%.6g worst=%.6g mean_effective_length=%.3g mean_program_length=%.3g\n",
			st.Generation, st.BestFitness, st.MeanFitness, st.WorstFitness, st.MeanEffectiveLength, st.MeanProgramLength)
	}
	fmt.Fprintf(out, "evaluations=%s duration=%s failures=%d\n",
		humanize.Comma(int64(s.Evaluations)), s.Duration.Round(time.Millisecond), len(s.Failures))
	if s.EffectiveProgram != "" {
		fmt.Fprintf(out, "effective_program:\n%s\n", s.EffectiveProgram)
	}
	if s.ArtifactsDir != "" {
		fmt.Fprintf(out, "artifacts_dir=%s\n", filepath.Clean(s.ArtifactsDir))
	}
}

func (c *cli) serveMetrics(addr string) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) && c.logger != nil {
			c.logger.Error("metrics_server_failed", "addr", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

func (c *cli) newClient(artifactsDir string) (*lgp.Client, error) {
	opts := lgp.Options{
		StoreKind:    c.flags.storeKind,
		DBPath:       c.flags.dbPath,
		ArtifactsDir: artifactsDir,
	}
	if c.logger != nil {
		opts.Logger = c.logger.Logger
	}
	return lgp.New(opts)
}
