package evo

import (
	"context"
	"sync"

	"lgp/internal/dataset"
	"lgp/internal/fitness"
	"lgp/internal/program"
)

// evaluatePrograms scores programs on a bounded worker pool. Scores are
// returned in input order.
func evaluatePrograms(ctx context.Context, fc fitness.Context, programs []program.Program, ds dataset.Dataset, workers int) ([]float64, error) {
	type job struct {
		idx     int
		program program.Program
	}
	type result struct {
		idx   int
		score float64
		err   error
	}

	if len(programs) == 0 {
		return nil, nil
	}

	jobs := make(chan job)
	results := make(chan result, len(programs))

	workerCount := workers
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(programs) {
		workerCount = len(programs)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				score, err := fc.Evaluate(ctx, j.program, ds)
				results <- result{idx: j.idx, score: score, err: err}
			}
		}()
	}

	for i := range programs {
		jobs <- job{idx: i, program: programs[i]}
	}
	close(jobs)

	wg.Wait()
	close(results)

	scores := make([]float64, len(programs))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		scores[res.idx] = res.score
	}
	evaluationsTotal.Add(float64(len(programs)))
	return scores, nil
}
