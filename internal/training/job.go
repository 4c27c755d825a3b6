package training

import (
	"context"
	"sync"

	"lgp/internal/dataset"
	"lgp/internal/evo"
)

// Job is a training running in the background.
type Job struct {
	updates  chan Progress
	done     chan struct{}
	controls []chan evo.MonitorCommand
	stopOnce sync.Once

	result Result
	err    error
}

func startJob(ctx context.Context, t *trainer, ds dataset.Dataset) *Job {
	job := &Job{
		updates:  make(chan Progress, t.opts.Runs),
		done:     make(chan struct{}),
		controls: make([]chan evo.MonitorCommand, t.opts.Runs),
	}
	for i := range job.controls {
		job.controls[i] = make(chan evo.MonitorCommand, 1)
	}

	local := *t
	onProgress := t.opts.OnProgress
	local.opts.OnProgress = func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
		job.updates <- p
	}

	go func() {
		defer close(job.done)
		defer close(job.updates)
		job.result, job.err = local.execute(ctx, ds, job.controls)
	}()
	return job
}

// Updates delivers one Progress per finished run and closes when the
// training ends.
func (j *Job) Updates() <-chan Progress {
	return j.updates
}

// Result blocks until the training ends.
func (j *Job) Result() (Result, error) {
	<-j.done
	return j.result, j.err
}

// Done is closed when the training ends.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Stop asks every run to finish after its current generation. Runs that
// already ended are unaffected.
func (j *Job) Stop() {
	j.stopOnce.Do(func() {
		for _, control := range j.controls {
			select {
			case control <- evo.CommandStop:
			default:
			}
		}
	})
}
