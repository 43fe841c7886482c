package executor

import (
	"context"
	"strconv"
	"time"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
	"github.com/aatumaykin/cronkeeper/internal/logger"
	"github.com/aatumaykin/cronkeeper/internal/workers"
)

// Job is one batch item. A job with Err set was rejected before execution and
// is reported as-is.
type Job struct {
	Command Command
	Err     error
}

// BatchOptions tunes ExecuteBatch.
type BatchOptions struct {
	// Concurrency > 1 runs jobs on the worker pool, whose size caps the number
	// of children across all batches. Otherwise jobs run one after another.
	Concurrency int
	// Timeout per job; zero means the executor default.
	Timeout time.Duration
}

// Submitter accepts tasks for bounded concurrent execution.
type Submitter interface {
	SubmitWithContext(ctx context.Context, task workers.Task) error
}

// WithPool enables concurrent batches on pool.
func (e *Executor) WithPool(pool Submitter) *Executor {
	e.pool = pool
	return e
}

// ExecuteBatch runs every job and returns one result per job in input order.
// A failing job does not stop the batch. Once ctx is done, jobs that have not
// started are skipped and the running ones are killed.
func (e *Executor) ExecuteBatch(ctx context.Context, jobs []Job, opts BatchOptions) []Result {
	results := make([]Result, len(jobs))

	start := time.Now()
	if opts.Concurrency > 1 && e.pool != nil {
		e.runPooled(ctx, jobs, opts, results)
	} else {
		e.runSequential(ctx, jobs, opts, results)
	}

	e.logger.InfoCtx(ctx, "batch finished",
		logger.Field{Key: "commands", Value: len(jobs)},
		logger.Field{Key: "concurrency", Value: opts.Concurrency},
		logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
	return results
}

func (e *Executor) runSequential(ctx context.Context, jobs []Job, opts BatchOptions, results []Result) {
	for i, job := range jobs {
		if job.Err != nil {
			results[i] = rejected(job)
			continue
		}
		if err := ctx.Err(); err != nil {
			results[i] = skipped(job.Command, err)
			continue
		}
		results[i] = e.Execute(ctx, job.Command, opts.Timeout)
	}
}

func (e *Executor) runPooled(ctx context.Context, jobs []Job, opts BatchOptions, results []Result) {
	reply := make(chan workers.Result, len(jobs))
	pending := 0

	for i, job := range jobs {
		if job.Err != nil {
			results[i] = rejected(job)
			continue
		}
		cmd := job.Command
		err := e.pool.SubmitWithContext(ctx, workers.Task{
			ID:      strconv.Itoa(i),
			Type:    "command",
			Context: ctx,
			Run: func(taskCtx context.Context) (any, error) {
				return e.Execute(taskCtx, cmd, opts.Timeout), nil
			},
			Reply: reply,
		})
		if err != nil {
			results[i] = skipped(cmd, err)
			continue
		}
		pending++
	}

	for ; pending > 0; pending-- {
		wr := <-reply
		i, err := strconv.Atoi(wr.TaskID)
		if err != nil || i < 0 || i >= len(jobs) {
			e.logger.Warn("unexpected task id in batch reply", logger.Field{Key: "task_id", Value: wr.TaskID})
			continue
		}
		if res, ok := wr.Value.(Result); ok {
			results[i] = res
			continue
		}
		if wr.Skipped {
			results[i] = skipped(jobs[i].Command, wr.Error)
			continue
		}
		results[i] = Result{
			Command:  jobs[i].Command,
			ExitCode: -1,
			Err:      apperrors.Wrap(wr.Error, apperrors.KindExecution, "command failed"),
		}
	}
}

func rejected(job Job) Result {
	return Result{Command: job.Command, ExitCode: -1, Err: job.Err}
}

func skipped(c Command, cause error) Result {
	return Result{
		Command:  c,
		ExitCode: -1,
		Skipped:  true,
		Err: apperrors.Wrap(cause, apperrors.KindTimeout, "command skipped: batch cancelled").
			WithDetail("command", c.Display),
	}
}
