package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/cronkeeper/internal/logger"
)

// worker is the main worker goroutine that processes tasks from the queue.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugCtx(p.ctx, "worker started",
		logger.Field{Key: "worker_id", Value: id})

	for {
		select {
		case task := <-p.taskQueue:
			p.processTask(id, task)

		case <-p.ctx.Done():
			p.logger.DebugCtx(p.ctx, "worker stopping",
				logger.Field{Key: "worker_id", Value: id})
			return
		}
	}
}

// processTask runs a single task and delivers its result.
func (p *WorkerPool) processTask(workerID int, task Task) {
	execCtx := p.ctx
	if task.Context != nil {
		execCtx = task.Context
	}

	// A task whose context ended while it sat in the queue never starts.
	if err := execCtx.Err(); err != nil {
		p.incrementSkipped()
		p.deliver(task, Result{TaskID: task.ID, Error: err, Skipped: true})
		return
	}

	startTime := time.Now()
	result := p.runTask(execCtx, task)
	result.Duration = time.Since(startTime)

	if result.Error != nil {
		p.incrementFailed()
	} else {
		p.incrementCompleted()
	}
	p.recordDuration(result.Duration)

	p.deliver(task, result)

	p.logger.DebugCtx(execCtx, "task processed",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()},
		logger.Field{Key: "error", Value: result.Error})
}

// runTask calls the task function, turning a panic into an error.
func (p *WorkerPool) runTask(ctx context.Context, task Task) (result Result) {
	result.TaskID = task.ID

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("panic during task execution: %v", r)
			p.logger.ErrorCtx(ctx, "task panic recovered", result.Error,
				logger.Field{Key: "task_id", Value: task.ID})
		}
	}()

	if task.Run == nil {
		result.Error = fmt.Errorf("task %s has no function", task.ID)
		return result
	}
	result.Value, result.Error = task.Run(ctx)
	return result
}
