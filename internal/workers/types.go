// Package workers provides a bounded worker pool. The gateway uses it to cap
// how many child processes batch execution may run at once, across all
// requests sharing the pool.
package workers

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPoolStopped is returned when submitting to a stopped pool, and is the
	// error of tasks still queued when the pool stops.
	ErrPoolStopped = errors.New("worker pool stopped")
	// ErrNoReply is returned for a task without a Reply channel.
	ErrNoReply = errors.New("task has no reply channel")
)

// TaskFunc is the work a task performs.
type TaskFunc func(ctx context.Context) (any, error)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier
	Type    string          // Task type, used for logging only
	Run     TaskFunc        // Work to perform
	Context context.Context // Task-specific context for cancellation/timeout
	// Reply receives the result. It must be buffered or read concurrently.
	Reply chan<- Result
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string        // ID of the executed task
	Value    any           // Value returned by the task
	Error    error         // Error if execution failed
	Skipped  bool          // Task was never started (context done or pool stopped)
	Duration time.Duration // Execution duration
}

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TasksSkipped   uint64
	TotalDuration  time.Duration
}

// Constants for worker pool configuration
const (
	DefaultPoolSize  = 4
	DefaultQueueSize = 64
)
