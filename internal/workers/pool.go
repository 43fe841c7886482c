package workers

import (
	"context"
	"sync"

	"github.com/aatumaykin/cronkeeper/internal/logger"
)

// WorkerPool manages a fixed set of goroutine workers.
type WorkerPool struct {
	taskQueue chan Task
	workers   int
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *logger.Logger

	mu      sync.RWMutex // guards stopped; held for reading while submitting
	stopped bool

	metricsMu sync.RWMutex
	metrics   PoolMetrics
}

// NewPool creates a new worker pool with the specified configuration.
func NewPool(workers int, bufferSize int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = DefaultPoolSize
	}
	if bufferSize < 0 {
		bufferSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue: make(chan Task, bufferSize),
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
		logger:    log,
	}
}

// Start initializes and starts all worker goroutines.
func (p *WorkerPool) Start() {
	p.logger.Info("starting worker pool",
		logger.Field{Key: "workers", Value: p.workers},
		logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// SubmitWithContext queues a task, blocking while the queue is full.
// It gives up when ctx is done or the pool stops.
func (p *WorkerPool) SubmitWithContext(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}
	if task.Reply == nil {
		return ErrNoReply
	}

	p.logger.DebugCtx(ctx, "task submitted",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})

	select {
	case p.taskQueue <- task:
		p.incrementSubmitted()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// Stop shuts the pool down. In-flight tasks see their pool context
// cancelled; queued tasks that never started are answered with ErrPoolStopped.
func (p *WorkerPool) Stop() {
	p.cancel()

	// Wait for submitters that raced with cancel to leave.
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.wg.Wait()
	p.drain()

	metrics := p.Metrics()
	p.logger.Info("worker pool stopped",
		logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
		logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
		logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed},
		logger.Field{Key: "tasks_skipped", Value: metrics.TasksSkipped})
}

// drain answers every task left in the queue.
func (p *WorkerPool) drain() {
	for {
		select {
		case task := <-p.taskQueue:
			p.incrementSkipped()
			p.deliver(task, Result{TaskID: task.ID, Error: ErrPoolStopped, Skipped: true})
		default:
			return
		}
	}
}

// deliver sends a result to the task's reply channel.
func (p *WorkerPool) deliver(task Task, result Result) {
	task.Reply <- result
}

// WorkerCount returns the number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// QueueSize returns the current number of tasks waiting in the queue.
func (p *WorkerPool) QueueSize() int {
	return len(p.taskQueue)
}
