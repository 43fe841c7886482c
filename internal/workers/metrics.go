package workers

import (
	"time"
)

// Metrics returns the current pool metrics.
func (p *WorkerPool) Metrics() PoolMetrics {
	p.metricsMu.RLock()
	defer p.metricsMu.RUnlock()
	return p.metrics
}

func (p *WorkerPool) incrementSubmitted() {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	p.metrics.TasksSubmitted++
}

func (p *WorkerPool) incrementCompleted() {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	p.metrics.TasksCompleted++
}

func (p *WorkerPool) incrementFailed() {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	p.metrics.TasksFailed++
}

func (p *WorkerPool) incrementSkipped() {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	p.metrics.TasksSkipped++
}

// recordDuration records task execution duration.
func (p *WorkerPool) recordDuration(d time.Duration) {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	p.metrics.TotalDuration += d
}
