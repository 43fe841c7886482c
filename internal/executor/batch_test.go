package executor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
	"github.com/aatumaykin/cronkeeper/internal/logger"
	"github.com/aatumaykin/cronkeeper/internal/workers"
)

func shellJobs(lines ...string) []Job {
	jobs := make([]Job, len(lines))
	for i, line := range lines {
		jobs[i] = Job{Command: ShellCommand(line)}
	}
	return jobs
}

func assertEchoFalseEcho(t *testing.T, results []Result) {
	t.Helper()
	require.Len(t, results, 3)

	assert.Equal(t, "echo hello", results[0].Command.Display)
	assert.Equal(t, "hello", strings.TrimSpace(results[0].Stdout))
	assert.True(t, results[0].Success())

	assert.Equal(t, "false", results[1].Command.Display)
	assert.NotEqual(t, 0, results[1].ExitCode)
	assert.False(t, results[1].Success())

	assert.Equal(t, "echo world", results[2].Command.Display)
	assert.Equal(t, "world", strings.TrimSpace(results[2].Stdout))
	assert.True(t, results[2].Success())
}

func TestExecuteBatch_ContinuesPastFailure(t *testing.T) {
	e, _ := newTestExecutor(Config{})

	results := e.ExecuteBatch(context.Background(), shellJobs("echo hello", "false", "echo world"), BatchOptions{})

	assertEchoFalseEcho(t, results)
}

func TestExecuteBatch_Pooled(t *testing.T) {
	pool := workers.NewPool(2, 8, logger.Nop())
	pool.Start()
	defer pool.Stop()

	e, _ := newTestExecutor(Config{})
	e.WithPool(pool)

	results := e.ExecuteBatch(context.Background(), shellJobs("echo hello", "false", "echo world"), BatchOptions{Concurrency: 2})

	assertEchoFalseEcho(t, results)
}

func TestExecuteBatch_PooledPreservesOrder(t *testing.T) {
	pool := workers.NewPool(4, 16, logger.Nop())
	pool.Start()
	defer pool.Stop()

	e, _ := newTestExecutor(Config{})
	e.WithPool(pool)

	// Earlier jobs finish later.
	results := e.ExecuteBatch(context.Background(),
		shellJobs("sleep 0.3; echo 1", "sleep 0.2; echo 2", "sleep 0.1; echo 3", "echo 4"),
		BatchOptions{Concurrency: 4})

	require.Len(t, results, 4)
	for i, want := range []string{"1", "2", "3", "4"} {
		assert.Equal(t, want, strings.TrimSpace(results[i].Stdout), "result %d", i)
	}
}

func TestExecuteBatch_RejectedJobIsReported(t *testing.T) {
	e, rec := newTestExecutor(Config{})

	denied := apperrors.NotPermitted("command not in whitelist")
	jobs := []Job{
		{Command: ShellCommand("echo ok")},
		{Command: Command{Display: "rm -rf /"}, Err: denied},
	}

	results := e.ExecuteBatch(context.Background(), jobs, BatchOptions{})

	require.Len(t, results, 2)
	assert.True(t, results[0].Success())
	assert.Equal(t, "rm -rf /", results[1].Command.Display)
	assert.Same(t, denied, results[1].Err)
	assert.Equal(t, StatusDenied, results[1].Status())
	// Only the approved job reached the executor.
	assert.Len(t, rec.executions, 1)
}

func TestExecuteBatch_CancelSkipsRemaining(t *testing.T) {
	e, _ := newTestExecutor(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(150*time.Millisecond, cancel)

	start := time.Now()
	results := e.ExecuteBatch(ctx, shellJobs("echo first", "sleep 30", "echo never"), BatchOptions{})

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success())

	assert.False(t, results[1].Skipped)
	assert.True(t, apperrors.Is(results[1].Err, apperrors.KindTimeout))

	assert.True(t, results[2].Skipped)
	assert.Equal(t, StatusSkipped, results[2].Status())
	assert.Empty(t, results[2].Stdout)
}

func TestExecuteBatch_PooledCancelled(t *testing.T) {
	pool := workers.NewPool(1, 8, logger.Nop())
	pool.Start()
	defer pool.Stop()

	e, _ := newTestExecutor(Config{})
	e.WithPool(pool)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(150*time.Millisecond, cancel)

	start := time.Now()
	results := e.ExecuteBatch(ctx, shellJobs("sleep 30", "echo never", "echo never"), BatchOptions{Concurrency: 2})

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, results, 3)
	assert.True(t, apperrors.Is(results[0].Err, apperrors.KindTimeout))
	for _, r := range results[1:] {
		assert.True(t, r.Skipped)
		assert.Empty(t, r.Stdout)
	}
}

func TestExecuteBatch_ConcurrencyWithoutPoolRunsSequentially(t *testing.T) {
	e, _ := newTestExecutor(Config{})

	results := e.ExecuteBatch(context.Background(), shellJobs("echo a", "echo b"), BatchOptions{Concurrency: 8})

	require.Len(t, results, 2)
	assert.Equal(t, "a\n", results[0].Stdout)
	assert.Equal(t, "b\n", results[1].Stdout)
}
