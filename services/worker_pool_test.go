package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TreeBites/treebites-push/config"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func newTestPool(t *testing.T, workers, queue int) *WorkerPool {
	t.Helper()
	resetWorkerPoolMetricsForTesting()
	pool := NewWorkerPool(config.WorkerPoolConfig{
		MaxWorkers:             workers,
		QueueSize:              queue,
		JobTimeoutSeconds:      5,
		ShutdownTimeoutSeconds: 5,
	})
	pool.Start()
	return pool
}

func TestWorkerPool_SubmitAndExecute(t *testing.T) {
	pool := newTestPool(t, 2, 10)
	defer pool.Shutdown(context.Background())

	var executed int32
	done := make(chan struct{})

	submitted := pool.Submit(Job{
		Name: "test-job",
		Execute: func(ctx context.Context) error {
			atomic.AddInt32(&executed, 1)
			close(done)
			return nil
		},
	})
	require.True(t, submitted, "Job should be accepted")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Job did not execute within timeout")
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&executed))
}

func TestWorkerPool_BoundedConcurrency(t *testing.T) {
	pool := newTestPool(t, 2, 100)
	defer pool.Shutdown(context.Background())

	var maxConcurrent, currentConcurrent int32
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		pool.Submit(Job{
			Name: "concurrent-job",
			Execute: func(ctx context.Context) error {
				defer wg.Done()

				current := atomic.AddInt32(&currentConcurrent, 1)
				defer atomic.AddInt32(&currentConcurrent, -1)

				mu.Lock()
				if current > maxConcurrent {
					maxConcurrent = current
				}
				mu.Unlock()

				time.Sleep(50 * time.Millisecond)
				return nil
			},
		})
	}

	wg.Wait()
	assert.LessOrEqual(t, maxConcurrent, int32(2), "Should never exceed 2 concurrent workers")
}

func TestWorkerPool_QueueFull(t *testing.T) {
	pool := newTestPool(t, 1, 2)
	defer pool.Shutdown(context.Background())

	blocker := make(chan struct{})
	started := make(chan struct{})
	pool.Submit(Job{
		Name: "blocker",
		Execute: func(ctx context.Context) error {
			close(started)
			<-blocker
			return nil
		},
	})
	<-started

	assert.True(t, pool.Submit(Job{Name: "queued-1", Execute: func(ctx context.Context) error { return nil }}))
	assert.True(t, pool.Submit(Job{Name: "queued-2", Execute: func(ctx context.Context) error { return nil }}))

	dropped := !pool.Submit(Job{Name: "overflow", Execute: func(ctx context.Context) error { return nil }})
	assert.True(t, dropped, "Job should be dropped when queue is full")
	assert.Equal(t, float64(1), testutil.ToFloat64(pool.metrics.droppedJobs))

	close(blocker)
}

func TestWorkerPool_GracefulShutdown(t *testing.T) {
	pool := newTestPool(t, 2, 10)

	var completed int32
	started := make(chan struct{})
	pool.Submit(Job{
		Name: "slow-job",
		Execute: func(ctx context.Context) error {
			close(started)
			time.Sleep(100 * time.Millisecond)
			atomic.AddInt32(&completed, 1)
			return nil
		},
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, pool.Shutdown(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&completed), "Job should complete during shutdown")
	assert.False(t, pool.IsRunning())
}

func TestWorkerPool_ShutdownTimeoutCancelsJobs(t *testing.T) {
	pool := newTestPool(t, 1, 10)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	pool.Submit(Job{
		Name: "long-job",
		Execute: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		},
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := pool.Shutdown(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("running job was not cancelled")
	}
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := newTestPool(t, 1, 10)
	require.NoError(t, pool.Shutdown(context.Background()))

	assert.False(t, pool.Submit(Job{Name: "late", Execute: func(ctx context.Context) error { return nil }}))
	// Second shutdown is a no-op.
	assert.NoError(t, pool.Shutdown(context.Background()))
}

func TestWorkerPool_DoubleStart(t *testing.T) {
	pool := newTestPool(t, 2, 10)
	pool.Start()
	defer pool.Shutdown(context.Background())

	assert.True(t, pool.IsRunning())
}

func TestWorkerPool_JobErrorAndPanic(t *testing.T) {
	pool := newTestPool(t, 1, 10)
	defer pool.Shutdown(context.Background())

	var executed int32
	pool.Submit(Job{
		Name: "error-job",
		Execute: func(ctx context.Context) error {
			atomic.AddInt32(&executed, 1)
			return assert.AnError
		},
	})
	pool.Submit(Job{
		Name: "panic-job",
		Execute: func(ctx context.Context) error {
			atomic.AddInt32(&executed, 1)
			panic("boom")
		},
	})

	done := make(chan struct{})
	pool.Submit(Job{
		Name: "success-job",
		Execute: func(ctx context.Context) error {
			atomic.AddInt32(&executed, 1)
			close(done)
			return nil
		},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Last job did not execute")
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&executed))
	assert.Equal(t, float64(2), testutil.ToFloat64(pool.metrics.errorCount))
}

func TestWorkerPool_JobTimeout(t *testing.T) {
	resetWorkerPoolMetricsForTesting()
	pool := NewWorkerPool(config.WorkerPoolConfig{MaxWorkers: 1, QueueSize: 1, JobTimeoutSeconds: 1})
	pool.Start()
	defer pool.Shutdown(context.Background())

	deadline := make(chan time.Duration, 1)
	pool.Submit(Job{
		Name: "deadline-job",
		Execute: func(ctx context.Context) error {
			d, ok := ctx.Deadline()
			require.True(t, ok)
			deadline <- time.Until(d)
			return nil
		},
	})

	select {
	case remaining := <-deadline:
		assert.LessOrEqual(t, remaining, time.Second)
		assert.Greater(t, remaining, time.Duration(0))
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}
