package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"loglens/metrics"
	"loglens/util/goroutine"

	"go.uber.org/zap"
)

// WorkerPool executes independent matching units with bounded parallelism.
// One unit is one compiled pattern pass or one rule's multi-line scan; the
// orchestrator awaits full completion of a stage before starting the next.
type WorkerPool struct {
	workers int
	taskCh  chan func()
	wg      sync.WaitGroup
	logger  *zap.SugaredLogger
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
	name    string
}

// Worker pool errors.
var (
	ErrWorkerPoolNotRunning = errors.New("worker pool is not running")
	ErrWorkerPoolQueueFull  = errors.New("worker pool task queue is full")
)

// NewWorkerPool creates a pool with the given parallelism and queue depth.
// Cancellation of parentCtx propagates to all workers; workers poll it
// between tasks, and tasks are expected to poll it at their own safe points.
func NewWorkerPool(parentCtx context.Context, workers, queueSize int, name string, logger *zap.SugaredLogger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = workers
	}
	ctx, cancel := context.WithCancel(parentCtx)
	return &WorkerPool{
		workers: workers,
		taskCh:  make(chan func(), queueSize),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		name:    name,
	}
}

// Start launches the worker goroutines. Calling Start on a running pool is
// a no-op.
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.running {
		return
	}
	wp.running = true
	wp.logger.Debugw("Starting worker pool", "pool", wp.name, "workers", wp.workers)
	metrics.WorkerPoolActiveWorkers.WithLabelValues(wp.name).Set(float64(wp.workers))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Submit queues a task for execution. It fails fast when the queue is full
// so callers can degrade instead of blocking a stage.
func (wp *WorkerPool) Submit(task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.running {
		return ErrWorkerPoolNotRunning
	}
	select {
	case wp.taskCh <- task:
		metrics.WorkerPoolQueueSize.WithLabelValues(wp.name).Set(float64(len(wp.taskCh)))
		return nil
	default:
		return ErrWorkerPoolQueueFull
	}
}

// Stop cancels all workers, runs down the queue, and waits for the workers
// to exit, with a hard bound so a wedged task cannot deadlock shutdown.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.running {
		return
	}
	wp.running = false
	wp.cancel()
	close(wp.taskCh)

	// Workers may exit on cancellation without emptying the queue. Queued
	// tasks still run here so their completion hooks fire; they observe the
	// cancelled context and abandon at their first safe point.
	for task := range wp.taskCh {
		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.logger.Errorw("Task panicked during shutdown drain",
						"pool", wp.name,
						"panic", r)
				}
			}()
			task()
		}()
	}

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Debugw("Worker pool stopped", "pool", wp.name)
	case <-time.After(30 * time.Second):
		wp.logger.Errorw("Worker pool shutdown timed out, goroutines leaked",
			"pool", wp.name,
			"workers", wp.workers)
		metrics.WorkerPoolActiveWorkers.WithLabelValues(wp.name).Set(-1)
	}
}

// Context returns the pool's cancellation context. Tasks poll it at line
// and pattern-attempt boundaries.
func (wp *WorkerPool) Context() context.Context { return wp.ctx }

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	defer goroutine.Recover("worker-pool", wp.logger)

	for {
		select {
		case <-wp.ctx.Done():
			return
		case task, ok := <-wp.taskCh:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						wp.logger.Errorw("Task panicked in worker",
							"pool", wp.name,
							"worker_id", id,
							"panic", r)
					}
				}()
				task()
				metrics.WorkerPoolTasksProcessed.WithLabelValues(wp.name).Inc()
			}()
		}
	}
}
