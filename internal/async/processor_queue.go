package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/pipeline"
)

// Processor runs one pipeline for an archive.
type Processor interface {
	Process(ctx context.Context, inputPath, propertyID string) (pipeline.State, error)
}

// ResultHook observes every finished job.
type ResultHook func(job Job, st pipeline.State, err error)

type ProcessorQueue struct {
	proc    Processor
	locks   *PropertyLocks
	logger  *slog.Logger
	workers int
	timeout time.Duration
	hook    ResultHook

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithLocks(l *PropertyLocks) Option {
	return func(q *ProcessorQueue) {
		if l != nil {
			q.locks = l
		}
	}
}
func WithResultHook(h ResultHook) Option {
	return func(q *ProcessorQueue) { q.hook = h }
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		locks:   NewPropertyLocks(),
		logger:  logger,
		workers: 4,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	id := job.PropertyID
	if id == "" {
		parsed, err := entity.ParsePropertyID(job.Path)
		if err != nil {
			q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", err)
			q.report(job, pipeline.State{}, err)
			return
		}
		id = parsed
	}
	unlock := q.locks.Lock(id)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	st, err := q.proc.Process(ctx, job.Path, id)
	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "property_id", id, "path", job.Path, "error", err)
	} else {
		q.logger.Info("processed archive successfully",
			"worker_id", workerID,
			"property_id", id,
			"method", st.Method,
			"issues", len(st.Issues),
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	q.report(job, st, err)
}

func (q *ProcessorQueue) report(job Job, st pipeline.State, err error) {
	if q.hook != nil {
		q.hook(job, st, err)
	}
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued archive for processing", "path", job.Path, "property_id", job.PropertyID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
