// Package worker applies queued result submissions to the daily leaderboards.
package worker

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/dailyboard/internal/domain/model"
	"github.com/okian/dailyboard/pkg/logger"
	"github.com/okian/dailyboard/pkg/metrics"
)

// Submitter applies one submission, returning its rank or -1.
type Submitter interface {
	SubmitResult(ctx context.Context, s model.ResultSubmission) (int, error)
}

// Queue is the receive side the workers drain.
type Queue interface {
	Dequeue() <-chan model.ResultSubmission
}

// FailureFunc is called with every submission the Submitter rejected.
type FailureFunc func(ctx context.Context, s model.ResultSubmission, err error)

const defaultDrainTimeout = 10 * time.Second

// InMemoryWorker drains the queue until it is closed. Once the context ends it
// keeps applying what is already queued for at most the drain timeout.
type InMemoryWorker struct {
	queue        Queue
	submitter    Submitter
	name         string
	logger       logger.Logger
	onFailure    FailureFunc
	drainTimeout time.Duration
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, submitter Submitter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		submitter:    submitter,
		name:         "worker",
		drainTimeout: defaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes submissions until the queue is closed and drained. When ctx
// ends first, Run drains on a detached context bounded by the drain timeout;
// the queue owner is expected to close the queue at that point.
func (w *InMemoryWorker) Run(ctx context.Context) {
	items := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			w.drain(ctx, items)
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			w.process(ctx, s)
		}
	}
}

func (w *InMemoryWorker) drain(ctx context.Context, items <-chan model.ResultSubmission) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.drainTimeout)
	defer cancel()

	applied := 0
	for {
		select {
		case <-dctx.Done():
			w.logger.Warn(dctx, "drain timed out",
				logger.Int("applied", applied),
				logger.Int("left", len(items)))
			return
		case s, ok := <-items:
			if !ok {
				if applied > 0 {
					w.logger.Debug(dctx, "queue drained", logger.Int("applied", applied))
				}
				return
			}
			w.process(dctx, s)
			applied++
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, s model.ResultSubmission) { //nolint:gocritic // hugeParam: received by value from the channel
	start := time.Now()
	rank, err := w.submitter.SubmitResult(ctx, s)
	latency := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		metrics.RecordIngestProcessed(metrics.IngestFailed, latency)
		w.logger.Error(ctx, "apply submission failed",
			logger.String("uid", s.UID),
			logger.String("fingerprint", s.Fingerprint()),
			logger.Error(err))
		if w.onFailure != nil {
			w.onFailure(ctx, s, err)
		}
		return
	}
	metrics.RecordIngestProcessed(metrics.IngestOK, latency)
	w.logger.Debug(ctx, "submission applied",
		logger.String("uid", s.UID),
		logger.Int("rank", rank))
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	logger  logger.Logger
}

// NewPool creates a pool; a non-positive count defaults to NumCPU. opts apply
// to every worker.
func NewPool(workerCount int, queue Queue, submitter Submitter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, submitter, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Serve runs every worker and returns when all have stopped: after the queue
// is closed and drained, or after the drain timeout once ctx is done.
func (p *Pool) Serve(ctx context.Context) error {
	metrics.UpdateIngestWorkers(len(p.workers))
	defer metrics.UpdateIngestWorkers(0)

	p.logger.Info(ctx, "ingest workers started", logger.Int("workers", len(p.workers)))

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *InMemoryWorker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
	wg.Wait()

	p.logger.Info(ctx, "ingest workers stopped")
	return ctx.Err()
}
