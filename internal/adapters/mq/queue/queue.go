// Package queue buffers result submissions between the HTTP layer and the
// ingest workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/dailyboard/internal/domain/model"
	"github.com/okian/dailyboard/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Queue is a bounded FIFO of submissions.
type Queue interface {
	// Enqueue adds s without blocking. It fails with ErrFull or ErrClosed.
	Enqueue(ctx context.Context, s model.ResultSubmission) error

	// Dequeue returns the receive side; it is closed after Close once drained.
	Dequeue() <-chan model.ResultSubmission

	Len() int

	Close() error
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	items    chan model.ResultSubmission
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates an open queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.ResultSubmission, q.capacity)
	metrics.UpdateIngestQueue(0, q.capacity)
	return q
}

// Enqueue implements Queue.Enqueue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s model.ResultSubmission) error { //nolint:gocritic // hugeParam: copied into the channel anyway
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.items <- s:
		metrics.UpdateIngestQueue(len(q.items), q.capacity)
		return nil
	default:
		return ErrFull
	}
}

// Dequeue implements Queue.Dequeue.
func (q *InMemoryQueue) Dequeue() <-chan model.ResultSubmission {
	return q.items
}

// Len returns the number of waiting submissions.
func (q *InMemoryQueue) Len() int {
	n := len(q.items)
	metrics.UpdateIngestQueue(n, q.capacity)
	return n
}

// Capacity returns the queue bound.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close stops admission. Waiting submissions remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
