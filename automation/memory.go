package automation

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed indicates a publish after Close().
var ErrQueueClosed = errors.New("automation: queue closed")

const defaultMemoryQueueSize = 64

// MemoryQueue is an in-process Queue backed by a buffered channel.
// It is the default for single-node deployments and tests.
type MemoryQueue struct {
	ch     chan Message
	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue creates an in-memory queue. size <= 0 uses the default
// buffer size.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = defaultMemoryQueueSize
	}
	return &MemoryQueue{ch: make(chan Message, size)}
}

// Publish enqueues a job ID. Blocks when the buffer is full.
func (q *MemoryQueue) Publish(ctx context.Context, jobID string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.mu.Unlock()

	select {
	case q.ch <- Message{JobID: jobID}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns the message channel.
func (q *MemoryQueue) Consume(ctx context.Context) (<-chan Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}
	return q.ch, nil
}

// Close stops the queue. Pending messages are still delivered.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}
