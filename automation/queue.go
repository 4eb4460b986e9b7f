// Package automation runs dubbing jobs through a queue-fed worker pool.
package automation

import "context"

// Message is one queued job reference. Job state lives in storage;
// the queue only carries the ID.
type Message struct {
	// JobID identifies the job to process.
	JobID string

	ack  func() error
	nack func(requeue bool) error
}

// Ack confirms the message was processed.
func (m *Message) Ack() error {
	if m.ack == nil {
		return nil
	}
	return m.ack()
}

// Nack rejects the message, optionally requeueing it.
func (m *Message) Nack(requeue bool) error {
	if m.nack == nil {
		return nil
	}
	return m.nack(requeue)
}

// Queue is the job transport port. Implementations must be safe for
// concurrent use.
type Queue interface {
	// Publish enqueues a job ID for processing.
	Publish(ctx context.Context, jobID string) error

	// Consume returns a channel of queued messages. The channel closes
	// when the queue shuts down or ctx is canceled.
	Consume(ctx context.Context) (<-chan Message, error)

	// Close releases the queue's resources.
	Close() error
}
