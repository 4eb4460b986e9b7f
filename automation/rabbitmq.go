package automation

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultQueueName = "dubforge.jobs"

// RabbitMQQueue implements Queue on a durable AMQP queue with
// per-message acknowledgement.
type RabbitMQQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewRabbitMQQueue connects to the broker and declares the queue.
// queueName "" uses the default.
func NewRabbitMQQueue(amqpURL, queueName string) (*RabbitMQQueue, error) {
	if queueName == "" {
		queueName = defaultQueueName
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("automation: connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("automation: open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("automation: declare queue: %w", err)
	}

	// One unacked message per worker keeps slow jobs from starving others
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("automation: set qos: %w", err)
	}

	return &RabbitMQQueue{conn: conn, ch: ch, queue: queueName}, nil
}

// Publish enqueues a job ID as a persistent message.
func (q *RabbitMQQueue) Publish(ctx context.Context, jobID string) error {
	err := q.ch.PublishWithContext(ctx,
		"",      // default exchange
		q.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "text/plain",
			DeliveryMode: amqp.Persistent,
			Body:         []byte(jobID),
		},
	)
	if err != nil {
		return fmt.Errorf("automation: publish job %s: %w", jobID, err)
	}
	return nil
}

// Consume starts delivering messages with manual acknowledgement.
func (q *RabbitMQQueue) Consume(ctx context.Context) (<-chan Message, error) {
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("automation: consume: %w", err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				msg := Message{
					JobID: string(d.Body),
					ack:   func() error { return d.Ack(false) },
					nack:  func(requeue bool) error { return d.Nack(false, requeue) },
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					d.Nack(false, true)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close shuts down the channel and connection.
func (q *RabbitMQQueue) Close() error {
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
