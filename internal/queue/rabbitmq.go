package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Ammly/AdbSms/pkg/logger"
)

const consumerTag = "adbsms-worker"

// RabbitQueue publishes persistent JSON tasks to a durable queue and
// consumes them with manual acknowledgement.
type RabbitQueue struct {
	conn   *amqp.Connection
	name   string
	policy RetryPolicy

	mu        sync.Mutex
	publishCh *amqp.Channel
}

func NewRabbitQueue(url, name string, policy RetryPolicy) (*RabbitQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	logger.Infof("Connected to RabbitMQ, queue %s", name)

	return &RabbitQueue{
		conn:      conn,
		name:      name,
		policy:    policy,
		publishCh: ch,
	}, nil
}

func (q *RabbitQueue) channel() (*amqp.Channel, error) {
	if q.publishCh != nil && !q.publishCh.IsClosed() {
		return q.publishCh, nil
	}

	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	q.publishCh = ch

	logger.Warnf("Publisher channel recreated")
	return ch, nil
}

func (q *RabbitQueue) Enqueue(ctx context.Context, task Task) (string, error) {
	task = prepare(task)

	body, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	ch, err := q.channel()
	if err != nil {
		return "", err
	}

	err = ch.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    task.ID,
		Timestamp:    time.Now(),
		Type:         string(task.Kind),
		Body:         body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish task: %w", err)
	}

	logger.Debugf("Published task %s (%s)", task.ID, describe(task))

	return task.ID, nil
}

func (q *RabbitQueue) Consume(ctx context.Context, handler Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	// One task at a time: the device only handles one command anyway.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(q.name, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Infof("Consuming tasks from RabbitMQ queue %s", q.name)

	for {
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			var task Task
			if err := json.Unmarshal(msg.Body, &task); err != nil {
				logger.Errorf("Dropping undecodable task: %v", err)
				_ = msg.Nack(false, false)
				continue
			}

			// Retries are republished as new messages; the original is acked
			// only after that, and requeued when the run was cut short.
			if process(ctx, q, q.policy, task, handler) == redeliver {
				if err := msg.Nack(false, true); err != nil {
					logger.Warnf("Failed to requeue task %s: %v", task.ID, err)
				}
				continue
			}
			if err := msg.Ack(false); err != nil {
				logger.Warnf("Failed to ack task %s: %v", task.ID, err)
			}
		}
	}
}

func (q *RabbitQueue) Close() error {
	return q.conn.Close()
}
