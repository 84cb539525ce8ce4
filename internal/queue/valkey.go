package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/Ammly/AdbSms/pkg/logger"
)

// ValkeyQueue is a list-backed queue: LPUSH to enqueue, BLMOVE into a
// per-host processing list to consume. A task stays in the processing list
// until it is handled, so a crash or shutdown mid-task leaves it recoverable.
type ValkeyQueue struct {
	client      valkey.Client
	key         string
	processing  string
	policy      RetryPolicy
	pollTimeout time.Duration
}

func NewValkeyQueue(client valkey.Client, key string, policy RetryPolicy) *ValkeyQueue {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}

	return &ValkeyQueue{
		client:      client,
		key:         key,
		processing:  key + ":processing:" + host,
		policy:      policy,
		pollTimeout: 5 * time.Second,
	}
}

func (q *ValkeyQueue) Enqueue(ctx context.Context, task Task) (string, error) {
	task = prepare(task)

	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := q.client.Do(ctx, q.client.B().Lpush().Key(q.key).Element(string(data)).Build()).Error(); err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Debugf("Enqueued task %s (%s)", task.ID, describe(task))

	return task.ID, nil
}

func (q *ValkeyQueue) Consume(ctx context.Context, handler Handler) error {
	logger.Infof("Consuming tasks from valkey list %s", q.key)

	if n := q.recoverOrphans(ctx); n > 0 {
		logger.Warnf("Returned %d unfinished tasks from %s to the queue", n, q.processing)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		cmd := q.client.B().Blmove().Source(q.key).Destination(q.processing).Right().Left().Timeout(q.pollTimeout.Seconds()).Build()
		raw, err := q.client.Do(ctx, cmd).ToString()
		if err != nil {
			if valkey.IsValkeyNil(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			logger.Errorf("Failed to pop task: %v", err)

			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			logger.Errorf("Dropping undecodable task: %v", err)
			q.finish(ctx, raw)
			continue
		}

		if process(ctx, q, q.policy, task, handler) == redeliver {
			q.requeue(ctx, task)
			continue
		}
		q.finish(ctx, raw)
	}
}

// recoverOrphans moves tasks left in the processing list by an earlier run
// back onto the queue, oldest first.
func (q *ValkeyQueue) recoverOrphans(ctx context.Context) int {
	moved := 0
	for ctx.Err() == nil {
		cmd := q.client.B().Lmove().Source(q.processing).Destination(q.key).Right().Right().Build()
		if err := q.client.Do(ctx, cmd).Error(); err != nil {
			if !valkey.IsValkeyNil(err) {
				logger.Errorf("Failed to recover tasks from %s: %v", q.processing, err)
			}
			return moved
		}
		moved++
	}
	return moved
}

// finish removes a handled task from the processing list.
func (q *ValkeyQueue) finish(ctx context.Context, raw string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), retryPublishTimeout)
	defer cancel()

	if err := q.client.Do(ctx, q.client.B().Lrem().Key(q.processing).Count(1).Element(raw).Build()).Error(); err != nil {
		logger.Errorf("Failed to clear finished task from %s: %v", q.processing, err)
	}
}

// requeue moves the task just taken back to the consuming end of the queue.
func (q *ValkeyQueue) requeue(ctx context.Context, task Task) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), retryPublishTimeout)
	defer cancel()

	cmd := q.client.B().Lmove().Source(q.processing).Destination(q.key).Left().Right().Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		logger.Errorf("Failed to requeue task %s, it stays in %s until the next start: %v", task.ID, q.processing, err)
	}
}

func (q *ValkeyQueue) Close() error {
	return nil
}
