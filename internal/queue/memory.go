package queue

import (
	"context"
	"fmt"

	"github.com/Ammly/AdbSms/pkg/logger"
)

// MemoryQueue keeps tasks in process. Used when no broker is configured.
type MemoryQueue struct {
	tasks  chan Task
	policy RetryPolicy
}

func NewMemoryQueue(size int, policy RetryPolicy) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQueue{tasks: make(chan Task, size), policy: policy}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) (string, error) {
	task = prepare(task)

	select {
	case q.tasks <- task:
		return task.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		return "", fmt.Errorf("task queue full (%d pending)", cap(q.tasks))
	}
}

// Consume stops between tasks once ctx is done. A task interrupted by the
// cancellation is put back so a later Consume picks it up.
func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case task := <-q.tasks:
			if process(ctx, q, q.policy, task, handler) == redeliver {
				q.requeue(task)
			}
		}
	}
}

func (q *MemoryQueue) requeue(task Task) {
	select {
	case q.tasks <- task:
	default:
		logger.Errorf("Task queue full, lost interrupted task %s (%s)", task.ID, describe(task))
	}
}

func (q *MemoryQueue) Len() int {
	return len(q.tasks)
}

func (q *MemoryQueue) Close() error {
	return nil
}
