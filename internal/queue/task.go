package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ammly/AdbSms/pkg/logger"
	"github.com/Ammly/AdbSms/pkg/metrics"
)

type Kind string

const (
	KindSendSMS     Kind = "send_sms"
	KindBulkSMS     Kind = "bulk_sms"
	KindCheckDevice Kind = "check_device"
)

// Task carries only identifiers; handlers reload state from the store so a
// redelivered task is safe to run again.
type Task struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	MessageID  int64     `json:"messageId,omitempty"`
	JobID      int64     `json:"jobId,omitempty"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

type Handler func(ctx context.Context, task Task) error

// Queue is an at-least-once task channel between the API and the worker.
type Queue interface {
	Enqueue(ctx context.Context, task Task) (string, error)
	// Consume blocks, feeding tasks to handler until ctx is cancelled.
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Delay is the wait before retry number attempt+1 (exponential).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return backoff << attempt
}

func prepare(task Task) Task {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	return task
}

type enqueuer interface {
	Enqueue(ctx context.Context, task Task) (string, error)
}

// disposition tells a backend what to do with the delivery it just ran.
type disposition int

const (
	// handled: the task succeeded, was dropped, or a retry was published.
	handled disposition = iota
	// redeliver: the task must go back on the queue unchanged.
	redeliver
)

// retryPublishTimeout bounds the re-enqueue of a retry once ctx is done.
const retryPublishTimeout = 5 * time.Second

// process runs handler and, on failure, publishes a retry after the backoff
// delay. A handler that fails because ctx was cancelled is not a failed
// attempt: the task is handed back for redelivery with its attempt count
// unchanged.
func process(ctx context.Context, q enqueuer, policy RetryPolicy, task Task, handler Handler) disposition {
	err := handler(ctx, task)
	if err == nil {
		metrics.IncTask(string(task.Kind), "ok")
		return handled
	}

	if ctx.Err() != nil {
		metrics.IncTask(string(task.Kind), "interrupted")
		logger.Warnf("Task %s (%s) interrupted, returning it to the queue: %v", task.ID, describe(task), err)
		return redeliver
	}

	if task.Attempt >= policy.MaxRetries {
		metrics.IncTask(string(task.Kind), "dropped")
		logger.Errorf("Task %s (%s) failed after %d attempts, dropping: %v", task.ID, task.Kind, task.Attempt+1, err)
		return handled
	}

	metrics.IncTask(string(task.Kind), "retry")
	delay := policy.Delay(task.Attempt)
	logger.Warnf("Task %s (%s) failed, retrying in %v: %v", task.ID, task.Kind, delay, err)

	retry := task
	retry.Attempt++

	publishCtx := ctx
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		// Shutting down: publish the retry now rather than lose it.
		var cancel context.CancelFunc
		publishCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), retryPublishTimeout)
		defer cancel()
	}

	if _, err := q.Enqueue(publishCtx, retry); err != nil {
		logger.Errorf("Failed to re-enqueue task %s: %v", task.ID, err)
		return redeliver
	}
	return handled
}

func describe(task Task) string {
	switch task.Kind {
	case KindSendSMS:
		return fmt.Sprintf("%s message=%d", task.Kind, task.MessageID)
	case KindBulkSMS:
		return fmt.Sprintf("%s job=%d", task.Kind, task.JobID)
	default:
		return string(task.Kind)
	}
}
