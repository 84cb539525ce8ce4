package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/internal/queue"
	"github.com/Ammly/AdbSms/pkg/logger"
)

type workerMessageRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	GetPendingByJob(ctx context.Context, jobID int64) ([]domain.Message, error)
}

type workerJobRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.BulkJob, error)
	MarkProcessing(ctx context.Context, id int64) error
	UpdateCounts(ctx context.Context, id int64, succeeded, failed int) error
	Finish(ctx context.Context, id int64, status domain.JobStatus, succeeded, failed int, at time.Time) error
}

type deviceCheck interface {
	Check(ctx context.Context) (domain.DeviceStatus, error)
}

// Worker executes queued tasks. Handlers reload state by id so a task that is
// delivered twice never sends a message twice.
type Worker struct {
	messages   workerMessageRepository
	jobs       workerJobRepository
	dispatcher messageDispatcher
	batch      *BatchCoordinator
	checker    deviceCheck
	now        func() time.Time
}

func NewWorker(
	messages workerMessageRepository,
	jobs workerJobRepository,
	dispatcher messageDispatcher,
	batch *BatchCoordinator,
	checker deviceCheck,
) *Worker {
	return &Worker{
		messages:   messages,
		jobs:       jobs,
		dispatcher: dispatcher,
		batch:      batch,
		checker:    checker,
		now:        time.Now,
	}
}

// Handle is a queue.Handler. A returned error makes the queue retry.
func (w *Worker) Handle(ctx context.Context, task queue.Task) error {
	logger.Debugf("Handling task %s (%s, attempt %d)", task.ID, task.Kind, task.Attempt)

	switch task.Kind {
	case queue.KindSendSMS:
		return w.sendMessage(ctx, task.MessageID)
	case queue.KindBulkSMS:
		return w.runBulkJob(ctx, task.JobID)
	case queue.KindCheckDevice:
		return w.checkDevice(ctx)
	default:
		logger.Errorf("Task %s has unknown kind %q, dropping", task.ID, task.Kind)
		return nil
	}
}

func (w *Worker) sendMessage(ctx context.Context, id int64) error {
	msg, err := w.messages.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load message %d: %w", id, err)
	}
	if msg == nil {
		logger.Warnf("Message %d no longer exists, skipping", id)
		return nil
	}
	if msg.Status.IsTerminal() {
		logger.Infof("Message %d already %s, skipping", id, msg.Status)
		return nil
	}

	outcome, err := w.dispatcher.Dispatch(ctx, msg)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAlreadyTerminal):
		return nil
	case outcome.Succeeded() && errors.Is(err, domain.ErrOutcomeNotRecorded):
		// A retry would send the SMS again.
		logger.Errorf("Message %d was sent but stays %s: %v", id, msg.Status, err)
		return nil
	case errors.Is(err, domain.ErrTransportFatal):
		// Already recorded as failed; retrying cannot help.
		logger.Errorf("Message %d: %v", id, err)
		return nil
	default:
		return err
	}
}

func (w *Worker) runBulkJob(ctx context.Context, id int64) error {
	job, err := w.jobs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load bulk job %d: %w", id, err)
	}
	if job == nil {
		logger.Warnf("Bulk job %d no longer exists, skipping", id)
		return nil
	}
	if job.Status == domain.JobCompleted || job.Status == domain.JobFailed {
		logger.Infof("Bulk job %d already %s, skipping", id, job.Status)
		return nil
	}

	if err := w.jobs.MarkProcessing(ctx, id); err != nil {
		return err
	}

	pending, err := w.messages.GetPendingByJob(ctx, id)
	if err != nil {
		return err
	}

	// Counters already on the job cover rejected rows and, after a
	// redelivery, messages finished by the earlier run.
	baseSucceeded, baseFailed := job.SuccessfulMessages, job.FailedMessages
	offset := baseSucceeded + baseFailed

	items := make([]domain.BatchItem, len(pending))
	for i := range pending {
		items[i] = domain.BatchItem{Row: offset + i + 1, Message: &pending[i]}
	}

	logger.Infof("Bulk job %d: dispatching %d pending messages", id, len(items))

	res, batchErr := w.batch.DispatchBatch(ctx, items, BatchOptions{
		Delay: time.Duration(job.DelaySeconds * float64(time.Second)),
		OnProgress: func(succeeded, failed int) {
			if err := w.jobs.UpdateCounts(ctx, id, baseSucceeded+succeeded, baseFailed+failed); err != nil {
				logger.Warnf("Bulk job %d: failed to update counts: %v", id, err)
			}
		},
	})

	if batchErr != nil && ctx.Err() != nil {
		// Interrupted by shutdown. The queue hands the task back and the
		// next run resumes from the messages still pending.
		return batchErr
	}

	status := domain.JobCompleted
	if errors.Is(batchErr, domain.ErrTransportFatal) || errors.Is(batchErr, domain.ErrBatchDeviceUnreachable) {
		status = domain.JobFailed
	}

	succeeded, failed := baseSucceeded+res.Succeeded, baseFailed+res.Failed
	if status == domain.JobFailed {
		// Messages never reached because of an abort stay pending; count them.
		failed = job.TotalMessages - succeeded
	}

	if err := w.jobs.Finish(ctx, id, status, succeeded, failed, w.now()); err != nil {
		return err
	}

	if batchErr != nil {
		logger.Errorf("Bulk job %d %s: %v", id, status, batchErr)
	} else {
		logger.Infof("Bulk job %d %s: %d sent, %d failed", id, status, succeeded, failed)
	}

	return nil
}

func (w *Worker) checkDevice(ctx context.Context) error {
	status, err := w.checker.Check(ctx)
	if err != nil && !errors.Is(err, domain.ErrTransportFatal) {
		return err
	}

	logger.Infof("Device check: connected=%t state=%s %s", status.Connected, status.State, status.Reason)
	return nil
}
