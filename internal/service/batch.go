package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/pkg/logger"
	"github.com/Ammly/AdbSms/pkg/metrics"
)

type messageDispatcher interface {
	Dispatch(ctx context.Context, msg *domain.Message) (domain.Outcome, error)
}

type BatchOptions struct {
	// Delay is slept between consecutive device dispatches.
	Delay time.Duration
	// OnProgress, if set, is called after every item with running totals.
	OnProgress func(succeeded, failed int)
}

// BatchCoordinator dispatches an ordered list of messages one at a time.
type BatchCoordinator struct {
	dispatcher messageDispatcher
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewBatchCoordinator(dispatcher messageDispatcher) *BatchCoordinator {
	return &BatchCoordinator{
		dispatcher: dispatcher,
		sleep:      sleepContext,
	}
}

// DispatchBatch processes items in order. A failed item never stops the
// batch; a transport fatal error aborts it and is returned together with the
// partial result. If nothing succeeded and every failure was an unreachable
// device the result comes back with ErrBatchDeviceUnreachable.
func (b *BatchCoordinator) DispatchBatch(ctx context.Context, items []domain.BatchItem, opts BatchOptions) (domain.BatchResult, error) {
	res := domain.BatchResult{
		Total: len(items),
		Items: make([]domain.BatchItemResult, 0, len(items)),
	}

	logger.Infof("Starting batch of %d messages (delay %v)", len(items), opts.Delay)

	allUnreachable := true
	dispatched := false

	for _, item := range items {
		if item.Err != nil || item.Message == nil {
			reason := "malformed row"
			if item.Err != nil {
				reason = item.Err.Error()
			}
			logger.Warnf("Row %d skipped: %s", item.Row, reason)

			allUnreachable = false
			b.record(&res, opts, domain.BatchItemResult{
				Row:    item.Row,
				Status: domain.StatusFailed,
				Kind:   domain.FailureValidation,
				Reason: reason,
			})
			continue
		}

		if dispatched && opts.Delay > 0 {
			if err := b.sleep(ctx, opts.Delay); err != nil {
				return b.finish(res), fmt.Errorf("batch interrupted before row %d: %w", item.Row, err)
			}
		}

		msg := item.Message
		outcome, err := b.dispatcher.Dispatch(ctx, msg)
		dispatched = true

		entry := domain.BatchItemResult{
			Row:         item.Row,
			MessageID:   msg.ID,
			PhoneNumber: msg.PhoneNumber,
			Status:      outcome.Status,
			Kind:        outcome.Kind,
			Reason:      outcome.Reason,
		}

		if err != nil {
			if outcome.Succeeded() && errors.Is(err, domain.ErrOutcomeNotRecorded) {
				entry.Reason = "sent, not recorded"
			} else {
				entry.Status = domain.StatusFailed
				if entry.Reason == "" {
					entry.Reason = err.Error()
				}
			}
			allUnreachable = false
			b.record(&res, opts, entry)

			if errors.Is(err, domain.ErrTransportFatal) {
				logger.Errorf("Row %d: transport fatal, aborting batch: %v", item.Row, err)
				return b.finish(res), fmt.Errorf("batch aborted at row %d: %w", item.Row, err)
			}
			if ctx.Err() != nil {
				return b.finish(res), fmt.Errorf("batch interrupted at row %d: %w", item.Row, ctx.Err())
			}

			logger.Errorf("Row %d: %v", item.Row, err)
			continue
		}

		if outcome.Succeeded() {
			logger.Infof("Row %d: sent to %s", item.Row, msg.PhoneNumber)
		} else {
			if outcome.Kind != domain.FailureUnreachable {
				allUnreachable = false
			}
			logger.Warnf("Row %d: failed for %s: %s", item.Row, msg.PhoneNumber, outcome.Reason)
		}
		b.record(&res, opts, entry)
	}

	res = b.finish(res)

	if res.Succeeded == 0 && res.Failed > 0 && allUnreachable {
		return res, fmt.Errorf("%d of %d messages failed: %w", res.Failed, res.Total, domain.ErrBatchDeviceUnreachable)
	}

	return res, nil
}

func (b *BatchCoordinator) record(res *domain.BatchResult, opts BatchOptions, entry domain.BatchItemResult) {
	if entry.Status == domain.StatusSent {
		res.Succeeded++
		metrics.IncBatchItem("sent")
	} else {
		res.Failed++
		metrics.IncBatchItem("failed")
	}
	res.Items = append(res.Items, entry)

	if opts.OnProgress != nil {
		opts.OnProgress(res.Succeeded, res.Failed)
	}
}

func (b *BatchCoordinator) finish(res domain.BatchResult) domain.BatchResult {
	logger.Infof("Batch finished: %d sent, %d failed, %d total", res.Succeeded, res.Failed, res.Total)
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
