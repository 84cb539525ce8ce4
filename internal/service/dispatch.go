package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ammly/AdbSms/internal/device"
	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/pkg/logger"
	"github.com/Ammly/AdbSms/pkg/metrics"
)

// Small internal interfaces so the engine can be tested with fakes.
type linkManager interface {
	EnsureReady(ctx context.Context) (device.Readiness, error)
	MarkSuspect(reason string)
	Target() string
}

type sendInvoker interface {
	InvokeSend(ctx context.Context, deviceID string, simID int, recipient, content string) (device.Invocation, error)
}

type statusStore interface {
	MarkAsSent(ctx context.Context, id int64, sentAt time.Time) error
	MarkAsFailed(ctx context.Context, id int64, reason string, at time.Time) error
}

// Dispatcher takes one pending message to a terminal outcome.
type Dispatcher struct {
	link    linkManager
	invoker sendInvoker
	guard   device.Guard
	store   statusStore
	now     func() time.Time
}

// NewDispatcher wires the engine. store may be nil when outcomes are only
// reported to the caller (command line use).
func NewDispatcher(link linkManager, invoker sendInvoker, guard device.Guard, store statusStore) *Dispatcher {
	if guard == nil {
		guard = device.NewLocalGuard()
	}
	return &Dispatcher{
		link:    link,
		invoker: invoker,
		guard:   guard,
		store:   store,
		now:     time.Now,
	}
}

// Dispatch runs the message through validation, the device gate and the
// send invocation, then records the terminal status. The returned error is
// non-nil only for a transport fatal error, a status store failure
// (ErrOutcomeNotRecorded), or a message that is already terminal. On a store
// failure the outcome still describes what happened on the device.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *domain.Message) (domain.Outcome, error) {
	if msg.Status.IsTerminal() {
		return domain.Outcome{Status: msg.Status}, fmt.Errorf("message %d is %s: %w", msg.ID, msg.Status, domain.ErrAlreadyTerminal)
	}

	if reason := validateMessage(msg); reason != "" {
		logger.Warnf("Message %d rejected: %s", msg.ID, reason)
		return d.finish(ctx, msg, domain.Failed(domain.FailureValidation, "validation"), nil)
	}

	release, err := d.guard.Acquire(ctx, d.link.Target())
	if err != nil {
		return domain.Outcome{Status: msg.Status}, fmt.Errorf("failed to acquire device guard: %w", err)
	}
	outcome, fatal := d.attempt(ctx, msg)
	release()

	return d.finish(ctx, msg, outcome, fatal)
}

// attempt runs the guarded part of a dispatch. msg is in the transient
// sending state for its duration.
func (d *Dispatcher) attempt(ctx context.Context, msg *domain.Message) (domain.Outcome, error) {
	logger.Debugf("Message %d: %s -> %s", msg.ID, domain.StatusPending, domain.StatusSending)

	ready, err := d.link.EnsureReady(ctx)
	if err != nil {
		return domain.Failed(domain.FailureTransport, "transport fatal: "+err.Error()), err
	}
	if !ready.Ready {
		return domain.Failed(domain.FailureUnreachable, "device unreachable: "+ready.Reason), nil
	}

	inv, err := d.invoker.InvokeSend(ctx, ready.DeviceID, msg.SimID, msg.PhoneNumber, msg.Content)
	switch {
	case errors.Is(err, domain.ErrTransportFatal):
		return domain.Failed(domain.FailureTransport, "transport fatal: "+err.Error()), err
	case errors.Is(err, domain.ErrTimeout):
		d.link.MarkSuspect(fmt.Sprintf("send for message %d timed out", msg.ID))
		return domain.Failed(domain.FailureTimeout, "timeout"), nil
	case err != nil:
		return domain.Failed(domain.FailureInvocation, "invocation error: "+err.Error()), nil
	case !inv.ExitedCleanly:
		return domain.Failed(domain.FailureInvocation, "invocation error: "+inv.RawOutput), nil
	}

	return domain.Sent(d.now(), inv.RawOutput), nil
}

func (d *Dispatcher) finish(ctx context.Context, msg *domain.Message, outcome domain.Outcome, fatal error) (domain.Outcome, error) {
	metrics.IncDispatch(string(outcome.Status), string(outcome.Kind))

	if d.store != nil && msg.ID != 0 {
		var err error
		if outcome.Succeeded() {
			err = d.store.MarkAsSent(ctx, msg.ID, *outcome.SentAt)
		} else {
			err = d.store.MarkAsFailed(ctx, msg.ID, outcome.Reason, d.now())
		}
		if err != nil {
			logger.Errorf("Failed to record outcome for message %d: %v", msg.ID, err)
			err = fmt.Errorf("%w: %w", domain.ErrOutcomeNotRecorded, err)
			if fatal != nil {
				return outcome, errors.Join(fatal, err)
			}
			return outcome, err
		}
	}

	msg.Status = outcome.Status
	msg.SentAt = outcome.SentAt
	if !outcome.Succeeded() {
		reason := outcome.Reason
		msg.FailureReason = &reason
	}

	if outcome.Succeeded() {
		logger.Infof("Message %d sent to %s", msg.ID, msg.PhoneNumber)
	} else {
		logger.Warnf("Message %d failed: %s", msg.ID, outcome.Reason)
	}

	return outcome, fatal
}

func validateMessage(msg *domain.Message) string {
	switch {
	case strings.TrimSpace(msg.PhoneNumber) == "":
		return "empty recipient"
	case strings.TrimSpace(msg.Content) == "":
		return "empty content"
	case msg.SimID < 0:
		return "negative sim id"
	}
	return ""
}
