package domain

import (
	"errors"
	"os/exec"
	"testing"
	"time"
)

func TestMessageStatus_IsTerminal(t *testing.T) {
	if StatusPending.IsTerminal() || StatusSending.IsTerminal() {
		t.Errorf("pending and sending must not be terminal")
	}
	if !StatusSent.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Errorf("sent and failed must be terminal")
	}
}

func TestTransportFatalError_MatchesSentinelAndCause(t *testing.T) {
	err := &TransportFatalError{Op: "adb devices", Err: exec.ErrNotFound}

	if !errors.Is(err, ErrTransportFatal) {
		t.Errorf("expected errors.Is(err, ErrTransportFatal)")
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("expected errors.Is(err, exec.ErrNotFound)")
	}

	var tf *TransportFatalError
	if !errors.As(err, &tf) || tf.Op != "adb devices" {
		t.Errorf("expected errors.As to recover the op")
	}
}

func TestBulkJob_ComputeProgress(t *testing.T) {
	job := &BulkJob{TotalMessages: 3, SuccessfulMessages: 1, FailedMessages: 1}
	job.ComputeProgress()

	if job.Progress != 66.7 {
		t.Errorf("expected progress 66.7, got %v", job.Progress)
	}

	empty := &BulkJob{}
	empty.ComputeProgress()
	if empty.Progress != 0 {
		t.Errorf("expected 0 progress for empty job, got %v", empty.Progress)
	}
}

func TestDeviceStatus_Stale(t *testing.T) {
	now := time.Now()

	fresh := &DeviceStatus{LastCheck: now.Add(-time.Minute)}
	if fresh.Stale(now, 5*time.Minute) {
		t.Errorf("expected fresh status")
	}

	old := &DeviceStatus{LastCheck: now.Add(-10 * time.Minute)}
	if !old.Stale(now, 5*time.Minute) {
		t.Errorf("expected stale status")
	}

	if !(&DeviceStatus{}).Stale(now, time.Hour) {
		t.Errorf("zero status must be stale")
	}
}

func TestOutcome_ErrUnwrapsToKindSentinel(t *testing.T) {
	if err := Sent(time.Now(), "").Err(); err != nil {
		t.Fatalf("sent outcome must have no error, got %v", err)
	}

	cases := []struct {
		kind FailureKind
		want error
	}{
		{FailureValidation, ErrValidation},
		{FailureUnreachable, ErrDeviceUnreachable},
		{FailureInvocation, ErrInvocation},
		{FailureTimeout, ErrTimeout},
		{FailureTransport, ErrTransportFatal},
	}

	for _, tc := range cases {
		err := Failed(tc.kind, "device unreachable: no device").Err()
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected errors.Is(err, %v)", tc.kind, tc.want)
		}
		if err.Error() != "device unreachable: no device" {
			t.Errorf("%s: reason should be the message, got %q", tc.kind, err.Error())
		}
	}
}
