package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrDeviceUnreachable      = errors.New("device unreachable")
	ErrInvocation             = errors.New("invocation error")
	ErrTimeout                = errors.New("device command timed out")
	ErrTransportFatal         = errors.New("device transport unavailable")
	ErrAlreadyTerminal        = errors.New("message already in terminal state")
	ErrBatchDeviceUnreachable = errors.New("batch failed: device unreachable for every item")
	ErrMessageNotFound        = errors.New("message not found")
	ErrJobNotFound            = errors.New("bulk job not found")
	ErrOutcomeNotRecorded     = errors.New("outcome not recorded")
)

// TransportFatalError means the adb tool itself cannot be run
// (missing binary, permission denied). Retrying cannot help.
type TransportFatalError struct {
	Op  string
	Err error
}

func (e *TransportFatalError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransportFatal, e.Op, e.Err)
}

func (e *TransportFatalError) Unwrap() []error {
	return []error{ErrTransportFatal, e.Err}
}

var failureSentinels = map[FailureKind]error{
	FailureValidation:  ErrValidation,
	FailureUnreachable: ErrDeviceUnreachable,
	FailureInvocation:  ErrInvocation,
	FailureTimeout:     ErrTimeout,
	FailureTransport:   ErrTransportFatal,
}

// DispatchError is a failed Outcome as an error. It unwraps to the sentinel
// for its kind.
type DispatchError struct {
	Kind   FailureKind
	Reason string
}

func (e *DispatchError) Error() string {
	return e.Reason
}

func (e *DispatchError) Unwrap() error {
	return failureSentinels[e.Kind]
}
