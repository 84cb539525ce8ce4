package domain

import "time"

type MessageStatus string

const (
	StatusPending MessageStatus = "pending"
	StatusSending MessageStatus = "sending"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s MessageStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

func (s MessageStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

type Message struct {
	ID            int64         `db:"id" json:"id"`
	PhoneNumber   string        `db:"phone_number" json:"phoneNumber"`
	Content       string        `db:"content" json:"content"`
	SimID         int           `db:"sim_id" json:"simId"`
	Status        MessageStatus `db:"status" json:"status"`
	FailureReason *string       `db:"failure_reason" json:"failureReason,omitempty"`
	BulkJobID     *int64        `db:"bulk_job_id" json:"bulkJobId,omitempty"`
	SentAt        *time.Time    `db:"sent_at" json:"sentAt,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}

// FailureKind classifies why a dispatch ended in failure.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureValidation  FailureKind = "validation"
	FailureUnreachable FailureKind = "device_unreachable"
	FailureInvocation  FailureKind = "invocation"
	FailureTimeout     FailureKind = "timeout"
	FailureTransport   FailureKind = "transport_fatal"
)

// Outcome is the terminal result of one dispatch attempt.
type Outcome struct {
	Status MessageStatus
	Kind   FailureKind
	Reason string
	SentAt *time.Time
	Output string
}

func (o Outcome) Succeeded() bool {
	return o.Status == StatusSent
}

// Err is nil for a sent message, otherwise a *DispatchError.
func (o Outcome) Err() error {
	if o.Succeeded() {
		return nil
	}
	return &DispatchError{Kind: o.Kind, Reason: o.Reason}
}

func Sent(at time.Time, output string) Outcome {
	return Outcome{Status: StatusSent, SentAt: &at, Output: output}
}

func Failed(kind FailureKind, reason string) Outcome {
	return Outcome{Status: StatusFailed, Kind: kind, Reason: reason}
}

type MessageStats struct {
	Pending int64 `db:"pending" json:"pending"`
	Sent    int64 `db:"sent" json:"sent"`
	Failed  int64 `db:"failed" json:"failed"`
	Total   int64 `db:"-" json:"total"`
}
