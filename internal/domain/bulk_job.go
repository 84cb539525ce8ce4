package domain

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
		return true
	}
	return false
}

// BulkJob is the persisted view of a batch submitted through the API.
type BulkJob struct {
	ID                 int64      `db:"id" json:"id"`
	Filename           string     `db:"filename" json:"filename"`
	SimID              int        `db:"sim_id" json:"simId"`
	DelaySeconds       float64    `db:"delay_seconds" json:"delaySeconds"`
	Status             JobStatus  `db:"status" json:"status"`
	TotalMessages      int        `db:"total_messages" json:"totalMessages"`
	SuccessfulMessages int        `db:"successful_messages" json:"successfulMessages"`
	FailedMessages     int        `db:"failed_messages" json:"failedMessages"`
	TaskID             *string    `db:"task_id" json:"taskId,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	CompletedAt        *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	Progress           float64    `db:"-" json:"progress"`
}

// ComputeProgress fills Progress as the processed percentage, rounded to
// one decimal place.
func (j *BulkJob) ComputeProgress() {
	if j.TotalMessages <= 0 {
		j.Progress = 0
		return
	}
	done := j.SuccessfulMessages + j.FailedMessages
	p := float64(done) / float64(j.TotalMessages) * 100
	j.Progress = float64(int(p*10+0.5)) / 10
}

type JobStats struct {
	Pending    int64 `db:"pending" json:"pending"`
	Processing int64 `db:"processing" json:"processing"`
	Completed  int64 `db:"completed" json:"completed"`
	Failed     int64 `db:"failed" json:"failed"`
	Total      int64 `db:"-" json:"total"`
}

// BatchItem is one row handed to the batch coordinator. Err is set for rows
// that could not be parsed; they are counted as failures without dispatch.
type BatchItem struct {
	Row     int
	Message *Message
	Err     error
}

type BatchItemResult struct {
	Row         int           `json:"row"`
	MessageID   int64         `json:"messageId,omitempty"`
	PhoneNumber string        `json:"phoneNumber,omitempty"`
	Status      MessageStatus `json:"status"`
	Kind        FailureKind   `json:"kind,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

type BatchResult struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []BatchItemResult `json:"items"`
}
