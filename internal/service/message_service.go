package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/internal/batchinput"
	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/internal/queue"
	"github.com/Ammly/AdbSms/internal/repository"
	"github.com/Ammly/AdbSms/pkg/logger"
	"github.com/Ammly/AdbSms/pkg/validator"
)

// Small internal interfaces so we can test without touching real DB/Valkey.
type messageRepository interface {
	Create(ctx context.Context, phoneNumber, content string, simID int, bulkJobID *int64) (*domain.Message, error)
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	GetAll(ctx context.Context, status *domain.MessageStatus, page, pageSize int) ([]domain.Message, int64, error)
	GetStats(ctx context.Context) (domain.MessageStats, error)
	MarkAsFailed(ctx context.Context, id int64, reason string, at time.Time) error
}

type jobRepository interface {
	CreateWithMessages(ctx context.Context, job repository.NewBulkJob) (*domain.BulkJob, []int64, error)
	GetByID(ctx context.Context, id int64) (*domain.BulkJob, error)
	List(ctx context.Context, status *domain.JobStatus, page, pageSize int) ([]domain.BulkJob, int64, error)
	SetTaskID(ctx context.Context, id int64, taskID string) error
	Finish(ctx context.Context, id int64, status domain.JobStatus, succeeded, failed int, at time.Time) error
	GetStats(ctx context.Context) (domain.JobStats, error)
}

type taskQueue interface {
	Enqueue(ctx context.Context, task queue.Task) (string, error)
}

type statusCache interface {
	CacheDeviceStatus(ctx context.Context, status domain.DeviceStatus) error
	GetDeviceStatus(ctx context.Context) (*domain.DeviceStatus, error)
}

// reasonQueueUnavailable is recorded on work that was stored but could not
// be queued.
const reasonQueueUnavailable = "queue unavailable"

type MessageService struct {
	messages  messageRepository
	jobs      jobRepository
	tasks     taskQueue
	cache     statusCache
	config    environments.DispatchConfig
	statusTTL time.Duration
	now       func() time.Time
}

// NewMessageService builds the service. cache may be nil, in which case
// device status requests always trigger a fresh check.
func NewMessageService(
	messages messageRepository,
	jobs jobRepository,
	tasks taskQueue,
	cache statusCache,
	config environments.DispatchConfig,
	statusTTL time.Duration,
) *MessageService {
	return &MessageService{
		messages:  messages,
		jobs:      jobs,
		tasks:     tasks,
		cache:     cache,
		config:    config,
		statusTTL: statusTTL,
		now:       time.Now,
	}
}

type Submission struct {
	Message *domain.Message `json:"message"`
	TaskID  string          `json:"taskId"`
}

// SubmitMessage stores a pending message and queues it for sending.
func (s *MessageService) SubmitMessage(ctx context.Context, phoneNumber, content string, simID *int) (*Submission, error) {
	sim := s.config.DefaultSimID
	if simID != nil {
		sim = *simID
	}

	if err := s.validate(phoneNumber, content, sim); err != nil {
		return nil, err
	}

	msg, err := s.messages.Create(ctx, strings.TrimSpace(phoneNumber), content, sim, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	taskID, err := s.tasks.Enqueue(ctx, queue.Task{Kind: queue.KindSendSMS, MessageID: msg.ID})
	if err != nil {
		s.abandonMessage(ctx, msg.ID)
		return nil, fmt.Errorf("failed to queue message %d: %w", msg.ID, err)
	}

	logger.Infof("Message %d queued as task %s", msg.ID, taskID)

	return &Submission{Message: msg, TaskID: taskID}, nil
}

func (s *MessageService) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d: %w", id, domain.ErrMessageNotFound)
	}
	return msg, nil
}

func (s *MessageService) GetAllMessages(
	ctx context.Context,
	status *domain.MessageStatus,
	page,
	pageSize int,
) ([]domain.Message, int64, error) {
	return s.messages.GetAll(ctx, status, page, pageSize)
}

// ResendMessage queues a new message with the same recipient, content and
// sim as a failed one. The failed record is left untouched.
func (s *MessageService) ResendMessage(ctx context.Context, id int64) (*Submission, error) {
	original, err := s.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.Status != domain.StatusFailed {
		return nil, fmt.Errorf("%w: only failed messages can be resent (message %d is %s)", domain.ErrValidation, id, original.Status)
	}

	msg, err := s.messages.Create(ctx, original.PhoneNumber, original.Content, original.SimID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	taskID, err := s.tasks.Enqueue(ctx, queue.Task{Kind: queue.KindSendSMS, MessageID: msg.ID})
	if err != nil {
		s.abandonMessage(ctx, msg.ID)
		return nil, fmt.Errorf("failed to queue message %d: %w", msg.ID, err)
	}

	logger.Infof("Message %d resent as message %d (task %s)", id, msg.ID, taskID)

	return &Submission{Message: msg, TaskID: taskID}, nil
}

type RowAcceptance struct {
	Row      int    `json:"row"`
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

type BulkSubmission struct {
	Job    *domain.BulkJob `json:"job"`
	TaskID string          `json:"taskId"`
	Rows   []RowAcceptance `json:"rows"`
}

// SubmitBulk stores a job for the parsed rows and queues it. Rows that fail
// validation are reported back and counted as failures of the job.
func (s *MessageService) SubmitBulk(
	ctx context.Context,
	filename string,
	rows []batchinput.Row,
	simID int,
	delay time.Duration,
) (*BulkSubmission, error) {
	if delay < s.config.MinDelay || delay > s.config.MaxDelay {
		return nil, fmt.Errorf("%w: delay must be between %v and %v", domain.ErrValidation, s.config.MinDelay, s.config.MaxDelay)
	}
	if simID < 0 {
		return nil, fmt.Errorf("%w: sim id must not be negative", domain.ErrValidation)
	}
	if s.config.MaxBulkRows > 0 && len(rows) > s.config.MaxBulkRows {
		return nil, fmt.Errorf("%w: at most %d rows are allowed", domain.ErrValidation, s.config.MaxBulkRows)
	}

	job := repository.NewBulkJob{
		Filename:     filename,
		SimID:        simID,
		DelaySeconds: delay.Seconds(),
	}
	acceptance := make([]RowAcceptance, 0, len(rows))

	for _, row := range rows {
		err := row.Err
		if err == nil {
			err = s.validate(row.PhoneNumber, row.Message, simID)
		}
		if err != nil {
			job.Rejected++
			acceptance = append(acceptance, RowAcceptance{Row: row.Line, Error: err.Error()})
			logger.Warnf("Bulk %s row %d rejected: %v", filename, row.Line, err)
			continue
		}

		job.Recipients = append(job.Recipients, repository.NewBulkMessage{
			PhoneNumber: row.PhoneNumber,
			Content:     row.Message,
		})
		acceptance = append(acceptance, RowAcceptance{Row: row.Line, Accepted: true})
	}

	if len(job.Recipients) == 0 {
		return nil, fmt.Errorf("%w: no valid messages found", domain.ErrValidation)
	}

	created, messageIDs, err := s.jobs.CreateWithMessages(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk job: %w", err)
	}

	taskID, err := s.tasks.Enqueue(ctx, queue.Task{Kind: queue.KindBulkSMS, JobID: created.ID})
	if err != nil {
		s.abandonJob(ctx, created, messageIDs)
		return nil, fmt.Errorf("failed to queue bulk job %d: %w", created.ID, err)
	}

	if err := s.jobs.SetTaskID(ctx, created.ID, taskID); err != nil {
		logger.Warnf("Failed to store task id for bulk job %d: %v", created.ID, err)
	} else {
		created.TaskID = &taskID
	}

	logger.Infof("Bulk job %d queued: %d messages, %d rejected (task %s)",
		created.ID, len(job.Recipients), job.Rejected, taskID)

	return &BulkSubmission{Job: created, TaskID: taskID, Rows: acceptance}, nil
}

// abandonMessage fails a stored message whose task never made it onto the
// queue, so it does not sit pending forever.
func (s *MessageService) abandonMessage(ctx context.Context, id int64) {
	if err := s.messages.MarkAsFailed(ctx, id, reasonQueueUnavailable, s.now()); err != nil {
		logger.Errorf("Message %d could not be queued and stays pending: %v", id, err)
	}
}

func (s *MessageService) abandonJob(ctx context.Context, job *domain.BulkJob, messageIDs []int64) {
	for _, id := range messageIDs {
		s.abandonMessage(ctx, id)
	}
	if err := s.jobs.Finish(ctx, job.ID, domain.JobFailed, 0, job.TotalMessages, s.now()); err != nil {
		logger.Errorf("Bulk job %d could not be queued and stays %s: %v", job.ID, job.Status, err)
	}
}

func (s *MessageService) GetBulkJob(ctx context.Context, id int64) (*domain.BulkJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("bulk job %d: %w", id, domain.ErrJobNotFound)
	}
	return job, nil
}

func (s *MessageService) ListBulkJobs(ctx context.Context, status *domain.JobStatus, page, pageSize int) ([]domain.BulkJob, int64, error) {
	return s.jobs.List(ctx, status, page, pageSize)
}

const (
	DeviceStatusFresh      = "ok"
	DeviceStatusChecking   = "checking"
	DeviceStatusRefreshing = "refreshing"
)

type DeviceStatusView struct {
	Status string               `json:"status"`
	Device *domain.DeviceStatus `json:"device,omitempty"`
	TaskID string               `json:"taskId,omitempty"`
}

// GetDeviceStatus returns the cached device status, queueing a re-check when
// it is missing or older than the staleness window.
func (s *MessageService) GetDeviceStatus(ctx context.Context) (*DeviceStatusView, error) {
	var cached *domain.DeviceStatus
	if s.cache != nil {
		var err error
		cached, err = s.cache.GetDeviceStatus(ctx)
		if err != nil {
			logger.Warnf("Failed to read cached device status: %v", err)
		}
	}

	if cached != nil && !cached.Stale(s.now(), s.statusTTL) {
		return &DeviceStatusView{Status: DeviceStatusFresh, Device: cached}, nil
	}

	taskID, err := s.CheckDevice(ctx)
	if err != nil {
		return nil, err
	}

	if cached == nil {
		return &DeviceStatusView{Status: DeviceStatusChecking, TaskID: taskID}, nil
	}
	return &DeviceStatusView{Status: DeviceStatusRefreshing, Device: cached, TaskID: taskID}, nil
}

// CheckDevice queues an asynchronous readiness check.
func (s *MessageService) CheckDevice(ctx context.Context) (string, error) {
	taskID, err := s.tasks.Enqueue(ctx, queue.Task{Kind: queue.KindCheckDevice})
	if err != nil {
		return "", fmt.Errorf("failed to queue device check: %w", err)
	}
	return taskID, nil
}

type Stats struct {
	Messages domain.MessageStats  `json:"messages"`
	Jobs     domain.JobStats      `json:"bulkJobs"`
	Device   *domain.DeviceStatus `json:"device,omitempty"`
}

func (s *MessageService) GetStats(ctx context.Context) (*Stats, error) {
	msgStats, err := s.messages.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	jobStats, err := s.jobs.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Messages: msgStats, Jobs: jobStats}
	if s.cache != nil {
		if status, err := s.cache.GetDeviceStatus(ctx); err == nil {
			stats.Device = status
		}
	}

	return stats, nil
}

// validate applies the API submission rules on top of the engine's own
// non-empty checks.
func (s *MessageService) validate(phoneNumber, content string, simID int) error {
	phone := strings.TrimSpace(phoneNumber)

	var problems []string
	if !strings.HasPrefix(phone, "+") || len(phone) < validator.MinPhoneLength {
		problems = append(problems, fmt.Sprintf("phone number must start with + and have at least %d characters", validator.MinPhoneLength))
	}
	if strings.TrimSpace(content) == "" {
		problems = append(problems, "content must not be empty")
	}
	if s.config.MaxContentLength > 0 && utf8.RuneCountInString(content) > s.config.MaxContentLength {
		problems = append(problems, fmt.Sprintf("content exceeds maximum length of %d characters", s.config.MaxContentLength))
	}
	if simID < 0 {
		problems = append(problems, "sim id must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// IsValidation reports whether err is a caller input problem.
func IsValidation(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}
