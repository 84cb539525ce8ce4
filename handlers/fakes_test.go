package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/internal/queue"
	"github.com/Ammly/AdbSms/internal/repository"
	"github.com/Ammly/AdbSms/internal/service"
)

type fakeMessages struct {
	mu       sync.Mutex
	nextID   int64
	messages map[int64]*domain.Message
}

func (r *fakeMessages) Create(ctx context.Context, phoneNumber, content string, simID int, bulkJobID *int64) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	msg := &domain.Message{ID: r.nextID, PhoneNumber: phoneNumber, Content: content, SimID: simID, Status: domain.StatusPending}
	r.messages[msg.ID] = msg
	return msg, nil
}

func (r *fakeMessages) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[id], nil
}

func (r *fakeMessages) GetAll(ctx context.Context, status *domain.MessageStatus, page, pageSize int) ([]domain.Message, int64, error) {
	return []domain.Message{}, 0, nil
}

func (r *fakeMessages) GetStats(ctx context.Context) (domain.MessageStats, error) {
	return domain.MessageStats{Pending: 1, Sent: 2, Failed: 3}, nil
}

func (r *fakeMessages) MarkAsFailed(ctx context.Context, id int64, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.messages[id]; ok {
		msg.Status = domain.StatusFailed
		msg.FailureReason = &reason
	}
	return nil
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[int64]*domain.BulkJob
}

func (r *fakeJobs) CreateWithMessages(ctx context.Context, job repository.NewBulkJob) (*domain.BulkJob, []int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := int64(len(r.jobs) + 1)
	created := &domain.BulkJob{
		ID:             id,
		Filename:       job.Filename,
		SimID:          job.SimID,
		DelaySeconds:   job.DelaySeconds,
		Status:         domain.JobPending,
		TotalMessages:  len(job.Recipients) + job.Rejected,
		FailedMessages: job.Rejected,
	}
	r.jobs[id] = created
	return created, nil, nil
}

func (r *fakeJobs) GetByID(ctx context.Context, id int64) (*domain.BulkJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id], nil
}

func (r *fakeJobs) List(ctx context.Context, status *domain.JobStatus, page, pageSize int) ([]domain.BulkJob, int64, error) {
	return []domain.BulkJob{}, 0, nil
}

func (r *fakeJobs) SetTaskID(ctx context.Context, id int64, taskID string) error {
	return nil
}

func (r *fakeJobs) Finish(ctx context.Context, id int64, status domain.JobStatus, succeeded, failed int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = status
	}
	return nil
}

func (r *fakeJobs) GetStats(ctx context.Context) (domain.JobStats, error) {
	return domain.JobStats{Completed: 1}, nil
}

type fakeTasks struct {
	mu    sync.Mutex
	tasks []queue.Task
}

func (q *fakeTasks) Enqueue(ctx context.Context, task queue.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return fmt.Sprintf("task-%d", len(q.tasks)), nil
}

type testService struct {
	svc      *service.MessageService
	messages *fakeMessages
	jobs     *fakeJobs
	tasks    *fakeTasks
}

func testDispatchConfig() environments.DispatchConfig {
	return environments.DispatchConfig{
		DefaultSimID:     3,
		DefaultDelay:     time.Second,
		MinDelay:         100 * time.Millisecond,
		MaxDelay:         10 * time.Second,
		MaxBulkRows:      1000,
		MaxContentLength: 1000,
	}
}

func newTestService() *testService {
	ts := &testService{
		messages: &fakeMessages{nextID: 100, messages: map[int64]*domain.Message{}},
		jobs:     &fakeJobs{jobs: map[int64]*domain.BulkJob{}},
		tasks:    &fakeTasks{},
	}
	// A nil cache makes every status request queue a fresh check.
	ts.svc = service.NewMessageService(ts.messages, ts.jobs, ts.tasks, nil, testDispatchConfig(), 5*time.Minute)
	return ts
}
