package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ammly/AdbSms/internal/device"
	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/internal/queue"
	"github.com/Ammly/AdbSms/internal/repository"
)

//
// Test fakes shared by the service tests.
//

type fakeLink struct {
	mu          sync.Mutex
	readiness   device.Readiness
	err         error
	target      string
	ensureCalls int
	suspects    []string
}

func readyLink() *fakeLink {
	return &fakeLink{readiness: device.Readiness{Ready: true, DeviceID: "emulator-5554", State: domain.DeviceStateDevice}}
}

func (l *fakeLink) EnsureReady(ctx context.Context) (device.Readiness, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureCalls++
	return l.readiness, l.err
}

func (l *fakeLink) MarkSuspect(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suspects = append(l.suspects, reason)
}

func (l *fakeLink) Target() string {
	return l.target
}

func (l *fakeLink) Status() domain.DeviceStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.DeviceStatus{
		DeviceID:  l.readiness.DeviceID,
		Connected: l.readiness.Ready,
		State:     l.readiness.State,
		Reason:    l.readiness.Reason,
		LastCheck: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

type sendCall struct {
	deviceID  string
	simID     int
	recipient string
	content   string
}

type fakeInvoker struct {
	mu     sync.Mutex
	result device.Invocation
	err    error
	hold   time.Duration
	calls  []sendCall

	active    int32
	maxActive int32
}

func cleanInvoker() *fakeInvoker {
	return &fakeInvoker{result: device.Invocation{ExitedCleanly: true, RawOutput: "Result: Parcel(00000000    '....')"}}
}

func (f *fakeInvoker) InvokeSend(ctx context.Context, deviceID string, simID int, recipient, content string) (device.Invocation, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxActive, m, n) {
			break
		}
	}

	if f.hold > 0 {
		time.Sleep(f.hold)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sendCall{deviceID: deviceID, simID: simID, recipient: recipient, content: content})
	return f.result, f.err
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStore struct {
	mu     sync.Mutex
	sent   map[int64]int
	failed map[int64]string
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sent: map[int64]int{}, failed: map[int64]string{}}
}

func (s *fakeStore) MarkAsSent(ctx context.Context, id int64, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent[id]++
	return nil
}

func (s *fakeStore) MarkAsFailed(ctx context.Context, id int64, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.failed[id] = reason
	return nil
}

// fakeDispatcher returns canned outcomes per message id; unknown ids succeed.
type fakeDispatcher struct {
	mu       sync.Mutex
	outcomes map[int64]domain.Outcome
	errs     map[int64]error
	calls    []int64

	// unrecorded ids are sent but the status write fails.
	unrecorded map[int64]bool
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, msg *domain.Message) (domain.Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, msg.ID)

	if err, ok := d.errs[msg.ID]; ok {
		return domain.Failed(domain.FailureTransport, "transport fatal: "+err.Error()), err
	}
	if d.unrecorded[msg.ID] {
		return domain.Sent(time.Now(), "Parcel"), fmt.Errorf("%w: connection refused", domain.ErrOutcomeNotRecorded)
	}
	if o, ok := d.outcomes[msg.ID]; ok {
		return o, nil
	}
	return domain.Sent(time.Now(), "Parcel"), nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   int64
	messages map[int64]*domain.Message
	pending  map[int64][]domain.Message
	stats    domain.MessageStats
	err      error
	failErr  error
	created  []domain.Message
	failed   map[int64]string
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		nextID:   100,
		messages: map[int64]*domain.Message{},
		pending:  map[int64][]domain.Message{},
		failed:   map[int64]string{},
	}
}

func (r *fakeMessageRepo) Create(ctx context.Context, phoneNumber, content string, simID int, bulkJobID *int64) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.nextID++
	msg := &domain.Message{
		ID:          r.nextID,
		PhoneNumber: phoneNumber,
		Content:     content,
		SimID:       simID,
		Status:      domain.StatusPending,
		BulkJobID:   bulkJobID,
	}
	r.messages[msg.ID] = msg
	r.created = append(r.created, *msg)
	return msg, nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	msg, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *msg
	return &cp, nil
}

func (r *fakeMessageRepo) GetAll(ctx context.Context, status *domain.MessageStatus, page, pageSize int) ([]domain.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if status == nil || m.Status == *status {
			out = append(out, *m)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeMessageRepo) GetStats(ctx context.Context) (domain.MessageStats, error) {
	return r.stats, r.err
}

func (r *fakeMessageRepo) MarkAsFailed(ctx context.Context, id int64, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.failed[id] = reason
	if msg, ok := r.messages[id]; ok {
		msg.Status = domain.StatusFailed
		msg.FailureReason = &reason
	}
	return nil
}

func (r *fakeMessageRepo) GetPendingByJob(ctx context.Context, jobID int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[jobID], r.err
}

type countUpdate struct {
	succeeded int
	failed    int
}

type finishCall struct {
	id        int64
	status    domain.JobStatus
	succeeded int
	failed    int
}

type fakeJobRepo struct {
	mu         sync.Mutex
	jobs       map[int64]*domain.BulkJob
	created    []repository.NewBulkJob
	taskIDs    map[int64]string
	processing []int64
	updates    []countUpdate
	finished   []finishCall
	stats      domain.JobStats
	err        error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[int64]*domain.BulkJob{}, taskIDs: map[int64]string{}}
}

func (r *fakeJobRepo) CreateWithMessages(ctx context.Context, job repository.NewBulkJob) (*domain.BulkJob, []int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, nil, r.err
	}
	r.created = append(r.created, job)

	id := int64(len(r.created))
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

	ids := make([]int64, len(job.Recipients))
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return created, ids, nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id int64) (*domain.BulkJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (r *fakeJobRepo) List(ctx context.Context, status *domain.JobStatus, page, pageSize int) ([]domain.BulkJob, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.BulkJob
	for _, j := range r.jobs {
		if status == nil || j.Status == *status {
			out = append(out, *j)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeJobRepo) SetTaskID(ctx context.Context, id int64, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taskIDs[id] = taskID
	return nil
}

func (r *fakeJobRepo) MarkProcessing(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processing = append(r.processing, id)
	return nil
}

func (r *fakeJobRepo) UpdateCounts(ctx context.Context, id int64, succeeded, failed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, countUpdate{succeeded: succeeded, failed: failed})
	return nil
}

func (r *fakeJobRepo) Finish(ctx context.Context, id int64, status domain.JobStatus, succeeded, failed int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, finishCall{id: id, status: status, succeeded: succeeded, failed: failed})
	return nil
}

func (r *fakeJobRepo) GetStats(ctx context.Context) (domain.JobStats, error) {
	return r.stats, r.err
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []queue.Task
	err   error
}

func (q *fakeQueue) Enqueue(ctx context.Context, task queue.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, task)
	return fmt.Sprintf("task-%d", len(q.tasks)), nil
}

type fakeCache struct {
	mu     sync.Mutex
	status *domain.DeviceStatus
	stored []domain.DeviceStatus
}

func (c *fakeCache) CacheDeviceStatus(ctx context.Context, status domain.DeviceStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = append(c.stored, status)
	cp := status
	c.status = &cp
	return nil
}

func (c *fakeCache) GetDeviceStatus(ctx context.Context) (*domain.DeviceStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, nil
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func pendingMessage(id int64, phone, content string) *domain.Message {
	return &domain.Message{ID: id, PhoneNumber: phone, Content: content, SimID: 3, Status: domain.StatusPending}
}
