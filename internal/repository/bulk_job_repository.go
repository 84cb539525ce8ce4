package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/Ammly/AdbSms/internal/domain"
)

var jobColumns = []string{
	"id", "filename", "sim_id", "delay_seconds", "status", "total_messages",
	"successful_messages", "failed_messages", "task_id", "created_at", "completed_at",
}

// NewBulkJob describes a job to insert. Rejected counts rows that failed
// parsing; they start out as failures and are never dispatched.
type NewBulkJob struct {
	Filename     string
	SimID        int
	DelaySeconds float64
	Recipients   []NewBulkMessage
	Rejected     int
}

type NewBulkMessage struct {
	PhoneNumber string
	Content     string
}

// BulkJobRepository handles database operations for bulk jobs.
type BulkJobRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func NewBulkJobRepository(db *sqlx.DB) *BulkJobRepository {
	return &BulkJobRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// CreateWithMessages inserts the job and one pending message per recipient
// in a single transaction, returning the job and message ids in input order.
func (r *BulkJobRepository) CreateWithMessages(ctx context.Context, job NewBulkJob) (*domain.BulkJob, []int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	total := len(job.Recipients) + job.Rejected

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bulk_jobs (filename, sim_id, delay_seconds, status, total_messages, successful_messages, failed_messages, created_at)
		VALUES (?, ?, ?, 'pending', ?, 0, ?, CURRENT_TIMESTAMP)
	`, job.Filename, job.SimID, job.DelaySeconds, total, job.Rejected)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bulk job: %w", err)
	}

	jobID, err := res.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	ids := make([]int64, 0, len(job.Recipients))
	for _, m := range job.Recipients {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO messages (phone_number, content, sim_id, status, bulk_job_id, created_at, updated_at)
			VALUES (?, ?, ?, 'pending', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		`, m.PhoneNumber, m.Content, job.SimID, jobID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create bulk message: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit bulk job: %w", err)
	}

	created, err := r.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	return created, ids, nil
}

// GetByID returns nil, nil when no row matches.
func (r *BulkJobRepository) GetByID(ctx context.Context, id int64) (*domain.BulkJob, error) {
	query, args, err := r.sb.Select(jobColumns...).From("bulk_jobs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get bulk job sql: %w", err)
	}

	var job domain.BulkJob
	if err := r.db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bulk job: %w", err)
	}
	job.ComputeProgress()

	return &job, nil
}

func (r *BulkJobRepository) List(ctx context.Context, status *domain.JobStatus, page, pageSize int) ([]domain.BulkJob, int64, error) {
	count := r.sb.Select("COUNT(*)").From("bulk_jobs")
	list := r.sb.Select(jobColumns...).From("bulk_jobs")
	if status != nil {
		count = count.Where(sq.Eq{"status": *status})
		list = list.Where(sq.Eq{"status": *status})
	}

	countSQL, countArgs, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count bulk jobs sql: %w", err)
	}

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count bulk jobs: %w", err)
	}

	listSQL, listArgs, err := list.OrderBy("created_at DESC", "id DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bulk jobs sql: %w", err)
	}

	jobs := []domain.BulkJob{}
	if err := r.db.SelectContext(ctx, &jobs, listSQL, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list bulk jobs: %w", err)
	}
	for i := range jobs {
		jobs[i].ComputeProgress()
	}

	return jobs, totalCount, nil
}

func (r *BulkJobRepository) SetTaskID(ctx context.Context, id int64, taskID string) error {
	return r.exec(ctx, "set bulk job task id",
		r.sb.Update("bulk_jobs").Set("task_id", taskID).Where(sq.Eq{"id": id}))
}

func (r *BulkJobRepository) MarkProcessing(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark bulk job processing",
		r.sb.Update("bulk_jobs").
			Set("status", domain.JobProcessing).
			Where(sq.Eq{"id": id, "status": []domain.JobStatus{domain.JobPending, domain.JobProcessing}}))
}

// UpdateCounts overwrites the running success and failure counters.
func (r *BulkJobRepository) UpdateCounts(ctx context.Context, id int64, succeeded, failed int) error {
	return r.exec(ctx, "update bulk job counts",
		r.sb.Update("bulk_jobs").
			Set("successful_messages", succeeded).
			Set("failed_messages", failed).
			Where(sq.Eq{"id": id}))
}

func (r *BulkJobRepository) Finish(ctx context.Context, id int64, status domain.JobStatus, succeeded, failed int, at time.Time) error {
	return r.exec(ctx, "finish bulk job",
		r.sb.Update("bulk_jobs").
			Set("status", status).
			Set("successful_messages", succeeded).
			Set("failed_messages", failed).
			Set("completed_at", at).
			Where(sq.Eq{"id": id}))
}

func (r *BulkJobRepository) GetStats(ctx context.Context) (domain.JobStats, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0)    AS pending,
			COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0) AS processing,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)  AS completed,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)     AS failed
		FROM bulk_jobs
	`

	var stats domain.JobStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return domain.JobStats{}, fmt.Errorf("failed to get bulk job stats: %w", err)
	}
	stats.Total = stats.Pending + stats.Processing + stats.Completed + stats.Failed

	return stats, nil
}

func (r *BulkJobRepository) exec(ctx context.Context, op string, b sq.UpdateBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", op, err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to %s: %w", op, domain.ErrJobNotFound)
	}

	return nil
}
