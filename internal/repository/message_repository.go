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

var messageColumns = []string{
	"id", "phone_number", "content", "sim_id", "status", "failure_reason",
	"bulk_job_id", "sent_at", "created_at", "updated_at",
}

// MessageRepository handles database operations for messages.
type MessageRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	phoneNumber, content string,
	simID int,
	bulkJobID *int64,
) (*domain.Message, error) {
	query := `
		INSERT INTO messages (phone_number, content, sim_id, status, bulk_job_id, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query, phoneNumber, content, simID, bulkJobID)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID returns nil, nil when no row matches.
func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	query, args, err := r.sb.Select(messageColumns...).From("messages").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get message sql: %w", err)
	}

	var message domain.Message
	if err := r.db.GetContext(ctx, &message, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &message, nil
}

// MarkAsSent records the terminal sent state. Only a pending row is updated.
func (r *MessageRepository) MarkAsSent(ctx context.Context, id int64, sentAt time.Time) error {
	query := `
		UPDATE messages
		SET status = 'sent', sent_at = ?, failure_reason = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark message as sent: %w", err)
	}

	return r.checkTransition(ctx, result, id)
}

// MarkAsFailed records the terminal failed state. Only a pending row is updated.
func (r *MessageRepository) MarkAsFailed(ctx context.Context, id int64, reason string, at time.Time) error {
	query := `
		UPDATE messages
		SET status = 'failed', failure_reason = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, reason, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark message as failed: %w", err)
	}

	return r.checkTransition(ctx, result, id)
}

func (r *MessageRepository) checkTransition(ctx context.Context, result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("message %d: %w", id, domain.ErrMessageNotFound)
	}
	return fmt.Errorf("message %d is %s: %w", id, existing.Status, domain.ErrAlreadyTerminal)
}

func (r *MessageRepository) GetAll(
	ctx context.Context,
	status *domain.MessageStatus,
	page, pageSize int,
) ([]domain.Message, int64, error) {
	countSQL, countArgs, err := r.countQuery(status).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count messages sql: %w", err)
	}

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	listSQL, listArgs, err := r.listQuery(status, page, pageSize).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list messages sql: %w", err)
	}

	messages := []domain.Message{}
	if err := r.db.SelectContext(ctx, &messages, listSQL, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to get messages: %w", err)
	}

	return messages, totalCount, nil
}

func (r *MessageRepository) countQuery(status *domain.MessageStatus) sq.SelectBuilder {
	q := r.sb.Select("COUNT(*)").From("messages")
	if status != nil {
		q = q.Where(sq.Eq{"status": *status})
	}
	return q
}

func (r *MessageRepository) listQuery(status *domain.MessageStatus, page, pageSize int) sq.SelectBuilder {
	q := r.sb.Select(messageColumns...).From("messages")
	if status != nil {
		q = q.Where(sq.Eq{"status": *status})
	}
	return q.OrderBy("created_at DESC", "id DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize))
}

// GetPendingByJob returns the job's still-pending messages in submission order.
func (r *MessageRepository) GetPendingByJob(ctx context.Context, jobID int64) ([]domain.Message, error) {
	query, args, err := r.sb.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"bulk_job_id": jobID, "status": domain.StatusPending}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending by job sql: %w", err)
	}

	var messages []domain.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get pending messages for job %d: %w", jobID, err)
	}

	return messages, nil
}

// GetStats returns statistics about messages.
func (r *MessageRepository) GetStats(ctx context.Context) (domain.MessageStats, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0)    AS sent,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)  AS failed
		FROM messages
	`

	var stats domain.MessageStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return domain.MessageStats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	stats.Total = stats.Pending + stats.Sent + stats.Failed

	return stats, nil
}
