package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/pkg/logger"
)

// DSN builds the driver connection string. clientFoundRows makes
// RowsAffected report matched rows, so idempotent updates are not mistaken
// for missing rows.
func DSN(cfg environments.DatabaseConfig) string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci&clientFoundRows=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)
}

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS bulk_jobs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		filename VARCHAR(255) NOT NULL,
		sim_id INT NOT NULL DEFAULT 3,
		delay_seconds DOUBLE NOT NULL DEFAULT 1.0,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		total_messages INT NOT NULL DEFAULT 0,
		successful_messages INT NOT NULL DEFAULT 0,
		failed_messages INT NOT NULL DEFAULT 0,
		task_id VARCHAR(64),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME,
		INDEX idx_bulk_jobs_status (status),
		INDEX idx_bulk_jobs_created_at (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
	`,
	`
	CREATE TABLE IF NOT EXISTS messages (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		phone_number VARCHAR(20) NOT NULL,
		content TEXT NOT NULL,
		sim_id INT NOT NULL DEFAULT 3,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		failure_reason TEXT,
		bulk_job_id BIGINT,
		sent_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_messages_status (status),
		INDEX idx_messages_created_at (created_at),
		INDEX idx_messages_bulk_job (bulk_job_id, status),
		CONSTRAINT fk_messages_bulk_job FOREIGN KEY (bulk_job_id) REFERENCES bulk_jobs(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
	`,
}

func RunMigrations(db *sqlx.DB) error {
	for _, schema := range migrations {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

// SeedTestData inserts a few pending messages into an empty database.
func SeedTestData(db *sqlx.DB, simID int) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM messages")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d messages, skipping seed", count)
		return nil
	}

	testMessages := []struct {
		phoneNumber string
		content     string
	}{
		{"+254712345678", "Your verification code is 482913"},
		{"+254723456789", "Reminder: your appointment is tomorrow at 10 AM"},
		{"+254734567890", "Your order has been dispatched."},
	}

	for _, msg := range testMessages {
		_, err := db.Exec(
			"INSERT INTO messages (phone_number, content, sim_id, status) VALUES (?, ?, ?, 'pending')",
			msg.phoneNumber, msg.content, simID,
		)
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}
	}

	logger.Infof("Seeded %d test messages", len(testMessages))
	return nil
}
