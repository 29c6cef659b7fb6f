// Package repository records terminal job outcomes. This is an audit trail
// for the inspection surface, not queue state: pending jobs are never
// persisted and a restart starts from an empty queue.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docparse/internal/entity"
)

// HistoryRecord is one terminal job outcome.
type HistoryRecord struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Variant       string    `json:"variant"`
	Status        string    `json:"status"`
	ExternalJobID string    `json:"external_job_id,omitempty"`
	ErrorDetail   string    `json:"error_detail,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// HistoryRepository stores and lists terminal job records.
type HistoryRepository interface {
	RecordOutcome(ctx context.Context, job *entity.Job) error
	ListRecent(ctx context.Context, limit int) ([]HistoryRecord, error)
	Close() error
}

// SQLiteHistory implements HistoryRepository on a local sqlite file.
type SQLiteHistory struct {
	db *sql.DB
}

func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// The worker is the only writer; a single connection avoids sqlite
	// write contention entirely.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping history db: %w", err)
	}

	repo := &SQLiteHistory{db: db}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return repo, nil
}

func (r *SQLiteHistory) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS job_history (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		variant TEXT NOT NULL,
		status TEXT NOT NULL,
		external_job_id TEXT NOT NULL DEFAULT '',
		error_detail TEXT NOT NULL DEFAULT '',
		submitted_at INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_job_history_finished_at ON job_history(finished_at DESC);
	`
	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteHistory) RecordOutcome(ctx context.Context, job *entity.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO job_history
			(id, source, variant, status, external_job_id, error_detail, submitted_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(),
		job.Source.String(),
		string(job.Variant),
		string(job.Status),
		job.ExternalJobID,
		job.ErrorDetail,
		job.SubmittedAt.UnixMilli(),
		job.StartedAt.UnixMilli(),
		job.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record outcome for job %s: %w", job.ID, err)
	}
	return nil
}

func (r *SQLiteHistory) ListRecent(ctx context.Context, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, variant, status, external_job_id, error_detail, submitted_at, started_at, finished_at
		FROM job_history ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var submitted, started, finished int64
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Variant, &rec.Status,
			&rec.ExternalJobID, &rec.ErrorDetail, &submitted, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.SubmittedAt = time.UnixMilli(submitted).UTC()
		rec.StartedAt = time.UnixMilli(started).UTC()
		rec.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteHistory) Close() error {
	return r.db.Close()
}
