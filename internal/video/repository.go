package video

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/lectio/internal/database"
)

//go:generate mockgen -source=repository.go -destination=../mocks/video/mock_store.go -package=mock_video

// Store persists video jobs and their processing logs.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	FindBySource(ctx context.Context, userID, sourceID string) (*Job, error)
	FindByStatus(ctx context.Context, status Status) ([]Job, error)
	Update(ctx context.Context, job *Job) error
	// Claim moves a pending or failed job to processing and reports whether it did.
	// It is the guard against two pipeline runs on the same job.
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	AppendLog(ctx context.Context, entry *LogEntry) error
}

const jobColumns = "id, user_id, source_id, source_url, title, description, duration_seconds, summary, key_topics, learning_objectives, status, stage, error_message, created_at, updated_at"

// DBStore implements Store using MySQL.
type DBStore struct {
	db *sqlx.DB
}

// NewDBStore creates a new DBStore.
func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db}
}

// Create inserts a job. A second job for the same user and source returns ErrDuplicateSource.
func (r *DBStore) Create(ctx context.Context, job *Job) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO videos ("+jobColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		job.ID, job.UserID, job.SourceID, job.SourceURL, job.Title, job.Description, job.DurationSeconds,
		job.Summary, job.KeyTopics, job.LearningObjectives, job.Status, job.Stage, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return fmt.Errorf("insert video(%s, %s): %w", job.UserID, job.SourceID, ErrDuplicateSource)
		}
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// Get returns a job with its processing log.
func (r *DBStore) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := r.db.GetContext(ctx, &job, "SELECT "+jobColumns+" FROM videos WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("video %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load video: %w", err)
	}

	if err := r.db.SelectContext(ctx, &job.Log,
		"SELECT id, video_id, stage, outcome, message, logged_at FROM video_processing_logs WHERE video_id = ? ORDER BY id", id,
	); err != nil {
		return nil, fmt.Errorf("load video processing logs: %w", err)
	}
	return &job, nil
}

// FindBySource returns the job a user submitted for a source, or ErrNotFound.
func (r *DBStore) FindBySource(ctx context.Context, userID, sourceID string) (*Job, error) {
	var job Job
	if err := r.db.GetContext(ctx, &job,
		"SELECT "+jobColumns+" FROM videos WHERE user_id = ? AND source_id = ?", userID, sourceID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("video(%s, %s): %w", userID, sourceID, ErrNotFound)
		}
		return nil, fmt.Errorf("load video by source: %w", err)
	}
	return &job, nil
}

// FindByStatus returns jobs in the given status, oldest first. Logs are not loaded.
func (r *DBStore) FindByStatus(ctx context.Context, status Status) ([]Job, error) {
	var jobs []Job
	if err := r.db.SelectContext(ctx, &jobs,
		"SELECT "+jobColumns+" FROM videos WHERE status = ? ORDER BY created_at, id", status,
	); err != nil {
		return nil, fmt.Errorf("load videos by status: %w", err)
	}
	return jobs, nil
}

// Update writes every mutable column of a job. The log is written separately by AppendLog.
func (r *DBStore) Update(ctx context.Context, job *Job) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE videos SET title = ?, description = ?, duration_seconds = ?, summary = ?, key_topics = ?, learning_objectives = ?, status = ?, stage = ?, error_message = ?, updated_at = ? WHERE id = ?",
		job.Title, job.Description, job.DurationSeconds, job.Summary, job.KeyTopics, job.LearningObjectives,
		job.Status, job.Stage, job.ErrorMessage, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update video rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("video %s: %w", job.ID, ErrNotFound)
	}
	return nil
}

// Claim moves a pending or failed job to processing at the first stage.
func (r *DBStore) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE videos SET status = ?, stage = ?, error_message = '', updated_at = ? WHERE id = ? AND status IN (?, ?)",
		StatusProcessing, StageExtractingTranscript, now, id, StatusPending, StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("claim video: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim video rows affected: %w", err)
	}
	return affected == 1, nil
}

// AppendLog inserts a processing log entry and sets its ID.
func (r *DBStore) AppendLog(ctx context.Context, entry *LogEntry) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO video_processing_logs (video_id, stage, outcome, message, logged_at) VALUES (?, ?, ?, ?, ?)",
		entry.VideoID, entry.Stage, entry.Outcome, entry.Message, entry.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("insert video processing log: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get video processing log insert ID: %w", err)
	}
	entry.ID = id
	return nil
}
