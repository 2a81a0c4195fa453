package extract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/lectio/internal/database"
)

//go:generate mockgen -source=repository.go -destination=../mocks/extract/mock_store.go -package=mock_extract

// Store persists knowledge extracts.
type Store interface {
	BatchCreate(ctx context.Context, extracts []Extract) error
	Get(ctx context.Context, id string) (*Extract, error)
	FindByVideo(ctx context.Context, videoID string) ([]Extract, error)
	// DeleteByVideo removes every extract derived from a video. Their cards go with them.
	DeleteByVideo(ctx context.Context, videoID string) error
}

var columns = []string{
	"id", "user_id", "video_id", "title", "content", "type", "tags",
	"start_time", "end_time", "confidence", "review_count", "last_reviewed_at", "next_review_at", "created_at",
}

var selectColumns = strings.Join(columns, ", ")

// DBStore implements Store using MySQL.
type DBStore struct {
	db *sqlx.DB
}

func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db}
}

func (r *DBStore) BatchCreate(ctx context.Context, extracts []Extract) error {
	if len(extracts) == 0 {
		return nil
	}

	query := database.BuildMultiRowInsert("knowledge_extracts", columns, len(extracts))
	args := make([]any, 0, len(extracts)*len(columns))
	for _, e := range extracts {
		args = append(args,
			e.ID, e.UserID, e.VideoID, e.Title, e.Content, e.Type, e.Tags,
			e.StartTime, e.EndTime, e.Confidence, e.ReviewCount, e.LastReviewedAt, e.NextReviewAt, e.CreatedAt,
		)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert knowledge extracts: %w", err)
	}
	return nil
}

func (r *DBStore) Get(ctx context.Context, id string) (*Extract, error) {
	var e Extract
	if err := r.db.GetContext(ctx, &e, "SELECT "+selectColumns+" FROM knowledge_extracts WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("extract %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load knowledge extract: %w", err)
	}
	return &e, nil
}

// FindByVideo returns a video's extracts in creation order.
func (r *DBStore) FindByVideo(ctx context.Context, videoID string) ([]Extract, error) {
	var extracts []Extract
	if err := r.db.SelectContext(ctx, &extracts,
		"SELECT "+selectColumns+" FROM knowledge_extracts WHERE video_id = ? ORDER BY created_at, id", videoID,
	); err != nil {
		return nil, fmt.Errorf("load knowledge extracts: %w", err)
	}
	return extracts, nil
}

func (r *DBStore) DeleteByVideo(ctx context.Context, videoID string) error {
	return database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM learning_cards WHERE video_id = ?", videoID); err != nil {
			return fmt.Errorf("delete learning cards: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM knowledge_extracts WHERE video_id = ?", videoID); err != nil {
			return fmt.Errorf("delete knowledge extracts: %w", err)
		}
		return nil
	})
}

// UpdateReviewTx writes the review bookkeeping of an extract inside a caller's transaction.
func UpdateReviewTx(ctx context.Context, tx *sqlx.Tx, id string, reviewedAt, nextReviewAt time.Time) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE knowledge_extracts SET review_count = review_count + 1, last_reviewed_at = ?, next_review_at = ? WHERE id = ?",
		reviewedAt, nextReviewAt, id,
	); err != nil {
		return fmt.Errorf("update knowledge extract review: %w", err)
	}
	return nil
}
