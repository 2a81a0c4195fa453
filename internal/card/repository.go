package card

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/lectio/internal/database"
)

//go:generate mockgen -source=repository.go -destination=../mocks/card/mock_store.go -package=mock_card

// Store persists learning cards.
type Store interface {
	BatchCreate(ctx context.Context, cards []Card) error
	Get(ctx context.Context, id string) (*Card, error)
	FindByVideo(ctx context.Context, videoID string) ([]Card, error)
	FindByUser(ctx context.Context, userID string) ([]Card, error)
	// FindDue returns active cards with no schedule or a schedule at or before now,
	// scheduled cards first by next review, then by review count and creation.
	FindDue(ctx context.Context, userID string, now time.Time, limit int) ([]Card, error)
	// FindNew returns active never-reviewed cards in creation order.
	FindNew(ctx context.Context, userID string, limit int) ([]Card, error)
}

var columns = []string{
	"id", "user_id", "extract_id", "video_id", "question", "answer", "type", "options", "hints",
	"explanation", "difficulty", "tags", "review_count", "correct_count", "incorrect_count",
	"current_interval", "ease_factor", "last_reviewed_at", "next_review_at", "is_active", "version",
	"created_at", "updated_at",
}

// DBStore implements Store using MySQL.
type DBStore struct {
	db *sqlx.DB
}

func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db}
}

func (r *DBStore) BatchCreate(ctx context.Context, cards []Card) error {
	if len(cards) == 0 {
		return nil
	}

	query := database.BuildMultiRowInsert("learning_cards", columns, len(cards))
	args := make([]any, 0, len(cards)*len(columns))
	for _, c := range cards {
		args = append(args,
			c.ID, c.UserID, c.ExtractID, c.VideoID, c.Question, c.Answer, c.Type, c.Options, c.Hints,
			c.Explanation, c.Difficulty, c.Tags, c.ReviewCount, c.CorrectCount, c.IncorrectCount,
			c.CurrentInterval, c.EaseFactor, c.LastReviewedAt, c.NextReviewAt, c.IsActive, c.Version,
			c.CreatedAt, c.UpdatedAt,
		)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert learning cards: %w", err)
	}
	return nil
}

func (r *DBStore) Get(ctx context.Context, id string) (*Card, error) {
	query, args, err := sq.Select(columns...).From("learning_cards").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build card query: %w", err)
	}

	var c Card
	if err := r.db.GetContext(ctx, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load learning card: %w", err)
	}
	return &c, nil
}

func (r *DBStore) FindByVideo(ctx context.Context, videoID string) ([]Card, error) {
	return r.selectCards(ctx, sq.Select(columns...).From("learning_cards").
		Where(sq.Eq{"video_id": videoID}).
		OrderBy("created_at", "id"))
}

func (r *DBStore) FindByUser(ctx context.Context, userID string) ([]Card, error) {
	return r.selectCards(ctx, sq.Select(columns...).From("learning_cards").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at", "id"))
}

func (r *DBStore) FindDue(ctx context.Context, userID string, now time.Time, limit int) ([]Card, error) {
	return r.selectCards(ctx, sq.Select(columns...).From("learning_cards").
		Where(sq.Eq{"user_id": userID, "is_active": true}).
		Where(sq.Or{sq.Eq{"next_review_at": nil}, sq.LtOrEq{"next_review_at": now}}).
		OrderBy("next_review_at IS NULL", "next_review_at", "review_count", "created_at", "id").
		Limit(uint64(limit)))
}

func (r *DBStore) FindNew(ctx context.Context, userID string, limit int) ([]Card, error) {
	return r.selectCards(ctx, sq.Select(columns...).From("learning_cards").
		Where(sq.Eq{"user_id": userID, "is_active": true, "review_count": 0}).
		OrderBy("created_at", "id").
		Limit(uint64(limit)))
}

func (r *DBStore) selectCards(ctx context.Context, builder sq.SelectBuilder) ([]Card, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build card query: %w", err)
	}

	var cards []Card
	if err := r.db.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, fmt.Errorf("load learning cards: %w", err)
	}
	return cards, nil
}

// UpdateReviewTx writes a reviewed card inside a caller's transaction if its
// version still equals c.Version, then bumps c.Version.
func UpdateReviewTx(ctx context.Context, tx *sqlx.Tx, c *Card) error {
	query, args, err := sq.Update("learning_cards").
		Set("review_count", c.ReviewCount).
		Set("correct_count", c.CorrectCount).
		Set("incorrect_count", c.IncorrectCount).
		Set("current_interval", c.CurrentInterval).
		Set("ease_factor", c.EaseFactor).
		Set("last_reviewed_at", c.LastReviewedAt).
		Set("next_review_at", c.NextReviewAt).
		Set("updated_at", c.UpdatedAt).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": c.ID, "version": c.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build card update: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update learning card: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update learning card rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("card %s at version %d: %w", c.ID, c.Version, database.ErrVersionConflict)
	}
	c.Version++
	return nil
}
