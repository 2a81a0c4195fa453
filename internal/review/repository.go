package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/database"
	"github.com/at-ishikawa/lectio/internal/extract"
)

//go:generate mockgen -source=repository.go -destination=../mocks/review/mock_store.go -package=mock_review

// Store persists review sessions and their results.
type Store interface {
	CreateSession(ctx context.Context, session *Session) error
	// GetSession returns a session with its results in answer order.
	GetSession(ctx context.Context, id string) (*Session, error)
	FindSessionsByUser(ctx context.Context, userID string) ([]Session, error)
	// UpdateSession writes the session if its version is unchanged and bumps the version.
	// A stale version returns database.ErrVersionConflict.
	UpdateSession(ctx context.Context, session *Session) error
	// CommitReview writes the reviewed card, the session counters, the result and
	// the extract bookkeeping in one transaction. Card and session are written only
	// if neither version moved; otherwise nothing is written and
	// database.ErrVersionConflict is returned.
	CommitReview(ctx context.Context, c *card.Card, session *Session, result *Result) error
}

const sessionColumns = "id, user_id, status, started_at, completed_at, duration_seconds, cards_reviewed, correct_answers, incorrect_answers, accuracy, average_response_time_ms, learning_velocity, version"

// DBStore implements Store using MySQL.
type DBStore struct {
	db *sqlx.DB
}

func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db}
}

func (r *DBStore) CreateSession(ctx context.Context, s *Session) error {
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO review_sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.ID, s.UserID, s.Status, s.StartedAt, s.CompletedAt, s.DurationSeconds, s.CardsReviewed,
		s.CorrectAnswers, s.IncorrectAnswers, s.Accuracy, s.AverageResponseTimeMs, s.LearningVelocity, s.Version,
	); err != nil {
		return fmt.Errorf("insert review session: %w", err)
	}
	return nil
}

func (r *DBStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := r.db.GetContext(ctx, &s, "SELECT "+sessionColumns+" FROM review_sessions WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("load review session: %w", err)
	}

	if err := r.db.SelectContext(ctx, &s.Results,
		"SELECT id, session_id, card_id, quality, response_time_ms, reviewed_at FROM review_results WHERE session_id = ? ORDER BY id", id,
	); err != nil {
		return nil, fmt.Errorf("load review results: %w", err)
	}
	return &s, nil
}

// FindSessionsByUser returns a user's sessions, newest first, without results.
func (r *DBStore) FindSessionsByUser(ctx context.Context, userID string) ([]Session, error) {
	var sessions []Session
	if err := r.db.SelectContext(ctx, &sessions,
		"SELECT "+sessionColumns+" FROM review_sessions WHERE user_id = ? ORDER BY started_at DESC, id", userID,
	); err != nil {
		return nil, fmt.Errorf("load review sessions: %w", err)
	}
	return sessions, nil
}

func (r *DBStore) UpdateSession(ctx context.Context, s *Session) error {
	return database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return updateSessionTx(ctx, tx, s)
	})
}

func (r *DBStore) CommitReview(ctx context.Context, c *card.Card, s *Session, result *Result) error {
	cardVersion, sessionVersion := c.Version, s.Version
	err := database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := card.UpdateReviewTx(ctx, tx, c); err != nil {
			return err
		}
		if err := updateSessionTx(ctx, tx, s); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO review_results (session_id, card_id, quality, response_time_ms, reviewed_at) VALUES (?, ?, ?, ?, ?)",
			result.SessionID, result.CardID, result.Quality, result.ResponseTimeMs, result.ReviewedAt,
		)
		if err != nil {
			return fmt.Errorf("insert review result: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get review result insert ID: %w", err)
		}
		result.ID = id

		if c.LastReviewedAt != nil && c.NextReviewAt != nil {
			if err := extract.UpdateReviewTx(ctx, tx, c.ExtractID, *c.LastReviewedAt, *c.NextReviewAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The transaction rolled back, so neither version was written.
		c.Version, s.Version = cardVersion, sessionVersion
		return err
	}
	return nil
}

func updateSessionTx(ctx context.Context, tx *sqlx.Tx, s *Session) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE review_sessions SET status = ?, completed_at = ?, duration_seconds = ?, cards_reviewed = ?, correct_answers = ?, incorrect_answers = ?, accuracy = ?, average_response_time_ms = ?, learning_velocity = ?, version = version + 1 WHERE id = ? AND version = ?",
		s.Status, s.CompletedAt, s.DurationSeconds, s.CardsReviewed, s.CorrectAnswers, s.IncorrectAnswers,
		s.Accuracy, s.AverageResponseTimeMs, s.LearningVelocity, s.ID, s.Version,
	)
	if err != nil {
		return fmt.Errorf("update review session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review session rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s at version %d: %w", s.ID, s.Version, database.ErrVersionConflict)
	}
	s.Version++
	return nil
}
