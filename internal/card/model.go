// Package card holds review cards and their generation from knowledge extracts.
package card

import (
	"errors"
	"time"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/database"
	"github.com/at-ishikawa/lectio/internal/scheduler"
)

var (
	ErrNotFound = apperr.New(apperr.KindNotFound, "card_not_found", errors.New("learning card not found"))
	ErrInactive = apperr.New(apperr.KindInvalidState, "card_inactive", errors.New("learning card is inactive"))
)

type Type string

const (
	TypeFlashcard      Type = "flashcard"
	TypeQuiz           Type = "quiz"
	TypeFillBlank      Type = "fill_blank"
	TypeMultipleChoice Type = "multiple_choice"
	TypeTrueFalse      Type = "true_false"
	TypeMatching       Type = "matching"
)

func (t Type) Valid() bool {
	switch t {
	case TypeFlashcard, TypeQuiz, TypeFillBlank, TypeMultipleChoice, TypeTrueFalse, TypeMatching:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Card is one reviewable question with its scheduling state.
type Card struct {
	ID              string              `db:"id"`
	UserID          string              `db:"user_id"`
	ExtractID       string              `db:"extract_id"`
	VideoID         string              `db:"video_id"`
	Question        string              `db:"question"`
	Answer          string              `db:"answer"`
	Type            Type                `db:"type"`
	Options         database.StringList `db:"options"`
	Hints           database.StringList `db:"hints"`
	Explanation     string              `db:"explanation"`
	Difficulty      Difficulty          `db:"difficulty"`
	Tags            database.StringList `db:"tags"`
	ReviewCount     int                 `db:"review_count"`
	CorrectCount    int                 `db:"correct_count"`
	IncorrectCount  int                 `db:"incorrect_count"`
	CurrentInterval int                 `db:"current_interval"`
	EaseFactor      float64             `db:"ease_factor"`
	LastReviewedAt  *time.Time          `db:"last_reviewed_at"`
	NextReviewAt    *time.Time          `db:"next_review_at"`
	IsActive        bool                `db:"is_active"`
	Version         int64               `db:"version"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

// SuccessRate is correct reviews over all reviews, or 0 before the first review.
func (c *Card) SuccessRate() float64 {
	if c.ReviewCount == 0 {
		return 0
	}
	return float64(c.CorrectCount) / float64(c.ReviewCount)
}

// IsDue reports whether the card should be offered for review at now.
func (c *Card) IsDue(now time.Time) bool {
	return c.NextReviewAt == nil || !c.NextReviewAt.After(now)
}

// ApplyReview records one answer and reschedules the card.
// The version is left to the store, which bumps it on a successful write.
func (c *Card) ApplyReview(quality scheduler.Quality, now time.Time) {
	interval, ease := scheduler.NextState(c.CurrentInterval, c.EaseFactor, quality)

	c.ReviewCount++
	if quality.IsCorrect() {
		c.CorrectCount++
	} else {
		c.IncorrectCount++
	}
	c.CurrentInterval = interval
	c.EaseFactor = ease

	reviewedAt := now
	next := now.AddDate(0, 0, interval)
	c.LastReviewedAt = &reviewedAt
	c.NextReviewAt = &next
	c.UpdatedAt = now
}
