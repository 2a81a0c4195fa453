// Package review runs review sessions over due cards and schedules each answer.
package review

import (
	"errors"
	"time"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/scheduler"
)

var (
	ErrSessionNotFound  = apperr.New(apperr.KindNotFound, "session_not_found", errors.New("review session not found"))
	ErrSessionNotActive = apperr.New(apperr.KindInvalidState, "session_not_active", errors.New("review session is not active"))
	ErrReviewConflict   = apperr.New(apperr.KindInvalidState, "review_conflict", errors.New("card or session was modified concurrently"))
)

// Reason codes for rejected arguments.
const (
	CodeInvalidLimit        = "invalid_limit"
	CodeInvalidQuality      = "invalid_quality"
	CodeInvalidResponseTime = "invalid_response_time"
	CodeInvalidUser         = "invalid_user"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
	StatusAbandoned Status = "abandoned"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusPaused, StatusAbandoned:
		return true
	}
	return false
}

// Result is one answered card within a session.
type Result struct {
	ID             int64             `db:"id"`
	SessionID      string            `db:"session_id"`
	CardID         string            `db:"card_id"`
	Quality        scheduler.Quality `db:"quality"`
	ResponseTimeMs int64             `db:"response_time_ms"`
	ReviewedAt     time.Time         `db:"reviewed_at"`
}

// Session is a user's pass over a set of cards.
type Session struct {
	ID                    string     `db:"id"`
	UserID                string     `db:"user_id"`
	Status                Status     `db:"status"`
	StartedAt             time.Time  `db:"started_at"`
	CompletedAt           *time.Time `db:"completed_at"`
	DurationSeconds       int        `db:"duration_seconds"`
	CardsReviewed         int        `db:"cards_reviewed"`
	CorrectAnswers        int        `db:"correct_answers"`
	IncorrectAnswers      int        `db:"incorrect_answers"`
	Accuracy              float64    `db:"accuracy"`
	AverageResponseTimeMs *float64   `db:"average_response_time_ms"`
	LearningVelocity      *float64   `db:"learning_velocity"`
	Version               int64      `db:"version"`

	Results []Result `db:"-"`
}

// Record appends a result and refreshes the counters and accuracy.
func (s *Session) Record(result Result) {
	s.Results = append(s.Results, result)
	s.CardsReviewed++
	if result.Quality.IsCorrect() {
		s.CorrectAnswers++
	} else {
		s.IncorrectAnswers++
	}
	s.Accuracy = accuracy(s.CorrectAnswers, s.CardsReviewed)
}

// Complete closes the session and fills in its analytics.
// Analytics stay nil when no card was reviewed.
func (s *Session) Complete(now time.Time) {
	s.Status = StatusCompleted
	completedAt := now
	s.CompletedAt = &completedAt

	elapsed := now.Sub(s.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	s.DurationSeconds = int(elapsed.Seconds())

	if s.CardsReviewed == 0 {
		s.AverageResponseTimeMs = nil
		s.LearningVelocity = nil
		return
	}

	var total int64
	for _, r := range s.Results {
		total += r.ResponseTimeMs
	}
	avg := 0.0
	if len(s.Results) > 0 {
		avg = float64(total) / float64(len(s.Results))
	}

	if elapsed < time.Second {
		elapsed = time.Second
	}
	velocity := float64(s.CardsReviewed) / elapsed.Minutes()

	s.AverageResponseTimeMs = &avg
	s.LearningVelocity = &velocity
}

func accuracy(correct, reviewed int) float64 {
	if reviewed == 0 {
		return 0
	}
	return 100 * float64(correct) / float64(reviewed)
}
