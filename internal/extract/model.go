// Package extract holds knowledge extracts: one durable record per accepted concept.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/database"
)

var ErrNotFound = apperr.New(apperr.KindNotFound, "extract_not_found", errors.New("knowledge extract not found"))

type Type string

const (
	TypeConcept    Type = "concept"
	TypeDefinition Type = "definition"
	TypeInsight    Type = "insight"
	TypeExample    Type = "example"
	TypeStep       Type = "step"
	TypePrinciple  Type = "principle"
	TypeFact       Type = "fact"
	TypeQuote      Type = "quote"
)

var Types = []Type{
	TypeConcept, TypeDefinition, TypeInsight, TypeExample,
	TypeStep, TypePrinciple, TypeFact, TypeQuote,
}

func (t Type) Valid() bool {
	switch t {
	case TypeConcept, TypeDefinition, TypeInsight, TypeExample,
		TypeStep, TypePrinciple, TypeFact, TypeQuote:
		return true
	}
	return false
}

// ParseType accepts a type name in any case.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown extract type %q", s)
	}
	return t, nil
}

// Extract is one knowledge unit taken from a span of a video.
type Extract struct {
	ID             string              `db:"id"`
	UserID         string              `db:"user_id"`
	VideoID        string              `db:"video_id"`
	Title          string              `db:"title"`
	Content        string              `db:"content"`
	Type           Type                `db:"type"`
	Tags           database.StringList `db:"tags"`
	StartTime      float64             `db:"start_time"`
	EndTime        float64             `db:"end_time"`
	Confidence     float64             `db:"confidence"`
	ReviewCount    int                 `db:"review_count"`
	LastReviewedAt *time.Time          `db:"last_reviewed_at"`
	NextReviewAt   *time.Time          `db:"next_review_at"`
	CreatedAt      time.Time           `db:"created_at"`
}

// Validate checks the content fields fixed at creation.
func (e *Extract) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("empty title")
	}
	if strings.TrimSpace(e.Content) == "" {
		return errors.New("empty content")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("unknown type %q", e.Type)
	}
	if e.StartTime < 0 {
		return fmt.Errorf("negative start time %v", e.StartTime)
	}
	if e.EndTime < e.StartTime {
		return fmt.Errorf("end time %v before start time %v", e.EndTime, e.StartTime)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", e.Confidence)
	}
	return nil
}

// RecordReview bumps the review bookkeeping after one of the extract's cards was reviewed.
func (e *Extract) RecordReview(reviewedAt, nextReviewAt time.Time) {
	e.ReviewCount++
	e.LastReviewedAt = &reviewedAt
	e.NextReviewAt = &nextReviewAt
}
