// Package source defines how transcripts and video metadata are acquired.
package source

import (
	"context"
	"errors"
	"strings"

	"github.com/at-ishikawa/lectio/internal/apperr"
)

var (
	ErrMetadataUnavailable   = apperr.New(apperr.KindAcquisition, "metadata_unavailable", errors.New("video metadata unavailable"))
	ErrTranscriptUnavailable = apperr.New(apperr.KindAcquisition, "transcript_unavailable", errors.New("transcript unavailable"))
)

//go:generate mockgen -source=source.go -destination=../mocks/source/mock_fetcher.go -package=mock_source

// Fetcher acquires metadata and transcripts for a platform video id.
type Fetcher interface {
	FetchMetadata(ctx context.Context, sourceID string) (Metadata, error)
	FetchTranscript(ctx context.Context, sourceID string) (Transcript, error)
}

type Metadata struct {
	Title           string `json:"title" yaml:"title"`
	Description     string `json:"description" yaml:"description"`
	DurationSeconds int    `json:"duration_seconds" yaml:"duration_seconds"`
}

// Segment is one timed caption.
type Segment struct {
	Start    float64 `json:"start" yaml:"start"`
	Duration float64 `json:"duration" yaml:"duration"`
	Text     string  `json:"text" yaml:"text"`
}

func (s Segment) End() float64 {
	return s.Start + s.Duration
}

type Transcript struct {
	Language string    `json:"language" yaml:"language"`
	Segments []Segment `json:"segments" yaml:"segments"`
}

// Text joins every segment's text with single spaces.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
