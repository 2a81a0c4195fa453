package inference

import (
	"context"
)

//go:generate mockgen -source=interface.go -destination=../mocks/inference/mock_client.go -package=mock_inference

// Client extracts learning material from a transcript using a language model.
type Client interface {
	ExtractConcepts(ctx context.Context, params ExtractConceptsRequest) (ExtractConceptsResponse, error)
}

// Segment is a timed piece of transcript text, offsets in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type ExtractConceptsRequest struct {
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	LearningObjectives []string  `json:"learning_objectives,omitempty"`
	Segments           []Segment `json:"segments"`
}

type ExtractConceptsResponse struct {
	Summary            string    `json:"summary"`
	KeyTopics          []string  `json:"key_topics"`
	LearningObjectives []string  `json:"learning_objectives"`
	Concepts           []Concept `json:"concepts"`
}

// Concept is one candidate knowledge unit as returned by the model, before validation.
type Concept struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	StartTime  float64  `json:"start_time"`
	EndTime    float64  `json:"end_time"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags"`
}

const (
	DefaultMaxRetryAttempts = 3
)
