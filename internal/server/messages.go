package server

import (
	"time"

	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/pipeline"
	"github.com/at-ishikawa/lectio/internal/review"
	"github.com/at-ishikawa/lectio/internal/video"
)

type SubmitVideoRequest struct {
	UserID             string   `json:"userId" validate:"required,max=64"`
	SourceURL          string   `json:"sourceUrl" validate:"required,max=2048"`
	LearningObjectives []string `json:"learningObjectives" validate:"max=20,dive,max=500"`
}

type SubmitVideoResponse struct {
	Video Video `json:"video"`
}

type Video struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	SourceID           string    `json:"sourceId"`
	SourceURL          string    `json:"sourceUrl"`
	Title              string    `json:"title,omitempty"`
	Status             string    `json:"status"`
	Stage              string    `json:"stage"`
	LearningObjectives []string  `json:"learningObjectives,omitempty"`
	ErrorMessage       string    `json:"errorMessage,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toVideo(job *video.Job) Video {
	return Video{
		ID:                 job.ID,
		UserID:             job.UserID,
		SourceID:           job.SourceID,
		SourceURL:          job.SourceURL,
		Title:              job.Title,
		Status:             string(job.Status),
		Stage:              string(job.Stage),
		LearningObjectives: job.LearningObjectives,
		ErrorMessage:       job.ErrorMessage,
		CreatedAt:          job.CreatedAt,
		UpdatedAt:          job.UpdatedAt,
	}
}

type GetStatusRequest struct {
	VideoID string `json:"videoId" validate:"required"`
}

type GetStatusResponse struct {
	VideoID      string     `json:"videoId"`
	Status       string     `json:"status"`
	Stage        string     `json:"stage"`
	Progress     int        `json:"progress"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	Log          []LogEntry `json:"log"`
}

type LogEntry struct {
	Stage    string    `json:"stage"`
	Outcome  string    `json:"outcome"`
	Message  string    `json:"message,omitempty"`
	LoggedAt time.Time `json:"loggedAt"`
}

func toStatusResponse(status *pipeline.Status) *GetStatusResponse {
	log := make([]LogEntry, 0, len(status.Log))
	for _, entry := range status.Log {
		log = append(log, LogEntry{
			Stage:    string(entry.Stage),
			Outcome:  string(entry.Outcome),
			Message:  entry.Message,
			LoggedAt: entry.LoggedAt,
		})
	}
	return &GetStatusResponse{
		VideoID:      status.VideoID,
		Status:       string(status.Status),
		Stage:        string(status.Stage),
		Progress:     status.Progress,
		ErrorMessage: status.ErrorMessage,
		Log:          log,
	}
}

type RetryVideoRequest struct {
	VideoID string `json:"videoId" validate:"required"`
}

type RetryVideoResponse struct {
	Video Video `json:"video"`
}

type GetReviewSessionRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
	// Limit of 0 uses the configured default.
	Limit int `json:"limit" validate:"min=0,max=50"`
}

type GetReviewSessionResponse struct {
	SessionID string `json:"sessionId"`
	Cards     []Card `json:"cards"`
}

type Card struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Type        string   `json:"type"`
	Difficulty  string   `json:"difficulty"`
	Options     []string `json:"options,omitempty"`
	Hints       []string `json:"hints,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ReviewCount int      `json:"reviewCount"`
	SuccessRate float64  `json:"successRate"`
}

func toCard(c *card.Card) Card {
	return Card{
		ID:          c.ID,
		Question:    c.Question,
		Answer:      c.Answer,
		Type:        string(c.Type),
		Difficulty:  string(c.Difficulty),
		Options:     c.Options,
		Hints:       c.Hints,
		Explanation: c.Explanation,
		Tags:        c.Tags,
		ReviewCount: c.ReviewCount,
		SuccessRate: c.SuccessRate(),
	}
}

type SubmitCardReviewRequest struct {
	SessionID      string `json:"sessionId" validate:"required"`
	CardID         string `json:"cardId" validate:"required"`
	Quality        string `json:"quality" validate:"required,oneof=again hard good easy"`
	ResponseTimeMs int64  `json:"responseTimeMs" validate:"min=0"`
}

type SubmitCardReviewResponse struct {
	Card    CardSchedule `json:"card"`
	Session Session      `json:"session"`
}

// CardSchedule is a card's scheduling state after an answer.
type CardSchedule struct {
	ID              string     `json:"id"`
	ReviewCount     int        `json:"reviewCount"`
	SuccessRate     float64    `json:"successRate"`
	CurrentInterval int        `json:"currentInterval"`
	EaseFactor      float64    `json:"easeFactor"`
	NextReviewAt    *time.Time `json:"nextReviewAt,omitempty"`
}

func toCardSchedule(c *card.Card) CardSchedule {
	return CardSchedule{
		ID:              c.ID,
		ReviewCount:     c.ReviewCount,
		SuccessRate:     c.SuccessRate(),
		CurrentInterval: c.CurrentInterval,
		EaseFactor:      c.EaseFactor,
		NextReviewAt:    c.NextReviewAt,
	}
}

type SessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type SessionResponse struct {
	Session Session `json:"session"`
}

type Session struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"userId"`
	Status                string     `json:"status"`
	StartedAt             time.Time  `json:"startedAt"`
	CompletedAt           *time.Time `json:"completedAt,omitempty"`
	DurationSeconds       int        `json:"durationSeconds"`
	CardsReviewed         int        `json:"cardsReviewed"`
	CorrectAnswers        int        `json:"correctAnswers"`
	IncorrectAnswers      int        `json:"incorrectAnswers"`
	Accuracy              float64    `json:"accuracy"`
	AverageResponseTimeMs *float64   `json:"averageResponseTimeMs,omitempty"`
	LearningVelocity      *float64   `json:"learningVelocity,omitempty"`
}

func toSession(s *review.Session) Session {
	return Session{
		ID:                    s.ID,
		UserID:                s.UserID,
		Status:                string(s.Status),
		StartedAt:             s.StartedAt,
		CompletedAt:           s.CompletedAt,
		DurationSeconds:       s.DurationSeconds,
		CardsReviewed:         s.CardsReviewed,
		CorrectAnswers:        s.CorrectAnswers,
		IncorrectAnswers:      s.IncorrectAnswers,
		Accuracy:              s.Accuracy,
		AverageResponseTimeMs: s.AverageResponseTimeMs,
		LearningVelocity:      s.LearningVelocity,
	}
}
