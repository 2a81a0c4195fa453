// Package video models a submitted video and its processing state.
package video

import (
	"errors"
	"fmt"
	"time"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/database"
)

var (
	ErrNotFound        = apperr.New(apperr.KindNotFound, "video_not_found", errors.New("video not found"))
	ErrDuplicateSource = apperr.New(apperr.KindValidation, "duplicate_source", errors.New("video source already submitted"))
	ErrInvalidSource   = apperr.New(apperr.KindValidation, "invalid_source", errors.New("invalid video source"))
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Processable reports whether a job in this status may start a pipeline run.
func (s Status) Processable() bool {
	switch s {
	case StatusPending, StatusFailed:
		return true
	case StatusProcessing, StatusCompleted:
		return false
	}
	return false
}

type Stage string

const (
	StageExtractingTranscript Stage = "extracting_transcript"
	StageAnalyzingContent     Stage = "analyzing_content"
	StageExtractingKnowledge  Stage = "extracting_knowledge"
	StageStructuringContent   Stage = "structuring_content"
	StageCompleted            Stage = "completed"
)

// Stages is the fixed order every pipeline run walks through.
var Stages = []Stage{
	StageExtractingTranscript,
	StageAnalyzingContent,
	StageExtractingKnowledge,
	StageStructuringContent,
	StageCompleted,
}

// Index returns the position of s in Stages, or -1.
func (s Stage) Index() int {
	for i, stage := range Stages {
		if stage == s {
			return i
		}
	}
	return -1
}

func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Next returns the stage after s. StageCompleted has no successor.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i == len(Stages)-1 {
		return "", false
	}
	return Stages[i+1], true
}

// Progress maps a stage to 0-100: completed work stages over the number of work stages.
func (s Stage) Progress() int {
	i := s.Index()
	if i < 0 {
		return 0
	}
	workStages := len(Stages) - 1
	return i * 100 / workStages
}

type Outcome string

const (
	OutcomeStarted   Outcome = "started"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// LogEntry is one append-only processing log record.
type LogEntry struct {
	ID       int64     `db:"id"`
	VideoID  string    `db:"video_id"`
	Stage    Stage     `db:"stage"`
	Outcome  Outcome   `db:"outcome"`
	Message  string    `db:"message"`
	LoggedAt time.Time `db:"logged_at"`
}

// Job is one video submission and everything the pipeline learned about it.
type Job struct {
	ID                 string              `db:"id"`
	UserID             string              `db:"user_id"`
	SourceID           string              `db:"source_id"`
	SourceURL          string              `db:"source_url"`
	Title              string              `db:"title"`
	Description        string              `db:"description"`
	DurationSeconds    int                 `db:"duration_seconds"`
	Summary            string              `db:"summary"`
	KeyTopics          database.StringList `db:"key_topics"`
	LearningObjectives database.StringList `db:"learning_objectives"`
	Status             Status              `db:"status"`
	Stage              Stage               `db:"stage"`
	ErrorMessage       string              `db:"error_message"`
	CreatedAt          time.Time           `db:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at"`

	Log []LogEntry `db:"-"`
}

// NewJob returns a pending job for a parsed source.
func NewJob(id, userID, sourceID, sourceURL string, objectives []string, now time.Time) *Job {
	return &Job{
		ID:                 id,
		UserID:             userID,
		SourceID:           sourceID,
		SourceURL:          sourceURL,
		LearningObjectives: objectives,
		Status:             StatusPending,
		Stage:              StageExtractingTranscript,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// CheckInvariants verifies the status/stage/log relationships a stored job must hold.
func (j *Job) CheckInvariants() error {
	switch j.Status {
	case StatusFailed:
		if len(j.Log) == 0 || j.Log[len(j.Log)-1].Outcome != OutcomeFailed {
			return fmt.Errorf("failed job %s must end its log with a failed entry", j.ID)
		}
	case StatusCompleted:
		if j.Stage != StageCompleted {
			return fmt.Errorf("completed job %s is at stage %s", j.ID, j.Stage)
		}
	case StatusPending, StatusProcessing:
	default:
		return fmt.Errorf("job %s has unknown status %q", j.ID, j.Status)
	}
	return nil
}
