package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/video"
)

const (
	CodeInvalidUser    = "invalid_user"
	CodeVideoNotFailed = "video_not_failed"
)

// Queue accepts video ids for background processing.
type Queue interface {
	Enqueue(ctx context.Context, videoID string) error
}

// Status is a snapshot of a video's progress through the pipeline.
type Status struct {
	VideoID      string
	Status       video.Status
	Stage        video.Stage
	Progress     int
	ErrorMessage string
	Log          []video.LogEntry
}

// Service is the entry point for submitting videos and following their processing.
type Service struct {
	videos video.Store
	queue  Queue
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(videos video.Store, queue Queue, logger *zap.Logger) *Service {
	return &Service{
		videos: videos,
		queue:  queue,
		logger: logger.Named("pipeline"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// SubmitVideo records a pending video for a user and queues it.
// A source the user already submitted is rejected before anything is written.
func (s *Service) SubmitVideo(ctx context.Context, userID, sourceURL string, objectives []string) (*video.Job, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Validation(CodeInvalidUser, "user id is required")
	}
	sourceID, err := video.ParseSourceID(sourceURL)
	if err != nil {
		return nil, err
	}

	existing, err := s.videos.FindBySource(ctx, userID, sourceID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("source %s already submitted as video %s: %w", sourceID, existing.ID, video.ErrDuplicateSource)
	case !errors.Is(err, video.ErrNotFound):
		return nil, fmt.Errorf("find video by source: %w", err)
	}

	job := video.NewJob(s.newID(), userID, sourceID, strings.TrimSpace(sourceURL), cleanObjectives(objectives), s.now())
	if err := s.videos.Create(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("video submitted",
		zap.String("video_id", job.ID),
		zap.String("user_id", userID),
		zap.String("source_id", sourceID),
	)

	s.enqueue(ctx, job.ID)
	return job, nil
}

// GetStatus reports a video's status, stage, progress and processing log.
func (s *Service) GetStatus(ctx context.Context, videoID string) (*Status, error) {
	job, err := s.videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}

	progress := job.Stage.Progress()
	if job.Status == video.StatusCompleted {
		progress = 100
	}
	return &Status{
		VideoID:      job.ID,
		Status:       job.Status,
		Stage:        job.Stage,
		Progress:     progress,
		ErrorMessage: job.ErrorMessage,
		Log:          job.Log,
	}, nil
}

// RetryVideo puts a failed video back to pending and queues it again.
func (s *Service) RetryVideo(ctx context.Context, videoID string) (*video.Job, error) {
	job, err := s.videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if job.Status != video.StatusFailed {
		return nil, apperr.InvalidState(CodeVideoNotFailed, "video %s is %s, only failed videos can be retried", videoID, job.Status)
	}

	job.Status = video.StatusPending
	job.Stage = video.StageExtractingTranscript
	job.ErrorMessage = ""
	job.UpdatedAt = s.now()
	if err := s.videos.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("reset video: %w", err)
	}
	s.logger.Info("video retried", zap.String("video_id", videoID))

	s.enqueue(ctx, job.ID)
	return job, nil
}

// enqueue hands a video to the queue. A video that cannot be queued stays
// pending and is picked up by the worker pool's next pending sweep.
func (s *Service) enqueue(ctx context.Context, videoID string) {
	if err := s.queue.Enqueue(ctx, videoID); err != nil {
		s.logger.Warn("video left pending", zap.String("video_id", videoID), zap.Error(err))
	}
}

func cleanObjectives(objectives []string) []string {
	var cleaned []string
	for _, o := range objectives {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	return cleaned
}
