// Package pipeline drives submitted videos through transcript acquisition,
// analysis and card generation, and runs that work on a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/analysis"
	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/extract"
	"github.com/at-ishikawa/lectio/internal/source"
	"github.com/at-ishikawa/lectio/internal/video"
)

// Analyzer extracts concepts from a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript source.Transcript, metadata source.Metadata, objectives []string) (*analysis.Analysis, error)
}

// Controller runs the processing stages of one video at a time.
type Controller struct {
	videos    video.Store
	extracts  extract.Store
	cards     card.Store
	fetcher   source.Fetcher
	analyzer  Analyzer
	generator *card.Generator
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewController(
	videos video.Store,
	extracts extract.Store,
	cards card.Store,
	fetcher source.Fetcher,
	analyzer Analyzer,
	generator *card.Generator,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		videos:    videos,
		extracts:  extracts,
		cards:     cards,
		fetcher:   fetcher,
		analyzer:  analyzer,
		generator: generator,
		logger:    logger.Named("pipeline"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// run carries what earlier stages produced to later ones.
type run struct {
	job        *video.Job
	metadata   source.Metadata
	transcript source.Transcript
	analysis   *analysis.Analysis
	extracts   []extract.Extract
}

// stageError is a failure of the work inside a stage, as opposed to a store
// error while recording progress.
type stageError struct {
	stage video.Stage
	cause error
}

func (e *stageError) Error() string { return e.cause.Error() }
func (e *stageError) Unwrap() error { return e.cause }

func (c *Controller) work(s video.Stage) func(ctx context.Context, r *run) error {
	switch s {
	case video.StageExtractingTranscript:
		return c.extractTranscript
	case video.StageAnalyzingContent:
		return c.analyzeContent
	case video.StageExtractingKnowledge:
		return c.extractKnowledge
	case video.StageStructuringContent:
		return c.structureContent
	case video.StageCompleted:
	}
	return nil
}

// Process runs every stage of a pending or failed video in order.
// A video that is processing or completed is left untouched.
// Stage failures are recorded on the video and not returned. Once claimed, a
// video always ends completed or failed: a store error or panic mid-run marks
// it failed and is returned.
func (c *Controller) Process(ctx context.Context, videoID string) (err error) {
	job, err := c.videos.Get(ctx, videoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}
	if !job.Status.Processable() {
		c.logger.Debug("video is not processable", zap.String("video_id", videoID), zap.String("status", string(job.Status)))
		return nil
	}

	now := c.now()
	claimed, err := c.videos.Claim(ctx, videoID, now)
	if err != nil {
		return fmt.Errorf("claim video: %w", err)
	}
	if !claimed {
		c.logger.Debug("video claimed by another run", zap.String("video_id", videoID))
		return nil
	}
	job.Status = video.StatusProcessing
	job.Stage = video.StageExtractingTranscript
	job.ErrorMessage = ""
	job.UpdatedAt = now

	logger := c.logger.With(zap.String("video_id", job.ID), zap.String("source_id", job.SourceID))
	logger.Info("processing video")
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			cause := fmt.Errorf("panic during %s: %v", job.Stage, rec)
			logger.Error("pipeline panic", zap.Any("panic", rec), zap.Stack("stack"))
			err = errors.Join(cause, c.fail(ctx, job, job.Stage, cause))
		}
	}()

	r := &run{job: job}
	err = c.runStages(ctx, r, logger)
	var se *stageError
	switch {
	case err == nil:
	case errors.As(err, &se):
		return c.fail(ctx, job, se.stage, se.cause)
	default:
		logger.Error("processing interrupted", zap.String("stage", string(job.Stage)), zap.Error(err))
		return errors.Join(err, c.fail(ctx, job, job.Stage, err))
	}

	logger.Info("video processed",
		zap.Int("extracts", len(r.extracts)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// runStages walks the stage sequence from the first stage, saving the video
// each time it advances. The last advance marks it completed.
func (c *Controller) runStages(ctx context.Context, r *run, logger *zap.Logger) error {
	job := r.job
	for stage := video.Stages[0]; stage != video.StageCompleted; {
		if err := c.appendLog(ctx, job.ID, stage, video.OutcomeStarted, ""); err != nil {
			return err
		}
		if err := c.work(stage)(ctx, r); err != nil {
			logger.Warn("stage failed", zap.String("stage", string(stage)), zap.Error(err))
			return &stageError{stage: stage, cause: err}
		}
		if err := c.appendLog(ctx, job.ID, stage, video.OutcomeCompleted, ""); err != nil {
			return err
		}

		next, ok := stage.Next()
		if !ok {
			return fmt.Errorf("no stage after %s", stage)
		}
		job.Stage = next
		if next == video.StageCompleted {
			job.Status = video.StatusCompleted
		}
		job.UpdatedAt = c.now()
		if err := c.videos.Update(ctx, job); err != nil {
			return fmt.Errorf("advance video to %s: %w", next, err)
		}
		stage = next
	}
	return nil
}

// FailInterrupted marks videos left processing by a stopped process as failed
// so they can be retried. It must run before any worker claims a video.
func (c *Controller) FailInterrupted(ctx context.Context) (int, error) {
	jobs, err := c.videos.FindByStatus(ctx, video.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("find processing videos: %w", err)
	}

	var errs []error
	failed := 0
	for i := range jobs {
		job := &jobs[i]
		cause := fmt.Errorf("processing interrupted during %s", job.Stage)
		if err := c.fail(ctx, job, job.Stage, cause); err != nil {
			errs = append(errs, fmt.Errorf("video %s: %w", job.ID, err))
			continue
		}
		failed++
	}
	if failed > 0 {
		c.logger.Warn("failed interrupted videos", zap.Int("count", failed))
	}
	return failed, errors.Join(errs...)
}

func (c *Controller) extractTranscript(ctx context.Context, r *run) error {
	metadata, err := c.fetcher.FetchMetadata(ctx, r.job.SourceID)
	if err != nil {
		return err
	}
	transcript, err := c.fetcher.FetchTranscript(ctx, r.job.SourceID)
	if err != nil {
		return err
	}

	r.metadata = metadata
	r.transcript = transcript
	r.job.Title = metadata.Title
	r.job.Description = metadata.Description
	r.job.DurationSeconds = metadata.DurationSeconds
	return nil
}

func (c *Controller) analyzeContent(ctx context.Context, r *run) error {
	result, err := c.analyzer.Analyze(ctx, r.transcript, r.metadata, r.job.LearningObjectives)
	if err != nil {
		return err
	}

	r.analysis = result
	r.job.Summary = result.Summary
	r.job.KeyTopics = result.KeyTopics
	r.job.LearningObjectives = result.LearningObjectives
	return nil
}

// extractKnowledge replaces whatever an earlier run derived from the video.
func (c *Controller) extractKnowledge(ctx context.Context, r *run) error {
	if err := c.extracts.DeleteByVideo(ctx, r.job.ID); err != nil {
		return fmt.Errorf("delete previous extracts: %w", err)
	}

	now := c.now()
	extracts := make([]extract.Extract, 0, len(r.analysis.Concepts))
	for _, concept := range r.analysis.Concepts {
		extracts = append(extracts, extract.Extract{
			ID:         c.newID(),
			UserID:     r.job.UserID,
			VideoID:    r.job.ID,
			Title:      concept.Title,
			Content:    concept.Content,
			Type:       concept.Type,
			Tags:       concept.Tags,
			StartTime:  concept.StartTime,
			EndTime:    concept.EndTime,
			Confidence: concept.Confidence,
			CreatedAt:  now,
		})
	}
	if err := c.extracts.BatchCreate(ctx, extracts); err != nil {
		return fmt.Errorf("store extracts: %w", err)
	}
	r.extracts = extracts
	return nil
}

func (c *Controller) structureContent(ctx context.Context, r *run) error {
	var cards []card.Card
	for _, e := range r.extracts {
		cards = append(cards, c.generator.GenerateCards(e)...)
	}
	if err := c.cards.BatchCreate(ctx, cards); err != nil {
		return fmt.Errorf("store cards: %w", err)
	}
	return nil
}

// fail records a stage failure. The failed log entry is written before the
// status so a failed video always ends its log with it. It runs even when ctx
// is already cancelled.
func (c *Controller) fail(ctx context.Context, job *video.Job, stage video.Stage, cause error) error {
	ctx = context.WithoutCancel(ctx)
	message := cause.Error()
	if err := c.appendLog(ctx, job.ID, stage, video.OutcomeFailed, message); err != nil {
		return err
	}

	job.Status = video.StatusFailed
	job.Stage = stage
	job.ErrorMessage = message
	job.UpdatedAt = c.now()
	if err := c.videos.Update(ctx, job); err != nil {
		return fmt.Errorf("mark video failed: %w", err)
	}
	return nil
}

func (c *Controller) appendLog(ctx context.Context, videoID string, stage video.Stage, outcome video.Outcome, message string) error {
	entry := &video.LogEntry{
		VideoID:  videoID,
		Stage:    stage,
		Outcome:  outcome,
		Message:  message,
		LoggedAt: c.now(),
	}
	if err := c.videos.AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("append %s %s log: %w", stage, outcome, err)
	}
	return nil
}
