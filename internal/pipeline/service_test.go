package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/memstore"
	mock_video "github.com/at-ishikawa/lectio/internal/mocks/video"
	"github.com/at-ishikawa/lectio/internal/video"
)

type recordingQueue struct {
	ids []string
	err error
}

func (q *recordingQueue) Enqueue(_ context.Context, videoID string) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, videoID)
	return nil
}

func newTestService(videos video.Store, queue Queue) *Service {
	s := NewService(videos, queue, zap.NewNop())
	s.now = func() time.Time { return testNow }
	s.newID = sequentialIDs("video")
	return s
}

func TestService_SubmitVideo(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	queue := &recordingQueue{}
	service := newTestService(db.Videos(), queue)

	job, err := service.SubmitVideo(ctx, "user-1", " https://www.youtube.com/watch?v=vid123&t=42 ", []string{" goroutines ", ""})
	require.NoError(t, err)
	assert.Equal(t, &video.Job{
		ID:                 "video-001",
		UserID:             "user-1",
		SourceID:           "vid123",
		SourceURL:          "https://www.youtube.com/watch?v=vid123&t=42",
		LearningObjectives: []string{"goroutines"},
		Status:             video.StatusPending,
		Stage:              video.StageExtractingTranscript,
		CreatedAt:          testNow,
		UpdatedAt:          testNow,
	}, job)
	assert.Equal(t, []string{"video-001"}, queue.ids)

	_, err = service.SubmitVideo(ctx, "user-1", "https://youtu.be/vid123", nil)
	assert.ErrorIs(t, err, video.ErrDuplicateSource)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	other, err := service.SubmitVideo(ctx, "user-2", "vid123", nil)
	require.NoError(t, err)
	assert.Equal(t, "video-002", other.ID)

	jobs, err := db.Videos().FindByStatus(ctx, video.StatusPending)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestService_SubmitVideo_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		sourceURL string
		setup     func(videos *mock_video.MockStore)
		wantErr   error
		wantCode  string
	}{
		{
			name:      "missing user",
			userID:    " ",
			sourceURL: "vid123",
			setup:     func(*mock_video.MockStore) {},
			wantCode:  CodeInvalidUser,
		},
		{
			name:      "unparseable source",
			userID:    "user-1",
			sourceURL: "https://vimeo.com/12345",
			setup:     func(*mock_video.MockStore) {},
			wantErr:   video.ErrInvalidSource,
			wantCode:  "invalid_source",
		},
		{
			name:      "lost the race to the unique index",
			userID:    "user-1",
			sourceURL: "vid123",
			setup: func(videos *mock_video.MockStore) {
				videos.EXPECT().FindBySource(gomock.Any(), "user-1", "vid123").Return(nil, video.ErrNotFound)
				videos.EXPECT().Create(gomock.Any(), gomock.Any()).Return(video.ErrDuplicateSource)
			},
			wantErr:  video.ErrDuplicateSource,
			wantCode: "duplicate_source",
		},
		{
			name:      "lookup failure",
			userID:    "user-1",
			sourceURL: "vid123",
			setup: func(videos *mock_video.MockStore) {
				videos.EXPECT().FindBySource(gomock.Any(), "user-1", "vid123").Return(nil, errors.New("connection refused"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			videos := mock_video.NewMockStore(ctrl)
			tt.setup(videos)
			queue := &recordingQueue{}

			_, err := newTestService(videos, queue).SubmitVideo(context.Background(), tt.userID, tt.sourceURL, nil)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
			assert.Empty(t, queue.ids)
		})
	}
}

func TestService_SubmitVideo_QueueUnavailable(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	service := newTestService(db.Videos(), &recordingQueue{err: ErrPoolStopped})

	job, err := service.SubmitVideo(ctx, "user-1", "vid123", nil)
	require.NoError(t, err)

	stored, err := db.Videos().Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, video.StatusPending, stored.Status)
}

func TestService_GetStatus(t *testing.T) {
	tests := []struct {
		name         string
		status       video.Status
		stage        video.Stage
		wantProgress int
	}{
		{name: "pending", status: video.StatusPending, stage: video.StageExtractingTranscript, wantProgress: 0},
		{name: "analyzing", status: video.StatusProcessing, stage: video.StageAnalyzingContent, wantProgress: 25},
		{name: "structuring", status: video.StatusProcessing, stage: video.StageStructuringContent, wantProgress: 75},
		{name: "failed while extracting knowledge", status: video.StatusFailed, stage: video.StageExtractingKnowledge, wantProgress: 50},
		{name: "completed", status: video.StatusCompleted, stage: video.StageCompleted, wantProgress: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := memstore.New()
			job := video.NewJob("video-1", "user-1", "vid123", "", nil, testNow)
			job.Status = tt.status
			job.Stage = tt.stage
			require.NoError(t, db.Videos().Create(ctx, job))
			require.NoError(t, db.Videos().AppendLog(ctx, &video.LogEntry{VideoID: "video-1", Stage: tt.stage, Outcome: video.OutcomeStarted, LoggedAt: testNow}))

			status, err := newTestService(db.Videos(), &recordingQueue{}).GetStatus(ctx, "video-1")
			require.NoError(t, err)
			assert.Equal(t, tt.status, status.Status)
			assert.Equal(t, tt.stage, status.Stage)
			assert.Equal(t, tt.wantProgress, status.Progress)
			assert.Len(t, status.Log, 1)
		})
	}

	t.Run("unknown video", func(t *testing.T) {
		_, err := newTestService(memstore.New().Videos(), &recordingQueue{}).GetStatus(context.Background(), "missing")
		assert.ErrorIs(t, err, video.ErrNotFound)
	})
}

func TestService_RetryVideo(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	queue := &recordingQueue{}
	service := newTestService(db.Videos(), queue)

	job := video.NewJob("video-1", "user-1", "vid123", "", nil, testNow)
	job.Status = video.StatusFailed
	job.Stage = video.StageAnalyzingContent
	job.ErrorMessage = "analysis returned no concepts"
	require.NoError(t, db.Videos().Create(ctx, job))
	require.NoError(t, db.Videos().Create(ctx, video.NewJob("video-2", "user-1", "other", "", nil, testNow)))

	retried, err := service.RetryVideo(ctx, "video-1")
	require.NoError(t, err)
	assert.Equal(t, video.StatusPending, retried.Status)
	assert.Equal(t, video.StageExtractingTranscript, retried.Stage)
	assert.Empty(t, retried.ErrorMessage)
	assert.Equal(t, []string{"video-1"}, queue.ids)

	_, err = service.RetryVideo(ctx, "video-2")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, CodeVideoNotFailed, apperr.CodeOf(err))

	_, err = service.RetryVideo(ctx, "missing")
	assert.ErrorIs(t, err, video.ErrNotFound)
	assert.Equal(t, []string{"video-1"}, queue.ids)
}
