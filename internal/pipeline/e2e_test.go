package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/analysis"
	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/memstore"
	mock_inference "github.com/at-ishikawa/lectio/internal/mocks/inference"
	"github.com/at-ishikawa/lectio/internal/review"
	"github.com/at-ishikawa/lectio/internal/scheduler"
	"github.com/at-ishikawa/lectio/internal/source/local"
	"github.com/at-ishikawa/lectio/internal/testutil"
	"github.com/at-ishikawa/lectio/internal/video"
)

// A submitted video flows through the pipeline into a review session.
func TestSubmitProcessReview(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutil.WriteTranscript(t, dir, "vid123")

	ctrl := gomock.NewController(t)
	client := mock_inference.NewMockClient(ctrl)
	client.EXPECT().ExtractConcepts(gomock.Any(), gomock.Any()).Return(testConcepts, nil)

	logger := zap.NewNop()
	db := memstore.New()
	clock := testNow
	now := func() time.Time { return clock }

	analyzer := analysis.NewAnalyzer(client, config.PipelineConfig{AnalysisTimeoutSeconds: 5, MinTranscriptLength: 20}, logger)
	controller := NewController(db.Videos(), db.Extracts(), db.Cards(), local.NewFetcher(dir), analyzer,
		card.NewGeneratorWith(sequentialIDs("card"), now), logger)
	controller.now = now
	controller.newID = sequentialIDs("extract")

	queue := &recordingQueue{}
	service := newTestService(db.Videos(), queue)
	job, err := service.SubmitVideo(ctx, "user-1", "https://youtu.be/vid123", nil)
	require.NoError(t, err)
	require.Equal(t, []string{job.ID}, queue.ids)

	require.NoError(t, controller.Process(ctx, job.ID))
	status, err := service.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, video.StatusCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)

	manager := review.NewManager(db.Reviews(), db.Cards(),
		config.ReviewConfig{MaxSessionCards: 50, DefaultSessionCards: 20, SubmitRetryAttempts: 3}, logger,
		review.WithClock(now), review.WithIDGenerator(sequentialIDs("session")))

	session, cards, err := manager.StartSession(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, []string{"card-001", "card-002", "card-003"}, []string{cards[0].ID, cards[1].ID, cards[2].ID})
	assert.Equal(t, "What is Goroutine?", cards[0].Question)
	assert.Equal(t, card.TypeMultipleChoice, cards[1].Type)

	clock = testNow.Add(10 * time.Second)
	reviewed, _, err := manager.SubmitReview(ctx, session.ID, cards[0].ID, scheduler.QualityGood, 4200)
	require.NoError(t, err)
	assert.Equal(t, 1, reviewed.CurrentInterval)
	require.NotNil(t, reviewed.NextReviewAt)
	assert.Equal(t, clock.AddDate(0, 0, 1), *reviewed.NextReviewAt)

	e, err := db.Extracts().Get(ctx, reviewed.ExtractID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.ReviewCount)

	clock = testNow.Add(30 * time.Second)
	completed, err := manager.CompleteSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, review.StatusCompleted, completed.Status)
	assert.Equal(t, 100.0, completed.Accuracy)
	require.NotNil(t, completed.LearningVelocity)
	assert.Greater(t, *completed.LearningVelocity, 0.0)
	require.NotNil(t, completed.AverageResponseTimeMs)
	assert.Equal(t, 4200.0, *completed.AverageResponseTimeMs)
}
