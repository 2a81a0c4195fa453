package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/analysis"
	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/extract"
	"github.com/at-ishikawa/lectio/internal/inference"
	"github.com/at-ishikawa/lectio/internal/memstore"
	mock_inference "github.com/at-ishikawa/lectio/internal/mocks/inference"
	mock_source "github.com/at-ishikawa/lectio/internal/mocks/source"
	mock_video "github.com/at-ishikawa/lectio/internal/mocks/video"
	"github.com/at-ishikawa/lectio/internal/source"
	"github.com/at-ishikawa/lectio/internal/video"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

var testMetadata = source.Metadata{Title: "Go Concurrency Patterns", Description: "Goroutines and channels", DurationSeconds: 3067}

var testTranscript = source.Transcript{
	Language: "en",
	Segments: []source.Segment{
		{Start: 0, Duration: 4.5, Text: "Welcome to the talk about concurrency in Go."},
		{Start: 4.5, Duration: 6, Text: "A goroutine is a lightweight thread managed by the runtime."},
		{Start: 90, Duration: 8, Text: "Do not communicate by sharing memory; share memory by communicating."},
	},
}

var testConcepts = inference.ExtractConceptsResponse{
	Summary:   "An introduction to goroutines and channels.",
	KeyTopics: []string{"goroutines", "channels"},
	Concepts: []inference.Concept{
		{
			Title: "Goroutine", Content: "A lightweight thread managed by the Go runtime.", Type: "definition",
			StartTime: 4.5, EndTime: 10.5, Confidence: 0.95, Tags: []string{"Go", "concurrency"},
		},
		{
			Title: "Share memory by communicating", Content: "Pass ownership of data over channels instead of locking it.", Type: "concept",
			StartTime: 90, EndTime: 98, Confidence: 0.8, Tags: []string{"channels"},
		},
	},
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

type testPipeline struct {
	db         *memstore.DB
	controller *Controller
	fetcher    *mock_source.MockFetcher
	client     *mock_inference.MockClient
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()
	ctrl := gomock.NewController(t)
	db := memstore.New()
	fetcher := mock_source.NewMockFetcher(ctrl)
	client := mock_inference.NewMockClient(ctrl)

	logger := zap.NewNop()
	analyzer := analysis.NewAnalyzer(client, config.PipelineConfig{AnalysisTimeoutSeconds: 5, MinTranscriptLength: 20}, logger)
	now := func() time.Time { return testNow }
	controller := NewController(db.Videos(), db.Extracts(), db.Cards(), fetcher, analyzer,
		card.NewGeneratorWith(sequentialIDs("card"), now), logger)
	controller.now = now
	controller.newID = sequentialIDs("extract")

	return &testPipeline{db: db, controller: controller, fetcher: fetcher, client: client}
}

func (p *testPipeline) createJob(t *testing.T, status video.Status) *video.Job {
	t.Helper()
	job := video.NewJob("video-1", "user-1", "vid123", "https://youtu.be/vid123", []string{"learn goroutines"}, testNow)
	job.Status = status
	require.NoError(t, p.db.Videos().Create(context.Background(), job))
	return job
}

func (p *testPipeline) expectSource() {
	p.fetcher.EXPECT().FetchMetadata(gomock.Any(), "vid123").Return(testMetadata, nil)
	p.fetcher.EXPECT().FetchTranscript(gomock.Any(), "vid123").Return(testTranscript, nil)
}

func logSteps(job *video.Job) []string {
	steps := make([]string, 0, len(job.Log))
	for _, entry := range job.Log {
		steps = append(steps, string(entry.Stage)+":"+string(entry.Outcome))
	}
	return steps
}

func TestController_Process(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)
	p.createJob(t, video.StatusPending)
	p.expectSource()
	p.client.EXPECT().ExtractConcepts(gomock.Any(), gomock.Any()).Return(testConcepts, nil)

	require.NoError(t, p.controller.Process(ctx, "video-1"))

	job, err := p.db.Videos().Get(ctx, "video-1")
	require.NoError(t, err)
	require.NoError(t, job.CheckInvariants())
	assert.Equal(t, video.StatusCompleted, job.Status)
	assert.Equal(t, video.StageCompleted, job.Stage)
	assert.Equal(t, "Go Concurrency Patterns", job.Title)
	assert.Equal(t, 3067, job.DurationSeconds)
	assert.Equal(t, "An introduction to goroutines and channels.", job.Summary)
	assert.Equal(t, []string{"goroutines", "channels"}, []string(job.KeyTopics))
	assert.Equal(t, []string{"learn goroutines"}, []string(job.LearningObjectives))
	assert.Empty(t, job.ErrorMessage)
	assert.Equal(t, []string{
		"extracting_transcript:started", "extracting_transcript:completed",
		"analyzing_content:started", "analyzing_content:completed",
		"extracting_knowledge:started", "extracting_knowledge:completed",
		"structuring_content:started", "structuring_content:completed",
	}, logSteps(job))

	extracts, err := p.db.Extracts().FindByVideo(ctx, "video-1")
	require.NoError(t, err)
	require.Len(t, extracts, 2)
	assert.Equal(t, extract.Extract{
		ID: "extract-001", UserID: "user-1", VideoID: "video-1",
		Title: "Goroutine", Content: "A lightweight thread managed by the Go runtime.", Type: extract.TypeDefinition,
		Tags: []string{"go", "concurrency"}, StartTime: 4.5, EndTime: 10.5, Confidence: 0.95, CreatedAt: testNow,
	}, extracts[0])
	assert.Equal(t, extract.TypeConcept, extracts[1].Type)

	cards, err := p.db.Cards().FindByVideo(ctx, "video-1")
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, []card.Type{card.TypeFlashcard, card.TypeMultipleChoice, card.TypeFlashcard},
		[]card.Type{cards[0].Type, cards[1].Type, cards[2].Type})
	assert.Equal(t, "extract-002", cards[2].ExtractID)
	for _, c := range cards {
		assert.Equal(t, "user-1", c.UserID)
		assert.Equal(t, 0, c.CurrentInterval)
		assert.Equal(t, 2.5, c.EaseFactor)
		assert.True(t, c.IsActive)
	}
}

func TestController_Process_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(p *testPipeline)
		wantStage video.Stage
		wantMsg   string
		wantCode  string
		wantSteps []string
	}{
		{
			name: "transcript unavailable",
			setup: func(p *testPipeline) {
				p.fetcher.EXPECT().FetchMetadata(gomock.Any(), "vid123").Return(testMetadata, nil)
				p.fetcher.EXPECT().FetchTranscript(gomock.Any(), "vid123").
					Return(source.Transcript{}, apperr.New(apperr.KindAcquisition, "transcript_unavailable", errors.New("captions are disabled for vid123")))
			},
			wantStage: video.StageExtractingTranscript,
			wantMsg:   "captions are disabled for vid123",
			wantSteps: []string{"extracting_transcript:started", "extracting_transcript:failed"},
		},
		{
			name: "analysis without concepts",
			setup: func(p *testPipeline) {
				p.expectSource()
				p.client.EXPECT().ExtractConcepts(gomock.Any(), gomock.Any()).
					Return(inference.ExtractConceptsResponse{Summary: "nothing to learn"}, nil)
			},
			wantStage: video.StageAnalyzingContent,
			wantMsg:   "analysis returned no concepts",
			wantSteps: []string{
				"extracting_transcript:started", "extracting_transcript:completed",
				"analyzing_content:started", "analyzing_content:failed",
			},
		},
		{
			name: "model failure",
			setup: func(p *testPipeline) {
				p.expectSource()
				p.client.EXPECT().ExtractConcepts(gomock.Any(), gomock.Any()).
					Return(inference.ExtractConceptsResponse{}, errors.New("response error 500"))
			},
			wantStage: video.StageAnalyzingContent,
			wantMsg:   "concept extraction: response error 500",
			wantSteps: []string{
				"extracting_transcript:started", "extracting_transcript:completed",
				"analyzing_content:started", "analyzing_content:failed",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := newTestPipeline(t)
			p.createJob(t, video.StatusPending)
			tt.setup(p)

			require.NoError(t, p.controller.Process(ctx, "video-1"))

			job, err := p.db.Videos().Get(ctx, "video-1")
			require.NoError(t, err)
			require.NoError(t, job.CheckInvariants())
			assert.Equal(t, video.StatusFailed, job.Status)
			assert.Equal(t, tt.wantStage, job.Stage)
			assert.Equal(t, tt.wantMsg, job.ErrorMessage)
			assert.Equal(t, tt.wantSteps, logSteps(job))
			assert.Equal(t, tt.wantMsg, job.Log[len(job.Log)-1].Message)

			extracts, err := p.db.Extracts().FindByVideo(ctx, "video-1")
			require.NoError(t, err)
			assert.Empty(t, extracts)
		})
	}
}

func TestController_Process_NotProcessable(t *testing.T) {
	for _, status := range []video.Status{video.StatusProcessing, video.StatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			p := newTestPipeline(t)
			p.createJob(t, status)

			require.NoError(t, p.controller.Process(ctx, "video-1"))

			job, err := p.db.Videos().Get(ctx, "video-1")
			require.NoError(t, err)
			assert.Equal(t, status, job.Status)
			assert.Empty(t, job.Log)
		})
	}
}

func TestController_Process_RerunReplacesDerivedContent(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)
	p.createJob(t, video.StatusFailed)
	require.NoError(t, p.db.Extracts().BatchCreate(ctx, []extract.Extract{{ID: "stale-extract", VideoID: "video-1", UserID: "user-1"}}))
	require.NoError(t, p.db.Cards().BatchCreate(ctx, []card.Card{{ID: "stale-card", ExtractID: "stale-extract", VideoID: "video-1", UserID: "user-1"}}))

	p.expectSource()
	p.client.EXPECT().ExtractConcepts(gomock.Any(), gomock.Any()).Return(testConcepts, nil)
	require.NoError(t, p.controller.Process(ctx, "video-1"))

	extracts, err := p.db.Extracts().FindByVideo(ctx, "video-1")
	require.NoError(t, err)
	assert.Len(t, extracts, 2)
	_, err = p.db.Extracts().Get(ctx, "stale-extract")
	assert.ErrorIs(t, err, extract.ErrNotFound)

	cards, err := p.db.Cards().FindByVideo(ctx, "video-1")
	require.NoError(t, err)
	assert.Len(t, cards, 3)
	_, err = p.db.Cards().Get(ctx, "stale-card")
	assert.ErrorIs(t, err, card.ErrNotFound)
}

func TestController_Process_StoreErrors(t *testing.T) {
	storeErr := errors.New("connection refused")
	job := video.NewJob("video-1", "user-1", "vid123", "", nil, testNow)

	tests := []struct {
		name  string
		setup func(videos *mock_video.MockStore, fetcher *mock_source.MockFetcher)
	}{
		{
			name: "load fails",
			setup: func(videos *mock_video.MockStore, _ *mock_source.MockFetcher) {
				videos.EXPECT().Get(gomock.Any(), "video-1").Return(nil, storeErr)
			},
		},
		{
			name: "claim fails",
			setup: func(videos *mock_video.MockStore, _ *mock_source.MockFetcher) {
				videos.EXPECT().Get(gomock.Any(), "video-1").Return(job, nil)
				videos.EXPECT().Claim(gomock.Any(), "video-1", testNow).Return(false, storeErr)
			},
		},
		{
			name: "recording the failure fails",
			setup: func(videos *mock_video.MockStore, fetcher *mock_source.MockFetcher) {
				videos.EXPECT().Get(gomock.Any(), "video-1").Return(job, nil)
				videos.EXPECT().Claim(gomock.Any(), "video-1", testNow).Return(true, nil)
				videos.EXPECT().AppendLog(gomock.Any(), gomock.Any()).Return(nil)
				fetcher.EXPECT().FetchMetadata(gomock.Any(), "vid123").Return(source.Metadata{}, errors.New("page not found"))
				videos.EXPECT().AppendLog(gomock.Any(), gomock.Any()).Return(storeErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			videos := mock_video.NewMockStore(ctrl)
			fetcher := mock_source.NewMockFetcher(ctrl)
			tt.setup(videos, fetcher)

			controller := NewController(videos, nil, nil, fetcher, nil, nil, zap.NewNop())
			controller.now = func() time.Time { return testNow }

			err := controller.Process(context.Background(), "video-1")
			assert.ErrorIs(t, err, storeErr)
		})
	}
}

// flakyVideos fails one matching write, then delegates to the wrapped store.
type flakyVideos struct {
	video.Store
	logStage   video.Stage
	logOutcome video.Outcome
	updateTo   video.Stage
	err        error
}

func (f *flakyVideos) AppendLog(ctx context.Context, entry *video.LogEntry) error {
	if f.logStage != "" && entry.Stage == f.logStage && entry.Outcome == f.logOutcome {
		f.logStage = ""
		return f.err
	}
	return f.Store.AppendLog(ctx, entry)
}

func (f *flakyVideos) Update(ctx context.Context, job *video.Job) error {
	if f.updateTo != "" && job.Stage == f.updateTo {
		f.updateTo = ""
		return f.err
	}
	return f.Store.Update(ctx, job)
}

func TestController_Process_StoreErrorsAfterClaim(t *testing.T) {
	storeErr := errors.New("transient db blip")

	tests := []struct {
		name      string
		videos    func(store video.Store) *flakyVideos
		setup     func(p *testPipeline)
		wantStage video.Stage
		wantSteps []string
	}{
		{
			name: "started log fails",
			videos: func(store video.Store) *flakyVideos {
				return &flakyVideos{Store: store, logStage: video.StageAnalyzingContent, logOutcome: video.OutcomeStarted, err: storeErr}
			},
			setup:     func(p *testPipeline) { p.expectSource() },
			wantStage: video.StageAnalyzingContent,
			wantSteps: []string{
				"extracting_transcript:started", "extracting_transcript:completed",
				"analyzing_content:failed",
			},
		},
		{
			name: "completed log fails",
			videos: func(store video.Store) *flakyVideos {
				return &flakyVideos{Store: store, logStage: video.StageExtractingTranscript, logOutcome: video.OutcomeCompleted, err: storeErr}
			},
			setup:     func(p *testPipeline) { p.expectSource() },
			wantStage: video.StageExtractingTranscript,
			wantSteps: []string{"extracting_transcript:started", "extracting_transcript:failed"},
		},
		{
			name: "advancing the stage fails",
			videos: func(store video.Store) *flakyVideos {
				return &flakyVideos{Store: store, updateTo: video.StageAnalyzingContent, err: storeErr}
			},
			setup:     func(p *testPipeline) { p.expectSource() },
			wantStage: video.StageAnalyzingContent,
			wantSteps: []string{
				"extracting_transcript:started", "extracting_transcript:completed",
				"analyzing_content:failed",
			},
		},
		{
			name: "marking completed fails",
			videos: func(store video.Store) *flakyVideos {
				return &flakyVideos{Store: store, updateTo: video.StageCompleted, err: storeErr}
			},
			setup: func(p *testPipeline) {
				p.expectSource()
				p.client.EXPECT().ExtractConcepts(gomock.Any(), gomock.Any()).Return(testConcepts, nil)
			},
			wantStage: video.StageCompleted,
			wantSteps: []string{
				"extracting_transcript:started", "extracting_transcript:completed",
				"analyzing_content:started", "analyzing_content:completed",
				"extracting_knowledge:started", "extracting_knowledge:completed",
				"structuring_content:started", "structuring_content:completed",
				"completed:failed",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := newTestPipeline(t)
			p.createJob(t, video.StatusPending)
			p.controller.videos = tt.videos(p.db.Videos())
			tt.setup(p)

			err := p.controller.Process(ctx, "video-1")
			assert.ErrorIs(t, err, storeErr)

			job, err := p.db.Videos().Get(ctx, "video-1")
			require.NoError(t, err)
			require.NoError(t, job.CheckInvariants())
			assert.Equal(t, video.StatusFailed, job.Status)
			assert.Equal(t, tt.wantStage, job.Stage)
			assert.Contains(t, job.ErrorMessage, "transient db blip")
			assert.Equal(t, tt.wantSteps, logSteps(job))

			retried, err := NewService(p.db.Videos(), deferred{}, zap.NewNop()).RetryVideo(ctx, "video-1")
			require.NoError(t, err)
			assert.Equal(t, video.StatusPending, retried.Status)
		})
	}
}

// deferred leaves queued videos pending.
type deferred struct{}

func (deferred) Enqueue(context.Context, string) error { return nil }

func TestController_Process_Panic(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)
	p.createJob(t, video.StatusPending)
	p.fetcher.EXPECT().FetchMetadata(gomock.Any(), "vid123").
		DoAndReturn(func(context.Context, string) (source.Metadata, error) {
			panic("nil map write")
		})

	err := p.controller.Process(ctx, "video-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic during extracting_transcript: nil map write")

	job, err := p.db.Videos().Get(ctx, "video-1")
	require.NoError(t, err)
	require.NoError(t, job.CheckInvariants())
	assert.Equal(t, video.StatusFailed, job.Status)
	assert.Equal(t, []string{"extracting_transcript:started", "extracting_transcript:failed"}, logSteps(job))
}

func TestController_Process_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := newTestPipeline(t)
	p.createJob(t, video.StatusPending)
	p.fetcher.EXPECT().FetchMetadata(gomock.Any(), "vid123").
		DoAndReturn(func(context.Context, string) (source.Metadata, error) {
			cancel()
			return source.Metadata{}, context.Canceled
		})

	require.NoError(t, p.controller.Process(ctx, "video-1"))

	job, err := p.db.Videos().Get(context.Background(), "video-1")
	require.NoError(t, err)
	assert.Equal(t, video.StatusFailed, job.Status)
	assert.Equal(t, "context canceled", job.ErrorMessage)
}

func TestController_FailInterrupted(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	stuck := video.NewJob("video-1", "user-1", "vid123", "", nil, testNow)
	stuck.Status = video.StatusProcessing
	stuck.Stage = video.StageAnalyzingContent
	require.NoError(t, p.db.Videos().Create(ctx, stuck))
	require.NoError(t, p.db.Videos().AppendLog(ctx, &video.LogEntry{
		VideoID: "video-1", Stage: video.StageAnalyzingContent, Outcome: video.OutcomeStarted, LoggedAt: testNow,
	}))
	require.NoError(t, p.db.Videos().Create(ctx, video.NewJob("video-2", "user-1", "other", "", nil, testNow)))

	n, err := p.controller.FailInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := p.db.Videos().Get(ctx, "video-1")
	require.NoError(t, err)
	require.NoError(t, job.CheckInvariants())
	assert.Equal(t, video.StatusFailed, job.Status)
	assert.Equal(t, video.StageAnalyzingContent, job.Stage)
	assert.Equal(t, "processing interrupted during analyzing_content", job.ErrorMessage)
	assert.Equal(t, []string{"analyzing_content:started", "analyzing_content:failed"}, logSteps(job))

	pending, err := p.db.Videos().Get(ctx, "video-2")
	require.NoError(t, err)
	assert.Equal(t, video.StatusPending, pending.Status)
}

func TestController_FailInterrupted_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	videos := mock_video.NewMockStore(ctrl)
	storeErr := errors.New("connection refused")
	videos.EXPECT().FindByStatus(gomock.Any(), video.StatusProcessing).Return(nil, storeErr)

	controller := NewController(videos, nil, nil, nil, nil, nil, zap.NewNop())
	_, err := controller.FailInterrupted(context.Background())
	assert.ErrorIs(t, err, storeErr)
}

func TestController_Process_ClaimLost(t *testing.T) {
	ctrl := gomock.NewController(t)
	videos := mock_video.NewMockStore(ctrl)
	videos.EXPECT().Get(gomock.Any(), "video-1").Return(video.NewJob("video-1", "user-1", "vid123", "", nil, testNow), nil)
	videos.EXPECT().Claim(gomock.Any(), "video-1", testNow).Return(false, nil)

	controller := NewController(videos, nil, nil, nil, nil, nil, zap.NewNop())
	controller.now = func() time.Time { return testNow }
	assert.NoError(t, controller.Process(context.Background(), "video-1"))
}
