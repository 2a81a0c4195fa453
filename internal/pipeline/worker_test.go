package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/memstore"
	"github.com/at-ishikawa/lectio/internal/video"
)

type recordingProcessor struct {
	mu        sync.Mutex
	processed []string
	done      chan string
	fail      map[string]error
	panics    map[string]bool
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{done: make(chan string, 16), fail: map[string]error{}, panics: map[string]bool{}}
}

func (p *recordingProcessor) Process(_ context.Context, videoID string) error {
	defer func() { p.done <- videoID }()
	p.mu.Lock()
	p.processed = append(p.processed, videoID)
	p.mu.Unlock()
	if p.panics[videoID] {
		panic("boom")
	}
	return p.fail[videoID]
}

func waitFor(t *testing.T, done <-chan string, n int) []string {
	t.Helper()
	var ids []string
	for range n {
		select {
		case id := <-done:
			ids = append(ids, id)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d videos", len(ids), n)
		}
	}
	return ids
}

func TestWorkerPool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	db := memstore.New()
	require.NoError(t, db.Videos().Create(ctx, video.NewJob("pending-1", "user-1", "a", "", nil, testNow)))
	done := video.NewJob("done-1", "user-1", "b", "", nil, testNow)
	done.Status = video.StatusCompleted
	require.NoError(t, db.Videos().Create(ctx, done))

	processor := newRecordingProcessor()
	processor.fail["video-2"] = errors.New("store unavailable")
	processor.panics["video-3"] = true
	pool := NewWorkerPool(processor, db.Videos(), config.PipelineConfig{Workers: 2, QueueSize: 8}, zap.NewNop())

	runErr := make(chan error, 1)
	go func() { runErr <- pool.Run(ctx) }()

	for _, id := range []string{"video-1", "video-2", "video-3", "video-4"} {
		require.NoError(t, pool.Enqueue(ctx, id))
	}
	got := waitFor(t, processor.done, 5)
	assert.ElementsMatch(t, []string{"pending-1", "video-1", "video-2", "video-3", "video-4"}, got)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker pool did not stop")
	}

	assert.ErrorIs(t, pool.Enqueue(context.Background(), "late"), ErrPoolStopped)
}

func TestWorkerPool_Enqueue_Full(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(newRecordingProcessor(), memstore.New().Videos(), config.PipelineConfig{Workers: 1, QueueSize: 1}, zap.NewNop())
	require.NoError(t, pool.Enqueue(ctx, "video-1"))
	require.NoError(t, pool.Enqueue(ctx, "video-1"), "a queued video is not queued twice")

	started := time.Now()
	err := pool.Enqueue(ctx, "video-2")
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Less(t, time.Since(started), 100*time.Millisecond)
}

// claimingProcessor completes videos it manages to claim and reports them.
type claimingProcessor struct {
	videos video.Store
	done   chan string
}

func (p *claimingProcessor) Process(ctx context.Context, videoID string) error {
	claimed, err := p.videos.Claim(ctx, videoID, testNow)
	if err != nil || !claimed {
		return err
	}
	job, err := p.videos.Get(ctx, videoID)
	if err != nil {
		return err
	}
	job.Status = video.StatusCompleted
	job.Stage = video.StageCompleted
	if err := p.videos.Update(ctx, job); err != nil {
		return err
	}
	p.done <- videoID
	return nil
}

func TestWorkerPool_SubmitWhileQueueFull(t *testing.T) {
	db := memstore.New()
	processor := &claimingProcessor{videos: db.Videos(), done: make(chan string, 4)}
	pool := NewWorkerPool(processor, db.Videos(), config.PipelineConfig{Workers: 1, QueueSize: 1}, zap.NewNop())
	pool.requeueInterval = 20 * time.Millisecond
	service := NewService(db.Videos(), pool, zap.NewNop())

	var ids []string
	for _, source := range []string{"vid-aaa", "vid-bbb"} {
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		started := time.Now()
		job, err := service.SubmitVideo(ctx, "user-1", source, nil)
		cancel()
		require.NoError(t, err)
		assert.Less(t, time.Since(started), 100*time.Millisecond)
		assert.Equal(t, video.StatusPending, job.Status)
		ids = append(ids, job.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- pool.Run(ctx) }()

	assert.ElementsMatch(t, ids, waitFor(t, processor.done, 2))
	cancel()
	require.NoError(t, <-runErr)

	for _, id := range ids {
		job, err := db.Videos().Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, video.StatusCompleted, job.Status)
	}
}
