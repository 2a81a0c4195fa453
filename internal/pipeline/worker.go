package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/video"
)

var (
	ErrPoolStopped = errors.New("worker pool stopped")
	ErrQueueFull   = errors.New("worker queue is full")
)

const defaultRequeueInterval = 30 * time.Second

// Processor runs the pipeline for one video.
type Processor interface {
	Process(ctx context.Context, videoID string) error
}

// WorkerPool consumes a bounded queue of video ids with a fixed number of workers.
// Videos that could not be queued stay pending and are swept back in periodically.
type WorkerPool struct {
	processor       Processor
	videos          video.Store
	workers         int
	requeueInterval time.Duration
	queue           chan string
	done            chan struct{}
	logger          *zap.Logger

	mu     sync.Mutex
	queued map[string]struct{}
}

func NewWorkerPool(processor Processor, videos video.Store, cfg config.PipelineConfig, logger *zap.Logger) *WorkerPool {
	workers := max(cfg.Workers, 1)
	queueSize := max(cfg.QueueSize, 1)
	interval := cfg.RequeueInterval()
	if interval <= 0 {
		interval = defaultRequeueInterval
	}
	return &WorkerPool{
		processor:       processor,
		videos:          videos,
		workers:         workers,
		requeueInterval: interval,
		queue:           make(chan string, queueSize),
		done:            make(chan struct{}),
		logger:          logger.Named("worker"),
		queued:          make(map[string]struct{}),
	}
}

// Enqueue hands a video to the workers without blocking. A video already
// waiting in the queue is not queued twice.
func (p *WorkerPool) Enqueue(_ context.Context, videoID string) error {
	select {
	case <-p.done:
		return fmt.Errorf("enqueue video %s: %w", videoID, ErrPoolStopped)
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.queued[videoID]; ok {
		return nil
	}
	select {
	case p.queue <- videoID:
		p.queued[videoID] = struct{}{}
		return nil
	default:
		return fmt.Errorf("enqueue video %s: %w", videoID, ErrQueueFull)
	}
}

// Run starts the workers and re-queues pending videos on start and every
// requeue interval until ctx is done. In-flight videos finish before Run returns.
func (p *WorkerPool) Run(ctx context.Context) error {
	defer close(p.done)

	g, gctx := errgroup.WithContext(ctx)
	p.logger.Info("starting worker pool",
		zap.Int("workers", p.workers),
		zap.Int("queue_size", cap(p.queue)),
		zap.Duration("requeue_interval", p.requeueInterval),
	)
	for i := range p.workers {
		workerID := i + 1
		g.Go(func() error {
			p.loop(gctx, workerID)
			return nil
		})
	}
	g.Go(func() error {
		p.sweep(gctx)
		return nil
	})

	err := g.Wait()
	p.logger.Info("worker pool stopped")
	return err
}

func (p *WorkerPool) sweep(ctx context.Context) {
	ticker := time.NewTicker(p.requeueInterval)
	defer ticker.Stop()
	for {
		if err := p.requeuePending(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("re-queue pending videos", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *WorkerPool) requeuePending(ctx context.Context) error {
	pending, err := p.videos.FindByStatus(ctx, video.StatusPending)
	if err != nil {
		return fmt.Errorf("find pending videos: %w", err)
	}

	queued := 0
	for _, job := range pending {
		if err := p.Enqueue(ctx, job.ID); err != nil {
			if errors.Is(err, ErrQueueFull) {
				p.logger.Debug("queue full, deferring pending videos", zap.Int("remaining", len(pending)-queued))
				break
			}
			return err
		}
		queued++
	}
	if queued > 0 {
		p.logger.Debug("re-queued pending videos", zap.Int("count", queued))
	}
	return nil
}

func (p *WorkerPool) loop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case videoID := <-p.queue:
			p.mu.Lock()
			delete(p.queued, videoID)
			p.mu.Unlock()
			p.process(context.WithoutCancel(ctx), workerID, videoID)
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, workerID int, videoID string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic",
				zap.Int("worker_id", workerID),
				zap.String("video_id", videoID),
				zap.Any("panic", r),
			)
		}
	}()

	if err := p.processor.Process(ctx, videoID); err != nil {
		p.logger.Error("process video",
			zap.Int("worker_id", workerID),
			zap.String("video_id", videoID),
			zap.Error(err),
		)
	}
}
