// Package server exposes the pipeline and review surfaces as Connect RPC handlers.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/pipeline"
	"github.com/at-ishikawa/lectio/internal/review"
	"github.com/at-ishikawa/lectio/internal/scheduler"
	"github.com/at-ishikawa/lectio/internal/video"
)

const (
	LearningServiceName = "lectio.v1.LearningService"
	ReviewServiceName   = "lectio.v1.ReviewService"
)

const (
	SubmitVideoProcedure      = "/" + LearningServiceName + "/SubmitVideo"
	GetStatusProcedure        = "/" + LearningServiceName + "/GetStatus"
	RetryVideoProcedure       = "/" + LearningServiceName + "/RetryVideo"
	GetReviewSessionProcedure = "/" + ReviewServiceName + "/GetReviewSession"
	SubmitCardReviewProcedure = "/" + ReviewServiceName + "/SubmitCardReview"
	CompleteSessionProcedure  = "/" + ReviewServiceName + "/CompleteSession"
	PauseSessionProcedure     = "/" + ReviewServiceName + "/PauseSession"
	AbandonSessionProcedure   = "/" + ReviewServiceName + "/AbandonSession"
)

// VideoService is the pipeline surface the handler serves.
type VideoService interface {
	SubmitVideo(ctx context.Context, userID, sourceURL string, objectives []string) (*video.Job, error)
	GetStatus(ctx context.Context, videoID string) (*pipeline.Status, error)
	RetryVideo(ctx context.Context, videoID string) (*video.Job, error)
}

// ReviewService is the review surface the handler serves.
type ReviewService interface {
	StartSession(ctx context.Context, userID string, limit int) (*review.Session, []card.Card, error)
	SubmitReview(ctx context.Context, sessionID, cardID string, quality scheduler.Quality, responseTimeMs int64) (*card.Card, *review.Session, error)
	CompleteSession(ctx context.Context, sessionID string) (*review.Session, error)
	PauseSession(ctx context.Context, sessionID string) (*review.Session, error)
	AbandonSession(ctx context.Context, sessionID string) (*review.Session, error)
}

// Handler implements both services.
type Handler struct {
	videos       VideoService
	reviews      ReviewService
	defaultLimit int
	validator    *requestValidator
	logger       *zap.Logger
}

func NewHandler(videos VideoService, reviews ReviewService, cfg config.ReviewConfig, logger *zap.Logger) (*Handler, error) {
	v, err := newRequestValidator()
	if err != nil {
		return nil, fmt.Errorf("newRequestValidator() > %w", err)
	}
	defaultLimit := cfg.DefaultSessionCards
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &Handler{
		videos:       videos,
		reviews:      reviews,
		defaultLimit: defaultLimit,
		validator:    v,
		logger:       logger.Named("server"),
	}, nil
}

// Mount registers every procedure on mux.
func (h *Handler) Mount(mux *http.ServeMux) {
	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(newLoggingInterceptor(h.logger)),
	}
	mux.Handle(SubmitVideoProcedure, connect.NewUnaryHandler(SubmitVideoProcedure, h.SubmitVideo, opts...))
	mux.Handle(GetStatusProcedure, connect.NewUnaryHandler(GetStatusProcedure, h.GetStatus, opts...))
	mux.Handle(RetryVideoProcedure, connect.NewUnaryHandler(RetryVideoProcedure, h.RetryVideo, opts...))
	mux.Handle(GetReviewSessionProcedure, connect.NewUnaryHandler(GetReviewSessionProcedure, h.GetReviewSession, opts...))
	mux.Handle(SubmitCardReviewProcedure, connect.NewUnaryHandler(SubmitCardReviewProcedure, h.SubmitCardReview, opts...))
	mux.Handle(CompleteSessionProcedure, connect.NewUnaryHandler(CompleteSessionProcedure, h.CompleteSession, opts...))
	mux.Handle(PauseSessionProcedure, connect.NewUnaryHandler(PauseSessionProcedure, h.PauseSession, opts...))
	mux.Handle(AbandonSessionProcedure, connect.NewUnaryHandler(AbandonSessionProcedure, h.AbandonSession, opts...))
}

// SubmitVideo records a video for processing and returns it pending.
func (h *Handler) SubmitVideo(
	ctx context.Context,
	req *connect.Request[SubmitVideoRequest],
) (*connect.Response[SubmitVideoResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}

	job, err := h.videos.SubmitVideo(ctx, req.Msg.UserID, req.Msg.SourceURL, req.Msg.LearningObjectives)
	if err != nil {
		return nil, toConnectError(err, h.logger)
	}
	return connect.NewResponse(&SubmitVideoResponse{Video: toVideo(job)}), nil
}

// GetStatus returns a video's processing status, progress and log.
func (h *Handler) GetStatus(
	ctx context.Context,
	req *connect.Request[GetStatusRequest],
) (*connect.Response[GetStatusResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}

	status, err := h.videos.GetStatus(ctx, req.Msg.VideoID)
	if err != nil {
		return nil, toConnectError(err, h.logger)
	}
	return connect.NewResponse(toStatusResponse(status)), nil
}

// RetryVideo queues a failed video again.
func (h *Handler) RetryVideo(
	ctx context.Context,
	req *connect.Request[RetryVideoRequest],
) (*connect.Response[RetryVideoResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}

	job, err := h.videos.RetryVideo(ctx, req.Msg.VideoID)
	if err != nil {
		return nil, toConnectError(err, h.logger)
	}
	return connect.NewResponse(&RetryVideoResponse{Video: toVideo(job)}), nil
}

// GetReviewSession starts a session over the user's due cards.
func (h *Handler) GetReviewSession(
	ctx context.Context,
	req *connect.Request[GetReviewSessionRequest],
) (*connect.Response[GetReviewSessionResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}

	limit := req.Msg.Limit
	if limit == 0 {
		limit = h.defaultLimit
	}
	session, cards, err := h.reviews.StartSession(ctx, req.Msg.UserID, limit)
	if err != nil {
		return nil, toConnectError(err, h.logger)
	}

	resp := &GetReviewSessionResponse{
		SessionID: session.ID,
		Cards:     make([]Card, 0, len(cards)),
	}
	for i := range cards {
		resp.Cards = append(resp.Cards, toCard(&cards[i]))
	}
	return connect.NewResponse(resp), nil
}

// SubmitCardReview applies one answer within a session.
func (h *Handler) SubmitCardReview(
	ctx context.Context,
	req *connect.Request[SubmitCardReviewRequest],
) (*connect.Response[SubmitCardReviewResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}
	quality, err := scheduler.ParseQuality(req.Msg.Quality)
	if err != nil {
		return nil, toConnectError(apperr.Validation(review.CodeInvalidQuality, "%v", err), h.logger)
	}

	c, session, err := h.reviews.SubmitReview(ctx, req.Msg.SessionID, req.Msg.CardID, quality, req.Msg.ResponseTimeMs)
	if err != nil {
		return nil, toConnectError(err, h.logger)
	}
	return connect.NewResponse(&SubmitCardReviewResponse{
		Card:    toCardSchedule(c),
		Session: toSession(session),
	}), nil
}

// CompleteSession closes a session and returns its analytics.
func (h *Handler) CompleteSession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[SessionResponse], error) {
	return h.sessionCall(ctx, req, h.reviews.CompleteSession)
}

func (h *Handler) PauseSession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[SessionResponse], error) {
	return h.sessionCall(ctx, req, h.reviews.PauseSession)
}

func (h *Handler) AbandonSession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[SessionResponse], error) {
	return h.sessionCall(ctx, req, h.reviews.AbandonSession)
}

func (h *Handler) sessionCall(
	ctx context.Context,
	req *connect.Request[SessionRequest],
	call func(ctx context.Context, sessionID string) (*review.Session, error),
) (*connect.Response[SessionResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}

	session, err := call(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err, h.logger)
	}
	return connect.NewResponse(&SessionResponse{Session: toSession(session)}), nil
}

func newLoggingInterceptor(logger *zap.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			started := time.Now()
			resp, err := next(ctx, req)
			fields := []zap.Field{
				zap.String("procedure", req.Spec().Procedure),
				zap.Duration("elapsed", time.Since(started)),
			}
			if err != nil {
				logger.Info("request failed", append(fields, zap.String("code", connect.CodeOf(err).String()), zap.Error(err))...)
				return resp, err
			}
			logger.Debug("request served", fields...)
			return resp, nil
		}
	}
}
