package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/database"
	"github.com/at-ishikawa/lectio/internal/scheduler"
)

// MaxSessionCards is the hard upper bound on cards per session.
const MaxSessionCards = 50

// Manager starts sessions, applies submitted answers and closes sessions.
type Manager struct {
	store  Store
	cards  card.Store
	logger *zap.Logger

	maxCards      int
	retryAttempts uint
	retryDelay    time.Duration

	now   func() time.Time
	newID func() string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the session id source.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithRetryDelay sets the pause between attempts after a version conflict.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) { m.retryDelay = d }
}

func NewManager(store Store, cards card.Store, cfg config.ReviewConfig, logger *zap.Logger, opts ...Option) *Manager {
	maxCards := cfg.MaxSessionCards
	if maxCards <= 0 || maxCards > MaxSessionCards {
		maxCards = MaxSessionCards
	}
	attempts := cfg.SubmitRetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	m := &Manager{
		store:         store,
		cards:         cards,
		logger:        logger.Named("review"),
		maxCards:      maxCards,
		retryAttempts: attempts,
		retryDelay:    10 * time.Millisecond,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartSession opens an active session over up to limit of the user's due cards.
// When nothing is due, it falls back to never-reviewed cards.
func (m *Manager) StartSession(ctx context.Context, userID string, limit int) (*Session, []card.Card, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil, apperr.Validation(CodeInvalidUser, "user id is required")
	}
	if limit < 1 || limit > m.maxCards {
		return nil, nil, apperr.Validation(CodeInvalidLimit, "limit must be between 1 and %d, got %d", m.maxCards, limit)
	}

	now := m.now()
	cards, err := m.cards.FindDue(ctx, userID, now, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("find due cards: %w", err)
	}
	if len(cards) == 0 {
		cards, err = m.cards.FindNew(ctx, userID, limit)
		if err != nil {
			return nil, nil, fmt.Errorf("find new cards: %w", err)
		}
	}

	session := &Session{
		ID:        m.newID(),
		UserID:    userID,
		Status:    StatusActive,
		StartedAt: now,
		Version:   1,
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	m.logger.Info("review session started",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID),
		zap.Int("cards", len(cards)),
	)
	return session, cards, nil
}

// SubmitReview applies one answer to a card within an active session.
// The card and session are reloaded and recomputed when a concurrent writer wins.
func (m *Manager) SubmitReview(
	ctx context.Context,
	sessionID, cardID string,
	quality scheduler.Quality,
	responseTimeMs int64,
) (*card.Card, *Session, error) {
	if !quality.Valid() {
		return nil, nil, apperr.Validation(CodeInvalidQuality, "invalid quality %d", int(quality))
	}
	if responseTimeMs < 0 {
		return nil, nil, apperr.Validation(CodeInvalidResponseTime, "response time must not be negative, got %d", responseTimeMs)
	}

	var (
		reviewed *card.Card
		session  *Session
	)
	err := m.withConflictRetry(ctx, "submit review", func() error {
		s, c, err := m.loadForReview(ctx, sessionID, cardID)
		if err != nil {
			return err
		}

		now := m.now()
		c.ApplyReview(quality, now)
		result := Result{
			SessionID:      s.ID,
			CardID:         c.ID,
			Quality:        quality,
			ResponseTimeMs: responseTimeMs,
			ReviewedAt:     now,
		}
		s.Record(result)

		if err := m.store.CommitReview(ctx, c, s, &s.Results[len(s.Results)-1]); err != nil {
			return err
		}
		reviewed, session = c, s
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.logger.Debug("card reviewed",
		zap.String("session_id", sessionID),
		zap.String("card_id", cardID),
		zap.Stringer("quality", quality),
		zap.Int("interval_days", reviewed.CurrentInterval),
		zap.Float64("ease_factor", reviewed.EaseFactor),
	)
	return reviewed, session, nil
}

func (m *Manager) loadForReview(ctx context.Context, sessionID, cardID string) (*Session, *card.Card, error) {
	s, err := m.activeSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	c, err := m.cards.Get(ctx, cardID)
	if err != nil {
		return nil, nil, err
	}
	if c.UserID != s.UserID {
		return nil, nil, fmt.Errorf("card %s is not owned by %s: %w", cardID, s.UserID, card.ErrNotFound)
	}
	if !c.IsActive {
		return nil, nil, fmt.Errorf("card %s: %w", cardID, card.ErrInactive)
	}
	return s, c, nil
}

// CompleteSession closes an active session and computes its analytics.
func (m *Manager) CompleteSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := m.transition(ctx, sessionID, "complete session", func(s *Session, now time.Time) {
		s.Complete(now)
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("session_id", session.ID),
		zap.Int("cards_reviewed", session.CardsReviewed),
		zap.Float64("accuracy", session.Accuracy),
	}
	if session.LearningVelocity != nil {
		fields = append(fields, zap.Float64("learning_velocity", *session.LearningVelocity))
	}
	m.logger.Info("review session completed", fields...)
	return session, nil
}

// PauseSession stops an active session without analytics.
func (m *Manager) PauseSession(ctx context.Context, sessionID string) (*Session, error) {
	return m.transition(ctx, sessionID, "pause session", func(s *Session, _ time.Time) {
		s.Status = StatusPaused
	})
}

// AbandonSession gives up an active session without analytics.
func (m *Manager) AbandonSession(ctx context.Context, sessionID string) (*Session, error) {
	return m.transition(ctx, sessionID, "abandon session", func(s *Session, _ time.Time) {
		s.Status = StatusAbandoned
	})
}

// GetSession returns a session with its results.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return m.store.GetSession(ctx, sessionID)
}

func (m *Manager) transition(ctx context.Context, sessionID, op string, apply func(s *Session, now time.Time)) (*Session, error) {
	var session *Session
	err := m.withConflictRetry(ctx, op, func() error {
		s, err := m.activeSession(ctx, sessionID)
		if err != nil {
			return err
		}
		apply(s, m.now())
		if err := m.store.UpdateSession(ctx, s); err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (m *Manager) activeSession(ctx context.Context, sessionID string) (*Session, error) {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusActive {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, s.Status, ErrSessionNotActive)
	}
	return s, nil
}

// withConflictRetry runs fn again only when it lost a compare-and-swap race.
func (m *Manager) withConflictRetry(ctx context.Context, op string, fn func() error) error {
	err := retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(m.retryAttempts),
		retry.Delay(m.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, database.ErrVersionConflict)
		}),
		retry.OnRetry(func(n uint, err error) {
			m.logger.Debug("retrying after version conflict", zap.String("op", op), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if errors.Is(err, database.ErrVersionConflict) {
		return fmt.Errorf("%s: %w", op, ErrReviewConflict)
	}
	return err
}
