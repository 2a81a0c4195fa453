package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/database"
	"github.com/at-ishikawa/lectio/internal/review"
)

type ReviewStore struct {
	db *DB
}

func copySession(s *review.Session) *review.Session {
	c := *s
	c.Results = slices.Clone(s.Results)
	return &c
}

func (s *ReviewStore) CreateSession(_ context.Context, session *review.Session) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.sessions[session.ID]; ok {
		return fmt.Errorf("insert review session %s: duplicate id", session.ID)
	}
	s.db.sessions[session.ID] = copySession(session)
	return nil
}

func (s *ReviewStore) GetSession(_ context.Context, id string) (*review.Session, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	session, ok := s.db.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, review.ErrSessionNotFound)
	}
	return copySession(session), nil
}

func (s *ReviewStore) FindSessionsByUser(_ context.Context, userID string) ([]review.Session, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var sessions []review.Session
	for _, session := range s.db.sessions {
		if session.UserID == userID {
			c := copySession(session)
			c.Results = nil
			sessions = append(sessions, *c)
		}
	}
	slices.SortFunc(sessions, func(a, b review.Session) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sessions, nil
}

func (s *ReviewStore) UpdateSession(_ context.Context, session *review.Session) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.checkSessionVersion(session); err != nil {
		return err
	}
	session.Version++
	s.db.sessions[session.ID] = copySession(session)
	return nil
}

func (s *ReviewStore) CommitReview(_ context.Context, c *card.Card, session *review.Session, result *review.Result) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	stored, ok := s.db.cards[c.ID]
	if !ok || stored.Version != c.Version {
		return fmt.Errorf("card %s at version %d: %w", c.ID, c.Version, database.ErrVersionConflict)
	}
	if err := s.checkSessionVersion(session); err != nil {
		return err
	}

	s.db.resultID++
	result.ID = s.db.resultID

	c.Version++
	session.Version++
	updatedCard := *c
	s.db.cards[c.ID] = &updatedCard
	s.db.sessions[session.ID] = copySession(session)

	if e, ok := s.db.extracts[c.ExtractID]; ok && c.LastReviewedAt != nil && c.NextReviewAt != nil {
		e.RecordReview(*c.LastReviewedAt, *c.NextReviewAt)
	}
	return nil
}

func (s *ReviewStore) checkSessionVersion(session *review.Session) error {
	stored, ok := s.db.sessions[session.ID]
	if !ok || stored.Version != session.Version {
		return fmt.Errorf("session %s at version %d: %w", session.ID, session.Version, database.ErrVersionConflict)
	}
	return nil
}
