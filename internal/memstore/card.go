package memstore

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/at-ishikawa/lectio/internal/card"
)

type CardStore struct {
	db *DB
}

var cardsByCreation = byCreation(
	func(c card.Card) time.Time { return c.CreatedAt },
	func(c card.Card) string { return c.ID },
)

// dueOrder puts scheduled cards first by next review, then never-scheduled
// cards, breaking ties by review count and creation.
func dueOrder(a, b card.Card) int {
	switch {
	case a.NextReviewAt == nil && b.NextReviewAt != nil:
		return 1
	case a.NextReviewAt != nil && b.NextReviewAt == nil:
		return -1
	case a.NextReviewAt != nil && b.NextReviewAt != nil:
		if c := a.NextReviewAt.Compare(*b.NextReviewAt); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(a.ReviewCount, b.ReviewCount); c != 0 {
		return c
	}
	return cardsByCreation(a, b)
}

func (s *CardStore) BatchCreate(_ context.Context, cards []card.Card) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, c := range cards {
		if _, ok := s.db.cards[c.ID]; ok {
			return fmt.Errorf("insert learning card %s: duplicate id", c.ID)
		}
	}
	for _, c := range cards {
		stored := c
		s.db.cards[c.ID] = &stored
	}
	return nil
}

func (s *CardStore) Get(_ context.Context, id string) (*card.Card, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c, ok := s.db.cards[id]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", id, card.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func (s *CardStore) FindByVideo(_ context.Context, videoID string) ([]card.Card, error) {
	return s.filter(func(c *card.Card) bool { return c.VideoID == videoID }, cardsByCreation, -1), nil
}

func (s *CardStore) FindByUser(_ context.Context, userID string) ([]card.Card, error) {
	return s.filter(func(c *card.Card) bool { return c.UserID == userID }, cardsByCreation, -1), nil
}

func (s *CardStore) FindDue(_ context.Context, userID string, now time.Time, limit int) ([]card.Card, error) {
	return s.filter(func(c *card.Card) bool {
		return c.UserID == userID && c.IsActive && c.IsDue(now)
	}, dueOrder, limit), nil
}

func (s *CardStore) FindNew(_ context.Context, userID string, limit int) ([]card.Card, error) {
	return s.filter(func(c *card.Card) bool {
		return c.UserID == userID && c.IsActive && c.ReviewCount == 0
	}, cardsByCreation, limit), nil
}

func (s *CardStore) filter(match func(c *card.Card) bool, compare func(a, b card.Card) int, limit int) []card.Card {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var cards []card.Card
	for _, c := range s.db.cards {
		if match(c) {
			cards = append(cards, *c)
		}
	}
	return limited(sorted(cards, compare), limit)
}
