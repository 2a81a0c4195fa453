package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/at-ishikawa/lectio/internal/extract"
)

type ExtractStore struct {
	db *DB
}

func (s *ExtractStore) BatchCreate(_ context.Context, extracts []extract.Extract) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, e := range extracts {
		if _, ok := s.db.extracts[e.ID]; ok {
			return fmt.Errorf("insert knowledge extract %s: duplicate id", e.ID)
		}
	}
	for _, e := range extracts {
		stored := e
		s.db.extracts[e.ID] = &stored
	}
	return nil
}

func (s *ExtractStore) Get(_ context.Context, id string) (*extract.Extract, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	e, ok := s.db.extracts[id]
	if !ok {
		return nil, fmt.Errorf("extract %s: %w", id, extract.ErrNotFound)
	}
	c := *e
	return &c, nil
}

func (s *ExtractStore) FindByVideo(_ context.Context, videoID string) ([]extract.Extract, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var extracts []extract.Extract
	for _, e := range s.db.extracts {
		if e.VideoID == videoID {
			extracts = append(extracts, *e)
		}
	}
	return sorted(extracts, byCreation(
		func(e extract.Extract) time.Time { return e.CreatedAt },
		func(e extract.Extract) string { return e.ID },
	)), nil
}

func (s *ExtractStore) DeleteByVideo(_ context.Context, videoID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for id, c := range s.db.cards {
		if c.VideoID == videoID {
			delete(s.db.cards, id)
		}
	}
	for id, e := range s.db.extracts {
		if e.VideoID == videoID {
			delete(s.db.extracts, id)
		}
	}
	return nil
}
