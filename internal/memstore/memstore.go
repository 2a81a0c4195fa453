// Package memstore keeps videos, extracts, cards and review sessions in memory.
// It backs the offline CLI and the end-to-end tests; every store returned by a
// DB shares one lock so multi-entity writes stay atomic.
package memstore

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/extract"
	"github.com/at-ishikawa/lectio/internal/review"
	"github.com/at-ishikawa/lectio/internal/video"
)

// DB is the shared state behind the in-memory stores.
type DB struct {
	mu sync.Mutex

	videos   map[string]*video.Job
	logID    int64
	extracts map[string]*extract.Extract
	cards    map[string]*card.Card
	sessions map[string]*review.Session
	resultID int64
}

func New() *DB {
	return &DB{
		videos:   make(map[string]*video.Job),
		extracts: make(map[string]*extract.Extract),
		cards:    make(map[string]*card.Card),
		sessions: make(map[string]*review.Session),
	}
}

func (db *DB) Videos() *VideoStore     { return &VideoStore{db: db} }
func (db *DB) Extracts() *ExtractStore { return &ExtractStore{db: db} }
func (db *DB) Cards() *CardStore       { return &CardStore{db: db} }
func (db *DB) Reviews() *ReviewStore   { return &ReviewStore{db: db} }

var (
	_ video.Store   = (*VideoStore)(nil)
	_ extract.Store = (*ExtractStore)(nil)
	_ card.Store    = (*CardStore)(nil)
	_ review.Store  = (*ReviewStore)(nil)
)

func byCreation[T any](createdAt func(T) time.Time, id func(T) string) func(a, b T) int {
	return func(a, b T) int {
		if c := createdAt(a).Compare(createdAt(b)); c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	}
}

func limited[T any](items []T, limit int) []T {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func sorted[T any](items []T, compare func(a, b T) int) []T {
	slices.SortFunc(items, compare)
	return items
}
