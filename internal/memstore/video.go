package memstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/at-ishikawa/lectio/internal/video"
)

type VideoStore struct {
	db *DB
}

func copyJob(j *video.Job) *video.Job {
	c := *j
	c.Log = slices.Clone(j.Log)
	return &c
}

func (s *VideoStore) Create(_ context.Context, job *video.Job) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.videos {
		if existing.UserID == job.UserID && existing.SourceID == job.SourceID {
			return fmt.Errorf("insert video(%s, %s): %w", job.UserID, job.SourceID, video.ErrDuplicateSource)
		}
	}
	stored := copyJob(job)
	stored.Log = nil
	s.db.videos[job.ID] = stored
	return nil
}

func (s *VideoStore) Get(_ context.Context, id string) (*video.Job, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	job, ok := s.db.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %s: %w", id, video.ErrNotFound)
	}
	return copyJob(job), nil
}

func (s *VideoStore) FindBySource(_ context.Context, userID, sourceID string) (*video.Job, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, job := range s.db.videos {
		if job.UserID == userID && job.SourceID == sourceID {
			c := copyJob(job)
			c.Log = nil
			return c, nil
		}
	}
	return nil, fmt.Errorf("video(%s, %s): %w", userID, sourceID, video.ErrNotFound)
}

func (s *VideoStore) FindByStatus(_ context.Context, status video.Status) ([]video.Job, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var jobs []video.Job
	for _, job := range s.db.videos {
		if job.Status == status {
			c := copyJob(job)
			c.Log = nil
			jobs = append(jobs, *c)
		}
	}
	return sorted(jobs, byCreation(
		func(j video.Job) time.Time { return j.CreatedAt },
		func(j video.Job) string { return j.ID },
	)), nil
}

func (s *VideoStore) Update(_ context.Context, job *video.Job) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	stored, ok := s.db.videos[job.ID]
	if !ok {
		return fmt.Errorf("video %s: %w", job.ID, video.ErrNotFound)
	}
	updated := copyJob(job)
	updated.Log = stored.Log
	s.db.videos[job.ID] = updated
	return nil
}

func (s *VideoStore) Claim(_ context.Context, id string, now time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	job, ok := s.db.videos[id]
	if !ok || !job.Status.Processable() {
		return false, nil
	}
	job.Status = video.StatusProcessing
	job.Stage = video.StageExtractingTranscript
	job.ErrorMessage = ""
	job.UpdatedAt = now
	return true, nil
}

func (s *VideoStore) AppendLog(_ context.Context, entry *video.LogEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	job, ok := s.db.videos[entry.VideoID]
	if !ok {
		return fmt.Errorf("video %s: %w", entry.VideoID, video.ErrNotFound)
	}
	s.db.logID++
	entry.ID = s.db.logID
	job.Log = append(job.Log, *entry)
	return nil
}
