package store

import (
	"context"
	"sync"

	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/models"
)

// MemoryStore keeps job state in a process-local map. This is the default
// backend: state lives for the lifetime of the process and is lost on
// restart, which matches the polling contract (clients re-submit).
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.Job)}
}

func (s *MemoryStore) Put(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *job
	s.jobs[job.VideoID] = &copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, videoID string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[videoID]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy so callers can't mutate shared state outside Update
	copied := *job
	return &copied, nil
}

func (s *MemoryStore) Update(_ context.Context, videoID string, fn func(*models.Job)) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[videoID]
	if !ok {
		return nil, ErrNotFound
	}

	fn(job)

	copied := *job
	return &copied, nil
}

func (s *MemoryStore) Delete(_ context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[videoID]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, videoID)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
