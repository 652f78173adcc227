package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

// JobStore implements store.JobStore using in-memory storage.
// This implementation is for testing and development only.
type JobStore struct {
	mu sync.RWMutex

	jobs map[uuid.UUID]*models.Job // job_id -> Job
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[uuid.UUID]*models.Job),
	}
}

// Create inserts a new job row.
func (s *JobStore) Create(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clone to avoid external modifications
	clone := *job
	s.jobs[job.JobID] = &clone

	return nil
}

// Count returns the number of job rows. Test helper.
func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.jobs)
}

// GetForProject retrieves a job scoped to a project.
func (s *JobStore) GetForProject(ctx context.Context, jobID, projectID uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists || job.ProjectID != projectID {
		return nil, store.ErrJobNotFound
	}

	clone := *job
	return &clone, nil
}
