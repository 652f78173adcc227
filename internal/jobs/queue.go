// Package jobs records asynchronous work items. Execution belongs to an
// external worker; this queue only creates rows and signals that work
// exists.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

// defaultMaxAttempts is the retry budget handed to the external worker.
const defaultMaxAttempts = 3

// Notifier is the detached side-channel poked after a successful enqueue.
// Its outcome is discarded by design.
type Notifier interface {
	Fire(ctx context.Context)
}

// Queue enqueues jobs and reports their status. Writes go through the
// elevated job store: the caller's authorization to request the job must
// already have been checked before Enqueue runs.
type Queue struct {
	jobs     store.JobStore
	notifier Notifier
}

// New creates a job queue. jobs must be the elevated store.
func New(jobs store.JobStore, notifier Notifier) *Queue {
	return &Queue{jobs: jobs, notifier: notifier}
}

// Enqueue records a job and pokes the notifier. The job is durably
// enqueued once the insert succeeds; the notification runs detached from
// the request and cannot fail the caller.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload []byte, projectID uuid.UUID) (uuid.UUID, error) {
	if jobType == "" {
		return uuid.Nil, fmt.Errorf("job type is required")
	}

	job := &models.Job{
		JobID:       uuid.Must(uuid.NewV7()),
		Type:        jobType,
		Payload:     payload,
		ProjectID:   projectID,
		Status:      models.JobPending,
		Attempts:    0,
		MaxAttempts: defaultMaxAttempts,
		CreatedAt:   time.Now(),
	}

	if err := q.jobs.Create(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	// Detached: may still be in flight after the caller's response is
	// sent, and its outcome is never awaited.
	go q.notifier.Fire(context.WithoutCancel(ctx))

	return job.JobID, nil
}

// GetStatus returns a job scoped to its project. A job under a different
// project reads as store.ErrJobNotFound, even for a valid job ID.
func (q *Queue) GetStatus(ctx context.Context, jobID, projectID uuid.UUID) (*models.Job, error) {
	return q.jobs.GetForProject(ctx, jobID, projectID)
}
