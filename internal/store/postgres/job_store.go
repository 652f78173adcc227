package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

// JobStore implements store.JobStore using PostgreSQL. The queue inserts
// rows in pending state; the external worker owns every later transition.
type JobStore struct {
	pool *pgxpool.Pool
}

// NewJobStore creates a new PostgreSQL-backed job store.
func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

// Create inserts a new job row.
func (s *JobStore) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, type, payload, project_id, status,
			attempts, max_attempts, error_message, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	// A nil payload would encode as SQL NULL, and the column default does
	// not apply to an explicit NULL.
	payload := job.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	_, err := s.pool.Exec(ctx, query,
		job.JobID,
		job.Type,
		payload,
		job.ProjectID,
		job.Status,
		job.Attempts,
		job.MaxAttempts,
		job.ErrorMessage,
		job.CreatedAt,
	)

	if err != nil {
		return mapPostgresError(err)
	}

	log.Info().
		Str("job_id", job.JobID.String()).
		Str("type", job.Type).
		Str("project_id", job.ProjectID.String()).
		Msg("Enqueued job")

	return nil
}

// GetForProject retrieves a job scoped to a project. A valid job ID under a
// different project still returns store.ErrJobNotFound.
func (s *JobStore) GetForProject(ctx context.Context, jobID, projectID uuid.UUID) (*models.Job, error) {
	query := `
		SELECT job_id, type, payload, project_id, status,
		       attempts, max_attempts, result, error_message,
		       created_at, started_at, completed_at
		FROM jobs
		WHERE job_id = $1 AND project_id = $2
	`

	var job models.Job
	err := s.pool.QueryRow(ctx, query, jobID, projectID).Scan(
		&job.JobID,
		&job.Type,
		&job.Payload,
		&job.ProjectID,
		&job.Status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.Result,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", mapPostgresError(err))
	}

	return &job, nil
}
