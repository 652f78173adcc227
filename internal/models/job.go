package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a queued job. The queue only ever
// creates jobs in JobPending; all later transitions are owned by the
// external worker and move strictly forward.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job is a unit of asynchronous work recorded by the queue and executed
// by an external worker.
type Job struct {
	JobID        uuid.UUID // UUIDv7
	Type         string
	Payload      []byte // JSON document
	ProjectID    uuid.UUID
	Status       JobStatus
	Attempts     int
	MaxAttempts  int
	Result       []byte // JSON document, set by the worker
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}
