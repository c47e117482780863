package importjob

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
)

// Status of an import job. The lifecycle moves strictly forward:
// pending -> processing -> {completed, failed}.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultTotalRecords is the unit-of-work count used when a job is submitted
// without one.
const DefaultTotalRecords = 100

// Sentinel errors for job operations.
var (
	ErrNotFound     = errors.New("import job not found")
	ErrEmptyJobType = errors.New("job type is required")
)

// Job is one asynchronous batch-import request. Once created, every field
// after Params is owned exclusively by the pipeline worker for this job.
type Job struct {
	ID               int64
	JobType          string
	Status           Status
	Params           json.RawMessage
	TotalRecords     int
	ProcessedRecords int
	ErrorsCount      int
	StartedAt        *time.Time
	FinishedAt       *time.Time
	CreatedAt        time.Time
}

// JobError is one durable per-row failure recorded by the pipeline.
// Append-only; never mutated after insert.
type JobError struct {
	ID           int64
	JobID        int64
	RowNumber    *int
	ErrorMessage string
	Payload      json.RawMessage
	CreatedAt    time.Time
}

// FinishResult carries everything the pipeline writes when a job reaches a
// terminal state.
type FinishResult struct {
	Status     Status
	Processed  int
	Errors     []JobError
	FinishedAt time.Time
}

// Store provides durable access to jobs and their error rows.
type Store interface {
	// Create inserts a pending job and fills its ID and CreatedAt.
	Create(ctx context.Context, job *Job) error
	// Get loads a job, or ErrNotFound.
	Get(ctx context.Context, id int64) (*Job, error)
	// List returns all jobs, newest first.
	List(ctx context.Context) ([]Job, error)
	// ListErrors returns the error rows of a job in insertion order.
	ListErrors(ctx context.Context, jobID int64) ([]JobError, error)

	// MarkProcessing transitions the job to processing and stamps StartedAt.
	// Committed on its own so observers see the transition before the
	// unit-of-work loop runs.
	MarkProcessing(ctx context.Context, id int64, startedAt time.Time) error
	// Finish atomically inserts all error rows and writes the terminal
	// status, processed count, errors count and FinishedAt.
	Finish(ctx context.Context, id int64, res FinishResult) error
	// ReaffirmCounts re-writes the processed and error counters.
	ReaffirmCounts(ctx context.Context, id int64, processed, errorsCount int) error
}
