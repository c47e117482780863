package importjob

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Scheduler hands an accepted job over to a decoupled execution context.
type Scheduler interface {
	Enqueue(ctx context.Context, jobID int64) error
}

// SubmitRequest holds the input for enqueueing an import job.
type SubmitRequest struct {
	JobType      string
	Params       json.RawMessage
	TotalRecords *int
}

// Service accepts import jobs and exposes read-only projections of their
// state. Processing itself happens in the Runner.
type Service struct {
	store Store
	sched Scheduler
	lg    *zap.Logger
}

// NewService creates an import job Service.
func NewService(store Store, sched Scheduler, lg *zap.Logger) *Service {
	return &Service{
		store: store,
		sched: sched,
		lg:    lg.Named("importjob"),
	}
}

// Submit persists a pending job and schedules its processing. It returns as
// soon as the job row is durable; the pipeline advances it out-of-band.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Job, error) {
	if req.JobType == "" {
		return nil, ErrEmptyJobType
	}

	total := DefaultTotalRecords
	if req.TotalRecords != nil && *req.TotalRecords > 0 {
		total = *req.TotalRecords
	}

	job := &Job{
		JobType:      req.JobType,
		Status:       StatusPending,
		Params:       req.Params,
		TotalRecords: total,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, errors.Wrap(err, "create job")
	}

	if err := s.sched.Enqueue(ctx, job.ID); err != nil {
		// The row is already durable; it stays pending until a future
		// scheduling mechanism picks it up.
		s.lg.Warn("job accepted but not scheduled",
			zap.Int64("job_id", job.ID),
			zap.Error(err),
		)
		return job, nil
	}

	s.lg.Info("job submitted",
		zap.Int64("job_id", job.ID),
		zap.String("job_type", job.JobType),
		zap.Int("total_records", job.TotalRecords),
	)
	return job, nil
}

// Get loads a single job.
func (s *Service) Get(ctx context.Context, id int64) (*Job, error) {
	return s.store.Get(ctx, id)
}

// List returns all jobs, newest first.
func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.store.List(ctx)
}

// ListErrors returns the error rows of a job, or ErrNotFound when the job
// itself does not exist.
func (s *Service) ListErrors(ctx context.Context, jobID int64) ([]JobError, error) {
	if _, err := s.store.Get(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.ListErrors(ctx, jobID)
}
