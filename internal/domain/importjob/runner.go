package importjob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner executes import jobs outside the request/response cycle. Submitted
// job ids are buffered on a channel and consumed by a fixed pool of workers,
// each processing runs against the runner's own storage session and is not
// bound to the lifetime of the originating request.
//
// At-most-one scheduling per job id is assumed: the enqueue path is the only
// producer. A crash mid-processing leaves the job in "processing" with no
// automatic recovery.
type Runner struct {
	store     Store
	validator UnitValidator
	lg        *zap.Logger
	queue     chan int64

	workers int
	g       *errgroup.Group
}

// NewRunner creates a Runner with the given worker count and queue capacity.
func NewRunner(store Store, validator UnitValidator, lg *zap.Logger, workers, queueSize int) *Runner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Runner{
		store:     store,
		validator: validator,
		lg:        lg.Named("importjob"),
		queue:     make(chan int64, queueSize),
		workers:   workers,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled; call
// Wait to block until they have drained.
func (r *Runner) Start(ctx context.Context) {
	r.g, ctx = errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		r.g.Go(func() error {
			return r.work(ctx)
		})
	}
	r.lg.Info("runner started", zap.Int("workers", r.workers))
}

// Wait blocks until all workers have exited.
func (r *Runner) Wait() error {
	if r.g == nil {
		return nil
	}
	return r.g.Wait()
}

// Enqueue schedules a job for processing. It blocks while the queue is full
// and fails only when ctx is cancelled first; the job row stays pending in
// that case.
func (r *Runner) Enqueue(ctx context.Context, jobID int64) error {
	select {
	case r.queue <- jobID:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "enqueue job %d", jobID)
	}
}

func (r *Runner) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-r.queue:
			if err := r.process(ctx, id); err != nil {
				// The job is left in whatever state the failed write
				// allowed; there is no retry.
				r.lg.Error("job processing failed",
					zap.Int64("job_id", id),
					zap.Error(err),
				)
			}
		}
	}
}

// process runs one job through its full lifecycle.
func (r *Runner) process(ctx context.Context, id int64) error {
	job, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Deleted concurrently; nothing to do.
			return nil
		}
		return errors.Wrap(err, "load job")
	}

	started := time.Now().UTC()
	if err := r.store.MarkProcessing(ctx, id, started); err != nil {
		return errors.Wrap(err, "mark processing")
	}
	job.Status = StatusProcessing
	job.StartedAt = &started

	if job.TotalRecords <= 0 {
		job.TotalRecords = DefaultTotalRecords
	}

	var jobErrs []JobError
	for row := 1; row <= job.TotalRecords; row++ {
		if verr := r.validator.ValidateUnit(ctx, job, row); verr != nil {
			n := row
			jobErrs = append(jobErrs, JobError{
				JobID:        id,
				RowNumber:    &n,
				ErrorMessage: verr.Error(),
				Payload:      json.RawMessage(fmt.Sprintf(`{"row": %d}`, row)),
			})
		}
	}

	status := StatusCompleted
	if len(jobErrs) > 0 {
		status = StatusFailed
	}

	res := FinishResult{
		Status:     status,
		Processed:  job.TotalRecords,
		Errors:     jobErrs,
		FinishedAt: time.Now().UTC(),
	}
	if err := r.store.Finish(ctx, id, res); err != nil {
		return errors.Wrap(err, "finish job")
	}

	// Re-write the counters when errors were recorded, guarding against a
	// partial earlier write.
	if len(jobErrs) > 0 {
		if err := r.store.ReaffirmCounts(ctx, id, job.TotalRecords, len(jobErrs)); err != nil {
			return errors.Wrap(err, "reaffirm counts")
		}
	}

	r.lg.Info("job finished",
		zap.Int64("job_id", id),
		zap.String("status", string(status)),
		zap.Int("processed", job.TotalRecords),
		zap.Int("errors", len(jobErrs)),
	)
	return nil
}
