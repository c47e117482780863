package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/edu-market/internal/domain/importjob"
)

const (
	createJobSQL = `INSERT INTO import_jobs (job_type, status, params, total_records, processed_records, errors_count)
		VALUES ($1, $2, $3, $4, 0, 0) RETURNING id, created_at`

	getJobSQL = `SELECT id, job_type, status, params, total_records, processed_records, errors_count,
			started_at, finished_at, created_at
		FROM import_jobs WHERE id = $1`

	listJobsSQL = `SELECT id, job_type, status, params, total_records, processed_records, errors_count,
			started_at, finished_at, created_at
		FROM import_jobs ORDER BY created_at DESC`

	listJobErrorsSQL = `SELECT id, job_id, row_number, error_message, payload, created_at
		FROM import_job_errors WHERE job_id = $1 ORDER BY id`

	markJobProcessingSQL = `UPDATE import_jobs SET status = $2, started_at = $3 WHERE id = $1`

	insertJobErrorSQL = `INSERT INTO import_job_errors (job_id, row_number, error_message, payload)
		VALUES ($1, $2, $3, $4)`

	finishJobSQL = `UPDATE import_jobs
		SET status = $2, processed_records = $3, errors_count = $4, finished_at = $5
		WHERE id = $1`

	reaffirmJobCountsSQL = `UPDATE import_jobs SET processed_records = $2, errors_count = $3 WHERE id = $1`
)

var _ importjob.Store = (*ImportJobStore)(nil)

// ImportJobStore implements importjob.Store backed by PostgreSQL.
type ImportJobStore struct {
	pool *pgxpool.Pool
}

// NewImportJobStore returns an ImportJobStore that uses the given pool.
func NewImportJobStore(pool *pgxpool.Pool) *ImportJobStore {
	return &ImportJobStore{pool: pool}
}

// Create inserts a pending job with zeroed counters.
func (s *ImportJobStore) Create(ctx context.Context, job *importjob.Job) error {
	var params any
	if len(job.Params) > 0 {
		params = []byte(job.Params)
	}
	err := s.pool.QueryRow(ctx, createJobSQL,
		job.JobType, job.Status, params, job.TotalRecords,
	).Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "inserting import job")
	}
	return nil
}

// Get loads a job by id.
func (s *ImportJobStore) Get(ctx context.Context, id int64) (*importjob.Job, error) {
	rows, err := s.pool.Query(ctx, getJobSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting import job %d", id)
	}

	job, err := pgx.CollectExactlyOneRow(rows, scanImportJob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, importjob.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting import job %d", id)
	}
	return &job, nil
}

// List returns all jobs, newest first.
func (s *ImportJobStore) List(ctx context.Context) ([]importjob.Job, error) {
	rows, err := s.pool.Query(ctx, listJobsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing import jobs")
	}
	return pgx.CollectRows(rows, scanImportJob)
}

// ListErrors returns a job's error rows in insertion order.
func (s *ImportJobStore) ListErrors(ctx context.Context, jobID int64) ([]importjob.JobError, error) {
	rows, err := s.pool.Query(ctx, listJobErrorsSQL, jobID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing errors of job %d", jobID)
	}
	return pgx.CollectRows(rows, scanImportJobError)
}

// MarkProcessing commits the pending -> processing transition on its own so
// pollers can observe it before the unit-of-work loop runs.
func (s *ImportJobStore) MarkProcessing(ctx context.Context, id int64, startedAt time.Time) error {
	if _, err := s.pool.Exec(ctx, markJobProcessingSQL, id, importjob.StatusProcessing, startedAt); err != nil {
		return errors.Wrapf(err, "marking job %d processing", id)
	}
	return nil
}

// Finish inserts all error rows and the terminal status update in one
// transaction.
func (s *ImportJobStore) Finish(ctx context.Context, id int64, res importjob.FinishResult) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if len(res.Errors) > 0 {
		batch := &pgx.Batch{}
		for _, e := range res.Errors {
			var payload any
			if len(e.Payload) > 0 {
				payload = []byte(e.Payload)
			}
			batch.Queue(insertJobErrorSQL, id, e.RowNumber, e.ErrorMessage, payload)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "inserting %d error rows", len(res.Errors))
		}
	}

	_, err = tx.Exec(ctx, finishJobSQL, id, res.Status, res.Processed, len(res.Errors), res.FinishedAt)
	if err != nil {
		return errors.Wrapf(err, "finishing job %d", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// ReaffirmCounts re-writes the counters of a finished job.
func (s *ImportJobStore) ReaffirmCounts(ctx context.Context, id int64, processed, errorsCount int) error {
	if _, err := s.pool.Exec(ctx, reaffirmJobCountsSQL, id, processed, errorsCount); err != nil {
		return errors.Wrapf(err, "reaffirming counts of job %d", id)
	}
	return nil
}

func scanImportJob(row pgx.CollectableRow) (importjob.Job, error) {
	var (
		j         importjob.Job
		params    []byte
		total     *int
		processed *int
		errCount  *int
	)
	err := row.Scan(&j.ID, &j.JobType, &j.Status, &params, &total, &processed, &errCount,
		&j.StartedAt, &j.FinishedAt, &j.CreatedAt)
	if err != nil {
		return j, err
	}
	j.Params = params
	if total != nil {
		j.TotalRecords = *total
	}
	if processed != nil {
		j.ProcessedRecords = *processed
	}
	if errCount != nil {
		j.ErrorsCount = *errCount
	}
	return j, nil
}

func scanImportJobError(row pgx.CollectableRow) (importjob.JobError, error) {
	var (
		e       importjob.JobError
		payload []byte
	)
	err := row.Scan(&e.ID, &e.JobID, &e.RowNumber, &e.ErrorMessage, &payload, &e.CreatedAt)
	e.Payload = payload
	return e, err
}
