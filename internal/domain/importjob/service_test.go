package importjob

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingScheduler struct {
	enqueued []int64
	err      error
}

func (s *recordingScheduler) Enqueue(_ context.Context, jobID int64) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, jobID)
	return nil
}

func TestSubmit_EmptyJobType(t *testing.T) {
	store := newMemStore()
	sched := &recordingScheduler{}
	svc := NewService(store, sched, zap.NewNop())

	_, err := svc.Submit(context.Background(), SubmitRequest{JobType: ""})

	require.ErrorIs(t, err, ErrEmptyJobType)
	assert.Empty(t, sched.enqueued)
}

func TestSubmit_DefaultsTotalRecords(t *testing.T) {
	store := newMemStore()
	sched := &recordingScheduler{}
	svc := NewService(store, sched, zap.NewNop())

	job, err := svc.Submit(context.Background(), SubmitRequest{JobType: "courses"})

	require.NoError(t, err)
	assert.Equal(t, DefaultTotalRecords, job.TotalRecords)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, []int64{job.ID}, sched.enqueued)
}

func TestSubmit_ZeroTotalRecordsUsesDefault(t *testing.T) {
	store := newMemStore()
	sched := &recordingScheduler{}
	svc := NewService(store, sched, zap.NewNop())

	zero := 0
	job, err := svc.Submit(context.Background(), SubmitRequest{
		JobType:      "courses",
		TotalRecords: &zero,
	})

	require.NoError(t, err)
	assert.Equal(t, DefaultTotalRecords, job.TotalRecords)
}

func TestSubmit_KeepsExplicitTotalAndParams(t *testing.T) {
	store := newMemStore()
	sched := &recordingScheduler{}
	svc := NewService(store, sched, zap.NewNop())

	total := 250
	params := json.RawMessage(`{"source": "s3://bucket/dump.csv.gz"}`)
	job, err := svc.Submit(context.Background(), SubmitRequest{
		JobType:      "courses",
		Params:       params,
		TotalRecords: &total,
	})

	require.NoError(t, err)
	assert.Equal(t, 250, job.TotalRecords)
	assert.JSONEq(t, string(params), string(job.Params))
}

func TestSubmit_SchedulerFailureKeepsJobPending(t *testing.T) {
	store := newMemStore()
	sched := &recordingScheduler{err: errors.New("queue full")}
	svc := NewService(store, sched, zap.NewNop())

	job, err := svc.Submit(context.Background(), SubmitRequest{JobType: "courses"})

	require.NoError(t, err, "enqueue failure must not fail the submission")

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestListErrors_UnknownJob(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &recordingScheduler{}, zap.NewNop())

	_, err := svc.ListErrors(context.Background(), 77)

	require.ErrorIs(t, err, ErrNotFound)
}

func TestListErrors_ReturnsRows(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &recordingScheduler{}, zap.NewNop())

	job := &Job{JobType: "courses", Status: StatusPending, TotalRecords: 100}
	require.NoError(t, store.Create(context.Background(), job))

	row := 1
	require.NoError(t, store.Finish(context.Background(), job.ID, FinishResult{
		Status:    StatusFailed,
		Processed: 100,
		Errors: []JobError{{
			JobID:        job.ID,
			RowNumber:    &row,
			ErrorMessage: "Sample error #1",
			Payload:      json.RawMessage(`{"row": 1}`),
		}},
	}))

	errs, err := svc.ListErrors(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "Sample error #1", errs[0].ErrorMessage)
}
