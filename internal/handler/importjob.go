package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/edu-market/internal/domain/importjob"
)

type submitJobRequest struct {
	JobType      string          `json:"job_type"`
	Params       json.RawMessage `json:"params"`
	TotalRecords *int            `json:"total_records"`
}

type jobResponse struct {
	ID               int64           `json:"id"`
	JobType          string          `json:"job_type"`
	Status           string          `json:"status"`
	Params           json.RawMessage `json:"params,omitempty"`
	TotalRecords     int             `json:"total_records"`
	ProcessedRecords int             `json:"processed_records"`
	ErrorsCount      int             `json:"errors_count"`
	StartedAt        *time.Time      `json:"started_at"`
	FinishedAt       *time.Time      `json:"finished_at"`
	CreatedAt        time.Time       `json:"created_at"`
}

type jobErrorResponse struct {
	ID           int64           `json:"id"`
	JobID        int64           `json:"job_id"`
	RowNumber    *int            `json:"row_number"`
	ErrorMessage string          `json:"error_message"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (h *Handler) submitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TotalRecords != nil && *req.TotalRecords < 0 {
		respondError(w, http.StatusBadRequest, "total_records must not be negative")
		return
	}

	job, err := h.jobs.Submit(r.Context(), importjob.SubmitRequest{
		JobType:      req.JobType,
		Params:       req.Params,
		TotalRecords: req.TotalRecords,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusAccepted, toJobResponse(job))
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]jobResponse, len(jobs))
	for i := range jobs {
		out[i] = toJobResponse(&jobs[i])
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toJobResponse(job))
}

func (h *Handler) listJobErrors(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	jobErrs, err := h.jobs.ListErrors(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]jobErrorResponse, len(jobErrs))
	for i, e := range jobErrs {
		out[i] = jobErrorResponse{
			ID:           e.ID,
			JobID:        e.JobID,
			RowNumber:    e.RowNumber,
			ErrorMessage: e.ErrorMessage,
			Payload:      e.Payload,
			CreatedAt:    e.CreatedAt,
		}
	}
	respond(w, http.StatusOK, out)
}

func toJobResponse(j *importjob.Job) jobResponse {
	return jobResponse{
		ID:               j.ID,
		JobType:          j.JobType,
		Status:           string(j.Status),
		Params:           j.Params,
		TotalRecords:     j.TotalRecords,
		ProcessedRecords: j.ProcessedRecords,
		ErrorsCount:      j.ErrorsCount,
		StartedAt:        j.StartedAt,
		FinishedAt:       j.FinishedAt,
		CreatedAt:        j.CreatedAt,
	}
}
