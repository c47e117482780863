package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/edu-market/internal/domain/course"
	"github.com/xenking/edu-market/internal/domain/importjob"
	"github.com/xenking/edu-market/internal/domain/order"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, errorResponse{Code: status, Message: msg})
}

// respondDomainError maps domain errors onto the HTTP error taxonomy:
// validation failures to 400, missing references to 404, storage conflicts
// to a generic 400. Anything else is a 500 with the detail kept out of the
// response body.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, importjob.ErrEmptyJobType):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, course.ErrNotFound),
		errors.Is(err, importjob.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrConflict):
		// The violated constraint stays server-side.
		respondError(w, http.StatusBadRequest, "request conflicts with existing state")

	default:
		var (
			iqErr  *order.InvalidQuantityError
			cnfErr *order.CourseNotFoundError
		)
		if errors.As(err, &iqErr) {
			respondError(w, http.StatusBadRequest, iqErr.Error())
			return
		}
		if errors.As(err, &cnfErr) {
			respondError(w, http.StatusNotFound, cnfErr.Error())
			return
		}

		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
