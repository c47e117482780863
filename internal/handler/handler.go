// Package handler exposes the HTTP API: catalog reads, order placement,
// payment posting and the batch-import surface.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/edu-market/internal/domain/course"
	"github.com/xenking/edu-market/internal/domain/importjob"
	"github.com/xenking/edu-market/internal/domain/order"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	courses course.Repository
	orders  *order.Service
	jobs    *importjob.Service
}

// New constructs a Handler with the required domain dependencies.
func New(courses course.Repository, orders *order.Service, jobs *importjob.Service) *Handler {
	return &Handler{
		courses: courses,
		orders:  orders,
		jobs:    jobs,
	}
}

// Routes returns the API router mounted under /api.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/courses", h.listCourses)
	r.Get("/courses/{courseID}", h.getCourse)

	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/payments", h.postPayment)

	r.Post("/batch-import", h.submitJob)
	r.Get("/batch-import", h.listJobs)
	r.Get("/batch-import/{jobID}", h.getJob)
	r.Get("/batch-import/{jobID}/errors", h.listJobErrors)

	return r
}
