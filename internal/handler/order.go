package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/edu-market/internal/domain/order"
)

type orderItemRequest struct {
	CourseID int64 `json:"course_id"`
	Quantity *int  `json:"quantity"`
}

type placeOrderRequest struct {
	UserID int64              `json:"user_id"`
	Items  []orderItemRequest `json:"items"`
}

type orderResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type orderItemResponse struct {
	ID       int64   `json:"id"`
	OrderID  int64   `json:"order_id"`
	CourseID int64   `json:"course_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type paymentRequest struct {
	OrderID       int64           `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Provider      *string         `json:"provider"`
	TransactionID *string         `json:"transaction_id"`
}

type paymentResponse struct {
	ID            int64      `json:"id"`
	OrderID       int64      `json:"order_id"`
	Amount        float64    `json:"amount"`
	Status        string     `json:"status"`
	Provider      *string    `json:"provider"`
	TransactionID *string    `json:"transaction_id"`
	PaidAt        *time.Time `json:"paid_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]order.LineRequest, len(req.Items))
	for i, it := range req.Items {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		lines[i] = order.LineRequest{CourseID: it.CourseID, Quantity: qty}
	}

	o, err := h.orders.PlaceOrder(r.Context(), req.UserID, lines)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]orderResponse, len(list))
	for i := range list {
		out[i] = toOrderResponse(&list[i])
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	items, err := h.orders.Items(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	type orderDetailResponse struct {
		orderResponse
		Items []orderItemResponse `json:"items"`
	}
	detail := orderDetailResponse{
		orderResponse: toOrderResponse(o),
		Items:         make([]orderItemResponse, len(items)),
	}
	for i, it := range items {
		detail.Items[i] = orderItemResponse{
			ID:       it.ID,
			OrderID:  it.OrderID,
			CourseID: it.CourseID,
			Quantity: it.Quantity,
			Price:    it.Price.InexactFloat64(),
		}
	}
	respond(w, http.StatusOK, detail)
}

func (h *Handler) postPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount.IsNegative() {
		respondError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	p, err := h.orders.PostPayment(r.Context(), order.PaymentRequest{
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		Provider:      req.Provider,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount.InexactFloat64(),
		Status:        string(p.Status),
		Provider:      p.Provider,
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	})
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.InexactFloat64(),
		CreatedAt:   o.CreatedAt,
	}
}
