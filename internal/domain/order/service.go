package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/edu-market/internal/domain/course"
)

// Service encapsulates the order transaction engine and the payment poster.
// All mutations run inside a single ledger transaction each.
type Service struct {
	store Store
	lg    *zap.Logger
}

// NewService creates an order Service backed by the given store.
func NewService(store Store, lg *zap.Logger) *Service {
	return &Service{
		store: store,
		lg:    lg.Named("order"),
	}
}

// PlaceOrder turns a purchase request into a committed order with a verified
// total, or rejects it atomically. Each line snapshots the course's current
// catalog price inside the transaction; a missing course rolls the whole
// order back, so no partial or empty order is ever visible.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, lines []LineRequest) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyItems
	}
	for _, ln := range lines {
		if ln.Quantity < 1 {
			return nil, &InvalidQuantityError{CourseID: ln.CourseID}
		}
	}

	var placed *Order
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		o := &Order{
			UserID:      userID,
			Status:      StatusPending,
			TotalAmount: decimal.Zero,
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		total := decimal.Zero
		for _, ln := range lines {
			price, err := tx.CoursePrice(ctx, ln.CourseID)
			if err != nil {
				if errors.Is(err, course.ErrNotFound) {
					return &CourseNotFoundError{CourseID: ln.CourseID}
				}
				return errors.Wrapf(err, "resolve course %d", ln.CourseID)
			}

			it := &Item{
				OrderID:  o.ID,
				CourseID: ln.CourseID,
				Quantity: ln.Quantity,
				Price:    price,
			}
			if err := tx.AddItem(ctx, it); err != nil {
				return errors.Wrapf(err, "add item for course %d", ln.CourseID)
			}

			total = total.Add(price.Mul(decimal.NewFromInt(int64(ln.Quantity))))
		}

		total = total.Round(2)
		if err := tx.SetTotal(ctx, o.ID, total); err != nil {
			return errors.Wrap(err, "set total")
		}

		o.TotalAmount = total
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.lg.Info("order placed",
		zap.Int64("order_id", placed.ID),
		zap.Int64("user_id", userID),
		zap.Int("items", len(lines)),
		zap.String("total", placed.TotalAmount.String()),
	)
	return placed, nil
}

// PaymentRequest holds the input for posting a payment against an order.
type PaymentRequest struct {
	OrderID       int64
	Amount        decimal.Decimal
	Provider      *string
	TransactionID *string
}

// PostPayment records a payment with status "paid" and, in the same
// transaction, marks the owning order paid. The amount is not reconciled
// against the order total and partial payments are not modeled.
func (s *Service) PostPayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var posted *Payment
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.GetOrder(ctx, req.OrderID); err != nil {
			return err
		}

		now := time.Now().UTC()
		p := &Payment{
			OrderID:       req.OrderID,
			Amount:        req.Amount.Round(2),
			Status:        PaymentPaid,
			Provider:      req.Provider,
			TransactionID: req.TransactionID,
			PaidAt:        &now,
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return errors.Wrap(err, "create payment")
		}
		if err := tx.SetStatus(ctx, req.OrderID, StatusPaid); err != nil {
			return errors.Wrapf(err, "mark order %d paid", req.OrderID)
		}

		posted = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.lg.Info("payment posted",
		zap.Int64("payment_id", posted.ID),
		zap.Int64("order_id", req.OrderID),
		zap.String("amount", posted.Amount.String()),
	)
	return posted, nil
}

// Get loads a single order.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.store.GetOrder(ctx, id)
}

// List returns all orders.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.store.ListOrders(ctx)
}

// Items returns the committed line items of an order.
func (s *Service) Items(ctx context.Context, orderID int64) ([]Item, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx, orderID)
}
