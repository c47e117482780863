package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// PaymentStatus of a recorded payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Sentinel errors for order operations.
var (
	ErrEmptyItems = errors.New("order must contain at least one item")
	ErrNotFound   = errors.New("order not found")

	// ErrConflict is returned when a write violates a ledger constraint
	// (uniqueness, foreign key, check) at commit time.
	ErrConflict = errors.New("order conflicts with existing ledger state")
)

// CourseNotFoundError indicates a requested line references a course that
// does not exist in the catalog.
type CourseNotFoundError struct {
	CourseID int64
}

func (e *CourseNotFoundError) Error() string {
	return fmt.Sprintf("course %d not found", e.CourseID)
}

// InvalidQuantityError indicates a line item has a quantity below 1.
type InvalidQuantityError struct {
	CourseID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for course %d", e.CourseID)
}

// Order is a user's purchase intent for one or more courses. TotalAmount is
// server-computed and always equals the sum of price*quantity over the
// committed items.
type Order struct {
	ID          int64
	UserID      int64
	Status      Status
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
}

// Item is one priced, quantified course within an order. Price is the
// catalog price snapshotted at purchase time; immutable once committed.
type Item struct {
	ID       int64
	OrderID  int64
	CourseID int64
	Quantity int
	Price    decimal.Decimal
}

// Payment records a settlement against an order.
type Payment struct {
	ID            int64
	OrderID       int64
	Amount        decimal.Decimal
	Status        PaymentStatus
	Provider      *string
	TransactionID *string
	PaidAt        *time.Time
	CreatedAt     time.Time
}

// LineRequest is one requested line of a purchase.
type LineRequest struct {
	CourseID int64
	Quantity int
}

// Tx is the set of operations available inside one atomic ledger
// transaction. Implementations roll the whole transaction back when any
// operation, or the closure driving it, returns an error.
type Tx interface {
	// CreateOrder inserts the order and fills its ID and CreatedAt.
	CreateOrder(ctx context.Context, o *Order) error
	// CoursePrice resolves the current catalog price of a course.
	// Returns course.ErrNotFound when the course does not exist.
	CoursePrice(ctx context.Context, courseID int64) (decimal.Decimal, error)
	// AddItem inserts a line item for an order created in this transaction.
	AddItem(ctx context.Context, it *Item) error
	// SetTotal writes the accumulated total onto the order.
	SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
	// GetOrder loads an order, or ErrNotFound.
	GetOrder(ctx context.Context, id int64) (*Order, error)
	// CreatePayment inserts the payment and fills its ID and CreatedAt.
	CreatePayment(ctx context.Context, p *Payment) error
	// SetStatus transitions the order's status.
	SetStatus(ctx context.Context, orderID int64, status Status) error
}

// Store provides transactional and read access to orders.
type Store interface {
	// WithinTx runs fn inside one atomic transaction. The transaction is
	// committed when fn returns nil and rolled back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	ListItems(ctx context.Context, orderID int64) ([]Item, error)
}
