package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/edu-market/internal/domain/course"
	"github.com/xenking/edu-market/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (user_id, status, total_amount)
		VALUES ($1, $2, $3) RETURNING id, created_at`

	coursePriceSQL = `SELECT price FROM courses WHERE id = $1`

	addOrderItemSQL = `INSERT INTO order_items (order_id, course_id, quantity, price)
		VALUES ($1, $2, $3, $4) RETURNING id`

	setOrderTotalSQL = `UPDATE orders SET total_amount = $2 WHERE id = $1`

	getOrderSQL = `SELECT id, user_id, status, total_amount, created_at
		FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT id, user_id, status, total_amount, created_at
		FROM orders ORDER BY id`

	listOrderItemsSQL = `SELECT id, order_id, course_id, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	createPaymentSQL = `INSERT INTO payments (order_id, amount, status, provider, transaction_id, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`

	setOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// WithinTx runs fn inside one database transaction. Constraint violations
// raised by any statement, or at commit, surface as order.ErrConflict; the
// transaction is rolled back on every error path so no partial state is
// ever visible.
func (s *OrderStore) WithinTx(ctx context.Context, fn func(tx order.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&orderTx{tx: tx}); err != nil {
		if isIntegrityViolation(err) {
			return errors.Wrap(order.ErrConflict, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isIntegrityViolation(err) {
			return errors.Wrap(order.ErrConflict, err.Error())
		}
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// GetOrder loads a single order.
func (s *OrderStore) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, s.pool, id)
}

// ListOrders returns all orders.
func (s *OrderStore) ListOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListItems returns the line items of an order.
func (s *OrderStore) ListItems(ctx context.Context, orderID int64) ([]order.Item, error) {
	rows, err := s.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing items of order %d", orderID)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

// querier covers both pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getOrder(ctx context.Context, q querier, id int64) (*order.Order, error) {
	var o order.Order
	err := q.QueryRow(ctx, getOrderSQL, id).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %d", id)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ID, &it.OrderID, &it.CourseID, &it.Quantity, &it.Price)
	return it, err
}

// orderTx adapts one pgx transaction to the order.Tx operations.
type orderTx struct {
	tx pgx.Tx
}

var _ order.Tx = (*orderTx)(nil)

func (t *orderTx) CreateOrder(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, createOrderSQL, o.UserID, o.Status, o.TotalAmount).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "inserting order")
	}
	return nil
}

func (t *orderTx) CoursePrice(ctx context.Context, courseID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := t.tx.QueryRow(ctx, coursePriceSQL, courseID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, course.ErrNotFound
		}
		return decimal.Zero, errors.Wrapf(err, "pricing course %d", courseID)
	}
	return price, nil
}

func (t *orderTx) AddItem(ctx context.Context, it *order.Item) error {
	err := t.tx.QueryRow(ctx, addOrderItemSQL, it.OrderID, it.CourseID, it.Quantity, it.Price).
		Scan(&it.ID)
	if err != nil {
		return errors.Wrap(err, "inserting order item")
	}
	return nil
}

func (t *orderTx) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	if _, err := t.tx.Exec(ctx, setOrderTotalSQL, orderID, total); err != nil {
		return errors.Wrapf(err, "setting total of order %d", orderID)
	}
	return nil
}

func (t *orderTx) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, t.tx, id)
}

func (t *orderTx) CreatePayment(ctx context.Context, p *order.Payment) error {
	err := t.tx.QueryRow(ctx, createPaymentSQL,
		p.OrderID, p.Amount, p.Status, p.Provider, p.TransactionID, p.PaidAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "inserting payment")
	}
	return nil
}

func (t *orderTx) SetStatus(ctx context.Context, orderID int64, status order.Status) error {
	if _, err := t.tx.Exec(ctx, setOrderStatusSQL, orderID, status); err != nil {
		return errors.Wrapf(err, "setting status of order %d", orderID)
	}
	return nil
}
