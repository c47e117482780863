package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/edu-market/internal/domain/course"
)

// --- Mock implementations ---

// fakeTx records mutations without committing them; fakeStore merges them
// into its visible state only when the closure succeeds.
type fakeTx struct {
	prices map[int64]decimal.Decimal

	nextID   int64
	orders   map[int64]*Order
	items    []Item
	payments []Payment

	failSetTotal error
	failPayment  error
}

func (t *fakeTx) CreateOrder(_ context.Context, o *Order) error {
	t.nextID++
	o.ID = t.nextID
	t.orders[o.ID] = o
	return nil
}

func (t *fakeTx) CoursePrice(_ context.Context, courseID int64) (decimal.Decimal, error) {
	p, ok := t.prices[courseID]
	if !ok {
		return decimal.Zero, course.ErrNotFound
	}
	return p, nil
}

func (t *fakeTx) AddItem(_ context.Context, it *Item) error {
	it.ID = int64(len(t.items) + 1)
	t.items = append(t.items, *it)
	return nil
}

func (t *fakeTx) SetTotal(_ context.Context, orderID int64, total decimal.Decimal) error {
	if t.failSetTotal != nil {
		return t.failSetTotal
	}
	t.orders[orderID].TotalAmount = total
	return nil
}

func (t *fakeTx) GetOrder(_ context.Context, id int64) (*Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (t *fakeTx) CreatePayment(_ context.Context, p *Payment) error {
	if t.failPayment != nil {
		return t.failPayment
	}
	p.ID = int64(len(t.payments) + 1)
	t.payments = append(t.payments, *p)
	return nil
}

func (t *fakeTx) SetStatus(_ context.Context, orderID int64, status Status) error {
	t.orders[orderID].Status = status
	return nil
}

type fakeStore struct {
	prices map[int64]decimal.Decimal

	orders   map[int64]*Order
	items    []Item
	payments []Payment

	txCount      int
	failSetTotal error
	failPayment  error
}

func newFakeStore(prices map[int64]decimal.Decimal) *fakeStore {
	return &fakeStore{
		prices: prices,
		orders: make(map[int64]*Order),
	}
}

func (s *fakeStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	s.txCount++

	tx := &fakeTx{
		prices:       s.prices,
		nextID:       int64(len(s.orders)),
		orders:       make(map[int64]*Order, len(s.orders)),
		payments:     append([]Payment(nil), s.payments...),
		failSetTotal: s.failSetTotal,
		failPayment:  s.failPayment,
	}
	for id, o := range s.orders {
		cp := *o
		tx.orders[id] = &cp
	}
	tx.items = append(tx.items, s.items...)

	if err := fn(tx); err != nil {
		return err
	}

	s.orders = tx.orders
	s.items = tx.items
	s.payments = tx.payments
	return nil
}

func (s *fakeStore) GetOrder(_ context.Context, id int64) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *fakeStore) ListOrders(_ context.Context) ([]Order, error) {
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *fakeStore) ListItems(_ context.Context, orderID int64) ([]Item, error) {
	var out []Item
	for _, it := range s.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

// --- Helpers ---

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(store Store) *Service {
	return NewService(store, zap.NewNop())
}

// --- PlaceOrder ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	store := newFakeStore(nil)
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), 1, nil)

	require.ErrorIs(t, err, ErrEmptyItems)
	assert.Zero(t, store.txCount, "no transaction should be opened")
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	store := newFakeStore(map[int64]decimal.Decimal{10: price("19.99")})
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), 1, []LineRequest{
		{CourseID: 10, Quantity: 0},
	})

	var qerr *InvalidQuantityError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, int64(10), qerr.CourseID)
	assert.Zero(t, store.txCount, "validation should fail before storage")
}

func TestPlaceOrder_ComputesTotal(t *testing.T) {
	store := newFakeStore(map[int64]decimal.Decimal{
		10: price("19.99"),
		20: price("5.00"),
	})
	svc := newTestService(store)

	o, err := svc.PlaceOrder(context.Background(), 7, []LineRequest{
		{CourseID: 10, Quantity: 2},
		{CourseID: 20, Quantity: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.TotalAmount.Equal(price("44.98")), "got total %s", o.TotalAmount)

	items, err := store.ListItems(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Price.Equal(price("19.99")), "item price must snapshot the catalog price")
	assert.Equal(t, 2, items[0].Quantity)
}

func TestPlaceOrder_UnknownCourseRollsBack(t *testing.T) {
	store := newFakeStore(map[int64]decimal.Decimal{10: price("19.99")})
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), 1, []LineRequest{
		{CourseID: 10, Quantity: 1},
		{CourseID: 999, Quantity: 1},
	})

	var cerr *CourseNotFoundError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, int64(999), cerr.CourseID)

	orders, err := store.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders, "failed order must not be visible")
	assert.Empty(t, store.items, "no partial items may survive rollback")
}

func TestPlaceOrder_StorageErrorPropagates(t *testing.T) {
	store := newFakeStore(map[int64]decimal.Decimal{10: price("19.99")})
	store.failSetTotal = errors.Wrap(ErrConflict, "ck_orders_status_valid")
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), 1, []LineRequest{
		{CourseID: 10, Quantity: 1},
	})

	require.ErrorIs(t, err, ErrConflict)

	orders, listErr := store.ListOrders(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, orders)
}

// --- PostPayment ---

func TestPostPayment_MarksOrderPaid(t *testing.T) {
	store := newFakeStore(map[int64]decimal.Decimal{10: price("19.99")})
	svc := newTestService(store)

	o, err := svc.PlaceOrder(context.Background(), 1, []LineRequest{
		{CourseID: 10, Quantity: 1},
	})
	require.NoError(t, err)

	provider := "stripe"
	p, err := svc.PostPayment(context.Background(), PaymentRequest{
		OrderID:  o.ID,
		Amount:   price("19.99"),
		Provider: &provider,
	})

	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, p.Status)
	require.NotNil(t, p.PaidAt)
	assert.True(t, p.Amount.Equal(price("19.99")))

	got, err := store.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status, "order must flip to paid in the same transaction")
}

func TestPostPayment_UnknownOrder(t *testing.T) {
	store := newFakeStore(nil)
	svc := newTestService(store)

	_, err := svc.PostPayment(context.Background(), PaymentRequest{
		OrderID: 42,
		Amount:  price("10.00"),
	})

	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.payments)
}

func TestPostPayment_FailureLeavesOrderPending(t *testing.T) {
	store := newFakeStore(map[int64]decimal.Decimal{10: price("19.99")})
	svc := newTestService(store)

	o, err := svc.PlaceOrder(context.Background(), 1, []LineRequest{
		{CourseID: 10, Quantity: 1},
	})
	require.NoError(t, err)

	store.failPayment = errors.New("insert failed")

	_, err = svc.PostPayment(context.Background(), PaymentRequest{
		OrderID: o.ID,
		Amount:  price("19.99"),
	})
	require.Error(t, err)

	got, getErr := store.GetOrder(context.Background(), o.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPending, got.Status, "status change must roll back with the payment")
	assert.Empty(t, store.payments)
}

// --- Reads ---

func TestItems_UnknownOrder(t *testing.T) {
	store := newFakeStore(nil)
	svc := newTestService(store)

	_, err := svc.Items(context.Background(), 5)

	require.ErrorIs(t, err, ErrNotFound)
}
