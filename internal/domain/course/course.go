package course

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested course does not exist.
var ErrNotFound = errors.New("course not found")

// Status of a course in the catalog.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Course is a catalog entry available for purchase. Price is the live catalog
// price; orders snapshot it at purchase time.
type Course struct {
	ID          int64
	Title       string
	Description string
	Price       decimal.Decimal
	Status      Status
	AuthorID    *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines read operations for the course catalog.
type Repository interface {
	List(ctx context.Context) ([]Course, error)
	GetByID(ctx context.Context, id int64) (*Course, error)
}
