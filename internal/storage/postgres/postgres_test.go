package postgres

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsIntegrityViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unique violation",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "uq_order_items_order_course_unique"},
			want: true,
		},
		{
			name: "foreign key violation",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "order_items_course_id_fkey"},
			want: true,
		},
		{
			name: "check violation",
			err:  &pgconn.PgError{Code: "23514", ConstraintName: "ck_orders_status_valid"},
			want: true,
		},
		{
			name: "wrapped pg error",
			err:  errors.Wrap(&pgconn.PgError{Code: "23505"}, "insert item"),
			want: true,
		},
		{
			name: "other pg error",
			err:  &pgconn.PgError{Code: "42P01"},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("connection reset"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isIntegrityViolation(tt.err))
		})
	}
}
