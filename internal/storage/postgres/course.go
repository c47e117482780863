package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/edu-market/internal/domain/course"
)

const (
	listCoursesSQL = `SELECT id, title, description, price, status, author_id, created_at, updated_at
		FROM courses ORDER BY id`

	getCourseByIDSQL = `SELECT id, title, description, price, status, author_id, created_at, updated_at
		FROM courses WHERE id = $1`

	listCourseTitlesSQL = `SELECT title FROM courses`
)

var _ course.Repository = (*CourseRepository)(nil)

// CourseRepository implements course.Repository backed by PostgreSQL.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository returns a CourseRepository that uses the given pool.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// List returns all courses in the catalog ordered by ID.
func (r *CourseRepository) List(ctx context.Context) ([]course.Course, error) {
	rows, err := r.pool.Query(ctx, listCoursesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing courses")
	}
	return pgx.CollectRows(rows, scanCourse)
}

// GetByID returns a single course by its identifier.
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*course.Course, error) {
	rows, err := r.pool.Query(ctx, getCourseByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting course %d", id)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCourse)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, course.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting course %d", id)
	}
	return &c, nil
}

// Titles returns every course title. Used by the bulk ingest tool to seed
// its duplicate filter.
func (r *CourseRepository) Titles(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCourseTitlesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing course titles")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var t string
		err := row.Scan(&t)
		return t, err
	})
}

// CopyInsert bulk-inserts courses using the COPY protocol and returns the
// number of inserted rows.
func (r *CourseRepository) CopyInsert(ctx context.Context, courses []course.Course) (int64, error) {
	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"courses"},
		[]string{"title", "description", "price", "status"},
		pgx.CopyFromSlice(len(courses), func(i int) ([]any, error) {
			c := courses[i]
			return []any{c.Title, c.Description, c.Price, c.Status}, nil
		}),
	)
	if err != nil {
		return 0, errors.Wrap(err, "copying courses")
	}
	return n, nil
}

func scanCourse(row pgx.CollectableRow) (course.Course, error) {
	var (
		c    course.Course
		desc *string
	)
	err := row.Scan(&c.ID, &c.Title, &desc, &c.Price, &c.Status, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt)
	if desc != nil {
		c.Description = *desc
	}
	return c, err
}
