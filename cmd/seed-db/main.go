// Command seed-db applies the schema and loads demo users and the course
// catalog from db/seed/courses.json. Safe to run repeatedly: users are
// upserted by email and courses already present (by title) are skipped.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/edu-market/internal/domain/course"
	"github.com/xenking/edu-market/internal/storage/postgres"
)

type courseJSON struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status"`
}

type seedUser struct {
	Email    string
	FullName string
}

var demoUsers = []seedUser{
	{Email: "alice@example.com", FullName: "Alice Learner"},
	{Email: "bob@example.com", FullName: "Bob Student"},
	{Email: "author@example.com", FullName: "Course Author"},
}

func main() {
	var (
		databaseURL string
		coursesFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&coursesFile, "courses-file", "db/seed/courses.json", "path to courses JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, coursesFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, coursesFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedUsers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed users")
	}

	if err := seedCourses(ctx, pool, coursesFile); err != nil {
		return errors.Wrap(err, "seed courses")
	}

	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting demo users", slog.Int("count", len(demoUsers)))

	const upsertUserSQL = `INSERT INTO users (email, full_name) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name`

	for _, u := range demoUsers {
		if _, err := pool.Exec(ctx, upsertUserSQL, u.Email, u.FullName); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.Email)
		}

		slog.Info("upserted user", slog.String("email", u.Email))
	}

	return nil
}

func seedCourses(ctx context.Context, pool *pgxpool.Pool, coursesFile string) error {
	slog.Info("reading courses file", slog.String("path", coursesFile))

	data, err := os.ReadFile(coursesFile)
	if err != nil {
		return errors.Wrap(err, "read courses file")
	}

	var entries []courseJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.Wrap(err, "parse courses JSON")
	}

	repo := postgres.NewCourseRepository(pool)

	existing, err := repo.Titles(ctx)
	if err != nil {
		return errors.Wrap(err, "list existing course titles")
	}
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[t] = struct{}{}
	}

	courses := make([]course.Course, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Title]; ok {
			slog.Info("course already present, skipping", slog.String("title", e.Title))
			continue
		}
		courses = append(courses, course.Course{
			Title:       e.Title,
			Description: e.Description,
			Price:       e.Price,
			Status:      course.Status(e.Status),
		})
	}

	if len(courses) == 0 {
		slog.Info("no new courses to insert")
		return nil
	}

	n, err := repo.CopyInsert(ctx, courses)
	if err != nil {
		return errors.Wrap(err, "insert courses")
	}

	slog.Info("inserted courses", slog.Int64("count", n))

	return nil
}
