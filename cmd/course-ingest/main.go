// Command course-ingest bulk-loads a course catalog from gzip-compressed CSV
// dumps. Rows are title,description,price,status. Files are parsed
// concurrently; titles already present in the database (or seen earlier in
// the run) are skipped via a bloom filter, and surviving rows are written in
// batches using the COPY protocol.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/edu-market/internal/domain/course"
	"github.com/xenking/edu-market/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	maxTitleLen   = 200
	progressEvery = 100_000
)

var validStatuses = map[string]struct{}{
	string(course.StatusDraft):     {},
	string(course.StatusPublished): {},
	string(course.StatusArchived):  {},
}

func main() {
	var (
		dataDir     string
		databaseURL string
		batchSize   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing courses*.csv.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 5000, "rows per COPY batch")
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

	if err := run(ctx, dataDir, databaseURL, batchSize); err != nil {
		slog.Error("course ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("course ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, batchSize int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "courses*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no courses*.csv.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewCourseRepository(pool)

	// Seed the duplicate filter with titles already in the catalog.
	existing, err := repo.Titles(ctx)
	if err != nil {
		return errors.Wrap(err, "list existing course titles")
	}

	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	for _, t := range existing {
		filter.AddString(t)
	}

	slog.Info("duplicate filter seeded",
		slog.Int("existing_titles", len(existing)),
		slog.Int("files", len(files)),
	)

	rows := make(chan course.Course, batchSize)

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(parseFile(ctx, f, rows))
	}

	// Close the channel once every parser is done. Errors are surfaced by
	// the outer g.Wait below.
	go func() {
		_ = g.Wait()
		close(rows)
	}()

	// Single writer: the bloom filter is not safe for concurrent use, so
	// dedupe and COPY happen here.
	var inserted, skipped int64
	batch := make([]course.Course, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := repo.CopyInsert(ctx, batch)
		if err != nil {
			return errors.Wrap(err, "copy batch")
		}
		inserted += n
		batch = batch[:0]
		return nil
	}

	for c := range rows {
		if filter.TestString(c.Title) {
			skipped++
			continue
		}
		filter.AddString(c.Title)

		batch = append(batch, c)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
			if inserted%int64(progressEvery) < int64(batchSize) {
				slog.Info("ingest progress", slog.Int64("inserted", inserted), slog.Int64("skipped", skipped))
			}
		}
	}

	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "parse files")
	}
	if err := flush(); err != nil {
		return err
	}

	slog.Info("ingest finished", slog.Int64("inserted", inserted), slog.Int64("skipped", skipped))

	return nil
}

// parseFile streams one gzip-compressed CSV file and sends valid rows on out.
// Malformed rows are counted and logged, not fatal.
func parseFile(ctx context.Context, path string, out chan<- course.Course) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		r := csv.NewReader(gz)
		r.FieldsPerRecord = 4
		r.ReuseRecord = true

		var total, invalid uint64
		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}

			total++
			c, ok := parseRow(rec)
			if !ok {
				invalid++
				continue
			}

			select {
			case out <- c:
			case <-ctx.Done():
				return ctx.Err()
			}

			if total%progressEvery == 0 {
				slog.Info("parse progress", slog.String("file", filepath.Base(path)), slog.Uint64("rows", total))
			}
		}

		slog.Info("parse complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("total_rows", total),
			slog.Uint64("invalid_rows", invalid),
		)

		return nil
	}
}

func parseRow(rec []string) (course.Course, bool) {
	title, description, priceStr, status := rec[0], rec[1], rec[2], rec[3]

	if title == "" || len(title) > maxTitleLen {
		return course.Course{}, false
	}
	if _, ok := validStatuses[status]; !ok {
		return course.Course{}, false
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil || price.IsNegative() {
		return course.Course{}, false
	}

	return course.Course{
		Title:       title,
		Description: description,
		Price:       price,
		Status:      course.Status(status),
	}, true
}
