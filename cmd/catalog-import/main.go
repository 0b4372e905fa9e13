package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/go-faster/errors"

	"github.com/deepglam/marketplace-orders/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		opts        importOptions
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog dumps")
	flag.StringVar(&pattern, "pattern", "*.jsonl.gz", "glob of dump files inside data-dir; later names win on duplicate ids")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&opts.capacity, "bloom-capacity", 10_000_000, "expected products per dump")
	flag.Float64Var(&opts.fpr, "bloom-fpr", 0.001, "bloom filter false positive rate")
	flag.IntVar(&opts.batchSize, "batch-size", 1000, "products per upsert batch")
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

	if err := run(ctx, filepath.Join(dataDir, pattern), databaseURL, opts); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, glob, databaseURL string, opts importOptions) error {
	files, err := filepath.Glob(glob)
	if err != nil {
		return errors.Wrapf(err, "glob %s", glob)
	}
	if len(files) == 0 {
		return errors.Errorf("no catalog dumps match %s", glob)
	}
	if len(files) > maxFiles {
		return errors.Errorf("%d dumps match %s, at most %d are supported", len(files), glob, maxFiles)
	}
	sort.Strings(files)

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	stats, err := importCatalog(ctx, files, postgres.NewProductRepository(pool), opts)
	if err != nil {
		return err
	}

	slog.Info("catalog imported",
		slog.Int("files", len(files)),
		slog.Int("unique", stats.unique),
		slog.Int("duplicates", stats.duplicates),
		slog.Int("false_positives", stats.falsePositives),
		slog.Int("skipped", stats.skipped),
	)
	return nil
}
