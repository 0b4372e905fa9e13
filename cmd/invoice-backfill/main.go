package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/go-faster/errors"

	appkg "github.com/deepglam/marketplace-orders/internal/app"
	"github.com/deepglam/marketplace-orders/internal/storage/postgres"
)

const defaultLimit = 500

func main() {
	// Flags and MKT_* variables belong to the server configuration, which
	// this tool shares; the batch size has its own variable.
	limit := defaultLimit
	if v := os.Getenv("BACKFILL_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			slog.Error("BACKFILL_LIMIT must be a positive integer", slog.String("value", v))
			os.Exit(1)
		}
		limit = n
	}

	cfg, err := appkg.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Invoice.Disabled {
		slog.Error("invoices are disabled in the configuration")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg, limit); err != nil {
		slog.Error("invoice backfill failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appkg.Config, limit int) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	orders, err := appkg.NewOrders(ctx, pool, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = orders.Close() }()

	slog.Info("backfilling invoices", slog.Int("limit", limit), slog.String("storage", cfg.Storage.Driver))

	res, err := orders.Service.BackfillInvoices(ctx, limit)
	if err != nil {
		return errors.Wrap(err, "backfill invoices")
	}

	slog.Info("invoice backfill completed",
		slog.Int("attempted", res.Attempted),
		slog.Int("published", res.Published),
		slog.Int("failed", res.Attempted-res.Published),
	)
	if res.Published < res.Attempted {
		return errors.Errorf("%d of %d invoices failed", res.Attempted-res.Published, res.Attempted)
	}
	return nil
}
