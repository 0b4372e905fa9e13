package app

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/multierr"
	"golang.org/x/text/language"

	"github.com/deepglam/marketplace-orders/internal/domain/order"
	"github.com/deepglam/marketplace-orders/internal/filestore"
	"github.com/deepglam/marketplace-orders/internal/invoice"
	"github.com/deepglam/marketplace-orders/internal/storage/postgres"
	"github.com/deepglam/marketplace-orders/pkg/httpmiddleware"
)

// Orders is the order service together with the resources it owns.
type Orders struct {
	Service *order.Service
	// UploadsDir is the local file store directory served under /uploads,
	// empty when invoices only go to a bucket.
	UploadsDir string

	closers []func() error
}

// Close releases the file store clients.
func (o *Orders) Close() error {
	var err error
	for _, c := range o.closers {
		err = multierr.Append(err, c())
	}
	return err
}

// NewOrders wires the order service onto pool following cfg. Telemetry may be
// nil, in which case spans and counters are discarded.
func NewOrders(ctx context.Context, pool *pgxpool.Pool, cfg *Config, telemetry httpmiddleware.Providers) (*Orders, error) {
	out := &Orders{}

	deps := order.Deps{
		Buyers:   postgres.NewBuyerRepository(pool),
		Products: postgres.NewProductRepository(pool),
		Sellers:  postgres.NewSellerRepository(pool),
		Orders:   postgres.NewOrderRepository(pool),
		Bills:    postgres.NewBillRepository(pool),
	}
	if !cfg.Invoice.Disabled {
		store, err := out.fileStore(ctx, cfg.Storage)
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		deps.Invoices = invoice.NewPublisher(
			invoice.NewRenderer(language.Make(cfg.Invoice.Locale)),
			store,
			invoice.PublisherConfig{
				Folder:  cfg.Invoice.Folder,
				Payment: cfg.InvoicePayment(),
			},
		)
	}

	opts := []order.Option{
		order.WithInvoiceLimits(cfg.Invoice.Concurrency, cfg.Invoice.Timeout),
	}
	if telemetry != nil {
		opts = append(opts,
			order.WithTracerProvider(telemetry.TracerProvider()),
			order.WithMeterProvider(telemetry.MeterProvider()),
		)
	}
	svc, err := order.NewService(deps, opts...)
	if err != nil {
		_ = out.Close()
		return nil, errors.Wrap(err, "create order service")
	}
	out.Service = svc
	return out, nil
}

// fileStore builds the invoice file store for cfg.
func (o *Orders) fileStore(ctx context.Context, cfg StorageConfig) (filestore.Store, error) {
	local := func() (filestore.Store, error) {
		l, err := filestore.NewLocal(cfg.LocalDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create local file store")
		}
		o.UploadsDir = l.Dir()
		return l, nil
	}

	if cfg.Driver != StorageGCS {
		return local()
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create storage client")
	}
	o.closers = append(o.closers, client.Close)

	bucket, err := filestore.NewGCS(client, cfg.Bucket, cfg.BucketBaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create gcs file store")
	}
	if !cfg.FallbackLocal {
		return bucket, nil
	}
	secondary, err := local()
	if err != nil {
		return nil, err
	}
	return &filestore.Fallback{Primary: bucket, Secondary: secondary}, nil
}
