package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deepglam/marketplace-orders/internal/handler"
	"github.com/deepglam/marketplace-orders/internal/storage/postgres"
	"github.com/deepglam/marketplace-orders/pkg/health"
	"github.com/deepglam/marketplace-orders/pkg/httpmiddleware"
)

const (
	serviceName   = "marketplace-orders"
	uploadsPrefix = "/uploads/"
	probeInterval = 10 * time.Second
)

// Run wires the service and serves HTTP until ctx is cancelled, then drains.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("invoices", !cfg.Invoice.Disabled),
	)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	orders, err := NewOrders(ctx, pool, cfg, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := orders.Close(); err != nil {
			lg.Warn("Close file store", zap.Error(err))
		}
	}()

	probes := newProbes(pool, orders)
	probes.Start(ctx, probeInterval)
	defer probes.Stop()

	security := handler.NewSecurityHandler(postgres.NewAPIKeyRepository(pool), []byte(cfg.APIKeyPepper))
	router := newRouter(handler.NewHandler(orders.Service, security), probes, orders.UploadsDir)
	server := newServer(ctx, cfg, m, router)

	probes.SetReady(true)
	return serve(ctx, lg, cfg.Graceful, server, probes)
}

func newProbes(pool *pgxpool.Pool, orders *Orders) *health.Health {
	h := health.New()
	h.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	if orders.UploadsDir != "" {
		h.AddReadinessCheck("uploads", time.Second, health.DirWritableCheck(orders.UploadsDir))
	}
	h.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	return h
}

func newRouter(h *handler.Handler, probes *health.Health, uploadsDir string) chi.Router {
	r := chi.NewRouter()
	r.Get("/livez", probes.LiveEndpoint)
	r.Get("/readyz", probes.ReadyEndpoint)
	if uploadsDir != "" {
		r.Handle(uploadsPrefix+"*", http.StripPrefix(uploadsPrefix, http.FileServer(http.Dir(uploadsDir))))
	}
	h.Routes(r)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpmiddleware.WriteError(r.Context(), w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpmiddleware.WriteError(r.Context(), w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// newServer applies the middleware chain. Placement renders invoices before
// responding, so the write timeout covers the invoice budget.
func newServer(ctx context.Context, cfg *Config, m *app.Telemetry, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Invoice.Timeout + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.KeyByHeader(handler.APIKeyHeader),
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, m),
			httpmiddleware.LogRequests(),
			httpmiddleware.Labeler(),
		),
	}
}

// serve runs server until ctx is done. Readiness drops first so load
// balancers stop routing, then in-flight requests get ShutdownTimeout.
func serve(ctx context.Context, lg *zap.Logger, cfg GracefulConfig, server *http.Server, probes *health.Health) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		probes.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Draining", zap.Duration("delay", cfg.ReadinessDelay))
			time.Sleep(cfg.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		lg.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
