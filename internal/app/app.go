package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/option"

	"github.com/N1kunj1998/ECOMMERCE/internal/config"
	"github.com/N1kunj1998/ECOMMERCE/internal/event"
	handler "github.com/N1kunj1998/ECOMMERCE/internal/handler/http"
	"github.com/N1kunj1998/ECOMMERCE/internal/media"
	"github.com/N1kunj1998/ECOMMERCE/internal/media/gcs"
	memmedia "github.com/N1kunj1998/ECOMMERCE/internal/media/memory"
	"github.com/N1kunj1998/ECOMMERCE/internal/media/remote"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository/memory"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository/mongodb"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository/postgres"
	rediscache "github.com/N1kunj1998/ECOMMERCE/internal/repository/redis"
	"github.com/N1kunj1998/ECOMMERCE/internal/service"
	"github.com/N1kunj1998/ECOMMERCE/pkg/database"
	"github.com/N1kunj1998/ECOMMERCE/pkg/health"
	"github.com/N1kunj1998/ECOMMERCE/pkg/httpclient"
	pkgkafka "github.com/N1kunj1998/ECOMMERCE/pkg/kafka"
	"github.com/N1kunj1998/ECOMMERCE/pkg/middleware"
	"github.com/N1kunj1998/ECOMMERCE/pkg/tracing"
)

// ServiceName identifies the process in logs, metrics and traces.
const ServiceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	// closers run in reverse order on shutdown.
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

type stores struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
}

// NewApp creates a new application instance, initializing all dependencies.
// On failure every resource opened so far is released.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.onClose("tracer", shutdownTracer)

	healthHandler := health.NewHandler()

	st, err := a.openStores(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.onClose("redis", func(context.Context) error { return client.Close() })
		healthHandler.Register("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		st.products = rediscache.NewCachedProductRepository(st.products, client, cfg.CacheTTL, logger)
		logger.Info("product cache enabled", slog.String("addr", cfg.RedisAddr), slog.Duration("ttl", cfg.CacheTTL))
	}

	images, err := a.openMedia(ctx)
	if err != nil {
		return nil, err
	}

	var publisher event.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.onClose("kafka", func(context.Context) error { return producer.Close() })
		healthHandler.Register("kafka", producer.Ping)
		publisher = producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("no kafka brokers configured, domain events are dropped")
	}
	events := event.NewProducer(publisher, logger)

	// Build the dependency graph.
	svcs := handler.Services{
		Catalog: service.NewCatalogService(st.products, images, events, logger),
		Reviews: service.NewReviewService(st.products, events, logger),
		Orders:  service.NewOrderService(st.orders, st.products, cfg.Pricing(), events, logger),
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	router := handler.NewRouter(svcs, middleware.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer), healthHandler, handler.RouterConfig{
		ServiceName:    ServiceName,
		CORS:           cors,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		CatalogMaxAge:  cfg.CatalogCacheSecs,
		RequestTimeout: cfg.WriteTimeout,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// NewCatalog opens the configured product store and media backend and
// returns a catalog service over them, for offline tools such as the seeder.
// Events are not published. Call the returned func to release the stores.
func NewCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*service.CatalogService, func(), error) {
	a := &App{cfg: cfg, logger: logger}
	st, err := a.openStores(ctx, health.NewHandler())
	if err != nil {
		a.close(context.Background())
		return nil, nil, err
	}
	images, err := a.openMedia(ctx)
	if err != nil {
		a.close(context.Background())
		return nil, nil, err
	}
	catalog := service.NewCatalogService(st.products, images, event.NewProducer(nil, logger), logger)
	return catalog, func() { a.close(context.Background()) }, nil
}

func (a *App) openStores(ctx context.Context, h *health.Handler) (stores, error) {
	cfg := a.cfg
	switch cfg.StoreDriver {
	case config.StoreMongo:
		mcfg := database.DefaultMongoConfig()
		mcfg.URI = cfg.MongoURI
		mcfg.Database = cfg.MongoDatabase
		mcfg.MaxPoolSize = cfg.MongoMaxPoolSize

		client, db, err := database.NewMongoDatabase(ctx, mcfg, a.logger)
		if err != nil {
			return stores{}, fmt.Errorf("connect to mongodb: %w", err)
		}
		a.onClose("mongodb", client.Disconnect)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			return stores{}, fmt.Errorf("ensure mongodb indexes: %w", err)
		}
		h.Register("mongodb", func(ctx context.Context) error { return client.Ping(ctx, nil) })
		return stores{
			products: mongodb.NewProductRepository(db),
			orders:   mongodb.NewOrderRepository(db),
		}, nil

	case config.StorePostgres:
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), a.logger)

		pool, err := database.NewPostgresPool(ctx, database.PostgresConfig{
			URL:             cfg.PostgresURL,
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: cfg.DBMaxConnLife,
			MaxConnIdleTime: cfg.DBMaxConnIdle,
		}, a.logger)
		if err != nil {
			return stores{}, fmt.Errorf("connect to postgres: %w", err)
		}
		a.onClose("postgres", func(context.Context) error { pool.Close(); return nil })
		if err := postgres.Migrate(ctx, pool, a.logger); err != nil {
			return stores{}, fmt.Errorf("migrate postgres: %w", err)
		}

		collector := database.NewPoolStatsCollector(database.PgxPoolStats(pool), ServiceName)
		if err := prometheus.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return stores{}, fmt.Errorf("register pool metrics: %w", err)
			}
		}
		h.Register("postgres", pool.Ping)
		return stores{
			products: postgres.NewProductRepository(pool),
			orders:   postgres.NewOrderRepository(pool),
		}, nil

	default:
		a.logger.Warn("using in-memory store, data is lost on restart")
		return stores{
			products: memory.NewProductRepository(),
			orders:   memory.NewOrderRepository(),
		}, nil
	}
}

func (a *App) openMedia(ctx context.Context) (media.Storage, error) {
	cfg := a.cfg
	switch cfg.MediaDriver {
	case config.MediaGCS:
		var opts []option.ClientOption
		if cfg.GCSEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.GCSEndpoint), option.WithoutAuthentication())
		}
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.onClose("gcs", func(context.Context) error { return client.Close() })
		store, err := gcs.New(client, cfg.GCSBucket, "")
		if err != nil {
			return nil, err
		}
		a.logger.Info("storing images in gcs", slog.String("bucket", cfg.GCSBucket))
		return store, nil

	case config.MediaRemote:
		breaker := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("media-service"),
			a.logger,
		)
		a.logger.Info("storing images through media service", slog.String("url", cfg.MediaServiceURL))
		return remote.New(cfg.MediaServiceURL, cfg.MediaServiceAPIKey, breaker), nil

	default:
		return memmedia.New(cfg.MediaPublicBaseURL), nil
	}
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Error("close "+c.name, slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.Shutdown()
		return err
	}

	a.Shutdown()
	return nil
}

// Shutdown gracefully stops the HTTP server and releases every dependency.
func (a *App) Shutdown() {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.close(shutdownCtx)

	a.logger.Info("application shutdown complete")
}
