package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/N1kunj1998/ECOMMERCE/internal/service"
	"github.com/N1kunj1998/ECOMMERCE/pkg/health"
	"github.com/N1kunj1998/ECOMMERCE/pkg/middleware"
)

// RouterConfig tunes the middleware stack.
type RouterConfig struct {
	ServiceName    string
	CORS           middleware.CORSConfig
	RateLimitRPS   float64
	RateLimitBurst int
	// CatalogMaxAge is the Cache-Control max-age of public catalog reads,
	// in seconds. Zero disables the header.
	CatalogMaxAge  int
	RequestTimeout time.Duration
	PprofCIDRs     []string
}

// Services groups the use cases the router exposes.
type Services struct {
	Catalog *service.CatalogService
	Reviews *service.ReviewService
	Orders  *service.OrderService
}

// NewRouter creates a chi router with every storefront route registered.
func NewRouter(
	svcs Services,
	verifier middleware.TokenVerifier,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	products := NewProductHandler(svcs.Catalog, logger)
	reviews := NewReviewHandler(svcs.Reviews, logger)
	orders := NewOrderHandler(svcs.Orders, logger)

	authenticated := func(r chi.Router) {
		r.Use(middleware.Authenticate(verifier))
		r.Use(middleware.RequestLogger(logger))
	}
	admin := func(r chi.Router) {
		authenticated(r)
		r.Use(middleware.RequireRole(middleware.RoleAdmin))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		}
		r.Use(chimw.Compress(5))
		r.Use(chimw.Timeout(cfg.RequestTimeout))
		r.Use(ContentTypeJSON)

		// Public catalog
		r.Group(func(r chi.Router) {
			if cfg.CatalogMaxAge > 0 {
				r.Use(middleware.CacheControl(cfg.CatalogMaxAge))
			}
			r.Get("/products", products.ListProducts)
			r.Get("/products/{id}", products.GetProduct)
			r.Get("/reviews", reviews.ListReviews)
		})

		// Signed-in customers
		r.Group(func(r chi.Router) {
			authenticated(r)
			r.Put("/reviews", reviews.UpsertReview)
			r.Post("/orders", orders.PlaceOrder)
			r.Get("/orders/me", orders.ListMyOrders)
			r.Get("/orders/{id}", orders.GetOrder)
		})

		// Admin
		r.Group(func(r chi.Router) {
			admin(r)
			r.Delete("/reviews", reviews.DeleteReview)

			r.Get("/admin/products", products.ListAllProducts)
			r.Post("/admin/products", products.CreateProduct)
			r.Put("/admin/products/{id}", products.UpdateProduct)
			r.Delete("/admin/products/{id}", products.DeleteProduct)

			r.Get("/admin/orders", orders.ListAllOrders)
			r.Put("/admin/orders/{id}", orders.AdvanceStatus)
			r.Delete("/admin/orders/{id}", orders.DeleteOrder)
		})
	})

	return r
}
