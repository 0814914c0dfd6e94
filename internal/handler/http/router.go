package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/EcommerceGo/storefront/internal/session"
	"github.com/utafrali/EcommerceGo/storefront/pkg/health"
	"github.com/utafrali/EcommerceGo/storefront/pkg/middleware"
)

const serviceName = "storefront"

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Sessions       *session.Manager
	Health         *health.Handler
	TokenValidator middleware.TokenValidator
	RateLimiter    *middleware.RateLimiter
	CORS           middleware.CORSConfig
	PprofCIDRs     []string
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all storefront wishlist routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	if cfg.PprofCIDRs != nil {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	h := NewWishlistHandler(logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session)
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}
		r.Use(middleware.OptionalAuth(cfg.TokenValidator))
		r.Use(middleware.RequestLogger(logger))
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)
		r.Use(SessionSync(cfg.Sessions, logger))

		r.Get("/session", h.GetSession)

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.GetWishlist)
			r.Delete("/", h.ClearWishlist)

			r.Post("/items", h.AddItem)
			r.Delete("/items/{productId}", h.RemoveItem)

			r.Get("/check/{productId}", h.CheckItem)
			r.Post("/move-to-cart", h.MoveToCart)
			r.Get("/price-changes", h.PriceChanges)
		})
	})

	return r
}
