package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/EcommerceGo/storefront/internal/auth"
	"github.com/utafrali/EcommerceGo/storefront/internal/config"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/event"
	handler "github.com/utafrali/EcommerceGo/storefront/internal/handler/http"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository/api"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository/guest"
	redisrepo "github.com/utafrali/EcommerceGo/storefront/internal/repository/redis"
	"github.com/utafrali/EcommerceGo/storefront/internal/service"
	"github.com/utafrali/EcommerceGo/storefront/internal/session"
	"github.com/utafrali/EcommerceGo/storefront/pkg/database"
	"github.com/utafrali/EcommerceGo/storefront/pkg/health"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/EcommerceGo/storefront/pkg/kafka"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
	"github.com/utafrali/EcommerceGo/storefront/pkg/middleware"
	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
)

// ServiceName identifies this service in logs, metrics and traces.
const ServiceName = "storefront"

// App wires together all dependencies and runs the storefront wishlist service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	sessions       *session.Manager
	rateLimiter    *middleware.RateLimiter
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Redis holds guest wishlists.
	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = cfg.RedisAddr
	redisCfg.Password = cfg.RedisPass
	redisCfg.DB = cfg.RedisDB
	rdb, err := database.NewRedisClient(ctx, redisCfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Wishlist API client: retries inside, circuit breaker outside.
	apiClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.APITimeout,
		MaxRetries:      cfg.APIMaxRetries,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 100,
	})
	breakerCfg := httpclient.DefaultCircuitBreakerConfig(api.ServiceName)
	breakerCfg.Timeout = cfg.BreakerTimeout
	breakerCfg.FailureRatio = cfg.BreakerFailRatio
	breakerCfg.MinRequests = cfg.BreakerMinRequests
	breaker := httpclient.NewCircuitBreakerClient(apiClient, breakerCfg, log)

	// Migration events, only when brokers are configured.
	var (
		producer  *pkgkafka.Producer
		publisher event.Publisher = event.NoopPublisher{}
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
		publisher = producer
		log.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		log.Info("no kafka brokers configured, migration events are disabled")
	}
	eventProducer := event.NewProducer(publisher, log)

	// Per-session wishlist services.
	forwardToken := func(ctx context.Context) string {
		if c := middleware.ClaimsFromContext(ctx); c != nil {
			return c.Token
		}
		return ""
	}
	authenticated := api.NewAdapter(breaker, cfg.WishlistAPIURL, forwardToken, log)
	factory := func(sessionID string, mode domain.Mode, userID string) session.Wishlists {
		store := redisrepo.NewLocalStore(rdb, sessionID, cfg.GuestTTL)
		return service.NewWishlistService(
			guest.NewAdapter(store, log),
			authenticated,
			mode, userID, eventProducer, log,
		)
	}
	sessions := session.NewManager(session.ManagerConfig{
		IdleTTL:    cfg.SessionIdleTTL,
		ResetDelay: cfg.SyncStatusResetDelay,
		Callbacks: session.Callbacks{
			OnSyncSuccess: func(ctx context.Context, res service.TransitionResult) {
				if res.HadGuestItems {
					logger.FromContext(ctx).InfoContext(ctx, "guest wishlist moved to account",
						slog.Int("migrated", res.MigratedCount),
						slog.Int("failed", res.FailedCount),
					)
				}
			},
			OnSyncError: func(ctx context.Context, err error) {
				logger.FromContext(ctx).WarnContext(ctx, "guest wishlist not moved to account",
					slog.String("error", err.Error()),
				)
			},
		},
	}, factory, log)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical(api.ServiceName, func(context.Context) error {
		if breaker.State() == gobreaker.StateOpen {
			return errors.New("circuit breaker is open")
		}
		return nil
	})
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	// HTTP router.
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 5*time.Minute, log)
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment
	corsCfg.AllowCredentials = true

	var pprofCIDRs []string
	if cfg.PprofEnabled {
		pprofCIDRs = cfg.PprofCIDRs
	}

	router := handler.NewRouter(handler.RouterConfig{
		Sessions:       sessions,
		Health:         healthHandler,
		TokenValidator: auth.NewValidator(cfg.JWTSecret).Validate,
		RateLimiter:    rateLimiter,
		CORS:           corsCfg,
		PprofCIDRs:     pprofCIDRs,
		Logger:         log,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         log,
		rdb:            rdb,
		producer:       producer,
		sessions:       sessions,
		rateLimiter:    rateLimiter,
		tracerShutdown: tracerShutdown,
		httpServer:     httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.rateLimiter.Stop()
	a.logger.Info("stopping wishlist sessions", slog.Int("active", a.sessions.Len()))
	a.sessions.Stop()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
