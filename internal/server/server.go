package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mansara-store/internal/config"
	"mansara-store/internal/database"
	"mansara-store/internal/metrics"
	custommiddleware "mansara-store/internal/middleware"
	"mansara-store/internal/repository"
	"mansara-store/internal/repository/memory"
	"mansara-store/internal/service"
	"mansara-store/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backends are the stateful dependencies the API runs on
type Backends struct {
	Store repository.Store
	DB    database.Service // nil with the memory store
	Redis *redis.Client    // nil when rate limiting stays in-process
}

// OpenBackends connects the configured store and, when REDIS_HOST is set,
// Redis. An unreachable Redis is logged and the in-process limiter is used.
func OpenBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backends, error) {
	b := &Backends{}

	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		b.Store = memory.NewStore()
	case config.StoreBackendPostgres:
		db, err := database.New(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db.DB(), logger); err != nil {
			db.Close()
			return nil, err
		}
		b.DB = db
		b.Store = repository.NewStore(db.DB())
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Redis unreachable, falling back to in-process rate limiting",
				zap.String("addr", cfg.Redis.Addr()),
				zap.Error(err),
			)
			client.Close()
		} else {
			b.Redis = client
		}
	}

	return b, nil
}

// Close releases the database pool and the Redis client
func (b *Backends) Close() error {
	var firstErr error
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if b.DB != nil {
		if err := b.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	backends *Backends
}

func NewServer(cfg *config.Config, logger *zap.Logger, backends *Backends) (*Server, error) {
	loc, err := cfg.Server.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_TIMEZONE: %w", err)
	}

	m := metrics.New()

	// Create router
	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.MetricsMiddleware(m))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.IsDevelopment()))
	router.Use(rateLimiter(cfg, backends.Redis, logger))

	router.Get("/health", health(backends))
	router.Handle("/metrics", m.Handler())

	// Services share one lock table so cart edits and checkout serialize
	// per identity
	store := backends.Store
	locks := service.NewIdentityLocks()
	profileService := service.NewProfileService(store, service.TokenConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
	}, logger)
	catalogService := service.NewCatalogService(store, logger)
	cartService := service.NewCartService(store, locks, m, logger)
	orderService := service.NewOrderService(store, locks, service.NewOrderNumbers(nil), m, logger)
	adminService := service.NewAdminService(store, loc, logger)

	handlers := &transport.Handlers{
		Profile: transport.NewProfileHandler(profileService, logger),
		Catalog: transport.NewCatalogHandler(catalogService, logger),
		Cart:    transport.NewCartHandler(cartService, logger),
		Orders:  transport.NewOrderHandler(orderService, logger),
		Admin:   transport.NewAdminHandler(adminService, logger),
	}
	handlers.Mount(router,
		custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger),
		custommiddleware.RequireAdmin(logger),
	)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:   cfg,
		logger:   logger,
		backends: backends,
	}

	return server, nil
}

// rateLimiter identifies callers after optional authentication so signed-in
// customers get their own budget
func rateLimiter(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) func(http.Handler) http.Handler {
	limitCfg := custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		KeyPrefix:         "mansara:ratelimit",
	}

	var limit func(http.Handler) http.Handler
	if redisClient != nil {
		limit = custommiddleware.RateLimitMiddleware(redisClient, limitCfg, logger)
	} else {
		limit = custommiddleware.NewLocalRateLimiter(limitCfg).Middleware(logger)
	}

	identify := custommiddleware.OptionalAuthMiddleware(cfg.JWT.Secret, logger)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return identify(limited)
	}
}

func health(backends *Backends) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{"status": "ok"}
		status := http.StatusOK

		if backends.DB != nil {
			db := backends.DB.Health()
			body["database"] = db
			if db["status"] != "up" {
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
			} else if version, err := database.SchemaVersion(r.Context(), backends.DB.DB()); err == nil {
				body["schema_version"] = version
			}
		}
		if backends.Redis != nil {
			if err := backends.Redis.Ping(r.Context()).Err(); err != nil {
				body["redis"] = "down"
			} else {
				body["redis"] = "up"
			}
		}

		custommiddleware.RespondWithJSON(w, status, body)
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.backends.Close(); err != nil {
		s.logger.Error("Failed to close backends", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
