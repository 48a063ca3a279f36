// Package api provides the HTTP API for the lisensi server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/arexans/lisensi/internal/api/handlers"
	"github.com/arexans/lisensi/internal/api/middleware"
	"github.com/arexans/lisensi/internal/config"
	"github.com/arexans/lisensi/internal/db"
)

// maxBodyBytes caps request body size; payment bodies are tiny.
const maxBodyBytes = 64 * 1024

// Config holds configuration for the API router.
type Config struct {
	// Environment the server runs in; production enforces CORS origins.
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
	// RedisClient backs the rate limiter when set, so limits hold across
	// replicas. Nil falls back to a per-process in-memory store.
	RedisClient *redis.Client
	// Version information for the version endpoint.
	Version   string
	Commit    string
	BuildDate string
	// Registry for the /metrics endpoint. Nil disables it.
	Registry *prometheus.Registry
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins:    []string{},
		RateLimitRequests: 100,
		RateLimitPeriod:   "1m",
		Version:           "dev",
		Commit:            "unknown",
		BuildDate:         "unknown",
	}
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies. sessions and
// watcher may be nil.
func NewRouter(
	cfg Config,
	database *db.DB,
	service handlers.PaymentService,
	sessions handlers.SessionStore,
	watcher handlers.TransactionWatcher,
	logger zerolog.Logger,
) (*Router, error) {
	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment))
	r.Engine.Use(middleware.BodyLimit(maxBodyBytes))

	var rateLimiter gin.HandlerFunc
	var err error
	if cfg.RedisClient != nil {
		rateLimiter, err = middleware.NewRedisRateLimiter(cfg.RedisClient, cfg.RateLimitRequests, cfg.RateLimitPeriod)
	} else {
		rateLimiter, err = middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod)
	}
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	healthHandler := handlers.NewHealthHandler(database, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)

	versionHandler := handlers.NewVersionHandler(cfg.Version, cfg.Commit, cfg.BuildDate, logger)
	versionHandler.RegisterPublicRoutes(r.Engine)

	if cfg.Registry != nil {
		r.Engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	apiV1 := r.Engine.Group("/api/v1")

	paymentsHandler := handlers.NewPaymentsHandler(service, sessions, watcher, logger)
	paymentsHandler.RegisterRoutes(apiV1)

	contentHandler := handlers.NewContentHandler(database, logger)
	contentHandler.RegisterRoutes(apiV1)

	return r, nil
}
