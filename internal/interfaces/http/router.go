// Package http assembles the patentdoc REST API on gin.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/http/middleware"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// RouterConfig wires handlers and middleware into the engine.  Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	// Handlers
	DocumentHandler *handlers.DocumentHandler
	StoreHandler    *handlers.StoreHandler
	HealthHandler   *handlers.HealthHandler

	// Middleware
	CORSAllowedOrigins []string
	MaxBodySize        int64
	RateLimiter        *middleware.Limiter
	Logging            middleware.LoggingConfig

	// Infrastructure
	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter builds the gin engine.  Probes and /metrics sit outside
// /api/v1 and bypass the body and rate limits.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Handler())
	}
	if cfg.MaxBodySize > 0 {
		api.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if cfg.DocumentHandler != nil {
		cfg.DocumentHandler.RegisterRoutes(api)
	}
	if cfg.StoreHandler != nil {
		cfg.StoreHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Code: errors.ErrCodeNotFound.String(), Message: "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handlers.ErrorResponse{Code: errors.ErrCodeBadRequest.String(), Message: "method not allowed"})
	})
	return r
}

//Personal.AI order the ending
