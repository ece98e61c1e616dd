package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-PatentDoc/internal/bootstrap"
	"github.com/turtacn/KeyIP-PatentDoc/internal/config"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/http/middleware"
)

// API is the REST engine plus the pieces that follow configuration changes.
type API struct {
	*gin.Engine
	limiter *middleware.Limiter
	logger  logging.Logger
}

// Reload applies the settings of cfg that can change while serving: the log
// level and the rate limit.  Turning the rate limit on or off needs a
// restart.
func (a *API) Reload(cfg *config.Config) {
	if logging.SetLevel(a.logger, cfg.Log.Level) {
		a.logger.Info("log level applied", logging.String("level", cfg.Log.Level))
	}
	enabled := cfg.Server.RateLimitRPS > 0
	if (a.limiter != nil) != enabled {
		a.logger.Warn("rate limit toggled; restart to apply", logging.Bool("enabled", enabled))
		return
	}
	if a.limiter != nil {
		a.limiter.SetRate(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		a.logger.Info("rate limit applied",
			logging.Float64("rps", cfg.Server.RateLimitRPS),
			logging.Int("burst", cfg.Server.RateLimitBurst))
	}
}

// NewAPI builds the API engine on the components opened in infra.  Read
// endpoints appear only for the stores that are enabled.
func NewAPI(infra *bootstrap.Infrastructure, version string) (*API, error) {
	cfg := infra.Config
	gin.SetMode(cfg.Server.Mode)

	wanted, err := cfg.Corpus.Wanted()
	if err != nil {
		return nil, err
	}
	docCfg := handlers.DocumentHandlerConfig{
		MaxDocumentSize: min(cfg.Parser.MaxDocumentSize, cfg.Server.MaxBodySize),
		Wanted:          wanted,
		CacheTTL:        cfg.Server.ParseCacheTTL,
		Metrics:         infra.Metrics,
	}
	if c := infra.ParseCache(); c != nil {
		docCfg.Cache = c
	}

	store := &handlers.StoreHandler{}
	if s := infra.DocumentStore(); s != nil {
		store.Documents = s
	}
	if s := infra.MatchStore(); s != nil {
		store.Matches = s
	}
	if g := infra.Graph(); g != nil {
		store.Graph = g
	}
	if s := infra.Searcher(); s != nil {
		store.Searcher = s
	}

	checks := make(map[string]handlers.CheckFunc)
	for name, fn := range infra.HealthChecks() {
		checks[name] = fn
	}

	rc := RouterConfig{
		DocumentHandler:    handlers.NewDocumentHandler(docCfg, infra.Logger),
		StoreHandler:       store,
		HealthHandler:      handlers.NewHealthHandler(version, checks, infra.Metrics),
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MaxBodySize:        cfg.Server.MaxBodySize,
		Logging:            middleware.DefaultLoggingConfig(),
		Logger:             infra.Logger,
		Metrics:            infra.Metrics,
		MetricsHandler:     infra.MetricsHandler(),
		MetricsPath:        cfg.Monitoring.Prometheus.Path,
	}
	if cfg.Server.RateLimitRPS > 0 {
		rc.RateLimiter = middleware.NewLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimitRPS,
			Burst:             cfg.Server.RateLimitBurst,
		})
	}
	return &API{Engine: NewRouter(rc), limiter: rc.RateLimiter, logger: infra.Logger}, nil
}

//Personal.AI order the ending
