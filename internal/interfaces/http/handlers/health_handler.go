package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/prometheus"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checks  map[string]CheckFunc
	version string
	startAt time.Time
	timeout time.Duration
	metrics *prometheus.AppMetrics
}

// NewHealthHandler creates a HealthHandler probing checks.  metrics may be nil.
func NewHealthHandler(version string, checks map[string]CheckFunc, metrics *prometheus.AppMetrics) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		version: version,
		startAt: time.Now(),
		timeout: 5 * time.Second,
		metrics: metrics,
	}
}

// RegisterRoutes mounts /healthz, /readyz and /healthz/detail on r.
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/healthz/detail", h.Detailed)
}

// LivenessResponse is the response for the liveness probe.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ComponentCheck is the health of one component.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReadinessResponse is the response for the readiness probe.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Version    string                    `json:"version,omitempty"`
	Uptime     string                    `json:"uptime,omitempty"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// Liveness always answers 200 while the process runs.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  h.uptime(),
	})
}

// Readiness answers 503 when any component is unhealthy.
func (h *HealthHandler) Readiness(c *gin.Context) {
	components, healthy := h.checkAll(c.Request.Context())
	resp := ReadinessResponse{Status: "ready", Components: components}
	code := http.StatusOK
	if !healthy {
		resp.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// Detailed is Readiness plus version and uptime.
func (h *HealthHandler) Detailed(c *gin.Context) {
	components, healthy := h.checkAll(c.Request.Context())
	resp := ReadinessResponse{Status: "healthy", Version: h.version, Uptime: h.uptime(), Components: components}
	code := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func (h *HealthHandler) uptime() string {
	return time.Since(h.startAt).Truncate(time.Second).String()
}

// Names returns the probed component names in order.
func (h *HealthHandler) Names() []string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkAll runs every probe concurrently.
func (h *HealthHandler) checkAll(ctx context.Context) (map[string]ComponentCheck, bool) {
	if len(h.checks) == 0 {
		return nil, true
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]ComponentCheck, len(h.checks))
		healthy = true
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range h.checks {
		g.Go(func() error {
			start := time.Now()
			err := check(gctx)
			cc := ComponentCheck{Status: "healthy", Latency: time.Since(start).Truncate(time.Microsecond).String()}
			if err != nil {
				cc.Status = "unhealthy"
				cc.Error = err.Error()
			}
			if h.metrics != nil {
				prometheus.RecordHealth(h.metrics, name, err == nil)
			}

			mu.Lock()
			results[name] = cc
			if err != nil {
				healthy = false
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results, healthy
}

//Personal.AI order the ending
