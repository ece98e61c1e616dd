package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64
	// Burst is the number of requests a client may send at once.
	Burst int
	// KeyFunc identifies the client; defaults to the client IP.
	KeyFunc func(c *gin.Context) string
	// SkipPaths bypass the limiter.
	SkipPaths []string
	// IdleTTL drops the state of clients idle for longer.
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client.
type Limiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewLimiter creates a Limiter.  Zero Burst means one request.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &Limiter{cfg: cfg, clients: make(map[string]*clientLimiter), now: time.Now}
}

// Allow consumes a token for key and reports whether the request may pass
// along with the tokens left.
func (l *Limiter) Allow(key string) (bool, int) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	allowed := cl.limiter.AllowN(now, 1)
	remaining := int(math.Max(0, math.Floor(cl.limiter.TokensAt(now))))
	return allowed, remaining
}

// SetRate changes the sustained rate and burst for new and tracked clients.
// Non-positive burst means one request.
func (l *Limiter) SetRate(rps float64, burst int) {
	if burst <= 0 {
		burst = 1
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.RequestsPerSecond, l.cfg.Burst = rps, burst
	for _, cl := range l.clients {
		cl.limiter.SetLimitAt(now, rate.Limit(rps))
		cl.limiter.SetBurstAt(now, burst)
	}
}

// Rate returns the current sustained rate and burst.
func (l *Limiter) Rate() (float64, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg.RequestsPerSecond, l.cfg.Burst
}

// Sweep forgets clients idle for longer than IdleTTL.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.cfg.IdleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, cl := range l.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(l.clients, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Handler rejects requests over the limit with 429.
func (l *Limiter) Handler() gin.HandlerFunc {
	skip := make(map[string]bool, len(l.cfg.SkipPaths))
	for _, p := range l.cfg.SkipPaths {
		skip[p] = true
	}
	var calls uint64

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		allowed, remaining := l.Allow(l.cfg.KeyFunc(c))
		rps, burst := l.Rate()
		c.Header("X-RateLimit-Limit", strconv.Itoa(burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		l.mu.Lock()
		calls++
		sweep := calls%1024 == 0
		l.mu.Unlock()
		if sweep {
			l.Sweep()
		}

		if !allowed {
			retry := time.Duration(float64(time.Second) / rps)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    errors.ErrCodeRateLimited.String(),
				"message": errors.DefaultMessageForCode(errors.ErrCodeRateLimited),
			})
			return
		}
		c.Next()
	}
}

//Personal.AI order the ending
