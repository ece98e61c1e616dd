package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

// DistributedLock guards work that must not run twice at once, such as two
// corpus builds over the same archive prefix.
type DistributedLock interface {
	Lock(ctx context.Context) error
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
	TTL(ctx context.Context) (time.Duration, error)
}

type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

func WithRetryDelay(delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = delay }
}

func WithRetryCount(count int) LockOption {
	return func(c *lockConfig) { c.retryCount = count }
}

// WithWatchdog keeps extending a held lock every ttl/3 until Unlock.
func WithWatchdog(enabled bool) LockOption {
	return func(c *lockConfig) { c.watchdogEnabled = enabled }
}

type lockConfig struct {
	ttl              time.Duration
	retryDelay       time.Duration
	retryCount       int
	watchdogEnabled  bool
	watchdogInterval time.Duration
}

// NewMutex returns a lock on name.  Each call yields a distinct owner.
func NewMutex(client *Client, name string, log logging.Logger, opts ...LockOption) DistributedLock {
	cfg := lockConfig{
		ttl:        30 * time.Second,
		retryDelay: 100 * time.Millisecond,
		retryCount: 30,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.watchdogInterval = cfg.ttl / 3
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &redisMutex{
		client: client,
		key:    Key("lock", name),
		value:  uuid.New().String(),
		config: cfg,
		logger: log.With(logging.String("lock", name)),
	}
}

type redisMutex struct {
	client *Client
	key    string
	value  string
	config lockConfig
	logger logging.Logger

	mu       sync.Mutex
	stopKeep context.CancelFunc
	keepDone chan struct{}
}

// ownerScript runs a command on KEYS[1] only while it still holds ARGV[1],
// the owner token.  ARGV[2] selects DEL or PEXPIRE with ARGV[3] ms.
var ownerScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if ARGV[2] == "del" then
	return redis.call("DEL", KEYS[1])
end
return redis.call("PEXPIRE", KEYS[1], ARGV[3])
`)

func (m *redisMutex) asOwner(ctx context.Context, op string, ttl time.Duration) (bool, error) {
	rdb, err := m.client.Underlying()
	if err != nil {
		return false, err
	}
	n, err := ownerScript.Run(ctx, rdb, []string{m.key}, m.value, op, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock "+op+" failed").WithDetailf("key=%s", m.key)
	}
	return n == 1, nil
}

// Lock polls TryLock until it succeeds, the retries run out or ctx ends.
func (m *redisMutex) Lock(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		ok, err := m.TryLock(ctx)
		if err != nil || ok {
			return err
		}
		if attempt >= m.config.retryCount {
			return ErrLockNotAcquired.WithDetailf("key=%s attempts=%d", m.key, attempt)
		}
		t := time.NewTimer(m.config.retryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (m *redisMutex) TryLock(ctx context.Context) (bool, error) {
	rdb, err := m.client.Underlying()
	if err != nil {
		return false, err
	}
	acquired, err := rdb.SetNX(ctx, m.key, m.value, m.config.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquire failed").WithDetailf("key=%s", m.key)
	}
	if acquired {
		m.logger.Debug("Lock acquired", logging.Duration("ttl", m.config.ttl))
		if m.config.watchdogEnabled {
			m.keepAlive()
		}
	}
	return acquired, nil
}

func (m *redisMutex) Unlock(ctx context.Context) error {
	m.stopKeepAlive()
	released, err := m.asOwner(ctx, "del", 0)
	if err != nil {
		return err
	}
	if !released {
		return ErrLockNotHeld.WithDetailf("key=%s", m.key)
	}
	return nil
}

// Extend resets the expiry to ttl; false means the lock is no longer ours.
func (m *redisMutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	return m.asOwner(ctx, "pexpire", ttl)
}

func (m *redisMutex) TTL(ctx context.Context) (time.Duration, error) {
	rdb, err := m.client.Underlying()
	if err != nil {
		return 0, err
	}
	return rdb.PTTL(ctx, m.key).Result()
}

// keepAlive starts the watchdog goroutine once per acquisition.
func (m *redisMutex) keepAlive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopKeep != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.stopKeep = cancel
	m.keepDone = make(chan struct{})
	go m.watch(ctx, m.keepDone)
}

func (m *redisMutex) stopKeepAlive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopKeep == nil {
		return
	}
	m.stopKeep()
	<-m.keepDone
	m.stopKeep, m.keepDone = nil, nil
}

func (m *redisMutex) watch(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.config.watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		held, err := m.Extend(ctx, m.config.ttl)
		switch {
		case err != nil && ctx.Err() == nil:
			m.logger.Error("Lock watchdog could not extend", logging.Err(err))
			return
		case err != nil:
			return
		case !held:
			m.logger.Warn("Lock lost before release")
			return
		}
	}
}

//Personal.AI order the ending
