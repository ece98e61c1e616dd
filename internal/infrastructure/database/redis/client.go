// Package redis backs the parse cache, the corpus duplicate filter and the
// per-archive build lock.  Every key lives under KeyPrefix.
package redis

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

var (
	ErrClientClosed     = errors.New(errors.ErrCodeCacheError, "redis client is closed")
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "redis connection failed")
)

// KeyPrefix namespaces every key written by patentdoc.
const KeyPrefix = "patentdoc:"

// Key joins parts under KeyPrefix: Key("seen", "corpus", id) is
// "patentdoc:seen:corpus:<id>".
func Key(parts ...string) string {
	return KeyPrefix + strings.Join(parts, ":")
}

// pingTimeout bounds the connectivity check in NewClient.
const pingTimeout = 5 * time.Second

type RedisConfig struct {
	Mode            string        `mapstructure:"mode"` // standalone, sentinel, cluster
	Addr            string        `mapstructure:"addr"`
	MasterName      string        `mapstructure:"master_name"`
	SentinelAddrs   []string      `mapstructure:"sentinel_addrs"`
	ClusterAddrs    []string      `mapstructure:"cluster_addrs"`
	Password        string        `mapstructure:"password"`
	Username        string        `mapstructure:"username"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	MaxIdleTime     time.Duration `mapstructure:"max_idle_time"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	TLSEnabled      bool          `mapstructure:"tls_enabled"`
	TLSCertFile     string        `mapstructure:"tls_cert_file"`
	TLSKeyFile      string        `mapstructure:"tls_key_file"`
	TLSCAFile       string        `mapstructure:"tls_ca_file"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// withDefaults returns a copy of cfg with zero tunables filled in.
func (cfg RedisConfig) withDefaults() RedisConfig {
	orDuration := func(v *time.Duration, d time.Duration) {
		if *v == 0 {
			*v = d
		}
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10 * runtime.GOMAXPROCS(0)
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = 2
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	orDuration(&cfg.MaxIdleTime, 5*time.Minute)
	orDuration(&cfg.DialTimeout, 5*time.Second)
	orDuration(&cfg.ReadTimeout, 3*time.Second)
	orDuration(&cfg.WriteTimeout, 3*time.Second)
	orDuration(&cfg.MinRetryBackoff, 8*time.Millisecond)
	orDuration(&cfg.MaxRetryBackoff, 512*time.Millisecond)
	return cfg
}

// addrs returns the seed addresses for the configured mode.
func (cfg RedisConfig) addrs() []string {
	switch cfg.Mode {
	case "cluster":
		return cfg.ClusterAddrs
	case "sentinel":
		return cfg.SentinelAddrs
	default:
		return []string{cfg.Addr}
	}
}

func (cfg RedisConfig) tlsConfig() (*tls.Config, error) {
	if !cfg.TLSEnabled {
		return nil, nil
	}
	tc := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "loading redis client certificate")
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	if cfg.TLSCAFile != "" {
		pem, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "reading redis CA bundle")
		}
		pool := x509.NewCertPool()
		pool.AppendCertsFromPEM(pem)
		tc.RootCAs = pool
	}
	return tc, nil
}

// universalOptions maps cfg onto go-redis.
func (cfg RedisConfig) universalOptions(tc *tls.Config) *redis.UniversalOptions {
	opts := &redis.UniversalOptions{
		Addrs:           cfg.addrs(),
		Username:        cfg.Username,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		ConnMaxIdleTime: cfg.MaxIdleTime,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		TLSConfig:       tc,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	}
	if cfg.Mode == "sentinel" {
		opts.MasterName = cfg.MasterName
	}
	if cfg.Mode == "cluster" {
		opts.DB = 0
	}
	return opts
}

// Client is a closable handle on a go-redis universal client.
type Client struct {
	rdb    redis.UniversalClient
	config RedisConfig
	logger logging.Logger
	closed atomic.Bool
}

// NewClient connects according to cfg and pings the server once.
func NewClient(cfg *RedisConfig, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := cfg.withDefaults()
	switch c.Mode {
	case "", "standalone", "sentinel", "cluster":
	default:
		log.Warn("Unknown redis mode, using standalone", logging.String("mode", c.Mode))
		c.Mode = "standalone"
	}

	tc, err := c.tlsConfig()
	if err != nil {
		return nil, err
	}
	// NewUniversalClient only selects cluster mode for several seeds, so a
	// single seed cluster is built explicitly.
	opts := c.universalOptions(tc)
	var rdb redis.UniversalClient
	if c.Mode == "cluster" {
		rdb = redis.NewClusterClient(opts.Cluster())
	} else {
		rdb = redis.NewUniversalClient(opts)
	}
	client := &Client{rdb: rdb, config: c, logger: log}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		rdb.Close()
		return nil, ErrConnectionFailed.WithCause(err).WithDetailf("addrs=%s", strings.Join(c.addrs(), ","))
	}

	log.Info("Redis client connected",
		logging.String("mode", c.Mode),
		logging.Strings("addrs", c.addrs()))
	return client, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.rdb.Ping(ctx).Err()
}

// Close is idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Closing Redis client failed", logging.Err(err))
		return err
	}
	c.logger.Info("Redis client closed")
	return nil
}

// Underlying returns the go-redis client, or ErrClientClosed once closed.
func (c *Client) Underlying() (redis.UniversalClient, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.rdb, nil
}

//Personal.AI order the ending
