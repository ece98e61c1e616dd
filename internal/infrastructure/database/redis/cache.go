package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "serialization failed")
)

// Cache stores JSON encoded values.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	Ping(ctx context.Context) error
}

// DefaultCompressThreshold is the encoded size above which values are
// stored zstd compressed.  Parsed grant documents routinely exceed it.
const DefaultCompressThreshold = 8 << 10

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	zenc, _   = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zdec, _   = zstd.NewReader(nil)
)

type redisCache struct {
	client       *Client
	logger       logging.Logger
	prefix       string
	defaultTTL   time.Duration
	compressAt   int
	singleflight singleflight.Group
}

type CacheOption func(*redisCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

// WithCompressThreshold sets the size above which values are compressed.
// Zero or less disables compression.
func WithCompressThreshold(n int) CacheOption {
	return func(c *redisCache) { c.compressAt = n }
}

func NewRedisCache(client *Client, log logging.Logger, opts ...CacheOption) Cache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &redisCache{
		client:     client,
		logger:     log,
		prefix:     Key("cache", ""),
		defaultTTL: 15 * time.Minute,
		compressAt: DefaultCompressThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string {
	return c.prefix + key
}

// jitterTTL spreads expiry by +/- 10% so entries written together do not
// expire together.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

func (c *redisCache) encode(data []byte) []byte {
	if c.compressAt <= 0 || len(data) <= c.compressAt {
		return data
	}
	return zenc.EncodeAll(data, make([]byte, 0, len(data)/4))
}

// decode accepts both forms; JSON never starts with the zstd magic.
func decode(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	return zdec.DecodeAll(data, nil)
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	rdb, err := c.client.Underlying()
	if err != nil {
		return err
	}
	data, err := rdb.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	if data, err = decode(data); err != nil {
		return ErrSerializationFailed.WithCause(err).WithDetailf("key=%s", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed.WithCause(err).WithDetailf("key=%s", key)
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	rdb, err := c.client.Underlying()
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed.WithCause(err).WithDetailf("key=%s", key)
	}
	if err := rdb.Set(ctx, c.fullKey(key), c.encode(data), jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	rdb, err := c.client.Underlying()
	if err != nil {
		return err
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := rdb.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete from cache")
	}
	return nil
}

// GetOrSet reads key into dest, calling loader on a miss.  Concurrent misses
// for one key share a single loader call.  Cache failures degrade to calling
// loader; loader errors are returned unchanged and never cached.
func (c *redisCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("Cache read failed, loading", logging.String("key", key), logging.Err(err))
	}

	val, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		data, mErr := json.Marshal(v)
		if mErr != nil {
			return nil, ErrSerializationFailed.WithCause(mErr).WithDetailf("key=%s", key)
		}
		if setErr := c.Set(ctx, key, json.RawMessage(data), ttl); setErr != nil {
			c.logger.Warn("Failed to set cache in GetOrSet", logging.String("key", key), logging.Err(setErr))
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	if uErr := json.Unmarshal(val.([]byte), dest); uErr != nil {
		return ErrSerializationFailed.WithCause(uErr).WithDetailf("key=%s", key)
	}
	return nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

//Personal.AI order the ending
