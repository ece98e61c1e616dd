package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// newTestClient starts a miniredis server for the duration of the test.
func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestNewClient_Standalone_Success(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, 3, client.config.MaxRetries)
}

func TestNewClient_Standalone_ConnectionFailed(t *testing.T) {
	client, err := NewClient(&RedisConfig{Mode: "standalone", Addr: "localhost:1"}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	assert.Nil(t, client)
}

func TestNewClient_TLSMissingCA(t *testing.T) {
	_, err := NewClient(&RedisConfig{Addr: "localhost:6379", TLSEnabled: true, TLSCAFile: "/nonexistent/ca.pem"}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "patentdoc:seen:corpus:US3930584A", Key("seen", "corpus", "US3930584A"))
	assert.Equal(t, "patentdoc:cache:", Key("cache", ""))
}

func TestRedisConfig_UniversalOptions(t *testing.T) {
	cluster := RedisConfig{Mode: "cluster", ClusterAddrs: []string{"a:1", "b:1"}, DB: 3}.universalOptions(nil)
	assert.Equal(t, []string{"a:1", "b:1"}, cluster.Addrs)
	assert.Zero(t, cluster.DB)

	sentinel := RedisConfig{Mode: "sentinel", MasterName: "m", SentinelAddrs: []string{"s:26379"}}.universalOptions(nil)
	assert.Equal(t, "m", sentinel.MasterName)
	assert.Equal(t, []string{"s:26379"}, sentinel.Addrs)

	standalone := RedisConfig{Addr: "localhost:6379", MasterName: "ignored"}.withDefaults().universalOptions(nil)
	assert.Empty(t, standalone.MasterName)
	assert.Equal(t, 3, standalone.MaxRetries)
}

func TestClient_Close(t *testing.T) {
	client, _ := newTestClient(t)
	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	assert.ErrorIs(t, client.Ping(context.Background()), ErrClientClosed)
	_, err := client.Underlying()
	assert.ErrorIs(t, err, ErrClientClosed)
}

//Personal.AI order the ending
