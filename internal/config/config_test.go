package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/config"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

func TestConfig_Validate_Default(t *testing.T) {
	t.Parallel()
	assert.NoError(t, config.Default().Validate())
}

func TestConfig_Validate_Rejects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*config.Config)
		key    string
	}{
		{"port zero", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *config.Config) { c.Server.Port = 65536 }, "server.port"},
		{"mode", func(c *config.Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"grpc port clash", func(c *config.Config) { c.GRPC.Port = c.Server.Port }, "grpc.port"},
		{"rate limit burst", func(c *config.Config) { c.Server.RateLimitBurst = 0 }, "server.rate_limit_burst"},
		{"worker health port", func(c *config.Config) { c.Worker.HealthPort = 0 }, "worker.health_port"},
		{"handler timeout", func(c *config.Config) { c.Worker.HandlerTimeout = 0 }, "worker.handler_timeout"},
		{"log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"document size", func(c *config.Config) { c.Parser.MaxDocumentSize = 0 }, "parser.max_document_size"},
		{"workers", func(c *config.Config) { c.Corpus.Workers = 0 }, "corpus.workers"},
		{"bad cpc", func(c *config.Config) { c.Corpus.CPC = []string{"not a code"} }, "corpus"},
		{"unknown sink", func(c *config.Config) { c.Corpus.Sinks = []string{"s3"} }, "corpus.sinks"},
		{"sink without store", func(c *config.Config) { c.Corpus.Sinks = []string{config.SinkNeo4j} }, "database.neo4j.enabled"},
		{"file sink without dir", func(c *config.Config) { c.Corpus.FileDir = "" }, "corpus.file_dir"},
		{"dedup without redis", func(c *config.Config) { c.Corpus.Dedup.Enabled = true }, "database.redis.enabled"},
		{"postgres without host", func(c *config.Config) {
			c.Database.Postgres.Enabled = true
			c.Database.Postgres.Host = ""
		}, "database.postgres.host"},
		{"kafka without brokers", func(c *config.Config) {
			c.Messaging.Kafka.Enabled = true
			c.Messaging.Kafka.Brokers = nil
		}, "messaging.kafka.brokers"},
		{"minio without buckets", func(c *config.Config) {
			c.Storage.MinIO.Enabled = true
			c.Storage.MinIO.Buckets.Corpus = ""
		}, "storage.minio.buckets"},
		{"opensearch without addresses", func(c *config.Config) {
			c.Search.OpenSearch.Enabled = true
			c.Search.OpenSearch.Addresses = nil
		}, "search.opensearch"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestConfig_Validate_SinksWithStores(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Corpus.Sinks = config.SinkNames()
	cfg.Database.Postgres.Enabled = true
	cfg.Database.Neo4j.Enabled = true
	cfg.Search.OpenSearch.Enabled = true
	cfg.Storage.MinIO.Enabled = true
	cfg.Messaging.Kafka.Enabled = true
	assert.NoError(t, cfg.Validate())
}

func TestCorpusConfig_Wanted(t *testing.T) {
	t.Parallel()
	c := config.CorpusConfig{
		CPC:  []string{"H04N 21/4722", ""},
		USPC: []string{"725/38"},
		IPC:  []string{"G06F 3/01"},
	}
	wanted, err := c.Wanted()
	require.NoError(t, err)
	require.Len(t, wanted, 3)
	assert.Equal(t, classification.SchemeCPC, wanted[0].Scheme())
	assert.Equal(t, classification.SchemeUSPC, wanted[1].Scheme())
	assert.Equal(t, classification.SchemeIPC, wanted[2].Scheme())

	assert.False(t, c.HasSink(config.SinkFile))
}

func TestConfig_Redacted(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Database.Postgres.Password = "secret"
	cfg.Storage.MinIO.SecretAccessKey = "key"

	r := cfg.Redacted()
	assert.Equal(t, "******", r.Database.Postgres.Password)
	assert.Equal(t, "******", r.Storage.MinIO.SecretAccessKey)
	assert.Empty(t, r.Database.Neo4j.Password)
	assert.Equal(t, "secret", cfg.Database.Postgres.Password)
}

func TestKafkaConfig_TopicLayout(t *testing.T) {
	t.Parallel()
	k := config.Default().Messaging.Kafka
	k.Topics.Matched = "matched.docs"

	full := k.TopicLayout(0)
	require.Len(t, full, 3)
	assert.Equal(t, "matched.docs", full[1].Name)
	assert.Equal(t, 3, full[0].ReplicationFactor)

	for _, tc := range k.TopicLayout(1) {
		assert.Equal(t, 1, tc.ReplicationFactor, tc.Name)
	}
}

//Personal.AI order the ending
