// Package config defines the configuration of the patentdoc binaries.  Plain
// data types and validation live here; reading files and the environment is
// done by loader.go.
package config

import (
	"strings"
	"time"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/neo4j"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/search/opensearch"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// Sink names accepted in corpus.sinks.
const (
	SinkFile              = "file"
	SinkMinIO             = "minio"
	SinkKafka             = "kafka"
	SinkOpenSearch        = "opensearch"
	SinkPostgres          = "postgres"
	SinkPostgresDocuments = "postgres-documents"
	SinkNeo4j             = "neo4j"
)

// SinkNames lists every known sink in the order they are documented.
func SinkNames() []string {
	return []string{SinkFile, SinkMinIO, SinkKafka, SinkOpenSearch, SinkPostgres, SinkPostgresDocuments, SinkNeo4j}
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host               string        `mapstructure:"host" yaml:"host"`
	Port               int           `mapstructure:"port" yaml:"port"`
	Mode               string        `mapstructure:"mode" yaml:"mode"` // "debug" | "release" | "test"
	ReadTimeout        time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxBodySize        int64         `mapstructure:"max_body_size" yaml:"max_body_size"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	// ParseCacheTTL is how long parse results are cached in Redis.
	ParseCacheTTL time.Duration `mapstructure:"parse_cache_ttl" yaml:"parse_cache_ttl"`
	// RateLimitRPS is the sustained per-client request rate; zero disables
	// rate limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// GRPCConfig holds the gRPC health endpoint settings.
type GRPCConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	Port       int  `mapstructure:"port" yaml:"port"`
	Reflection bool `mapstructure:"reflection" yaml:"reflection"`
}

// WorkerConfig tunes the Kafka worker binary.
type WorkerConfig struct {
	// HealthPort serves /healthz, /readyz and /metrics.
	HealthPort     int           `mapstructure:"health_port" yaml:"health_port"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout" yaml:"handler_timeout"`
}

// ParserConfig bounds the document parsers.
type ParserConfig struct {
	MaxDocumentSize int64 `mapstructure:"max_document_size" yaml:"max_document_size"`
}

// DedupConfig controls the Redis backed duplicate filter of corpus runs.
type DedupConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Namespace string        `mapstructure:"namespace" yaml:"namespace"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// CorpusConfig describes a corpus build: which classifications to keep and
// where matched documents go.
type CorpusConfig struct {
	Workers int      `mapstructure:"workers" yaml:"workers"`
	Sinks   []string `mapstructure:"sinks" yaml:"sinks"`
	FileDir string   `mapstructure:"file_dir" yaml:"file_dir"`
	CPC     []string `mapstructure:"cpc" yaml:"cpc"`
	USPC    []string `mapstructure:"uspc" yaml:"uspc"`
	IPC     []string `mapstructure:"ipc" yaml:"ipc"`
	// LockTTL bounds how long one build holds the per-archive Redis lock.
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	Dedup   DedupConfig   `mapstructure:"dedup" yaml:"dedup"`
}

// Wanted parses the configured CPC, USPC and IPC codes.
func (c CorpusConfig) Wanted() ([]classification.Classification, error) {
	var out []classification.Classification
	for _, group := range []struct {
		scheme classification.Scheme
		codes  []string
	}{
		{classification.SchemeCPC, c.CPC},
		{classification.SchemeUSPC, c.USPC},
		{classification.SchemeIPC, c.IPC},
	} {
		parsed, err := classification.ParseList(group.scheme, group.codes)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed...)
	}
	return out, nil
}

// HasSink reports whether name is among the configured sinks.
func (c CorpusConfig) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

type PostgresConfig struct {
	Enabled                 bool `mapstructure:"enabled" yaml:"enabled"`
	postgres.PostgresConfig `mapstructure:",squash" yaml:",inline"`
}

type RedisConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	redis.RedisConfig `mapstructure:",squash" yaml:",inline"`
}

type Neo4jConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	neo4j.Neo4jConfig `mapstructure:",squash" yaml:",inline"`
}

// DatabaseConfig groups the stores the corpus and the API read and write.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j" yaml:"neo4j"`
}

type OpenSearchConfig struct {
	Enabled                 bool `mapstructure:"enabled" yaml:"enabled"`
	opensearch.ClientConfig `mapstructure:",squash" yaml:",inline"`
	Indexer                 opensearch.IndexerConfig  `mapstructure:"indexer" yaml:"indexer"`
	Searcher                opensearch.SearcherConfig `mapstructure:"searcher" yaml:"searcher"`
}

type SearchConfig struct {
	OpenSearch OpenSearchConfig `mapstructure:"opensearch" yaml:"opensearch"`
}

type MinIOConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	minio.MinIOConfig `mapstructure:",squash" yaml:",inline"`
}

type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio" yaml:"minio"`
}

// TopicsConfig names the Kafka topics.
type TopicsConfig struct {
	Raw        string `mapstructure:"raw" yaml:"raw"`
	Matched    string `mapstructure:"matched" yaml:"matched"`
	DeadLetter string `mapstructure:"dead_letter" yaml:"dead_letter"`
}

// KafkaConfig holds the broker list shared by the producer and the consumer.
type KafkaConfig struct {
	Enabled  bool                 `mapstructure:"enabled" yaml:"enabled"`
	Brokers  []string             `mapstructure:"brokers" yaml:"brokers"`
	GroupID  string               `mapstructure:"group_id" yaml:"group_id"`
	Topics   TopicsConfig         `mapstructure:"topics" yaml:"topics"`
	Producer kafka.ProducerConfig `mapstructure:"producer" yaml:"producer"`
	Consumer kafka.ConsumerConfig `mapstructure:"consumer" yaml:"consumer"`
}

// ProducerConfig returns the producer settings with the shared brokers.
func (k KafkaConfig) ProducerConfig() kafka.ProducerConfig {
	cfg := k.Producer
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = k.Brokers
	}
	return cfg
}

// TopicLayout returns the configured topics with their replication factor
// capped at replicas when replicas is positive.
func (k KafkaConfig) TopicLayout(replicas int) []kafka.TopicConfig {
	topics := kafka.TopicLayout(k.Topics.Raw, k.Topics.Matched, k.Topics.DeadLetter)
	if replicas > 0 {
		for i := range topics {
			if topics[i].ReplicationFactor > replicas {
				topics[i].ReplicationFactor = replicas
			}
		}
	}
	return topics
}

// ConsumerConfig returns the consumer settings subscribed to the raw topic,
// with dead letters going to the dead letter topic.
func (k KafkaConfig) ConsumerConfig() kafka.ConsumerConfig {
	cfg := k.Consumer
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = k.Brokers
	}
	if cfg.GroupID == "" {
		cfg.GroupID = k.GroupID
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = []string{k.Topics.Raw}
	}
	if cfg.Retry.DeadLetterTopic == "" {
		cfg.Retry.DeadLetterTopic = k.Topics.DeadLetter
	}
	return cfg
}

type MessagingConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka" yaml:"kafka"`
}

type PrometheusConfig struct {
	Enabled                     bool   `mapstructure:"enabled" yaml:"enabled"`
	Path                        string `mapstructure:"path" yaml:"path"`
	prometheus.CollectorConfig `mapstructure:",squash" yaml:",inline"`
}

type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus" yaml:"prometheus"`
}

// Config is the root configuration object.
type Config struct {
	Server     ServerConfig      `mapstructure:"server" yaml:"server"`
	GRPC       GRPCConfig        `mapstructure:"grpc" yaml:"grpc"`
	Worker     WorkerConfig      `mapstructure:"worker" yaml:"worker"`
	Log        logging.LogConfig `mapstructure:"log" yaml:"log"`
	Parser     ParserConfig      `mapstructure:"parser" yaml:"parser"`
	Corpus     CorpusConfig      `mapstructure:"corpus" yaml:"corpus"`
	Database   DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Search     SearchConfig      `mapstructure:"search" yaml:"search"`
	Storage    StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Messaging  MessagingConfig   `mapstructure:"messaging" yaml:"messaging"`
	Monitoring MonitoringConfig  `mapstructure:"monitoring" yaml:"monitoring"`
}

func invalid(key, format string, args ...any) error {
	return errors.New(errors.ErrCodeValidation, "invalid configuration").
		WithDetailf("%s: "+format, append([]any{key}, args...)...)
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

// Validate checks c for values that would make a binary fail later in a less
// obvious place.  Errors carry ErrCodeValidation and name the offending key.
func (c *Config) Validate() error {
	if !validPort(c.Server.Port) {
		return invalid("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.mode", "must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Server.MaxBodySize <= 0 {
		return invalid("server.max_body_size", "must be positive")
	}
	if c.Server.RateLimitRPS < 0 || (c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0) {
		return invalid("server.rate_limit_burst", "must be positive when server.rate_limit_rps is set")
	}
	if c.GRPC.Enabled {
		if !validPort(c.GRPC.Port) {
			return invalid("grpc.port", "must be between 1 and 65535, got %d", c.GRPC.Port)
		}
		if c.GRPC.Port == c.Server.Port {
			return invalid("grpc.port", "must differ from server.port")
		}
	}
	if !validPort(c.Worker.HealthPort) {
		return invalid("worker.health_port", "must be between 1 and 65535, got %d", c.Worker.HealthPort)
	}
	if c.Worker.HandlerTimeout <= 0 {
		return invalid("worker.handler_timeout", "must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format", "must be json or console, got %q", c.Log.Format)
	}

	if c.Parser.MaxDocumentSize <= 0 {
		return invalid("parser.max_document_size", "must be positive")
	}
	if err := c.validateCorpus(); err != nil {
		return err
	}

	if c.Database.Postgres.Enabled {
		if c.Database.Postgres.Host == "" {
			return invalid("database.postgres.host", "is required")
		}
		if c.Database.Postgres.Database == "" {
			return invalid("database.postgres.database", "is required")
		}
	}
	if c.Database.Neo4j.Enabled && c.Database.Neo4j.URI == "" {
		return invalid("database.neo4j.uri", "is required")
	}
	if c.Database.Redis.Enabled && c.Database.Redis.Addr == "" && len(c.Database.Redis.ClusterAddrs) == 0 && len(c.Database.Redis.SentinelAddrs) == 0 {
		return invalid("database.redis.addr", "is required")
	}
	if c.Search.OpenSearch.Enabled {
		if err := opensearch.ValidateConfig(c.Search.OpenSearch.ClientConfig); err != nil {
			return invalid("search.opensearch", "%v", err)
		}
	}
	if c.Storage.MinIO.Enabled {
		if c.Storage.MinIO.Endpoint == "" {
			return invalid("storage.minio.endpoint", "is required")
		}
		if c.Storage.MinIO.Buckets.Archives == "" || c.Storage.MinIO.Buckets.Corpus == "" {
			return invalid("storage.minio.buckets", "archives and corpus buckets are required")
		}
	}
	if c.Messaging.Kafka.Enabled {
		if len(c.Messaging.Kafka.Brokers) == 0 {
			return invalid("messaging.kafka.brokers", "at least one broker is required")
		}
		if c.Messaging.Kafka.Topics.Raw == "" || c.Messaging.Kafka.Topics.Matched == "" {
			return invalid("messaging.kafka.topics", "raw and matched topics are required")
		}
	}
	if c.Monitoring.Prometheus.Enabled && c.Monitoring.Prometheus.Namespace == "" {
		return invalid("monitoring.prometheus.namespace", "is required")
	}
	return nil
}

func (c *Config) validateCorpus() error {
	if c.Corpus.Workers < 1 {
		return invalid("corpus.workers", "must be at least 1, got %d", c.Corpus.Workers)
	}
	if _, err := c.Corpus.Wanted(); err != nil {
		return invalid("corpus", "%v", err)
	}
	if c.Corpus.Dedup.Enabled && !c.Database.Redis.Enabled {
		return invalid("corpus.dedup.enabled", "requires database.redis.enabled")
	}
	for _, name := range c.Corpus.Sinks {
		var requires string
		var enabled bool
		switch name {
		case SinkFile:
			if c.Corpus.FileDir == "" {
				return invalid("corpus.file_dir", "is required by the file sink")
			}
			continue
		case SinkMinIO:
			requires, enabled = "storage.minio.enabled", c.Storage.MinIO.Enabled
		case SinkKafka:
			requires, enabled = "messaging.kafka.enabled", c.Messaging.Kafka.Enabled
		case SinkOpenSearch:
			requires, enabled = "search.opensearch.enabled", c.Search.OpenSearch.Enabled
		case SinkPostgres, SinkPostgresDocuments:
			requires, enabled = "database.postgres.enabled", c.Database.Postgres.Enabled
		case SinkNeo4j:
			requires, enabled = "database.neo4j.enabled", c.Database.Neo4j.Enabled
		default:
			return invalid("corpus.sinks", "unknown sink %q, want one of %s", name, strings.Join(SinkNames(), ", "))
		}
		if !enabled {
			return invalid("corpus.sinks", "sink %q requires %s", name, requires)
		}
	}
	return nil
}

// Redacted returns a copy of c with passwords and secret keys masked, for
// printing.
func (c Config) Redacted() Config {
	const mask = "******"
	redact := func(s *string) {
		if *s != "" {
			*s = mask
		}
	}
	redact(&c.Database.Postgres.Password)
	redact(&c.Database.Redis.Password)
	redact(&c.Database.Neo4j.Password)
	redact(&c.Search.OpenSearch.Password)
	redact(&c.Storage.MinIO.SecretAccessKey)
	redact(&c.Messaging.Kafka.Producer.Security.SASLPassword)
	redact(&c.Messaging.Kafka.Consumer.Security.SASLPassword)
	return c
}

//Personal.AI order the ending
