package config

import (
	"time"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/neo4j"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/search/opensearch"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
)

// Default values.
const (
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultServerMode      = "release"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultParseCacheTTL   = time.Hour
	DefaultRateLimitRPS    = 20
	DefaultRateLimitBurst  = 40

	DefaultGRPCPort = 9090

	DefaultWorkerHealthPort     = 8081
	DefaultWorkerHandlerTimeout = 5 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultCorpusWorkers = 4
	DefaultCorpusDir     = "./corpus"
	DefaultLockTTL       = 30 * time.Minute
	DefaultDedupTTL      = 30 * 24 * time.Hour

	DefaultMetricsNamespace = "patentdoc"
	DefaultMetricsPath      = "/metrics"
)

// Default returns the configuration used when neither a file nor the
// environment sets a key.  Every external store starts disabled, so the
// defaults alone run the parser and a file sink corpus build.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               DefaultServerHost,
			Port:               DefaultServerPort,
			Mode:               DefaultServerMode,
			ReadTimeout:        DefaultReadTimeout,
			WriteTimeout:       DefaultWriteTimeout,
			MaxBodySize:        parser.DefaultMaxDocumentSize,
			ShutdownTimeout:    DefaultShutdownTimeout,
			CORSAllowedOrigins: []string{"*"},
			ParseCacheTTL:      DefaultParseCacheTTL,
			RateLimitRPS:       DefaultRateLimitRPS,
			RateLimitBurst:     DefaultRateLimitBurst,
		},
		GRPC: GRPCConfig{Enabled: true, Port: DefaultGRPCPort, Reflection: true},
		Worker: WorkerConfig{
			HealthPort:     DefaultWorkerHealthPort,
			HandlerTimeout: DefaultWorkerHandlerTimeout,
		},
		Log: logging.LogConfig{
			Level:            DefaultLogLevel,
			Format:           DefaultLogFormat,
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		},
		Parser: ParserConfig{MaxDocumentSize: parser.DefaultMaxDocumentSize},
		Corpus: CorpusConfig{
			Workers: DefaultCorpusWorkers,
			Sinks:   []string{SinkFile},
			FileDir: DefaultCorpusDir,
			LockTTL: DefaultLockTTL,
			Dedup:   DedupConfig{Namespace: "corpus", TTL: DefaultDedupTTL},
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{PostgresConfig: postgres.PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				Database:        "patentdoc",
				Username:        "patentdoc",
				SSLMode:         "disable",
				MaxConns:        25,
				MinConns:        2,
				ConnMaxLifetime: time.Hour,
				ConnMaxIdleTime: 30 * time.Minute,
				ConnectTimeout:  10 * time.Second,
			}},
			Redis: RedisConfig{RedisConfig: redis.RedisConfig{
				Mode:         "standalone",
				Addr:         "localhost:6379",
				PoolSize:     20,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
				MaxRetries:   3,
			}},
			Neo4j: Neo4jConfig{Neo4jConfig: neo4j.Neo4jConfig{
				URI:                          "bolt://localhost:7687",
				Username:                     "neo4j",
				Database:                     "neo4j",
				MaxConnectionPoolSize:        50,
				MaxConnectionLifetime:        time.Hour,
				ConnectionAcquisitionTimeout: time.Minute,
				ConnectTimeout:               10 * time.Second,
			}},
		},
		Search: SearchConfig{OpenSearch: OpenSearchConfig{
			ClientConfig: opensearch.ClientConfig{
				Addresses:           []string{"http://localhost:9200"},
				MaxRetries:          3,
				RetryBackoff:        100 * time.Millisecond,
				RequestTimeout:      30 * time.Second,
				MaxIdleConnsPerHost: 10,
				HealthCheckInterval: 30 * time.Second,
			},
			Indexer: opensearch.IndexerConfig{
				Index:         opensearch.DefaultIndex,
				BulkBatchSize: 500,
				RefreshPolicy: "false",
				Shards:        1,
				Replicas:      0,
			},
			Searcher: opensearch.SearcherConfig{
				Index:                   opensearch.DefaultIndex,
				DefaultPageSize:         20,
				MaxPageSize:             100,
				DefaultHighlightPreTag:  "<em>",
				DefaultHighlightPostTag: "</em>",
				SearchTimeout:           10 * time.Second,
			},
		}},
		Storage: StorageConfig{MinIO: MinIOConfig{MinIOConfig: minio.MinIOConfig{
			Endpoint: "localhost:9000",
			Region:   "us-east-1",
			Buckets: minio.BucketConfig{
				Archives: "patentdoc-archives",
				Corpus:   "patentdoc-corpus",
			},
			ConnectTimeout: 10 * time.Second,
		}}},
		Messaging: MessagingConfig{Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			GroupID: "patentdoc-worker",
			Topics: TopicsConfig{
				Raw:        kafka.TopicRawDocuments,
				Matched:    kafka.TopicDocumentMatched,
				DeadLetter: kafka.TopicDeadLetterRaw,
			},
			Producer: kafka.ProducerConfig{
				Acks:             "all",
				MaxRetries:       3,
				BatchSize:        100,
				BatchTimeout:     10 * time.Millisecond,
				MaxMessageBytes:  int(parser.DefaultMaxDocumentSize),
				CompressionCodec: "snappy",
				WriteTimeout:     10 * time.Second,
			},
			Consumer: kafka.ConsumerConfig{
				AutoOffsetReset:   "earliest",
				SessionTimeout:    30 * time.Second,
				HeartbeatInterval: 3 * time.Second,
				MaxWait:           time.Second,
				FetchMinBytes:     1,
				FetchMaxBytes:     int(parser.DefaultMaxDocumentSize),
				IsolationLevel:    "read_committed",
				Retry: kafka.RetryConfig{
					MaxRetries:      3,
					RetryBackoff:    time.Second,
					MaxRetryBackoff: 30 * time.Second,
				},
			},
		}},
		Monitoring: MonitoringConfig{Prometheus: PrometheusConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
			CollectorConfig: prometheus.CollectorConfig{
				Namespace:            DefaultMetricsNamespace,
				EnableProcessMetrics: true,
				EnableGoMetrics:      true,
			},
		}},
	}
}

//Personal.AI order the ending
