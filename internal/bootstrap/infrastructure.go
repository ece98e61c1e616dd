// Package bootstrap opens the stores and clients enabled in the configuration
// and assembles the corpus pipeline on top of them.  It is shared by the
// patentdoc CLI, the API server and the worker.
package bootstrap

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/turtacn/KeyIP-PatentDoc/internal/config"
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

// closeTimeout bounds the shutdown of each component.
const closeTimeout = 10 * time.Second

// Infrastructure holds the clients of every enabled component.  Fields of
// disabled components are nil.
type Infrastructure struct {
	Config *config.Config
	Logger logging.Logger

	Postgres   *postgres.Connection
	Neo4j      *neo4j.Driver
	Redis      *redis.Client
	MinIO      *minio.MinIOClient
	OpenSearch *opensearch.Client
	Producer   *kafka.Producer

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
}

// Open connects to every component enabled in cfg.  On failure the
// components opened so far are closed again.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*Infrastructure, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	infra := &Infrastructure{Config: cfg, Logger: log}

	fail := func(component string, err error) (*Infrastructure, error) {
		infra.Close()
		return nil, errors.Wrap(err, errors.GetCode(err), "initializing "+component)
	}

	if cfg.Monitoring.Prometheus.Enabled {
		collector, err := prometheus.NewMetricsCollector(cfg.Monitoring.Prometheus.CollectorConfig, log)
		if err != nil {
			return fail("metrics", err)
		}
		infra.Collector = collector
		infra.Metrics = prometheus.NewAppMetrics(collector)
	}

	if cfg.Database.Postgres.Enabled {
		conn, err := postgres.NewConnection(ctx, cfg.Database.Postgres.PostgresConfig, log)
		if err != nil {
			return fail("postgres", err)
		}
		infra.Postgres = conn
	}
	if cfg.Database.Neo4j.Enabled {
		drv, err := neo4j.NewDriver(ctx, cfg.Database.Neo4j.Neo4jConfig, log)
		if err != nil {
			return fail("neo4j", err)
		}
		infra.Neo4j = drv
	}
	if cfg.Database.Redis.Enabled {
		redisCfg := cfg.Database.Redis.RedisConfig
		client, err := redis.NewClient(&redisCfg, log)
		if err != nil {
			return fail("redis", err)
		}
		infra.Redis = client
	}
	if cfg.Storage.MinIO.Enabled {
		minioCfg := cfg.Storage.MinIO.MinIOConfig
		client, err := minio.NewMinIOClient(&minioCfg, log)
		if err != nil {
			return fail("minio", err)
		}
		infra.MinIO = client
	}
	if cfg.Search.OpenSearch.Enabled {
		client, err := opensearch.NewClient(cfg.Search.OpenSearch.ClientConfig, log)
		if err != nil {
			return fail("opensearch", err)
		}
		infra.OpenSearch = client
	}
	if cfg.Messaging.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Messaging.Kafka.ProducerConfig(), log)
		if err != nil {
			return fail("kafka", err)
		}
		infra.Producer = producer
	}

	log.Info("Infrastructure initialized", logging.Strings("components", infra.Components()))
	return infra, nil
}

// Components names the opened components.
func (i *Infrastructure) Components() []string {
	var out []string
	for name, ok := range map[string]bool{
		"metrics":    i.Collector != nil,
		"postgres":   i.Postgres != nil,
		"neo4j":      i.Neo4j != nil,
		"redis":      i.Redis != nil,
		"minio":      i.MinIO != nil,
		"opensearch": i.OpenSearch != nil,
		"kafka":      i.Producer != nil,
	} {
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// HealthChecks returns a probe per opened store.
func (i *Infrastructure) HealthChecks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	if i.Postgres != nil {
		checks["postgres"] = i.Postgres.HealthCheck
	}
	if i.Neo4j != nil {
		checks["neo4j"] = i.Neo4j.HealthCheck
	}
	if i.Redis != nil {
		checks["redis"] = i.Redis.Ping
	}
	if i.MinIO != nil {
		client := i.MinIO
		checks["minio"] = func(ctx context.Context) error {
			_, err := client.HealthCheck(ctx)
			return err
		}
	}
	if i.OpenSearch != nil {
		checks["opensearch"] = i.OpenSearch.HealthCheck
	}
	return checks
}

// MetricsHandler serves the Prometheus registry, or nil when metrics are
// disabled.
func (i *Infrastructure) MetricsHandler() http.Handler {
	if i.Collector == nil {
		return nil
	}
	return i.Collector.Handler()
}

// Close releases every opened component.  It is safe to call on a partially
// opened Infrastructure.
func (i *Infrastructure) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	warn := func(component string, err error) {
		if err != nil {
			i.Logger.Warn("Closing component failed", logging.String("component", component), logging.Err(err))
		}
	}
	if i.Producer != nil {
		warn("kafka", i.Producer.Close())
	}
	if i.OpenSearch != nil {
		warn("opensearch", i.OpenSearch.Close())
	}
	if i.MinIO != nil {
		warn("minio", i.MinIO.Close())
	}
	if i.Redis != nil {
		warn("redis", i.Redis.Close())
	}
	if i.Neo4j != nil {
		warn("neo4j", i.Neo4j.Close(ctx))
	}
	if i.Postgres != nil {
		i.Postgres.Close()
	}
}

//Personal.AI order the ending
