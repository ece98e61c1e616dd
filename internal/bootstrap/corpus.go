package bootstrap

import (
	"context"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/config"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/bulk"
	neo4jrepo "github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/neo4j/repositories"
	pgrepo "github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/search/opensearch"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

func unavailable(sink, component string) error {
	return errors.New(errors.ErrCodeValidation, "sink requires a component that is not enabled").
		WithDetailf("sink=%s component=%s", sink, component)
}

// Sinks builds the named corpus sinks.  Sinks that own a schema (the Neo4j
// constraints and the OpenSearch index) have it created here.
func (i *Infrastructure) Sinks(ctx context.Context, names []string) ([]corpus.Sink, error) {
	sinks := make([]corpus.Sink, 0, len(names))
	for _, name := range names {
		var sink corpus.Sink
		switch name {
		case config.SinkFile:
			fs, err := bulk.NewFileSink(i.Config.Corpus.FileDir)
			if err != nil {
				return nil, err
			}
			sink = fs
		case config.SinkMinIO:
			if i.MinIO == nil {
				return nil, unavailable(name, "minio")
			}
			sink = minio.NewCorpusSink(i.MinIO, i.Config.Storage.MinIO.Buckets.Corpus)
		case config.SinkKafka:
			if i.Producer == nil {
				return nil, unavailable(name, "kafka")
			}
			sink = kafka.NewEventSink(i.Producer, i.Config.Messaging.Kafka.Topics.Matched)
		case config.SinkOpenSearch:
			if i.OpenSearch == nil {
				return nil, unavailable(name, "opensearch")
			}
			idx := opensearch.NewIndexer(i.OpenSearch, i.Config.Search.OpenSearch.Indexer, i.Logger)
			if err := idx.EnsureIndex(ctx); err != nil {
				return nil, err
			}
			sink = idx
		case config.SinkPostgres:
			if i.Postgres == nil {
				return nil, unavailable(name, "postgres")
			}
			sink = pgrepo.NewCorpusMatchRepository(i.Postgres.Pool(), i.Logger)
		case config.SinkPostgresDocuments:
			if i.Postgres == nil {
				return nil, unavailable(name, "postgres")
			}
			sink = pgrepo.NewDocumentRepository(i.Postgres.Pool(), i.Logger)
		case config.SinkNeo4j:
			if i.Neo4j == nil {
				return nil, unavailable(name, "neo4j")
			}
			repo := neo4jrepo.NewGraphRepository(i.Neo4j, i.Logger)
			if err := repo.EnsureSchema(ctx); err != nil {
				return nil, err
			}
			sink = repo
		default:
			return nil, errors.New(errors.ErrCodeValidation, "unknown sink").WithDetailf("sink=%s", name)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

// Deduper returns the Redis duplicate filter when corpus.dedup is enabled,
// or nil.
func (i *Infrastructure) Deduper() corpus.Deduper {
	dedup := i.Config.Corpus.Dedup
	if !dedup.Enabled || i.Redis == nil {
		return nil
	}
	return redis.NewDeduper(i.Redis, dedup.Namespace, dedup.TTL)
}

// Lock returns a Redis lock named name that is held for at most
// corpus.lock_ttl and kept alive while held, or nil without Redis.
func (i *Infrastructure) Lock(name string) redis.DistributedLock {
	if i.Redis == nil {
		return nil
	}
	return redis.NewMutex(i.Redis, name, i.Logger,
		redis.WithLockTTL(i.Config.Corpus.LockTTL),
		redis.WithRetryCount(1),
		redis.WithWatchdog(true))
}

// CorpusMetrics adapts the application metrics for the corpus builder, or
// returns nil when metrics are disabled.
func (i *Infrastructure) CorpusMetrics() corpus.Metrics {
	if i.Metrics == nil {
		return nil
	}
	return prometheus.NewCorpusMetrics(i.Metrics)
}

// BuildOptions override the configured corpus settings for one build.
type BuildOptions struct {
	// Sinks replaces corpus.sinks when non-empty.
	Sinks []string
	// Workers replaces corpus.workers when positive.
	Workers int
}

// NewMatcher returns a ready ClassificationMatcher for the configured
// classifications.
func (i *Infrastructure) NewMatcher() (*corpus.ClassificationMatcher, error) {
	wanted, err := i.Config.Corpus.Wanted()
	if err != nil {
		return nil, err
	}
	m := corpus.NewClassificationMatcher(wanted,
		corpus.WithMatcherLogger(i.Logger),
		corpus.WithReaderOptions(parser.WithLogger(i.Logger), parser.WithMaxDocumentSize(i.Config.Parser.MaxDocumentSize)))
	if err := m.Setup(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewBuilder assembles a corpus Builder from the configuration: matcher,
// sinks, duplicate filter and metrics.
func (i *Infrastructure) NewBuilder(ctx context.Context, opts BuildOptions) (*corpus.Builder, error) {
	matcher, err := i.NewMatcher()
	if err != nil {
		return nil, err
	}

	names := i.Config.Corpus.Sinks
	if len(opts.Sinks) > 0 {
		names = opts.Sinks
	}
	sinks, err := i.Sinks(ctx, names)
	if err != nil {
		return nil, err
	}

	workers := i.Config.Corpus.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	builderOpts := []corpus.BuilderOption{
		corpus.WithWorkers(workers),
		corpus.WithSinks(sinks...),
		corpus.WithBuilderLogger(i.Logger),
		corpus.WithParserOptions(parser.WithMaxDocumentSize(i.Config.Parser.MaxDocumentSize)),
	}
	if d := i.Deduper(); d != nil {
		builderOpts = append(builderOpts, corpus.WithDeduper(d))
	}
	if m := i.CorpusMetrics(); m != nil {
		builderOpts = append(builderOpts, corpus.WithMetrics(m))
	}
	return corpus.NewBuilder(matcher, builderOpts...)
}

//Personal.AI order the ending
