package bootstrap

import (
	neo4jrepo "github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/neo4j/repositories"
	pgrepo "github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/search/opensearch"
)

// Read-side accessors used by the API server.  Each returns nil when its
// component is disabled.

// ParseCache returns the Redis cache for parse results.
func (i *Infrastructure) ParseCache() redis.Cache {
	if i.Redis == nil {
		return nil
	}
	return redis.NewRedisCache(i.Redis, i.Logger, redis.WithDefaultTTL(i.Config.Server.ParseCacheTTL))
}

// DocumentStore returns the Postgres document repository.
func (i *Infrastructure) DocumentStore() *pgrepo.DocumentRepository {
	if i.Postgres == nil {
		return nil
	}
	return pgrepo.NewDocumentRepository(i.Postgres.Pool(), i.Logger)
}

// MatchStore returns the Postgres corpus match repository.
func (i *Infrastructure) MatchStore() *pgrepo.CorpusMatchRepository {
	if i.Postgres == nil {
		return nil
	}
	return pgrepo.NewCorpusMatchRepository(i.Postgres.Pool(), i.Logger)
}

// Graph returns the Neo4j citation graph.
func (i *Infrastructure) Graph() *neo4jrepo.GraphRepository {
	if i.Neo4j == nil {
		return nil
	}
	return neo4jrepo.NewGraphRepository(i.Neo4j, i.Logger)
}

// Searcher returns the OpenSearch document searcher.
func (i *Infrastructure) Searcher() *opensearch.Searcher {
	if i.OpenSearch == nil {
		return nil
	}
	return opensearch.NewSearcher(i.OpenSearch, i.Config.Search.OpenSearch.Searcher, i.Logger)
}

//Personal.AI order the ending
