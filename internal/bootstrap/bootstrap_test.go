package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/config"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Corpus.FileDir = t.TempDir()
	cfg.Corpus.USPC = []string{"310/1"}
	cfg.Corpus.Workers = 2
	return cfg
}

func TestOpen_Defaults(t *testing.T) {
	infra, err := Open(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer infra.Close()

	assert.Equal(t, []string{"metrics"}, infra.Components())
	assert.Empty(t, infra.HealthChecks())
	assert.Nil(t, infra.Deduper())
	assert.Nil(t, infra.Lock("archive"))
	require.NotNil(t, infra.CorpusMetrics())
	assert.Nil(t, infra.ParseCache())
	assert.Nil(t, infra.DocumentStore())
	assert.Nil(t, infra.MatchStore())
	assert.Nil(t, infra.Graph())
	assert.Nil(t, infra.Searcher())

	rec := httptest.NewRecorder()
	infra.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpen_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Monitoring.Prometheus.Enabled = false
	infra, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer infra.Close()

	assert.Empty(t, infra.Components())
	assert.Nil(t, infra.MetricsHandler())
	assert.Nil(t, infra.CorpusMetrics())
}

func TestOpen_RedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Database.Redis.Enabled = true
	cfg.Database.Redis.Addr = addr
	cfg.Database.Redis.DialTimeout = 200 * time.Millisecond
	cfg.Database.Redis.MaxRetries = -1

	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initializing redis")
}

func TestInfrastructure_RedisComponents(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Database.Redis.Enabled = true
	cfg.Database.Redis.Addr = mr.Addr()
	cfg.Corpus.Dedup.Enabled = true

	infra, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer infra.Close()

	assert.Contains(t, infra.Components(), "redis")
	check, ok := infra.HealthChecks()["redis"]
	require.True(t, ok)
	assert.NoError(t, check(context.Background()))

	d := infra.Deduper()
	require.NotNil(t, d)
	seen, err := d.Seen(context.Background(), "US3930584")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.True(t, mr.Exists("patentdoc:seen:corpus:US3930584"))

	lock := infra.Lock("pftaps19760106")
	require.NotNil(t, lock)
	ok, err = lock.TryLock(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	other, err := infra.Lock("pftaps19760106").TryLock(context.Background())
	require.NoError(t, err)
	assert.False(t, other)
	require.NoError(t, lock.Unlock(context.Background()))

	cache := infra.ParseCache()
	require.NotNil(t, cache)
	require.NoError(t, cache.Set(context.Background(), "k", map[string]int{"n": 1}, time.Minute))
	var got map[string]int
	require.NoError(t, cache.Get(context.Background(), "k", &got))
	assert.Equal(t, 1, got["n"])
}

func TestInfrastructure_Sinks(t *testing.T) {
	infra, err := Open(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer infra.Close()

	sinks, err := infra.Sinks(context.Background(), []string{config.SinkFile})
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	assert.Equal(t, "file", sinks[0].Name())

	for _, name := range []string{config.SinkMinIO, config.SinkKafka, config.SinkOpenSearch, config.SinkPostgres, config.SinkPostgresDocuments, config.SinkNeo4j, "s3"} {
		_, err := infra.Sinks(context.Background(), []string{name})
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), name)
	}
}

type sliceSource []corpus.RawDocument

func (s sliceSource) Walk(ctx context.Context, fn func(corpus.RawDocument) error) error {
	for _, d := range s {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func TestInfrastructure_NewBuilder(t *testing.T) {
	cfg := testConfig(t)
	infra, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer infra.Close()

	b, err := infra.NewBuilder(context.Background(), BuildOptions{Workers: 1})
	require.NoError(t, err)

	src := sliceSource{
		{Name: "pftaps.txt#1", Format: parser.FormatGreenbook, Content: []byte("PATN\nWKU  039305848\nTTL  MOTOR\nCLAS\nOCL  310112\n")},
		{Name: "pftaps.txt#2", Format: parser.FormatGreenbook, Content: []byte("PATN\nWKU  039305856\nTTL  PUMP\nCLAS\nOCL  318  7\n")},
	}
	summary, err := b.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Parsed)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.ByProvenance[corpus.ProvenanceUSPC])

	records, err := filepath.Glob(filepath.Join(cfg.Corpus.FileDir, summary.Run.String(), "*.json"))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = infra.NewBuilder(context.Background(), BuildOptions{Sinks: []string{config.SinkNeo4j}})
	assert.Error(t, err)
}

//Personal.AI order the ending
