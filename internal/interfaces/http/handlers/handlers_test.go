package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	pgrepo "github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/search/opensearch"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

const motorDoc = `PATN
WKU  039305848
APN  4726219
APD  19750326
TTL  DUAL SPEED MOTOR
ISD  19760106
CLAS
OCL  310112
XCL  318  7
CLMS
NUM  1.
PAL  A dual speed motor comprising a stator.
NUM  2.
PAL  The motor of claim 1 further comprising a rotor.
NUM  3.
PAL  A washing machine comprising a drum.
`

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(register func(rg *gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	register(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (m *memCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return errors.NotFound("cache miss")
	}
	return json.Unmarshal(b, dest)
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = b
	m.sets++
	return nil
}

func documentHandler(t *testing.T, cache ParseCache, wanted ...classification.Classification) *gin.Engine {
	t.Helper()
	h := NewDocumentHandler(DocumentHandlerConfig{
		MaxDocumentSize: 1 << 16,
		Wanted:          wanted,
		Cache:           cache,
		CacheTTL:        time.Minute,
	}, nil)
	return newEngine(h.RegisterRoutes)
}

// ─────────────────────────────────────────────────────────────────────────────
// DocumentHandler
// ─────────────────────────────────────────────────────────────────────────────

func TestDocumentHandler_Parse(t *testing.T) {
	r := documentHandler(t, nil)
	w := do(t, r, http.MethodPost, "/api/v1/documents/parse", motorDoc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rec := decode[map[string]any](t, w)
	assert.Equal(t, "grant", rec["lifecycle"])
	assert.Len(t, rec["claims"], 3)
	assert.Empty(t, w.Header().Get("X-Cache"))
}

func TestDocumentHandler_ParseCached(t *testing.T) {
	cache := &memCache{}
	r := documentHandler(t, cache)

	first := do(t, r, http.MethodPost, "/api/v1/documents/parse?format=greenbook", motorDoc)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Cache"))
	assert.Equal(t, 1, cache.sets)

	second := do(t, r, http.MethodPost, "/api/v1/documents/parse?format=greenbook", motorDoc)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, cache.sets)
}

func TestDocumentHandler_ParseErrors(t *testing.T) {
	r := documentHandler(t, nil)
	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   errors.ErrorCode
	}{
		{"empty body", "/api/v1/documents/parse", "  ", http.StatusUnprocessableEntity, errors.ErrCodeValidation},
		{"undetectable", "/api/v1/documents/parse", "plain text", http.StatusBadRequest, errors.ErrCodeUnsupportedFormat},
		{"unknown format", "/api/v1/documents/parse?format=pdf", motorDoc, http.StatusBadRequest, errors.ErrCodeUnsupportedFormat},
		{"too large", "/api/v1/documents/parse", strings.Repeat("x", 1<<16+1), http.StatusRequestEntityTooLarge, errors.ErrCodeDocumentTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, tt.code.String(), resp.Code)
		})
	}
}

func TestDocumentHandler_Match(t *testing.T) {
	r := documentHandler(t, nil)
	w := do(t, r, http.MethodPost, "/api/v1/documents/match?uspc=310/1", motorDoc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[MatchResponse](t, w)
	assert.True(t, resp.Matched)
	assert.Equal(t, "uspc", resp.Provenance)
	assert.Equal(t, "US3930584A", resp.Document)
	assert.Equal(t, "greenbook", resp.Format)

	w = do(t, r, http.MethodPost, "/api/v1/documents/match?cpc=H04N21/00,G06F3/00", motorDoc)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[MatchResponse](t, w).Matched)
}

func TestDocumentHandler_MatchConfiguredClassifications(t *testing.T) {
	wanted, err := classification.ParseUSPC("318/1")
	require.NoError(t, err)
	r := documentHandler(t, nil, wanted)

	w := do(t, r, http.MethodPost, "/api/v1/documents/match", motorDoc)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[MatchResponse](t, w).Matched)
}

func TestDocumentHandler_MatchErrors(t *testing.T) {
	r := documentHandler(t, nil)

	w := do(t, r, http.MethodPost, "/api/v1/documents/match", motorDoc)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/documents/match?cpc=not-a-symbol", motorDoc)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrCodeInvalidClassification.String(), decode[ErrorResponse](t, w).Code)
}

func TestDocumentHandler_Claims(t *testing.T) {
	r := documentHandler(t, nil)
	w := do(t, r, http.MethodPost, "/api/v1/documents/claims", motorDoc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[ClaimsResponse](t, w)
	assert.Equal(t, 3, resp.Claims)
	assert.Equal(t, []int{1, 3}, resp.Independent)
	require.Len(t, resp.Tree, 2)
	require.Len(t, resp.Tree[0].Children, 1)
	assert.Equal(t, 2, resp.Tree[0].Children[0].Number)
}

func TestDocumentHandler_Formats(t *testing.T) {
	r := documentHandler(t, nil)
	w := do(t, r, http.MethodGet, "/api/v1/formats", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Formats []FormatInfo `json:"formats"`
	}](t, w)
	require.Len(t, resp.Formats, 5)
	assert.Equal(t, "greenbook", resp.Formats[0].Name)
}

// ─────────────────────────────────────────────────────────────────────────────
// StoreHandler
// ─────────────────────────────────────────────────────────────────────────────

type fakeDocuments map[string]string

func (f fakeDocuments) Get(_ context.Context, id string) (json.RawMessage, error) {
	doc, ok := f[id]
	if !ok {
		return nil, errors.NotFound("document not found")
	}
	return json.RawMessage(doc), nil
}

type fakeGraph struct{}

func (fakeGraph) Cites(_ context.Context, id string) ([]string, error) {
	return []string{"US3000001A"}, nil
}

func (fakeGraph) CitedBy(_ context.Context, id string) ([]string, error) { return nil, nil }

func (fakeGraph) ClaimChain(_ context.Context, id string, n int) ([]int, error) {
	if n > 3 {
		return nil, errors.NotFound("claim not found")
	}
	chain := []int{}
	for i := n; i >= 1; i-- {
		chain = append(chain, i)
	}
	return chain, nil
}

type fakeSearcher struct {
	got opensearch.DocumentQuery
	err error
}

func (f *fakeSearcher) CountDocuments(_ context.Context, q opensearch.DocumentQuery) (int64, error) {
	f.got = q
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

func (f *fakeSearcher) SearchDocuments(_ context.Context, q opensearch.DocumentQuery) (*opensearch.SearchResult, error) {
	f.got = q
	if f.err != nil {
		return nil, f.err
	}
	return &opensearch.SearchResult{
		Total:  1,
		TookMs: 3,
		Hits: []opensearch.SearchHit{{
			ID:         "US3930584A",
			Score:      2.5,
			Source:     json.RawMessage(`{"title":"Dual Speed Motor"}`),
			Highlights: map[string][]string{"title": {"<em>Motor</em>"}},
		}},
		Aggregations: map[string]opensearch.AggregationResult{
			"formats":    {Buckets: []opensearch.AggBucket{{Key: "greenbook", DocCount: 1}}},
			"lifecycles": {},
		},
	}, nil
}

type fakeMatches struct {
	run uuid.UUID
}

func (f fakeMatches) ListByRun(_ context.Context, run uuid.UUID, limit, offset int) ([]pgrepo.CorpusMatch, error) {
	if run != f.run {
		return nil, nil
	}
	return []pgrepo.CorpusMatch{{RunID: run, DocumentID: "US3930584A", Provenance: "uspc"}}, nil
}

func (f fakeMatches) FindByDocument(_ context.Context, id string) ([]pgrepo.CorpusMatch, error) {
	return []pgrepo.CorpusMatch{{RunID: f.run, DocumentID: id, Provenance: "uspc"}}, nil
}

func (f fakeMatches) CountByProvenance(_ context.Context, run uuid.UUID) (map[string]int, error) {
	if run != f.run {
		return map[string]int{}, nil
	}
	return map[string]int{"uspc": 2, "cpc": 1}, nil
}

func TestStoreHandler_RoutesFollowBackends(t *testing.T) {
	r := newEngine((&StoreHandler{}).RegisterRoutes)
	assert.Empty(t, r.Routes())

	r = newEngine((&StoreHandler{Searcher: &fakeSearcher{}}).RegisterRoutes)
	var paths []string
	for _, rt := range r.Routes() {
		paths = append(paths, rt.Path)
	}
	assert.ElementsMatch(t, []string{"/api/v1/search", "/api/v1/search/count"}, paths)
}

func TestStoreHandler_Documents(t *testing.T) {
	h := &StoreHandler{
		Documents: fakeDocuments{"US3930584A": `{"id":"US3930584A"}`},
		Graph:     fakeGraph{},
	}
	r := newEngine(h.RegisterRoutes)

	w := do(t, r, http.MethodGet, "/api/v1/documents/US3930584A", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"US3930584A"}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/documents/US1A", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/documents/US3930584A/citations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"document":"US3930584A","cites":["US3000001A"]}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/documents/US3930584A/cited-by", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"document":"US3930584A","cited_by":[]}`, w.Body.String())
}

func TestStoreHandler_ClaimChain(t *testing.T) {
	r := newEngine((&StoreHandler{Graph: fakeGraph{}}).RegisterRoutes)

	w := do(t, r, http.MethodGet, "/api/v1/documents/US3930584A/claims/3/chain", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"document":"US3930584A","claim":3,"chain":[3,2,1]}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/documents/US3930584A/claims/9/chain", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/documents/US3930584A/claims/zero/chain", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestStoreHandler_Matches(t *testing.T) {
	run := uuid.New()
	r := newEngine((&StoreHandler{Matches: fakeMatches{run: run}}).RegisterRoutes)

	w := do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/corpus/runs/%s/matches?limit=1000", run), "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Limit   int                  `json:"limit"`
		Matches []pgrepo.CorpusMatch `json:"matches"`
	}](t, w)
	assert.Equal(t, 500, page.Limit)
	require.Len(t, page.Matches, 1)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/corpus/runs/%s/matches", uuid.New()), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"matches":[]`)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/corpus/runs/%s/summary", run), "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[map[string]any](t, w)
	assert.EqualValues(t, 3, summary["matched"])

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/corpus/runs/%s/summary", uuid.New()), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/corpus/runs/not-a-uuid/summary", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/corpus/runs/"+run.String()+"/matches?offset=-1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/documents/US3930584A/matches", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), run.String())
}

func TestStoreHandler_Search(t *testing.T) {
	s := &fakeSearcher{}
	r := newEngine((&StoreHandler{Searcher: s}).RegisterRoutes)

	w := do(t, r, http.MethodGet, "/api/v1/search?q=motor&classification=uspc:310&lifecycle=grant&from=1976-01-01&to=1976-12-31&limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "motor", s.got.Text)
	assert.Equal(t, "uspc:310", s.got.ClassificationPrefix)
	assert.Equal(t, "grant", s.got.Lifecycle)
	assert.Equal(t, 5, s.got.Limit)
	assert.Equal(t, 10, s.got.Offset)
	require.NotNil(t, s.got.PublishedFrom)
	assert.Equal(t, 1976, s.got.PublishedFrom.Year())

	resp := decode[SearchResponse](t, w)
	assert.EqualValues(t, 1, resp.Total)
	require.Len(t, resp.Hits, 1)
	assert.JSONEq(t, `{"title":"Dual Speed Motor"}`, string(resp.Hits[0].Document))
	assert.Equal(t, map[string]map[string]int64{"formats": {"greenbook": 1}}, resp.Facets)
}

func TestStoreHandler_SearchErrors(t *testing.T) {
	s := &fakeSearcher{}
	r := newEngine((&StoreHandler{Searcher: s}).RegisterRoutes)

	for _, q := range []string{"from=1976", "to=yesterday", "lifecycle=expired", "limit=0"} {
		w := do(t, r, http.MethodGet, "/api/v1/search?"+q, "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, q)
	}

	s.err = errors.New(errors.ErrCodeSearchError, "cluster red")
	w := do(t, r, http.MethodGet, "/api/v1/search?q=x", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "search engine error", resp.Message)
	assert.NotContains(t, w.Body.String(), "cluster red")
}

func TestStoreHandler_Count(t *testing.T) {
	s := &fakeSearcher{}
	r := newEngine((&StoreHandler{Searcher: s}).RegisterRoutes)

	w := do(t, r, http.MethodGet, "/api/v1/search/count?classification=uspc:2&format=greenbook", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"count":7}`, w.Body.String())
	assert.Equal(t, "uspc:2", s.got.ClassificationPrefix)
	assert.Equal(t, "greenbook", s.got.Format)
	assert.Zero(t, s.got.Limit)

	w = do(t, r, http.MethodGet, "/api/v1/search/count?lifecycle=expired", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	s.err = errors.New(errors.ErrCodeSearchError, "cluster red")
	w = do(t, r, http.MethodGet, "/api/v1/search/count", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// HealthHandler
// ─────────────────────────────────────────────────────────────────────────────

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler("1.2.3", map[string]CheckFunc{
		"postgres": func(context.Context) error { return nil },
	}, nil)
	r := gin.New()
	h.RegisterRoutes(r)

	w := do(t, r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.2.3", decode[LivenessResponse](t, w).Version)

	w = do(t, r, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, w.Code)
	ready := decode[ReadinessResponse](t, w)
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "healthy", ready.Components["postgres"].Status)
	assert.Equal(t, []string{"postgres"}, h.Names())
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	h := NewHealthHandler("dev", map[string]CheckFunc{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return fmt.Errorf("connection refused") },
	}, nil)
	r := gin.New()
	h.RegisterRoutes(r)

	w := do(t, r, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	ready := decode[ReadinessResponse](t, w)
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, "connection refused", ready.Components["redis"].Error)

	w = do(t, r, http.MethodGet, "/healthz/detail", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode[ReadinessResponse](t, w).Status)
}

func TestHealthHandler_NoChecks(t *testing.T) {
	r := gin.New()
	NewHealthHandler("dev", nil, nil).RegisterRoutes(r)
	w := do(t, r, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

//Personal.AI order the ending
