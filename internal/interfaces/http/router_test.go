package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/bootstrap"
	"github.com/turtacn/KeyIP-PatentDoc/internal/config"
	"github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/http/middleware"
)

const motorDoc = `PATN
WKU  039305848
TTL  DUAL SPEED MOTOR
ISD  19760106
CLAS
OCL  310112
CLMS
NUM  1.
PAL  A dual speed motor comprising a stator.
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Mode = "test"
	cfg.Corpus.FileDir = t.TempDir()
	cfg.Corpus.USPC = []string{"310/1"}
	return cfg
}

func newAPI(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	infra, err := bootstrap.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(infra.Close)
	api, err := NewAPI(infra, "test")
	require.NoError(t, err)
	return api
}

func call(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
	return w
}

func TestNewAPI_DocumentRoutes(t *testing.T) {
	api := newAPI(t, testConfig(t))

	w := call(api, http.MethodPost, "/api/v1/documents/match", motorDoc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var m handlers.MatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.True(t, m.Matched)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	w = call(api, http.MethodGet, "/api/v1/formats", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(api, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = call(api, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(api, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="/api/v1/documents/match"`)
}

func TestNewAPI_StoreRoutesAbsentWithoutStores(t *testing.T) {
	api := newAPI(t, testConfig(t))

	for _, target := range []string{"/api/v1/documents/US3930584A", "/api/v1/search?q=motor"} {
		w := call(api, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
	w := call(api, http.MethodDelete, "/api/v1/formats", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestNewAPI_ParseCacheOnRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Database.Redis.Enabled = true
	cfg.Database.Redis.Addr = mr.Addr()
	api := newAPI(t, cfg)

	w := call(api, http.MethodPost, "/api/v1/documents/parse", motorDoc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "miss", w.Header().Get("X-Cache"))
	assert.NotEmpty(t, mr.Keys())

	w = call(api, http.MethodPost, "/api/v1/documents/parse", motorDoc)
	assert.Equal(t, "hit", w.Header().Get("X-Cache"))

	w = call(api, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis"`)
}

func TestNewAPI_LimitsApplyToAPIOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxBodySize = 32
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	api := newAPI(t, cfg)

	w := call(api, http.MethodPost, "/api/v1/documents/parse", motorDoc)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = call(api, http.MethodGet, "/api/v1/formats", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, call(api, http.MethodGet, "/healthz", "").Code)
	}
}

func TestAPI_ReloadAppliesRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	infra, err := bootstrap.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer infra.Close()
	api, err := NewAPI(infra, "test")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(api, http.MethodGet, "/api/v1/formats", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, call(api, http.MethodGet, "/api/v1/formats", "").Code)

	next := *cfg
	next.Server.RateLimitRPS = 1000
	next.Server.RateLimitBurst = 5
	api.Reload(&next)
	require.Eventually(t, func() bool {
		return call(api, http.MethodGet, "/api/v1/formats", "").Code == http.StatusOK
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "5", call(api, http.MethodGet, "/api/v1/formats", "").Header().Get("X-RateLimit-Limit"))

	off := next
	off.Server.RateLimitRPS = 0
	api.Reload(&off)
	rps, _ := api.limiter.Rate()
	assert.Equal(t, 1000.0, rps, "disabling needs a restart")
}

func TestNewAPI_InvalidCorpusClassification(t *testing.T) {
	cfg := testConfig(t)
	infra, err := bootstrap.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer infra.Close()

	cfg.Corpus.CPC = []string{"not a symbol"}
	_, err = NewAPI(infra, "test")
	assert.Error(t, err)
}

func TestServer_StartStop(t *testing.T) {
	cfg := testConfig(t).Server
	cfg.Host = "127.0.0.1"
	cfg.ShutdownTimeout = time.Second
	srv := NewServer(cfg, newAPI(t, testConfig(t)), nil)
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
	assert.NotNil(t, srv.Handler())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, srv.Stop(context.Background()))
	assert.NoError(t, <-done)
}

//Personal.AI order the ending
