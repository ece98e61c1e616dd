package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// parseCacheName labels the parse cache in metrics.
const parseCacheName = "parse"

// ParseCache stores encoded parse results.  redis.Cache satisfies it.
type ParseCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DocumentHandlerConfig configures a DocumentHandler.
type DocumentHandlerConfig struct {
	// MaxDocumentSize bounds the request body.
	MaxDocumentSize int64
	// Wanted are the classifications matched when a request names none.
	Wanted []classification.Classification
	// Cache, when set, memoizes parse results for CacheTTL.
	Cache    ParseCache
	CacheTTL time.Duration
	Metrics  *prometheus.AppMetrics
}

// DocumentHandler parses, matches and inspects documents posted as the
// request body.  Nothing is stored.
type DocumentHandler struct {
	cfg    DocumentHandlerConfig
	logger logging.Logger
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(cfg DocumentHandlerConfig, logger logging.Logger) *DocumentHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DocumentHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes mounts the document endpoints on rg.
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/parse", h.Parse)
	rg.POST("/documents/match", h.Match)
	rg.POST("/documents/claims", h.Claims)
	rg.GET("/formats", h.Formats)
}

// readBody returns the request body and its format, taken from the format
// query parameter or detected from the content.
func (h *DocumentHandler) readBody(c *gin.Context) ([]byte, parser.Format, error) {
	limit := h.cfg.MaxDocumentSize
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, 0, errors.New(errors.ErrCodeDocumentTooLarge, "request body too large").WithDetailf("limit=%d", mbe.Limit)
		}
		return nil, 0, errors.Wrap(err, errors.ErrCodeBadRequest, "reading request body")
	}
	if int64(len(data)) > limit {
		return nil, 0, errors.New(errors.ErrCodeDocumentTooLarge, "document too large").WithDetailf("limit=%d", limit)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, 0, errors.New(errors.ErrCodeValidation, "request body is empty")
	}

	if name := c.Query("format"); name != "" {
		f, err := parser.ParseFormat(name)
		return data, f, err
	}
	f, ok := parser.Detect(data)
	if !ok {
		return nil, 0, parser.ErrUnsupportedFormat.WithDetail("format not detected; pass ?format=")
	}
	return data, f, nil
}

func (h *DocumentHandler) parse(ctx context.Context, data []byte, format parser.Format) (patent.Patent, error) {
	r, err := parser.NewReader(format,
		parser.WithLogger(logging.FromContext(ctx, h.logger)),
		parser.WithMaxDocumentSize(h.cfg.MaxDocumentSize))
	if err != nil {
		return nil, err
	}
	return r.Read(ctx, bytes.NewReader(data))
}

func cacheKey(format parser.Format, data []byte) string {
	sum := sha256.New()
	sum.Write([]byte(format.String()))
	sum.Write([]byte{0})
	sum.Write(data)
	return "parse:" + hex.EncodeToString(sum.Sum(nil))
}

// Parse handles POST /documents/parse.  It responds with the normalized
// record of the posted document.
func (h *DocumentHandler) Parse(c *gin.Context) {
	data, format, err := h.readBody(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := c.Request.Context()

	var key string
	if h.cfg.Cache != nil {
		key = cacheKey(format, data)
		var cached json.RawMessage
		err := h.cfg.Cache.Get(ctx, key, &cached)
		h.recordCache(err == nil)
		if err == nil {
			c.Header("X-Cache", "hit")
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			return
		}
		if !errors.IsNotFound(err) {
			h.logger.Warn("Parse cache read failed", logging.Err(err))
		}
	}

	doc, err := h.parse(ctx, data, format)
	if err != nil {
		writeError(c, err)
		return
	}
	body, err := json.Marshal(patent.NewRecord(doc))
	if err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeSerialization, "encoding record"))
		return
	}
	if key != "" {
		if err := h.cfg.Cache.Set(ctx, key, json.RawMessage(body), h.cfg.CacheTTL); err != nil {
			h.logger.Warn("Parse cache write failed", logging.Err(err))
		}
		c.Header("X-Cache", "miss")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *DocumentHandler) recordCache(hit bool) {
	if h.cfg.Metrics != nil {
		prometheus.RecordCacheAccess(h.cfg.Metrics, parseCacheName, hit)
	}
}

// MatchResponse reports a classification decision.
type MatchResponse struct {
	Document        string   `json:"document"`
	Format          string   `json:"format"`
	Matched         bool     `json:"matched"`
	Provenance      string   `json:"provenance,omitempty"`
	Classifications []string `json:"classifications"`
}

// queryList collects a repeated or comma-separated query parameter.
func queryList(c *gin.Context, name string) []string {
	var out []string
	for _, v := range c.QueryArray(name) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// wanted returns the classifications named by the cpc, uspc and ipc query
// parameters, or the configured ones when none is given.
func (h *DocumentHandler) wanted(c *gin.Context) ([]classification.Classification, error) {
	var out []classification.Classification
	for _, scheme := range []classification.Scheme{classification.SchemeCPC, classification.SchemeUSPC, classification.SchemeIPC} {
		parsed, err := classification.ParseList(scheme, queryList(c, scheme.String()))
		if err != nil {
			return nil, err
		}
		out = append(out, parsed...)
	}
	if len(out) == 0 {
		out = h.cfg.Wanted
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "no wanted classifications; pass cpc or uspc")
	}
	return out, nil
}

// Match handles POST /documents/match.
func (h *DocumentHandler) Match(c *gin.Context) {
	wanted, err := h.wanted(c)
	if err != nil {
		writeError(c, err)
		return
	}
	m := corpus.NewClassificationMatcher(wanted,
		corpus.WithMatcherLogger(h.logger),
		corpus.WithReaderOptions(parser.WithLogger(h.logger), parser.WithMaxDocumentSize(h.cfg.MaxDocumentSize)))
	if err := m.Setup(); err != nil {
		writeError(c, err)
		return
	}

	data, format, err := h.readBody(c)
	if err != nil {
		writeError(c, err)
		return
	}
	doc, err := m.On(c.Request.Context(), string(data), format)
	if err != nil {
		writeError(c, err)
		return
	}
	d := m.Evaluate(doc)
	c.JSON(http.StatusOK, MatchResponse{
		Document:        doc.Base().ID.String(),
		Format:          format.String(),
		Matched:         d.Matched,
		Provenance:      d.Provenance,
		Classifications: doc.Base().Classifications.Strings(),
	})
}

// ClaimsResponse is the claim dependency forest of a document.
type ClaimsResponse struct {
	Document    string             `json:"document"`
	Claims      int                `json:"claims"`
	Independent []int              `json:"independent"`
	Tree        []patent.ClaimNode `json:"tree"`
}

// Claims handles POST /documents/claims.
func (h *DocumentHandler) Claims(c *gin.Context) {
	data, format, err := h.readBody(c)
	if err != nil {
		writeError(c, err)
		return
	}
	doc, err := h.parse(c.Request.Context(), data, format)
	if err != nil {
		writeError(c, err)
		return
	}
	base := doc.Base()
	t := base.ClaimTree()
	c.JSON(http.StatusOK, ClaimsResponse{
		Document:    base.ID.String(),
		Claims:      t.Len(),
		Independent: t.Roots(),
		Tree:        t.Nodes(),
	})
}

// FormatInfo describes one supported input format.
type FormatInfo struct {
	Name        string `json:"name"`
	Extension   string `json:"extension"`
	ContentType string `json:"content_type"`
}

// Formats handles GET /formats.
func (h *DocumentHandler) Formats(c *gin.Context) {
	out := make([]FormatInfo, 0, len(parser.Formats()))
	for _, f := range parser.Formats() {
		ext, ct := f.MediaType()
		out = append(out, FormatInfo{Name: f.String(), Extension: ext, ContentType: ct})
	}
	c.JSON(http.StatusOK, gin.H{"formats": out})
}

//Personal.AI order the ending
