package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	pgrepo "github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/search/opensearch"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// DocumentStore loads stored records by document ID.
type DocumentStore interface {
	Get(ctx context.Context, documentID string) (json.RawMessage, error)
}

// CitationGraph answers citation and claim-chain queries.
type CitationGraph interface {
	Cites(ctx context.Context, id string) ([]string, error)
	CitedBy(ctx context.Context, id string) ([]string, error)
	ClaimChain(ctx context.Context, id string, n int) ([]int, error)
}

// DocumentSearcher runs full-text queries over indexed documents.
type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, q opensearch.DocumentQuery) (*opensearch.SearchResult, error)
	CountDocuments(ctx context.Context, q opensearch.DocumentQuery) (int64, error)
}

// MatchStore lists recorded corpus matches.
type MatchStore interface {
	ListByRun(ctx context.Context, runID uuid.UUID, limit, offset int) ([]pgrepo.CorpusMatch, error)
	FindByDocument(ctx context.Context, documentID string) ([]pgrepo.CorpusMatch, error)
	CountByProvenance(ctx context.Context, runID uuid.UUID) (map[string]int, error)
}

// StoreHandler serves the documents written by corpus builds.  Every
// backend is optional; routes of a missing backend are not registered.
type StoreHandler struct {
	Documents DocumentStore
	Graph     CitationGraph
	Searcher  DocumentSearcher
	Matches   MatchStore
}

// RegisterRoutes mounts the endpoints of the configured backends on rg.
func (h *StoreHandler) RegisterRoutes(rg *gin.RouterGroup) {
	if h.Documents != nil {
		rg.GET("/documents/:id", h.GetDocument)
	}
	if h.Graph != nil {
		rg.GET("/documents/:id/citations", h.Citations)
		rg.GET("/documents/:id/cited-by", h.CitedBy)
		rg.GET("/documents/:id/claims/:n/chain", h.ClaimChain)
	}
	if h.Matches != nil {
		rg.GET("/documents/:id/matches", h.DocumentMatches)
		rg.GET("/corpus/runs/:run/matches", h.RunMatches)
		rg.GET("/corpus/runs/:run/summary", h.RunSummary)
	}
	if h.Searcher != nil {
		rg.GET("/search", h.Search)
		rg.GET("/search/count", h.Count)
	}
}

// GetDocument handles GET /documents/:id.
func (h *StoreHandler) GetDocument(c *gin.Context) {
	raw, err := h.Documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// Citations handles GET /documents/:id/citations.
func (h *StoreHandler) Citations(c *gin.Context) {
	id := c.Param("id")
	ids, err := h.Graph.Cites(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": id, "cites": nonNil(ids)})
}

// CitedBy handles GET /documents/:id/cited-by.
func (h *StoreHandler) CitedBy(c *gin.Context) {
	id := c.Param("id")
	ids, err := h.Graph.CitedBy(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": id, "cited_by": nonNil(ids)})
}

// ClaimChain handles GET /documents/:id/claims/:n/chain.  The chain runs
// from claim n up to its independent claim.
func (h *StoreHandler) ClaimChain(c *gin.Context) {
	id := c.Param("id")
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n <= 0 {
		badRequest(c, "n", "claim number must be a positive integer")
		return
	}
	chain, err := h.Graph.ClaimChain(c.Request.Context(), id, n)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": id, "claim": n, "chain": chain})
}

// DocumentMatches handles GET /documents/:id/matches.
func (h *StoreHandler) DocumentMatches(c *gin.Context) {
	matches, err := h.Matches.FindByDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": nonNil(matches)})
}

func runParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("run"))
	if err != nil {
		badRequest(c, "run", "run must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// RunMatches handles GET /corpus/runs/:run/matches.
func (h *StoreHandler) RunMatches(c *gin.Context) {
	run, ok := runParam(c)
	if !ok {
		return
	}
	offset, limit, ok := parsePagination(c, 50, 500)
	if !ok {
		return
	}
	matches, err := h.Matches.ListByRun(c.Request.Context(), run, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":     run.String(),
		"offset":  offset,
		"limit":   limit,
		"matches": nonNil(matches),
	})
}

// RunSummary handles GET /corpus/runs/:run/summary.
func (h *StoreHandler) RunSummary(c *gin.Context) {
	run, ok := runParam(c)
	if !ok {
		return
	}
	counts, err := h.Matches.CountByProvenance(c.Request.Context(), run)
	if err != nil {
		writeError(c, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		writeError(c, errors.NotFound("no matches recorded for run").WithDetailf("run=%s", run))
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run.String(), "matched": total, "by_provenance": counts})
}

// SearchHit is one search result.
type SearchHit struct {
	ID         string              `json:"id"`
	Score      float64             `json:"score"`
	Document   json.RawMessage     `json:"document"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// SearchResponse is a page of search results with facet counts.
type SearchResponse struct {
	Total  int64                       `json:"total"`
	TookMs int64                       `json:"took_ms"`
	Hits   []SearchHit                 `json:"hits"`
	Facets map[string]map[string]int64 `json:"facets,omitempty"`
}

func parseDateParam(c *gin.Context, name string) (*time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		badRequest(c, name, name+" must be a date in YYYY-MM-DD form")
		return nil, false
	}
	return &t, true
}

// searchQuery reads the filter parameters shared by Search and Count.
func searchQuery(c *gin.Context) (opensearch.DocumentQuery, bool) {
	from, ok := parseDateParam(c, "from")
	if !ok {
		return opensearch.DocumentQuery{}, false
	}
	to, ok := parseDateParam(c, "to")
	if !ok {
		return opensearch.DocumentQuery{}, false
	}
	if lc := c.Query("lifecycle"); lc != "" && lc != "grant" && lc != "application" {
		badRequest(c, "lifecycle", "lifecycle must be grant or application")
		return opensearch.DocumentQuery{}, false
	}
	return opensearch.DocumentQuery{
		Text:                 c.Query("q"),
		ClassificationPrefix: c.Query("classification"),
		Lifecycle:            c.Query("lifecycle"),
		Format:               c.Query("format"),
		PublishedFrom:        from,
		PublishedTo:          to,
	}, true
}

// Search handles GET /search.  Query parameters: q, classification (a
// prefix), lifecycle, format, from, to, offset and limit.
func (h *StoreHandler) Search(c *gin.Context) {
	offset, limit, ok := parsePagination(c, 20, 100)
	if !ok {
		return
	}
	q, ok := searchQuery(c)
	if !ok {
		return
	}
	q.Offset, q.Limit = offset, limit

	res, err := h.Searcher.SearchDocuments(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}

	out := SearchResponse{Total: res.Total, TookMs: res.TookMs, Hits: make([]SearchHit, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		out.Hits = append(out.Hits, SearchHit{ID: hit.ID, Score: hit.Score, Document: hit.Source, Highlights: hit.Highlights})
	}
	for name, agg := range res.Aggregations {
		if len(agg.Buckets) == 0 {
			continue
		}
		if out.Facets == nil {
			out.Facets = make(map[string]map[string]int64)
		}
		buckets := make(map[string]int64, len(agg.Buckets))
		for _, b := range agg.Buckets {
			key := b.KeyAsString
			if key == "" {
				key = fmtKey(b.Key)
			}
			buckets[key] = b.DocCount
		}
		out.Facets[name] = buckets
	}
	c.JSON(http.StatusOK, out)
}

// Count handles GET /search/count with the filters of Search.
func (h *StoreHandler) Count(c *gin.Context) {
	q, ok := searchQuery(c)
	if !ok {
		return
	}
	n, err := h.Searcher.CountDocuments(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func fmtKey(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

//Personal.AI order the ending
