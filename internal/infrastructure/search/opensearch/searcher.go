package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// SearcherConfig holds configuration for the Searcher.
type SearcherConfig struct {
	Index                   string        `mapstructure:"index"`
	DefaultPageSize         int           `mapstructure:"default_page_size"`
	MaxPageSize             int           `mapstructure:"max_page_size"`
	DefaultHighlightPreTag  string        `mapstructure:"highlight_pre_tag"`
	DefaultHighlightPostTag string        `mapstructure:"highlight_post_tag"`
	SearchTimeout           time.Duration `mapstructure:"search_timeout"`
}

// SearchRequest defines a search query.
type SearchRequest struct {
	IndexName      string
	Query          *Query
	Filters        []Filter
	Sort           []SortField
	Pagination     *Pagination
	Highlight      *HighlightConfig
	Aggregations   map[string]Aggregation
	SourceIncludes []string
	SourceExcludes []string
}

// Query is a node of the query DSL.  QueryType selects the clause: match,
// multi_match, match_phrase, term, terms, prefix, exists or bool.
type Query struct {
	QueryType          string
	Field              string
	Fields             []string
	Value              any
	Boost              float64
	Must               []Query
	Should             []Query
	MustNot            []Query
	MinimumShouldMatch string
}

// Filter is a non-scoring condition: term, terms, prefix, range or exists.
type Filter struct {
	Field      string
	FilterType string
	Value      any
	RangeFrom  any
	RangeTo    any
}

type SortField struct {
	Field string
	Order string
}

type Pagination struct {
	Offset int
	Limit  int
}

type HighlightConfig struct {
	Fields            []string
	PreTag            string
	PostTag           string
	FragmentSize      int
	NumberOfFragments int
}

// Aggregation is a terms, date_histogram or cardinality aggregation.
type Aggregation struct {
	AggType         string
	Field           string
	Size            int
	Interval        string
	SubAggregations map[string]Aggregation
}

type SearchResult struct {
	Total        int64
	MaxScore     float64
	Hits         []SearchHit
	Aggregations map[string]AggregationResult
	TookMs       int64
}

type SearchHit struct {
	ID         string
	Score      float64
	Source     json.RawMessage
	Highlights map[string][]string
}

type AggregationResult struct {
	Buckets []AggBucket
	Value   *float64
}

type AggBucket struct {
	Key             any
	KeyAsString     string
	DocCount        int64
	SubAggregations map[string]AggregationResult
}

// Searcher runs queries against the patent index.
type Searcher struct {
	client *Client
	config SearcherConfig
	logger logging.Logger
}

func NewSearcher(client *Client, cfg SearcherConfig, logger logging.Logger) *Searcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.DefaultHighlightPreTag == "" {
		cfg.DefaultHighlightPreTag = "<em>"
	}
	if cfg.DefaultHighlightPostTag == "" {
		cfg.DefaultHighlightPostTag = "</em>"
	}
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = 10 * time.Second
	}
	return &Searcher{client: client, config: cfg, logger: logger}
}

// DocumentQuery is the search surface exposed over HTTP.  Empty fields do
// not constrain the result.
type DocumentQuery struct {
	Text                 string
	ClassificationPrefix string
	Lifecycle            string
	Format               string
	PublishedFrom        *time.Time
	PublishedTo          *time.Time
	Offset               int
	Limit                int
}

// SearchDocuments runs q against the patent index, highlighting matches in
// title, abstract and claims.  Results are ordered by score, then by
// publication date when no text is given.
func (s *Searcher) SearchDocuments(ctx context.Context, q DocumentQuery) (*SearchResult, error) {
	req := SearchRequest{
		IndexName:      s.config.Index,
		Pagination:     &Pagination{Offset: q.Offset, Limit: q.Limit},
		SourceExcludes: []string{"claims"},
		Aggregations: map[string]Aggregation{
			"formats":    {AggType: "terms", Field: "format", Size: 10},
			"lifecycles": {AggType: "terms", Field: "lifecycle", Size: 2},
		},
	}
	if q.Limit <= 0 {
		req.Pagination.Limit = s.config.DefaultPageSize
	}
	req.Query, req.Filters = documentQuery(q)
	if req.Query != nil {
		req.Highlight = &HighlightConfig{Fields: []string{"title", "abstract", "claims"}, FragmentSize: 150, NumberOfFragments: 3}
	} else {
		req.Sort = []SortField{{Field: "date_published", Order: "desc"}}
	}
	return s.Search(ctx, req)
}

// CountDocuments returns the number of indexed documents matching q.
// Pagination fields of q are ignored.
func (s *Searcher) CountDocuments(ctx context.Context, q DocumentQuery) (int64, error) {
	query, filters := documentQuery(q)
	return s.Count(ctx, s.config.Index, query, filters)
}

func documentQuery(q DocumentQuery) (*Query, []Filter) {
	var (
		query   *Query
		filters []Filter
	)
	if text := strings.TrimSpace(q.Text); text != "" {
		query = &Query{
			QueryType: "multi_match",
			Fields:    []string{"title^3", "abstract^2", "claims"},
			Value:     text,
		}
	}
	if p := strings.TrimSpace(q.ClassificationPrefix); p != "" {
		filters = append(filters, Filter{Field: "classifications", FilterType: "prefix", Value: p})
	}
	if q.Lifecycle != "" {
		filters = append(filters, Filter{Field: "lifecycle", FilterType: "term", Value: q.Lifecycle})
	}
	if q.Format != "" {
		filters = append(filters, Filter{Field: "format", FilterType: "term", Value: q.Format})
	}
	if q.PublishedFrom != nil || q.PublishedTo != nil {
		f := Filter{Field: "date_published", FilterType: "range"}
		if q.PublishedFrom != nil {
			f.RangeFrom = q.PublishedFrom.Format(time.DateOnly)
		}
		if q.PublishedTo != nil {
			f.RangeTo = q.PublishedTo.Format(time.DateOnly)
		}
		filters = append(filters, f)
	}
	return query, filters
}

// Search executes a search request.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if req.IndexName == "" {
		return nil, errors.New(errors.ErrCodeValidation, "index name is required")
	}
	if req.Pagination == nil {
		req.Pagination = &Pagination{Limit: s.config.DefaultPageSize}
	}
	if req.Pagination.Limit <= 0 {
		req.Pagination.Limit = s.config.DefaultPageSize
	}
	if req.Pagination.Limit > s.config.MaxPageSize {
		req.Pagination.Limit = s.config.MaxPageSize
	}
	if req.Pagination.Offset < 0 {
		req.Pagination.Offset = 0
	}
	if req.Highlight != nil {
		if req.Highlight.PreTag == "" {
			req.Highlight.PreTag = s.config.DefaultHighlightPreTag
		}
		if req.Highlight.PostTag == "" {
			req.Highlight.PostTag = s.config.DefaultHighlightPostTag
		}
	}

	body, err := json.Marshal(s.buildQueryDSL(req))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal query")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.SearchTimeout)
	defer cancel()

	start := time.Now()
	osReq := opensearchapi.SearchRequest{
		Index: []string{req.IndexName},
		Body:  bytes.NewReader(body),
	}
	resp, err := osReq.Do(ctx, s.client.GetClient())
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.ErrCodeTimeout, "search request timed out")
		}
		return nil, errors.Wrap(err, errors.ErrCodeSearchError, "search request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, handleErrorResponse(resp, errors.New(errors.ErrCodeSearchError, "search failed"))
	}

	result, err := parseSearchResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Search executed",
		logging.String("index", req.IndexName),
		logging.Duration("elapsed", time.Since(start)),
		logging.Int64("hits", result.Total))
	return result, nil
}

// Count returns the number of documents matching the query and filters.
func (s *Searcher) Count(ctx context.Context, indexName string, query *Query, filters []Filter) (int64, error) {
	dsl := s.buildQueryDSL(SearchRequest{Query: query, Filters: filters})
	body, err := json.Marshal(map[string]any{"query": dsl["query"]})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal count query")
	}
	if _, ok := dsl["query"]; !ok {
		body = []byte(`{}`)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.SearchTimeout)
	defer cancel()

	osReq := opensearchapi.CountRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(body),
	}
	resp, err := osReq.Do(ctx, s.client.GetClient())
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, errors.New(errors.ErrCodeTimeout, "count request timed out")
		}
		return 0, errors.Wrap(err, errors.ErrCodeSearchError, "count request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return 0, handleErrorResponse(resp, errors.New(errors.ErrCodeSearchError, "count failed"))
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode count response")
	}
	return countResp.Count, nil
}

func (s *Searcher) buildQueryDSL(req SearchRequest) map[string]any {
	dsl := map[string]any{}

	var query map[string]any
	if req.Query != nil {
		query = buildQuery(req.Query)
	}
	if len(req.Filters) > 0 {
		clauses := make([]map[string]any, 0, len(req.Filters))
		for _, f := range req.Filters {
			if c := buildFilter(f); c != nil {
				clauses = append(clauses, c)
			}
		}
		boolQuery := map[string]any{"filter": clauses}
		if query != nil {
			boolQuery["must"] = query
		} else {
			boolQuery["must"] = map[string]any{"match_all": map[string]any{}}
		}
		query = map[string]any{"bool": boolQuery}
	}
	if query != nil {
		dsl["query"] = query
	}

	if req.Pagination != nil {
		dsl["from"] = req.Pagination.Offset
		dsl["size"] = req.Pagination.Limit
	}

	if len(req.Sort) > 0 {
		sorts := make([]map[string]any, len(req.Sort))
		for i, sf := range req.Sort {
			sorts[i] = map[string]any{sf.Field: map[string]any{"order": sf.Order, "missing": "_last"}}
		}
		dsl["sort"] = sorts
	}

	if req.Highlight != nil {
		fields := map[string]any{}
		for _, f := range req.Highlight.Fields {
			fields[f] = map[string]any{}
		}
		hl := map[string]any{
			"fields":    fields,
			"pre_tags":  []string{req.Highlight.PreTag},
			"post_tags": []string{req.Highlight.PostTag},
		}
		if req.Highlight.FragmentSize > 0 {
			hl["fragment_size"] = req.Highlight.FragmentSize
		}
		if req.Highlight.NumberOfFragments > 0 {
			hl["number_of_fragments"] = req.Highlight.NumberOfFragments
		}
		dsl["highlight"] = hl
	}

	if len(req.Aggregations) > 0 {
		dsl["aggs"] = buildAggregations(req.Aggregations)
	}

	if len(req.SourceIncludes) > 0 || len(req.SourceExcludes) > 0 {
		src := map[string]any{}
		if len(req.SourceIncludes) > 0 {
			src["includes"] = req.SourceIncludes
		}
		if len(req.SourceExcludes) > 0 {
			src["excludes"] = req.SourceExcludes
		}
		dsl["_source"] = src
	}
	return dsl
}

func buildQuery(q *Query) map[string]any {
	switch q.QueryType {
	case "match":
		m := map[string]any{"query": q.Value}
		if q.Boost > 0 {
			m["boost"] = q.Boost
		}
		return map[string]any{"match": map[string]any{q.Field: m}}
	case "multi_match":
		return map[string]any{"multi_match": map[string]any{"query": q.Value, "fields": q.Fields}}
	case "match_phrase":
		return map[string]any{"match_phrase": map[string]any{q.Field: q.Value}}
	case "term":
		return map[string]any{"term": map[string]any{q.Field: q.Value}}
	case "terms":
		return map[string]any{"terms": map[string]any{q.Field: q.Value}}
	case "prefix":
		return map[string]any{"prefix": map[string]any{q.Field: q.Value}}
	case "exists":
		return map[string]any{"exists": map[string]any{"field": q.Field}}
	case "bool":
		b := map[string]any{}
		for key, subs := range map[string][]Query{"must": q.Must, "should": q.Should, "must_not": q.MustNot} {
			if len(subs) == 0 {
				continue
			}
			clauses := make([]map[string]any, len(subs))
			for i := range subs {
				clauses[i] = buildQuery(&subs[i])
			}
			b[key] = clauses
		}
		if q.MinimumShouldMatch != "" {
			b["minimum_should_match"] = q.MinimumShouldMatch
		}
		return map[string]any{"bool": b}
	}
	return nil
}

func buildFilter(f Filter) map[string]any {
	switch f.FilterType {
	case "term":
		return map[string]any{"term": map[string]any{f.Field: f.Value}}
	case "terms":
		return map[string]any{"terms": map[string]any{f.Field: f.Value}}
	case "prefix":
		return map[string]any{"prefix": map[string]any{f.Field: f.Value}}
	case "range":
		r := map[string]any{}
		if f.RangeFrom != nil {
			r["gte"] = f.RangeFrom
		}
		if f.RangeTo != nil {
			r["lte"] = f.RangeTo
		}
		return map[string]any{"range": map[string]any{f.Field: r}}
	case "exists":
		return map[string]any{"exists": map[string]any{"field": f.Field}}
	}
	return nil
}

func buildAggregations(aggs map[string]Aggregation) map[string]any {
	dsl := map[string]any{}
	for name, agg := range aggs {
		a := map[string]any{}
		switch agg.AggType {
		case "terms":
			t := map[string]any{"field": agg.Field}
			if agg.Size > 0 {
				t["size"] = agg.Size
			}
			a["terms"] = t
		case "date_histogram":
			a["date_histogram"] = map[string]any{"field": agg.Field, "calendar_interval": agg.Interval}
		case "cardinality":
			a["cardinality"] = map[string]any{"field": agg.Field}
		}
		if len(agg.SubAggregations) > 0 {
			a["aggs"] = buildAggregations(agg.SubAggregations)
		}
		dsl[name] = a
	}
	return dsl
}

func parseSearchResponse(body io.Reader) (*SearchResult, error) {
	var resp struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			MaxScore float64 `json:"max_score"`
			Hits     []struct {
				ID        string              `json:"_id"`
				Score     float64             `json:"_score"`
				Source    json.RawMessage     `json:"_source"`
				Highlight map[string][]string `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
		Aggregations map[string]json.RawMessage `json:"aggregations"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}

	result := &SearchResult{
		Total:    resp.Hits.Total.Value,
		MaxScore: resp.Hits.MaxScore,
		TookMs:   resp.Took,
	}
	for _, h := range resp.Hits.Hits {
		result.Hits = append(result.Hits, SearchHit{
			ID:         h.ID,
			Score:      h.Score,
			Source:     h.Source,
			Highlights: h.Highlight,
		})
	}
	if len(resp.Aggregations) > 0 {
		result.Aggregations = make(map[string]AggregationResult, len(resp.Aggregations))
		for name, raw := range resp.Aggregations {
			var m map[string]any
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode aggregation").
					WithDetailf("name=%s", name)
			}
			result.Aggregations[name] = parseAggregation(m)
		}
	}
	return result, nil
}

func parseAggregation(m map[string]any) AggregationResult {
	var res AggregationResult
	if v, ok := m["value"].(float64); ok {
		res.Value = &v
	}
	buckets, _ := m["buckets"].([]any)
	for _, b := range buckets {
		bm, ok := b.(map[string]any)
		if !ok {
			continue
		}
		bucket := AggBucket{Key: bm["key"]}
		if ks, ok := bm["key_as_string"].(string); ok {
			bucket.KeyAsString = ks
		} else {
			bucket.KeyAsString = fmt.Sprint(bucket.Key)
		}
		if dc, ok := bm["doc_count"].(float64); ok {
			bucket.DocCount = int64(dc)
		}
		for k, v := range bm {
			sub, ok := v.(map[string]any)
			if !ok {
				continue
			}
			_, hasBuckets := sub["buckets"]
			_, hasValue := sub["value"]
			if hasBuckets || hasValue {
				if bucket.SubAggregations == nil {
					bucket.SubAggregations = map[string]AggregationResult{}
				}
				bucket.SubAggregations[k] = parseAggregation(sub)
			}
		}
		res.Buckets = append(res.Buckets, bucket)
	}
	return res
}

//Personal.AI order the ending
