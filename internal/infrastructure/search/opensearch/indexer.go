package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// DefaultIndex holds one search document per patent.
const DefaultIndex = "patent-documents"

var (
	ErrIndexAlreadyExists  = errors.New(errors.ErrCodeConflict, "index already exists")
	ErrIndexNotFound       = errors.New(errors.ErrCodeNotFound, "index not found")
	ErrIndexCreationFailed = errors.New(errors.ErrCodeSearchError, "index creation failed")
	ErrDocumentIndexFailed = errors.New(errors.ErrCodeSearchError, "document index failed")
	ErrDocumentNotFound    = errors.New(errors.ErrCodeNotFound, "document not found")
)

// IndexerConfig holds configuration for the Indexer.
type IndexerConfig struct {
	Index         string `mapstructure:"index"`
	BulkBatchSize int    `mapstructure:"bulk_batch_size"`
	RefreshPolicy string `mapstructure:"refresh_policy"`
	Shards        int    `mapstructure:"shards"`
	Replicas      int    `mapstructure:"replicas"`
}

// IndexMapping is the body of a create-index request.
type IndexMapping struct {
	Settings map[string]any `json:"settings,omitempty"`
	Mappings map[string]any `json:"mappings,omitempty"`
}

// BulkDocument is one entry of a bulk request.
type BulkDocument struct {
	ID     string
	Source any
}

// BulkItemError describes a document the cluster rejected.
type BulkItemError struct {
	DocID     string
	ErrorType string
	Reason    string
}

// BulkResult summarises a BulkIndex call.
type BulkResult struct {
	Succeeded int
	Failed    int
	Errors    []BulkItemError
}

// PatentDocument is the search representation of a parsed patent.
type PatentDocument struct {
	ID                string     `json:"id"`
	Country           string     `json:"country"`
	Number            string     `json:"number"`
	Kind              string     `json:"kind,omitempty"`
	Lifecycle         string     `json:"lifecycle"`
	Format            string     `json:"format"`
	PatentType        string     `json:"patent_type,omitempty"`
	Title             string     `json:"title,omitempty"`
	Abstract          string     `json:"abstract,omitempty"`
	Claims            []string   `json:"claims,omitempty"`
	IndependentClaims int        `json:"independent_claims"`
	Classifications   []string   `json:"classifications,omitempty"`
	CPC               []string   `json:"cpc,omitempty"`
	USPC              []string   `json:"uspc,omitempty"`
	IPC               []string   `json:"ipc,omitempty"`
	Inventors         []string   `json:"inventors,omitempty"`
	Assignees         []string   `json:"assignees,omitempty"`
	Cites             []string   `json:"cites,omitempty"`
	DatePublished     *time.Time `json:"date_published,omitempty"`
	DateProduced      *time.Time `json:"date_produced,omitempty"`
	Provenance        string     `json:"provenance,omitempty"`
	RunID             string     `json:"run_id,omitempty"`
	Source            string     `json:"source,omitempty"`
	IndexedAt         time.Time  `json:"indexed_at"`
}

// NewPatentDocument flattens a matched document for indexing.
func NewPatentDocument(doc corpus.MatchedDocument, now time.Time) PatentDocument {
	base := doc.Patent.Base()
	out := PatentDocument{
		ID:              base.ID.String(),
		Country:         string(base.ID.Country),
		Number:          base.ID.Number,
		Kind:            base.ID.Kind,
		Lifecycle:       doc.Patent.Lifecycle().String(),
		Format:          doc.Format.String(),
		PatentType:      string(base.PatentType),
		Title:           base.Title,
		Abstract:        base.Abstract,
		Classifications: base.Classifications.Strings(),
		CPC:             codes(base.Classifications.CPC()),
		USPC:            codes(base.Classifications.USPC()),
		IPC:             codes(base.Classifications.IPC()),
		Provenance:      doc.Provenance,
		Source:          doc.Source,
		IndexedAt:       now.UTC(),
	}
	if doc.Run != uuid.Nil {
		out.RunID = doc.Run.String()
	}
	for _, c := range base.Claims {
		out.Claims = append(out.Claims, c.Text)
		if c.IsIndependent() {
			out.IndependentClaims++
		}
	}
	for _, p := range base.Inventors {
		out.Inventors = append(out.Inventors, p.Name.String())
	}
	for _, p := range base.Assignees {
		out.Assignees = append(out.Assignees, p.Name.String())
	}
	for _, c := range base.Citations {
		if c.Kind == patent.CitationPatent && c.DocumentID != nil && !c.DocumentID.IsZero() {
			out.Cites = append(out.Cites, c.DocumentID.String())
		}
	}
	if base.DatePublished != nil && !base.DatePublished.IsZero() {
		t := base.DatePublished.Time()
		out.DatePublished = &t
	}
	if base.DateProduced != nil && !base.DateProduced.IsZero() {
		t := base.DateProduced.Time()
		out.DateProduced = &t
	}
	return out
}

func codes[T classification.Classification](items []T) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, c := range items {
		out[i] = c.String()
	}
	return out
}

// Indexer manages the patent index and document ingestion.  It is a
// corpus.Sink named "opensearch".
type Indexer struct {
	client *Client
	config IndexerConfig
	logger logging.Logger
	now    func() time.Time
}

func NewIndexer(client *Client, cfg IndexerConfig, logger logging.Logger) *Indexer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	if cfg.BulkBatchSize <= 0 {
		cfg.BulkBatchSize = 500
	}
	if cfg.RefreshPolicy == "" {
		cfg.RefreshPolicy = "false"
	}
	if cfg.Shards <= 0 {
		cfg.Shards = 1
	}
	return &Indexer{client: client, config: cfg, logger: logger, now: time.Now}
}

func (i *Indexer) Name() string { return "opensearch" }

// Index returns the name of the patent index.
func (i *Indexer) Index() string { return i.config.Index }

// Put indexes doc under its document id, replacing any earlier version.
func (i *Indexer) Put(ctx context.Context, doc corpus.MatchedDocument) error {
	if doc.Patent == nil {
		return errors.New(errors.ErrCodeValidation, "matched document has no patent")
	}
	pd := NewPatentDocument(doc, i.now())
	return i.IndexDocument(ctx, i.config.Index, pd.ID, pd)
}

// EnsureIndex creates the patent index unless it exists.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	err := i.CreateIndex(ctx, i.config.Index, PatentIndexMapping(i.config.Shards, i.config.Replicas))
	if errors.Is(err, ErrIndexAlreadyExists) {
		return nil
	}
	return err
}

// CreateIndex creates a new index with the given mapping.
func (i *Indexer) CreateIndex(ctx context.Context, indexName string, mapping IndexMapping) error {
	exists, err := i.IndexExists(ctx, indexName)
	if err != nil {
		return err
	}
	if exists {
		return ErrIndexAlreadyExists
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "failed to create index")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return handleErrorResponse(resp, ErrIndexCreationFailed)
	}

	i.logger.Info("Index created", logging.String("index", indexName))
	return nil
}

// DeleteIndex deletes an index.
func (i *Indexer) DeleteIndex(ctx context.Context, indexName string) error {
	req := opensearchapi.IndicesDeleteRequest{Index: []string{indexName}}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "failed to delete index")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrIndexNotFound
	}
	if resp.IsError() {
		return handleErrorResponse(resp, errors.New(errors.ErrCodeSearchError, "delete index failed"))
	}

	i.logger.Warn("Index deleted", logging.String("index", indexName))
	return nil
}

// IndexExists checks if an index exists.
func (i *Indexer) IndexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{Index: []string{indexName}}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSearchError, "failed to check index existence")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, handleErrorResponse(resp, errors.New(errors.ErrCodeSearchError, "check index existence failed"))
}

// IndexDocument indexes a single document.
func (i *Indexer) IndexDocument(ctx context.Context, indexName, docID string, document any) error {
	body, err := json.Marshal(document)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal document")
	}

	req := opensearchapi.IndexRequest{
		Index:      indexName,
		DocumentID: docID,
		Body:       bytes.NewReader(body),
		Refresh:    i.config.RefreshPolicy,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "failed to index document")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return handleErrorResponse(resp, ErrDocumentIndexFailed)
	}
	return nil
}

type bulkAction struct {
	Index struct {
		Index string `json:"_index"`
		ID    string `json:"_id"`
	} `json:"index"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// BulkIndex indexes docs in batches of BulkBatchSize.  Documents the cluster
// rejects are reported in the result; a transport failure aborts the call.
func (i *Indexer) BulkIndex(ctx context.Context, indexName string, docs []BulkDocument) (*BulkResult, error) {
	result := &BulkResult{}
	for start := 0; start < len(docs); start += i.config.BulkBatchSize {
		end := min(start+i.config.BulkBatchSize, len(docs))
		if err := i.bulkBatch(ctx, indexName, docs[start:end], result); err != nil {
			return result, err
		}
	}

	if len(docs) > 0 {
		i.logger.Info("Bulk index completed",
			logging.String("index", indexName),
			logging.Int("total", len(docs)),
			logging.Int("succeeded", result.Succeeded),
			logging.Int("failed", result.Failed))
	}
	return result, nil
}

func (i *Indexer) bulkBatch(ctx context.Context, indexName string, batch []BulkDocument, result *BulkResult) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	sent := 0
	for _, d := range batch {
		src, err := json.Marshal(d.Source)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{DocID: d.ID, ErrorType: "serialization_error", Reason: err.Error()})
			continue
		}
		var action bulkAction
		action.Index.Index = indexName
		action.Index.ID = d.ID
		if err := enc.Encode(action); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode bulk action")
		}
		buf.Write(src)
		buf.WriteByte('\n')
		sent++
	}
	if sent == 0 {
		return nil
	}

	req := opensearchapi.BulkRequest{Body: &buf, Refresh: i.config.RefreshPolicy}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "bulk request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		err := handleErrorResponse(resp, errors.New(errors.ErrCodeSearchError, "bulk batch failed"))
		result.Failed += sent
		result.Errors = append(result.Errors, BulkItemError{DocID: "batch", ErrorType: "http_error", Reason: err.Error()})
		return nil
	}

	var br bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode bulk response")
	}
	if !br.Errors {
		result.Succeeded += len(br.Items)
		return nil
	}
	for _, item := range br.Items {
		for _, v := range item {
			if v.Status >= 200 && v.Status < 300 {
				result.Succeeded++
				continue
			}
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{DocID: v.ID, ErrorType: v.Error.Type, Reason: v.Error.Reason})
		}
	}
	return nil
}

// GetDocument returns the stored source of a document.
func (i *Indexer) GetDocument(ctx context.Context, indexName, docID string) (json.RawMessage, error) {
	req := opensearchapi.GetRequest{Index: indexName, DocumentID: docID}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchError, "failed to get document")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrDocumentNotFound.WithDetailf("id=%s", docID)
	}
	if resp.IsError() {
		return nil, handleErrorResponse(resp, errors.New(errors.ErrCodeSearchError, "get document failed"))
	}

	var body struct {
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode document")
	}
	return body.Source, nil
}

// DeleteDocument deletes a document.
func (i *Indexer) DeleteDocument(ctx context.Context, indexName, docID string) error {
	req := opensearchapi.DeleteRequest{
		Index:      indexName,
		DocumentID: docID,
		Refresh:    i.config.RefreshPolicy,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "failed to delete document")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrDocumentNotFound.WithDetailf("id=%s", docID)
	}
	if resp.IsError() {
		return handleErrorResponse(resp, errors.New(errors.ErrCodeSearchError, "delete document failed"))
	}
	return nil
}

func handleErrorResponse(resp *opensearchapi.Response, base *errors.AppError) error {
	var errResp struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Reason != "" {
		return base.WithDetailf("status=%d type=%s reason=%s", resp.StatusCode, errResp.Error.Type, errResp.Error.Reason)
	}
	return base.WithDetailf("status=%d", resp.StatusCode)
}

// PatentIndexMapping is the mapping of the patent index.  Identifiers and
// classification codes are keywords so they can be filtered and aggregated.
func PatentIndexMapping(shards, replicas int) IndexMapping {
	keyword := map[string]any{"type": "keyword"}
	text := map[string]any{"type": "text", "analyzer": "english"}
	date := map[string]any{"type": "date"}
	return IndexMapping{
		Settings: map[string]any{
			"number_of_shards":   shards,
			"number_of_replicas": replicas,
		},
		Mappings: map[string]any{
			"dynamic": "strict",
			"properties": map[string]any{
				"id":                 keyword,
				"country":            keyword,
				"number":             keyword,
				"kind":               keyword,
				"lifecycle":          keyword,
				"format":             keyword,
				"patent_type":        keyword,
				"title":              map[string]any{"type": "text", "analyzer": "english", "fields": map[string]any{"raw": keyword}},
				"abstract":           text,
				"claims":             text,
				"independent_claims": map[string]any{"type": "integer"},
				"classifications":    keyword,
				"cpc":                keyword,
				"uspc":               keyword,
				"ipc":                keyword,
				"inventors":          keyword,
				"assignees":          keyword,
				"cites":              keyword,
				"date_published":     date,
				"date_produced":      date,
				"provenance":         keyword,
				"run_id":             keyword,
				"source":             keyword,
				"indexed_at":         date,
			},
		},
	}
}

//Personal.AI order the ending
