package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// CorpusMatch is one row of corpus_matches.
type CorpusMatch struct {
	ID              uuid.UUID  `json:"id"`
	RunID           uuid.UUID  `json:"run_id"`
	DocumentID      string     `json:"document_id"`
	Lifecycle       string     `json:"lifecycle"`
	Format          string     `json:"format"`
	Provenance      string     `json:"provenance"`
	Source          string     `json:"source"`
	Title           string     `json:"title"`
	Classifications []string   `json:"classifications"`
	DatePublished   *time.Time `json:"date_published,omitempty"`
	MatchedAt       time.Time  `json:"matched_at"`
}

// NewCorpusMatch flattens a matched document into a row.
func NewCorpusMatch(doc corpus.MatchedDocument, now time.Time) CorpusMatch {
	m := CorpusMatch{
		ID:         uuid.New(),
		RunID:      doc.Run,
		Format:     doc.Format.String(),
		Provenance: doc.Provenance,
		Source:     doc.Source,
		MatchedAt:  now.UTC(),
	}
	if doc.Patent == nil {
		return m
	}
	base := doc.Patent.Base()
	m.DocumentID = base.ID.String()
	m.Lifecycle = doc.Patent.Lifecycle().String()
	m.Title = base.Title
	m.Classifications = base.Classifications.Strings()
	if base.DatePublished != nil {
		t := base.DatePublished.Time()
		m.DatePublished = &t
	}
	return m
}

// CorpusMatchRepository records which documents each corpus run selected.
// It is a corpus.Sink named "postgres".
type CorpusMatchRepository struct {
	db     DBTX
	logger logging.Logger
	now    func() time.Time
}

func NewCorpusMatchRepository(db DBTX, log logging.Logger) *CorpusMatchRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CorpusMatchRepository{db: db, logger: log, now: time.Now}
}

func (r *CorpusMatchRepository) Name() string { return "postgres" }

func (r *CorpusMatchRepository) Put(ctx context.Context, doc corpus.MatchedDocument) error {
	if doc.Patent == nil {
		return errors.New(errors.ErrCodeValidation, "matched document has no patent")
	}
	return r.Save(ctx, NewCorpusMatch(doc, r.now()))
}

const upsertCorpusMatch = `
INSERT INTO corpus_matches (
	id, run_id, document_id, lifecycle, format, provenance, source, title, classifications, date_published, matched_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (run_id, document_id) DO UPDATE SET
	provenance = EXCLUDED.provenance,
	source = EXCLUDED.source,
	title = EXCLUDED.title,
	classifications = EXCLUDED.classifications,
	date_published = EXCLUDED.date_published,
	matched_at = EXCLUDED.matched_at`

// Save inserts m, or refreshes the row of the same run and document.
func (r *CorpusMatchRepository) Save(ctx context.Context, m CorpusMatch) error {
	if m.DocumentID == "" {
		return errors.New(errors.ErrCodeValidation, "corpus match requires a document id")
	}
	if m.Classifications == nil {
		m.Classifications = []string{}
	}
	_, err := r.db.Exec(ctx, upsertCorpusMatch,
		m.ID, m.RunID, m.DocumentID, m.Lifecycle, m.Format, m.Provenance,
		m.Source, m.Title, m.Classifications, m.DatePublished, m.MatchedAt)
	if err != nil {
		r.logger.Error("Failed to save corpus match", logging.DocID(m.DocumentID), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save corpus match").
			WithDetailf("document_id=%s", m.DocumentID)
	}
	return nil
}

const selectCorpusMatch = `
SELECT id, run_id, document_id, lifecycle, format, provenance, source, title, classifications, date_published, matched_at
FROM corpus_matches`

// ListByRun pages through the matches of one run in document order.
func (r *CorpusMatchRepository) ListByRun(ctx context.Context, runID uuid.UUID, limit, offset int) ([]CorpusMatch, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, selectCorpusMatch+` WHERE run_id = $1 ORDER BY document_id LIMIT $2 OFFSET $3`, runID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list corpus matches")
	}
	return collectMatches(rows)
}

// FindByDocument returns every run that selected documentID, newest first.
func (r *CorpusMatchRepository) FindByDocument(ctx context.Context, documentID string) ([]CorpusMatch, error) {
	rows, err := r.db.Query(ctx, selectCorpusMatch+` WHERE document_id = $1 ORDER BY matched_at DESC`, documentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to find corpus matches")
	}
	return collectMatches(rows)
}

// CountByProvenance totals the matches of a run per provenance.
func (r *CorpusMatchRepository) CountByProvenance(ctx context.Context, runID uuid.UUID) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT provenance, COUNT(*) FROM corpus_matches WHERE run_id = $1 GROUP BY provenance`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count corpus matches")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var provenance string
		var n int
		if err := rows.Scan(&provenance, &n); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan provenance count")
		}
		counts[provenance] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count corpus matches")
	}
	return counts, nil
}

func collectMatches(rows pgx.Rows) ([]CorpusMatch, error) {
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CorpusMatch, error) {
		var m CorpusMatch
		err := row.Scan(&m.ID, &m.RunID, &m.DocumentID, &m.Lifecycle, &m.Format, &m.Provenance,
			&m.Source, &m.Title, &m.Classifications, &m.DatePublished, &m.MatchedAt)
		return m, err
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan corpus matches")
	}
	return matches, nil
}

// DocumentRepository keeps the latest parsed record of every matched
// document.  It is a corpus.Sink named "postgres-documents".
type DocumentRepository struct {
	db     DBTX
	logger logging.Logger
}

func NewDocumentRepository(db DBTX, log logging.Logger) *DocumentRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DocumentRepository{db: db, logger: log}
}

func (r *DocumentRepository) Name() string { return "postgres-documents" }

func (r *DocumentRepository) Put(ctx context.Context, doc corpus.MatchedDocument) error {
	return r.Upsert(ctx, doc.Patent, doc.Format.String())
}

const upsertDocument = `
INSERT INTO documents (document_id, lifecycle, format, record, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (document_id) DO UPDATE SET
	lifecycle = EXCLUDED.lifecycle,
	format = EXCLUDED.format,
	record = EXCLUDED.record,
	updated_at = NOW()`

// Upsert stores p as a JSON record keyed by its primary id.
func (r *DocumentRepository) Upsert(ctx context.Context, p patent.Patent, format string) error {
	if p == nil {
		return errors.New(errors.ErrCodeValidation, "document is nil")
	}
	rec := patent.NewRecord(p)
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode document")
	}
	id := rec.ID.String()
	if _, err := r.db.Exec(ctx, upsertDocument, id, rec.Lifecycle, format, data); err != nil {
		r.logger.Error("Failed to store document", logging.DocID(id), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to store document").
			WithDetailf("document_id=%s", id)
	}
	return nil
}

// Get returns the stored record of documentID as raw JSON.
func (r *DocumentRepository) Get(ctx context.Context, documentID string) (json.RawMessage, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT record FROM documents WHERE document_id = $1`, documentID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("document not found").WithDetailf("document_id=%s", documentID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load document")
	}
	return json.RawMessage(data), nil
}

//Personal.AI order the ending
