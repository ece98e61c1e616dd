package repositories

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	driver "github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/neo4j"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

var _ corpus.Sink = (*GraphRepository)(nil)

type run struct {
	query  string
	params map[string]any
}

// fakeDriver runs work against itself and records every statement.
type fakeDriver struct {
	runs    []run
	records []*neo4j.Record
	runErr  error
}

func (f *fakeDriver) ExecuteRead(_ context.Context, work driver.TransactionWork) (any, error) {
	return work(f)
}

func (f *fakeDriver) ExecuteWrite(_ context.Context, work driver.TransactionWork) (any, error) {
	return work(f)
}

func (f *fakeDriver) HealthCheck(context.Context) error { return nil }
func (f *fakeDriver) Close(context.Context) error       { return nil }

func (f *fakeDriver) Run(_ context.Context, cypher string, params map[string]any) (driver.Result, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	f.runs = append(f.runs, run{query: cypher, params: params})
	return &fakeResult{records: f.records}, nil
}

type fakeResult struct {
	records []*neo4j.Record
	pos     int
}

func (r *fakeResult) Next(context.Context) bool {
	if r.pos < len(r.records) {
		r.pos++
		return true
	}
	return false
}

func (r *fakeResult) Record() *neo4j.Record { return r.records[r.pos-1] }
func (r *fakeResult) Err() error            { return nil }
func (r *fakeResult) Consume(context.Context) (neo4j.ResultSummary, error) {
	return nil, nil
}

func grantWithClaims(t *testing.T) patent.Patent {
	t.Helper()
	b := patent.NewBuilder()
	require.NoError(t, b.SetID(patent.NewDocumentID(patent.CountryUS, "10524282", "B2")))
	b.SetTitle("Widget")
	b.SetClaims(patent.ClaimSet{
		{Number: 1, Text: "A widget."},
		{Number: 2, Text: "The widget of claim 1.", Parent: 1},
		{Number: 3, Text: "The widget of claim 2.", Parent: 2},
	})
	cited := patent.NewDocumentID(patent.CountryUS, "5123456", "A")
	b.AddCitation(patent.Citation{Kind: patent.CitationPatent, DocumentID: &cited, CitedBy: patent.CitedByExaminer})
	b.AddCitation(patent.Citation{Kind: patent.CitationNonPatent, Text: "Smith, Widgets, 1999"})
	cpc, err := classification.ParseCPC("H04N 21/4722")
	require.NoError(t, err)
	b.AddClassification(cpc)
	d := patent.NewDocumentDate(2020, time.January, 7)
	b.SetDatePublished(&d)
	p, err := b.Build(patent.LifecycleGrant)
	require.NoError(t, err)
	return p
}

func TestGraphRepository_Put(t *testing.T) {
	f := &fakeDriver{}
	repo := NewGraphRepository(f, nil)
	assert.Equal(t, "neo4j", repo.Name())

	err := repo.Put(context.Background(), corpus.MatchedDocument{Format: parser.FormatRedbookGrant, Patent: grantWithClaims(t)})
	require.NoError(t, err)
	require.Len(t, f.runs, 5)

	params := f.runs[0].params
	assert.Equal(t, "US10524282B2", params["id"])
	assert.Equal(t, "grant", params["lifecycle"])
	assert.Equal(t, "redbook-grant", params["format"])
	assert.IsType(t, neo4j.Date{}, params["published"])

	claims := params["claims"].([]any)
	require.Len(t, claims, 3)
	assert.Equal(t, "US10524282B2#1", claims[0].(map[string]any)["key"])
	assert.Equal(t, true, claims[0].(map[string]any)["independent"])

	links := params["links"].([]any)
	assert.Equal(t, []any{
		map[string]any{"child": "US10524282B2#2", "parent": "US10524282B2#1"},
		map[string]any{"child": "US10524282B2#3", "parent": "US10524282B2#2"},
	}, links)

	citations := params["citations"].([]any)
	require.Len(t, citations, 1)
	assert.Equal(t, "US5123456A", citations[0].(map[string]any)["cited"])
	assert.Equal(t, "examiner", citations[0].(map[string]any)["cited_by"])

	classes := params["classifications"].([]any)
	assert.Equal(t, "cpc:H04N21/4722", classes[0].(map[string]any)["key"])
}

func TestGraphRepository_SkipsEmptySections(t *testing.T) {
	b := patent.NewBuilder()
	require.NoError(t, b.SetID(patent.NewDocumentID(patent.CountryUS, "1", "A1")))
	p, err := b.Build(patent.LifecycleApplication)
	require.NoError(t, err)

	f := &fakeDriver{}
	require.NoError(t, NewGraphRepository(f, nil).SaveDocument(context.Background(), p, "pap"))
	require.Len(t, f.runs, 1)
	assert.Nil(t, f.runs[0].params["published"])
}

func TestGraphRepository_Errors(t *testing.T) {
	repo := NewGraphRepository(&fakeDriver{}, nil)
	assert.True(t, errors.IsCode(repo.SaveDocument(context.Background(), nil, "pap"), errors.ErrCodeValidation))

	boom := stderrors.New("boom")
	repo = NewGraphRepository(&fakeDriver{runErr: boom}, nil)
	assert.ErrorIs(t, repo.SaveDocument(context.Background(), grantWithClaims(t), "pap"), boom)
}

func TestGraphRepository_EnsureSchema(t *testing.T) {
	f := &fakeDriver{}
	require.NoError(t, NewGraphRepository(f, nil).EnsureSchema(context.Background()))
	require.Len(t, f.runs, len(Constraints))
	assert.Contains(t, f.runs[0].query, "Patent")
}

func TestGraphRepository_CitedBy(t *testing.T) {
	f := &fakeDriver{records: []*neo4j.Record{
		{Keys: []string{"id"}, Values: []any{"US1"}},
		{Keys: []string{"id"}, Values: []any{"US2"}},
	}}
	ids, err := NewGraphRepository(f, nil).CitedBy(context.Background(), "US5123456A")
	require.NoError(t, err)
	assert.Equal(t, []string{"US1", "US2"}, ids)
	assert.Equal(t, "US5123456A", f.runs[0].params["id"])
}

func TestGraphRepository_ClaimChain(t *testing.T) {
	f := &fakeDriver{records: []*neo4j.Record{
		{Keys: []string{"chain"}, Values: []any{[]any{int64(3), int64(2), int64(1)}}},
	}}
	chain, err := NewGraphRepository(f, nil).ClaimChain(context.Background(), "US10524282B2", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1}, chain)
	assert.Equal(t, "US10524282B2#3", f.runs[0].params["key"])

	_, err = NewGraphRepository(&fakeDriver{}, nil).ClaimChain(context.Background(), "US1", 9)
	assert.True(t, errors.IsNotFound(err))
}

//Personal.AI order the ending
