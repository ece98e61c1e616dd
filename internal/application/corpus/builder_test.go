package corpus

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/fields"
	"github.com/turtacn/KeyIP-PatentDoc/internal/testutil"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

type sliceSource struct {
	docs []RawDocument
	err  error
}

func (s sliceSource) Walk(ctx context.Context, fn func(RawDocument) error) error {
	for _, d := range s.docs {
		if err := fn(d); err != nil {
			return err
		}
	}
	return s.err
}

type recordingSink struct {
	name string
	fail bool

	mu   sync.Mutex
	docs []MatchedDocument
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Put(_ context.Context, doc MatchedDocument) error {
	if s.fail {
		return stderrors.New("bucket unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return nil
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, d := range s.docs {
		out = append(out, d.Patent.Base().ID.String())
	}
	return out
}

type mapDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (d *mapDeduper) Seen(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[id] {
		return true, nil
	}
	d.seen[id] = true
	return false, nil
}

func (d *mapDeduper) Forget(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	return nil
}

type countingMetrics struct {
	mu       sync.Mutex
	parses   map[string]int
	warnings map[string]int
	matches  map[string]int
	sinkErrs map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		parses:   make(map[string]int),
		warnings: make(map[string]int),
		matches:  make(map[string]int),
		sinkErrs: make(map[string]int),
	}
}

func (m *countingMetrics) ObserveParse(format, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parses[format+"/"+status]++
}

func (m *countingMetrics) IncFieldWarning(format, field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings[format+"/"+field]++
}

func (m *countingMetrics) IncMatch(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[p]++
}

func (m *countingMetrics) IncSinkError(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinkErrs[s]++
}

func greenbookDoc(wku, ocl string) RawDocument {
	return RawDocument{
		Name:    "pftaps.txt#" + wku,
		Format:  parser.FormatGreenbook,
		Content: []byte(fmt.Sprintf("PATN\nWKU  %s\nTTL  MOTOR\nCLAS\nOCL  %s\n", wku, ocl)),
	}
}

func motorMatcher(t *testing.T) *ClassificationMatcher {
	t.Helper()
	return ready(t, uspc(t, "310/1"))
}

func TestNewBuilder_RequiresMatcher(t *testing.T) {
	_, err := NewBuilder(nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestBuilder_Run(t *testing.T) {
	sink := &recordingSink{name: "memory"}
	metrics := newCountingMetrics()
	log := testutil.NewMockLogger()

	b, err := NewBuilder(motorMatcher(t),
		WithWorkers(3),
		WithSinks(sink),
		WithMetrics(metrics),
		WithBuilderLogger(log))
	require.NoError(t, err)

	src := sliceSource{docs: []RawDocument{
		greenbookDoc("039305848", "310112"),
		greenbookDoc("039305856", "318  7"),
		greenbookDoc("039305864", "310 50"),
		{Name: "broken.xml", Format: parser.FormatRedbookGrant, Content: []byte("<us-patent-grant><oops")},
		{Name: "mystery.bin", Format: parser.Format(0), Content: []byte("??")},
	}}

	summary, err := b.Run(context.Background(), src)
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 3, summary.Parsed)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, map[string]int{ProvenanceUSPC: 2}, summary.ByProvenance)
	assert.Zero(t, summary.SinkErrors)
	assert.Len(t, summary.Errors, 2)
	assert.NotEqual(t, uuid.Nil, summary.Run)

	assert.Len(t, sink.ids(), 2)
	for _, d := range sink.docs {
		assert.Equal(t, summary.Run, d.Run)
		assert.Equal(t, ProvenanceUSPC, d.Provenance)
		assert.Equal(t, parser.FormatGreenbook, d.Format)
		assert.NotEmpty(t, d.Raw)
	}

	assert.Equal(t, 3, metrics.parses["greenbook/"+StatusParsed])
	assert.Equal(t, 1, metrics.parses["redbook-grant/"+StatusFailed])
	assert.Equal(t, 2, metrics.matches[ProvenanceUSPC])

	assert.True(t, log.HasMessage("info", "Corpus run started"))
	assert.True(t, log.HasMessage("info", "Corpus run finished"))
	assert.Len(t, log.MessagesAt("warn"), 2)
}

func TestBuilder_FieldWarningsReachMetrics(t *testing.T) {
	metrics := newCountingMetrics()
	b, err := NewBuilder(motorMatcher(t), WithMetrics(metrics))
	require.NoError(t, err)

	doc := RawDocument{
		Name:    "bad-date",
		Format:  parser.FormatGreenbook,
		Content: []byte("PATN\nWKU  039305848\nISD  19761340\nCLAS\nOCL  310112\n"),
	}
	summary, err := b.Run(context.Background(), sliceSource{docs: []RawDocument{doc}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Parsed)
	assert.Equal(t, 1, metrics.warnings["greenbook/"+fields.FieldDatePublished])
}

func TestBuilder_SinkFailureDoesNotStopRun(t *testing.T) {
	good := &recordingSink{name: "good"}
	bad := &recordingSink{name: "bad", fail: true}
	metrics := newCountingMetrics()
	log := testutil.NewMockLogger()

	b, err := NewBuilder(motorMatcher(t), WithSinks(bad, good), WithMetrics(metrics), WithBuilderLogger(log))
	require.NoError(t, err)

	src := sliceSource{docs: []RawDocument{
		greenbookDoc("039305848", "310112"),
		greenbookDoc("039305864", "310 50"),
	}}
	summary, err := b.Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, 2, summary.SinkErrors)
	assert.Len(t, good.ids(), 2)
	assert.Equal(t, 2, metrics.sinkErrs["bad"])
	assert.Len(t, log.MessagesAt("error"), 2)
	for _, e := range summary.Errors {
		assert.Contains(t, e, "sink=bad")
	}
}

func TestBuilder_Deduplicates(t *testing.T) {
	sink := &recordingSink{name: "memory"}
	b, err := NewBuilder(motorMatcher(t), WithWorkers(1), WithSinks(sink), WithDeduper(&mapDeduper{}))
	require.NoError(t, err)

	doc := greenbookDoc("039305848", "310112")
	summary, err := b.Run(context.Background(), sliceSource{docs: []RawDocument{doc, doc, doc}})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Parsed)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 1, summary.Matched)
	assert.Len(t, sink.ids(), 1)
}

func TestBuilder_DeduperErrorProcessesAnyway(t *testing.T) {
	sink := &recordingSink{name: "memory"}
	b, err := NewBuilder(motorMatcher(t), WithSinks(sink), WithDeduper(&mapDeduper{err: stderrors.New("redis down")}))
	require.NoError(t, err)

	doc := greenbookDoc("039305848", "310112")
	summary, err := b.Run(context.Background(), sliceSource{docs: []RawDocument{doc, doc}})
	require.NoError(t, err)
	assert.Zero(t, summary.Duplicates)
	assert.Equal(t, 2, summary.Matched)
}

func TestBuilder_SourceFailure(t *testing.T) {
	b, err := NewBuilder(motorMatcher(t))
	require.NoError(t, err)

	src := sliceSource{
		docs: []RawDocument{greenbookDoc("039305848", "310112")},
		err:  stderrors.New("archive truncated"),
	}
	summary, err := b.Run(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusSourceFailed))
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Total)
}

func TestBuilder_CancelledContext(t *testing.T) {
	b, err := NewBuilder(motorMatcher(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := b.Run(ctx, sliceSource{docs: []RawDocument{greenbookDoc("039305848", "310112")}})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Zero(t, summary.Total)
}

func TestBuilder_Handle(t *testing.T) {
	good := &recordingSink{name: "good"}
	b, err := NewBuilder(motorMatcher(t), WithSinks(good))
	require.NoError(t, err)

	s1, err := b.Handle(context.Background(), greenbookDoc("039305848", "310112"))
	require.NoError(t, err)
	assert.Equal(t, 1, s1.Matched)

	s2, err := b.Handle(context.Background(), RawDocument{Name: "x", Format: parser.FormatPAP, Content: []byte("<bad")})
	require.NoError(t, err, "parse failures are not retryable")
	assert.Equal(t, 1, s2.Failed)
	assert.Equal(t, s1.Run, s2.Run)

	bad := &recordingSink{name: "bad", fail: true}
	b, err = NewBuilder(motorMatcher(t), WithSinks(bad))
	require.NoError(t, err)
	s3, err := b.Handle(context.Background(), greenbookDoc("039305848", "310112"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusSinkFailed))
	assert.Equal(t, 1, s3.SinkErrors)
}

func TestBuilder_SinkFailureForgetsDedupMark(t *testing.T) {
	bad := &recordingSink{name: "bad", fail: true}
	b, err := NewBuilder(motorMatcher(t), WithSinks(bad), WithDeduper(&mapDeduper{}))
	require.NoError(t, err)

	doc := greenbookDoc("039305848", "310112")
	_, err = b.Handle(context.Background(), doc)
	require.Error(t, err)

	s, err := b.Handle(context.Background(), doc)
	require.Error(t, err, "redelivery reaches the sink again")
	assert.Equal(t, 0, s.Duplicates)
}

func TestSummary_ErrorsBounded(t *testing.T) {
	var s Summary
	for i := 0; i < maxSummaryErrors+10; i++ {
		s.addError("x")
	}
	assert.Len(t, s.Errors, maxSummaryErrors)
}

func TestBuilder_ReaderPerFormat(t *testing.T) {
	b, err := NewBuilder(ready(t, classification.Classification(uspc(t, "310/1"))))
	require.NoError(t, err)
	for _, f := range parser.Formats() {
		assert.Contains(t, b.readers, f)
	}
}

//Personal.AI order the ending
