package corpus

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/fields"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// RawDocument is one undecoded document taken from a source.
type RawDocument struct {
	// Name locates the document in its source, e.g. "ipg200107.zip#42".
	Name    string
	Format  parser.Format
	Content []byte
}

// DocumentSource yields raw documents.  Walk stops at the first error
// returned by fn.
type DocumentSource interface {
	Walk(ctx context.Context, fn func(RawDocument) error) error
}

// MatchedDocument is handed to every Sink for each selected document.
type MatchedDocument struct {
	Run        uuid.UUID
	Source     string
	Format     parser.Format
	Provenance string
	Patent     patent.Patent
	Raw        []byte
}

// Sink stores or announces matched documents.  Put may be called
// concurrently.
type Sink interface {
	Name() string
	Put(ctx context.Context, doc MatchedDocument) error
}

// Deduper reports whether a document id was already processed, marking it
// as processed otherwise.
type Deduper interface {
	Seen(ctx context.Context, docID string) (bool, error)
}

// Forgetter is implemented by Dedupers that can drop a mark.  The Builder
// forgets a document whose sinks failed so a redelivery is not skipped.
type Forgetter interface {
	Forget(ctx context.Context, docID string) error
}

// Metrics receives corpus counters.  The Prometheus implementation lives in
// the monitoring package.
type Metrics interface {
	ObserveParse(format, status string, d time.Duration)
	IncFieldWarning(format, field string)
	IncMatch(provenance string)
	IncSinkError(sink string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveParse(string, string, time.Duration) {}
func (nopMetrics) IncFieldWarning(string, string)             {}
func (nopMetrics) IncMatch(string)                            {}
func (nopMetrics) IncSinkError(string)                        {}

// Parse outcome labels.
const (
	StatusParsed = "parsed"
	StatusFailed = "failed"
)

// maxSummaryErrors bounds Summary.Errors.
const maxSummaryErrors = 100

// Summary describes a finished corpus run.
type Summary struct {
	Run          uuid.UUID      `json:"run"`
	Total        int            `json:"total"`
	Parsed       int            `json:"parsed"`
	Failed       int            `json:"failed"`
	Duplicates   int            `json:"duplicates"`
	Matched      int            `json:"matched"`
	ByProvenance map[string]int `json:"by_provenance"`
	SinkErrors   int            `json:"sink_errors"`
	Errors       []string       `json:"errors,omitempty"`
	Elapsed      time.Duration  `json:"elapsed"`
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithWorkers sets how many documents are processed concurrently.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithSinks adds sinks for matched documents.
func WithSinks(sinks ...Sink) BuilderOption {
	return func(b *Builder) { b.sinks = append(b.sinks, sinks...) }
}

// WithDeduper skips documents whose id was already processed.
func WithDeduper(d Deduper) BuilderOption {
	return func(b *Builder) { b.dedup = d }
}

// WithMetrics sets the metrics receiver.
func WithMetrics(m Metrics) BuilderOption {
	return func(b *Builder) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithBuilderLogger sets the logger.
func WithBuilderLogger(l logging.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithParserOptions passes extra options to every Reader of the Builder.
func WithParserOptions(opts ...parser.Option) BuilderOption {
	return func(b *Builder) { b.parserOpts = append(b.parserOpts, opts...) }
}

// Builder runs raw documents through parsing, matching and the sinks.
type Builder struct {
	matcher    *ClassificationMatcher
	readers    map[parser.Format]*parser.Reader
	parserOpts []parser.Option
	sinks      []Sink
	dedup      Deduper
	metrics    Metrics
	log        logging.Logger
	workers    int
	streamRun  uuid.UUID
}

// NewBuilder returns a Builder selecting documents with matcher.  The
// matcher must already be set up.
func NewBuilder(matcher *ClassificationMatcher, opts ...BuilderOption) (*Builder, error) {
	if matcher == nil {
		return nil, errors.New(errors.ErrCodeValidation, "corpus builder requires a matcher")
	}
	b := &Builder{
		matcher:   matcher,
		readers:   make(map[parser.Format]*parser.Reader),
		metrics:   nopMetrics{},
		log:       logging.NewNopLogger(),
		workers:   4,
		streamRun: uuid.New(),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, f := range parser.Formats() {
		format := f.String()
		readerOpts := append([]parser.Option{
			parser.WithLogger(b.log),
			parser.WithWarningHandler(func(w fields.Warning) { b.metrics.IncFieldWarning(format, w.Field) }),
		}, b.parserOpts...)
		r, err := parser.NewReader(f, readerOpts...)
		if err != nil {
			return nil, err
		}
		b.readers[f] = r
	}
	return b, nil
}

// Run processes every document of src.  Document failures and sink failures
// are counted in the Summary and do not stop the run; a failing source or a
// cancelled ctx does, and is returned together with the partial Summary.
func (b *Builder) Run(ctx context.Context, src DocumentSource) (*Summary, error) {
	start := time.Now()
	id := uuid.New()
	run := &runState{
		id:      id,
		summary: Summary{Run: id, ByProvenance: make(map[string]int)},
	}
	log := b.log.With(logging.String("run_id", id.String()))
	log.Info("Corpus run started", logging.Int("workers", b.workers), logging.Int("sinks", len(b.sinks)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	walkErr := src.Walk(gctx, func(doc RawDocument) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			_ = b.process(gctx, log, run, doc)
			return nil
		})
		return nil
	})
	_ = g.Wait()

	summary := run.snapshot()
	summary.Elapsed = time.Since(start)

	log.Info("Corpus run finished",
		logging.Int("total", summary.Total),
		logging.Int("parsed", summary.Parsed),
		logging.Int("failed", summary.Failed),
		logging.Int("matched", summary.Matched),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("sink_errors", summary.SinkErrors),
		logging.Duration("elapsed", summary.Elapsed))

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if walkErr != nil {
		return summary, errors.Wrap(walkErr, errors.ErrCodeCorpusSourceFailed, "document source failed")
	}
	return summary, nil
}

// Handle runs a single document through the pipeline, for streaming
// callers such as the Kafka worker.  The returned Summary covers doc only and
// carries the Builder's stream run id.  Parse failures and duplicates are
// reported in the Summary; the error is non-nil only when a sink failed, so
// callers may retry delivery.
func (b *Builder) Handle(ctx context.Context, doc RawDocument) (*Summary, error) {
	run := &runState{
		id:      b.streamRun,
		summary: Summary{Run: b.streamRun, ByProvenance: make(map[string]int)},
	}
	start := time.Now()
	err := b.process(ctx, b.log.With(logging.String("run_id", b.streamRun.String())), run, doc)
	summary := run.snapshot()
	summary.Elapsed = time.Since(start)
	return summary, err
}

// process returns the joined sink failures; every other outcome is recorded
// in run.
func (b *Builder) process(ctx context.Context, log logging.Logger, run *runState, doc RawDocument) error {
	run.update(func(s *Summary) { s.Total++ })
	log = log.With(logging.String("source", doc.Name), logging.Format(doc.Format.String()))

	r, ok := b.readers[doc.Format]
	if !ok {
		run.fail(fmt.Sprintf("%s: %v", doc.Name, parser.ErrUnsupportedFormat))
		log.Warn("Document skipped", logging.Err(parser.ErrUnsupportedFormat))
		return nil
	}

	started := time.Now()
	p, err := r.Read(logging.ContextWithFields(ctx, logging.String("source", doc.Name)), bytes.NewReader(doc.Content))
	if err != nil {
		b.metrics.ObserveParse(doc.Format.String(), StatusFailed, time.Since(started))
		run.fail(fmt.Sprintf("%s: %v", doc.Name, err))
		log.Warn("Document rejected", logging.Err(err))
		return nil
	}
	b.metrics.ObserveParse(doc.Format.String(), StatusParsed, time.Since(started))
	run.update(func(s *Summary) { s.Parsed++ })

	id := p.Base().ID.String()
	log = log.With(logging.DocID(id))

	if b.dedup != nil {
		seen, err := b.dedup.Seen(ctx, id)
		if err != nil {
			log.Warn("Dedup check failed, processing anyway", logging.Err(err))
		} else if seen {
			run.update(func(s *Summary) { s.Duplicates++ })
			log.Debug("Duplicate document skipped")
			return nil
		}
	}

	decision := b.matcher.Evaluate(p)
	if !decision.Matched {
		return nil
	}
	b.metrics.IncMatch(decision.Provenance)
	run.update(func(s *Summary) {
		s.Matched++
		s.ByProvenance[decision.Provenance]++
	})
	log.Debug("Document matched", logging.String("provenance", decision.Provenance))

	matched := MatchedDocument{
		Run:        run.id,
		Source:     doc.Name,
		Format:     doc.Format,
		Provenance: decision.Provenance,
		Patent:     p,
		Raw:        doc.Content,
	}
	var failed []error
	for _, sink := range b.sinks {
		if err := sink.Put(ctx, matched); err != nil {
			b.metrics.IncSinkError(sink.Name())
			wrapped := errors.Wrap(err, errors.ErrCodeCorpusSinkFailed, "sink failed").WithDetailf("sink=%s", sink.Name())
			run.sinkFail(fmt.Sprintf("%s: %v", id, wrapped))
			log.Error("Sink failed", logging.String("sink", sink.Name()), logging.Err(err))
			failed = append(failed, wrapped)
		}
	}
	if len(failed) > 0 {
		if f, ok := b.dedup.(Forgetter); ok {
			if err := f.Forget(ctx, id); err != nil {
				log.Warn("Dedup forget failed", logging.Err(err))
			}
		}
	}
	return errors.Join(failed...)
}

// runState guards the Summary shared by the workers of one run.
type runState struct {
	id      uuid.UUID
	mu      sync.Mutex
	summary Summary
}

func (r *runState) update(fn func(*Summary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.summary)
}

func (r *runState) fail(msg string) {
	r.update(func(s *Summary) {
		s.Failed++
		s.addError(msg)
	})
}

func (r *runState) sinkFail(msg string) {
	r.update(func(s *Summary) {
		s.SinkErrors++
		s.addError(msg)
	})
}

func (r *runState) snapshot() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.summary
	s.ByProvenance = make(map[string]int, len(r.summary.ByProvenance))
	for k, v := range r.summary.ByProvenance {
		s.ByProvenance[k] = v
	}
	s.Errors = append([]string(nil), r.summary.Errors...)
	return &s
}

func (s *Summary) addError(msg string) {
	if len(s.Errors) < maxSummaryErrors {
		s.Errors = append(s.Errors, msg)
	}
}

//Personal.AI order the ending
