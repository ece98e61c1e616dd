// Package corpus selects patent documents for a corpus by classification and
// drives bulk corpus builds over raw document sources.
package corpus

import (
	"context"
	"sync"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// Match provenance values.
const (
	ProvenanceCPC  = "cpc"
	ProvenanceUSPC = "uspc"
)

// ErrClassificationSetup is returned by Setup when the wanted list cannot be
// partitioned by scheme.
var ErrClassificationSetup = errors.New(errors.ErrCodeClassificationSetup, "cannot partition wanted classifications")

// Decision is the outcome of evaluating one document.
type Decision struct {
	Matched    bool   `json:"matched"`
	Provenance string `json:"provenance,omitempty"`
}

// MatcherOption configures a ClassificationMatcher.
type MatcherOption func(*ClassificationMatcher)

// WithMatcherLogger sets the logger.
func WithMatcherLogger(l logging.Logger) MatcherOption {
	return func(m *ClassificationMatcher) {
		if l != nil {
			m.log = l
		}
	}
}

// WithReaderOptions sets the options used for the Readers built by On.
func WithReaderOptions(opts ...parser.Option) MatcherOption {
	return func(m *ClassificationMatcher) { m.readerOpts = append(m.readerOpts, opts...) }
}

// ClassificationMatcher decides whether a document belongs to a corpus
// defined by wanted classifications.  CPC codes match on section, class,
// subclass and main group; USPC codes match on main class only.  IPC codes
// are accepted but never consulted.
//
// After Setup the wanted buckets are read-only; Match and Evaluate may be
// called concurrently.
type ClassificationMatcher struct {
	wanted     []classification.Classification
	log        logging.Logger
	readerOpts []parser.Option

	cpc  []classification.CPC
	uspc []classification.USPC
	ipc  []classification.IPC

	mu         sync.RWMutex
	provenance string
}

// NewClassificationMatcher returns a matcher for wanted.  Setup must be
// called before the matcher reports any match.
func NewClassificationMatcher(wanted []classification.Classification, opts ...MatcherOption) *ClassificationMatcher {
	m := &ClassificationMatcher{
		wanted: append([]classification.Classification(nil), wanted...),
		log:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Setup partitions the wanted classifications into scheme buckets.
func (m *ClassificationMatcher) Setup() error {
	var (
		cpc  []classification.CPC
		uspc []classification.USPC
		ipc  []classification.IPC
	)
	for i, c := range m.wanted {
		switch v := c.(type) {
		case classification.CPC:
			if v.Scheme() != classification.SchemeCPC {
				return ErrClassificationSetup.WithDetailf("index=%d scheme=%s", i, v.Scheme())
			}
			cpc = append(cpc, v)
		case classification.USPC:
			if v.Scheme() != classification.SchemeUSPC {
				return ErrClassificationSetup.WithDetailf("index=%d scheme=%s", i, v.Scheme())
			}
			uspc = append(uspc, v)
		case classification.IPC:
			if v.Scheme() != classification.SchemeIPC {
				return ErrClassificationSetup.WithDetailf("index=%d scheme=%s", i, v.Scheme())
			}
			ipc = append(ipc, v)
		default:
			return ErrClassificationSetup.WithDetailf("index=%d type=%T", i, c)
		}
	}

	m.cpc, m.uspc, m.ipc = cpc, uspc, ipc
	m.log.Info("Classification matcher ready",
		logging.Int("cpc", len(cpc)),
		logging.Int("uspc", len(uspc)),
		logging.Int("ipc", len(ipc)))
	return nil
}

// On parses raw as a document of format, for a subsequent Match.
func (m *ClassificationMatcher) On(ctx context.Context, raw string, format parser.Format) (patent.Patent, error) {
	r, err := parser.NewReader(format, m.readerOpts...)
	if err != nil {
		return nil, err
	}
	return r.ReadString(ctx, raw)
}

// Match reports whether doc carries a wanted classification and records the
// matching scheme as the last match pattern.  A nil doc never matches.  When
// nothing matches the last match pattern keeps its previous value.
func (m *ClassificationMatcher) Match(doc patent.Patent) bool {
	d := m.Evaluate(doc)
	if d.Matched {
		m.mu.Lock()
		m.provenance = d.Provenance
		m.mu.Unlock()
	}
	return d.Matched
}

// LastMatchPattern returns the scheme of the last successful Match, or "".
func (m *ClassificationMatcher) LastMatchPattern() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.provenance
}

// Evaluate is Match without touching the shared last match pattern.
func (m *ClassificationMatcher) Evaluate(doc patent.Patent) Decision {
	if doc == nil {
		return Decision{}
	}
	set := doc.Base().Classifications

	if len(m.cpc) > 0 {
		have := set.CPC()
		for _, want := range m.cpc {
			for _, c := range have {
				if c.SameMainGroup(want) {
					return Decision{Matched: true, Provenance: ProvenanceCPC}
				}
			}
		}
	}

	if len(m.uspc) > 0 {
		have := set.USPC()
		for _, want := range m.uspc {
			for _, u := range have {
				if u.SameMainClass(want) {
					return Decision{Matched: true, Provenance: ProvenanceUSPC}
				}
			}
		}
	}

	return Decision{}
}

// Wanted returns the partitioned wanted classifications.
func (m *ClassificationMatcher) Wanted() (cpc []classification.CPC, uspc []classification.USPC, ipc []classification.IPC) {
	return m.cpc, m.uspc, m.ipc
}

//Personal.AI order the ending
