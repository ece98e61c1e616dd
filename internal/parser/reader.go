// Package parser turns raw USPTO bulk documents into patent.Patent values.
// A Reader is bound to one Format and dispatches to the matching variant
// package; it holds configuration only and is safe for concurrent use.
package parser

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/fields"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/greenbook"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/markup"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/pap"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/redbook"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/sgml"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/text"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// DefaultMaxDocumentSize caps a single document read by Read.  The largest
// grants with sequence listings stay well below it.
const DefaultMaxDocumentSize int64 = 64 << 20

// Reader parses documents of one format.
type Reader struct {
	format     Format
	log        logging.Logger
	normalizer text.Normalizer
	claims     *patent.ClaimTreeBuilder
	onWarning  fields.WarningHandler
	maxSize    int64
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the parent logger; per-document children are derived from it.
func WithLogger(l logging.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithNormalizer replaces the default text normalizer.
func WithNormalizer(n text.Normalizer) Option {
	return func(r *Reader) {
		if n != nil {
			r.normalizer = n
		}
	}
}

// WithClaimRecognizer replaces the claim dependency phrase recognizer.
func WithClaimRecognizer(rec patent.DependencyRecognizer) Option {
	return func(r *Reader) {
		if rec != nil {
			r.claims = patent.NewClaimTreeBuilder(rec)
		}
	}
}

// WithWarningHandler registers a callback for malformed-field warnings.  The
// handler is called from the goroutine running Read and must be safe for
// concurrent use when the Reader is shared.
func WithWarningHandler(h fields.WarningHandler) Option {
	return func(r *Reader) { r.onWarning = h }
}

// WithMaxDocumentSize overrides DefaultMaxDocumentSize.  Non-positive values
// are ignored.
func WithMaxDocumentSize(n int64) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxSize = n
		}
	}
}

// NewReader returns a Reader for format.
func NewReader(format Format, opts ...Option) (*Reader, error) {
	if !format.IsValid() {
		return nil, ErrUnsupportedFormat.WithDetailf("format=%d", int(format))
	}
	r := &Reader{
		format:     format,
		log:        logging.NewNopLogger(),
		normalizer: text.NewNormalizer(),
		claims:     patent.NewClaimTreeBuilder(nil),
		maxSize:    DefaultMaxDocumentSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Format returns the format the Reader was built for.
func (r *Reader) Format() Format { return r.format }

// ReadString is Read over an in-memory document.
func (r *Reader) ReadString(ctx context.Context, doc string) (patent.Patent, error) {
	return r.Read(ctx, strings.NewReader(doc))
}

// Read parses one document.  Load failures, documents larger than the
// configured maximum and documents without a primary identifier are errors;
// malformed optional fields are only warned about.
func (r *Reader) Read(ctx context.Context, in io.Reader) (patent.Patent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(in, r.maxSize+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentLoad, "failed to read document")
	}
	if int64(len(data)) > r.maxSize {
		return nil, errors.New(errors.ErrCodeDocumentTooLarge, "document exceeds size limit").
			WithDetailf("limit=%d", r.maxSize)
	}

	rec := fields.NewRecorder(r.log.WithContext(ctx), r.format.String(), r.onWarning)
	c := fields.Collaborators{Normalizer: r.normalizer, Claims: r.claims, Recorder: rec}

	p, err := r.dispatch(data, c)
	if err != nil {
		rec.Logger().Debug("Document rejected", logging.Err(err))
		return nil, err
	}
	rec.Logger().Debug("Document parsed",
		logging.Int("warnings", len(rec.Warnings())),
		logging.Int("claims", len(p.Base().Claims)))
	return p, nil
}

func (r *Reader) dispatch(data []byte, c fields.Collaborators) (patent.Patent, error) {
	switch r.format {
	case FormatGreenbook:
		return greenbook.Parse(string(data), c)
	case FormatRedbookApplication:
		doc, err := markup.LoadXML(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return redbook.ParseApplication(doc, c)
	case FormatRedbookGrant:
		doc, err := markup.LoadXML(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return redbook.ParseGrant(doc, c)
	case FormatSGML:
		doc, err := markup.LoadSGML(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return sgml.Parse(doc, c)
	case FormatPAP:
		doc, err := markup.LoadXML(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return pap.Parse(doc, c)
	default:
		return nil, ErrUnsupportedFormat.WithDetailf("format=%d", int(r.format))
	}
}

//Personal.AI order the ending
