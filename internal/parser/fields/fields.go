// Package fields holds the contract shared by every field extractor of the
// format parsers: a field that is missing yields an absent value, a field
// that is present but malformed yields an absent value plus a Warning, and
// neither ever aborts the parse.
package fields

import (
	"strconv"
	"strings"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/text"
)

// Field names used in warnings and metrics labels.
const (
	FieldID              = "id"
	FieldApplicationID   = "application_id"
	FieldRelatedID       = "related_id"
	FieldPatentType      = "patent_type"
	FieldDateProduced    = "date_produced"
	FieldDatePublished   = "date_published"
	FieldTitle           = "title"
	FieldClaims          = "claims"
	FieldParty           = "party"
	FieldCitation        = "citation"
	FieldClassification  = "classification"
	FieldCPC             = "classification.cpc"
	FieldUSPC            = "classification.uspc"
	FieldIPC             = "classification.ipc"
	FieldApplicationDate = "application_date"
)

// Warning describes a field that was present but could not be used.
type Warning struct {
	Format string
	DocID  string
	Field  string
	Value  string
	Err    error
}

// WarningHandler receives every Warning raised during a parse.  Handlers are
// called synchronously from the parsing goroutine.
type WarningHandler func(Warning)

// Recorder is the per-document warning sink.  It carries the document's log
// context explicitly; a new Recorder is created for every parse.
type Recorder struct {
	log      logging.Logger
	format   string
	docID    string
	handler  WarningHandler
	warnings []Warning
}

// NewRecorder returns a Recorder logging through log with the doc_format
// field attached.  handler may be nil.
func NewRecorder(log logging.Logger, format string, handler WarningHandler) *Recorder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Recorder{
		log:     log.With(logging.Format(format)),
		format:  format,
		handler: handler,
	}
}

// SetDocID attaches the document identifier to every later log record.
func (r *Recorder) SetDocID(id string) {
	if id == "" || id == r.docID {
		return
	}
	r.docID = id
	r.log = r.log.With(logging.DocID(id))
}

// Logger returns the document-scoped logger.
func (r *Recorder) Logger() logging.Logger { return r.log }

// Warn records a malformed field.  The field value is treated as absent.
func (r *Recorder) Warn(field, value string, err error) {
	w := Warning{Format: r.format, DocID: r.docID, Field: field, Value: value, Err: err}
	r.warnings = append(r.warnings, w)
	r.log.Warn("Malformed field ignored",
		logging.String(logging.KeyField, field),
		logging.String("value", value),
		logging.Err(err))
	if r.handler != nil {
		r.handler(w)
	}
}

// Warnings returns the warnings recorded so far.
func (r *Recorder) Warnings() []Warning {
	return append([]Warning(nil), r.warnings...)
}

// Date parses a yyyyMMdd value.  Blank input is absent; malformed input is
// absent and warned.
func (r *Recorder) Date(field, raw string) *patent.DocumentDate {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := patent.ParseDocumentDate(raw)
	if err != nil {
		r.Warn(field, raw, err)
		return nil
	}
	return &d
}

// Classification parses code under scheme.  Blank input is absent; malformed
// input is absent and warned.  raw is handed over untrimmed so fixed-layout
// padding survives.
func (r *Recorder) Classification(scheme classification.Scheme, field, raw string) classification.Classification {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	c, err := classification.Parse(scheme, raw)
	if err != nil {
		r.Warn(field, strings.TrimSpace(raw), err)
		return nil
	}
	return c
}

// PatentType parses a type value or APT code.
func (r *Recorder) PatentType(field, raw string) patent.PatentType {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return patent.PatentTypeUnknown
	}
	t, err := patent.ParsePatentType(raw)
	if err != nil {
		r.Warn(field, raw, err)
		return patent.PatentTypeUnknown
	}
	return t
}

// ClaimNumber reads a claim number from an attribute or leading text such as
// "00003", "3." or "3 .".  When nothing numeric is found the 1-based position
// of the claim is used.
func ClaimNumber(raw string, position int) int {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end > 0 {
		if n, err := strconv.Atoi(raw[:end]); err == nil && n > 0 {
			return n
		}
	}
	return position
}

// StripClaimNumber removes a leading "3." or "3 ." number from claim text.
func StripClaimNumber(s string) string {
	t := strings.TrimSpace(s)
	end := 0
	for end < len(t) && t[end] >= '0' && t[end] <= '9' {
		end++
	}
	if end == 0 {
		return s
	}
	rest := strings.TrimLeft(t[end:], " ")
	if !strings.HasPrefix(rest, ".") {
		return s
	}
	return strings.TrimSpace(rest[1:])
}

// Collaborators bundles what a format parser needs besides its input.
type Collaborators struct {
	Normalizer text.Normalizer
	Claims     *patent.ClaimTreeBuilder
	Recorder   *Recorder
}

// Defaults fills nil collaborators with the package defaults.
func (c Collaborators) Defaults(format string) Collaborators {
	if c.Normalizer == nil {
		c.Normalizer = text.NewNormalizer()
	}
	if c.Claims == nil {
		c.Claims = patent.NewClaimTreeBuilder(nil)
	}
	if c.Recorder == nil {
		c.Recorder = NewRecorder(nil, format, nil)
	}
	return c
}

// SetID offers the primary identifier to b and tags the log context with it.
// Only the error of the offer is returned; the caller decides whether it is
// fatal.
func (c Collaborators) SetID(b *patent.Builder, id patent.DocumentID) error {
	if err := b.SetID(id); err != nil {
		return err
	}
	c.Recorder.SetDocID(id.String())
	return nil
}

// BuildClaims runs the claim tree builder over the extracted claims.
func (c Collaborators) BuildClaims(claims []patent.Claim) patent.ClaimSet {
	if len(claims) == 0 {
		return nil
	}
	return c.Claims.Build(claims, c.Recorder.Logger())
}

//Personal.AI order the ending
