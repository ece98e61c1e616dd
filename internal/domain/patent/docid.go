// Package patent implements the unified patent document model produced by
// every format parser: document identifiers and dates, parties, citations,
// the claim arena with its dependency tree, and the sealed Application / Grant
// lifecycle types.  Values are assembled through Builder so that a document is
// only ever observed fully populated.
package patent

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// DocumentDate
// ─────────────────────────────────────────────────────────────────────────────

// dateLayout is the yyyyMMdd layout used by every supported format.
const dateLayout = "20060102"

// ErrInvalidDate is returned by ParseDocumentDate for malformed input.
var ErrInvalidDate = errors.New(errors.ErrCodeInvalidDate, "invalid document date")

// DocumentDate is a calendar date without time-of-day.
type DocumentDate struct {
	t time.Time
}

// ParseDocumentDate parses a yyyyMMdd date.  Month or day values of "00",
// found in some legacy records, are rejected.
func ParseDocumentDate(raw string) (DocumentDate, error) {
	s := strings.TrimSpace(raw)
	if len(s) != len(dateLayout) {
		return DocumentDate{}, ErrInvalidDate.WithDetailf("value=%q", raw)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return DocumentDate{}, ErrInvalidDate.WithDetailf("value=%q", raw).WithCause(err)
	}
	return DocumentDate{t: t}, nil
}

// NewDocumentDate builds a DocumentDate from its components.
func NewDocumentDate(year int, month time.Month, day int) DocumentDate {
	return DocumentDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Time returns the date at midnight UTC.
func (d DocumentDate) Time() time.Time { return d.t }

// IsZero reports whether d is the zero date.
func (d DocumentDate) IsZero() bool { return d.t.IsZero() }

// Year returns the calendar year.
func (d DocumentDate) Year() int { return d.t.Year() }

// String renders d in the yyyyMMdd source layout.
func (d DocumentDate) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// MarshalJSON renders d as an ISO-8601 date.
func (d DocumentDate) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.t.Format(time.DateOnly))
}

// UnmarshalJSON accepts ISO-8601 dates and the yyyyMMdd layout.
func (d *DocumentDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = DocumentDate{}
		return nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		*d = DocumentDate{t: t}
		return nil
	}
	parsed, err := ParseDocumentDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// DocumentID
// ─────────────────────────────────────────────────────────────────────────────

// CountryCode is a two-letter WIPO ST.3 office or country code.
type CountryCode string

const (
	CountryUS      CountryCode = "US"
	CountryWO      CountryCode = "WO"
	CountryUnknown CountryCode = ""
)

// ParseCountryCode upper-cases and validates a two-letter code.  Anything else
// yields CountryUnknown and false.
func ParseCountryCode(s string) (CountryCode, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'A' || s[0] > 'Z' || s[1] < 'A' || s[1] > 'Z' {
		return CountryUnknown, false
	}
	return CountryCode(s), true
}

// DocumentIDType tags the role an identifier plays for a document.
type DocumentIDType string

const (
	IDTypePublication        DocumentIDType = "publication"
	IDTypeApplication        DocumentIDType = "application"
	IDTypePriority           DocumentIDType = "priority"
	IDTypeProvisional        DocumentIDType = "provisional"
	IDTypeContinuation       DocumentIDType = "continuation"
	IDTypeContinuationInPart DocumentIDType = "continuation-in-part"
	IDTypeDivision           DocumentIDType = "division"
	IDTypeReissue            DocumentIDType = "reissue"
	IDTypePCT                DocumentIDType = "pct"
	IDTypeRelated            DocumentIDType = "related"
	IDTypeCitation           DocumentIDType = "citation"
)

// DocumentID identifies a patent document: country, number, kind code, the
// issuing authority and an optional date.  It is a value type; the With*
// methods return modified copies.
type DocumentID struct {
	Country   CountryCode    `json:"country"`
	Number    string         `json:"number"`
	Kind      string         `json:"kind,omitempty"`
	Authority CountryCode    `json:"authority,omitempty"`
	Type      DocumentIDType `json:"type,omitempty"`
	Date      *DocumentDate  `json:"date,omitempty"`
}

// NewDocumentID builds an identifier issued by the office of its own country.
func NewDocumentID(country CountryCode, number, kind string) DocumentID {
	return DocumentID{
		Country:   country,
		Number:    strings.TrimSpace(number),
		Kind:      strings.ToUpper(strings.TrimSpace(kind)),
		Authority: country,
	}
}

// WithType returns a copy of id tagged with t.
func (id DocumentID) WithType(t DocumentIDType) DocumentID {
	id.Type = t
	return id
}

// WithDate returns a copy of id carrying d.  A nil d clears the date.
func (id DocumentID) WithDate(d *DocumentDate) DocumentID {
	if d == nil {
		id.Date = nil
		return id
	}
	v := *d
	id.Date = &v
	return id
}

// WithAuthority returns a copy of id issued by authority.
func (id DocumentID) WithAuthority(authority CountryCode) DocumentID {
	id.Authority = authority
	return id
}

// IsZero reports whether id carries no number.
func (id DocumentID) IsZero() bool { return strings.TrimSpace(id.Number) == "" }

// String renders id as country + number + kind, e.g. "US7654321B2".
func (id DocumentID) String() string {
	return string(id.Country) + id.Number + id.Kind
}

// Key returns the identity used for de-duplication: country, number and kind.
func (id DocumentID) Key() string { return id.String() }

//Personal.AI order the ending
