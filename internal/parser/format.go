package parser

import (
	"bytes"
	"strings"

	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/greenbook"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/pap"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/redbook"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/sgml"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// Format identifies one of the supported USPTO document formats.  The zero
// value is not a format.
type Format int

const (
	FormatGreenbook Format = iota + 1
	FormatRedbookApplication
	FormatRedbookGrant
	FormatSGML
	FormatPAP
)

// ErrUnsupportedFormat is returned for a Format outside the enumeration or an
// unknown format name.
var ErrUnsupportedFormat = errors.New(errors.ErrCodeUnsupportedFormat, "unsupported document format")

// Formats lists every supported format in declaration order.
func Formats() []Format {
	return []Format{FormatGreenbook, FormatRedbookApplication, FormatRedbookGrant, FormatSGML, FormatPAP}
}

// String returns the format label used in logs, metrics and the CLI.
func (f Format) String() string {
	switch f {
	case FormatGreenbook:
		return greenbook.FormatName
	case FormatRedbookApplication:
		return redbook.ApplicationFormatName
	case FormatRedbookGrant:
		return redbook.GrantFormatName
	case FormatSGML:
		return sgml.FormatName
	case FormatPAP:
		return pap.FormatName
	default:
		return "unknown"
	}
}

// IsValid reports whether f is one of the enumerated formats.
func (f Format) IsValid() bool {
	return f >= FormatGreenbook && f <= FormatPAP
}

// MediaType returns the file extension and content type of a raw document
// in format f.
func (f Format) MediaType() (ext, contentType string) {
	switch f {
	case FormatGreenbook:
		return ".txt", "text/plain"
	case FormatSGML:
		return ".sgm", "text/sgml"
	default:
		return ".xml", "application/xml"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if !f.IsValid() {
		return nil, ErrUnsupportedFormat.WithDetailf("format=%d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFormat accepts a format label ("redbook-grant") case-insensitively,
// with "_" or no separator in place of "-" ("RedbookGrant").
func ParseFormat(s string) (Format, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, f := range Formats() {
		if strings.ReplaceAll(f.String(), "-", "") == key {
			return f, nil
		}
	}
	return 0, ErrUnsupportedFormat.WithDetailf("format=%q", s)
}

// detectWindow bounds how much of a document Detect inspects.
const detectWindow = 4096

// Detect guesses the format of a document from its first bytes.  Bulk
// archives mix formats only across years, so the root element (or the APS
// PATN record) is enough.
func Detect(head []byte) (Format, bool) {
	if len(head) > detectWindow {
		head = head[:detectWindow]
	}
	switch {
	case bytes.Contains(head, []byte("<us-patent-application")):
		return FormatRedbookApplication, true
	case bytes.Contains(head, []byte("<us-patent-grant")):
		return FormatRedbookGrant, true
	case bytes.Contains(head, []byte("<patent-application-publication")):
		return FormatPAP, true
	case bytes.Contains(bytes.ToUpper(head), []byte("<PATDOC")):
		return FormatSGML, true
	case bytes.HasPrefix(head, []byte("PATN")), bytes.Contains(head, []byte("\nPATN")):
		return FormatGreenbook, true
	default:
		return 0, false
	}
}

//Personal.AI order the ending
