// Package text provides the text-normalization collaborator shared by every
// format parser.  Free text taken from patent documents arrives with mixed
// Unicode forms, hard-wrapped lines, non-breaking spaces and upper-case
// titles; the Normalizer turns it into a stable representation.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalizer cleans free-text fields.  Implementations must be safe for
// concurrent use because a single instance is shared by every parse of a
// Reader.
type Normalizer interface {
	// Normalize cleans body text while keeping paragraph breaks.
	Normalize(s string) string
	// Title normalizes s to a single line and title-cases it.
	Title(s string) string
}

// Option configures the default normalizer.
type Option func(*normalizer)

// WithMaxBlankLines caps the number of consecutive blank lines kept between
// paragraphs.  The default is 1.
func WithMaxBlankLines(n int) Option {
	return func(x *normalizer) {
		if n >= 0 {
			x.maxBlank = n
		}
	}
}

// WithLanguage selects the language tag used for title casing.  The default
// is English.
func WithLanguage(tag language.Tag) Option {
	return func(x *normalizer) { x.lang = tag }
}

type normalizer struct {
	maxBlank int
	lang     language.Tag
}

// NewNormalizer returns the default Normalizer.
func NewNormalizer(opts ...Option) Normalizer {
	n := &normalizer{maxBlank: 1, lang: language.English}
	for _, o := range opts {
		o(n)
	}
	return n
}

var spaceReplacer = strings.NewReplacer(
	"\u00a0", " ", // no-break space
	"\u2007", " ", // figure space
	"\u202f", " ", // narrow no-break space
	"\t", " ",
	"\r\n", "\n",
	"\r", "\n",
)

// Normalize applies NFC, drops control characters, collapses runs of spaces
// inside each line, trims lines and limits consecutive blank lines.
func (n *normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = clean(s)

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank > n.maxBlank || len(out) == 0 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// Title collapses s to a single line and title-cases it, so "WIDGET  FOR\nA
// MACHINE" becomes "Widget For A Machine".
func (n *normalizer) Title(s string) string {
	s = strings.Join(strings.Fields(clean(s)), " ")
	if s == "" {
		return ""
	}
	// cases.Caser keeps state; one per call keeps the normalizer shareable.
	return cases.Title(n.lang).String(s)
}

func clean(s string) string {
	s = norm.NFC.String(s)
	s = spaceReplacer.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == 0 || r == unicode.ReplacementChar {
			continue
		}
		if unicode.IsControl(r) && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

//Personal.AI order the ending
