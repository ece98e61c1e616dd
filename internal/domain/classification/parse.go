package classification

import (
	"regexp"
	"strings"

	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// ErrInvalidClassification is the sentinel matched by errors.Is for every
// code that cannot be decomposed into its scheme's fields.
var ErrInvalidClassification = errors.New(errors.ErrCodeInvalidClassification, "invalid classification code")

var (
	// H04N 21/4722, H04N21/4722, H04N 21, h04n  021 / 04722
	symbolPattern = regexp.MustCompile(`^([A-HY])\s*(\d{2})\s*([A-Z])\s*(\d{1,4})(?:\s*/\s*(\d{1,6}))?$`)

	sectionPattern   = regexp.MustCompile(`^[A-HY]$`)
	classPattern     = regexp.MustCompile(`^\d{2}$`)
	subclassPattern  = regexp.MustCompile(`^[A-Z]$`)
	groupPattern     = regexp.MustCompile(`^\d{1,4}$`)
	subgroupPattern  = regexp.MustCompile(`^\d{1,6}$`)
	uspcClassPattern = regexp.MustCompile(`^[A-Z0-9]{1,3}$`)
)

func invalid(scheme Scheme, code string) error {
	return ErrInvalidClassification.WithDetailf("%s %q", scheme, code)
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" && s != "" {
		return "0"
	}
	return t
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type symbolParts struct {
	section, class, subclass, group, subgroup string
}

// splitSymbol decomposes a CPC/IPC style symbol written with a slash
// separator, or in the fixed layout used by legacy records ("B32B 2700",
// "A61K  900"): four character subclass symbol, three character
// right-justified group, then a subgroup of at least two digits.
func splitSymbol(code string) (symbolParts, bool) {
	s := strings.ToUpper(strings.TrimSpace(code))
	if head, group, sub, ok := fixedSymbol(s); ok {
		if m := symbolPattern.FindStringSubmatch(head + group + "/" + sub); m != nil {
			return symbolParts{m[1], m[2], m[3], m[4], m[5]}, true
		}
	}
	if m := symbolPattern.FindStringSubmatch(s); m != nil {
		return symbolParts{m[1], m[2], m[3], m[4], m[5]}, true
	}
	return symbolParts{}, false
}

// fixedSymbol slices s by column.  The group column must hold only padding
// followed by digits, so "H04N 21" and "H04N  21" stay in the spaced layout.
func fixedSymbol(s string) (head, group, sub string, ok bool) {
	if len(s) < 9 || strings.Contains(s, "/") {
		return "", "", "", false
	}
	head, group, sub = s[:4], strings.TrimLeft(s[4:7], " "), strings.TrimLeft(s[7:], " ")
	if !allDigits(group) || len(sub) < 2 || !allDigits(sub) {
		return "", "", "", false
	}
	return head, group, sub, true
}

func (p symbolParts) normalized() symbolParts {
	p.group = trimZeros(p.group)
	if p.subgroup == "" {
		p.subgroup = "00"
	}
	return p
}

// ParseCPC parses a CPC symbol such as "H04N 21/4722".  A symbol without a
// subgroup ("H04N 21") gets the main-group subgroup "00".
func ParseCPC(code string) (CPC, error) {
	p, ok := splitSymbol(code)
	if !ok {
		return CPC{}, invalid(SchemeCPC, code)
	}
	p = p.normalized()
	return CPC{Section: p.section, MainClass: p.class, Subclass: p.subclass, MainGroup: p.group, Subgroup: p.subgroup}, nil
}

// NewCPC builds a CPC value from already separated fields, as found in the
// structured classification elements of XML documents.
func NewCPC(section, mainClass, subclass, mainGroup, subgroup string) (CPC, error) {
	p, err := checkParts(SchemeCPC, section, mainClass, subclass, mainGroup, subgroup)
	if err != nil {
		return CPC{}, err
	}
	return CPC{Section: p.section, MainClass: p.class, Subclass: p.subclass, MainGroup: p.group, Subgroup: p.subgroup}, nil
}

// ParseIPC parses an IPC symbol in slash or fixed layout.
func ParseIPC(code string) (IPC, error) {
	p, ok := splitSymbol(code)
	if !ok || p.section == "Y" {
		return IPC{}, invalid(SchemeIPC, code)
	}
	p = p.normalized()
	return IPC{Section: p.section, MainClass: p.class, Subclass: p.subclass, MainGroup: p.group, Subgroup: p.subgroup}, nil
}

// NewIPC builds an IPC value from separated fields.
func NewIPC(section, mainClass, subclass, mainGroup, subgroup string) (IPC, error) {
	p, err := checkParts(SchemeIPC, section, mainClass, subclass, mainGroup, subgroup)
	if err != nil || p.section == "Y" {
		return IPC{}, invalid(SchemeIPC, section+mainClass+subclass+mainGroup+"/"+subgroup)
	}
	return IPC{Section: p.section, MainClass: p.class, Subclass: p.subclass, MainGroup: p.group, Subgroup: p.subgroup}, nil
}

func checkParts(scheme Scheme, section, mainClass, subclass, mainGroup, subgroup string) (symbolParts, error) {
	p := symbolParts{
		section:  strings.ToUpper(strings.TrimSpace(section)),
		class:    strings.TrimSpace(mainClass),
		subclass: strings.ToUpper(strings.TrimSpace(subclass)),
		group:    strings.TrimSpace(mainGroup),
		subgroup: strings.TrimSpace(subgroup),
	}
	if !sectionPattern.MatchString(p.section) ||
		!classPattern.MatchString(p.class) ||
		!subclassPattern.MatchString(p.subclass) ||
		!groupPattern.MatchString(p.group) ||
		(p.subgroup != "" && !subgroupPattern.MatchString(p.subgroup)) {
		return symbolParts{}, invalid(scheme, section+mainClass+subclass+mainGroup+"/"+subgroup)
	}
	return p.normalized(), nil
}

// ParseUSPC parses a USPC code.  Accepted layouts:
//
//	428/195   class and subclass separated by a slash
//	428195    fixed layout: three character class, subclass in the remainder
//	  2 12    fixed layout with a right-justified class
//	D11152    design class in fixed layout
//	2 12      class and subclass separated by blanks
//	340572 1  fixed layout with a blank inside the subclass
//	428       class only
//
// Leading padding is significant: callers must not trim fixed-layout values.
func ParseUSPC(code string) (USPC, error) {
	s := strings.ToUpper(strings.TrimLeft(strings.TrimRight(code, " \t\r\n"), "\r\n"))
	t := strings.TrimSpace(s)
	blank := blankAfterClass(t)
	var main, sub string
	switch {
	case strings.Contains(t, "/"):
		main, sub, _ = strings.Cut(t, "/")
		if strings.TrimSpace(sub) == "" {
			return USPC{}, invalid(SchemeUSPC, code)
		}
	case rightJustified(s):
		main, sub = s[:3], s[3:]
	case blank > 0:
		main, sub = t[:blank], t[blank:]
	case len(t) > 3:
		main, sub = t[:3], t[3:]
	default:
		main = t
	}
	return NewUSPC(main, sub)
}

// blankAfterClass returns the index of the blank ending a one to three
// character class, or -1.
func blankAfterClass(t string) int {
	i := strings.IndexAny(t, " \t")
	if i < 1 || i > 3 {
		return -1
	}
	return i
}

// rightJustified reports whether s opens with a class padded to three columns
// and carries a subclass after it.
func rightJustified(s string) bool {
	pad := len(s) - len(strings.TrimLeft(s, " "))
	return pad > 0 && pad < 3 && len(s) > 3
}

// NewUSPC builds a USPC value from separated class and subclass strings.
// Numeric classes lose their zero padding ("042" becomes "42"); subclass text
// is kept verbatim apart from whitespace.
func NewUSPC(mainClass, subclass string) (USPC, error) {
	main := strings.ToUpper(strings.Join(strings.Fields(mainClass), ""))
	if allDigits(main) {
		main = trimZeros(main)
	}
	if !uspcClassPattern.MatchString(main) {
		return USPC{}, invalid(SchemeUSPC, mainClass+"/"+subclass)
	}
	sub := strings.Join(strings.Fields(subclass), " ")
	return USPC{MainClass: main, Subclass: sub}, nil
}

// Parse parses code according to scheme.
func Parse(scheme Scheme, code string) (Classification, error) {
	var (
		c   Classification
		err error
	)
	switch scheme {
	case SchemeCPC:
		c, err = ParseCPC(code)
	case SchemeUSPC:
		c, err = ParseUSPC(code)
	case SchemeIPC:
		c, err = ParseIPC(code)
	default:
		return nil, ErrInvalidClassification.WithDetailf("unknown scheme %q", scheme)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ParseList parses every code in codes with the same scheme.  The first
// invalid code aborts the whole list.
func ParseList(scheme Scheme, codes []string) ([]Classification, error) {
	out := make([]Classification, 0, len(codes))
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			continue
		}
		c, err := Parse(scheme, code)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

//Personal.AI order the ending
