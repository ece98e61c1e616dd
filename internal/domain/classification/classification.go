// Package classification models the technical classification schemes found in
// US patent documents: the Cooperative Patent Classification (CPC), the legacy
// United States Patent Classification (USPC) and the International Patent
// Classification (IPC).
//
// Classification is a sealed interface: only the value types declared in this
// package implement it, and callers select scheme-specific behaviour with a
// type switch.  Values are immutable once parsed.
package classification

import (
	"fmt"
)

// Scheme tags a Classification with the taxonomy it belongs to.
type Scheme string

const (
	SchemeCPC  Scheme = "cpc"
	SchemeUSPC Scheme = "uspc"
	SchemeIPC  Scheme = "ipc"
)

// String returns the lower-case scheme tag.
func (s Scheme) String() string { return string(s) }

// IsValid reports whether s is one of the known schemes.
func (s Scheme) IsValid() bool {
	switch s {
	case SchemeCPC, SchemeUSPC, SchemeIPC:
		return true
	default:
		return false
	}
}

// ParseScheme converts a user supplied tag ("cpc", "USPC", ...) to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(lower(s)) {
	case SchemeCPC:
		return SchemeCPC, nil
	case SchemeUSPC:
		return SchemeUSPC, nil
	case SchemeIPC:
		return SchemeIPC, nil
	default:
		return "", fmt.Errorf("classification: unknown scheme %q", s)
	}
}

// Classification is a single classification code tagged with exactly one
// scheme.
type Classification interface {
	// Scheme returns the taxonomy tag.
	Scheme() Scheme
	// String returns the normalized textual code, e.g. "H04N21/4722".
	String() string

	sealed()
}

// ─────────────────────────────────────────────────────────────────────────────
// CPC
// ─────────────────────────────────────────────────────────────────────────────

// CPC is a Cooperative Patent Classification symbol, e.g. H04N 21/4722:
// section H, main class 04, subclass N, main group 21, subgroup 4722.
type CPC struct {
	Section   string `json:"section"`
	MainClass string `json:"main_class"`
	Subclass  string `json:"subclass"`
	MainGroup string `json:"main_group"`
	Subgroup  string `json:"subgroup"`
}

func (CPC) Scheme() Scheme { return SchemeCPC }
func (CPC) sealed()        {}

func (c CPC) String() string {
	return c.Section + c.MainClass + c.Subclass + c.MainGroup + "/" + c.Subgroup
}

// Equal reports whether every structural field of c and o matches.
func (c CPC) Equal(o CPC) bool {
	return c == o
}

// SameMainGroup compares section, main class, subclass and main group.
// The subgroup is not consulted.
func (c CPC) SameMainGroup(o CPC) bool {
	return c.Section == o.Section &&
		c.MainClass == o.MainClass &&
		c.Subclass == o.Subclass &&
		c.MainGroup == o.MainGroup
}

// ─────────────────────────────────────────────────────────────────────────────
// USPC
// ─────────────────────────────────────────────────────────────────────────────

// USPC is a legacy US classification made of an opaque main class code and
// an opaque subclass code, e.g. 428/195 or D11/152.
type USPC struct {
	MainClass string `json:"main_class"`
	Subclass  string `json:"subclass"`
}

func (USPC) Scheme() Scheme { return SchemeUSPC }
func (USPC) sealed()        {}

func (u USPC) String() string {
	if u.Subclass == "" {
		return u.MainClass
	}
	return u.MainClass + "/" + u.Subclass
}

// Equal reports whether main class and subclass both match.
func (u USPC) Equal(o USPC) bool {
	return u == o
}

// SameMainClass compares the main class only.
func (u USPC) SameMainClass(o USPC) bool {
	return u.MainClass == o.MainClass
}

// ─────────────────────────────────────────────────────────────────────────────
// IPC
// ─────────────────────────────────────────────────────────────────────────────

// IPC is an International Patent Classification symbol.  It is parsed and
// kept on documents but is not used for corpus matching.
type IPC struct {
	Section   string `json:"section"`
	MainClass string `json:"main_class"`
	Subclass  string `json:"subclass"`
	MainGroup string `json:"main_group"`
	Subgroup  string `json:"subgroup"`
}

func (IPC) Scheme() Scheme { return SchemeIPC }
func (IPC) sealed()        {}

func (i IPC) String() string {
	return i.Section + i.MainClass + i.Subclass + i.MainGroup + "/" + i.Subgroup
}

// Equal reports whether every structural field of i and o matches.
func (i IPC) Equal(o IPC) bool {
	return i == o
}

// ─────────────────────────────────────────────────────────────────────────────
// Scheme-aware helpers
// ─────────────────────────────────────────────────────────────────────────────

// Equal reports full structural equality of two classifications.  Values of
// different schemes are never equal.
func Equal(a, b Classification) bool {
	switch x := a.(type) {
	case CPC:
		y, ok := b.(CPC)
		return ok && x.Equal(y)
	case USPC:
		y, ok := b.(USPC)
		return ok && x.Equal(y)
	case IPC:
		y, ok := b.(IPC)
		return ok && x.Equal(y)
	default:
		return false
	}
}

// Key returns the identity of c inside a Set: scheme tag plus normalized code.
func Key(c Classification) string {
	return c.Scheme().String() + ":" + c.String()
}

// Of returns the members of items whose concrete type is T, preserving order.
func Of[T Classification](items []Classification) []T {
	var out []T
	for _, c := range items {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

//Personal.AI order the ending
