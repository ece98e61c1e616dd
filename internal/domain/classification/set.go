package classification

import (
	"encoding/json"
)

// Set is an insertion-ordered collection holding at most one entry per
// scheme-tagged code.  The zero value is an empty, usable set.  Set has value
// semantics: a copy never observes entries added to the original afterwards.
type Set struct {
	items []Classification
}

// NewSet returns a Set containing items, duplicates dropped.
func NewSet(items ...Classification) Set {
	var s Set
	for _, c := range items {
		s.Add(c)
	}
	return s
}

// Add inserts c and reports whether it was not already present.  Nil values
// are ignored.
func (s *Set) Add(c Classification) bool {
	if c == nil || s.Contains(c) {
		return false
	}
	// Clipping forces a fresh backing array so copies sharing the old one are
	// left untouched.
	s.items = append(s.items[:len(s.items):len(s.items)], c)
	return true
}

// Contains reports whether a classification with the same scheme and code is
// present.
func (s Set) Contains(c Classification) bool {
	if c == nil {
		return false
	}
	k := Key(c)
	for _, it := range s.items {
		if Key(it) == k {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (s Set) Len() int { return len(s.items) }

// All returns a copy of the entries in insertion order.
func (s Set) All() []Classification {
	out := make([]Classification, len(s.items))
	copy(out, s.items)
	return out
}

// CPC returns the CPC entries.
func (s Set) CPC() []CPC { return Of[CPC](s.items) }

// USPC returns the USPC entries.
func (s Set) USPC() []USPC { return Of[USPC](s.items) }

// IPC returns the IPC entries.
func (s Set) IPC() []IPC { return Of[IPC](s.items) }

// Strings returns the normalized codes prefixed by their scheme tag, e.g.
// "cpc:H04N21/4722".
func (s Set) Strings() []string {
	out := make([]string, 0, len(s.items))
	for _, c := range s.items {
		out = append(out, Key(c))
	}
	return out
}

type jsonEntry struct {
	Scheme Scheme `json:"scheme"`
	Code   string `json:"code"`
}

// MarshalJSON renders the set as an ordered list of {scheme, code} objects.
func (s Set) MarshalJSON() ([]byte, error) {
	entries := make([]jsonEntry, 0, len(s.items))
	for _, c := range s.items {
		entries = append(entries, jsonEntry{Scheme: c.Scheme(), Code: c.String()})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON rebuilds the set by re-parsing every code.
func (s *Set) UnmarshalJSON(data []byte) error {
	var entries []jsonEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*s = Set{}
	for _, e := range entries {
		c, err := Parse(e.Scheme, e.Code)
		if err != nil {
			return err
		}
		s.Add(c)
	}
	return nil
}

//Personal.AI order the ending
