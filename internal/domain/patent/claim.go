package patent

import (
	"fmt"
	"sort"

	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// ClaimType defines whether a claim is independent or dependent.
type ClaimType uint8

const (
	ClaimTypeUnknown     ClaimType = 0
	ClaimTypeIndependent ClaimType = 1
	ClaimTypeDependent   ClaimType = 2
)

func (t ClaimType) String() string {
	switch t {
	case ClaimTypeIndependent:
		return "Independent"
	case ClaimTypeDependent:
		return "Dependent"
	default:
		return "Unknown"
	}
}

func (t ClaimType) IsValid() bool {
	return t == ClaimTypeIndependent || t == ClaimTypeDependent
}

// Claim is a single patent claim.  Claims of a document live in a ClaimSet
// ordered by number; Parent is the number of the claim this one narrows, or
// zero for an independent claim.  Children are never stored: they are derived
// by ClaimTree.
type Claim struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Parent int    `json:"parent,omitempty"`
}

// NewClaim constructs an independent claim.
func NewClaim(number int, text string) (Claim, error) {
	if number <= 0 {
		return Claim{}, errors.New(errors.ErrCodeInvalidClaim, "claim number must be greater than zero").
			WithDetailf("number=%d", number)
	}
	return Claim{Number: number, Text: text}, nil
}

// IsIndependent reports whether the claim has no parent.
func (c Claim) IsIndependent() bool { return c.Parent == 0 }

// Type returns the ClaimType derived from the parent link.
func (c Claim) Type() ClaimType {
	if c.Parent == 0 {
		return ClaimTypeIndependent
	}
	return ClaimTypeDependent
}

// ClaimSet is the claim arena of a single document, ordered by claim number.
type ClaimSet []Claim

// Sorted returns a copy of cs ordered by claim number.
func (cs ClaimSet) Sorted() ClaimSet {
	out := make(ClaimSet, len(cs))
	copy(out, cs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// IndependentClaims returns all independent claims in the set.
func (cs ClaimSet) IndependentClaims() []Claim {
	var result []Claim
	for _, c := range cs {
		if c.IsIndependent() {
			result = append(result, c)
		}
	}
	return result
}

// DependentClaimsOf returns claims that directly depend on the specified claim number.
func (cs ClaimSet) DependentClaimsOf(number int) []Claim {
	var result []Claim
	for _, c := range cs {
		if c.Parent == number && number != 0 {
			result = append(result, c)
		}
	}
	return result
}

// FindByNumber locates a claim by its number.
func (cs ClaimSet) FindByNumber(number int) (Claim, bool) {
	for _, c := range cs {
		if c.Number == number {
			return c, true
		}
	}
	return Claim{}, false
}

// Validate checks the consistency of the entire claim set: positive unique
// numbers, and every parent pointing to an existing, strictly lower claim.
// A set that satisfies these rules is a forest.
func (cs ClaimSet) Validate() error {
	seen := make(map[int]bool, len(cs))
	for _, c := range cs {
		if c.Number <= 0 {
			return errors.New(errors.ErrCodeInvalidClaim, "claim number must be greater than zero").
				WithDetailf("number=%d", c.Number)
		}
		if seen[c.Number] {
			return errors.New(errors.ErrCodeInvalidClaim, "duplicate claim number").
				WithDetailf("number=%d", c.Number)
		}
		seen[c.Number] = true
	}
	for _, c := range cs {
		if c.Parent == 0 {
			continue
		}
		if c.Parent >= c.Number {
			return errors.New(errors.ErrCodeInvalidClaim, "claim depends on a later claim").
				WithDetail(fmt.Sprintf("claim=%d parent=%d", c.Number, c.Parent))
		}
		if !seen[c.Parent] {
			return errors.New(errors.ErrCodeInvalidClaim, "claim depends on a missing claim").
				WithDetail(fmt.Sprintf("claim=%d parent=%d", c.Number, c.Parent))
		}
	}
	return nil
}

//Personal.AI order the ending
