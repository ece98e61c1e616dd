package patent

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// DependencyRecognizer
// ─────────────────────────────────────────────────────────────────────────────

// DependencyRecognizer extracts references to other claims from claim text.
// References returns the distinct claim numbers mentioned and whether the
// phrasing is ambiguous (ranges, alternatives, "any preceding claim").
type DependencyRecognizer interface {
	References(text string) (refs []int, ambiguous bool)
}

// DependencyRecognizerFunc adapts a plain function to DependencyRecognizer.
type DependencyRecognizerFunc func(text string) ([]int, bool)

// References calls f(text).
func (f DependencyRecognizerFunc) References(text string) ([]int, bool) { return f(text) }

var (
	// claim 3 / claim No. 3 / claim number 3
	singleClaimRef = regexp.MustCompile(`(?i)\bclaim\s+(?:no\.?\s*|number\s+)?(\d+)\b`)

	// claims 1 to 4 / claims 1-4 / claim 1 through 4
	rangeClaimRef = regexp.MustCompile(`(?i)\bclaims?\s+(?:no\.?\s*)?\d+\s*(?:to|-|through|thru)\s*\d+\b`)

	// claims 1, 2 or 3 / claim 1 or 2 / claims 1 and 5 / claims 1 and/or 2
	listClaimRef = regexp.MustCompile(`(?i)\bclaims?\s+\d+(?:\s*,\s*\d+)*\s*,?\s*(?:or|and|and/or)\s+\d+\b`)

	// any preceding claim / any one of the previous claims / any of the above claims
	anyClaimRef = regexp.MustCompile(`(?i)\bany\s+(?:one\s+)?(?:of\s+)?(?:the\s+)?(?:preceding|previous|foregoing|above|prior)\s+claims?\b`)

	// Unicode dashes normalised before matching.
	dashReplacer = strings.NewReplacer("‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "−", "-")
)

// PhraseRecognizer is the default DependencyRecognizer.  It understands the
// usual US drafting conventions:
//
//	"claim N", "claim No. N", "claim number N"          single reference
//	"claims N to M", "claims N-M", "claims N through M" range, ambiguous
//	"claims N, M or K", "claim N or M", "claims N and M" alternatives, ambiguous
//	"any preceding claim", "any one of the previous claims" ambiguous
//
// Matching is case-insensitive.
type PhraseRecognizer struct{}

// References implements DependencyRecognizer.
func (PhraseRecognizer) References(text string) ([]int, bool) {
	text = dashReplacer.Replace(text)
	if rangeClaimRef.MatchString(text) || listClaimRef.MatchString(text) || anyClaimRef.MatchString(text) {
		return nil, true
	}
	seen := make(map[int]bool)
	var refs []int
	for _, m := range singleClaimRef.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		refs = append(refs, n)
	}
	return refs, len(refs) > 1
}

// ─────────────────────────────────────────────────────────────────────────────
// ClaimTreeBuilder
// ─────────────────────────────────────────────────────────────────────────────

// ClaimTreeBuilder assigns parent links to an extracted claim list.  It is
// stateless and safe for concurrent use.
type ClaimTreeBuilder struct {
	recognizer DependencyRecognizer
}

// NewClaimTreeBuilder returns a builder using rec, or PhraseRecognizer when
// rec is nil.
func NewClaimTreeBuilder(rec DependencyRecognizer) *ClaimTreeBuilder {
	if rec == nil {
		rec = PhraseRecognizer{}
	}
	return &ClaimTreeBuilder{recognizer: rec}
}

// Build returns a copy of claims ordered by number with Parent assigned:
//
//   - exactly one unambiguous reference to an existing, strictly lower claim
//     becomes the parent;
//   - no reference, or ambiguous phrasing, leaves the claim independent;
//   - a reference to the claim itself, a later claim or a missing claim is
//     logged and dropped.
//
// Claims with a non-positive or repeated number are logged and skipped.  Any
// incoming Parent value is ignored.  Build never fails.
func (b *ClaimTreeBuilder) Build(claims []Claim, log logging.Logger) ClaimSet {
	if log == nil {
		log = logging.NewNopLogger()
	}

	sorted := ClaimSet(claims).Sorted()
	out := make(ClaimSet, 0, len(sorted))
	numbers := make(map[int]bool, len(sorted))
	for _, c := range sorted {
		if c.Number <= 0 {
			log.Warn("Claim without a valid number skipped", logging.Int("claim", c.Number))
			continue
		}
		if numbers[c.Number] {
			log.Warn("Duplicate claim number skipped", logging.Int("claim", c.Number))
			continue
		}
		numbers[c.Number] = true
		c.Parent = 0
		out = append(out, c)
	}

	for i := range out {
		c := &out[i]
		refs, ambiguous := b.recognizer.References(c.Text)
		switch {
		case ambiguous:
			log.Debug("Ambiguous claim reference, claim kept independent", logging.Int("claim", c.Number))
		case len(refs) == 0:
		case refs[0] >= c.Number:
			log.Warn("Claim references itself or a later claim, reference dropped",
				logging.Int("claim", c.Number), logging.Int("reference", refs[0]))
		case !numbers[refs[0]]:
			log.Warn("Claim references a missing claim, reference dropped",
				logging.Int("claim", c.Number), logging.Int("reference", refs[0]))
		default:
			c.Parent = refs[0]
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// ClaimTree: derived view
// ─────────────────────────────────────────────────────────────────────────────

// ClaimTree is a read-only forest view over a ClaimSet.  It is rebuilt on
// demand and never owns the claims.
type ClaimTree struct {
	claims   ClaimSet
	index    map[int]int
	children map[int][]int
	roots    []int
}

// NewClaimTree derives the forest from the parent links of claims.  Parent
// links that do not resolve to a claim of the set are treated as absent.
func NewClaimTree(claims ClaimSet) ClaimTree {
	t := ClaimTree{
		claims:   claims,
		index:    make(map[int]int, len(claims)),
		children: make(map[int][]int),
	}
	for i, c := range claims {
		t.index[c.Number] = i
	}
	for _, c := range claims {
		if _, ok := t.index[c.Parent]; ok && c.Parent != 0 && c.Parent < c.Number {
			t.children[c.Parent] = append(t.children[c.Parent], c.Number)
			continue
		}
		t.roots = append(t.roots, c.Number)
	}
	for k := range t.children {
		sort.Ints(t.children[k])
	}
	sort.Ints(t.roots)
	return t
}

// Len returns the number of claims.
func (t ClaimTree) Len() int { return len(t.claims) }

// Claim returns the claim numbered n.
func (t ClaimTree) Claim(n int) (Claim, bool) {
	i, ok := t.index[n]
	if !ok {
		return Claim{}, false
	}
	return t.claims[i], true
}

// Roots returns the independent claim numbers in ascending order.
func (t ClaimTree) Roots() []int {
	return append([]int(nil), t.roots...)
}

// Independent returns the root claims in ascending order.
func (t ClaimTree) Independent() []Claim {
	out := make([]Claim, 0, len(t.roots))
	for _, n := range t.roots {
		c, _ := t.Claim(n)
		out = append(out, c)
	}
	return out
}

// Dependent returns every claim that has a parent, in ascending order.
func (t ClaimTree) Dependent() []Claim {
	var out []Claim
	for _, c := range t.claims.Sorted() {
		if _, ok := t.Parent(c.Number); ok {
			out = append(out, c)
		}
	}
	return out
}

// Children returns the numbers of the claims directly depending on n.
func (t ClaimTree) Children(n int) []int {
	return append([]int(nil), t.children[n]...)
}

// Parent returns the parent of n, if any.
func (t ClaimTree) Parent(n int) (int, bool) {
	c, ok := t.Claim(n)
	if !ok || c.Parent == 0 || c.Parent >= c.Number {
		return 0, false
	}
	if _, ok := t.index[c.Parent]; !ok {
		return 0, false
	}
	return c.Parent, true
}

// Descendants returns every claim directly or indirectly depending on n in
// breadth-first order.
func (t ClaimTree) Descendants(n int) []int {
	var out []int
	queue := t.Children(n)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		queue = append(queue, t.children[cur]...)
	}
	return out
}

// Depth returns the number of ancestors of n; independent claims have depth 0.
func (t ClaimTree) Depth(n int) int {
	depth := 0
	for {
		p, ok := t.Parent(n)
		if !ok {
			return depth
		}
		depth++
		n = p
	}
}

// Walk visits every claim depth-first, roots in ascending order, calling fn
// with the claim and its depth.
func (t ClaimTree) Walk(fn func(c Claim, depth int)) {
	var visit func(n, depth int)
	visit = func(n, depth int) {
		c, _ := t.Claim(n)
		fn(c, depth)
		for _, child := range t.children[n] {
			visit(child, depth+1)
		}
	}
	for _, r := range t.roots {
		visit(r, 0)
	}
}

// ClaimNode is one claim of the nested tree view.
type ClaimNode struct {
	Number   int         `json:"number"`
	Parent   int         `json:"parent,omitempty"`
	Depth    int         `json:"depth"`
	Text     string      `json:"text"`
	Children []ClaimNode `json:"children,omitempty"`
}

// Nodes returns the forest as nested nodes, roots in ascending order.
func (t ClaimTree) Nodes() []ClaimNode {
	var build func(n, depth int) ClaimNode
	build = func(n, depth int) ClaimNode {
		c, _ := t.Claim(n)
		parent, _ := t.Parent(n)
		node := ClaimNode{Number: n, Parent: parent, Depth: depth, Text: c.Text}
		for _, child := range t.children[n] {
			node.Children = append(node.Children, build(child, depth+1))
		}
		return node
	}
	out := make([]ClaimNode, 0, len(t.roots))
	for _, r := range t.roots {
		out = append(out, build(r, 0))
	}
	return out
}

//Personal.AI order the ending
