package patent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/testutil"
)

func claims(texts ...string) []Claim {
	out := make([]Claim, 0, len(texts))
	for i, t := range texts {
		out = append(out, Claim{Number: i + 1, Text: t})
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// PhraseRecognizer
// ─────────────────────────────────────────────────────────────────────────────

func TestPhraseRecognizer(t *testing.T) {
	cases := []struct {
		text      string
		refs      []int
		ambiguous bool
	}{
		{"A method comprising a step.", nil, false},
		{"The method of claim 1, wherein the step is repeated.", []int{1}, false},
		{"The method as recited in Claim 12 further comprising.", []int{12}, false},
		{"The device according to claim No. 3.", []int{3}, false},
		{"The device according to claim number 4.", []int{4}, false},
		{"The method of claim 2, and as in claim 2, wherein.", []int{2}, false},
		{"The device as claimed in claim 1 and comprising a lid.", []int{1}, false},
		{"The method of claims 1 to 3.", nil, true},
		{"The method of claims 1-3.", nil, true},
		{"The method of claims 1–3.", nil, true},
		{"The method of claims 1 through 3.", nil, true},
		{"The method of claim 1 or 2.", nil, true},
		{"The method of claims 1, 2 or 4.", nil, true},
		{"The method of claims 1 and/or 2.", nil, true},
		{"The method of any preceding claim.", nil, true},
		{"The method of any one of the previous claims.", nil, true},
		{"The method of claim 1 wherein the part of claim 3 is used.", []int{1, 3}, true},
	}
	rec := PhraseRecognizer{}
	for _, tc := range cases {
		refs, ambiguous := rec.References(tc.text)
		assert.Equal(t, tc.ambiguous, ambiguous, tc.text)
		if !tc.ambiguous {
			assert.Equal(t, tc.refs, refs, tc.text)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ClaimTreeBuilder
// ─────────────────────────────────────────────────────────────────────────────

func TestClaimTreeBuilder_ForwardReferenceDropped(t *testing.T) {
	log := testutil.NewMockLogger()
	b := NewClaimTreeBuilder(nil)

	got := b.Build(claims(
		"A method comprising a step.",
		"The method of claim 1, wherein the step is repeated.",
		"The method of claim 5, wherein the step is skipped.",
	), log)

	require.Len(t, got, 3)
	assert.Equal(t, 0, got[0].Parent)
	assert.Equal(t, 1, got[1].Parent)
	assert.Equal(t, 0, got[2].Parent)
	assert.True(t, got[2].IsIndependent())
	assert.True(t, log.HasMessage("warn", "Claim references itself or a later claim, reference dropped"))
}

func TestClaimTreeBuilder_SelfAndMissingReferences(t *testing.T) {
	log := testutil.NewMockLogger()
	input := []Claim{
		{Number: 1, Text: "A widget."},
		{Number: 2, Text: "The widget of claim 2."},
		{Number: 4, Text: "The widget of claim 3."},
	}

	got := NewClaimTreeBuilder(nil).Build(input, log)

	require.Len(t, got, 3)
	assert.Equal(t, 0, got[1].Parent)
	assert.Equal(t, 0, got[2].Parent)
	assert.True(t, log.HasMessage("warn", "Claim references a missing claim, reference dropped"))
}

func TestClaimTreeBuilder_AmbiguousKeptIndependent(t *testing.T) {
	got := NewClaimTreeBuilder(nil).Build(claims(
		"A widget.",
		"The widget of claim 1.",
		"The widget of claims 1 or 2.",
		"The widget of claim 2 wherein the part of claim 1 is red.",
	), nil)

	assert.Equal(t, []int{0, 1, 0, 0}, []int{got[0].Parent, got[1].Parent, got[2].Parent, got[3].Parent})
}

func TestClaimTreeBuilder_OrdersAndDeduplicates(t *testing.T) {
	log := testutil.NewMockLogger()
	input := []Claim{
		{Number: 3, Text: "The widget of claim 2."},
		{Number: 1, Text: "A widget."},
		{Number: 2, Text: "The widget of claim 1.", Parent: 3},
		{Number: 2, Text: "duplicate"},
		{Number: 0, Text: "unnumbered"},
	}

	got := NewClaimTreeBuilder(nil).Build(input, log)

	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Number, got[1].Number, got[2].Number})
	assert.Equal(t, 1, got[1].Parent, "incoming parent values are recomputed")
	assert.Equal(t, "The widget of claim 1.", got[1].Text)
	assert.Equal(t, 2, got[2].Parent)
	assert.Len(t, log.MessagesAt("warn"), 2)
	assert.NoError(t, got.Validate())
	assert.Equal(t, 5, len(input), "input is not modified")
	assert.Equal(t, 3, input[2].Parent)
}

func TestClaimTreeBuilder_CustomRecognizer(t *testing.T) {
	rec := DependencyRecognizerFunc(func(text string) ([]int, bool) {
		if text == "child" {
			return []int{1}, false
		}
		return nil, false
	})

	got := NewClaimTreeBuilder(rec).Build(claims("root", "child", "The widget of claim 1."), nil)
	assert.Equal(t, 1, got[1].Parent)
	assert.Equal(t, 0, got[2].Parent)
}

// ─────────────────────────────────────────────────────────────────────────────
// ClaimTree
// ─────────────────────────────────────────────────────────────────────────────

func TestClaimTree_View(t *testing.T) {
	set := ClaimSet{
		{Number: 1, Text: "A"},
		{Number: 2, Text: "B", Parent: 1},
		{Number: 3, Text: "C", Parent: 2},
		{Number: 4, Text: "D", Parent: 1},
		{Number: 5, Text: "E"},
		{Number: 6, Text: "F", Parent: 5},
	}
	tree := NewClaimTree(set)

	assert.Equal(t, 6, tree.Len())
	assert.Equal(t, []int{1, 5}, tree.Roots())
	assert.Equal(t, []int{2, 4}, tree.Children(1))
	assert.Empty(t, tree.Children(3))
	assert.Equal(t, []int{2, 4, 3}, tree.Descendants(1))
	assert.Equal(t, 2, tree.Depth(3))
	assert.Equal(t, 0, tree.Depth(5))

	p, ok := tree.Parent(6)
	assert.True(t, ok)
	assert.Equal(t, 5, p)
	_, ok = tree.Parent(1)
	assert.False(t, ok)

	var visited []int
	var depths []int
	tree.Walk(func(c Claim, depth int) {
		visited = append(visited, c.Number)
		depths = append(depths, depth)
	})
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, visited)
	assert.Equal(t, []int{0, 1, 2, 1, 0, 1}, depths)

	var independent, dependent []int
	for _, c := range tree.Independent() {
		independent = append(independent, c.Number)
	}
	for _, c := range tree.Dependent() {
		dependent = append(dependent, c.Number)
	}
	assert.Equal(t, []int{1, 5}, independent)
	assert.Equal(t, []int{2, 3, 4, 6}, dependent)
}

func TestClaimTree_Nodes(t *testing.T) {
	tree := NewClaimTree(ClaimSet{
		{Number: 1, Text: "A"},
		{Number: 2, Text: "B", Parent: 1},
		{Number: 3, Text: "C", Parent: 2},
		{Number: 4, Text: "D"},
	})
	nodes := tree.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, 1, nodes[0].Number)
	require.Len(t, nodes[0].Children, 1)
	child := nodes[0].Children[0]
	assert.Equal(t, 1, child.Parent)
	assert.Equal(t, 1, child.Depth)
	require.Len(t, child.Children, 1)
	assert.Equal(t, 2, child.Children[0].Depth)
	assert.Empty(t, nodes[1].Children)

	assert.Empty(t, NewClaimTree(nil).Nodes())
}

func TestClaimTree_ForwardParentIsRoot(t *testing.T) {
	tree := NewClaimTree(ClaimSet{{Number: 1, Parent: 2}, {Number: 2}})
	assert.Equal(t, []int{1, 2}, tree.Roots())
	_, ok := tree.Parent(1)
	assert.False(t, ok)
	assert.Equal(t, 0, tree.Depth(1))
	assert.Empty(t, tree.Dependent())
}

func TestClaimTree_DanglingParentIsRoot(t *testing.T) {
	tree := NewClaimTree(ClaimSet{{Number: 2, Parent: 1}, {Number: 3, Parent: 7}})
	assert.Equal(t, []int{2, 3}, tree.Roots())
	_, ok := tree.Parent(2)
	assert.False(t, ok)
}

// ─────────────────────────────────────────────────────────────────────────────
// ClaimSet
// ─────────────────────────────────────────────────────────────────────────────

func TestClaimSet_Queries(t *testing.T) {
	set := ClaimSet{
		{Number: 1, Text: "A"},
		{Number: 2, Text: "B", Parent: 1},
		{Number: 3, Text: "C"},
	}

	assert.Len(t, set.IndependentClaims(), 2)
	assert.Equal(t, []Claim{{Number: 2, Text: "B", Parent: 1}}, set.DependentClaimsOf(1))
	assert.Empty(t, set.DependentClaimsOf(0))

	c, ok := set.FindByNumber(3)
	assert.True(t, ok)
	assert.Equal(t, ClaimTypeIndependent, c.Type())
	_, ok = set.FindByNumber(9)
	assert.False(t, ok)
}

func TestClaimSet_Validate(t *testing.T) {
	assert.NoError(t, ClaimSet{{Number: 1}, {Number: 2, Parent: 1}}.Validate())
	assert.Error(t, ClaimSet{{Number: 0}}.Validate())
	assert.Error(t, ClaimSet{{Number: 1}, {Number: 1}}.Validate())
	assert.Error(t, ClaimSet{{Number: 1, Parent: 2}, {Number: 2}}.Validate())
	assert.Error(t, ClaimSet{{Number: 2, Parent: 1}}.Validate())
}

func TestNewClaim(t *testing.T) {
	c, err := NewClaim(1, "A widget.")
	require.NoError(t, err)
	assert.True(t, c.IsIndependent())
	assert.Equal(t, "Independent", c.Type().String())

	_, err = NewClaim(0, "x")
	assert.Error(t, err)
}

//Personal.AI order the ending
