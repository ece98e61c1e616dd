// Package sgml parses the ST.32 SGML grant documents (<PATDOC>) published
// by the USPTO from 2001 to 2004.  Element names are numeric ST.32 tags
// (B110 document number, B540 title, ...) and arrive lower-cased from the
// tolerant loader.
package sgml

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/fields"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/markup"
)

// FormatName is the format label used in logs and metrics.
const FormatName = "sgml"

// Parse reads a PATDOC tree.  A document without a B110 number fails with
// patent.ErrMissingRequiredIdentifier.
func Parse(doc *html.Node, c fields.Collaborators) (patent.Patent, error) {
	c = c.Defaults(FormatName)
	b := patent.NewBuilder()

	root := markup.SGMLOne(doc, "//patdoc")
	bib := markup.SGMLOne(root, "sdobi")

	readIDs(bib, b, c)
	b.SetTitle(c.Normalizer.Title(markup.SGMLText(bib, "b500/b540")))
	readParties(bib, b)
	readCitations(bib, b, c)
	readClassifications(bib, b, c)

	if n := markup.SGMLOne(root, "sdoab"); n != nil {
		b.SetAbstract(c.Normalizer.Normalize(markup.FlattenSGML(n)))
	}
	if n := markup.SGMLOne(root, "sdode"); n != nil {
		b.SetDescription(c.Normalizer.Normalize(markup.FlattenSGML(n)))
	}
	b.SetClaims(c.BuildClaims(readClaims(root, c)))
	b.SetPrimaryExaminer(personName(markup.SGMLOne(bib, "b700/b745/b746")).lastFirst())

	return b.Build(patent.LifecycleGrant)
}

// docID reads a <DOC>-like element holding DNUM, DATE, KIND and CTRY.
func docID(n *html.Node, c fields.Collaborators, field string, fallback patent.CountryCode) patent.DocumentID {
	number := strings.TrimLeft(markup.SGMLText(n, "dnum"), "0")
	if n == nil || number == "" {
		return patent.DocumentID{}
	}
	cc, ok := patent.ParseCountryCode(markup.SGMLText(n, "ctry"))
	if !ok {
		cc = fallback
	}
	id := patent.NewDocumentID(cc, number, markup.SGMLText(n, "kind"))
	return id.WithDate(c.Recorder.Date(field, markup.SGMLText(n, "date")))
}

func readIDs(bib *html.Node, b *patent.Builder, c fields.Collaborators) {
	number := strings.TrimLeft(markup.SGMLText(bib, "b100/b110/dnum"), "0")
	id := patent.NewDocumentID(patent.CountryUS, number, markup.SGMLText(bib, "b100/b130"))
	if number != "" {
		c.Recorder.SetDocID(id.String())
	}

	published := c.Recorder.Date(fields.FieldDatePublished, markup.SGMLText(bib, "b100/b140/date"))
	b.SetDatePublished(published)
	if number != "" {
		if err := c.SetID(b, id.WithDate(published)); err != nil {
			c.Recorder.Warn(fields.FieldID, number, err)
		}
	}

	if apn := markup.SGMLText(bib, "b200/b210/dnum"); apn != "" {
		date := c.Recorder.Date(fields.FieldApplicationDate, markup.SGMLText(bib, "b200/b220/date"))
		b.SetApplicationID(patent.NewDocumentID(patent.CountryUS, apn, "").
			WithType(patent.IDTypeApplication).WithDate(date))
	}

	for _, n := range markup.SGMLAll(bib, "b600/b630//parent-us//doc") {
		if id := docID(n, c, fields.FieldRelatedID, patent.CountryUS); !id.IsZero() {
			b.AddRelatedID(id.WithType(patent.IDTypeRelated))
		}
	}
	for _, n := range markup.SGMLAll(bib, "b600/b680us//doc") {
		if id := docID(n, c, fields.FieldRelatedID, patent.CountryUS); !id.IsZero() {
			b.AddRelatedID(id.WithType(patent.IDTypeProvisional))
		}
	}
	for _, n := range markup.SGMLAll(bib, "b800/b860//doc") {
		if id := docID(n, c, fields.FieldRelatedID, patent.CountryWO); !id.IsZero() {
			b.AddRelatedID(id.WithType(patent.IDTypePCT))
		}
	}
	for _, n := range markup.SGMLAll(bib, "b300") {
		number := markup.SGMLText(n, "b310/dnum")
		if number == "" {
			continue
		}
		cc, ok := patent.ParseCountryCode(markup.SGMLText(n, "b330/ctry"))
		if !ok {
			cc = patent.CountryUnknown
		}
		date := c.Recorder.Date(fields.FieldRelatedID, markup.SGMLText(n, "b320/date"))
		b.AddRelatedID(patent.NewDocumentID(cc, number, "").WithType(patent.IDTypePriority).WithDate(date))
	}
}

// sgmlName is a PARTY-US name: given names, surname or organisation.
type sgmlName struct {
	first, last, org string
}

func personName(n *html.Node) sgmlName {
	if n == nil {
		return sgmlName{}
	}
	return sgmlName{
		first: markup.SGMLText(n, ".//nam/fnm"),
		last:  markup.SGMLText(n, ".//nam/snm"),
		org:   markup.SGMLText(n, ".//nam/onm"),
	}
}

func (s sgmlName) name() patent.Name {
	if s.org != "" {
		return patent.Name{OrgName: s.org}
	}
	n := patent.Name{Last: s.last}
	if given := strings.Fields(s.first); len(given) > 0 {
		n.First = given[0]
		n.Middle = strings.Join(given[1:], " ")
	}
	return n
}

func (s sgmlName) lastFirst() string {
	switch {
	case s.org != "":
		return s.org
	case s.first == "":
		return s.last
	default:
		return s.last + "; " + s.first
	}
}

func address(n *html.Node) patent.Address {
	adr := markup.SGMLOne(n, ".//adr")
	if adr == nil {
		return patent.Address{}
	}
	cc, ok := patent.ParseCountryCode(markup.SGMLText(adr, "ctry"))
	if !ok && markup.SGMLText(adr, "state") != "" {
		cc = patent.CountryUS
	}
	return patent.Address{
		Street:     markup.SGMLText(adr, "str"),
		City:       markup.SGMLText(adr, "city"),
		State:      markup.SGMLText(adr, "state"),
		PostalCode: markup.SGMLText(adr, "pcode"),
		Country:    cc,
	}
}

func readParties(bib *html.Node, b *patent.Builder) {
	for i, n := range markup.SGMLAll(bib, "b700/b720/b721") {
		b.AddParty(patent.Party{
			Role:     patent.RoleInventor,
			Name:     personName(n).name(),
			Address:  address(n),
			Sequence: i + 1,
		})
	}
	for i, n := range markup.SGMLAll(bib, "b700/b730") {
		b.AddParty(patent.Party{
			Role:     patent.RoleAssignee,
			Name:     personName(markup.SGMLOne(n, "b731")).name(),
			Address:  address(n),
			RoleCode: markup.SGMLText(n, "b732us"),
			Sequence: i + 1,
		})
	}
	for i, n := range markup.SGMLAll(bib, "b700/b740/b741") {
		b.AddParty(patent.Party{
			Role:     patent.RoleAgent,
			Name:     personName(n).name(),
			Sequence: i + 1,
		})
	}
}

func readCitations(bib *html.Node, b *patent.Builder, c fields.Collaborators) {
	for _, n := range markup.SGMLAll(bib, "b500/b560/b561") {
		id := docID(markup.SGMLOne(n, "pcit/doc"), c, fields.FieldCitation, patent.CountryUS)
		if id.IsZero() {
			continue
		}
		id = id.WithType(patent.IDTypeCitation)
		b.AddCitation(patent.Citation{
			Kind:       patent.CitationPatent,
			DocumentID: &id,
			CitedBy:    patent.ParseCitedBy(markup.SGMLText(n, "cited-by")),
		})
	}
	for _, n := range markup.SGMLAll(bib, "b500/b560/b562") {
		t := c.Normalizer.Normalize(markup.SGMLText(n, "ncit"))
		if t == "" {
			continue
		}
		b.AddCitation(patent.Citation{
			Kind:    patent.CitationNonPatent,
			Text:    t,
			CitedBy: patent.ParseCitedBy(markup.SGMLText(n, "cited-by")),
		})
	}
}

func readClassifications(bib *html.Node, b *patent.Builder, c fields.Collaborators) {
	for _, n := range markup.SGMLAll(bib, "b500/b510/b511 | b500/b510/b512") {
		if cl := c.Recorder.Classification(classification.SchemeIPC, fields.FieldIPC, markup.SGMLColumns(n)); cl != nil {
			b.AddClassification(cl)
		}
	}
	for _, n := range markup.SGMLAll(bib, "b500/b520/b521 | b500/b520/b522") {
		if cl := c.Recorder.Classification(classification.SchemeUSPC, fields.FieldUSPC, markup.SGMLColumns(n)); cl != nil {
			b.AddClassification(cl)
		}
	}
}

func readClaims(root *html.Node, c fields.Collaborators) []patent.Claim {
	var claims []patent.Claim
	for i, n := range markup.SGMLAll(root, "sdocl/cl/clm") {
		body := c.Normalizer.Normalize(markup.FlattenSGML(n))
		claims = append(claims, patent.Claim{
			Number: fields.ClaimNumber(strings.TrimPrefix(markup.SGMLAttr(n, "", "id"), "CLM-"), i+1),
			Text:   fields.StripClaimNumber(body),
		})
	}
	return claims
}

//Personal.AI order the ending
