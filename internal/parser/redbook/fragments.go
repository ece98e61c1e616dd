// Package redbook parses the US patent XML schemas v4.x ("Redbook") used for
// published applications and grants since 2005.  Applications and grants of
// this generation share their bibliographic fragments; the fragments in this
// file are local to the v4.x era and are not reused by other formats.
package redbook

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/fields"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/markup"
)

// documentID reads a <document-id> element.  A missing element or number
// yields the zero DocumentID.
func documentID(n *xmlquery.Node, c fields.Collaborators, field string) patent.DocumentID {
	if n == nil {
		return patent.DocumentID{}
	}
	number := markup.Text(n, "doc-number")
	if number == "" {
		return patent.DocumentID{}
	}
	id := patent.NewDocumentID(countryOrUS(markup.Text(n, "country")), number, markup.Text(n, "kind"))
	return id.WithDate(c.Recorder.Date(field, markup.Text(n, "date")))
}

func countryOrUS(raw string) patent.CountryCode {
	if cc, ok := patent.ParseCountryCode(raw); ok {
		return cc
	}
	return patent.CountryUS
}

// readIDs gathers the publication, application and related identifiers of
// the bibliographic section bib.
func readIDs(bib *xmlquery.Node, b *patent.Builder, c fields.Collaborators) {
	pubNode := markup.One(bib, "publication-reference/document-id")
	if number := markup.Text(pubNode, "doc-number"); number != "" {
		c.Recorder.SetDocID(patent.NewDocumentID(countryOrUS(markup.Text(pubNode, "country")), number, markup.Text(pubNode, "kind")).String())
	}
	pub := documentID(pubNode, c, fields.FieldDatePublished)
	if !pub.IsZero() {
		if err := c.SetID(b, pub.WithType(patent.IDTypePublication)); err != nil {
			c.Recorder.Warn(fields.FieldID, pub.String(), err)
		}
	}

	app := documentID(markup.One(bib, "application-reference/document-id"), c, fields.FieldApplicationDate)
	if !app.IsZero() {
		b.SetApplicationID(app.WithType(patent.IDTypeApplication))
		b.AddRelatedID(app.WithType(patent.IDTypeApplication))
	}

	b.SetPatentType(c.Recorder.PatentType(fields.FieldPatentType, markup.Attr(bib, "application-reference", "appl-type")))

	relations := []struct {
		expr string
		kind patent.DocumentIDType
	}{
		{"us-related-documents/continuation/relation/parent-doc/document-id", patent.IDTypeContinuation},
		{"us-related-documents/continuation-in-part/relation/parent-doc/document-id", patent.IDTypeContinuationInPart},
		{"us-related-documents/division/relation/parent-doc/document-id", patent.IDTypeDivision},
		{"us-related-documents/reissue/relation/parent-doc/document-id", patent.IDTypeReissue},
		{"us-related-documents/us-provisional-application/document-id", patent.IDTypeProvisional},
		{"us-related-documents/related-publication/document-id", patent.IDTypeRelated},
		{"pct-or-regional-filing-data/document-id", patent.IDTypePCT},
		{"pct-or-regional-publishing-data/document-id", patent.IDTypePCT},
	}
	for _, rel := range relations {
		for _, n := range markup.All(bib, rel.expr) {
			if id := documentID(n, c, fields.FieldRelatedID); !id.IsZero() {
				b.AddRelatedID(id.WithType(rel.kind))
			}
		}
	}
}

// readClassifications gathers CPC, IPCR and national (USPC) codes.
func readClassifications(bib *xmlquery.Node, b *patent.Builder, c fields.Collaborators) {
	for _, n := range markup.All(bib, "classifications-cpc//classification-cpc") {
		cpc, err := classification.NewCPC(
			markup.Text(n, "section"), markup.Text(n, "class"), markup.Text(n, "subclass"),
			markup.Text(n, "main-group"), markup.Text(n, "subgroup"))
		if err != nil {
			c.Recorder.Warn(fields.FieldCPC, strings.Join(strings.Fields(n.InnerText()), " "), err)
			continue
		}
		b.AddClassification(cpc)
	}
	for _, n := range markup.All(bib, "classifications-ipcr/classification-ipcr") {
		ipc, err := classification.NewIPC(
			markup.Text(n, "section"), markup.Text(n, "class"), markup.Text(n, "subclass"),
			markup.Text(n, "main-group"), markup.Text(n, "subgroup"))
		if err != nil {
			c.Recorder.Warn(fields.FieldIPC, strings.Join(strings.Fields(n.InnerText()), " "), err)
			continue
		}
		b.AddClassification(ipc)
	}
	for _, n := range markup.All(bib, "classification-national/main-classification | classification-national/further-classification") {
		if cl := c.Recorder.Classification(classification.SchemeUSPC, fields.FieldUSPC, markup.Columns(n)); cl != nil {
			b.AddClassification(cl)
		}
	}
}

// addressBook reads an <addressbook> element into a name and address.
func addressBook(n *xmlquery.Node) (patent.Name, patent.Address) {
	ab := markup.One(n, "addressbook")
	if ab == nil {
		ab = n
	}
	name := patent.Name{
		First:   markup.Text(ab, "first-name"),
		Middle:  markup.Text(ab, "middle-name"),
		Last:    markup.Text(ab, "last-name"),
		Suffix:  markup.Text(ab, "suffix"),
		OrgName: markup.Text(ab, "orgname"),
	}
	cc, _ := patent.ParseCountryCode(markup.Text(ab, "address/country"))
	addr := patent.Address{
		Street:     markup.Text(ab, "address/street"),
		City:       markup.Text(ab, "address/city"),
		State:      markup.Text(ab, "address/state"),
		PostalCode: markup.Text(ab, "address/postcode"),
		Country:    cc,
	}
	return name, addr
}

// readParties gathers inventors, applicants, agents and assignees.  Schema
// v4.2 moved parties from <parties> to <us-parties>; both are read.
func readParties(bib *xmlquery.Node, b *patent.Builder) {
	add := func(role patent.PartyRole, expr string) int {
		nodes := markup.All(bib, expr)
		for i, n := range nodes {
			name, addr := addressBook(n)
			b.AddParty(patent.Party{
				Role:     role,
				Name:     name,
				Address:  addr,
				RoleCode: markup.Text(n, "addressbook/role"),
				Sequence: i + 1,
			})
		}
		return len(nodes)
	}

	if add(patent.RoleInventor, "us-parties/inventors/inventor | parties/inventors/inventor") == 0 {
		add(patent.RoleInventor, "parties/applicants/applicant[@app-type='applicant-inventor']")
	}
	add(patent.RoleApplicant, "us-parties/us-applicants/us-applicant | parties/applicants/applicant")
	add(patent.RoleAgent, "us-parties/agents/agent | parties/agents/agent")
	add(patent.RoleAssignee, "assignees/assignee")
}

// readCitations gathers patent and non-patent citations.  Grants of schema
// v4.2 and later use <us-references-cited>.
func readCitations(bib *xmlquery.Node, b *patent.Builder, c fields.Collaborators) {
	for _, n := range markup.All(bib, "us-references-cited/us-citation | references-cited/citation") {
		by := patent.ParseCitedBy(markup.Text(n, "category"))
		if pat := markup.One(n, "patcit/document-id"); pat != nil {
			id := documentID(pat, c, fields.FieldCitation)
			if id.IsZero() {
				continue
			}
			id = id.WithType(patent.IDTypeCitation)
			b.AddCitation(patent.Citation{
				Sequence:   sequence(markup.Attr(n, "patcit", "num")),
				Kind:       patent.CitationPatent,
				DocumentID: &id,
				CitedBy:    by,
			})
			continue
		}
		if t := c.Normalizer.Normalize(markup.Text(n, "nplcit/othercit")); t != "" {
			b.AddCitation(patent.Citation{
				Sequence: sequence(markup.Attr(n, "nplcit", "num")),
				Kind:     patent.CitationNonPatent,
				Text:     t,
				CitedBy:  by,
			})
		}
	}
}

// sequence reads a numeric "num" attribute; 0 lets the builder assign one.
func sequence(raw string) int {
	if raw == "" {
		return 0
	}
	return fields.ClaimNumber(raw, 0)
}

// readText fills the abstract, description and claims.
func readText(root *xmlquery.Node, b *patent.Builder, c fields.Collaborators) {
	if n := markup.One(root, "abstract"); n != nil {
		b.SetAbstract(c.Normalizer.Normalize(markup.FlattenXML(n)))
	}
	if n := markup.One(root, "description"); n != nil {
		b.SetDescription(c.Normalizer.Normalize(markup.FlattenXML(n)))
	}

	var claims []patent.Claim
	for i, n := range markup.All(root, "claims/claim") {
		body := c.Normalizer.Normalize(markup.FlattenXML(n))
		claims = append(claims, patent.Claim{
			Number: fields.ClaimNumber(n.SelectAttr("num"), i+1),
			Text:   fields.StripClaimNumber(body),
		})
	}
	b.SetClaims(c.BuildClaims(claims))
}

//Personal.AI order the ending
