// Package pap parses the Patent Application Publication XML (v1.5/v1.6,
// <patent-application-publication>) used for published applications from
// 2001 to 2004.
package pap

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/fields"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/markup"
)

// FormatName is the format label used in logs and metrics.
const FormatName = "pap"

const (
	rootExpr = "/patent-application-publication"
	bibExpr  = rootExpr + "/subdoc-bibliographic-information"
)

// Parse reads a PAP tree.  A document without a document-id/doc-number fails
// with patent.ErrMissingRequiredIdentifier.
func Parse(doc *xmlquery.Node, c fields.Collaborators) (patent.Patent, error) {
	c = c.Defaults(FormatName)
	b := patent.NewBuilder()

	root := markup.One(doc, rootExpr)
	bib := markup.One(doc, bibExpr)

	readIDs(bib, b, c)
	b.SetTitle(c.Normalizer.Title(markup.Text(bib, "technical-information/title-of-invention")))
	readClassifications(bib, b, c)
	readParties(bib, b)

	if n := markup.One(root, "subdoc-abstract"); n != nil {
		b.SetAbstract(c.Normalizer.Normalize(markup.FlattenXML(n)))
	}
	if n := markup.One(root, "subdoc-description"); n != nil {
		b.SetDescription(c.Normalizer.Normalize(markup.FlattenXML(n)))
	}

	var claims []patent.Claim
	for i, n := range markup.All(root, "subdoc-claims/claim") {
		body := c.Normalizer.Normalize(markup.FlattenXML(n))
		claims = append(claims, patent.Claim{
			Number: fields.ClaimNumber(strings.TrimPrefix(n.SelectAttr("id"), "CLM-"), i+1),
			Text:   fields.StripClaimNumber(body),
		})
	}
	b.SetClaims(c.BuildClaims(claims))

	return b.Build(patent.LifecycleApplication)
}

func readIDs(bib *xmlquery.Node, b *patent.Builder, c fields.Collaborators) {
	number := markup.Text(bib, "document-id/doc-number")
	id := patent.NewDocumentID(patent.CountryUS, number, markup.Text(bib, "document-id/kind-code")).
		WithType(patent.IDTypePublication)
	if number != "" {
		c.Recorder.SetDocID(id.String())
	}

	published := c.Recorder.Date(fields.FieldDatePublished, markup.Text(bib, "document-id/document-date"))
	b.SetDatePublished(published)
	if number != "" {
		if err := c.SetID(b, id.WithDate(published)); err != nil {
			c.Recorder.Warn(fields.FieldID, number, err)
		}
	}

	if filing := markup.Text(bib, "publication-filing-type"); filing != "" {
		b.SetPatentType(c.Recorder.PatentType(fields.FieldPatentType, strings.TrimPrefix(filing, "new-")))
	}

	if number := markup.Text(bib, "domestic-filing-data/application-number/doc-number"); number != "" {
		date := c.Recorder.Date(fields.FieldApplicationDate, markup.Text(bib, "domestic-filing-data/filing-date"))
		app := patent.NewDocumentID(patent.CountryUS, number, "").WithType(patent.IDTypeApplication).WithDate(date)
		b.SetApplicationID(app)
		b.AddRelatedID(app)
	}

	for _, n := range markup.All(bib, "foreign-priority-data") {
		number := markup.Text(n, "priority-application-number/doc-number")
		if number == "" {
			continue
		}
		cc, ok := patent.ParseCountryCode(markup.Text(n, "country-code"))
		if !ok {
			cc = patent.CountryUnknown
		}
		date := c.Recorder.Date(fields.FieldRelatedID, markup.Text(n, "filing-date"))
		b.AddRelatedID(patent.NewDocumentID(cc, number, "").WithType(patent.IDTypePriority).WithDate(date))
	}

	continuity := []struct {
		expr string
		kind patent.DocumentIDType
	}{
		{"continuity-data/continuations/continuation-of//parent/document-id", patent.IDTypeContinuation},
		{"continuity-data/continuations-in-part/continuation-in-part-of//parent/document-id", patent.IDTypeContinuationInPart},
		{"continuity-data/division-of//parent/document-id", patent.IDTypeDivision},
		{"continuity-data/non-provisional-of-provisional//document-id", patent.IDTypeProvisional},
		{"domestic-filing-data/international-conversion-data/document-id", patent.IDTypePCT},
	}
	for _, rel := range continuity {
		for _, n := range markup.All(bib, rel.expr) {
			number := markup.Text(n, "doc-number")
			if number == "" {
				continue
			}
			cc, ok := patent.ParseCountryCode(markup.Text(n, "country-code"))
			if !ok {
				cc = patent.CountryUS
			}
			date := c.Recorder.Date(fields.FieldRelatedID, markup.Text(n, "document-date"))
			b.AddRelatedID(patent.NewDocumentID(cc, number, markup.Text(n, "kind-code")).WithType(rel.kind).WithDate(date))
		}
	}
}

func readClassifications(bib *xmlquery.Node, b *patent.Builder, c fields.Collaborators) {
	ipc := "technical-information/classification-ipc/classification-ipc-primary/ipc" +
		" | technical-information/classification-ipc/classification-ipc-secondary/ipc"
	for _, n := range markup.All(bib, ipc) {
		if cl := c.Recorder.Classification(classification.SchemeIPC, fields.FieldIPC, markup.Columns(n)); cl != nil {
			b.AddClassification(cl)
		}
	}

	uspc := "technical-information/classification-us/classification-us-primary/uspc" +
		" | technical-information/classification-us/classification-us-secondary/uspc"
	for _, n := range markup.All(bib, uspc) {
		class := markup.Text(n, "class")
		sub := uspcSubclass(markup.Text(n, "subclass"))
		cl, err := classification.NewUSPC(class, sub)
		if err != nil {
			c.Recorder.Warn(fields.FieldUSPC, class+"/"+sub, err)
			continue
		}
		b.AddClassification(cl)
	}
}

// uspcSubclass converts the six digit PAP subclass, three integer digits and
// three decimal digits, into its printed form: "001000" is "1" and "026100"
// is "26.1".  Other values pass through.
func uspcSubclass(raw string) string {
	if len(raw) != 6 || strings.Trim(raw, "0123456789") != "" {
		return raw
	}
	whole := strings.TrimLeft(raw[:3], "0")
	if whole == "" {
		whole = "0"
	}
	if frac := strings.TrimRight(raw[3:], "0"); frac != "" {
		return whole + "." + frac
	}
	return whole
}

func personName(n *xmlquery.Node) patent.Name {
	if org := markup.Text(n, "organization-name"); org != "" {
		return patent.Name{OrgName: org}
	}
	return patent.Name{
		First:  markup.Text(n, "name/given-name"),
		Middle: markup.Text(n, "name/middle-name"),
		Last:   markup.Text(n, "name/family-name"),
		Suffix: markup.Text(n, "name/name-suffix"),
	}
}

func residence(n *xmlquery.Node) patent.Address {
	r := markup.One(n, "residence/residence-us | residence/residence-non-us | address")
	if r == nil {
		return patent.Address{}
	}
	cc, ok := patent.ParseCountryCode(markup.Text(r, "country-code"))
	if !ok && r.Data == "residence-us" {
		cc = patent.CountryUS
	}
	return patent.Address{
		Street:     markup.Text(r, "address-1"),
		City:       markup.Text(r, "city"),
		State:      markup.Text(r, "state"),
		PostalCode: markup.Text(r, "postalcode"),
		Country:    cc,
	}
}

func readParties(bib *xmlquery.Node, b *patent.Builder) {
	for i, n := range markup.All(bib, "inventors/first-named-inventor | inventors/inventor") {
		b.AddParty(patent.Party{
			Role:     patent.RoleInventor,
			Name:     personName(n),
			Address:  residence(n),
			Sequence: i + 1,
		})
	}
	for i, n := range markup.All(bib, "assignee") {
		b.AddParty(patent.Party{
			Role:     patent.RoleAssignee,
			Name:     personName(n),
			Address:  residence(n),
			RoleCode: markup.Text(n, "assignee-type"),
			Sequence: i + 1,
		})
	}
	if n := markup.One(bib, "correspondence-address"); n != nil {
		name := strings.TrimSpace(markup.Text(n, "name-1") + " " + markup.Text(n, "name-2"))
		b.AddParty(patent.Party{
			Role:     patent.RoleAgent,
			Name:     patent.Name{OrgName: name},
			Address:  residence(n),
			Sequence: 1,
		})
	}
}

//Personal.AI order the ending
