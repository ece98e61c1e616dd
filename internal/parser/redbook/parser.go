package redbook

import (
	"github.com/antchfx/xmlquery"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/fields"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/markup"
)

// Format labels used in logs and metrics.
const (
	ApplicationFormatName = "redbook-application"
	GrantFormatName       = "redbook-grant"
)

const (
	applicationRoot = "/us-patent-application"
	grantRoot       = "/us-patent-grant"
)

// ParseApplication reads a <us-patent-application> document.  A document
// without a publication number fails with patent.ErrMissingRequiredIdentifier.
func ParseApplication(doc *xmlquery.Node, c fields.Collaborators) (patent.Patent, error) {
	c = c.Defaults(ApplicationFormatName)
	b := patent.NewBuilder()

	root := markup.One(doc, applicationRoot)
	bib := markup.One(root, "us-bibliographic-data-application")
	readCommon(root, bib, b, c)

	return b.Build(patent.LifecycleApplication)
}

// ParseGrant reads a <us-patent-grant> document.  A document without a
// publication number fails with patent.ErrMissingRequiredIdentifier.
func ParseGrant(doc *xmlquery.Node, c fields.Collaborators) (patent.Patent, error) {
	c = c.Defaults(GrantFormatName)
	b := patent.NewBuilder()

	root := markup.One(doc, grantRoot)
	bib := markup.One(root, "us-bibliographic-data-grant")
	readCommon(root, bib, b, c)
	readCitations(bib, b, c)
	b.SetPrimaryExaminer(examiner(bib))

	return b.Build(patent.LifecycleGrant)
}

// readCommon reads the fragments shared by applications and grants.
func readCommon(root, bib *xmlquery.Node, b *patent.Builder, c fields.Collaborators) {
	readIDs(bib, b, c)
	b.SetDateProduced(c.Recorder.Date(fields.FieldDateProduced, markup.Attr(root, "", "date-produced")))
	b.SetDatePublished(c.Recorder.Date(fields.FieldDatePublished, markup.Attr(root, "", "date-publ")))
	b.SetTitle(c.Normalizer.Title(markup.Text(bib, "invention-title")))
	readParties(bib, b)
	readClassifications(bib, b, c)
	readText(root, b, c)
}

// examiner renders the primary examiner as "Last; First".
func examiner(bib *xmlquery.Node) string {
	n := markup.One(bib, "examiners/primary-examiner")
	if n == nil {
		return ""
	}
	last, first := markup.Text(n, "last-name"), markup.Text(n, "first-name")
	if first == "" {
		return last
	}
	return last + "; " + first
}

//Personal.AI order the ending
