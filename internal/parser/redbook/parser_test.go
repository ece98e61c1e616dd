package redbook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/fields"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/markup"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

const applicationXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE us-patent-application SYSTEM "us-patent-application-v44-2014-04-03.dtd">
<us-patent-application lang="EN" dtd-version="v4.4 2014-04-03" file="US20150000001A1-20150101.XML" status="PRODUCTION" id="us-patent-application" country="US" date-produced="20141217" date-publ="20150101">
<us-bibliographic-data-application lang="EN" country="US">
<publication-reference>
<document-id><country>US</country><doc-number>20150000001</doc-number><kind>A1</kind><date>20150101</date></document-id>
</publication-reference>
<application-reference appl-type="utility">
<document-id><country>US</country><doc-number>14316789</doc-number><date>20140626</date></document-id>
</application-reference>
<classifications-ipcr>
<classification-ipcr><section>H</section><class>04</class><subclass>N</subclass><main-group>21</main-group><subgroup>4722</subgroup></classification-ipcr>
</classifications-ipcr>
<classifications-cpc>
<main-cpc><classification-cpc><section>H</section><class>04</class><subclass>N</subclass><main-group>21</main-group><subgroup>4722</subgroup></classification-cpc></main-cpc>
<further-cpc><classification-cpc><section>G</section><class>06</class><subclass>F</subclass><main-group>003</main-group><subgroup>01</subgroup></classification-cpc>
<classification-cpc><section>X</section><class>99</class><subclass>Z</subclass><main-group>1</main-group><subgroup>00</subgroup></classification-cpc></further-cpc>
</classifications-cpc>
<invention-title id="d2e43">SYSTEM AND METHOD FOR
   STREAMING VIDEO</invention-title>
<us-related-documents>
<continuation><relation><parent-doc><document-id><country>US</country><doc-number>13123456</doc-number><date>20120101</date></document-id></parent-doc></relation></continuation>
<us-provisional-application><document-id><country>US</country><doc-number>61999999</doc-number><date>20111301</date></document-id></us-provisional-application>
</us-related-documents>
<us-parties>
<us-applicants><us-applicant sequence="001" app-type="applicant" designation="us-only"><addressbook><orgname>Acme Corp.</orgname><address><city>Austin</city><state>TX</state><country>US</country></address></addressbook></us-applicant></us-applicants>
<inventors>
<inventor sequence="001" designation="us-only"><addressbook><last-name>Doe</last-name><first-name>Jane</first-name><address><city>Austin</city><state>TX</state><country>US</country></address></addressbook></inventor>
<inventor sequence="002" designation="us-only"><addressbook><last-name>Roe</last-name><first-name>Richard</first-name><address><city>Dallas</city><state>TX</state><country>US</country></address></addressbook></inventor>
</inventors>
<agents><agent sequence="01" rep-type="attorney"><addressbook><orgname>Law Firm LLP</orgname><address><country>unknown</country></address></addressbook></agent></agents>
</us-parties>
<assignees><assignee><addressbook><orgname>Acme Corp.</orgname><role>02</role><address><city>Austin</city><state>TX</state><country>US</country></address></addressbook></assignee></assignees>
</us-bibliographic-data-application>
<abstract id="abstract"><p id="p-0001" num="0000">A system streams   video.</p></abstract>
<description id="description">
<heading id="h-0001" level="1">BACKGROUND</heading>
<p id="p-0002" num="0001">Video is large.</p>
</description>
<claims id="claims">
<claim id="CLM-00001" num="00001"><claim-text>1. A system comprising:
<claim-text>a server; and</claim-text>
<claim-text>a client.</claim-text></claim-text></claim>
<claim id="CLM-00002" num="00002"><claim-text>2. The system of claim 1, wherein the server is remote.</claim-text></claim>
<claim id="CLM-00003" num="00003"><claim-text>3. The system of claims 1 or 2, wherein the client is mobile.</claim-text></claim>
</claims>
</us-patent-application>`

func TestParseApplication(t *testing.T) {
	doc, err := markup.LoadXML(strings.NewReader(applicationXML))
	require.NoError(t, err)

	var warned []fields.Warning
	rec := fields.NewRecorder(nil, ApplicationFormatName, func(w fields.Warning) { warned = append(warned, w) })
	p, err := ParseApplication(doc, fields.Collaborators{Recorder: rec})
	require.NoError(t, err)

	app, ok := p.(*patent.Application)
	require.True(t, ok)
	assert.Equal(t, patent.LifecycleApplication, app.Lifecycle())
	d := p.Base()

	assert.Equal(t, "US20150000001A1", d.ID.String())
	require.NotNil(t, d.ID.Date)
	assert.Equal(t, "20150101", d.ID.Date.String())
	assert.Equal(t, "20141217", d.DateProduced.String())
	assert.Equal(t, "20150101", d.DatePublished.String())
	assert.Equal(t, patent.PatentTypeUtility, d.PatentType)
	assert.Equal(t, "System And Method For Streaming Video", d.Title)

	require.NotNil(t, d.ApplicationID)
	assert.Equal(t, "14316789", d.ApplicationID.Number)
	assert.Equal(t, patent.IDTypeApplication, d.ApplicationID.Type)

	types := map[patent.DocumentIDType]string{}
	for _, id := range d.RelatedIDs {
		types[id.Type] = id.Number
	}
	assert.Equal(t, "13123456", types[patent.IDTypeContinuation])
	assert.Equal(t, "61999999", types[patent.IDTypeProvisional])
	assert.Equal(t, "14316789", types[patent.IDTypeApplication])

	require.Len(t, d.Inventors, 2)
	assert.Equal(t, "Jane Doe", d.Inventors[0].Name.String())
	assert.Equal(t, "Dallas", d.Inventors[1].Address.City)
	require.Len(t, d.Applicants, 1)
	assert.Equal(t, "Acme Corp.", d.Applicants[0].Name.OrgName)
	require.Len(t, d.Agents, 1)
	assert.Equal(t, patent.CountryUnknown, d.Agents[0].Address.Country)
	require.Len(t, d.Assignees, 1)
	assert.Equal(t, "02", d.Assignees[0].RoleCode)

	assert.Equal(t, []string{"cpc:H04N21/4722", "cpc:G06F3/01", "ipc:H04N21/4722"}, d.Classifications.Strings())

	assert.Equal(t, "A system streams video.", d.Abstract)
	assert.Equal(t, "BACKGROUND\n\nVideo is large.", d.Description)

	require.Len(t, d.Claims, 3)
	assert.Equal(t, "A system comprising:\n\na server; and\n\na client.", d.Claims[0].Text)
	assert.Equal(t, 1, d.Claims[1].Parent)
	assert.Equal(t, 0, d.Claims[2].Parent, "alternative references stay independent")

	var warnedFields []string
	for _, w := range warned {
		warnedFields = append(warnedFields, w.Field)
	}
	assert.ElementsMatch(t, []string{fields.FieldRelatedID, fields.FieldCPC}, warnedFields)
}

func TestParseApplication_MissingIdentifier(t *testing.T) {
	doc, err := markup.LoadXML(strings.NewReader(`<us-patent-application><us-bibliographic-data-application>
<invention-title>Widget</invention-title></us-bibliographic-data-application></us-patent-application>`))
	require.NoError(t, err)

	p, err := ParseApplication(doc, fields.Collaborators{})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingIdentifier))
}

const grantXML = `<?xml version="1.0" encoding="UTF-8"?>
<us-patent-grant lang="EN" dtd-version="v4.5 2014-04-03" country="US" date-produced="20191218" date-publ="20200107">
<us-bibliographic-data-grant>
<publication-reference><document-id><country>US</country><doc-number>10524282</doc-number><kind>B2</kind><date>20200107</date></document-id></publication-reference>
<application-reference appl-type="design"><document-id><country>US</country><doc-number>29612345</doc-number><date>20170801</date></document-id></application-reference>
<classification-national><country>US</country><main-classification>D11152</main-classification><further-classification>428195</further-classification><further-classification>  2 12</further-classification></classification-national>
<invention-title id="d2e53">Ornamental widget</invention-title>
<us-references-cited>
<us-citation><patcit num="00001"><document-id><country>US</country><doc-number>5123456</doc-number><kind>A</kind><name>Smith</name><date>19920101</date></document-id></patcit><category>cited by examiner</category></us-citation>
<us-citation><nplcit num="00002"><othercit>Jones, Widgets Monthly, 2001.</othercit></nplcit><category>cited by applicant</category></us-citation>
</us-references-cited>
<examiners><primary-examiner><last-name>Brown</last-name><first-name>Alice</first-name><department>2900</department></primary-examiner></examiners>
</us-bibliographic-data-grant>
<claims id="claims"><claim id="CLM-00001" num="00001"><claim-text>The ornamental design for a widget, as shown and described.</claim-text></claim></claims>
</us-patent-grant>`

func TestParseGrant(t *testing.T) {
	doc, err := markup.LoadXML(strings.NewReader(grantXML))
	require.NoError(t, err)

	p, err := ParseGrant(doc, fields.Collaborators{})
	require.NoError(t, err)

	g, ok := p.(*patent.Grant)
	require.True(t, ok)
	d := p.Base()

	assert.Equal(t, "US10524282B2", d.ID.String())
	assert.Equal(t, patent.PatentTypeDesign, d.PatentType)
	assert.Equal(t, "Ornamental Widget", d.Title)
	assert.Equal(t, "Brown; Alice", g.PrimaryExaminer)

	uspc := d.Classifications.USPC()
	require.Len(t, uspc, 3)
	assert.Equal(t, classification.USPC{MainClass: "D11", Subclass: "152"}, uspc[0])
	assert.Equal(t, classification.USPC{MainClass: "428", Subclass: "195"}, uspc[1])
	assert.Equal(t, classification.USPC{MainClass: "2", Subclass: "12"}, uspc[2])

	require.Len(t, d.Citations, 2)
	assert.Equal(t, patent.CitedByExaminer, d.Citations[0].CitedBy)
	assert.Equal(t, "US5123456A", d.Citations[0].DocumentID.String())
	assert.Equal(t, 1, d.Citations[0].Sequence)
	assert.Equal(t, patent.CitationNonPatent, d.Citations[1].Kind)
	assert.Equal(t, patent.CitedByApplicant, d.Citations[1].CitedBy)
	assert.Equal(t, "Jones, Widgets Monthly, 2001.", d.Citations[1].Text)

	require.Len(t, d.Claims, 1)
	assert.True(t, d.Claims[0].IsIndependent())
}

func TestParseGrant_WrongRootHasNoIdentifier(t *testing.T) {
	doc, err := markup.LoadXML(strings.NewReader(applicationXML))
	require.NoError(t, err)

	_, err = ParseGrant(doc, fields.Collaborators{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingIdentifier))
}

func TestParse_Stateless(t *testing.T) {
	doc, err := markup.LoadXML(strings.NewReader(grantXML))
	require.NoError(t, err)

	first, err := ParseGrant(doc, fields.Collaborators{})
	require.NoError(t, err)
	second, err := ParseGrant(doc, fields.Collaborators{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	first.Base().Title = "changed"
	assert.Equal(t, "Ornamental Widget", second.Base().Title)
}

//Personal.AI order the ending
