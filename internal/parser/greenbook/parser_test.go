package greenbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/fields"
	"github.com/turtacn/KeyIP-PatentDoc/internal/testutil"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

const sample = `HHHHHT APS1.0 header line
PATN
WKU  039305848
SRC  5
APN  4726219
APT  1
ART  353
APD  19750326
TTL  DUAL SPEED MOTOR FOR A
     WASHING MACHINE
ISD  19760106
NCL  3
EXP  Smith; John A.
INVT
NAM  Doe; Jane Q.
CTY  Springfield
STA  IL
INVT
NAM  Muller; Hans
CTY  Munich
CNT  DEX
ASSG
NAM  Acme Appliance Company
CTY  Chicago
STA  IL
COD  02
RLAP
COD  71
APN  507114
APD  19740918
CLAS
OCL  310112
XCL  318  7
ICL  H02K 2300
UREF
PNO  3567890
ISD  19710300
NAM  Jones
FREF
PNO  1234567
CNT  GBX
OREF
PAL  Smith, Motors Handbook, 1970, p. 12.
LREP
FRM  Widget & Gadget
ABST
PAL  A dual speed motor is
     disclosed.
BSUM
PAR  The motor has two windings.
DETD
PAR  Referring to FIG. 1 the motor
     is shown.
PAR  A second paragraph.
CLMS
STM  What is claimed is:
NUM  1.
PAL  A dual speed motor comprising a
     stator.
NUM  2.
PAL  The motor of claim 1 further comprising a rotor.
NUM  3.
PAL  The motor of claim 5 wherein the rotor is steel.
PATN
WKU  039305856
TTL  SECOND PATENT
`

func TestParse_FullRecord(t *testing.T) {
	p, err := Parse(sample, fields.Collaborators{})
	require.NoError(t, err)

	g, ok := p.(*patent.Grant)
	require.True(t, ok)
	d := p.Base()

	assert.Equal(t, "US3930584A", d.ID.String())
	assert.Equal(t, patent.IDTypePublication, d.ID.Type)
	require.NotNil(t, d.DatePublished)
	assert.Equal(t, "19760106", d.DatePublished.String())
	assert.Equal(t, patent.PatentTypeUtility, d.PatentType)
	assert.Equal(t, "Dual Speed Motor For A Washing Machine", d.Title)
	assert.Equal(t, "Smith; John A.", g.PrimaryExaminer)

	require.NotNil(t, d.ApplicationID)
	assert.Equal(t, "4726219", d.ApplicationID.Number)
	require.NotNil(t, d.ApplicationID.Date)
	assert.Equal(t, "19750326", d.ApplicationID.Date.String())

	require.Len(t, d.RelatedIDs, 1)
	assert.Equal(t, patent.IDTypeContinuation, d.RelatedIDs[0].Type)
	assert.Equal(t, "507114", d.RelatedIDs[0].Number)

	require.Len(t, d.Inventors, 2)
	assert.Equal(t, "Doe", d.Inventors[0].Name.Last)
	assert.Equal(t, "Jane", d.Inventors[0].Name.First)
	assert.Equal(t, "Springfield", d.Inventors[0].Address.City)
	assert.Equal(t, patent.CountryCode("DE"), d.Inventors[1].Address.Country)
	require.Len(t, d.Assignees, 1)
	assert.Equal(t, "Acme Appliance Company", d.Assignees[0].Name.OrgName)
	assert.Equal(t, "02", d.Assignees[0].RoleCode)
	require.Len(t, d.Agents, 1)

	require.Len(t, d.Citations, 3)
	assert.Equal(t, "US3567890", d.Citations[0].DocumentID.String())
	assert.Equal(t, patent.CountryCode("GB"), d.Citations[1].DocumentID.Country)
	assert.Equal(t, patent.CitationNonPatent, d.Citations[2].Kind)
	assert.Equal(t, 3, d.Citations[2].Sequence)

	assert.Equal(t, []string{"uspc:310/112", "uspc:318/7", "ipc:H02K23/00"}, d.Classifications.Strings())
	require.Len(t, d.Classifications.IPC(), 1)

	assert.Equal(t, "A dual speed motor is disclosed.", d.Abstract)
	assert.Equal(t, "The motor has two windings.\n\nReferring to FIG. 1 the motor is shown.\n\nA second paragraph.", d.Description)

	require.Len(t, d.Claims, 3)
	assert.Equal(t, "A dual speed motor comprising a stator.", d.Claims[0].Text)
	assert.Equal(t, 0, d.Claims[0].Parent)
	assert.Equal(t, 1, d.Claims[1].Parent)
	assert.Equal(t, 0, d.Claims[2].Parent)
}

func TestParse_MinimalRecord(t *testing.T) {
	p, err := Parse("PATN\nWKU  052341236\nTTL  WIDGET\n", fields.Collaborators{})
	require.NoError(t, err)
	d := p.Base()
	assert.Equal(t, "US5234123A", d.ID.String())
	assert.Equal(t, "Widget", d.Title)
	assert.Nil(t, d.ApplicationID)
	assert.Nil(t, d.DatePublished)
	assert.Empty(t, d.Claims)
	assert.Equal(t, 0, d.Classifications.Len())
	assert.Empty(t, d.Abstract)
}

func TestParse_MissingIdentifier(t *testing.T) {
	p, err := Parse("PATN\nTTL  WIDGET\nISD  19760106\n", fields.Collaborators{})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingIdentifier))
}

func TestParse_NoPATNRecord(t *testing.T) {
	_, err := Parse("this is not an APS file", fields.Collaborators{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentLoad))
}

func TestParse_MalformedFieldsWarn(t *testing.T) {
	log := testutil.NewMockLogger()
	var warned []string
	rec := fields.NewRecorder(log, FormatName, func(w fields.Warning) { warned = append(warned, w.Field) })

	raw := "PATN\nWKU  052341236\nAPT  9\nISD  19761340\nCLAS\nOCL  ???\nICL  B32B 2700\n"
	p, err := Parse(raw, fields.Collaborators{Recorder: rec})
	require.NoError(t, err)

	d := p.Base()
	assert.Nil(t, d.DatePublished)
	assert.Equal(t, patent.PatentTypeUnknown, d.PatentType)
	assert.Equal(t, []classification.Classification{classification.IPC{
		Section: "B", MainClass: "32", Subclass: "B", MainGroup: "27", Subgroup: "00",
	}}, d.Classifications.All())
	assert.ElementsMatch(t, []string{fields.FieldPatentType, fields.FieldDatePublished, fields.FieldUSPC}, warned)

	for _, m := range log.MessagesAt(logging.LevelWarn) {
		if m.Field(logging.KeyField) == fields.FieldUSPC {
			assert.Equal(t, "US5234123A", m.Field(logging.KeyDocID))
		}
	}
}

func TestParse_RightJustifiedClassifications(t *testing.T) {
	raw := "PATN\nWKU  039305848\nTTL  HAT\nCLAS\nOCL    2 12\nXCL    8137\nXCL   21  2\nICL  A61K  900\n"
	p, err := Parse(raw, fields.Collaborators{})
	require.NoError(t, err)

	d := p.Base()
	assert.Equal(t, []string{"uspc:2/12", "uspc:8/137", "uspc:21/2", "ipc:A61K9/00"}, d.Classifications.Strings())

	want := classification.USPC{MainClass: "2"}
	assert.True(t, d.Classifications.USPC()[0].SameMainClass(want))
	assert.False(t, d.Classifications.USPC()[2].SameMainClass(want))
}

func TestReadDocument_KeepsValueColumns(t *testing.T) {
	doc, err := readDocument("PATN\nWKU  039305848\nCLAS\nOCL    2 12\n")
	require.NoError(t, err)
	clas, ok := doc.first("CLAS")
	require.True(t, ok)
	assert.Equal(t, "2 12", clas.get("OCL"))
	assert.Equal(t, []string{"  2 12"}, clas.columns("OCL"))
}

func TestDocumentNumber(t *testing.T) {
	tests := map[string]string{
		"039305848": "3930584",
		"D02456781": "D245678",
		"RE0286711": "RE28671",
		"PP0083431": "PP8343",
		"0":         "",
		"000000000": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, documentNumber(in), in)
	}
}

func TestReadDocument_Continuations(t *testing.T) {
	doc, err := readDocument("PATN\nWKU  039305848\nTTL  A\n     B\n\n     C\n")
	require.NoError(t, err)
	patn, ok := doc.first("PATN")
	require.True(t, ok)
	assert.Equal(t, "A B C", patn.get("TTL"))
}

//Personal.AI order the ending
