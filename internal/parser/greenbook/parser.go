// Package greenbook parses the fixed-format APS text ("Greenbook") used for
// US patent grants issued from 1976 to 2001.
package greenbook

import (
	"strings"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser/fields"
)

// FormatName is the format label used in logs and metrics.
const FormatName = "greenbook"

// Parse reads the first patent of raw APS text.  It returns an
// ErrCodeDocumentLoad error when raw holds no PATN record, and
// patent.ErrMissingRequiredIdentifier when the record has no WKU number.
func Parse(raw string, c fields.Collaborators) (patent.Patent, error) {
	c = c.Defaults(FormatName)
	doc, err := readDocument(raw)
	if err != nil {
		return nil, err
	}
	patn, _ := doc.first("PATN")
	rec := c.Recorder
	b := patent.NewBuilder()

	ptype := rec.PatentType(fields.FieldPatentType, patn.get("APT"))
	b.SetPatentType(ptype)

	number := documentNumber(patn.get("WKU"))
	id := patent.NewDocumentID(patent.CountryUS, number, kindFor(ptype))
	if number != "" {
		rec.SetDocID(id.String())
	}
	issued := rec.Date(fields.FieldDatePublished, patn.get("ISD"))
	if number != "" {
		if err := c.SetID(b, id.WithDate(issued)); err != nil {
			rec.Warn(fields.FieldID, number, err)
		}
	}
	b.SetDatePublished(issued)

	if apn := patn.get("APN"); apn != "" {
		appDate := rec.Date(fields.FieldApplicationDate, patn.get("APD"))
		b.SetApplicationID(patent.NewDocumentID(patent.CountryUS, apn, "").
			WithType(patent.IDTypeApplication).WithDate(appDate))
	}

	b.SetTitle(c.Normalizer.Title(patn.get("TTL")))
	b.SetPrimaryExaminer(patn.get("EXP"))

	readRelated(doc, b, c)
	readParties(doc, b)
	readCitations(doc, b)
	readClassifications(doc, b, c)

	if abst, ok := doc.first("ABST"); ok {
		b.SetAbstract(c.Normalizer.Normalize(abst.text()))
	}
	b.SetDescription(c.Normalizer.Normalize(description(doc)))
	b.SetClaims(c.BuildClaims(readClaims(doc, c)))

	return b.Build(patent.LifecycleGrant)
}

// documentNumber strips the trailing check digit and the zero padding of a
// WKU value: "039305848" becomes "3930584", "D02456781" becomes "D245678".
func documentNumber(wku string) string {
	wku = strings.TrimSpace(wku)
	if len(wku) < 2 {
		return ""
	}
	wku = wku[:len(wku)-1]
	prefix := strings.TrimRight(wku, "0123456789")
	digits := strings.TrimLeft(wku[len(prefix):], "0")
	if prefix == "" && digits == "" {
		return ""
	}
	return prefix + digits
}

// kindFor returns the pre-2001 kind code of a grant of type t.
func kindFor(t patent.PatentType) string {
	switch t {
	case patent.PatentTypeDesign:
		return "S"
	case patent.PatentTypePlant:
		return "P"
	case patent.PatentTypeReissue:
		return "E"
	case patent.PatentTypeSIR:
		return "H"
	default:
		return "A"
	}
}

// country converts APS country codes ("DEX", "JPX", "US") to ST.3 codes.
func country(code string) patent.CountryCode {
	code = strings.TrimSpace(code)
	if len(code) == 3 && strings.HasSuffix(code, "X") {
		code = code[:2]
	}
	cc, _ := patent.ParseCountryCode(code)
	return cc
}

func readRelated(doc document, b *patent.Builder, c fields.Collaborators) {
	for _, r := range doc.each("RLAP") {
		apn := r.get("APN")
		if apn == "" {
			continue
		}
		date := c.Recorder.Date(fields.FieldRelatedID, r.get("APD"))
		b.AddRelatedID(patent.NewDocumentID(patent.CountryUS, apn, "").
			WithType(relationType(r.get("COD"))).WithDate(date))
	}
	for _, r := range doc.each("REIS") {
		if pno := r.get("PNO"); pno != "" {
			b.AddRelatedID(patent.NewDocumentID(patent.CountryUS, pno, "").WithType(patent.IDTypeReissue))
		}
	}
	for _, r := range doc.each("PRIR") {
		apn := r.get("APN")
		if apn == "" {
			continue
		}
		cc := country(r.get("CNT"))
		if cc == patent.CountryUnknown {
			cc = patent.CountryUS
		}
		date := c.Recorder.Date(fields.FieldRelatedID, r.get("APD"))
		b.AddRelatedID(patent.NewDocumentID(cc, apn, "").WithType(patent.IDTypePriority).WithDate(date))
	}
	for _, r := range doc.each("PCTA") {
		if pct := r.get("PCN"); pct != "" {
			b.AddRelatedID(patent.NewDocumentID(patent.CountryWO, pct, "").WithType(patent.IDTypePCT))
		}
	}
}

// relationType maps the RLAP relation code.
func relationType(cod string) patent.DocumentIDType {
	switch strings.TrimSpace(cod) {
	case "71":
		return patent.IDTypeContinuation
	case "72":
		return patent.IDTypeContinuationInPart
	case "73":
		return patent.IDTypeDivision
	default:
		return patent.IDTypeRelated
	}
}

func readParties(doc document, b *patent.Builder) {
	for i, r := range doc.each("INVT") {
		b.AddParty(patent.Party{
			Role:     patent.RoleInventor,
			Name:     patent.ParseLastFirst(r.get("NAM")),
			Address:  address(r),
			Sequence: i + 1,
		})
	}
	for i, r := range doc.each("ASSG") {
		b.AddParty(patent.Party{
			Role:     patent.RoleAssignee,
			Name:     patent.Name{OrgName: strings.TrimSpace(r.get("NAM"))},
			Address:  address(r),
			RoleCode: r.get("COD"),
			Sequence: i + 1,
		})
	}
	seq := 0
	for _, r := range doc.each("LREP") {
		for _, firm := range r.all("FRM") {
			seq++
			b.AddParty(patent.Party{Role: patent.RoleAgent, Name: patent.Name{OrgName: firm}, Sequence: seq})
		}
		for _, tag := range []string{"FR2", "AAT", "ATT"} {
			for _, name := range r.all(tag) {
				seq++
				b.AddParty(patent.Party{Role: patent.RoleAgent, Name: patent.ParseLastFirst(name), Sequence: seq})
			}
		}
	}
}

func address(r record) patent.Address {
	return patent.Address{
		Street:     r.get("STR"),
		City:       r.get("CTY"),
		State:      r.get("STA"),
		PostalCode: r.get("ZIP"),
		Country:    country(r.get("CNT")),
	}
}

func readCitations(doc document, b *patent.Builder) {
	for _, r := range doc.each("UREF") {
		pno := r.get("PNO")
		if pno == "" {
			continue
		}
		id := patent.NewDocumentID(patent.CountryUS, pno, "").WithType(patent.IDTypeCitation)
		b.AddCitation(patent.Citation{Kind: patent.CitationPatent, DocumentID: &id})
	}
	for _, r := range doc.each("FREF") {
		pno := r.get("PNO")
		if pno == "" {
			continue
		}
		cc := country(r.get("CNT"))
		id := patent.NewDocumentID(cc, pno, "").WithType(patent.IDTypeCitation)
		b.AddCitation(patent.Citation{Kind: patent.CitationPatent, DocumentID: &id})
	}
	for _, r := range doc.each("OREF") {
		for _, t := range r.all("PAL") {
			b.AddCitation(patent.Citation{Kind: patent.CitationNonPatent, Text: t})
		}
	}
}

func readClassifications(doc document, b *patent.Builder, c fields.Collaborators) {
	for _, r := range doc.each("CLAS") {
		for _, tag := range []string{"OCL", "XCL", "UCL"} {
			for _, code := range r.columns(tag) {
				if cl := c.Recorder.Classification(classification.SchemeUSPC, fields.FieldUSPC, code); cl != nil {
					b.AddClassification(cl)
				}
			}
		}
		for _, code := range r.columns("ICL") {
			if cl := c.Recorder.Classification(classification.SchemeIPC, fields.FieldIPC, code); cl != nil {
				b.AddClassification(cl)
			}
		}
	}
}

// description joins the summary, drawing description and detailed
// description records.
func description(doc document) string {
	var parts []string
	for _, name := range []string{"BSUM", "DRWD", "DETD"} {
		for _, r := range doc.each(name) {
			if t := r.text(); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

// readClaims walks the CLMS (or design DCLM) record: NUM opens a claim and
// the paragraph fields that follow belong to it.
func readClaims(doc document, c fields.Collaborators) []patent.Claim {
	clms, ok := doc.first("CLMS")
	if !ok {
		if clms, ok = doc.first("DCLM"); !ok {
			return nil
		}
	}
	var (
		claims []patent.Claim
		parts  []string
		number int
	)
	flush := func() {
		if number == 0 && len(parts) == 0 {
			return
		}
		body := c.Normalizer.Normalize(strings.Join(parts, "\n"))
		claims = append(claims, patent.Claim{Number: number, Text: body})
		parts = nil
	}
	for _, f := range clms.fields {
		switch {
		case f.tag == "NUM":
			flush()
			number = fields.ClaimNumber(f.value, len(claims)+1)
		case paragraphTags[f.tag]:
			if number == 0 {
				number = len(claims) + 1
			}
			parts = append(parts, f.value)
		}
	}
	flush()
	return claims
}

//Personal.AI order the ending
