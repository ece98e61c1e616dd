package greenbook

import (
	"bufio"
	"strings"

	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// A Greenbook (APS) document is a sequence of lines.  Columns 1-4 hold a
// tag, column 5 is blank and the value starts at column 6.  A line holding
// only a tag opens a record (PATN, INVT, CLAS, ...); a line whose tag columns
// are blank continues the value of the previous field.

const valueColumn = 5

// field is one tagged value inside a record.  raw keeps the value columns
// untrimmed since fixed-layout codes right-justify their parts.
type field struct {
	tag   string
	value string
	raw   string
}

// record is a group of fields under a record header such as INVT.
type record struct {
	name   string
	fields []field
}

// get returns the first value of tag in the record.
func (r record) get(tag string) string {
	for _, f := range r.fields {
		if f.tag == tag {
			return f.value
		}
	}
	return ""
}

// all returns every value of tag in the record.
func (r record) all(tag string) []string {
	var out []string
	for _, f := range r.fields {
		if f.tag == tag {
			out = append(out, f.value)
		}
	}
	return out
}

// columns returns every untrimmed value of tag in the record.
func (r record) columns(tag string) []string {
	var out []string
	for _, f := range r.fields {
		if f.tag == tag {
			out = append(out, f.raw)
		}
	}
	return out
}

// document is the record list of one patent, starting with its PATN record.
type document []record

// first returns the first record named name.
func (d document) first(name string) (record, bool) {
	for _, r := range d {
		if r.name == name {
			return r, true
		}
	}
	return record{}, false
}

// each returns every record named name, in order.
func (d document) each(name string) []record {
	var out []record
	for _, r := range d {
		if r.name == name {
			out = append(out, r)
		}
	}
	return out
}

// paragraphTags hold running text; each occurrence is a new paragraph.
var paragraphTags = map[string]bool{
	"PAL": true, "PAR": true, "PA0": true, "PA1": true, "PA2": true,
	"PA3": true, "PA4": true, "PA5": true, "PAC": true, "TBL": true,
}

// readDocument splits the text of a single patent into records.  Lines
// before the first PATN header are ignored, and a second PATN header ends
// the document.
func readDocument(raw string) (document, error) {
	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		doc     document
		cur     *record
		started bool
	)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \r")
		if line == "" {
			continue
		}
		tag, raw := splitLine(line)
		value := strings.TrimSpace(raw)

		switch {
		case tag == "PATN" && value == "":
			if started {
				return doc, nil
			}
			started = true
			doc = append(doc, record{name: "PATN"})
			cur = &doc[len(doc)-1]
		case !started:
			continue
		case tag == "":
			if cur == nil || len(cur.fields) == 0 {
				continue
			}
			last := &cur.fields[len(cur.fields)-1]
			last.value = strings.TrimSpace(last.value + " " + value)
			last.raw = last.value
		case value == "" && isHeader(tag):
			doc = append(doc, record{name: tag})
			cur = &doc[len(doc)-1]
		default:
			cur.fields = append(cur.fields, field{tag: tag, value: value, raw: raw})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentLoad, "failed to read APS text")
	}
	if !started {
		return nil, errors.New(errors.ErrCodeDocumentLoad, "failed to read APS text").
			WithDetail("no PATN record")
	}
	return doc, nil
}

// splitLine separates the tag columns from the value columns.  Only the tag
// is trimmed; the value keeps its leading padding.
func splitLine(line string) (tag, value string) {
	if len(line) <= valueColumn {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:valueColumn]), line[valueColumn:]
}

// isHeader reports whether tag opens a record.
func isHeader(tag string) bool {
	switch tag {
	case "PATN", "INVT", "ASSG", "PRIR", "REIS", "RLAP", "CLAS", "UREF",
		"FREF", "OREF", "LREP", "PCTA", "ABST", "GOVT", "PARN", "BSUM",
		"DRWD", "DETD", "CLMS", "DCLM":
		return true
	default:
		return false
	}
}

// text joins the paragraph values of a text record with blank lines.
func (r record) text() string {
	var parts []string
	for _, f := range r.fields {
		if paragraphTags[f.tag] {
			parts = append(parts, f.value)
		}
	}
	return strings.Join(parts, "\n\n")
}

//Personal.AI order the ending
