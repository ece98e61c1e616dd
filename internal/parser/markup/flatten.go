package markup

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html"
)

// Block elements start a new paragraph when flattened.  XML names are the
// Redbook / PAP ones; SGML names are lower-cased.
var (
	xmlBlocks = map[string]bool{
		"p": true, "paragraph": true, "heading": true, "claim-text": true,
		"claim": true, "li": true, "ul": true, "ol": true, "table": true,
		"row": true, "tr": true, "description-of-drawings": true,
		"brief-description-of-drawings": true, "section": true,
		"abstract": true, "description": true,
	}
	xmlSkipped = map[string]bool{
		"maths": true, "math": true, "img": true,
		"chemistry": true, "processing-instruction": true,
	}
	sgmlBlocks = map[string]bool{
		"para": true, "ptext": true, "h": true, "clm": true, "cl": true,
		"stext": true, "btext": true, "drwdesc": true, "brfsum": true,
		"detdesc": true, "sdoab": true, "sdode": true,
	}
	sgmlSkipped = map[string]bool{
		"emi": true, "chem-us": true, "math-us": true, "tables": true,
	}
)

// paragraphs accumulates flattened text, inserting a blank line between
// blocks.
type paragraphs struct {
	b strings.Builder
}

func (p *paragraphs) text(s string) { p.b.WriteString(s) }

func (p *paragraphs) breakBlock() {
	if p.b.Len() == 0 {
		return
	}
	p.b.WriteString("\n\n")
}

func (p *paragraphs) String() string { return p.b.String() }

// FlattenXML renders the text of n with block elements separated by blank
// lines.  Whitespace inside blocks is left for the text normalizer.
func FlattenXML(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	var p paragraphs
	var walk func(*xmlquery.Node)
	walk = func(cur *xmlquery.Node) {
		switch cur.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			p.text(cur.Data)
			return
		case xmlquery.ElementNode:
			if xmlSkipped[cur.Data] {
				return
			}
		case xmlquery.CommentNode, xmlquery.DeclarationNode, xmlquery.AttributeNode:
			return
		}
		block := cur.Type == xmlquery.ElementNode && xmlBlocks[cur.Data]
		if block {
			p.breakBlock()
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			p.breakBlock()
		}
	}
	walk(n)
	return p.String()
}

// FlattenSGML is FlattenXML for SGML trees.
func FlattenSGML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var p paragraphs
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		switch cur.Type {
		case html.TextNode:
			p.text(cur.Data)
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			if sgmlSkipped[cur.Data] {
				return
			}
		}
		block := cur.Type == html.ElementNode && sgmlBlocks[cur.Data]
		if block {
			p.breakBlock()
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			p.breakBlock()
		}
	}
	walk(n)
	return p.String()
}

//Personal.AI order the ending
