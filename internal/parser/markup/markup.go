// Package markup is the tree-loading collaborator of the format parsers.  It
// turns raw XML or SGML into a navigable tree and offers the small set of
// XPath helpers the parsers use for field lookup.
//
// XML is loaded with xmlquery, which rejects malformed markup.  Legacy SGML
// has no well-formedness rules (end tags are optional), so it is loaded with
// the tolerant HTML tokenizer of golang.org/x/net/html through htmlquery;
// element names are lower-cased in the resulting tree.
package markup

import (
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html"

	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// SGMLRootElement is the root element every SGML patent document carries.
const SGMLRootElement = "patdoc"

// LoadXML parses r into an XML tree.  Malformed markup, or input without a
// root element, fails with an ErrCodeDocumentLoad error.
func LoadXML(r io.Reader) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentLoad, "failed to load XML")
	}
	if rootElement(doc) == nil {
		return nil, errors.New(errors.ErrCodeDocumentLoad, "failed to load XML").
			WithDetail("no root element")
	}
	return doc, nil
}

// LoadSGML parses r into an SGML tree.  The tokenizer accepts any byte
// sequence, so the load fails only on read errors or when no PATDOC element
// is present.
func LoadSGML(r io.Reader) (*html.Node, error) {
	doc, err := htmlquery.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentLoad, "failed to load SGML")
	}
	if htmlquery.FindOne(doc, "//"+SGMLRootElement) == nil {
		return nil, errors.New(errors.ErrCodeDocumentLoad, "failed to load SGML").
			WithDetail("no PATDOC element")
	}
	return doc, nil
}

// RootName returns the local name of the document element, or "".
func RootName(doc *xmlquery.Node) string {
	if root := rootElement(doc); root != nil {
		return root.Data
	}
	return ""
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	if doc == nil {
		return nil
	}
	if doc.Type == xmlquery.ElementNode {
		return doc
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

// ── XML helpers ──────────────────────────────────────────────────────────────

// Text returns the trimmed inner text of the first node matching expr below
// n, or "" when nothing matches.
func Text(n *xmlquery.Node, expr string) string {
	if n == nil {
		return ""
	}
	found := xmlquery.FindOne(n, expr)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.InnerText())
}

// Attr returns the trimmed attribute attr of the first node matching expr
// below n.  An empty expr selects n itself.
func Attr(n *xmlquery.Node, expr, attr string) string {
	if n == nil {
		return ""
	}
	if expr != "" {
		n = xmlquery.FindOne(n, expr)
		if n == nil {
			return ""
		}
	}
	return strings.TrimSpace(n.SelectAttr(attr))
}

// Inner returns the trimmed inner text of n itself.
func Inner(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.InnerText())
}

// Columns returns the inner text of n with only trailing blanks and leading
// line breaks removed, keeping the padding of fixed-layout codes.
func Columns(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return columns(n.InnerText())
}

func columns(s string) string {
	return strings.TrimLeft(strings.TrimRight(s, " \t\r\n"), "\r\n")
}

// All returns every node matching expr below n.
func All(n *xmlquery.Node, expr string) []*xmlquery.Node {
	if n == nil {
		return nil
	}
	return xmlquery.Find(n, expr)
}

// One returns the first node matching expr below n, or nil.
func One(n *xmlquery.Node, expr string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	return xmlquery.FindOne(n, expr)
}

// ── SGML helpers ─────────────────────────────────────────────────────────────

// SGMLText is Text for SGML trees.  expr must use lower-case element names.
func SGMLText(n *html.Node, expr string) string {
	if n == nil {
		return ""
	}
	found := htmlquery.FindOne(n, expr)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(found))
}

// SGMLInner returns the trimmed inner text of n itself.
func SGMLInner(n *html.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(n))
}

// SGMLColumns is Columns for SGML trees.
func SGMLColumns(n *html.Node) string {
	if n == nil {
		return ""
	}
	return columns(htmlquery.InnerText(n))
}

// SGMLAttr is Attr for SGML trees.
func SGMLAttr(n *html.Node, expr, attr string) string {
	if n == nil {
		return ""
	}
	if expr != "" {
		n = htmlquery.FindOne(n, expr)
		if n == nil {
			return ""
		}
	}
	return strings.TrimSpace(htmlquery.SelectAttr(n, attr))
}

// SGMLAll is All for SGML trees.
func SGMLAll(n *html.Node, expr string) []*html.Node {
	if n == nil {
		return nil
	}
	return htmlquery.Find(n, expr)
}

// SGMLOne is One for SGML trees.
func SGMLOne(n *html.Node, expr string) *html.Node {
	if n == nil {
		return nil
	}
	return htmlquery.FindOne(n, expr)
}

//Personal.AI order the ending
