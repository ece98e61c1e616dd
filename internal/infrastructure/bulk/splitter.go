// Package bulk reads the weekly bulk archives published by the USPTO and
// splits their concatenated files into individual documents.
package bulk

import (
	"bufio"
	"bytes"
	"io"

	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// maxLine bounds a single line of a bulk file.  SGML and XML bulk files keep
// each document on comparatively few lines, some of them very long.
const maxLine = 16 << 20

// Splitter cuts a concatenated bulk file into documents.
type Splitter struct {
	format parser.Format
}

// NewSplitter returns a Splitter for the bulk files of format.
func NewSplitter(format parser.Format) (*Splitter, error) {
	if !format.IsValid() {
		return nil, parser.ErrUnsupportedFormat.WithDetailf("format=%d", int(format))
	}
	return &Splitter{format: format}, nil
}

// startsDocument reports whether line opens a new document.
func (s *Splitter) startsDocument(line []byte) bool {
	trimmed := bytes.TrimSpace(line)
	switch s.format {
	case parser.FormatGreenbook:
		return bytes.Equal(trimmed, []byte("PATN"))
	case parser.FormatSGML:
		return bytes.HasPrefix(bytes.ToUpper(trimmed), []byte("<PATDOC"))
	default:
		return bytes.HasPrefix(trimmed, []byte("<?xml"))
	}
}

// Split reads r and calls fn once per document, in order.  Content before
// the first document start (Greenbook file headers, for instance) is
// discarded.  Split stops at the first error returned by fn.
func (s *Splitter) Split(r io.Reader, fn func(doc []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	sc.Split(scanLines)

	var cur bytes.Buffer
	started := false
	flush := func() error {
		if !started || len(bytes.TrimSpace(cur.Bytes())) == 0 {
			return nil
		}
		doc := append([]byte(nil), cur.Bytes()...)
		cur.Reset()
		return fn(doc)
	}

	for sc.Scan() {
		line := sc.Bytes()
		if s.startsDocument(line) {
			if err := flush(); err != nil {
				return err
			}
			cur.Reset()
			started = true
		}
		if started {
			cur.Write(line)
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeArchiveInvalid, "reading bulk file")
	}
	return flush()
}

// scanLines is bufio.ScanLines keeping the line terminator, so documents are
// reproduced byte for byte.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

//Personal.AI order the ending
