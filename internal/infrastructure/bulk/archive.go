package bulk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// sniffFormat is passed as the format of an archive whose documents should
// be identified by parser.Detect.
const sniffFormat parser.Format = 0

// sniffWindow is how much of an archive member is read to detect its format.
const sniffWindow = 4096

// WalkZip splits every file of the zip archive in r and calls fn for each
// document.  Document names have the form "<name>!<file>#<n>", n counting
// from 1 within each file.  A zero format detects the format of every
// document separately; undetectable documents are logged and skipped.
func WalkZip(ctx context.Context, r io.ReaderAt, size int64, name string, format parser.Format, log logging.Logger, fn func(corpus.RawDocument) error) error {
	if log == nil {
		log = logging.NewNopLogger()
	}
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchiveInvalid, "opening zip archive").WithDetailf("archive=%s", name)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || skipEntry(f.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := walkEntry(ctx, f, name, format, log, fn); err != nil {
			return err
		}
	}
	return nil
}

// skipEntry reports archive members that never hold documents: DTDs, entity
// files and embedded images.
func skipEntry(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".dtd", ".ent", ".tif", ".tiff", ".jpg", ".gif", ".png", ".pdf":
		return true
	}
	return false
}

func walkEntry(ctx context.Context, f *zip.File, archive string, format parser.Format, log logging.Logger, fn func(corpus.RawDocument) error) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchiveInvalid, "opening archive member").
			WithDetailf("archive=%s member=%s", archive, f.Name)
	}
	defer rc.Close()

	splitFormat := format
	if splitFormat == sniffFormat {
		head := make([]byte, sniffWindow)
		n, _ := io.ReadFull(rc, head)
		detected, ok := parser.Detect(head[:n])
		if !ok {
			log.Warn("Archive member skipped, unknown format",
				logging.String("archive", archive),
				logging.String("member", f.Name))
			return nil
		}
		splitFormat = detected
		rc = readCloser{io.MultiReader(bytes.NewReader(head[:n]), rc), rc}
	}

	s, err := NewSplitter(splitFormat)
	if err != nil {
		return err
	}

	n := 0
	err = s.Split(rc, func(doc []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n++
		docFormat := splitFormat
		if format == sniffFormat {
			if d, ok := parser.Detect(doc); ok {
				docFormat = d
			}
		}
		return fn(corpus.RawDocument{
			Name:    fmt.Sprintf("%s!%s#%d", archive, f.Name, n),
			Format:  docFormat,
			Content: doc,
		})
	})
	if err != nil {
		return err
	}
	log.Debug("Archive member split",
		logging.String("archive", archive),
		logging.String("member", f.Name),
		logging.Int("documents", n))
	return nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

//Personal.AI order the ending
