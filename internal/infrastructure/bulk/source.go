package bulk

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// FileSource walks local bulk files.  Zip archives are opened and split;
// any other file is split as a plain bulk file.
type FileSource struct {
	paths  []string
	format parser.Format
	log    logging.Logger
}

// NewFileSource returns a source over paths.  A zero format detects the
// format per archive member.
func NewFileSource(paths []string, format parser.Format, log logging.Logger) *FileSource {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FileSource{paths: append([]string(nil), paths...), format: format, log: log}
}

// Walk implements corpus.DocumentSource.
func (s *FileSource) Walk(ctx context.Context, fn func(corpus.RawDocument) error) error {
	for _, p := range s.paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.walkPath(ctx, p, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSource) walkPath(ctx context.Context, p string, fn func(corpus.RawDocument) error) error {
	f, err := os.Open(p)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchiveInvalid, "opening bulk file").WithDetailf("path=%s", p)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchiveInvalid, "stat bulk file").WithDetailf("path=%s", p)
	}
	name := filepath.Base(p)
	s.log.Info("Reading bulk file", logging.String("path", p), logging.Int64("bytes", info.Size()))

	if strings.EqualFold(filepath.Ext(p), ".zip") {
		return WalkZip(ctx, f, info.Size(), name, s.format, s.log, fn)
	}

	format := s.format
	if format == sniffFormat {
		head := make([]byte, sniffWindow)
		n, _ := f.ReadAt(head, 0)
		detected, ok := parser.Detect(head[:n])
		if !ok {
			return parser.ErrUnsupportedFormat.WithDetailf("path=%s", p)
		}
		format = detected
	}
	sp, err := NewSplitter(format)
	if err != nil {
		return err
	}
	n := 0
	return sp.Split(f, func(doc []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n++
		return fn(corpus.RawDocument{Name: name + "#" + strconv.Itoa(n), Format: format, Content: doc})
	})
}

//Personal.AI order the ending
