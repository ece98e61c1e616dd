package bulk

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// FileSink writes matched documents below a local directory using the same
// layout as the object store sink: "<run>/<document id>.<ext>" for the raw
// document and "<run>/<document id>.json" for the parsed record.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeValidation, "file sink directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "creating file sink directory").WithDetailf("dir=%s", dir)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Name() string { return "file" }

// Put implements corpus.Sink.  Files are written to a temporary name and
// renamed, so readers never see a partial document.
func (s *FileSink) Put(ctx context.Context, doc corpus.MatchedDocument) error {
	if doc.Patent == nil {
		return errors.New(errors.ErrCodeValidation, "matched document has no patent")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	runDir := filepath.Join(s.dir, doc.Run.String())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "creating run directory").WithDetailf("dir=%s", runDir)
	}

	id := doc.Patent.Base().ID.String()
	ext, _ := doc.Format.MediaType()
	if len(doc.Raw) > 0 {
		if err := writeAtomic(filepath.Join(runDir, id+ext), doc.Raw); err != nil {
			return err
		}
	}

	record, err := json.MarshalIndent(patent.NewRecord(doc.Patent), "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding document record")
	}
	return writeAtomic(filepath.Join(runDir, id+".json"), record)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "creating temporary file").WithDetailf("path=%s", path)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.ErrCodeStorageError, "writing file").WithDetailf("path=%s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.ErrCodeStorageError, "closing file").WithDetailf("path=%s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.ErrCodeStorageError, "renaming file").WithDetailf("path=%s", path)
	}
	return nil
}

//Personal.AI order the ending
