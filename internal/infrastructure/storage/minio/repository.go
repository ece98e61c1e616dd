package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/bulk"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrUploadFailed   = errors.New(errors.ErrCodeStorageError, "upload failed")
	ErrDownloadFailed = errors.New(errors.ErrCodeStorageError, "download failed")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectReader is an opened object.
type ObjectReader interface {
	io.ReaderAt
	io.Reader
	io.Closer
}

// ObjectStore is the object access used by the corpus source and sink.
type ObjectStore interface {
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Open(ctx context.Context, bucket, key string) (ObjectReader, int64, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string, meta map[string]string) error
}

// List returns the objects under prefix, recursively, in key order.
func (c *MinIOClient) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	var out []ObjectInfo
	for obj := range c.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list objects").
				WithDetailf("bucket=%s prefix=%s", bucket, prefix)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		out = append(out, ObjectInfo{Key: obj.Key, Size: obj.Size})
	}
	return out, nil
}

// Open returns a random access reader over an object and its size.
func (c *MinIOClient) Open(ctx context.Context, bucket, key string) (ObjectReader, int64, error) {
	if err := c.checkOpen(); err != nil {
		return nil, 0, err
	}
	obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, ErrDownloadFailed.WithCause(err).WithDetailf("bucket=%s key=%s", bucket, key)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, ErrObjectNotFound.WithDetailf("bucket=%s key=%s", bucket, key)
		}
		return nil, 0, ErrDownloadFailed.WithCause(err).WithDetailf("bucket=%s key=%s", bucket, key)
	}
	return obj, info.Size, nil
}

// Put stores data under key.
func (c *MinIOClient) Put(ctx context.Context, bucket, key string, data []byte, contentType string, meta map[string]string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	_, err := c.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	if err != nil {
		return ErrUploadFailed.WithCause(err).WithDetailf("bucket=%s key=%s", bucket, key)
	}
	return nil
}

// ArchiveSource reads bulk archives stored under a bucket prefix.
type ArchiveSource struct {
	store  ObjectStore
	bucket string
	prefix string
	format parser.Format
	log    logging.Logger
}

// NewArchiveSource returns a corpus.DocumentSource over the archives under
// prefix.  A zero format detects the format per archive member.
func NewArchiveSource(store ObjectStore, bucket, prefix string, format parser.Format, log logging.Logger) *ArchiveSource {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ArchiveSource{store: store, bucket: bucket, prefix: prefix, format: format, log: log}
}

// Walk implements corpus.DocumentSource.
func (s *ArchiveSource) Walk(ctx context.Context, fn func(corpus.RawDocument) error) error {
	objects, err := s.store.List(ctx, s.bucket, s.prefix)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		if !strings.EqualFold(path.Ext(obj.Key), ".zip") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.walkObject(ctx, obj, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *ArchiveSource) walkObject(ctx context.Context, obj ObjectInfo, fn func(corpus.RawDocument) error) error {
	r, size, err := s.store.Open(ctx, s.bucket, obj.Key)
	if err != nil {
		return err
	}
	defer r.Close()
	s.log.Info("Reading archive object",
		logging.String("bucket", s.bucket),
		logging.String("key", obj.Key),
		logging.Int64("bytes", size))
	return bulk.WalkZip(ctx, r, size, path.Base(obj.Key), s.format, s.log, fn)
}

// CorpusSink writes matched documents to the corpus bucket as
// "<run>/<document id>.<ext>" (the raw document) and
// "<run>/<document id>.json" (the parsed record).
type CorpusSink struct {
	store  ObjectStore
	bucket string
}

// NewCorpusSink returns a sink writing to bucket.
func NewCorpusSink(store ObjectStore, bucket string) *CorpusSink {
	return &CorpusSink{store: store, bucket: bucket}
}

// Name implements corpus.Sink.
func (s *CorpusSink) Name() string { return "minio" }

// Put implements corpus.Sink.
func (s *CorpusSink) Put(ctx context.Context, doc corpus.MatchedDocument) error {
	id := doc.Patent.Base().ID.String()
	base := doc.Run.String() + "/" + id
	meta := map[string]string{
		"document-id": id,
		"format":      doc.Format.String(),
		"provenance":  doc.Provenance,
		"source":      doc.Source,
	}

	rawExt, rawType := doc.Format.MediaType()
	if err := s.store.Put(ctx, s.bucket, base+rawExt, doc.Raw, rawType, meta); err != nil {
		return err
	}

	record, err := json.Marshal(patent.NewRecord(doc.Patent))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding document record")
	}
	return s.store.Put(ctx, s.bucket, base+".json", record, "application/json", meta)
}

//Personal.AI order the ending
