package redis

import (
	"context"
	"time"

	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// Deduper remembers processed document ids with SETNX so that documents
// republished in later weekly archives (corrections, reissued bulk files)
// are processed once per namespace.
type Deduper struct {
	client    *Client
	namespace string
	ttl       time.Duration
}

// NewDeduper returns a corpus.Deduper scoped to namespace.  Marks expire
// after ttl; zero keeps them forever.
func NewDeduper(client *Client, namespace string, ttl time.Duration) *Deduper {
	if namespace == "" {
		namespace = "default"
	}
	return &Deduper{client: client, namespace: namespace, ttl: ttl}
}

func (d *Deduper) key(docID string) string {
	return Key("seen", d.namespace, docID)
}

// Seen implements corpus.Deduper.
func (d *Deduper) Seen(ctx context.Context, docID string) (bool, error) {
	rdb, err := d.client.Underlying()
	if err != nil {
		return false, err
	}
	fresh, err := rdb.SetNX(ctx, d.key(docID), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "dedup mark failed").WithDetailf("doc=%s", docID)
	}
	return !fresh, nil
}

// Forget clears the mark for docID so it is processed again.
func (d *Deduper) Forget(ctx context.Context, docID string) error {
	rdb, err := d.client.Underlying()
	if err != nil {
		return err
	}
	if err := rdb.Del(ctx, d.key(docID)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "dedup forget failed").WithDetailf("doc=%s", docID)
	}
	return nil
}

//Personal.AI order the ending
