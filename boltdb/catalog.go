// Package boltdb provides a trendlake.Catalog implementation using boltdb.
// It stands in for an external metadata catalog service in single-node
// deployments: one bucket per partition, one key per persisted Dedup Key.
package boltdb

import (
	"bytes"
	"context"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/trendlake/trendlake"
)

var keysBucket = []byte("dedupKeys")

// sep separates DedupKey components in the stored key bytes. Video IDs,
// region codes and dates never contain NUL.
const sep = "\x00"

// Catalog is a bolt-backed Dedup Key catalog.
type Catalog struct {
	Db *bolt.DB
}

// NewCatalog opens (creating if needed) the catalog database at filename.
func NewCatalog(filename string) (*Catalog, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(keysBucket)
		return errors.Wrap(err, "creating keys bucket")
	})
	if err != nil {
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return &Catalog{Db: db}, nil
}

// ExistingKeys implements trendlake.Catalog.
func (c *Catalog) ExistingKeys(ctx context.Context, partition string) (map[trendlake.DedupKey]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[trendlake.DedupKey]struct{})
	err := c.Db.View(func(tx *bolt.Tx) error {
		pb := tx.Bucket(keysBucket).Bucket([]byte(partition))
		if pb == nil {
			return nil
		}
		return pb.ForEach(func(k, _ []byte) error {
			key, err := decodeKey(k)
			if err != nil {
				return err
			}
			out[key] = struct{}{}
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "reading keys for %q", partition)
	}
	return out, nil
}

// AddKeys implements trendlake.Catalog.
func (c *Catalog) AddKeys(ctx context.Context, partition string, keys []trendlake.DedupKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.Db.Update(func(tx *bolt.Tx) error {
		pb, err := tx.Bucket(keysBucket).CreateBucketIfNotExists([]byte(partition))
		if err != nil {
			return errors.Wrapf(err, "creating bucket for %q", partition)
		}
		for _, key := range keys {
			if err := pb.Put(encodeKey(key), nil); err != nil {
				return errors.Wrap(err, "putting key")
			}
		}
		return nil
	})
	return errors.Wrapf(err, "adding keys for %q", partition)
}

// Close syncs and closes the underlying boltdb.
func (c *Catalog) Close() error {
	err := c.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return c.Db.Close()
}

func encodeKey(k trendlake.DedupKey) []byte {
	return []byte(k.VideoID + sep + k.Region + sep + k.TrendingDate)
}

func decodeKey(b []byte) (trendlake.DedupKey, error) {
	parts := bytes.SplitN(b, []byte(sep), 3)
	if len(parts) != 3 {
		return trendlake.DedupKey{}, errors.Errorf("malformed catalog key %q", b)
	}
	return trendlake.DedupKey{
		VideoID:      string(parts[0]),
		Region:       string(parts[1]),
		TrendingDate: string(parts[2]),
	}, nil
}
