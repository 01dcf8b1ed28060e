package trendlake

import (
	"context"
	"io"
)

// NamedReadCloser is an io.ReadCloser which knows the storage key of the
// object it reads.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// Store is a hierarchical key-value blob store holding both the landing and
// conformed tiers. Implementations must make Put atomic: a partially written
// object must never be visible to a reader. Implementations should be thread
// safe.
type Store interface {
	// List returns the keys of all objects under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Get opens the object at key for reading.
	Get(ctx context.Context, key string) (NamedReadCloser, error)
	// Put durably writes data at key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error
}

// Catalog tracks which Dedup Keys already exist in the conformed tier, per
// partition. The Deduplicator reads it; the Writer updates it after a
// successful flush.
type Catalog interface {
	// ExistingKeys returns the Dedup Keys persisted under the partition.
	ExistingKeys(ctx context.Context, partition string) (map[DedupKey]struct{}, error)
	// AddKeys records keys as persisted under the partition.
	AddKeys(ctx context.Context, partition string, keys []DedupKey) error
	Close() error
}
