// Package fake provides in-memory implementations of the trendlake storage
// and catalog interfaces for tests and local experimentation.
package fake

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trendlake/trendlake"
)

// Store is an in-memory trendlake.Store. The zero value is not usable; get
// one from NewStore.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailGets and FailPuts make the next N reads or writes fail with a
	// transient storage error, for exercising retry paths.
	FailGets int
	FailPuts int
}

// NewStore gets an empty in-memory store.
func NewStore() *Store {
	return &Store{objects: make(map[string][]byte)}
}

// Add seeds an object, bypassing failure injection.
func (s *Store) Add(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
}

// List implements trendlake.Store. Keys come back sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get implements trendlake.Store.
func (s *Store) Get(ctx context.Context, key string) (trendlake.NamedReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGets > 0 {
		s.FailGets--
		return nil, &trendlake.TransientStorageError{Op: "get", Key: key, Err: errors.New("injected failure")}
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.Errorf("no object at %q", key)
	}
	return &memReader{name: key, Reader: bytes.NewReader(data)}, nil
}

// Put implements trendlake.Store.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts > 0 {
		s.FailPuts--
		return &trendlake.TransientStorageError{Op: "put", Key: key, Err: errors.New("injected failure")}
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

// Object returns the stored bytes at key, or nil.
func (s *Store) Object(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key]
}

type memReader struct {
	name string
	*bytes.Reader
}

func (m *memReader) Name() string { return m.name }

func (m *memReader) Close() error { return nil }

var _ io.ReadCloser = (*memReader)(nil)

// Catalog is an in-memory trendlake.Catalog.
type Catalog struct {
	mu   sync.Mutex
	keys map[string]map[trendlake.DedupKey]struct{}

	// Unavailable makes every call fail, for exercising the
	// catalog-unreachable path.
	Unavailable bool
}

// NewCatalog gets an empty in-memory catalog.
func NewCatalog() *Catalog {
	return &Catalog{keys: make(map[string]map[trendlake.DedupKey]struct{})}
}

// ExistingKeys implements trendlake.Catalog.
func (c *Catalog) ExistingKeys(ctx context.Context, partition string) (map[trendlake.DedupKey]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Unavailable {
		return nil, errors.New("catalog offline")
	}
	out := make(map[trendlake.DedupKey]struct{}, len(c.keys[partition]))
	for k := range c.keys[partition] {
		out[k] = struct{}{}
	}
	return out, nil
}

// AddKeys implements trendlake.Catalog.
func (c *Catalog) AddKeys(ctx context.Context, partition string, keys []trendlake.DedupKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Unavailable {
		return errors.New("catalog offline")
	}
	set, ok := c.keys[partition]
	if !ok {
		set = make(map[trendlake.DedupKey]struct{})
		c.keys[partition] = set
	}
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return nil
}

// Close implements trendlake.Catalog.
func (c *Catalog) Close() error { return nil }
