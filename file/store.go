// Package file implements the trendlake.Store interface over a local
// directory tree. Object keys map to slash-separated paths under the root.
package file

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trendlake/trendlake"
)

// Store is a local-filesystem object store.
type Store struct {
	root string
}

// NewStore gets a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating store root")
	}
	return &Store{root: dir}, nil
}

// List implements trendlake.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.Walk(s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, &trendlake.TransientStorageError{Op: "list", Key: prefix, Err: err}
	}
	return keys, nil
}

// Get implements trendlake.Store.
func (s *Store) Get(ctx context.Context, key string) (trendlake.NamedReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, &trendlake.TransientStorageError{Op: "get", Key: key, Err: err}
	}
	return &keyFile{key: key, File: f}, nil
}

// Put implements trendlake.Store. The object is staged as a hidden temp file
// in the target directory and renamed into place, so readers never observe a
// partial write.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	target := filepath.Join(s.root, filepath.FromSlash(key))
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &trendlake.TransientStorageError{Op: "put", Key: key, Err: err}
	}
	tmp, err := ioutil.TempFile(dir, ".staging-")
	if err != nil {
		return &trendlake.TransientStorageError{Op: "put", Key: key, Err: err}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &trendlake.TransientStorageError{Op: "put", Key: key, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &trendlake.TransientStorageError{Op: "put", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &trendlake.TransientStorageError{Op: "put", Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return &trendlake.TransientStorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

type keyFile struct {
	key string
	*os.File
}

// Name returns the store key rather than the filesystem path.
func (f *keyFile) Name() string { return f.key }
