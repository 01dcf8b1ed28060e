package file

import (
	"context"
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/trendlake/trendlake"
)

func mustStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "teststore")
	if err != nil {
		t.Fatal("getting temp dir")
	}
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("getting store: %v", err)
	}
	return s, func() { os.RemoveAll(dir) }
}

func TestStoreRoundTrip(t *testing.T) {
	s, cleanup := mustStore(t)
	defer cleanup()
	ctx := context.Background()

	err := s.Put(ctx, "trending/raw/region=us/2017-11-14.csv", []byte("video_id\nabc"))
	if err != nil {
		t.Fatalf("putting: %v", err)
	}

	r, err := s.Get(ctx, "trending/raw/region=us/2017-11-14.csv")
	if err != nil {
		t.Fatalf("getting: %v", err)
	}
	if r.Name() != "trending/raw/region=us/2017-11-14.csv" {
		t.Fatalf("reader name = %q", r.Name())
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	r.Close()
	if string(data) != "video_id\nabc" {
		t.Fatalf("got %q", data)
	}
}

func TestStoreList(t *testing.T) {
	s, cleanup := mustStore(t)
	defer cleanup()
	ctx := context.Background()

	for _, key := range []string{
		"trending/raw/region=us/a.csv",
		"trending/raw/region=gb/b.csv",
		"trending/conformed/region=us/c.parquet",
	} {
		if err := s.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("putting %s: %v", key, err)
		}
	}

	keys, err := s.List(ctx, "trending/raw/")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys: %v", len(keys), keys)
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, "trending/raw/") {
			t.Fatalf("key %q escapes prefix", k)
		}
	}
}

func TestStorePutLeavesNoStagingFiles(t *testing.T) {
	s, cleanup := mustStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := s.Put(ctx, "d/obj", []byte("payload")); err != nil {
		t.Fatalf("putting: %v", err)
	}
	keys, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(keys) != 1 || keys[0] != "d/obj" {
		t.Fatalf("staging artifacts visible: %v", keys)
	}
}

func TestStoreGetMissingIsTransient(t *testing.T) {
	s, cleanup := mustStore(t)
	defer cleanup()

	_, err := s.Get(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if !trendlake.IsTransient(err) {
		t.Fatalf("got %T, want transient storage error", err)
	}
}
