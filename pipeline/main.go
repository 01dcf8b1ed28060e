package pipeline

import (
	"context"
	"log"
	"path"
	"time"

	"github.com/pkg/errors"

	"github.com/trendlake/trendlake"
	"github.com/trendlake/trendlake/aws/s3"
	"github.com/trendlake/trendlake/boltdb"
	"github.com/trendlake/trendlake/file"
)

// Main contains the configuration for running the conforming pipeline from
// the command line.
type Main struct {
	Bucket        string `help:"S3 bucket holding the data lake. If empty, Dir is used as a local store."`
	AwsRegion     string `help:"AWS region of the bucket."`
	Dir           string `help:"Root directory for a local filesystem store, used when no bucket is set."`
	Dataset       string `help:"Dataset name; the top-level key prefix for both tiers."`
	LandingPrefix string `help:"Landing-tier prefix under the dataset name."`
	Catalog       string `help:"Path to the boltdb dedup-key catalog file."`
	Retries       int    `help:"Times to retry a transiently failing storage operation."`
	TimeoutSec    int    `help:"Per-operation storage timeout in seconds. 0 disables the bound."`
	ByDate        bool   `help:"Sub-partition the conformed tier by trending date."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		AwsRegion:     "us-east-1",
		Dir:           "lake",
		Dataset:       "trending",
		LandingPrefix: "raw",
		Catalog:       "catalog.db",
		Retries:       2,
		TimeoutSec:    30,
	}
}

func (m *Main) setup() (trendlake.Store, trendlake.Catalog, error) {
	var store trendlake.Store
	var err error
	if m.Bucket != "" {
		store, err = s3.NewStore(m.Bucket, s3.OptRegion(m.AwsRegion))
		if err != nil {
			return nil, nil, errors.Wrap(err, "getting s3 store")
		}
	} else {
		store, err = file.NewStore(m.Dir)
		if err != nil {
			return nil, nil, errors.Wrap(err, "getting file store")
		}
	}
	catalog, err := boltdb.NewCatalog(m.Catalog)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening catalog")
	}
	return store, catalog, nil
}

func (m *Main) pipeline(store trendlake.Store, catalog trendlake.Catalog) *Pipeline {
	return NewPipeline(store, catalog, m.Dataset,
		OptRetries(m.Retries),
		OptTimeout(time.Duration(m.TimeoutSec)*time.Second),
		OptPartitionByDate(m.ByDate),
	)
}

// Run processes the given landing-tier object keys as one ingestion event.
// This is the entry point the object-arrival trigger invokes, with the
// trigger payload's key as the sole argument.
func (m *Main) Run(keys ...string) error {
	if len(keys) == 0 {
		return errors.New("no object keys given")
	}
	store, catalog, err := m.setup()
	if err != nil {
		return err
	}
	defer catalog.Close()
	rep, err := m.pipeline(store, catalog).Run(context.Background(), keys...)
	logReport(rep)
	if err != nil {
		return err
	}
	if len(rep.Failed) > 0 {
		return errors.Errorf("%d partition(s) failed to write", len(rep.Failed))
	}
	return nil
}

// Backfill replays every object under the landing prefix through the
// pipeline as a single batch. Dedup makes this idempotent: a backfill over
// an already-conformed tier writes nothing.
func (m *Main) Backfill() error {
	store, catalog, err := m.setup()
	if err != nil {
		return err
	}
	defer catalog.Close()
	prefix := path.Join(m.Dataset, m.LandingPrefix) + "/"
	keys, err := store.List(context.Background(), prefix)
	if err != nil {
		return errors.Wrapf(err, "listing %s", prefix)
	}
	if len(keys) == 0 {
		log.Printf("nothing to do under %s", prefix)
		return nil
	}
	log.Printf("backfilling %d objects under %s", len(keys), prefix)
	rep, err := m.pipeline(store, catalog).Run(context.Background(), keys...)
	logReport(rep)
	if err != nil {
		return err
	}
	if len(rep.Failed) > 0 {
		return errors.Errorf("%d partition(s) failed to write", len(rep.Failed))
	}
	return nil
}

func logReport(rep *Report) {
	if rep == nil {
		return
	}
	log.Printf("event %s reached %s: %d rows in, %d conformed, %d after dedup, %d written",
		rep.EventID, rep.Stage, rep.RowsIn, rep.RowsConformed, rep.RowsDeduped, rep.RowsWritten)
	for _, m := range rep.Malformed {
		log.Printf("  skipped file: %v", m)
	}
	for pk, objKey := range rep.Written {
		log.Printf("  %s -> %s", pk, objKey)
	}
	for _, perr := range rep.Failed {
		log.Printf("  %v", perr)
	}
}
