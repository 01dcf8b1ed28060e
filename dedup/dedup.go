// Package dedup removes rows whose Dedup Key already exists, either earlier
// in the same ingestion batch or in the conformed tier.
package dedup

import (
	"context"

	"github.com/trendlake/trendlake"
)

// CatalogPartition is the catalog namespace for a region. Dedup keys are
// tracked per region regardless of any date sub-partitioning of the files.
func CatalogPartition(region string) string {
	return "region=" + region
}

// Deduper filters conformed rows against the catalog of persisted Dedup
// Keys.
type Deduper struct {
	catalog trendlake.Catalog
}

// NewDeduper gets a Deduper reading persisted keys from catalog.
func NewDeduper(catalog trendlake.Catalog) *Deduper {
	return &Deduper{catalog: catalog}
}

// Dedup returns the subset of rows whose Dedup Key is not already persisted,
// keeping exactly one row per key. When two rows in the batch share a key the
// later row's values win; later files in a batch tend to be more complete
// re-exports. Rows colliding with a persisted key are dropped, never merged:
// the pipeline does not rewrite historical conformed data.
//
// A catalog read failure returns a CatalogUnavailableError; since nothing has
// been written yet the whole event is safe to retry.
func (d *Deduper) Dedup(ctx context.Context, rows []trendlake.ConformedRow) ([]trendlake.ConformedRow, error) {
	persisted := make(map[trendlake.DedupKey]struct{})
	fetched := make(map[string]struct{})
	for _, row := range rows {
		if _, ok := fetched[row.Region]; ok {
			continue
		}
		existing, err := d.catalog.ExistingKeys(ctx, CatalogPartition(row.Region))
		if err != nil {
			return nil, &trendlake.CatalogUnavailableError{Err: err}
		}
		for k := range existing {
			persisted[k] = struct{}{}
		}
		fetched[row.Region] = struct{}{}
	}

	out := make([]trendlake.ConformedRow, 0, len(rows))
	at := make(map[trendlake.DedupKey]int, len(rows))
	for _, row := range rows {
		key := row.Key()
		if _, ok := persisted[key]; ok {
			continue
		}
		if i, ok := at[key]; ok {
			out[i] = row
			continue
		}
		at[key] = len(out)
		out = append(out, row)
	}
	return out, nil
}
