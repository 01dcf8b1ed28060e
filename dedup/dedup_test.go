package dedup

import (
	"context"
	"testing"

	"github.com/trendlake/trendlake"
	"github.com/trendlake/trendlake/fake"
)

func mkRow(id, region, date string, views int64) trendlake.ConformedRow {
	return trendlake.ConformedRow{
		VideoID:      id,
		Region:       region,
		TrendingDate: trendlake.String(date),
		Views:        trendlake.Int(views),
	}
}

func TestDedupLastWriteWins(t *testing.T) {
	d := NewDeduper(fake.NewCatalog())
	rows := []trendlake.ConformedRow{
		mkRow("a", "us", "2017-11-14", 1),
		mkRow("b", "us", "2017-11-14", 2),
		mkRow("a", "us", "2017-11-14", 3), // same key as first, later wins
		mkRow("a", "us", "2017-11-15", 4), // different date, legitimate
		mkRow("a", "gb", "2017-11-14", 5), // different region, legitimate
	}
	out, err := d.Dedup(context.Background(), rows)
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("got %d rows, want 4", len(out))
	}
	if *out[0].Views != 3 {
		t.Fatalf("later duplicate's values should win, views = %d", *out[0].Views)
	}
	seen := make(map[trendlake.DedupKey]struct{})
	for _, row := range out {
		if _, ok := seen[row.Key()]; ok {
			t.Fatalf("duplicate key survived: %+v", row.Key())
		}
		seen[row.Key()] = struct{}{}
	}
}

func TestDedupAgainstCatalog(t *testing.T) {
	catalog := fake.NewCatalog()
	persisted := mkRow("a", "us", "2017-11-14", 1)
	err := catalog.AddKeys(context.Background(), CatalogPartition("us"), []trendlake.DedupKey{persisted.Key()})
	if err != nil {
		t.Fatalf("seeding catalog: %v", err)
	}

	d := NewDeduper(catalog)
	out, err := d.Dedup(context.Background(), []trendlake.ConformedRow{
		mkRow("a", "us", "2017-11-14", 999), // collides with persisted, dropped not merged
		mkRow("b", "us", "2017-11-14", 2),
	})
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d rows, want 1", len(out))
	}
	if out[0].VideoID != "b" {
		t.Fatalf("wrong survivor: %+v", out[0])
	}
}

func TestDedupNoInvention(t *testing.T) {
	d := NewDeduper(fake.NewCatalog())
	in := []trendlake.ConformedRow{
		mkRow("a", "us", "d1", 1),
		mkRow("b", "gb", "d1", 2),
	}
	out, err := d.Dedup(context.Background(), in)
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d rows, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Key() != in[i].Key() {
			t.Fatalf("row order changed or row invented at %d", i)
		}
	}
}

func TestDedupCatalogUnavailable(t *testing.T) {
	catalog := fake.NewCatalog()
	catalog.Unavailable = true
	d := NewDeduper(catalog)
	_, err := d.Dedup(context.Background(), []trendlake.ConformedRow{mkRow("a", "us", "d1", 1)})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*trendlake.CatalogUnavailableError); !ok {
		t.Fatalf("got %T, want CatalogUnavailableError", err)
	}
}

func TestDedupEmpty(t *testing.T) {
	d := NewDeduper(fake.NewCatalog())
	out, err := d.Dedup(context.Background(), nil)
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d rows from empty input", len(out))
	}
}
