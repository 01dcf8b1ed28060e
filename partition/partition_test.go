package partition

import (
	"testing"

	"github.com/trendlake/trendlake"
)

func mkRow(id, region, date string) trendlake.ConformedRow {
	return trendlake.ConformedRow{
		VideoID:      id,
		Region:       region,
		TrendingDate: trendlake.String(date),
	}
}

func TestAssignByRegion(t *testing.T) {
	rows := []trendlake.ConformedRow{
		mkRow("a", "us", "2017-11-14"),
		mkRow("b", "gb", "2017-11-14"),
		mkRow("c", "us", "2017-11-15"),
		mkRow("d", "gb", "2017-11-15"),
		mkRow("e", "us", "2017-11-14"),
	}
	groups := Assigner{}.Assign(rows)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	// sorted by key: gb before us
	if groups[0].Partition.Key() != "region=gb" || groups[1].Partition.Key() != "region=us" {
		t.Fatalf("unexpected group keys: %v, %v", groups[0].Partition, groups[1].Partition)
	}

	// completeness: union of groups equals input, no row duplicated or lost
	total := 0
	for _, g := range groups {
		total += len(g.Rows)
	}
	if total != len(rows) {
		t.Fatalf("groups hold %d rows, input had %d", total, len(rows))
	}

	// order within a group follows input order
	us := groups[1].Rows
	if us[0].VideoID != "a" || us[1].VideoID != "c" || us[2].VideoID != "e" {
		t.Fatalf("row order not preserved: %v", us)
	}
}

func TestAssignByDate(t *testing.T) {
	rows := []trendlake.ConformedRow{
		mkRow("a", "us", "2017-11-14"),
		mkRow("b", "us", "2017-11-15"),
		{VideoID: "c", Region: "us"}, // null trending_date
	}
	groups := Assigner{ByDate: true}.Assign(rows)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	wantKeys := []string{
		"region=us",
		"region=us/trending_date=2017-11-14",
		"region=us/trending_date=2017-11-15",
	}
	for i, want := range wantKeys {
		if got := groups[i].Partition.Key(); got != want {
			t.Fatalf("group %d key = %q, want %q", i, got, want)
		}
	}
}

func TestAssignEmpty(t *testing.T) {
	if groups := (Assigner{}).Assign(nil); len(groups) != 0 {
		t.Fatalf("got %d groups from empty input", len(groups))
	}
}
