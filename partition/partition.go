// Package partition groups conformed rows by their partition key.
package partition

import (
	"sort"
	"strings"

	"github.com/trendlake/trendlake"
)

// Partition is the physical grouping key for persisted rows: region, and
// optionally the trending date.
type Partition struct {
	Region string
	// Date is the trending_date sub-partition, empty when date partitioning
	// is off or the row has no trending_date.
	Date string
}

// Key renders the partition as a storage path fragment, e.g.
// "region=us" or "region=us/trending_date=2017-11-14".
func (p Partition) Key() string {
	if p.Date == "" {
		return "region=" + p.Region
	}
	return "region=" + p.Region + "/trending_date=" + p.Date
}

// Group is the set of rows sharing a partition key within one ingestion
// batch. Row order matches input order.
type Group struct {
	Partition Partition
	Rows      []trendlake.ConformedRow
}

// Assigner computes partition keys and groups rows by them.
type Assigner struct {
	// ByDate enables trending_date sub-partitioning.
	ByDate bool
}

// Assign distributes rows into groups, one group per distinct partition key.
// Every input row lands in exactly one group, input order is preserved within
// each group, and groups come back sorted by key for deterministic output.
func (a Assigner) Assign(rows []trendlake.ConformedRow) []Group {
	byKey := make(map[Partition]*Group)
	for _, row := range rows {
		p := Partition{Region: row.Region}
		if a.ByDate && row.TrendingDate != nil {
			p.Date = *row.TrendingDate
		}
		g, ok := byKey[p]
		if !ok {
			g = &Group{Partition: p}
			byKey[p] = g
		}
		g.Rows = append(g.Rows, row)
	}

	groups := make([]Group, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return strings.Compare(groups[i].Partition.Key(), groups[j].Partition.Key()) < 0
	})
	return groups
}
