package trendlake

// NormalizedRow is a raw record after flattening and column alignment. Every
// target column is present as a key; a nil value is an explicit null. Values
// are whatever the source document carried: string, float64, bool, or nil.
type NormalizedRow map[string]interface{}

// ConformedRow is a NormalizedRow after type reconciliation. Pointer fields
// are nullable; nil means the source value was absent or unparseable.
// VideoID and Region are the required join/partition keys and are never
// empty in a row that survived reconciliation.
type ConformedRow struct {
	VideoID             string
	TrendingDate        *string
	Title               *string
	ChannelTitle        *string
	CategoryID          *int64
	PublishTime         *string
	Tags                *string
	Views               *int64
	Likes               *int64
	Dislikes            *int64
	CommentCount        *int64
	ThumbnailLink       *string
	CommentsDisabled    *bool
	RatingsDisabled     *bool
	VideoErrorOrRemoved *bool
	Description         *string
	Region              string
}

// DedupKey is the stable identity of a trending-video observation. A video
// can trend on different dates or in different regions, but not twice for
// the same date+region pair.
type DedupKey struct {
	VideoID      string
	Region       string
	TrendingDate string
}

// Key returns the row's DedupKey. A null trending_date contributes an empty
// date component.
func (r ConformedRow) Key() DedupKey {
	k := DedupKey{VideoID: r.VideoID, Region: r.Region}
	if r.TrendingDate != nil {
		k.TrendingDate = *r.TrendingDate
	}
	return k
}

// String returns a pointer to s. Convenience for building nullable columns.
func String(s string) *string { return &s }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
