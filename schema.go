package trendlake

// Kind is the canonical type of a conformed column.
type Kind int

const (
	// KindString is a UTF-8 string column.
	KindString Kind = iota
	// KindInt is a 64-bit integer column.
	KindInt
	// KindBool is a boolean column.
	KindBool
)

// Schema maps column names to their canonical types. Columns not present in
// the schema have no canonical mapping and are dropped during normalization.
type Schema map[string]Kind

// Columns is the fixed target column set of the conformed tier, in output
// order.
var Columns = []string{
	"video_id",
	"trending_date",
	"title",
	"channel_title",
	"category_id",
	"publish_time",
	"tags",
	"views",
	"likes",
	"dislikes",
	"comment_count",
	"thumbnail_link",
	"comments_disabled",
	"ratings_disabled",
	"video_error_or_removed",
	"description",
	"region",
}

// CanonicalSchema returns the column type mapping all conformed data must
// satisfy.
func CanonicalSchema() Schema {
	return Schema{
		"video_id":               KindString,
		"trending_date":          KindString,
		"title":                  KindString,
		"channel_title":          KindString,
		"category_id":            KindInt,
		"publish_time":           KindString,
		"tags":                   KindString,
		"views":                  KindInt,
		"likes":                  KindInt,
		"dislikes":               KindInt,
		"comment_count":          KindInt,
		"thumbnail_link":         KindString,
		"comments_disabled":      KindBool,
		"ratings_disabled":       KindBool,
		"video_error_or_removed": KindBool,
		"description":            KindString,
		"region":                 KindString,
	}
}

// Regions is the set of region codes the pipeline accepts. A row whose region
// is not in this set is rejected during reconciliation.
var Regions = map[string]struct{}{
	"ca": {},
	"de": {},
	"fr": {},
	"gb": {},
	"in": {},
	"jp": {},
	"kr": {},
	"mx": {},
	"ru": {},
	"us": {},
}

// ValidRegion reports whether code is a known region code.
func ValidRegion(code string) bool {
	_, ok := Regions[code]
	return ok
}
