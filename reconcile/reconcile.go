// Package reconcile enforces the canonical schema on normalized rows.
//
// Upstream sources are inconsistently typed per region and year, so the
// coercion policy favors keeping partial rows: a value that cannot be parsed
// into its column's canonical type becomes null rather than failing the row.
// A row is rejected only when video_id or region is empty after coercion,
// since those are the join and partition keys.
package reconcile

import (
	"strconv"
	"strings"

	"github.com/trendlake/trendlake"
)

// Reconciler coerces NormalizedRows into ConformedRows under the canonical
// schema.
type Reconciler struct {
	schema trendlake.Schema
}

// NewReconciler gets a Reconciler for the canonical schema.
func NewReconciler() *Reconciler {
	return &Reconciler{schema: trendlake.CanonicalSchema()}
}

// Conform returns the conformed form of row, or a SchemaViolationError if a
// required key is missing or empty post-coercion. fileKey and idx identify
// the row for error reporting.
func (r *Reconciler) Conform(fileKey string, idx int, row trendlake.NormalizedRow) (trendlake.ConformedRow, error) {
	strs := make(map[string]*string)
	ints := make(map[string]*int64)
	bools := make(map[string]*bool)
	for col, kind := range r.schema {
		switch kind {
		case trendlake.KindString:
			strs[col] = coerceString(row[col])
		case trendlake.KindInt:
			ints[col] = coerceInt(row[col])
		case trendlake.KindBool:
			bools[col] = coerceBool(row[col])
		}
	}

	if strs["video_id"] == nil {
		return trendlake.ConformedRow{}, &trendlake.SchemaViolationError{
			FileKey: fileKey, RowIndex: idx, Column: "video_id", Reason: "missing or empty",
		}
	}
	region := strs["region"]
	if region != nil {
		lower := strings.ToLower(strings.TrimSpace(*region))
		region = &lower
	}
	if region == nil || !trendlake.ValidRegion(*region) {
		return trendlake.ConformedRow{}, &trendlake.SchemaViolationError{
			FileKey: fileKey, RowIndex: idx, Column: "region", Reason: "missing or not a known region code",
		}
	}

	return trendlake.ConformedRow{
		VideoID:             *strs["video_id"],
		TrendingDate:        strs["trending_date"],
		Title:               strs["title"],
		ChannelTitle:        strs["channel_title"],
		CategoryID:          ints["category_id"],
		PublishTime:         strs["publish_time"],
		Tags:                strs["tags"],
		Views:               ints["views"],
		Likes:               ints["likes"],
		Dislikes:            ints["dislikes"],
		CommentCount:        ints["comment_count"],
		ThumbnailLink:       strs["thumbnail_link"],
		CommentsDisabled:    bools["comments_disabled"],
		RatingsDisabled:     bools["ratings_disabled"],
		VideoErrorOrRemoved: bools["video_error_or_removed"],
		Description:         strs["description"],
		Region:              *region,
	}, nil
}

// coerceString keeps strings, renders numbers and booleans, and nulls
// everything else. Empty strings are null, never "".
func coerceString(v interface{}) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return &val
	case float64:
		var s string
		if val == float64(int64(val)) {
			s = strconv.FormatInt(int64(val), 10)
		} else {
			s = strconv.FormatFloat(val, 'f', -1, 64)
		}
		return &s
	case bool:
		s := strconv.FormatBool(val)
		return &s
	default:
		return nil
	}
}

// coerceInt accepts integral JSON numbers and numeric strings. Count columns
// are non-negative by invariant, so negative values are treated as
// unparseable garbage and nulled.
func coerceInt(v interface{}) *int64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		i := int64(val)
		if float64(i) != val || i < 0 {
			return nil
		}
		return &i
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return nil
		}
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil || i < 0 {
			return nil
		}
		return &i
	default:
		return nil
	}
}

// coerceBool accepts native booleans and the string tokens "true", "false",
// "0" and "1".
func coerceBool(v interface{}) *bool {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		return &val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1":
			b := true
			return &b
		case "false", "0":
			b := false
			return &b
		}
		return nil
	default:
		return nil
	}
}
