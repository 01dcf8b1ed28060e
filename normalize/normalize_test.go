package normalize

import (
	"bytes"
	"testing"

	"github.com/trendlake/trendlake"
)

type stringReader struct {
	name string
	*bytes.Reader
}

func (r *stringReader) Name() string { return r.name }

func (r *stringReader) Close() error { return nil }

func doc(t *testing.T, name, contents string) trendlake.NamedReadCloser {
	t.Helper()
	return &stringReader{name: name, Reader: bytes.NewReader([]byte(contents))}
}

func TestNormalizeCSV(t *testing.T) {
	n := NewNormalizer()
	rows, err := n.Normalize(doc(t, "us.csv", `video_id,trending_date,title,views,likes,junk_column
abc123,2017-11-14,"Some, quoted title",1234,,dropme
def456,2017-11-15,plain,99,3,x`))
	if err != nil {
		t.Fatalf("normalizing: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, row := range rows {
		if len(row) != len(trendlake.Columns) {
			t.Fatalf("row has %d columns, want %d: %v", len(row), len(trendlake.Columns), row)
		}
		if _, ok := row["junk_column"]; ok {
			t.Fatal("unmatched source column survived alignment")
		}
	}
	if got := rows[0]["title"]; got != "Some, quoted title" {
		t.Fatalf("quoted title mangled: %v", got)
	}
	if rows[0]["likes"] != nil {
		t.Fatalf("empty cell should be null, got %v", rows[0]["likes"])
	}
	if rows[0]["description"] != nil {
		t.Fatalf("absent target column should be null, got %v", rows[0]["description"])
	}
	if got := rows[1]["views"]; got != "99" {
		t.Fatalf("views = %v, want \"99\"", got)
	}
}

func TestNormalizeJSONContainer(t *testing.T) {
	n := NewNormalizer()
	rows, err := n.Normalize(doc(t, "us.json", `{"items": [
		{"video_id": "abc", "statistics": {"views": 100}, "region": "us"},
		{"video_id": "def", "views": 5, "region": "us"}
	]}`))
	if err != nil {
		t.Fatalf("normalizing: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if got := rows[0]["views"]; got != float64(100) {
		t.Fatalf("nested statistics.views not aligned: %v", got)
	}
	if got := rows[1]["views"]; got != float64(5) {
		t.Fatalf("views = %v, want 5", got)
	}
}

func TestNormalizeJSONShapes(t *testing.T) {
	n := NewNormalizer()
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare object", `{"video_id": "abc"}`, 1},
		{"bare array", `[{"video_id": "a"}, {"video_id": "b"}]`, 2},
		{"empty container", `{"items": []}`, 0},
	}
	for _, test := range tests {
		rows, err := n.Normalize(doc(t, test.name, test.body))
		if err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if len(rows) != test.want {
			t.Fatalf("%s: got %d rows, want %d", test.name, len(rows), test.want)
		}
	}
}

func TestNormalizeExactNameBeatsDotted(t *testing.T) {
	n := NewNormalizer()
	rows, err := n.Normalize(doc(t, "x.json", `{"views": 1, "statistics": {"views": 2}, "video_id": "abc"}`))
	if err != nil {
		t.Fatalf("normalizing: %v", err)
	}
	if got := rows[0]["views"]; got != float64(1) {
		t.Fatalf("dotted key overrode exact match: %v", got)
	}
}

func TestNormalizeDefaultRegion(t *testing.T) {
	n := NewNormalizer()
	n.DefaultRegion = "us"
	rows, err := n.Normalize(doc(t, "us.csv", "video_id,views\nabc,5"))
	if err != nil {
		t.Fatalf("normalizing: %v", err)
	}
	if got := rows[0]["region"]; got != "us" {
		t.Fatalf("region = %v, want us", got)
	}

	// a region present in the document wins over the fallback
	rows, err = n.Normalize(doc(t, "us.csv", "video_id,region\nabc,gb"))
	if err != nil {
		t.Fatalf("normalizing: %v", err)
	}
	if got := rows[0]["region"]; got != "gb" {
		t.Fatalf("region = %v, want gb", got)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	n := NewNormalizer()
	tests := []struct {
		name string
		body string
	}{
		{"json garbage", `{"items": [`},
		{"json scalar", `42`},
		{"json scalar record", `{"items": [17]}`},
		{"no known columns", "foo,bar,baz\n1,2,3"},
		{"empty header name", "video_id,,views\na,b,c"},
		{"duplicate header", "video_id,views,views\na,1,2"},
		{"empty", "   \n"},
	}
	for _, test := range tests {
		_, err := n.Normalize(doc(t, test.name, test.body))
		if err == nil {
			t.Fatalf("%s: expected error", test.name)
		}
		var malformed *trendlake.MalformedInputError
		if !asMalformed(err, &malformed) {
			t.Fatalf("%s: got %T (%v), want MalformedInputError", test.name, err, err)
		}
		if malformed.FileKey != test.name {
			t.Fatalf("%s: error carries key %q", test.name, malformed.FileKey)
		}
	}
}

func asMalformed(err error, target **trendlake.MalformedInputError) bool {
	m, ok := err.(*trendlake.MalformedInputError)
	if ok {
		*target = m
	}
	return ok
}
