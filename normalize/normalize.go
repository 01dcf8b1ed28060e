// Package normalize turns raw landing-tier documents into flat rows with the
// fixed target column set. It understands two document shapes: JSON (objects
// nested under a container key, or a bare object/array) and delimited text
// with a header row. Anything else is malformed input.
package normalize

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"

	"github.com/trendlake/trendlake"
)

// DefaultContainerKey is the JSON key under which source exports nest their
// records.
const DefaultContainerKey = "items"

// Normalizer produces NormalizedRows from raw documents. The zero value is
// not usable; get one from NewNormalizer.
type Normalizer struct {
	// ContainerKey is the top-level JSON key holding the record array.
	ContainerKey string
	// DefaultRegion fills the region column for records that lack it,
	// typically derived from the landing key's region= path element.
	DefaultRegion string

	targets map[string]struct{}
}

// NewNormalizer gets a Normalizer for the canonical column set.
func NewNormalizer() *Normalizer {
	targets := make(map[string]struct{}, len(trendlake.Columns))
	for _, col := range trendlake.Columns {
		targets[col] = struct{}{}
	}
	return &Normalizer{
		ContainerKey: DefaultContainerKey,
		targets:      targets,
	}
}

// Normalize reads one raw document and returns one NormalizedRow per embedded
// record. A document that parses as neither JSON nor headered delimited text
// returns a MalformedInputError carrying the document's key. Read failures
// are wrapped as transient storage errors so the caller can retry.
func (n *Normalizer) Normalize(r trendlake.NamedReadCloser) ([]trendlake.NormalizedRow, error) {
	defer r.Close()
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, &trendlake.TransientStorageError{Op: "read", Key: r.Name(), Err: err}
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, &trendlake.MalformedInputError{FileKey: r.Name(), Err: errors.New("empty document")}
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return n.normalizeJSON(r.Name(), trimmed)
	}
	return n.normalizeDelimited(r.Name(), trimmed)
}

func (n *Normalizer) normalizeJSON(key string, data []byte) ([]trendlake.NormalizedRow, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &trendlake.MalformedInputError{FileKey: key, Err: errors.Wrap(err, "decoding json")}
	}

	var recs []interface{}
	switch v := doc.(type) {
	case map[string]interface{}:
		if embedded, ok := v[n.ContainerKey].([]interface{}); ok {
			recs = embedded
		} else {
			recs = []interface{}{v}
		}
	case []interface{}:
		recs = v
	default:
		return nil, &trendlake.MalformedInputError{FileKey: key, Err: errors.Errorf("top-level json value is %T, want object or array", doc)}
	}

	rows := make([]trendlake.NormalizedRow, 0, len(recs))
	for i, reci := range recs {
		rec, ok := reci.(map[string]interface{})
		if !ok {
			return nil, &trendlake.MalformedInputError{FileKey: key, Err: errors.Errorf("record %d is %T, want object", i, reci)}
		}
		flat := make(map[string]interface{})
		flatten("", rec, flat)
		rows = append(rows, n.align(flat))
	}
	return rows, nil
}

// flatten collapses nested objects into dotted keys, e.g.
// {"statistics": {"views": 5}} becomes {"statistics.views": 5}. Arrays are
// left as-is; they have no column representation and are dropped at
// alignment.
func flatten(prefix string, rec map[string]interface{}, out map[string]interface{}) {
	for k, v := range rec {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flatten(name, nested, out)
			continue
		}
		out[name] = v
	}
}

// align projects a flat record onto the target column set. Exact name matches
// win; a dotted key whose last segment names a target column fills it only if
// nothing matched exactly. Unmatched source keys are dropped, unmatched
// targets stay null.
func (n *Normalizer) align(flat map[string]interface{}) trendlake.NormalizedRow {
	row := make(trendlake.NormalizedRow, len(trendlake.Columns))
	for _, col := range trendlake.Columns {
		row[col] = nil
	}
	for k, v := range flat {
		if _, ok := n.targets[k]; ok {
			row[k] = v
		}
	}
	for k, v := range flat {
		if _, ok := n.targets[k]; ok {
			continue
		}
		i := strings.LastIndex(k, ".")
		if i < 0 {
			continue
		}
		leaf := k[i+1:]
		if _, ok := n.targets[leaf]; ok && row[leaf] == nil {
			row[leaf] = v
		}
	}
	if row["region"] == nil && n.DefaultRegion != "" {
		row["region"] = n.DefaultRegion
	}
	return row
}

func (n *Normalizer) normalizeDelimited(key string, data []byte) ([]trendlake.NormalizedRow, error) {
	rdr := csv.NewReader(bytes.NewReader(data))
	rdr.FieldsPerRecord = -1
	rdr.LazyQuotes = true

	header, err := rdr.Read()
	if err != nil {
		return nil, &trendlake.MalformedInputError{FileKey: key, Err: errors.Wrap(err, "reading header")}
	}
	if err := n.validateHeader(header); err != nil {
		return nil, &trendlake.MalformedInputError{FileKey: key, Err: err}
	}

	var rows []trendlake.NormalizedRow
	for {
		cells, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &trendlake.MalformedInputError{FileKey: key, Err: errors.Wrap(err, "reading row")}
		}
		flat := make(map[string]interface{}, len(header))
		for i, h := range header {
			if i >= len(cells) {
				break
			}
			if cells[i] == "" {
				continue
			}
			flat[h] = cells[i]
		}
		rows = append(rows, n.align(flat))
	}
	return rows, nil
}

// validateHeader rejects headers with empty or duplicated names, and headers
// sharing no names with the canonical column set. The latter is how a binary
// or free-text document that happens to split on commas gets caught.
func (n *Normalizer) validateHeader(header []string) error {
	fields := make(map[string]int, len(header))
	known := 0
	for i, h := range header {
		if h == "" {
			return errors.Errorf("header contains empty name at %d: %v", i, header)
		}
		if pos, exists := fields[h]; exists {
			return errors.Errorf("%s appears at both %d and %d in header", h, pos, i)
		}
		fields[h] = i
		if _, ok := n.targets[h]; ok {
			known++
		}
	}
	if known == 0 {
		return errors.Errorf("header shares no names with the canonical column set: %v", header)
	}
	return nil
}
