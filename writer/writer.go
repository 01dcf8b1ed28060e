// Package writer persists partition groups as immutable parquet files in the
// conformed tier and registers their Dedup Keys in the catalog.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/trendlake/trendlake"
	"github.com/trendlake/trendlake/dedup"
	"github.com/trendlake/trendlake/partition"
)

// DefaultPrefix is the conformed-tier key prefix under the dataset name.
const DefaultPrefix = "conformed"

// row is the parquet shape of a ConformedRow. Pointer fields are optional
// columns.
type row struct {
	VideoID             string  `parquet:"name=video_id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	TrendingDate        *string `parquet:"name=trending_date, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Title               *string `parquet:"name=title, type=UTF8"`
	ChannelTitle        *string `parquet:"name=channel_title, type=UTF8, encoding=PLAIN_DICTIONARY"`
	CategoryID          *int64  `parquet:"name=category_id, type=INT64"`
	PublishTime         *string `parquet:"name=publish_time, type=UTF8"`
	Tags                *string `parquet:"name=tags, type=UTF8"`
	Views               *int64  `parquet:"name=views, type=INT64"`
	Likes               *int64  `parquet:"name=likes, type=INT64"`
	Dislikes            *int64  `parquet:"name=dislikes, type=INT64"`
	CommentCount        *int64  `parquet:"name=comment_count, type=INT64"`
	ThumbnailLink       *string `parquet:"name=thumbnail_link, type=UTF8"`
	CommentsDisabled    *bool   `parquet:"name=comments_disabled, type=BOOLEAN"`
	RatingsDisabled     *bool   `parquet:"name=ratings_disabled, type=BOOLEAN"`
	VideoErrorOrRemoved *bool   `parquet:"name=video_error_or_removed, type=BOOLEAN"`
	Description         *string `parquet:"name=description, type=UTF8"`
	Region              string  `parquet:"name=region, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

func toParquet(r trendlake.ConformedRow) row {
	return row{
		VideoID:             r.VideoID,
		TrendingDate:        r.TrendingDate,
		Title:               r.Title,
		ChannelTitle:        r.ChannelTitle,
		CategoryID:          r.CategoryID,
		PublishTime:         r.PublishTime,
		Tags:                r.Tags,
		Views:               r.Views,
		Likes:               r.Likes,
		Dislikes:            r.Dislikes,
		CommentCount:        r.CommentCount,
		ThumbnailLink:       r.ThumbnailLink,
		CommentsDisabled:    r.CommentsDisabled,
		RatingsDisabled:     r.RatingsDisabled,
		VideoErrorOrRemoved: r.VideoErrorOrRemoved,
		Description:         r.Description,
		Region:              r.Region,
	}
}

// Writer flushes partition groups to the conformed tier. Write mode is
// append-within-partition: each flush adds one new file alongside whatever
// the partition already holds, existing files are never touched.
type Writer struct {
	store   trendlake.Store
	catalog trendlake.Catalog

	// Dataset is the top-level key prefix for both tiers.
	Dataset string
	// Prefix is the conformed-tier prefix under Dataset.
	Prefix string
}

// NewWriter gets a Writer flushing to store and registering keys in catalog.
func NewWriter(store trendlake.Store, catalog trendlake.Catalog, dataset string) *Writer {
	return &Writer{
		store:   store,
		catalog: catalog,
		Dataset: dataset,
		Prefix:  DefaultPrefix,
	}
}

// WriteGroup persists one partition group and returns the object key it was
// published under. The file is assembled off to the side and published with a
// single store put, so a crash mid-assembly leaves nothing visible to
// downstream readers. eventID keys the file name, making concurrent events'
// staging paths disjoint; if empty, a fresh one is generated.
func (w *Writer) WriteGroup(ctx context.Context, eventID string, g partition.Group) (string, error) {
	if eventID == "" {
		eventID = uuid.New().String()
	}
	data, err := encode(g.Rows)
	if err != nil {
		return "", errors.Wrap(err, "encoding partition group")
	}

	key := path.Join(w.Dataset, w.Prefix, g.Partition.Key(), fmt.Sprintf("part-%s.parquet", eventID))
	if err := w.store.Put(ctx, key, data); err != nil {
		return "", errors.Wrapf(err, "publishing %s", key)
	}

	keys := make([]trendlake.DedupKey, 0, len(g.Rows))
	for _, r := range g.Rows {
		keys = append(keys, r.Key())
	}
	if err := w.catalog.AddKeys(ctx, dedup.CatalogPartition(g.Partition.Region), keys); err != nil {
		return key, errors.Wrapf(err, "registering keys for %s", g.Partition.Key())
	}
	return key, nil
}

func encode(rows []trendlake.ConformedRow) ([]byte, error) {
	bf := newBufferFile()
	pw, err := pqwriter.NewParquetWriter(bf, new(row), 1)
	if err != nil {
		return nil, errors.Wrap(err, "creating parquet writer")
	}
	pw.RowGroupSize = 8 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range rows {
		if err := pw.Write(toParquet(r)); err != nil {
			return nil, errors.Wrap(err, "writing row")
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, errors.Wrap(err, "finalizing parquet file")
	}
	return bf.Bytes(), nil
}

// bufferFile adapts a bytes.Buffer to source.ParquetFile. The write path is
// strictly sequential, so Seek is a stub.
type bufferFile struct {
	buf *bytes.Buffer
}

func newBufferFile() *bufferFile {
	return &bufferFile{buf: &bytes.Buffer{}}
}

func (f *bufferFile) Write(p []byte) (int, error) { return f.buf.Write(p) }

func (f *bufferFile) Read(p []byte) (int, error) { return f.buf.Read(p) }

func (f *bufferFile) Seek(offset int64, whence int) (int64, error) { return 0, nil }

func (f *bufferFile) Close() error { return nil }

func (f *bufferFile) Open(name string) (source.ParquetFile, error) { return f, nil }

func (f *bufferFile) Create(name string) (source.ParquetFile, error) { return f, nil }

func (f *bufferFile) Bytes() []byte { return f.buf.Bytes() }
