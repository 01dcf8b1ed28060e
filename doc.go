// Package trendlake holds the shared vocabulary of the staged conforming
// pipeline for trending-video metadata.
//
// Raw regional exports land in an object store as heterogeneous JSON and CSV
// drops. Each arriving object is walked through a fixed sequence of stages:
//
// 1. Normalize
//
//    The normalize package flattens each document into flat rows carrying the
//    fixed target column set, whatever shape the source had. Unknown source
//    columns are dropped here, missing target columns become nulls.
//
// 2. Reconcile
//
//    The reconcile package enforces one canonical type per column. Values
//    that cannot be coerced go to null instead of sinking the row; partial
//    rows still carry analytic value. Only rows missing their join or
//    partition key are rejected.
//
// 3. Dedup
//
//    The dedup package drops rows whose (video_id, region, trending_date)
//    identity already exists, either earlier in the batch or in the
//    conformed tier as recorded by the catalog.
//
// 4. Partition and write
//
//    The partition package groups surviving rows by region, and the writer
//    package publishes each group as an immutable parquet file alongside the
//    partition's existing files, then registers the new keys in the catalog.
//
// The pipeline package sequences these per ingestion event; implementations
// of the Store and Catalog interfaces below live in the aws/s3, file, boltdb
// and fake packages.
package trendlake
