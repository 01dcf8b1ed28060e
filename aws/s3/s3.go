// Package s3 implements the trendlake.Store interface over an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/trendlake/trendlake"
)

// StoreOption is a functional option type for s3.Store.
type StoreOption func(s *Store)

// OptRegion sets the AWS region for a Store.
func OptRegion(region string) StoreOption {
	return func(s *Store) {
		s.region = region
	}
}

// Store reads landing objects from and writes conformed files to one S3
// bucket.
type Store struct {
	bucket string
	region string

	s3   *s3.S3
	sess *session.Session
}

// NewStore gets a Store for the named bucket with the options applied.
func NewStore(bucket string, opts ...StoreOption) (*Store, error) {
	s := &Store{
		bucket: bucket,
		region: "us-east-1",
	}
	for _, opt := range opts {
		opt(s)
	}
	var err error
	s.sess, err = session.NewSession(&aws.Config{
		Region: aws.String(s.region)},
	)
	if err != nil {
		return nil, &trendlake.TransientStorageError{Op: "session", Key: bucket, Err: err}
	}
	s.s3 = s3.New(s.sess)
	return s, nil
}

// List implements trendlake.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.s3.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, *obj.Key)
		}
		return true
	})
	if err != nil {
		return nil, &trendlake.TransientStorageError{Op: "list", Key: prefix, Err: err}
	}
	return keys, nil
}

// Get implements trendlake.Store.
func (s *Store) Get(ctx context.Context, key string) (trendlake.NamedReadCloser, error) {
	result, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &trendlake.TransientStorageError{Op: "get", Key: key, Err: err}
	}
	return &objReader{name: key, body: result.Body}, nil
}

// Put implements trendlake.Store. S3 object puts are atomic, so a single
// PutObject is the publish step; no staging copy is needed.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return &trendlake.TransientStorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

type objReader struct {
	name string
	body io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	return o.body.Close()
}

func (o *objReader) Name() string {
	return o.name
}
