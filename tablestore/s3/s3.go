// SPDX-License-Identifier: MIT

// Package s3 serves reference tables from Amazon S3 (or any S3-compatible
// endpoint) through aws-sdk-go-v2.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/katalvlaran/kcomplex/tablestore"
)

// Client is the subset of *s3.Client used by Store.
type Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store implements tablestore.Source and tablestore.Sink for a bucket.
type Store struct {
	client   Client
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

var (
	_ tablestore.Source = (*Store)(nil)
	_ tablestore.Sink   = (*Store)(nil)
)

// NewStore returns a Store; prefix is prepended to every blob name.
func NewStore(client Client, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 8 * 1024 * 1024
			u.Concurrency = 4
		}),
	}
}

// Options select the endpoint of NewFromConfig.
type Options struct {
	// Region overrides the region of the default configuration chain.
	Region string
	// Endpoint points the client at an S3-compatible service; it enables
	// path-style addressing.
	Endpoint string
}

// NewFromConfig builds a Store from the default AWS configuration chain
// (environment, shared config, instance role).
func NewFromConfig(ctx context.Context, bucket, prefix string, opts Options) (*Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewStore(client, bucket, prefix), nil
}

// Open implements tablestore.Source.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := tablestore.Key(s.prefix, name)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, tablestore.ErrNotFound)
		}
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, tablestore.ErrNotFound)
		}

		return nil, err
	}

	return resp.Body, nil
}

// Put implements tablestore.Sink.
func (s *Store) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(tablestore.Key(s.prefix, name)),
		Body:        r,
		ContentType: aws.String("application/octet-stream"),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	_, err := s.uploader.Upload(ctx, in)

	return err
}
