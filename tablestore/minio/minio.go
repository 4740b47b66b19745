// SPDX-License-Identifier: MIT

// Package minio serves reference tables from MinIO or any S3-compatible
// object store through minio-go.
package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/katalvlaran/kcomplex/tablestore"
)

// Store implements tablestore.Source and tablestore.Sink for a bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var (
	_ tablestore.Source = (*Store)(nil)
	_ tablestore.Sink   = (*Store)(nil)
)

// Options configure New.
type Options struct {
	Endpoint  string // host:port
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Region skips the bucket location lookup when set.
	Region string
}

// New connects to an endpoint with static credentials.
func New(opts Options, bucket, prefix string) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}

	return NewStore(client, bucket, prefix), nil
}

// NewStore wraps an existing client; prefix is prepended to every blob name.
func NewStore(client *minio.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

func notFound(err error) bool {
	code := minio.ToErrorResponse(err).Code

	return code == "NoSuchKey" || code == "NotFound"
}

// Open implements tablestore.Source.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := tablestore.Key(s.prefix, name)
	// Stat first: GetObject is lazy and would report a missing key on first Read.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("minio://%s/%s: %w", s.bucket, key, tablestore.ErrNotFound)
		}

		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}

	return obj, nil
}

// Put implements tablestore.Sink.
func (s *Store) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, tablestore.Key(s.prefix, name), r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})

	return err
}
