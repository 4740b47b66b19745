// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/katalvlaran/kcomplex/config"
	"github.com/katalvlaran/kcomplex/ctm"
	"github.com/katalvlaran/kcomplex/tablestore"
	miniostore "github.com/katalvlaran/kcomplex/tablestore/minio"
	s3store "github.com/katalvlaran/kcomplex/tablestore/s3"
)

// store is a backend that can both serve and receive tables.
type store interface {
	tablestore.Source
	tablestore.Sink
}

// openStore builds the backend named by the table configuration.
func openStore(ctx context.Context, tc config.TableConfig) (store, error) {
	switch tc.Backend {
	case config.BackendLocal:
		return tablestore.NewLocal(tc.Path), nil
	case config.BackendS3:
		st, err := s3store.NewFromConfig(ctx, tc.Bucket, tc.Prefix, s3store.Options{
			Region:   tc.Region,
			Endpoint: tc.Endpoint,
		})
		if err != nil {
			return nil, err
		}

		return st, nil
	case config.BackendMinIO:
		st, err := miniostore.New(miniostore.Options{
			Endpoint:  tc.Endpoint,
			AccessKey: tc.AccessKey,
			SecretKey: tc.SecretKey,
			UseSSL:    tc.UseSSL,
			Region:    tc.Region,
		}, tc.Bucket, tc.Prefix)
		if err != nil {
			return nil, err
		}

		return st, nil
	default:
		return nil, fmt.Errorf("backend %q: %w", tc.Backend, config.ErrInvalidConfig)
	}
}

// readTableFile decodes a .kctm file.
func readTableFile(path string) (*ctm.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ctm.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

// loadTable returns the table selected by --table or by the configuration.
func loadTable(ctx context.Context, alphabet, ndim int) (*ctm.Table, error) {
	if tablePath != "" {
		logger.Debug("reading table file", zap.String("path", tablePath))

		return readTableFile(tablePath)
	}
	st, err := openStore(ctx, cfg.Table)
	if err != nil {
		return nil, err
	}
	loader := tablestore.NewLoader(st, logger)
	if cfg.Table.Name != "" {
		return loader.LoadName(ctx, cfg.Table.Name)
	}

	return loader.Load(ctx, alphabet, ndim)
}
