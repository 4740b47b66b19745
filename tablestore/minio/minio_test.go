// SPDX-License-Identifier: MIT

package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kcomplex/array"
	"github.com/katalvlaran/kcomplex/ctm"
	"github.com/katalvlaran/kcomplex/tablestore"
)

// fakeS3 answers HEAD and GET for a fixed set of objects.
func fakeS3(t *testing.T, objects map[string][]byte) *httptest.Server {
	t.Helper()
	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.Header().Set("Last-Modified", modified)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	}))
}

func TestStore_Open(t *testing.T) {
	tab, err := ctm.FromFunc(2, 1, [][]int{{3}}, func(b *array.Array) float64 { return 1 })
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, ctm.Encode(&buf, tab, ctm.CompressionNone))

	srv := fakeS3(t, map[string][]byte{"/tables/ctm/ctm-b2-d1.kctm": buf.Bytes()})
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	store, err := New(Options{Endpoint: u.Host, AccessKey: "k", SecretKey: "s", Region: "us-east-1"}, "tables", "ctm")
	require.NoError(t, err)

	rc, err := store.Open(context.Background(), tablestore.Name(2, 1))
	require.NoError(t, err)
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, buf.Bytes(), raw)

	_, err = store.Open(context.Background(), tablestore.Name(2, 2))
	require.ErrorIs(t, err, tablestore.ErrNotFound)
}

// TestStore_Integration requires a running MinIO instance on localhost:9000.
func TestStore_Integration(t *testing.T) {
	store, err := New(Options{Endpoint: "localhost:9000", AccessKey: "minioadmin", SecretKey: "minioadmin"}, "kcomplex-test", "it")
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := store.client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	exists, err := store.client.BucketExists(ctx, store.bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, store.bucket, minio.MakeBucketOptions{}))
	}

	tab, err := ctm.FromFunc(2, 2, [][]int{{2, 2}}, func(b *array.Array) float64 { return float64(b.Size()) })
	require.NoError(t, err)
	name, err := tablestore.Publish(ctx, store, tab, ctm.CompressionLZ4)
	require.NoError(t, err)

	got, err := tablestore.NewLoader(store, nil).LoadName(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, tab.Shapes(), got.Shapes())
}
