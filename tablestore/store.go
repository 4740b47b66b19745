// SPDX-License-Identifier: MIT

package tablestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/katalvlaran/kcomplex/ctm"
)

// ErrNotFound indicates a missing table blob. Backends wrap it so that
// errors.Is(err, ErrNotFound) holds.
var ErrNotFound = errors.New("tablestore: table not found")

// Source opens table blobs for reading.
type Source interface {
	// Open returns the blob content. The caller closes the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Sink stores table blobs.
type Sink interface {
	// Put writes size bytes from r under name, replacing any previous blob.
	Put(ctx context.Context, name string, r io.Reader, size int64) error
}

// Name returns the canonical blob name for an (alphabet, ndim) table.
func Name(alphabet, ndim int) string {
	return fmt.Sprintf("ctm-b%d-d%d.kctm", alphabet, ndim)
}

// Key joins a backend prefix and a blob name into an object key.
func Key(prefix, name string) string {
	if prefix == "" {
		return name
	}

	return path.Join(prefix, name)
}

// Publish encodes t and writes it to sink under Name(t.Alphabet(), t.NDim()).
func Publish(ctx context.Context, sink Sink, t *ctm.Table, c ctm.Compression) (string, error) {
	var buf bytes.Buffer
	if err := ctm.Encode(&buf, t, c); err != nil {
		return "", fmt.Errorf("tablestore: encode: %w", err)
	}
	name := Name(t.Alphabet(), t.NDim())
	if err := sink.Put(ctx, name, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return "", fmt.Errorf("tablestore: put %s: %w", name, err)
	}

	return name, nil
}
