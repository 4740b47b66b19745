// SPDX-License-Identifier: MIT

package ctm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how a serialized table body is stored.
type Compression uint8

const (
	// CompressionNone stores the body as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast decode).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses Zstandard (better ratio; the default for published tables).
	CompressionZSTD Compression = 2
)

// String returns the flag spelling used by the CLI.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression is the inverse of String.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "zstd":
		return CompressionZSTD, nil
	case "lz4":
		return CompressionLZ4, nil
	case "none":
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("ctm: unknown compression %q", s)
	}
}

// Zstd encoder/decoder pools; both are safe to reuse for EncodeAll/DecodeAll.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))

	return enc
}

func putZstdEncoder(enc *zstd.Encoder) { zstdEncoderPool.Put(enc) }

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBodySize))

	return dec
}

func putZstdDecoder(dec *zstd.Decoder) { zstdDecoderPool.Put(dec) }

// compress returns the stored form of body and the compression actually
// used. A body that does not shrink below 90% is stored uncompressed.
func compress(body []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(body) == 0 {
		return body, CompressionNone, nil
	}
	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(body)))
		n, err := lz4.CompressBlock(body, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		out = buf[:n] // n == 0 means incompressible
	case CompressionZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(body, nil)
		putZstdEncoder(enc)
	default:
		return nil, 0, fmt.Errorf("ctm: unknown compression %d", c)
	}
	if len(out) == 0 || float64(len(out)) > float64(len(body))*0.9 {
		return body, CompressionNone, nil
	}

	return out, c, nil
}

const (
	// lz4MaxRatio bounds the expansion of an LZ4 block.
	lz4MaxRatio = 256
	// zstdSizeHint caps the preallocated zstd output relative to the input.
	zstdSizeHint = 8
)

// decompress restores a body of the announced size.
func decompress(stored []byte, c Compression, size uint64) ([]byte, error) {
	switch c {
	case CompressionNone:
		if uint64(len(stored)) != size {
			return nil, fmt.Errorf("raw body %d bytes, want %d: %w", len(stored), size, ErrCorrupt)
		}

		return stored, nil
	case CompressionLZ4:
		if size > uint64(len(stored))*lz4MaxRatio {
			return nil, fmt.Errorf("lz4 body %d bytes from %d: %w", size, len(stored), ErrCorrupt)
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %v: %w", err, ErrCorrupt)
		}
		if uint64(n) != size {
			return nil, fmt.Errorf("lz4 body %d bytes, want %d: %w", n, size, ErrCorrupt)
		}

		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)
		out, err := dec.DecodeAll(stored, make([]byte, 0, min(size, uint64(len(stored))*zstdSizeHint)))
		if err != nil {
			return nil, fmt.Errorf("zstd: %v: %w", err, ErrCorrupt)
		}
		if uint64(len(out)) != size {
			return nil, fmt.Errorf("zstd body %d bytes, want %d: %w", len(out), size, ErrCorrupt)
		}

		return out, nil
	default:
		return nil, errors.Join(fmt.Errorf("compression %d", c), ErrCorrupt)
	}
}
