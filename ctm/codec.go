// SPDX-License-Identifier: MIT

package ctm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/katalvlaran/kcomplex/array"
)

// Serialized layout (little-endian):
//
//	header  magic "KCTM" | version u16 | alphabet u16 | ndim u8 | flags u8 |
//	        compression u8 | reserved u8 | body length u64 | stored length u64
//	body    meta | shape count | per shape: rank, dims, entry count,
//	        (key delta uvarint, value float64) × count, keys ascending
//
// Integers inside the body are uvarints. The body is stored raw or
// compressed as announced in the header.
const (
	magic       = "KCTM"
	version     = 1
	headerSize  = 28
	flagReduced = 1 << 0
	maxBodySize = 1 << 31
)

// Encode writes the table to w using the requested compression.
func Encode(w io.Writer, t *Table, c Compression) error {
	body := encodeBody(t)
	stored, used, err := compress(body, c)
	if err != nil {
		return err
	}

	var hdr [headerSize]byte
	copy(hdr[0:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:], version)
	binary.LittleEndian.PutUint16(hdr[6:], uint16(t.alphabet))
	hdr[8] = byte(t.ndim)
	if t.reduced {
		hdr[9] |= flagReduced
	}
	hdr[10] = byte(used)
	binary.LittleEndian.PutUint64(hdr[12:], uint64(len(body)))
	binary.LittleEndian.PutUint64(hdr[20:], uint64(len(stored)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(stored)

	return err
}

// Decode reads a table written by Encode.
func Decode(r io.Reader) (*Table, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("header: %v: %w", err, ErrCorrupt)
	}
	if string(hdr[0:4]) != magic {
		return nil, fmt.Errorf("magic %q: %w", hdr[0:4], ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint16(hdr[4:]); v != version {
		return nil, fmt.Errorf("version %d: %w", v, ErrCorrupt)
	}
	alphabet := int(binary.LittleEndian.Uint16(hdr[6:]))
	ndim := int(hdr[8])
	reduced := hdr[9]&flagReduced != 0
	comp := Compression(hdr[10])
	bodyLen := binary.LittleEndian.Uint64(hdr[12:])
	storedLen := binary.LittleEndian.Uint64(hdr[20:])
	if bodyLen > maxBodySize || storedLen > maxBodySize {
		return nil, fmt.Errorf("body %d/%d bytes: %w", bodyLen, storedLen, ErrCorrupt)
	}

	// the header is untrusted: buffers grow with the bytes actually read
	stored, err := io.ReadAll(io.LimitReader(r, int64(storedLen)))
	if err != nil {
		return nil, fmt.Errorf("body: %v: %w", err, ErrCorrupt)
	}
	if uint64(len(stored)) != storedLen {
		return nil, fmt.Errorf("body %d bytes, want %d: %w", len(stored), storedLen, ErrCorrupt)
	}
	body, err := decompress(stored, comp, bodyLen)
	if err != nil {
		return nil, err
	}

	return decodeBody(body, alphabet, ndim, reduced)
}

func encodeBody(t *Table) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	putU := func(v uint64) {
		n := binary.PutUvarint(tmp[:], v)
		buf.Write(tmp[:n])
	}
	putF := func(v float64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		buf.Write(b[:])
	}

	putU(uint64(len(t.meta.Source)))
	buf.WriteString(t.meta.Source)
	putU(uint64(t.meta.States))
	putU(uint64(t.meta.MaxSteps))
	putU(t.meta.Machines)
	putU(t.meta.Halting)
	putU(t.meta.Imputed)

	putU(uint64(len(t.order)))
	for _, sh := range t.order {
		st := t.shapes[ShapeName(sh)]
		putU(uint64(len(sh)))
		for _, d := range sh {
			putU(uint64(d))
		}
		keys := sortedKeys(st.values)
		putU(uint64(len(keys)))
		var prev array.Key
		for _, k := range keys {
			putU(uint64(k - prev))
			putF(st.values[k])
			prev = k
		}
	}

	return buf.Bytes()
}

// bodyReader decodes uvarints and floats, remembering the first error.
type bodyReader struct {
	r   *bytes.Reader
	err error
}

func (br *bodyReader) u() uint64 {
	if br.err != nil {
		return 0
	}
	v, err := binary.ReadUvarint(br.r)
	if err != nil {
		br.err = fmt.Errorf("uvarint: %v: %w", err, ErrCorrupt)
	}

	return v
}

func (br *bodyReader) f() float64 {
	if br.err != nil {
		return 0
	}
	var b [8]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		br.err = fmt.Errorf("float: %v: %w", err, ErrCorrupt)

		return 0
	}

	return math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
}

func (br *bodyReader) str() string {
	n := br.u()
	if br.err != nil {
		return ""
	}
	if n > uint64(br.r.Len()) {
		br.err = fmt.Errorf("string of %d bytes: %w", n, ErrCorrupt)

		return ""
	}
	b := make([]byte, n)
	_, _ = io.ReadFull(br.r, b)

	return string(b)
}

func decodeBody(body []byte, alphabet, ndim int, reduced bool) (*Table, error) {
	br := &bodyReader{r: bytes.NewReader(body)}
	var m Meta
	m.Source = br.str()
	m.States = int(br.u())
	m.MaxSteps = int(br.u())
	m.Machines = br.u()
	m.Halting = br.u()
	m.Imputed = br.u()

	b := NewBuilder(alphabet, ndim).WithMeta(m)
	if reduced {
		b.WithReduced()
	}
	nshapes := br.u()
	for s := uint64(0); s < nshapes && br.err == nil; s++ {
		rank := br.u()
		if rank != uint64(ndim) {
			return nil, fmt.Errorf("shape rank %d in %d-D table: %w", rank, ndim, ErrCorrupt)
		}
		shape := make([]int, rank)
		for d := range shape {
			shape[d] = int(br.u())
		}
		count := br.u()
		// every entry takes at least 9 bytes
		if count > uint64(br.r.Len())/9+1 {
			return nil, fmt.Errorf("entry count %d: %w", count, ErrCorrupt)
		}
		var key array.Key
		for i := uint64(0); i < count && br.err == nil; i++ {
			key += array.Key(br.u())
			v := br.f()
			if br.err != nil {
				break
			}
			if err := b.SetKey(shape, key, v); err != nil {
				return nil, fmt.Errorf("%v: %w", err, ErrCorrupt)
			}
		}
	}
	if br.err != nil {
		return nil, br.err
	}
	if br.r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes: %w", br.r.Len(), ErrCorrupt)
	}

	return b.Build()
}
