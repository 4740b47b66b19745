// SPDX-License-Identifier: MIT

package array

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// Key identifies block content: the base-k integer of the symbols in
// row-major order, most significant symbol first.
type Key uint64

// rowSep separates rows in the textual block form ("01-10").
const rowSep = "-"

// KeySpace returns k^size, the number of distinct blocks of the shape.
// Returns ErrKeyOverflow when the count does not fit a uint64.
func KeySpace(shape []int, alphabet int) (uint64, error) {
	if err := checkHeader(shape, alphabet); err != nil {
		return 0, err
	}
	n := uint64(1)
	for i := 0; i < product(shape); i++ {
		hi, lo := bits.Mul64(n, uint64(alphabet))
		if hi != 0 {
			return 0, ErrKeyOverflow
		}
		n = lo
	}

	return n, nil
}

// Key returns the key of the whole array.
func (a *Array) Key() (Key, error) {
	return a.WindowKey(make([]int, len(a.shape)), a.shape)
}

// WindowKey returns the key of [origin, origin+shape) without copying.
//
// Errors: ErrRank, ErrBadShape, ErrOutOfRange for a bad window;
// ErrKeyOverflow when the block is too large for a 64-bit key.
//
// Complexity: O(block size), no allocation.
func (a *Array) WindowKey(origin, shape []int) (Key, error) {
	if err := a.checkWindow(origin, shape); err != nil {
		return 0, arrayErrorf(ctxWindow, origin, err)
	}
	if _, err := KeySpace(shape, a.alphabet); err != nil {
		return 0, err
	}
	k := uint64(a.alphabet)
	var key uint64
	if len(shape) == 1 {
		for _, v := range a.data[origin[0] : origin[0]+shape[0]] {
			key = key*k + uint64(v)
		}

		return Key(key), nil
	}
	for r := 0; r < shape[0]; r++ {
		base := (origin[0]+r)*a.strides[0] + origin[1]
		for _, v := range a.data[base : base+shape[1]] {
			key = key*k + uint64(v)
		}
	}

	return Key(key), nil
}

// FromKey decodes a key back into an array of the given shape.
// Returns ErrOutOfRange when key ≥ k^size.
func FromKey(shape []int, key Key, alphabet int) (*Array, error) {
	space, err := KeySpace(shape, alphabet)
	if err != nil {
		return nil, err
	}
	if uint64(key) >= space {
		return nil, fmt.Errorf("array.FromKey(%d): %w", key, ErrOutOfRange)
	}
	a := alloc(shape, alphabet)
	k := uint64(alphabet)
	v := uint64(key)
	for i := len(a.data) - 1; i >= 0; i-- {
		a.data[i] = int(v % k)
		v /= k
	}

	return a, nil
}

// FormatBlock renders a block compactly: digits for 1-D ("0101"), rows
// joined by "-" for 2-D ("01-10"). Alphabets above 10 use letters a..z.
func FormatBlock(a *Array) string {
	var sb strings.Builder
	for r, row := range a.Rows() {
		if r > 0 {
			sb.WriteString(rowSep)
		}
		for _, v := range row {
			sb.WriteByte(symbolChar(v))
		}
	}

	return sb.String()
}

// ParseBlock is the inverse of FormatBlock. ndim selects how "-" is read:
// rank 1 rejects it, rank 2 requires equal-length rows.
func ParseBlock(s string, ndim, alphabet int) (*Array, error) {
	rows := strings.Split(strings.TrimSpace(s), rowSep)
	if ndim == 1 && len(rows) != 1 {
		return nil, fmt.Errorf("array.ParseBlock(%q): %w", s, ErrRank)
	}
	if ndim != 1 && ndim != 2 {
		return nil, fmt.Errorf("array.ParseBlock(%q): %w", s, ErrRank)
	}
	grid := make([][]int, len(rows))
	for r, row := range rows {
		grid[r] = make([]int, len(row))
		for c := 0; c < len(row); c++ {
			v, ok := charSymbol(row[c])
			if !ok {
				return nil, fmt.Errorf("array.ParseBlock(%q): %w", s, ErrSyntax)
			}
			grid[r][c] = v
		}
	}
	if ndim == 1 {
		return New1D(grid[0], alphabet)
	}

	return New2D(grid, alphabet)
}

// symbolChar maps 0..35 to '0'..'9','a'..'z'.
func symbolChar(v int) byte {
	if v < 10 {
		return byte('0' + v)
	}
	if v < 36 {
		return byte('a' + v - 10)
	}

	return '?'
}

// charSymbol is the inverse of symbolChar.
func charSymbol(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10, true
	default:
		return 0, false
	}
}

// Log2Space returns log2(k^size) without overflow; it is the number of bits
// needed to index every block of the shape.
func Log2Space(shape []int, alphabet int) float64 {
	return float64(product(shape)) * math.Log2(float64(alphabet))
}
