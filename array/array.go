// SPDX-License-Identifier: MIT

// Package array - row-major storage & validated accessors.
//
// Purpose:
//   - Keep a flat buffer with the explicit offset formula Σ idx[d]*stride[d].
//   - Validate rank, shape and alphabet once, at construction.
//   - Return errors at the public surface instead of panicking.

package array

import (
	"fmt"
	"strings"
)

// ---------- error context tags ----------

const (
	ctxNew      = "New"
	ctxNew2D    = "New2D"
	ctxAt       = "At"
	ctxWindow   = "Window"
	ctxWith     = "With"
	ctxConstant = "Constant"
)

// arrayErrorf wraps a sentinel with the method tag and the offending coordinates.
func arrayErrorf(method string, idx []int, err error) error {
	return fmt.Errorf("Array.%s(%v): %w", method, idx, err)
}

// Array is an immutable rank-1 or rank-2 array of symbols in [0, alphabet).
//   - shape holds the dimensions; len(shape) is the rank.
//   - strides are row-major: the last axis is contiguous.
//   - data has len == product(shape).
type Array struct {
	shape    []int
	strides  []int
	alphabet int
	data     []int
}

// Compile-time assertion for fmt.Stringer conformance.
var _ fmt.Stringer = (*Array)(nil)

// New builds an Array from a shape and a row-major data buffer.
//
// Implementation:
//   - Stage 1: validate alphabet, rank and dimensions.
//   - Stage 2: check len(data) against the shape product.
//   - Stage 3: deep-copy data while checking every symbol.
//
// Errors: ErrAlphabetSize, ErrRank, ErrBadShape, ErrSymbol (wrapped with the
// first offending index).
//
// Complexity: O(N) time and memory.
func New(shape []int, data []int, alphabet int) (*Array, error) {
	if err := checkHeader(shape, alphabet); err != nil {
		return nil, fmt.Errorf("Array.%s: %w", ctxNew, err)
	}
	if len(data) != product(shape) {
		return nil, fmt.Errorf("Array.%s: data length %d for shape %v: %w", ctxNew, len(data), shape, ErrBadShape)
	}

	a := alloc(shape, alphabet)
	for off, v := range data {
		if v < 0 || v >= alphabet {
			return nil, arrayErrorf(ctxNew, a.Index(off), ErrSymbol)
		}
		a.data[off] = v
	}

	return a, nil
}

// New1D builds a rank-1 Array from a sequence.
func New1D(values []int, alphabet int) (*Array, error) {
	return New([]int{len(values)}, values, alphabet)
}

// New2D builds a rank-2 Array from a rectangular slice of rows.
// The input is deep-copied. Returns ErrBadShape for an empty grid and
// ErrNonRectangular if any row length differs from the first.
func New2D(rows [][]int, alphabet int) (*Array, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("Array.%s: %w", ctxNew2D, ErrBadShape)
	}
	h, w := len(rows), len(rows[0])
	flat := make([]int, 0, h*w)
	for _, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("Array.%s: %w", ctxNew2D, ErrNonRectangular)
		}
		flat = append(flat, row...)
	}

	return New([]int{h, w}, flat, alphabet)
}

// Constant returns an array of the given shape filled with one symbol.
// It is the least complex configuration of that shape.
func Constant(shape []int, symbol, alphabet int) (*Array, error) {
	if err := checkHeader(shape, alphabet); err != nil {
		return nil, fmt.Errorf("Array.%s: %w", ctxConstant, err)
	}
	if symbol < 0 || symbol >= alphabet {
		return nil, fmt.Errorf("Array.%s(%d): %w", ctxConstant, symbol, ErrSymbol)
	}
	a := alloc(shape, alphabet)
	if symbol != 0 {
		for i := range a.data {
			a.data[i] = symbol
		}
	}

	return a, nil
}

// checkHeader validates alphabet, rank and dimensions.
func checkHeader(shape []int, alphabet int) error {
	if alphabet < 2 {
		return ErrAlphabetSize
	}
	if len(shape) != 1 && len(shape) != 2 {
		return ErrRank
	}
	for _, d := range shape {
		if d <= 0 {
			return ErrBadShape
		}
	}

	return nil
}

// alloc allocates a zero-filled array with row-major strides. Shape is copied.
func alloc(shape []int, alphabet int) *Array {
	sh := append([]int(nil), shape...)
	strides := make([]int, len(sh))
	step := 1
	for d := len(sh) - 1; d >= 0; d-- {
		strides[d] = step
		step *= sh[d]
	}

	return &Array{
		shape:    sh,
		strides:  strides,
		alphabet: alphabet,
		data:     make([]int, step),
	}
}

// product returns the number of elements of a shape.
func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}

// NDim returns the rank. Complexity: O(1).
func (a *Array) NDim() int { return len(a.shape) }

// Shape returns a copy of the dimensions.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Size returns the number of elements.
func (a *Array) Size() int { return len(a.data) }

// Alphabet returns the alphabet size k; symbols lie in [0, k).
func (a *Array) Alphabet() int { return a.alphabet }

// Data returns a copy of the row-major buffer.
func (a *Array) Data() []int { return append([]int(nil), a.data...) }

// Offset maps a multi-index to the flat row-major offset.
// Returns ErrOutOfRange for a wrong index length or an out-of-bounds coordinate.
func (a *Array) Offset(idx []int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, ErrOutOfRange
	}
	off := 0
	for d, i := range idx {
		if i < 0 || i >= a.shape[d] {
			return 0, ErrOutOfRange
		}
		off += i * a.strides[d]
	}

	return off, nil
}

// Index maps a flat offset back to a multi-index. The offset must be valid.
func (a *Array) Index(off int) []int {
	idx := make([]int, len(a.shape))
	for d := range a.shape {
		idx[d] = off / a.strides[d]
		off %= a.strides[d]
	}

	return idx
}

// At returns the symbol at the given multi-index.
func (a *Array) At(idx ...int) (int, error) {
	off, err := a.Offset(idx)
	if err != nil {
		return 0, arrayErrorf(ctxAt, idx, err)
	}

	return a.data[off], nil
}

// With returns a copy of the array with one element replaced.
// The receiver is left untouched.
func (a *Array) With(idx []int, symbol int) (*Array, error) {
	off, err := a.Offset(idx)
	if err != nil {
		return nil, arrayErrorf(ctxWith, idx, err)
	}
	if symbol < 0 || symbol >= a.alphabet {
		return nil, arrayErrorf(ctxWith, idx, ErrSymbol)
	}
	b := alloc(a.shape, a.alphabet)
	copy(b.data, a.data)
	b.data[off] = symbol

	return b, nil
}

// checkWindow verifies that [origin, origin+shape) lies inside the array.
func (a *Array) checkWindow(origin, shape []int) error {
	if len(origin) != len(a.shape) || len(shape) != len(a.shape) {
		return ErrRank
	}
	for d := range a.shape {
		if shape[d] <= 0 {
			return ErrBadShape
		}
		if origin[d] < 0 || origin[d]+shape[d] > a.shape[d] {
			return ErrOutOfRange
		}
	}

	return nil
}

// Window copies the sub-array [origin, origin+shape) into a new Array.
func (a *Array) Window(origin, shape []int) (*Array, error) {
	if err := a.checkWindow(origin, shape); err != nil {
		return nil, arrayErrorf(ctxWindow, origin, err)
	}
	w := alloc(shape, a.alphabet)
	if len(shape) == 1 {
		copy(w.data, a.data[origin[0]:origin[0]+shape[0]])

		return w, nil
	}
	for r := 0; r < shape[0]; r++ {
		src := (origin[0]+r)*a.strides[0] + origin[1]
		copy(w.data[r*shape[1]:(r+1)*shape[1]], a.data[src:src+shape[1]])
	}

	return w, nil
}

// Rows returns the content as rows. A rank-1 array yields a single row.
func (a *Array) Rows() [][]int {
	if len(a.shape) == 1 {
		return [][]int{a.Data()}
	}
	out := make([][]int, a.shape[0])
	for r := range out {
		out[r] = append([]int(nil), a.data[r*a.strides[0]:(r+1)*a.strides[0]]...)
	}

	return out
}

// Equal reports whether both arrays have the same alphabet, shape and content.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.alphabet != b.alphabet || len(a.shape) != len(b.shape) || len(a.data) != len(b.data) {
		return false
	}
	for d := range a.shape {
		if a.shape[d] != b.shape[d] {
			return false
		}
	}
	for i := range a.data {
		if a.data[i] != b.data[i] {
			return false
		}
	}

	return true
}

// String renders rows as bracketed, space-separated symbols, e.g. "[0 1]\n[1 0]".
func (a *Array) String() string {
	var sb strings.Builder
	for r, row := range a.Rows() {
		if r > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(fmt.Sprint(row))
	}

	return sb.String()
}
