// SPDX-License-Identifier: MIT

package ctm

import (
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/kcomplex/array"
)

// Builder accumulates values and produces an immutable Table.
// A Builder is not safe for concurrent use.
type Builder struct {
	alphabet int
	ndim     int
	reduced  bool
	meta     Meta
	shapes   map[string]*shapeTable
	err      error
}

// NewBuilder starts a table for the alphabet and block rank.
// Invalid parameters are reported by Build.
func NewBuilder(alphabet, ndim int) *Builder {
	b := &Builder{alphabet: alphabet, ndim: ndim, shapes: make(map[string]*shapeTable)}
	if alphabet < 2 {
		b.err = fmt.Errorf("alphabet %d: %w", alphabet, array.ErrAlphabetSize)
	}
	if ndim != 1 && ndim != 2 {
		b.err = fmt.Errorf("ndim %d: %w", ndim, ErrRank)
	}

	return b
}

// WithReduced stores one canonical representative per symmetry class.
// It must be called before the first Set.
func (b *Builder) WithReduced() *Builder {
	if len(b.shapes) > 0 && b.err == nil {
		b.err = fmt.Errorf("WithReduced after Set: %w", ErrConflict)
	}
	b.reduced = true

	return b
}

// WithMeta attaches provenance information.
func (b *Builder) WithMeta(m Meta) *Builder {
	b.meta = m

	return b
}

// Set stores the value of a block.
func (b *Builder) Set(block *array.Array, value float64) error {
	if block.Alphabet() != b.alphabet {
		return fmt.Errorf("alphabet %d for table of %d: %w", block.Alphabet(), b.alphabet, ErrAlphabetMismatch)
	}
	key, err := block.Key()
	if err != nil {
		return err
	}

	return b.SetKey(block.Shape(), key, value)
}

// SetKey stores the value of the block with the given shape and key.
// Setting the same block (or, for reduced tables, the same symmetry class)
// twice with different values returns ErrConflict.
func (b *Builder) SetKey(shape []int, key array.Key, value float64) error {
	if b.err != nil {
		return b.err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fmt.Errorf("value %v: %w", value, ErrBadValue)
	}
	if len(shape) != b.ndim {
		return fmt.Errorf("shape %v for %d-D table: %w", shape, b.ndim, ErrRank)
	}
	name := ShapeName(shape)
	st, ok := b.shapes[name]
	if !ok {
		space, err := array.KeySpace(shape, b.alphabet)
		if err != nil {
			return fmt.Errorf("shape %v: %w", shape, err)
		}
		st = &shapeTable{
			shape:  append([]int(nil), shape...),
			space:  space,
			values: make(map[array.Key]float64),
		}
		if b.reduced {
			st.sym = newSymmetry(shape, b.alphabet)
		}
		b.shapes[name] = st
	}
	if uint64(key) >= st.space {
		return fmt.Errorf("key %d for shape %v: %w", key, shape, array.ErrOutOfRange)
	}
	if st.sym != nil {
		key = st.sym.canonical(key)
	}
	if old, dup := st.values[key]; dup && old != value {
		return fmt.Errorf("key %d for shape %v: %v vs %v: %w", key, shape, old, value, ErrConflict)
	}
	st.values[key] = value

	return nil
}

// Build freezes the accumulated values into a Table. The Builder must not
// be used afterwards.
func (b *Builder) Build() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.shapes) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table{
		alphabet: b.alphabet,
		ndim:     b.ndim,
		reduced:  b.reduced,
		shapes:   b.shapes,
		meta:     b.meta,
	}
	for _, st := range b.shapes {
		st.finalize()
		t.order = append(t.order, st.shape)
	}
	sort.Slice(t.order, func(i, j int) bool {
		si, sj := sizeOf(t.order[i]), sizeOf(t.order[j])
		if si != sj {
			return si < sj
		}

		return lessShape(t.order[i], t.order[j])
	})
	b.shapes = nil

	return t, nil
}

// FromFunc builds a full table by evaluating fn on every block of each shape.
// It is meant for small shapes (tests, synthetic tables, imputation checks);
// the number of calls is Σ k^size.
func FromFunc(alphabet, ndim int, shapes [][]int, fn func(block *array.Array) float64) (*Table, error) {
	b := NewBuilder(alphabet, ndim)
	for _, sh := range shapes {
		space, err := array.KeySpace(sh, alphabet)
		if err != nil {
			return nil, err
		}
		for k := uint64(0); k < space; k++ {
			blk, err := array.FromKey(sh, array.Key(k), alphabet)
			if err != nil {
				return nil, err
			}
			if err := b.SetKey(sh, array.Key(k), fn(blk)); err != nil {
				return nil, err
			}
		}
	}

	return b.Build()
}
