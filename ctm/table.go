// SPDX-License-Identifier: MIT

package ctm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/katalvlaran/kcomplex/array"
)

// Meta describes where a table came from. It is informational only and is
// persisted with the table.
type Meta struct {
	// Source names the producer, e.g. "ctmgen" or "import:ctm-b2-d12.tsv".
	Source string
	// States is the number of machine states enumerated by the generator.
	States int
	// MaxSteps is the step bound after which machines were treated as non-halting.
	MaxSteps int
	// Machines is the number of machines enumerated.
	Machines uint64
	// Halting is the number of machines that halted within MaxSteps.
	Halting uint64
	// Imputed is the number of entries filled in because no machine produced them.
	Imputed uint64
}

// Entry is one stored value. For reduced tables Multiplicity is the size of
// the symmetry class the canonical Key stands for; it is 1 otherwise.
type Entry struct {
	Key          array.Key
	Value        float64
	Multiplicity uint64
}

// shapeTable holds the values of one block shape.
type shapeTable struct {
	shape  []int
	space  uint64 // k^size
	values map[array.Key]float64
	sorted []Entry // descending by Value, ties by ascending Key
	blocks uint64  // distinct blocks covered (Σ multiplicity)
	min    float64
	max    float64
	sym    *symmetry // nil for full tables
}

// Table is an immutable CTM reference table for one (alphabet, ndim).
type Table struct {
	alphabet int
	ndim     int
	reduced  bool
	shapes   map[string]*shapeTable
	order    [][]int
	meta     Meta
}

// ShapeName renders a shape as "12" or "4x4".
func ShapeName(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}

	return strings.Join(parts, "x")
}

// ParseShape is the inverse of ShapeName.
func ParseShape(s string) ([]int, error) {
	fields := strings.Split(strings.TrimSpace(s), "x")
	shape := make([]int, len(fields))
	for i, f := range fields {
		d, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("ctm: shape %q: %w", s, ErrRank)
		}
		shape[i] = d
	}
	if len(shape) != 1 && len(shape) != 2 {
		return nil, fmt.Errorf("ctm: shape %q: %w", s, ErrRank)
	}

	return shape, nil
}

// Alphabet returns the alphabet size k.
func (t *Table) Alphabet() int { return t.alphabet }

// NDim returns the block rank.
func (t *Table) NDim() int { return t.ndim }

// Reduced reports whether only canonical representatives are stored.
func (t *Table) Reduced() bool { return t.reduced }

// Meta returns the provenance record.
func (t *Table) Meta() Meta { return t.meta }

// Shapes returns the stored block shapes ordered by size, then lexicographically.
func (t *Table) Shapes() [][]int {
	out := make([][]int, len(t.order))
	for i, sh := range t.order {
		out[i] = append([]int(nil), sh...)
	}

	return out
}

// Has reports whether the table stores any value for the shape.
func (t *Table) Has(shape []int) bool {
	_, ok := t.shapes[ShapeName(shape)]

	return ok
}

// Len returns the number of stored entries for the shape (canonical entries
// for reduced tables).
func (t *Table) Len(shape []int) int {
	st, ok := t.shapes[ShapeName(shape)]
	if !ok {
		return 0
	}

	return len(st.values)
}

// Coverage returns how many distinct blocks of the shape have a value and
// how many exist (k^size).
func (t *Table) Coverage(shape []int) (covered, total uint64) {
	st, ok := t.shapes[ShapeName(shape)]
	if !ok {
		return 0, 0
	}

	return st.blocks, st.space
}

// Complete reports whether every block of the shape has a value.
func (t *Table) Complete(shape []int) bool {
	covered, total := t.Coverage(shape)

	return total > 0 && covered == total
}

// shapeOf resolves the shape table or returns ErrUnsupportedShape.
func (t *Table) shapeOf(shape []int) (*shapeTable, error) {
	if len(shape) != t.ndim {
		return nil, fmt.Errorf("shape %v for %d-D table: %w", shape, t.ndim, ErrRank)
	}
	st, ok := t.shapes[ShapeName(shape)]
	if !ok {
		return nil, fmt.Errorf("shape %v: %w", shape, ErrUnsupportedShape)
	}

	return st, nil
}

// Lookup returns the CTM value of a block.
//
// Errors:
//   - ErrAlphabetMismatch: block alphabet ≠ table alphabet.
//   - ErrRank: block rank ≠ table rank.
//   - ErrUnsupportedShape: no entries for the block shape.
//   - ErrMissingBlock: the shape exists but the block is absent.
func (t *Table) Lookup(block *array.Array) (float64, error) {
	if block.Alphabet() != t.alphabet {
		return 0, fmt.Errorf("alphabet %d for table of %d: %w", block.Alphabet(), t.alphabet, ErrAlphabetMismatch)
	}
	key, err := block.Key()
	if err != nil {
		return 0, err
	}

	return t.LookupKey(block.Shape(), key)
}

// LookupKey returns the CTM value of the block with the given shape and key.
func (t *Table) LookupKey(shape []int, key array.Key) (float64, error) {
	st, err := t.shapeOf(shape)
	if err != nil {
		return 0, err
	}
	if uint64(key) >= st.space {
		return 0, fmt.Errorf("key %d for shape %v: %w", key, shape, ErrMissingBlock)
	}
	if st.sym != nil {
		key = st.sym.canonical(key)
	}
	v, ok := st.values[key]
	if !ok {
		return 0, fmt.Errorf("key %d for shape %v: %w", key, shape, ErrMissingBlock)
	}

	return v, nil
}

// Min returns the smallest value stored for the shape.
func (t *Table) Min(shape []int) (float64, error) {
	st, err := t.shapeOf(shape)
	if err != nil {
		return 0, err
	}

	return st.min, nil
}

// Max returns the largest value stored for the shape.
func (t *Table) Max(shape []int) (float64, error) {
	st, err := t.shapeOf(shape)
	if err != nil {
		return 0, err
	}

	return st.max, nil
}

// Descending returns the entries of the shape, most complex first. The
// returned slice is shared and must not be modified.
func (t *Table) Descending(shape []int) ([]Entry, error) {
	st, err := t.shapeOf(shape)
	if err != nil {
		return nil, err
	}

	return st.sorted, nil
}

// RecommendedShape returns the default block shape for this table: the
// largest complete shape; ties prefer the squarer shape, then the
// lexicographically smaller one. Without complete shapes the largest
// stored shape is returned.
func (t *Table) RecommendedShape() ([]int, error) {
	if len(t.order) == 0 {
		return nil, ErrEmptyTable
	}
	better := func(a, b []int) bool {
		sa, sb := sizeOf(a), sizeOf(b)
		if sa != sb {
			return sa > sb
		}
		ma, mb := maxSide(a), maxSide(b)
		if ma != mb {
			return ma < mb
		}

		return lessShape(a, b)
	}
	var best, fallback []int
	for _, sh := range t.order {
		if fallback == nil || better(sh, fallback) {
			fallback = sh
		}
		if t.Complete(sh) && (best == nil || better(sh, best)) {
			best = sh
		}
	}
	if best == nil {
		best = fallback
	}

	return append([]int(nil), best...), nil
}

// Entries calls fn for every stored entry of every shape in deterministic
// order (shapes as in Shapes, keys ascending). fn returning false stops.
func (t *Table) Entries(fn func(shape []int, key array.Key, value float64) bool) {
	for _, sh := range t.order {
		st := t.shapes[ShapeName(sh)]
		keys := sortedKeys(st.values)
		for _, k := range keys {
			if !fn(sh, k, st.values[k]) {
				return
			}
		}
	}
}

// sortedKeys returns the map keys in ascending order.
func sortedKeys(m map[array.Key]float64) []array.Key {
	keys := make([]array.Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

// finalize computes the derived, read-only views of a shape table.
func (st *shapeTable) finalize() {
	st.sorted = make([]Entry, 0, len(st.values))
	st.min, st.max = math.Inf(1), math.Inf(-1)
	st.blocks = 0
	for k, v := range st.values {
		mult := uint64(1)
		if st.sym != nil {
			mult = uint64(len(st.sym.orbit(k)))
		}
		st.blocks += mult
		st.sorted = append(st.sorted, Entry{Key: k, Value: v, Multiplicity: mult})
		st.min = math.Min(st.min, v)
		st.max = math.Max(st.max, v)
	}
	sort.Slice(st.sorted, func(i, j int) bool {
		if st.sorted[i].Value != st.sorted[j].Value {
			return st.sorted[i].Value > st.sorted[j].Value
		}

		return st.sorted[i].Key < st.sorted[j].Key
	})
}

func sizeOf(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}

func maxSide(shape []int) int {
	m := 0
	for _, d := range shape {
		m = max(m, d)
	}

	return m
}

func lessShape(a, b []int) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for d := range a {
		if a[d] != b[d] {
			return a[d] < b[d]
		}
	}

	return false
}
