// SPDX-License-Identifier: MIT

package partition

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/kcomplex/array"
)

// Names accepted by ByName.
const (
	NameIgnore     = "ignore"
	NameStrict     = "strict"
	NameRecursive  = "recursive"
	NameCorrelated = "correlated"
)

// DefaultMinSize is the smallest side Recursive will tile a remainder with.
const DefaultMinSize = 2

// Region is one block of a decomposition: the window [Origin, Origin+Shape).
type Region struct {
	Origin []int
	Shape  []int
}

// ShapeCount is one group of a census: Count regions share Shape.
type ShapeCount struct {
	Shape []int
	Count int
}

// Partition maps an array shape to its block regions.
// Implementations are immutable and safe for concurrent use.
type Partition interface {
	// Name returns the strategy name (see NameIgnore, ...).
	Name() string
	// Shape returns a copy of the nominal block shape.
	Shape() []int
	// Regions returns the regions for an array of the given shape, in a
	// deterministic order.
	Regions(shape []int) ([]Region, error)
}

// base holds the validated block shape shared by all strategies.
type base struct {
	block []int
}

func newBase(shape []int) (base, error) {
	if len(shape) != 1 && len(shape) != 2 {
		return base{}, fmt.Errorf("block %v: %w", shape, ErrBlockShape)
	}
	for _, d := range shape {
		if d <= 0 {
			return base{}, fmt.Errorf("block %v: %w", shape, ErrBlockShape)
		}
	}

	return base{block: append([]int(nil), shape...)}, nil
}

func (b base) Shape() []int { return append([]int(nil), b.block...) }

// checkRank validates the array shape against the block rank.
func (b base) checkRank(shape []int) error {
	if len(shape) != len(b.block) {
		return fmt.Errorf("array %v, block %v: %w", shape, b.block, ErrShapeRank)
	}
	for _, d := range shape {
		if d <= 0 {
			return fmt.Errorf("array %v: %w", shape, ErrBlockShape)
		}
	}

	return nil
}

// tile emits the full blocks of size block inside [origin, origin+extent),
// stepping by step, in row-major order of their origin. Partial tiles are
// passed to partial (may be nil) with their clipped shape.
func tile(origin, extent, block, step []int, emit func(Region), partial func(Region)) {
	if len(extent) == 1 {
		for i := 0; i < extent[0]; i += step[0] {
			if i+block[0] <= extent[0] {
				emit(Region{Origin: []int{origin[0] + i}, Shape: []int{block[0]}})
			} else if partial != nil {
				partial(Region{Origin: []int{origin[0] + i}, Shape: []int{extent[0] - i}})
			}
		}

		return
	}
	for i := 0; i < extent[0]; i += step[0] {
		for j := 0; j < extent[1]; j += step[1] {
			fullRows := i+block[0] <= extent[0]
			fullCols := j+block[1] <= extent[1]
			o := []int{origin[0] + i, origin[1] + j}
			if fullRows && fullCols {
				emit(Region{Origin: o, Shape: []int{block[0], block[1]}})
				continue
			}
			if partial != nil {
				partial(Region{Origin: o, Shape: []int{min(block[0], extent[0]-i), min(block[1], extent[1]-j)}})
			}
		}
	}
}

// Ignore tiles without overlap and drops trailing partial blocks.
type Ignore struct{ base }

// NewIgnore returns the default boundary policy for the block shape.
func NewIgnore(shape ...int) (*Ignore, error) {
	b, err := newBase(shape)
	if err != nil {
		return nil, err
	}

	return &Ignore{b}, nil
}

// Name implements Partition.
func (p *Ignore) Name() string { return NameIgnore }

// Regions implements Partition.
func (p *Ignore) Regions(shape []int) ([]Region, error) {
	if err := p.checkRank(shape); err != nil {
		return nil, err
	}
	var out []Region
	tile(make([]int, len(shape)), shape, p.block, p.block, func(r Region) { out = append(out, r) }, nil)

	return out, nil
}

// Strict tiles without overlap and rejects shapes that leave a remainder.
type Strict struct{ base }

// NewStrict returns the raising boundary policy for the block shape.
func NewStrict(shape ...int) (*Strict, error) {
	b, err := newBase(shape)
	if err != nil {
		return nil, err
	}

	return &Strict{b}, nil
}

// Name implements Partition.
func (p *Strict) Name() string { return NameStrict }

// Regions implements Partition.
func (p *Strict) Regions(shape []int) ([]Region, error) {
	if err := p.checkRank(shape); err != nil {
		return nil, err
	}
	for d := range shape {
		if shape[d]%p.block[d] != 0 {
			return nil, fmt.Errorf("array %v, block %v: %w", shape, p.block, ErrIndivisible)
		}
	}
	var out []Region
	tile(make([]int, len(shape)), shape, p.block, p.block, func(r Region) { out = append(out, r) }, nil)

	return out, nil
}

// Recursive tiles without overlap and re-tiles partial boundary tiles with
// smaller cubic blocks down to MinSize.
type Recursive struct {
	base
	minSize int
}

// NewRecursive returns a recursive partition. minSize ≤ 0 selects DefaultMinSize.
func NewRecursive(minSize int, shape ...int) (*Recursive, error) {
	b, err := newBase(shape)
	if err != nil {
		return nil, err
	}
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	for _, d := range shape {
		if minSize > d {
			return nil, fmt.Errorf("min size %d > block side %d: %w", minSize, d, ErrBadParam)
		}
	}

	return &Recursive{base: b, minSize: minSize}, nil
}

// Name implements Partition.
func (p *Recursive) Name() string { return NameRecursive }

// MinSize returns the smallest block side used for remainders.
func (p *Recursive) MinSize() int { return p.minSize }

// Regions implements Partition.
func (p *Recursive) Regions(shape []int) ([]Region, error) {
	if err := p.checkRank(shape); err != nil {
		return nil, err
	}
	var out []Region
	emit := func(r Region) { out = append(out, r) }
	var partial func(Region)
	partial = func(r Region) {
		side := r.Shape[0]
		for _, d := range r.Shape {
			side = min(side, d)
		}
		if side < p.minSize {
			return
		}
		cube := make([]int, len(r.Shape))
		for d := range cube {
			cube[d] = side
		}
		tile(r.Origin, r.Shape, cube, cube, emit, partial)
	}
	tile(make([]int, len(shape)), shape, p.block, p.block, emit, partial)

	return out, nil
}

// Correlated slides the block over the array with a fixed shift.
type Correlated struct {
	base
	shift int
}

// NewCorrelated returns a sliding-window partition. Shift must lie in
// [1, smallest block side]; shift equal to the block side degenerates to Ignore.
func NewCorrelated(shift int, shape ...int) (*Correlated, error) {
	b, err := newBase(shape)
	if err != nil {
		return nil, err
	}
	for _, d := range shape {
		if shift < 1 || shift > d {
			return nil, fmt.Errorf("shift %d for block %v: %w", shift, shape, ErrBadParam)
		}
	}

	return &Correlated{base: b, shift: shift}, nil
}

// Name implements Partition.
func (p *Correlated) Name() string { return NameCorrelated }

// Shift returns the window step.
func (p *Correlated) Shift() int { return p.shift }

// Regions implements Partition.
func (p *Correlated) Regions(shape []int) ([]Region, error) {
	if err := p.checkRank(shape); err != nil {
		return nil, err
	}
	step := make([]int, len(shape))
	for d := range step {
		step[d] = p.shift
	}
	var out []Region
	tile(make([]int, len(shape)), shape, p.block, step, func(r Region) { out = append(out, r) }, nil)

	return out, nil
}

// ByName builds a partition from its name. param is the Shift for
// "correlated" and the MinSize for "recursive"; it is ignored otherwise.
func ByName(name string, param int, shape ...int) (Partition, error) {
	switch name {
	case "", NameIgnore:
		return NewIgnore(shape...)
	case NameStrict:
		return NewStrict(shape...)
	case NameRecursive:
		return NewRecursive(param, shape...)
	case NameCorrelated:
		if param == 0 {
			param = 1
		}

		return NewCorrelated(param, shape...)
	default:
		return nil, fmt.Errorf("partition %q: %w", name, ErrBadParam)
	}
}

// Decompose streams the regions of a concretely shaped array.
// yield returning false stops the iteration early.
func Decompose(p Partition, a *array.Array, yield func(Region) bool) error {
	regions, err := p.Regions(a.Shape())
	if err != nil {
		return err
	}
	for _, r := range regions {
		if !yield(r) {
			return nil
		}
	}

	return nil
}

// Census counts the regions of each distinct block shape for an array of
// the given shape. Groups are ordered by descending block size, then
// lexicographically by shape.
func Census(p Partition, shape []int) ([]ShapeCount, error) {
	regions, err := p.Regions(shape)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int)
	var out []ShapeCount
	for _, r := range regions {
		k := fmt.Sprint(r.Shape)
		if i, ok := idx[k]; ok {
			out[i].Count++
			continue
		}
		idx[k] = len(out)
		out = append(out, ShapeCount{Shape: r.Shape, Count: 1})
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := size(out[i].Shape), size(out[j].Shape)
		if si != sj {
			return si > sj
		}

		return Less(out[i].Shape, out[j].Shape)
	})

	return out, nil
}

// Less orders shapes lexicographically (shorter rank first).
func Less(a, b []int) bool {
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

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}
