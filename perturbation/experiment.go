// SPDX-License-Identifier: MIT

package perturbation

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/kcomplex/array"
	"github.com/katalvlaran/kcomplex/bdm"
	"github.com/katalvlaran/kcomplex/ctm"
	"github.com/katalvlaran/kcomplex/partition"
)

// chunk is the number of elements one ImpactMap task evaluates.
const chunk = 256

// Experiment is a mutable copy of an array plus its block multiset.
type Experiment struct {
	est      *bdm.Estimator
	table    *ctm.Table
	origin   *array.Array // shape and offsets only; content is stale after Perturb
	shape    []int
	alphabet int
	data     []int

	regions []partition.Region
	keys    []array.Key // current key of each region
	covered [][]int     // element offset → indices of the regions containing it
	counter *bdm.Counter
}

// New starts an experiment on a copy of a.
//
// Errors: those of est.Count (ErrConfiguration, ErrAlphabet), and ErrLookup
// when a block of a is missing from the table.
func New(est *bdm.Estimator, a *array.Array) (*Experiment, error) {
	counter, err := est.Count(a)
	if err != nil {
		return nil, err
	}
	if _, err := est.Compute(counter); err != nil {
		return nil, err
	}
	regions, err := est.Partition().Regions(a.Shape())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bdm.ErrConfiguration, err)
	}

	e := &Experiment{
		est:      est,
		table:    est.Table(),
		origin:   a,
		shape:    a.Shape(),
		alphabet: a.Alphabet(),
		data:     a.Data(),
		regions:  regions,
		keys:     make([]array.Key, len(regions)),
		covered:  make([][]int, a.Size()),
		counter:  counter,
	}
	for i, r := range regions {
		e.keys[i] = e.keyOf(r, -1, 0)
		e.eachOffset(r, func(off int) { e.covered[off] = append(e.covered[off], i) })
	}

	return e, nil
}

// eachOffset calls fn with the flat offset of every element of r.
func (e *Experiment) eachOffset(r partition.Region, fn func(off int)) {
	if len(e.shape) == 1 {
		for i := 0; i < r.Shape[0]; i++ {
			fn(r.Origin[0] + i)
		}

		return
	}
	w := e.shape[1]
	for i := 0; i < r.Shape[0]; i++ {
		for j := 0; j < r.Shape[1]; j++ {
			fn((r.Origin[0]+i)*w + r.Origin[1] + j)
		}
	}
}

// keyOf computes the key of region r over the current data, reading symbol
// at offset at instead of the stored one (at < 0 disables the override).
func (e *Experiment) keyOf(r partition.Region, at, symbol int) array.Key {
	k := uint64(e.alphabet)
	var v uint64
	e.eachOffset(r, func(off int) {
		s := e.data[off]
		if off == at {
			s = symbol
		}
		v = v*k + uint64(s)
	})

	return array.Key(v)
}

// change is the count delta of one (shape, key).
type change struct {
	shape []int
	key   array.Key
	n     int
}

// plan computes the delta of setting data[off] to symbol and the count
// changes it implies, without mutating the experiment.
func (e *Experiment) plan(off, symbol int) (float64, []change, error) {
	if e.data[off] == symbol || len(e.covered[off]) == 0 {
		return 0, nil, nil
	}
	var changes []change
	add := func(shape []int, key array.Key, n int) {
		for i := range changes {
			if changes[i].key == key && ctm.ShapeName(changes[i].shape) == ctm.ShapeName(shape) {
				changes[i].n += n

				return
			}
		}
		changes = append(changes, change{shape: shape, key: key, n: n})
	}
	for _, ri := range e.covered[off] {
		r := e.regions[ri]
		add(r.Shape, e.keys[ri], -1)
		add(r.Shape, e.keyOf(r, off, symbol), +1)
	}

	var delta float64
	for _, c := range changes {
		if c.n == 0 {
			continue
		}
		before := e.counter.Get(c.shape, c.key)
		after := before + c.n
		v, err := e.table.LookupKey(c.shape, c.key)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %w", bdm.ErrLookup, err)
		}
		delta += contribution(v, after) - contribution(v, before)
	}

	return delta, changes, nil
}

// contribution is the BDM term of a block seen n times.
func contribution(v float64, n int) float64 {
	if n <= 0 {
		return 0
	}

	return v + math.Log2(float64(n))
}

// resolve validates idx and symbol and returns the element offset and the
// target symbol (-1 cycles to the next symbol).
func (e *Experiment) resolve(idx []int, symbol int) (int, int, error) {
	off, err := e.origin.Offset(idx)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrIndex, err)
	}
	if symbol == -1 {
		symbol = (e.data[off] + 1) % e.alphabet
	}
	if symbol < 0 || symbol >= e.alphabet {
		return 0, 0, fmt.Errorf("%w: symbol %d, alphabet %d", bdm.ErrAlphabet, symbol, e.alphabet)
	}

	return off, symbol, nil
}

// Peek returns the BDM delta of setting idx to symbol, without applying it.
func (e *Experiment) Peek(idx []int, symbol int) (float64, error) {
	off, symbol, err := e.resolve(idx, symbol)
	if err != nil {
		return 0, err
	}
	delta, _, err := e.plan(off, symbol)

	return delta, err
}

// Perturb sets the element at idx to symbol (-1: the next symbol, cyclically)
// and returns new BDM − old BDM. Elements outside every block yield 0.
//
// Errors: ErrIndex, bdm.ErrAlphabet, bdm.ErrLookup. On error nothing changes.
func (e *Experiment) Perturb(idx []int, symbol int) (float64, error) {
	off, symbol, err := e.resolve(idx, symbol)
	if err != nil {
		return 0, err
	}
	delta, changes, err := e.plan(off, symbol)
	if err != nil {
		return 0, err
	}
	e.data[off] = symbol
	for _, c := range changes {
		e.counter.Add(c.shape, c.key, c.n)
	}
	for _, ri := range e.covered[off] {
		e.keys[ri] = e.keyOf(e.regions[ri], -1, 0)
	}

	return delta, nil
}

// Value returns the BDM of the current array.
func (e *Experiment) Value() (float64, error) {
	return e.est.Compute(e.counter)
}

// Array returns a copy of the current array.
func (e *Experiment) Array() *array.Array {
	a, err := array.New(e.shape, e.data, e.alphabet)
	if err != nil {
		// data only ever holds validated symbols
		panic(err)
	}

	return a
}

// ImpactMap returns, for every element in row-major order, the BDM delta of
// changing that element alone. With more than two symbols the delta of
// smallest magnitude over the alternative symbols is reported. The
// experiment is not modified.
func (e *Experiment) ImpactMap(ctx context.Context) ([]float64, error) {
	out := make([]float64, len(e.data))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < len(e.data); lo += chunk {
		hi := min(lo+chunk, len(e.data))
		g.Go(func() error {
			for off := lo; off < hi; off++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				best := math.Inf(1)
				for s := 0; s < e.alphabet; s++ {
					if s == e.data[off] {
						continue
					}
					d, _, err := e.plan(off, s)
					if err != nil {
						return fmt.Errorf("element %v: %w", e.origin.Index(off), err)
					}
					if math.Abs(d) < math.Abs(best) {
						best = d
					}
				}
				out[off] = best
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
