// SPDX-License-Identifier: MIT

package bdm

import (
	"sort"

	"github.com/katalvlaran/kcomplex/array"
	"github.com/katalvlaran/kcomplex/ctm"
	"github.com/katalvlaran/kcomplex/partition"
)

// Counter is a block multiset: occurrence counts per (block shape, block key).
// The zero value is not usable; call NewCounter. A Counter is not safe for
// concurrent mutation.
type Counter struct {
	groups map[string]*group
	total  int
}

type group struct {
	shape  []int
	counts map[array.Key]int
}

// NewCounter returns an empty multiset.
func NewCounter() *Counter {
	return &Counter{groups: make(map[string]*group)}
}

// Add changes the count of a block by n (which may be negative) and returns
// the new count. Counts never drop below zero; a block at zero is removed.
func (c *Counter) Add(shape []int, key array.Key, n int) int {
	name := ctm.ShapeName(shape)
	g, ok := c.groups[name]
	if !ok {
		if n <= 0 {
			return 0
		}
		g = &group{shape: append([]int(nil), shape...), counts: make(map[array.Key]int)}
		c.groups[name] = g
	}
	old := g.counts[key]
	cur := max(old+n, 0)
	c.total += cur - old
	if cur == 0 {
		delete(g.counts, key)
		if len(g.counts) == 0 {
			delete(c.groups, name)
		}

		return 0
	}
	g.counts[key] = cur

	return cur
}

// Get returns the count of a block.
func (c *Counter) Get(shape []int, key array.Key) int {
	g, ok := c.groups[ctm.ShapeName(shape)]
	if !ok {
		return 0
	}

	return g.counts[key]
}

// Total returns the number of blocks (with repetition).
func (c *Counter) Total() int { return c.total }

// Distinct returns the number of distinct blocks.
func (c *Counter) Distinct() int {
	n := 0
	for _, g := range c.groups {
		n += len(g.counts)
	}

	return n
}

// Clone returns an independent copy.
func (c *Counter) Clone() *Counter {
	out := &Counter{groups: make(map[string]*group, len(c.groups)), total: c.total}
	for name, g := range c.groups {
		cp := &group{shape: g.shape, counts: make(map[array.Key]int, len(g.counts))}
		for k, n := range g.counts {
			cp.counts[k] = n
		}
		out.groups[name] = cp
	}

	return out
}

// Each visits every distinct block in a fixed order: shapes by descending
// size then lexicographically, keys ascending. fn returning false stops.
func (c *Counter) Each(fn func(shape []int, key array.Key, n int) bool) {
	gs := make([]*group, 0, len(c.groups))
	for _, g := range c.groups {
		gs = append(gs, g)
	}
	sort.Slice(gs, func(i, j int) bool {
		si, sj := blockSize(gs[i].shape), blockSize(gs[j].shape)
		if si != sj {
			return si > sj
		}

		return partition.Less(gs[i].shape, gs[j].shape)
	})
	for _, g := range gs {
		keys := make([]array.Key, 0, len(g.counts))
		for k := range g.counts {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			if !fn(g.shape, k, g.counts[k]) {
				return
			}
		}
	}
}

func blockSize(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}
