// SPDX-License-Identifier: MIT

package ctm

import "github.com/katalvlaran/kcomplex/array"

// symmetry is the group of content-preserving transforms for one block shape:
// geometric position permutations combined with the identity or the symbol
// complement v → k-1-v. CTM values are invariant under this group.
type symmetry struct {
	n        int     // block size
	alphabet int     // k
	perms    [][]int // perms[t][i] = source position of output position i
}

// newSymmetry builds the group for a 1-D or 2-D block shape.
//
// 1-D: identity, reversal.
// 2-D square: the 8 dihedral transforms. 2-D rectangle: identity, row flip,
// column flip, 180° rotation (the transforms that preserve the shape).
func newSymmetry(shape []int, alphabet int) *symmetry {
	var perms [][]int
	if len(shape) == 1 {
		n := shape[0]
		id := make([]int, n)
		rev := make([]int, n)
		for i := 0; i < n; i++ {
			id[i] = i
			rev[i] = n - 1 - i
		}
		perms = [][]int{id, rev}
	} else {
		h, w := shape[0], shape[1]
		// each transform maps output (r,c) to a source (sr,sc)
		type xf func(r, c int) (int, int)
		xfs := []xf{
			func(r, c int) (int, int) { return r, c },
			func(r, c int) (int, int) { return h - 1 - r, c },
			func(r, c int) (int, int) { return r, w - 1 - c },
			func(r, c int) (int, int) { return h - 1 - r, w - 1 - c },
		}
		if h == w {
			xfs = append(xfs,
				func(r, c int) (int, int) { return c, r },
				func(r, c int) (int, int) { return w - 1 - c, r },
				func(r, c int) (int, int) { return c, h - 1 - r },
				func(r, c int) (int, int) { return w - 1 - c, h - 1 - r },
			)
		}
		for _, f := range xfs {
			p := make([]int, h*w)
			for r := 0; r < h; r++ {
				for c := 0; c < w; c++ {
					sr, sc := f(r, c)
					p[r*w+c] = sr*w + sc
				}
			}
			perms = append(perms, p)
		}
	}

	n := 1
	for _, d := range shape {
		n *= d
	}

	return &symmetry{n: n, alphabet: alphabet, perms: perms}
}

// digits decodes a key into its row-major symbols.
func (s *symmetry) digits(key array.Key, buf []int) []int {
	k := uint64(s.alphabet)
	v := uint64(key)
	for i := s.n - 1; i >= 0; i-- {
		buf[i] = int(v % k)
		v /= k
	}

	return buf
}

// orbit returns every distinct key reachable from key, canonical (minimal) first.
func (s *symmetry) orbit(key array.Key) []array.Key {
	src := s.digits(key, make([]int, s.n))
	k := uint64(s.alphabet)
	seen := make(map[array.Key]struct{}, 2*len(s.perms))
	out := make([]array.Key, 0, 2*len(s.perms))
	for _, p := range s.perms {
		for _, complement := range [2]bool{false, true} {
			var v uint64
			for i := 0; i < s.n; i++ {
				d := src[p[i]]
				if complement {
					d = s.alphabet - 1 - d
				}
				v = v*k + uint64(d)
			}
			key := array.Key(v)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	minAt := 0
	for i, key := range out {
		if key < out[minAt] {
			minAt = i
		}
	}
	out[0], out[minAt] = out[minAt], out[0]

	return out
}

// canonical returns the minimal key of the orbit.
func (s *symmetry) canonical(key array.Key) array.Key {
	return s.orbit(key)[0]
}

// Orbit returns the symmetry class of key for blocks of the shape, the
// canonical (minimal) key first. Tables built with WithReduced store one
// value per class.
func Orbit(shape []int, alphabet int, key array.Key) ([]array.Key, error) {
	space, err := array.KeySpace(shape, alphabet)
	if err != nil {
		return nil, err
	}
	if uint64(key) >= space {
		return nil, array.ErrOutOfRange
	}

	return newSymmetry(shape, alphabet).orbit(key), nil
}
