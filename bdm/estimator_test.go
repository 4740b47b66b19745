// SPDX-License-Identifier: MIT
package bdm_test

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/katalvlaran/kcomplex/array"
	"github.com/katalvlaran/kcomplex/bdm"
	"github.com/katalvlaran/kcomplex/ctm"
	"github.com/katalvlaran/kcomplex/partition"
)

const eps = 1e-9

// transitions is a synthetic CTM value: 2 + number of neighbouring cells with
// different symbols. Constant blocks are the simplest; the value is invariant
// under reversal, rotations and complement.
func transitions(b *array.Array) float64 {
	rows := b.Rows()
	n := 0
	for r := range rows {
		for c := range rows[r] {
			if c+1 < len(rows[r]) && rows[r][c] != rows[r][c+1] {
				n++
			}
			if r+1 < len(rows) && rows[r][c] != rows[r+1][c] {
				n++
			}
		}
	}

	return 2 + float64(n)
}

func table2D(t testing.TB) *ctm.Table {
	t.Helper()
	tab, err := ctm.FromFunc(2, 2, [][]int{{2, 2}, {3, 3}, {4, 4}}, transitions)
	require.NoError(t, err)

	return tab
}

func table1D(t testing.TB) *ctm.Table {
	t.Helper()
	tab, err := ctm.FromFunc(2, 1, [][]int{{2}, {4}, {8}}, transitions)
	require.NoError(t, err)

	return tab
}

func alternating(t testing.TB, est *bdm.Estimator, n int) *array.Array {
	t.Helper()
	rows := make([][]int, n)
	for i := range rows {
		rows[i] = make([]int, n)
		for j := range rows[i] {
			rows[i][j] = (i + j) % 2
		}
	}
	x, err := est.InputRows(rows)
	require.NoError(t, err)

	return x
}

// TestNew_Defaults checks default shape selection and configuration errors.
func TestNew_Defaults(t *testing.T) {
	tab := table2D(t)

	est, err := bdm.New(tab)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, est.Shape())
	assert.Equal(t, partition.NameIgnore, est.Partition().Name())
	assert.Same(t, tab, est.Table())

	_, err = bdm.New(nil)
	require.ErrorIs(t, err, bdm.ErrConfiguration)

	_, err = bdm.New(tab, bdm.WithShape(5, 5))
	require.ErrorIs(t, err, bdm.ErrConfiguration)
	require.ErrorIs(t, err, ctm.ErrUnsupportedShape)

	_, err = bdm.New(tab, bdm.WithShape(4))
	require.ErrorIs(t, err, bdm.ErrConfiguration)

	_, err = bdm.New(tab, bdm.WithShape(0, 4))
	require.ErrorIs(t, err, bdm.ErrConfiguration)
	require.ErrorIs(t, err, partition.ErrBlockShape)

	require.Panics(t, func() { bdm.WithWorkers(0) })
	require.Panics(t, func() { bdm.WithBoundary(bdm.Boundary(42)) })
}

// TestBDM_SingleBlock: [[0,1],[1,0]] with a (2,2) block is exactly one table value.
func TestBDM_SingleBlock(t *testing.T) {
	tab := table2D(t)
	est, err := bdm.New(tab, bdm.WithShape(2, 2))
	require.NoError(t, err)

	x, err := est.InputRows([][]int{{0, 1}, {1, 0}})
	require.NoError(t, err)
	got, err := est.BDM(x)
	require.NoError(t, err)

	want, err := tab.Lookup(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 6.0, got)
}

// TestBDM_RepeatedBlock: k copies of one block give CTM(block) + log2(k).
func TestBDM_RepeatedBlock(t *testing.T) {
	tab := table1D(t)
	est, err := bdm.New(tab, bdm.WithShape(4))
	require.NoError(t, err)

	block := []int{0, 1, 1, 0}
	ctmValue := transitions(mustArray(t, block))
	for _, k := range []int{1, 2, 3, 7, 16} {
		data := make([]int, 0, 4*k)
		for i := 0; i < k; i++ {
			data = append(data, block...)
		}
		x, err := est.Input([]int{len(data)}, data)
		require.NoError(t, err)
		got, err := est.BDM(x)
		require.NoError(t, err)
		assert.InDelta(t, ctmValue+math.Log2(float64(k)), got, eps, "k=%d", k)
	}
}

func mustArray(t testing.TB, data []int) *array.Array {
	t.Helper()
	a, err := array.New1D(data, 2)
	require.NoError(t, err)

	return a
}

// TestBDM_Deterministic repeats the same estimate.
func TestBDM_Deterministic(t *testing.T) {
	est, err := bdm.New(table2D(t), bdm.WithShape(3, 3), bdm.WithBoundary(bdm.BoundaryRecursive))
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(7, 11))
	data := make([]int, 13*11)
	for i := range data {
		data[i] = rng.IntN(2)
	}
	x, err := est.Input([]int{13, 11}, data)
	require.NoError(t, err)

	first, err := est.BDM(x)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := est.BDM(x)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

// TestBDM_Errors covers every error kind of BDM.
func TestBDM_Errors(t *testing.T) {
	tab := table2D(t)
	est, err := bdm.New(tab, bdm.WithShape(4, 4))
	require.NoError(t, err)

	// symbol outside the alphabet is never clamped
	_, err = est.InputRows([][]int{{0, 1}, {2, 0}})
	require.ErrorIs(t, err, bdm.ErrAlphabet)
	require.ErrorIs(t, err, array.ErrSymbol)

	// array over a different alphabet
	x3, err := array.New2D([][]int{{0, 1, 2, 0}, {0, 1, 2, 0}, {0, 1, 2, 0}, {0, 1, 2, 0}}, 3)
	require.NoError(t, err)
	_, err = est.BDM(x3)
	require.ErrorIs(t, err, bdm.ErrAlphabet)

	// rank mismatch
	x1, err := array.New1D([]int{0, 1, 0, 1}, 2)
	require.NoError(t, err)
	_, err = est.BDM(x1)
	require.ErrorIs(t, err, bdm.ErrConfiguration)
	_, err = est.BDM(nil)
	require.ErrorIs(t, err, bdm.ErrConfiguration)

	// too small for a single block
	small, err := est.InputRows([][]int{{0, 1}, {1, 0}})
	require.NoError(t, err)
	_, err = est.BDM(small)
	require.ErrorIs(t, err, bdm.ErrConfiguration)

	// strict boundary on a non-divisible shape
	strict, err := bdm.New(tab, bdm.WithShape(4, 4), bdm.WithBoundary(bdm.BoundaryStrict))
	require.NoError(t, err)
	_, err = strict.BDM(alternating(t, strict, 6))
	require.ErrorIs(t, err, bdm.ErrConfiguration)
	require.ErrorIs(t, err, partition.ErrIndivisible)

	// missing block in a partial table
	b := ctm.NewBuilder(2, 2)
	require.NoError(t, b.Set(mustBlock2D(t, [][]int{{0, 0}, {0, 0}}), 1))
	partial, err := b.Build()
	require.NoError(t, err)
	pe, err := bdm.New(partial)
	require.NoError(t, err)
	xp, err := pe.InputRows([][]int{{0, 1}, {1, 0}})
	require.NoError(t, err)
	_, err = pe.BDM(xp)
	require.ErrorIs(t, err, bdm.ErrLookup)
	require.ErrorIs(t, err, ctm.ErrMissingBlock)

	// recursive remainder shape absent from the table
	rec, err := bdm.New(table1D(t), bdm.WithShape(8), bdm.WithBoundary(bdm.BoundaryRecursive))
	require.NoError(t, err)
	xr, err := rec.Input([]int{11}, []int{0, 1, 0, 1, 0, 1, 0, 1, 1, 1, 0})
	require.NoError(t, err)
	_, err = rec.BDM(xr)
	require.ErrorIs(t, err, bdm.ErrLookup)
	require.ErrorIs(t, err, ctm.ErrUnsupportedShape)
}

func mustBlock2D(t testing.TB, rows [][]int) *array.Array {
	t.Helper()
	a, err := array.New2D(rows, 2)
	require.NoError(t, err)

	return a
}

// TestScenario_AlternatingMatrix is the 6×6 alternating matrix with the
// default (4,4) block: the single full tile at (0,0) is kept, rows and
// columns 4-5 are dropped.
func TestScenario_AlternatingMatrix(t *testing.T) {
	tab := table2D(t)
	est, err := bdm.New(tab)
	require.NoError(t, err)
	x := alternating(t, est, 6)

	blocks, err := est.Decompose(x)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, []int{4, 4}, blocks[0].Shape())

	raw, err := est.BDM(x)
	require.NoError(t, err)
	want, err := tab.Lookup(blocks[0])
	require.NoError(t, err)
	assert.Equal(t, want, raw)
	assert.Equal(t, 2.0+24, raw) // every one of the 24 neighbour pairs differs

	norm, err := est.NBDMDetail(x)
	require.NoError(t, err)
	assert.Equal(t, raw, norm.Raw)
	assert.Equal(t, 2.0, norm.Min)
	assert.Equal(t, 26.0, norm.Max)
	assert.InDelta(t, 1.0, norm.Value, eps)
}

// TestNBDM_Constant: constant arrays normalize to 0.
func TestNBDM_Constant(t *testing.T) {
	for _, tc := range []struct {
		name  string
		tab   *ctm.Table
		shape []int
		opts  []bdm.Option
	}{
		{"2d-4x4", table2D(t), []int{12, 9}, nil},
		{"2d-3x3-recursive", table2D(t), []int{7, 7}, []bdm.Option{bdm.WithShape(3, 3), bdm.WithBoundary(bdm.BoundaryRecursive)}},
		{"1d-8", table1D(t), []int{40}, nil},
		{"1d-4-strict", table1D(t), []int{16}, []bdm.Option{bdm.WithShape(4), bdm.WithBoundary(bdm.BoundaryStrict)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			est, err := bdm.New(tc.tab, tc.opts...)
			require.NoError(t, err)
			for s := 0; s < 2; s++ {
				x, err := array.Constant(tc.shape, s, 2)
				require.NoError(t, err)
				v, err := est.NBDM(x)
				require.NoError(t, err)
				assert.InDelta(t, 0, v, eps)
			}
		})
	}
}

// TestNBDM_Range: random arrays stay inside [0, 1] ± ε.
func TestNBDM_Range(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tab2, tab1 := table2D(t), table1D(t)
	ests := []*bdm.Estimator{}
	for _, opts := range [][]bdm.Option{
		nil,
		{bdm.WithShape(2, 2)},
		{bdm.WithShape(3, 3), bdm.WithBoundary(bdm.BoundaryRecursive)},
	} {
		est, err := bdm.New(tab2, opts...)
		require.NoError(t, err)
		ests = append(ests, est)
	}
	corr, err := partition.NewCorrelated(1, 2, 2)
	require.NoError(t, err)
	est, err := bdm.New(tab2, bdm.WithPartition(corr))
	require.NoError(t, err)
	ests = append(ests, est)

	for _, est := range ests {
		for trial := 0; trial < 25; trial++ {
			h, w := 4+rng.IntN(9), 4+rng.IntN(9)
			data := make([]int, h*w)
			for i := range data {
				data[i] = rng.IntN(2)
			}
			x, err := est.Input([]int{h, w}, data)
			require.NoError(t, err)
			v, err := est.NBDM(x)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, -eps)
			assert.LessOrEqual(t, v, 1+eps)
		}
	}

	est1, err := bdm.New(tab1)
	require.NoError(t, err)
	for trial := 0; trial < 25; trial++ {
		n := 8 + rng.IntN(64)
		data := make([]int, n)
		for i := range data {
			data[i] = rng.IntN(2)
		}
		x, err := est1.Input([]int{n}, data)
		require.NoError(t, err)
		v, err := est1.NBDM(x)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, -eps)
		assert.LessOrEqual(t, v, 1+eps)
	}
}

// TestNBDM_MaxCycling checks the upper bound when blocks outnumber the
// distinct blocks of their shape.
func TestNBDM_MaxCycling(t *testing.T) {
	// 2-symbol blocks of length 2: values 00→2, 01→3, 10→3, 11→2
	tab := table1DShape(t, 2)
	est, err := bdm.New(tab, bdm.WithShape(2))
	require.NoError(t, err)

	// 5 blocks over 4 distinct: counts 2,1,1,1 assigned most complex first
	b, err := est.Bounds([]int{10})
	require.NoError(t, err)
	assert.InDelta(t, 3+3+2+2+1, b.Max, eps) // Σ CTM + log2(2)
	assert.InDelta(t, 2+math.Log2(5), b.Min, eps)
}

func table1DShape(t testing.TB, n int) *ctm.Table {
	t.Helper()
	tab, err := ctm.FromFunc(2, 1, [][]int{{n}}, transitions)
	require.NoError(t, err)

	return tab
}

// TestNBDM_Degenerate covers ErrNormalization.
func TestNBDM_Degenerate(t *testing.T) {
	b := ctm.NewBuilder(2, 1)
	for k := 0; k < 16; k++ {
		require.NoError(t, b.SetKey([]int{4}, array.Key(k), 5))
	}
	flat, err := b.Build()
	require.NoError(t, err)
	est, err := bdm.New(flat)
	require.NoError(t, err)

	x, err := est.Input([]int{4}, []int{0, 1, 1, 0})
	require.NoError(t, err)
	raw, err := est.BDM(x)
	require.NoError(t, err)
	assert.Equal(t, 5.0, raw)
	_, err = est.NBDM(x)
	require.ErrorIs(t, err, bdm.ErrNormalization)

	// an array smaller than one block has no bounds at all
	est1, err := bdm.New(table1D(t))
	require.NoError(t, err)
	tiny, err := est1.Input([]int{3}, []int{0, 1, 0})
	require.NoError(t, err)
	_, err = est1.NBDM(tiny)
	require.ErrorIs(t, err, bdm.ErrNormalization)
}

// TestEntropy checks block entropy and its normalization.
func TestEntropy(t *testing.T) {
	est, err := bdm.New(table1D(t), bdm.WithShape(2))
	require.NoError(t, err)

	x, err := est.Input([]int{8}, []int{0, 0, 0, 1, 1, 0, 1, 1})
	require.NoError(t, err)
	h, err := est.Entropy(x)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, h, eps) // four distinct blocks, once each
	nh, err := est.NEntropy(x)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, nh, eps)

	// more blocks than the 2^2 possible ones: the block space caps the maximum
	long, err := est.Input([]int{16}, []int{0, 0, 0, 1, 1, 0, 1, 1, 1, 1, 1, 0, 0, 1, 0, 0})
	require.NoError(t, err)
	nh, err = est.NEntropy(long)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, nh, eps)

	z, err := array.Constant([]int{8}, 0, 2)
	require.NoError(t, err)
	h, err = est.Entropy(z)
	require.NoError(t, err)
	assert.Equal(t, 0.0, h)

	one, err := est.Input([]int{2}, []int{0, 1})
	require.NoError(t, err)
	_, err = est.NEntropy(one)
	require.ErrorIs(t, err, bdm.ErrNormalization)
}

// TestCounter covers the multiset operations used by Compute.
func TestCounter(t *testing.T) {
	c := bdm.NewCounter()
	assert.Equal(t, 2, c.Add([]int{2, 2}, 5, 2))
	assert.Equal(t, 1, c.Add([]int{3, 3}, 1, 1))
	assert.Equal(t, 1, c.Add([]int{2, 2}, 0, 1))
	assert.Equal(t, 4, c.Total())
	assert.Equal(t, 3, c.Distinct())

	cp := c.Clone()
	assert.Equal(t, 0, c.Add([]int{2, 2}, 5, -5))
	assert.Equal(t, 2, c.Total())
	assert.Equal(t, 0, c.Get([]int{2, 2}, 5))
	assert.Equal(t, 2, cp.Get([]int{2, 2}, 5))
	assert.Equal(t, 0, c.Add([]int{1}, 0, -1))

	var order []array.Key
	cp.Each(func(shape []int, key array.Key, n int) bool {
		order = append(order, key)
		return true
	})
	assert.Equal(t, []array.Key{1, 0, 5}, order) // 3x3 first, then keys ascending
}

// TestBatch checks alignment with single calls, error propagation and leaks.
func TestBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	est, err := bdm.New(table2D(t), bdm.WithShape(2, 2), bdm.WithWorkers(3))
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(3, 4))
	arrays := make([]*array.Array, 17)
	for i := range arrays {
		data := make([]int, 36)
		for j := range data {
			data[j] = rng.IntN(2)
		}
		arrays[i], err = est.Input([]int{6, 6}, data)
		require.NoError(t, err)
	}

	raw, err := est.BatchBDM(context.Background(), arrays)
	require.NoError(t, err)
	norm, err := est.BatchNBDM(context.Background(), arrays)
	require.NoError(t, err)
	for i, a := range arrays {
		want, err := est.BDM(a)
		require.NoError(t, err)
		assert.Equal(t, want, raw[i])
		wantN, err := est.NBDM(a)
		require.NoError(t, err)
		assert.Equal(t, wantN, norm[i])
	}

	bad := append([]*array.Array(nil), arrays...)
	bad[5] = nil
	_, err = est.BatchBDM(context.Background(), bad)
	require.ErrorIs(t, err, bdm.ErrConfiguration)
	assert.Contains(t, err.Error(), "array 5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = est.BatchBDM(ctx, arrays)
	require.ErrorIs(t, err, context.Canceled)
}
