// SPDX-License-Identifier: MIT
// Package ctm_test contains unit tests for table construction, lookups,
// symmetry reduction and serialization.
package ctm_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"runtime"
	"strings"
	"testing"

	"github.com/katalvlaran/kcomplex/array"
	"github.com/katalvlaran/kcomplex/ctm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ones counts the 1-symbols of a block; used as a synthetic, symmetric value
// (invariant under reversal and rotations, and under complement after folding).
func ones(b *array.Array) float64 {
	n := 0
	for _, v := range b.Data() {
		n += v
	}

	return float64(n)
}

// folded is ones folded under complement: min(#1, #0) + 1. Symmetric under
// every transform of the reduction group.
func folded(b *array.Array) float64 {
	n := int(ones(b))

	return float64(min(n, b.Size()-n)) + 1
}

func mustBlock(t *testing.T, s string, ndim int) *array.Array {
	t.Helper()
	b, err := array.ParseBlock(s, ndim, 2)
	require.NoError(t, err)

	return b
}

// TestLookup_Errors checks every lookup failure mode.
func TestLookup_Errors(t *testing.T) {
	tab, err := ctm.FromFunc(2, 1, [][]int{{4}}, ones)
	require.NoError(t, err)

	v, err := tab.Lookup(mustBlock(t, "0111", 1))
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = tab.Lookup(mustBlock(t, "011", 1))
	require.ErrorIs(t, err, ctm.ErrUnsupportedShape)

	blk3, err := array.New1D([]int{0, 1, 2, 0}, 3)
	require.NoError(t, err)
	_, err = tab.Lookup(blk3)
	require.ErrorIs(t, err, ctm.ErrAlphabetMismatch)

	_, err = tab.LookupKey([]int{2, 2}, 0)
	require.ErrorIs(t, err, ctm.ErrRank)

	// a partial table: only the constant blocks
	b := ctm.NewBuilder(2, 1)
	require.NoError(t, b.Set(mustBlock(t, "0000", 1), 1))
	require.NoError(t, b.Set(mustBlock(t, "1111", 1), 1))
	partial, err := b.Build()
	require.NoError(t, err)
	_, err = partial.Lookup(mustBlock(t, "0101", 1))
	require.ErrorIs(t, err, ctm.ErrMissingBlock)
	assert.False(t, partial.Complete([]int{4}))
}

// TestBuilder_Validation covers bad values, conflicts and empty tables.
func TestBuilder_Validation(t *testing.T) {
	b := ctm.NewBuilder(2, 1)
	require.ErrorIs(t, b.SetKey([]int{4}, 0, math.NaN()), ctm.ErrBadValue)
	require.ErrorIs(t, b.SetKey([]int{4}, 0, -1), ctm.ErrBadValue)
	require.ErrorIs(t, b.SetKey([]int{2, 2}, 0, 1), ctm.ErrRank)
	require.ErrorIs(t, b.SetKey([]int{4}, 16, 1), array.ErrOutOfRange)
	require.NoError(t, b.SetKey([]int{4}, 3, 1))
	require.NoError(t, b.SetKey([]int{4}, 3, 1)) // same value again is fine
	require.ErrorIs(t, b.SetKey([]int{4}, 3, 2), ctm.ErrConflict)

	_, err := ctm.NewBuilder(2, 2).Build()
	require.ErrorIs(t, err, ctm.ErrEmptyTable)

	_, err = ctm.NewBuilder(1, 1).Build()
	require.ErrorIs(t, err, array.ErrAlphabetSize)

	_, err = ctm.NewBuilder(2, 3).Build()
	require.ErrorIs(t, err, ctm.ErrRank)
}

// TestShapesAndRecommended checks ordering, coverage and the default shape.
func TestShapesAndRecommended(t *testing.T) {
	tab, err := ctm.FromFunc(2, 2, [][]int{{3, 3}, {2, 2}, {2, 3}}, ones)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2, 2}, {2, 3}, {3, 3}}, tab.Shapes())

	sh, err := tab.RecommendedShape()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3}, sh)

	covered, total := tab.Coverage([]int{3, 3})
	assert.Equal(t, uint64(512), covered)
	assert.Equal(t, uint64(512), total)

	// add an incomplete 4×4 shape: the recommendation stays on the complete 3×3
	b := ctm.NewBuilder(2, 2)
	tab.Entries(func(shape []int, key array.Key, value float64) bool {
		require.NoError(t, b.SetKey(shape, key, value))
		return true
	})
	require.NoError(t, b.SetKey([]int{4, 4}, 0, 2))
	mixed, err := b.Build()
	require.NoError(t, err)
	sh, err = mixed.RecommendedShape()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3}, sh)

	// only incomplete shapes: fall back to the largest
	b = ctm.NewBuilder(2, 1)
	require.NoError(t, b.SetKey([]int{12}, 0, 2))
	require.NoError(t, b.SetKey([]int{8}, 0, 2))
	sparse, err := b.Build()
	require.NoError(t, err)
	sh, err = sparse.RecommendedShape()
	require.NoError(t, err)
	assert.Equal(t, []int{12}, sh)
}

// TestMinMaxDescending checks the sorted view used for normalization.
func TestMinMaxDescending(t *testing.T) {
	tab, err := ctm.FromFunc(2, 1, [][]int{{3}}, ones)
	require.NoError(t, err)

	lo, err := tab.Min([]int{3})
	require.NoError(t, err)
	hi, err := tab.Max([]int{3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 3.0, hi)

	desc, err := tab.Descending([]int{3})
	require.NoError(t, err)
	require.Len(t, desc, 8)
	assert.Equal(t, array.Key(7), desc[0].Key) // 111
	assert.Equal(t, array.Key(3), desc[1].Key) // 011: ties by ascending key
	assert.Equal(t, array.Key(0), desc[7].Key)
	for _, e := range desc {
		assert.Equal(t, uint64(1), e.Multiplicity)
	}
}

// TestReduced_MatchesFull ensures reduced tables answer like full ones.
func TestReduced_MatchesFull(t *testing.T) {
	for _, tc := range []struct {
		ndim   int
		shapes [][]int
	}{
		{1, [][]int{{5}, {6}}},
		{2, [][]int{{3, 3}, {2, 3}}},
	} {
		full, err := ctm.FromFunc(2, tc.ndim, tc.shapes, folded)
		require.NoError(t, err)

		rb := ctm.NewBuilder(2, tc.ndim).WithReduced()
		full.Entries(func(shape []int, key array.Key, value float64) bool {
			require.NoError(t, rb.SetKey(shape, key, value))
			return true
		})
		reduced, err := rb.Build()
		require.NoError(t, err)
		require.True(t, reduced.Reduced())

		for _, sh := range tc.shapes {
			assert.Less(t, reduced.Len(sh), full.Len(sh), "reduction must shrink %v", sh)
			assert.True(t, reduced.Complete(sh), "multiplicities must cover %v", sh)

			space, err := array.KeySpace(sh, 2)
			require.NoError(t, err)
			for k := uint64(0); k < space; k++ {
				want, err := full.LookupKey(sh, array.Key(k))
				require.NoError(t, err)
				got, err := reduced.LookupKey(sh, array.Key(k))
				require.NoError(t, err)
				require.Equal(t, want, got, "shape %v key %d", sh, k)
			}

			desc, err := reduced.Descending(sh)
			require.NoError(t, err)
			var blocks uint64
			for _, e := range desc {
				blocks += e.Multiplicity
			}
			assert.Equal(t, space, blocks)
		}
	}
}

// TestReduced_Conflict rejects asymmetric values in a reduced table.
func TestReduced_Conflict(t *testing.T) {
	b := ctm.NewBuilder(2, 1).WithReduced()
	require.NoError(t, b.Set(mustBlock(t, "0011", 1), 2))
	// 1100 is the reversal of 0011 and must carry the same value
	require.ErrorIs(t, b.Set(mustBlock(t, "1100", 1), 3), ctm.ErrConflict)
}

// TestCodec_RoundTrip checks every compression mode and corruption handling.
func TestCodec_RoundTrip(t *testing.T) {
	b := ctm.NewBuilder(2, 2).WithMeta(ctm.Meta{Source: "test", States: 2, MaxSteps: 7, Machines: 10, Halting: 4, Imputed: 1})
	src, err := ctm.FromFunc(2, 2, [][]int{{2, 2}, {3, 3}}, ones)
	require.NoError(t, err)
	src.Entries(func(shape []int, key array.Key, value float64) bool {
		require.NoError(t, b.SetKey(shape, key, value+0.125))
		return true
	})
	tab, err := b.Build()
	require.NoError(t, err)

	for _, c := range []ctm.Compression{ctm.CompressionNone, ctm.CompressionLZ4, ctm.CompressionZSTD} {
		var buf bytes.Buffer
		require.NoError(t, ctm.Encode(&buf, tab, c), c.String())
		raw := buf.Bytes()

		got, err := ctm.Decode(bytes.NewReader(raw))
		require.NoError(t, err, c.String())
		assert.Equal(t, tab.Meta(), got.Meta())
		assert.Equal(t, tab.Shapes(), got.Shapes())
		tab.Entries(func(shape []int, key array.Key, value float64) bool {
			v, err := got.LookupKey(shape, key)
			require.NoError(t, err)
			assert.Equal(t, value, v)
			return true
		})

		// truncation and bad magic are reported as corruption
		_, err = ctm.Decode(bytes.NewReader(raw[:len(raw)-3]))
		require.ErrorIs(t, err, ctm.ErrCorrupt)
		bad := append([]byte("XXXX"), raw[4:]...)
		_, err = ctm.Decode(bytes.NewReader(bad))
		require.ErrorIs(t, err, ctm.ErrCorrupt)
	}

	// the reduced flag survives serialization
	rb := ctm.NewBuilder(2, 1).WithReduced()
	require.NoError(t, rb.Set(mustBlock(t, "0011", 1), 2))
	red, err := rb.Build()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, ctm.Encode(&buf, red, ctm.CompressionZSTD))
	got, err := ctm.Decode(&buf)
	require.NoError(t, err)
	assert.True(t, got.Reduced())
	v, err := got.Lookup(mustBlock(t, "1100", 1))
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

// TestDecode_ForgedLengths rejects headers announcing more data than follows,
// without allocating the announced sizes.
func TestDecode_ForgedLengths(t *testing.T) {
	tab, err := ctm.FromFunc(2, 1, [][]int{{4}}, ones)
	require.NoError(t, err)

	for _, c := range []ctm.Compression{ctm.CompressionNone, ctm.CompressionLZ4, ctm.CompressionZSTD} {
		var buf bytes.Buffer
		require.NoError(t, ctm.Encode(&buf, tab, c))
		raw := buf.Bytes()

		// header only, stored length 2 GiB
		hdr := append([]byte(nil), raw[:28]...)
		binary.LittleEndian.PutUint64(hdr[20:], 1<<31)
		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		_, err := ctm.Decode(bytes.NewReader(hdr))
		runtime.ReadMemStats(&after)
		require.ErrorIs(t, err, ctm.ErrCorrupt, c.String())
		assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20), c.String())

		// real body, body length inflated
		forged := append([]byte(nil), raw...)
		binary.LittleEndian.PutUint64(forged[12:], 1<<31)
		_, err = ctm.Decode(bytes.NewReader(forged))
		require.ErrorIs(t, err, ctm.ErrCorrupt, c.String())
	}
}

// TestParseCompression maps CLI spellings.
func TestParseCompression(t *testing.T) {
	for _, c := range []ctm.Compression{ctm.CompressionNone, ctm.CompressionLZ4, ctm.CompressionZSTD} {
		got, err := ctm.ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ctm.ParseCompression("brotli")
	require.Error(t, err)
}

// TestText_RoundTrip imports and exports the textual format.
func TestText_RoundTrip(t *testing.T) {
	in := `# tiny 2-D table
00-00	3.5
01-10,7.25
11-11 3.5
`
	tab, err := ctm.ReadText(strings.NewReader(in), 2, 2, "import:tiny")
	require.NoError(t, err)
	assert.Equal(t, "import:tiny", tab.Meta().Source)
	assert.Equal(t, 3, tab.Len([]int{2, 2}))

	v, err := tab.Lookup(mustBlock(t, "01-10", 2))
	require.NoError(t, err)
	assert.Equal(t, 7.25, v)

	var out bytes.Buffer
	require.NoError(t, ctm.WriteText(&out, tab))
	assert.Equal(t, "00-00\t3.5\n01-10\t7.25\n11-11\t3.5\n", out.String())

	_, err = ctm.ReadText(strings.NewReader("01-10"), 2, 2, "")
	require.ErrorIs(t, err, array.ErrSyntax)
	_, err = ctm.ReadText(strings.NewReader("01-10\tabc"), 2, 2, "")
	require.ErrorIs(t, err, ctm.ErrBadValue)
}

// TestText_ReducedRoundTrip exports a reduced table and reads it back with
// every non-canonical block still resolvable.
func TestText_ReducedRoundTrip(t *testing.T) {
	full, err := ctm.FromFunc(2, 1, [][]int{{4}}, folded)
	require.NoError(t, err)
	rb := ctm.NewBuilder(2, 1).WithReduced()
	full.Entries(func(shape []int, key array.Key, value float64) bool {
		require.NoError(t, rb.SetKey(shape, key, value))
		return true
	})
	reduced, err := rb.Build()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, ctm.WriteText(&out, reduced))
	assert.True(t, strings.HasPrefix(out.String(), "# reduced\n"))

	back, err := ctm.ReadText(&out, 2, 1, "import:reduced")
	require.NoError(t, err)
	require.True(t, back.Reduced())
	assert.Equal(t, reduced.Len([]int{4}), back.Len([]int{4}))
	assert.True(t, back.Complete([]int{4}))

	for _, s := range []string{"1111", "1100", "0111", "1010"} {
		want, err := full.Lookup(mustBlock(t, s, 1))
		require.NoError(t, err)
		got, err := back.Lookup(mustBlock(t, s, 1))
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	// the header only applies before the first entry
	_, err = ctm.ReadText(strings.NewReader("0011\t2\n# reduced\n"), 2, 1, "")
	require.ErrorIs(t, err, ctm.ErrConflict)
}

// TestShapeName round-trips shape spellings.
func TestShapeName(t *testing.T) {
	assert.Equal(t, "4x4", ctm.ShapeName([]int{4, 4}))
	assert.Equal(t, "12", ctm.ShapeName([]int{12}))
	sh, err := ctm.ParseShape("4x4")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, sh)
	_, err = ctm.ParseShape("2x2x2")
	require.ErrorIs(t, err, ctm.ErrRank)
	_, err = ctm.ParseShape("0")
	require.ErrorIs(t, err, ctm.ErrRank)
}
