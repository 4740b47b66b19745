// SPDX-License-Identifier: MIT

package ctmgen

import (
	"fmt"
	"math/bits"

	"github.com/katalvlaran/kcomplex/array"
)

// maxKeySpace bounds k^size per shape; coverage bitmaps are 32-bit.
const maxKeySpace = 1 << 32

// busyBeaver holds the known maximal step counts S(n, k) of halting machines,
// halting transition included.
var busyBeaver = map[[2]int]int{
	{1, 2}: 1,
	{2, 2}: 6,
	{3, 2}: 21,
	{4, 2}: 107,
	{2, 3}: 38,
}

// DefaultMaxSteps returns S(n, k)+1 when the busy-beaver value is known and
// 1000 otherwise.
func DefaultMaxSteps(states, symbols int) int {
	if s, ok := busyBeaver[[2]int{states, symbols}]; ok {
		return s + 1
	}

	return 1000
}

// Options configures a generator run.
//
// Fields:
//   - States: number of machine states n (≥ 1).
//   - Symbols: alphabet size k (≥ 2); 0 is the blank symbol.
//   - NDim: 1 for Turing machines on a tape, 2 for turmites on a grid.
//   - MaxSteps: machines still running after MaxSteps steps are treated as
//     non-halting. 0 selects DefaultMaxSteps(States, Symbols).
//   - Shapes: block shapes to tabulate, each of rank NDim.
//   - Workers: goroutines enumerating machine ranges.
//   - Reduced: store one value per symmetry class; class members share
//     the mean output frequency of the class.
//   - Impute: give blocks no machine produced the value max+1.
//
// Example:
//
//	opts := ctmgen.DefaultOptions()
//	opts.Shapes = [][]int{{2, 2}, {3, 3}}
//	table, err := ctmgen.Generate(ctx, &opts, logger)
type Options struct {
	States   int
	Symbols  int
	NDim     int
	MaxSteps int
	Shapes   [][]int
	Workers  int
	Reduced  bool
	Impute   bool
}

// DefaultOptions returns a small 2-D binary run: 2-state turmites, 2×2 and
// 3×3 blocks, imputation on.
func DefaultOptions() Options {
	return Options{
		States:  2,
		Symbols: 2,
		NDim:    2,
		Shapes:  [][]int{{2, 2}, {3, 3}},
		Workers: 4,
		Impute:  true,
	}
}

// Validate reports the first invalid field, wrapped with ErrBadOptions.
func (o *Options) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrBadOptions, fmt.Sprintf(format, args...))
	}
	if o.States < 1 {
		return bad("states %d", o.States)
	}
	if o.Symbols < 2 || o.Symbols > 255 {
		return bad("symbols %d", o.Symbols)
	}
	if o.NDim != 1 && o.NDim != 2 {
		return bad("ndim %d", o.NDim)
	}
	if o.MaxSteps < 0 {
		return bad("max steps %d", o.MaxSteps)
	}
	if o.Workers < 1 {
		return bad("workers %d", o.Workers)
	}
	if len(o.Shapes) == 0 {
		return bad("no shapes")
	}
	for _, sh := range o.Shapes {
		if len(sh) != o.NDim {
			return bad("shape %v for ndim %d", sh, o.NDim)
		}
		space, err := array.KeySpace(sh, o.Symbols)
		if err != nil {
			return fmt.Errorf("%w: shape %v: %w", ErrBadOptions, sh, err)
		}
		if space > maxKeySpace {
			return bad("shape %v has %d blocks", sh, space)
		}
	}
	if _, _, err := machineSpace(o.States, o.Symbols, o.NDim); err != nil {
		return err
	}

	return nil
}

// machineSpace returns the number of choices per (state, symbol) rule and
// the number of machines, (k·(m·n+1))^(n·k) with m moves.
func machineSpace(states, symbols, ndim int) (perRule, total uint64, err error) {
	perRule = uint64(symbols) * uint64(moves(ndim)*states+1)
	total = 1
	for i := 0; i < states*symbols; i++ {
		hi, lo := bits.Mul64(total, perRule)
		if hi != 0 {
			return 0, 0, fmt.Errorf("%w: %d states, %d symbols: machine count overflows", ErrBadOptions, states, symbols)
		}
		total = lo
	}

	return perRule, total, nil
}

// moves is the number of head moves: left/right on a tape, four compass
// directions on a grid.
func moves(ndim int) int {
	if ndim == 1 {
		return 2
	}

	return 4
}
