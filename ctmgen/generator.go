// SPDX-License-Identifier: MIT

package ctmgen

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/katalvlaran/kcomplex/array"
	"github.com/katalvlaran/kcomplex/ctm"
)

const (
	// rangesPerWorker sets how finely the machine space is split.
	rangesPerWorker = 64
	// minRange is the smallest machine range handed to a worker.
	minRange = 256
	// progressInterval throttles progress logging.
	progressInterval = 5 * time.Second
)

// tally is one worker's output frequencies, one map per requested shape.
type tally struct {
	counts  []map[array.Key]uint64
	halting uint64
}

func newTally(shapes int) *tally {
	t := &tally{counts: make([]map[array.Key]uint64, shapes)}
	for i := range t.counts {
		t.counts[i] = make(map[array.Key]uint64)
	}

	return t
}

// Generate enumerates every machine of the configured space, counts the
// blocks their outputs contain and turns the frequencies into a CTM table:
// CTM(b) = −log2(count(b) / Σ counts) per shape. A nil opts selects
// DefaultOptions, a nil logger disables logging.
//
// Errors: ErrBadOptions, ErrNoOutput, ctx.Err() on cancellation.
func Generate(ctx context.Context, opts *Options, logger *zap.Logger) (*ctm.Table, error) {
	if opts == nil {
		d := DefaultOptions()
		opts = &d
	}
	o := *opts
	if o.MaxSteps == 0 {
		o.MaxSteps = DefaultMaxSteps(o.States, o.Symbols)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	perRule, total, err := machineSpace(o.States, o.Symbols, o.NDim)
	if err != nil {
		return nil, err
	}
	logger.Info("ctmgen started",
		zap.Int("states", o.States),
		zap.Int("symbols", o.Symbols),
		zap.Int("ndim", o.NDim),
		zap.Int("max_steps", o.MaxSteps),
		zap.Uint64("machines", total),
		zap.Int("workers", o.Workers))
	start := time.Now()

	tallies, err := enumerate(ctx, &o, perRule, total, logger)
	if err != nil {
		return nil, err
	}

	merged := newTally(len(o.Shapes))
	for _, t := range tallies {
		merged.halting += t.halting
		for i, m := range t.counts {
			for key, n := range m {
				merged.counts[i][key] += n
			}
		}
	}

	meta := ctm.Meta{
		Source:   "ctmgen",
		States:   o.States,
		MaxSteps: o.MaxSteps,
		Machines: total,
		Halting:  merged.halting,
	}
	b := ctm.NewBuilder(o.Symbols, o.NDim)
	if o.Reduced {
		b.WithReduced()
	}
	produced := 0
	for i, shape := range o.Shapes {
		imputed, err := tabulate(b, shape, o.Symbols, merged.counts[i], o.Reduced, o.Impute)
		if err != nil {
			return nil, err
		}
		if len(merged.counts[i]) == 0 {
			logger.Warn("ctmgen: no output for shape", zap.String("shape", ctm.ShapeName(shape)))

			continue
		}
		produced++
		meta.Imputed += imputed
	}
	if produced == 0 {
		return nil, ErrNoOutput
	}
	table, err := b.WithMeta(meta).Build()
	if err != nil {
		return nil, err
	}
	logger.Info("ctmgen finished",
		zap.Uint64("halting", merged.halting),
		zap.Uint64("imputed", meta.Imputed),
		zap.Duration("elapsed", time.Since(start)))

	return table, nil
}

// enumerate runs every machine index in [0, total) on o.Workers goroutines
// pulling fixed-size ranges, and returns one tally per worker.
func enumerate(ctx context.Context, o *Options, perRule, total uint64, logger *zap.Logger) ([]*tally, error) {
	size := max(total/uint64(o.Workers*rangesPerWorker), minRange)
	var next, done atomic.Uint64
	progress := rate.Sometimes{Interval: progressInterval}

	tallies := make([]*tally, o.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < o.Workers; w++ {
		t := newTally(len(o.Shapes))
		tallies[w] = t
		g.Go(func() error {
			m := newMachine(o.States, o.Symbols, o.NDim, o.MaxSteps)
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				lo := next.Add(size) - size
				if lo >= total {
					return nil
				}
				hi := min(lo+size, total)
				for idx := lo; idx < hi; idx++ {
					decode(idx, o.States, o.Symbols, o.NDim, perRule, m.rules)
					if !m.run() {
						continue
					}
					t.halting++
					record(m, o.Shapes, t)
				}
				d := done.Add(hi - lo)
				progress.Do(func() {
					logger.Info("ctmgen progress",
						zap.Uint64("done", d),
						zap.Uint64("machines", total),
						zap.Float64("percent", 100*float64(d)/float64(total)))
				})
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return tallies, nil
}

// record counts the blocks of a halted machine's output. A tape output
// counts once for the 1-D shape of its exact length; a grid output counts
// every window of each 2-D shape that fits in its bounding box.
func record(m *machine, shapes [][]int, t *tally) {
	h, w := m.extent()
	for i, sh := range shapes {
		if m.ndim == 1 {
			if sh[0] == w {
				t.counts[i][m.windowKey(0, 0, 1, w)]++
			}

			continue
		}
		bh, bw := sh[0], sh[1]
		for r := 0; r+bh <= h; r++ {
			for c := 0; c+bw <= w; c++ {
				t.counts[i][m.windowKey(r, c, bh, bw)]++
			}
		}
	}
}

// tabulate writes the CTM values of one shape into b and returns the number
// of imputed blocks. Produced blocks are tracked in a bitmap; with impute
// every other block of the shape gets max+1.
func tabulate(b *ctm.Builder, shape []int, symbols int, counts map[array.Key]uint64, reduced, impute bool) (uint64, error) {
	if len(counts) == 0 {
		return 0, nil
	}
	var sum uint64
	keys := make([]array.Key, 0, len(counts))
	for key, n := range counts {
		sum += n
		keys = append(keys, key)
	}
	slices.Sort(keys)

	covered := roaring.New()
	maxValue := 0.0
	set := func(key array.Key, freq float64) error {
		v := -math.Log2(freq)
		maxValue = max(maxValue, v)

		return b.SetKey(shape, key, v)
	}
	for _, key := range keys {
		if covered.Contains(uint32(key)) {
			continue
		}
		if !reduced {
			covered.Add(uint32(key))
			if err := set(key, float64(counts[key])/float64(sum)); err != nil {
				return 0, err
			}

			continue
		}
		orbit, err := ctm.Orbit(shape, symbols, key)
		if err != nil {
			return 0, err
		}
		var classCount uint64
		for _, member := range orbit {
			classCount += counts[member]
			covered.Add(uint32(member))
		}
		freq := float64(classCount) / float64(len(orbit)) / float64(sum)
		if err := set(orbit[0], freq); err != nil {
			return 0, err
		}
	}
	if !impute {
		return 0, nil
	}

	space, err := array.KeySpace(shape, symbols)
	if err != nil {
		return 0, err
	}
	missing := roaring.Flip(covered, 0, space)
	it := missing.Iterator()
	for it.HasNext() {
		key := array.Key(it.Next())
		if err := b.SetKey(shape, key, maxValue+1); err != nil {
			return 0, fmt.Errorf("impute %s: %w", ctm.ShapeName(shape), err)
		}
	}

	return missing.GetCardinality(), nil
}
