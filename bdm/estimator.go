// SPDX-License-Identifier: MIT

package bdm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/kcomplex/array"
	"github.com/katalvlaran/kcomplex/ctm"
	"github.com/katalvlaran/kcomplex/partition"
)

// Estimator computes BDM values of arrays against one reference table.
// It is immutable after New and safe for concurrent use; the table is held
// by reference and never modified.
type Estimator struct {
	table   *ctm.Table
	part    partition.Partition
	logger  *zap.Logger
	workers int

	mu     sync.Mutex
	bounds map[string]Normalized // per array shape; Value and Raw unused
}

// Normalized is the detailed result of NBDM.
type Normalized struct {
	// Value is (Raw-Min)/(Max-Min). It may fall slightly outside [0, 1].
	Value float64
	// Raw is the BDM of the array.
	Raw float64
	// Min is the BDM of the least complex array of the same shape.
	Min float64
	// Max is the approximate BDM of the most complex array of the same shape.
	Max float64
}

// New builds an Estimator over table.
//
// The partition comes from WithPartition, or is built from WithShape (default:
// table.RecommendedShape()) and WithBoundary (default: BoundaryIgnore).
//
// Errors: ErrConfiguration when table is nil, when the block rank differs
// from the table rank, or when the table has no entries for the block shape.
func New(table *ctm.Table, opts ...Option) (*Estimator, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", ErrConfiguration)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	part := o.part
	if part == nil {
		shape := o.shape
		if len(shape) == 0 {
			var err error
			if shape, err = table.RecommendedShape(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
			}
		}
		var err error
		switch o.boundary {
		case BoundaryStrict:
			part, err = partition.NewStrict(shape...)
		case BoundaryRecursive:
			part, err = partition.NewRecursive(o.minSize, shape...)
		default:
			part, err = partition.NewIgnore(shape...)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}

	block := part.Shape()
	if len(block) != table.NDim() {
		return nil, fmt.Errorf("%w: block %v for %d-D table: %w", ErrConfiguration, block, table.NDim(), ctm.ErrRank)
	}
	if !table.Has(block) {
		return nil, fmt.Errorf("%w: block %v: %w", ErrConfiguration, block, ctm.ErrUnsupportedShape)
	}

	o.logger.Debug("estimator ready",
		zap.String("shape", ctm.ShapeName(block)),
		zap.String("partition", part.Name()),
		zap.Int("alphabet", table.Alphabet()),
		zap.Bool("reduced", table.Reduced()),
	)

	return &Estimator{
		table:   table,
		part:    part,
		logger:  o.logger,
		workers: o.workers,
		bounds:  make(map[string]Normalized),
	}, nil
}

// Table returns the reference table.
func (e *Estimator) Table() *ctm.Table { return e.table }

// Partition returns the decomposition strategy.
func (e *Estimator) Partition() partition.Partition { return e.part }

// Shape returns the nominal block shape.
func (e *Estimator) Shape() []int { return e.part.Shape() }

// Input builds an array for this estimator from a shape and row-major data,
// mapping construction failures to the estimator's error kinds: symbols
// outside the alphabet to ErrAlphabet, everything else to ErrConfiguration.
func (e *Estimator) Input(shape []int, data []int) (*array.Array, error) {
	a, err := array.New(shape, data, e.table.Alphabet())
	if err != nil {
		return nil, inputErr(err)
	}
	if a.NDim() != e.table.NDim() {
		return nil, fmt.Errorf("%w: %d-D array for %d-D estimator", ErrConfiguration, a.NDim(), e.table.NDim())
	}

	return a, nil
}

// InputRows is Input for nested rows; a single row yields a 1-D array when
// the estimator is 1-D.
func (e *Estimator) InputRows(rows [][]int) (*array.Array, error) {
	if e.table.NDim() == 1 {
		if len(rows) != 1 {
			return nil, fmt.Errorf("%w: %d rows for 1-D estimator", ErrConfiguration, len(rows))
		}

		return e.Input([]int{len(rows[0])}, rows[0])
	}
	a, err := array.New2D(rows, e.table.Alphabet())
	if err != nil {
		return nil, inputErr(err)
	}

	return a, nil
}

func inputErr(err error) error {
	if errors.Is(err, array.ErrSymbol) || errors.Is(err, array.ErrAlphabetSize) {
		return fmt.Errorf("%w: %w", ErrAlphabet, err)
	}

	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}

// check validates an array against the table.
func (e *Estimator) check(a *array.Array) error {
	if a == nil {
		return fmt.Errorf("%w: nil array", ErrConfiguration)
	}
	if a.NDim() != e.table.NDim() {
		return fmt.Errorf("%w: %d-D array for %d-D estimator", ErrConfiguration, a.NDim(), e.table.NDim())
	}
	if a.Alphabet() != e.table.Alphabet() {
		return fmt.Errorf("%w: array alphabet %d, table alphabet %d", ErrAlphabet, a.Alphabet(), e.table.Alphabet())
	}

	return nil
}

// regions returns the decomposition of an array shape; an empty
// decomposition is ErrConfiguration.
func (e *Estimator) regions(shape []int) ([]partition.Region, error) {
	regions, err := e.part.Regions(shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: array %v holds no %v block", ErrConfiguration, shape, e.part.Shape())
	}

	return regions, nil
}

// Decompose returns copies of the blocks of a, in partition order.
func (e *Estimator) Decompose(a *array.Array) ([]*array.Array, error) {
	if err := e.check(a); err != nil {
		return nil, err
	}
	regions, err := e.regions(a.Shape())
	if err != nil {
		return nil, err
	}
	out := make([]*array.Array, len(regions))
	for i, r := range regions {
		if out[i], err = a.Window(r.Origin, r.Shape); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}

	return out, nil
}

// Count decomposes a and collects the block multiset.
func (e *Estimator) Count(a *array.Array) (*Counter, error) {
	if err := e.check(a); err != nil {
		return nil, err
	}
	regions, err := e.regions(a.Shape())
	if err != nil {
		return nil, err
	}
	c := NewCounter()
	for _, r := range regions {
		key, err := a.WindowKey(r.Origin, r.Shape)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		c.Add(r.Shape, key, 1)
	}

	return c, nil
}

// Compute aggregates a block multiset: Σ CTM(b) + log2(n_b) over distinct
// blocks b, summed in Counter.Each order so results are bit-identical
// across calls.
//
// Errors: ErrLookup wrapping ctm.ErrUnsupportedShape or ctm.ErrMissingBlock.
func (e *Estimator) Compute(c *Counter) (float64, error) {
	var (
		sum float64
		err error
	)
	c.Each(func(shape []int, key array.Key, n int) bool {
		v, lerr := e.table.LookupKey(shape, key)
		if lerr != nil {
			err = fmt.Errorf("%w: %w", ErrLookup, lerr)

			return false
		}
		sum += v + math.Log2(float64(n))

		return true
	})
	if err != nil {
		return 0, err
	}

	return sum, nil
}

// BDM returns the Block Decomposition Method complexity of a in bits.
//
// Errors:
//   - ErrConfiguration: rank mismatch, indivisible shape under a strict
//     boundary, or an array smaller than one block.
//   - ErrAlphabet: array alphabet differs from the table.
//   - ErrLookup: a block is absent from the table.
func (e *Estimator) BDM(a *array.Array) (float64, error) {
	c, err := e.Count(a)
	if err != nil {
		return 0, err
	}

	return e.Compute(c)
}

// NBDM returns BDM normalized to the bounds of arrays of the same shape:
// (raw-min)/(max-min). The value may fall slightly outside [0, 1].
//
// Errors: those of BDM, plus ErrNormalization when min ≥ max or the shape
// holds no block at all.
func (e *Estimator) NBDM(a *array.Array) (float64, error) {
	n, err := e.NBDMDetail(a)
	if err != nil {
		return 0, err
	}

	return n.Value, nil
}

// NBDMDetail is NBDM returning the raw value and both bounds.
func (e *Estimator) NBDMDetail(a *array.Array) (Normalized, error) {
	if err := e.check(a); err != nil {
		return Normalized{}, err
	}
	b, err := e.Bounds(a.Shape())
	if err != nil {
		return Normalized{}, err
	}
	raw, err := e.BDM(a)
	if err != nil {
		return Normalized{}, err
	}
	b.Raw = raw
	b.Value = (raw - b.Min) / (b.Max - b.Min)

	return b, nil
}

// Bounds returns the normalization bounds for arrays of the given shape.
//
//   - Min: the smallest BDM among the constant arrays (one per symbol).
//   - Max: per group of equally shaped blocks (n blocks of shape s), the n
//     blocks are assigned to the most complex distinct blocks of s first,
//     cycling evenly once every distinct block is used; the group contributes
//     Σ CTM + log2(count) like a real decomposition would.
//
// Bounds depend only on the shape and are cached.
func (e *Estimator) Bounds(shape []int) (Normalized, error) {
	name := ctm.ShapeName(shape)
	e.mu.Lock()
	b, ok := e.bounds[name]
	e.mu.Unlock()
	if ok {
		return b, nil
	}

	census, err := partition.Census(e.part, shape)
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if len(census) == 0 {
		return Normalized{}, fmt.Errorf("%w: array %v holds no %v block", ErrNormalization, shape, e.part.Shape())
	}

	b.Min = math.Inf(1)
	k := e.table.Alphabet()
	for s := 0; s < k; s++ {
		c := NewCounter()
		for _, g := range census {
			blk, err := array.Constant(g.Shape, s, k)
			if err != nil {
				return Normalized{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
			}
			key, err := blk.Key()
			if err != nil {
				return Normalized{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
			}
			c.Add(g.Shape, key, g.Count)
		}
		v, err := e.Compute(c)
		if err != nil {
			return Normalized{}, err
		}
		b.Min = math.Min(b.Min, v)
	}

	for _, g := range census {
		desc, err := e.table.Descending(g.Shape)
		if err != nil {
			return Normalized{}, fmt.Errorf("%w: %w", ErrLookup, err)
		}
		b.Max += maxContribution(desc, uint64(g.Count))
	}

	if !(b.Max > b.Min) {
		return Normalized{}, fmt.Errorf("%w: min %v, max %v for shape %v", ErrNormalization, b.Min, b.Max, shape)
	}

	e.mu.Lock()
	e.bounds[name] = b
	e.mu.Unlock()
	e.logger.Debug("normalization bounds",
		zap.String("shape", name),
		zap.Float64("min", b.Min),
		zap.Float64("max", b.Max),
	)

	return b, nil
}

// maxContribution spreads n blocks over the entries of desc (most complex
// first). Every distinct block receives q = n/D occurrences and the first
// n mod D receive one more, D being the number of distinct blocks.
func maxContribution(desc []ctm.Entry, n uint64) float64 {
	var distinct uint64
	for _, en := range desc {
		distinct += en.Multiplicity
	}
	if distinct == 0 || n == 0 {
		return 0
	}

	var sum float64
	if n <= distinct {
		left := n
		for _, en := range desc {
			take := min(en.Multiplicity, left)
			sum += float64(take) * en.Value
			left -= take
			if left == 0 {
				break
			}
		}

		return sum
	}

	q, r := n/distinct, n%distinct
	var pos uint64
	for _, en := range desc {
		m := en.Multiplicity
		var extra uint64 // blocks of this entry that get q+1
		if pos < r {
			extra = min(r-pos, m)
		}
		sum += float64(m)*en.Value +
			float64(extra)*math.Log2(float64(q+1)) +
			float64(m-extra)*math.Log2(float64(q))
		pos += m
	}

	return sum
}

// Entropy returns the Shannon entropy (bits) of the block distribution of a.
func (e *Estimator) Entropy(a *array.Array) (float64, error) {
	c, err := e.Count(a)
	if err != nil {
		return 0, err
	}

	return entropy(c), nil
}

// NEntropy returns Entropy divided by its maximum for the shape: log2 of the
// largest number of distinct blocks the decomposition could contain.
//
// Errors: those of Entropy, plus ErrNormalization when that number is ≤ 1.
func (e *Estimator) NEntropy(a *array.Array) (float64, error) {
	c, err := e.Count(a)
	if err != nil {
		return 0, err
	}
	census, err := partition.Census(e.part, a.Shape())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	var distinct float64
	for _, g := range census {
		// compare in bits first: k^size overflows long before the count does
		if array.Log2Space(g.Shape, e.table.Alphabet()) >= math.Log2(float64(g.Count)) {
			distinct += float64(g.Count)
			continue
		}
		space, err := array.KeySpace(g.Shape, e.table.Alphabet())
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		distinct += float64(space)
	}
	if distinct <= 1 {
		return 0, fmt.Errorf("%w: at most one distinct block for shape %v", ErrNormalization, a.Shape())
	}

	return entropy(c) / math.Log2(distinct), nil
}

func entropy(c *Counter) float64 {
	total := float64(c.Total())
	var h float64
	c.Each(func(_ []int, _ array.Key, n int) bool {
		p := float64(n) / total
		h -= p * math.Log2(p)

		return true
	})

	return h
}

// BatchBDM estimates many arrays concurrently with at most WithWorkers
// goroutines. Results are aligned with arrays. The first error cancels the
// remaining work and is returned wrapped with the array index.
func (e *Estimator) BatchBDM(ctx context.Context, arrays []*array.Array) ([]float64, error) {
	return e.batch(ctx, "bdm", arrays, e.BDM)
}

// BatchNBDM is BatchBDM for NBDM.
func (e *Estimator) BatchNBDM(ctx context.Context, arrays []*array.Array) ([]float64, error) {
	return e.batch(ctx, "nbdm", arrays, e.NBDM)
}

func (e *Estimator) batch(ctx context.Context, op string, arrays []*array.Array, fn func(*array.Array) (float64, error)) ([]float64, error) {
	out := make([]float64, len(arrays))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, a := range arrays {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(a)
			if err != nil {
				return fmt.Errorf("array %d: %w", i, err)
			}
			out[i] = v

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Debug("batch failed", zap.String("op", op), zap.Error(err))

		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.logger.Debug("batch done", zap.String("op", op), zap.Int("arrays", len(arrays)))

	return out, nil
}
