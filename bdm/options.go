// SPDX-License-Identifier: MIT

// Package bdm: functional configuration for the Estimator. This file defines:
//   - Option (functional options over an internal options struct),
//   - documented defaults,
//   - WithX constructors (panic only on nonsensical programmer input).
//
// User-supplied values that can legitimately be wrong at runtime (a block
// shape read from a flag, a partition built from a config file) are not
// validated here; New reports them as ErrConfiguration.
package bdm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/katalvlaran/kcomplex/partition"
)

// Boundary selects how blocks that do not fit entirely inside the array are
// handled when no explicit Partition is given.
type Boundary int

const (
	// BoundaryIgnore drops trailing partial blocks.
	BoundaryIgnore Boundary = iota

	// BoundaryStrict rejects shapes that are not multiples of the block shape.
	BoundaryStrict

	// BoundaryRecursive re-tiles partial blocks with smaller cubic blocks.
	BoundaryRecursive
)

// String returns the partition name the boundary maps to.
func (b Boundary) String() string {
	switch b {
	case BoundaryIgnore:
		return partition.NameIgnore
	case BoundaryStrict:
		return partition.NameStrict
	case BoundaryRecursive:
		return partition.NameRecursive
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

// Defaults.
const (
	// DefaultBoundary drops trailing partial blocks.
	DefaultBoundary = BoundaryIgnore

	// DefaultWorkers bounds the goroutines of batch operations.
	DefaultWorkers = 4
)

// Option configures an Estimator.
type Option func(*options)

type options struct {
	shape    []int
	part     partition.Partition
	boundary Boundary
	minSize  int
	logger   *zap.Logger
	workers  int
}

func defaultOptions() options {
	return options{
		boundary: DefaultBoundary,
		minSize:  partition.DefaultMinSize,
		logger:   zap.NewNop(),
		workers:  DefaultWorkers,
	}
}

// WithShape sets the block shape. Without it the table's RecommendedShape is
// used. Ignored when WithPartition is given.
func WithShape(shape ...int) Option {
	s := append([]int(nil), shape...)

	return func(o *options) { o.shape = s }
}

// WithPartition sets an explicit partition (for example a Correlated one).
// It takes precedence over WithShape and WithBoundary.
func WithPartition(p partition.Partition) Option {
	if p == nil {
		panic("bdm: WithPartition(nil)")
	}

	return func(o *options) { o.part = p }
}

// WithBoundary selects the boundary policy of the default partition.
func WithBoundary(b Boundary) Option {
	if b < BoundaryIgnore || b > BoundaryRecursive {
		panic(fmt.Sprintf("bdm: WithBoundary(%d): unknown boundary", int(b)))
	}

	return func(o *options) { o.boundary = b }
}

// WithMinSize sets the smallest block side BoundaryRecursive tiles with.
func WithMinSize(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("bdm: WithMinSize(%d): must be ≥ 1", n))
	}

	return func(o *options) { o.minSize = n }
}

// WithLogger sets the logger. nil restores the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = zap.NewNop()
		}
		o.logger = l
	}
}

// WithWorkers bounds the goroutines used by BatchBDM and BatchNBDM.
func WithWorkers(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("bdm: WithWorkers(%d): must be ≥ 1", n))
	}

	return func(o *options) { o.workers = n }
}
