// SPDX-License-Identifier: MIT

// Package bdm estimates the algorithmic complexity of small 1-D and 2-D
// symbol arrays with the Block Decomposition Method (BDM).
//
// 🚀 What is BDM?
//
//	An array is cut into blocks (see package partition). Each distinct block
//	b is looked up in a reference table of Coding Theorem Method values
//	CTM(b) (see package ctm), and the values are combined as
//
//	    BDM = Σ_b [ CTM(b) + log2(n_b) ]
//
//	where n_b is the number of occurrences of b. A block seen n times is
//	described once plus an index, hence the log2 term.
//
// ✨ Operations:
//   - BDM: raw complexity in bits.
//   - NBDM: BDM rescaled with the bounds of the least and the most complex
//     arrays of the same shape, nominally in [0, 1].
//   - Entropy / NEntropy: Shannon entropy of the block distribution.
//   - BatchBDM / BatchNBDM: many arrays on a bounded worker pool.
//   - Decompose / Count / Compute: the individual stages.
//
// ⚙️ Usage:
//
//	est, err := bdm.New(table, bdm.WithShape(4, 4))
//	if err != nil {
//	  // ErrConfiguration
//	}
//	x, _ := est.InputRows(rows)
//	raw, _ := est.BDM(x)
//	norm, _ := est.NBDM(x)
//
// Defaults:
//   - block shape: table.RecommendedShape() (largest complete shape);
//   - boundary: BoundaryIgnore (trailing partial blocks are dropped).
//
// Errors (match with errors.Is; causes from lower packages stay matchable):
//   - ErrConfiguration, ErrAlphabet, ErrLookup, ErrNormalization.
//
// Concurrency:
//
//	An Estimator never mutates its table. All methods are safe for
//	concurrent use; normalization bounds are cached per array shape.
package bdm
