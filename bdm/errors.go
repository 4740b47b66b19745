// SPDX-License-Identifier: MIT

package bdm

import "errors"

// The four error kinds of the estimator. Lower-level causes (array, partition
// and ctm sentinels) are wrapped next to the kind, so errors.Is matches both:
//
//	errors.Is(err, bdm.ErrLookup)           // the kind
//	errors.Is(err, ctm.ErrMissingBlock)     // the cause
var (
	// ErrConfiguration indicates a rank mismatch, an unsupported or invalid
	// block shape, an indivisible shape under a strict boundary, or an array
	// too small to hold a single block.
	ErrConfiguration = errors.New("bdm: invalid configuration")

	// ErrAlphabet indicates a symbol outside [0, alphabet) or an array whose
	// alphabet differs from the reference table's.
	ErrAlphabet = errors.New("bdm: symbol outside alphabet")

	// ErrLookup indicates a block (or block shape) absent from the reference table.
	ErrLookup = errors.New("bdm: block not in reference table")

	// ErrNormalization indicates coinciding normalization bounds.
	ErrNormalization = errors.New("bdm: degenerate normalization bounds")
)
