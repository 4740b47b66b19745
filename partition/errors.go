// SPDX-License-Identifier: MIT

package partition

import "errors"

var (
	// ErrBlockShape indicates an invalid block shape (rank not 1 or 2, or a side ≤ 0).
	ErrBlockShape = errors.New("partition: invalid block shape")

	// ErrShapeRank indicates that the array rank differs from the block rank.
	ErrShapeRank = errors.New("partition: array and block rank differ")

	// ErrIndivisible indicates a dimension that is not a multiple of the
	// block side under the Strict policy.
	ErrIndivisible = errors.New("partition: array shape not divisible by block shape")

	// ErrBadParam indicates a Shift or MinSize outside its valid range.
	ErrBadParam = errors.New("partition: invalid partition parameter")
)
