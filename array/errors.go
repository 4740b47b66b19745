// SPDX-License-Identifier: MIT

package array

import "errors"

// Every message is prefixed with "array: ...". Call sites add coordinates
// with fmt.Errorf("ctx: %w", ErrX); callers match with errors.Is.
var (
	// ErrRank indicates an array or block rank other than 1 or 2.
	ErrRank = errors.New("array: rank must be 1 or 2")

	// ErrBadShape indicates a non-positive dimension or a data length that
	// does not match the product of the shape.
	ErrBadShape = errors.New("array: invalid shape")

	// ErrNonRectangular indicates 2-D input rows of differing lengths.
	ErrNonRectangular = errors.New("array: all rows must have the same length")

	// ErrAlphabetSize indicates an alphabet with fewer than two symbols.
	ErrAlphabetSize = errors.New("array: alphabet size must be at least 2")

	// ErrSymbol indicates an element outside [0, alphabet).
	ErrSymbol = errors.New("array: symbol outside alphabet")

	// ErrOutOfRange indicates an index or a window outside the array bounds.
	ErrOutOfRange = errors.New("array: index out of range")

	// ErrKeyOverflow indicates that alphabet^size exceeds the uint64 key space.
	ErrKeyOverflow = errors.New("array: block key space exceeds 64 bits")

	// ErrSyntax indicates malformed text input for Parse.
	ErrSyntax = errors.New("array: malformed text input")
)
