// SPDX-License-Identifier: MIT

package ctm

import "errors"

var (
	// ErrUnsupportedShape indicates that the table has no entries for a block shape.
	ErrUnsupportedShape = errors.New("ctm: block shape not supported by table")

	// ErrMissingBlock indicates that the shape is present but the block is not.
	ErrMissingBlock = errors.New("ctm: block missing from table")

	// ErrAlphabetMismatch indicates a block whose alphabet differs from the table's.
	ErrAlphabetMismatch = errors.New("ctm: block alphabet differs from table")

	// ErrRank indicates a block rank that differs from the table rank.
	ErrRank = errors.New("ctm: block rank differs from table")

	// ErrBadValue indicates a negative, NaN or infinite complexity value.
	ErrBadValue = errors.New("ctm: complexity must be finite and non-negative")

	// ErrConflict indicates two values for the same block or symmetry class.
	ErrConflict = errors.New("ctm: conflicting values for one block")

	// ErrEmptyTable indicates a table without any shape.
	ErrEmptyTable = errors.New("ctm: table is empty")

	// ErrCorrupt indicates a malformed serialized table.
	ErrCorrupt = errors.New("ctm: corrupt table data")
)
