// SPDX-License-Identifier: MIT

// Package ctm holds the Reference Table of a block decomposition estimator:
// precomputed Coding Theorem Method (CTM) complexity values keyed by
// alphabet size, block shape and block content.
//
// What:
//
//   - Table is immutable after Builder.Build and safe for concurrent reads
//     without locking. Lookups never invent values: a missing shape or block
//     is an error.
//   - Reduced tables keep one canonical representative per symmetry class
//     (reversal/dihedral transforms × symbol complement); Lookup
//     canonicalizes the block first, so callers cannot tell the difference.
//   - RecommendedShape picks the default block shape: the largest shape whose
//     entries cover every possible block.
//   - Encode/Decode persist tables in a compact binary format ("KCTM"),
//     optionally compressed with LZ4 or Zstandard.
//   - ReadText/WriteText exchange tables as "block<TAB>value" lines so
//     published CTM datasets can be imported.
//
// Complexity:
//
//   - Lookup: O(b) for a full table, O(g·b) for a reduced one
//     (b = block size, g = symmetry group order ≤ 16).
//   - Build: O(E log E) to sort entries per shape.
//
// Errors:
//
//   - ErrUnsupportedShape, ErrMissingBlock, ErrAlphabetMismatch: lookups.
//   - ErrBadValue, ErrConflict, ErrRank: builder input.
//   - ErrEmptyTable: no shapes at all.
//   - ErrCorrupt: malformed serialized table.
package ctm
