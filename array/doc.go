// SPDX-License-Identifier: MIT

// Package array is the validated input boundary of kcomplex: a small,
// immutable, row-major array of symbols drawn from a finite alphabet.
//
// What:
//
//   - Array carries an explicit rank (1 or 2), shape and alphabet size next to
//     its flat data buffer, so every downstream stage (partitioning, table
//     lookup, normalization) works on an already validated value.
//   - Every element lies in [0, alphabet). Construction fails otherwise.
//   - A block is identified by its Key: the base-k integer of its content in
//     row-major order (most significant symbol first). "0101" over {0,1} is 5.
//
// Why:
//
//   - Complexity estimators index precomputed tables by block content. A
//     fixed-width integer key keeps lookups allocation-free and deterministic.
//
// Complexity:
//
//   - New/New1D/New2D: O(N) time and memory (input is deep-copied).
//   - At/Offset: O(rank).
//   - WindowKey: O(block size), no allocation.
//
// Errors:
//
//   - ErrRank: rank other than 1 or 2.
//   - ErrBadShape: a dimension ≤ 0 or data length ≠ product of shape.
//   - ErrNonRectangular: rows of differing lengths.
//   - ErrAlphabetSize: alphabet < 2.
//   - ErrSymbol: element outside [0, alphabet).
//   - ErrOutOfRange: index or window outside the array.
//   - ErrKeyOverflow: alphabet^size does not fit a uint64 key.
package array
