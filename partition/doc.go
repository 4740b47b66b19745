// SPDX-License-Identifier: MIT

// Package partition splits an array shape into the block regions that a
// block decomposition estimator looks up one by one.
//
// What:
//
//   - Ignore (default): non-overlapping tiling in row-major order; trailing
//     partial blocks are dropped.
//   - Strict: like Ignore, but a dimension that is not a multiple of the
//     block side is an error (ErrIndivisible).
//   - Recursive: like Ignore, but every partial boundary tile is tiled again
//     with a cubic block whose side is the smallest tile dimension, as long
//     as that side is at least MinSize.
//   - Correlated: a sliding window moved by Shift along every axis; partial
//     windows are dropped.
//
// Partitions depend only on the array shape, never on its content, so the
// same regions can be computed for a real array and for the constant or
// maximal-entropy configurations used as normalization bounds (Census).
//
// Complexity:
//
//   - Regions: O(B) time and memory, B = number of regions.
//   - Census: O(B) plus sorting of the distinct block shapes.
//
// Errors:
//
//   - ErrBlockShape: block rank not 1 or 2, or a side ≤ 0.
//   - ErrShapeRank: array rank differs from block rank.
//   - ErrIndivisible: Strict partition on a non-divisible shape.
//   - ErrBadParam: Shift or MinSize out of range.
package partition
