// SPDX-License-Identifier: MIT

// Package perturbation measures how single-symbol changes move the BDM of an
// array: the algorithmic information contributed by each element.
//
// An Experiment keeps the block multiset of the current array and updates it
// incrementally, so a perturbation costs O(r·b) (r regions covering the
// element, b block size) instead of a full re-estimation. Deltas equal the
// difference of two independent Estimator.BDM calls.
//
// ImpactMap reports, for every element, the delta of changing that element
// alone, without modifying the experiment. It runs on a bounded errgroup.
//
// An Experiment is not safe for concurrent Perturb calls.
package perturbation
