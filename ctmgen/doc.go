// SPDX-License-Identifier: MIT

// Package ctmgen produces CTM reference tables by brute force.
//
// Every machine of a small space is run on a blank tape (1-D Turing machines)
// or a blank grid (2-D turmites). The output of each machine that halts
// within MaxSteps is cut into blocks, and the frequency D(b) of each block
// over all halting outputs gives its Coding Theorem Method estimate
//
//	CTM(b) = −log2 D(b)
//
// Machines follow the Busy Beaver formalism: n states, k symbols, and for
// each (state, symbol) pair a rule that writes a symbol and then either moves
// and changes state or halts. There are (k·(2n+1))^(n·k) tape machines and
// (k·(4n+1))^(n·k) turmites.
//
// The machine space is split into index ranges processed by a bounded pool
// of workers; per-worker counts are merged after all workers finish. Blocks
// no machine produced are either left out or, with Impute, given the value
// max+1. The result is a *ctm.Table ready for ctm.Encode.
package ctmgen
