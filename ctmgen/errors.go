// SPDX-License-Identifier: MIT

package ctmgen

import "errors"

var (
	// ErrBadOptions indicates invalid generator options.
	ErrBadOptions = errors.New("ctmgen: invalid options")

	// ErrNoOutput indicates that no halting machine produced a block of any
	// requested shape.
	ErrNoOutput = errors.New("ctmgen: no block of any requested shape was produced")
)
