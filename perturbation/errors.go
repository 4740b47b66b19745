// SPDX-License-Identifier: MIT

package perturbation

import "errors"

// ErrIndex indicates an element index outside the array.
var ErrIndex = errors.New("perturbation: index out of range")
