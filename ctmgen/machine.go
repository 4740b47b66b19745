// SPDX-License-Identifier: MIT

package ctmgen

import "github.com/katalvlaran/kcomplex/array"

// rule is the action for one (state, read symbol) pair.
type rule struct {
	write uint8
	halt  bool
	move  int // tape: 0 left, 1 right; grid: 0 up, 1 right, 2 down, 3 left
	next  int
}

// decode expands machine index into rules, rules[state·k + symbol]. The
// index is read as n·k base-perRule digits; within a digit d the written
// symbol is d mod k and the action d / k is either a (move, next state)
// pair or, for the last value, halt.
func decode(index uint64, states, symbols, ndim int, perRule uint64, rules []rule) {
	m := moves(ndim)
	k := uint64(symbols)
	for i := range rules {
		d := index % perRule
		index /= perRule
		a := int(d / k)
		rules[i] = rule{write: uint8(d % k)}
		if a == m*states {
			rules[i].halt = true

			continue
		}
		rules[i].move = a % m
		rules[i].next = a / m
	}
}

// machine is a reusable simulator. Cells live in a square (2-D) or linear
// (1-D) buffer centred on the start position and wide enough for MaxSteps
// moves in any direction; only the touched region is cleared between runs.
type machine struct {
	ndim     int
	symbols  int
	maxSteps int
	side     int // buffer side: 2·maxSteps+1
	cells    []uint8
	rules    []rule

	// visited bounds of the last run, inclusive
	r0, r1, c0, c1 int
}

func newMachine(states, symbols, ndim, maxSteps int) *machine {
	side := 2*maxSteps + 1
	n := side
	if ndim == 2 {
		n = side * side
	}

	return &machine{
		ndim:     ndim,
		symbols:  symbols,
		maxSteps: maxSteps,
		side:     side,
		cells:    make([]uint8, n),
		rules:    make([]rule, states*symbols),
	}
}

// run executes the decoded rules from state 0 on a blank buffer and reports
// whether the machine halted within maxSteps steps.
func (m *machine) run() bool {
	m.clear()
	mid := m.maxSteps
	r, c := mid, mid
	m.r0, m.r1, m.c0, m.c1 = mid, mid, mid, mid
	if m.ndim == 1 {
		r = 0
		m.r0, m.r1 = 0, 0
	}
	state := 0
	for step := 1; step <= m.maxSteps; step++ {
		at := r*m.side + c
		rl := m.rules[state*m.symbols+int(m.cells[at])]
		m.cells[at] = rl.write
		if rl.halt {
			return true
		}
		if m.ndim == 1 {
			c += 2*rl.move - 1
		} else {
			switch rl.move {
			case 0:
				r--
			case 1:
				c++
			case 2:
				r++
			case 3:
				c--
			}
			m.r0, m.r1 = min(m.r0, r), max(m.r1, r)
		}
		m.c0, m.c1 = min(m.c0, c), max(m.c1, c)
		state = rl.next
	}

	return false
}

// clear zeroes the region visited by the previous run.
func (m *machine) clear() {
	if m.r1 < m.r0 {
		return
	}
	for r := m.r0; r <= m.r1; r++ {
		row := m.cells[r*m.side : (r+1)*m.side]
		clear(row[m.c0 : m.c1+1])
	}
	m.r0, m.r1 = 0, -1
}

// extent returns the height and width of the visited region.
func (m *machine) extent() (h, w int) {
	return m.r1 - m.r0 + 1, m.c1 - m.c0 + 1
}

// windowKey is the block key of the h×w window at (r, c) of the visited region.
func (m *machine) windowKey(r, c, h, w int) array.Key {
	k := uint64(m.symbols)
	var key uint64
	for i := 0; i < h; i++ {
		base := (m.r0+r+i)*m.side + m.c0 + c
		for _, v := range m.cells[base : base+w] {
			key = key*k + uint64(v)
		}
	}

	return array.Key(key)
}
