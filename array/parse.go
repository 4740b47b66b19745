// SPDX-License-Identifier: MIT

package array

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Parse reads an array from text: one row per line, symbols separated by
// whitespace or commas, or packed as digits ("010101"). Blank lines and
// lines starting with '#' are skipped. Brackets are ignored, so the output
// of String round-trips.
//
// With ndim == 1 the input must hold exactly one row; with ndim == 2 every
// row must have the same length.
func Parse(r io.Reader, ndim, alphabet int) (*Array, error) {
	var rows [][]int
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		row, err := parseRow(text)
		if err != nil {
			return nil, fmt.Errorf("array.Parse: line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("array.Parse: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("array.Parse: no rows: %w", ErrBadShape)
	}

	switch ndim {
	case 1:
		if len(rows) != 1 {
			return nil, fmt.Errorf("array.Parse: %d rows for a 1-D array: %w", len(rows), ErrRank)
		}

		return New1D(rows[0], alphabet)
	case 2:
		return New2D(rows, alphabet)
	default:
		return nil, fmt.Errorf("array.Parse: ndim %d: %w", ndim, ErrRank)
	}
}

// parseRow splits one text row into symbols.
func parseRow(text string) ([]int, error) {
	text = strings.NewReplacer("[", " ", "]", " ", ",", " ").Replace(text)
	fields := strings.Fields(text)
	if len(fields) == 1 && len(fields[0]) > 1 {
		// packed digits
		fields = strings.Split(fields[0], "")
	}
	row := make([]int, 0, len(fields))
	for _, f := range fields {
		if len(f) != 1 {
			return nil, fmt.Errorf("token %q: %w", f, ErrSyntax)
		}
		v, ok := charSymbol(f[0])
		if !ok {
			return nil, fmt.Errorf("token %q: %w", f, ErrSyntax)
		}
		row = append(row, v)
	}

	return row, nil
}
