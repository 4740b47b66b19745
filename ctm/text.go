// SPDX-License-Identifier: MIT

package ctm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/katalvlaran/kcomplex/array"
)

// ReadText imports a table from "block<TAB>value" (or "block,value") lines.
// Blocks use the array.FormatBlock spelling: "0101" for 1-D, "01-10" for 2-D.
// Blank lines and '#' comments are skipped, except a leading "# reduced"
// line, which builds a symmetry-reduced table as written by WriteText.
// The source string is stored in the table's Meta.
func ReadText(r io.Reader, alphabet, ndim int, source string) (*Table, error) {
	b := NewBuilder(alphabet, ndim).WithMeta(Meta{Source: source})
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == reducedHeader {
			b.WithReduced()

			continue
		}
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool { return r == '\t' || r == ',' || r == ' ' })
		if len(fields) != 2 {
			return nil, fmt.Errorf("ctm.ReadText: line %d: want 2 fields, got %d: %w", line, len(fields), array.ErrSyntax)
		}
		blk, err := array.ParseBlock(strings.Trim(fields[0], `"'`), ndim, alphabet)
		if err != nil {
			return nil, fmt.Errorf("ctm.ReadText: line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("ctm.ReadText: line %d: %v: %w", line, err, ErrBadValue)
		}
		if err := b.Set(blk, v); err != nil {
			return nil, fmt.Errorf("ctm.ReadText: line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ctm.ReadText: %w", err)
	}

	return b.Build()
}

const reducedHeader = "# reduced"

// WriteText exports every stored entry as "block<TAB>value" lines in the
// order of Entries. Reduced tables export canonical representatives only,
// after a "# reduced" header line.
func WriteText(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	if t.reduced {
		if _, err := fmt.Fprintln(bw, reducedHeader); err != nil {
			return err
		}
	}
	var werr error
	t.Entries(func(shape []int, key array.Key, value float64) bool {
		blk, err := array.FromKey(shape, key, t.alphabet)
		if err != nil {
			werr = err

			return false
		}
		_, werr = fmt.Fprintf(bw, "%s\t%s\n", array.FormatBlock(blk), strconv.FormatFloat(value, 'g', -1, 64))

		return werr == nil
	})
	if werr != nil {
		return werr
	}

	return bw.Flush()
}
