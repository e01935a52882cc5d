// Package grid provides the in-memory grid document model the layout
// engine mutates: structured cell references, merge regions with a
// row-bucketed spatial index, and merge-safe read/write primitives on
// top of an excelize workbook.
package grid

import (
	"fmt"
	"strings"
)

// CellRef is a single cell position. Row and Col are 1-based, matching
// the row/column numbers Excel displays.
type CellRef struct {
	Row int
	Col int
}

// Ref creates a CellRef from 1-based row and column numbers.
func Ref(row, col int) CellRef {
	return CellRef{Row: row, Col: col}
}

// ParseRef parses a cell name like "B10" or "$B$10" into a CellRef.
func ParseRef(name string) (CellRef, error) {
	s := strings.ReplaceAll(strings.TrimSpace(name), "$", "")
	if s == "" {
		return CellRef{}, fmt.Errorf("%w: empty cell name", ErrInvalidRange)
	}

	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return CellRef{}, fmt.Errorf("%w: cell name %q", ErrInvalidRange, name)
	}

	col, err := NameToCol(s[:i])
	if err != nil {
		return CellRef{}, err
	}

	row := 0
	for _, ch := range s[i:] {
		if ch < '0' || ch > '9' {
			return CellRef{}, fmt.Errorf("%w: cell name %q", ErrInvalidRange, name)
		}
		row = row*10 + int(ch-'0')
	}
	if row < 1 {
		return CellRef{}, fmt.Errorf("%w: cell name %q", ErrInvalidRange, name)
	}
	return CellRef{Row: row, Col: col}, nil
}

// MustRef is ParseRef that panics on malformed input. For fixed layout
// constants only.
func MustRef(name string) CellRef {
	ref, err := ParseRef(name)
	if err != nil {
		panic(err)
	}
	return ref
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// Name returns the cell in A1 notation.
func (c CellRef) Name() string {
	return ColToName(c.Col) + fmt.Sprintf("%d", c.Row)
}

func (c CellRef) String() string { return c.Name() }

// Offset returns the cell shifted by the given number of rows and columns.
func (c CellRef) Offset(rows, cols int) CellRef {
	return CellRef{Row: c.Row + rows, Col: c.Col + cols}
}

// ColToName converts a 1-based column number to its name.
// 1→"A", 26→"Z", 27→"AA".
func ColToName(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// NameToCol converts a column name to its 1-based number.
// "A"→1, "Z"→26, "AA"→27.
func NameToCol(name string) (int, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, fmt.Errorf("%w: empty column name", ErrInvalidRange)
	}
	col := 0
	for _, ch := range name {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("%w: column name %q", ErrInvalidRange, name)
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col, nil
}

// MustCol is NameToCol that panics on malformed input.
func MustCol(name string) int {
	col, err := NameToCol(name)
	if err != nil {
		panic(err)
	}
	return col
}
