package grid

import (
	"fmt"
	"sort"
	"strings"
)

// Region is a rectangular cell span, all bounds 1-based and inclusive.
// A merge region displays as one cell: the top-left anchor holds the
// value, every other cell in the span is a shadow cell.
type Region struct {
	MinRow int
	MaxRow int
	MinCol int
	MaxCol int
}

// Span creates a Region from two corner refs in either order.
func Span(a, b CellRef) Region {
	r := Region{MinRow: a.Row, MaxRow: b.Row, MinCol: a.Col, MaxCol: b.Col}
	if r.MinRow > r.MaxRow {
		r.MinRow, r.MaxRow = r.MaxRow, r.MinRow
	}
	if r.MinCol > r.MaxCol {
		r.MinCol, r.MaxCol = r.MaxCol, r.MinCol
	}
	return r
}

// ParseRange parses "B10:C11" into a Region.
func ParseRange(s string) (Region, error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return Region{}, fmt.Errorf("%w: %q is not an A1:B2 range", ErrInvalidRange, s)
	}
	a, err := ParseRef(s[:i])
	if err != nil {
		return Region{}, fmt.Errorf("range %q: %w", s, err)
	}
	b, err := ParseRef(s[i+1:])
	if err != nil {
		return Region{}, fmt.Errorf("range %q: %w", s, err)
	}
	return Span(a, b), nil
}

// MustRange is ParseRange for compile-time-constant ranges; it panics
// on malformed input.
func MustRange(s string) Region {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Anchor returns the top-left cell of the region.
func (r Region) Anchor() CellRef {
	return CellRef{Row: r.MinRow, Col: r.MinCol}
}

// End returns the bottom-right cell of the region.
func (r Region) End() CellRef {
	return CellRef{Row: r.MaxRow, Col: r.MaxCol}
}

// Name returns the region in "A1:B2" notation.
func (r Region) Name() string {
	return r.Anchor().Name() + ":" + r.End().Name()
}

func (r Region) String() string { return r.Name() }

// Valid reports whether the region is well formed and spans at least
// two cells. A single-cell or inverted span is not a mergeable range.
func (r Region) Valid() bool {
	if r.MinRow < 1 || r.MinCol < 1 || r.MinRow > r.MaxRow || r.MinCol > r.MaxCol {
		return false
	}
	return r.MaxRow > r.MinRow || r.MaxCol > r.MinCol
}

// Contains reports whether the cell lies inside the region.
func (r Region) Contains(c CellRef) bool {
	return c.Row >= r.MinRow && c.Row <= r.MaxRow && c.Col >= r.MinCol && c.Col <= r.MaxCol
}

// ContainsRegion reports whether o lies entirely inside r.
func (r Region) ContainsRegion(o Region) bool {
	return o.MinRow >= r.MinRow && o.MaxRow <= r.MaxRow && o.MinCol >= r.MinCol && o.MaxCol <= r.MaxCol
}

// Overlaps reports whether the two regions share at least one cell.
func (r Region) Overlaps(o Region) bool {
	return r.MinRow <= o.MaxRow && r.MaxRow >= o.MinRow && r.MinCol <= o.MaxCol && r.MaxCol >= o.MinCol
}

// OverlapsRows reports whether the region's row span intersects [lo, hi].
func (r Region) OverlapsRows(lo, hi int) bool {
	return r.MinRow <= hi && r.MaxRow >= lo
}

// ShiftRows returns the region moved down by n rows (negative n moves up).
func (r Region) ShiftRows(n int) Region {
	return Region{MinRow: r.MinRow + n, MaxRow: r.MaxRow + n, MinCol: r.MinCol, MaxCol: r.MaxCol}
}

// Rows returns the region height in rows.
func (r Region) Rows() int { return r.MaxRow - r.MinRow + 1 }

// regionIndex is a spatial index over merge regions, bucketed by row.
// Merge spans in quote templates are short (row pairs, small blocks),
// so a per-row bucket gives O(rows-scanned + hits) stabbing and range
// queries instead of a scan over every region on every write.
type regionIndex struct {
	byRow map[int][]Region
	count int
}

func newRegionIndex() *regionIndex {
	return &regionIndex{byRow: make(map[int][]Region)}
}

func (ix *regionIndex) add(r Region) {
	for row := r.MinRow; row <= r.MaxRow; row++ {
		ix.byRow[row] = append(ix.byRow[row], r)
	}
	ix.count++
}

func (ix *regionIndex) remove(r Region) {
	for row := r.MinRow; row <= r.MaxRow; row++ {
		bucket := ix.byRow[row]
		for i, have := range bucket {
			if have == r {
				ix.byRow[row] = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
		if len(ix.byRow[row]) == 0 {
			delete(ix.byRow, row)
		}
	}
	ix.count--
}

// at returns the region covering the cell, if any. Regions never
// overlap, so at most one region can cover a cell.
func (ix *regionIndex) at(c CellRef) (Region, bool) {
	for _, r := range ix.byRow[c.Row] {
		if r.Contains(c) {
			return r, true
		}
	}
	return Region{}, false
}

// overlapping returns every region sharing at least one cell with q,
// deduplicated, in anchor order.
func (ix *regionIndex) overlapping(q Region) []Region {
	seen := make(map[Region]struct{})
	var out []Region
	for row := q.MinRow; row <= q.MaxRow; row++ {
		for _, r := range ix.byRow[row] {
			if _, dup := seen[r]; dup {
				continue
			}
			if r.Overlaps(q) {
				seen[r] = struct{}{}
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MinRow != out[j].MinRow {
			return out[i].MinRow < out[j].MinRow
		}
		return out[i].MinCol < out[j].MinCol
	})
	return out
}

// overlappingRows returns every region whose row span intersects [lo, hi].
func (ix *regionIndex) overlappingRows(lo, hi int) []Region {
	return ix.overlapping(Region{MinRow: lo, MaxRow: hi, MinCol: 1, MaxCol: 1 << 20})
}

// all returns every indexed region in anchor order.
func (ix *regionIndex) all() []Region {
	seen := make(map[Region]struct{})
	var out []Region
	for _, bucket := range ix.byRow {
		for _, r := range bucket {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MinRow != out[j].MinRow {
			return out[i].MinRow < out[j].MinRow
		}
		return out[i].MinCol < out[j].MinCol
	})
	return out
}
