package xlquote

import "fmt"

// RegionPlan places one variable region of a sheet after planning.
type RegionPlan struct {
	Name     string
	Count    int
	FirstRow int
	// LastRow is the second physical row of the last row-pair, or
	// FirstRow-1 when the region is empty.
	LastRow int
}

// Plan is the outcome of capacity planning for one sheet: a single
// insertion, the final anchors of every region and of the floating
// block, and the final totals row. Rows are applied top-to-bottom in
// exactly one InsertRows call; incremental insertion is disallowed
// because it would invalidate row numbers computed for later regions.
type Plan struct {
	InsertBefore int
	InsertRows   int
	Regions      []RegionPlan
	TotalsRow    int
	BlockAnchor  int
}

// planRegion is one independently growing region, in top-to-bottom
// sheet order.
type planRegion struct {
	Name  string
	Count int
}

// planCapacity lays out sequential row-pair regions over a shared
// base capacity. Regions consume the template's reserved pairs in
// order; pairs beyond the base capacity become inserted rows, two per
// overflowing pair, all inserted in one band at insertBefore (the
// first template row below the reserved pairs, which is also where
// the floating block region begins shifting). A zero-count region
// contributes nothing and the block stays at its template anchor when
// everything fits.
func planCapacity(layoutFirstRow, baseCapacity, insertBefore, totalsRow, blockAnchor int, regions ...planRegion) (Plan, error) {
	if baseCapacity < 0 {
		return Plan{}, fmt.Errorf("plan: negative base capacity %d", baseCapacity)
	}
	total := 0
	for _, r := range regions {
		if r.Count < 0 {
			return Plan{}, fmt.Errorf("plan: region %q has negative count %d", r.Name, r.Count)
		}
		total += r.Count
	}

	extraPairs := total - baseCapacity
	if extraPairs < 0 {
		extraPairs = 0
	}
	insert := extraPairs * 2

	// The inserted band may not reach past the block anchor: round any
	// overlap up to a whole row-pair so no pair straddles the block.
	if rem := insert % 2; rem != 0 {
		insert += 2 - rem
	}

	p := Plan{
		InsertBefore: insertBefore,
		InsertRows:   insert,
		TotalsRow:    totalsRow + insert,
		BlockAnchor:  blockAnchor + insert,
	}

	row := layoutFirstRow
	for _, r := range regions {
		rp := RegionPlan{Name: r.Name, Count: r.Count, FirstRow: row}
		if r.Count > 0 {
			rp.LastRow = row + r.Count*2 - 1
			row = rp.LastRow + 1
		} else {
			rp.LastRow = row - 1
		}
		p.Regions = append(p.Regions, rp)
	}
	return p, nil
}

// Region returns the named region's placement.
func (p Plan) Region(name string) (RegionPlan, bool) {
	for _, r := range p.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return RegionPlan{}, false
}

// FirstItemRow returns the first row of the first region.
func (p Plan) FirstItemRow() int {
	if len(p.Regions) == 0 {
		return 0
	}
	return p.Regions[0].FirstRow
}

// LastItemRow returns the last physical row holding an entry across
// all regions, or firstRow-1 when every region is empty.
func (p Plan) LastItemRow() int {
	last := p.FirstItemRow() - 1
	for _, r := range p.Regions {
		if r.Count > 0 && r.LastRow > last {
			last = r.LastRow
		}
	}
	return last
}

// TotalCount sums the entry counts across regions.
func (p Plan) TotalCount() int {
	n := 0
	for _, r := range p.Regions {
		n += r.Count
	}
	return n
}
