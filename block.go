package xlquote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/javajack/xlquote/grid"
)

// capturedCell is one cell of a block snapshot. Values are kept as
// the raw stored strings and coerced back to numbers on restore.
type capturedCell struct {
	value   string
	formula string
	styleID int
}

// capturedMerge records an internal merge as row offsets from the
// block's top edge; columns stay absolute because blocks only ever
// move vertically.
type capturedMerge struct {
	rowOff, rowEndOff int
	minCol, maxCol    int
}

// Snapshot is a floating block lifted off the sheet: every cell's
// value, formula and style plus every merge fully contained in the
// span, all relative to the block's top edge. Capture must run before
// any insertion that could shift or destroy the block's cells.
type Snapshot struct {
	span   grid.Region
	cells  [][]capturedCell
	merges []capturedMerge
}

// Capture reads the block's current span off the sheet.
func Capture(s *grid.Sheet, span grid.Region) (*Snapshot, error) {
	snap := &Snapshot{span: span}
	for row := span.MinRow; row <= span.MaxRow; row++ {
		line := make([]capturedCell, 0, span.MaxCol-span.MinCol+1)
		for col := span.MinCol; col <= span.MaxCol; col++ {
			ref := grid.Ref(row, col)
			value, err := s.RawValue(ref)
			if err != nil {
				return nil, fmt.Errorf("capture %s: %w", ref.Name(), err)
			}
			formula, err := s.Formula(ref)
			if err != nil {
				return nil, fmt.Errorf("capture %s: %w", ref.Name(), err)
			}
			line = append(line, capturedCell{
				value:   value,
				formula: formula,
				styleID: s.StyleOf(ref),
			})
		}
		snap.cells = append(snap.cells, line)
	}
	for _, m := range s.MergesWithin(span) {
		snap.merges = append(snap.merges, capturedMerge{
			rowOff:    m.MinRow - span.MinRow,
			rowEndOff: m.MaxRow - span.MinRow,
			minCol:    m.MinCol,
			maxCol:    m.MaxCol,
		})
	}
	return snap, nil
}

// Height returns the block's row count.
func (snap *Snapshot) Height() int { return snap.span.Rows() }

// Restore writes the snapshot back with its top edge at anchorRow:
// tears down whatever merges occupy the target span, writes every
// captured cell, then rebuilds the captured merges at offset.
func (snap *Snapshot) Restore(s *grid.Sheet, anchorRow int) error {
	target := grid.Region{
		MinRow: anchorRow,
		MaxRow: anchorRow + snap.Height() - 1,
		MinCol: snap.span.MinCol,
		MaxCol: snap.span.MaxCol,
	}
	for _, m := range s.OverlappingMerges(target) {
		if err := s.Unmerge(m); err != nil {
			return fmt.Errorf("restore block at row %d: %w", anchorRow, err)
		}
	}
	for rowOff, line := range snap.cells {
		for colOff, cell := range line {
			ref := grid.Ref(anchorRow+rowOff, snap.span.MinCol+colOff)
			if err := writeCaptured(s, ref, cell); err != nil {
				return fmt.Errorf("restore block at row %d: %w", anchorRow, err)
			}
		}
	}
	for _, m := range snap.merges {
		span := grid.Region{
			MinRow: anchorRow + m.rowOff,
			MaxRow: anchorRow + m.rowEndOff,
			MinCol: m.minCol,
			MaxCol: m.maxCol,
		}
		if err := s.Merge(span); err != nil {
			return fmt.Errorf("restore block merge %s: %w", span.Name(), err)
		}
	}
	return nil
}

func writeCaptured(s *grid.Sheet, ref grid.CellRef, cell capturedCell) error {
	switch {
	case cell.formula != "":
		if err := s.SetFormula(ref, cell.formula); err != nil {
			return err
		}
	case cell.value == "":
		if err := s.Clear(ref); err != nil {
			return err
		}
	default:
		if err := s.SetValue(ref, coerceValue(cell.value)); err != nil {
			return err
		}
	}
	if cell.styleID > 0 {
		if err := s.SetStyle(ref, cell.styleID); err != nil {
			return err
		}
	}
	return nil
}

// coerceValue turns a raw stored string back into the value type the
// cell held: numbers stay numbers so number formats keep applying.
func coerceValue(raw string) any {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// rowWindow bounds a label scan.
type rowWindow struct {
	from, to int
}

// LocateLabel scans one column of the window for a cell whose text
// matches any candidate, case-insensitive. An exact match (after
// trimming) wins over a substring match; among substring matches the
// topmost row wins. Returns ErrBlockNotFound when no row matches —
// the template contract is label text, not fixed row numbers, so
// minor template edits that keep labels keep working.
func LocateLabel(s *grid.Sheet, col int, candidates []string, w rowWindow) (int, error) {
	rows, _ := s.Bounds()
	if w.to > rows {
		w.to = rows
	}
	lowered := make([]string, len(candidates))
	for i, c := range candidates {
		lowered[i] = strings.ToLower(strings.TrimSpace(c))
	}
	partial := 0
	for row := w.from; row <= w.to; row++ {
		value, err := s.Value(grid.Ref(row, col))
		if err != nil {
			return 0, fmt.Errorf("scan row %d: %w", row, err)
		}
		if value == "" {
			continue
		}
		clean := strings.ToLower(strings.TrimSpace(value))
		for _, want := range lowered {
			if want == "" {
				continue
			}
			if clean == want {
				return row, nil
			}
			if strings.Contains(clean, want) && partial == 0 {
				partial = row
			}
		}
	}
	if partial > 0 {
		return partial, nil
	}
	return 0, fmt.Errorf("%w: %q in %s%d:%s%d", ErrBlockNotFound,
		strings.Join(candidates, "|"), grid.ColToName(col), w.from, grid.ColToName(col), w.to)
}
