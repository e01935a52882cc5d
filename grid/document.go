package grid

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Document wraps an excelize workbook with per-sheet bounds and a
// merge-region registry. Every mutation the layout engine performs
// goes through a Document so merge topology stays consistent with the
// underlying file.
//
// A Document is built fresh from a template for each assembly run and
// is not safe for concurrent use; independent runs must each open
// their own Document.
type Document struct {
	file   *excelize.File
	sheets map[string]*Sheet

	numFmtCache map[numFmtKey]int
}

type numFmtKey struct {
	base   int
	format string
}

// New wraps an already-open excelize file.
func New(f *excelize.File) (*Document, error) {
	d := &Document{
		file:        f,
		sheets:      make(map[string]*Sheet),
		numFmtCache: make(map[numFmtKey]int),
	}
	for _, name := range f.GetSheetList() {
		sheet, err := d.loadSheet(name)
		if err != nil {
			return nil, fmt.Errorf("load sheet %q: %w", name, err)
		}
		d.sheets[name] = sheet
	}
	return d, nil
}

// Open opens an xlsx file as a Document.
func Open(path string) (*Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	return New(f)
}

// OpenReader reads an xlsx stream as a Document.
func OpenReader(r io.Reader) (*Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return New(f)
}

func (d *Document) loadSheet(name string) (*Sheet, error) {
	s := &Sheet{doc: d, name: name, merges: newRegionIndex()}

	rows, err := d.file.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	s.rows = len(rows)
	for _, row := range rows {
		if len(row) > s.cols {
			s.cols = len(row)
		}
	}

	// The dimension element can declare a larger extent than the last
	// populated cell; the declared bounds are the larger of the two.
	if dim, err := d.file.GetSheetDimension(name); err == nil && dim != "" {
		if reg, err := parseDimension(dim); err == nil {
			if reg.MaxRow > s.rows {
				s.rows = reg.MaxRow
			}
			if reg.MaxCol > s.cols {
				s.cols = reg.MaxCol
			}
		}
	}

	if err := s.reloadMerges(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseDimension(dim string) (Region, error) {
	if !strings.Contains(dim, ":") {
		ref, err := ParseRef(dim)
		if err != nil {
			return Region{}, err
		}
		return Span(ref, ref), nil
	}
	return ParseRange(dim)
}

// Sheet returns the accessor for a named sheet.
func (d *Document) Sheet(name string) (*Sheet, error) {
	s, ok := d.sheets[name]
	if !ok {
		return nil, fmt.Errorf("sheet %q not in workbook", name)
	}
	return s, nil
}

// HasSheet reports whether the workbook contains the named sheet.
func (d *Document) HasSheet(name string) bool {
	_, ok := d.sheets[name]
	return ok
}

// SheetNames returns the sheet names in workbook order.
func (d *Document) SheetNames() []string {
	return d.file.GetSheetList()
}

// RenameSheet renames a sheet, keeping the registry in step.
func (d *Document) RenameSheet(old, new string) error {
	s, ok := d.sheets[old]
	if !ok {
		return fmt.Errorf("sheet %q not in workbook", old)
	}
	if err := d.file.SetSheetName(old, new); err != nil {
		return fmt.Errorf("rename sheet %q: %w", old, err)
	}
	s.name = new
	delete(d.sheets, old)
	d.sheets[new] = s
	return nil
}

// KeepOnly deletes every sheet not named. The output contains only the
// sheets relevant to the requested generation.
func (d *Document) KeepOnly(names ...string) error {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	for _, name := range d.file.GetSheetList() {
		if keep[name] {
			continue
		}
		if err := d.file.DeleteSheet(name); err != nil {
			return fmt.Errorf("delete sheet %q: %w", name, err)
		}
		delete(d.sheets, name)
	}
	return nil
}

// SetRecalcOnOpen tells Excel to recalculate all formulas when the
// output is opened.
func (d *Document) SetRecalcOnOpen() error {
	fullCalc := true
	return d.file.SetCalcProps(&excelize.CalcPropsOptions{FullCalcOnLoad: &fullCalc})
}

// Write serializes the workbook.
func (d *Document) Write(w io.Writer) error {
	return d.file.Write(w)
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.file.Close()
}

// File exposes the underlying excelize file for style creation.
func (d *Document) File() *excelize.File {
	return d.file
}

// Sheet is the merge-safe accessor for one sheet of a Document.
type Sheet struct {
	doc    *Document
	name   string
	rows   int
	cols   int
	merges *regionIndex
}

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// Bounds returns the sheet's declared row and column extent.
func (s *Sheet) Bounds() (rows, cols int) { return s.rows, s.cols }

func (s *Sheet) checkBounds(ref CellRef) error {
	if ref.Row < 1 || ref.Col < 1 || ref.Row > s.rows || ref.Col > s.cols {
		return fmt.Errorf("%w: %s on sheet %q (%d rows, %d cols)",
			ErrOutOfBounds, ref.Name(), s.name, s.rows, s.cols)
	}
	return nil
}

func (s *Sheet) reloadMerges() error {
	s.merges = newRegionIndex()
	cells, err := s.doc.file.GetMergeCells(s.name)
	if err != nil {
		return fmt.Errorf("read merges: %w", err)
	}
	for _, mc := range cells {
		reg, err := ParseRange(mc.GetStartAxis() + ":" + mc.GetEndAxis())
		if err != nil {
			return err
		}
		s.merges.add(reg)
	}
	return nil
}

// Value returns the cell's displayed value. A shadow cell reads as
// empty; the value lives at the merge anchor.
func (s *Sheet) Value(ref CellRef) (string, error) {
	if err := s.checkBounds(ref); err != nil {
		return "", err
	}
	return s.doc.file.GetCellValue(s.name, ref.Name())
}

// RawValue returns the cell's stored value without number formatting.
func (s *Sheet) RawValue(ref CellRef) (string, error) {
	if err := s.checkBounds(ref); err != nil {
		return "", err
	}
	return s.doc.file.GetCellValue(s.name, ref.Name(), excelize.Options{RawCellValue: true})
}

// Formula returns the cell's formula, without the leading "=", or ""
// if the cell holds a plain value.
func (s *Sheet) Formula(ref CellRef) (string, error) {
	if err := s.checkBounds(ref); err != nil {
		return "", err
	}
	return s.doc.file.GetCellFormula(s.name, ref.Name())
}

// MergeAt returns the merge region covering the cell, if any.
func (s *Sheet) MergeAt(ref CellRef) (Region, bool) {
	return s.merges.at(ref)
}

// Merges returns every merge region on the sheet in anchor order.
func (s *Sheet) Merges() []Region {
	return s.merges.all()
}

// OverlappingMerges returns the merge regions intersecting the span,
// contained or not.
func (s *Sheet) OverlappingMerges(span Region) []Region {
	return s.merges.overlapping(span)
}

// MergesWithin returns the merge regions fully contained in the span.
func (s *Sheet) MergesWithin(span Region) []Region {
	var out []Region
	for _, r := range s.merges.overlapping(span) {
		if span.ContainsRegion(r) {
			out = append(out, r)
		}
	}
	return out
}

// normalize makes the cell an ordinary writable cell: a write to a
// merge's anchor is already safe and keeps the merge; a write to a
// shadow cell tears the covering merge down first so the value never
// vanishes behind the anchor. Calling it on an unmerged cell is a
// no-op index lookup.
func (s *Sheet) normalize(ref CellRef) error {
	reg, ok := s.merges.at(ref)
	if !ok || reg.Anchor() == ref {
		return nil
	}
	return s.Unmerge(reg)
}

// SetValue writes a value into the cell. If the cell is a shadow cell
// of a merge, the merge is torn down first; the cell's style survives
// the write. A nil value clears the cell.
func (s *Sheet) SetValue(ref CellRef, value any) error {
	if err := s.checkBounds(ref); err != nil {
		return err
	}
	if err := s.normalize(ref); err != nil {
		return err
	}
	cell := ref.Name()
	styleID, _ := s.doc.file.GetCellStyle(s.name, cell)
	if err := s.doc.file.SetCellValue(s.name, cell, value); err != nil {
		return fmt.Errorf("set %s!%s: %w", s.name, cell, err)
	}
	if styleID > 0 {
		s.doc.file.SetCellStyle(s.name, cell, cell, styleID)
	}
	return nil
}

// SetFormula writes a formula (without the leading "=") into the cell,
// merge-safe like SetValue.
func (s *Sheet) SetFormula(ref CellRef, formula string) error {
	if err := s.checkBounds(ref); err != nil {
		return err
	}
	if err := s.normalize(ref); err != nil {
		return err
	}
	cell := ref.Name()
	if err := s.doc.file.SetCellFormula(s.name, cell, formula); err != nil {
		return fmt.Errorf("set formula %s!%s: %w", s.name, cell, err)
	}
	return nil
}

// Clear blanks the cell's value and formula, keeping its style.
func (s *Sheet) Clear(ref CellRef) error {
	if err := s.checkBounds(ref); err != nil {
		return err
	}
	if err := s.normalize(ref); err != nil {
		return err
	}
	cell := ref.Name()
	if f, _ := s.doc.file.GetCellFormula(s.name, cell); f != "" {
		if err := s.doc.file.SetCellFormula(s.name, cell, ""); err != nil {
			return fmt.Errorf("clear formula %s!%s: %w", s.name, cell, err)
		}
	}
	styleID, _ := s.doc.file.GetCellStyle(s.name, cell)
	if err := s.doc.file.SetCellValue(s.name, cell, nil); err != nil {
		return fmt.Errorf("clear %s!%s: %w", s.name, cell, err)
	}
	if styleID > 0 {
		s.doc.file.SetCellStyle(s.name, cell, cell, styleID)
	}
	return nil
}

// StyleOf returns the cell's style ID, or 0.
func (s *Sheet) StyleOf(ref CellRef) int {
	id, _ := s.doc.file.GetCellStyle(s.name, ref.Name())
	return id
}

// SetStyle applies a style ID to the cell.
func (s *Sheet) SetStyle(ref CellRef, styleID int) error {
	cell := ref.Name()
	return s.doc.file.SetCellStyle(s.name, cell, cell, styleID)
}

// SetRangeStyle applies a style ID to every cell in the span.
func (s *Sheet) SetRangeStyle(span Region, styleID int) error {
	return s.doc.file.SetCellStyle(s.name, span.Anchor().Name(), span.End().Name(), styleID)
}

// SetNumberFormat rebuilds the cell's style with the given custom
// number format, keeping font, fill, border and alignment. Derived
// styles are cached per (base style, format) pair.
func (s *Sheet) SetNumberFormat(ref CellRef, format string) error {
	cell := ref.Name()
	base, _ := s.doc.file.GetCellStyle(s.name, cell)
	key := numFmtKey{base: base, format: format}
	derived, ok := s.doc.numFmtCache[key]
	if !ok {
		style := &excelize.Style{}
		if base > 0 {
			if have, err := s.doc.file.GetStyle(base); err == nil && have != nil {
				style = have
			}
		}
		style.CustomNumFmt = &format
		id, err := s.doc.file.NewStyle(style)
		if err != nil {
			return fmt.Errorf("derive number format %q: %w", format, err)
		}
		derived = id
		s.doc.numFmtCache[key] = derived
	}
	return s.doc.file.SetCellStyle(s.name, cell, cell, derived)
}

// Merge creates a merge region over the span. Any region overlapping
// the span is torn down first, in up to 3 passes: unmerging one region
// can expose a second overlapping region left behind by a prior
// malformed merge.
func (s *Sheet) Merge(span Region) error {
	if !span.Valid() {
		return fmt.Errorf("%w: merge %s", ErrInvalidRange, span.Name())
	}
	if err := s.checkBounds(span.End()); err != nil {
		return err
	}
	for pass := 0; pass < 3; pass++ {
		overlapping := s.merges.overlapping(span)
		if len(overlapping) == 0 {
			break
		}
		for _, reg := range overlapping {
			if err := s.Unmerge(reg); err != nil {
				return err
			}
		}
	}
	if err := s.doc.file.MergeCell(s.name, span.Anchor().Name(), span.End().Name()); err != nil {
		return fmt.Errorf("merge %s!%s: %w", s.name, span.Name(), err)
	}
	s.merges.add(span)
	return nil
}

// Unmerge tears down the merge region.
func (s *Sheet) Unmerge(span Region) error {
	if err := s.doc.file.UnmergeCell(s.name, span.Anchor().Name(), span.End().Name()); err != nil {
		return fmt.Errorf("unmerge %s!%s: %w", s.name, span.Name(), err)
	}
	s.merges.remove(span)
	return nil
}

// InsertRows inserts count rows before beforeRow, shifting every cell
// and merge region at or below beforeRow down. Merges whose row span
// overlaps the inserted band are torn down: the caller owns rebuilding
// the topology it wants there. Formula references are left untouched;
// reference repair belongs to formula synthesis, not the grid.
func (s *Sheet) InsertRows(beforeRow, count int) error {
	if count <= 0 {
		return fmt.Errorf("%w: insert %d rows", ErrInvalidRange, count)
	}
	if beforeRow < 1 || beforeRow > s.rows+1 {
		return fmt.Errorf("%w: insert before row %d on sheet %q (%d rows)",
			ErrOutOfBounds, beforeRow, s.name, s.rows)
	}
	if err := s.doc.file.InsertRows(s.name, beforeRow, count); err != nil {
		return fmt.Errorf("insert %d rows before %d on %q: %w", count, beforeRow, s.name, err)
	}
	s.rows += count

	// excelize stretches merges spanning the insertion point; resync
	// and tear down everything touching the inserted band.
	if err := s.reloadMerges(); err != nil {
		return err
	}
	for pass := 0; pass < 3; pass++ {
		touching := s.merges.overlappingRows(beforeRow, beforeRow+count-1)
		if len(touching) == 0 {
			break
		}
		for _, reg := range touching {
			if err := s.Unmerge(reg); err != nil {
				return err
			}
		}
	}
	return nil
}

// CopyRowFormat copies per-cell style IDs from srcRow to dstRow across
// the column span, without touching values.
func (s *Sheet) CopyRowFormat(srcRow, dstRow, minCol, maxCol int) error {
	for col := minCol; col <= maxCol; col++ {
		src := CellRef{Row: srcRow, Col: col}
		dst := CellRef{Row: dstRow, Col: col}
		if err := s.checkBounds(dst); err != nil {
			return err
		}
		if id := s.StyleOf(src); id > 0 {
			if err := s.SetStyle(dst, id); err != nil {
				return fmt.Errorf("copy format %s -> %s: %w", src.Name(), dst.Name(), err)
			}
		}
	}
	return nil
}
