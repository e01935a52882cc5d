// Package xlquote generates formatted quote workbooks from an .xlsx
// template: tiered-priced style entries, free-priced custom entries
// and hourly service entries are laid out over the template's
// variable regions, inserting rows, relocating the floating summary
// blocks and rewriting formulas to track the final layout.
package xlquote

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"github.com/javajack/xlquote/grid"
)

// Builder assembles quote workbooks from a template and a Request.
// One Builder may serve many requests; each Build run opens its own
// grid document so independent runs never share mutable state.
type Builder struct {
	opts *Options
	eval ExpressionEvaluator
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Builder{opts: o, eval: NewExpressionEvaluator()}
}

// Result carries the serialized workbook and the engine's own running
// totals, maintained with the same arithmetic the emitted formulas
// perform.
type Result struct {
	Bytes              []byte
	ItemsTotal         float64
	AddonsTotal        float64
	ServicesTotal      float64
	ServicesAddonTotal float64
}

// Build runs the full pipeline: plan capacity, insert rows, relocate
// the floating blocks, write line items, derive counts, expand header
// placeholders, synthesize formulas, and serialize. The services
// sheet is composed only when the request carries service entries;
// unused template sheets are dropped from the output.
func (b *Builder) Build(req *Request) (*Result, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc, err := b.openTemplate()
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	layout := b.opts.layout
	if !doc.HasSheet(layout.Dev.Sheet) {
		return nil, fmt.Errorf("%w: sheet %q", ErrTemplateNotFound, layout.Dev.Sheet)
	}

	res := &Result{}

	var cross *crossSheetTotals
	withServices := len(req.Services) > 0
	if withServices {
		if !doc.HasSheet(layout.Services.Sheet) {
			return nil, fmt.Errorf("%w: sheet %q", ErrTemplateNotFound, layout.Services.Sheet)
		}
		c, totals, err := b.buildServices(doc, req)
		if err != nil {
			return nil, fmt.Errorf("services sheet: %w", err)
		}
		cross = &c
		res.ServicesTotal = totals.Items
		res.ServicesAddonTotal = totals.Addons
	}

	totals, err := b.buildDev(doc, req, cross)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", layout.Dev.Sheet, err)
	}
	res.ItemsTotal = totals.Items
	res.AddonsTotal = totals.Addons

	if !b.opts.keepUnusedSheets {
		keep := []string{layout.Dev.Sheet}
		if withServices {
			keep = append(keep, layout.Services.Sheet)
		}
		if err := doc.KeepOnly(keep...); err != nil {
			return nil, err
		}
	}
	if b.opts.recalculateOnOpen {
		if err := doc.SetRecalcOnOpen(); err != nil {
			return nil, fmt.Errorf("set recalc: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	res.Bytes = buf.Bytes()
	return res, nil
}

func (b *Builder) openTemplate() (*grid.Document, error) {
	if b.opts.templateReader != nil {
		return grid.OpenReader(b.opts.templateReader)
	}
	if b.opts.templatePath == "" {
		return nil, fmt.Errorf("%w: no template configured", ErrTemplateNotFound)
	}
	doc, err := grid.Open(b.opts.templatePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, b.opts.templatePath)
		}
		return nil, err
	}
	return doc, nil
}

// buildDev composes the priced-entries sheet.
func (b *Builder) buildDev(doc *grid.Document, req *Request, cross *crossSheetTotals) (sheetTotals, error) {
	layout := &b.opts.layout.Dev
	pricing := b.opts.pricing
	sheet, err := doc.Sheet(layout.Sheet)
	if err != nil {
		return sheetTotals{}, err
	}

	plan, err := planCapacity(
		layout.FirstItemRow, layout.BaseCapacity,
		layout.TotalsRow, layout.TotalsRow, layout.BlockSpan.MinRow,
		planRegion{Name: "styles", Count: len(req.Styles)},
		planRegion{Name: "customs", Count: len(req.Customs)},
	)
	if err != nil {
		return sheetTotals{}, err
	}

	// The floating block must be lifted before any row shifts.
	snap, err := Capture(sheet, layout.BlockSpan)
	if err != nil {
		return sheetTotals{}, err
	}
	if plan.InsertRows > 0 {
		if err := sheet.InsertRows(plan.InsertBefore, plan.InsertRows); err != nil {
			return sheetTotals{}, err
		}
	}

	w := newItemWriter(sheet, layout, pricing)
	for i := plan.TotalCount(); i < layout.BaseCapacity; i++ {
		if err := w.clearPair(pairRow(layout.FirstItemRow, i)); err != nil {
			return sheetTotals{}, err
		}
	}
	if err := snap.Restore(sheet, plan.BlockAnchor); err != nil {
		return sheetTotals{}, err
	}

	blockSpan := layout.BlockSpan.ShiftRows(plan.InsertRows)
	flagged := 0
	if layout.Variant != nil {
		flagged = req.CountCategory(layout.Variant.TriggerCategory)
	}
	if flagged > 0 {
		blockSpan, err = b.applyVariant(sheet, layout, blockSpan, len(req.Styles), flagged)
		if err != nil {
			return sheetTotals{}, err
		}
	}

	// Values go in after the block is in place so value writes never
	// special-case relocated rows.
	totalCount := req.PricedCount()
	styles, _ := plan.Region("styles")
	for i, e := range req.Styles {
		unit := pricing.Resolve(e.Category, totalCount)
		if err := w.writeStyle(pairRow(styles.FirstRow, i), e, unit); err != nil {
			return sheetTotals{}, err
		}
	}
	customs, _ := plan.Region("customs")
	for i, e := range req.Customs {
		if err := w.writeCustom(pairRow(customs.FirstRow, i), e); err != nil {
			return sheetTotals{}, err
		}
	}

	if len(req.Styles) > 0 || len(req.Customs) > 0 {
		if err := b.writeCounts(sheet, layout, req, plan, blockSpan, flagged); err != nil {
			return sheetTotals{}, err
		}
	}
	if err := b.writeNotes(sheet, layout, req.Notes, plan); err != nil {
		return sheetTotals{}, err
	}
	if err := expandPlaceholders(sheet, layout.HeaderRows, b.eval, placeholderData(req),
		b.opts.notationBegin, b.opts.notationEnd); err != nil {
		return sheetTotals{}, err
	}

	// Formula synthesis runs last; nothing may shift rows after it.
	sy := &synthesizer{sheet: sheet, layout: layout, plan: plan}
	if err := sy.writeTotalsRow(); err != nil {
		return sheetTotals{}, err
	}
	if err := sy.writeSummary(cross); err != nil {
		return sheetTotals{}, err
	}
	if err := sy.writeDiscount(req.DiscountPercent); err != nil {
		return sheetTotals{}, err
	}
	if err := sy.writeTotalDue(req.DiscountPercent > 0); err != nil {
		return sheetTotals{}, err
	}
	if err := sy.repairStaleRefs(layout.TotalsRow); err != nil {
		return sheetTotals{}, err
	}
	return w.totals, nil
}

// applyVariant rewrites the relocated block for flagged entries: the
// replaced label row becomes the substitute label with the flagged
// count, and a nested insertion adds three derived label row-pairs
// below it, copy-formatted from the reference label's pair. This is a
// second, scoped round of capacity planning and relocation.
func (b *Builder) applyVariant(sheet *grid.Sheet, layout *SheetLayout, span grid.Region, styleCount, flagged int) (grid.Region, error) {
	v := layout.Variant
	labelCol := span.MinCol
	w := rowWindow{from: span.MinRow, to: span.MaxRow}

	replaced, err := LocateLabel(sheet, labelCol, []string{v.ReplacedLabel}, w)
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return span, nil
		}
		return span, err
	}
	reference, err := LocateLabel(sheet, labelCol, []string{v.ReferenceLabel}, rowWindow{from: span.MinRow, to: replaced})
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return span, nil
		}
		return span, err
	}

	// Substitute the label in place and put the flagged count beside it.
	for r := replaced; r <= replaced+1; r++ {
		if err := sheet.Clear(grid.Ref(r, labelCol+1)); err != nil {
			return span, err
		}
	}
	if err := sheet.SetValue(grid.Ref(replaced, labelCol), v.SubstituteLabel); err != nil {
		return span, err
	}
	if err := b.writeCountPair(sheet, replaced, labelCol+2, flagged); err != nil {
		return span, err
	}

	insertAt := replaced + 2
	if err := sheet.InsertRows(insertAt, len(v.InsertedLabels)*2); err != nil {
		return span, err
	}

	for i, label := range v.InsertedLabels {
		base := insertAt + i*2
		for off := 0; off <= 1; off++ {
			_ = sheet.CopyRowFormat(reference+off, base+off, span.MinCol, span.MaxCol)
		}
		labelSpan := grid.Region{MinRow: base, MaxRow: base + 1, MinCol: labelCol, MaxCol: labelCol + 1}
		if err := sheet.Merge(labelSpan); err != nil {
			return span, err
		}
		if err := sheet.SetValue(labelSpan.Anchor(), label); err != nil {
			return span, err
		}
		value := 1
		if v.InsertedKinds[i] == CountStyles {
			value = styleCount
		}
		if err := b.writeCountPair(sheet, base, labelCol+2, value); err != nil {
			return span, err
		}
	}

	span.MaxRow += len(v.InsertedLabels) * 2
	return span, nil
}

// writeCountPair merges the value cell across its row-pair and writes
// an integer count.
func (b *Builder) writeCountPair(sheet *grid.Sheet, row, col, value int) error {
	span := grid.Region{MinRow: row, MaxRow: row + 1, MinCol: col, MaxCol: col}
	if err := sheet.Merge(span); err != nil {
		return err
	}
	if err := sheet.SetValue(span.Anchor(), value); err != nil {
		return err
	}
	_ = sheet.SetNumberFormat(span.Anchor(), "0")
	return nil
}

// writeCounts derives every deliverable-count value inside the final
// block span. Counts are literal for entry tallies and live formulas
// for add-on and revision counts, always over the final row layout.
// A label missing from its scan window skips that one value.
func (b *Builder) writeCounts(sheet *grid.Sheet, layout *SheetLayout, req *Request, plan Plan, span grid.Region, flagged int) error {
	styles, _ := plan.Region("styles")
	lastStyleRow := styles.LastRow
	lastItemRow := plan.LastItemRow()
	firstRow := plan.FirstItemRow()
	w := rowWindow{from: span.MinRow, to: span.MaxRow}

	rules := layout.Counts
	if flagged > 0 && layout.Variant != nil {
		rules = append(rules[:len(rules):len(rules)], DeliverableCount{
			Label:    layout.Variant.SubstituteLabel,
			LabelCol: span.MinCol,
			ValueCol: span.MinCol + 2,
			Kind:     CountFlagged,
		})
	}

	for _, rule := range rules {
		row, err := LocateLabel(sheet, rule.LabelCol, []string{rule.Label}, w)
		if err != nil {
			if errors.Is(err, ErrBlockNotFound) {
				continue
			}
			return err
		}
		ref := grid.Ref(row, rule.ValueCol)
		if rule.MergePair {
			if err := sheet.Merge(grid.Region{MinRow: row, MaxRow: row + 1, MinCol: rule.ValueCol, MaxCol: rule.ValueCol}); err != nil {
				return err
			}
		}
		switch rule.Kind {
		case CountStyles:
			err = sheet.SetValue(ref, len(req.Styles))
		case CountOne:
			err = sheet.SetValue(ref, 1)
		case CountFlagged:
			err = sheet.SetValue(ref, flagged)
		case CountRevisions:
			// The tally inspects style rows only; without styles the
			// COUNTIF range would clamp onto the first customs row and a
			// custom priced at the flag price would read as a revision.
			if len(req.Styles) == 0 {
				err = sheet.SetValue(ref, 1)
				break
			}
			category := b.opts.pricing.DefaultCategory
			if layout.Variant != nil {
				category = layout.Variant.TriggerCategory
			}
			flagPrice := b.opts.pricing.Resolve(category, req.PricedCount())
			formula := fmt.Sprintf("IF(COUNTIF(%s:%s, %s) > 0, 2, 1)",
				grid.Ref(firstRow, layout.Columns.Price).Name(),
				grid.Ref(maxRow(lastStyleRow, firstRow), layout.Columns.Price).Name(),
				strconv.FormatFloat(flagPrice, 'f', -1, 64))
			err = sheet.SetFormula(ref, formula)
		case CountAddonColumn:
			col := grid.ColToName(rule.AddonCol)
			err = sheet.SetFormula(ref, fmt.Sprintf("COUNT(%s%d:%s%d)", col, firstRow, col, maxRow(lastItemRow, firstRow)))
		default:
			return fmt.Errorf("unknown count kind %q", rule.Kind)
		}
		if err != nil {
			return err
		}
		_ = sheet.SetNumberFormat(ref, "0")
	}
	return nil
}

// writeNotes writes free-text notes below the notes label, one note
// per row-pair, uppercased. No label, no notes.
func (b *Builder) writeNotes(sheet *grid.Sheet, layout *SheetLayout, notes []string, plan Plan) error {
	kept := notes[:0:0]
	for _, n := range notes {
		if strings.TrimSpace(n) != "" {
			kept = append(kept, strings.TrimSpace(n))
		}
	}
	if len(kept) == 0 {
		return nil
	}
	labelRow, err := LocateLabel(sheet, layout.NotesCol, []string{layout.NotesLabel},
		rowWindow{from: plan.TotalsRow, to: plan.TotalsRow + layout.ScanWindow})
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return nil
		}
		return err
	}
	rows, _ := sheet.Bounds()
	for i, note := range kept {
		row := labelRow + 1 + i*2
		if row > rows {
			break
		}
		if err := sheet.SetValue(grid.Ref(row, layout.NotesCol), strings.ToUpper(note)); err != nil {
			return err
		}
	}
	return nil
}

// buildServices composes the hourly-services sheet and returns the
// totals cells the development summary references.
func (b *Builder) buildServices(doc *grid.Document, req *Request) (crossSheetTotals, sheetTotals, error) {
	layout := &b.opts.layout.Services
	sheet, err := doc.Sheet(layout.Sheet)
	if err != nil {
		return crossSheetTotals{}, sheetTotals{}, err
	}

	plan, err := planCapacity(
		layout.FirstItemRow, layout.BaseCapacity,
		layout.BlockSpan.MinRow, layout.TotalsRow, layout.BlockSpan.MinRow,
		planRegion{Name: "services", Count: len(req.Services)},
	)
	if err != nil {
		return crossSheetTotals{}, sheetTotals{}, err
	}

	snap, err := Capture(sheet, layout.BlockSpan)
	if err != nil {
		return crossSheetTotals{}, sheetTotals{}, err
	}
	if plan.InsertRows > 0 {
		if err := sheet.InsertRows(plan.InsertBefore, plan.InsertRows); err != nil {
			return crossSheetTotals{}, sheetTotals{}, err
		}
	}

	w := newServiceWriter(sheet, layout, b.opts.pricing)
	for i := len(req.Services); i < layout.BaseCapacity; i++ {
		if err := w.clearPair(pairRow(layout.FirstItemRow, i)); err != nil {
			return crossSheetTotals{}, sheetTotals{}, err
		}
	}
	if err := snap.Restore(sheet, plan.BlockAnchor); err != nil {
		return crossSheetTotals{}, sheetTotals{}, err
	}

	svc, _ := plan.Region("services")
	for i, e := range req.Services {
		if err := w.writeService(pairRow(svc.FirstRow, i), e); err != nil {
			return crossSheetTotals{}, sheetTotals{}, err
		}
	}
	if err := w.finishDerived(); err != nil {
		return crossSheetTotals{}, sheetTotals{}, err
	}
	if err := b.writeServiceCounts(sheet, layout, req, plan, w); err != nil {
		return crossSheetTotals{}, sheetTotals{}, err
	}

	if err := expandPlaceholders(sheet, layout.HeaderRows, b.eval, placeholderData(req),
		b.opts.notationBegin, b.opts.notationEnd); err != nil {
		return crossSheetTotals{}, sheetTotals{}, err
	}

	cross, err := writeServiceTotals(sheet, layout, plan)
	if err != nil {
		return crossSheetTotals{}, sheetTotals{}, err
	}
	return cross, w.totals, nil
}

// writeServiceCounts fills the services breakdown panel inside the
// relocated block: item tallies per activity column, the shared
// fitting hours, per-unit spread amounts, and add-on column count
// formulas over the final row layout. Labels missing from the block
// skip their values.
func (b *Builder) writeServiceCounts(sheet *grid.Sheet, layout *ServiceLayout, req *Request, plan Plan, w *serviceWriter) error {
	span := layout.BlockSpan.ShiftRows(plan.InsertRows)
	win := rowWindow{from: span.MinRow, to: span.MaxRow}
	firstRow := plan.FirstItemRow()
	lastRow := maxRow(plan.LastItemRow(), firstRow)

	// Fitting hours are quoted once for the whole generation, so the
	// first entry's figure stands for every row of the panel.
	sharedHours := 0.0
	if len(req.Services) > 0 {
		sharedHours = req.Services[0].FittingHours
	}
	perUnit := w.perUnit()

	for _, rule := range layout.Counts {
		row, err := LocateLabel(sheet, rule.LabelCol, []string{rule.Label}, win)
		if err != nil {
			if errors.Is(err, ErrBlockNotFound) {
				continue
			}
			return err
		}
		ref := grid.Ref(row, rule.ValueCol)
		if rule.MergePair {
			if err := sheet.Merge(grid.Region{MinRow: row, MaxRow: row + 1, MinCol: rule.ValueCol, MaxCol: rule.ValueCol}); err != nil {
				return err
			}
		}
		format := "0"
		switch rule.Kind {
		case CountActivityItems:
			n := 0
			for _, e := range req.Services {
				if e.activityHours()[rule.Activity] > 0 {
					n++
				}
			}
			err = sheet.SetValue(ref, n)
		case CountSharedHours:
			if sharedHours != math.Trunc(sharedHours) {
				format = "0.00"
			}
			err = sheet.SetValue(ref, sharedHours)
		case CountPerUnit:
			format = "0.00"
			err = sheet.SetValue(ref, perUnit)
		case CountAddonColumn:
			col := grid.ColToName(rule.AddonCol)
			err = sheet.SetFormula(ref, fmt.Sprintf("COUNT(%s%d:%s%d)", col, firstRow, col, lastRow))
		default:
			return fmt.Errorf("unknown count kind %q", rule.Kind)
		}
		if err != nil {
			return err
		}
		_ = sheet.SetNumberFormat(ref, format)
	}
	return nil
}

func maxRow(a, b int) int {
	if a > b {
		return a
	}
	return b
}
