package xlquote

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/javajack/xlquote/grid"
)

type entryKind int

const (
	kindStyle entryKind = iota
	kindCustom
	kindService
)

// FormattingProfile is the per-row styling policy, looked up once per
// row-pair instead of branched per column. Overflow rows (pairs that
// live on inserted rows) additionally inherit the cell formats of the
// last template pair.
type FormattingProfile struct {
	CurrencyFormat   string
	MultiplierFormat string
	TextFormat       string
	CopyRowFormat    bool
}

type formattingKey struct {
	kind     entryKind
	overflow bool
}

var formattingProfiles = map[formattingKey]FormattingProfile{
	{kindStyle, false}:   {CurrencyFormat: `"$"#,##0`, MultiplierFormat: "0%"},
	{kindStyle, true}:    {CurrencyFormat: `"$"#,##0`, MultiplierFormat: "0%", CopyRowFormat: true},
	{kindCustom, false}:  {CurrencyFormat: `"$"#,##0`, MultiplierFormat: "0%"},
	{kindCustom, true}:   {CurrencyFormat: `"$"#,##0`, MultiplierFormat: "0%", CopyRowFormat: true},
	{kindService, false}: {CurrencyFormat: `"$"#,##0`, TextFormat: "@"},
	{kindService, true}:  {CurrencyFormat: `"$"#,##0`, TextFormat: "@", CopyRowFormat: true},
}

func profileFor(kind entryKind, overflow bool) FormattingProfile {
	return formattingProfiles[formattingKey{kind: kind, overflow: overflow}]
}

// sheetTotals are the two per-sheet accumulators the synthesizer and
// the cross-sheet grand total consume. They are maintained with the
// same arithmetic the emitted row formulas perform, so the engine's
// totals match a recalculation.
type sheetTotals struct {
	Items  float64
	Addons float64
}

// itemWriter fills the variable region of the priced-entries sheet.
type itemWriter struct {
	sheet   *grid.Sheet
	layout  *SheetLayout
	pricing *PricingConfig
	totals  sheetTotals
}

func newItemWriter(sheet *grid.Sheet, layout *SheetLayout, pricing *PricingConfig) *itemWriter {
	return &itemWriter{sheet: sheet, layout: layout, pricing: pricing}
}

// overflow reports whether the pair at row lives beyond the
// template's reserved rows.
func (w *itemWriter) overflow(row int) bool {
	return row >= w.layout.FirstItemRow+w.layout.BaseCapacity*2
}

// pairCell merges the column vertically across the pair and returns
// the anchor ref.
func (w *itemWriter) pairCell(row, col int) (grid.CellRef, error) {
	span := grid.Region{MinRow: row, MaxRow: row + 1, MinCol: col, MaxCol: col}
	if err := w.sheet.Merge(span); err != nil {
		return grid.CellRef{}, err
	}
	return span.Anchor(), nil
}

func (w *itemWriter) writeNumberLabel(row int, number int, label string, prof FormattingProfile) error {
	cols := w.layout.Columns
	ref, err := w.pairCell(row, cols.Number)
	if err != nil {
		return err
	}
	if err := w.sheet.SetValue(ref, number); err != nil {
		return err
	}
	ref, err = w.pairCell(row, cols.Label)
	if err != nil {
		return err
	}
	return w.sheet.SetValue(ref, label)
}

// writeStyle fills one row-pair from a style entry. unitPrice is
// already resolved against the generation's total priced count.
func (w *itemWriter) writeStyle(row int, e StyleEntry, unitPrice float64) error {
	price := unitPrice
	if e.PriceOverride > 0 {
		price = e.PriceOverride
	}
	return w.writePriced(row, kindStyle, e.Number, e.Label, price, e.MultiplierPercent, e.Addons)
}

// writeCustom fills one row-pair from a free-priced entry.
func (w *itemWriter) writeCustom(row int, e CustomEntry) error {
	return w.writePriced(row, kindCustom, e.Number, e.Label, e.Price, e.MultiplierPercent, e.Addons)
}

func (w *itemWriter) writePriced(row int, kind entryKind, number int, label string, price, multiplierPct float64, addons AddonFlags) error {
	cols := w.layout.Columns
	prof := profileFor(kind, w.overflow(row))
	if prof.CopyRowFormat {
		lastPair := w.layout.FirstItemRow + (w.layout.BaseCapacity-1)*2
		for r := row; r <= row+1; r++ {
			// Formatting is cosmetic; a failed copy must not abort.
			_ = w.sheet.CopyRowFormat(lastPair+(r-row), r, cols.Number, cols.AddonTotal)
		}
	}

	if err := w.writeNumberLabel(row, number, label, prof); err != nil {
		return err
	}

	ref, err := w.pairCell(row, cols.Price)
	if err != nil {
		return err
	}
	if err := w.sheet.SetValue(ref, price); err != nil {
		return err
	}
	_ = w.sheet.SetNumberFormat(ref, prof.CurrencyFormat)

	// Zero multiplier renders as absence, not a literal 0%.
	ref, err = w.pairCell(row, cols.Multiplier)
	if err != nil {
		return err
	}
	if multiplierPct > 0 {
		if err := w.sheet.SetValue(ref, multiplierPct/100); err != nil {
			return err
		}
		_ = w.sheet.SetNumberFormat(ref, prof.MultiplierFormat)
	} else if err := w.sheet.Clear(ref); err != nil {
		return err
	}

	// The row total stays a live formula over this pair's own cells so
	// the document remains auditable.
	ref, err = w.pairCell(row, cols.RowTotal)
	if err != nil {
		return err
	}
	priceCell := grid.Ref(row, cols.Price).Name()
	multCell := grid.Ref(row, cols.Multiplier).Name()
	if err := w.sheet.SetFormula(ref, fmt.Sprintf("%s*(1+%s)", priceCell, multCell)); err != nil {
		return err
	}
	_ = w.sheet.SetNumberFormat(ref, prof.CurrencyFormat)

	addonTotal, err := w.writeAddons(row, addons, prof)
	if err != nil {
		return err
	}

	w.totals.Items += price * (1 + multiplierPct/100)
	w.totals.Addons += addonTotal
	return nil
}

func (w *itemWriter) writeAddons(row int, addons AddonFlags, prof FormattingProfile) (float64, error) {
	cols := w.layout.Columns
	prices := w.pricing.Addons.byColumn()
	selected := addons.selected()
	subtotal := 0.0
	for i, col := range cols.Addons {
		ref, err := w.pairCell(row, col)
		if err != nil {
			return 0, err
		}
		if selected[i] && prices[i] > 0 {
			if err := w.sheet.SetValue(ref, prices[i]); err != nil {
				return 0, err
			}
			_ = w.sheet.SetNumberFormat(ref, prof.CurrencyFormat)
			subtotal += prices[i]
		} else if err := w.sheet.Clear(ref); err != nil {
			return 0, err
		}
	}
	ref, err := w.pairCell(row, cols.AddonTotal)
	if err != nil {
		return 0, err
	}
	first := grid.Ref(row, cols.Addons[0]).Name()
	last := grid.Ref(row, cols.Addons[3]).Name()
	if err := w.sheet.SetFormula(ref, fmt.Sprintf("SUM(%s:%s)", first, last)); err != nil {
		return 0, err
	}
	_ = w.sheet.SetNumberFormat(ref, prof.CurrencyFormat)
	return subtotal, nil
}

// clearPair blanks every role column of a reserved but unused
// row-pair. A template reused across runs may carry stale demo
// content; clearing twice must leave the same state as clearing once.
func (w *itemWriter) clearPair(row int) error {
	cols := w.layout.Columns
	clear := []int{cols.Number, cols.Label, cols.Price, cols.Multiplier, cols.RowTotal, cols.AddonTotal}
	clear = append(clear, cols.Addons[:]...)
	for _, col := range clear {
		for r := row; r <= row+1; r++ {
			if err := w.sheet.Clear(grid.Ref(r, col)); err != nil {
				return err
			}
		}
	}
	return nil
}

// serviceWriter fills the hourly-services sheet. Activity cells are
// text ("$380 (2h)"); the row total is a literal because text cells
// cannot feed a formula.
type serviceWriter struct {
	sheet   *grid.Sheet
	layout  *ServiceLayout
	pricing *PricingConfig
	totals  sheetTotals

	// inputs to the per-unit spread applied in a second pass
	sampleSum   float64
	quantitySum int
	rows        []serviceRow
}

type serviceRow struct {
	row       int
	quantity  int
	baseTotal float64
	sampleHrs float64
	dupHours  float64
}

func newServiceWriter(sheet *grid.Sheet, layout *ServiceLayout, pricing *PricingConfig) *serviceWriter {
	return &serviceWriter{sheet: sheet, layout: layout, pricing: pricing}
}

func (w *serviceWriter) overflow(row int) bool {
	return row >= w.layout.FirstItemRow+w.layout.BaseCapacity*2
}

func (w *serviceWriter) pairCell(row, col int) (grid.CellRef, error) {
	span := grid.Region{MinRow: row, MaxRow: row + 1, MinCol: col, MaxCol: col}
	if err := w.sheet.Merge(span); err != nil {
		return grid.CellRef{}, err
	}
	return span.Anchor(), nil
}

// writeService fills one row-pair from an hourly entry; the derived
// columns stay blank until finishDerived spreads the per-unit price.
func (w *serviceWriter) writeService(row int, e ServiceEntry) error {
	cols := w.layout.Columns
	prof := profileFor(kindService, w.overflow(row))
	if prof.CopyRowFormat {
		for r := row; r <= row+1; r++ {
			_ = w.sheet.CopyRowFormat(w.layout.TemplateRow, r, cols.Number, cols.AddonTotal)
		}
	}

	ref, err := w.pairCell(row, cols.Number)
	if err != nil {
		return err
	}
	if err := w.sheet.SetValue(ref, e.Number); err != nil {
		return err
	}
	ref, err = w.pairCell(row, cols.Label)
	if err != nil {
		return err
	}
	if err := w.sheet.SetValue(ref, e.Label); err != nil {
		return err
	}

	base := 0.0
	for i, col := range cols.Activities {
		hours := e.activityHours()[i]
		price := math.Round(hours * w.pricing.HourlyRate)
		ref, err := w.pairCell(row, col)
		if err != nil {
			return err
		}
		if hours > 0 {
			if err := w.sheet.SetValue(ref, moneyHours(price, hours)); err != nil {
				return err
			}
			_ = w.sheet.SetNumberFormat(ref, prof.TextFormat)
			base += price
		} else if err := w.sheet.Clear(ref); err != nil {
			return err
		}
	}

	// Derived columns are cleared now and filled in the second pass.
	for _, col := range []int{cols.Derived, cols.Duplicates} {
		ref, err := w.pairCell(row, col)
		if err != nil {
			return err
		}
		if err := w.sheet.Clear(ref); err != nil {
			return err
		}
	}

	ref, err = w.pairCell(row, cols.RowTotal)
	if err != nil {
		return err
	}
	if err := w.sheet.SetValue(ref, base); err != nil {
		return err
	}
	_ = w.sheet.SetNumberFormat(ref, prof.CurrencyFormat)

	addonTotal, err := w.writeServiceAddons(row, e.Addons, prof)
	if err != nil {
		return err
	}

	w.totals.Items += base
	w.totals.Addons += addonTotal
	w.sampleSum += math.Round(e.SampleHours * w.pricing.HourlyRate)
	w.quantitySum += e.Quantity
	w.rows = append(w.rows, serviceRow{
		row:       row,
		quantity:  e.Quantity,
		baseTotal: base,
		sampleHrs: e.SampleHours,
		dupHours:  e.DuplicateHours,
	})
	return nil
}

func (w *serviceWriter) writeServiceAddons(row int, addons AddonFlags, prof FormattingProfile) (float64, error) {
	cols := w.layout.Columns
	prices := w.pricing.Addons.byColumn()
	selected := addons.selected()
	subtotal := 0.0
	for i, col := range cols.Addons {
		ref, err := w.pairCell(row, col)
		if err != nil {
			return 0, err
		}
		if selected[i] && prices[i] > 0 {
			if err := w.sheet.SetValue(ref, prices[i]); err != nil {
				return 0, err
			}
			_ = w.sheet.SetNumberFormat(ref, prof.CurrencyFormat)
			subtotal += prices[i]
		} else if err := w.sheet.Clear(ref); err != nil {
			return 0, err
		}
	}
	ref, err := w.pairCell(row, cols.AddonTotal)
	if err != nil {
		return 0, err
	}
	if subtotal > 0 {
		if err := w.sheet.SetValue(ref, subtotal); err != nil {
			return 0, err
		}
		_ = w.sheet.SetNumberFormat(ref, prof.CurrencyFormat)
	} else if err := w.sheet.Clear(ref); err != nil {
		return 0, err
	}
	return subtotal, nil
}

// finishDerived spreads the sample spend per unit over every row:
// per-unit is the sum of sample-activity amounts over the sum of
// quantities; each row's derived amount is round(perUnit*qty) and its
// duplicates amount round(perUnit*qty*dupHours). Row totals are then
// re-written to include the derived amounts.
func (w *serviceWriter) finishDerived() error {
	if len(w.rows) == 0 {
		return nil
	}
	cols := w.layout.Columns
	perUnit := w.perUnit()
	for _, sr := range w.rows {
		prof := profileFor(kindService, w.overflow(sr.row))
		derived := math.Round(perUnit * float64(sr.quantity))
		dup := 0.0
		if sr.dupHours > 0 {
			dup = math.Round(perUnit * float64(sr.quantity) * sr.dupHours)
		}

		ref := grid.Ref(sr.row, cols.Derived)
		if derived > 0 {
			if err := w.sheet.SetValue(ref, moneyHours(derived, sr.sampleHrs)); err != nil {
				return err
			}
			_ = w.sheet.SetNumberFormat(ref, prof.TextFormat)
		}
		ref = grid.Ref(sr.row, cols.Duplicates)
		if dup > 0 {
			if err := w.sheet.SetValue(ref, moneyHours(dup, sr.dupHours)); err != nil {
				return err
			}
			_ = w.sheet.SetNumberFormat(ref, prof.TextFormat)
		}

		total := sr.baseTotal + derived + dup
		ref = grid.Ref(sr.row, cols.RowTotal)
		if err := w.sheet.SetValue(ref, total); err != nil {
			return err
		}
		_ = w.sheet.SetNumberFormat(ref, prof.CurrencyFormat)
		w.totals.Items += derived + dup
	}
	return nil
}

// perUnit is the sample spend spread over one quantity unit.
func (w *serviceWriter) perUnit() float64 {
	if w.quantitySum <= 0 {
		return 0
	}
	return w.sampleSum / float64(w.quantitySum)
}

// clearPair blanks an unused reserved row-pair on the services sheet.
func (w *serviceWriter) clearPair(row int) error {
	cols := w.layout.Columns
	clear := []int{cols.Number, cols.Label, cols.Derived, cols.Duplicates, cols.RowTotal, cols.AddonTotal}
	clear = append(clear, cols.Activities[:]...)
	clear = append(clear, cols.Addons[:]...)
	for _, col := range clear {
		for r := row; r <= row+1; r++ {
			if err := w.sheet.Clear(grid.Ref(r, col)); err != nil {
				return err
			}
		}
	}
	return nil
}

var moneyPrinter = message.NewPrinter(language.English)

// moneyHours renders the "$1,330 (2.5h)" text cells of the services
// sheet.
func moneyHours(price, hours float64) string {
	return moneyPrinter.Sprintf("$%d (%sh)", int64(price), hoursString(hours))
}

func hoursString(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64)
}
