package xlquote

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/javajack/xlquote/grid"
)

const currencyFormat = `"$"#,##0`

// crossSheetTotals points the summary panel at the services sheet's
// final totals cells for the cross-sheet grand total.
type crossSheetTotals struct {
	SheetName  string
	ItemsCell  grid.CellRef
	AddonsCell grid.CellRef
}

// synthesizer rewrites every formula whose correctness depends on the
// final row layout. It must run last: any insertion or relocation
// after it invalidates the ranges it writes.
type synthesizer struct {
	sheet  *grid.Sheet
	layout *SheetLayout
	plan   Plan
}

// writeTotalsRow emits the priced-entries totals: SUM over the final
// first..last item rows, or a blank when the sheet holds no entries
// so no formula ever spans an empty range.
func (sy *synthesizer) writeTotalsRow() error {
	cols := sy.layout.Columns
	itemsCell := grid.Ref(sy.plan.TotalsRow, cols.RowTotal)
	addonsCell := grid.Ref(sy.plan.TotalsRow, cols.AddonTotal)

	if sy.plan.TotalCount() == 0 {
		if err := sy.sheet.Clear(itemsCell); err != nil {
			return err
		}
		return sy.sheet.Clear(addonsCell)
	}

	first, last := sy.plan.FirstItemRow(), sy.plan.LastItemRow()
	if err := sy.sheet.SetFormula(itemsCell, sumRange(cols.RowTotal, first, last)); err != nil {
		return err
	}
	_ = sy.sheet.SetNumberFormat(itemsCell, currencyFormat)
	if err := sy.sheet.SetFormula(addonsCell, sumRange(cols.AddonTotal, first, last)); err != nil {
		return err
	}
	_ = sy.sheet.SetNumberFormat(addonsCell, currencyFormat)
	return nil
}

// writeSummary points the summary panel's items and add-ons values at
// the final totals row, adding the services sheet's totals when that
// sheet was generated.
func (sy *synthesizer) writeSummary(cross *crossSheetTotals) error {
	sm := sy.layout.Summary
	cols := sy.layout.Columns

	items := ""
	addons := ""
	if sy.plan.TotalCount() > 0 {
		items = grid.Ref(sy.plan.TotalsRow, cols.RowTotal).Name()
		addons = grid.Ref(sy.plan.TotalsRow, cols.AddonTotal).Name()
	}
	if cross != nil {
		itemsExt := fmt.Sprintf("'%s'!%s", cross.SheetName, cross.ItemsCell.Name())
		addonsExt := fmt.Sprintf("'%s'!%s", cross.SheetName, cross.AddonsCell.Name())
		if items != "" {
			items += "+" + itemsExt
			addons += "+" + addonsExt
		} else {
			items, addons = itemsExt, addonsExt
		}
	}

	itemsCell := grid.Ref(sm.ItemsRow, sm.ValueCol)
	addonsCell := grid.Ref(sm.AddonsRow, sm.ValueCol)
	if items == "" {
		if err := sy.sheet.Clear(itemsCell); err != nil {
			return err
		}
		return sy.sheet.Clear(addonsCell)
	}
	if err := sy.sheet.SetFormula(itemsCell, items); err != nil {
		return err
	}
	_ = sy.sheet.SetNumberFormat(itemsCell, currencyFormat)
	if err := sy.sheet.SetFormula(addonsCell, addons); err != nil {
		return err
	}
	_ = sy.sheet.SetNumberFormat(addonsCell, currencyFormat)
	return nil
}

// writeDiscount renders the sub-total and discount rows as a pair: the
// sub-total sums the summary values and the discount takes a fraction
// of it. A zero discount clears both row-pairs so the summary shows
// the grand total directly.
func (sy *synthesizer) writeDiscount(percent float64) error {
	sm := sy.layout.Summary
	if percent <= 0 {
		for _, row := range []int{sm.SubtotalRow, sm.SubtotalRow + 1, sm.DiscountRow, sm.DiscountRow + 1} {
			if err := sy.sheet.Clear(grid.Ref(row, sm.LabelCol)); err != nil {
				return err
			}
			if err := sy.sheet.Clear(grid.Ref(row, sm.ValueCol)); err != nil {
				return err
			}
		}
		return nil
	}

	subtotal := grid.Ref(sm.SubtotalRow, sm.ValueCol)
	if err := sy.sheet.SetValue(grid.Ref(sm.SubtotalRow, sm.LabelCol), "SUB-TOTAL"); err != nil {
		return err
	}
	if err := sy.sheet.SetFormula(subtotal, sy.summarySum()); err != nil {
		return err
	}
	_ = sy.sheet.SetNumberFormat(subtotal, currencyFormat)

	if err := sy.sheet.SetValue(grid.Ref(sm.DiscountRow, sm.LabelCol), fmt.Sprintf("DISCOUNT (%.0f%%)", percent)); err != nil {
		return err
	}
	value := grid.Ref(sm.DiscountRow, sm.ValueCol)
	frac := strconv.FormatFloat(percent/100, 'f', -1, 64)
	if err := sy.sheet.SetFormula(value, subtotal.Name()+"*"+frac); err != nil {
		return err
	}
	_ = sy.sheet.SetNumberFormat(value, currencyFormat)
	return nil
}

// writeTotalDue writes the grand total beside the "TOTAL DUE" label on
// the final totals row: sub-total minus discount when a discount was
// rendered, a plain sum otherwise. A missing label skips the value.
func (sy *synthesizer) writeTotalDue(discounted bool) error {
	sm := sy.layout.Summary
	row, err := LocateLabel(sy.sheet, sm.LabelCol, []string{"TOTAL DUE"},
		rowWindow{from: sy.plan.TotalsRow - 2, to: sy.plan.TotalsRow + 2})
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return nil
		}
		return err
	}
	cell := grid.Ref(row, sm.ValueCol)
	formula := sy.summarySum()
	if discounted {
		formula = fmt.Sprintf("%s-%s",
			grid.Ref(sm.SubtotalRow, sm.ValueCol).Name(),
			grid.Ref(sm.DiscountRow, sm.ValueCol).Name())
	}
	if err := sy.sheet.SetFormula(cell, formula); err != nil {
		return err
	}
	_ = sy.sheet.SetNumberFormat(cell, currencyFormat)
	return nil
}

// summarySum is the SUM over the summary value rows above the
// sub-total row.
func (sy *synthesizer) summarySum() string {
	sm := sy.layout.Summary
	return fmt.Sprintf("SUM(%s:%s)",
		grid.Ref(sm.ItemsRow, sm.ValueCol).Name(),
		grid.Ref(sm.SumLastRow, sm.ValueCol).Name())
}

// repairStaleRefs rewrites summary-column formulas still referencing
// the template's original totals row after rows were inserted. The
// grid's InsertRows deliberately leaves formulas untouched; reference
// repair belongs here.
func (sy *synthesizer) repairStaleRefs(templateTotalsRow int) error {
	if sy.plan.InsertRows == 0 {
		return nil
	}
	sm := sy.layout.Summary
	cols := sy.layout.Columns
	stale := []string{
		grid.Ref(templateTotalsRow, cols.RowTotal).Name(),
		grid.Ref(templateTotalsRow, cols.AddonTotal).Name(),
	}
	fresh := []string{
		grid.Ref(sy.plan.TotalsRow, cols.RowTotal).Name(),
		grid.Ref(sy.plan.TotalsRow, cols.AddonTotal).Name(),
	}
	rows, _ := sy.sheet.Bounds()
	for row := 1; row <= rows; row++ {
		ref := grid.Ref(row, sm.ValueCol)
		formula, err := sy.sheet.Formula(ref)
		if err != nil || formula == "" {
			continue
		}
		rewritten := formula
		for i, s := range stale {
			rewritten = replaceCellRef(rewritten, s, fresh[i])
		}
		if rewritten != formula {
			if err := sy.sheet.SetFormula(ref, rewritten); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeServiceTotals emits the services sheet's totals-row formulas
// and returns the cells the development summary will reference.
func writeServiceTotals(sheet *grid.Sheet, layout *ServiceLayout, plan Plan) (crossSheetTotals, error) {
	cols := layout.Columns
	itemsCell := grid.Ref(plan.TotalsRow, cols.RowTotal)
	addonsCell := grid.Ref(plan.TotalsRow, cols.AddonTotal)
	cross := crossSheetTotals{SheetName: layout.Sheet, ItemsCell: itemsCell, AddonsCell: addonsCell}

	if plan.TotalCount() == 0 {
		if err := sheet.Clear(itemsCell); err != nil {
			return cross, err
		}
		return cross, sheet.Clear(addonsCell)
	}

	first, last := plan.FirstItemRow(), plan.LastItemRow()
	if err := sheet.SetFormula(itemsCell, sumRange(cols.RowTotal, first, last)); err != nil {
		return cross, err
	}
	_ = sheet.SetNumberFormat(itemsCell, currencyFormat)
	if err := sheet.SetFormula(addonsCell, sumRange(cols.AddonTotal, first, last)); err != nil {
		return cross, err
	}
	_ = sheet.SetNumberFormat(addonsCell, currencyFormat)
	return cross, nil
}

func sumRange(col, firstRow, lastRow int) string {
	name := grid.ColToName(col)
	return fmt.Sprintf("SUM(%s%d:%s%d)", name, firstRow, name, lastRow)
}

// replaceCellRef swaps a whole cell reference inside a formula,
// refusing to rewrite references that merely share a prefix (F20
// inside F200 stays put).
func replaceCellRef(formula, old, new string) string {
	var b strings.Builder
	for i := 0; i < len(formula); {
		j := strings.Index(formula[i:], old)
		if j < 0 {
			b.WriteString(formula[i:])
			break
		}
		j += i
		end := j + len(old)
		prevOK := j == 0 || !isRefChar(formula[j-1])
		nextOK := end >= len(formula) || !isDigit(formula[end])
		b.WriteString(formula[i:j])
		if prevOK && nextOK {
			b.WriteString(new)
		} else {
			b.WriteString(old)
		}
		i = end
	}
	return b.String()
}

func isRefChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '$'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
