package xlquote

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/xlquote/grid"
)

func styleEntries(n int) []StyleEntry {
	entries := make([]StyleEntry, n)
	for i := range entries {
		entries[i] = StyleEntry{Number: 101 + i, Label: fmt.Sprintf("STYLE %d", i+1)}
	}
	return entries
}

func TestBuildRejectsEmptyRequest(t *testing.T) {
	f := newTemplateFile(t)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	_, err = NewBuilder(WithTemplateReader(buf)).Build(&Request{ClientName: "Acme"})
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestBuildMissingTemplate(t *testing.T) {
	_, err := NewBuilder(WithTemplate("testdata/does-not-exist.xlsx")).
		Build(&Request{Styles: styleEntries(1)})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestBuildWithinCapacity(t *testing.T) {
	req := &Request{
		ClientName:     "Acme Studio",
		Representative: "jordan lee",
		Styles:         styleEntries(3),
		Notes:          []string{"Fabric sourcing pending"},
	}
	req.Styles[0].Addons.WashDye = true
	res, doc := buildFromTemplate(t, req)

	sheet, err := doc.Sheet(devSheet)
	require.NoError(t, err)

	// Three pairs fit the five reserved ones; nothing moves.
	formula, err := sheet.Formula(grid.MustRef("F20"))
	require.NoError(t, err)
	assert.Equal(t, "SUM(F10:F15)", formula)
	formula, err = sheet.Formula(grid.MustRef("L20"))
	require.NoError(t, err)
	assert.Equal(t, "SUM(L10:L15)", formula)
	formula, err = sheet.Formula(grid.MustRef("P10"))
	require.NoError(t, err)
	assert.Equal(t, "F20", formula)

	// Reserved but unused pairs are blanked, stale demo content included.
	v, err := sheet.Value(grid.MustRef("C16"))
	require.NoError(t, err)
	assert.Empty(t, v)

	// Block counts at template positions.
	v, err = sheet.Value(grid.MustRef("D23"))
	require.NoError(t, err)
	assert.Equal(t, "3", v, "PATTERNS count")
	v, err = sheet.Value(grid.MustRef("D27"))
	require.NoError(t, err)
	assert.Equal(t, "1", v, "ROUND OF FITTINGS count")
	formula, err = sheet.Formula(grid.MustRef("J23"))
	require.NoError(t, err)
	assert.Equal(t, "COUNT(H10:H15)", formula, "WASH/TREATMENT tally")

	// Notes land below the notes label, uppercased.
	v, err = sheet.Value(grid.MustRef("N27"))
	require.NoError(t, err)
	assert.Equal(t, "FABRIC SOURCING PENDING", v)

	// Header placeholders resolved.
	v, err = sheet.Value(grid.MustRef("J3"))
	require.NoError(t, err)
	assert.Equal(t, "ACME STUDIO", v)

	// Zero discount clears the sub-total and discount rows, stale
	// template labels included, and the grand total sums directly.
	v, err = sheet.Value(grid.MustRef("N14"))
	require.NoError(t, err)
	assert.Empty(t, v)
	formula, err = sheet.Formula(grid.MustRef("P14"))
	require.NoError(t, err)
	assert.Empty(t, formula)
	formula, err = sheet.Formula(grid.MustRef("P20"))
	require.NoError(t, err)
	assert.Equal(t, "SUM(P10:P13)", formula)

	// 3 styles share the under-5 bracket at 2780.
	assert.InDelta(t, 3*2780, res.ItemsTotal, 1e-9)
	assert.InDelta(t, 1330, res.AddonsTotal, 1e-9)

	// The services sheet was not generated.
	assert.False(t, doc.HasSheet(svcSheet))
	assert.Equal(t, []string{devSheet}, doc.SheetNames())
}

func TestBuildOverflowRelocatesBlock(t *testing.T) {
	req := &Request{ClientName: "Acme", Styles: styleEntries(6)}
	res, doc := buildFromTemplate(t, req)

	sheet, err := doc.Sheet(devSheet)
	require.NoError(t, err)

	// One extra pair: two inserted rows push everything below down.
	formula, err := sheet.Formula(grid.MustRef("F22"))
	require.NoError(t, err)
	assert.Equal(t, "SUM(F10:F21)", formula)
	v, err := sheet.Value(grid.MustRef("B22"))
	require.NoError(t, err)
	assert.Equal(t, "TOTAL DEVELOPMENT", v)

	// The sixth pair landed on the inserted rows.
	v, err = sheet.Value(grid.MustRef("C20"))
	require.NoError(t, err)
	assert.Equal(t, "STYLE 6", v)

	// Summary tracks the final totals row.
	formula, err = sheet.Formula(grid.MustRef("P10"))
	require.NoError(t, err)
	assert.Equal(t, "F22", formula)
	formula, err = sheet.Formula(grid.MustRef("P12"))
	require.NoError(t, err)
	assert.Equal(t, "L22", formula)

	// The deliverables block moved with the insertion.
	v, err = sheet.Value(grid.MustRef("B25"))
	require.NoError(t, err)
	assert.Equal(t, "PATTERNS", v)
	v, err = sheet.Value(grid.MustRef("D25"))
	require.NoError(t, err)
	assert.Equal(t, "6", v)
	reg, ok := sheet.MergeAt(grid.MustRef("D25"))
	require.True(t, ok)
	assert.Equal(t, "D25:D26", reg.Name())

	// Grand total beside the shifted TOTAL DUE label; no discount, so
	// it sums the summary directly.
	formula, err = sheet.Formula(grid.MustRef("P22"))
	require.NoError(t, err)
	assert.Equal(t, "SUM(P10:P13)", formula)

	// Six styles share the under-10 bracket.
	assert.InDelta(t, 6*2325, res.ItemsTotal, 1e-9)
}

func TestBuildMergesDisjointAndRangesTrackLayout(t *testing.T) {
	for _, n := range []int{1, 5, 12} {
		t.Run(fmt.Sprintf("styles=%d", n), func(t *testing.T) {
			req := &Request{ClientName: "Acme", Styles: styleEntries(n)}
			req.Notes = []string{"note one", "note two"}
			_, doc := buildFromTemplate(t, req)
			sheet, err := doc.Sheet(devSheet)
			require.NoError(t, err)
			assertMergesDisjoint(t, sheet)

			// The totals row shifts by two rows per overflowing pair and
			// its range spans exactly the occupied pairs.
			extra := 0
			if n > 5 {
				extra = (n - 5) * 2
			}
			totalsRow := 20 + extra
			formula, err := sheet.Formula(grid.Ref(totalsRow, 6))
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("SUM(F10:F%d)", 9+n*2), formula)
		})
	}
}

func TestBuildStylesAndCustomsShareCapacity(t *testing.T) {
	req := &Request{
		ClientName: "Acme",
		Styles:     styleEntries(2),
		Customs:    []CustomEntry{{Number: 201, Label: "RUSH FEE", Price: 500}},
	}
	res, doc := buildFromTemplate(t, req)
	sheet, err := doc.Sheet(devSheet)
	require.NoError(t, err)

	// Customs follow styles contiguously.
	v, err := sheet.Value(grid.MustRef("C14"))
	require.NoError(t, err)
	assert.Equal(t, "RUSH FEE", v)
	formula, err := sheet.Formula(grid.MustRef("F20"))
	require.NoError(t, err)
	assert.Equal(t, "SUM(F10:F15)", formula)

	// The tier lookup keys on the TOTAL priced count: 3 entries, not 2.
	assert.InDelta(t, 2*2780+500, res.ItemsTotal, 1e-9)
}

func TestBuildDiscountFormula(t *testing.T) {
	req := &Request{ClientName: "Acme", Styles: styleEntries(2), DiscountPercent: 10}
	_, doc := buildFromTemplate(t, req)
	sheet, err := doc.Sheet(devSheet)
	require.NoError(t, err)

	// A positive discount renders as a sub-total/discount row pair and
	// the grand total takes their difference.
	v, err := sheet.Value(grid.MustRef("N14"))
	require.NoError(t, err)
	assert.Equal(t, "SUB-TOTAL", v)
	formula, err := sheet.Formula(grid.MustRef("P14"))
	require.NoError(t, err)
	assert.Equal(t, "SUM(P10:P13)", formula)
	v, err = sheet.Value(grid.MustRef("N16"))
	require.NoError(t, err)
	assert.Equal(t, "DISCOUNT (10%)", v)
	formula, err = sheet.Formula(grid.MustRef("P16"))
	require.NoError(t, err)
	assert.Equal(t, "P14*0.1", formula)
	formula, err = sheet.Formula(grid.MustRef("P20"))
	require.NoError(t, err)
	assert.Equal(t, "P14-P16", formula)
}

func TestBuildRevisionsTallyWithoutStyles(t *testing.T) {
	// A custom priced exactly at the flagged unit price must not read
	// as a second revision round when no style rows exist.
	req := &Request{
		ClientName: "Acme",
		Customs:    []CustomEntry{{Number: 201, Label: "CUSTOM COAT", Price: 3560}},
	}
	_, doc := buildFromTemplate(t, req)
	sheet, err := doc.Sheet(devSheet)
	require.NoError(t, err)

	formula, err := sheet.Formula(grid.MustRef("D29"))
	require.NoError(t, err)
	assert.Empty(t, formula)
	v, err := sheet.Value(grid.MustRef("D29"))
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestBuildActivewearVariant(t *testing.T) {
	req := &Request{ClientName: "Acme", Styles: styleEntries(3)}
	req.Styles[1].Category = CategoryActivewear
	_, doc := buildFromTemplate(t, req)
	sheet, err := doc.Sheet(devSheet)
	require.NoError(t, err)

	// FINAL SAMPLES becomes SECOND SAMPLES with the flagged count.
	v, err := sheet.Value(grid.MustRef("B31"))
	require.NoError(t, err)
	assert.Equal(t, "SECOND SAMPLES", v)
	v, err = sheet.Value(grid.MustRef("D31"))
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	// Three derived pairs inserted below it, FINAL SAMPLES reinstated.
	v, err = sheet.Value(grid.MustRef("B33"))
	require.NoError(t, err)
	assert.Equal(t, "2ND ROUND OF FITTINGS", v)
	v, err = sheet.Value(grid.MustRef("B35"))
	require.NoError(t, err)
	assert.Equal(t, "2ND ROUND OF REVISIONS", v)
	v, err = sheet.Value(grid.MustRef("B37"))
	require.NoError(t, err)
	assert.Equal(t, "FINAL SAMPLES", v)
	v, err = sheet.Value(grid.MustRef("D37"))
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	// The revisions tally keys on the flagged category's unit price.
	formula, err := sheet.Formula(grid.MustRef("D29"))
	require.NoError(t, err)
	assert.Equal(t, "IF(COUNTIF(D10:D15, 3560) > 0, 2, 1)", formula)

	// First block labels keep their counts above the nested insertion.
	v, err = sheet.Value(grid.MustRef("D23"))
	require.NoError(t, err)
	assert.Equal(t, "3", v)
	v, err = sheet.Value(grid.MustRef("D27"))
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	assertMergesDisjoint(t, sheet)
}

func TestBuildServicesCrossSheet(t *testing.T) {
	req := &Request{
		ClientName: "Acme",
		Styles:     styleEntries(1),
		Services: []ServiceEntry{{
			Number:         301,
			Label:          "JACKET GRADING",
			IntakeHours:    1,
			PatternHours:   2,
			SampleHours:    2,
			DuplicateHours: 1.5,
			Quantity:       2,
		}},
	}
	res, doc := buildFromTemplate(t, req)

	svc, err := doc.Sheet(svcSheet)
	require.NoError(t, err)

	// Activity cells are money-with-hours text at the hourly rate.
	v, err := svc.Value(grid.MustRef("D10"))
	require.NoError(t, err)
	assert.Equal(t, "$190 (1h)", v)
	v, err = svc.Value(grid.MustRef("E10"))
	require.NoError(t, err)
	assert.Equal(t, "$380 (2h)", v)

	// Derived and duplicates columns come from the per-unit spread:
	// per-unit 380/2=190, derived 190*2=380, duplicates 190*2*1.5=570.
	v, err = svc.Value(grid.MustRef("I10"))
	require.NoError(t, err)
	assert.Equal(t, "$380 (2h)", v)
	v, err = svc.Value(grid.MustRef("J10"))
	require.NoError(t, err)
	assert.Equal(t, "$570 (1.5h)", v)

	// Row total is a literal covering base plus derived amounts.
	v, err = svc.RawValue(grid.MustRef("K10"))
	require.NoError(t, err)
	assert.Equal(t, "1900", v)
	formula, err := svc.Formula(grid.MustRef("K20"))
	require.NoError(t, err)
	assert.Equal(t, "SUM(K10:K11)", formula)

	// The development summary adds the services sheet's totals.
	dev, err := doc.Sheet(devSheet)
	require.NoError(t, err)
	formula, err = dev.Formula(grid.MustRef("P10"))
	require.NoError(t, err)
	assert.Equal(t, "F20+'A LA CARTE'!K20", formula)
	formula, err = dev.Formula(grid.MustRef("P12"))
	require.NoError(t, err)
	assert.Equal(t, "L20+'A LA CARTE'!Q20", formula)

	assert.InDelta(t, 1900, res.ServicesTotal, 1e-9)
	assert.Zero(t, res.ServicesAddonTotal)
	assertMergesDisjoint(t, svc)
}

func TestBuildServicesBreakdownPanel(t *testing.T) {
	req := &Request{
		ClientName: "Acme",
		Services: []ServiceEntry{
			{Number: 301, Label: "JACKET", IntakeHours: 1, PatternHours: 2, SampleHours: 2, FittingHours: 1.5, Quantity: 2},
			{Number: 302, Label: "SKIRT", IntakeHours: 1, SampleHours: 1, Quantity: 1},
		},
	}
	req.Services[0].Addons.Design = true
	_, doc := buildFromTemplate(t, req)
	svc, err := doc.Sheet(svcSheet)
	require.NoError(t, err)

	// Activity tallies count entries with nonzero hours per column.
	v, err := svc.RawValue(grid.MustRef("E23"))
	require.NoError(t, err)
	assert.Equal(t, "2", v, "INTAKE SESSIONS tally")
	v, err = svc.RawValue(grid.MustRef("E25"))
	require.NoError(t, err)
	assert.Equal(t, "1", v, "1ST PATTERNS tally")
	v, err = svc.RawValue(grid.MustRef("E27"))
	require.NoError(t, err)
	assert.Equal(t, "2", v, "1ST SAMPLES tally")

	// Fitting hours are shared across the generation; both rows carry
	// the first entry's figure.
	v, err = svc.RawValue(grid.MustRef("E29"))
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)
	v, err = svc.RawValue(grid.MustRef("E31"))
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)

	// Per-unit spread: sample spend (380+190) over quantities (3).
	v, err = svc.RawValue(grid.MustRef("E33"))
	require.NoError(t, err)
	assert.Equal(t, "190", v)
	v, err = svc.RawValue(grid.MustRef("E35"))
	require.NoError(t, err)
	assert.Equal(t, "190", v)

	// Value cells merge across their label's row-pair.
	reg, ok := svc.MergeAt(grid.MustRef("E23"))
	require.True(t, ok)
	assert.Equal(t, "E23:E24", reg.Name())

	// Add-on tallies stay live formulas over the item rows.
	formula, err := svc.Formula(grid.MustRef("O23"))
	require.NoError(t, err)
	assert.Equal(t, "COUNT(M10:M13)", formula, "WASH/TREATMENT tally")
	formula, err = svc.Formula(grid.MustRef("O25"))
	require.NoError(t, err)
	assert.Equal(t, "COUNT(N10:N13)", formula, "DESIGN tally")

	assertMergesDisjoint(t, svc)
}

func TestBuildServicesOnly(t *testing.T) {
	req := &Request{
		ClientName: "Acme",
		Services:   []ServiceEntry{{Number: 301, Label: "CONSULT", IntakeHours: 2, Quantity: 1}},
	}
	res, doc := buildFromTemplate(t, req)

	dev, err := doc.Sheet(devSheet)
	require.NoError(t, err)

	// No priced entries: the totals row is blank, never SUM over an
	// empty range.
	formula, err := dev.Formula(grid.MustRef("F20"))
	require.NoError(t, err)
	assert.Empty(t, formula)
	v, err := dev.RawValue(grid.MustRef("F20"))
	require.NoError(t, err)
	assert.Empty(t, v)

	// The summary references only the services sheet.
	formula, err = dev.Formula(grid.MustRef("P10"))
	require.NoError(t, err)
	assert.Equal(t, "'A LA CARTE'!K20", formula)

	// Stale demo content of the reserved pairs is gone.
	v, err = dev.Value(grid.MustRef("C10"))
	require.NoError(t, err)
	assert.Empty(t, v)

	assert.Zero(t, res.ItemsTotal)
	assert.InDelta(t, 380, res.ServicesTotal, 1e-9)
	assertMergesDisjoint(t, dev)
}

func TestBuildKeepUnusedSheets(t *testing.T) {
	req := &Request{ClientName: "Acme", Styles: styleEntries(1)}
	_, doc := buildFromTemplate(t, req, WithKeepUnusedSheets(true))
	assert.True(t, doc.HasSheet(svcSheet))
}
