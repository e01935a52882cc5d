package xlquote

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/javajack/xlquote/grid"
)

const (
	devSheet = "DEVELOPMENT ONLY"
	svcSheet = "A LA CARTE"
)

// newTemplateFile builds an in-memory workbook mimicking the shipped
// template: a priced-entries sheet with five reserved row-pairs, a
// summary panel, a deliverables block with scannable labels, and an
// hourly-services sheet whose floating block includes its totals row.
func newTemplateFile(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()

	require.NoError(t, f.SetSheetName("Sheet1", devSheet))
	set := func(sheet, cell string, v any) {
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}
	merge := func(sheet, h, v string) {
		require.NoError(t, f.MergeCell(sheet, h, v))
	}

	// Header region with placeholder cells.
	set(devSheet, "B3", "TEGMADE, JUST FOR")
	set(devSheet, "J3", "${client.upperName}")
	set(devSheet, "D6", "${client.email}")
	set(devSheet, "J6", "${client.representative}")
	set(devSheet, "B8", "DEVELOPMENT PACKAGE")
	for cell, label := range map[string]string{
		"B9": "#", "C9": "STYLE", "D9": "BASE PRICE", "E9": "COMPLEXITY", "F9": "TOTAL",
		"H9": "WASH/DYE", "I9": "DESIGN", "J9": "SOURCE", "K9": "TREATMENT", "L9": "TOTAL",
	} {
		set(devSheet, cell, label)
	}

	// Reserved item pairs carry stale demo content plus pair merges,
	// exactly what a reused template would hold.
	set(devSheet, "B10", 101)
	set(devSheet, "C10", "SAMPLE STYLE")
	set(devSheet, "D10", 2790)
	merge(devSheet, "B10", "B11")
	merge(devSheet, "C10", "C11")
	merge(devSheet, "D10", "D11")

	// Totals row and summary panel with template-static references.
	set(devSheet, "B20", "TOTAL DEVELOPMENT")
	require.NoError(t, f.SetCellFormula(devSheet, "F20", "SUM(F10:F19)"))
	set(devSheet, "H20", "TOTAL OPTIONAL ADD-ONS")
	require.NoError(t, f.SetCellFormula(devSheet, "L20", "SUM(L10:L19)"))
	set(devSheet, "N10", "TOTAL DEVELOPMENT")
	require.NoError(t, f.SetCellFormula(devSheet, "P10", "F20"))
	set(devSheet, "N12", "TOTAL OPTIONAL ADD-ONS")
	require.NoError(t, f.SetCellFormula(devSheet, "P12", "L20"))
	set(devSheet, "N14", "DISCOUNT (0%)")
	set(devSheet, "N20", "TOTAL DUE AT SIGNING")
	require.NoError(t, f.SetCellFormula(devSheet, "P20", "SUM(P10:P13)-P14"))

	// Deliverables block B22:P34.
	set(devSheet, "B22", "DELIVERABLES")
	merge(devSheet, "B22", "P22")
	set(devSheet, "B23", "PATTERNS")
	merge(devSheet, "D23", "D24")
	set(devSheet, "B25", "FIRST SAMPLES")
	set(devSheet, "B27", "ROUND OF FITTINGS")
	set(devSheet, "B29", "ROUND OF REVISIONS")
	set(devSheet, "B31", "FINAL SAMPLES")
	set(devSheet, "H23", "WASH/TREATMENT")
	set(devSheet, "H25", "DESIGN")
	set(devSheet, "H27", "SOURCING")
	set(devSheet, "H29", "TREATMENT")
	set(devSheet, "N26", "PROJECT NOTES")

	// Extent sentinel so the declared bounds leave room below the block.
	set(devSheet, "Q50", " ")

	// Hourly-services sheet.
	_, err := f.NewSheet(svcSheet)
	require.NoError(t, err)
	for cell, label := range map[string]string{
		"B9": "#", "C9": "STYLE", "D9": "INTAKE", "E9": "1ST PATTERN", "F9": "1ST SAMPLE",
		"G9": "FITTING", "H9": "ADJUSTMENT", "I9": "FINAL SAMPLES", "J9": "DUPLICATES",
		"K9": "TOTAL", "M9": "WASH/DYE", "N9": "DESIGN", "O9": "SOURCING", "P9": "TREATMENT",
		"Q9": "TOTAL",
	} {
		set(svcSheet, cell, label)
	}
	set(svcSheet, "B20", "TOTAL A LA CARTE")
	merge(svcSheet, "B20", "J20")
	require.NoError(t, f.SetCellFormula(svcSheet, "K20", "SUM(K10:K18)"))
	set(svcSheet, "M20", "TOTAL OPTIONAL ADD-ONS")
	merge(svcSheet, "M20", "P20")
	require.NoError(t, f.SetCellFormula(svcSheet, "Q20", "SUM(Q10:Q18)"))
	set(svcSheet, "B22", "A LA CARTE BREAKDOWN")
	merge(svcSheet, "B22", "Q22")
	set(svcSheet, "B23", "INTAKE SESSIONS")
	set(svcSheet, "B25", "1ST PATTERNS")
	set(svcSheet, "B27", "1ST SAMPLES")
	set(svcSheet, "B29", "FITTINGS")
	set(svcSheet, "B31", "ADJUSTMENTS")
	set(svcSheet, "B33", "FINAL SAMPLES")
	set(svcSheet, "B35", "DUPLICATES")
	set(svcSheet, "M23", "WASH/TREATMENT")
	set(svcSheet, "M25", "DESIGN")
	set(svcSheet, "M27", "SOURCING")
	set(svcSheet, "M29", "TREATMENT")
	set(svcSheet, "R40", " ")

	return f
}

// buildFromTemplate runs a Build against the in-memory template and
// reopens the output as a grid document for inspection.
func buildFromTemplate(t *testing.T, req *Request, opts ...Option) (*Result, *grid.Document) {
	t.Helper()
	f := newTemplateFile(t)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	opts = append([]Option{WithTemplateReader(bytes.NewReader(buf.Bytes()))}, opts...)
	res, err := NewBuilder(opts...).Build(req)
	require.NoError(t, err)

	doc, err := grid.OpenReader(bytes.NewReader(res.Bytes))
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })
	return res, doc
}

// assertMergesDisjoint walks every merge pair on the sheet and fails
// on any overlap.
func assertMergesDisjoint(t *testing.T, s *grid.Sheet) {
	t.Helper()
	merges := s.Merges()
	for i := 0; i < len(merges); i++ {
		for j := i + 1; j < len(merges); j++ {
			require.False(t, merges[i].Overlaps(merges[j]),
				"merges %s and %s overlap", merges[i].Name(), merges[j].Name())
		}
	}
}
