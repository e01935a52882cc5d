package xlquote

import "github.com/javajack/xlquote/grid"

// CountKind says how a deliverable-count value next to a scanned
// label is derived.
type CountKind string

const (
	// CountStyles writes the literal count of style entries.
	CountStyles CountKind = "styles"
	// CountOne writes a literal 1.
	CountOne CountKind = "one"
	// CountRevisions writes the IF(COUNTIF(...)) revisions formula:
	// 2 when any style row carries the flagged category's unit price,
	// else 1.
	CountRevisions CountKind = "revisions"
	// CountAddonColumn writes COUNT over the item rows of one add-on
	// column.
	CountAddonColumn CountKind = "addonColumn"
	// CountFlagged writes the literal count of flagged-category
	// styles.
	CountFlagged CountKind = "flagged"
	// CountActivityItems writes the count of service entries with
	// nonzero hours in one activity column.
	CountActivityItems CountKind = "activityItems"
	// CountSharedHours writes the first service entry's fitting hours,
	// shared by every entry of the generation.
	CountSharedHours CountKind = "sharedHours"
	// CountPerUnit writes the per-unit sample spread.
	CountPerUnit CountKind = "perUnit"
)

// DeliverableCount binds a label inside the floating block to the
// derived value written beside it. Labels are matched case-insensitive
// by substring, exact match preferred, within the block's final span —
// a label that cannot be located skips its value.
type DeliverableCount struct {
	Label     string    `json:"label"`
	LabelCol  int       `json:"labelCol"`
	ValueCol  int       `json:"valueCol"`
	Kind      CountKind `json:"kind"`
	AddonCol  int       `json:"addonCol,omitempty"`
	Activity  int       `json:"activity,omitempty"`
	MergePair bool      `json:"mergePair,omitempty"`
}

// ItemColumns names the column roles of the priced-entries sheet.
type ItemColumns struct {
	Number     int    `json:"number"`
	Label      int    `json:"label"`
	Price      int    `json:"price"`
	Multiplier int    `json:"multiplier"`
	RowTotal   int    `json:"rowTotal"`
	Addons     [4]int `json:"addons"`
	AddonTotal int    `json:"addonTotal"`
}

// SummaryLayout names the summary panel of the priced-entries sheet:
// labels in one column, values in another, at fixed template rows
// above the floating block.
type SummaryLayout struct {
	LabelCol    int `json:"labelCol"`
	ValueCol    int `json:"valueCol"`
	ItemsRow    int `json:"itemsRow"`
	AddonsRow   int `json:"addonsRow"`
	SubtotalRow int `json:"subtotalRow"`
	DiscountRow int `json:"discountRow"`
	SumLastRow  int `json:"sumLastRow"`
}

// VariantLayout configures the flag-conditional rewrite of the
// floating block: when at least one style entry carries the trigger
// category, the replaced label row becomes the substitute label with
// the flagged count, and three derived label row-pairs are inserted
// below it, copy-formatted from the reference label's row-pair.
type VariantLayout struct {
	TriggerCategory string    `json:"triggerCategory"`
	ReplacedLabel   string    `json:"replacedLabel"`
	SubstituteLabel string    `json:"substituteLabel"`
	ReferenceLabel  string    `json:"referenceLabel"`
	InsertedLabels  [3]string `json:"insertedLabels"`
	InsertedKinds   [3]CountKind
}

// SheetLayout describes the priced-entries sheet of the template:
// where the variable region lives, what each column means, where the
// summary panel and floating block sit. All rows and columns are
// 1-based template coordinates before any insertion.
type SheetLayout struct {
	Sheet        string             `json:"sheet"`
	FirstItemRow int                `json:"firstItemRow"`
	BaseCapacity int                `json:"baseCapacity"`
	TotalsRow    int                `json:"totalsRow"`
	Columns      ItemColumns        `json:"columns"`
	Summary      SummaryLayout      `json:"summary"`
	BlockSpan    grid.Region        `json:"blockSpan"`
	Counts       []DeliverableCount `json:"counts"`
	Variant      *VariantLayout     `json:"variant,omitempty"`
	NotesLabel   string             `json:"notesLabel"`
	NotesCol     int                `json:"notesCol"`
	HeaderRows   int                `json:"headerRows"`
	ScanWindow   int                `json:"scanWindow"`
}

// ServiceColumns names the column roles of the hourly-services sheet.
// Activity columns hold "$<price> (<hours>h)" text at the standard
// hourly rate; the two derived columns are filled from the per-unit
// spread.
type ServiceColumns struct {
	Number     int    `json:"number"`
	Label      int    `json:"label"`
	Activities [5]int `json:"activities"`
	Derived    int    `json:"derived"`
	Duplicates int    `json:"duplicates"`
	RowTotal   int    `json:"rowTotal"`
	Addons     [4]int `json:"addons"`
	AddonTotal int    `json:"addonTotal"`
}

// ServiceLayout describes the hourly-services sheet. Its floating
// block includes the totals row itself, so the totals row is the
// block anchor.
type ServiceLayout struct {
	Sheet        string             `json:"sheet"`
	FirstItemRow int                `json:"firstItemRow"`
	BaseCapacity int                `json:"baseCapacity"`
	TotalsRow    int                `json:"totalsRow"`
	Columns      ServiceColumns     `json:"columns"`
	BlockSpan    grid.Region        `json:"blockSpan"`
	Counts       []DeliverableCount `json:"counts"`
	TemplateRow  int                `json:"templateRow"`
	HeaderRows   int                `json:"headerRows"`
}

// Layout is the full template contract for one generation.
type Layout struct {
	Dev      SheetLayout   `json:"dev"`
	Services ServiceLayout `json:"services"`
}

// DefaultLayout returns the layout of the shipped template.
func DefaultLayout() *Layout {
	colB, colC, colD, colE, colF, colG := 2, 3, 4, 5, 6, 7
	colH, colI, colJ, colK, colL := 8, 9, 10, 11, 12
	colM, colN, colO, colP, colQ := 13, 14, 15, 16, 17

	return &Layout{
		Dev: SheetLayout{
			Sheet:        "DEVELOPMENT ONLY",
			FirstItemRow: 10,
			BaseCapacity: 5,
			TotalsRow:    20,
			Columns: ItemColumns{
				Number:     colB,
				Label:      colC,
				Price:      colD,
				Multiplier: colE,
				RowTotal:   colF,
				Addons:     [4]int{colH, colI, colJ, colK},
				AddonTotal: colL,
			},
			Summary: SummaryLayout{
				LabelCol:    colN,
				ValueCol:    colP,
				ItemsRow:    10,
				AddonsRow:   12,
				SubtotalRow: 14,
				DiscountRow: 16,
				SumLastRow:  13,
			},
			BlockSpan: grid.MustRange("B22:P34"),
			Counts: []DeliverableCount{
				{Label: "PATTERNS", LabelCol: colB, ValueCol: colD, Kind: CountStyles, MergePair: true},
				{Label: "FIRST SAMPLES", LabelCol: colB, ValueCol: colD, Kind: CountStyles, MergePair: true},
				{Label: "FINAL SAMPLES", LabelCol: colB, ValueCol: colD, Kind: CountStyles, MergePair: true},
				{Label: "ROUND OF FITTINGS", LabelCol: colB, ValueCol: colD, Kind: CountOne},
				{Label: "ROUND OF REVISIONS", LabelCol: colB, ValueCol: colD, Kind: CountRevisions},
				{Label: "WASH/TREATMENT", LabelCol: colH, ValueCol: colJ, Kind: CountAddonColumn, AddonCol: colH},
				{Label: "DESIGN", LabelCol: colH, ValueCol: colJ, Kind: CountAddonColumn, AddonCol: colI},
				{Label: "SOURCING", LabelCol: colH, ValueCol: colJ, Kind: CountAddonColumn, AddonCol: colJ},
				{Label: "TREATMENT", LabelCol: colH, ValueCol: colJ, Kind: CountAddonColumn, AddonCol: colK},
			},
			Variant: &VariantLayout{
				TriggerCategory: CategoryActivewear,
				ReplacedLabel:   "FINAL SAMPLES",
				SubstituteLabel: "SECOND SAMPLES",
				ReferenceLabel:  "ROUND OF REVISIONS",
				InsertedLabels:  [3]string{"2ND ROUND OF FITTINGS", "2ND ROUND OF REVISIONS", "FINAL SAMPLES"},
				InsertedKinds:   [3]CountKind{CountOne, CountOne, CountStyles},
			},
			NotesLabel: "PROJECT NOTES",
			NotesCol:   colN,
			HeaderRows: 9,
			ScanWindow: 30,
		},
		Services: ServiceLayout{
			Sheet:        "A LA CARTE",
			FirstItemRow: 10,
			BaseCapacity: 5,
			TotalsRow:    20,
			Columns: ServiceColumns{
				Number:     colB,
				Label:      colC,
				Activities: [5]int{colD, colE, colF, colG, colH},
				Derived:    colI,
				Duplicates: colJ,
				RowTotal:   colK,
				Addons:     [4]int{colM, colN, colO, colP},
				AddonTotal: colQ,
			},
			BlockSpan: grid.MustRange("B20:Q36"),
			Counts: []DeliverableCount{
				{Label: "INTAKE SESSION", LabelCol: colB, ValueCol: colE, Kind: CountActivityItems, Activity: 0, MergePair: true},
				{Label: "1ST PATTERN", LabelCol: colB, ValueCol: colE, Kind: CountActivityItems, Activity: 1, MergePair: true},
				{Label: "1ST SAMPLE", LabelCol: colB, ValueCol: colE, Kind: CountActivityItems, Activity: 2, MergePair: true},
				{Label: "FITTING", LabelCol: colB, ValueCol: colE, Kind: CountSharedHours, MergePair: true},
				{Label: "ADJUSTMENT", LabelCol: colB, ValueCol: colE, Kind: CountSharedHours, MergePair: true},
				{Label: "FINAL SAMPLES", LabelCol: colB, ValueCol: colE, Kind: CountPerUnit, MergePair: true},
				{Label: "DUPLICATES", LabelCol: colB, ValueCol: colE, Kind: CountPerUnit, MergePair: true},
				{Label: "WASH/TREATMENT", LabelCol: colM, ValueCol: colO, Kind: CountAddonColumn, AddonCol: colM},
				{Label: "DESIGN", LabelCol: colM, ValueCol: colO, Kind: CountAddonColumn, AddonCol: colN},
				{Label: "SOURCING", LabelCol: colM, ValueCol: colO, Kind: CountAddonColumn, AddonCol: colO},
				{Label: "TREATMENT", LabelCol: colM, ValueCol: colO, Kind: CountAddonColumn, AddonCol: colP},
			},
			TemplateRow: 19,
			HeaderRows:  9,
		},
	}
}

// pairRow returns the first physical row of the i-th row-pair in a
// region starting at firstRow.
func pairRow(firstRow, i int) int {
	return firstRow + i*2
}
