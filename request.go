package xlquote

import "strings"

// Pricing categories shipped with the default rate card. Any other
// category resolves through the tier table's default.
const (
	CategoryStandard   = "standard"
	CategoryActivewear = "activewear"
)

// AddonFlags selects the four fixed optional add-ons of a line item.
// The order of flags matches the order of add-on columns in the
// sheet layout.
type AddonFlags struct {
	WashDye   bool `json:"washDye"`
	Design    bool `json:"design"`
	Sourcing  bool `json:"sourcing"`
	Treatment bool `json:"treatment"`
}

func (f AddonFlags) selected() [4]bool {
	return [4]bool{f.WashDye, f.Design, f.Sourcing, f.Treatment}
}

// StyleEntry is a tiered-priced line item. Its unit price comes from
// the tier table unless PriceOverride is set.
type StyleEntry struct {
	Number            int        `json:"number"`
	Label             string     `json:"label"`
	Category          string     `json:"category"`
	MultiplierPercent float64    `json:"multiplierPercent"`
	PriceOverride     float64    `json:"priceOverride,omitempty"`
	Addons            AddonFlags `json:"addons"`
}

// CustomEntry is a free-priced line item: the caller names its price.
type CustomEntry struct {
	Number            int        `json:"number"`
	Label             string     `json:"label"`
	Price             float64    `json:"price"`
	MultiplierPercent float64    `json:"multiplierPercent"`
	Addons            AddonFlags `json:"addons"`
}

// ServiceEntry is an hourly-rate line item for the services sheet.
// Hours per activity map onto the activity columns in layout order.
type ServiceEntry struct {
	Number         int        `json:"number"`
	Label          string     `json:"label"`
	IntakeHours    float64    `json:"intakeHours"`
	PatternHours   float64    `json:"patternHours"`
	SampleHours    float64    `json:"sampleHours"`
	FittingHours   float64    `json:"fittingHours"`
	AdjustHours    float64    `json:"adjustHours"`
	DuplicateHours float64    `json:"duplicateHours"`
	Quantity       int        `json:"quantity"`
	Addons         AddonFlags `json:"addons"`
}

func (e ServiceEntry) activityHours() [5]float64 {
	return [5]float64{e.IntakeHours, e.PatternHours, e.SampleHours, e.FittingHours, e.AdjustHours}
}

// Request is the inbound generation contract: client identity, the
// three entry collections, a discount and free-text notes.
type Request struct {
	ClientName      string         `json:"clientName"`
	ClientEmail     string         `json:"clientEmail"`
	Representative  string         `json:"representative"`
	Styles          []StyleEntry   `json:"styles"`
	Customs         []CustomEntry  `json:"customs"`
	Services        []ServiceEntry `json:"services"`
	DiscountPercent float64        `json:"discountPercent"`
	Notes           []string       `json:"notes"`
}

// Normalize clamps malformed numeric input instead of rejecting it:
// negative quantities and multipliers go to zero, the discount is
// clamped to [0,100], labels are trimmed. Partial user input must
// still produce a usable document.
func (r *Request) Normalize() {
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.ClientEmail = strings.TrimSpace(r.ClientEmail)
	r.Representative = strings.TrimSpace(r.Representative)
	r.DiscountPercent = clamp(r.DiscountPercent, 0, 100)

	for i := range r.Styles {
		e := &r.Styles[i]
		e.Label = strings.TrimSpace(e.Label)
		e.Category = strings.ToLower(strings.TrimSpace(e.Category))
		e.MultiplierPercent = clamp(e.MultiplierPercent, 0, 100)
		if e.PriceOverride < 0 {
			e.PriceOverride = 0
		}
	}
	for i := range r.Customs {
		e := &r.Customs[i]
		e.Label = strings.TrimSpace(e.Label)
		e.MultiplierPercent = clamp(e.MultiplierPercent, 0, 100)
		if e.Price < 0 {
			e.Price = 0
		}
	}
	for i := range r.Services {
		e := &r.Services[i]
		e.Label = strings.TrimSpace(e.Label)
		for _, h := range []*float64{
			&e.IntakeHours, &e.PatternHours, &e.SampleHours,
			&e.FittingHours, &e.AdjustHours, &e.DuplicateHours,
		} {
			if *h < 0 {
				*h = 0
			}
		}
		if e.Quantity < 1 {
			e.Quantity = 1
		}
	}
}

// Validate reports whether the request can drive a generation.
func (r *Request) Validate() error {
	if len(r.Styles) == 0 && len(r.Customs) == 0 && len(r.Services) == 0 {
		return ErrNoEntries
	}
	return nil
}

// PricedCount is the count the pricing tier lookup keys on: styles
// plus customs, services excluded.
func (r *Request) PricedCount() int {
	return len(r.Styles) + len(r.Customs)
}

// CountCategory counts priced style entries in the given category.
func (r *Request) CountCategory(category string) int {
	n := 0
	for _, e := range r.Styles {
		if e.Category == category {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
