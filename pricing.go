package xlquote

// TierBracket is one right-open count bracket of a rate card: a count
// N falls in the bracket when N < Below. Below == 0 marks the open
// top bracket.
type TierBracket struct {
	Below int     `json:"below"`
	Price float64 `json:"price"`
}

// AddonPrices carries the fixed price of each of the four optional
// add-ons, in add-on column order.
type AddonPrices struct {
	WashDye   float64 `json:"washDye"`
	Design    float64 `json:"design"`
	Sourcing  float64 `json:"sourcing"`
	Treatment float64 `json:"treatment"`
}

func (a AddonPrices) byColumn() [4]float64 {
	return [4]float64{a.WashDye, a.Design, a.Sourcing, a.Treatment}
}

// PricingConfig is the rate card: tiered unit prices per category,
// fixed add-on prices, and the hourly rates of the services sheet.
// It is configuration data; the engine hard-codes none of it.
type PricingConfig struct {
	DefaultCategory string                   `json:"defaultCategory"`
	Tiers           map[string][]TierBracket `json:"tiers"`
	Addons          AddonPrices              `json:"addons"`
	HourlyRate      float64                  `json:"hourlyRate"`
	SampleRate      float64                  `json:"sampleRate"`
}

// DefaultPricing returns the built-in rate card.
func DefaultPricing() *PricingConfig {
	return &PricingConfig{
		DefaultCategory: CategoryStandard,
		Tiers: map[string][]TierBracket{
			CategoryStandard: {
				{Below: 2, Price: 2790},
				{Below: 5, Price: 2780},
				{Below: 10, Price: 2325},
				{Below: 15, Price: 2325},
				{Below: 0, Price: 2325},
			},
			CategoryActivewear: {
				{Below: 2, Price: 3560},
				{Below: 5, Price: 3560},
				{Below: 10, Price: 2965},
				{Below: 15, Price: 2965},
				{Below: 0, Price: 2965},
			},
		},
		Addons: AddonPrices{
			WashDye:   1330,
			Design:    1330,
			Sourcing:  1330,
			Treatment: 760,
		},
		HourlyRate: 190,
		SampleRate: 90,
	}
}

// Resolve maps a category and the total priced-entry count of the
// generation to a unit price. Every entry in one generation shares
// the same bracket: the lookup keys on the total count, never on the
// entry's own index. An unknown category resolves through the default
// category.
func (p *PricingConfig) Resolve(category string, totalCount int) float64 {
	brackets, ok := p.Tiers[category]
	if !ok {
		brackets, ok = p.Tiers[p.DefaultCategory]
		if !ok {
			return 0
		}
	}
	// Pick the tightest bracket whose upper bound exceeds the count;
	// the open bracket catches everything above the last bound.
	best := -1
	var open *TierBracket
	for i := range brackets {
		b := &brackets[i]
		if b.Below <= 0 {
			open = b
			continue
		}
		if totalCount < b.Below && (best < 0 || b.Below < brackets[best].Below) {
			best = i
		}
	}
	if best >= 0 {
		return brackets[best].Price
	}
	if open != nil {
		return open.Price
	}
	return 0
}
