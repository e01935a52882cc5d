package xlquote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeClampsInput(t *testing.T) {
	req := &Request{
		ClientName:      "  Acme ",
		DiscountPercent: 140,
		Styles: []StyleEntry{
			{Label: " Jacket ", Category: " Activewear ", MultiplierPercent: -5, PriceOverride: -100},
		},
		Customs: []CustomEntry{
			{Label: "Fee", Price: -50, MultiplierPercent: 300},
		},
		Services: []ServiceEntry{
			{Label: "Grading", IntakeHours: -2, Quantity: 0},
		},
	}
	req.Normalize()

	assert.Equal(t, "Acme", req.ClientName)
	assert.Equal(t, 100.0, req.DiscountPercent)
	assert.Equal(t, "Jacket", req.Styles[0].Label)
	assert.Equal(t, CategoryActivewear, req.Styles[0].Category)
	assert.Zero(t, req.Styles[0].MultiplierPercent)
	assert.Zero(t, req.Styles[0].PriceOverride)
	assert.Zero(t, req.Customs[0].Price)
	assert.Equal(t, 100.0, req.Customs[0].MultiplierPercent)
	assert.Zero(t, req.Services[0].IntakeHours)
	assert.Equal(t, 1, req.Services[0].Quantity)
}

func TestValidateAndCounting(t *testing.T) {
	assert.ErrorIs(t, (&Request{}).Validate(), ErrNoEntries)

	req := &Request{
		Styles: []StyleEntry{
			{Category: CategoryActivewear},
			{Category: CategoryStandard},
		},
		Customs: []CustomEntry{{}},
	}
	assert.NoError(t, req.Validate())
	assert.Equal(t, 3, req.PricedCount())
	assert.Equal(t, 1, req.CountCategory(CategoryActivewear))
}
