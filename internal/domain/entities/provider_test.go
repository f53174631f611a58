package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"Venues":          CategoryVenues,
		" venue ":         CategoryVenues,
		"Entertainment":   CategoryEntertainment,
		"Food & Beverage": CategoryFoodBeverage,
		"FoodBeverage":    CategoryFoodBeverage,
		"vendors":         CategoryVendors,
		"":                CategoryVendors,
		"Florist":         CategoryVendors,
	}

	for raw, want := range cases {
		assert.Equal(t, want, ParseCategory(raw), "raw=%q", raw)
	}
}

func TestStoredSpellings_RoundTrip(t *testing.T) {
	for _, c := range Categories {
		spellings := c.StoredSpellings()
		assert.NotEmpty(t, spellings, "category %s", c)
		for _, s := range spellings {
			assert.Equal(t, c, ParseCategory(s))
		}
	}
}
