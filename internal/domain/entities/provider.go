package entities

import (
	"sort"
	"strings"
)

// Category is the marketplace vertical a provider is listed under
type Category string

const (
	CategoryFoodBeverage  Category = "FoodBeverage"
	CategoryEntertainment Category = "Entertainment"
	CategoryVenues        Category = "Venues"
	CategoryVendors       Category = "Vendors"
)

// Categories lists every recognised category in display order
var Categories = []Category{
	CategoryFoodBeverage,
	CategoryEntertainment,
	CategoryVenues,
	CategoryVendors,
}

// categoryAliases maps lower-cased stored spellings to a category. The intake
// forms never agreed on a single spelling.
var categoryAliases = map[string]Category{
	"foodbeverage":      CategoryFoodBeverage,
	"food & beverage":   CategoryFoodBeverage,
	"food and beverage": CategoryFoodBeverage,
	"food_beverage":     CategoryFoodBeverage,
	"food-beverage":     CategoryFoodBeverage,
	"food":              CategoryFoodBeverage,
	"catering":          CategoryFoodBeverage,
	"entertainment":     CategoryEntertainment,
	"entertainer":       CategoryEntertainment,
	"entertainers":      CategoryEntertainment,
	"venues":            CategoryVenues,
	"venue":             CategoryVenues,
	"vendors":           CategoryVendors,
	"vendor":            CategoryVendors,
}

// ParseCategory maps a stored category string onto the enumeration.
// Absent or unrecognised values map to CategoryVendors.
func ParseCategory(raw string) Category {
	if c, ok := LookupCategory(raw); ok {
		return c
	}
	return CategoryVendors
}

// LookupCategory is ParseCategory without the default.
func LookupCategory(raw string) (Category, bool) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(raw))]
	return c, ok
}

// StoredSpellings returns the lower-cased stored values that parse to c, sorted.
func (c Category) StoredSpellings() []string {
	var out []string
	for alias, cat := range categoryAliases {
		if cat == c {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// Provider is the canonical, UI-ready view of one stored provider document.
// It is rebuilt on every read and never written back.
type Provider struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"displayName"`
	Category        Category `json:"category"`
	City            *string  `json:"city"`
	State           *string  `json:"state"`
	ServiceLocation *string  `json:"serviceLocation"`
	ImageURLs       []string `json:"imageUrls"`
	PrimaryImageURL *string  `json:"primaryImageUrl"`
	Rating          *float64 `json:"rating,omitempty"`
	ReviewCount     *float64 `json:"reviewCount,omitempty"`
	Latitude        *float64 `json:"lat,omitempty"`
	Longitude       *float64 `json:"lng,omitempty"`
	ServiceRadius   *float64 `json:"serviceRadius,omitempty"`
	Address         *string  `json:"address,omitempty"`
}

// HasName reports whether a display name was resolved
func (p *Provider) HasName() bool {
	return p.DisplayName != ""
}

// ProviderPage is the list payload returned by the read endpoints
type ProviderPage struct {
	Providers []*Provider `json:"providers"`
	Total     int         `json:"total"`
}
