package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gigmarket/marketplace/backend/internal/domain/document"
)

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestResolveLocation_ServiceLocationSplit(t *testing.T) {
	doc := document.Document{
		"serviceLocation": document.String("Austin, TX"),
		"city":            document.String("Dallas"),
		"state":           document.String("OK"),
	}

	loc := ResolveLocation(doc)
	assert.Equal(t, "Austin", deref(loc.City))
	assert.Equal(t, "TX", deref(loc.State))
	assert.Equal(t, "Austin, TX", deref(loc.ServiceLocation))
}

func TestResolveLocation_ServiceLocationEmptyCityPart(t *testing.T) {
	doc := document.Document{
		"serviceLocation": document.String(", TX"),
		"city":            document.String("Dallas"),
		"state":           document.String("OK"),
	}

	loc := ResolveLocation(doc)
	// An empty leading part is not a city; the city cascade answers instead.
	assert.Equal(t, "Dallas", deref(loc.City))
	assert.Equal(t, "TX", deref(loc.State))
	assert.Equal(t, ", TX", deref(loc.ServiceLocation))

	doc = document.Document{"serviceLocation": document.String(", TX")}
	loc = ResolveLocation(doc)
	assert.Nil(t, loc.City)
	assert.Equal(t, "TX", deref(loc.State))
}

func TestResolveLocation_ServiceLocationCascade(t *testing.T) {
	doc := document.Document{
		"serviceAreaLocation": document.String("Houston, TX"),
		"formData": document.Mapping(document.Document{
			"serviceAreaLocation": document.String("El Paso, TX"),
		}),
	}
	assert.Equal(t, "El Paso, TX", deref(ResolveLocation(doc).ServiceLocation))

	doc["serviceLocation"] = document.String("Waco, TX")
	assert.Equal(t, "Waco, TX", deref(ResolveLocation(doc).ServiceLocation))

	doc["formData"] = document.Mapping(document.Document{"serviceLocation": document.String("Plano, TX")})
	assert.Equal(t, "Plano, TX", deref(ResolveLocation(doc).ServiceLocation))
}

func TestResolveLocation_ServiceLocationWithoutComma(t *testing.T) {
	doc := document.Document{
		"serviceLocation": document.String("Greater Austin Area"),
		"city":            document.String("Round Rock"),
		"state":           document.String("TX"),
	}

	loc := ResolveLocation(doc)
	assert.Equal(t, "Round Rock", deref(loc.City))
	assert.Equal(t, "TX", deref(loc.State))
	assert.Equal(t, "Greater Austin Area", deref(loc.ServiceLocation))
}

func TestResolveLocation_DirectAndNestedFields(t *testing.T) {
	cases := []struct {
		name      string
		doc       document.Document
		wantCity  string
		wantState string
	}{
		{
			name: "nested form fields",
			doc: document.Document{
				"formData": document.Mapping(document.Document{
					"city":  document.String("Denver"),
					"state": document.String("CO"),
				}),
			},
			wantCity:  "Denver",
			wantState: "CO",
		},
		{
			name: "residential address",
			doc: document.Document{
				"residentialAddress": document.Mapping(document.Document{
					"city":  document.String("Boise"),
					"state": document.String("ID"),
				}),
			},
			wantCity:  "Boise",
			wantState: "ID",
		},
		{
			name: "nested residential address",
			doc: document.Document{
				"formData": document.Mapping(document.Document{
					"residentialAddress": document.Mapping(document.Document{
						"city": document.String("Reno"),
					}),
					"businessState": document.String("NV"),
				}),
			},
			wantCity:  "Reno",
			wantState: "NV",
		},
		{
			name: "city and state from different sources",
			doc: document.Document{
				"businessCity": document.String("Tulsa"),
				"location":     document.String("Somewhere, ok"),
			},
			wantCity:  "Tulsa",
			wantState: "OK",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc := ResolveLocation(tc.doc)
			assert.Equal(t, tc.wantCity, deref(loc.City))
			assert.Equal(t, tc.wantState, deref(loc.State))
			assert.Nil(t, loc.ServiceLocation)
		})
	}
}

func TestResolveLocation_VenueOverrides(t *testing.T) {
	doc := document.Document{
		"category": document.String("Venues"),
		"formData": document.Mapping(document.Document{
			"venueAddress": document.Mapping(document.Document{
				"city":  document.String("Nashville"),
				"state": document.String("TN"),
			}),
		}),
	}

	loc := ResolveLocation(doc)
	assert.Equal(t, "Nashville", deref(loc.City))
	assert.Equal(t, "TN", deref(loc.State))

	doc["category"] = document.String("Vendors")
	loc = ResolveLocation(doc)
	assert.Nil(t, loc.City, "venue fields are ignored for other categories")
	assert.Nil(t, loc.State)
}

func TestResolveLocation_VenueCityBeforeVenueAddress(t *testing.T) {
	doc := document.Document{
		"category": document.String("venue"),
		"formData": document.Mapping(document.Document{
			"venueCity": document.String("Memphis"),
			"venueAddress": document.Mapping(document.Document{
				"city": document.String("Knoxville"),
			}),
		}),
	}
	assert.Equal(t, "Memphis", deref(ResolveLocation(doc).City))
}

func TestResolveLocation_EntertainmentBasedIn(t *testing.T) {
	doc := document.Document{
		"category": document.String("Entertainment"),
		"basedIn":  document.String("Austin, Texas"),
	}
	loc := ResolveLocation(doc)
	assert.Equal(t, "Austin", deref(loc.City))
	assert.Equal(t, "Texas", deref(loc.State))

	doc["basedIn"] = document.String("Chicago")
	loc = ResolveLocation(doc)
	assert.Equal(t, "Chicago", deref(loc.City))
	assert.Nil(t, loc.State)

	doc["category"] = document.String("FoodBeverage")
	assert.Nil(t, ResolveLocation(doc).City)
}

func TestResolveLocation_FreeTextFallback(t *testing.T) {
	cases := []struct {
		location  string
		wantCity  string
		wantState string
	}{
		{"123 Main St, Springfield, IL, 62704", "Springfield", "IL"},
		{"Springfield, IL, 62704", "Springfield", "IL"},
		{"Springfield, IL", "Springfield", "IL"},
		{"Springfield, il", "Springfield", "IL"},
		{"Springfield, Illinois", "Springfield", "Illinois"},
		{"123 Main St, Springfield, IL", "Springfield", "IL"},
		{"Suite 4, 123 Main St, Springfield, Illinois", "Springfield", "Illinois"},
		{"Springfield, 62704", "Springfield", "62704"},
		{"12 Elm, Peoria, IL, 61602-1234", "Peoria", "IL"},
	}

	for _, tc := range cases {
		t.Run(tc.location, func(t *testing.T) {
			loc := ResolveLocation(document.Document{"location": document.String(tc.location)})
			assert.Equal(t, tc.wantCity, deref(loc.City))
			assert.Equal(t, tc.wantState, deref(loc.State))
		})
	}
}

func TestResolveLocation_FreeTextWithoutComma(t *testing.T) {
	loc := ResolveLocation(document.Document{"location": document.String("Springfield")})
	assert.Nil(t, loc.City)
	assert.Nil(t, loc.State)
	assert.Nil(t, loc.ServiceLocation)
}

func TestResolveLocation_NonStringFieldsIgnored(t *testing.T) {
	loc := ResolveLocation(document.Document{
		"city":     document.Number(12),
		"state":    document.Bool(true),
		"location": document.Array(document.String("Austin, TX")),
	})
	assert.Nil(t, loc.City)
	assert.Nil(t, loc.State)
}
