package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigmarket/marketplace/backend/internal/domain/document"
	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
)

const venueIntake = `{
	"category": "Venues",
	"formData": {
		"venueName": "Magnolia Barn",
		"venueAddress": {"street": "12 Farm Rd", "city": "Waxahachie", "state": "TX"}
	},
	"coverPhoto": "https://cdn.example.com/barn-cover.jpg",
	"businessPhotos": ["https://cdn.example.com/barn-1.jpg", "https://cdn.example.com/barn-cover.jpg"],
	"rating": 4.8,
	"reviewCount": 37,
	"lat": 32.3866,
	"lng": -96.8483,
	"serviceRadius": 25
}`

func TestNormalize_VenueIntake(t *testing.T) {
	doc, err := document.Parse([]byte(venueIntake))
	require.NoError(t, err)

	p := Normalize("prov-123", doc)

	assert.Equal(t, "prov-123", p.ID)
	assert.Equal(t, "Magnolia Barn", p.DisplayName)
	assert.Equal(t, entities.CategoryVenues, p.Category)
	assert.Equal(t, "Waxahachie", deref(p.City))
	assert.Equal(t, "TX", deref(p.State))
	assert.Nil(t, p.ServiceLocation)
	assert.Equal(t, []string{
		"https://cdn.example.com/barn-1.jpg",
		"https://cdn.example.com/barn-cover.jpg",
	}, p.ImageURLs)
	assert.Equal(t, "https://cdn.example.com/barn-cover.jpg", deref(p.PrimaryImageURL))
	require.NotNil(t, p.Rating)
	assert.Equal(t, 4.8, *p.Rating)
	assert.Equal(t, 37.0, *p.ReviewCount)
	assert.Equal(t, 25.0, *p.ServiceRadius)
	assert.Equal(t, 32.3866, *p.Latitude)
	assert.Equal(t, "12 Farm Rd", deref(p.Address))
}

func TestNormalize_UnknownCategoryDefaultsToVendors(t *testing.T) {
	p := Normalize("x", document.Document{"category": document.String("Balloon Art")})
	assert.Equal(t, entities.CategoryVendors, p.Category)
	assert.Equal(t, "", p.DisplayName)
	assert.False(t, p.HasName())
	assert.Nil(t, p.Rating)
}

func TestNormalize_IsDeterministic(t *testing.T) {
	doc, err := document.Parse([]byte(venueIntake))
	require.NoError(t, err)

	first, err := json.Marshal(Normalize("prov-123", doc))
	require.NoError(t, err)
	second, err := json.Marshal(Normalize("prov-123", doc))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestNormalize_JSONShape(t *testing.T) {
	p := Normalize("empty", document.Document{})

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "", out["displayName"])
	assert.Equal(t, []interface{}{}, out["imageUrls"])
	assert.Contains(t, out, "city")
	assert.Nil(t, out["city"])
	assert.Nil(t, out["primaryImageUrl"])
	assert.NotContains(t, out, "rating")
}

func TestNormalizeAll_PreservesOrder(t *testing.T) {
	records := []*document.Record{
		{ID: "b", Data: document.Document{"businessName": document.String("B")}},
		{ID: "a", Data: document.Document{"businessName": document.String("A")}},
	}

	providers := NormalizeAll(records)
	require.Len(t, providers, 2)
	assert.Equal(t, "b", providers[0].ID)
	assert.Equal(t, "A", providers[1].DisplayName)
}
