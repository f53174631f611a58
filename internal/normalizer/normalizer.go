package normalizer

import (
	"github.com/gigmarket/marketplace/backend/internal/domain/document"
	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
)

// Normalize builds the canonical Provider for the document stored under id.
// The resolvers share nothing but the input and may run in any order.
func Normalize(id string, doc document.Document) *entities.Provider {
	storedCategory, _ := doc.Str("category")

	location := ResolveLocation(doc)
	images := ResolveImages(doc)

	provider := &entities.Provider{
		ID:              id,
		DisplayName:     ResolveName(doc, storedCategory),
		Category:        entities.ParseCategory(storedCategory),
		City:            location.City,
		State:           location.State,
		ServiceLocation: location.ServiceLocation,
		ImageURLs:       images.ImageURLs,
		PrimaryImageURL: images.PrimaryImageURL,
		Rating:          number(doc, top("rating")),
		ReviewCount:     number(doc, top("reviewCount")),
		Latitude:        number(doc, top("lat"), top("latitude"), form("lat")),
		Longitude:       number(doc, top("lng"), top("longitude"), form("lng")),
		ServiceRadius:   number(doc, top("serviceRadius"), form("serviceRadius")),
	}

	if address, ok := firstOf(doc, addressCascade, presentString); ok {
		provider.Address = strPtr(address)
	}

	return provider
}

// NormalizeAll normalizes a batch, preserving order.
func NormalizeAll(records []*document.Record) []*entities.Provider {
	out := make([]*entities.Provider, 0, len(records))
	for _, r := range records {
		out = append(out, Normalize(r.ID, r.Data))
	}
	return out
}

var addressCascade = []fieldPath{
	top("address"),
	form("address"),
	form("venueAddress", "street"),
}

func number(doc document.Document, paths ...fieldPath) *float64 {
	for _, path := range paths {
		if n, ok := path.lookup(doc).AsNumber(); ok {
			return &n
		}
	}
	return nil
}
