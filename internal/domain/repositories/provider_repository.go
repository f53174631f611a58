package repositories

import (
	"context"

	"github.com/gigmarket/marketplace/backend/internal/domain/document"
	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
)

// ProviderDocumentRepository reads raw provider documents from the document store.
// Implementations never modify documents.
type ProviderDocumentRepository interface {
	// GetByID retrieves one document. Returns a NOT_FOUND AppError when absent.
	GetByID(ctx context.Context, id string) (*document.Record, error)

	// GetByIDs retrieves the documents that exist among ids, in no particular order
	GetByIDs(ctx context.Context, ids []string) ([]*document.Record, error)

	// List retrieves a page of documents and the total number matching filter
	List(ctx context.Context, filter ProviderFilter) ([]*document.Record, int, error)
}

// ProviderSearchRepository defines the interface for provider search operations (e.g. Typesense)
type ProviderSearchRepository interface {
	// Search returns matching provider ids in rank order and the total hit count
	Search(ctx context.Context, params ProviderSearchParams) ([]string, int, error)

	// Index upserts a normalized provider
	Index(ctx context.Context, provider *entities.Provider) error

	// Delete removes a provider from the index
	Delete(ctx context.Context, id string) error
}

// ProviderFilter defines filters for listing provider documents
type ProviderFilter struct {
	// Category restricts results to documents whose stored category parses to it
	Category *entities.Category
	Limit    int
	Offset   int
}

// ProviderSearchParams defines parameters for provider search
type ProviderSearchParams struct {
	Query     string
	Category  *entities.Category
	Latitude  *float64
	Longitude *float64
	RadiusKm  float64
	Limit     int
	Offset    int
}

// HasGeo reports whether the search is restricted to a radius around a point
func (p ProviderSearchParams) HasGeo() bool {
	return p.Latitude != nil && p.Longitude != nil && p.RadiusKm > 0
}
