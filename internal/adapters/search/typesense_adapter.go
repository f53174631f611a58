package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/repositories"
	tsclient "github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/typesense"
	apperrors "github.com/gigmarket/marketplace/backend/pkg/errors"
)

const (
	defaultPerPage = 20
	maxPerPage     = 250
)

// TypesenseAdapter implements provider search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements ProviderSearchRepository
var _ repositories.ProviderSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

// Index upserts a normalized provider
func (a *TypesenseAdapter) Index(ctx context.Context, provider *entities.Provider) error {
	_, err := a.client.Client().Collection(a.client.Collection()).Documents().Upsert(ctx, providerDocument(provider))
	if err != nil {
		return fmt.Errorf("failed to index provider %s: %w", provider.ID, err)
	}
	return nil
}

// Delete removes a provider from index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(a.client.Collection()).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete provider from index: %w", err)
	}
	return nil
}

// Search returns provider ids in rank order and the number of hits found
func (a *TypesenseAdapter) Search(ctx context.Context, params repositories.ProviderSearchParams) ([]string, int, error) {
	result, err := a.client.Client().Collection(a.client.Collection()).Documents().Search(ctx, buildSearchParams(params))
	if err != nil {
		return nil, 0, apperrors.NewExternalError("provider search failed", err)
	}

	found := 0
	if result.Found != nil {
		found = *result.Found
	}
	if result.Hits == nil {
		return []string{}, found, nil
	}

	ids := make([]string, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, found, nil
}

func buildSearchParams(params repositories.ProviderSearchParams) *api.SearchCollectionParams {
	q := strings.TrimSpace(params.Query)
	if q == "" {
		q = "*"
	}

	perPage := params.Limit
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	offset := max(params.Offset, 0)

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("display_name,tags"),
		Page:    pointer.Int(offset/perPage + 1),
		PerPage: pointer.Int(perPage),
	}

	var filters []string
	if params.Category != nil {
		filters = append(filters, fmt.Sprintf("category:=`%s`", *params.Category))
	}
	if params.HasGeo() {
		filters = append(filters, fmt.Sprintf("location:(%f, %f, %f km)", *params.Latitude, *params.Longitude, params.RadiusKm))
		searchParams.SortBy = pointer.String(fmt.Sprintf("location(%f, %f):asc", *params.Latitude, *params.Longitude))
	}
	if len(filters) > 0 {
		searchParams.FilterBy = pointer.String(strings.Join(filters, " && "))
	}
	return searchParams
}

// providerDocument flattens a provider into the collection schema. Optional
// fields are omitted rather than sent as null.
func providerDocument(p *entities.Provider) map[string]interface{} {
	doc := map[string]interface{}{
		"id":           p.ID,
		"display_name": p.DisplayName,
		"category":     string(p.Category),
	}
	if p.City != nil {
		doc["city"] = *p.City
	}
	if p.State != nil {
		doc["state"] = *p.State
	}
	if p.ServiceLocation != nil {
		doc["service_location"] = *p.ServiceLocation
	}
	if p.Latitude != nil && p.Longitude != nil {
		doc["location"] = []float64{*p.Latitude, *p.Longitude}
	}
	if p.Rating != nil {
		doc["rating"] = *p.Rating
	}
	if p.ReviewCount != nil {
		doc["review_count"] = *p.ReviewCount
	}
	if p.ServiceRadius != nil {
		doc["service_radius"] = *p.ServiceRadius
	}
	if tags := buildProviderTags(p); len(tags) > 0 {
		doc["tags"] = tags
	}
	return doc
}
