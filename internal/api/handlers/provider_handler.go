package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/repositories"
	"github.com/gigmarket/marketplace/backend/internal/geo"
	apperrors "github.com/gigmarket/marketplace/backend/pkg/errors"
)

// ProviderReader serves normalized providers
type ProviderReader interface {
	List(ctx context.Context, filter repositories.ProviderFilter) (*entities.ProviderPage, error)
	Get(ctx context.Context, id string) (*entities.Provider, error)
	GetMany(ctx context.Context, ids []string) (*entities.ProviderPage, error)
	Search(ctx context.Context, params repositories.ProviderSearchParams) (*entities.ProviderPage, error)
}

// ServiceAreaRenderer computes coverage overlays
type ServiceAreaRenderer interface {
	Render(ctx context.Context, req entities.ServiceAreaRequest) (*entities.ServiceArea, error)
	ForProvider(ctx context.Context, provider *entities.Provider) (*entities.ServiceArea, error)
}

// ProviderHandler handles provider HTTP requests
type ProviderHandler struct {
	providers ProviderReader
	areas     ServiceAreaRenderer
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(providers ProviderReader, areas ServiceAreaRenderer) *ProviderHandler {
	return &ProviderHandler{providers: providers, areas: areas}
}

// ListProviders handles GET /api/providers
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	category, err := categoryParam(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	page, err := h.providers.List(r.Context(), repositories.ProviderFilter{
		Category: category,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// BatchProviders handles GET /api/providers/batch?ids=a,b
func (h *ProviderHandler) BatchProviders(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	if raw == "" {
		respondWithError(w, http.StatusBadRequest, "ids parameter is required")
		return
	}

	page, err := h.providers.GetMany(r.Context(), strings.Split(raw, ","))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// SearchProviders handles GET /api/providers/search. radius is in miles.
func (h *ProviderHandler) SearchProviders(w http.ResponseWriter, r *http.Request) {
	params := repositories.ProviderSearchParams{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}

	var err error
	if params.Category, err = categoryParam(r); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if params.Latitude, err = queryFloat(r, "lat"); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if params.Longitude, err = queryFloat(r, "lng"); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	radius, err := queryFloat(r, "radius")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if radius != nil {
		params.RadiusKm = geo.MilesToKm(*radius)
	}
	if params.Limit, err = queryInt(r, "limit"); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if params.Offset, err = queryInt(r, "offset"); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	page, err := h.providers.Search(r.Context(), params)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// GetProvider handles GET /api/providers/{id}
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	provider, err := h.providers.Get(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, provider)
}

// GetProviderServiceArea handles GET /api/providers/{id}/service-area
func (h *ProviderHandler) GetProviderServiceArea(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	provider, err := h.providers.Get(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	area, err := h.areas.ForProvider(r.Context(), provider)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithServiceArea(w, area)
}

func categoryParam(r *http.Request) (*entities.Category, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("category"))
	if raw == "" {
		return nil, nil
	}
	category, ok := entities.LookupCategory(raw)
	if !ok {
		return nil, apperrors.NewValidationError("unknown category " + raw)
	}
	return &category, nil
}
