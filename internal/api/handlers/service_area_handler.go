package handlers

import (
	"net/http"
	"strings"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
)

// ServiceAreaHandler renders coverage areas from raw location parameters,
// for providers that are still being drafted.
type ServiceAreaHandler struct {
	areas         ServiceAreaRenderer
	defaultRadius float64
}

// NewServiceAreaHandler creates a new service area handler. defaultRadius
// applies when the request has no radius.
func NewServiceAreaHandler(areas ServiceAreaRenderer, defaultRadius float64) *ServiceAreaHandler {
	return &ServiceAreaHandler{areas: areas, defaultRadius: defaultRadius}
}

// GetServiceArea handles GET /api/service-area
func (h *ServiceAreaHandler) GetServiceArea(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := entities.ServiceAreaRequest{
		ServiceRadius: h.defaultRadius,
		City:          strings.TrimSpace(q.Get("city")),
		State:         strings.TrimSpace(q.Get("state")),
		Address:       strings.TrimSpace(q.Get("address")),
	}

	var err error
	if req.Latitude, err = queryFloat(r, "lat"); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if req.Longitude, err = queryFloat(r, "lng"); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	radius, err := queryFloat(r, "radius")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if radius != nil {
		req.ServiceRadius = *radius
	}

	area, err := h.areas.Render(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithServiceArea(w, area)
}

// respondWithServiceArea writes area. A no_location area may come from a
// geocoder outage, so neither shared caches nor browsers may keep it.
func respondWithServiceArea(w http.ResponseWriter, area *entities.ServiceArea) {
	if area.State == entities.ServiceAreaStateNoLocation {
		w.Header().Set("Cache-Control", "no-store")
	}
	respondWithJSON(w, http.StatusOK, area)
}
