package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gigmarket/marketplace/backend/internal/api/handlers"
	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	apperrors "github.com/gigmarket/marketplace/backend/pkg/errors"
)

func TestServiceAreaHandler_FromCoordinates(t *testing.T) {
	areas := new(MockServiceAreaRenderer)
	handler := handlers.NewServiceAreaHandler(areas, 25)

	areas.On("Render", mock.Anything, mock.MatchedBy(func(req entities.ServiceAreaRequest) bool {
		return req.Latitude != nil && *req.Latitude == 40.7 &&
			req.Longitude != nil && *req.Longitude == -74 &&
			req.ServiceRadius == 5
	})).Return(&entities.ServiceArea{State: entities.ServiceAreaStateReady, HasLocation: true, RadiusMiles: 5}, nil)

	rec := serve("GET /api/service-area", handler.GetServiceArea, "/api/service-area?lat=40.7&lng=-74&radius=5")

	require.Equal(t, http.StatusOK, rec.Code)
	var got entities.ServiceArea
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, entities.ServiceAreaStateReady, got.State)
	assert.Empty(t, rec.Header().Get("Cache-Control"))
	areas.AssertExpectations(t)
}

func TestServiceAreaHandler_DefaultsRadiusAndPassesAddressParts(t *testing.T) {
	areas := new(MockServiceAreaRenderer)
	handler := handlers.NewServiceAreaHandler(areas, 25)

	areas.On("Render", mock.Anything, entities.ServiceAreaRequest{
		ServiceRadius: 25,
		City:          "Nashville",
		State:         "TN",
	}).Return(&entities.ServiceArea{State: entities.ServiceAreaStateNoLocation, Hexes: []entities.ServiceAreaHex{}}, nil)

	rec := serve("GET /api/service-area", handler.GetServiceArea, "/api/service-area?city=Nashville&state=TN")

	require.Equal(t, http.StatusOK, rec.Code)
	// A failed lookup must not outlive this request.
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	areas.AssertExpectations(t)
}

func TestServiceAreaHandler_ValidationError(t *testing.T) {
	areas := new(MockServiceAreaRenderer)
	handler := handlers.NewServiceAreaHandler(areas, 25)

	areas.On("Render", mock.Anything, mock.Anything).Return(nil, apperrors.NewValidationError("radius must be a non-negative number"))

	rec := serve("GET /api/service-area", handler.GetServiceArea, "/api/service-area?lat=1&lng=1&radius=-3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "radius must be a non-negative number", decodeError(t, rec))

	rec = serve("GET /api/service-area", handler.GetServiceArea, "/api/service-area?radius=wide")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeGeocoder struct {
	coords *entities.Coordinates
	err    error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	return f.coords, f.err
}

func TestGeolocationHandler_Geocode(t *testing.T) {
	handler := handlers.NewGeolocationHandler(&fakeGeocoder{coords: &entities.Coordinates{Latitude: 36.1627, Longitude: -86.7816}})

	rec := serve("GET /api/geocode", handler.Geocode, "/api/geocode?address=Nashville,+TN")

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Nashville, TN", got["address"])
	assert.Equal(t, 36.1627, got["lat"])
	assert.Equal(t, -86.7816, got["lng"])
}

func TestGeolocationHandler_Geocode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{name: "missing address", target: "/api/geocode", status: http.StatusBadRequest},
		{name: "no match", target: "/api/geocode?address=nowhere", err: providers.ErrNoGeocodeMatch, status: http.StatusNotFound},
		{name: "upstream failure", target: "/api/geocode?address=Austin", err: errors.New("status 500"), status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handlers.NewGeolocationHandler(&fakeGeocoder{err: tt.err})
			rec := serve("GET /api/geocode", handler.Geocode, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}
}

func TestHealthHandler(t *testing.T) {
	handler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": handlers.PingFunc(func(ctx context.Context) error { return nil }),
	})

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler_ReadyReportsFailedDependency(t *testing.T) {
	handler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": handlers.PingFunc(func(ctx context.Context) error { return nil }),
		"redis":    handlers.PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})

	rec := httptest.NewRecorder()
	handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Healthy bool              `json:"healthy"`
		Checks  map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Healthy)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "unavailable", body.Checks["redis"])
}
