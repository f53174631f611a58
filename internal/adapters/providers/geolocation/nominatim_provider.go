package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
)

const (
	nominatimBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent   = "marketplace-api/1.0"
	nominatimSearchPth = "/search"
)

// NominatimGeolocationProvider geocodes through the public OpenStreetMap
// Nominatim search endpoint. Nominatim rejects requests without a User-Agent.
type NominatimGeolocationProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewNominatimGeolocationProvider creates a new Nominatim provider
func NewNominatimGeolocationProvider(baseURL, userAgent string, httpClient *http.Client) *NominatimGeolocationProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = nominatimBaseURL
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &NominatimGeolocationProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// Name identifies the provider in logs and metrics
func (n *NominatimGeolocationProvider) Name() string {
	return "nominatim"
}

// Geocode returns the first match for address
func (n *NominatimGeolocationProvider) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("address is required")
	}

	params := url.Values{}
	params.Set("q", trimmed)
	params.Set("format", "json")
	params.Set("limit", "1")

	reqURL := fmt.Sprintf("%s%s?%s", n.baseURL, nominatimSearchPth, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return nil, providers.ErrNoGeocodeMatch
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}
	return &entities.Coordinates{Latitude: lat, Longitude: lon}, nil
}

// nominatimResult is the subset of a search hit we read. Coordinates are
// strings on the wire.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
