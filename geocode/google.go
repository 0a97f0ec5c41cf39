// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleGeocoder uses the Google Maps Geocoding API.
type GoogleGeocoder struct {
	apiKey     string
	region     string
	baseURL    string
	httpClient *http.Client
}

var _ Geocoder = (*GoogleGeocoder)(nil)

// NewGoogleGeocoder creates a new Google Maps geocoder. Results are biased
// towards the US since the crime table is Berkeley data, but the address is
// submitted as-is: any normalization is left to the provider.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		apiKey:  apiKey,
		region:  "us",
		baseURL: googleGeocodeURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status string `json:"status"` // OK, ZERO_RESULTS, etc.
}

// Geocode submits the address to the Google Maps Geocoding API.
//
// Provider verdicts (OK, ZERO_RESULTS, OVER_QUERY_LIMIT, ...) come back in
// Response.Status. Only transport failures produce an error, always a
// *ProviderError.
func (g *GoogleGeocoder) Geocode(address string) (*Response, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.apiKey)

	if g.region != "" {
		params.Set("region", g.region)
	}

	resp, err := g.httpClient.Get(g.baseURL + "?" + params.Encode())
	if err != nil {
		return nil, &ProviderError{
			Type:    ErrorTypeNetwork,
			Message: "geocoding request failed",
			Err:     err,
		}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, &ProviderError{
			Type:    ErrorTypeMalformedResponse,
			Message: "decoding response",
			Err:     err,
		}
	}

	out := &Response{Status: gmResp.Status}

	for _, result := range gmResp.Results {
		// Confidence derives from location_type. RANGE_INTERPOLATED is
		// common for Berkeley block-level addresses and is reliable.
		confidence := "low"

		switch result.Geometry.LocationType {
		case "ROOFTOP", "RANGE_INTERPOLATED":
			confidence = "high"
		case "GEOMETRIC_CENTER":
			confidence = "medium"
		case "APPROXIMATE":
			confidence = "low"
		}

		out.Candidates = append(out.Candidates, Candidate{
			Latitude:    result.Geometry.Location.Lat,
			Longitude:   result.Geometry.Location.Lng,
			Confidence:  confidence,
			Provider:    "google_maps",
			DisplayName: result.FormattedAddress,
		})
	}

	return out, nil
}
