// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestGeocoder(srv *httptest.Server) *GoogleGeocoder {
	g := NewGoogleGeocoder("test-key")
	g.baseURL = srv.URL
	g.httpClient = srv.Client()

	return g
}

func TestGoogleGeocoderOK(t *testing.T) {
	var gotAddress, gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddress = r.URL.Query().Get("address")
		gotKey = r.URL.Query().Get("key")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [
				{
					"formatted_address": "2180 Milvia St, Berkeley, CA 94704, USA",
					"geometry": {
						"location": {"lat": 37.8716, "lng": -122.2727},
						"location_type": "ROOFTOP"
					}
				},
				{
					"formatted_address": "Milvia St, Berkeley, CA, USA",
					"geometry": {
						"location": {"lat": 37.87, "lng": -122.27},
						"location_type": "APPROXIMATE"
					}
				}
			]
		}`))
	}))
	defer srv.Close()

	g := newTestGeocoder(srv)

	resp, err := g.Geocode("2180 Milvia St, Berkeley, CA")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}

	if gotAddress != "2180 Milvia St, Berkeley, CA" {
		t.Errorf("address param = %q", gotAddress)
	}

	if gotKey != "test-key" {
		t.Errorf("key param = %q", gotKey)
	}

	if resp.Status != StatusOK {
		t.Errorf("Status = %q, want OK", resp.Status)
	}

	if len(resp.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(resp.Candidates))
	}

	first := resp.Candidates[0]
	if first.Latitude != 37.8716 || first.Longitude != -122.2727 {
		t.Errorf("first candidate = %+v", first)
	}

	if first.Confidence != "high" {
		t.Errorf("ROOFTOP confidence = %q, want high", first.Confidence)
	}

	if resp.Candidates[1].Confidence != "low" {
		t.Errorf("APPROXIMATE confidence = %q, want low", resp.Candidates[1].Confidence)
	}

	// End to end through Lookup.
	got, err := Lookup(g, "2180 Milvia St, Berkeley, CA")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	if got != "37.8716,-122.2727" {
		t.Errorf("Lookup() = %q, want 37.8716,-122.2727", got)
	}
}

func TestGoogleGeocoderZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer srv.Close()

	g := newTestGeocoder(srv)

	resp, err := g.Geocode("Nonexistent Place XYZ123")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}

	if resp.Status != "ZERO_RESULTS" || len(resp.Candidates) != 0 {
		t.Errorf("resp = %+v, want ZERO_RESULTS with no candidates", resp)
	}

	got, err := Lookup(g, "Nonexistent Place XYZ123")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	if got != NotFound {
		t.Errorf("Lookup() = %q, want %q", got, NotFound)
	}
}

func TestGoogleGeocoderHTTPErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType ErrorType
	}{
		{"rate limited", http.StatusTooManyRequests, ErrorTypeRateLimit},
		{"quota", http.StatusForbidden, ErrorTypeQuotaExceeded},
		{"bad request", http.StatusBadRequest, ErrorTypeInvalidRequest},
		{"bad gateway", http.StatusBadGateway, ErrorTypeNetwork},
		{"teapot", http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			g := newTestGeocoder(srv)

			_, err := g.Geocode("anywhere")
			if err == nil {
				t.Fatal("Geocode() expected error")
			}

			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("error = %T, want *ProviderError", err)
			}

			if perr.Type != tt.wantType {
				t.Errorf("error type = %d, want %d", perr.Type, tt.wantType)
			}
		})
	}
}

func TestGoogleGeocoderMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "OK", "results": [`))
	}))
	defer srv.Close()

	g := newTestGeocoder(srv)

	_, err := g.Geocode("anywhere")

	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Type != ErrorTypeMalformedResponse {
		t.Errorf("error = %v, want malformed response ProviderError", err)
	}
}

func TestErrorClassificationHelpers(t *testing.T) {
	rate := &ProviderError{Type: ErrorTypeRateLimit, Message: "rate limit reached"}
	if !IsRateLimitError(rate) {
		t.Error("IsRateLimitError() = false for typed error")
	}

	if !IsRateLimitError(errors.New("HTTP 429 too many requests")) {
		t.Error("IsRateLimitError() = false for message match")
	}

	quota := &ProviderError{Type: ErrorTypeQuotaExceeded, Message: "quota exceeded"}
	if !IsQuotaExceededError(quota) {
		t.Error("IsQuotaExceededError() = false for typed error")
	}

	if IsQuotaExceededError(errors.New("no results")) {
		t.Error("IsQuotaExceededError() = true for unrelated error")
	}

	timeout := &ProviderError{Type: ErrorTypeTimeout, Message: "deadline exceeded"}
	if !IsTimeoutError(timeout) {
		t.Error("IsTimeoutError() = false for typed error")
	}
}
