// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"testing"
)

type stubGeocoder struct {
	resp  *Response
	err   error
	calls int
}

func (s *stubGeocoder) Geocode(_ string) (*Response, error) {
	s.calls++

	return s.resp, s.err
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name      string
		address   string
		resp      *Response
		err       error
		want      string
		wantErr   bool
		wantCalls int
	}{
		{
			name:      "empty address short-circuits without a provider call",
			address:   "",
			resp:      &Response{Status: StatusOK},
			want:      "",
			wantCalls: 0,
		},
		{
			name:    "first candidate wins",
			address: "2180 Milvia St, Berkeley, CA",
			resp: &Response{
				Status: StatusOK,
				Candidates: []Candidate{
					{Latitude: 37.8716, Longitude: -122.2727},
					{Latitude: 1, Longitude: 2},
				},
			},
			want:      "37.8716,-122.2727",
			wantCalls: 1,
		},
		{
			name:    "coordinates are not rounded",
			address: "University Ave",
			resp: &Response{
				Status: StatusOK,
				Candidates: []Candidate{
					{Latitude: 37.87161239999999, Longitude: -122.27},
				},
			},
			want:      "37.87161239999999,-122.27",
			wantCalls: 1,
		},
		{
			name:      "zero results",
			address:   "Nonexistent Place XYZ123",
			resp:      &Response{Status: "ZERO_RESULTS"},
			want:      NotFound,
			wantCalls: 1,
		},
		{
			name:    "successful status but no candidates",
			address: "somewhere",
			resp: &Response{
				Status:     StatusOK,
				Candidates: nil,
			},
			want:      NotFound,
			wantCalls: 1,
		},
		{
			name:    "non OK status with candidates still misses",
			address: "somewhere",
			resp: &Response{
				Status:     "OVER_QUERY_LIMIT",
				Candidates: []Candidate{{Latitude: 1, Longitude: 2}},
			},
			want:      NotFound,
			wantCalls: 1,
		},
		{
			name:      "transport failure propagates as error, not sentinel",
			address:   "2180 Milvia St",
			err:       &ProviderError{Type: ErrorTypeNetwork, Message: "connection refused"},
			wantErr:   true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubGeocoder{resp: tt.resp, err: tt.err}

			got, err := Lookup(stub, tt.address)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Lookup(%q) expected error, got %q", tt.address, got)
				}

				var perr *ProviderError
				if !errors.As(err, &perr) {
					t.Errorf("Lookup(%q) error = %T, want *ProviderError", tt.address, err)
				}
			} else {
				if err != nil {
					t.Fatalf("Lookup(%q) error = %v", tt.address, err)
				}

				if got != tt.want {
					t.Errorf("Lookup(%q) = %q, want %q", tt.address, got, tt.want)
				}
			}

			if stub.calls != tt.wantCalls {
				t.Errorf("provider called %d times, want %d", stub.calls, tt.wantCalls)
			}
		})
	}
}

func TestLookupIsIdempotent(t *testing.T) {
	stub := &stubGeocoder{
		resp: &Response{
			Status:     StatusOK,
			Candidates: []Candidate{{Latitude: 37.8716, Longitude: -122.2727}},
		},
	}

	first, err := Lookup(stub, "2180 Milvia St, Berkeley, CA")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	second, err := Lookup(stub, "2180 Milvia St, Berkeley, CA")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	if first != second {
		t.Errorf("repeated lookups differ: %q vs %q", first, second)
	}
}

func TestFormatCoordinates(t *testing.T) {
	tests := []struct {
		lat, lng float64
		want     string
	}{
		{37.8716, -122.2727, "37.8716,-122.2727"},
		{0, 0, "0,0"},
		{-33.5, 151, "-33.5,151"},
	}

	for _, tt := range tests {
		if got := FormatCoordinates(tt.lat, tt.lng); got != tt.want {
			t.Errorf("FormatCoordinates(%v, %v) = %q, want %q", tt.lat, tt.lng, got, tt.want)
		}
	}
}
