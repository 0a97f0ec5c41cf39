// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves free-text street addresses into geographic
// coordinates through an external provider.
package geocode

import (
	"strconv"
)

// StatusOK is the provider status reported for a usable lookup.
const StatusOK = "OK"

// NotFound is the sentinel returned by Lookup when the provider reported a
// non-successful status or no candidates. It is a regular value, not an
// error: a miss is an expected outcome.
const NotFound = "Not found"

// Candidate is one geocoding result for a query. Providers may return zero,
// one or many, ordered by their own relevance ranking.
type Candidate struct {
	Latitude    float64
	Longitude   float64
	Confidence  string // high, medium, low
	Provider    string
	DisplayName string
}

// Response is the provider's answer to a single query. A non-OK Status with
// an empty candidate list is a valid response, not an error; errors are
// reserved for transport-level failures.
type Response struct {
	Status     string
	Candidates []Candidate
}

// Geocoder is implemented by geocoding providers.
//
// Implementations return a *ProviderError for transport-level failures
// (network, HTTP status, malformed body). Provider verdicts such as
// ZERO_RESULTS travel in Response.Status.
type Geocoder interface {
	Geocode(address string) (*Response, error)
}

// FormatCoordinates renders a coordinate pair the way the spreadsheet
// helper did: decimal latitude and longitude joined by a comma, shortest
// representation that round-trips, no whitespace.
func FormatCoordinates(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

// Lookup resolves an address to a "lat,lng" string.
//
// An empty address returns "" without touching the provider. A provider
// response with status OK and at least one candidate yields the first
// candidate's coordinates. Any other provider verdict yields NotFound.
// Transport-level failures are returned as errors and are deliberately kept
// distinct from the NotFound sentinel.
func Lookup(g Geocoder, address string) (string, error) {
	if address == "" {
		return "", nil
	}

	resp, err := g.Geocode(address)
	if err != nil {
		return "", err
	}

	if resp.Status != StatusOK || len(resp.Candidates) == 0 {
		return NotFound, nil
	}

	first := resp.Candidates[0]

	return FormatCoordinates(first.Latitude, first.Longitude), nil
}
