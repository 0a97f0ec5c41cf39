// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"testing"
)

func TestParseLatLng(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Point
		wantErr bool
	}{
		{
			name:  "spreadsheet export with space",
			input: "37.8716, -122.2727",
			want:  Point{Lat: 37.8716, Lng: -122.2727},
		},
		{
			name:  "compact form",
			input: "37.8716,-122.2727",
			want:  Point{Lat: 37.8716, Lng: -122.2727},
		},
		{
			name:    "missing longitude",
			input:   "37.8716",
			wantErr: true,
		},
		{
			name:    "non numeric",
			input:   "north, west",
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			input:   "137.8, -122.2",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLatLng(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseLatLng(%q) expected error, got %+v", tt.input, got)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseLatLng(%q) error = %v", tt.input, err)
			}

			if got.Lat != tt.want.Lat || got.Lng != tt.want.Lng {
				t.Errorf("ParseLatLng(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	// Berkeley PD to UC Berkeley Campanile, roughly 1.1km.
	pd := &Point{Lat: 37.8693, Lng: -122.2713}
	campanile := &Point{Lat: 37.8721, Lng: -122.2578}

	d := pd.HaversineDistance(campanile)
	if d < 1000 || d > 1400 {
		t.Errorf("HaversineDistance = %f, want roughly 1.2km", d)
	}

	// Distance to self is zero.
	if d := pd.HaversineDistance(pd); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}

	// Symmetry.
	if d2 := campanile.HaversineDistance(pd); math.Abs(d-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d, d2)
	}
}
