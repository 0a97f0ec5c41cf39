// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package crime handles the merged Berkeley crime table: importing and
// cleaning the upstream CSV, persisting records, and answering frequency
// queries around a point.
package crime

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/uber/h3-go/v4"

	"github.com/berkwatch/berkwatch/spatial"
	"github.com/berkwatch/berkwatch/utils/textutils"
)

// Record is one cleaned row of the merged crime table.
type Record struct {
	IncidentID string         `json:"incident_id"`
	CallCode   string         `json:"call_code"`
	CallDesc   string         `json:"call_desc"`
	Progress   string         `json:"progress"`
	Priority   string         `json:"priority"`
	Race       string         `json:"race"`
	Sex        string         `json:"sex"`
	HeightIn   int            `json:"height_in"` // inches, 0 when unknown
	Point      *spatial.Point `json:"point"`
	EventTime  time.Time      `json:"event_time"`
	H3Res5     int64          `json:"-"`
	H3Res6     int64          `json:"-"`
	H3Res7     int64          `json:"-"`
	H3Res8     int64          `json:"-"`
	H3Res9     int64          `json:"-"`
}

// computeH3 fills the H3 cell columns used for coarse spatial filtering.
func (r *Record) computeH3() error {
	if r.Point == nil {
		r.H3Res5, r.H3Res6, r.H3Res7, r.H3Res8, r.H3Res9 = 0, 0, 0, 0, 0

		return nil
	}

	latLng := h3.NewLatLng(r.Point.Lat, r.Point.Lng)
	for res := 5; res <= 9; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return fmt.Errorf("converting to h3 cell at res %d: %w", res, err)
		}

		switch res {
		case 5:
			r.H3Res5 = int64(cell)
		case 6:
			r.H3Res6 = int64(cell)
		case 7:
			r.H3Res7 = int64(cell)
		case 8:
			r.H3Res8 = int64(cell)
		case 9:
			r.H3Res9 = int64(cell)
		}
	}

	return nil
}

var heightPattern = regexp.MustCompile(`(\d+)\s*ft\.?\s*(\d+)\s*in\.?`)

// ParseHeight converts a suspect height like "5 ft. 3 in." to inches.
// Missing or unparseable values collapse to 0, matching the upstream
// cleaning rules.
func ParseHeight(h string) int {
	matches := heightPattern.FindStringSubmatch(h)
	if matches == nil {
		return 0
	}

	// The pattern only admits digits, so these cannot fail.
	var feet, inches int
	_, _ = fmt.Sscanf(matches[1], "%d", &feet)
	_, _ = fmt.Sscanf(matches[2], "%d", &inches)

	return feet*12 + inches
}

// SplitCallType splits a combined call type like "459 - BURGLARY" into its
// code and description. Entries without a separator keep everything in the
// code and get an empty description.
func SplitCallType(callType string) (code, desc string) {
	parts := strings.SplitN(callType, " - ", 2)

	code = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		desc = strings.TrimSpace(parts[1])
	}

	return code, desc
}

// eventTimeLayouts are the formats seen across the merged sources.
var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006 03:04:05 PM",
}

// ParseEventTime parses an event timestamp in any of the formats the merged
// table uses. Times without a zone are taken as UTC, the form the upstream
// cleaning normalized to.
func ParseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty event time")
	}

	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized event time %q", s)
}

// Normalize applies the categorical cleanup and derived columns to a raw
// record: folded categories, call type split, H3 cells.
func (r *Record) Normalize() error {
	r.CallCode, r.CallDesc = strings.TrimSpace(r.CallCode), strings.TrimSpace(r.CallDesc)
	r.Progress = textutils.LowerASCIIFolding(r.Progress)
	r.Priority = textutils.LowerASCIIFolding(r.Priority)
	r.Race = textutils.LowerASCIIFolding(r.Race)
	r.Sex = textutils.LowerASCIIFolding(r.Sex)

	return r.computeH3()
}
