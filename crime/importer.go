// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package crime

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/berkwatch/berkwatch/spatial"
	"github.com/berkwatch/berkwatch/utils/textutils"
)

// ImportMetrics tracks statistics of one CSV import.
type ImportMetrics struct {
	Rows           int // data rows seen
	Imported       int // rows persisted
	SkippedNoPoint int // rows without a parsable lat,lng
	SkippedNoTime  int // rows without a parsable event time
}

// Merge combines the metrics from another import into this one.
func (m *ImportMetrics) Merge(other *ImportMetrics) *ImportMetrics {
	if other == nil {
		return m
	}

	m.Rows += other.Rows
	m.Imported += other.Imported
	m.SkippedNoPoint += other.SkippedNoPoint
	m.SkippedNoTime += other.SkippedNoTime

	return m
}

const insertBatchSize = 512

// Importer streams the merged crime CSV into the repository, applying the
// cleaning rules as it goes.
type Importer struct {
	repo Repository
}

// NewImporter creates an importer over the given repository.
func NewImporter(repo Repository) *Importer {
	return &Importer{repo: repo}
}

// column indexes resolved from the CSV header, -1 when absent.
type columnMap struct {
	incident int
	callType int
	progress int
	priority int
	race     int
	sex      int
	height   int
	latLon   int
	dateTime int
}

// headerAliases maps the normalized header names seen across exports to the
// canonical column.
var headerAliases = map[string]string{
	"incident_no":     "incident",
	"incident_number": "incident",
	"case_no":         "incident",
	"call_type":       "call_type",
	"progress":        "progress",
	"priority":        "priority",
	"race":            "race",
	"sex":             "sex",
	"height":          "height",
	"lat,_lon":        "lat_lon",
	"lat,lon":         "lat_lon",
	"lat_lon":         "lat_lon",
	"latlon":          "lat_lon",
	"date_time":       "date_time",
	"datetime":        "date_time",
	"occurred":        "date_time",
}

func normalizeHeader(h string) string {
	return strings.ReplaceAll(textutils.LowerASCIIFolding(h), " ", "_")
}

func resolveColumns(header []string) (*columnMap, error) {
	cols := &columnMap{
		incident: -1, callType: -1, progress: -1, priority: -1,
		race: -1, sex: -1, height: -1, latLon: -1, dateTime: -1,
	}

	for i, h := range header {
		switch headerAliases[normalizeHeader(h)] {
		case "incident":
			cols.incident = i
		case "call_type":
			cols.callType = i
		case "progress":
			cols.progress = i
		case "priority":
			cols.priority = i
		case "race":
			cols.race = i
		case "sex":
			cols.sex = i
		case "height":
			cols.height = i
		case "lat_lon":
			cols.latLon = i
		case "date_time":
			cols.dateTime = i
		}
	}

	missing := []string{}

	if cols.latLon == -1 {
		missing = append(missing, "lat,lon")
	}

	if cols.dateTime == -1 {
		missing = append(missing, "date_time")
	}

	if cols.callType == -1 {
		missing = append(missing, "call_type")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing required columns: %s", strings.Join(missing, ", "))
	}

	return cols, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return row[idx]
}

// Import reads the merged CSV and persists the cleaned records.
func (im *Importer) Import(r io.Reader) (*ImportMetrics, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // upstream exports are ragged

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Importing crime records"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	metrics := &ImportMetrics{}
	batch := make([]*Record, 0, insertBatchSize)

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return metrics, fmt.Errorf("reading row %d: %w", metrics.Rows+1, err)
		}

		metrics.Rows++

		if bar != nil {
			_ = bar.Add(1)
		}

		rec, skip := im.cleanRow(cols, row, metrics)
		if skip {
			continue
		}

		batch = append(batch, rec)

		if len(batch) >= insertBatchSize {
			if err := im.repo.BulkInsert(batch); err != nil {
				return metrics, err
			}

			metrics.Imported += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := im.repo.BulkInsert(batch); err != nil {
			return metrics, err
		}

		metrics.Imported += len(batch)
	}

	return metrics, nil
}

// cleanRow applies the upstream cleaning rules to one CSV row. Rows without
// a usable point or time are counted and skipped rather than failing the
// whole import.
func (im *Importer) cleanRow(cols *columnMap, row []string, metrics *ImportMetrics) (*Record, bool) {
	point, err := spatial.ParseLatLng(field(row, cols.latLon))
	if err != nil {
		metrics.SkippedNoPoint++

		return nil, true
	}

	eventTime, err := ParseEventTime(field(row, cols.dateTime))
	if err != nil {
		metrics.SkippedNoTime++

		return nil, true
	}

	code, desc := SplitCallType(field(row, cols.callType))

	rec := &Record{
		IncidentID: strings.TrimSpace(field(row, cols.incident)),
		CallCode:   code,
		CallDesc:   desc,
		Progress:   field(row, cols.progress),
		Priority:   field(row, cols.priority),
		Race:       field(row, cols.race),
		Sex:        field(row, cols.sex),
		HeightIn:   ParseHeight(field(row, cols.height)),
		Point:      point,
		EventTime:  eventTime,
	}

	if err := rec.Normalize(); err != nil {
		// H3 conversion only fails on out-of-range coordinates, which
		// ParseLatLng already rejects. Log and skip just in case.
		log.Printf("skipping record %s: %v", rec.IncidentID, err)

		metrics.SkippedNoPoint++

		return nil, true
	}

	return rec, false
}
