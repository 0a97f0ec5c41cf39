// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package crime

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/uber/h3-go/v4"

	"github.com/berkwatch/berkwatch/spatial"
)

// Repository handles persistence of crime records.
type Repository interface {
	// CreateSchema creates the crimes table.
	CreateSchema() error

	// BulkInsert inserts a slice of records into the database.
	BulkInsert(records []*Record) error

	// Count returns the total number of records.
	Count() (int, error)

	// FrequencyWithin counts records within radiusMeters of center whose
	// event time falls in [start, end].
	FrequencyWithin(center spatial.Point, radiusMeters float64, start, end time.Time) (int, error)

	// DB returns the underlying database connection.
	DB() *sql.DB
}

type sqlCrimeRepository struct {
	db *sql.DB
}

// NewRepository creates a new crime record repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlCrimeRepository{db: db}
}

// DB returns the underlying database connection for advanced queries.
func (r *sqlCrimeRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlCrimeRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS crimes (
			incident_id VARCHAR NOT NULL,
			call_code   VARCHAR,
			call_desc   VARCHAR,
			progress    VARCHAR,
			priority    VARCHAR,
			race        VARCHAR,
			sex         VARCHAR,
			height_in   INTEGER,
			point       VARCHAR,
			event_time  TIMESTAMP,
			h3_res5     BIGINT,
			h3_res6     BIGINT,
			h3_res7     BIGINT,
			h3_res8     BIGINT,
			h3_res9     BIGINT
		)
	`)
	if err != nil {
		return fmt.Errorf("creating crimes table: %w", err)
	}

	return nil
}

func (r *sqlCrimeRepository) BulkInsert(records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.Prepare(`
		INSERT INTO crimes (
			incident_id, call_code, call_desc, progress, priority, race, sex,
			height_in, point, event_time,
			h3_res5, h3_res6, h3_res7, h3_res8, h3_res9
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var point interface{}
		if rec.Point != nil {
			point = *rec.Point
		}

		if _, err := stmt.Exec(
			rec.IncidentID, rec.CallCode, rec.CallDesc, rec.Progress,
			rec.Priority, rec.Race, rec.Sex, rec.HeightIn,
			point, rec.EventTime,
			rec.H3Res5, rec.H3Res6, rec.H3Res7, rec.H3Res8, rec.H3Res9,
		); err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.IncidentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing insert: %w", err)
	}

	return nil
}

func (r *sqlCrimeRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT count(*) FROM crimes").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting crimes: %w", err)
	}

	return n, nil
}

// frequencyRes is the H3 resolution used for the coarse prefilter. Cells at
// resolution 8 have an incircle of roughly 400m, a good match for the
// neighborhood-sized radii the frequency queries use.
const (
	frequencyRes       = 8
	frequencyCellWidth = 400.0 // meters, conservative incircle radius at res 8
	maxPrefilterCells  = 2000
)

// prefilterCells returns the H3 cells at frequencyRes that could contain a
// point within radiusMeters of center, or nil when the disk would be too
// large to be worth an IN clause.
func prefilterCells(center spatial.Point, radiusMeters float64) ([]h3.Cell, error) {
	origin, err := h3.LatLngToCell(h3.NewLatLng(center.Lat, center.Lng), frequencyRes)
	if err != nil {
		return nil, fmt.Errorf("converting center to h3 cell: %w", err)
	}

	k := int(math.Ceil(radiusMeters/frequencyCellWidth)) + 1

	// 1 + 3k(k+1) cells in a disk of radius k.
	if 1+3*k*(k+1) > maxPrefilterCells {
		return nil, nil
	}

	cells, err := h3.GridDisk(origin, k)
	if err != nil {
		return nil, fmt.Errorf("building h3 disk: %w", err)
	}

	return cells, nil
}

func (r *sqlCrimeRepository) FrequencyWithin(center spatial.Point, radiusMeters float64, start, end time.Time) (int, error) {
	if radiusMeters <= 0 {
		return 0, fmt.Errorf("radius must be positive, got %f", radiusMeters)
	}

	if end.Before(start) {
		return 0, fmt.Errorf("end %s is before start %s", end, start)
	}

	query := `SELECT point FROM crimes WHERE point IS NOT NULL AND event_time >= ? AND event_time <= ?`
	args := []interface{}{start.UTC(), end.UTC()}

	cells, err := prefilterCells(center, radiusMeters)
	if err != nil {
		return 0, err
	}

	if cells != nil {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cells)), ",")
		query += fmt.Sprintf(" AND h3_res%d IN (%s)", frequencyRes, placeholders)

		for _, cell := range cells {
			args = append(args, int64(cell))
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return 0, fmt.Errorf("querying window: %w", err)
	}
	defer rows.Close()

	count := 0

	for rows.Next() {
		var p spatial.Point
		if err := rows.Scan(&p); err != nil {
			return 0, fmt.Errorf("scanning point: %w", err)
		}

		// The H3 disk is coarse; the exact check is the Haversine distance,
		// inclusive at the boundary like the original query.
		if center.HaversineDistance(&p) <= radiusMeters {
			count++
		}
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating window: %w", err)
	}

	return count, nil
}
