// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package warnme

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

var csvHeader = []string{
	"id", "thread_id", "subject", "sender", "to",
	"received_iso", "snippet", "body_text", "labels",
}

// WriteCSV renders the records in the flat layout the analysis notebooks
// expect: one row per email, times in ISO-8601 UTC.
func WriteCSV(w io.Writer, records []*EmailRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range records {
		received := ""
		if !r.Received.IsZero() {
			received = r.Received.UTC().Format(time.RFC3339)
		}

		row := []string{
			r.ID, r.ThreadID, r.Subject, r.Sender, r.To,
			received, r.Snippet, r.Body, strings.Join(r.Labels, "|"),
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing record %s: %w", r.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// ExportCSV writes the records to a file.
func ExportCSV(records []*EmailRecord, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 - path is provided by the operator
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, records); err != nil {
		return err
	}

	return f.Close()
}
