// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "berkwatch",
	Short: "Berkeley public-safety data toolkit",
	Long: `
berkwatch collects Berkeley public-safety data: it imports and cleans the
police calls-for-service table, geocodes free-text addresses, scrapes
berkeleyscanner.com stories and exports WarnMe alert emails, all into one
local DuckDB database.
`,
}

var dbPath string

// openDatabase opens (creating the directory if needed) the shared DuckDB
// database under the --db-path directory.
func openDatabase() (*sql.DB, error) {
	if err := os.MkdirAll(dbPath, 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(dbPath, "berkwatch.duckdb"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

func userAgent() string {
	return fmt.Sprintf("berkwatch/%s (+https://github.com/berkwatch/berkwatch)", Version)
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&dbPath,
		"db-path",
		"db",
		"Base directory where local state is stored",
	)
}
