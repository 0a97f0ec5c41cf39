// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berkwatch/berkwatch/crime"
	"github.com/berkwatch/berkwatch/scanner"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local query API (local only)",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		crimeRepo := crime.NewRepository(db)
		if err := crimeRepo.CreateSchema(); err != nil {
			return fmt.Errorf("creating crime schema: %w", err)
		}

		articleRepo := scanner.NewRepository(db)
		if err := articleRepo.CreateSchema(); err != nil {
			return fmt.Errorf("creating article schema: %w", err)
		}

		server := crime.NewServer(crimeRepo, articleRepo)

		fmt.Println("🗺️  BerkWatch query server starting...")
		fmt.Println("📍 Open http://localhost:8080 in your browser")
		fmt.Println("🔒 Local only - not exposed to internet")

		return server.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
