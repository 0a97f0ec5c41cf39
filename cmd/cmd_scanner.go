// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berkwatch/berkwatch/scanner"
	"github.com/berkwatch/berkwatch/utils/textutils"
)

var scannerOptions = &scanner.ClientOptions{}

var scannerCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Manage the berkeleyscanner.com article archive",
}

var scannerUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch new articles from berkeleyscanner.com",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := scanner.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		if scannerOptions.DataDir == "" {
			scannerOptions.DataDir = dbPath
		}

		scannerOptions.UserAgent = userAgent()

		metrics, err := scanner.NewClient(scannerOptions, repo).Update()
		if err != nil {
			return err
		}

		fmt.Printf("✅ Discovered %s permalinks: %s fetched, %s already known, %s failed\n",
			textutils.FormatInt(int64(metrics.Discovered)),
			textutils.FormatInt(int64(metrics.Fetched)),
			textutils.FormatInt(int64(metrics.Skipped)),
			textutils.FormatInt(int64(metrics.Failed)))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(scannerCmd)
	scannerCmd.AddCommand(scannerUpdateCmd)

	scannerUpdateCmd.Flags().StringVar(
		&scannerOptions.BaseURL,
		"base-url",
		scanner.DefaultBaseURL,
		"Site root to scrape",
	)
	scannerUpdateCmd.Flags().StringVar(
		&scannerOptions.DataDir,
		"data-dir",
		"",
		"Directory for the raw HTML archive. Defaults to --db-path",
	)
	scannerUpdateCmd.Flags().IntVar(
		&scannerOptions.MaxArticles,
		"max-articles",
		0,
		"Maximum new articles to fetch per run. 0 means unlimited",
	)
	scannerUpdateCmd.Flags().BoolVar(
		&scannerOptions.DryRun,
		"dry-run",
		false,
		"Discover but do not fetch or persist anything",
	)
	scannerUpdateCmd.Flags().BoolVar(
		&scannerOptions.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
}
