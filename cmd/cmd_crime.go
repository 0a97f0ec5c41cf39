// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/berkwatch/berkwatch/crime"
	"github.com/berkwatch/berkwatch/spatial"
	"github.com/berkwatch/berkwatch/utils/textutils"
)

var crimeCmd = &cobra.Command{
	Use:   "crime",
	Short: "Manage the local crime table",
}

var crimeImportCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Import and clean a calls-for-service CSV export",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		f, err := os.Open(args[0]) // #nosec G304 - path is provided by the operator
		if err != nil {
			return fmt.Errorf("opening csv: %w", err)
		}
		defer f.Close()

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := crime.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		metrics, err := crime.NewImporter(repo).Import(f)
		if err != nil {
			return err
		}

		fmt.Printf("✅ Imported %s of %s rows (%s without point, %s without time)\n",
			textutils.FormatInt(int64(metrics.Imported)),
			textutils.FormatInt(int64(metrics.Rows)),
			textutils.FormatInt(int64(metrics.SkippedNoPoint)),
			textutils.FormatInt(int64(metrics.SkippedNoTime)))

		return nil
	},
}

var frequencyOptions struct {
	lat    float64
	lng    float64
	radius float64
	start  string
	end    string
}

var crimeFrequencyCmd = &cobra.Command{
	Use:   "frequency",
	Short: "Count incidents around a point in a time window",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		end := time.Now().UTC()
		start := end.AddDate(0, 0, -30)

		var err error

		if frequencyOptions.start != "" {
			start, err = time.Parse(time.RFC3339, frequencyOptions.start)
			if err != nil {
				return fmt.Errorf("parsing --start: %w", err)
			}
		}

		if frequencyOptions.end != "" {
			end, err = time.Parse(time.RFC3339, frequencyOptions.end)
			if err != nil {
				return fmt.Errorf("parsing --end: %w", err)
			}
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := crime.NewRepository(db)

		center := spatial.Point{Lat: frequencyOptions.lat, Lng: frequencyOptions.lng}

		count, err := repo.FrequencyWithin(center, frequencyOptions.radius, start, end)
		if err != nil {
			return err
		}

		fmt.Printf("%s incidents within %.0fm of %.4f,%.4f between %s and %s\n",
			textutils.FormatInt(int64(count)),
			frequencyOptions.radius,
			frequencyOptions.lat, frequencyOptions.lng,
			start.Format(time.RFC3339), end.Format(time.RFC3339))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(crimeCmd)
	crimeCmd.AddCommand(crimeImportCmd)
	crimeCmd.AddCommand(crimeFrequencyCmd)

	crimeFrequencyCmd.Flags().Float64Var(&frequencyOptions.lat, "lat", 0, "Latitude of the query point")
	crimeFrequencyCmd.Flags().Float64Var(&frequencyOptions.lng, "lng", 0, "Longitude of the query point")
	crimeFrequencyCmd.Flags().Float64Var(&frequencyOptions.radius, "radius", 500, "Radius in meters")
	crimeFrequencyCmd.Flags().StringVar(&frequencyOptions.start, "start", "", "Window start, RFC3339. Defaults to 30 days ago")
	crimeFrequencyCmd.Flags().StringVar(&frequencyOptions.end, "end", "", "Window end, RFC3339. Defaults to now")

	_ = crimeFrequencyCmd.MarkFlagRequired("lat")
	_ = crimeFrequencyCmd.MarkFlagRequired("lng")
}
