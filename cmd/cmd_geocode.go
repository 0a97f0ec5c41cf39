// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berkwatch/berkwatch/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode [address]",
	Short: "Resolve a street address to coordinates",
	Long: `Resolves a free-text address through the Google Maps Geocoding API and
prints the first candidate as "lat,lng". A miss prints "Not found"; an empty
address prints an empty line without consulting the provider.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address := ""
		if len(args) > 0 {
			address = args[0]
		}

		apiKey, err := geocode.ResolveAPIKey(cmd.Context())
		if err != nil {
			return fmt.Errorf("resolving API key: %w", err)
		}

		result, err := geocode.Lookup(geocode.NewGoogleGeocoder(apiKey), address)
		if err != nil {
			return err
		}

		fmt.Println(result)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
