// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berkwatch/berkwatch/utils/textutils"
	"github.com/berkwatch/berkwatch/warnme"
)

var warnmeOptions struct {
	credentials string
	token       string
	sender      string
	newerThan   string
	max         int64
	out         string
}

var warnmeCmd = &cobra.Command{
	Use:   "warnme",
	Short: "Access WarnMe alert emails",
}

var warnmeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export WarnMe alert emails from Gmail to CSV",
	Long: `Reads WarnMe alert emails from the authenticated Gmail account and writes
them to a CSV file. The first run opens a browser consent flow and caches the
token next to the credentials.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		mailbox, err := warnme.NewMailbox(cmd.Context(), warnmeOptions.credentials, warnmeOptions.token)
		if err != nil {
			return err
		}

		records, err := mailbox.FindBySender(warnmeOptions.sender, warnmeOptions.newerThan, warnmeOptions.max)
		if err != nil {
			return err
		}

		if err := warnme.ExportCSV(records, warnmeOptions.out); err != nil {
			return err
		}

		fmt.Printf("✅ Exported %s emails from %s to %s\n",
			textutils.FormatInt(int64(len(records))),
			warnmeOptions.sender,
			warnmeOptions.out)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(warnmeCmd)
	warnmeCmd.AddCommand(warnmeExportCmd)

	warnmeExportCmd.Flags().StringVar(
		&warnmeOptions.credentials,
		"credentials",
		"credentials.json",
		"Path to the OAuth client configuration",
	)
	warnmeExportCmd.Flags().StringVar(
		&warnmeOptions.token,
		"token",
		"token.json",
		"Path where the user token is cached",
	)
	warnmeExportCmd.Flags().StringVar(
		&warnmeOptions.sender,
		"sender",
		warnme.DefaultSender,
		"Sender address to filter on",
	)
	warnmeExportCmd.Flags().StringVar(
		&warnmeOptions.newerThan,
		"newer-than",
		"",
		"Relative age filter in Gmail syntax, e.g. 180d. Empty means unbounded",
	)
	warnmeExportCmd.Flags().Int64Var(
		&warnmeOptions.max,
		"max",
		0,
		"Maximum number of emails to export. 0 means unlimited",
	)
	warnmeExportCmd.Flags().StringVar(
		&warnmeOptions.out,
		"out",
		"warnme.csv",
		"Output CSV path",
	)
}
