// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Flags ---

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
	pretty     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "pagesmith",
		Short: "Compose landing pages from a section catalog",
		Long: `pagesmith assembles landing pages from a catalog of section variants,
scores them against design rules and edits them through sessions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Path to a YAML or JSON config file (env: PAGESMITH_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false,
		"Indent JSON output even when stdout is not a terminal")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newComposeCmd(opts),
		newCatalogCmd(opts),
		newAuditCmd(opts),
	)
	return rootCmd
}
