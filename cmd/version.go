// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Version holds the client version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)

// versionCmd mirrors the root --version flag as a subcommand.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show client and portal version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		showVersion = true
		return rootCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
