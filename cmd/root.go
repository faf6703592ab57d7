// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the arcade client.
// It implements subcommands for authentication, game caching, progression
// sync, and the background daemon using the Cobra CLI framework, with a
// rich terminal UI built on pterm.
package cmd

import (
	"context"
	"fmt"
	"os"

	"celestial/arcade/internal/backend"
	"celestial/arcade/internal/config"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "arcade",
	Short:         "Celestial Arcade client for offline play and progression sync",
	Long:          `Arcade is a command-line client for the Celestial Arcade portal. It caches games for offline play, serves them through a local gateway, and keeps gameplay progression in sync with the portal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			be := backend.New(cfg.PortalURL)
			portalVersion, err := be.GetVersion(context.Background())
			if err != nil {
				portalVersion = "unknown"
			}
			fmt.Printf("arcade %s\nportal %s\n", Version, portalVersion)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show client and portal version information")
}
