// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"celestial/arcade/internal/auth"
	"celestial/arcade/internal/backend"
	"celestial/arcade/internal/config"
	"celestial/arcade/internal/httperrors"
	"celestial/arcade/internal/progression"
	"celestial/arcade/internal/xdg"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command for flushing pending progression.
// It pushes every queued gameplay delta to the portal in one aggregated
// payload and installs the authoritative snapshot the portal returns.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Flush pending progression to the portal",
	Long: `The sync command pushes all gameplay progression recorded while offline to
the portal. Pending deltas are aggregated into a single payload; the portal
merges them and returns the authoritative snapshot, which replaces the local
one. Deltas recorded while the flush is in flight are kept for the next sync.

The daemon also syncs automatically every minute while online; this command
forces an immediate flush.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		stateDir, err := xdg.StateDir()
		if err != nil {
			return err
		}
		// The store uses WAL mode, so opening it alongside a running
		// daemon is fine.
		store, err := progression.OpenStore(filepath.Join(stateDir, "progression.db"))
		if err != nil {
			return err
		}
		defer store.Close()

		svc := auth.NewService(cfg.PortalURL)
		rec := progression.NewReconciler(store, backend.New(cfg.PortalURL), svc.GetValidAccessToken, nil)

		before, err := rec.Pending()
		if err != nil {
			return err
		}
		if before == 0 {
			fmt.Println("✅ Progression already in sync, nothing pending.")
			return nil
		}

		stopSpinner := startInlineSpinner(cmd.OutOrStdout(),
			fmt.Sprintf("Syncing %d pending update(s)", before),
			[]string{"|", "/", "-", "\\"}, 120*time.Millisecond)
		err = rec.Flush(ctx)
		stopSpinner()
		if err != nil {
			fmt.Println("⏳ Your progression is safe locally and will retry later.")
			return httperrors.FormatNetworkError(err, "syncing progression")
		}

		after, err := rec.Pending()
		if err != nil {
			return err
		}
		fmt.Printf("✅ Synced %d update(s) with the portal", before-after)
		if after > 0 {
			fmt.Printf(" (%d recorded mid-sync, will ride the next flush)", after)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
