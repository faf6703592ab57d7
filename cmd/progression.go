// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"celestial/arcade/internal/auth"
	"celestial/arcade/internal/backend"
	"celestial/arcade/internal/config"
	"celestial/arcade/internal/progression"
	"celestial/arcade/internal/xdg"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	pullProgression bool
)

// progressionCmd represents the progression command for inspecting the
// local gameplay state. With --pull it replaces the local snapshot with
// the portal's authoritative one.
var progressionCmd = &cobra.Command{
	Use:     "progression",
	Aliases: []string{"progress"},
	Short:   "Show local gameplay progression",
	Long: `The progression command shows the gameplay progression stored on this device:
coins, experience, achievements, and unlocked items, plus any updates still
waiting to be synced to the portal.

With --pull it fetches the portal's authoritative snapshot and replaces the
local one. The pull is refused while unsynced updates are pending, since it
would silently discard them; run 'arcade sync' first.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		stateDir, err := xdg.StateDir()
		if err != nil {
			return err
		}
		store, err := progression.OpenStore(filepath.Join(stateDir, "progression.db"))
		if err != nil {
			return err
		}
		defer store.Close()

		svc := auth.NewService(cfg.PortalURL)
		rec := progression.NewReconciler(store, backend.New(cfg.PortalURL), svc.GetValidAccessToken, nil)

		var snap progression.Snapshot
		if pullProgression {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			snap, err = rec.LoadServerSnapshot(ctx)
			if err != nil {
				return err
			}
			fmt.Println("⬇️  Pulled the portal's snapshot")
		} else {
			snap, err = rec.GetLocal()
			if err != nil {
				return err
			}
		}

		pending, err := rec.Pending()
		if err != nil {
			return err
		}

		details := fmt.Sprintf(
			"Coins:        %d\nXP:           %d\nAchievements: %s\nUnlocked:     %s\nLast synced:  %s",
			snap.Coins,
			snap.Xp,
			joinOrDash(snap.Achievements),
			joinOrDash(snap.UnlockedItems),
			snap.LastSyncedAt,
		)
		title := pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint(" Progression ")
		pterm.Println(pterm.DefaultBox.WithTitle(title).WithLeftPadding(1).WithRightPadding(1).WithTopPadding(1).WithBottomPadding(1).Sprint(details))

		if pending > 0 {
			fmt.Printf("⏳ %d update(s) pending sync. Run 'arcade sync' to push them.\n", pending)
		}
		return nil
	},
}

func init() {
	progressionCmd.Flags().BoolVar(&pullProgression, "pull", false, "Replace local progression with the portal snapshot")
	rootCmd.AddCommand(progressionCmd)
}

// joinOrDash renders a string set for display.
func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
