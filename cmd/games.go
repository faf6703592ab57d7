// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"path/filepath"

	"celestial/arcade/internal/auth"
	"celestial/arcade/internal/backend"
	"celestial/arcade/internal/cachestatus"
	"celestial/arcade/internal/config"
	"celestial/arcade/internal/httperrors"
	"celestial/arcade/internal/xdg"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// gamesCmd represents the games command for listing the portal catalog.
// It shows every game visible at the player's subscription tier together
// with its local cache status.
var gamesCmd = &cobra.Command{
	Use:     "games",
	Aliases: []string{"list"},
	Short:   "List available games and their cache status",
	Long: `The games command fetches the catalog of games available at your subscription
tier from the portal and displays them alongside the local cache status for
each game.

A game marked as cached can be played fully offline through the local gateway.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := auth.Load()
		if err != nil || !st.LoggedIn {
			fmt.Println("🔒 You're not logged in yet!")
			fmt.Println("   Run 'arcade login' to get started.")
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		svc := auth.NewService(cfg.PortalURL)
		token, err := svc.GetValidAccessToken(ctx)
		if err != nil {
			return err
		}

		be := backend.New(cfg.PortalURL)
		games, err := be.ListGames(ctx, token)
		if err != nil {
			return httperrors.FormatNetworkError(err, "fetching the game catalog")
		}
		if len(games) == 0 {
			fmt.Println("🕹️  No games available at your tier yet.")
			return nil
		}

		// Cache status is read from the daemon's persisted tracker file, so
		// the listing works even when the daemon is not running.
		stateDir, err := xdg.StateDir()
		var tracker *cachestatus.Tracker
		if err == nil {
			tracker = cachestatus.NewTracker(filepath.Join(stateDir, "cache-status.json"))
		} else {
			tracker = cachestatus.NewTracker("")
		}

		data := pterm.TableData{{"Name", "Slug", "Version", "Tier", "Size", "Status"}}
		for _, g := range games {
			data = append(data, []string{
				g.Name,
				g.Slug,
				g.Version,
				g.TierRequired,
				formatBytes(g.SizeBytes),
				cacheBadge(tracker.Get(g.Slug)),
			})
		}

		pterm.Println()
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
		pterm.Println()
		fmt.Printf("🎮 %d game(s) available. Run 'arcade download <slug>' to cache one for offline play.\n", len(games))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gamesCmd)
}

// cacheBadge renders a short human readable status label.
func cacheBadge(s cachestatus.Status) string {
	switch {
	case s.Downloading:
		return fmt.Sprintf("⏬ downloading %.0f%%", s.Progress*100)
	case s.Cached:
		return "✅ cached"
	case s.Error != "":
		return "❌ " + s.Error
	default:
		return "not cached"
	}
}
