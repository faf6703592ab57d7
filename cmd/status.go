// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"celestial/arcade/internal/cachestatus"
	"celestial/arcade/internal/channel"
	"celestial/arcade/internal/config"
	"celestial/arcade/internal/logging"
	"celestial/arcade/internal/xdg"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command for inspecting the local cache.
// It reports the total cache footprint and the per-game breakdown as seen
// by the running daemon.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local cache size and cached games",
	Long: `The status command asks the background daemon for the current size of the
local game cache, broken down per cached game.

The daemon must be running ('arcade daemon') for this command to work.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client := &channel.Client{}
		if err := client.Connect(cmd.Context(), cfg.Daemon.ChannelAddr, cfg.TrustedOrigin); err != nil {
			fmt.Println("❌ Could not reach the arcade daemon.")
			fmt.Println("   Start it with: arcade daemon")
			pterm.Println(logging.PresentError("", err))
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		resp, err := client.Request(ctx, channel.Envelope{Type: channel.TypeGetCacheSize})
		if err != nil {
			return err
		}
		if resp.Type != channel.TypeCacheSize {
			return fmt.Errorf("unexpected daemon response %q", resp.Type)
		}

		total, _ := resp.Payload["totalSize"].(float64)
		games, _ := resp.Payload["games"].(map[string]any)

		fmt.Printf("💾 Total cache size: %s", formatBytes(int64(total)))
		if quota, ok := resp.Payload["quota"].(float64); ok && quota > 0 {
			fmt.Printf(" of ~%s available", formatBytes(int64(quota)))
		}
		fmt.Println()
		if len(games) == 0 {
			fmt.Println("   No games cached. Run 'arcade download <slug>' to cache one.")
			return nil
		}

		slugs := make([]string, 0, len(games))
		for slug := range games {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)

		var tracker *cachestatus.Tracker
		if stateDir, derr := xdg.StateDir(); derr == nil {
			tracker = cachestatus.NewTracker(filepath.Join(stateDir, "cache-status.json"))
		} else {
			tracker = cachestatus.NewTracker("")
		}

		data := pterm.TableData{{"Game", "Size", "Status"}}
		for _, slug := range slugs {
			size, _ := games[slug].(float64)
			data = append(data, []string{slug, formatBytes(int64(size)), cacheBadge(tracker.Get(slug))})
		}
		pterm.Println()
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
