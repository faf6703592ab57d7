// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"celestial/arcade/internal/channel"
	"celestial/arcade/internal/config"
	"celestial/arcade/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command for evicting a cached game.
var deleteCmd = &cobra.Command{
	Use:     "delete <slug>",
	Aliases: []string{"evict"},
	Short:   "Remove a game from the local cache",
	Long: `The delete command asks the background daemon to remove every cached asset
belonging to a game. The game remains playable online; it simply stops being
available offline until downloaded again.

The daemon must be running ('arcade daemon') for this command to work.`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]

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

		resp, err := client.Request(ctx, channel.Envelope{
			Type: channel.TypeDeleteGameCache,
			Slug: slug,
		})
		if err != nil {
			return err
		}

		switch resp.Type {
		case channel.TypeCacheDeleted:
			fmt.Printf("🗑️  %s removed from the local cache\n", slug)
			return nil
		case channel.TypeCacheError:
			msg, _ := resp.Payload["error"].(string)
			if msg == "" {
				msg = "unknown error"
			}
			fmt.Printf("❌ Failed to delete %s: %s\n", slug, msg)
			return fmt.Errorf("delete failed")
		default:
			return fmt.Errorf("unexpected daemon response %q", resp.Type)
		}
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
