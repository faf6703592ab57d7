// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"celestial/arcade/internal/cachestatus"
	"celestial/arcade/internal/channel"
	"celestial/arcade/internal/config"
	"celestial/arcade/internal/logging"
	"celestial/arcade/internal/xdg"

	"atomicgo.dev/cursor"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// downloadCmd represents the download command for caching a game locally.
// It asks the running daemon to fetch every asset listed in the game's
// manifest; the game becomes playable offline only once all assets landed.
var downloadCmd = &cobra.Command{
	Use:     "download <slug>",
	Aliases: []string{"cache"},
	Short:   "Download a game into the local cache for offline play",
	Long: `The download command asks the background daemon to cache a game for offline
play. The daemon fetches every asset listed in the game's manifest; the download
is all-or-nothing, so a partially fetched game is never left in the cache.

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

		// Downloads are bounded server-side too; this ctx only limits how
		// long we wait for the daemon's answer.
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		stopProgress := startDownloadProgress(ctx, slug)

		resp, err := client.Request(ctx, channel.Envelope{
			Type: channel.TypeCacheGame,
			Slug: slug,
		})
		stopProgress()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("download timed out; the daemon may still be fetching %s", slug)
			}
			return err
		}

		switch resp.Type {
		case channel.TypeCacheComplete:
			fmt.Printf("✅ %s is cached and ready for offline play!\n", slug)
			return nil
		case channel.TypeCacheError:
			msg, _ := resp.Payload["error"].(string)
			if msg == "" {
				msg = "unknown error"
			}
			if n, ok := resp.Payload["failureCount"].(float64); ok && n > 0 {
				fmt.Printf("❌ Failed to cache %s: %s (%d asset(s) failed)\n", slug, msg, int(n))
			} else {
				fmt.Printf("❌ Failed to cache %s: %s\n", slug, msg)
			}
			return fmt.Errorf("download failed")
		default:
			return fmt.Errorf("unexpected daemon response %q", resp.Type)
		}
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

// startDownloadProgress renders a live progress line while the daemon
// fetches assets. Progress comes from the daemon's persisted status
// tracker; when the file is unreadable the line degrades to a spinner.
// Returns a function that stops the display and restores the cursor.
func startDownloadProgress(ctx context.Context, slug string) func() {
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return func() {}
	}

	var tracker *cachestatus.Tracker
	if stateDir, derr := xdg.StateDir(); derr == nil {
		tracker = cachestatus.NewTracker(filepath.Join(stateDir, "cache-status.json"))
	}

	frames := []string{"|", "/", "-", "\\"}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(200 * time.Millisecond)
		defer t.Stop()
		i := 0
		for {
			select {
			case <-t.C:
				i++
				line := fmt.Sprintf("%s Caching %s", frames[i%len(frames)], slug)
				if tracker != nil {
					tracker.Reload()
					if st := tracker.Get(slug); st.Downloading {
						line = fmt.Sprintf("%s Caching %s  %3.0f%%", frames[i%len(frames)], slug, st.Progress*100)
					}
				}
				area.Update(line)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
		area.Stop()
		cursor.Show()
	}
}
