// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"celestial/arcade/internal/config"
	"celestial/arcade/internal/daemon"
	"celestial/arcade/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	verboseDaemon bool
)

// daemonCmd represents the daemon command that runs the background worker.
// The daemon keeps the local asset cache, the loopback gateway that serves
// cached games, the cross-context channel, and the progression auto-sync
// loop alive until interrupted.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background caching and sync daemon",
	Long: `The daemon command starts the long-running background worker. It serves
cached game assets over a loopback HTTP gateway, accepts cache and progression
messages on the local channel, precaches the portal shell for offline use, and
periodically flushes pending progression deltas to the portal.

The daemon runs until interrupted (Ctrl+C) and shuts down gracefully, flushing
any pending progression before exit.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logf := func(string, ...any) {}
		if verboseDaemon {
			logf = func(format string, args ...any) {
				fmt.Fprintln(os.Stderr, logging.Mask(fmt.Sprintf(format, args...)))
			}
		}

		d, err := daemon.New(cfg, logf)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pterm.Println()
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Gateway:  ") + pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("http://"+cfg.Daemon.GatewayAddr))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Channel:  ") + pterm.NewStyle(pterm.FgLightBlue).Sprint(cfg.Daemon.ChannelAddr))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Metrics:  ") + pterm.NewStyle(pterm.FgLightBlue).Sprint("http://"+cfg.Daemon.MetricsAddr+"/metrics"))
		pterm.Println()
		fmt.Println("🕹️  Arcade daemon running. Press Ctrl+C to stop.")

		if err := d.Run(ctx); err != nil {
			return err
		}
		fmt.Println("✅ Daemon stopped")
		return nil
	},
}

func init() {
	daemonCmd.Flags().BoolVarP(&verboseDaemon, "verbose", "v", false, "Enable verbose logging to stderr")
	rootCmd.AddCommand(daemonCmd)
}
