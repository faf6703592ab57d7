// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets go to OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"celestial/arcade/internal/xdg"
)

// Config holds non-sensitive arcade settings.
type Config struct {
	LogLevel string `json:"log_level"`
	// PortalURL is the base URL of the arcade portal backend.
	PortalURL string `json:"portal_url"`
	// TrustedOrigin is the only origin accepted on cross-context messages.
	// Messages carrying any other origin are silently discarded.
	TrustedOrigin string       `json:"trusted_origin"`
	Daemon        DaemonConfig `json:"daemon"`
	// SyncIntervalSeconds is the auto-sync timer period for pending
	// progression deltas.
	SyncIntervalSeconds int `json:"sync_interval_seconds"`
	// Concurrency bounds parallel asset fetches during a game download.
	Concurrency int `json:"concurrency"`
}

// DaemonConfig holds listen addresses for the background worker daemon.
type DaemonConfig struct {
	// ChannelAddr is the gRPC listen address for the cross-context channel.
	ChannelAddr string `json:"channel_addr"`
	// GatewayAddr is the HTTP listen address for the asset gateway.
	GatewayAddr string `json:"gateway_addr"`
	// MetricsAddr is the HTTP listen address for Prometheus metrics.
	MetricsAddr string `json:"metrics_addr"`
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Default returns the built-in configuration used when no file exists.
func Default() Config {
	return Config{
		LogLevel:      "info",
		PortalURL:     "https://celestial-arcade.app",
		TrustedOrigin: "http://127.0.0.1:8799",
		Daemon: DaemonConfig{
			ChannelAddr: "127.0.0.1:8798",
			GatewayAddr: "127.0.0.1:8799",
			MetricsAddr: "127.0.0.1:8797",
		},
		SyncIntervalSeconds: 60,
		Concurrency:         4,
	}
}

// Load reads configuration; missing file returns defaults.
func Load() (Config, error) {
	var c Config
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	// Backfill fields absent from older config files.
	d := Default()
	if c.PortalURL == "" {
		c.PortalURL = d.PortalURL
	}
	if c.TrustedOrigin == "" {
		c.TrustedOrigin = d.TrustedOrigin
	}
	if c.Daemon.ChannelAddr == "" {
		c.Daemon.ChannelAddr = d.Daemon.ChannelAddr
	}
	if c.Daemon.GatewayAddr == "" {
		c.Daemon.GatewayAddr = d.Daemon.GatewayAddr
	}
	if c.Daemon.MetricsAddr == "" {
		c.Daemon.MetricsAddr = d.Daemon.MetricsAddr
	}
	if c.SyncIntervalSeconds <= 0 {
		c.SyncIntervalSeconds = d.SyncIntervalSeconds
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
