// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package daemon assembles and runs the background worker: the asset
// gateway, the channel server, the progression auto-sync loop, and the
// metrics exporter. All listeners bind loopback addresses only.
package daemon

import (
	"context"
	"net"
	"path/filepath"
	"time"

	"celestial/arcade/internal/assetcache"
	"celestial/arcade/internal/auth"
	"celestial/arcade/internal/backend"
	"celestial/arcade/internal/cachestatus"
	"celestial/arcade/internal/channel"
	"celestial/arcade/internal/config"
	"celestial/arcade/internal/gamecache"
	"celestial/arcade/internal/gateway"
	"celestial/arcade/internal/metrics"
	"celestial/arcade/internal/progression"
	"celestial/arcade/internal/worker"
	"celestial/arcade/internal/xdg"
)

// Daemon holds every running component.
type Daemon struct {
	cfg        config.Config
	logf       func(format string, args ...any)
	store      *progression.Store
	assets     *assetcache.Store
	reconciler *progression.Reconciler
	monitor    *progression.Monitor
	downloader *worker.Downloader
	dispatcher *Dispatcher
	channelSrv *channel.Server
	gatewaySrv *gateway.Server
	exporter   *metrics.Exporter

	shellVersion string
}

// New wires the daemon from configuration. logf may be nil.
func New(cfg config.Config, logf func(format string, args ...any)) (*Daemon, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	stateDir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}
	cacheDir, err := xdg.CacheDir()
	if err != nil {
		return nil, err
	}

	store, err := progression.OpenStore(filepath.Join(stateDir, "progression.db"))
	if err != nil {
		return nil, err
	}
	assets, err := assetcache.Open(filepath.Join(cacheDir, "assets"))
	if err != nil {
		store.Close()
		return nil, err
	}

	api := backend.New(cfg.PortalURL)
	authSvc := auth.NewServiceWith(api)
	token := func(ctx context.Context) (string, error) {
		return authSvc.GetAccessToken(ctx)
	}

	reconciler := progression.NewReconciler(store, api, token, logf)
	monitor := progression.NewMonitor(cfg.PortalURL)
	tracker := cachestatus.NewTracker(filepath.Join(stateDir, "cache-status.json"))
	downloader := worker.NewDownloader(cfg.PortalURL, assets, tracker, cfg.Concurrency, token, logf)
	mgr := gamecache.NewManager(downloader, tracker)
	dispatcher := NewDispatcher(mgr, reconciler, monitor, logf)

	// The shell generation is keyed to the portal version; the daemon
	// looks it up once at start and falls back to a stable tag offline.
	shellVersion := "offline"
	if v, err := api.GetVersion(context.Background()); err == nil && v != "unknown" {
		shellVersion = v
	}

	gatewaySrv := gateway.NewServer(gateway.Config{
		Addr:          cfg.Daemon.GatewayAddr,
		BaseURL:       cfg.PortalURL,
		ShellVersion:  shellVersion,
		Assets:        assets,
		Handler:       dispatcher,
		TrustedOrigin: cfg.TrustedOrigin,
		Monitor:       monitor,
		Logf:          logf,
	})

	d := &Daemon{
		cfg:        cfg,
		logf:       logf,
		store:      store,
		assets:     assets,
		reconciler: reconciler,
		monitor:    monitor,
		downloader: downloader,
		dispatcher: dispatcher,
		channelSrv: channel.NewServer(cfg.TrustedOrigin, dispatcher, logf),
		gatewaySrv: gatewaySrv,
		exporter:   metrics.NewExporter(cfg.Daemon.MetricsAddr),
	}
	d.shellVersion = shellVersion
	return d, nil
}

// Run starts every component and blocks until ctx is canceled or a
// listener fails.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lis, err := net.Listen("tcp", d.cfg.Daemon.ChannelAddr)
	if err != nil {
		return err
	}

	errc := make(chan error, 3)
	go func() { errc <- d.channelSrv.Serve(lis) }()
	go func() { errc <- d.gatewaySrv.Start() }()
	go func() { errc <- d.exporter.Start() }()

	go d.monitor.Run(ctx, 15*time.Second)
	go d.reconciler.AutoSync(ctx, time.Duration(d.cfg.SyncIntervalSeconds)*time.Second, d.monitor)

	// Shell precache runs in the background; the gateway serves network
	// responses until it lands.
	go d.downloader.PrecacheShell(ctx, d.shellVersion)

	d.logf("daemon: gateway on %s, channel on %s, metrics on %s",
		d.cfg.Daemon.GatewayAddr, d.cfg.Daemon.ChannelAddr, d.cfg.Daemon.MetricsAddr)

	select {
	case <-ctx.Done():
		d.shutdown()
		return nil
	case err := <-errc:
		d.shutdown()
		return err
	}
}

func (d *Daemon) shutdown() {
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d.channelSrv.Stop()
	if err := d.gatewaySrv.Stop(sctx); err != nil {
		d.logf("daemon: gateway shutdown: %v", err)
	}
	if err := d.exporter.Stop(); err != nil {
		d.logf("daemon: metrics shutdown: %v", err)
	}

	// Flush pending deltas one last time, bounded by the shutdown window
	if err := d.reconciler.Flush(sctx); err != nil {
		d.logf("daemon: final flush: %v", err)
	}

	if err := d.assets.Close(); err != nil {
		d.logf("daemon: close asset cache: %v", err)
	}
	if err := d.store.Close(); err != nil {
		d.logf("daemon: close progression store: %v", err)
	}
}
