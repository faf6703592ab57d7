// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package metrics defines the daemon's Prometheus metrics and exporter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "arcade"

var (
	// DownloadsTotal counts game cache downloads by outcome.
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Total number of game cache downloads",
		},
		[]string{"status"}, // success/error/timeout
	)

	// AssetsFetched counts individual assets fetched from the portal.
	AssetsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_fetched_total",
			Help:      "Total number of game assets fetched",
		},
		[]string{"status"}, // success/error
	)

	// CacheServeTotal counts gateway responses by source.
	CacheServeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_serve_total",
			Help:      "Total gateway responses by serving source",
		},
		[]string{"source"}, // cache/network/fallback
	)

	// CacheSizeBytes tracks total cached game asset bytes.
	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_size_bytes",
			Help:      "Total size of cached game assets in bytes",
		},
	)

	// CachedGames tracks the number of fully cached games.
	CachedGames = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_games",
			Help:      "Number of fully cached games",
		},
	)

	// SyncFlushesTotal counts progression sync flushes by outcome.
	SyncFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_flushes_total",
			Help:      "Total number of progression sync flushes",
		},
		[]string{"status"}, // success/deferred
	)

	// PendingDeltas tracks the size of the pending sync queue.
	PendingDeltas = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_deltas",
			Help:      "Number of progression deltas awaiting sync",
		},
	)

	// ChannelMessagesTotal counts channel envelopes by type.
	ChannelMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_messages_total",
			Help:      "Total channel messages handled by type",
		},
		[]string{"type"},
	)

	// Uptime tracks daemon uptime.
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Daemon uptime in seconds",
		},
	)
)
