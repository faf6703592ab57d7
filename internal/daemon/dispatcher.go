// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package daemon

import (
	"context"
	"encoding/json"
	"errors"

	"celestial/arcade/internal/channel"
	"celestial/arcade/internal/gamecache"
	"celestial/arcade/internal/metrics"
	"celestial/arcade/internal/progression"
	"celestial/arcade/internal/worker"
)

// Dispatcher routes validated channel envelopes to the cache manager and
// the progression reconciler. It is the daemon's single message handler,
// shared by the gRPC channel server and the gateway's /channel route.
type Dispatcher struct {
	caches     *gamecache.Manager
	reconciler *progression.Reconciler
	monitor    *progression.Monitor
	logf       func(format string, args ...any)
}

// NewDispatcher builds the dispatcher. monitor gates the opportunistic
// flush after an update; logf may be nil.
func NewDispatcher(caches *gamecache.Manager, reconciler *progression.Reconciler, monitor *progression.Monitor, logf func(format string, args ...any)) *Dispatcher {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Dispatcher{caches: caches, reconciler: reconciler, monitor: monitor, logf: logf}
}

// Handle processes one envelope and returns the response to send back, or
// nil for message types that get no reply. Unknown types are ignored.
func (d *Dispatcher) Handle(ctx context.Context, env channel.Envelope) (*channel.Envelope, error) {
	metrics.ChannelMessagesTotal.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case channel.TypeCacheGame:
		return d.handleCacheGame(ctx, env)
	case channel.TypeDeleteGameCache:
		return d.handleDeleteGameCache(ctx, env)
	case channel.TypeGetCacheSize:
		return d.handleGetCacheSize(env)
	case channel.TypeProgressionRequest:
		return d.handleProgressionRequest(env)
	case channel.TypeProgressionUpdate:
		return d.handleProgressionUpdate(ctx, env)
	default:
		d.logf("daemon: ignoring unknown message type %q", env.Type)
		return nil, nil
	}
}

func (d *Dispatcher) handleCacheGame(ctx context.Context, env channel.Envelope) (*channel.Envelope, error) {
	if env.Slug == "" {
		return nil, errors.New("CACHE_GAME without slug")
	}
	if err := d.caches.Download(ctx, env.Slug); err != nil {
		payload := map[string]any{"error": err.Error()}
		var derr *worker.DownloadError
		if errors.As(err, &derr) {
			payload["failureCount"] = derr.Failures
		}
		return &channel.Envelope{Type: channel.TypeCacheError, Slug: env.Slug, Payload: payload}, nil
	}
	return &channel.Envelope{Type: channel.TypeCacheComplete, Slug: env.Slug}, nil
}

func (d *Dispatcher) handleDeleteGameCache(ctx context.Context, env channel.Envelope) (*channel.Envelope, error) {
	if env.Slug == "" {
		return nil, errors.New("DELETE_GAME_CACHE without slug")
	}
	if err := d.caches.Delete(ctx, env.Slug); err != nil {
		return &channel.Envelope{
			Type:    channel.TypeCacheError,
			Slug:    env.Slug,
			Payload: map[string]any{"error": err.Error()},
		}, nil
	}
	return &channel.Envelope{Type: channel.TypeCacheDeleted, Slug: env.Slug}, nil
}

func (d *Dispatcher) handleGetCacheSize(env channel.Envelope) (*channel.Envelope, error) {
	total, err := d.caches.TotalSize()
	if err != nil {
		return nil, err
	}
	sizes, err := d.caches.GameSizes()
	if err != nil {
		return nil, err
	}
	games := make(map[string]any, len(sizes))
	for slug, n := range sizes {
		games[slug] = n
	}
	payload := map[string]any{"totalSize": total, "games": games}
	// Quota mirrors storage estimates: current usage plus free disk.
	// A free-space estimate of 0 means unknown, so no quota is reported.
	if free := d.caches.FreeSpace(); free > 0 {
		payload["quota"] = total + free
	}
	return &channel.Envelope{
		Type:    channel.TypeCacheSize,
		Payload: payload,
	}, nil
}

func (d *Dispatcher) handleProgressionRequest(env channel.Envelope) (*channel.Envelope, error) {
	snap, err := d.reconciler.GetLocal()
	if err != nil {
		return nil, err
	}
	return &channel.Envelope{
		Type:    channel.TypeProgressionResponse,
		Payload: map[string]any{"progression": snapshotPayload(snap)},
	}, nil
}

func (d *Dispatcher) handleProgressionUpdate(ctx context.Context, env channel.Envelope) (*channel.Envelope, error) {
	delta := decodeDelta(env.Payload)
	if delta.IsZero() {
		// Nothing earned: confirm with current state, enqueue nothing
		snap, err := d.reconciler.GetLocal()
		if err != nil {
			return nil, err
		}
		return &channel.Envelope{
			Type:    channel.TypeProgressionConfirmed,
			Payload: map[string]any{"progression": snapshotPayload(snap)},
		}, nil
	}

	snap, err := d.reconciler.ApplyLocalDelta(delta)
	if err != nil {
		return nil, err
	}

	// Opportunistic flush, online only; offline deltas wait for the
	// auto-sync loop.
	if d.monitor == nil || d.monitor.Online() {
		go func() {
			if err := d.reconciler.Flush(context.Background()); err != nil {
				d.logf("daemon: opportunistic flush: %v", err)
				metrics.SyncFlushesTotal.WithLabelValues("deferred").Inc()
			} else {
				metrics.SyncFlushesTotal.WithLabelValues("success").Inc()
			}
			if n, err := d.reconciler.Pending(); err == nil {
				metrics.PendingDeltas.Set(float64(n))
			}
		}()
	}

	return &channel.Envelope{
		Type:    channel.TypeProgressionConfirmed,
		Payload: map[string]any{"progression": snapshotPayload(snap)},
	}, nil
}

// decodeDelta extracts a progression delta from an envelope payload. The
// payload arrives as loose JSON values; missing fields are zero.
func decodeDelta(payload map[string]any) progression.Delta {
	var d progression.Delta
	if payload == nil {
		return d
	}
	if v, ok := payload["coinsEarned"].(float64); ok {
		d.CoinsEarned = int(v)
	}
	if v, ok := payload["xpEarned"].(float64); ok {
		d.XpEarned = int(v)
	}
	d.NewAchievements = stringSlice(payload["newAchievements"])
	d.NewUnlockedItems = stringSlice(payload["newUnlockedItems"])
	return d
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// snapshotPayload renders a snapshot as loose JSON values for an envelope.
func snapshotPayload(snap progression.Snapshot) map[string]any {
	b, err := json.Marshal(snap)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}
