// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progression

import (
	"context"
	"fmt"
	"sync"
	"time"

	arcerrors "celestial/arcade/internal/errors"
)

// SyncAPI is the slice of the portal client the reconciler depends on.
type SyncAPI interface {
	GetProgression(ctx context.Context, accessToken string) (Snapshot, error)
	SyncProgression(ctx context.Context, accessToken string, delta Delta) (Snapshot, error)
}

// TokenFunc supplies the bearer token for sync calls. An empty token is
// passed through; the portal decides whether anonymous sync is allowed.
type TokenFunc func(ctx context.Context) (string, error)

// Reconciler merges gameplay deltas into the local snapshot and flushes the
// pending queue to the portal. It is safe for concurrent use: a delta
// enqueued while a flush is in flight survives and rides the next flush.
type Reconciler struct {
	store *Store
	api   SyncAPI
	token TokenFunc

	// flushMu serializes flushes; ApplyLocalDelta never takes it.
	flushMu sync.Mutex

	// logf receives retryable sync failures; never nil after NewReconciler.
	logf func(format string, args ...any)
}

// NewReconciler builds a reconciler over the given store and portal client.
// logf may be nil to discard sync warnings.
func NewReconciler(store *Store, api SyncAPI, token TokenFunc, logf func(format string, args ...any)) *Reconciler {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if token == nil {
		token = func(context.Context) (string, error) { return "", nil }
	}
	return &Reconciler{store: store, api: api, token: token, logf: logf}
}

// GetLocal returns the current local snapshot without contacting the server.
func (r *Reconciler) GetLocal() (Snapshot, error) {
	return r.store.Snapshot()
}

// ApplyLocalDelta folds the delta into the local snapshot and durably
// enqueues it for the next flush. Snapshot update and enqueue share one
// transaction, so a crash between them cannot lose the invariant that
// local totals equal last-known server totals plus all pending deltas.
func (r *Reconciler) ApplyLocalDelta(d Delta) (Snapshot, error) {
	return r.store.ApplyDelta(d)
}

// Pending returns the number of queued deltas.
func (r *Reconciler) Pending() (int, error) {
	return r.store.PendingCount()
}

// Flush aggregates the pending queue and sends it to the portal's sync
// endpoint. An empty queue is a no-op success. On success the local snapshot
// is replaced wholesale with the server's authoritative result and exactly
// the aggregated deltas are removed; deltas enqueued mid-flight stay queued.
// Failures are retryable: the queue is left untouched.
func (r *Reconciler) Flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	pending, err := r.store.PendingDeltas()
	if err != nil {
		return arcerrors.Wrap(arcerrors.StorageUnavailable, "read pending deltas", err)
	}
	if len(pending) == 0 {
		return nil
	}

	agg := Aggregate(pending)
	agg.ClientLastSyncedAt = time.Now().UTC().Format(time.RFC3339)
	ids := make([]int64, len(pending))
	for i, d := range pending {
		ids[i] = d.ID
	}

	token, err := r.token(ctx)
	if err != nil {
		return arcerrors.Wrap(arcerrors.SyncDeferred, "load access token", err)
	}

	serverSnap, err := r.api.SyncProgression(ctx, token, agg)
	if err != nil {
		return arcerrors.Wrap(arcerrors.SyncDeferred, "sync with portal", err)
	}

	serverSnap.UserID = LocalUserID
	if err := r.store.ReplaceSnapshotAndRemove(serverSnap, ids); err != nil {
		return arcerrors.Wrap(arcerrors.StorageUnavailable, "install server snapshot", err)
	}
	return nil
}

// LoadServerSnapshot unconditionally fetches the server snapshot and
// overwrites the local one. It refuses to run while deltas are pending,
// since installing the server state would silently discard them.
func (r *Reconciler) LoadServerSnapshot(ctx context.Context) (Snapshot, error) {
	n, err := r.store.PendingCount()
	if err != nil {
		return Snapshot{}, err
	}
	if n > 0 {
		return Snapshot{}, fmt.Errorf("refusing to overwrite local snapshot: %d deltas pending sync", n)
	}

	token, err := r.token(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := r.api.GetProgression(ctx, token)
	if err != nil {
		return Snapshot{}, err
	}
	snap.UserID = LocalUserID
	if err := r.store.SaveSnapshot(snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// AutoSync runs the recurring flush loop until ctx is canceled. The timer
// fires every interval but only flushes while the monitor reports online;
// an offline-to-online transition triggers an immediate flush. All flush
// failures are logged and swallowed.
func (r *Reconciler) AutoSync(ctx context.Context, interval time.Duration, mon *Monitor) {
	if interval <= 0 {
		interval = 60 * time.Second
	}

	online := make(chan struct{}, 1)
	if mon != nil {
		mon.NotifyOnline(online)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-online:
			if err := r.Flush(ctx); err != nil {
				r.logf("online sync failed, will retry later: %v", err)
			}
		case <-ticker.C:
			if mon != nil && !mon.Online() {
				continue
			}
			if err := r.Flush(ctx); err != nil {
				r.logf("auto-sync failed, will retry later: %v", err)
			}
		}
	}
}
