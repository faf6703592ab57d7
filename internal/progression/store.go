// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progression

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the durable local progression store: one snapshot row for the
// local user slot plus an insertion-ordered FIFO of pending sync deltas.
// The Reconciler is the only writer; other components go through it.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS progression (
	user_id        TEXT PRIMARY KEY,
	coins          INTEGER NOT NULL,
	xp             INTEGER NOT NULL,
	achievements   TEXT NOT NULL,
	unlocked_items TEXT NOT NULL,
	last_synced_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS pending_sync (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	coins_earned       INTEGER NOT NULL,
	xp_earned          INTEGER NOT NULL,
	new_achievements   TEXT NOT NULL,
	new_unlocked_items TEXT NOT NULL,
	created_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pending_sync_created_at ON pending_sync(created_at);
`

// OpenStore opens (and migrates) the progression database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open progression db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate progression db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Snapshot returns the current local snapshot. A missing row yields the
// zero snapshot for the local slot; the server is never contacted.
func (s *Store) Snapshot() (Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT user_id, coins, xp, achievements, unlocked_items, last_synced_at
		FROM progression WHERE user_id = ?`, LocalUserID)

	var snap Snapshot
	var achievementsJSON, unlockedJSON string
	err := row.Scan(&snap.UserID, &snap.Coins, &snap.Xp, &achievementsJSON, &unlockedJSON, &snap.LastSyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ZeroSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	snap.Achievements = decodeSet(achievementsJSON)
	snap.UnlockedItems = decodeSet(unlockedJSON)
	return snap, nil
}

// SaveSnapshot upserts the snapshot row for the local user slot.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	return upsertSnapshot(s.db, snap)
}

// ApplyDelta folds the delta into the local snapshot and enqueues it as a
// pending sync item, both inside a single transaction so an interrupted
// process never observes one persisted without the other.
func (s *Store) ApplyDelta(d Delta) (Snapshot, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback()

	snap, err := snapshotIn(tx)
	if err != nil {
		return Snapshot{}, err
	}

	merged := Apply(snap, d)
	merged.LastSyncedAt = time.Now().UTC().Format(time.RFC3339)
	if err := upsertSnapshot(tx, merged); err != nil {
		return Snapshot{}, err
	}

	if _, err := tx.Exec(`
		INSERT INTO pending_sync (coins_earned, xp_earned, new_achievements, new_unlocked_items, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		d.CoinsEarned, d.XpEarned, encodeSet(d.NewAchievements), encodeSet(d.NewUnlockedItems),
		time.Now().UnixMilli(),
	); err != nil {
		return Snapshot{}, err
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, err
	}
	return merged, nil
}

// PendingDeltas returns every queued delta in insertion order.
func (s *Store) PendingDeltas() ([]Delta, error) {
	rows, err := s.db.Query(`
		SELECT id, coins_earned, xp_earned, new_achievements, new_unlocked_items
		FROM pending_sync ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Delta
	for rows.Next() {
		var d Delta
		var achievementsJSON, unlockedJSON string
		if err := rows.Scan(&d.ID, &d.CoinsEarned, &d.XpEarned, &achievementsJSON, &unlockedJSON); err != nil {
			return nil, err
		}
		d.NewAchievements = decodeSet(achievementsJSON)
		d.NewUnlockedItems = decodeSet(unlockedJSON)
		out = append(out, d)
	}
	return out, rows.Err()
}

// PendingCount returns the number of queued deltas.
func (s *Store) PendingCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pending_sync`).Scan(&n)
	return n, err
}

// ReplaceSnapshotAndRemove installs the server's authoritative snapshot and
// removes exactly the deltas that were part of the flushed aggregate, in one
// transaction. Deltas enqueued after the aggregate was computed keep their
// rows and stay pending for the next flush.
func (s *Store) ReplaceSnapshotAndRemove(snap Snapshot, ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertSnapshot(tx, snap); err != nil {
		return err
	}
	if len(ids) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		if _, err := tx.Exec(`DELETE FROM pending_sync WHERE id IN (`+placeholders+`)`, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func snapshotIn(q execer) (Snapshot, error) {
	row := q.QueryRow(`
		SELECT user_id, coins, xp, achievements, unlocked_items, last_synced_at
		FROM progression WHERE user_id = ?`, LocalUserID)

	var snap Snapshot
	var achievementsJSON, unlockedJSON string
	err := row.Scan(&snap.UserID, &snap.Coins, &snap.Xp, &achievementsJSON, &unlockedJSON, &snap.LastSyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ZeroSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	snap.Achievements = decodeSet(achievementsJSON)
	snap.UnlockedItems = decodeSet(unlockedJSON)
	return snap, nil
}

func upsertSnapshot(q execer, snap Snapshot) error {
	if snap.LastSyncedAt == "" {
		snap.LastSyncedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := q.Exec(`
		INSERT INTO progression (user_id, coins, xp, achievements, unlocked_items, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			coins          = excluded.coins,
			xp             = excluded.xp,
			achievements   = excluded.achievements,
			unlocked_items = excluded.unlocked_items,
			last_synced_at = excluded.last_synced_at`,
		LocalUserID, snap.Coins, snap.Xp,
		encodeSet(snap.Achievements), encodeSet(snap.UnlockedItems), snap.LastSyncedAt)
	return err
}

// encodeSet serializes a string set as a sorted JSON array.
func encodeSet(set []string) string {
	if len(set) == 0 {
		return "[]"
	}
	b, err := json.Marshal(unionSorted(set, nil))
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeSet parses a JSON array column; malformed data degrades to empty.
func decodeSet(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
