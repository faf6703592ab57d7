// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package assetcache implements the durable offline asset store backed by
// BadgerDB. Assets are grouped into named caches by key prefix: one cache
// per game plus a versioned cache for the portal shell. Dropping a prefix
// is the unit of eviction, so a game is always cached all-or-nothing.
package assetcache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a requested asset is not in the cache.
var ErrNotFound = errors.New("asset not found in cache")

const (
	gamePrefix  = "game/"
	shellPrefix = "shell/"
)

// Asset is one stored HTTP response body with enough metadata to replay it.
type Asset struct {
	Path        string
	ContentType string
	Body        []byte
	StoredAt    time.Time
}

// Store wraps the Badger database holding all cached assets.
type Store struct {
	db  *badger.DB
	dir string
}

// Open opens (or creates) the asset cache at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open asset cache: %w", err)
	}
	return &Store{db: db, dir: dir}, nil
}

// FreeSpace estimates the bytes still available to the cache on its
// filesystem. Returns 0 when the estimate is unavailable.
func (s *Store) FreeSpace() int64 {
	return diskFree(s.dir)
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func gameKey(slug, assetPath string) []byte {
	return []byte(gamePrefix + slug + "/" + strings.TrimPrefix(assetPath, "/"))
}

func shellKey(version, assetPath string) []byte {
	return []byte(shellPrefix + version + "/" + strings.TrimPrefix(assetPath, "/"))
}

// PutGameAsset stores one asset in the named game cache.
func (s *Store) PutGameAsset(slug string, asset Asset) error {
	return s.put(gameKey(slug, asset.Path), asset)
}

// GetGameAsset fetches one asset from the named game cache.
func (s *Store) GetGameAsset(slug, assetPath string) (Asset, error) {
	return s.get(gameKey(slug, assetPath))
}

// PutShellAsset stores one asset in the shell cache for the given version.
func (s *Store) PutShellAsset(version string, asset Asset) error {
	return s.put(shellKey(version, asset.Path), asset)
}

// GetShellAsset fetches one asset from the shell cache for the given version.
func (s *Store) GetShellAsset(version, assetPath string) (Asset, error) {
	return s.get(shellKey(version, assetPath))
}

func (s *Store) put(key []byte, asset Asset) error {
	if asset.StoredAt.IsZero() {
		asset.StoredAt = time.Now().UTC()
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(asset); err != nil {
		return fmt.Errorf("encode asset: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf.Bytes())
	})
}

func (s *Store) get(key []byte) (Asset, error) {
	var asset Asset
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&asset)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Asset{}, ErrNotFound
	}
	if err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// HasGame reports whether the named game cache holds at least one asset.
// Failed downloads drop every key for the game before returning, so in
// practice a present cache is a complete one.
func (s *Store) HasGame(slug string) (bool, error) {
	prefix := []byte(gamePrefix + slug + "/")
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Rewind()
		found = it.ValidForPrefix(prefix)
		return nil
	})
	return found, err
}

// DropGame removes the entire named game cache in one operation.
func (s *Store) DropGame(slug string) error {
	return s.db.DropPrefix([]byte(gamePrefix + slug + "/"))
}

// DropShellExcept removes every shell cache generation other than keep.
// Called on daemon start so exactly one shell version survives activation.
func (s *Store) DropShellExcept(keep string) error {
	versions, err := s.shellVersions()
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v == keep {
			continue
		}
		if err := s.db.DropPrefix([]byte(shellPrefix + v + "/")); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) shellVersions() ([]string, error) {
	seen := map[string]struct{}{}
	prefix := []byte(shellPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), shellPrefix)
			if i := strings.IndexByte(rest, '/'); i > 0 {
				seen[rest[:i]] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	return out, nil
}

// GameSize returns the total stored body bytes for the named game cache.
func (s *Store) GameSize(slug string) (int64, error) {
	return s.prefixSize([]byte(gamePrefix + slug + "/"))
}

// TotalSize returns the total stored body bytes across all game caches.
func (s *Store) TotalSize() (int64, error) {
	return s.prefixSize([]byte(gamePrefix))
}

func (s *Store) prefixSize(prefix []byte) (int64, error) {
	var total int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var asset Asset
				if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&asset); err != nil {
					return nil
				}
				total += int64(len(asset.Body))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return total, err
}

// ListGames returns the slugs of every game cache holding at least one asset.
func (s *Store) ListGames() ([]string, error) {
	seen := map[string]struct{}{}
	prefix := []byte(gamePrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), gamePrefix)
			if i := strings.IndexByte(rest, '/'); i > 0 {
				seen[rest[:i]] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for slug := range seen {
		out = append(out, slug)
	}
	return out, nil
}
