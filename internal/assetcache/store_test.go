// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package assetcache

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGameAssetRoundTrip(t *testing.T) {
	store := openTestStore(t)

	want := Asset{
		Path:        "/games/star-drifter/index.html",
		ContentType: "text/html",
		Body:        []byte("<html>game</html>"),
	}
	if err := store.PutGameAsset("star-drifter", want); err != nil {
		t.Fatalf("PutGameAsset() error = %v", err)
	}

	got, err := store.GetGameAsset("star-drifter", "/games/star-drifter/index.html")
	if err != nil {
		t.Fatalf("GetGameAsset() error = %v", err)
	}
	if got.ContentType != want.ContentType || string(got.Body) != string(want.Body) {
		t.Errorf("GetGameAsset() = %+v, want %+v", got, want)
	}
	if got.StoredAt.IsZero() {
		t.Error("stored asset missing StoredAt stamp")
	}

	if _, err := store.GetGameAsset("other-game", "/games/other-game/index.html"); !errors.Is(err, ErrNotFound) {
		t.Errorf("miss error = %v, want ErrNotFound", err)
	}
}

func TestHasGameAndDropGame(t *testing.T) {
	store := openTestStore(t)

	if ok, err := store.HasGame("star-drifter"); err != nil || ok {
		t.Fatalf("HasGame on empty store = %v, %v; want false, nil", ok, err)
	}

	for _, p := range []string{"/games/star-drifter/index.html", "/games/star-drifter/main.js"} {
		if err := store.PutGameAsset("star-drifter", Asset{Path: p, Body: []byte("x")}); err != nil {
			t.Fatalf("PutGameAsset(%s) error = %v", p, err)
		}
	}
	if err := store.PutGameAsset("moon-miner", Asset{Path: "/games/moon-miner/index.html", Body: []byte("y")}); err != nil {
		t.Fatalf("PutGameAsset() error = %v", err)
	}

	if ok, _ := store.HasGame("star-drifter"); !ok {
		t.Error("HasGame = false after puts")
	}

	if err := store.DropGame("star-drifter"); err != nil {
		t.Fatalf("DropGame() error = %v", err)
	}
	if ok, _ := store.HasGame("star-drifter"); ok {
		t.Error("HasGame = true after DropGame")
	}
	// Dropping one game must not touch another
	if ok, _ := store.HasGame("moon-miner"); !ok {
		t.Error("DropGame removed an unrelated game cache")
	}
}

func TestShellGenerations(t *testing.T) {
	store := openTestStore(t)

	if err := store.PutShellAsset("v1", Asset{Path: "/index.html", Body: []byte("old")}); err != nil {
		t.Fatalf("PutShellAsset() error = %v", err)
	}
	if err := store.PutShellAsset("v2", Asset{Path: "/index.html", Body: []byte("new")}); err != nil {
		t.Fatalf("PutShellAsset() error = %v", err)
	}

	if err := store.DropShellExcept("v2"); err != nil {
		t.Fatalf("DropShellExcept() error = %v", err)
	}

	if _, err := store.GetShellAsset("v1", "/index.html"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale shell generation still readable: %v", err)
	}
	got, err := store.GetShellAsset("v2", "/index.html")
	if err != nil {
		t.Fatalf("GetShellAsset(v2) error = %v", err)
	}
	if string(got.Body) != "new" {
		t.Errorf("kept shell body = %q, want new", got.Body)
	}
}

func TestSizesAndListGames(t *testing.T) {
	store := openTestStore(t)

	if err := store.PutGameAsset("a", Asset{Path: "/games/a/x", Body: make([]byte, 100)}); err != nil {
		t.Fatalf("PutGameAsset() error = %v", err)
	}
	if err := store.PutGameAsset("a", Asset{Path: "/games/a/y", Body: make([]byte, 50)}); err != nil {
		t.Fatalf("PutGameAsset() error = %v", err)
	}
	if err := store.PutGameAsset("b", Asset{Path: "/games/b/x", Body: make([]byte, 25)}); err != nil {
		t.Fatalf("PutGameAsset() error = %v", err)
	}

	if n, err := store.GameSize("a"); err != nil || n != 150 {
		t.Errorf("GameSize(a) = %d, %v; want 150", n, err)
	}
	if n, err := store.TotalSize(); err != nil || n != 175 {
		t.Errorf("TotalSize() = %d, %v; want 175", n, err)
	}

	games, err := store.ListGames()
	if err != nil {
		t.Fatalf("ListGames() error = %v", err)
	}
	if len(games) != 2 {
		t.Errorf("ListGames() = %v, want two slugs", games)
	}
}
