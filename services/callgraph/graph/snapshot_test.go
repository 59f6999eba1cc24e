// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open in-memory badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestSnapshotManager returns a manager whose clock advances one second per Save.
func newTestSnapshotManager(t *testing.T) *SnapshotManager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	mgr, err := NewSnapshotManager(newTestDB(t), logger)
	if err != nil {
		t.Fatalf("NewSnapshotManager: %v", err)
	}
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return mgr
}

func buildSnapshotTestGraph() *Graph {
	a := NewAssembler()
	a.AddNodes(
		&Node{ID: "app.py:main", Name: "main", QualifiedName: "main", FilePath: "app.py", Kind: KindFunction},
		&Node{ID: "app.py:helper", Name: "helper", QualifiedName: "helper", FilePath: "app.py", Kind: KindFunction},
	)
	a.AddEdges(&Edge{
		Source:     "app.py:main",
		Target:     "app.py:helper",
		CallSite:   CallSite{FilePath: "app.py", Line: 2, Column: 5},
		Kind:       EdgeDirect,
		IsResolved: true,
	})
	return a.Build()
}

func TestNewSnapshotManager_NilDB(t *testing.T) {
	if _, err := NewSnapshotManager(nil, slog.Default()); err == nil {
		t.Error("expected error for nil DB")
	}
}

func TestSnapshotManager_SaveAndLoad(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()
	g := buildSnapshotTestGraph()

	meta, err := mgr.Save(ctx, "/test/project", g, "nightly")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.SnapshotID == "" {
		t.Error("snapshot ID should not be empty")
	}
	if meta.ProjectHash != ProjectHash("/test/project") {
		t.Errorf("project hash = %q, want %q", meta.ProjectHash, ProjectHash("/test/project"))
	}
	if meta.NodeCount != 2 || meta.EdgeCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", meta.NodeCount, meta.EdgeCount)
	}

	loaded, loadedMeta, err := mgr.Load(ctx, meta.SnapshotID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loadedMeta.Label != "nightly" {
		t.Errorf("label = %q, want nightly", loadedMeta.Label)
	}

	wantHash, _ := g.Hash()
	gotHash, _ := loaded.Hash()
	if gotHash != wantHash {
		t.Errorf("loaded graph hash = %s, want %s", gotHash, wantHash)
	}
	if loaded.Edges[0].CallSite.Column != 5 {
		t.Errorf("call site column = %d, want 5", loaded.Edges[0].CallSite.Column)
	}
}

func TestSnapshotManager_LoadLatest(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	if _, err := mgr.Save(ctx, "/p", buildSnapshotTestGraph(), "first"); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	second, err := mgr.Save(ctx, "/p", buildSnapshotTestGraph(), "second")
	if err != nil {
		t.Fatalf("Save second: %v", err)
	}

	_, meta, err := mgr.LoadLatest(ctx, ProjectHash("/p"))
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if meta.SnapshotID != second.SnapshotID {
		t.Errorf("latest = %s, want %s", meta.SnapshotID, second.SnapshotID)
	}
}

func TestSnapshotManager_ListNewestFirst(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	for _, label := range []string{"a", "b", "c"} {
		if _, err := mgr.Save(ctx, "/p", buildSnapshotTestGraph(), label); err != nil {
			t.Fatalf("Save %s: %v", label, err)
		}
	}
	if _, err := mgr.Save(ctx, "/other", buildSnapshotTestGraph(), "x"); err != nil {
		t.Fatalf("Save other: %v", err)
	}

	list, err := mgr.List(ctx, ProjectHash("/p"), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	if list[0].Label != "c" || list[2].Label != "a" {
		t.Errorf("order = %s,%s,%s; want c,b,a", list[0].Label, list[1].Label, list[2].Label)
	}

	all, err := mgr.List(ctx, "", 2)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("limit not applied: got %d", len(all))
	}
}

func TestSnapshotManager_Delete(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	meta, err := mgr.Save(ctx, "/p", buildSnapshotTestGraph(), "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mgr.Delete(ctx, meta.SnapshotID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, _, err := mgr.Load(ctx, meta.SnapshotID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load after delete: err = %v, want ErrSnapshotNotFound", err)
	}
	if _, _, err := mgr.LoadLatest(ctx, meta.ProjectHash); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LoadLatest after delete: err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSnapshotManager_EmptyRootIsWorkingDirectory(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	meta, err := mgr.Save(ctx, "", buildSnapshotTestGraph(), "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.ProjectHash != ProjectHash(".") {
		t.Errorf("ProjectHash = %s, want hash of \".\"", meta.ProjectHash)
	}
	if _, _, err := mgr.LoadLatest(ctx, ProjectHash(".")); err != nil {
		t.Errorf("LoadLatest: %v", err)
	}
}

func TestSnapshotManager_CanceledContext(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mgr.Save(ctx, "/p", buildSnapshotTestGraph(), ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Save err = %v, want context.Canceled", err)
	}
}
