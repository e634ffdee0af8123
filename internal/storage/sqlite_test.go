//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"viralsim/internal/model"
)

func TestSQLiteStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "viralsim.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := stampedRun("run-1")
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	loaded, ok, err := store.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatalf("expected run %s", run.RunID)
	}
	if loaded.RunID != run.RunID || loaded.Metrics.TotalEvents != run.Metrics.TotalEvents {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}

	_, ok, err = store.GetRun(ctx, "absent")
	if err != nil {
		t.Fatalf("get absent run: %v", err)
	}
	if ok {
		t.Fatal("expected run to be absent")
	}
}

func TestSQLiteStoreSeriesAndSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "viralsim.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	series := model.RunSeries{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Times:           []int{0, 1, 2},
		Events:          []int{3, 8},
		Phases:          []model.Phase{model.PhaseLatent, model.PhaseViral, model.PhaseDecaying},
		Cumulative:      []int{3, 11},
	}
	if err := store.SaveSeries(ctx, "run-1", series); err != nil {
		t.Fatalf("save series: %v", err)
	}
	loadedSeries, ok, err := store.GetSeries(ctx, "run-1")
	if err != nil {
		t.Fatalf("get series: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted series")
	}
	if len(loadedSeries.Times) != 3 || loadedSeries.Cumulative[1] != 11 {
		t.Fatalf("unexpected series loaded: %+v", loadedSeries)
	}

	snapshot := model.GraphSnapshot{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Nodes:           2,
		Edges:           [][2]int{{0, 1}},
		Layout:          []model.NodePosition{{X: 1, Y: 0}, {X: -1, Y: 0}},
		Phases:          []model.Phase{model.PhaseViral, model.PhaseViral},
		Colors:          []string{"#FF6B2B", "#FF6B2B"},
	}
	if err := store.SaveGraphSnapshot(ctx, "run-1", snapshot); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	loadedSnapshot, ok, err := store.GetGraphSnapshot(ctx, "run-1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted snapshot")
	}
	if loadedSnapshot.Nodes != 2 || len(loadedSnapshot.Edges) != 1 {
		t.Fatalf("unexpected snapshot loaded: %+v", loadedSnapshot)
	}
}

func TestSQLiteStoreListRunsOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "viralsim.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	older := stampedRun("run-old")
	older.CreatedAtUTC = "2026-08-22T09:00:00Z"
	newer := stampedRun("run-new")
	newer.CreatedAtUTC = "2026-08-23T09:00:00Z"
	if err := store.SaveRun(ctx, older); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, newer); err != nil {
		t.Fatalf("save run: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("run count: got %d want 2", len(runs))
	}
	if runs[0].RunID != "run-new" || runs[1].RunID != "run-old" {
		t.Fatalf("unexpected order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
}
