package storage

import (
	"context"
	"testing"

	"viralsim/internal/model"
)

func stampedRun(runID string) model.RunRecord {
	return model.RunRecord{
		VersionedRecord:       model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		RunID:                 runID,
		CreatedAtUTC:          "2026-08-23T10:00:00Z",
		Seed:                  1,
		LayoutSeed:            42,
		BaseRate:              5.0,
		Steps:                 50,
		Nodes:                 30,
		ConnectionProbability: 0.15,
		Matrix: [][]float64{
			{0.7, 0.25, 0.05},
			{0.1, 0.7, 0.2},
			{0.3, 0.1, 0.6},
		},
		Metrics: model.RunMetrics{TotalEvents: 321, CurrentPhaseName: "Viral"},
	}
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := stampedRun("run-1")
	if err := store.SaveRun(ctx, input); err != nil {
		t.Fatalf("save run: %v", err)
	}

	output, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if output.RunID != input.RunID || output.Metrics.TotalEvents != input.Metrics.TotalEvents {
		t.Fatalf("unexpected run: %+v", output)
	}

	// The stored record must be insulated from caller mutation.
	output.Matrix[0][0] = 99
	again, _, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if again.Matrix[0][0] != 0.7 {
		t.Fatalf("stored matrix mutated through returned copy: %v", again.Matrix[0][0])
	}
}

func TestMemoryStoreMissingRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	_, ok, err := store.GetRun(ctx, "absent")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if ok {
		t.Fatal("expected run to be absent")
	}
}

func TestMemoryStoreSeriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := model.RunSeries{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Times:           []int{0, 1, 2},
		Events:          []int{4, 7},
		Phases:          []model.Phase{model.PhaseLatent, model.PhaseViral, model.PhaseViral},
		Cumulative:      []int{4, 11},
	}
	if err := store.SaveSeries(ctx, "run-1", input); err != nil {
		t.Fatalf("save series: %v", err)
	}

	output, ok, err := store.GetSeries(ctx, "run-1")
	if err != nil {
		t.Fatalf("get series: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted series")
	}
	if len(output.Times) != 3 || output.Cumulative[1] != 11 || output.Phases[1] != model.PhaseViral {
		t.Fatalf("unexpected series: %+v", output)
	}
}

func TestMemoryStoreGraphSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := model.GraphSnapshot{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Nodes:           3,
		Edges:           [][2]int{{0, 1}, {1, 2}},
		Layout:          []model.NodePosition{{X: -1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}},
		Phases:          []model.Phase{model.PhaseViral, model.PhaseViral, model.PhaseDecaying},
		Colors:          []string{"#FF6B2B", "#FF6B2B", "#2C3E50"},
	}
	if err := store.SaveGraphSnapshot(ctx, "run-1", input); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	output, ok, err := store.GetGraphSnapshot(ctx, "run-1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted snapshot")
	}
	if output.Nodes != 3 || len(output.Edges) != 2 || output.Colors[2] != "#2C3E50" {
		t.Fatalf("unexpected snapshot: %+v", output)
	}
}

func TestMemoryStoreListRunsAndReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := store.SaveRun(ctx, stampedRun("run-1")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, stampedRun("run-2")); err != nil {
		t.Fatalf("save run: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("run count: got %d want 2", len(runs))
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	runs, err = store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("run count after reset: got %d want 0", len(runs))
	}
}
