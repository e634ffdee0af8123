package viralsim

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:  "memory",
		ResultsDir: filepath.Join(t.TempDir(), "results"),
		ExportsDir: filepath.Join(t.TempDir(), "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestRunProducesSummaryAndArtifacts(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, RunRequest{RunID: "run-1", Seed: 7})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID != "run-1" {
		t.Fatalf("run id: got %s", summary.RunID)
	}
	if summary.Seed != 7 {
		t.Fatalf("seed: got %d want 7", summary.Seed)
	}
	if summary.Steps != 50 {
		t.Fatalf("steps: got %d want default 50", summary.Steps)
	}
	if summary.FinalPhase == "" {
		t.Fatal("expected final phase name")
	}

	for _, file := range []string{"config.json", "metrics.json", "breakdown.json", "graph.json", "series.json", "series.csv"} {
		if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, file)); err != nil {
			t.Fatalf("missing artifact %s: %v", file, err)
		}
	}
}

func TestRunGeneratesRunID(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, RunRequest{Seed: 1, Steps: 5})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected generated run id")
	}
}

func TestRunRejectsDegenerateMatrix(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	_, err := client.Run(ctx, RunRequest{
		Seed:   1,
		Matrix: [][]float64{{0, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	})
	if err == nil {
		t.Fatal("expected error for degenerate matrix row")
	}
}

func TestMetricsSeriesGraphAfterRun(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, RunRequest{RunID: "run-1", Seed: 3, Steps: 20})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	metrics, err := client.Metrics(ctx, RunLookup{RunID: "run-1"})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.TotalEvents != summary.TotalEvents {
		t.Fatalf("total events: got %d want %d", metrics.TotalEvents, summary.TotalEvents)
	}

	series, err := client.Series(ctx, RunLookup{RunID: "run-1"})
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(series.Times) != 21 || len(series.Events) != 20 {
		t.Fatalf("series lengths: times=%d events=%d", len(series.Times), len(series.Events))
	}

	breakdown, err := client.Breakdown(ctx, RunLookup{RunID: "run-1"})
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(breakdown.Latent) != 21 {
		t.Fatalf("breakdown length: got %d want 21", len(breakdown.Latent))
	}

	graph, err := client.Graph(ctx, RunLookup{RunID: "run-1"})
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if graph.Nodes != 30 || len(graph.Layout) != 30 {
		t.Fatalf("graph shape: nodes=%d layout=%d", graph.Nodes, len(graph.Layout))
	}
}

func TestLookupByLatest(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.Run(ctx, RunRequest{RunID: "run-1", Seed: 1, Steps: 5}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := client.Run(ctx, RunRequest{RunID: "run-2", Seed: 2, Steps: 5}); err != nil {
		t.Fatalf("run: %v", err)
	}

	series, err := client.Series(ctx, RunLookup{Latest: true})
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(series.Times) != 6 {
		t.Fatalf("series length: got %d want 6", len(series.Times))
	}

	if _, err := client.Series(ctx, RunLookup{RunID: "run-1", Latest: true}); err == nil {
		t.Fatal("expected error for run id with latest")
	}
	if _, err := client.Series(ctx, RunLookup{}); err == nil {
		t.Fatal("expected error for empty lookup")
	}
}

func TestMetricsMissingRun(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.Metrics(ctx, RunLookup{RunID: "absent"}); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestRunsListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.Run(ctx, RunRequest{RunID: "run-1", Seed: 1, Steps: 5}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := client.Run(ctx, RunRequest{RunID: "run-2", Seed: 2, Steps: 5}); err != nil {
		t.Fatalf("run: %v", err)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("run count: got %d want 2", len(runs))
	}
	if runs[0].RunID != "run-2" {
		t.Fatalf("newest run first: got %s", runs[0].RunID)
	}

	limited, err := client.Runs(ctx, RunsRequest{Limit: 1})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited run count: got %d want 1", len(limited))
	}
}

func TestExportLatestRun(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.Run(ctx, RunRequest{RunID: "run-1", Seed: 1, Steps: 5}); err != nil {
		t.Fatalf("run: %v", err)
	}

	summary, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if summary.RunID != "run-1" {
		t.Fatalf("exported run id: got %s", summary.RunID)
	}
	if _, err := os.Stat(filepath.Join(summary.Directory, "series.csv")); err != nil {
		t.Fatalf("missing exported series: %v", err)
	}

	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected error for export without run id or latest")
	}
	if _, err := client.Export(ctx, ExportRequest{RunID: "run-1", Latest: true}); err == nil {
		t.Fatal("expected error for run id with latest")
	}
}

func TestResetDropsStoredRuns(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.Run(ctx, RunRequest{RunID: "run-1", Seed: 1, Steps: 5}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := client.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// Store is empty; metrics falls back to the artifacts directory.
	metrics, err := client.Metrics(ctx, RunLookup{RunID: "run-1"})
	if err != nil {
		t.Fatalf("metrics after reset: %v", err)
	}
	if metrics.CurrentPhaseName == "" {
		t.Fatal("expected metrics from artifacts fallback")
	}
}

func TestIdenticalSeedsReproduceResults(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	first, err := client.Run(ctx, RunRequest{RunID: "run-a", Seed: 11, Steps: 25})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	second, err := client.Run(ctx, RunRequest{RunID: "run-b", Seed: 11, Steps: 25})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if first.TotalEvents != second.TotalEvents || first.FinalPhase != second.FinalPhase {
		t.Fatalf("identical seeds diverged: %+v vs %+v", first, second)
	}
}
