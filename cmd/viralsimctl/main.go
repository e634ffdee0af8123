package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"viralsim/internal/storage"
	simapi "viralsim/pkg/viralsim"
)

const (
	resultsDir = "results"
	exportsDir = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "metrics":
		return runMetrics(ctx, args[1:])
	case "breakdown":
		return runBreakdown(ctx, args[1:])
	case "series":
		return runSeries(ctx, args[1:])
	case "graph":
		return runGraph(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newClient(storeKind, dbPath string) (*simapi.Client, error) {
	return simapi.New(simapi.Options{
		StoreKind:  storeKind,
		DBPath:     dbPath,
		ResultsDir: resultsDir,
		ExportsDir: exportsDir,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "viralsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "viralsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config path (JSON or YAML)")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	matrixJSON := fs.String("matrix", "", "3x3 transition matrix as JSON rows (optional)")
	baseRate := fs.Float64("base-rate", 5.0, "baseline Poisson event rate per step")
	steps := fs.Int("steps", 50, "step count")
	seed := fs.Int64("seed", 1, "rng seed (0 for time-based)")
	layoutSeed := fs.Int64("layout-seed", 42, "graph topology and layout seed")
	nodes := fs.Int("nodes", 30, "population graph node count")
	connProb := fs.Float64("connection-probability", 0.15, "edge probability for the population graph")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "viralsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		matrix, err := parseMatrix(*matrixJSON)
		if err != nil {
			return err
		}
		req = simapi.RunRequest{
			RunID:                 *runID,
			Matrix:                matrix,
			BaseRate:              *baseRate,
			Steps:                 *steps,
			Seed:                  *seed,
			LayoutSeed:            *layoutSeed,
			Nodes:                 *nodes,
			ConnectionProbability: *connProb,
		}
	} else {
		err := overrideFromFlags(&req, setFlags, map[string]any{
			"run-id":                 *runID,
			"matrix":                 *matrixJSON,
			"base-rate":              *baseRate,
			"steps":                  *steps,
			"seed":                   *seed,
			"layout-seed":            *layoutSeed,
			"nodes":                  *nodes,
			"connection-probability": *connProb,
		})
		if err != nil {
			return err
		}
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s seed=%d steps=%d\n", summary.RunID, summary.Seed, summary.Steps)
	fmt.Printf("total_events=%d mean_events_per_step=%.6f max_events_per_step=%d steps_in_viral_phase=%d final_phase=%s\n",
		summary.Metrics.TotalEvents,
		summary.Metrics.MeanEventsPerStep,
		summary.Metrics.MaxEventsPerStep,
		summary.Metrics.StepsInViralPhase,
		summary.FinalPhase,
	)
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runMetrics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("metrics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	jsonOut := fs.Bool("json", false, "emit metrics as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "viralsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("metrics requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	metrics, err := client.Metrics(ctx, simapi.RunLookup{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(metrics)
	}

	fmt.Printf("total_events=%d mean_events_per_step=%.6f max_events_per_step=%d steps_in_viral_phase=%d current_phase=%s\n",
		metrics.TotalEvents,
		metrics.MeanEventsPerStep,
		metrics.MaxEventsPerStep,
		metrics.StepsInViralPhase,
		metrics.CurrentPhaseName,
	)
	return nil
}

func runBreakdown(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("breakdown", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	jsonOut := fs.Bool("json", false, "emit breakdown as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "viralsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("breakdown requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	breakdown, err := client.Breakdown(ctx, simapi.RunLookup{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(breakdown)
	}

	for i := range breakdown.Latent {
		fmt.Printf("time=%d latent=%d viral=%d decaying=%d\n", i, breakdown.Latent[i], breakdown.Viral[i], breakdown.Decaying[i])
	}
	return nil
}

func runSeries(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("series", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	limit := fs.Int("limit", 0, "max rows to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit series as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "viralsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("series requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	series, err := client.Series(ctx, simapi.RunLookup{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(series)
	}

	rows := len(series.Times)
	if *limit > 0 && rows > *limit {
		rows = *limit
	}
	for i := 0; i < rows; i++ {
		events := 0
		cumulative := 0
		if i > 0 && i-1 < len(series.Events) {
			events = series.Events[i-1]
			cumulative = series.Cumulative[i-1]
		}
		fmt.Printf("time=%d phase=%s events=%d cumulative_events=%d\n",
			series.Times[i], series.Phases[i], events, cumulative)
	}
	return nil
}

func runGraph(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	showNodes := fs.Bool("nodes", false, "print one line per node with layout position and phase")
	jsonOut := fs.Bool("json", false, "emit graph snapshot as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "viralsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("graph requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	snapshot, err := client.Graph(ctx, simapi.RunLookup{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	fmt.Printf("nodes=%d edges=%d\n", snapshot.Nodes, len(snapshot.Edges))
	if *showNodes {
		for i := 0; i < snapshot.Nodes; i++ {
			fmt.Printf("node=%d x=%.4f y=%.4f phase=%s color=%s\n",
				i, snapshot.Layout[i].X, snapshot.Layout[i].Y, snapshot.Phases[i], snapshot.Colors[i])
		}
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient("", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, simapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s seed=%d base_rate=%.3f steps=%d nodes=%d total_events=%d final_phase=%s\n",
			r.RunID,
			r.CreatedAtUTC,
			r.Seed,
			r.BaseRate,
			r.Steps,
			r.Nodes,
			r.TotalEvents,
			r.FinalPhase,
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from the run index")
	outDir := fs.String("out", exportsDir, "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient("", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, simapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: viralsimctl <init|reset|run|metrics|breakdown|series|graph|runs|export> [flags]", msg)
}
