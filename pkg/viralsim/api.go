package viralsim

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"viralsim/internal/engine"
	"viralsim/internal/model"
	"viralsim/internal/stats"
	"viralsim/internal/storage"
)

const (
	defaultResultsDir = "results"
	defaultExportsDir = "exports"
	defaultDBPath     = "viralsim.db"

	defaultBaseRate              = 5.0
	defaultSteps                 = 50
	defaultNodes                 = 30
	defaultConnectionProbability = 0.15
	defaultLayoutSeed            = 42
)

type Options struct {
	StoreKind  string
	DBPath     string
	ResultsDir string
	ExportsDir string
}

// Client is the run-oriented facade over the simulation engine, the results
// store, and the per-run artifacts directory.
type Client struct {
	store      storage.Store
	storeReady bool

	resultsDir string
	exportsDir string
}

type RunRequest struct {
	RunID                 string
	Matrix                [][]float64
	BaseRate              float64
	Steps                 int
	Seed                  int64
	LayoutSeed            int64
	Nodes                 int
	ConnectionProbability float64
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Seed         int64
	Steps        int
	TotalEvents  int
	FinalPhase   string
	Metrics      model.RunMetrics
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Seed         int64
	BaseRate     float64
	Steps        int
	Nodes        int
	TotalEvents  int
	FinalPhase   string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type RunLookup struct {
	RunID  string
	Latest bool
}

// DefaultMatrix returns the stock three-phase transition matrix: sticky
// Latent and Viral phases, a Decaying phase that mostly falls back to Latent.
func DefaultMatrix() [][]float64 {
	return [][]float64{
		{0.7, 0.25, 0.05},
		{0.1, 0.7, 0.2},
		{0.3, 0.1, 0.6},
	}
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	resultsDir := opts.ResultsDir
	if resultsDir == "" {
		resultsDir = defaultResultsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		resultsDir: resultsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

// Reset drops every persisted run from the store. Artifacts on disk are
// left untouched.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	resetter, ok := c.store.(storage.Resetter)
	if !ok {
		return fmt.Errorf("store does not support reset")
	}
	return resetter.Reset(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if req.Matrix == nil {
		req.Matrix = DefaultMatrix()
	}
	if req.BaseRate == 0 {
		req.BaseRate = defaultBaseRate
	}
	if req.Steps <= 0 {
		req.Steps = defaultSteps
	}
	if req.Nodes <= 0 {
		req.Nodes = defaultNodes
	}
	if req.ConnectionProbability == 0 {
		req.ConnectionProbability = defaultConnectionProbability
	}
	if req.LayoutSeed == 0 {
		req.LayoutSeed = defaultLayoutSeed
	}

	eng, err := engine.New(engine.Config{
		Matrix:                req.Matrix,
		BaseRate:              req.BaseRate,
		Nodes:                 req.Nodes,
		ConnectionProbability: req.ConnectionProbability,
		LayoutSeed:            req.LayoutSeed,
		Seed:                  req.Seed,
	})
	if err != nil {
		return RunSummary{}, err
	}

	eng.RunSteps(req.Steps)
	metrics := eng.Metrics()
	now := time.Now().UTC()

	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}
	record := model.RunRecord{
		VersionedRecord:       stampVersion(),
		RunID:                 req.RunID,
		CreatedAtUTC:          now.Format(time.RFC3339Nano),
		Seed:                  eng.Seed(),
		LayoutSeed:            req.LayoutSeed,
		BaseRate:              eng.BaseRate(),
		Steps:                 req.Steps,
		Nodes:                 req.Nodes,
		ConnectionProbability: req.ConnectionProbability,
		Matrix:                eng.Matrix(),
		Metrics:               metrics,
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}
	series := eng.Series()
	series.VersionedRecord = stampVersion()
	if err := c.store.SaveSeries(ctx, req.RunID, series); err != nil {
		return RunSummary{}, err
	}
	snapshot := eng.Graph().Snapshot()
	snapshot.VersionedRecord = stampVersion()
	if err := c.store.SaveGraphSnapshot(ctx, req.RunID, snapshot); err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.resultsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:                 req.RunID,
			Seed:                  eng.Seed(),
			LayoutSeed:            req.LayoutSeed,
			BaseRate:              eng.BaseRate(),
			Steps:                 req.Steps,
			Nodes:                 req.Nodes,
			ConnectionProbability: req.ConnectionProbability,
			Matrix:                eng.Matrix(),
			CreatedAtUTC:          record.CreatedAtUTC,
		},
		Metrics:   metrics,
		Breakdown: eng.PhaseBreakdown(),
		Series:    series,
		Graph:     snapshot,
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.resultsDir, stats.RunIndexEntry{
		RunID:        req.RunID,
		Seed:         eng.Seed(),
		BaseRate:     eng.BaseRate(),
		Steps:        req.Steps,
		Nodes:        req.Nodes,
		TotalEvents:  metrics.TotalEvents,
		FinalPhase:   metrics.CurrentPhaseName,
		CreatedAtUTC: record.CreatedAtUTC,
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:        req.RunID,
		ArtifactsDir: filepath.Clean(runDir),
		Seed:         eng.Seed(),
		Steps:        req.Steps,
		TotalEvents:  metrics.TotalEvents,
		FinalPhase:   metrics.CurrentPhaseName,
		Metrics:      metrics,
	}, nil
}

func (c *Client) Metrics(ctx context.Context, req RunLookup) (model.RunMetrics, error) {
	runID, err := c.resolveRunID(req)
	if err != nil {
		return model.RunMetrics{}, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return model.RunMetrics{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunMetrics{}, err
	}
	if ok {
		return run.Metrics, nil
	}

	metrics, ok, err := stats.ReadRunMetrics(c.resultsDir, runID)
	if err != nil {
		return model.RunMetrics{}, err
	}
	if !ok {
		return model.RunMetrics{}, fmt.Errorf("metrics not found for run id: %s", runID)
	}
	return metrics, nil
}

func (c *Client) Breakdown(_ context.Context, req RunLookup) (model.PhaseBreakdown, error) {
	runID, err := c.resolveRunID(req)
	if err != nil {
		return model.PhaseBreakdown{}, err
	}

	breakdown, ok, err := stats.ReadPhaseBreakdown(c.resultsDir, runID)
	if err != nil {
		return model.PhaseBreakdown{}, err
	}
	if !ok {
		return model.PhaseBreakdown{}, fmt.Errorf("breakdown not found for run id: %s", runID)
	}
	return breakdown, nil
}

func (c *Client) Series(ctx context.Context, req RunLookup) (model.RunSeries, error) {
	runID, err := c.resolveRunID(req)
	if err != nil {
		return model.RunSeries{}, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return model.RunSeries{}, err
	}
	series, ok, err := c.store.GetSeries(ctx, runID)
	if err != nil {
		return model.RunSeries{}, err
	}
	if ok {
		return series, nil
	}

	series, ok, err = stats.ReadRunSeries(c.resultsDir, runID)
	if err != nil {
		return model.RunSeries{}, err
	}
	if !ok {
		return model.RunSeries{}, fmt.Errorf("series not found for run id: %s", runID)
	}
	return series, nil
}

func (c *Client) Graph(ctx context.Context, req RunLookup) (model.GraphSnapshot, error) {
	runID, err := c.resolveRunID(req)
	if err != nil {
		return model.GraphSnapshot{}, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return model.GraphSnapshot{}, err
	}
	snapshot, ok, err := c.store.GetGraphSnapshot(ctx, runID)
	if err != nil {
		return model.GraphSnapshot{}, err
	}
	if ok {
		return snapshot, nil
	}

	snapshot, ok, err = stats.ReadGraphSnapshot(c.resultsDir, runID)
	if err != nil {
		return model.GraphSnapshot{}, err
	}
	if !ok {
		return model.GraphSnapshot{}, fmt.Errorf("graph not found for run id: %s", runID)
	}
	return snapshot, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.resultsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Seed:         e.Seed,
			BaseRate:     e.BaseRate,
			Steps:        e.Steps,
			Nodes:        e.Nodes,
			TotalEvents:  e.TotalEvents,
			FinalPhase:   e.FinalPhase,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.resultsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.resultsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.storeReady {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.storeReady = true
	return nil
}

func (c *Client) resolveRunID(req RunLookup) (string, error) {
	if req.RunID != "" && req.Latest {
		return "", errors.New("use either run id or latest")
	}
	if req.Latest {
		entries, err := stats.ListRunIndex(c.resultsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if req.RunID == "" {
		return "", errors.New("run id or latest is required")
	}
	return req.RunID, nil
}

func stampVersion() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
}
