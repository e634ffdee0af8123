package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"viralsim/internal/model"
)

const runIndexFile = "run_index.json"

type RunConfig struct {
	RunID                 string      `json:"run_id"`
	Seed                  int64       `json:"seed"`
	LayoutSeed            int64       `json:"layout_seed"`
	BaseRate              float64     `json:"base_rate"`
	Steps                 int         `json:"steps"`
	Nodes                 int         `json:"nodes"`
	ConnectionProbability float64     `json:"connection_probability"`
	Matrix                [][]float64 `json:"matrix"`
	CreatedAtUTC          string      `json:"created_at_utc"`
}

type RunArtifacts struct {
	Config    RunConfig            `json:"config"`
	Metrics   model.RunMetrics     `json:"metrics"`
	Breakdown model.PhaseBreakdown `json:"breakdown"`
	Series    model.RunSeries      `json:"series"`
	Graph     model.GraphSnapshot  `json:"graph"`
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Seed         int64   `json:"seed"`
	BaseRate     float64 `json:"base_rate"`
	Steps        int     `json:"steps"`
	Nodes        int     `json:"nodes"`
	TotalEvents  int     `json:"total_events"`
	FinalPhase   string  `json:"final_phase"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "metrics.json"), artifacts.Metrics); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "breakdown.json"), artifacts.Breakdown); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "graph.json"), artifacts.Graph); err != nil {
		return "", err
	}
	if err := writeSeriesCSV(runDir, artifacts.Series); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "series.json"), artifacts.Series); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "metrics.json", "breakdown.json", "graph.json", "series.json", "series.csv"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = strings.TrimSpace(runID)
	}
	if cfg.RunID != strings.TrimSpace(runID) {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, strings.TrimSpace(runID))
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, "config.json"), cfg)
}

func ReadRunMetrics(baseDir, runID string) (model.RunMetrics, bool, error) {
	path := filepath.Join(baseDir, runID, "metrics.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunMetrics{}, false, nil
		}
		return model.RunMetrics{}, false, err
	}

	var metrics model.RunMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return model.RunMetrics{}, false, err
	}
	return metrics, true, nil
}

func ReadPhaseBreakdown(baseDir, runID string) (model.PhaseBreakdown, bool, error) {
	path := filepath.Join(baseDir, runID, "breakdown.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.PhaseBreakdown{}, false, nil
		}
		return model.PhaseBreakdown{}, false, err
	}

	var breakdown model.PhaseBreakdown
	if err := json.Unmarshal(data, &breakdown); err != nil {
		return model.PhaseBreakdown{}, false, err
	}
	return breakdown, true, nil
}

func ReadRunSeries(baseDir, runID string) (model.RunSeries, bool, error) {
	path := filepath.Join(baseDir, runID, "series.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunSeries{}, false, nil
		}
		return model.RunSeries{}, false, err
	}

	var series model.RunSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return model.RunSeries{}, false, err
	}
	return series, true, nil
}

func ReadGraphSnapshot(baseDir, runID string) (model.GraphSnapshot, bool, error) {
	path := filepath.Join(baseDir, runID, "graph.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.GraphSnapshot{}, false, nil
		}
		return model.GraphSnapshot{}, false, err
	}

	var snapshot model.GraphSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.GraphSnapshot{}, false, err
	}
	return snapshot, true, nil
}

// writeSeriesCSV flattens the four parallel histories into one row per time
// index. The initial entry has no event counts, so those columns stay empty.
func writeSeriesCSV(runDir string, series model.RunSeries) error {
	path := filepath.Join(runDir, "series.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"time", "phase", "phase_name", "events", "cumulative_events"}); err != nil {
		return err
	}
	for i, ti := range series.Times {
		phase := ""
		phaseName := ""
		if i < len(series.Phases) {
			phase = strconv.Itoa(int(series.Phases[i]))
			phaseName = series.Phases[i].String()
		}
		events := ""
		cumulative := ""
		if i > 0 && i-1 < len(series.Events) {
			events = strconv.Itoa(series.Events[i-1])
			cumulative = strconv.Itoa(series.Cumulative[i-1])
		}
		if err := writer.Write([]string{strconv.Itoa(ti), phase, phaseName, events, cumulative}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
