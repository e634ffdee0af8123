package storage

import (
	"context"
	"sync"

	"viralsim/internal/model"
)

type MemoryStore struct {
	mu        sync.RWMutex
	runs      map[string]model.RunRecord
	series    map[string]model.RunSeries
	snapshots map[string]model.GraphSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]model.RunRecord)
	s.series = make(map[string]model.RunSeries)
	s.snapshots = make(map[string]model.GraphSnapshot)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.Matrix = copyMatrix(run.Matrix)
	s.runs[run.RunID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	run.Matrix = copyMatrix(run.Matrix)
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		run.Matrix = copyMatrix(run.Matrix)
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *MemoryStore) SaveSeries(_ context.Context, runID string, series model.RunSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series[runID] = copySeries(series)
	return nil
}

func (s *MemoryStore) GetSeries(_ context.Context, runID string) (model.RunSeries, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.series[runID]
	if !ok {
		return model.RunSeries{}, false, nil
	}
	return copySeries(series), true, nil
}

func (s *MemoryStore) SaveGraphSnapshot(_ context.Context, runID string, snapshot model.GraphSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[runID] = copySnapshot(snapshot)
	return nil
}

func (s *MemoryStore) GetGraphSnapshot(_ context.Context, runID string) (model.GraphSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[runID]
	if !ok {
		return model.GraphSnapshot{}, false, nil
	}
	return copySnapshot(snapshot), true, nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]model.RunRecord)
	s.series = make(map[string]model.RunSeries)
	s.snapshots = make(map[string]model.GraphSnapshot)
	return nil
}

func copyMatrix(matrix [][]float64) [][]float64 {
	if matrix == nil {
		return nil
	}
	copied := make([][]float64, len(matrix))
	for i, row := range matrix {
		copied[i] = append([]float64(nil), row...)
	}
	return copied
}

func copySeries(series model.RunSeries) model.RunSeries {
	return model.RunSeries{
		VersionedRecord: series.VersionedRecord,
		Times:           append([]int(nil), series.Times...),
		Events:          append([]int(nil), series.Events...),
		Phases:          append([]model.Phase(nil), series.Phases...),
		Cumulative:      append([]int(nil), series.Cumulative...),
	}
}

func copySnapshot(snapshot model.GraphSnapshot) model.GraphSnapshot {
	return model.GraphSnapshot{
		VersionedRecord: snapshot.VersionedRecord,
		Nodes:           snapshot.Nodes,
		Edges:           append([][2]int(nil), snapshot.Edges...),
		Layout:          append([]model.NodePosition(nil), snapshot.Layout...),
		Phases:          append([]model.Phase(nil), snapshot.Phases...),
		Colors:          append([]string(nil), snapshot.Colors...),
	}
}
