package storage

import (
	"context"

	"viralsim/internal/model"
)

// Store defines persistence operations for completed simulation runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveSeries(ctx context.Context, runID string, series model.RunSeries) error
	GetSeries(ctx context.Context, runID string) (model.RunSeries, bool, error)
	SaveGraphSnapshot(ctx context.Context, runID string, snapshot model.GraphSnapshot) error
	GetGraphSnapshot(ctx context.Context, runID string) (model.GraphSnapshot, bool, error)
}

// Resetter is implemented by stores that can drop all persisted runs.
type Resetter interface {
	Reset(ctx context.Context) error
}
