package store

import (
	"context"

	"github.com/me/rfdiff/pkg/model"
)

// Store defines the persistence layer for run records.
type Store interface {
	CreateRun(ctx context.Context, run *model.Run) error
	// GetRun returns nil, nil when no run has the given ID.
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error)
	UpdateRun(ctx context.Context, run *model.Run) error
	// FindActiveRun returns the newest PENDING or RUNNING run named runName,
	// or nil, nil when there is none.
	FindActiveRun(ctx context.Context, runName string) (*model.Run, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
