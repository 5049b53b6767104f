// Package store defines storage for completed run results. A run is keyed
// by its UUID; a result only lands in the store once the replay finished,
// so a missing key means the run is still queued or in flight.
package store

import (
	"context"
	"errors"
	"fmt"

	"paperduel/internal/domain"
)

// ErrNotFound is returned by Get when no result exists for the run ID.
var ErrNotFound = errors.New("run not found")

// RunStore persists and retrieves completed run results.
type RunStore interface {
	// Put inserts or replaces the result for its run ID.
	Put(ctx context.Context, result *domain.RunResult) error

	// Get retrieves the result for a run ID, or ErrNotFound.
	Get(ctx context.Context, runID string) (*domain.RunResult, error)

	// List returns the IDs of all stored runs, sorted ascending.
	List(ctx context.Context) ([]string, error)
}

// Open constructs a RunStore for the configured backend: "memory", "file"
// (JSON document per run under runsDir), or "sqlite".
func Open(backend, runsDir, sqlitePath string) (RunStore, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(runsDir)
	case "sqlite":
		return NewSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown run store backend %q", backend)
	}
}
