package ports

import (
	"context"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// RunStore caches finished runs so that clients of the asynchronous surfaces
// (SSE, MCP) can fetch the result again by run ID.
// It is an ephemeral cache, not a system of record.
type RunStore interface {
	// Save stores the result under result.RunID.
	Save(ctx context.Context, result *domain.RunResult) error

	// Load retrieves a run.
	// Returns domain.ErrRunNotFound if the run does not exist or has expired.
	Load(ctx context.Context, runID string) (*domain.RunResult, error)

	// Delete removes a run. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of the runs currently held.
	List(ctx context.Context) ([]string, error)
}
