package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmazer/wayfarer/pkg/domain"
)

// RunRunStoreContract runs a suite of tests to verify that a RunStore
// implementation adheres to the defined interface contract.
func RunRunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	newResult := func(id string) *domain.RunResult {
		return &domain.RunResult{
			RunID:          id,
			CombinedResult: "# Trip plan\n\nlodging: Hotel Sea View",
			ExecutionSummary: &domain.ExecutionSummary{
				RunID:          id,
				TotalBudget:    30000,
				Currency:       "₹",
				TotalSpent:     21000,
				ExecutionOrder: []domain.ToolName{domain.ToolItinerary, domain.ToolTransport},
				CompletedTools: []domain.ToolName{domain.ToolItinerary, domain.ToolTransport},
				Allocation: map[domain.ToolName]float64{
					domain.ToolItinerary: 12000,
					domain.ToolTransport: 18000,
				},
			},
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		result := newResult(runID)

		err := store.Save(ctx, result)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, result.CombinedResult, loaded.CombinedResult)
		require.NotNil(t, loaded.ExecutionSummary)
		assert.Equal(t, "₹", loaded.ExecutionSummary.Currency)
		assert.Equal(t, result.ExecutionSummary.ExecutionOrder, loaded.ExecutionSummary.ExecutionOrder)
		assert.InDelta(t, 18000, loaded.ExecutionSummary.Allocation[domain.ToolTransport], 1e-9)
		assert.True(t, result.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Loaded copy is isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		loaded.CombinedResult = "mutated"

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.CombinedResult)
	})

	t.Run("Failed run round-trips", func(t *testing.T) {
		id := runID + "-failed"
		defer func() { _ = store.Delete(ctx, id) }()

		err := store.Save(ctx, &domain.RunResult{RunID: id, Error: "query is empty", ExecutionTimeSeconds: 0.01})
		require.NoError(t, err)

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.True(t, loaded.Failed())
		assert.Nil(t, loaded.ExecutionSummary)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, newResult(runID))
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")

		assert.NoError(t, store.Delete(ctx, runID), "Deleting twice should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, newResult(id1))
		_ = store.Save(ctx, newResult(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
