package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fees "library-fees/internal/fees/domain"
)

func TestReportRunRepository_SaveGetList(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRunRepository()

	first := &fees.ReportRun{ID: "run-1", BranchID: "main", Rows: []fees.FeeReportRow{{PatronID: "P1", LateFees: decimal.RequireFromString("1")}}}
	second := &fees.ReportRun{ID: "run-2", BranchID: "east"}
	third := &fees.ReportRun{ID: "run-3", BranchID: "main"}
	for _, run := range []*fees.ReportRun{first, second, third} {
		require.NoError(t, repo.Save(ctx, run))
	}

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)
	got.Rows[0].PatronID = "mutated"

	again, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "P1", again.Rows[0].PatronID)

	all, err := repo.ListRecent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-3", all[0].ID)
	assert.Nil(t, all[2].Rows)

	mainRuns, err := repo.ListRecent(ctx, "main", 1)
	require.NoError(t, err)
	require.Len(t, mainRuns, 1)
	assert.Equal(t, "run-3", mainRuns[0].ID)
}

func TestReportRunRepository_Errors(t *testing.T) {
	repo := NewReportRunRepository()

	assert.True(t, errors.Is(repo.Save(context.Background(), nil), fees.ErrNilReportRun))
	_, err := repo.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, fees.ErrReportRunNotFound))
}

func TestReportCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache := NewReportCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "k", "run-1", time.Minute))
	require.NoError(t, cache.Set(ctx, "forever", "run-2", 0))

	value, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "run-1", value)

	now = now.Add(time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = cache.Get(ctx, "forever")
	assert.True(t, ok)
}
