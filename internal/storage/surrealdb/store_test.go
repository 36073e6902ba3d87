package surrealdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
	tcommon "github.com/bobmcallan/rebal/tests/common"
)

func sampleRecord(portfolio string, score int, at time.Time) *models.AnalysisRecord {
	return &models.AnalysisRecord{
		PortfolioName: portfolio,
		Fingerprint:   "abc123",
		HoldingCount:  2,
		TotalValue:    "1000.50",
		Analysis: &models.PortfolioAnalysis{
			DiversificationScore: score,
			RiskLevel:            models.RiskHigh,
			ConcentrationRisks: []models.Finding{
				{Code: models.FindingInsufficientHoldings, HoldingCount: 2},
			},
			Recommendations: []models.Recommendation{
				{Symbol: "A", CurrentPercent: 60, TargetPercent: 20, Action: models.ActionDecrease,
					Reason: models.ReasonOverConcentration, Priority: models.PriorityHigh},
			},
			HoldingCount: 2,
			TotalValue:   decimal.RequireFromString("1000.50"),
			HHI:          0.52,
			MaxWeight:    0.6,
		},
		CreatedAt: at,
	}
}

func TestStore_SaveAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	store, err := NewStore(ctx, db, testLogger(), 0)
	require.NoError(t, err)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAnalysis(ctx, sampleRecord("growth", 48, base)))
	require.NoError(t, store.SaveAnalysis(ctx, sampleRecord("growth", 60, base.Add(time.Hour))))
	require.NoError(t, store.SaveAnalysis(ctx, sampleRecord("income", 90, base)))

	records, err := store.ListAnalyses(ctx, "growth", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 60, records[0].Analysis.DiversificationScore)
	assert.Equal(t, 48, records[1].Analysis.DiversificationScore)
	assert.Equal(t, "1000.50", records[0].TotalValue)
	assert.True(t, records[0].Analysis.TotalValue.Equal(decimal.RequireFromString("1000.50")))
	require.Len(t, records[0].Analysis.Recommendations, 1)
	assert.Equal(t, models.ReasonOverConcentration, records[0].Analysis.Recommendations[0].Reason)

	latest, err := store.GetLatest(ctx, "income")
	require.NoError(t, err)
	assert.Equal(t, 90, latest.Analysis.DiversificationScore)

	names, err := store.ListPortfolios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"growth", "income"}, names)
}

func TestStore_GetLatestNotFound(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	store, err := NewStore(ctx, db, testLogger(), 0)
	require.NoError(t, err)

	_, err = store.GetLatest(ctx, "missing")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestStore_Prune(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	store, err := NewStore(ctx, db, testLogger(), 2)
	require.NoError(t, err)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, store.SaveAnalysis(ctx, sampleRecord("p", i, base.Add(time.Duration(i)*time.Minute))))
	}

	records, err := store.ListAnalyses(ctx, "p", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 3, records[0].Analysis.DiversificationScore)
	assert.Equal(t, 2, records[1].Analysis.DiversificationScore)
}

func TestConnect(t *testing.T) {
	sc := tcommon.StartSurrealDB(t)
	ctx := context.Background()

	store, err := Connect(ctx, testLogger(), common.StorageConfig{
		Address:   sc.Address(),
		Namespace: "rebal_test",
		Database:  "connect",
		Username:  "root",
		Password:  "root",
	}, 10)
	require.NoError(t, err)
	defer store.Close()

	rec := sampleRecord("core", 75, time.Time{})
	require.NoError(t, store.SaveAnalysis(ctx, rec))
	assert.NotEmpty(t, rec.ID)
}
