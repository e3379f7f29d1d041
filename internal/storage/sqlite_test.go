package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Helper function to create test transactions.
func createTestTransactions(fileID string, count int) []model.Transaction {
	txns := make([]model.Transaction, count)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		txns[i] = model.Transaction{
			ID:       fmt.Sprintf("txn-%s-%03d", fileID, i+1),
			FileID:   fileID,
			Date:     base.AddDate(0, 0, i),
			Category: "Cafe",
			Merchant: fmt.Sprintf("Merchant %d", (i%3)+1),
			Amount:   float64(i+1) * 10.50,
		}
		txns[i].Hash = txns[i].GenerateHash()
	}
	return txns
}

func TestSaveTransactions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txns := createTestTransactions("file-1", 3)
	require.NoError(t, store.SaveTransactions(ctx, txns))

	count, err := store.GetTransactionCountByFile(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Re-importing the same rows must not duplicate them.
	require.NoError(t, store.SaveTransactions(ctx, txns))
	count, err = store.GetTransactionCountByFile(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSaveTransactions_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveTransactions(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, store.SaveTransactions(ctx, []model.Transaction{}), ErrEmptySlice)
	assert.ErrorIs(t, store.SaveTransactions(ctx, []model.Transaction{{ID: "x"}}), ErrInvalidTransaction)
}

func TestGetTransactionsByFile(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, createTestTransactions("file-1", 5)))
	require.NoError(t, store.SaveTransactions(ctx, createTestTransactions("file-2", 2)))

	txns, err := store.GetTransactionsByFile(ctx, "file-1", service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 5)

	// Ordered by date ascending.
	for i := 1; i < len(txns); i++ {
		assert.True(t, !txns[i].Date.Before(txns[i-1].Date))
	}
	for _, txn := range txns {
		assert.Equal(t, "file-1", txn.FileID)
	}
}

func TestGetTransactionsByFile_Filter(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, createTestTransactions("file-1", 5)))

	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	txns, err := store.GetTransactionsByFile(ctx, "file-1", service.TransactionFilter{
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)
	assert.Len(t, txns, 2)

	txns, err = store.GetTransactionsByFile(ctx, "file-1", service.TransactionFilter{Category: "Groceries"})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestUpsertCategoryForecast(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	period := model.Period{Year: 2025, Month: time.September}

	forecast := &model.CategoryForecast{
		FileID:     "file-1",
		Category:   "Cafe",
		Period:     period,
		Predicted:  320,
		LowerBound: 250,
		UpperBound: 400,
	}
	require.NoError(t, store.UpsertCategoryForecast(ctx, forecast))

	// Second write for the same key replaces, never duplicates.
	forecast.Predicted = 340
	require.NoError(t, store.UpsertCategoryForecast(ctx, forecast))

	got, err := store.GetCategoryForecasts(ctx, "file-1", period)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 340.0, got[0].Predicted)
	assert.Equal(t, 250.0, got[0].LowerBound)
	assert.Equal(t, "Cafe", got[0].Category)
}

func TestUpsertBaselineMonthAndRun(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	period := model.Period{Year: 2025, Month: time.May}
	cutoff := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)

	baseline := &model.BaselineMonth{
		FileID:         "file-1",
		Category:       "Cafe",
		Period:         period,
		Predicted:      200,
		LowerBound:     150,
		UpperBound:     260,
		TrainingCutoff: cutoff,
		DataPoints:     90,
	}
	require.NoError(t, store.UpsertBaselineMonth(ctx, baseline))
	baseline.Predicted = 210
	require.NoError(t, store.UpsertBaselineMonth(ctx, baseline))

	months, err := store.GetBaselineMonths(ctx, "file-1", period)
	require.NoError(t, err)
	require.Len(t, months, 1)
	assert.Equal(t, 210.0, months[0].Predicted)
	assert.Equal(t, 90, months[0].DataPoints)
	assert.True(t, months[0].TrainingCutoff.Equal(cutoff))

	run := &model.BaselineRun{
		FileID:          "file-1",
		Period:          period,
		Status:          model.BaselineCompleted,
		Total:           210,
		CategoriesCount: 1,
		TrainingCutoff:  cutoff,
	}
	require.NoError(t, store.UpsertBaselineRun(ctx, run))

	insufficient := &model.BaselineRun{
		FileID:         "file-1",
		Period:         model.Period{Year: 2024, Month: time.December},
		Status:         model.BaselineInsufficientData,
		TrainingCutoff: time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.UpsertBaselineRun(ctx, insufficient))

	runs, err := store.GetBaselineRuns(ctx, "file-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Oldest first.
	assert.Equal(t, model.BaselineInsufficientData, runs[0].Status)
	assert.Equal(t, model.BaselineCompleted, runs[1].Status)
	assert.Equal(t, 210.0, runs[1].Total)
}

func TestLeakRecordRoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	period := model.Period{Year: 2025, Month: time.July}

	record := &model.LeakRecord{
		FileID:     "file-1",
		Period:     period,
		Actual:     520,
		Predicted:  480,
		LeakAmount: 40,
		Breakdown: []model.CategoryLeak{
			{Category: "Cafe", Actual: 120, Baseline: 100, LeakAmount: 20, LeakPercentage: 20},
			{Category: "Groceries", Actual: 400, Baseline: 380, LeakAmount: 20, LeakPercentage: 5.2631578947, BudgetApplied: true},
		},
	}
	require.NoError(t, store.UpsertLeakRecord(ctx, record))

	record.LeakAmount = 45
	require.NoError(t, store.UpsertLeakRecord(ctx, record))

	got, err := store.GetLeakRecord(ctx, "file-1", period)
	require.NoError(t, err)
	assert.Equal(t, 45.0, got.LeakAmount)
	require.Len(t, got.Breakdown, 2)
	assert.Equal(t, "Cafe", got.Breakdown[0].Category)
	assert.True(t, got.Breakdown[1].BudgetApplied)
}

func TestGetLeakRecord_NotFound(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetLeakRecord(context.Background(), "file-1", model.Period{Year: 2025, Month: time.July})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDoojoThresholdRoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	period := model.Period{Year: 2025, Month: time.July}

	real := 260.0
	exceeded := true
	threshold := &model.DoojoThreshold{
		FileID:           "file-1",
		Category:         "Cafe",
		Period:           period,
		MinAmount:        100,
		MaxAmount:        300,
		AvgAmount:        200,
		CurrentThreshold: 220,
		RealAmount:       &real,
		Result:           &exceeded,
		MostSpent: &model.MerchantSpend{
			Merchant: "Fancy Roasters",
			Amount:   42,
			Date:     time.Date(2025, 7, 9, 10, 0, 0, 0, time.UTC),
		},
		MostFrequent: &model.MerchantFrequency{
			Merchant:    "Corner Cafe",
			Count:       9,
			TotalAmount: 45,
		},
	}
	require.NoError(t, store.UpsertDoojoThreshold(ctx, threshold))

	got, err := store.GetDoojoThresholds(ctx, "file-1", period)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, 220.0, got[0].CurrentThreshold)
	require.NotNil(t, got[0].RealAmount)
	assert.Equal(t, 260.0, *got[0].RealAmount)
	require.NotNil(t, got[0].Result)
	assert.True(t, *got[0].Result)
	require.NotNil(t, got[0].MostSpent)
	assert.Equal(t, "Fancy Roasters", got[0].MostSpent.Merchant)
	require.NotNil(t, got[0].MostFrequent)
	assert.Equal(t, 9, got[0].MostFrequent.Count)
}

func TestDoojoThreshold_NullableFieldsStayNil(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	period := model.Period{Year: 2025, Month: time.August}

	threshold := &model.DoojoThreshold{
		FileID:           "file-1",
		Category:         "Cafe",
		Period:           period,
		CurrentThreshold: 220,
	}
	require.NoError(t, store.UpsertDoojoThreshold(ctx, threshold))

	got, err := store.GetDoojoThresholds(ctx, "file-1", period)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].RealAmount)
	assert.Nil(t, got[0].Result)
	assert.Nil(t, got[0].MostSpent)
	assert.Nil(t, got[0].MostFrequent)
}

func TestBudgets(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	period := model.Period{Year: 2025, Month: time.August}

	budget := &model.Budget{FileID: "file-1", Category: "Cafe", Period: period, Amount: 150}
	require.NoError(t, store.SaveBudget(ctx, budget))

	budget.Amount = 180
	require.NoError(t, store.SaveBudget(ctx, budget))

	budgets, err := store.GetBudgets(ctx, "file-1", period)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, 180.0, budgets[0].Amount)
}

func TestJobLifecycle(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	job := &model.AnalysisJob{
		JobID:  "job-1",
		FileID: "file-1",
		Status: model.JobPending,
	}
	require.NoError(t, store.CreateJob(ctx, job))

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, got.Status)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, store.CompleteJob(ctx, "job-1", model.JobCompleted, "", map[string]any{
		"forecast_categories": 4,
	}))

	// Background phase appends diagnostics without touching status.
	require.NoError(t, store.AppendJobMetadata(ctx, "job-1", map[string]any{
		"baseline_months_calculated": 11,
	}))

	got, err = store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.EqualValues(t, 4, got.Metadata["forecast_categories"])
	assert.EqualValues(t, 11, got.Metadata["baseline_months_calculated"])
}

func TestJobLifecycle_Failed(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	job := &model.AnalysisJob{JobID: "job-2", FileID: "file-1", Status: model.JobPending}
	require.NoError(t, store.CreateJob(ctx, job))
	require.NoError(t, store.CompleteJob(ctx, "job-2", model.JobFailed, "no transactions imported", nil))

	got, err := store.GetJob(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, "no transactions imported", got.ErrorMessage)
}

func TestCompleteJob_NotFound(t *testing.T) {
	store := createTestStorage(t)

	err := store.CompleteJob(context.Background(), "missing", model.JobCompleted, "", nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetLatestJob(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	older := &model.AnalysisJob{
		JobID:     "job-old",
		FileID:    "file-1",
		Status:    model.JobCompleted,
		CreatedAt: time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	newer := &model.AnalysisJob{
		JobID:     "job-new",
		FileID:    "file-1",
		Status:    model.JobPending,
		CreatedAt: time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateJob(ctx, older))
	require.NoError(t, store.CreateJob(ctx, newer))

	got, err := store.GetLatestJob(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, "job-new", got.JobID)

	_, err = store.GetLatestJob(ctx, "file-other")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
