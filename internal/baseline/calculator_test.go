package baseline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leakwatch/leakwatch/internal/forecast"
	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(date string) func() time.Time {
	t, _ := time.Parse("2006-01-02", date)
	return func() time.Time { return t }
}

// dailyHistory builds one transaction per day over [start, end).
func dailyHistory(category string, start, end time.Time, daily float64) []model.Transaction {
	var txns []model.Transaction
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		txns = append(txns, model.Transaction{
			ID:       fmt.Sprintf("%s-%s", category, d.Format("2006-01-02")),
			FileID:   "file-1",
			Date:     d,
			Category: category,
			Merchant: "Merchant",
			Amount:   daily,
		})
	}
	return txns
}

func TestCompute_CoversTrailingElevenMonths(t *testing.T) {
	calc := New(forecast.New(), WithClock(fixedClock("2025-08-15")))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	history := dailyHistory("Cafe", start, end, 12.0)

	results, err := calc.Compute(context.Background(), "file-1", history)
	require.NoError(t, err)
	require.Len(t, results, TrailingMonths)

	// Oldest first: 2024-09 through 2025-07; the current month is never
	// a baseline target.
	assert.Equal(t, model.Period{Year: 2024, Month: time.September}, results[0].Run.Period)
	assert.Equal(t, model.Period{Year: 2025, Month: time.July}, results[len(results)-1].Run.Period)

	for _, res := range results {
		assert.Equal(t, model.BaselineCompleted, res.Run.Status)
		require.NotEmpty(t, res.Categories)
		assert.Positive(t, res.Run.Total)
	}
}

func TestCompute_NoLookAhead(t *testing.T) {
	calc := New(forecast.New(), WithClock(fixedClock("2025-08-15")))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	history := dailyHistory("Cafe", start, end, 12.0)

	results, err := calc.Compute(context.Background(), "file-1", history)
	require.NoError(t, err)

	for _, res := range results {
		monthStart := res.Run.Period.Start()
		assert.True(t, res.Run.TrainingCutoff.Before(monthStart),
			"cutoff %v must precede month start %v", res.Run.TrainingCutoff, monthStart)
		for _, cat := range res.Categories {
			assert.True(t, cat.TrainingCutoff.Before(monthStart))
		}
	}
}

func TestCompute_InsufficientHistoryMarksMonth(t *testing.T) {
	calc := New(forecast.New(), WithClock(fixedClock("2025-08-15")))

	// History begins in June 2025: every earlier baseline month has
	// fewer than 30 prior rows.
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	history := dailyHistory("Cafe", start, end, 12.0)

	results, err := calc.Compute(context.Background(), "file-1", history)
	require.NoError(t, err)
	require.Len(t, results, TrailingMonths)

	byPeriod := make(map[string]MonthResult)
	for _, res := range results {
		byPeriod[res.Run.Period.String()] = res
	}

	// Before any data existed: insufficient, no categories, zero total.
	june := byPeriod["2025-06"]
	assert.Equal(t, model.BaselineInsufficientData, june.Run.Status)
	assert.Empty(t, june.Categories)
	assert.Zero(t, june.Run.Total)

	// July has 30 days of June history behind it.
	july := byPeriod["2025-07"]
	assert.Equal(t, model.BaselineCompleted, july.Run.Status)
	assert.NotEmpty(t, july.Categories)
}

func TestCompute_SparseCategorySkippedPerMonth(t *testing.T) {
	calc := New(forecast.New(), WithClock(fixedClock("2025-08-15")))

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	history := dailyHistory("Cafe", start, end, 12.0)

	// A category with only five distinct days, all in July 2025: it can
	// never clear the seven-day gate, but Cafe still gets baselines.
	for i := 0; i < 5; i++ {
		history = append(history, model.Transaction{
			ID:       fmt.Sprintf("rare-%d", i),
			FileID:   "file-1",
			Date:     time.Date(2025, 7, 1+i, 0, 0, 0, 0, time.UTC),
			Category: "Hobbies",
			Merchant: "Merchant",
			Amount:   50,
		})
	}

	results, err := calc.Compute(context.Background(), "file-1", history)
	require.NoError(t, err)

	for _, res := range results {
		for _, cat := range res.Categories {
			assert.NotEqual(t, "Hobbies", cat.Category)
		}
	}
}

func TestCompute_TotalsNeverNegative(t *testing.T) {
	calc := New(forecast.New(), WithClock(fixedClock("2025-08-15")))

	// Refund-dominated history.
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	history := dailyHistory("Cafe", start, end, -9.0)

	results, err := calc.Compute(context.Background(), "file-1", history)
	require.NoError(t, err)

	for _, res := range results {
		assert.GreaterOrEqual(t, res.Run.Total, 0.0)
		for _, cat := range res.Categories {
			assert.GreaterOrEqual(t, cat.Predicted, 0.0)
		}
	}
}

func TestCompute_ContextCancellation(t *testing.T) {
	calc := New(forecast.New(), WithClock(fixedClock("2025-08-15")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := calc.Compute(ctx, "file-1", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
