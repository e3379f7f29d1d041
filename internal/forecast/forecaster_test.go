package forecast

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecFor(t *testing.T) {
	classes := DefaultCategoryClasses()

	tests := []struct {
		name        string
		category    string
		wantMode    SeasonalityMode
		wantWeekly  bool
		wantMonthly bool
	}{
		{
			name:       "dining uses additive weekly seasonality",
			category:   "Food & Dining",
			wantMode:   Additive,
			wantWeekly: true,
		},
		{
			name:       "cafe uses additive weekly seasonality",
			category:   "Cafe",
			wantMode:   Additive,
			wantWeekly: true,
		},
		{
			name:        "transport adds a monthly component",
			category:    "Transportation",
			wantMode:    Additive,
			wantMonthly: true,
		},
		{
			name:       "unknown category falls back to multiplicative weekly",
			category:   "Hobbies",
			wantMode:   Multiplicative,
			wantWeekly: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := classes.SpecFor(tt.category)
			assert.Equal(t, tt.wantMode, spec.Mode)
			assert.Equal(t, tt.wantWeekly, spec.WeeklySeasonality)
			assert.Equal(t, tt.wantMonthly, spec.MonthlySeasonality)
		})
	}
}

// steadySpending builds n days of transactions with a constant daily amount.
func steadySpending(category string, start time.Time, days int, daily float64) []model.Transaction {
	var txns []model.Transaction
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		txns = append(txns, model.Transaction{
			ID:       fmt.Sprintf("%s-%d", category, i),
			FileID:   "file-1",
			Date:     d,
			Category: category,
			Merchant: "Merchant",
			Amount:   daily,
		})
	}
	return txns
}

func TestForecast_SteadySpending(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	target := model.Period{Year: 2025, Month: time.April}

	tests := []struct {
		name     string
		category string
	}{
		{name: "additive weekly class", category: "Cafe"},
		{name: "additive monthly class", category: "Transportation"},
		{name: "multiplicative default class", category: "Hobbies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns := steadySpending(tt.category, start, 90, 10.0)

			result, err := New().Forecast(txns, tt.category, target)
			require.NoError(t, err)

			// 30 days in April at ~10/day.
			assert.InDelta(t, 300.0, result.Predicted, 60.0)
			assert.GreaterOrEqual(t, result.Predicted, 0.0)
			assert.GreaterOrEqual(t, result.LowerBound, 0.0)
			assert.GreaterOrEqual(t, result.UpperBound, result.Predicted)
		})
	}
}

func TestForecast_InsufficientData(t *testing.T) {
	target := model.Period{Year: 2025, Month: time.April}

	// A single day of data cannot be modeled; the category must be
	// skipped, not defaulted to zero.
	txns := []model.Transaction{
		txn("2025-03-01", "Cafe", 5.00),
		txn("2025-03-01", "Cafe", 2.50),
	}

	result, err := New().Forecast(txns, "Cafe", target)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInsufficientData))
}

func TestForecast_NegativeTotalsClamped(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	target := model.Period{Year: 2025, Month: time.April}

	// A refund-dominated history drives the raw model output negative.
	txns := steadySpending("Cafe", start, 60, -8.0)

	result, err := New().Forecast(txns, "Cafe", target)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Predicted)
	assert.GreaterOrEqual(t, result.LowerBound, 0.0)
}

func TestForecast_WeeklySeasonalityTracked(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // a Monday
	target := model.Period{Year: 2025, Month: time.April}

	// Weekends spend 30, weekdays 5.
	var txns []model.Transaction
	for i := 0; i < 84; i++ {
		d := start.AddDate(0, 0, i)
		amount := 5.0
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			amount = 30.0
		}
		txns = append(txns, model.Transaction{
			ID:       fmt.Sprintf("cafe-%d", i),
			FileID:   "file-1",
			Date:     d,
			Category: "Cafe",
			Merchant: "Merchant",
			Amount:   amount,
		})
	}

	result, err := New().Forecast(txns, "Cafe", target)
	require.NoError(t, err)

	// April 2025: 22 weekdays, 8 weekend days.
	want := 22*5.0 + 8*30.0
	assert.InDelta(t, want, result.Predicted, want*0.15)
}
