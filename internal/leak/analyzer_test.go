package leak

import (
	"testing"
	"time"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	budget := func(v float64) *float64 { return &v }

	tests := []struct {
		budget  *float64
		name    string
		actual  float64
		pred    float64
		wantAmt float64
		wantPct float64
	}{
		{
			name:    "overspend produces leak",
			actual:  120,
			pred:    100,
			wantAmt: 20,
			wantPct: 20.0,
		},
		{
			name:    "underspend is zero leak",
			actual:  80,
			pred:    100,
			wantAmt: 0,
			wantPct: 0,
		},
		{
			name:    "exactly on baseline",
			actual:  100,
			pred:    100,
			wantAmt: 0,
			wantPct: 0,
		},
		{
			name:    "budget supersedes forecast",
			actual:  120,
			pred:    200,
			budget:  budget(100),
			wantAmt: 20,
			wantPct: 20.0,
		},
		{
			name:    "zero baseline yields zero percentage",
			actual:  50,
			pred:    0,
			wantAmt: 50,
			wantPct: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Analyze(tt.actual, tt.pred, tt.budget)
			assert.InDelta(t, tt.wantAmt, result.LeakAmount, 1e-9)
			assert.InDelta(t, tt.wantPct, result.LeakPercentage, 1e-9)
			assert.GreaterOrEqual(t, result.LeakAmount, 0.0)
			assert.Equal(t, tt.budget != nil, result.BudgetApplied)
		})
	}
}

func monthTxn(year int, month time.Month, day int, merchant string, amount float64) model.Transaction {
	return model.Transaction{
		ID:       merchant,
		FileID:   "file-1",
		Date:     time.Date(year, month, day, 10, 0, 0, 0, time.UTC),
		Category: "Cafe",
		Merchant: merchant,
		Amount:   amount,
	}
}

func TestMonthlyTotals_ExcludesTargetAndLater(t *testing.T) {
	history := []model.Transaction{
		monthTxn(2025, time.May, 3, "A", 10),
		monthTxn(2025, time.May, 20, "A", 5),
		monthTxn(2025, time.June, 1, "A", 40),
		monthTxn(2025, time.July, 2, "A", 99),
		monthTxn(2025, time.August, 1, "A", 123),
	}

	totals := MonthlyTotals(history, model.Period{Year: 2025, Month: time.July})
	require.Len(t, totals, 2)
	assert.Equal(t, 15.0, totals[model.Period{Year: 2025, Month: time.May}])
	assert.Equal(t, 40.0, totals[model.Period{Year: 2025, Month: time.June}])
}

func TestThresholds(t *testing.T) {
	period := model.Period{Year: 2025, Month: time.August}
	history := []model.Transaction{
		monthTxn(2025, time.May, 3, "A", 100),
		monthTxn(2025, time.June, 3, "A", 300),
		monthTxn(2025, time.July, 3, "A", 200),
	}

	real := 250.0
	threshold := Thresholds("Cafe", history, period, 220, nil, &real)

	assert.Equal(t, 100.0, threshold.MinAmount)
	assert.Equal(t, 300.0, threshold.MaxAmount)
	assert.Equal(t, 200.0, threshold.AvgAmount)
	assert.Equal(t, 220.0, threshold.CurrentThreshold)
	require.NotNil(t, threshold.Result)
	assert.True(t, *threshold.Result)
}

func TestThresholds_BudgetOverridesForecast(t *testing.T) {
	period := model.Period{Year: 2025, Month: time.August}
	history := []model.Transaction{
		monthTxn(2025, time.July, 3, "A", 200),
	}

	budget := 150.0
	real := 140.0
	threshold := Thresholds("Cafe", history, period, 220, &budget, &real)

	assert.Equal(t, 150.0, threshold.CurrentThreshold)
	require.NotNil(t, threshold.Result)
	assert.False(t, *threshold.Result)
}

func TestThresholds_NoRealAmountLeavesResultUnset(t *testing.T) {
	period := model.Period{Year: 2025, Month: time.August}
	threshold := Thresholds("Cafe", nil, period, 220, nil, nil)
	assert.Nil(t, threshold.Result)
	assert.Nil(t, threshold.RealAmount)
}

func TestMerchantDetail(t *testing.T) {
	period := model.Period{Year: 2025, Month: time.August}
	txns := []model.Transaction{
		monthTxn(2025, time.August, 1, "Corner Cafe", 4),
		monthTxn(2025, time.August, 3, "Corner Cafe", 5),
		monthTxn(2025, time.August, 5, "Corner Cafe", 6),
		monthTxn(2025, time.August, 9, "Fancy Roasters", 42),
		monthTxn(2025, time.July, 9, "Last Month", 999),
	}

	spent, frequent := MerchantDetail(txns, period)
	require.NotNil(t, spent)
	require.NotNil(t, frequent)

	assert.Equal(t, "Fancy Roasters", spent.Merchant)
	assert.Equal(t, 42.0, spent.Amount)
	assert.Equal(t, "Corner Cafe", frequent.Merchant)
	assert.Equal(t, 3, frequent.Count)
	assert.Equal(t, 15.0, frequent.TotalAmount)
}

func TestActualSpend(t *testing.T) {
	period := model.Period{Year: 2025, Month: time.August}
	txns := []model.Transaction{
		monthTxn(2025, time.August, 1, "A", 10),
		monthTxn(2025, time.August, 30, "B", 20),
		monthTxn(2025, time.September, 1, "C", 99),
	}
	assert.Equal(t, 30.0, ActualSpend(txns, period))
}

func TestCategoryFilter(t *testing.T) {
	filter := NewCategoryFilter(DefaultAllowedCategories())

	tests := []struct {
		name     string
		raw      string
		want     string
		included bool
	}{
		{name: "allowed category passes", raw: "Cafe", want: "Cafe", included: true},
		{name: "blank maps to fallback", raw: "", want: "Other", included: true},
		{name: "excluded category dropped", raw: "Insurance & Tax", included: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := filter.Map(tt.raw)
			assert.Equal(t, tt.included, ok)
			if tt.included {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
