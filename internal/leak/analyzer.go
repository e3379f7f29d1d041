// Package leak compares actual spending against predicted or budgeted
// baselines and derives per-category overspend thresholds.
package leak

import (
	"github.com/leakwatch/leakwatch/internal/model"
)

// Result is the outcome of a single leak computation.
type Result struct {
	Baseline       float64
	Actual         float64
	LeakAmount     float64
	LeakPercentage float64
	BudgetApplied  bool
}

// Analyze computes overspend against a baseline. A caller-supplied
// budget, when present, supersedes the model-derived baseline as the
// comparison point. Leak amounts never go negative; underspend is
// simply zero leak.
func Analyze(actual, predicted float64, budget *float64) Result {
	baseline := predicted
	budgetApplied := false
	if budget != nil {
		baseline = *budget
		budgetApplied = true
	}

	leak := actual - baseline
	if leak < 0 {
		leak = 0
	}

	var pct float64
	if baseline > 0 {
		pct = leak / baseline * 100
	}

	return Result{
		Baseline:       baseline,
		Actual:         actual,
		LeakAmount:     leak,
		LeakPercentage: pct,
		BudgetApplied:  budgetApplied,
	}
}

// MonthlyTotals sums a category's transactions by calendar month.
// Only complete months are meaningful for threshold extremes, so the
// caller passes the cutoff period and months at or after it are dropped.
func MonthlyTotals(transactions []model.Transaction, before model.Period) map[model.Period]float64 {
	totals := make(map[model.Period]float64)
	cutoff := before.Start()
	for _, txn := range transactions {
		if !txn.Date.Before(cutoff) {
			continue
		}
		totals[model.PeriodOf(txn.Date)] += txn.Amount
	}
	return totals
}

// Thresholds derives the doojo comparison record for one category.
// Min, max and avg come from the full historical monthly series,
// independent of which baseline the leak calculation used. The current
// threshold is the budget when set, otherwise the model forecast.
// The pass/fail result is only set when the real amount is known.
func Thresholds(category string, history []model.Transaction, period model.Period, predicted float64, budget *float64, real *float64) model.DoojoThreshold {
	totals := MonthlyTotals(history, period)

	var minAmt, maxAmt, sum float64
	first := true
	for _, amount := range totals {
		if amount < 0 {
			amount = 0
		}
		if first {
			minAmt, maxAmt = amount, amount
			first = false
		} else {
			if amount < minAmt {
				minAmt = amount
			}
			if amount > maxAmt {
				maxAmt = amount
			}
		}
		sum += amount
	}

	var avg float64
	if len(totals) > 0 {
		avg = sum / float64(len(totals))
	}

	current := predicted
	if budget != nil {
		current = *budget
	}

	threshold := model.DoojoThreshold{
		Category:         category,
		Period:           period,
		MinAmount:        minAmt,
		MaxAmount:        maxAmt,
		AvgAmount:        avg,
		CurrentThreshold: current,
		RealAmount:       real,
	}

	if real != nil {
		exceeded := *real > current
		threshold.Result = &exceeded
	}

	return threshold
}

// MerchantDetail summarizes the most-spent transaction and the
// most-frequent merchant for a category within one month.
func MerchantDetail(transactions []model.Transaction, period model.Period) (*model.MerchantSpend, *model.MerchantFrequency) {
	type merchantStats struct {
		count int
		total float64
	}

	var top *model.MerchantSpend
	stats := make(map[string]*merchantStats)

	for _, txn := range transactions {
		if !period.Contains(txn.Date) {
			continue
		}

		if top == nil || txn.Amount > top.Amount {
			top = &model.MerchantSpend{
				Merchant: txn.Merchant,
				Amount:   txn.Amount,
				Date:     txn.Date,
			}
		}

		s, ok := stats[txn.Merchant]
		if !ok {
			s = &merchantStats{}
			stats[txn.Merchant] = s
		}
		s.count++
		s.total += txn.Amount
	}

	var frequent *model.MerchantFrequency
	for merchant, s := range stats {
		if frequent == nil ||
			s.count > frequent.Count ||
			(s.count == frequent.Count && s.total > frequent.TotalAmount) {
			frequent = &model.MerchantFrequency{
				Merchant:    merchant,
				Count:       s.count,
				TotalAmount: s.total,
			}
		}
	}

	return top, frequent
}

// ActualSpend sums transactions that fall inside the period.
func ActualSpend(transactions []model.Transaction, period model.Period) float64 {
	var total float64
	for _, txn := range transactions {
		if period.Contains(txn.Date) {
			total += txn.Amount
		}
	}
	return total
}
