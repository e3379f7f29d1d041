// Package forecast fits per-category time-series models over daily
// spending and produces monthly forecasts with confidence intervals.
package forecast

import (
	"time"

	"github.com/leakwatch/leakwatch/internal/model"
)

// DailyPoint is one day of aggregated spending for a category.
type DailyPoint struct {
	Date   time.Time
	Amount float64
}

// BuildDailySeries aggregates transactions of a single category into a
// contiguous daily series. Days with no transactions between the first
// and last observed day are filled with zero, not omitted, so the model
// sees a complete calendar.
func BuildDailySeries(transactions []model.Transaction) []DailyPoint {
	if len(transactions) == 0 {
		return nil
	}

	byDay := make(map[string]float64)
	var first, last time.Time
	for _, txn := range transactions {
		day := truncateToDay(txn.Date)
		byDay[day.Format("2006-01-02")] += txn.Amount
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
	}

	var series []DailyPoint
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		series = append(series, DailyPoint{
			Date:   d,
			Amount: byDay[d.Format("2006-01-02")],
		})
	}
	return series
}

// DistinctDays counts days that carry at least one transaction.
func DistinctDays(transactions []model.Transaction) int {
	days := make(map[string]struct{})
	for _, txn := range transactions {
		days[txn.Date.Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}

// GroupByCategory splits transactions into per-category slices.
func GroupByCategory(transactions []model.Transaction) map[string][]model.Transaction {
	groups := make(map[string][]model.Transaction)
	for _, txn := range transactions {
		groups[txn.Category] = append(groups[txn.Category], txn)
	}
	return groups
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
