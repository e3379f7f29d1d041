// Package baseline re-derives historical monthly forecasts with a
// walk-forward training cutoff, simulating what would have been
// predicted using only data available at the time.
package baseline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/forecast"
	"github.com/leakwatch/leakwatch/internal/model"
)

const (
	// TrailingMonths is how many past months get a baseline, ending the
	// month before the current one.
	TrailingMonths = 11
	// minMonthRows is the minimum transaction count in the truncated
	// window for a month to be modeled at all.
	minMonthRows = 30
	// minCategoryDays is the minimum distinct transaction days a
	// category needs within the truncated window.
	minCategoryDays = 7
)

// MonthResult holds everything computed for one baseline month.
type MonthResult struct {
	Run        model.BaselineRun
	Categories []model.BaselineMonth
}

// ProgressFunc is called after each month completes, with months done
// and months total.
type ProgressFunc func(done, total int)

// Calculator walks backward over the trailing months and re-runs the
// forecaster against truncated history for each.
type Calculator struct {
	forecaster *forecast.Forecaster
	now        func() time.Time
	progress   ProgressFunc
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithClock overrides the current-time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

// WithProgress registers a per-month progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Calculator) { c.progress = fn }
}

// New creates a baseline calculator around the given forecaster.
func New(forecaster *forecast.Forecaster, opts ...Option) *Calculator {
	c := &Calculator{
		forecaster: forecaster,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute produces baselines for the trailing 11 months. Month M is
// trained only on transactions dated strictly before the first day of
// M; the cutoff is recorded so the no-look-ahead property is auditable.
// Months with too little prior data are marked insufficient_data and
// excluded from aggregation rather than silently zeroed.
func (c *Calculator) Compute(ctx context.Context, fileID string, history []model.Transaction) ([]MonthResult, error) {
	current := model.PeriodOf(c.now())

	periods := make([]model.Period, 0, TrailingMonths)
	p := current
	for i := 0; i < TrailingMonths; i++ {
		p = p.Previous()
		periods = append(periods, p)
	}
	// Oldest month first.
	for i, j := 0, len(periods)-1; i < j; i, j = i+1, j-1 {
		periods[i], periods[j] = periods[j], periods[i]
	}

	results := make([]MonthResult, 0, len(periods))
	for i, period := range periods {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		results = append(results, c.computeMonth(fileID, period, history))

		if c.progress != nil {
			c.progress(i+1, len(periods))
		}
	}

	return results, nil
}

func (c *Calculator) computeMonth(fileID string, period model.Period, history []model.Transaction) MonthResult {
	monthStart := period.Start()
	cutoff := monthStart.AddDate(0, 0, -1)

	var train []model.Transaction
	for _, txn := range history {
		if txn.Date.Before(monthStart) {
			train = append(train, txn)
		}
	}

	run := model.BaselineRun{
		FileID:         fileID,
		Period:         period,
		TrainingCutoff: cutoff,
	}

	if len(train) < minMonthRows {
		slog.Warn("not enough history for baseline month",
			"file_id", fileID,
			"period", period.String(),
			"rows", len(train))
		run.Status = model.BaselineInsufficientData
		return MonthResult{Run: run}
	}

	var categories []model.BaselineMonth
	var total float64
	for category, txns := range forecast.GroupByCategory(train) {
		if forecast.DistinctDays(txns) < minCategoryDays {
			continue
		}

		result, err := c.forecaster.Forecast(txns, category, period)
		if err != nil {
			if !errors.Is(err, common.ErrInsufficientData) {
				slog.Error("baseline model fit failed",
					"file_id", fileID,
					"period", period.String(),
					"category", category,
					"error", err)
			}
			continue
		}

		categories = append(categories, model.BaselineMonth{
			FileID:         fileID,
			Category:       category,
			Period:         period,
			Predicted:      result.Predicted,
			LowerBound:     result.LowerBound,
			UpperBound:     result.UpperBound,
			TrainingCutoff: cutoff,
			DataPoints:     len(txns),
		})
		total += result.Predicted
	}

	run.Status = model.BaselineCompleted
	run.Total = total
	run.CategoriesCount = len(categories)
	return MonthResult{Run: run, Categories: categories}
}
