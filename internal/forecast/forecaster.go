package forecast

import (
	"fmt"
	"log/slog"

	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/model"
)

// Result is a monthly forecast for one category. Predicted is always
// clamped to zero or above; LowerBound never drops below zero.
type Result struct {
	Predicted  float64
	LowerBound float64
	UpperBound float64
}

// Forecaster fits one model per category and aggregates the fitted
// daily trajectory into calendar-month totals.
type Forecaster struct {
	classes CategoryClasses
}

// New creates a forecaster with the default category classification.
func New() *Forecaster {
	return NewWithClasses(DefaultCategoryClasses())
}

// NewWithClasses creates a forecaster with a custom category classification.
func NewWithClasses(classes CategoryClasses) *Forecaster {
	return &Forecaster{classes: classes}
}

// Forecast produces the monthly forecast for one category's transaction
// set. It returns common.ErrInsufficientData when the series has fewer
// than two distinct days of data; callers must treat that as "no
// forecast", which is distinct from a forecast of zero.
func (f *Forecaster) Forecast(transactions []model.Transaction, category string, target model.Period) (*Result, error) {
	if DistinctDays(transactions) < 2 {
		return nil, fmt.Errorf("category %q: %w", category, common.ErrInsufficientData)
	}

	series := BuildDailySeries(transactions)
	spec := f.classes.SpecFor(category)

	fitted, err := fit(series, spec)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", category, err)
	}

	slog.Debug("fitted category model",
		"category", category,
		"mode", spec.Mode,
		"weekly", spec.WeeklySeasonality,
		"monthly", spec.MonthlySeasonality,
		"days", len(series))

	return aggregateMonth(fitted, target), nil
}

// aggregateMonth buckets the model's daily predictions into the target
// calendar month and sums them. Negative totals are clamped to zero.
func aggregateMonth(m *fittedModel, target model.Period) *Result {
	var predicted, lower, upper float64
	for d := target.Start(); d.Before(target.End()); d = d.AddDate(0, 0, 1) {
		yhat, lo, hi := m.predict(d)
		predicted += yhat
		lower += lo
		upper += hi
	}

	if predicted < 0 {
		predicted = 0
	}
	if lower < 0 {
		lower = 0
	}
	if upper < predicted {
		upper = predicted
	}

	return &Result{
		Predicted:  predicted,
		LowerBound: lower,
		UpperBound: upper,
	}
}
