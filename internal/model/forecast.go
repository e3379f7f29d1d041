package model

import "time"

// CategoryForecast is a monthly spending forecast for one category.
// Unique per (FileID, Category, Period); re-running analysis for the
// same period overwrites the existing row.
type CategoryForecast struct {
	CreatedAt  time.Time
	FileID     string
	Category   string
	Period     Period
	Predicted  float64
	LowerBound float64
	UpperBound float64
}

// BaselineMonth is a walk-forward forecast for a past month, computed
// using only transactions dated strictly before the month began.
type BaselineMonth struct {
	TrainingCutoff time.Time
	CreatedAt      time.Time
	FileID         string
	Category       string
	Period         Period
	Predicted      float64
	LowerBound     float64
	UpperBound     float64
	DataPoints     int
}

// BaselineRunStatus describes the outcome of a single baseline month.
type BaselineRunStatus string

const (
	// BaselineCompleted means the month produced category baselines.
	BaselineCompleted BaselineRunStatus = "completed"
	// BaselineInsufficientData means the truncated history was too small
	// to model; the month is excluded from aggregation.
	BaselineInsufficientData BaselineRunStatus = "insufficient_data"
)

// BaselineRun is the month-level summary of a baseline computation.
type BaselineRun struct {
	TrainingCutoff  time.Time
	FileID          string
	Status          BaselineRunStatus
	Period          Period
	Total           float64
	CategoriesCount int
}
