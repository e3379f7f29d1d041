package model

import "time"

// CategoryLeak is the per-category portion of a leak analysis.
type CategoryLeak struct {
	Category       string  `json:"category"`
	Actual         float64 `json:"actual"`
	Baseline       float64 `json:"baseline"`
	LeakAmount     float64 `json:"leak_amount"`
	LeakPercentage float64 `json:"leak_percentage"`
	BudgetApplied  bool    `json:"budget_applied"`
}

// LeakRecord captures overspend relative to the predicted or budgeted
// baseline for one month. Unique per (FileID, Year, Month).
type LeakRecord struct {
	CreatedAt  time.Time
	FileID     string
	Period     Period
	Actual     float64
	Predicted  float64
	LeakAmount float64
	Breakdown  []CategoryLeak
}

// MerchantSpend identifies the single largest transaction for a
// category within a month.
type MerchantSpend struct {
	Date     time.Time `json:"date"`
	Merchant string    `json:"merchant"`
	Amount   float64   `json:"amount"`
}

// MerchantFrequency identifies the most visited merchant for a
// category within a month.
type MerchantFrequency struct {
	Merchant    string  `json:"merchant"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// DoojoThreshold is the per-category overspend comparison record.
// Min, Max and Avg come from the full historical monthly series;
// CurrentThreshold is the operative baseline (budget override wins
// over the model forecast). Result is set only once RealAmount is
// known for the month.
type DoojoThreshold struct {
	MostSpent        *MerchantSpend
	MostFrequent     *MerchantFrequency
	RealAmount       *float64
	Result           *bool
	CreatedAt        time.Time
	FileID           string
	Category         string
	Period           Period
	MinAmount        float64
	MaxAmount        float64
	AvgAmount        float64
	CurrentThreshold float64
}

// Budget is a caller-supplied spending limit that supersedes the model
// baseline for leak and threshold comparison.
type Budget struct {
	FileID   string
	Category string
	Period   Period
	Amount   float64
}
