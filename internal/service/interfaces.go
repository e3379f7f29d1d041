// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/leakwatch/leakwatch/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
}

// TransactionSource supplies the categorized transaction set for a file.
type TransactionSource interface {
	GetTransactionsByFile(ctx context.Context, fileID string, filter TransactionFilter) ([]model.Transaction, error)
}

// Storage defines the contract for the persistence layer. All record
// writes use natural-key upsert semantics: re-running analysis for the
// same key updates the existing row instead of duplicating it.
type Storage interface {
	TransactionSource

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionCountByFile(ctx context.Context, fileID string) (int, error)

	// Forecast operations
	UpsertCategoryForecast(ctx context.Context, forecast *model.CategoryForecast) error
	GetCategoryForecasts(ctx context.Context, fileID string, period model.Period) ([]model.CategoryForecast, error)

	// Baseline operations
	UpsertBaselineMonth(ctx context.Context, baseline *model.BaselineMonth) error
	UpsertBaselineRun(ctx context.Context, run *model.BaselineRun) error
	GetBaselineMonths(ctx context.Context, fileID string, period model.Period) ([]model.BaselineMonth, error)
	GetBaselineRuns(ctx context.Context, fileID string) ([]model.BaselineRun, error)

	// Leak operations
	UpsertLeakRecord(ctx context.Context, record *model.LeakRecord) error
	GetLeakRecord(ctx context.Context, fileID string, period model.Period) (*model.LeakRecord, error)

	// Doojo threshold operations
	UpsertDoojoThreshold(ctx context.Context, threshold *model.DoojoThreshold) error
	GetDoojoThresholds(ctx context.Context, fileID string, period model.Period) ([]model.DoojoThreshold, error)

	// Budget operations
	SaveBudget(ctx context.Context, budget *model.Budget) error
	GetBudgets(ctx context.Context, fileID string, period model.Period) ([]model.Budget, error)

	// Job operations
	CreateJob(ctx context.Context, job *model.AnalysisJob) error
	CompleteJob(ctx context.Context, jobID string, status model.JobStatus, errorMessage string, metadata map[string]any) error
	AppendJobMetadata(ctx context.Context, jobID string, metadata map[string]any) error
	GetJob(ctx context.Context, jobID string) (*model.AnalysisJob, error)
	GetLatestJob(ctx context.Context, fileID string) (*model.AnalysisJob, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// StatusCache is the shared ephemeral status store used as a coarse,
// non-reentrant single-flight lock per file. TryAcquire succeeds only
// when the file is idle; Release must be called exactly once by the
// last phase to finish, on success or failure.
type StatusCache interface {
	TryAcquire(ctx context.Context, fileID string) (bool, error)
	Release(ctx context.Context, fileID string) error
	Get(ctx context.Context, fileID string) (model.AnalysisStatus, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
