// Package engine orchestrates the two-phase spending analysis pipeline:
// a synchronous forecast-and-leak phase followed by a background
// walk-forward baseline phase.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leakwatch/leakwatch/internal/baseline"
	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/forecast"
	"github.com/leakwatch/leakwatch/internal/leak"
	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/service"
	"golang.org/x/sync/errgroup"
)

// ForecastHorizonMonths is how many calendar months ahead get a stored
// forecast, starting with the current month.
const ForecastHorizonMonths = 2

// Config holds configuration options for the analysis engine.
type Config struct {
	MaxConcurrency int
	Phase2Timeout  time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Phase2Timeout:  30 * time.Minute,
	}
}

// AnalysisResult summarizes the synchronous phase of one analysis run.
// FailedCategories maps categories whose model fit errored to the
// error text; they are left out of the aggregate without failing the
// run.
type AnalysisResult struct {
	Leak              *model.LeakRecord
	FailedCategories  map[string]string
	JobID             string
	Period            model.Period
	ForecastedCount   int
	SkippedCategories []string
}

// Fitter produces a per-category monthly forecast. *forecast.Forecaster
// satisfies it.
type Fitter interface {
	Forecast(transactions []model.Transaction, category string, target model.Period) (*forecast.Result, error)
}

// AnalysisEngine runs the full pipeline for one import file. The
// shared status cache acts as a single-flight lock: only one analysis
// per file may be in flight across both phases.
type AnalysisEngine struct {
	storage    service.Storage
	status     service.StatusCache
	forecaster *forecast.Forecaster
	fitter     Fitter
	calculator *baseline.Calculator
	filter     *leak.CategoryFilter
	now        func() time.Time
	newID      func() string
	progress   baseline.ProgressFunc
	config     Config
	wg         sync.WaitGroup
}

// Option configures an AnalysisEngine.
type Option func(*AnalysisEngine)

// WithClock overrides the current-time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *AnalysisEngine) { e.now = now }
}

// WithIDGenerator overrides job ID generation, for tests.
func WithIDGenerator(fn func() string) Option {
	return func(e *AnalysisEngine) { e.newID = fn }
}

// WithBaselineProgress registers a per-month callback for the
// background baseline phase.
func WithBaselineProgress(fn baseline.ProgressFunc) Option {
	return func(e *AnalysisEngine) { e.progress = fn }
}

// WithFitter substitutes the forecasting model used by the synchronous
// phase. The baseline phase always uses the standard forecaster.
func WithFitter(f Fitter) Option {
	return func(e *AnalysisEngine) { e.fitter = f }
}

// New creates an analysis engine with the default configuration.
func New(storage service.Storage, status service.StatusCache, opts ...Option) *AnalysisEngine {
	return NewWithConfig(storage, status, DefaultConfig(), opts...)
}

// NewWithConfig creates an analysis engine with custom configuration.
func NewWithConfig(storage service.Storage, status service.StatusCache, config Config, opts ...Option) *AnalysisEngine {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 1
	}
	if config.Phase2Timeout <= 0 {
		config.Phase2Timeout = DefaultConfig().Phase2Timeout
	}

	e := &AnalysisEngine{
		storage:    storage,
		status:     status,
		forecaster: forecast.New(),
		filter:     leak.NewCategoryFilter(leak.DefaultAllowedCategories()),
		now:        time.Now,
		newID:      uuid.NewString,
		config:     config,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.fitter == nil {
		e.fitter = e.forecaster
	}
	calcOpts := []baseline.Option{baseline.WithClock(e.now)}
	if e.progress != nil {
		calcOpts = append(calcOpts, baseline.WithProgress(e.progress))
	}
	e.calculator = baseline.New(e.forecaster, calcOpts...)
	return e
}

// Analyze runs the synchronous phase for a file and kicks off the
// baseline phase in the background. It returns
// common.ErrAnalysisInProgress when another run holds the file's
// status lock. The lock is released by the background phase, so the
// file stays in analyzing state until both phases finish.
func (e *AnalysisEngine) Analyze(ctx context.Context, fileID string) (*AnalysisResult, error) {
	acquired, err := e.status.TryAcquire(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire analysis lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("file %s: %w", fileID, common.ErrAnalysisInProgress)
	}

	result, transactions, err := e.runForecastPhase(ctx, fileID)
	if err != nil {
		if releaseErr := e.status.Release(context.WithoutCancel(ctx), fileID); releaseErr != nil {
			slog.Error("failed to release analysis lock after error",
				"file_id", fileID, "error", releaseErr)
		}
		return nil, err
	}

	e.wg.Add(1)
	go e.runBaselinePhase(result.JobID, fileID, transactions)

	return result, nil
}

// Wait blocks until all background baseline phases have finished.
func (e *AnalysisEngine) Wait() {
	e.wg.Wait()
}

func (e *AnalysisEngine) runForecastPhase(ctx context.Context, fileID string) (*AnalysisResult, []model.Transaction, error) {
	jobID := e.newID()
	period := model.PeriodOf(e.now())

	job := &model.AnalysisJob{
		JobID:     jobID,
		FileID:    fileID,
		Status:    model.JobPending,
		CreatedAt: e.now().UTC(),
	}
	if err := e.storage.CreateJob(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("failed to create analysis job: %w", err)
	}

	slog.Info("starting analysis",
		"job_id", jobID,
		"file_id", fileID,
		"period", period.String())

	result, transactions, err := e.forecastAndLeak(ctx, jobID, fileID, period)
	if err != nil {
		e.failJob(ctx, jobID, err)
		return nil, nil, err
	}

	metadata := map[string]any{
		"forecast_categories": result.ForecastedCount,
		"leak_amount":         result.Leak.LeakAmount,
	}
	if len(result.SkippedCategories) > 0 {
		metadata["insufficient_data_categories"] = result.SkippedCategories
	}
	if len(result.FailedCategories) > 0 {
		metadata["failed_categories"] = result.FailedCategories
	}
	if err := e.storage.CompleteJob(ctx, jobID, model.JobCompleted, "", metadata); err != nil {
		return nil, nil, fmt.Errorf("failed to complete analysis job: %w", err)
	}

	return result, transactions, nil
}

func (e *AnalysisEngine) forecastAndLeak(ctx context.Context, jobID, fileID string, period model.Period) (*AnalysisResult, []model.Transaction, error) {
	raw, err := e.storage.GetTransactionsByFile(ctx, fileID, service.TransactionFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	transactions := e.applyCategoryFilter(raw)
	if len(transactions) == 0 {
		return nil, nil, fmt.Errorf("file %s: %w", fileID, common.ErrNoTransactions)
	}

	byCategory := forecast.GroupByCategory(transactions)

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	horizon := make([]model.Period, 0, ForecastHorizonMonths)
	p := period
	for i := 0; i < ForecastHorizonMonths; i++ {
		horizon = append(horizon, p)
		p = model.PeriodOf(p.End())
	}

	var mu sync.Mutex
	predictions := make(map[string]forecast.Result)
	failed := make(map[string]string)
	var skipped []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.MaxConcurrency)

	for _, category := range categories {
		g.Go(func() error {
			txns := byCategory[category]
			for _, target := range horizon {
				res, err := e.fitter.Forecast(txns, category, target)
				if err != nil {
					if errors.Is(err, common.ErrInsufficientData) {
						mu.Lock()
						skipped = append(skipped, category)
						mu.Unlock()
						return nil
					}
					// One category's broken fit must not abort the
					// others; only storage failures are fatal.
					slog.Error("category model fit failed",
						"file_id", fileID,
						"category", category,
						"period", target.String(),
						"error", err)
					mu.Lock()
					failed[category] = err.Error()
					mu.Unlock()
					return nil
				}

				if err := e.storage.UpsertCategoryForecast(gctx, &model.CategoryForecast{
					FileID:     fileID,
					Category:   category,
					Period:     target,
					Predicted:  res.Predicted,
					LowerBound: res.LowerBound,
					UpperBound: res.UpperBound,
				}); err != nil {
					return fmt.Errorf("category %s: %w", category, err)
				}

				if target == period {
					mu.Lock()
					predictions[category] = *res
					mu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Strings(skipped)

	budgets, err := e.storage.GetBudgets(ctx, fileID, period)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load budgets: %w", err)
	}
	budgetByCategory := make(map[string]float64, len(budgets))
	for _, b := range budgets {
		budgetByCategory[b.Category] = b.Amount
	}

	record, err := e.buildLeakRecord(ctx, fileID, period, categories, byCategory, predictions, budgetByCategory)
	if err != nil {
		return nil, nil, err
	}

	result := &AnalysisResult{
		JobID:             jobID,
		Period:            period,
		Leak:              record,
		ForecastedCount:   len(predictions),
		SkippedCategories: skipped,
		FailedCategories:  failed,
	}
	return result, transactions, nil
}

// buildLeakRecord aggregates per-category leaks into the monthly record
// and writes the doojo threshold rows. Categories without a forecast
// and without a budget have no baseline to compare against and are
// excluded from the aggregate.
func (e *AnalysisEngine) buildLeakRecord(ctx context.Context, fileID string, period model.Period, categories []string, byCategory map[string][]model.Transaction, predictions map[string]forecast.Result, budgets map[string]float64) (*model.LeakRecord, error) {
	record := &model.LeakRecord{
		FileID: fileID,
		Period: period,
	}

	for _, category := range categories {
		txns := byCategory[category]
		actual := leak.ActualSpend(txns, period)

		var budget *float64
		if amount, ok := budgets[category]; ok {
			budget = &amount
		}

		prediction, predicted := predictions[category]
		if !predicted && budget == nil {
			continue
		}

		analysis := leak.Analyze(actual, prediction.Predicted, budget)
		record.Breakdown = append(record.Breakdown, model.CategoryLeak{
			Category:       category,
			Actual:         analysis.Actual,
			Baseline:       analysis.Baseline,
			LeakAmount:     analysis.LeakAmount,
			LeakPercentage: analysis.LeakPercentage,
			BudgetApplied:  analysis.BudgetApplied,
		})
		record.Actual += analysis.Actual
		record.Predicted += analysis.Baseline
		record.LeakAmount += analysis.LeakAmount

		threshold := leak.Thresholds(category, txns, period, prediction.Predicted, budget, &actual)
		threshold.FileID = fileID
		threshold.MostSpent, threshold.MostFrequent = leak.MerchantDetail(txns, period)
		if err := e.storage.UpsertDoojoThreshold(ctx, &threshold); err != nil {
			return nil, fmt.Errorf("category %s: %w", category, err)
		}
	}

	if err := e.storage.UpsertLeakRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save leak record: %w", err)
	}
	return record, nil
}

// runBaselinePhase computes the trailing-month baselines in the
// background. It owns the status lock from here on: whatever happens,
// the file returns to idle when this phase ends.
func (e *AnalysisEngine) runBaselinePhase(jobID, fileID string, transactions []model.Transaction) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), e.config.Phase2Timeout)
	defer cancel()

	defer func() {
		if err := e.status.Release(context.WithoutCancel(ctx), fileID); err != nil {
			slog.Error("failed to release analysis lock",
				"file_id", fileID, "error", err)
		}
	}()

	months, err := e.persistBaselines(ctx, fileID, transactions)
	metadata := map[string]any{"baseline_months_calculated": months}
	if err != nil {
		slog.Error("baseline phase failed",
			"job_id", jobID,
			"file_id", fileID,
			"error", err)
		metadata["baseline_error"] = err.Error()
	} else {
		slog.Info("baseline phase finished",
			"job_id", jobID,
			"file_id", fileID,
			"months", months)
	}

	// The phase context may be the thing that failed; the diagnostic
	// write must not share its fate.
	if err := e.storage.AppendJobMetadata(context.WithoutCancel(ctx), jobID, metadata); err != nil {
		slog.Error("failed to record baseline metadata",
			"job_id", jobID, "error", err)
	}
}

// persistBaselines runs the walk-forward calculator and stores every
// month it produces, returning how many months were persisted.
func (e *AnalysisEngine) persistBaselines(ctx context.Context, fileID string, transactions []model.Transaction) (int, error) {
	results, err := e.calculator.Compute(ctx, fileID, transactions)
	if err != nil {
		return 0, err
	}

	months := 0
	for _, res := range results {
		run := res.Run
		if err := e.storage.UpsertBaselineRun(ctx, &run); err != nil {
			return months, fmt.Errorf("period %s: %w", run.Period, err)
		}
		for _, month := range res.Categories {
			if err := e.storage.UpsertBaselineMonth(ctx, &month); err != nil {
				return months, fmt.Errorf("period %s category %s: %w", month.Period, month.Category, err)
			}
		}
		months++
	}
	return months, nil
}

// applyCategoryFilter maps raw categories onto the analysis buckets,
// dropping transactions in excluded categories.
func (e *AnalysisEngine) applyCategoryFilter(transactions []model.Transaction) []model.Transaction {
	filtered := make([]model.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		bucket, ok := e.filter.Map(txn.Category)
		if !ok {
			continue
		}
		txn.Category = bucket
		filtered = append(filtered, txn)
	}
	return filtered
}

func (e *AnalysisEngine) failJob(ctx context.Context, jobID string, cause error) {
	if err := e.storage.CompleteJob(context.WithoutCancel(ctx), jobID, model.JobFailed, cause.Error(), nil); err != nil {
		slog.Error("failed to mark job failed",
			"job_id", jobID, "error", err)
	}
}
