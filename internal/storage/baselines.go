package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/leakwatch/leakwatch/internal/model"
)

// UpsertBaselineMonth writes one category's walk-forward baseline for a
// month, replacing any prior row for the same key.
func (s *SQLiteStorage) UpsertBaselineMonth(ctx context.Context, baseline *model.BaselineMonth) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if baseline == nil {
		return fmt.Errorf("%w: baseline", ErrNilParameter)
	}
	if err := validateString(baseline.FileID, "baseline.FileID"); err != nil {
		return err
	}
	if err := validateString(baseline.Category, "baseline.Category"); err != nil {
		return err
	}
	if err := validatePeriod(baseline.Period); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO baseline_months (
			file_id, category, year, month,
			predicted, lower_bound, upper_bound, training_cutoff, data_points
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, category, year, month) DO UPDATE SET
			predicted = excluded.predicted,
			lower_bound = excluded.lower_bound,
			upper_bound = excluded.upper_bound,
			training_cutoff = excluded.training_cutoff,
			data_points = excluded.data_points,
			created_at = CURRENT_TIMESTAMP
	`,
		baseline.FileID,
		baseline.Category,
		baseline.Period.Year,
		int(baseline.Period.Month),
		baseline.Predicted,
		baseline.LowerBound,
		baseline.UpperBound,
		baseline.TrainingCutoff.UTC(),
		baseline.DataPoints,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert baseline month: %w", err)
	}
	return nil
}

// UpsertBaselineRun writes the month-level baseline summary.
func (s *SQLiteStorage) UpsertBaselineRun(ctx context.Context, run *model.BaselineRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if err := validateString(run.FileID, "run.FileID"); err != nil {
		return err
	}
	if err := validatePeriod(run.Period); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO baseline_runs (
			file_id, year, month, status, total, categories_count, training_cutoff
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, year, month) DO UPDATE SET
			status = excluded.status,
			total = excluded.total,
			categories_count = excluded.categories_count,
			training_cutoff = excluded.training_cutoff
	`,
		run.FileID,
		run.Period.Year,
		int(run.Period.Month),
		string(run.Status),
		run.Total,
		run.CategoriesCount,
		run.TrainingCutoff.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert baseline run: %w", err)
	}
	return nil
}

// GetBaselineMonths returns the per-category baselines for a file and
// period, ordered by category.
func (s *SQLiteStorage) GetBaselineMonths(ctx context.Context, fileID string, period model.Period) ([]model.BaselineMonth, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fileID, "fileID"); err != nil {
		return nil, err
	}
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, predicted, lower_bound, upper_bound, training_cutoff, data_points, created_at
		FROM baseline_months
		WHERE file_id = ? AND year = ? AND month = ?
		ORDER BY category ASC
	`, fileID, period.Year, int(period.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to query baseline months: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var baselines []model.BaselineMonth
	for rows.Next() {
		b := model.BaselineMonth{FileID: fileID, Period: period}
		var cutoff, createdAt time.Time
		if err := rows.Scan(&b.Category, &b.Predicted, &b.LowerBound, &b.UpperBound, &cutoff, &b.DataPoints, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan baseline month: %w", err)
		}
		b.TrainingCutoff = cutoff.UTC()
		b.CreatedAt = createdAt.UTC()
		baselines = append(baselines, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate baseline months: %w", err)
	}

	return baselines, nil
}

// GetBaselineRuns returns all baseline run summaries for a file,
// oldest month first.
func (s *SQLiteStorage) GetBaselineRuns(ctx context.Context, fileID string) ([]model.BaselineRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fileID, "fileID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, status, total, categories_count, training_cutoff
		FROM baseline_runs
		WHERE file_id = ?
		ORDER BY year ASC, month ASC
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query baseline runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.BaselineRun
	for rows.Next() {
		run := model.BaselineRun{FileID: fileID}
		var year, month int
		var status string
		var cutoff time.Time
		if err := rows.Scan(&year, &month, &status, &run.Total, &run.CategoriesCount, &cutoff); err != nil {
			return nil, fmt.Errorf("failed to scan baseline run: %w", err)
		}
		run.Period = model.Period{Year: year, Month: time.Month(month)}
		run.Status = model.BaselineRunStatus(status)
		run.TrainingCutoff = cutoff.UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate baseline runs: %w", err)
	}

	return runs, nil
}
