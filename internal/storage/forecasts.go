package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/leakwatch/leakwatch/internal/model"
)

// UpsertCategoryForecast writes a monthly forecast, replacing any
// existing row for the same file, category and period.
func (s *SQLiteStorage) UpsertCategoryForecast(ctx context.Context, forecast *model.CategoryForecast) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if forecast == nil {
		return fmt.Errorf("%w: forecast", ErrNilParameter)
	}
	if err := validateString(forecast.FileID, "forecast.FileID"); err != nil {
		return err
	}
	if err := validateString(forecast.Category, "forecast.Category"); err != nil {
		return err
	}
	if err := validatePeriod(forecast.Period); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_forecasts (
			file_id, category, year, month, predicted, lower_bound, upper_bound
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, category, year, month) DO UPDATE SET
			predicted = excluded.predicted,
			lower_bound = excluded.lower_bound,
			upper_bound = excluded.upper_bound,
			created_at = CURRENT_TIMESTAMP
	`,
		forecast.FileID,
		forecast.Category,
		forecast.Period.Year,
		int(forecast.Period.Month),
		forecast.Predicted,
		forecast.LowerBound,
		forecast.UpperBound,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert forecast: %w", err)
	}
	return nil
}

// GetCategoryForecasts returns all category forecasts for a file and
// period, ordered by category.
func (s *SQLiteStorage) GetCategoryForecasts(ctx context.Context, fileID string, period model.Period) ([]model.CategoryForecast, error) {
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
		SELECT category, predicted, lower_bound, upper_bound, created_at
		FROM category_forecasts
		WHERE file_id = ? AND year = ? AND month = ?
		ORDER BY category ASC
	`, fileID, period.Year, int(period.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to query forecasts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var forecasts []model.CategoryForecast
	for rows.Next() {
		f := model.CategoryForecast{FileID: fileID, Period: period}
		var createdAt time.Time
		if err := rows.Scan(&f.Category, &f.Predicted, &f.LowerBound, &f.UpperBound, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		f.CreatedAt = createdAt.UTC()
		forecasts = append(forecasts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate forecasts: %w", err)
	}

	return forecasts, nil
}
