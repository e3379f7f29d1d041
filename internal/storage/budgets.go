package storage

import (
	"context"
	"fmt"

	"github.com/leakwatch/leakwatch/internal/model"
)

// SaveBudget writes a per-category monthly spending limit, replacing
// any existing budget for the same key.
func (s *SQLiteStorage) SaveBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if budget == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}
	if err := validateString(budget.FileID, "budget.FileID"); err != nil {
		return err
	}
	if err := validateString(budget.Category, "budget.Category"); err != nil {
		return err
	}
	if err := validatePeriod(budget.Period); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (file_id, category, year, month, amount)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(file_id, category, year, month) DO UPDATE SET
			amount = excluded.amount
	`,
		budget.FileID,
		budget.Category,
		budget.Period.Year,
		int(budget.Period.Month),
		budget.Amount,
	)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// GetBudgets returns the budgets for a file and period, ordered by
// category.
func (s *SQLiteStorage) GetBudgets(ctx context.Context, fileID string, period model.Period) ([]model.Budget, error) {
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
		SELECT category, amount
		FROM budgets
		WHERE file_id = ? AND year = ? AND month = ?
		ORDER BY category ASC
	`, fileID, period.Year, int(period.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		b := model.Budget{FileID: fileID, Period: period}
		if err := rows.Scan(&b.Category, &b.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budgets: %w", err)
	}

	return budgets, nil
}
