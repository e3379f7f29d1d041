package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/model"
)

// UpsertLeakRecord writes the monthly leak summary for a file,
// replacing any prior row for the same month.
func (s *SQLiteStorage) UpsertLeakRecord(ctx context.Context, record *model.LeakRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if err := validateString(record.FileID, "record.FileID"); err != nil {
		return err
	}
	if err := validatePeriod(record.Period); err != nil {
		return err
	}

	breakdown, err := json.Marshal(record.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leak_records (
			file_id, year, month, actual, predicted, leak_amount, breakdown
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, year, month) DO UPDATE SET
			actual = excluded.actual,
			predicted = excluded.predicted,
			leak_amount = excluded.leak_amount,
			breakdown = excluded.breakdown,
			created_at = CURRENT_TIMESTAMP
	`,
		record.FileID,
		record.Period.Year,
		int(record.Period.Month),
		record.Actual,
		record.Predicted,
		record.LeakAmount,
		string(breakdown),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert leak record: %w", err)
	}
	return nil
}

// GetLeakRecord returns the leak summary for a file and month, or
// common.ErrNotFound when no analysis has run for that month.
func (s *SQLiteStorage) GetLeakRecord(ctx context.Context, fileID string, period model.Period) (*model.LeakRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fileID, "fileID"); err != nil {
		return nil, err
	}
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	record := model.LeakRecord{FileID: fileID, Period: period}
	var breakdown string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT actual, predicted, leak_amount, breakdown, created_at
		FROM leak_records
		WHERE file_id = ? AND year = ? AND month = ?
	`, fileID, period.Year, int(period.Month)).Scan(
		&record.Actual, &record.Predicted, &record.LeakAmount, &breakdown, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("leak record for %s %s: %w", fileID, period, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query leak record: %w", err)
	}

	if breakdown != "" {
		if err := json.Unmarshal([]byte(breakdown), &record.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
		}
	}
	record.CreatedAt = createdAt.UTC()

	return &record, nil
}
