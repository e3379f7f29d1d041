package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leakwatch/leakwatch/internal/model"
)

// UpsertDoojoThreshold writes one category's threshold comparison for a
// month, replacing any prior row for the same key.
func (s *SQLiteStorage) UpsertDoojoThreshold(ctx context.Context, threshold *model.DoojoThreshold) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if threshold == nil {
		return fmt.Errorf("%w: threshold", ErrNilParameter)
	}
	if err := validateString(threshold.FileID, "threshold.FileID"); err != nil {
		return err
	}
	if err := validateString(threshold.Category, "threshold.Category"); err != nil {
		return err
	}
	if err := validatePeriod(threshold.Period); err != nil {
		return err
	}

	mostSpent, err := marshalNullable(threshold.MostSpent)
	if err != nil {
		return fmt.Errorf("failed to marshal most spent: %w", err)
	}
	mostFrequent, err := marshalNullable(threshold.MostFrequent)
	if err != nil {
		return fmt.Errorf("failed to marshal most frequent: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO doojo_thresholds (
			file_id, category, year, month,
			min_amount, max_amount, avg_amount, current_threshold,
			real_amount, result, most_spent, most_frequent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, category, year, month) DO UPDATE SET
			min_amount = excluded.min_amount,
			max_amount = excluded.max_amount,
			avg_amount = excluded.avg_amount,
			current_threshold = excluded.current_threshold,
			real_amount = excluded.real_amount,
			result = excluded.result,
			most_spent = excluded.most_spent,
			most_frequent = excluded.most_frequent,
			created_at = CURRENT_TIMESTAMP
	`,
		threshold.FileID,
		threshold.Category,
		threshold.Period.Year,
		int(threshold.Period.Month),
		threshold.MinAmount,
		threshold.MaxAmount,
		threshold.AvgAmount,
		threshold.CurrentThreshold,
		threshold.RealAmount,
		threshold.Result,
		mostSpent,
		mostFrequent,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert doojo threshold: %w", err)
	}
	return nil
}

// GetDoojoThresholds returns the threshold records for a file and
// period, ordered by category.
func (s *SQLiteStorage) GetDoojoThresholds(ctx context.Context, fileID string, period model.Period) ([]model.DoojoThreshold, error) {
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
		SELECT category, min_amount, max_amount, avg_amount, current_threshold,
			real_amount, result, most_spent, most_frequent, created_at
		FROM doojo_thresholds
		WHERE file_id = ? AND year = ? AND month = ?
		ORDER BY category ASC
	`, fileID, period.Year, int(period.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to query doojo thresholds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var thresholds []model.DoojoThreshold
	for rows.Next() {
		t := model.DoojoThreshold{FileID: fileID, Period: period}
		var realAmount sql.NullFloat64
		var result sql.NullBool
		var mostSpent, mostFrequent sql.NullString
		var createdAt time.Time
		if err := rows.Scan(
			&t.Category, &t.MinAmount, &t.MaxAmount, &t.AvgAmount, &t.CurrentThreshold,
			&realAmount, &result, &mostSpent, &mostFrequent, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan doojo threshold: %w", err)
		}

		if realAmount.Valid {
			t.RealAmount = &realAmount.Float64
		}
		if result.Valid {
			t.Result = &result.Bool
		}
		if mostSpent.Valid && mostSpent.String != "" {
			var spend model.MerchantSpend
			if err := json.Unmarshal([]byte(mostSpent.String), &spend); err != nil {
				return nil, fmt.Errorf("failed to unmarshal most spent: %w", err)
			}
			t.MostSpent = &spend
		}
		if mostFrequent.Valid && mostFrequent.String != "" {
			var freq model.MerchantFrequency
			if err := json.Unmarshal([]byte(mostFrequent.String), &freq); err != nil {
				return nil, fmt.Errorf("failed to unmarshal most frequent: %w", err)
			}
			t.MostFrequent = &freq
		}
		t.CreatedAt = createdAt.UTC()
		thresholds = append(thresholds, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate doojo thresholds: %w", err)
	}

	return thresholds, nil
}

// marshalNullable converts an optional struct pointer to a nullable
// JSON column value.
func marshalNullable[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
