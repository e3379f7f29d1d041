package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leakwatch/leakwatch/internal/model"
)

// TryAcquire flips a file's shared status from idle to analyzing in a
// single atomic statement. It returns false when another analysis is
// already in flight. Files never seen before count as idle.
func (s *SQLiteStorage) TryAcquire(ctx context.Context, fileID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(fileID, "fileID"); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_status (file_id, status, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at
		WHERE analysis_status.status = ?
	`,
		fileID,
		string(model.StatusAnalyzing),
		time.Now().UTC(),
		string(model.StatusIdle),
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire analysis status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check acquire result: %w", err)
	}
	return affected > 0, nil
}

// Release returns a file's shared status to idle. Releasing an already
// idle file is harmless.
func (s *SQLiteStorage) Release(ctx context.Context, fileID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fileID, "fileID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_status (file_id, status, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at
	`,
		fileID,
		string(model.StatusIdle),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to release analysis status: %w", err)
	}
	return nil
}

// Get returns a file's shared analysis status. Unknown files are idle.
func (s *SQLiteStorage) Get(ctx context.Context, fileID string) (model.AnalysisStatus, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(fileID, "fileID"); err != nil {
		return "", err
	}

	var status string
	err := s.db.QueryRowContext(ctx,
		"SELECT status FROM analysis_status WHERE file_id = ?", fileID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StatusIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query analysis status: %w", err)
	}
	return model.AnalysisStatus(status), nil
}
