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

// CreateJob records a new analysis job in pending state.
func (s *SQLiteStorage) CreateJob(ctx context.Context, job *model.AnalysisJob) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: job", ErrNilParameter)
	}
	if err := validateString(job.JobID, "job.JobID"); err != nil {
		return err
	}
	if err := validateString(job.FileID, "job.FileID"); err != nil {
		return err
	}

	metadata, err := marshalMetadata(job.Metadata)
	if err != nil {
		return err
	}

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_jobs (job_id, file_id, status, error_message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		job.JobID,
		job.FileID,
		string(job.Status),
		job.ErrorMessage,
		metadata,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// CompleteJob marks a job finished with its final status. Metadata
// passed here is merged over whatever the job already carries.
func (s *SQLiteStorage) CompleteJob(ctx context.Context, jobID string, status model.JobStatus, errorMessage string, metadata map[string]any) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return err
	}

	if len(metadata) > 0 {
		if err := s.AppendJobMetadata(ctx, jobID, metadata); err != nil {
			return err
		}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE analysis_jobs
		SET status = ?, error_message = ?, completed_at = ?
		WHERE job_id = ?
	`, string(status), errorMessage, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check job update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s: %w", jobID, common.ErrNotFound)
	}
	return nil
}

// AppendJobMetadata merges diagnostic keys into the job's metadata
// without touching its status. The background phase uses this to attach
// baseline results to an already completed job.
func (s *SQLiteStorage) AppendJobMetadata(ctx context.Context, jobID string, metadata map[string]any) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return err
	}
	if len(metadata) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT metadata FROM analysis_jobs WHERE job_id = ?", jobID,
	).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("job %s: %w", jobID, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read job metadata: %w", err)
	}

	merged := make(map[string]any)
	if existing.Valid && existing.String != "" {
		if err := json.Unmarshal([]byte(existing.String), &merged); err != nil {
			return fmt.Errorf("failed to unmarshal job metadata: %w", err)
		}
	}
	for k, v := range metadata {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal job metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE analysis_jobs SET metadata = ? WHERE job_id = ?", string(data), jobID,
	); err != nil {
		return fmt.Errorf("failed to update job metadata: %w", err)
	}

	return tx.Commit()
}

// GetJob returns a job by its ID, or common.ErrNotFound.
func (s *SQLiteStorage) GetJob(ctx context.Context, jobID string) (*model.AnalysisJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return nil, err
	}
	return s.queryJob(ctx, "WHERE job_id = ?", jobID)
}

// GetLatestJob returns the most recently created job for a file, or
// common.ErrNotFound when the file has never been analyzed.
func (s *SQLiteStorage) GetLatestJob(ctx context.Context, fileID string) (*model.AnalysisJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fileID, "fileID"); err != nil {
		return nil, err
	}
	return s.queryJob(ctx, "WHERE file_id = ? ORDER BY created_at DESC, id DESC LIMIT 1", fileID)
}

func (s *SQLiteStorage) queryJob(ctx context.Context, where string, arg any) (*model.AnalysisJob, error) {
	var job model.AnalysisJob
	var status string
	var errorMessage, metadata sql.NullString
	var createdAt time.Time
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT job_id, file_id, status, error_message, metadata, created_at, completed_at
		FROM analysis_jobs `+where,
		arg,
	).Scan(&job.JobID, &job.FileID, &status, &errorMessage, &metadata, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis job: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job: %w", err)
	}

	job.Status = model.JobStatus(status)
	job.ErrorMessage = errorMessage.String
	job.CreatedAt = createdAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &job.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job metadata: %w", err)
		}
	}

	return &job, nil
}

func marshalMetadata(metadata map[string]any) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job metadata: %w", err)
	}
	return string(data), nil
}
