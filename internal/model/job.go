package model

import "time"

// JobStatus enumerates the lifecycle states of an analysis job.
type JobStatus string

const (
	// JobPending means the job has been created but Phase 1 has not finished.
	JobPending JobStatus = "pending"
	// JobCompleted means Phase 1 finished successfully.
	JobCompleted JobStatus = "completed"
	// JobFailed means Phase 1 aborted with an error.
	JobFailed JobStatus = "failed"
)

// AnalysisStatus is the shared ephemeral status value per file; it is
// the coarse single-flight lock for the whole pipeline.
type AnalysisStatus string

const (
	// StatusIdle means no analysis is in flight for the file.
	StatusIdle AnalysisStatus = "idle"
	// StatusAnalyzing means an analysis (either phase) is in flight.
	StatusAnalyzing AnalysisStatus = "analyzing"
)

// AnalysisJob records one invocation of the analysis pipeline.
// Rows are immutable history apart from the metadata diagnostic slot,
// which the background phase appends to.
type AnalysisJob struct {
	CreatedAt    time.Time
	CompletedAt  *time.Time
	Metadata     map[string]any
	JobID        string
	FileID       string
	Status       JobStatus
	ErrorMessage string
}
