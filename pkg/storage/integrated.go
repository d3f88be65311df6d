package storage

import (
	"context"
	"time"

	"driveaudit/pkg/domain"
)

// JobUpdates describes optional fields applied to an integrated scan job.
// Updates are whole-document read-modify-write with no optimistic-concurrency
// check: concurrent writers race with last-write-wins semantics, accepted
// under the single-active-worker design.
type JobUpdates struct {
	// Status, when non-empty, is the new job status to set.
	Status domain.JobStatus
	// UserResults, when provided, replaces the whole per-account result list.
	UserResults []domain.UserScanResult
	// LastProcessedUserIndex, when provided, advances the durable checkpoint.
	LastProcessedUserIndex *int
	// ProcessedUsers, when provided, sets the terminal-result count.
	ProcessedUsers *int
	// CurrentUserEmail, when provided, records the account being scanned. An
	// empty string clears it.
	CurrentUserEmail *string
	// TotalRiskySummary and TotalFilesScanned, when provided, replace the
	// cross-account accumulators.
	TotalRiskySummary *domain.RiskySummary
	TotalFilesScanned *int
	// StartedAt / CompletedAt, when provided, set the job timestamps.
	StartedAt   *time.Time
	CompletedAt *time.Time
	// ErrorMessage, when provided, records an unrecoverable setup error.
	ErrorMessage *string
}

// IntegratedJobStorage persists multi-account scan jobs and their durable
// checkpoints.
type IntegratedJobStorage interface {
	// StoreIntegratedJob inserts a job and returns the stored row.
	StoreIntegratedJob(ctx context.Context, job domain.IntegratedScanJob) (*domain.IntegratedScanJob, error)
	// IntegratedJobByID fetches a job by id. Returns nil when not found.
	IntegratedJobByID(ctx context.Context, id domain.JobID) (*domain.IntegratedScanJob, error)
	// UpdateIntegratedJobByID applies the given updates and returns the updated
	// row, or nil when the job does not exist.
	UpdateIntegratedJobByID(ctx context.Context,
		id domain.JobID,
		updates JobUpdates) (*domain.IntegratedScanJob, error)
}
