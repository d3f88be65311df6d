package auditor

import (
	"context"

	"driveaudit/pkg/domain"
)

// Auditor is the application service behind the HTTP surface. It owns the
// plan checks and ownership checks; the heavy lifting is delegated to the
// pipeline (via background jobs) and the orchestrator.
type Auditor interface {
	// StartScan validates plan limits and delegated access, records a new scan
	// and enqueues the background job that runs it.
	StartScan(ctx context.Context, orgID domain.OrgID, subject string) (*domain.Scan, error)
	// ScanStatus fetches one scan owned by the organization.
	ScanStatus(ctx context.Context, orgID domain.OrgID, scanID domain.ScanID) (*domain.Scan, error)
	// ListScans returns a page of the organization's scans, newest first. It
	// also performs the lazy timeout sweep over stuck RUNNING scans.
	ListScans(ctx context.Context, orgID domain.OrgID, cursor string, limit uint) ([]domain.Scan, string, error)
	// ListScanFiles returns a page of scored items for one of the
	// organization's scans, ordered by file id.
	ListScanFiles(ctx context.Context,
		orgID domain.OrgID,
		scanID domain.ScanID,
		cursor string,
		limit uint) ([]domain.ScanFile, string, error)

	// StartIntegratedScan creates a multi-account job over the given target
	// users and starts driving it.
	StartIntegratedScan(ctx context.Context,
		orgID domain.OrgID,
		targetUsers []string) (*domain.IntegratedScanJob, error)
	// IntegratedScanStatus fetches one job owned by the organization, resuming
	// its driving loop when none is running locally.
	IntegratedScanStatus(ctx context.Context,
		orgID domain.OrgID,
		jobID domain.JobID) (*domain.IntegratedScanJob, error)
	// CancelIntegratedScan requests cooperative cancellation of a job owned by
	// the organization.
	CancelIntegratedScan(ctx context.Context,
		orgID domain.OrgID,
		jobID domain.JobID) (*domain.IntegratedScanJob, error)
}
