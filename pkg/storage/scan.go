package storage

import (
	"context"
	"time"

	"driveaudit/pkg/domain"
)

// ScanUpdates describes a set of optional fields that can be applied to an
// existing scan during an update. Only non-zero/non-nil fields are applied;
// updated_at is always set.
type ScanUpdates struct {
	// Status, when non-empty, is the new lifecycle status to set.
	Status domain.ScanStatus
	// Phase, when non-empty, is the new pipeline phase to set.
	Phase domain.ScanPhase
	// TotalFiles, when provided, sets the counting-phase denominator.
	TotalFiles *int
	// ProcessedFiles, when provided, sets the scanning-phase progress counter.
	// Callers are responsible for keeping it monotonic.
	ProcessedFiles *int
	// RiskySummary, when provided, replaces the per-level counters.
	RiskySummary *domain.RiskySummary
	// ErrorMessage, when provided, sets the failure message. An empty string
	// clears it (sets NULL).
	ErrorMessage *string
	// CompletedAt, when provided, records when the scan reached a terminal
	// status.
	CompletedAt *time.Time
}

// OrgScans groups a page of scans returned for an organization together with
// an optional NextCursor used for pagination.
type OrgScans struct {
	// Scans contains the current page of scan records.
	Scans []domain.Scan
	// NextCursor points to the timestamp to be used as the cursor for fetching
	// the next page. It is nil when there is no next page.
	NextCursor *time.Time
}

// ScanStorage defines CRUD and query operations related to scans.
type ScanStorage interface {
	// StoreScan inserts a scan and returns the stored row as it exists in the
	// database (including generated fields).
	StoreScan(ctx context.Context, scan domain.Scan) (*domain.Scan, error)
	// UpdateScanByID updates a single scan identified by its ID and returns the
	// updated row, or nil when the scan does not exist. Only provided fields
	// are changed; updated_at is set automatically.
	UpdateScanByID(ctx context.Context, id domain.ScanID, updates ScanUpdates) (*domain.Scan, error)
	// ScanByID fetches a scan by its ID for the given organization. Returns nil
	// when not found.
	ScanByID(ctx context.Context, orgID domain.OrgID, id domain.ScanID) (*domain.Scan, error)
	// OrgScans returns a page of scans for an organization created before the
	// optional cursor time, newest first, limited by the given limit.
	OrgScans(ctx context.Context, orgID domain.OrgID, cursor time.Time, limit uint) (OrgScans, error)
	// MarkStaleScansFailed reclassifies every scan of the organization that is
	// still RUNNING but started more than olderThan ago as FAILED with the
	// given message. It returns the number of reclassified scans. This is the
	// lazy timeout sweep; it runs only when scan history is read, never from a
	// standing timer.
	MarkStaleScansFailed(ctx context.Context,
		orgID domain.OrgID,
		olderThan time.Duration,
		message string) (int64, error)
}
