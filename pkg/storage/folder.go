package storage

import (
	"context"

	"driveaudit/pkg/domain"
)

// FolderSummaryStorage persists per-folder aggregates. Summaries are fully
// recomputable from the scanned items, so writes are idempotent upserts
// keyed by (scan_id, folder_id).
type FolderSummaryStorage interface {
	// UpsertFolderSummaries inserts or replaces the given summaries.
	UpsertFolderSummaries(ctx context.Context, summaries ...domain.FolderSummary) error
	// FolderSummariesByScanID returns all summaries recorded for a scan.
	FolderSummariesByScanID(ctx context.Context, scanID domain.ScanID) ([]domain.FolderSummary, error)
}
