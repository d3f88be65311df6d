package storage

import (
	"context"

	"driveaudit/pkg/domain"
)

// ScanFileBatchSize bounds how many scored items a single batched write may
// carry, matching the sink's per-write capacity.
const ScanFileBatchSize = 500

// ScanFiles groups a page of scored items together with an optional
// NextCursor (the last file id of the page) used for pagination.
type ScanFiles struct {
	Files []domain.ScanFile
	// NextCursor is the file id to pass as the cursor for the next page. It is
	// nil when there is no next page.
	NextCursor *string
}

// ScanFileStorage persists and queries the scored items produced by scans.
// Rows are keyed by (scan_id, file_id): batches persisted by a failed scan
// are never rolled back, and a retried scan writes under a fresh scan id.
type ScanFileStorage interface {
	// StoreScanFiles inserts the given scored items. Callers pass at most
	// ScanFileBatchSize items per call.
	StoreScanFiles(ctx context.Context, files ...domain.ScanFile) error
	// ScanFilesByScanID returns a page of scored items for a scan ordered by
	// file id, starting after the optional cursor.
	ScanFilesByScanID(ctx context.Context, scanID domain.ScanID, cursor string, limit uint) (ScanFiles, error)
}
