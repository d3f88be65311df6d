package postgres

import (
	"context"
	"fmt"

	"driveaudit/pkg/domain"
	"driveaudit/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const scanFilesTable = "scan_files"

// StoreScanFiles inserts one batch of scored items. Callers keep batches at
// or under storage.ScanFileBatchSize.
func (p *PgSQL) StoreScanFiles(ctx context.Context, files ...domain.ScanFile) error {
	if len(files) == 0 {
		return nil
	}

	pgFiles, err := domainScanFilesToPg(files)
	if err != nil {
		return err
	}

	if _, err := p.Builder.Insert(scanFilesTable).
		Rows(pgFiles).
		Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("could not store scan files into pg: %w", err)
	}

	return nil
}

// ScanFilesByScanID returns a page of scored items ordered by file id,
// starting after the optional cursor.
func (p *PgSQL) ScanFilesByScanID(ctx context.Context,
	scanID domain.ScanID,
	cursor string,
	limit uint) (storage.ScanFiles, error) {
	w := []goqu.Expression{
		goqu.I("scan_id").Eq(uuid.UUID(scanID)),
	}
	if cursor != "" {
		w = append(w, goqu.I("file_id").Gt(cursor))
	}

	// fetch one extra to determine if there is a next page
	fetch := limit + 1
	ds := p.Builder.From(scanFilesTable).
		Where(w...).
		Order(goqu.I("file_id").Asc()).
		Limit(fetch)

	var rows []PgScanFile
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.ScanFiles{}, fmt.Errorf("could not fetch scan files from pg: %w", err)
	}

	var nextCursor *string
	if uint(len(rows)) > limit {
		trimmed := rows[:limit]
		nextCursor = &trimmed[len(trimmed)-1].FileID
		rows = trimmed
	}

	domainRows, err := pgScanFilesToDomain(rows)
	if err != nil {
		return storage.ScanFiles{}, err
	}

	return storage.ScanFiles{
		Files:      domainRows,
		NextCursor: nextCursor,
	}, nil
}
