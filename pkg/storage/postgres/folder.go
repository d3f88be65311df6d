package postgres

import (
	"context"
	"fmt"

	"driveaudit/pkg/domain"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const folderSummariesTable = "folder_summaries"

// UpsertFolderSummaries inserts or replaces per-folder aggregates. Summaries
// are recomputed whole from the item set, so conflicting rows are simply
// overwritten.
func (p *PgSQL) UpsertFolderSummaries(ctx context.Context, summaries ...domain.FolderSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	pgSummaries := make([]PgFolderSummary, len(summaries))
	for i := range pgSummaries {
		if err := pgSummaries[i].FromDomain(summaries[i]); err != nil {
			return err
		}
	}

	if _, err := p.Builder.Insert(folderSummariesTable).
		Rows(pgSummaries).
		OnConflict(goqu.DoUpdate("scan_id, folder_id", goqu.Record{
			"folder_name": goqu.L("EXCLUDED.folder_name"),
			"file_count":  goqu.L("EXCLUDED.file_count"),
			"counts":      goqu.L("EXCLUDED.counts"),
			"mean_score":  goqu.L("EXCLUDED.mean_score"),
		})).
		Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("could not upsert folder summaries into pg: %w", err)
	}

	return nil
}

// FolderSummariesByScanID returns all summaries recorded for a scan ordered
// by folder id.
func (p *PgSQL) FolderSummariesByScanID(ctx context.Context,
	scanID domain.ScanID) ([]domain.FolderSummary, error) {
	var rows []PgFolderSummary
	if err := p.Builder.From(folderSummariesTable).
		Where(goqu.I("scan_id").Eq(uuid.UUID(scanID))).
		Order(goqu.I("folder_id").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch folder summaries from pg: %w", err)
	}

	out := make([]domain.FolderSummary, 0, len(rows))
	for _, row := range rows {
		d, err := row.ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}

	return out, nil
}
