package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"driveaudit/pkg/domain"
	"driveaudit/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const scansTable = "scans"

// StoreScan inserts a scan and returns the stored row.
func (p *PgSQL) StoreScan(ctx context.Context, scan domain.Scan) (*domain.Scan, error) {
	var pgScan PgScan
	if err := pgScan.FromDomain(scan); err != nil {
		return nil, err
	}

	var row PgScan
	found, err := p.Builder.Insert(scansTable).
		Rows(pgScan).
		Returning(&PgScan{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not store scan into pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("insert into %s returned no row", scansTable)
	}

	return row.ToDomain()
}

// UpdateScanByID applies the provided fields to a single scan and returns the
// updated row, or nil when the scan does not exist. updated_at is always set.
func (p *PgSQL) UpdateScanByID(ctx context.Context,
	id domain.ScanID,
	updates storage.ScanUpdates) (*domain.Scan, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
	}
	if updates.Status != "" {
		rec["status"] = string(updates.Status)
	}
	if updates.Phase != "" {
		rec["phase"] = string(updates.Phase)
	}
	if updates.TotalFiles != nil {
		rec["total_files"] = *updates.TotalFiles
	}
	if updates.ProcessedFiles != nil {
		rec["processed_files"] = *updates.ProcessedFiles
	}
	if updates.RiskySummary != nil {
		b, err := json.Marshal(updates.RiskySummary)
		if err != nil {
			return nil, fmt.Errorf("could not marshal risky summary: %w", err)
		}
		rec["risky_summary"] = b
	}
	if updates.ErrorMessage != nil {
		if *updates.ErrorMessage == "" {
			rec["error_message"] = goqu.L("NULL")
		} else {
			rec["error_message"] = *updates.ErrorMessage
		}
	}
	if updates.CompletedAt != nil {
		rec["completed_at"] = *updates.CompletedAt
	}

	var row PgScan
	found, err := p.Builder.Update(scansTable).
		Set(rec).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Returning(&PgScan{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update scan in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// ScanByID returns a scan by id scoped to the organization.
func (p *PgSQL) ScanByID(ctx context.Context, orgID domain.OrgID, id domain.ScanID) (*domain.Scan, error) {
	var row PgScan
	found, err := p.Builder.From(scansTable).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("org_id").Eq(uuid.UUID(orgID)),
		).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch scan by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// OrgScans returns a page of an organization's scans ordered by created_at
// DESC, id DESC, starting before the optional cursor.
func (p *PgSQL) OrgScans(ctx context.Context,
	orgID domain.OrgID,
	cursor time.Time,
	limit uint) (storage.OrgScans, error) {
	w := []goqu.Expression{
		goqu.I("org_id").Eq(uuid.UUID(orgID)),
	}
	if !cursor.IsZero() {
		w = append(w, goqu.I("created_at").Lt(cursor))
	}

	// fetch one extra to determine if there is a next page
	fetch := limit + 1
	ds := p.Builder.From(scansTable).
		Where(w...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(fetch)

	var rows []PgScan
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.OrgScans{}, fmt.Errorf("could not fetch organization scans from pg: %w", err)
	}

	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		trimmed := rows[:limit]
		nextCursor = &trimmed[len(trimmed)-1].CreatedAt
		rows = trimmed
	}

	domainRows, err := pgScansToDomain(rows)
	if err != nil {
		return storage.OrgScans{}, err
	}

	return storage.OrgScans{
		Scans:      domainRows,
		NextCursor: nextCursor,
	}, nil
}

// MarkStaleScansFailed reclassifies RUNNING scans of the organization older
// than the given bound as FAILED with the given message, in one statement.
func (p *PgSQL) MarkStaleScansFailed(ctx context.Context,
	orgID domain.OrgID,
	olderThan time.Duration,
	message string) (int64, error) {
	res, err := p.Builder.Update(scansTable).
		Set(goqu.Record{
			"status":        string(domain.ScanStatusFailed),
			"error_message": message,
			"completed_at":  goqu.L("CURRENT_TIMESTAMP"),
			"updated_at":    goqu.L("CURRENT_TIMESTAMP"),
		}).
		Where(
			goqu.I("org_id").Eq(uuid.UUID(orgID)),
			goqu.I("status").Eq(string(domain.ScanStatusRunning)),
			goqu.I("started_at").Lt(time.Now().Add(-olderThan)),
		).
		Executor().ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not mark stale scans failed in pg: %w", err)
	}

	swept, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not read affected rows: %w", err)
	}

	return swept, nil
}
