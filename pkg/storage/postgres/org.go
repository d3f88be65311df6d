package postgres

import (
	"context"
	"fmt"

	"driveaudit/pkg/domain"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const organizationsTable = "organizations"

// StoreOrganization inserts an organization and returns the stored row.
func (p *PgSQL) StoreOrganization(ctx context.Context,
	org domain.Organization) (*domain.Organization, error) {
	var pgOrg PgOrganization
	pgOrg.FromDomain(org)

	var row PgOrganization
	found, err := p.Builder.Insert(organizationsTable).
		Rows(pgOrg).
		Returning(&PgOrganization{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not store organization into pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("insert into %s returned no row", organizationsTable)
	}

	return row.ToDomain(), nil
}

// OrganizationByID fetches an organization by id. Returns nil when not found.
func (p *PgSQL) OrganizationByID(ctx context.Context, id domain.OrgID) (*domain.Organization, error) {
	var row PgOrganization
	found, err := p.Builder.From(organizationsTable).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch organization by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// IncrementScanStats bumps the organization's running counters after a
// successful scan completion.
func (p *PgSQL) IncrementScanStats(ctx context.Context, id domain.OrgID, filesScanned int) error {
	_, err := p.Builder.Update(organizationsTable).
		Set(goqu.Record{
			"total_scans":         goqu.L("total_scans + 1"),
			"scans_this_month":    goqu.L("scans_this_month + 1"),
			"total_files_scanned": goqu.L("total_files_scanned + ?", filesScanned),
			"updated_at":          goqu.L("CURRENT_TIMESTAMP"),
		}).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not increment organization scan stats in pg: %w", err)
	}

	return nil
}
