package storage

import (
	"context"

	"driveaudit/pkg/domain"
)

// OrganizationStorage reads tenants and maintains their running aggregate
// counters.
type OrganizationStorage interface {
	// StoreOrganization inserts an organization and returns the stored row.
	StoreOrganization(ctx context.Context, org domain.Organization) (*domain.Organization, error)
	// OrganizationByID fetches an organization by id. Returns nil when not found.
	OrganizationByID(ctx context.Context, id domain.OrgID) (*domain.Organization, error)
	// IncrementScanStats bumps the organization's counters after a successful
	// scan completion: total scans +1, scans this month +1, and cumulative
	// files scanned +filesScanned.
	IncrementScanStats(ctx context.Context, id domain.OrgID, filesScanned int) error
}
