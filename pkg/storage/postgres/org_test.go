package postgres_test

import (
	"context"
	"testing"

	"driveaudit/pkg/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPgSQL_StoreOrganization(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	stored, err := pgSQL.StoreOrganization(ctx, domain.Organization{
		ID:     domain.OrgID(uuid.New()),
		Domain: "acme.com",
		Plan:   domain.PlanPro,
	})
	require.NoError(t, err)
	require.Equal(t, "acme.com", stored.Domain)
	require.Equal(t, domain.PlanPro, stored.Plan)
	require.Zero(t, stored.TotalScans)
	require.False(t, stored.CreatedAt.IsZero())

	got, err := pgSQL.OrganizationByID(ctx, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, stored.ID, got.ID)

	missing, err := pgSQL.OrganizationByID(ctx, domain.OrgID(uuid.New()))
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestPgSQL_IncrementScanStats(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	org := storeTestOrg(t, pgSQL, domain.PlanFree)

	require.NoError(t, pgSQL.IncrementScanStats(ctx, org.ID, 120))
	require.NoError(t, pgSQL.IncrementScanStats(ctx, org.ID, 30))

	got, err := pgSQL.OrganizationByID(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.TotalScans)
	require.Equal(t, 2, got.ScansThisMonth)
	require.Equal(t, 150, got.TotalFilesScanned)
	require.False(t, got.UpdatedAt.IsZero())
}
