package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"driveaudit/pkg/domain"
	"driveaudit/pkg/storage/postgres"

	"github.com/stretchr/testify/require"
)

func newTestScanFile(scanID domain.ScanID, fileID string) domain.ScanFile {
	return domain.ScanFile{
		ScanID:     scanID,
		FileID:     fileID,
		Name:       "budget.xlsx",
		MimeType:   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Size:       2048,
		OwnerEmail: "user@acme.com",
		Shared:     true,
		FolderID:   "folder-1",
		FolderName: "Finance",
		ModifiedAt: time.Now().UTC().Truncate(time.Second),
		ACL: []domain.ACLEntry{
			{ID: "perm-1", Type: domain.PrincipalAnyone, Role: domain.RoleReader},
			{ID: "perm-2", Type: domain.PrincipalUser, Role: domain.RoleWriter, Email: "ext@other.com"},
		},
		Assessment: domain.RiskAssessment{
			Score: 75,
			Level: domain.RiskLevelHigh,
			Issues: []domain.Issue{
				{Type: domain.IssuePublicSharing, Severity: domain.SeverityCritical, Points: 40},
			},
			Recommendations: []string{"Remove the public link"},
		},
	}
}

func seedScanRow(t *testing.T, pgSQL *postgres.PgSQL, org domain.Organization) domain.Scan {
	t.Helper()

	stored, err := pgSQL.StoreScan(context.Background(), newTestScan(org))
	require.NoError(t, err)

	return *stored
}

func TestPgSQL_StoreScanFiles_RoundTrip(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	org := storeTestOrg(t, pgSQL, domain.PlanFree)
	scan := seedScanRow(t, pgSQL, org)

	file := newTestScanFile(scan.ID, "file-1")
	require.NoError(t, pgSQL.StoreScanFiles(ctx, file))

	page, err := pgSQL.ScanFilesByScanID(ctx, scan.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Files, 1)
	require.Nil(t, page.NextCursor)

	got := page.Files[0]
	require.Equal(t, file.FileID, got.FileID)
	require.Equal(t, file.Name, got.Name)
	require.Equal(t, file.FolderName, got.FolderName)
	require.Equal(t, file.ACL, got.ACL)
	require.Equal(t, file.Assessment, got.Assessment)
	require.False(t, got.CreatedAt.IsZero())
}

func TestPgSQL_StoreScanFiles_EmptyBatchIsNoop(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)

	require.NoError(t, pgSQL.StoreScanFiles(context.Background()))
}

func TestPgSQL_ScanFilesByScanID_Pagination(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	org := storeTestOrg(t, pgSQL, domain.PlanFree)
	scan := seedScanRow(t, pgSQL, org)
	otherScan := seedScanRow(t, pgSQL, org)

	files := make([]domain.ScanFile, 0, 5)
	for i := range 5 {
		files = append(files, newTestScanFile(scan.ID, fmt.Sprintf("file-%d", i)))
	}
	require.NoError(t, pgSQL.StoreScanFiles(ctx, files...))
	require.NoError(t, pgSQL.StoreScanFiles(ctx, newTestScanFile(otherScan.ID, "file-0")))

	p1, err := pgSQL.ScanFilesByScanID(ctx, scan.ID, "", 2)
	require.NoError(t, err)
	require.Len(t, p1.Files, 2)
	require.NotNil(t, p1.NextCursor)
	require.Equal(t, "file-0", p1.Files[0].FileID)
	require.Equal(t, "file-1", p1.Files[1].FileID)

	p2, err := pgSQL.ScanFilesByScanID(ctx, scan.ID, *p1.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, p2.Files, 2)
	require.NotNil(t, p2.NextCursor)

	p3, err := pgSQL.ScanFilesByScanID(ctx, scan.ID, *p2.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, p3.Files, 1)
	require.Nil(t, p3.NextCursor)
	require.Equal(t, "file-4", p3.Files[0].FileID)
}

func TestPgSQL_UpsertFolderSummaries(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	org := storeTestOrg(t, pgSQL, domain.PlanFree)
	scan := seedScanRow(t, pgSQL, org)

	first := domain.FolderSummary{
		ScanID:     scan.ID,
		FolderID:   "folder-1",
		FolderName: "Finance",
		FileCount:  3,
		Counts:     domain.RiskySummary{High: 1, Low: 2},
		MeanScore:  30,
	}
	require.NoError(t, pgSQL.UpsertFolderSummaries(ctx, first))

	// a recomputed summary replaces the stored row
	second := first
	second.FileCount = 5
	second.Counts = domain.RiskySummary{Critical: 1, High: 1, Low: 3}
	second.MeanScore = 41
	require.NoError(t, pgSQL.UpsertFolderSummaries(ctx, second))

	got, err := pgSQL.FolderSummariesByScanID(ctx, scan.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, second, got[0])
}
