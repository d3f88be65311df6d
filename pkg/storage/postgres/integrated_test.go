package postgres_test

import (
	"context"
	"testing"
	"time"

	"driveaudit/pkg/domain"
	"driveaudit/pkg/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestJob(org domain.Organization) domain.IntegratedScanJob {
	return domain.IntegratedScanJob{
		ID:          domain.JobID(uuid.New()),
		OrgID:       org.ID,
		Status:      domain.JobStatusRunning,
		TargetUsers: []string{"a@acme.com", "b@acme.com"},
		UserResults: []domain.UserScanResult{
			{Email: "a@acme.com", Status: domain.UserScanPending},
			{Email: "b@acme.com", Status: domain.UserScanPending},
		},
		LastProcessedUserIndex: -1,
		StartedAt:              time.Now().UTC(),
	}
}

func TestPgSQL_StoreIntegratedJob_RoundTrip(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	org := storeTestOrg(t, pgSQL, domain.PlanPro)

	stored, err := pgSQL.StoreIntegratedJob(ctx, newTestJob(org))
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusRunning, stored.Status)
	require.Equal(t, []string{"a@acme.com", "b@acme.com"}, stored.TargetUsers)
	require.Len(t, stored.UserResults, 2)
	require.Equal(t, -1, stored.LastProcessedUserIndex)
	require.Zero(t, stored.ProcessedUsers)
	require.Empty(t, stored.CurrentUserEmail)

	got, err := pgSQL.IntegratedJobByID(ctx, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, stored.UserResults, got.UserResults)

	missing, err := pgSQL.IntegratedJobByID(ctx, domain.JobID(uuid.New()))
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestPgSQL_UpdateIntegratedJobByID_CheckpointWrite(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	org := storeTestOrg(t, pgSQL, domain.PlanPro)
	stored, err := pgSQL.StoreIntegratedJob(ctx, newTestJob(org))
	require.NoError(t, err)

	// mark the first account running
	email := "a@acme.com"
	results := append([]domain.UserScanResult(nil), stored.UserResults...)
	results[0].Status = domain.UserScanRunning
	results[0].StartedAt = time.Now().UTC()
	updated, err := pgSQL.UpdateIntegratedJobByID(ctx, stored.ID, storage.JobUpdates{
		UserResults:      results,
		CurrentUserEmail: &email,
	})
	require.NoError(t, err)
	require.Equal(t, email, updated.CurrentUserEmail)
	require.Equal(t, domain.UserScanRunning, updated.UserResults[0].Status)

	// the single durable checkpoint write
	scanID := domain.ScanID(uuid.New())
	results[0].Status = domain.UserScanCompleted
	results[0].ScanID = &scanID
	results[0].FilesScanned = 12
	results[0].RiskySummary = domain.RiskySummary{High: 2, Low: 10}
	checkpoint := 0
	processed := 1
	files := 12
	totals := domain.RiskySummary{High: 2, Low: 10}
	empty := ""
	advanced, err := pgSQL.UpdateIntegratedJobByID(ctx, stored.ID, storage.JobUpdates{
		UserResults:            results,
		LastProcessedUserIndex: &checkpoint,
		ProcessedUsers:         &processed,
		CurrentUserEmail:       &empty,
		TotalRiskySummary:      &totals,
		TotalFilesScanned:      &files,
	})
	require.NoError(t, err)
	require.Equal(t, 0, advanced.LastProcessedUserIndex)
	require.Equal(t, 1, advanced.ProcessedUsers)
	require.Empty(t, advanced.CurrentUserEmail)
	require.Equal(t, totals, advanced.TotalRiskySummary)
	require.Equal(t, 12, advanced.TotalFilesScanned)
	require.Equal(t, &scanID, advanced.UserResults[0].ScanID)

	// terminal transition
	now := time.Now().UTC()
	done, err := pgSQL.UpdateIntegratedJobByID(ctx, stored.ID, storage.JobUpdates{
		Status:      domain.JobStatusCompleted,
		CompletedAt: &now,
	})
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusCompleted, done.Status)
	require.False(t, done.CompletedAt.IsZero())

	// unknown id yields nil, not an error
	missing, err := pgSQL.UpdateIntegratedJobByID(ctx, domain.JobID(uuid.New()), storage.JobUpdates{
		Status: domain.JobStatusFailed,
	})
	require.NoError(t, err)
	require.Nil(t, missing)
}
