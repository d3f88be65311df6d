package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"driveaudit/pkg/domain"
	"driveaudit/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const integratedJobsTable = "integrated_jobs"

// StoreIntegratedJob inserts a job and returns the stored row.
func (p *PgSQL) StoreIntegratedJob(ctx context.Context,
	job domain.IntegratedScanJob) (*domain.IntegratedScanJob, error) {
	var pgJob PgIntegratedJob
	if err := pgJob.FromDomain(job); err != nil {
		return nil, err
	}

	var row PgIntegratedJob
	found, err := p.Builder.Insert(integratedJobsTable).
		Rows(pgJob).
		Returning(&PgIntegratedJob{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not store integrated job into pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("insert into %s returned no row", integratedJobsTable)
	}

	return row.ToDomain()
}

// IntegratedJobByID fetches a job by id. Returns nil when not found.
func (p *PgSQL) IntegratedJobByID(ctx context.Context,
	id domain.JobID) (*domain.IntegratedScanJob, error) {
	var row PgIntegratedJob
	found, err := p.Builder.From(integratedJobsTable).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch integrated job by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// UpdateIntegratedJobByID applies the provided fields to a job and returns
// the updated row, or nil when the job does not exist. There is no version
// check: concurrent writers race with last-write-wins semantics.
func (p *PgSQL) UpdateIntegratedJobByID(ctx context.Context,
	id domain.JobID,
	updates storage.JobUpdates) (*domain.IntegratedScanJob, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
	}
	if updates.Status != "" {
		rec["status"] = string(updates.Status)
	}
	if updates.UserResults != nil {
		b, err := json.Marshal(updates.UserResults)
		if err != nil {
			return nil, fmt.Errorf("could not marshal user results: %w", err)
		}
		rec["user_results"] = b
	}
	if updates.LastProcessedUserIndex != nil {
		rec["last_processed_user_index"] = *updates.LastProcessedUserIndex
	}
	if updates.ProcessedUsers != nil {
		rec["processed_users"] = *updates.ProcessedUsers
	}
	if updates.CurrentUserEmail != nil {
		if *updates.CurrentUserEmail == "" {
			rec["current_user_email"] = goqu.L("NULL")
		} else {
			rec["current_user_email"] = *updates.CurrentUserEmail
		}
	}
	if updates.TotalRiskySummary != nil {
		b, err := json.Marshal(updates.TotalRiskySummary)
		if err != nil {
			return nil, fmt.Errorf("could not marshal total risky summary: %w", err)
		}
		rec["total_risky_summary"] = b
	}
	if updates.TotalFilesScanned != nil {
		rec["total_files_scanned"] = *updates.TotalFilesScanned
	}
	if updates.StartedAt != nil {
		rec["started_at"] = *updates.StartedAt
	}
	if updates.CompletedAt != nil {
		rec["completed_at"] = *updates.CompletedAt
	}
	if updates.ErrorMessage != nil {
		if *updates.ErrorMessage == "" {
			rec["error_message"] = goqu.L("NULL")
		} else {
			rec["error_message"] = *updates.ErrorMessage
		}
	}

	var row PgIntegratedJob
	found, err := p.Builder.Update(integratedJobsTable).
		Set(rec).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Returning(&PgIntegratedJob{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update integrated job in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}
