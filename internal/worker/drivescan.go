package worker

import (
	"context"
	"fmt"
	"time"

	"driveaudit/internal/auditor"
	"driveaudit/internal/pipeline"
	"driveaudit/pkg/domain"
	"driveaudit/pkg/drive"
	"driveaudit/pkg/logger"
	"driveaudit/pkg/storage"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// DriveScanWorker is the River worker that runs one single-account scan per
// job. The scanning pass is a forward-only traversal that cannot be resumed
// mid-phase, so every failure cancels the job instead of retrying it: the
// scan record carries the error and a new scan must be started explicitly.
type DriveScanWorker struct {
	river.WorkerDefaults[auditor.ScanJobArgs]

	storage  storage.Storage
	provider drive.CredentialProvider
	pipeline *pipeline.Pipeline
}

// NewDriveScanWorker constructs a DriveScanWorker.
func NewDriveScanWorker(strg storage.Storage,
	provider drive.CredentialProvider,
	pipe *pipeline.Pipeline) *DriveScanWorker {
	return &DriveScanWorker{
		storage:  strg,
		provider: provider,
		pipeline: pipe,
	}
}

// Work executes a single scan job end to end.
func (w *DriveScanWorker) Work(ctx context.Context, job *river.Job[auditor.ScanJobArgs]) error {
	ctx = logger.WithFields(ctx,
		zap.Int64("jobID", job.ID),
		zap.String("scanID", job.Args.ScanID),
		zap.String("subject", job.Args.Subject))

	scanUUID, err := uuid.Parse(job.Args.ScanID)
	if err != nil {
		return river.JobCancel(fmt.Errorf("malformed scan id: %w", err)) //nolint: wrapcheck
	}
	orgUUID, err := uuid.Parse(job.Args.OrgID)
	if err != nil {
		return river.JobCancel(fmt.Errorf("malformed organization id: %w", err)) //nolint: wrapcheck
	}
	scanID := domain.ScanID(scanUUID)
	orgID := domain.OrgID(orgUUID)

	scan, err := w.storage.ScanByID(ctx, orgID, scanID)
	if err != nil {
		return fmt.Errorf("could not load scan: %w", err)
	}
	if scan == nil {
		return river.JobCancel(fmt.Errorf("scan %s not found", scanID)) //nolint: wrapcheck
	}
	if scan.Status != domain.ScanStatusRunning {
		// already swept as timed out or otherwise finished; nothing to do
		logger.Warn(ctx, "skipping scan in terminal status", zap.String("status", string(scan.Status)))

		return nil
	}

	org, err := w.storage.OrganizationByID(ctx, orgID)
	if err != nil {
		return fmt.Errorf("could not load organization: %w", err)
	}
	if org == nil {
		return river.JobCancel(w.failScan(ctx, scanID, fmt.Errorf("organization %s not found", orgID))) //nolint: wrapcheck
	}

	client, err := w.provider.ClientFor(ctx, job.Args.Subject)
	if err != nil {
		return river.JobCancel(w.failScan(ctx, scanID, //nolint: wrapcheck
			fmt.Errorf("could not build delegated client: %w", err)))
	}

	if _, err := w.pipeline.Run(ctx, client, *scan, *org); err != nil {
		// the pipeline already marked the scan failed with the message
		return river.JobCancel(err) //nolint: wrapcheck
	}

	return nil
}

// failScan records the error on the scan before the job is cancelled. It
// returns the original cause so it can be handed to river.JobCancel.
func (w *DriveScanWorker) failScan(ctx context.Context, scanID domain.ScanID, cause error) error {
	msg := cause.Error()
	now := time.Now()
	if _, err := w.storage.UpdateScanByID(ctx, scanID, storage.ScanUpdates{
		Status:       domain.ScanStatusFailed,
		ErrorMessage: &msg,
		CompletedAt:  &now,
	}); err != nil {
		logger.Warn(ctx, "could not mark scan failed", zap.Error(err))
	}

	return cause
}
