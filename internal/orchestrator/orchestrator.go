// Package orchestrator drives integrated multi-account scan jobs: one
// single-account pipeline per target user, strictly sequential, with a
// durable per-account checkpoint so a job survives process restarts. A
// process-local registry keeps one driving loop per job; resumption is
// lazy, triggered by any status read of a running job with no local loop.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"driveaudit/internal/pipeline"
	"driveaudit/pkg/domain"
	"driveaudit/pkg/drive"
	"driveaudit/pkg/logger"
	"driveaudit/pkg/serrors"
	"driveaudit/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orchestrator advances integrated scan jobs. One instance is shared by the
// whole process; its registry is what keeps a job single-driven locally.
type Orchestrator struct {
	storage  storage.Storage
	provider drive.CredentialProvider
	pipeline *pipeline.Pipeline
	registry *Registry
}

// New creates an Orchestrator with an empty active-job registry.
func New(strg storage.Storage, provider drive.CredentialProvider, pipe *pipeline.Pipeline) *Orchestrator {
	return &Orchestrator{
		storage:  strg,
		provider: provider,
		pipeline: pipe,
		registry: NewRegistry(),
	}
}

// Start creates a job over the given target accounts and begins driving it
// in the background. The target list is fixed at creation; results are kept
// in a parallel list, all pending.
func (o *Orchestrator) Start(ctx context.Context,
	org domain.Organization,
	targetUsers []string) (*domain.IntegratedScanJob, error) {
	if len(targetUsers) == 0 {
		return nil, serrors.With(serrors.ErrBadRequest, "target user list is empty")
	}

	results := make([]domain.UserScanResult, len(targetUsers))
	for i, email := range targetUsers {
		results[i] = domain.UserScanResult{Email: email, Status: domain.UserScanPending}
	}

	now := time.Now()
	job := domain.IntegratedScanJob{
		ID:                     domain.JobID(uuid.New()),
		OrgID:                  org.ID,
		Status:                 domain.JobStatusRunning,
		TargetUsers:            targetUsers,
		UserResults:            results,
		LastProcessedUserIndex: -1,
		StartedAt:              now,
	}

	stored, err := o.storage.StoreIntegratedJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("could not store integrated job: %w", err)
	}

	o.launchLoop(ctx, stored.ID)

	return stored, nil
}

// Status returns the job's current state. Reading a RUNNING job that no
// local loop is driving transparently starts one, which is how jobs recover
// from a process crash without an external scheduler.
func (o *Orchestrator) Status(ctx context.Context, id domain.JobID) (*domain.IntegratedScanJob, error) {
	job, err := o.storage.IntegratedJobByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not load integrated job: %w", err)
	}
	if job == nil {
		return nil, serrors.With(serrors.ErrNotFound, "integrated job %s not found", id)
	}

	if job.Status == domain.JobStatusRunning && !o.registry.Active(id) {
		logger.Info(ctx, "resuming integrated job",
			zap.String("jobID", id.String()),
			zap.Int("checkpoint", job.LastProcessedUserIndex))
		o.launchLoop(ctx, id)
	}

	return job, nil
}

// Cancel marks the job cancelled. Cancellation is cooperative: the driving
// loop observes it at the next step boundary, and an in-flight per-account
// pipeline runs to its own completion with its result discarded. Cancelling
// an already-terminal job returns it unchanged.
func (o *Orchestrator) Cancel(ctx context.Context, id domain.JobID) (*domain.IntegratedScanJob, error) {
	job, err := o.storage.IntegratedJobByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not load integrated job: %w", err)
	}
	if job == nil {
		return nil, serrors.With(serrors.ErrNotFound, "integrated job %s not found", id)
	}
	if job.Status.Terminal() {
		return job, nil
	}

	now := time.Now()
	empty := ""
	updated, err := o.storage.UpdateIntegratedJobByID(ctx, id, storage.JobUpdates{
		Status:           domain.JobStatusCancelled,
		CurrentUserEmail: &empty,
		CompletedAt:      &now,
	})
	if err != nil {
		return nil, fmt.Errorf("could not cancel integrated job: %w", err)
	}

	logger.Info(ctx, "integrated job cancelled", zap.String("jobID", id.String()))

	return updated, nil
}

// launchLoop registers the job and starts its driving loop unless another
// local loop already holds the registration. The loop is detached from the
// caller's cancellation so an HTTP request ending does not kill the job.
func (o *Orchestrator) launchLoop(ctx context.Context, id domain.JobID) {
	if !o.registry.TryAcquire(id) {
		return
	}

	loopCtx := logger.WithFields(context.WithoutCancel(ctx), zap.String("jobID", id.String()))

	go func() {
		defer o.registry.Release(id)

		for {
			done, err := o.Step(loopCtx, id)
			if err != nil {
				// leave the job RUNNING; the next status read resumes it
				logger.Error(loopCtx, "integrated job step failed", zap.Error(err))

				return
			}
			if done {
				return
			}
		}
	}()
}

// Step performs one unit of work: scan the account after the checkpoint and
// durably advance the checkpoint past it. It returns done=true when the job
// needs no further steps. Step is also callable directly, so the job can be
// driven by discrete external triggers instead of the in-process loop.
func (o *Orchestrator) Step(ctx context.Context, id domain.JobID) (bool, error) {
	job, err := o.storage.IntegratedJobByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("could not load integrated job: %w", err)
	}
	if job == nil {
		return true, serrors.With(serrors.ErrNotFound, "integrated job %s not found", id)
	}
	if job.Status.Terminal() {
		return true, nil
	}

	nextIndex := job.LastProcessedUserIndex + 1
	if nextIndex >= len(job.TargetUsers) {
		if err := o.complete(ctx, job); err != nil {
			return false, err
		}

		return true, nil
	}

	org, err := o.storage.OrganizationByID(ctx, job.OrgID)
	if err != nil {
		return false, fmt.Errorf("could not load organization: %w", err)
	}
	if org == nil {
		return true, o.failJob(ctx, job.ID, fmt.Sprintf("organization %s not found", job.OrgID))
	}

	email := job.TargetUsers[nextIndex]

	running := append([]domain.UserScanResult(nil), job.UserResults...)
	running[nextIndex].Status = domain.UserScanRunning
	running[nextIndex].StartedAt = time.Now()
	if _, err := o.storage.UpdateIntegratedJobByID(ctx, id, storage.JobUpdates{
		UserResults:      running,
		CurrentUserEmail: &email,
	}); err != nil {
		return false, fmt.Errorf("could not mark account running: %w", err)
	}

	result := o.runAccount(ctx, *org, email)

	// Reload before checkpointing: the job may have been cancelled while the
	// pipeline ran, in which case the result is discarded.
	fresh, err := o.storage.IntegratedJobByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("could not reload integrated job: %w", err)
	}
	if fresh == nil || fresh.Status.Terminal() {
		logger.Info(ctx, "discarding account result for terminal job",
			zap.String("subject", email))

		return true, nil
	}

	// The single durable write advancing the checkpoint. UserResults[i] is
	// terminal before LastProcessedUserIndex passes i, and checkpoint+1 always
	// equals ProcessedUsers.
	results := append([]domain.UserScanResult(nil), fresh.UserResults...)
	results[nextIndex] = result

	totals := fresh.TotalRiskySummary
	totals.Merge(result.RiskySummary)
	totalFiles := fresh.TotalFilesScanned + result.FilesScanned
	processed := nextIndex + 1
	empty := ""

	if _, err := o.storage.UpdateIntegratedJobByID(ctx, id, storage.JobUpdates{
		UserResults:            results,
		LastProcessedUserIndex: &nextIndex,
		ProcessedUsers:         &processed,
		CurrentUserEmail:       &empty,
		TotalRiskySummary:      &totals,
		TotalFilesScanned:      &totalFiles,
	}); err != nil {
		return false, fmt.Errorf("could not advance job checkpoint: %w", err)
	}

	logger.Info(ctx, "integrated job advanced",
		zap.String("subject", email),
		zap.String("accountStatus", string(result.Status)),
		zap.Int("checkpoint", nextIndex),
		zap.Int("totalUsers", len(fresh.TargetUsers)))

	return false, nil
}

// runAccount scans one target account end to end and reports the outcome.
// Per-account failures are captured in the result, never returned: one bad
// account must not stall the rest of the job.
func (o *Orchestrator) runAccount(ctx context.Context,
	org domain.Organization,
	email string) domain.UserScanResult {
	result := domain.UserScanResult{
		Email:     email,
		StartedAt: time.Now(),
	}

	fail := func(err error) domain.UserScanResult {
		result.Status = domain.UserScanFailed
		result.ErrorMessage = err.Error()
		result.CompletedAt = time.Now()

		return result
	}

	client, err := o.provider.ClientFor(ctx, email)
	if err != nil {
		return fail(fmt.Errorf("could not build delegated client: %w", err))
	}
	if err := client.Verify(ctx); err != nil {
		return fail(fmt.Errorf("could not verify delegated access: %w", err))
	}

	scan := domain.Scan{
		ID:        domain.ScanID(uuid.New()),
		OrgID:     org.ID,
		Subject:   email,
		Status:    domain.ScanStatusRunning,
		Phase:     domain.ScanPhaseCounting,
		StartedAt: time.Now(),
	}
	stored, err := o.storage.StoreScan(ctx, scan)
	if err != nil {
		return fail(fmt.Errorf("could not store scan: %w", err))
	}
	result.ScanID = &stored.ID

	final, err := o.pipeline.Run(ctx, client, *stored, org)
	if err != nil {
		return fail(err)
	}

	result.Status = domain.UserScanCompleted
	result.FilesScanned = final.ProcessedFiles
	result.RiskySummary = final.RiskySummary
	result.CompletedAt = time.Now()

	return result
}

// complete marks the job done once the checkpoint has passed the last
// target. Organization counters were already advanced per account by the
// pipeline, so completion only finalizes the job document.
func (o *Orchestrator) complete(ctx context.Context, job *domain.IntegratedScanJob) error {
	now := time.Now()
	empty := ""
	if _, err := o.storage.UpdateIntegratedJobByID(ctx, job.ID, storage.JobUpdates{
		Status:           domain.JobStatusCompleted,
		CurrentUserEmail: &empty,
		CompletedAt:      &now,
	}); err != nil {
		return fmt.Errorf("could not mark job completed: %w", err)
	}

	logger.Info(ctx, "integrated job completed",
		zap.Int("processedUsers", job.ProcessedUsers),
		zap.Int("totalFilesScanned", job.TotalFilesScanned))

	return nil
}

// failJob records an unrecoverable setup error on the job itself. Distinct
// from per-account failures, which land on the user result and let the job
// proceed.
func (o *Orchestrator) failJob(ctx context.Context, id domain.JobID, message string) error {
	now := time.Now()
	empty := ""
	if _, err := o.storage.UpdateIntegratedJobByID(ctx, id, storage.JobUpdates{
		Status:           domain.JobStatusFailed,
		ErrorMessage:     &message,
		CurrentUserEmail: &empty,
		CompletedAt:      &now,
	}); err != nil {
		return fmt.Errorf("could not mark job failed: %w", err)
	}

	logger.Error(ctx, "integrated job failed", zap.String("message", message))

	return nil
}
