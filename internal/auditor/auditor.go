// Package auditor exposes the application-level operations behind the HTTP
// surface: starting and reading single-account scans, and starting, reading
// and cancelling integrated multi-account jobs. Plan enforcement and
// delegation verification happen here, before any scan work is enqueued.
package auditor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"driveaudit/internal/config"
	"driveaudit/internal/orchestrator"
	"driveaudit/pkg/domain"
	"driveaudit/pkg/drive"
	"driveaudit/pkg/logger"
	"driveaudit/pkg/serrors"
	"driveaudit/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configure scan admission and the lazy timeout sweep.
type Options struct {
	// ScanTimeout is the age bound past which a RUNNING scan is reclassified
	// as failed the next time scan history is read.
	ScanTimeout time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		ScanTimeout: cfg.Auditor.ScanTimeout,
	}
}

// auditor is the concrete implementation of the Auditor interface.
type auditor struct {
	options  Options
	storage  storage.Storage
	provider drive.CredentialProvider
	orch     *orchestrator.Orchestrator
}

// New creates an Auditor backed by the provided storage, credential provider
// and job orchestrator.
func New(strg storage.Storage,
	provider drive.CredentialProvider,
	orch *orchestrator.Orchestrator,
	options Options) Auditor {
	if options.ScanTimeout <= 0 {
		options.ScanTimeout = 10 * time.Minute
	}

	return &auditor{
		options:  options,
		storage:  strg,
		provider: provider,
		orch:     orch,
	}
}

// StartScan admits a new scan for one account. Admission checks run before
// any row is written: the organization must exist, must have monthly scan
// budget left, and the delegated credentials must actually grant access to
// the subject account. The scan row and its background job are stored in one
// transaction so neither can exist without the other.
func (a *auditor) StartScan(ctx context.Context, orgID domain.OrgID, subject string) (*domain.Scan, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || !strings.Contains(subject, "@") {
		return nil, serrors.With(serrors.ErrBadRequest, "subject must be an account email address")
	}

	org, err := a.organization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if limit := org.Plan.MonthlyScanLimit(); limit > 0 && org.ScansThisMonth >= limit {
		return nil, serrors.With(serrors.ErrPlanLimit,
			"monthly scan limit of %d reached for plan %s", limit, org.Plan)
	}

	client, err := a.provider.ClientFor(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("could not build delegated client: %w", err)
	}
	if err := client.Verify(ctx); err != nil {
		return nil, fmt.Errorf("could not verify delegated access: %w", err)
	}

	var scan *domain.Scan
	if err := a.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		stored, err := tx.StoreScan(ctx, domain.Scan{
			ID:        domain.ScanID(uuid.New()),
			OrgID:     orgID,
			Subject:   subject,
			Status:    domain.ScanStatusRunning,
			Phase:     domain.ScanPhaseCounting,
			StartedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("could not store scan: %w", err)
		}
		scan = stored

		if _, err := tx.AddJob(ctx, ScanJobArgs{
			ScanID:  stored.ID.String(),
			OrgID:   uuid.UUID(orgID).String(),
			Subject: subject,
		}, nil); err != nil {
			return fmt.Errorf("could not add job: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not start scan: %w", err)
	}

	logger.Info(ctx, "scan started",
		zap.String("scanID", scan.ID.String()),
		zap.String("subject", subject))

	return scan, nil
}

// ScanStatus fetches a single scan by id, scoped to the organization.
func (a *auditor) ScanStatus(ctx context.Context, orgID domain.OrgID, scanID domain.ScanID) (*domain.Scan, error) {
	scan, err := a.storage.ScanByID(ctx, orgID, scanID)
	if err != nil {
		return nil, fmt.Errorf("could not get scan: %w", err)
	}
	if scan == nil {
		return nil, serrors.With(serrors.ErrNotFound, "scan not found")
	}

	return scan, nil
}

// ListScans returns a page of the organization's scans. Before reading, it
// sweeps scans stuck in RUNNING past the timeout bound and reclassifies them
// as failed. The sweep only ever runs here; there is no standing timer.
func (a *auditor) ListScans(ctx context.Context,
	orgID domain.OrgID,
	cursor string,
	limit uint) ([]domain.Scan, string, error) {
	swept, err := a.storage.MarkStaleScansFailed(ctx, orgID, a.options.ScanTimeout,
		fmt.Sprintf("scan exceeded the %s liveness bound", a.options.ScanTimeout))
	if err != nil {
		return nil, "", fmt.Errorf("could not sweep stale scans: %w", err)
	}
	if swept > 0 {
		logger.Warn(ctx, "reclassified stale scans as failed", zap.Int64("count", swept))
	}

	var cursorTime time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339, cursor)
		if err != nil {
			return nil, "", serrors.Wrap(serrors.ErrBadRequest, err, "invalid cursor")
		}
		cursorTime = t
	}

	page, err := a.storage.OrgScans(ctx, orgID, cursorTime, limit)
	if err != nil {
		return nil, "", fmt.Errorf("could not get organization scans: %w", err)
	}

	var next string
	if page.NextCursor != nil {
		next = page.NextCursor.Format(time.RFC3339)
	}

	return page.Scans, next, nil
}

// ListScanFiles returns a page of scored items for one scan. The scan must
// belong to the organization.
func (a *auditor) ListScanFiles(ctx context.Context,
	orgID domain.OrgID,
	scanID domain.ScanID,
	cursor string,
	limit uint) ([]domain.ScanFile, string, error) {
	scan, err := a.storage.ScanByID(ctx, orgID, scanID)
	if err != nil {
		return nil, "", fmt.Errorf("could not get scan: %w", err)
	}
	if scan == nil {
		return nil, "", serrors.With(serrors.ErrNotFound, "scan not found")
	}

	page, err := a.storage.ScanFilesByScanID(ctx, scanID, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("could not get scan files: %w", err)
	}

	var next string
	if page.NextCursor != nil {
		next = *page.NextCursor
	}

	return page.Files, next, nil
}

// StartIntegratedScan admits a multi-account job. The whole target list must
// fit in the organization's remaining monthly scan budget, since each target
// account produces one scan.
func (a *auditor) StartIntegratedScan(ctx context.Context,
	orgID domain.OrgID,
	targetUsers []string) (*domain.IntegratedScanJob, error) {
	for _, email := range targetUsers {
		if !strings.Contains(email, "@") {
			return nil, serrors.With(serrors.ErrBadRequest, "target %q is not an email address", email)
		}
	}

	org, err := a.organization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if limit := org.Plan.MonthlyScanLimit(); limit > 0 && org.ScansThisMonth+len(targetUsers) > limit {
		return nil, serrors.With(serrors.ErrPlanLimit,
			"%d target accounts exceed the remaining monthly scan budget of %d",
			len(targetUsers), limit-org.ScansThisMonth)
	}

	job, err := a.orch.Start(ctx, *org, targetUsers)
	if err != nil {
		return nil, fmt.Errorf("could not start integrated scan: %w", err)
	}

	logger.Info(ctx, "integrated scan started",
		zap.String("jobID", job.ID.String()),
		zap.Int("targetUsers", len(targetUsers)))

	return job, nil
}

// IntegratedScanStatus fetches one job scoped to the organization. The read
// itself is what resumes a running job that lost its driving loop.
func (a *auditor) IntegratedScanStatus(ctx context.Context,
	orgID domain.OrgID,
	jobID domain.JobID) (*domain.IntegratedScanJob, error) {
	job, err := a.orch.Status(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("could not get integrated scan: %w", err)
	}
	if job.OrgID != orgID {
		return nil, serrors.With(serrors.ErrNotFound, "integrated scan not found")
	}

	return job, nil
}

// CancelIntegratedScan cancels one job scoped to the organization. Ownership
// is checked against the stored row before any state changes.
func (a *auditor) CancelIntegratedScan(ctx context.Context,
	orgID domain.OrgID,
	jobID domain.JobID) (*domain.IntegratedScanJob, error) {
	job, err := a.storage.IntegratedJobByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("could not get integrated scan: %w", err)
	}
	if job == nil || job.OrgID != orgID {
		return nil, serrors.With(serrors.ErrNotFound, "integrated scan not found")
	}

	cancelled, err := a.orch.Cancel(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("could not cancel integrated scan: %w", err)
	}

	return cancelled, nil
}

func (a *auditor) organization(ctx context.Context, orgID domain.OrgID) (*domain.Organization, error) {
	org, err := a.storage.OrganizationByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("could not get organization: %w", err)
	}
	if org == nil {
		return nil, serrors.With(serrors.ErrNotFound, "organization not found")
	}

	return org, nil
}
