// Package pipeline implements the two-phase single-account scan: a cheap
// id-only counting pass that establishes an accurate progress denominator,
// followed by a full-projection pass that scores every item as it streams.
// Post-processing resolves folder names, aggregates the results and persists
// scored items in bounded batches.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"driveaudit/internal/config"
	"driveaudit/internal/risk"
	"driveaudit/pkg/domain"
	"driveaudit/pkg/drive"
	"driveaudit/pkg/logger"
	"driveaudit/pkg/storage"

	"go.uber.org/zap"
)

// Options configure page sizes and fan-out widths of the pipeline.
type Options struct {
	// PageSize bounds provider pages in both phases.
	PageSize int64
	// FolderConcurrency is the fan-out width for folder name resolution.
	FolderConcurrency int
	// PersistBatchSize bounds each batched scored-item write. It never
	// exceeds storage.ScanFileBatchSize.
	PersistBatchSize int
}

// NewOptions constructs pipeline options from the application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		PageSize:          cfg.Auditor.PageSize,
		FolderConcurrency: cfg.Auditor.FolderConcurrency,
		PersistBatchSize:  cfg.Auditor.PersistBatchSize,
	}
}

// Pipeline runs single-account scans. One Pipeline instance is safe for
// concurrent use; each Run owns the Scan record it mutates.
type Pipeline struct {
	options Options
	storage storage.Storage
}

// New creates a Pipeline backed by the provided storage.
func New(strg storage.Storage, options Options) *Pipeline {
	if options.PersistBatchSize <= 0 || options.PersistBatchSize > storage.ScanFileBatchSize {
		options.PersistBatchSize = storage.ScanFileBatchSize
	}
	if options.FolderConcurrency <= 0 {
		options.FolderConcurrency = defaultFolderConcurrency
	}
	if options.PageSize <= 0 {
		options.PageSize = 100
	}

	return &Pipeline{options: options, storage: strg}
}

// Run executes the full pipeline for the given scan. Any uncaught error in
// either phase marks the Scan failed with the captured message; scored-item
// batches persisted before the failure are left in place (rows are keyed by
// scan id + item id, so a retry under a new scan id never collides).
func (p *Pipeline) Run(ctx context.Context,
	client drive.Client,
	scan domain.Scan,
	org domain.Organization) (*domain.Scan, error) {
	ctx = logger.WithFields(ctx, zap.String("scanID", scan.ID.String()), zap.String("subject", scan.Subject))

	final, err := p.run(ctx, client, scan, org)
	if err != nil {
		p.failScan(ctx, scan.ID, err)

		return nil, err
	}

	logger.Info(ctx, "scan completed",
		zap.Int("totalFiles", final.TotalFiles),
		zap.Int("processedFiles", final.ProcessedFiles))

	return final, nil
}

func (p *Pipeline) run(ctx context.Context,
	client drive.Client,
	scan domain.Scan,
	org domain.Organization) (*domain.Scan, error) {
	maxFiles := org.Plan.MaxFilesPerScan()

	total, err := p.countFiles(ctx, client, maxFiles)
	if err != nil {
		return nil, err
	}

	if _, err := p.storage.UpdateScanByID(ctx, scan.ID, storage.ScanUpdates{
		Phase:      domain.ScanPhaseScanning,
		TotalFiles: &total,
	}); err != nil {
		return nil, fmt.Errorf("could not record file count: %w", err)
	}
	logger.Debug(ctx, "counting phase done", zap.Int("totalFiles", total))

	items, assessments, err := p.scanFiles(ctx, client, scan.ID, maxFiles, org.Domain)
	if err != nil {
		return nil, err
	}

	return p.postProcess(ctx, client, scan, org, items, assessments)
}

// countFiles is phase one: enumerate ids only, accumulating a running count,
// truncating silently at the plan cap.
func (p *Pipeline) countFiles(ctx context.Context, client drive.Client, maxFiles int) (int, error) {
	it := drive.NewPageIterator(client, drive.ListOptions{PageSize: p.options.PageSize, IDsOnly: true})

	total := 0
	for {
		page, ok, err := it.Next(ctx)
		if err != nil {
			return 0, fmt.Errorf("could not count files: %w", err)
		}
		if !ok {
			break
		}

		total += len(page.Items)
		if total >= maxFiles {
			// soft truncation, not an error
			return maxFiles, nil
		}
	}

	return total, nil
}

// scanFiles is phase two: a single lazy forward-only pass over full pages,
// scoring each item as it streams and updating progress after every page.
// The traversal is not resumable mid-phase; any error fails the whole scan.
func (p *Pipeline) scanFiles(ctx context.Context,
	client drive.Client,
	scanID domain.ScanID,
	maxFiles int,
	orgDomain string) ([]domain.Item, []domain.RiskAssessment, error) {
	it := drive.NewPageIterator(client, drive.ListOptions{PageSize: p.options.PageSize})

	var (
		items       []domain.Item
		assessments []domain.RiskAssessment
	)
	for {
		page, ok, err := it.Next(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("could not enumerate files: %w", err)
		}
		if !ok {
			break
		}

		for _, item := range page.Items {
			if len(items) >= maxFiles {
				break
			}
			items = append(items, item)
			assessments = append(assessments, risk.Score(item, orgDomain))
		}

		processed := len(items)
		if _, err := p.storage.UpdateScanByID(ctx, scanID, storage.ScanUpdates{
			ProcessedFiles: &processed,
		}); err != nil {
			return nil, nil, fmt.Errorf("could not update scan progress: %w", err)
		}

		if len(items) >= maxFiles {
			break
		}
	}

	return items, assessments, nil
}

// postProcess resolves folder names, aggregates, persists scored items in
// bounded batches, marks the scan completed and bumps the organization's
// running statistics.
func (p *Pipeline) postProcess(ctx context.Context,
	client drive.Client,
	scan domain.Scan,
	org domain.Organization,
	items []domain.Item,
	assessments []domain.RiskAssessment) (*domain.Scan, error) {
	folderNames := p.resolveFolderNames(ctx, client, folderIDs(items))

	summary := risk.Summarize(assessments)

	files := make([]domain.ScanFile, len(items))
	for i, item := range items {
		files[i] = domain.ScanFile{
			ScanID:     scan.ID,
			FileID:     item.ID,
			Name:       item.Name,
			MimeType:   item.MimeType,
			Size:       item.Size,
			OwnerEmail: item.OwnerEmail,
			Shared:     item.Shared,
			FolderID:   item.FolderID,
			FolderName: folderNames[item.FolderID],
			ModifiedAt: item.ModifiedAt,
			ACL:        item.ACL,
			Assessment: assessments[i],
		}
	}

	for start := 0; start < len(files); start += p.options.PersistBatchSize {
		end := start + p.options.PersistBatchSize
		if end > len(files) {
			end = len(files)
		}
		if err := p.storage.StoreScanFiles(ctx, files[start:end]...); err != nil {
			return nil, fmt.Errorf("could not persist scored items: %w", err)
		}
	}

	folderSummaries := buildFolderSummaries(scan.ID, files)
	if len(folderSummaries) > 0 {
		if err := p.storage.UpsertFolderSummaries(ctx, folderSummaries...); err != nil {
			return nil, fmt.Errorf("could not persist folder summaries: %w", err)
		}
	}

	processed := len(items)
	now := time.Now()
	final, err := p.storage.UpdateScanByID(ctx, scan.ID, storage.ScanUpdates{
		Status:         domain.ScanStatusCompleted,
		Phase:          domain.ScanPhaseDone,
		ProcessedFiles: &processed,
		RiskySummary:   &summary.Counts,
		CompletedAt:    &now,
	})
	if err != nil {
		return nil, fmt.Errorf("could not mark scan completed: %w", err)
	}

	if err := p.storage.IncrementScanStats(ctx, org.ID, processed); err != nil {
		return nil, fmt.Errorf("could not update organization statistics: %w", err)
	}

	return final, nil
}

// failScan records the captured message on the scan. Already-persisted item
// batches stay in place.
func (p *Pipeline) failScan(ctx context.Context, scanID domain.ScanID, cause error) {
	msg := cause.Error()
	now := time.Now()
	if _, err := p.storage.UpdateScanByID(ctx, scanID, storage.ScanUpdates{
		Status:       domain.ScanStatusFailed,
		ErrorMessage: &msg,
		CompletedAt:  &now,
	}); err != nil {
		logger.Warn(ctx, "could not mark scan failed", zap.Error(err))
	}

	logger.Error(ctx, "scan failed", zap.Error(cause))
}

// buildFolderSummaries recomputes per-folder aggregates from the scored
// items. The result is idempotent with respect to the item set.
func buildFolderSummaries(scanID domain.ScanID, files []domain.ScanFile) []domain.FolderSummary {
	byFolder := make(map[string]*domain.FolderSummary)
	scores := make(map[string]int)
	var order []string

	for _, f := range files {
		if f.FolderID == "" {
			continue
		}
		s, ok := byFolder[f.FolderID]
		if !ok {
			s = &domain.FolderSummary{
				ScanID:     scanID,
				FolderID:   f.FolderID,
				FolderName: f.FolderName,
			}
			byFolder[f.FolderID] = s
			order = append(order, f.FolderID)
		}
		s.FileCount++
		s.Counts.Add(f.Assessment.Level)
		scores[f.FolderID] += f.Assessment.Score
	}

	out := make([]domain.FolderSummary, 0, len(order))
	for _, id := range order {
		s := byFolder[id]
		s.MeanScore = (scores[id] + s.FileCount/2) / s.FileCount
		out = append(out, *s)
	}

	return out
}

func folderIDs(items []domain.Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.FolderID != "" {
			ids = append(ids, item.FolderID)
		}
	}

	return ids
}
