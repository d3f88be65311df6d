package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"driveaudit/pkg/domain"

	"github.com/google/uuid"
)

// Row types mirror the tables one to one. Aggregate values (risky summaries,
// ACLs, assessments, per-account results) are stored as jsonb: they are only
// ever read and written whole, never filtered on.

type PgOrganization struct {
	ID uuid.UUID `db:"id"`

	Domain string `db:"domain"`
	Plan   string `db:"plan"`

	TotalScans        int `db:"total_scans"`
	TotalFilesScanned int `db:"total_files_scanned"`
	ScansThisMonth    int `db:"scans_this_month"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgOrganization) ToDomain() *domain.Organization {
	return &domain.Organization{
		ID:                domain.OrgID(p.ID),
		Domain:            p.Domain,
		Plan:              domain.Plan(p.Plan),
		TotalScans:        p.TotalScans,
		TotalFilesScanned: p.TotalFilesScanned,
		ScansThisMonth:    p.ScansThisMonth,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt.Time,
	}
}

func (p *PgOrganization) FromDomain(org domain.Organization) {
	*p = PgOrganization{
		ID:                uuid.UUID(org.ID),
		Domain:            org.Domain,
		Plan:              string(org.Plan),
		TotalScans:        org.TotalScans,
		TotalFilesScanned: org.TotalFilesScanned,
		ScansThisMonth:    org.ScansThisMonth,
	}
}

type PgScan struct {
	ID    uuid.UUID `db:"id"`
	OrgID uuid.UUID `db:"org_id"`

	Subject string `db:"subject"`
	Status  string `db:"status"`
	Phase   string `db:"phase"`

	TotalFiles     int             `db:"total_files"`
	ProcessedFiles int             `db:"processed_files"`
	RiskySummary   json.RawMessage `db:"risky_summary"`

	StartedAt    time.Time      `db:"started_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
	ErrorMessage sql.NullString `db:"error_message"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgScan) ToDomain() (*domain.Scan, error) {
	var summary domain.RiskySummary
	if len(p.RiskySummary) > 0 {
		if err := json.Unmarshal(p.RiskySummary, &summary); err != nil {
			return nil, fmt.Errorf("could not unmarshal risky summary: %w", err)
		}
	}

	return &domain.Scan{
		ID:             domain.ScanID(p.ID),
		OrgID:          domain.OrgID(p.OrgID),
		Subject:        p.Subject,
		Status:         domain.ScanStatus(p.Status),
		Phase:          domain.ScanPhase(p.Phase),
		TotalFiles:     p.TotalFiles,
		ProcessedFiles: p.ProcessedFiles,
		RiskySummary:   summary,
		StartedAt:      p.StartedAt,
		CompletedAt:    p.CompletedAt.Time,
		ErrorMessage:   p.ErrorMessage.String,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt.Time,
	}, nil
}

func (p *PgScan) FromDomain(scan domain.Scan) error {
	summary, err := json.Marshal(scan.RiskySummary)
	if err != nil {
		return fmt.Errorf("could not marshal risky summary: %w", err)
	}

	*p = PgScan{
		ID:             uuid.UUID(scan.ID),
		OrgID:          uuid.UUID(scan.OrgID),
		Subject:        scan.Subject,
		Status:         string(scan.Status),
		Phase:          string(scan.Phase),
		TotalFiles:     scan.TotalFiles,
		ProcessedFiles: scan.ProcessedFiles,
		RiskySummary:   summary,
		StartedAt:      scan.StartedAt,
		CompletedAt: sql.NullTime{
			Time:  scan.CompletedAt,
			Valid: !scan.CompletedAt.IsZero(),
		},
		ErrorMessage: sql.NullString{
			String: scan.ErrorMessage,
			Valid:  scan.ErrorMessage != "",
		},
	}

	return nil
}

func pgScansToDomain(scans []PgScan) ([]domain.Scan, error) {
	out := make([]domain.Scan, 0, len(scans))
	for _, scan := range scans {
		d, err := scan.ToDomain()
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}

type PgScanFile struct {
	ScanID uuid.UUID `db:"scan_id"`
	FileID string    `db:"file_id"`

	Name       string         `db:"name"`
	MimeType   string         `db:"mime_type"`
	Size       int64          `db:"size"`
	OwnerEmail string         `db:"owner_email"`
	Shared     bool           `db:"shared"`
	FolderID   sql.NullString `db:"folder_id"`
	FolderName sql.NullString `db:"folder_name"`
	ModifiedAt time.Time      `db:"modified_at"`

	ACL        json.RawMessage `db:"acl"`
	Assessment json.RawMessage `db:"assessment"`

	CreatedAt time.Time `db:"created_at" goqu:"skipinsert"`
}

func (p *PgScanFile) ToDomain() (*domain.ScanFile, error) {
	var acl []domain.ACLEntry
	if len(p.ACL) > 0 {
		if err := json.Unmarshal(p.ACL, &acl); err != nil {
			return nil, fmt.Errorf("could not unmarshal acl: %w", err)
		}
	}
	var assessment domain.RiskAssessment
	if len(p.Assessment) > 0 {
		if err := json.Unmarshal(p.Assessment, &assessment); err != nil {
			return nil, fmt.Errorf("could not unmarshal assessment: %w", err)
		}
	}

	return &domain.ScanFile{
		ScanID:     domain.ScanID(p.ScanID),
		FileID:     p.FileID,
		Name:       p.Name,
		MimeType:   p.MimeType,
		Size:       p.Size,
		OwnerEmail: p.OwnerEmail,
		Shared:     p.Shared,
		FolderID:   p.FolderID.String,
		FolderName: p.FolderName.String,
		ModifiedAt: p.ModifiedAt,
		ACL:        acl,
		Assessment: assessment,
		CreatedAt:  p.CreatedAt,
	}, nil
}

func (p *PgScanFile) FromDomain(file domain.ScanFile) error {
	acl, err := json.Marshal(file.ACL)
	if err != nil {
		return fmt.Errorf("could not marshal acl: %w", err)
	}
	assessment, err := json.Marshal(file.Assessment)
	if err != nil {
		return fmt.Errorf("could not marshal assessment: %w", err)
	}

	*p = PgScanFile{
		ScanID:     uuid.UUID(file.ScanID),
		FileID:     file.FileID,
		Name:       file.Name,
		MimeType:   file.MimeType,
		Size:       file.Size,
		OwnerEmail: file.OwnerEmail,
		Shared:     file.Shared,
		FolderID: sql.NullString{
			String: file.FolderID,
			Valid:  file.FolderID != "",
		},
		FolderName: sql.NullString{
			String: file.FolderName,
			Valid:  file.FolderName != "",
		},
		ModifiedAt: file.ModifiedAt,
		ACL:        acl,
		Assessment: assessment,
	}

	return nil
}

func domainScanFilesToPg(files []domain.ScanFile) ([]PgScanFile, error) {
	out := make([]PgScanFile, len(files))
	for i := range out {
		if err := out[i].FromDomain(files[i]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func pgScanFilesToDomain(files []PgScanFile) ([]domain.ScanFile, error) {
	out := make([]domain.ScanFile, 0, len(files))
	for _, file := range files {
		d, err := file.ToDomain()
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}

type PgIntegratedJob struct {
	ID    uuid.UUID `db:"id"`
	OrgID uuid.UUID `db:"org_id"`

	Status string `db:"status"`

	TargetUsers json.RawMessage `db:"target_users"`
	UserResults json.RawMessage `db:"user_results"`

	LastProcessedUserIndex int            `db:"last_processed_user_index"`
	ProcessedUsers         int            `db:"processed_users"`
	CurrentUserEmail       sql.NullString `db:"current_user_email"`

	TotalRiskySummary json.RawMessage `db:"total_risky_summary"`
	TotalFilesScanned int             `db:"total_files_scanned"`

	StartedAt    time.Time      `db:"started_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
	ErrorMessage sql.NullString `db:"error_message"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgIntegratedJob) ToDomain() (*domain.IntegratedScanJob, error) {
	var targets []string
	if len(p.TargetUsers) > 0 {
		if err := json.Unmarshal(p.TargetUsers, &targets); err != nil {
			return nil, fmt.Errorf("could not unmarshal target users: %w", err)
		}
	}
	var results []domain.UserScanResult
	if len(p.UserResults) > 0 {
		if err := json.Unmarshal(p.UserResults, &results); err != nil {
			return nil, fmt.Errorf("could not unmarshal user results: %w", err)
		}
	}
	var totals domain.RiskySummary
	if len(p.TotalRiskySummary) > 0 {
		if err := json.Unmarshal(p.TotalRiskySummary, &totals); err != nil {
			return nil, fmt.Errorf("could not unmarshal total risky summary: %w", err)
		}
	}

	return &domain.IntegratedScanJob{
		ID:                     domain.JobID(p.ID),
		OrgID:                  domain.OrgID(p.OrgID),
		Status:                 domain.JobStatus(p.Status),
		TargetUsers:            targets,
		UserResults:            results,
		LastProcessedUserIndex: p.LastProcessedUserIndex,
		ProcessedUsers:         p.ProcessedUsers,
		CurrentUserEmail:       p.CurrentUserEmail.String,
		TotalRiskySummary:      totals,
		TotalFilesScanned:      p.TotalFilesScanned,
		StartedAt:              p.StartedAt,
		CompletedAt:            p.CompletedAt.Time,
		ErrorMessage:           p.ErrorMessage.String,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt.Time,
	}, nil
}

func (p *PgIntegratedJob) FromDomain(job domain.IntegratedScanJob) error {
	targets, err := json.Marshal(job.TargetUsers)
	if err != nil {
		return fmt.Errorf("could not marshal target users: %w", err)
	}
	results, err := json.Marshal(job.UserResults)
	if err != nil {
		return fmt.Errorf("could not marshal user results: %w", err)
	}
	totals, err := json.Marshal(job.TotalRiskySummary)
	if err != nil {
		return fmt.Errorf("could not marshal total risky summary: %w", err)
	}

	*p = PgIntegratedJob{
		ID:                     uuid.UUID(job.ID),
		OrgID:                  uuid.UUID(job.OrgID),
		Status:                 string(job.Status),
		TargetUsers:            targets,
		UserResults:            results,
		LastProcessedUserIndex: job.LastProcessedUserIndex,
		ProcessedUsers:         job.ProcessedUsers,
		CurrentUserEmail: sql.NullString{
			String: job.CurrentUserEmail,
			Valid:  job.CurrentUserEmail != "",
		},
		TotalRiskySummary: totals,
		TotalFilesScanned: job.TotalFilesScanned,
		StartedAt:         job.StartedAt,
		CompletedAt: sql.NullTime{
			Time:  job.CompletedAt,
			Valid: !job.CompletedAt.IsZero(),
		},
		ErrorMessage: sql.NullString{
			String: job.ErrorMessage,
			Valid:  job.ErrorMessage != "",
		},
	}

	return nil
}

type PgFolderSummary struct {
	ScanID   uuid.UUID `db:"scan_id"`
	FolderID string    `db:"folder_id"`

	FolderName string          `db:"folder_name"`
	FileCount  int             `db:"file_count"`
	Counts     json.RawMessage `db:"counts"`
	MeanScore  int             `db:"mean_score"`
}

func (p *PgFolderSummary) ToDomain() (*domain.FolderSummary, error) {
	var counts domain.RiskySummary
	if len(p.Counts) > 0 {
		if err := json.Unmarshal(p.Counts, &counts); err != nil {
			return nil, fmt.Errorf("could not unmarshal folder counts: %w", err)
		}
	}

	return &domain.FolderSummary{
		ScanID:     domain.ScanID(p.ScanID),
		FolderID:   p.FolderID,
		FolderName: p.FolderName,
		FileCount:  p.FileCount,
		Counts:     counts,
		MeanScore:  p.MeanScore,
	}, nil
}

func (p *PgFolderSummary) FromDomain(summary domain.FolderSummary) error {
	counts, err := json.Marshal(summary.Counts)
	if err != nil {
		return fmt.Errorf("could not marshal folder counts: %w", err)
	}

	*p = PgFolderSummary{
		ScanID:     uuid.UUID(summary.ScanID),
		FolderID:   summary.FolderID,
		FolderName: summary.FolderName,
		FileCount:  summary.FileCount,
		Counts:     counts,
		MeanScore:  summary.MeanScore,
	}

	return nil
}
