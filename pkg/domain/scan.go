package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScanID uniquely identifies one scan of one account's storage.
// It wraps uuid.UUID to provide type safety at the domain layer.
type ScanID uuid.UUID

// String returns the canonical UUID representation of the scan id.
func (id ScanID) String() string { return uuid.UUID(id).String() }

// ScanStatus represents the lifecycle state of a scan.
type ScanStatus string

const (
	// ScanStatusRunning indicates the scan is being processed.
	ScanStatusRunning ScanStatus = "RUNNING"
	// ScanStatusCompleted indicates the scan finished successfully.
	ScanStatusCompleted ScanStatus = "COMPLETED"
	// ScanStatusFailed indicates the scan ended with an error; see ErrorMessage.
	ScanStatusFailed ScanStatus = "FAILED"
)

// ScanPhase tracks which stage of the two-phase pipeline a running scan is in.
type ScanPhase string

const (
	// ScanPhaseCounting is the cheap id-only enumeration establishing the
	// progress denominator.
	ScanPhaseCounting ScanPhase = "COUNTING"
	// ScanPhaseScanning is the full-projection enumeration that scores items.
	ScanPhaseScanning ScanPhase = "SCANNING"
	// ScanPhaseDone means the pipeline finished post-processing.
	ScanPhaseDone ScanPhase = "DONE"
)

// Scan represents one pass over one account's storage.
// Only the pipeline instance owning the scan id mutates it.
type Scan struct {
	// ID is the unique identifier of the scan.
	ID ScanID `json:"id"`
	// OrgID is the organization the scanned account belongs to.
	OrgID OrgID `json:"orgId"`
	// Subject is the email address of the account being scanned.
	Subject string `json:"subject"`

	// Status is the current lifecycle state of the scan.
	Status ScanStatus `json:"status"`
	// Phase is the current pipeline stage while the scan is running.
	Phase ScanPhase `json:"phase"`

	// TotalFiles is the denominator established by the counting phase.
	TotalFiles int `json:"totalFiles"`
	// ProcessedFiles advances monotonically as full pages are scored.
	ProcessedFiles int `json:"processedFiles"`
	// RiskySummary counts scanned items per risk level.
	RiskySummary RiskySummary `json:"riskySummary"`

	// StartedAt is when the pipeline began; CompletedAt is when it reached a
	// terminal status.
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
	// ErrorMessage holds the captured failure message for failed scans.
	ErrorMessage string `json:"errorMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ScanFile is one scored item persisted under a scan. Rows are keyed by
// (ScanID, FileID), so retried scans never overwrite earlier results.
type ScanFile struct {
	ScanID ScanID `json:"scanId"`
	FileID string `json:"fileId"`

	Name       string    `json:"name"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	OwnerEmail string    `json:"ownerEmail"`
	Shared     bool      `json:"shared"`
	FolderID   string    `json:"folderId,omitempty"`
	FolderName string    `json:"folderName,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`

	// ACL is the item's access-control list at scan time.
	ACL []ACLEntry `json:"acl"`
	// Assessment is the deterministic risk scoring result for the item.
	Assessment RiskAssessment `json:"assessment"`

	CreatedAt time.Time `json:"createdAt"`
}
