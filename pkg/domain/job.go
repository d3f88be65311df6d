package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobID uniquely identifies an integrated multi-account scan job.
type JobID uuid.UUID

// String returns the canonical UUID representation of the job id.
func (id JobID) String() string { return uuid.UUID(id).String() }

// JobStatus represents the lifecycle state of an integrated scan job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether no further steps may run for the job.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// UserScanStatus is the per-account result state inside an integrated job.
type UserScanStatus string

const (
	UserScanPending   UserScanStatus = "PENDING"
	UserScanRunning   UserScanStatus = "RUNNING"
	UserScanCompleted UserScanStatus = "COMPLETED"
	UserScanFailed    UserScanStatus = "FAILED"
)

// Terminal reports whether the per-account result can no longer change.
func (s UserScanStatus) Terminal() bool {
	return s == UserScanCompleted || s == UserScanFailed
}

// UserScanResult records the outcome of one account's scan within an
// integrated job. The slice of results is parallel to TargetUsers.
type UserScanResult struct {
	Email  string         `json:"email"`
	Status UserScanStatus `json:"status"`

	// ScanID links to the Scan produced for this account, when one was created.
	ScanID *ScanID `json:"scanId,omitempty"`
	// FilesScanned is the number of items scored for this account.
	FilesScanned int `json:"filesScanned"`
	// RiskySummary counts this account's items per risk level.
	RiskySummary RiskySummary `json:"riskySummary"`
	// ErrorMessage holds the failure message for failed accounts.
	ErrorMessage string `json:"errorMessage,omitempty"`

	StartedAt   time.Time `json:"startedAt,omitempty"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

// IntegratedScanJob orchestrates one Scan per target account across an
// organization, sequentially, with a durable checkpoint.
//
// Invariants:
//   - TargetUsers is fixed at creation; UserResults is parallel to it.
//   - LastProcessedUserIndex starts at -1 and advances by exactly one per
//     completed step; UserResults[i] reaches a terminal status before the
//     checkpoint advances past i.
//   - LastProcessedUserIndex+1 == ProcessedUsers at every observed state.
type IntegratedScanJob struct {
	ID    JobID `json:"id"`
	OrgID OrgID `json:"orgId"`

	Status JobStatus `json:"status"`

	// TargetUsers is the ordered list of account emails to scan.
	TargetUsers []string `json:"targetUsers"`
	// UserResults holds one entry per target user, in the same order.
	UserResults []UserScanResult `json:"userResults"`

	// LastProcessedUserIndex is the durable checkpoint: the highest index
	// whose result is terminal. -1 before any account has been processed.
	LastProcessedUserIndex int `json:"lastProcessedUserIndex"`
	// ProcessedUsers is the number of accounts with a terminal result.
	ProcessedUsers int `json:"processedUsers"`
	// CurrentUserEmail is the account currently being scanned, if any.
	CurrentUserEmail string `json:"currentUserEmail,omitempty"`

	// TotalRiskySummary and TotalFilesScanned accumulate across accounts.
	TotalRiskySummary RiskySummary `json:"totalRiskySummary"`
	TotalFilesScanned int          `json:"totalFilesScanned"`

	StartedAt    time.Time `json:"startedAt,omitempty"`
	CompletedAt  time.Time `json:"completedAt,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
