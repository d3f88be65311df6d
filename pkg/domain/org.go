package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrgID uniquely identifies an organization within the system.
type OrgID uuid.UUID

// String returns the canonical UUID representation of the organization id.
func (id OrgID) String() string { return uuid.UUID(id).String() }

// Plan is an organization's subscription tier. It bounds how large a single
// scan may be and how many scans may run per month.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// MaxFilesPerScan returns the per-scan item cap for the plan. The counting
// phase truncates silently at this bound.
func (p Plan) MaxFilesPerScan() int {
	switch p {
	case PlanPro:
		return 10000
	case PlanEnterprise:
		return 100000
	default:
		return 1000
	}
}

// MonthlyScanLimit returns the number of scans the plan allows per calendar
// month. Zero means unlimited.
func (p Plan) MonthlyScanLimit() int {
	switch p {
	case PlanPro:
		return 100
	case PlanEnterprise:
		return 0
	default:
		return 5
	}
}

// Organization is a tenant whose member accounts get audited. The running
// statistics are incremented on each successful scan completion.
type Organization struct {
	ID OrgID `json:"id"`
	// Domain is the primary email domain; grants outside it are external.
	Domain string `json:"domain"`
	// Plan is the subscription tier bounding scan capacity.
	Plan Plan `json:"plan"`

	// TotalScans and TotalFilesScanned are cumulative counters.
	TotalScans        int `json:"totalScans"`
	TotalFilesScanned int `json:"totalFilesScanned"`
	// ScansThisMonth counts scans started in the current calendar month.
	ScansThisMonth int `json:"scansThisMonth"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
