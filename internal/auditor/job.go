package auditor

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// ScanJobArgs is the payload of a background scan job submitted to River.
// The scan id is the uniqueness key: each scan record gets exactly one job.
type ScanJobArgs struct {
	// ScanID is the scan record the job runs, as a canonical UUID string.
	ScanID string `json:"scanId" river:"unique"`
	// OrgID is the owning organization, as a canonical UUID string.
	OrgID string `json:"orgId"`
	// Subject is the email address of the account to scan.
	Subject string `json:"subject"`
}

// Kind returns the River job kind used to register and dispatch the scan
// worker.
func (args ScanJobArgs) Kind() string { return "DriveScanJob" }

// InsertOpts pins every scan job to a single attempt: an interrupted
// scanning pass cannot be resumed mid-phase, so a failed scan is never
// retried automatically and requires a fresh scan record instead.
func (args ScanJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}
