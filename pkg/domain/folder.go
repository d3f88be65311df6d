package domain

// FolderSummary aggregates scored items per parent folder within one scan.
// It is fully recomputable from the set of scanned items, so writes are
// idempotent upserts keyed by (ScanID, FolderID).
type FolderSummary struct {
	ScanID     ScanID `json:"scanId"`
	FolderID   string `json:"folderId"`
	FolderName string `json:"folderName"`

	// FileCount is the number of scanned items under the folder.
	FileCount int `json:"fileCount"`
	// Counts buckets those items per risk level.
	Counts RiskySummary `json:"counts"`
	// MeanScore is the integer-rounded average risk score of the items.
	MeanScore int `json:"meanScore"`
}
