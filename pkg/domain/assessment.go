package domain

// RiskLevel buckets a risk score into one of four exposure classes.
type RiskLevel string

const (
	RiskLevelCritical RiskLevel = "critical"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelLow      RiskLevel = "low"
)

// LevelForScore maps a score in [0,100] to its unique risk level bucket:
// critical>=80, high>=60, medium>=40, low otherwise.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLevelCritical
	case score >= 60:
		return RiskLevelHigh
	case score >= 40:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// Severity classifies how serious a single detected issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// IssueType identifies a scoring rule that fired for an item.
type IssueType string

const (
	// IssuePublicSharing fires when any grant is a public (anyone) link.
	IssuePublicSharing IssueType = "public_sharing"
	// IssueExternalSharing fires when any grant's resolved principal
	// domain differs from the organization domain.
	IssueExternalSharing IssueType = "external_sharing"
	// IssueExternalEditor fires when an external grant is write-capable.
	IssueExternalEditor IssueType = "external_editor"
	// IssueConfidentialType fires for MIME types in the confidential set.
	IssueConfidentialType IssueType = "confidential_type"
	// IssueSensitiveContent fires when the filename matches a
	// sensitive-content keyword category.
	IssueSensitiveContent IssueType = "sensitive_content"
	// IssueStaleSharing fires for shared items untouched for over a year.
	IssueStaleSharing IssueType = "stale_sharing"
	// IssueManyShares fires when an item has more than ten user or group
	// grants, counted without deduplication by email.
	IssueManyShares IssueType = "many_shares"
)

// Issue is one triggered scoring rule on one item.
type Issue struct {
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	Points      int       `json:"points"`
	Description string    `json:"description"`
}

// RiskAssessment is the deterministic scoring result for a single item.
// It is embedded on persisted scan results and never stored on its own.
type RiskAssessment struct {
	// Score is the cumulative rule score, capped at 100.
	Score int `json:"score"`
	// Level is the bucket containing Score; see LevelForScore.
	Level RiskLevel `json:"level"`
	// Issues lists every triggered rule, one entry per rule.
	Issues []Issue `json:"issues"`
	// Recommendations carries one remediation string per triggered rule.
	Recommendations []string `json:"recommendations"`
}

// RiskySummary counts items per risk level.
type RiskySummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Add increments the counter for the given level.
func (s *RiskySummary) Add(level RiskLevel) {
	switch level {
	case RiskLevelCritical:
		s.Critical++
	case RiskLevelHigh:
		s.High++
	case RiskLevelMedium:
		s.Medium++
	case RiskLevelLow:
		s.Low++
	}
}

// Merge adds every counter of other into s.
func (s *RiskySummary) Merge(other RiskySummary) {
	s.Critical += other.Critical
	s.High += other.High
	s.Medium += other.Medium
	s.Low += other.Low
}

// Total returns the sum of all level counters.
func (s RiskySummary) Total() int {
	return s.Critical + s.High + s.Medium + s.Low
}
