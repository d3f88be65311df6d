package risk

import "driveaudit/pkg/domain"

// rule binds an issue type to its fixed point value, severity, description
// and recommendation text. Keeping every rule in one table keeps the set
// exhaustive: a new issue type without a table entry cannot fire.
type rule struct {
	issueType      domain.IssueType
	points         int
	severity       domain.Severity
	description    string
	recommendation string
}

// maxScore caps the cumulative score of all triggered rules.
const maxScore = 100

// rules holds one entry per issue type. The sensitive_content entry carries
// the default (medium) points and severity; the matched filename category
// overrides both.
var rules = map[domain.IssueType]rule{
	domain.IssuePublicSharing: {
		issueType:      domain.IssuePublicSharing,
		points:         40,
		severity:       domain.SeverityCritical,
		description:    "File is shared publicly via link, anyone with the link can access it",
		recommendation: "Remove the public link or restrict it to specific people",
	},
	domain.IssueExternalSharing: {
		issueType:      domain.IssueExternalSharing,
		points:         20,
		severity:       domain.SeverityHigh,
		description:    "File is shared with accounts outside the organization",
		recommendation: "Review external collaborators and remove those who no longer need access",
	},
	domain.IssueExternalEditor: {
		issueType:      domain.IssueExternalEditor,
		points:         15,
		severity:       domain.SeverityHigh,
		description:    "An account outside the organization can edit this file",
		recommendation: "Downgrade external collaborators to viewer unless edit access is required",
	},
	domain.IssueConfidentialType: {
		issueType:      domain.IssueConfidentialType,
		points:         15,
		severity:       domain.SeverityMedium,
		description:    "File type commonly contains confidential data",
		recommendation: "Verify the file content and tighten sharing if it holds sensitive data",
	},
	domain.IssueSensitiveContent: {
		issueType:      domain.IssueSensitiveContent,
		points:         10,
		severity:       domain.SeverityMedium,
		description:    "Filename suggests sensitive content",
		recommendation: "Check whether this file should be shared at all and restrict access",
	},
	domain.IssueStaleSharing: {
		issueType:      domain.IssueStaleSharing,
		points:         10,
		severity:       domain.SeverityLow,
		description:    "File is shared but has not been modified for over a year",
		recommendation: "Unshare files that are no longer actively used",
	},
	domain.IssueManyShares: {
		issueType:      domain.IssueManyShares,
		points:         5,
		severity:       domain.SeverityLow,
		description:    "File is shared with more than 10 users or groups",
		recommendation: "Share with a group instead of many individual accounts",
	},
}

// pointsForSeverity maps a sensitive-content category severity to its point
// value: critical 25, high 15, medium 10, low 5.
func pointsForSeverity(sev domain.Severity) int {
	switch sev {
	case domain.SeverityCritical:
		return 25
	case domain.SeverityHigh:
		return 15
	case domain.SeverityLow:
		return 5
	default:
		return 10
	}
}
