package risk

import (
	"strings"

	"driveaudit/pkg/domain"
)

// sensitiveCategory groups filename keywords under a shared severity.
// The first matching category in order wins, so categories are listed from
// most to least severe.
type sensitiveCategory struct {
	name     string
	severity domain.Severity
	keywords []string
}

var sensitiveCategories = []sensitiveCategory{
	{
		name:     "credentials",
		severity: domain.SeverityCritical,
		keywords: []string{"password", "passwd", "secret", "credential", "private key", "privatekey", "api key", "apikey", "token"},
	},
	{
		name:     "personnel",
		severity: domain.SeverityHigh,
		keywords: []string{"salary", "payroll", "ssn", "social security", "confidential", "contract", "nda"},
	},
	{
		name:     "financial",
		severity: domain.SeverityMedium,
		keywords: []string{"budget", "financial", "finance", "invoice", "tax", "bank"},
	},
	{
		name:     "internal",
		severity: domain.SeverityLow,
		keywords: []string{"internal", "draft", "do not share"},
	},
}

// matchSensitiveName reports whether the filename matches a sensitive-content
// keyword category and returns the matched category. Matching is
// case-insensitive substring search.
func matchSensitiveName(name string) (sensitiveCategory, bool) {
	lower := strings.ToLower(name)
	for _, cat := range sensitiveCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat, true
			}
		}
	}

	return sensitiveCategory{}, false
}

// confidentialMimeTypes is the fixed set of MIME types that commonly hold
// confidential data: spreadsheets, documents, pdf, csv and legacy office
// formats.
var confidentialMimeTypes = map[string]struct{}{
	"application/vnd.google-apps.spreadsheet": {},
	"application/vnd.google-apps.document":    {},
	"application/pdf":                         {},
	"text/csv":                                {},
	"application/vnd.ms-excel":                {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}
