package risk

import (
	"sort"

	"driveaudit/pkg/domain"
)

// IssueTypeCount pairs an issue type with how many items triggered it.
type IssueTypeCount struct {
	Type  domain.IssueType `json:"type"`
	Count int              `json:"count"`
}

// Summary rolls many per-item assessments into scan-level statistics.
type Summary struct {
	// Counts buckets all items per risk level; counters sum to the item count.
	Counts domain.RiskySummary `json:"counts"`
	// MeanScore is the integer-rounded average score, 0 when no items.
	MeanScore int `json:"meanScore"`
	// TopIssues lists the up-to-5 most frequent issue types, by occurrence
	// count descending, ties broken by first-seen order.
	TopIssues []IssueTypeCount `json:"topIssues"`
}

// topIssueLimit bounds how many issue types a summary reports.
const topIssueLimit = 5

// Summarize aggregates the given assessments. It runs in O(n) over items
// plus O(k log k) over distinct issue types.
func Summarize(assessments []domain.RiskAssessment) Summary {
	var s Summary
	if len(assessments) == 0 {
		return s
	}

	total := 0
	counts := make(map[domain.IssueType]int)
	// order tracks first-seen order so that ties sort deterministically
	var order []domain.IssueType

	for _, a := range assessments {
		s.Counts.Add(a.Level)
		total += a.Score

		for _, issue := range a.Issues {
			if _, ok := counts[issue.Type]; !ok {
				order = append(order, issue.Type)
			}
			counts[issue.Type]++
		}
	}

	// integer-rounded mean
	s.MeanScore = (total + len(assessments)/2) / len(assessments)

	// stable sort keeps first-seen order for equal counts
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	limit := topIssueLimit
	if len(order) < limit {
		limit = len(order)
	}
	for _, t := range order[:limit] {
		s.TopIssues = append(s.TopIssues, IssueTypeCount{Type: t, Count: counts[t]})
	}

	return s
}
