// Package risk implements the deterministic exposure scoring engine and the
// aggregation of per-item assessments into scan-level summaries.
//
// Scoring is a pure function of the item, the organization domain and a
// reference time: no I/O, no hidden state, and identical inputs always
// produce identical assessments. Each triggered rule contributes its fixed
// points (independent, cumulative, capped at 100), appends exactly one issue
// and one recommendation, and rules are never deduplicated against each
// other within one call.
package risk

import (
	"time"

	"driveaudit/pkg/domain"
)

// staleAge is the modification age beyond which a shared item is considered
// stale.
const staleAge = 365 * 24 * time.Hour

// manySharesThreshold is the number of user/group grants above which the
// many_shares rule fires. Entries are counted raw, without deduplication by
// email.
const manySharesThreshold = 10

// Score assesses one item against the organization domain using the current
// time as the staleness reference.
func Score(item domain.Item, orgDomain string) domain.RiskAssessment {
	return ScoreAt(item, orgDomain, time.Now())
}

// ScoreAt assesses one item against the organization domain, treating now as
// the reference time for the stale-sharing rule. All inputs are pre-validated
// plain values; there are no error conditions.
func ScoreAt(item domain.Item, orgDomain string, now time.Time) domain.RiskAssessment {
	var a domain.RiskAssessment

	trigger := func(r rule) {
		a.Score += r.points
		a.Issues = append(a.Issues, domain.Issue{
			Type:        r.issueType,
			Severity:    r.severity,
			Points:      r.points,
			Description: r.description,
		})
		a.Recommendations = append(a.Recommendations, r.recommendation)
	}

	if hasPublicGrant(item.ACL) {
		trigger(rules[domain.IssuePublicSharing])
	}

	external, externalEditor := externalExposure(item.ACL, orgDomain)
	if external {
		trigger(rules[domain.IssueExternalSharing])
	}
	if externalEditor {
		trigger(rules[domain.IssueExternalEditor])
	}

	if _, ok := confidentialMimeTypes[item.MimeType]; ok {
		trigger(rules[domain.IssueConfidentialType])
	}

	if cat, ok := matchSensitiveName(item.Name); ok {
		r := rules[domain.IssueSensitiveContent]
		r.severity = cat.severity
		r.points = pointsForSeverity(cat.severity)
		trigger(r)
	}

	if item.Shared && !item.ModifiedAt.IsZero() && now.Sub(item.ModifiedAt) > staleAge {
		trigger(rules[domain.IssueStaleSharing])
	}

	if userGroupGrantCount(item.ACL) > manySharesThreshold {
		trigger(rules[domain.IssueManyShares])
	}

	if a.Score > maxScore {
		a.Score = maxScore
	}
	a.Level = domain.LevelForScore(a.Score)

	return a
}

// hasPublicGrant reports whether any grant is a public (anyone) link.
func hasPublicGrant(acl []domain.ACLEntry) bool {
	for _, e := range acl {
		if e.Type == domain.PrincipalAnyone {
			return true
		}
	}

	return false
}

// externalExposure reports whether any grant resolves to a principal outside
// orgDomain, and whether any such grant is write-capable. Public (anyone)
// grants are handled by the public_sharing rule and do not count here.
func externalExposure(acl []domain.ACLEntry, orgDomain string) (external, editor bool) {
	for _, e := range acl {
		var isExternal bool
		switch e.Type {
		case domain.PrincipalUser, domain.PrincipalGroup:
			if d := e.EmailDomain(); d != "" && d != orgDomain {
				isExternal = true
			}
		case domain.PrincipalDomain:
			if e.Domain != "" && e.Domain != orgDomain {
				isExternal = true
			}
		}
		if !isExternal {
			continue
		}

		external = true
		if e.Role.CanWrite() {
			editor = true
		}
	}

	return external, editor
}

// userGroupGrantCount counts raw user and group grants, without
// deduplication by email.
func userGroupGrantCount(acl []domain.ACLEntry) int {
	n := 0
	for _, e := range acl {
		if e.Type == domain.PrincipalUser || e.Type == domain.PrincipalGroup {
			n++
		}
	}

	return n
}
