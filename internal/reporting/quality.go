package reporting

import (
	"context"
	"fmt"
	"math"

	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/calls"
)

const (
	// MaxPlausibleDurationSeconds marks longer calls as invalid.
	MaxPlausibleDurationSeconds = 3600
	// durationDriftSeconds is how far duration may stray from end minus start.
	durationDriftSeconds = 5

	highSeverityShare   = 0.10
	mediumSeverityShare = 0.05
)

// severityFor grades an issue by the share of records it touches: above 10% high, above 5% medium.
func severityFor(count, total int) Severity {
	share := float64(count) / float64(total)
	switch {
	case share > highSeverityShare:
		return SeverityHigh
	case share > mediumSeverityShare:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ValidateDataQuality scans the newest page of calls and scores it 0..100.
func (s *Service) ValidateDataQuality(ctx context.Context, tenantID string) (QualityReport, error) {
	if err := s.ready(tenantID); err != nil {
		return QualityReport{}, err
	}
	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return QualityReport{}, err
	}

	out := ScoreQuality(records)
	out.TenantID = tenantID
	s.record(ctx, tenantID, audit.EventTypeQualityCheck, fmt.Sprintf("quality score %d over %d calls", out.Score, out.TotalRecords), map[string]any{
		"score":  out.Score,
		"issues": len(out.Issues),
	})
	return out, nil
}

// ScoreQuality is the pure part of ValidateDataQuality.
func ScoreQuality(records []calls.CallRecord) QualityReport {
	total := len(records)
	out := QualityReport{TotalRecords: total, Score: 100, Issues: []QualityIssue{}}

	var missingPhone, badDuration, inconsistent, withPhone int
	seen := map[string]bool{}
	for _, r := range records {
		if r.PhoneNumber == "" {
			missingPhone++
		} else {
			withPhone++
			seen[r.PhoneNumber] = true
		}
		if r.DurationSeconds < 0 || r.DurationSeconds > MaxPlausibleDurationSeconds {
			badDuration++
		}
		if isInconsistent(r) {
			inconsistent++
		}
	}
	duplicates := withPhone - len(seen)

	issues := 0
	add := func(typ IssueType, desc string, n int) {
		if n == 0 {
			return
		}
		out.Issues = append(out.Issues, QualityIssue{Type: typ, Description: desc, Count: n, Severity: severityFor(n, total)})
		issues += n
	}
	add(IssueMissing, "Missing phone numbers", missingPhone)
	add(IssueInvalid, "Invalid call durations", badDuration)
	add(IssueDuplicate, "Duplicate phone numbers", duplicates)
	add(IssueInconsistent, "Inconsistent session timestamps", inconsistent)

	if total > 0 {
		out.Score = int(math.Round(math.Max(0, 100-float64(issues)/float64(total)*100)))
	}
	out.Recommendations = qualityRecommendations(out.Issues)
	return out
}

// isInconsistent flags an end before the start, or a duration that disagrees with end minus start.
func isInconsistent(r calls.CallRecord) bool {
	if r.EndedAt == nil || r.StartedAt.IsZero() {
		return false
	}
	span := r.EndedAt.Sub(r.StartedAt)
	if span < 0 {
		return true
	}
	return math.Abs(span.Seconds()-float64(r.DurationSeconds)) > durationDriftSeconds
}

func qualityRecommendations(issues []QualityIssue) []string {
	var high, medium bool
	for _, is := range issues {
		switch is.Severity {
		case SeverityHigh:
			high = true
		case SeverityMedium:
			medium = true
		}
	}
	var out []string
	if high {
		out = append(out, "Address high-severity data quality issues immediately")
	}
	if medium {
		out = append(out, "Plan to resolve medium-severity issues in the next maintenance window")
	}
	return append(out,
		"Implement data validation rules to prevent future quality issues",
		"Set up automated data quality monitoring",
	)
}
