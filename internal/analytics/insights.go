package analytics

import "fmt"

// Insight thresholds.
const (
	excellentSuccessRate  = 90.0
	weakSuccessRate       = 70.0
	highSatisfaction      = 4.0
	lowSatisfaction       = 3.0
	longCallSeconds       = 300.0
	businessHoursStart    = 9
	businessHoursEndInclu = 17
)

// Insights derives human-readable observations from a summary.
// An empty summary yields no insights; satisfaction rules only apply when some call was scored.
func Insights(s Summary) []string {
	out := []string{}
	if s.Total == 0 {
		return out
	}

	switch {
	case s.SuccessRate > excellentSuccessRate:
		out = append(out, "Excellent success rate! Your AI is handling calls very effectively.")
	case s.SuccessRate < weakSuccessRate:
		out = append(out, "Success rate could be improved. Consider reviewing failed call patterns.")
	}

	if s.ScoredCalls > 0 {
		switch {
		case s.AvgSatisfaction > highSatisfaction:
			out = append(out, "High customer satisfaction scores indicate great service quality.")
		case s.AvgSatisfaction < lowSatisfaction:
			out = append(out, "Customer satisfaction is below average. Consider improving call handling.")
		}
	}

	if s.AvgDurationSeconds > longCallSeconds {
		out = append(out, "Average call duration is quite long. Consider optimizing conversation flow.")
	}

	if shares := Shares(s.CallTypes); len(shares) > 0 {
		top := shares[0]
		out = append(out, fmt.Sprintf("Most common call type is %s (%d calls).", top.Type, top.Count))
	}

	if hour, _, ok := s.PeakHour(); ok && hour >= businessHoursStart && hour <= businessHoursEndInclu {
		out = append(out, "Peak hours align with business hours, which is optimal.")
	}
	return out
}
