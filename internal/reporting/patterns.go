package reporting

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/audit"
)

// trendDays is how many days the per-type and duration trends cover.
const trendDays = 7

// weekdayOrder fixes the tie-break for the busiest-day insight.
var weekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// AnalyzeCallPatterns combines the predictive seasonal breakdowns with real per-type and
// duration trends over the last 7 days, engine insights and rule-based recommendations.
func (s *Service) AnalyzeCallPatterns(ctx context.Context, tenantID string, w analytics.Window) (PatternAnalysis, error) {
	w, err := analytics.ParseWindow(string(w))
	if err != nil {
		return PatternAnalysis{}, err
	}
	if err := s.ready(tenantID); err != nil {
		return PatternAnalysis{}, err
	}

	var (
		a      analytics.Analytics
		p      analytics.PredictiveAnalytics
		series []analytics.DayBucket
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = s.engine.CalculateAnalytics(gCtx, tenantID, w)
		return err
	})
	g.Go(func() (err error) {
		p, err = s.engine.CalculatePredictiveAnalytics(gCtx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		series, err = s.engine.DailySeries(gCtx, tenantID, trendDays)
		return err
	})
	if err := g.Wait(); err != nil {
		return PatternAnalysis{}, err
	}

	patterns := Patterns{
		HourlyDistribution: p.Seasonal.Hourly,
		DailyDistribution:  p.Seasonal.Weekly,
		CallTypeTrends:     callTypeTrends(series),
		DurationTrends:     durationTrends(series),
	}
	insights := append([]string{}, a.Insights...)
	insights = append(insights, patternInsights(patterns)...)

	out := PatternAnalysis{
		TenantID:        tenantID,
		Window:          w,
		Patterns:        patterns,
		Insights:        insights,
		Recommendations: recommendations(a),
	}
	s.record(ctx, tenantID, audit.EventTypePatternAnalysis, "analyzed call patterns", map[string]any{"window": string(w)})
	return out, nil
}

// callTypeTrends gives each call type seen in the series one count per day, oldest first.
func callTypeTrends(series []analytics.DayBucket) map[string][]int {
	out := map[string][]int{}
	for i, day := range series {
		for t, n := range day.Summary.CallTypes {
			if _, ok := out[t]; !ok {
				out[t] = make([]int, len(series))
			}
			out[t][i] = n
		}
	}
	return out
}

// durationTrends is the average call duration per day, 0 for days without calls.
func durationTrends(series []analytics.DayBucket) []float64 {
	out := make([]float64, len(series))
	for i, day := range series {
		out[i] = day.Summary.AvgDurationSeconds
	}
	return out
}

func patternInsights(p Patterns) []string {
	var out []string

	peakHour, peakCalls := -1, 0
	for h := 0; h < 24; h++ {
		if n := p.HourlyDistribution[strconv.Itoa(h)]; n > peakCalls {
			peakHour, peakCalls = h, n
		}
	}
	if peakHour >= 0 {
		out = append(out, fmt.Sprintf("Peak calling hour is %d:00 with %d calls", peakHour, peakCalls))
	}

	busiest, busiestCalls := "", 0
	for _, d := range weekdayOrder {
		if n := p.DailyDistribution[d]; n > busiestCalls {
			busiest, busiestCalls = d, n
		}
	}
	if busiest != "" {
		out = append(out, fmt.Sprintf("%s is the busiest day with %d calls", busiest, busiestCalls))
	}

	if len(p.CallTypeTrends) > 0 {
		types := make([]string, 0, len(p.CallTypeTrends))
		for t := range p.CallTypeTrends {
			types = append(types, t)
		}
		sort.Strings(types)
		var fastest string
		var fastestGain int
		for _, t := range types {
			days := p.CallTypeTrends[t]
			if gain := days[len(days)-1] - days[0]; gain > fastestGain {
				fastest, fastestGain = t, gain
			}
		}
		if fastest != "" {
			days := p.CallTypeTrends[fastest]
			out = append(out, fmt.Sprintf("%s calls grew the most this week (%d to %d per day)", analytics.TypeLabel(fastest), days[0], days[len(days)-1]))
		}
	}
	return out
}

// Recommendation thresholds.
const (
	recommendSuccessBelow      = 80.0
	recommendDurationAbove     = 300.0
	recommendSatisfactionBelow = 4.0
)

// recommendations applies fixed rules; an empty window yields none.
func recommendations(a analytics.Analytics) []string {
	out := []string{}
	if a.TotalCalls == 0 {
		return out
	}
	if a.SuccessRate < recommendSuccessBelow {
		out = append(out, "Consider reviewing failed call patterns to improve success rate")
	}
	if a.AvgDurationSeconds > recommendDurationAbove {
		out = append(out, "Call durations are longer than average - consider optimizing conversation flow")
	}
	if a.ScoredCalls > 0 && a.SatisfactionScore < recommendSatisfactionBelow {
		out = append(out, "Customer satisfaction is below target - review call handling procedures")
	}
	return out
}
