package analytics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"aurora-dashboard/internal/calls"
)

// Summary is the single-pass aggregate every report is built from.
// Ratios are 0 when their denominator is 0.
type Summary struct {
	Total       int `json:"total_calls"`
	Completed   int `json:"completed_calls"`
	Failed      int `json:"failed_calls"`
	Transferred int `json:"transferred_calls"`
	Active      int `json:"active_calls"`
	AIHandled   int `json:"ai_handled_calls"`
	Resolved    int `json:"resolved_calls"`

	TotalDurationSeconds int     `json:"total_duration_seconds"`
	AvgDurationSeconds   float64 `json:"avg_duration_seconds"`
	SuccessRate          float64 `json:"success_rate"`

	ScoredCalls     int     `json:"scored_calls"`
	AvgSatisfaction float64 `json:"avg_satisfaction"`

	Hourly    [24]int        `json:"hourly"`
	CallTypes map[string]int `json:"call_types"`
}

// Summarize aggregates records; hours are taken in loc.
func Summarize(records []calls.CallRecord, loc *time.Location) Summary {
	s := Summary{CallTypes: map[string]int{}}
	scoreSum := 0
	for _, r := range records {
		s.Total++
		s.TotalDurationSeconds += r.DurationSeconds
		switch r.Status {
		case calls.StatusCompleted:
			s.Completed++
			if !r.HumanTransferred {
				s.Resolved++
			}
		case calls.StatusFailed:
			s.Failed++
		case calls.StatusTransferred:
			s.Transferred++
		case calls.StatusActive:
			s.Active++
		}
		if r.AIHandled {
			s.AIHandled++
		}
		if r.SatisfactionScore != nil {
			s.ScoredCalls++
			scoreSum += *r.SatisfactionScore
		}
		if r.CallType != "" {
			s.CallTypes[r.CallType]++
		}
		s.Hourly[r.At().In(loc).Hour()]++
	}
	s.AvgDurationSeconds = ratio(float64(s.TotalDurationSeconds), float64(s.Total))
	s.SuccessRate = ratio(float64(s.Completed), float64(s.Total)) * 100
	s.AvgSatisfaction = ratio(float64(scoreSum), float64(s.ScoredCalls))
	return s
}

// PeakHour is the busiest hour; the lowest hour wins ties. ok is false when no calls exist.
func (s Summary) PeakHour() (hour, count int, ok bool) {
	for h := 0; h < 24; h++ {
		if s.Hourly[h] > count {
			hour, count = h, s.Hourly[h]
		}
	}
	return hour, count, count > 0
}

// CallTypeShare is one call type with its share of all typed calls.
type CallTypeShare struct {
	Type       string  `json:"type"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Shares orders call types by count (then name) with percentages of typed calls, rounded to 0.1.
func Shares(types map[string]int) []CallTypeShare {
	total := 0
	for _, n := range types {
		total += n
	}
	out := make([]CallTypeShare, 0, len(types))
	for t, n := range types {
		out = append(out, CallTypeShare{
			Type:       t,
			Label:      TypeLabel(t),
			Count:      n,
			Percentage: round1(ratio(float64(n), float64(total)) * 100),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// TypeLabel turns "appointment_booking" into "Appointment Booking".
func TypeLabel(t string) string {
	if t == "" {
		return "Unknown"
	}
	words := strings.Fields(strings.ReplaceAll(t, "_", " "))
	for i, w := range words {
		r, n := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[n:]
	}
	return strings.Join(words, " ")
}

// HourLabel renders 0..23 as "12:00 AM".."11:00 PM".
func HourLabel(h int) string {
	return time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("3:04 PM")
}

// FormatDuration renders seconds as "4m 5s".
func FormatDuration(seconds float64) string {
	total := int(math.Round(seconds))
	if total < 0 {
		total = 0
	}
	return strconv.Itoa(total/60) + "m " + strconv.Itoa(total%60) + "s"
}

// PercentChange compares cur against prev. With no baseline it is 100 when cur > 0, else 0.
func PercentChange(prev, cur float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return (cur - prev) / prev * 100
}

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// stableBand is the +/- percentage change still classified as stable.
const stableBand = 5.0

func ClassifyTrend(prev, cur int) Trend {
	change := PercentChange(float64(prev), float64(cur))
	switch {
	case change > stableBand:
		return TrendUp
	case change < -stableBand:
		return TrendDown
	default:
		return TrendStable
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func filterRange(records []calls.CallRecord, r Range) []calls.CallRecord {
	out := make([]calls.CallRecord, 0, len(records))
	for _, rec := range records {
		if r.Contains(rec.At()) {
			out = append(out, rec)
		}
	}
	return out
}

func countIn(records []calls.CallRecord, r Range) int {
	n := 0
	for _, rec := range records {
		if r.Contains(rec.At()) {
			n++
		}
	}
	return n
}
