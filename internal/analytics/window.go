package analytics

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidWindow = errors.New("analytics: invalid window")

// Window is a coarse lookback ending at "now".
type Window string

const (
	WindowDay     Window = "day"
	WindowWeek    Window = "week"
	WindowMonth   Window = "month"
	WindowQuarter Window = "quarter"
	WindowYear    Window = "year"
)

// ParseWindow accepts day, week, month, quarter and year. An empty string means week.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case "":
		return WindowWeek, nil
	case WindowDay, WindowWeek, WindowMonth, WindowQuarter, WindowYear:
		return w, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
}

// Start resolves the window against end using calendar arithmetic in end's location.
func (w Window) Start(end time.Time) time.Time {
	switch w {
	case WindowDay:
		return end.AddDate(0, 0, -1)
	case WindowMonth:
		return end.AddDate(0, -1, 0)
	case WindowQuarter:
		return end.AddDate(0, -3, 0)
	case WindowYear:
		return end.AddDate(-1, 0, 0)
	default:
		return end.AddDate(0, 0, -7)
	}
}

// Range is a half-open interval [From, To).
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// Current and Previous return the window ending at now and the equal-length window before it.
func (w Window) Current(now time.Time) Range {
	return Range{From: w.Start(now), To: now}
}

func (w Window) Previous(now time.Time) Range {
	cur := w.Current(now)
	return Range{From: w.Start(cur.From), To: cur.From}
}

// lastDays is the range covering the n*24h before now.
func lastDays(now time.Time, n int) Range {
	return Range{From: now.AddDate(0, 0, -n), To: now}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// startOfWeek returns the Monday 00:00 of t's week in loc.
func startOfWeek(t time.Time, loc *time.Location) time.Time {
	day := startOfDay(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
