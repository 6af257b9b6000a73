package reporting

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/audit"
)

func (f ReportFormat) valid() bool {
	switch f {
	case ReportPDF, ReportHTML, ReportJSON:
		return true
	default:
		return false
	}
}

// GenerateReport composes analytics, performance and predictive results for the configured window.
// PDF has no renderer: the JSON document is returned and FallbackFormat says so.
func (s *Service) GenerateReport(ctx context.Context, tenantID string, cfg ReportConfig) (ReportResult, error) {
	if !cfg.Format.valid() {
		return ReportResult{}, fmt.Errorf("%w: report format %q", ErrUnsupportedFormat, cfg.Format)
	}
	w, err := analytics.ParseWindow(string(cfg.TimeRange))
	if err != nil {
		return ReportResult{}, err
	}
	cfg.TimeRange = w
	if err := s.ready(tenantID); err != nil {
		return ReportResult{}, err
	}

	data := ReportData{Config: cfg, GeneratedAt: s.clock().UTC()}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Analytics, err = s.engine.CalculateAnalytics(gCtx, tenantID, w)
		return err
	})
	g.Go(func() error {
		var err error
		data.Performance, err = s.engine.CalculatePerformanceMetrics(gCtx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		data.Predictive, err = s.engine.CalculatePredictiveAnalytics(gCtx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ReportResult{}, err
	}
	data.Summary = reportSummary(data.Analytics, data.Predictive)

	name := reportFilename(cfg.Name, data)
	out := ReportResult{Format: cfg.Format, Data: data}
	switch cfg.Format {
	case ReportHTML:
		body, err := renderHTML(data)
		if err != nil {
			return ReportResult{}, err
		}
		out.File = File{Filename: name + ".html", ContentType: "text/html; charset=utf-8", Body: body}
	case ReportJSON, ReportPDF:
		body, err := encodeJSON(data)
		if err != nil {
			return ReportResult{}, err
		}
		out.File = File{Filename: name + ".json", ContentType: "application/json", Body: body}
		if cfg.Format == ReportPDF {
			out.FallbackFormat = ReportJSON
		}
	}

	s.record(ctx, tenantID, audit.EventTypeReport, "generated report "+cfg.Name, map[string]any{
		"format":          string(cfg.Format),
		"fallback_format": string(out.FallbackFormat),
		"window":          string(w),
	})
	return out, nil
}

func reportFilename(name string, data ReportData) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(name))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "report"
	}
	return slug + "-" + data.GeneratedAt.Format("20060102-150405")
}

func reportSummary(a analytics.Analytics, p analytics.PredictiveAnalytics) string {
	var b strings.Builder
	b.WriteString("Aurora Dashboard Report Summary:\n\n")
	b.WriteString("Performance Overview:\n")
	fmt.Fprintf(&b, "- Total calls processed: %d\n", a.TotalCalls)
	fmt.Fprintf(&b, "- Success rate: %.1f%%\n", a.SuccessRate)
	fmt.Fprintf(&b, "- Average call duration: %d seconds\n", int(math.Round(a.AvgDurationSeconds)))
	fmt.Fprintf(&b, "- Customer satisfaction: %.1f/5\n", a.SatisfactionScore)
	b.WriteString("\nKey Insights:\n")
	for _, in := range a.Insights {
		fmt.Fprintf(&b, "- %s\n", in)
	}
	b.WriteString("\nForecast:\n")
	fmt.Fprintf(&b, "- Expected calls tomorrow: %d\n", p.Forecast.Tomorrow)
	fmt.Fprintf(&b, "- Expected calls next week: %d\n", p.Forecast.NextWeek)
	b.WriteString("\nCapacity:\n")
	fmt.Fprintf(&b, "- System utilization: %.1f%%\n", p.Capacity.Utilization)
	fmt.Fprintf(&b, "- Recommended capacity: %d", p.Capacity.Recommended)
	return b.String()
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Aurora Dashboard Report</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 20px; }
    .header { background: #f5f5f5; padding: 20px; border-radius: 5px; }
    .metric { margin: 10px 0; padding: 10px; border-left: 4px solid #007bff; }
    .summary { background: #e9ecef; padding: 15px; border-radius: 5px; margin: 20px 0; white-space: pre-line; }
  </style>
</head>
<body>
  <div class="header">
    <h1>Aurora Dashboard Report</h1>
    {{if .Name}}<h2>{{.Name}}</h2>{{end}}
    <p>Generated: {{.GeneratedAt}}</p>
  </div>
  <div class="summary">
    <h2>Summary</h2>
    <p>{{.Summary}}</p>
  </div>
  <div class="metrics">
    <h2>Key Metrics</h2>
    <div class="metric">Total Calls: {{.TotalCalls}}</div>
    <div class="metric">Success Rate: {{.SuccessRate}}%</div>
    <div class="metric">Average Duration: {{.AvgDuration}}s</div>
    <div class="metric">Satisfaction Score: {{.Satisfaction}}</div>
  </div>
</body>
</html>
`))

func renderHTML(data ReportData) ([]byte, error) {
	view := struct {
		Name         string
		GeneratedAt  string
		Summary      string
		TotalCalls   int
		SuccessRate  string
		AvgDuration  int
		Satisfaction string
	}{
		Name:         data.Config.Name,
		GeneratedAt:  data.GeneratedAt.Format("Jan 2, 2006 3:04 PM MST"),
		Summary:      data.Summary,
		TotalCalls:   data.Analytics.TotalCalls,
		SuccessRate:  fmt.Sprintf("%.1f", data.Analytics.SuccessRate),
		AvgDuration:  int(math.Round(data.Analytics.AvgDurationSeconds)),
		Satisfaction: fmt.Sprintf("%.1f", data.Analytics.SatisfactionScore),
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("reporting: render html: %w", err)
	}
	return buf.Bytes(), nil
}
