package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/focuslog/focuslog/internal/models"
	"github.com/focuslog/focuslog/internal/usage"
	"github.com/focuslog/focuslog/pkg/utils"
)

// Source provides the persisted usage document.
type Source interface {
	LoadDocument() (usage.Document, error)
}

// LiveFunc returns the in-memory totals of a running tracker for one day.
type LiveFunc func() (date string, counter usage.Counter)

// Reporter handles report generation
type Reporter struct {
	source Source
	live   LiveFunc
	now    func() time.Time
}

// Option customises a Reporter.
type Option func(*Reporter)

// WithLive overlays a running tracker's totals on the stored document.
func WithLive(fn LiveFunc) Option {
	return func(r *Reporter) { r.live = fn }
}

// WithNow replaces the wall clock used to pick the period.
func WithNow(fn func() time.Time) Option {
	return func(r *Reporter) { r.now = fn }
}

// New creates a new reporter
func New(source Source, opts ...Option) *Reporter {
	r := &Reporter{
		source: source,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	doc, err := r.source.LoadDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to load usage: %w", err)
	}

	if r.live != nil {
		// the running tracker is ahead of the last flush
		date, counter := r.live()
		if date != "" {
			if doc == nil {
				doc = make(usage.Document)
			}
			doc[date] = counter
		}
	}

	totals := doc.Range(period.Start, period.End)

	var totalSeconds int64
	summaries := make([]models.AppSummary, 0, len(totals))
	for _, row := range totals.Sorted() {
		summaries = append(summaries, models.AppSummary{
			Application:  row.Application,
			TotalSeconds: row.Seconds,
			TotalMinutes: float64(row.Seconds) / 60.0,
			TotalHours:   float64(row.Seconds) / 3600.0,
		})
		totalSeconds += row.Seconds
	}

	// Calculate percentages
	if totalSeconds > 0 {
		for i := range summaries {
			summaries[i].Percentage = (float64(summaries[i].TotalSeconds) / float64(totalSeconds)) * 100.0
		}
	}

	report := &models.Report{
		Period:       *period,
		Apps:         summaries,
		TotalSeconds: totalSeconds,
		TotalMinutes: float64(totalSeconds) / 60.0,
		TotalHours:   float64(totalSeconds) / 3600.0,
		GeneratedAt:  r.now(),
	}

	return report, nil
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	now := r.now()
	var start, end time.Time

	switch periodType {
	case "day", "today", "":
		periodType = "day"
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	header := color.New(color.FgCyan, color.Bold)
	b.WriteString(header.Sprintf("Activity Report - %s", report.Period.Type))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format(usage.DateLayout),
		report.Period.End.AddDate(0, 0, -1).Format(usage.DateLayout))
	fmt.Fprintf(&b, "Total Time: %s\n\n", utils.FormatDuration(report.TotalSeconds))

	if len(report.Apps) == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-40s %10s %9s\n", "Application", "Time", "Percent")
	b.WriteString(strings.Repeat("-", 61) + "\n")

	for _, app := range report.Apps {
		fmt.Fprintf(&b, "%-40s %10s %8.1f%%\n",
			utils.Truncate(app.Application, 40),
			utils.FormatDuration(app.TotalSeconds),
			app.Percentage)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}
