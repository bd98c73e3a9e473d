package reporter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/QwQ-dev/LiveStatus/internal/models"
)

// Source supplies the grouped failure rows of a period
type Source interface {
	FailureSummarySince(start, end time.Time) ([]models.FailureSummary, error)
}

// Reporter handles delivery failure reports
type Reporter struct {
	repo Source
	now  func() time.Time
}

// New creates a new reporter
func New(repo Source) *Reporter {
	return &Reporter{
		repo: repo,
		now:  time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	summaries, err := r.repo.FailureSummarySince(period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to get failure summary: %w", err)
	}

	var total int64
	for i := range summaries {
		total += summaries[i].Count
	}

	if total > 0 {
		for i := range summaries {
			summaries[i].Percentage = (float64(summaries[i].Count) / float64(total)) * 100.0
		}
	}

	return &models.Report{
		Period:      *period,
		Failures:    summaries,
		Total:       total,
		GeneratedAt: r.now(),
	}, nil
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	now := r.now()
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
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
	output := fmt.Sprintf("Delivery Failures - %s\n", report.Period.Type)
	output += fmt.Sprintf("Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	output += fmt.Sprintf("Total Failures: %d\n\n", report.Total)

	if len(report.Failures) == 0 {
		output += "No delivery failures recorded for this period.\n"
		return output
	}

	output += fmt.Sprintf("%-10s %-30s %6s %8s %9s  %s\n", "Kind", "Application", "Code", "Count", "Percent", "Last Seen")
	output += fmt.Sprintf("%s\n", "--------------------------------------------------------------------------------")

	for _, f := range report.Failures {
		code := "-"
		if f.StatusCode != 0 {
			code = fmt.Sprintf("%d", f.StatusCode)
		}
		output += fmt.Sprintf("%-10s %-30s %6s %8d %8.1f%%  %s\n",
			f.Kind,
			truncate(appLabel(f.AppName), 30),
			code,
			f.Count,
			f.Percentage,
			f.LastSeen.Local().Format("01-02 15:04"))
	}

	return output
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func appLabel(name string) string {
	if name == "" {
		return "(none)"
	}
	return name
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
