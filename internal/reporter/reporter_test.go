package reporter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/QwQ-dev/LiveStatus/internal/models"
)

type fakeSource struct {
	rows       []models.FailureSummary
	err        error
	start, end time.Time
}

func (f *fakeSource) FailureSummarySince(start, end time.Time) ([]models.FailureSummary, error) {
	f.start, f.end = start, end
	return f.rows, f.err
}

func fixedNow() time.Time {
	// A Wednesday
	return time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)
}

func TestGetPeriod(t *testing.T) {
	r := New(&fakeSource{})
	r.now = fixedNow

	tests := []struct {
		period    string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"day", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"today", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
		{"month", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			p, err := r.getPeriod(tt.period)
			if err != nil {
				t.Fatalf("getPeriod(%q) error = %v", tt.period, err)
			}
			if !p.Start.Equal(tt.wantStart) || !p.End.Equal(tt.wantEnd) {
				t.Errorf("getPeriod(%q) = %v..%v, want %v..%v", tt.period, p.Start, p.End, tt.wantStart, tt.wantEnd)
			}
		})
	}

	if _, err := r.getPeriod("year"); err == nil {
		t.Error("getPeriod(\"year\") should fail")
	}
}

func TestGenerateReport(t *testing.T) {
	src := &fakeSource{rows: []models.FailureSummary{
		{Kind: "rejected", AppName: "Firefox", StatusCode: 500, Count: 3},
		{Kind: "transport", AppName: "", Count: 1},
	}}
	r := New(src)
	r.now = fixedNow

	report, err := r.GenerateReport("day")
	if err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}
	if report.Total != 4 {
		t.Errorf("Total = %d, want 4", report.Total)
	}
	if report.Failures[0].Percentage != 75 {
		t.Errorf("Percentage = %v, want 75", report.Failures[0].Percentage)
	}
	if !src.start.Equal(report.Period.Start) || !src.end.Equal(report.Period.End) {
		t.Error("source was not queried with the report period")
	}

	text := r.FormatReportText(report)
	for _, want := range []string{"Total Failures: 4", "Firefox", "500", "(none)"} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}

	js, err := r.FormatReportJSON(report)
	if err != nil {
		t.Fatalf("FormatReportJSON() error = %v", err)
	}
	if !strings.Contains(js, `"total": 4`) {
		t.Errorf("JSON report = %s", js)
	}
}

func TestGenerateReportEmpty(t *testing.T) {
	r := New(&fakeSource{})
	report, err := r.GenerateReport("week")
	if err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}
	if !strings.Contains(r.FormatReportText(report), "No delivery failures") {
		t.Error("empty report should say so")
	}
}

func TestGenerateReportSourceError(t *testing.T) {
	r := New(&fakeSource{err: errors.New("db closed")})
	if _, err := r.GenerateReport("day"); err == nil {
		t.Error("GenerateReport() should surface the source error")
	}
}
