package models

import "time"

// FailureSummary aggregates the failures of one kind for one app
type FailureSummary struct {
	Kind       string    `json:"kind"`
	AppName    string    `json:"app_name"`
	StatusCode int       `json:"status_code"`
	Count      int64     `json:"count"`
	LastSeen   time.Time `json:"last_seen"`
	Percentage float64   `json:"percentage"`
}

// ReportPeriod is the half-open time range a report covers
type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"`
}

// Report is the delivery failure overview of a period
type Report struct {
	Period      ReportPeriod     `json:"period"`
	Failures    []FailureSummary `json:"failures"`
	Total       int64            `json:"total"`
	GeneratedAt time.Time        `json:"generated_at"`
}
