package models

import (
	"time"
)

// IndicatorID is the primary key of the only indicator row.
const IndicatorID = 1

// Indicator mirrors the visible status message so that other processes
// (the CLI, the web API) can read what the daemon last showed.
type Indicator struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Message   string    `gorm:"not null" json:"message"`
	PID       int       `gorm:"column:pid;not null;default:0" json:"pid"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
