package models

import (
	"time"
)

// ErrorLog is one failed delivery: a transport error or a non-2xx answer.
type ErrorLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`
	Kind       string    `gorm:"not null" json:"kind"` // "rejected" or "transport"
	StatusCode int       `gorm:"not null;default:0" json:"status_code"`
	AppName    string    `gorm:"not null" json:"app_name"`
	ErrorMsg   string    `gorm:"not null" json:"error_msg"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
