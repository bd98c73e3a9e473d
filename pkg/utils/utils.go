package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders a duration in seconds as its largest whole unit
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh", seconds/3600)
	default:
		return fmt.Sprintf("%dd", seconds/86400)
	}
}

// Ago is FormatRoundedUnit of the time elapsed since t
func Ago(t time.Time) string {
	return FormatRoundedUnit(int64(time.Since(t).Seconds()))
}
