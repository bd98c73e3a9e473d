// Package status defines the value reported to the LiveStatus server on
// every cycle.
package status

import (
	"encoding/json"
	"runtime"
)

const (
	// NotAvailable is the sentinel used for unknown fields and for the
	// default force_status_type.
	NotAvailable = "N/A"

	screenOffText = "Screen Off"
)

// Platform identifies the reporting platform in the os_name field.
const Platform = runtime.GOOS

// Status is the current-activity value sent to the server. It is built fresh
// each cycle and passed by value.
type Status struct {
	Title           string `json:"title"`
	AppName         string `json:"app_name"`
	PlatformName    string `json:"os_name"`
	ForceStatusType string `json:"force_status_type"`
}

// New returns a status for the given title and application name on this
// platform.
func New(title, appName string) Status {
	return WithForcedType(title, appName, NotAvailable)
}

// WithForcedType returns a status that asks the server to display it as
// forceType instead of inferring the type from the application.
func WithForcedType(title, appName, forceType string) Status {
	return Status{
		Title:           orNotAvailable(title),
		AppName:         orNotAvailable(appName),
		PlatformName:    Platform,
		ForceStatusType: orNotAvailable(forceType),
	}
}

// Unknown is reported when no foreground application could be resolved.
func Unknown() Status {
	return New(NotAvailable, NotAvailable)
}

// ScreenOff is reported while the display is not interactive.
func ScreenOff() Status {
	return New(screenOffText, screenOffText)
}

// IsUnknown reports whether s is the Unknown sentinel.
func (s Status) IsUnknown() bool {
	return s == Unknown()
}

// IsScreenOff reports whether s is the ScreenOff sentinel.
func (s Status) IsScreenOff() bool {
	return s == ScreenOff()
}

// Encode returns the wire form of s.
func (s Status) Encode() ([]byte, error) {
	return json.Marshal(s)
}

func (s Status) String() string {
	return s.Title + " - " + s.AppName
}

func orNotAvailable(v string) string {
	if v == "" {
		return NotAvailable
	}
	return v
}
