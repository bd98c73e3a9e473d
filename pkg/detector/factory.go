package detector

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/QwQ-dev/LiveStatus/pkg/integrations/desktop"
	"github.com/QwQ-dev/LiveStatus/pkg/integrations/freedesktop"
	"github.com/QwQ-dev/LiveStatus/pkg/integrations/wayland"
	"github.com/QwQ-dev/LiveStatus/pkg/integrations/x11"
	"github.com/QwQ-dev/LiveStatus/pkg/window"
)

// Platform bundles the OS capabilities the detector and status provider use.
type Platform struct {
	Source  window.Source
	Events  window.EventSource
	Screen  window.Screen
	Labeler window.Labeler

	closers []io.Closer
}

// NewPlatform picks the window source for the session: the compositor IPC
// on Sway or Hyprland, otherwise X11 (including XWayland). Screen state comes
// from DPMS when on X11, with logind lock/idle hints as the fallback.
func NewPlatform() (*Platform, error) {
	server := DetectDisplayServer()
	if server == "unknown" {
		return nil, fmt.Errorf("no display server detected (DISPLAY and WAYLAND_DISPLAY unset)")
	}

	p := &Platform{Labeler: desktop.NewLabeler()}
	var screens Screens

	if server == "wayland" && wayland.DetectCompositor() != "" {
		source, err := wayland.NewSource()
		if err != nil {
			return nil, err
		}
		p.Source = source
	} else {
		if os.Getenv("DISPLAY") == "" {
			return nil, fmt.Errorf("window detection needs Sway, Hyprland or an X11/XWayland display")
		}
		source, err := x11.NewSource()
		if err != nil {
			return nil, err
		}
		p.Source = source
		p.Events = source
		screens = append(screens, source)
	}

	if session, err := freedesktop.NewSession(); err == nil {
		screens = append(screens, session)
		p.closers = append(p.closers, session)
	} else {
		log.Printf("Warning: logind session unavailable: %v", err)
	}
	p.Screen = screens

	return p, nil
}

// New creates a pull detector over the platform's window source.
func New(p *Platform, opts ...Option) *Detector {
	return NewDetector(p.Source, p.Labeler, opts...)
}

// Close releases every connection the platform opened
func (p *Platform) Close() error {
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			log.Printf("Error closing platform resource: %v", err)
		}
	}
	if p.Source != nil {
		return p.Source.Close()
	}
	return nil
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
