package detector

import (
	"context"
	"log"
	"time"

	"github.com/QwQ-dev/LiveStatus/pkg/status"
	"github.com/QwQ-dev/LiveStatus/pkg/window"
)

const screenQueryTimeout = 2 * time.Second

// StatusProvider turns the screen state and the foreground app into the
// status reported for one cycle.
type StatusProvider struct {
	apps   ForegroundApp
	screen window.Screen
}

// NewStatusProvider creates a provider. screen may be nil, in which case the
// screen is always considered on.
func NewStatusProvider(apps ForegroundApp, screen window.Screen) *StatusProvider {
	return &StatusProvider{apps: apps, screen: screen}
}

// Current returns ScreenOff while the display is not interactive, the
// foreground app when one is known, and Unknown otherwise.
func (p *StatusProvider) Current(ctx context.Context) status.Status {
	if !p.screenOn(ctx) {
		return status.ScreenOff()
	}

	if p.apps != nil && p.apps.Available() {
		if app, ok := p.apps.CurrentForegroundApp(ctx); ok {
			return status.New(app.PackageID, app.DisplayName)
		}
	}
	return status.Unknown()
}

// screenOn treats a failing query as "on" so that a broken power query
// never hides the foreground app.
func (p *StatusProvider) screenOn(ctx context.Context) bool {
	if p.screen == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, screenQueryTimeout)
	defer cancel()

	on, err := p.screen.Interactive(ctx)
	if err != nil {
		log.Printf("Screen state unavailable: %v", err)
		return true
	}
	return on
}

// Screens asks each screen in order and returns the first answer that is
// not an error.
type Screens []window.Screen

func (s Screens) Interactive(ctx context.Context) (bool, error) {
	var lastErr error
	for _, screen := range s {
		if screen == nil {
			continue
		}
		on, err := screen.Interactive(ctx)
		if err == nil {
			return on, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return true, nil
	}
	return true, lastErr
}
