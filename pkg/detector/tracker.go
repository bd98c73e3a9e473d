package detector

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/QwQ-dev/LiveStatus/pkg/window"
)

// Tracker keeps the foreground app cached from active-window change events,
// so reads never touch the window system.
type Tracker struct {
	detector *Detector
	events   window.EventSource
	state    *State
	running  atomic.Bool
}

// NewTracker creates a push-based tracker. Run must be called for it to
// become available.
func NewTracker(d *Detector, events window.EventSource) *Tracker {
	return &Tracker{
		detector: d,
		events:   events,
		state:    NewState(),
	}
}

// Run subscribes to window changes and updates the cache until ctx is done
// or the event source closes. The cache is cleared on return.
func (t *Tracker) Run(ctx context.Context) error {
	if t.events == nil {
		return fmt.Errorf("tracker has no event source")
	}
	if !t.running.CompareAndSwap(false, true) {
		return fmt.Errorf("tracker is already running")
	}
	defer t.running.Store(false)

	changes, err := t.events.ActiveWindowChanges(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to window changes: %w", err)
	}

	t.state.Activate()
	defer t.state.Deactivate()

	t.observe(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				log.Println("Window change events closed, tracker stopped")
				return nil
			}
			t.observe(ctx)
		}
	}
}

// observe keeps the previous app when the new active window is excluded,
// e.g. a keyboard popup over the real foreground app.
func (t *Tracker) observe(ctx context.Context) {
	if app, ok := t.detector.Resolve(ctx); ok {
		t.state.Set(app)
	}
}

// CurrentForegroundApp answers from the cache
func (t *Tracker) CurrentForegroundApp(ctx context.Context) (window.App, bool) {
	return t.state.Last()
}

// Available reports whether the event loop is running
func (t *Tracker) Available() bool {
	return t.running.Load() && t.state.Active()
}

// Prefer answers from primary while it is available and from fallback
// otherwise, e.g. a pull detector covering the moments before a tracker's
// event loop is up or after its event source went away.
func Prefer(primary, fallback ForegroundApp) ForegroundApp {
	return &preferred{primary: primary, fallback: fallback}
}

type preferred struct {
	primary  ForegroundApp
	fallback ForegroundApp
}

func (p *preferred) CurrentForegroundApp(ctx context.Context) (window.App, bool) {
	if p.primary.Available() {
		return p.primary.CurrentForegroundApp(ctx)
	}
	return p.fallback.CurrentForegroundApp(ctx)
}

func (p *preferred) Available() bool {
	return p.primary.Available() || p.fallback.Available()
}
