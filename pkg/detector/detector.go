package detector

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/QwQ-dev/LiveStatus/pkg/window"
)

// DefaultStepTimeout bounds each query of the fallback chain.
const DefaultStepTimeout = 2 * time.Second

// ForegroundApp is the capability the scheduler consumes to learn which
// application owns the visible, interactive window.
type ForegroundApp interface {
	CurrentForegroundApp(ctx context.Context) (window.App, bool)
	Available() bool
}

// Detector resolves the foreground app on demand by querying a window
// source with a ranked list of fallbacks.
type Detector struct {
	source      window.Source
	labeler     window.Labeler
	policy      Policy
	stepTimeout time.Duration
	state       *State
}

// Option configures a Detector
type Option func(*Detector)

// WithPolicy replaces the default exclusion policy.
func WithPolicy(p Policy) Option {
	return func(d *Detector) { d.policy = p }
}

// WithStepTimeout changes how long a single query may take.
func WithStepTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		if timeout > 0 {
			d.stepTimeout = timeout
		}
	}
}

// NewDetector creates a pull-based detector over source. labeler may be nil,
// in which case the package identity doubles as the display name.
func NewDetector(source window.Source, labeler window.Labeler, opts ...Option) *Detector {
	d := &Detector{
		source:      source,
		labeler:     labeler,
		policy:      DefaultPolicy(),
		stepTimeout: DefaultStepTimeout,
		state:       NewState(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if source != nil {
		d.state.Activate()
	}
	return d
}

// Available reports whether a window source is attached
func (d *Detector) Available() bool {
	return d.source != nil && d.state.Active()
}

// State exposes the last observation made by CurrentForegroundApp.
func (d *Detector) State() *State {
	return d.state
}

// CurrentForegroundApp resolves the foreground app now and records it.
// A failed resolution reports unavailable rather than the previous value.
func (d *Detector) CurrentForegroundApp(ctx context.Context) (window.App, bool) {
	if !d.Available() {
		return window.App{}, false
	}

	app, ok := d.Resolve(ctx)
	if ok {
		d.state.Set(app)
	}
	return app, ok
}

// Resolve runs the fallback chain without touching the recorded state.
func (d *Detector) Resolve(ctx context.Context) (window.App, bool) {
	if d.source == nil {
		return window.App{}, false
	}

	steps := []struct {
		name string
		run  func(context.Context) string
	}{
		{"active-root", d.fromActiveRoot},
		{"focused-windows", d.fromFocusedWindows},
		{"window-kinds", d.fromWindowKinds},
	}

	for _, s := range steps {
		if pkg := d.step(ctx, s.name, s.run); pkg != "" {
			return window.App{PackageID: pkg, DisplayName: d.label(pkg)}, true
		}
	}
	return window.App{}, false
}

func (d *Detector) fromActiveRoot(ctx context.Context) string {
	pkg, err := d.source.ActiveRootPackage(ctx)
	if err != nil {
		return ""
	}
	return d.usable(pkg)
}

func (d *Detector) fromFocusedWindows(ctx context.Context) string {
	windows, err := d.source.Windows(ctx)
	if err != nil {
		return ""
	}

	for _, w := range windows {
		if !w.Focused && !w.Active {
			continue
		}
		if pkg := d.usable(w.PackageID); pkg != "" {
			return pkg
		}
	}
	return ""
}

func (d *Detector) fromWindowKinds(ctx context.Context) string {
	windows, err := d.source.Windows(ctx)
	if err != nil {
		return ""
	}

	byKind := make(map[window.Kind][]window.Window)
	for _, w := range windows {
		byKind[w.Kind] = append(byKind[w.Kind], w)
	}

	for _, kind := range window.KindPriority {
		for _, w := range byKind[kind] {
			if pkg := d.usable(w.PackageID); pkg != "" {
				return pkg
			}
		}
	}
	return ""
}

func (d *Detector) usable(pkg string) string {
	pkg = strings.TrimSpace(pkg)
	if d.policy.Excluded(pkg) {
		return ""
	}
	return pkg
}

// step runs one query under the step timeout. Errors, panics and timeouts
// all count as "no result" for this step only.
func (d *Detector) step(ctx context.Context, name string, run func(context.Context) string) string {
	ctx, cancel := context.WithTimeout(ctx, d.stepTimeout)
	defer cancel()

	result := make(chan string, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Detector step %s panicked: %v", name, r)
				result <- ""
			}
		}()
		result <- run(ctx)
	}()

	select {
	case pkg := <-result:
		return pkg
	case <-ctx.Done():
		log.Printf("Detector step %s gave up: %v", name, ctx.Err())
		return ""
	}
}

func (d *Detector) label(pkg string) string {
	if d.labeler == nil {
		return pkg
	}
	name, err := d.labeler.Label(pkg)
	if err != nil || strings.TrimSpace(name) == "" {
		return pkg
	}
	return name
}

// String describes the detector for status output
func (d *Detector) String() string {
	if d.source == nil {
		return "detector: no window source"
	}
	return fmt.Sprintf("detector: %s (step timeout %v)", d.source.Name(), d.stepTimeout)
}
