package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QwQ-dev/LiveStatus/pkg/status"
	"github.com/QwQ-dev/LiveStatus/pkg/window"
)

type fakeEvents struct {
	ch  chan struct{}
	err error
}

func (f *fakeEvents) ActiveWindowChanges(ctx context.Context) (<-chan struct{}, error) {
	return f.ch, f.err
}

type switchingSource struct {
	packages chan string
	current  string
}

func (s *switchingSource) ActiveRootPackage(ctx context.Context) (string, error) {
	select {
	case pkg := <-s.packages:
		s.current = pkg
	default:
	}
	return s.current, nil
}

func (s *switchingSource) Windows(ctx context.Context) ([]window.Window, error) {
	return nil, nil
}

func (s *switchingSource) Name() string {
	return "switching"
}

func (s *switchingSource) Close() error {
	return nil
}

func TestTrackerCachesLatestApp(t *testing.T) {
	src := &switchingSource{packages: make(chan string, 4)}
	src.packages <- "firefox"
	events := &fakeEvents{ch: make(chan struct{})}
	tracker := NewTracker(NewDetector(src, nil), events)

	_, ok := tracker.CurrentForegroundApp(context.Background())
	assert.False(t, ok, "tracker must be unavailable before Run")
	assert.False(t, tracker.Available())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()

	require.Eventually(t, func() bool {
		app, ok := tracker.CurrentForegroundApp(context.Background())
		return ok && app.PackageID == "firefox"
	}, time.Second, 5*time.Millisecond)
	assert.True(t, tracker.Available())

	src.packages <- "code"
	events.ch <- struct{}{}
	require.Eventually(t, func() bool {
		app, _ := tracker.CurrentForegroundApp(context.Background())
		return app.PackageID == "code"
	}, time.Second, 5*time.Millisecond)

	// An excluded window keeps the previous app.
	src.packages <- "ibus-ui-gtk3"
	events.ch <- struct{}{}
	events.ch <- struct{}{}
	app, ok := tracker.CurrentForegroundApp(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "code", app.PackageID)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	_, ok = tracker.CurrentForegroundApp(context.Background())
	assert.False(t, ok, "stopped tracker must not report a stale app")
}

func TestTrackerStopsWhenEventsClose(t *testing.T) {
	events := &fakeEvents{ch: make(chan struct{})}
	tracker := NewTracker(NewDetector(&fakeSource{active: "firefox"}, nil), events)

	done := make(chan error, 1)
	go func() { done <- tracker.Run(context.Background()) }()

	require.Eventually(t, tracker.Available, time.Second, 5*time.Millisecond)
	close(events.ch)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop after the event source closed")
	}
	assert.False(t, tracker.Available())
}

func TestTrackerRunErrors(t *testing.T) {
	d := NewDetector(&fakeSource{}, nil)

	err := NewTracker(d, nil).Run(context.Background())
	assert.Error(t, err)

	err = NewTracker(d, &fakeEvents{err: errors.New("no X server")}).Run(context.Background())
	assert.ErrorContains(t, err, "no X server")
}

type fakeScreen struct {
	on  bool
	err error
}

func (s fakeScreen) Interactive(ctx context.Context) (bool, error) {
	return s.on, s.err
}

type fakeApps struct {
	app       window.App
	ok        bool
	available bool
}

func (f fakeApps) CurrentForegroundApp(ctx context.Context) (window.App, bool) {
	return f.app, f.ok
}

func (f fakeApps) Available() bool {
	return f.available
}

func TestPreferFallsBackUntilTrackerRuns(t *testing.T) {
	det := NewDetector(&fakeSource{active: "firefox"}, nil)
	events := &fakeEvents{ch: make(chan struct{})}
	tracker := NewTracker(det, events)
	apps := Prefer(tracker, det)

	app, ok := apps.CurrentForegroundApp(context.Background())
	require.True(t, ok, "the pull detector must answer before the tracker runs")
	assert.Equal(t, "firefox", app.PackageID)
	assert.True(t, apps.Available())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()
	require.Eventually(t, tracker.Available, time.Second, 5*time.Millisecond)

	app, ok = apps.CurrentForegroundApp(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "firefox", app.PackageID)

	cancel()
	<-done
	app, ok = apps.CurrentForegroundApp(context.Background())
	assert.True(t, ok, "a stopped tracker hands back to the detector")
	assert.Equal(t, "firefox", app.PackageID)
}

func TestPreferUnavailable(t *testing.T) {
	apps := Prefer(fakeApps{}, fakeApps{})
	_, ok := apps.CurrentForegroundApp(context.Background())
	assert.False(t, ok)
	assert.False(t, apps.Available())
}

func TestStatusProvider(t *testing.T) {
	example := fakeApps{app: window.App{PackageID: "com.example.app", DisplayName: "Example"}, ok: true, available: true}

	tests := []struct {
		name   string
		apps   ForegroundApp
		screen window.Screen
		want   status.Status
	}{
		{"screen on with app", example, fakeScreen{on: true}, status.New("com.example.app", "Example")},
		{"screen off overrides app", example, fakeScreen{on: false}, status.ScreenOff()},
		{"screen error treated as on", example, fakeScreen{err: errors.New("no dpms")}, status.New("com.example.app", "Example")},
		{"no screen capability", example, nil, status.New("com.example.app", "Example")},
		{"detector unavailable", fakeApps{app: example.app, ok: true}, fakeScreen{on: true}, status.Unknown()},
		{"nothing resolved", fakeApps{available: true}, fakeScreen{on: true}, status.Unknown()},
		{"no detector", nil, fakeScreen{on: true}, status.Unknown()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewStatusProvider(tt.apps, tt.screen).Current(context.Background())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScreens(t *testing.T) {
	on, err := Screens{fakeScreen{err: errors.New("no dpms")}, fakeScreen{on: false}}.Interactive(context.Background())
	assert.NoError(t, err)
	assert.False(t, on)

	on, err = Screens{fakeScreen{err: errors.New("a")}, fakeScreen{err: errors.New("b")}}.Interactive(context.Background())
	assert.ErrorContains(t, err, "b")
	assert.True(t, on)

	on, err = Screens{}.Interactive(context.Background())
	assert.NoError(t, err)
	assert.True(t, on)
}

func TestStateLifecycle(t *testing.T) {
	s := NewState()
	s.Set(window.App{PackageID: "firefox"})
	_, ok := s.Last()
	assert.False(t, ok, "inactive state must not report observations")

	s.Activate()
	app, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, "firefox", app.PackageID)

	s.Deactivate()
	s.Activate()
	_, ok = s.Last()
	assert.False(t, ok, "deactivation must forget the observation")
}
