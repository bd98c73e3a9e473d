package detector

import (
	"sync"

	"github.com/QwQ-dev/LiveStatus/pkg/window"
)

// State holds the last observed foreground app. It has a single writer (the
// event loop or the on-demand query) and any number of readers.
type State struct {
	mu       sync.RWMutex
	app      window.App
	observed bool
	active   bool
}

// NewState returns an inactive state with no observation.
func NewState() *State {
	return &State{}
}

// Activate marks the detection capability as running.
func (s *State) Activate() {
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
}

// Deactivate marks the capability as stopped and forgets the observation.
func (s *State) Deactivate() {
	s.mu.Lock()
	s.active = false
	s.observed = false
	s.app = window.App{}
	s.mu.Unlock()
}

// Set records app as the most recent observation.
func (s *State) Set(app window.App) {
	s.mu.Lock()
	s.app = app
	s.observed = true
	s.mu.Unlock()
}

// Last returns the most recent observation. ok is false when the capability
// is inactive or nothing has been observed yet.
func (s *State) Last() (app window.App, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.active || !s.observed {
		return window.App{}, false
	}
	return s.app, true
}

// Active reports whether the capability is running.
func (s *State) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}
