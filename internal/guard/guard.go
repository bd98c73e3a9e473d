// Package guard keeps the machine from idling into sleep while the reporter
// runs. The held resource lapses on its own if the reporter stops renewing
// it, so a wedged process can never pin the machine awake forever.
package guard

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// DefaultTimeout is the lapse window of a held resource
const DefaultTimeout = 10 * time.Minute

const inhibitCallTimeout = 5 * time.Second

// Inhibitor hands out a wake resource that is held until closed.
type Inhibitor interface {
	Inhibit(ctx context.Context) (io.Closer, error)
}

// Guard owns at most one wake resource.
type Guard struct {
	inhibitor Inhibitor
	timeout   time.Duration

	mu       sync.Mutex
	held     bool
	resource io.Closer
	timer    *time.Timer
	armed    uint64
	lapsed   bool
}

// New creates a guard. A nil inhibitor gives a guard that tracks the held
// state and lapse timer without an OS resource behind it.
func New(inhibitor Inhibitor, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guard{inhibitor: inhibitor, timeout: timeout}
}

// Acquire takes the resource if it is not held and arms the lapse timer.
// When already held it only re-arms the timer.
func (g *Guard) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.held {
		if err := g.take(); err != nil {
			return err
		}
	}

	g.lapsed = false
	g.arm()
	return nil
}

// Renew re-arms the lapse timer. A resource that lapsed is taken again;
// after Release, or before the first Acquire, Renew does nothing.
func (g *Guard) Renew() {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.held:
		g.arm()
	case g.lapsed:
		if err := g.take(); err != nil {
			log.Printf("Warning: failed to retake lapsed wake resource: %v", err)
			return
		}
		log.Println("Wake resource taken again after lapse")
		g.lapsed = false
		g.arm()
	}
}

// Release closes the held resource. Calling it again is a no-op.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lapsed = false
	return g.release()
}

// Held reports whether the resource is currently held.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// take obtains the resource from the inhibitor. Callers hold g.mu.
func (g *Guard) take() error {
	if g.inhibitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), inhibitCallTimeout)
		resource, err := g.inhibitor.Inhibit(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to acquire wake resource: %w", err)
		}
		g.resource = resource
	}
	g.held = true
	return nil
}

// arm restarts the lapse timer. Callers hold g.mu.
func (g *Guard) arm() {
	if g.timer != nil {
		g.timer.Stop()
	}
	g.armed++
	armed := g.armed
	g.timer = time.AfterFunc(g.timeout, func() { g.lapse(armed) })
}

func (g *Guard) lapse(armed uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// A renew after the timer fired but before we got the lock wins.
	if armed != g.armed || !g.held {
		return
	}
	log.Printf("Wake resource lapsed after %v without renewal", g.timeout)
	if err := g.release(); err != nil {
		log.Printf("Warning: %v", err)
	}
	g.lapsed = true
}

// release closes the resource. Callers hold g.mu.
func (g *Guard) release() error {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	if !g.held {
		return nil
	}

	g.held = false
	resource := g.resource
	g.resource = nil
	if resource == nil {
		return nil
	}
	if err := resource.Close(); err != nil {
		return fmt.Errorf("failed to release wake resource: %w", err)
	}
	return nil
}
