// Package scheduler drives the reporting cycle: every tick reads the current
// status, hands it to the publisher and schedules the next tick with the
// interval configured at that moment.
package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/QwQ-dev/LiveStatus/internal/indicator"
	"github.com/QwQ-dev/LiveStatus/internal/publisher"
	"github.com/QwQ-dev/LiveStatus/pkg/status"
)

const statusQueryTimeout = 10 * time.Second

// Provider produces the status of one cycle.
type Provider interface {
	Current(ctx context.Context) status.Status
}

// Publisher sends a status in the background.
type Publisher interface {
	Publish(st status.Status, done func(publisher.Outcome))
}

// IntervalSource is read once per tick.
type IntervalSource interface {
	Interval() time.Duration
}

// Guard is the wake resource renewed on every tick.
type Guard interface {
	Acquire() error
	Renew()
	Release() error
}

// Stats describes the ticks run so far.
type Stats struct {
	Running    bool          `json:"running"`
	Ticks      int64         `json:"ticks"`
	LastTick   time.Time     `json:"last_tick"`
	LastTickID string        `json:"last_tick_id"`
	LastStatus status.Status `json:"last_status"`
}

// Scheduler runs ticks sequentially on its looper. Stopped -> Running ->
// Stopped, and may be started again.
type Scheduler struct {
	looper    *Looper
	provider  Provider
	publisher Publisher
	interval  IntervalSource
	guard     Guard
	indicator indicator.Indicator

	running    atomic.Bool
	generation atomic.Uint64

	mu      sync.Mutex
	pending func()
	stats   Stats
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithGuard renews g on every tick and releases it on Stop.
func WithGuard(g Guard) Option {
	return func(s *Scheduler) { s.guard = g }
}

// WithIndicator shows publish outcomes on ind.
func WithIndicator(ind indicator.Indicator) Option {
	return func(s *Scheduler) { s.indicator = ind }
}

func New(provider Provider, pub Publisher, interval IntervalSource, opts ...Option) *Scheduler {
	s := &Scheduler{
		looper:    NewLooper(),
		provider:  provider,
		publisher: pub,
		interval:  interval,
		indicator: indicator.Log{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins ticking. Calling it while running does nothing.
func (s *Scheduler) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	gen := s.generation.Add(1)

	if s.guard != nil {
		if err := s.guard.Acquire(); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	log.Println("Reporting scheduler started")
	s.looper.Post(func() {
		s.indicator.Show(indicator.Initial)
		s.tick(gen)
	})
}

// Stop cancels the pending tick and releases the guard. Publishes already
// in flight complete and may still update the indicator.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
	s.mu.Unlock()

	if s.guard != nil {
		if err := s.guard.Release(); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	log.Println("Reporting scheduler stopped")
}

// Run starts the scheduler and stops it when ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// Close stops the scheduler and its looper. Completion events arriving
// afterwards are dropped.
func (s *Scheduler) Close() {
	s.Stop()
	s.looper.Stop()
}

// Running reports whether ticks are being scheduled.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Stats returns a snapshot of the tick counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.Running = s.running.Load()
	return stats
}

func (s *Scheduler) tick(gen uint64) {
	// A tick left over from an earlier run must not start a second chain.
	if !s.running.Load() || s.generation.Load() != gen {
		return
	}

	if s.guard != nil {
		s.guard.Renew()
	}

	id := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), statusQueryTimeout)
	st := s.provider.Current(ctx)
	cancel()

	s.mu.Lock()
	s.stats.Ticks++
	s.stats.LastTick = time.Now()
	s.stats.LastTickID = id
	s.stats.LastStatus = st
	s.mu.Unlock()

	log.Printf("Tick %s: %s", id, st)
	s.publisher.Publish(st, func(o publisher.Outcome) {
		s.looper.Post(func() { s.indicator.Show(o.Message()) })
	})

	interval := s.interval.Interval()
	if interval <= 0 {
		interval = time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() || s.generation.Load() != gen {
		return
	}
	s.pending = s.looper.PostDelayed(func() { s.tick(gen) }, interval)
}
