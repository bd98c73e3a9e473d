// Package tracker assembles the reporting agent run by the daemon: the
// foreground detector, the scheduler, the publisher and the indicators.
package tracker

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/QwQ-dev/LiveStatus/internal/config"
	"github.com/QwQ-dev/LiveStatus/internal/database"
	"github.com/QwQ-dev/LiveStatus/internal/guard"
	"github.com/QwQ-dev/LiveStatus/internal/indicator"
	"github.com/QwQ-dev/LiveStatus/internal/publisher"
	"github.com/QwQ-dev/LiveStatus/internal/scheduler"
	"github.com/QwQ-dev/LiveStatus/internal/settings"
	"github.com/QwQ-dev/LiveStatus/pkg/detector"
	"github.com/QwQ-dev/LiveStatus/pkg/integrations/freedesktop"
)

const (
	appName       = "LiveStatus"
	inhibitWhat   = "idle:sleep"
	inhibitReason = "Reporting the foreground application"
)

// Service is one running instance of the agent.
type Service struct {
	config    *config.Config
	settings  *settings.Store
	platform  *detector.Platform
	pushed    *detector.Tracker
	scheduler *scheduler.Scheduler
	memory    *indicator.Memory

	mu      sync.Mutex
	running bool
}

// Options carries the optional OS integrations. Nil fields fall back to
// degraded behavior: no platform reports Unknown, no inhibitor holds no
// wake resource, no notifier shows nothing on the desktop.
type Options struct {
	Repo      *database.Repository
	Platform  *detector.Platform
	Inhibitor guard.Inhibitor
	Notifier  indicator.Sender
	Publisher scheduler.Publisher
}

// NewService wires the agent from cfg and the run settings.
func NewService(cfg *config.Config, store *settings.Store, opts Options) *Service {
	s := &Service{
		config:   cfg,
		settings: store,
		platform: opts.Platform,
		memory:   indicator.NewMemory(),
	}

	var apps detector.ForegroundApp
	var provider *detector.StatusProvider
	if p := opts.Platform; p != nil {
		det := detector.New(p, detector.WithStepTimeout(cfg.Detector.StepTimeout))
		apps = det
		if cfg.Detector.Push && p.Events != nil {
			s.pushed = detector.NewTracker(det, p.Events)
			apps = detector.Prefer(s.pushed, det)
		}
		log.Printf("Window detector initialized: %s", det)
		provider = detector.NewStatusProvider(apps, p.Screen)
	} else {
		provider = detector.NewStatusProvider(nil, nil)
	}

	// The in-memory copy is written last so a reader that sees it also
	// sees the persisted row.
	indicators := indicator.Multi{indicator.Log{}}
	if opts.Repo != nil {
		indicators = append(indicators, indicator.NewRecorder(opts.Repo))
	}
	if opts.Notifier != nil {
		indicators = append(indicators, indicator.NewNotifier(opts.Notifier))
	}
	indicators = append(indicators, s.memory)

	pub := opts.Publisher
	if pub == nil {
		pubOpts := []publisher.Option{publisher.WithTimeout(cfg.Publisher.Timeout)}
		if opts.Repo != nil {
			pubOpts = append(pubOpts, publisher.WithFailureLog(publisher.NewStoreFailureLog(opts.Repo)))
		}
		pub = publisher.New(store, pubOpts...)
	}

	s.scheduler = scheduler.New(provider, pub, store,
		scheduler.WithGuard(guard.New(opts.Inhibitor, cfg.Guard.Timeout)),
		scheduler.WithIndicator(indicators),
	)
	return s
}

// DefaultOptions connects to every integration that is available in this
// session and logs the ones that are not.
func DefaultOptions(repo *database.Repository) (Options, []io.Closer) {
	opts := Options{Repo: repo}
	var closers []io.Closer

	if p, err := detector.NewPlatform(); err == nil {
		opts.Platform = p
		closers = append(closers, p)
	} else {
		log.Printf("Warning: foreground detection unavailable: %v", err)
	}

	if inh, err := freedesktop.NewInhibitor(inhibitWhat, appName, inhibitReason); err == nil {
		opts.Inhibitor = inh
		closers = append(closers, inh)
	} else {
		log.Printf("Warning: wake inhibitor unavailable: %v", err)
	}

	if n, err := freedesktop.NewNotifier(appName, appName); err == nil {
		opts.Notifier = n
		closers = append(closers, n)
	} else {
		log.Printf("Warning: desktop notifications unavailable: %v", err)
	}

	return opts, closers
}

// Start runs the agent until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("tracker is already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.settings.Path() != "" {
		if err := s.settings.Watch(ctx); err != nil {
			log.Printf("Warning: settings changes need a restart: %v", err)
		}
	}

	if s.pushed != nil {
		go func() {
			if err := s.pushed.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("Window change tracker stopped: %v", err)
			}
		}()
	}

	if !s.settings.IsConfigured() {
		log.Println("Warning: server URL or auth key not configured, statuses will not be sent")
	}
	log.Printf("Starting tracker with %v update interval", s.settings.Interval())

	return s.scheduler.Run(ctx)
}

// IsRunning reports whether Start is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Scheduler exposes tick statistics
func (s *Service) Scheduler() *scheduler.Scheduler {
	return s.scheduler
}

// Indicator exposes the latest indicator message
func (s *Service) Indicator() *indicator.Memory {
	return s.memory
}

// Settings exposes the run settings
func (s *Service) Settings() *settings.Store {
	return s.settings
}

// DetectorAvailable reports whether a window source is attached
func (s *Service) DetectorAvailable() bool {
	return s.platform != nil && s.platform.Source != nil
}

// Close stops the scheduler and waits for its looper.
func (s *Service) Close() {
	s.scheduler.Close()
}
