package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"syscall"
	"time"
)

const (
	minBackoff   = time.Second
	maxBackoff   = 30 * time.Second
	stableUptime = time.Minute
)

// Supervisor keeps a child process alive. A child that exits cleanly ends
// supervision; one that crashes or is killed is started again with an
// increasing delay.
type Supervisor struct {
	spawn   func() *exec.Cmd
	backoff time.Duration
	max     time.Duration

	// Restarts counts how many times the child was started again.
	Restarts int
}

// NewSupervisor runs the commands built by spawn. spawn is called once per
// start because an exec.Cmd cannot be reused.
func NewSupervisor(spawn func() *exec.Cmd) *Supervisor {
	return &Supervisor{spawn: spawn, backoff: minBackoff, max: maxBackoff}
}

// Run blocks until the child exits cleanly or ctx is done. On ctx done the
// child gets SIGTERM and is waited for.
func (s *Supervisor) Run(ctx context.Context) error {
	delay := s.backoff
	for {
		started := time.Now()
		crashed, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if !crashed {
			return err
		}

		if time.Since(started) >= stableUptime {
			delay = s.backoff
		}
		log.Printf("Daemon child exited (%v), restarting in %v", err, delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		s.Restarts++
		delay = min(delay*2, s.max)
	}
}

// runOnce starts the child and waits for it. crashed is false only for a
// zero exit status.
func (s *Supervisor) runOnce(ctx context.Context) (crashed bool, err error) {
	cmd := s.spawn()
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("failed to start child: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		if err == nil {
			return false, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return true, exitErr
		}
		return true, err
	case <-ctx.Done():
		cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-waitErr:
		case <-time.After(stopWait):
			cmd.Process.Kill()
			<-waitErr
		}
		return false, ctx.Err()
	}
}
