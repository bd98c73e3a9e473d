package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned by Lock when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("daemon is already running")

const stopWait = 5 * time.Second

type Daemon struct {
	pidFile string
	lock    *flock.Flock
}

func New(pidFile, lockFile string) *Daemon {
	return &Daemon{pidFile: pidFile, lock: flock.New(lockFile)}
}

// Lock takes the singleton lock. It is held until Unlock or process exit,
// so a crashed daemon never blocks the next start.
func (d *Daemon) Lock() error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to take lock %s: %w", d.lock.Path(), err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	return nil
}

func (d *Daemon) Unlock() error {
	if err := d.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (d *Daemon) WritePID() error {
	pid := os.Getpid()
	return os.WriteFile(d.pidFile, fmt.Appendf([]byte{}, "%d", pid), 0644)
}

func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}

	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// IsRunning checks the PID file and removes it when the process is gone.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}

	if pid == 0 {
		return false, 0, nil
	}

	if !Alive(pid) {
		d.RemovePID()
		return false, 0, nil
	}

	return true, pid, nil
}

// Alive reports whether pid exists. A process owned by another user still
// counts as alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Stop sends SIGTERM to the daemon and waits briefly for it to exit.
func (d *Daemon) Stop() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return fmt.Errorf("error checking daemon status: %w", err)
	}

	if !running {
		return fmt.Errorf("daemon is not running or PID file is stale")
	}

	if err := unix.Kill(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			_ = d.RemovePID()
			return fmt.Errorf("daemon process already terminated")
		}
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	deadline := time.Now().Add(stopWait)
	for Alive(pid) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if Alive(pid) {
		return fmt.Errorf("daemon (PID: %d) did not exit within %v", pid, stopWait)
	}

	if err := d.RemovePID(); err != nil {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}

	return nil
}
