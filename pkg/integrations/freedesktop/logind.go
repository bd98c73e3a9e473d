package freedesktop

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	logindDest         = "org.freedesktop.login1"
	logindPath         = dbus.ObjectPath("/org/freedesktop/login1")
	logindManagerIface = "org.freedesktop.login1.Manager"
	logindSessionIface = "org.freedesktop.login1.Session"
	logindAutoSession  = dbus.ObjectPath("/org/freedesktop/login1/session/auto")
)

// Inhibitor takes systemd-logind inhibitor locks. The lock is held for as
// long as the returned file descriptor stays open.
type Inhibitor struct {
	conn *dbus.Conn
	what string
	who  string
	why  string
}

// NewInhibitor connects to the system bus. what is a colon separated list of
// inhibit types such as "idle:sleep".
func NewInhibitor(what, who, why string) (*Inhibitor, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &Inhibitor{conn: conn, what: what, who: who, why: why}, nil
}

// Inhibit takes a blocking inhibitor lock. Closing the result releases it.
func (i *Inhibitor) Inhibit(ctx context.Context) (io.Closer, error) {
	var fd dbus.UnixFD
	obj := i.conn.Object(logindDest, logindPath)
	err := obj.CallWithContext(ctx, logindManagerIface+".Inhibit", 0, i.what, i.who, i.why, "block").Store(&fd)
	if err != nil {
		return nil, fmt.Errorf("failed to take inhibitor lock: %w", err)
	}
	return os.NewFile(uintptr(fd), "logind-inhibitor"), nil
}

// Close disconnects from the system bus. Locks already handed out stay
// valid until closed.
func (i *Inhibitor) Close() error {
	return i.conn.Close()
}

// Session reads the lock and idle hints of the caller's logind session.
type Session struct {
	conn *dbus.Conn
	path dbus.ObjectPath
}

// NewSession connects to the system bus and uses the caller's own session.
func NewSession() (*Session, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &Session{conn: conn, path: logindAutoSession}, nil
}

// Interactive is false while the session is locked or idle.
func (s *Session) Interactive(ctx context.Context) (bool, error) {
	locked, err := s.boolProperty(ctx, "LockedHint")
	if err != nil {
		return false, err
	}
	idle, err := s.boolProperty(ctx, "IdleHint")
	if err != nil {
		return false, err
	}
	return !locked && !idle, nil
}

func (s *Session) boolProperty(ctx context.Context, name string) (bool, error) {
	var v dbus.Variant
	obj := s.conn.Object(logindDest, s.path)
	err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, logindSessionIface, name).Store(&v)
	if err != nil {
		return false, fmt.Errorf("failed to read session %s: %w", name, err)
	}
	value, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("session %s is %s, not a boolean", name, v.Signature())
	}
	return value, nil
}

// Close disconnects from the system bus
func (s *Session) Close() error {
	return s.conn.Close()
}
