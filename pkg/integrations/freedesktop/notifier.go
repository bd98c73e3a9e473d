// Package freedesktop talks to the session and system D-Bus services used by
// the agent: desktop notifications and systemd-logind.
package freedesktop

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsDest  = "org.freedesktop.Notifications"
	notificationsPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsIface = "org.freedesktop.Notifications"
)

// Notifier keeps exactly one desktop notification on screen and replaces its
// text on every Show.
type Notifier struct {
	appName string
	summary string

	mu   sync.Mutex
	conn *dbus.Conn
	id   uint32
}

// NewNotifier connects to the session bus.
func NewNotifier(appName, summary string) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Notifier{appName: appName, summary: summary, conn: conn}, nil
}

// Notify shows body, replacing the previously shown notification.
func (n *Notifier) Notify(ctx context.Context, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	hints := map[string]dbus.Variant{
		"urgency":   dbus.MakeVariant(byte(0)),
		"resident":  dbus.MakeVariant(true),
		"transient": dbus.MakeVariant(false),
	}

	var id uint32
	obj := n.conn.Object(notificationsDest, notificationsPath)
	call := obj.CallWithContext(ctx, notificationsIface+".Notify", 0,
		n.appName, n.id, "", n.summary, body, []string{}, hints, int32(0))
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("failed to show notification: %w", err)
	}
	n.id = id
	return nil
}

// Close dismisses the notification and disconnects.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.id != 0 {
		obj := n.conn.Object(notificationsDest, notificationsPath)
		_ = obj.Call(notificationsIface+".CloseNotification", 0, n.id).Err
		n.id = 0
	}
	return n.conn.Close()
}
