package x11

import (
	"context"
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// ActiveWindowChanges watches _NET_ACTIVE_WINDOW on the root window. Events
// are read on a dedicated connection so queries on the main one never
// consume them.
func (s *Source) ActiveWindowChanges(ctx context.Context) (<-chan struct{}, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to open event connection: %w", err)
	}

	atoms, err := internAtoms(conn, []string{"_NET_ACTIVE_WINDOW"})
	if err != nil {
		conn.Close()
		return nil, err
	}
	activeAtom := atoms["_NET_ACTIVE_WINDOW"]

	root := xproto.Setup(conn).DefaultScreen(conn).Root
	err = xproto.ChangeWindowAttributesChecked(conn, root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to select root property events: %w", err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(changes)
		for {
			ev, xerr := conn.WaitForEvent()
			if ev == nil && xerr == nil {
				return
			}
			if xerr != nil {
				continue
			}

			notify, ok := ev.(xproto.PropertyNotifyEvent)
			if !ok || notify.Atom != activeAtom {
				continue
			}

			// Coalesce bursts; the tracker re-reads the whole state anyway.
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}()

	return changes, nil
}
