// Package x11 implements the window introspection capabilities on top of an
// X11 connection using EWMH root and client properties.
package x11

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/QwQ-dev/LiveStatus/pkg/window"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_CLIENT_LIST",
	"_NET_WM_STATE",
	"_NET_WM_STATE_FOCUSED",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_WINDOW_TYPE_NORMAL",
	"_NET_WM_WINDOW_TYPE_DIALOG",
	"_NET_WM_WINDOW_TYPE_DOCK",
	"_NET_WM_WINDOW_TYPE_DESKTOP",
	"_NET_WM_WINDOW_TYPE_NOTIFICATION",
	"_NET_WM_WINDOW_TYPE_ON_SCREEN_DISPLAY",
	"_NET_WM_WINDOW_TYPE_UTILITY",
	"_NET_WM_WINDOW_TYPE_SPLASH",
	"WM_CLASS",
}

// Source queries window state over a single X connection
type Source struct {
	conn      *xgb.Conn
	root      xproto.Window
	atoms     map[string]xproto.Atom
	atomNames map[xproto.Atom]string
	hasDPMS   bool
}

// NewSource connects to the display named by $DISPLAY.
func NewSource() (*Source, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	atoms, err := internAtoms(conn, atomNames)
	if err != nil {
		conn.Close()
		return nil, err
	}

	s := &Source{
		conn:      conn,
		root:      xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms:     atoms,
		atomNames: make(map[xproto.Atom]string, len(atoms)),
	}
	for name, atom := range atoms {
		s.atomNames[atom] = name
	}
	s.hasDPMS = initDPMS(conn)
	return s, nil
}

func internAtoms(conn *xgb.Conn, names []string) (map[string]xproto.Atom, error) {
	atoms := make(map[string]xproto.Atom, len(names))
	for _, name := range names {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		atoms[name] = reply.Atom
	}
	return atoms, nil
}

// Name returns "x11"
func (s *Source) Name() string {
	return "x11"
}

// Close closes the X connection
func (s *Source) Close() error {
	s.conn.Close()
	return nil
}

// ActiveRootPackage returns the WM_CLASS of the active top-level window.
// _NET_ACTIVE_WINDOW is preferred; the input focus, walked up to its
// top-level parent, is used when the window manager does not publish it.
func (s *Source) ActiveRootPackage(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	win := s.activeWindow()
	if win == 0 {
		win = s.focusedTopLevel()
	}
	if win == 0 {
		return "", fmt.Errorf("no active window")
	}

	return packageID(s.windowClass(win)), nil
}

// Windows enumerates the managed client windows
func (s *Source) Windows(ctx context.Context) ([]window.Window, error) {
	data, err := s.property(s.root, s.atoms["_NET_CLIENT_LIST"], xproto.AtomWindow, 1024)
	if err != nil {
		return nil, fmt.Errorf("failed to read client list: %w", err)
	}

	active := s.activeWindow()
	ids := decodeUint32s(data)
	windows := make([]window.Window, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return windows, err
		}

		win := xproto.Window(id)
		windows = append(windows, window.Window{
			ID:        id,
			PackageID: packageID(s.windowClass(win)),
			Kind:      kindForTypes(s.atomList(win, "_NET_WM_WINDOW_TYPE")),
			Focused:   contains(s.atomList(win, "_NET_WM_STATE"), "_NET_WM_STATE_FOCUSED"),
			Active:    win == active,
		})
	}
	return windows, nil
}

func (s *Source) property(win xproto.Window, atom, typ xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(s.conn, false, win, atom, typ, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (s *Source) activeWindow() xproto.Window {
	data, err := s.property(s.root, s.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xproto.Window(binary.LittleEndian.Uint32(data))
}

func (s *Source) focusedTopLevel() xproto.Window {
	reply, err := xproto.GetInputFocus(s.conn).Reply()
	if err != nil || reply.Focus == 0 || reply.Focus == s.root {
		return 0
	}

	win := reply.Focus
	for {
		tree, err := xproto.QueryTree(s.conn, win).Reply()
		if err != nil || tree.Parent == s.root || tree.Parent == 0 {
			return win
		}
		win = tree.Parent
	}
}

func (s *Source) windowClass(win xproto.Window) (instance, class string) {
	data, err := s.property(win, s.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil {
		return "", ""
	}
	return parseWMClass(data)
}

func (s *Source) atomList(win xproto.Window, property string) []string {
	data, err := s.property(win, s.atoms[property], xproto.AtomAtom, 64)
	if err != nil {
		return nil
	}

	var names []string
	for _, atom := range decodeUint32s(data) {
		if name, ok := s.atomNames[xproto.Atom(atom)]; ok {
			names = append(names, name)
		}
	}
	return names
}

// parseWMClass splits the NUL separated instance and class names
func parseWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = strings.TrimSpace(parts[0])
	}
	if len(parts) >= 2 {
		class = strings.TrimSpace(parts[1])
	}
	return instance, class
}

// packageID prefers the class name, which is stable across instances
func packageID(instance, class string) string {
	if class != "" {
		return class
	}
	return instance
}

// kindForTypes maps _NET_WM_WINDOW_TYPE values, most preferred first, to a
// window kind. Windows without a type are normal windows per EWMH.
func kindForTypes(types []string) window.Kind {
	if len(types) == 0 {
		return window.KindApplication
	}

	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG":
			return window.KindApplication
		case "_NET_WM_WINDOW_TYPE_DOCK", "_NET_WM_WINDOW_TYPE_DESKTOP", "_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return window.KindSystem
		case "_NET_WM_WINDOW_TYPE_ON_SCREEN_DISPLAY":
			return window.KindAccessibilityOverlay
		}
	}
	return window.KindOther
}

func decodeUint32s(data []byte) []uint32 {
	values := make([]uint32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		values = append(values, binary.LittleEndian.Uint32(data[i:]))
	}
	return values
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
