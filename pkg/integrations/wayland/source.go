// Package wayland implements window introspection for wlroots compositors
// that expose their window tree over an IPC command: Sway and Hyprland.
package wayland

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/QwQ-dev/LiveStatus/pkg/window"
)

const (
	CompositorSway     = "sway"
	CompositorHyprland = "hyprland"
)

// Runner executes a compositor IPC command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Source queries a compositor through its command line client.
type Source struct {
	compositor string
	run        Runner
}

// DetectCompositor names the running compositor from its IPC environment,
// or returns "" when neither is reachable.
func DetectCompositor() string {
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" && commandExists("hyprctl") {
		return CompositorHyprland
	}
	if os.Getenv("SWAYSOCK") != "" && commandExists("swaymsg") {
		return CompositorSway
	}
	return ""
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// NewSource returns a source for the detected compositor.
func NewSource() (*Source, error) {
	compositor := DetectCompositor()
	if compositor == "" {
		return nil, fmt.Errorf("no supported wayland compositor (sway, hyprland) found")
	}
	return NewSourceWith(compositor, execRunner), nil
}

// NewSourceWith uses run instead of executing the real clients.
func NewSourceWith(compositor string, run Runner) *Source {
	return &Source{compositor: compositor, run: run}
}

func (s *Source) Name() string {
	return "wayland/" + s.compositor
}

func (s *Source) Close() error {
	return nil
}

func (s *Source) ActiveRootPackage(ctx context.Context) (string, error) {
	switch s.compositor {
	case CompositorHyprland:
		out, err := s.run(ctx, "hyprctl", "activewindow", "-j")
		if err != nil {
			return "", fmt.Errorf("failed to execute hyprctl: %w", err)
		}
		var w hyprClient
		if err := json.Unmarshal(out, &w); err != nil {
			return "", fmt.Errorf("failed to parse hyprctl output: %w", err)
		}
		return w.packageID(), nil
	case CompositorSway:
		windows, err := s.swayWindows(ctx)
		if err != nil {
			return "", err
		}
		for _, w := range windows {
			if w.Focused {
				return w.PackageID, nil
			}
		}
		return "", nil
	default:
		return "", fmt.Errorf("unsupported wayland compositor: %s", s.compositor)
	}
}

func (s *Source) Windows(ctx context.Context) ([]window.Window, error) {
	switch s.compositor {
	case CompositorHyprland:
		return s.hyprWindows(ctx)
	case CompositorSway:
		return s.swayWindows(ctx)
	default:
		return nil, fmt.Errorf("unsupported wayland compositor: %s", s.compositor)
	}
}

type hyprClient struct {
	Address        string `json:"address"`
	Class          string `json:"class"`
	InitialClass   string `json:"initialClass"`
	Mapped         bool   `json:"mapped"`
	Hidden         bool   `json:"hidden"`
	FocusHistoryID int    `json:"focusHistoryID"`
	PID            int    `json:"pid"`
}

func (c hyprClient) packageID() string {
	if c.Class != "" {
		return c.Class
	}
	return c.InitialClass
}

func (s *Source) hyprWindows(ctx context.Context) ([]window.Window, error) {
	out, err := s.run(ctx, "hyprctl", "clients", "-j")
	if err != nil {
		return nil, fmt.Errorf("failed to execute hyprctl: %w", err)
	}
	return parseHyprClients(out)
}

func parseHyprClients(data []byte) ([]window.Window, error) {
	var clients []hyprClient
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl clients: %w", err)
	}

	windows := make([]window.Window, 0, len(clients))
	for _, c := range clients {
		if !c.Mapped || c.Hidden {
			continue
		}
		windows = append(windows, window.Window{
			ID:        uint32(c.PID),
			PackageID: c.packageID(),
			Kind:      window.KindApplication,
			Focused:   c.FocusHistoryID == 0,
		})
	}
	return windows, nil
}

type swayNode struct {
	ID               int64            `json:"id"`
	Type             string           `json:"type"`
	Focused          bool             `json:"focused"`
	AppID            *string          `json:"app_id"`
	PID              int              `json:"pid"`
	WindowProperties *swayWindowProps `json:"window_properties"`
	Nodes            []swayNode       `json:"nodes"`
	FloatingNodes    []swayNode       `json:"floating_nodes"`
}

type swayWindowProps struct {
	Class string `json:"class"`
}

// packageID prefers the wayland app_id and falls back to the XWayland class.
func (n swayNode) packageID() string {
	if n.AppID != nil && *n.AppID != "" {
		return *n.AppID
	}
	if n.WindowProperties != nil {
		return n.WindowProperties.Class
	}
	return ""
}

func (s *Source) swayWindows(ctx context.Context) ([]window.Window, error) {
	out, err := s.run(ctx, "swaymsg", "-t", "get_tree", "-r")
	if err != nil {
		return nil, fmt.Errorf("failed to execute swaymsg: %w", err)
	}
	return parseSwayTree(out)
}

func parseSwayTree(data []byte) ([]window.Window, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse sway tree: %w", err)
	}

	var windows []window.Window
	var walk func(n swayNode)
	walk = func(n swayNode) {
		if n.PID > 0 && (n.Type == "con" || n.Type == "floating_con") {
			windows = append(windows, window.Window{
				ID:        uint32(n.ID),
				PackageID: n.packageID(),
				Kind:      window.KindApplication,
				Focused:   n.Focused,
			})
		}
		for _, child := range n.Nodes {
			walk(child)
		}
		for _, child := range n.FloatingNodes {
			walk(child)
		}
	}
	walk(root)

	return windows, nil
}
