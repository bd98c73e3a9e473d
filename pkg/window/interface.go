package window

import "context"

// Kind classifies a window for the last-resort lookup, ordered by how likely
// the window is to belong to what the user is looking at.
type Kind int

const (
	KindOther Kind = iota
	KindApplication
	KindSystem
	KindSplitScreenDivider
	KindAccessibilityOverlay
)

// KindPriority is the order in which window kinds are searched when neither
// the active root nor a focused window yields a package.
var KindPriority = []Kind{
	KindApplication,
	KindSystem,
	KindSplitScreenDivider,
	KindAccessibilityOverlay,
}

func (k Kind) String() string {
	switch k {
	case KindApplication:
		return "application"
	case KindSystem:
		return "system"
	case KindSplitScreenDivider:
		return "split-screen-divider"
	case KindAccessibilityOverlay:
		return "accessibility-overlay"
	default:
		return "other"
	}
}

// App identifies a foreground application
type App struct {
	PackageID   string // stable identity, e.g. "org.mozilla.firefox" or a WM_CLASS
	DisplayName string // human-readable label
}

// Window is one entry of a window enumeration
type Window struct {
	ID        uint32
	PackageID string
	Kind      Kind
	Focused   bool
	Active    bool
}

// Source is the window introspection surface the detector queries.
// Implementations must return promptly; callers bound each call with ctx.
type Source interface {
	// ActiveRootPackage returns the package identity owning the active window root
	ActiveRootPackage(ctx context.Context) (string, error)

	// Windows enumerates all known windows
	Windows(ctx context.Context) ([]Window, error)

	// Name identifies the backing implementation ("x11", "fake", ...)
	Name() string

	// Close releases any connection held by the source
	Close() error
}

// EventSource pushes a notification every time the active window may have
// changed. The returned channel is closed when ctx ends or the source fails.
type EventSource interface {
	ActiveWindowChanges(ctx context.Context) (<-chan struct{}, error)
}

// Labeler resolves a package identity to a display name
type Labeler interface {
	Label(packageID string) (string, error)
}

// Screen reports whether the display is currently interactive (powered and
// unlocked)
type Screen interface {
	Interactive(ctx context.Context) (bool, error)
}
