package detector

import "strings"

// Policy decides which package identities are not a real foreground app.
// Shell and platform packages match exactly (ignoring case); input-method
// markers match as substrings.
type Policy struct {
	ShellPackages      []string
	PlatformPackages   []string
	InputMethodMarkers []string
}

// DefaultPolicy excludes the common desktop shells and panels, the bare
// display server, and any input method or on-screen keyboard.
func DefaultPolicy() Policy {
	return Policy{
		ShellPackages: []string{
			"gnome-shell",
			"plasmashell",
			"xfce4-panel",
			"xfdesktop",
			"mate-panel",
			"budgie-panel",
			"polybar",
			"com.android.systemui",
		},
		PlatformPackages: []string{
			"android",
			"xorg",
			"xwayland",
		},
		InputMethodMarkers: []string{
			"inputmethod",
			"ibus",
			"fcitx",
			"onboard",
			"keyboard",
		},
	}
}

// Excluded reports whether pkg must be skipped. Empty identities are
// excluded as well.
func (p Policy) Excluded(pkg string) bool {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return true
	}

	for _, shell := range p.ShellPackages {
		if strings.EqualFold(pkg, shell) {
			return true
		}
	}
	for _, platform := range p.PlatformPackages {
		if strings.EqualFold(pkg, platform) {
			return true
		}
	}

	lower := strings.ToLower(pkg)
	for _, marker := range p.InputMethodMarkers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
