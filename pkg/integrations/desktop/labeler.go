// Package desktop resolves application display names from XDG desktop
// entries.
package desktop

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Labeler maps a package identity (WM_CLASS or desktop file id) to the Name
// of the matching desktop entry. Entries are indexed once, on first use.
type Labeler struct {
	dirs []string

	once      sync.Once
	byID      map[string]string
	byWMClass map[string]string
}

// NewLabeler indexes the given application directories. With no directories
// the XDG data directories are used.
func NewLabeler(dirs ...string) *Labeler {
	if len(dirs) == 0 {
		dirs = DefaultDirs()
	}
	return &Labeler{dirs: dirs}
}

// DefaultDirs returns the applications directories from $XDG_DATA_HOME and
// $XDG_DATA_DIRS, plus the flatpak exports.
func DefaultDirs() []string {
	var dirs []string

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
		dirs = append(dirs, filepath.Join(dataHome, "flatpak", "exports", "share", "applications"))
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, dir := range filepath.SplitList(dataDirs) {
		if dir != "" {
			dirs = append(dirs, filepath.Join(dir, "applications"))
		}
	}
	dirs = append(dirs, "/var/lib/flatpak/exports/share/applications")
	return dirs
}

// Label returns the display name for packageID
func (l *Labeler) Label(packageID string) (string, error) {
	l.once.Do(l.index)

	key := strings.ToLower(strings.TrimSpace(packageID))
	if key == "" {
		return "", fmt.Errorf("empty package id")
	}

	if name, ok := l.byID[key]; ok {
		return name, nil
	}
	if name, ok := l.byWMClass[key]; ok {
		return name, nil
	}
	// org.mozilla.firefox -> firefox
	if i := strings.LastIndex(key, "."); i >= 0 && i < len(key)-1 {
		if name, ok := l.byID[key[i+1:]]; ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("no desktop entry for %s", packageID)
}

func (l *Labeler) index() {
	l.byID = make(map[string]string)
	l.byWMClass = make(map[string]string)

	// Earlier directories take precedence, like the XDG lookup order.
	for _, dir := range l.dirs {
		files, err := filepath.Glob(filepath.Join(dir, "*.desktop"))
		if err != nil {
			continue
		}
		for _, path := range files {
			entry, err := parseEntry(path)
			if err != nil || entry.name == "" {
				continue
			}

			id := strings.ToLower(strings.TrimSuffix(filepath.Base(path), ".desktop"))
			if _, seen := l.byID[id]; !seen {
				l.byID[id] = entry.name
			}
			if wmClass := strings.ToLower(entry.wmClass); wmClass != "" {
				if _, seen := l.byWMClass[wmClass]; !seen {
					l.byWMClass[wmClass] = entry.name
				}
			}
		}
	}
}

type entry struct {
	name    string
	wmClass string
}

// parseEntry reads the unlocalized Name and StartupWMClass of the
// [Desktop Entry] group.
func parseEntry(path string) (entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return entry{}, err
	}
	defer f.Close()

	var e entry
	inMain := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inMain = line == "[Desktop Entry]"
			continue
		}
		if !inMain {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Name":
			e.name = strings.TrimSpace(value)
		case "StartupWMClass":
			e.wmClass = strings.TrimSpace(value)
		}
	}
	return e, scanner.Err()
}
